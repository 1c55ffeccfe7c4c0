package commit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
)

const maxHashtagLength = 32

var (
	hashtagPattern = regexp.MustCompile(`^[A-Za-z0-9]*$`)
	attachmentKeys = []string{"type", "cid", "url"}
)

// CheckDataStructure reports whether data is a well-formed payload for typ.
// Unknown type tags and malformed input yield false.
func CheckDataStructure(data json.RawMessage, typ Type) bool {
	_, err := DecodePayload(typ, data)
	return err == nil
}

// DecodePayload decodes and validates the wire form of a payload. Every
// failure wraps ErrInvalidPayloadSchema.
func DecodePayload(typ Type, data []byte) (Payload, error) {
	var p Payload
	switch typ {
	case TypePost:
		p = &Post{}
	case TypeMeta:
		p = &Meta{}
	case TypeMessage:
		p = &Message{}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidPayloadSchema, typ)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %s data is not an object: %v", ErrInvalidPayloadSchema, typ, err)
	}
	for _, key := range p.required() {
		if _, ok := obj[key]; !ok {
			return nil, fmt.Errorf("%w: %s is missing %q", ErrInvalidPayloadSchema, typ, key)
		}
	}
	// Keys outside the schema are not covered by the digest. The struct
	// decoder folds case, so membership is checked on the raw keys.
	if key, ok := unknownKey(obj, p.required()); ok {
		return nil, fmt.Errorf("%w: %s has unexpected key %q", ErrInvalidPayloadSchema, typ, key)
	}
	if typ == TypePost {
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(obj["attachments"], &items); err != nil {
			return nil, fmt.Errorf("%w: post attachments: %v", ErrInvalidPayloadSchema, err)
		}
		for i, item := range items {
			if key, ok := unknownKey(item, attachmentKeys); ok {
				return nil, fmt.Errorf("%w: attachment %d has unexpected key %q", ErrInvalidPayloadSchema, i, key)
			}
		}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayloadSchema, typ, err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ValidatePayload checks a typed payload against the rules for its variant.
func ValidatePayload(p Payload) error {
	if isNilPayload(p) {
		return fmt.Errorf("%w: nil payload", ErrInvalidPayloadSchema)
	}
	return p.validate()
}

func (p *Post) validate() error {
	if !all(p.Hashtags, validHashtag) {
		return fmt.Errorf("%w: post has an invalid hashtag", ErrInvalidPayloadSchema)
	}
	if !all(p.Attachments, validAttachment) {
		return fmt.Errorf("%w: post has an invalid attachment", ErrInvalidPayloadSchema)
	}
	return nil
}

func (m *Meta) validate() error {
	if !all(m.Hashtags, validHashtag) {
		return fmt.Errorf("%w: meta has an invalid hashtag", ErrInvalidPayloadSchema)
	}
	return nil
}

// The message blob is produced by the cipher and is not inspected here.
func (m *Message) validate() error {
	if m.Receiver == "" {
		return fmt.Errorf("%w: message has no receiver", ErrInvalidPayloadSchema)
	}
	if len(m.Message) == 0 {
		return fmt.Errorf("%w: message has no blob", ErrInvalidPayloadSchema)
	}
	return nil
}

func validHashtag(tag string) bool {
	return len(tag) <= maxHashtagLength && hashtagPattern.MatchString(tag)
}

func validAttachment(a Attachment) bool {
	switch a.Type {
	case AttachmentImage, AttachmentVideo, AttachmentOthers:
	default:
		return false
	}
	return a.CID != nil || a.URL != nil
}

// all reports whether pred holds for every item, stopping at the first
// item for which it does not.
func all[T any](items []T, pred func(T) bool) bool {
	for _, item := range items {
		if !pred(item) {
			return false
		}
	}
	return true
}

func isNilPayload(p Payload) bool {
	switch v := p.(type) {
	case nil:
		return true
	case *Post:
		return v == nil
	case *Meta:
		return v == nil
	case *Message:
		return v == nil
	}
	return false
}

// unknownKey returns a key of obj that is not exactly one of allowed.
func unknownKey(obj map[string]json.RawMessage, allowed []string) (string, bool) {
	for key := range obj {
		if !slices.Contains(allowed, key) {
			return key, true
		}
	}
	return "", false
}
