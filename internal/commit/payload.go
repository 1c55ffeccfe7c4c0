package commit

import (
	"encoding/json"
	"fmt"
)

// Type is the tag that selects a payload variant.
type Type string

const (
	TypePost    Type = "post"
	TypeMeta    Type = "meta"
	TypeMessage Type = "message"
)

// Valid reports whether t names one of the three payload variants.
func (t Type) Valid() bool {
	switch t {
	case TypePost, TypeMeta, TypeMessage:
		return true
	}
	return false
}

// Payload is the typed data a commit carries. It is implemented only by
// *Post, *Meta and *Message.
type Payload interface {
	Type() Type

	// required lists the keys the wire object must carry.
	required() []string
	validate() error
	fields() map[string]interface{}
}

// AttachmentType classifies an attachment.
type AttachmentType string

const (
	AttachmentImage  AttachmentType = "image"
	AttachmentVideo  AttachmentType = "video"
	AttachmentOthers AttachmentType = "others"
)

// Attachment references media by content id, by URL, or both.
type Attachment struct {
	Type AttachmentType `json:"type"`
	CID  *string        `json:"cid,omitempty"`
	URL  *string        `json:"url,omitempty"`
}

// NewCIDAttachment returns an attachment identified by a content id.
func NewCIDAttachment(typ AttachmentType, cid string) Attachment {
	return Attachment{Type: typ, CID: &cid}
}

// NewURLAttachment returns an attachment identified by a URL.
func NewURLAttachment(typ AttachmentType, url string) Attachment {
	return Attachment{Type: typ, URL: &url}
}

// Post is a public post, optionally replying to a parent commit.
type Post struct {
	Parent      *string      `json:"parent"`
	Content     string       `json:"content"`
	Hashtags    []string     `json:"hashtags"`
	Attachments []Attachment `json:"attachments"`
}

// NewPost creates a post. An empty parent means the post is not a reply.
func NewPost(parent, content string, hashtags []string, attachments ...Attachment) *Post {
	p := &Post{
		Content:     content,
		Hashtags:    hashtags,
		Attachments: attachments,
	}
	if parent != "" {
		p.Parent = &parent
	}
	return p
}

func (p *Post) Type() Type { return TypePost }

func (p *Post) required() []string {
	return []string{"parent", "content", "hashtags", "attachments"}
}

func (p *Post) fields() map[string]interface{} {
	attachments := p.Attachments
	if attachments == nil {
		attachments = []Attachment{}
	}
	return map[string]interface{}{
		"parent":      p.Parent,
		"content":     p.Content,
		"hashtags":    nonNil(p.Hashtags),
		"attachments": attachments,
	}
}

// Meta is a profile update.
type Meta struct {
	Name      string   `json:"name"`
	About     string   `json:"about"`
	Image     string   `json:"image"`
	Website   string   `json:"website"`
	Followed  []string `json:"followed"`
	Hashtags  []string `json:"hashtags"`
	Bookmarks []string `json:"bookmarks"`
}

func (m *Meta) Type() Type { return TypeMeta }

func (m *Meta) required() []string {
	return []string{"followed", "hashtags", "bookmarks", "name", "about", "image", "website"}
}

func (m *Meta) fields() map[string]interface{} {
	return map[string]interface{}{
		"name":      m.Name,
		"about":     m.About,
		"image":     m.Image,
		"website":   m.Website,
		"followed":  nonNil(m.Followed),
		"hashtags":  nonNil(m.Hashtags),
		"bookmarks": nonNil(m.Bookmarks),
	}
}

// Message carries an encrypted blob for a single receiver. The blob is
// opaque to the commit engine.
type Message struct {
	Receiver string          `json:"receiver"`
	Message  json.RawMessage `json:"message"`
}

// NewMessage wraps blob, which must marshal to JSON, in a message payload.
func NewMessage(receiver string, blob interface{}) (*Message, error) {
	raw, err := json.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("marshal message blob: %w", err)
	}
	return &Message{Receiver: receiver, Message: raw}, nil
}

func (m *Message) Type() Type { return TypeMessage }

func (m *Message) required() []string {
	return []string{"receiver", "message"}
}

func (m *Message) fields() map[string]interface{} {
	return map[string]interface{}{
		"receiver": m.Receiver,
		"message":  m.Message,
	}
}

// nonNil renders nil slices as [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
