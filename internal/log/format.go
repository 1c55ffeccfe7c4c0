package log

import (
	"fmt"
	"strings"
)

// Format is a log output format. It implements pflag.Value.
type Format uint

const (
	FmtJSON Format = iota
	FmtLogfmt
)

func (f *Format) String() string {
	switch *f {
	case FmtJSON:
		return "json"
	case FmtLogfmt:
		return "logfmt"
	default:
		return fmt.Sprintf("format(%d)", uint(*f))
	}
}

// Set parses s case-insensitively.
func (f *Format) Set(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		*f = FmtJSON
	case "logfmt":
		*f = FmtLogfmt
	default:
		return fmt.Errorf("log: invalid log format %q", s)
	}
	return nil
}

func (f *Format) Type() string {
	return "[json,logfmt]"
}
