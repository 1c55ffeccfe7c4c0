package log

import (
	"fmt"
	"strings"
)

// Level is a log level. It implements pflag.Value.
type Level uint

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l *Level) String() string {
	switch *l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", uint(*l))
	}
}

// Set parses s case-insensitively.
func (l *Level) Set(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		*l = LevelDebug
	case "info", "":
		*l = LevelInfo
	case "warn", "warning":
		*l = LevelWarn
	case "error":
		*l = LevelError
	default:
		return fmt.Errorf("log: invalid log level %q", s)
	}
	return nil
}

func (l *Level) Type() string {
	return "[debug,info,warn,error]"
}
