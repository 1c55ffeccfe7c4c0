package log

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

const tsRegex = `\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{0,9}Z`

func TestLoggerLogfmt(t *testing.T) {
	var b bytes.Buffer
	l, err := NewLogger("log-test", &b, FmtLogfmt, LevelDebug)
	require.NoError(t, err)

	l.Debug("mined", "nonce", 7)
	require.Regexp(t, regexp.MustCompile(
		`level=debug ts=`+tsRegex+` caller=log_test\.go:\d{1,4} module=log-test msg=mined nonce=7`),
		b.String())
}

func TestLoggerJSON(t *testing.T) {
	var b bytes.Buffer
	l, err := NewLogger("log-test", &b, FmtJSON, LevelDebug)
	require.NoError(t, err)

	l.Info("a statement")
	require.Regexp(t, regexp.MustCompile(
		`{"caller":"log_test\.go:\d{1,4}","level":"info","module":"log-test","msg":"a statement","ts":"`+tsRegex+`"}\n`),
		b.String())
}

func TestLoggerInvalidFormat(t *testing.T) {
	var b bytes.Buffer
	_, err := NewLogger("log-test", &b, Format(255), LevelDebug)
	require.Error(t, err)
}

func TestLevelFiltering(t *testing.T) {
	var b bytes.Buffer
	l, err := NewLogger("log-test", &b, FmtJSON, LevelWarn)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("hidden")
	require.Empty(t, b.String())

	l.Warn("shown")
	require.Contains(t, b.String(), `"msg":"shown"`)
}

func TestWithModule(t *testing.T) {
	var b bytes.Buffer
	l, err := NewLogger("log-test", &b, FmtJSON, LevelDebug)
	require.NoError(t, err)

	l.WithModule("miner").With("difficulty", 4).Debug("start")
	require.Contains(t, b.String(), `"module":"miner"`)
	require.Contains(t, b.String(), `"difficulty":4`)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Error("nothing happens")

	var nilLogger *Logger
	nilLogger.Info("nil receivers are ignored")
}

func TestLevelAndFormatSet(t *testing.T) {
	var lvl Level
	require.NoError(t, lvl.Set("WARN"))
	require.Equal(t, LevelWarn, lvl)
	require.Error(t, lvl.Set("loud"))

	var f Format
	require.NoError(t, f.Set("logfmt"))
	require.Equal(t, FmtLogfmt, f)
	require.Error(t, f.Set("xml"))
}
