package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelTrace, ParseLevel("trace"))
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("banana"))
}

func TestFanoutRoutesByLevel(t *testing.T) {
	var normal, errs bytes.Buffer
	logger := slog.New(fanout{
		below{limit: slog.LevelError, h: slog.NewTextHandler(&normal, &slog.HandlerOptions{Level: slog.LevelDebug})},
		slog.NewTextHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	})

	logger.Debug("quiet detail")
	logger.Info("routine")
	logger.Error("broken")

	assert.Contains(t, normal.String(), "routine")
	assert.Contains(t, normal.String(), "quiet detail")
	assert.NotContains(t, normal.String(), "broken")

	assert.Contains(t, errs.String(), "broken")
	assert.NotContains(t, errs.String(), "routine")
}

func TestFanoutKeepsAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(fanout{
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}).With("source", 7)

	logger.Info("sample stored")
	assert.Contains(t, buf.String(), "source=7")
}

func TestRawLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	raw := NewRaw(&buf)

	raw.Log(true, []byte{0x01, 0xab, 0xff})
	line := buf.String()
	require.NotEmpty(t, line)
	assert.Contains(t, line, "C->S")
	assert.Contains(t, line, "3 bytes")
	assert.Contains(t, line, "01 ab ff")

	buf.Reset()
	raw.Log(false, []byte{0x00})
	assert.Contains(t, buf.String(), "S->C")

	// Empty frames and nil writers are silent.
	buf.Reset()
	raw.Log(true, nil)
	assert.Empty(t, buf.String())
	NewRaw(nil).Log(true, []byte{1})
}
