package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_LevelParsing(t *testing.T) {
	cases := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		logger := New(Config{Level: tc.level, Format: "json"})
		assert.Equal(t, tc.want, logger.GetLevel(), "level %q", tc.level)
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", Output: &buf})

	logger.Info().Str("k", "v").Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"k":"v"`)
	assert.Contains(t, out, `"message":"hello"`)
}

func TestNewWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithComponent(Config{Level: "info", Format: "json", Output: &buf}, "monitor")

	logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"component":"monitor"`)
}
