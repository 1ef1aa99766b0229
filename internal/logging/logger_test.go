package logging_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/credkit/internal/logging"
)

func TestSecretRedaction(t *testing.T) {
	t.Parallel()

	s := logging.Secret("sk_live_abcdef0123456789")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", s))
	assert.NotContains(t, fmt.Sprintf("token %s rejected", s), "sk_live")
}

func TestRedact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		secrets []string
		want    string
	}{
		{
			name:    "single_secret",
			input:   "loaded token sk_live_abcdef0123456789 from file",
			secrets: []string{"sk_live_abcdef0123456789"},
			want:    "loaded token [REDACTED] from file",
		},
		{
			name:    "short_values_untouched",
			input:   "a b c",
			secrets: []string{"a", "b"},
			want:    "a b c",
		},
		{
			name:    "multiple_occurrences",
			input:   "secret123 and again secret123",
			secrets: []string{"secret123"},
			want:    "[REDACTED] and again [REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, logging.Redact(tt.input, tt.secrets))
		})
	}
}

func TestDebugSuppressed(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(false, &buf)
	logger.Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	logger = logging.NewWithWriter(true, &buf)
	logger.Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
}

func TestLevelsWriteToWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(false, &buf)
	logger.Info("info line")
	logger.Warn("warn line")
	logger.Error("error line")

	out := buf.String()
	assert.Contains(t, out, "info line")
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "error line")
}
