package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/triage/pkg/domain"
)

func TestCleanUtterance(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "my head hurts", "my head hurts"},
		{"whitespace collapsed", "  front,\n severity 7\t\tfor 2 days \r\n", "front, severity 7 for 2 days"},
		{"color codes removed", "\x1b[31mfever\x1b[0m since monday", "fever since monday"},
		{"cursor escape removed", "cough\x1b[2K\x1bMing", "coughing"},
		{"null and bell", "cou\x00gh\x07", "cough"},
		{"zero width", "ra\u200bsh", "rash"},
		{"non ascii kept", "dor de cabeça", "dor de cabeça"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanUtterance(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanUtterance_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t", "\x1b[0m\x00"} {
		_, err := CleanUtterance(in)
		assert.ErrorIs(t, err, domain.ErrEmptyUtterance, "%q", in)
	}
}

func TestCleanUtterance_RuneLimit(t *testing.T) {
	limit := DefaultMaxUtteranceRunes

	_, err := CleanUtterance(strings.Repeat("é", limit))
	assert.NoError(t, err, "limit counts runes, not bytes")

	_, err = CleanUtterance(strings.Repeat("a", limit+1))
	assert.ErrorIs(t, err, ErrUtteranceTooLong)

	_, err = CleanUtterance(strings.Repeat("a", limit) + strings.Repeat(" ", 50))
	assert.NoError(t, err, "trailing whitespace does not count")
}

func TestCleanUtterance_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxUtteranceRunes, "10")

	_, err := CleanUtterance("12345678901")
	assert.ErrorIs(t, err, ErrUtteranceTooLong)

	_, err = CleanUtterance("12345")
	assert.NoError(t, err)
}

func TestCleanUtterance_InvalidEnvIgnored(t *testing.T) {
	t.Setenv(EnvMaxUtteranceRunes, "-3")

	_, err := CleanUtterance(strings.Repeat("a", 100))
	assert.NoError(t, err)
}

func TestCleanUtterance_InvalidUTF8(t *testing.T) {
	_, err := CleanUtterance("bad \xff utf8")
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}
