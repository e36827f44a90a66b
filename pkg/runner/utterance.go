package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/flow"
)

// DefaultMaxUtteranceRunes bounds a single turn. It equals the handoff text
// cap so one message can never overflow the downstream model input alone.
const DefaultMaxUtteranceRunes = flow.MaxModelInput

// EnvMaxUtteranceRunes overrides DefaultMaxUtteranceRunes.
const EnvMaxUtteranceRunes = "TRIAGE_MAX_UTTERANCE_RUNES"

var (
	ErrUtteranceTooLong = errors.New("message is too long")
	ErrInvalidUTF8      = errors.New("message is not valid UTF-8")
)

// CleanUtterance turns a raw chat message into the single line the router
// sees. Terminal escape sequences, control and format characters are
// dropped, every whitespace run becomes one space, and the result is
// trimmed. A message that is empty after cleaning yields
// domain.ErrEmptyUtterance; one longer than the rune limit is rejected, not
// truncated.
func CleanUtterance(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", ErrInvalidUTF8
	}

	var b strings.Builder
	b.Grow(len(raw))
	pendingSpace := false
	n := 0
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRuneInString(raw[i:])
		if r == '\x1b' {
			i += escapeLen(raw[i:])
			continue
		}
		i += size
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
			continue
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			n++
			pendingSpace = false
		}
		b.WriteRune(r)
		n++
	}

	if n == 0 {
		return "", domain.ErrEmptyUtterance
	}
	if limit := maxUtteranceRunes(); n > limit {
		return "", fmt.Errorf("%w: %d runes, limit %d", ErrUtteranceTooLong, n, limit)
	}
	return b.String(), nil
}

// escapeLen returns the byte length of the escape sequence at the start of s.
// CSI sequences (ESC [ params final) are consumed whole; any other escape
// drops only the ESC and the rune after it.
func escapeLen(s string) int {
	if len(s) < 2 {
		return len(s)
	}
	if s[1] != '[' {
		_, size := utf8.DecodeRuneInString(s[1:])
		return 1 + size
	}
	for j := 2; j < len(s); j++ {
		if s[j] >= 0x40 && s[j] <= 0x7e {
			return j + 1
		}
	}
	return len(s)
}

func maxUtteranceRunes() int {
	if v := os.Getenv(EnvMaxUtteranceRunes); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxUtteranceRunes
}
