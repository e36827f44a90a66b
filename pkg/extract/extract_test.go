package extract_test

import (
	"testing"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/extract"
	"github.com/aretw0/triage/pkg/lexicon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func in(text string) extract.Input {
	return extract.NewInput(text, lexicon.Default())
}

func str(t *testing.T, v domain.Value, ok bool) string {
	t.Helper()
	require.True(t, ok, "expected a match")
	s, isStr := v.Str()
	require.True(t, isStr)
	return s
}

// strOf adapts str so a two-value extractor call can be passed directly.
func strOf(t *testing.T) func(domain.Value, bool) string {
	return func(v domain.Value, ok bool) string {
		t.Helper()
		return str(t, v, ok)
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"for 2 days now", "2 days"},
		{"about 3hrs", "3hrs"},
		{"Started 10 Minutes ago", "10 minutes"},
		{"since yesterday evening", "since yesterday"},
		{"since this morning", "since this morning"},
		{"it began today", "today"},
		{"1 week and 2 days", "1 week"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v, ok := extract.Duration(in(tt.text))
			assert.Equal(t, tt.want, str(t, v, ok))
		})
	}

	_, ok := extract.Duration(in("a while"))
	assert.False(t, ok)
	_, ok = extract.Duration(in("2 minimal"))
	assert.False(t, ok)
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		text string
		want int
		ok   bool
	}{
		{"7", 7, true},
		{"front, severity 7, for 2 days", 7, true},
		{"for 2 days, about 8/10", 8, true},
		{"3 out of 10", 3, true},
		{"for 2 days it's a 6", 6, true},
		{"temp 38.5 c", 0, false},
		{"maybe 1.5", 0, false},
		{"11 or 12", 0, false},
		{"10", 10, true},
		{"it's bad", 0, false},
		{"2 weeks", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v, ok := extract.Severity(in(tt.text))
			require.Equal(t, tt.ok, ok)
			if ok {
				n, _ := v.Int()
				assert.Equal(t, tt.want, n)
			}
		})
	}
}

func TestTemperature(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"it was 38.5 C", "38.5 C", true},
		{"101 F last night", "101 F", true},
		{"39 celsius", "39 C", true},
		{"37.8°C", "37.8 C", true},
		{"around 39", "39 C", true},
		{"for 2 days, peaked at 40.2", "40.2 C", true},
		{"25", "", false},
		{"for 36 hours", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v, ok := extract.Temperature(in(tt.text))
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, str(t, v, ok))
			}
		})
	}
}

func TestVocabulary_FirstEntryWins(t *testing.T) {
	x := extract.Vocabulary([]extract.Entry{
		{Key: "front", Variants: []string{"front", "forehead"}},
		{Key: "back", Variants: []string{"back", "back of head"}},
	})
	assert.Equal(t, "back", strOf(t)(x(in("at the back of head"))))
	assert.Equal(t, "front", strOf(t)(x(in("forehead and back"))))

	_, ok := x(in("feedback"))
	assert.False(t, ok)
}

func TestVocabulary_UsesSynonymExpansion(t *testing.T) {
	x := extract.Vocabulary([]extract.Entry{{Key: "dry", Variants: []string{"dry"}}})
	assert.Equal(t, "dry", strOf(t)(x(in("arlenye"))))
}

func TestFlags_SortedHits(t *testing.T) {
	x := extract.Flags([]string{"sweat", "chills", "sore throat"})
	v, ok := x(in("Chills and a sore throat"))
	require.True(t, ok)
	assert.Equal(t, []string{"chills", "sore throat"}, v.Items())

	_, ok = x(in("nothing"))
	assert.False(t, ok)
}

func TestPolarity_NegativeFirst(t *testing.T) {
	x := extract.Polarity([]string{"spreading", "spread"}, []string{"not spreading", "stable"})

	v, ok := x(in("it is not spreading"))
	require.True(t, ok)
	b, _ := v.Bool()
	assert.False(t, b)

	v, ok = x(in("it keeps spreading"))
	require.True(t, ok)
	b, _ = v.Bool()
	assert.True(t, b)

	_, ok = x(in("it itches"))
	assert.False(t, ok)
}

func TestYesNo(t *testing.T) {
	v, ok := extract.YesNo(in("Yes I have"))
	require.True(t, ok)
	b, _ := v.Bool()
	assert.True(t, b)

	v, ok = extract.YesNo(in("I have not taken anything"))
	require.True(t, ok)
	b, _ = v.Bool()
	assert.False(t, b)

	// Negatives win over affirmatives on purpose: a mixed answer is a no.
	// Checking "have" first would read the line above as yes.
	v, ok = extract.YesNo(in("yes, but no fever"))
	require.True(t, ok)
	b, _ = v.Bool()
	assert.False(t, b)

	_, ok = extract.YesNo(in("paracetamol"))
	assert.False(t, ok)
}

func TestFreeText(t *testing.T) {
	assert.Equal(t, "Left Knee", strOf(t)(extract.FreeText(in("  Left Knee "))))
	_, ok := extract.FreeText(in("   "))
	assert.False(t, ok)
}

func TestBuild(t *testing.T) {
	x, err := extract.Build(extract.Params{Kind: extract.KindSeverity})
	require.NoError(t, err)
	_, ok := x.Extract(in("5"))
	assert.True(t, ok)

	_, err = extract.Build(extract.Params{Kind: extract.KindVocabulary})
	assert.Error(t, err)
	_, err = extract.Build(extract.Params{Kind: extract.KindPolarity, Positive: []string{"a"}})
	assert.Error(t, err)
	_, err = extract.Build(extract.Params{Kind: "sniff"})
	assert.Error(t, err)
	_, err = extract.Build(extract.Params{})
	assert.Error(t, err)
}
