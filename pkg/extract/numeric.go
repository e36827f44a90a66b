package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/triage/pkg/domain"
)

var (
	durationPat = regexp.MustCompile(`(\d+)\s*(minutes|minute|mins|min|hours|hour|hrs|hr|days|day|weeks|week|months|month)\b`)
	relativePat = regexp.MustCompile(`since (?:this )?(?:morning|evening)|since last night|since yesterday|yesterday|today|all day`)

	outOfTenPat = regexp.MustCompile(`\b(10|[1-9])\s*(?:/|out of)\s*10\b`)
	numberPat   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	unitAfter   = regexp.MustCompile(`^\s*(?:minutes?|mins?|hours?|hrs?|days?|weeks?|months?|years?|°|degrees?|celsius|fahrenheit|[cf]\b|%)`)

	tempPat = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(°\s*[cf]|celsius|fahrenheit|[cf])\b`)
)

// Duration returns the first "<n> <unit>" span, or a relative time phrase.
func Duration(in Input) (domain.Value, bool) {
	if m := durationPat.FindString(in.Lower); m != "" {
		return domain.String(m), true
	}
	if m := relativePat.FindString(in.Lower); m != "" {
		return domain.String(m), true
	}
	return domain.Value{}, false
}

// Severity returns a 1-10 rating. An explicit "N/10" or "N out of 10" wins;
// otherwise the first standalone integer in range is used, ignoring decimals
// and numbers that carry a duration or temperature unit.
func Severity(in Input) (domain.Value, bool) {
	if m := outOfTenPat.FindStringSubmatch(in.Lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return domain.Int(n), true
	}
	for _, loc := range numberPat.FindAllStringIndex(in.Lower, -1) {
		start, end := loc[0], loc[1]
		tok := in.Lower[start:end]
		if strings.Contains(tok, ".") || !standalone(in.Lower, start, end) {
			continue
		}
		if unitAfter.MatchString(in.Lower[end:]) {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil || n < 1 || n > 10 {
			continue
		}
		return domain.Int(n), true
	}
	return domain.Value{}, false
}

// Temperature returns "<value> C" or "<value> F". A bare number in [34,43]
// without a unit is read as Celsius.
func Temperature(in Input) (domain.Value, bool) {
	if m := tempPat.FindStringSubmatch(in.Lower); m != nil {
		unit := strings.TrimSpace(strings.TrimPrefix(m[2], "°"))
		switch unit {
		case "c", "celsius":
			return domain.String(m[1] + " C"), true
		case "f", "fahrenheit":
			return domain.String(m[1] + " F"), true
		}
	}
	for _, loc := range numberPat.FindAllStringIndex(in.Lower, -1) {
		start, end := loc[0], loc[1]
		if !standalone(in.Lower, start, end) || unitAfter.MatchString(in.Lower[end:]) {
			continue
		}
		tok := in.Lower[start:end]
		whole, _, _ := strings.Cut(tok, ".")
		if len(whole) != 2 {
			continue
		}
		n, err := strconv.ParseFloat(tok, 64)
		if err != nil || n < 34 || n > 43 {
			continue
		}
		return domain.String(strconv.FormatFloat(n, 'f', -1, 64) + " C"), true
	}
	return domain.Value{}, false
}

// standalone reports whether text[start:end] is not glued to letters or other digits.
func standalone(text string, start, end int) bool {
	if start > 0 && isAlnum(text[start-1]) {
		return false
	}
	if start > 1 && text[start-1] == '.' && isDigit(text[start-2]) {
		return false
	}
	if end < len(text) && isAlpha(text[end]) {
		return false
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' }
func isAlnum(b byte) bool { return isDigit(b) || isAlpha(b) }
