package domain

import (
	"fmt"
	"strings"
)

// Domain identifies which symptom flow currently owns a conversation.
type Domain string

const (
	None     Domain = ""
	Headache Domain = "headache"
	Fever    Domain = "fever"
	Cough    Domain = "cough"
	Stomach  Domain = "stomach"
	Fatigue  Domain = "fatigue"
	Skin     Domain = "skin"
	General  Domain = "general"
)

// All returns every flow-owning domain in routing priority order.
// None is not included.
func All() []Domain {
	return []Domain{Headache, Fever, Cough, Stomach, Fatigue, Skin, General}
}

// Valid reports whether d is a known flow domain (None excluded).
func (d Domain) Valid() bool {
	switch d {
	case Headache, Fever, Cough, Stomach, Fatigue, Skin, General:
		return true
	case None:
		return false
	}
	return false
}

// Label is the human wording used in summaries and handoff text.
func (d Domain) Label() string {
	switch d {
	case Headache:
		return "headache"
	case Fever:
		return "fever"
	case Cough:
		return "cough"
	case Stomach:
		return "stomach"
	case Fatigue:
		return "fatigue"
	case Skin:
		return "skin"
	case General:
		return "general"
	case None:
		return "none"
	}
	return string(d)
}

func (d Domain) String() string {
	if d == None {
		return "none"
	}
	return string(d)
}

// ParseDomain resolves a case-insensitive domain name. "none" and "" map to None.
func ParseDomain(s string) (Domain, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "none" {
		return None, nil
	}
	d := Domain(s)
	if !d.Valid() {
		return None, fmt.Errorf("%w: %q", ErrUnknownDomain, s)
	}
	return d, nil
}
