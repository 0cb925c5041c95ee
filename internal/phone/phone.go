// Package phone classifies raw login identifiers and expands phone numbers
// into their equivalent stored representations.
package phone

import (
	"regexp"
	"strings"
)

// CountryCode is the international prefix for locally-formatted numbers.
const CountryCode = "251"

// IdentifierKind is the result of classifying a raw login identifier.
type IdentifierKind string

const (
	KindFIN   IdentifierKind = "fin"
	KindPhone IdentifierKind = "phone"
)

var (
	finPattern   = regexp.MustCompile(`^\d{12}$`)
	digitsOnly   = regexp.MustCompile(`^\+?\d+$`)
	separatorSet = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// Normalize trims whitespace and strips common separator characters.
func Normalize(raw string) string {
	return separatorSet.Replace(strings.TrimSpace(raw))
}

// Classify decides whether a normalized identifier is a FIN or a phone
// number. An exact 12-digit string is always a FIN, never a phone. Anything
// that matches neither pattern is treated as a phone lookup that will miss.
func Classify(raw string) (string, IdentifierKind) {
	id := Normalize(raw)
	if finPattern.MatchString(id) {
		return id, KindFIN
	}
	return id, KindPhone
}

// IsFIN reports whether the normalized identifier is an exact 12-digit FIN.
func IsFIN(raw string) bool {
	return finPattern.MatchString(Normalize(raw))
}

// Canonical returns the international "+<cc>" form of a phone number, or the
// normalized input unchanged when no local form is recognized.
func Canonical(raw string) string {
	variants := Variants(raw)
	for _, v := range variants {
		if strings.HasPrefix(v, "+") {
			return v
		}
	}
	return Normalize(raw)
}

// Variants expands a phone number into the set of equivalent stored
// representations: the local leading-zero form and the international
// "+251" form. Inputs may arrive in either form, with or without the plus,
// or as a bare subscriber number.
//
//	09XXXXXXXX    -> [09XXXXXXXX, +2519XXXXXXXX]
//	+2519XXXXXXXX -> [+2519XXXXXXXX, 09XXXXXXXX]
//
// Unrecognized shapes return only the normalized input, so lookups simply
// miss instead of erroring.
func Variants(raw string) []string {
	id := Normalize(raw)
	if id == "" || !digitsOnly.MatchString(id) {
		return []string{id}
	}

	var subscriber string
	switch {
	case strings.HasPrefix(id, "+"+CountryCode):
		subscriber = id[len(CountryCode)+1:]
	case strings.HasPrefix(id, CountryCode) && len(id) == len(CountryCode)+9:
		subscriber = id[len(CountryCode):]
	case strings.HasPrefix(id, "0") && len(id) == 10:
		subscriber = id[1:]
	case len(id) == 9:
		subscriber = id
	default:
		return []string{id}
	}

	if len(subscriber) != 9 {
		return []string{id}
	}

	local := "0" + subscriber
	international := "+" + CountryCode + subscriber

	variants := []string{id}
	if local != id {
		variants = append(variants, local)
	}
	if international != id {
		variants = append(variants, international)
	}
	return variants
}
