package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFIN(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind IdentifierKind
	}{
		{"twelve digits is always a fin", "123456789012", KindFIN},
		{"fin with surrounding whitespace", "  123456789012 ", KindFIN},
		{"ten digit local phone", "0911223344", KindPhone},
		{"international phone", "+251911223344", KindPhone},
		{"eleven digits is not a fin", "12345678901", KindPhone},
		{"thirteen digits is not a fin", "1234567890123", KindPhone},
		{"garbage falls through to phone", "not-a-number", KindPhone},
		{"empty string", "", KindPhone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, kind := Classify(tt.raw)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestVariantsLocalToInternational(t *testing.T) {
	variants := Variants("0911223344")
	assert.Contains(t, variants, "0911223344")
	assert.Contains(t, variants, "+251911223344")
}

func TestVariantsInternationalToLocal(t *testing.T) {
	variants := Variants("+251911223344")
	assert.Contains(t, variants, "+251911223344")
	assert.Contains(t, variants, "0911223344")
}

func TestVariantsBareForms(t *testing.T) {
	// Bare subscriber number and code-without-plus both expand.
	for _, raw := range []string{"911223344", "251911223344"} {
		variants := Variants(raw)
		assert.Contains(t, variants, "0911223344", "input %q", raw)
		assert.Contains(t, variants, "+251911223344", "input %q", raw)
	}
}

func TestVariantsStripsSeparators(t *testing.T) {
	variants := Variants("09 11-22 33 44")
	assert.Contains(t, variants, "0911223344")
	assert.Contains(t, variants, "+251911223344")
}

func TestVariantsUnrecognizedShape(t *testing.T) {
	assert.Equal(t, []string{"12345"}, Variants("12345"))
	assert.Equal(t, []string{"hello"}, Variants("hello"))
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "+251911223344", Canonical("0911223344"))
	assert.Equal(t, "+251911223344", Canonical("+251911223344"))
	assert.Equal(t, "12345", Canonical("12345"))
}
