package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"hungarian diacritics", "Kovács János", "kovacs janos"},
		{"upper case with double acute", "KŐRÖSI ŰRSULA", "korosi ursula"},
		{"punctuation becomes space", "Nagy-Szabó, Éva Dr.", "nagy szabo eva dr"},
		{"whitespace collapsed", "  Teszt \t\n Elek  ", "teszt elek"},
		{"digits kept", "Worker 42", "worker 42"},
		{"non decomposable dropped", "Straße", "strae"},
		{"empty", "", ""},
		{"only symbols", "--- !!", ""},
		{"nil", nil, ""},
		{"number", 42, ""},
		{"float", 3.5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestNormalizeName_Idempotent(t *testing.T) {
	inputs := []string{
		"Kovács János",
		"ÁRVÍZTŰRŐ TÜKÖRFÚRÓGÉP",
		"  o'Brien,   Seán ",
		"Nagy-Szabó Éva",
		"",
	}

	for _, input := range inputs {
		once := NormalizeName(input)
		assert.Equal(t, once, NormalizeName(once), "input %q", input)
	}
}

func TestNormalizeName_CaseAndDiacriticInsensitive(t *testing.T) {
	assert.Equal(t, NormalizeName("Ákos NAGY"), NormalizeName("akos nagy"))
	assert.Equal(t, NormalizeName("Kovács János"), NormalizeName("KOVÁCS JÁNOS"))
	assert.Equal(t, NormalizeName("Csörgő Öröm"), NormalizeName("csorgo orom"))
}

func TestReverseName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"kovacs janos", "janos kovacs"},
		{"a b c", "c b a"},
		{"single", "single"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ReverseName(tt.input))
		})
	}

	assert.Equal(t, "kovacs janos", ReverseName(ReverseName("kovacs janos")))
}
