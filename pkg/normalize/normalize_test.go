package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/envlake/envlake/pkg/normalize"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain ascii", "Berlin", "berlin"},
		{"diacritics", "Kraków", "krakow"},
		{"mixed case and marks", "MÜNCHEN", "munchen"},
		{"leading and trailing space", "  Paris  ", "paris"},
		{"multi word", "Den Haag", "den haag"},
		{"cedilla and breve", "Bucureşti", "bucuresti"},
		{"stroke letters", "Łódź", "lodz"},
		{"o slash", "København", "kobenhavn"},
		{"sharp s", "Straße", "strasse"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, normalize.Normalize(tc.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"Kraków", "MÜNCHEN", "  Göteborg ", "Berlin", ""}
	for _, in := range inputs {
		once := normalize.Normalize(in)
		assert.Equal(t, once, normalize.Normalize(once))
	}
}

func TestNormalize_DiacriticInsensitive(t *testing.T) {
	assert.Equal(t, normalize.Normalize("krakow"), normalize.Normalize("Kraków"))
	assert.Equal(t, normalize.Normalize("goteborg"), normalize.Normalize("Göteborg"))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "den-haag", normalize.Slug("Den Haag"))
	assert.Equal(t, "krakow", normalize.Slug("Kraków"))
}

func TestMatches(t *testing.T) {
	tests := []struct {
		locality string
		target   string
		expected bool
	}{
		{"München", "Munich", true},
		{"muenchen", "Munich", true},
		{"Berlin", "Munich", false},
		{"Berlin", "Berlin", true},
		{"Kraków", "Krakow", true},
		{"Wien", "Vienna", true},
		{"Den Haag", "The Hague", true},
		// No substring matching.
		{"Berlin-Mitte", "Berlin", false},
		{"Munich Airport", "Munich", false},
	}

	for _, tc := range tests {
		t.Run(tc.locality+"/"+tc.target, func(t *testing.T) {
			assert.Equal(t, tc.expected, normalize.Matches(tc.locality, tc.target))
		})
	}
}

func TestMatcher_CustomAliases(t *testing.T) {
	m := normalize.NewMatcher(map[string][]string{
		"Springfield": {"Springfield-on-Sea"},
	})

	assert.True(t, m.Matches("springfield-on-sea", "Springfield"))
	assert.False(t, m.Matches("Shelbyville", "Springfield"))
	// Targets absent from the table still match by normalized equality.
	assert.True(t, m.Matches("SHELBYVILLE", "Shelbyville"))
}
