package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases and trims", "  A@X.com ", "a@x.com"},
		{"already normal", "jane@acme.io", "jane@acme.io"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"not an address", "not-an-email", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Email(tt.input))
		})
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase and trim", "  Jane Doe ", "jane doe"},
		{"punctuation stripped", "O'Brien, Patrick Jr.", "obrien patrick jr"},
		{"diacritics folded", "José García", "jose garcia"},
		{"spaces collapsed", "Jane   Q.   Doe", "jane q doe"},
		{"empty", "", ""},
		{"only punctuation", "***", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.input))
		})
	}
}

func TestName_SamePersonDifferentSpelling(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Name("JOSÉ GARCÍA"), Name("jose garcia"))
	assert.Equal(t, Name("Anne-Marie Smith"), Name("anne marie smith"))
}

func TestDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"full url", "https://www.southernco.com/about", "southernco.com"},
		{"bare host", "SouthernCo.com", "southernco.com"},
		{"www stripped", "www.acme.io", "acme.io"},
		{"port stripped", "acme.io:8080", "acme.io"},
		{"query stripped", "acme.io?utm=x", "acme.io"},
		{"no dot is not a domain", "localhost", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Domain(tt.input))
		})
	}
}

func TestProfileURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"https://linkedin.com/in/janedoe",
		ProfileURL("http://www.LinkedIn.com/in/janedoe/?trk=search"),
	)
	assert.Equal(t, "", ProfileURL(""))
	assert.Equal(t, "", ProfileURL("not a url"))
}

func TestIsPlaceholderName(t *testing.T) {
	t.Parallel()

	placeholders := []string{
		"",
		"   ",
		"SUBSCRIBED",
		"subscribed",
		"United States",
		"https://example.com/profile",
		"www.example.com",
		"N/A",
		"###",
	}
	for _, name := range placeholders {
		assert.True(t, IsPlaceholderName(name), "%q should be a placeholder", name)
	}

	real := []string{"Jane Doe", "José García", "Acme Corp", "SUBSCRIBED MEDIA LLC"}
	for _, name := range real {
		assert.False(t, IsPlaceholderName(name), "%q should not be a placeholder", name)
	}
}
