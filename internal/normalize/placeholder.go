package normalize

import "strings"

// placeholderNames lists boilerplate strings that import jobs have been seen
// writing into person/company name columns. Matched case-insensitively after
// trimming. These rows do not denote a real identity: they are filtered out
// of dedupe grouping and their dependents are unlinked instead of merged.
var placeholderNames = map[string]bool{
	"subscribed":    true,
	"unsubscribed":  true,
	"united states": true,
	"n/a":           true,
	"na":            true,
	"none":          true,
	"null":          true,
	"undefined":     true,
	"unknown":       true,
	"test":          true,
	"-":             true,
	"--":            true,
}

// IsPlaceholderName reports whether a raw name is degenerate: empty, a URL
// pasted into the name column, a bare email address, or known boilerplate.
func IsPlaceholderName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return true
	}

	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "www.") {
		return true
	}
	if placeholderNames[lower] {
		return true
	}

	// Names that normalize to nothing (pure punctuation, emoji, etc.)
	// cannot be grouped.
	return Name(name) == ""
}
