// Package normalize standardizes identity fields (emails, names, domains)
// for duplicate matching.
package normalize

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9 ]+`)

	// diacriticFolder strips combining marks so "José" and "Jose" group together.
	diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Email lowercases and trims an email address. Returns "" for anything that
// does not look like an address at all.
func Email(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return ""
	}
	return email
}

// Name standardizes a person name for matching:
//  1. Trim and lowercase
//  2. Fold diacritics
//  3. Strip everything outside [a-z0-9 ]
//  4. Collapse runs of whitespace
func Name(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	if folded, _, err := transform.String(diacriticFolder, name); err == nil {
		name = folded
	}

	name = nonAlnumRe.ReplaceAllString(name, " ")
	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// Domain reduces a website URL or bare host to a matchable domain:
// lowercase, scheme and path stripped, leading "www." removed.
func Domain(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}

	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			raw = u.Host
		}
	}
	if idx := strings.IndexAny(raw, "/?#"); idx >= 0 {
		raw = raw[:idx]
	}
	if idx := strings.Index(raw, ":"); idx >= 0 {
		raw = raw[:idx]
	}
	raw = strings.TrimPrefix(raw, "www.")
	if !strings.Contains(raw, ".") {
		return ""
	}
	return raw
}

// ProfileURL canonicalizes a professional-profile URL for use as a stable
// external identifier: lowercase host, https scheme, trailing slash stripped.
func ProfileURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Scheme = "https"
	u.Host = strings.ToLower(strings.TrimPrefix(u.Host, "www."))
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
