package slug

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength bounds slugs used as staging name prefixes
const MaxLength = 40

// Fallback is used when a source yields no usable characters
const Fallback = "image"

var (
	invalidChars = regexp.MustCompile("[^a-z0-9-]+")
	hyphenRuns   = regexp.MustCompile("-+")
)

// Generate creates a file-name-safe slug from a string
func Generate(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)
	s = transliterate(s)

	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")

	s = invalidChars.ReplaceAllString(s, "")
	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}

	return s
}

// GenerateWithFallback generates a slug, returning Fallback if the input produces an empty slug
func GenerateWithFallback(s string) string {
	if slug := Generate(s); slug != "" {
		return slug
	}
	return Fallback
}

// transliterate strips diacritics by decomposing to NFD and dropping nonspacing marks
func transliterate(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// FromImageURL builds a slug from the file name of an image URL, without
// query string or extension
func FromImageURL(url string) string {
	if idx := strings.IndexAny(url, "?#"); idx != -1 {
		url = url[:idx]
	}
	return FromFilename(url[strings.LastIndex(url, "/")+1:])
}

// FromFilename builds a slug from an uploaded file name, without extension
func FromFilename(name string) string {
	name = strings.TrimSuffix(name, path.Ext(name))
	return GenerateWithFallback(name)
}
