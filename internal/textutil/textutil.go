// Package textutil provides small text helpers: bounded excerpts for
// diagnostic messages and human-readable labels for lifecycle states.
package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// Excerpt returns at most max runes of s, trimmed of surrounding whitespace.
// Interior newlines are collapsed so the result stays a single line.
func Excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// Label converts a machine status value like "processing" into a
// human-readable label like "Processing". Underscores become spaces.
func Label(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return ""
	}
	return titleCaser.String(value)
}
