// Package canon defines the story-bible domain types shared by the scan
// engine, the registry store, and the serving layers.
//
// A canon entry is a fact the author has registered: a character, a place,
// a magic/political system, an artifact, or one of the out-of-extraction
// subtypes (rule, event). Entries are matched against prose by display name
// and deduplicated by normalized key.
package canon

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Category is the kind of entity a canon entry records.
type Category string

const (
	CategoryCharacter Category = "character"
	CategoryLocation  Category = "location"
	CategorySystem    Category = "system"
	CategoryArtifact  Category = "artifact"

	// Rule and event entries live in the story bible but are never proposed
	// by a scan; they have no surface-text signature to extract.
	CategoryRule  Category = "rule"
	CategoryEvent Category = "event"
)

// ParseCategory converts a string to a Category, returning an error for
// unknown values.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "character", "char":
		return CategoryCharacter, nil
	case "location", "place":
		return CategoryLocation, nil
	case "system":
		return CategorySystem, nil
	case "artifact", "item":
		return CategoryArtifact, nil
	case "rule":
		return CategoryRule, nil
	case "event":
		return CategoryEvent, nil
	default:
		return "", fmt.Errorf("unknown category %q (use: character, location, system, artifact, rule, event)", s)
	}
}

// Proposable reports whether a scan may propose new entities of this
// category. Rules and events are author-stated, not extracted.
func (c Category) Proposable() bool {
	switch c {
	case CategoryCharacter, CategoryLocation, CategorySystem, CategoryArtifact:
		return true
	}
	return false
}

// Entry is a registered story-bible fact.
type Entry struct {
	ID        int64     `json:"id"`
	Project   string    `json:"project"`
	Category  Category  `json:"category"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	leadingArticleRE = regexp.MustCompile(`(?i)^(?:the|a|an)\s+`)
	whitespaceRunRE  = regexp.MustCompile(`\s+`)
)

// surroundCutset holds the punctuation trimmed from both ends of a raw
// matched span before article stripping.
const surroundCutset = " \t\r\n\"'“”‘’([{)]}.,;:!?—–-"

// NormalizeName canonicalizes a raw name or matched prose span:
// enclosing quotes/brackets/punctuation trimmed, one leading determiner
// stripped, internal whitespace runs collapsed. Pure function.
func NormalizeName(raw string) string {
	s := strings.Trim(raw, surroundCutset)
	s = leadingArticleRE.ReplaceAllString(s, "")
	s = whitespaceRunRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Key returns the case-folded normalized form used for equality comparisons
// and registry uniqueness. Two names with equal keys are the same entity.
func Key(raw string) string {
	return strings.ToLower(NormalizeName(raw))
}
