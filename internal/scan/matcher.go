package scan

import (
	"regexp"
	"sort"

	"github.com/quillside/canon/internal/canon"
)

// keySet maps normalized keys per category, used to suppress re-proposing
// entities that are already canon.
type keySet map[canon.Category]map[string]bool

func (k keySet) add(cat canon.Category, key string) {
	if key == "" {
		return
	}
	if k[cat] == nil {
		k[cat] = make(map[string]bool)
	}
	k[cat][key] = true
}

func (k keySet) has(cat canon.Category, key string) bool {
	return k[cat][key]
}

// hasAny reports whether key is registered under any category. Proposed
// entities must never collide with canon regardless of category, so the
// global check is the one the classifier uses for suppression.
func (k keySet) hasAny(key string) bool {
	for _, keys := range k {
		if keys[key] {
			return true
		}
	}
	return false
}

// matchCanon counts word-boundary, case-insensitive literal occurrences of
// every registered entry's display name in the prose. Surface text is
// matched deliberately — not normalized keys — so "Marcus Webb" also counts
// inside "Dr. Marcus Webb". Entries with empty names are skipped rather
// than failing.
//
// The returned mentions are filtered to count > 0 and sorted by count
// descending, ties stable in original entry order. The keySet carries the
// normalized keys of all entries per category for the classifier's
// suppression cross-check.
func matchCanon(prose string, entries []canon.Entry) ([]Mention, keySet) {
	known := make(keySet)
	mentions := []Mention{}

	for _, entry := range entries {
		name := canon.NormalizeName(entry.Name)
		if name == "" {
			continue
		}
		known.add(entry.Category, canon.Key(entry.Name))
		if entry.Category == canon.CategoryCharacter {
			known.add(entry.Category, characterKey(entry.Name))
		}

		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(entry.Name) + `\b`)
		if err != nil {
			continue
		}
		count := len(re.FindAllStringIndex(prose, -1))
		if count > 0 {
			mentions = append(mentions, Mention{
				CanonID:  entry.ID,
				Name:     entry.Name,
				Category: entry.Category,
				Count:    count,
			})
		}
	}

	sort.SliceStable(mentions, func(i, j int) bool {
		return mentions[i].Count > mentions[j].Count
	})
	return mentions, known
}
