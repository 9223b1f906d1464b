package scan

import (
	"regexp"
	"strings"

	"github.com/quillside/canon/internal/canon"
)

// The classifier is an ordered cascade of independent rules, first match
// wins. Artifact and system cues are explicit nominal apposition ("a relic
// known as the Alderman Codex") and therefore the most specific, so they
// run before the weaker location rules — otherwise a name like "Alderman
// Codex of Vairn" would land in locations just for containing "of".
// Character is the catch-all: it is the hardest category to positively
// confirm from surface cues alone.
type rule struct {
	category canon.Category
	match    func(c *candidate, prose string) bool
}

func classifierRules() []rule {
	return []rule{
		{canon.CategoryArtifact, matchArtifact},
		{canon.CategorySystem, matchSystem},
		{canon.CategoryLocation, matchLocation},
	}
}

// classify runs the rule cascade over every surviving candidate and
// buckets the results, applying the single-word retention rule, the
// character noise predicate, and canon suppression. Suppression is
// global across categories: a name already canon as an artifact must not
// resurface as a proposed location just because the classifier read the
// surrounding prose differently.
func (e *Engine) classify(prose string, candidates []*candidate, known keySet) map[canon.Category][]*candidate {
	buckets := make(map[canon.Category][]*candidate)

	for _, c := range candidates {
		category := canon.CategoryCharacter
		for _, r := range e.rules {
			if r.match(c, prose) {
				category = r.category
				break
			}
		}

		if category == canon.CategoryCharacter {
			// A single-word candidate only earns a character slot by
			// recurring; one stray capitalized word is sentence noise.
			if len(c.Words) == 1 && c.Count < 2 {
				continue
			}
			if e.heur.IsCharacterNoise != nil && e.heur.IsCharacterNoise(c.Norm) {
				continue
			}
		}

		if known.hasAny(bucketKey(category, c.Norm)) {
			continue
		}
		buckets[category] = append(buckets[category], c)
	}
	return buckets
}

const (
	artifactCues = `artifact|relic|object|item|device|book|weapon|sword|amulet|key|codex`
	systemCues   = `system|protocol|order|law|magic|code|doctrine|network`
	locativeCues = `in|at|to|from|into|inside|under|beneath|near|across|throughout|within`
)

var (
	artifactSuffixes = wordSet(
		"codex", "amulet", "sword", "key", "crown", "orb",
		"tome", "relic", "artifact", "device", "book", "engine",
	)
	systemSuffixes = wordSet(
		"system", "protocol", "order", "law", "magic",
		"code", "doctrine", "network", "council",
	)
	locationSuffixes = wordSet(
		"city", "town", "village", "forest", "garden", "library",
		"castle", "hall", "street", "river", "mountain", "kingdom",
		"realm", "world", "planet", "station", "district", "valley",
		"island", "province", "country", "harbor", "bay", "temple",
	)
)

func matchArtifact(c *candidate, prose string) bool {
	if artifactSuffixes[lastWord(c)] {
		return true
	}
	if cuePrecedes(prose, artifactCues, c.Norm) {
		c.Flags.ArtifactContext = true
		return true
	}
	return false
}

func matchSystem(c *candidate, prose string) bool {
	if systemSuffixes[lastWord(c)] {
		return true
	}
	if cuePrecedes(prose, systemCues, c.Norm) {
		c.Flags.SystemContext = true
		return true
	}
	return false
}

func matchLocation(c *candidate, prose string) bool {
	if locationSuffixes[lastWord(c)] {
		return true
	}
	for _, w := range c.Words {
		if w == "of" {
			return true
		}
	}
	if probe(prose, `(?i)\b(?:`+locativeCues+`)\s+(?:the\s+)?`+regexp.QuoteMeta(c.Norm)+`\b`) {
		c.Flags.NearPreposition = true
		return true
	}
	return false
}

// cuePrecedes reports whether a cue noun appears directly before the
// candidate in the prose, optionally bridged by "called"/"named"/"known as"
// and a leading "the".
func cuePrecedes(prose, cues, name string) bool {
	return probe(prose, `(?i)\b(?:`+cues+`)\s+(?:(?:called|named|known\s+as)\s+)?(?:the\s+)?`+regexp.QuoteMeta(name)+`\b`)
}

// probe compiles and runs one contextual regex. Candidate text is always
// quoted, so compilation cannot realistically fail; if it somehow does, the
// probe degrades to "no match" rather than failing the scan.
func probe(prose, pattern string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(prose)
}

func lastWord(c *candidate) string {
	if len(c.Words) == 0 {
		return ""
	}
	return strings.ToLower(c.Words[len(c.Words)-1])
}
