package scan

import "strings"

// Heuristics bundles the pluggable predicates the engine delegates to an
// external normalization concern. All inputs are normalized display forms
// (see canon.NormalizeName); all predicates must be pure.
type Heuristics struct {
	// IsNoise reports whether a candidate is a common word mistakenly
	// capitalized at a sentence boundary ("Garden", "Door").
	IsNoise func(name string) bool

	// IsCharacterNoise rejects candidates that survived classification into
	// the character bucket but are clearly common-word false positives.
	IsCharacterNoise func(name string) bool

	// IsGenericRole reports whether a candidate is a role description
	// rather than a proper name ("Gardener", "Old Archivist").
	IsGenericRole func(name string) bool

	// IsAliasProne reports whether a role token is commonly used as a proxy
	// reference for an already-named character (narrator epithets).
	// The token is lowercased.
	IsAliasProne func(roleToken string) bool
}

// Tables extends the built-in heuristic word tables. All entries are
// matched case-insensitively. Membership of these tables is tuning data,
// not logic — see the config package for file-level overrides.
type Tables struct {
	StopWords       []string
	CommonWords     []string
	RoleWords       []string
	AliasProneRoles []string
}

// stopWords lists words that can never form an entity on their own:
// articles, conjunctions, pronouns, calendar words, and the capitalized
// sentence connectives prose is full of. A candidate whose every word is
// in this table is dropped.
var stopWords = wordSet(
	"the", "a", "an",
	"and", "but", "or", "nor", "so", "yet", "for",
	"i", "he", "she", "it", "we", "you", "they",
	"his", "her", "its", "our", "your", "their", "my",
	"this", "that", "these", "those", "there", "here",
	"what", "when", "where", "why", "who", "how", "which",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
	"however", "then", "while", "after", "before", "during",
	"meanwhile", "suddenly", "perhaps", "finally", "later", "soon",
	"still", "once", "now", "again", "almost", "already",
	"though", "although", "because", "instead", "indeed",
	"moreover", "nevertheless", "otherwise", "therefore", "thus",
	"if", "as", "at", "by", "in", "of", "on", "to", "with", "from",
	"into", "onto", "upon", "not", "no", "yes", "one", "two", "all", "some",
	"everyone", "everything", "someone", "something", "nothing", "nobody",
)

// commonWords lists ordinary nouns that routinely open sentences and get
// wrongly extracted as single-word candidates. Deliberately conservative:
// a word here can never be proposed on its own.
var commonWords = wordSet(
	"garden", "door", "house", "room", "window", "wall", "floor", "roof",
	"morning", "evening", "afternoon", "night", "day", "dawn", "dusk",
	"time", "moment", "hour", "year", "week", "month",
	"voice", "silence", "darkness", "light", "shadow", "shadows",
	"rain", "wind", "snow", "fog", "mist", "storm", "sun",
	"eyes", "hands", "face", "heart", "breath",
	"chapter", "prologue", "epilogue",
	"nothing", "everything", "something", "someone",
)

// roleWords lists common nouns that denote a narrative role when
// capitalized ("the Gardener"). Used by the default generic-role predicate.
var roleWords = wordSet(
	"gardener", "archivist", "librarian", "scribe", "steward", "warden",
	"keeper", "gatekeeper", "innkeeper", "lamplighter", "gravedigger",
	"captain", "sergeant", "general", "commander", "admiral", "soldier",
	"guard", "knight", "squire", "hunter", "tracker", "ranger",
	"doctor", "healer", "surgeon", "apothecary", "professor", "teacher",
	"scholar", "student", "apprentice", "master", "mistress",
	"king", "queen", "prince", "princess", "duke", "duchess",
	"lord", "lady", "baron", "baroness", "emperor", "empress",
	"chancellor", "magistrate", "judge", "mayor", "elder", "councilor",
	"priest", "priestess", "monk", "abbot", "bishop", "oracle",
	"seer", "prophet", "witch", "wizard", "sorcerer", "sorceress", "mage",
	"merchant", "trader", "smith", "blacksmith", "baker", "butcher",
	"farmer", "fisherman", "shepherd", "miller", "weaver", "tailor",
	"bard", "minstrel", "herald", "emissary", "ambassador", "courier",
	"messenger", "traveler", "stranger", "wanderer", "beggar", "thief",
	"assassin", "spy", "mother", "father", "widow", "orphan", "narrator",
	"boy", "girl", "man", "woman", "child",
)

// roleModifiers may lead a two-word generic role phrase ("Old Gardener").
var roleModifiers = wordSet(
	"old", "young", "elder", "little", "good", "great",
	"mad", "blind", "silent", "gentle", "grim",
)

// aliasProneRoles are role tokens judged likely to refer back to an
// already-introduced named character rather than a new one. Tuning data:
// extend via Tables / config rather than editing logic.
var aliasProneRoles = wordSet(
	"captain", "doctor", "professor", "sergeant", "commander",
	"master", "mistress", "mother", "father",
	"king", "queen", "stranger", "narrator",
	"boy", "girl", "man", "woman", "child",
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// mergeSet copies base and adds extras lowercased.
func mergeSet(base map[string]bool, extras []string) map[string]bool {
	if len(extras) == 0 {
		return base
	}
	m := make(map[string]bool, len(base)+len(extras))
	for w := range base {
		m[w] = true
	}
	for _, w := range extras {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			m[w] = true
		}
	}
	return m
}

// DefaultHeuristics returns the table-driven default predicates, with the
// built-in tables extended by t.
func DefaultHeuristics(t Tables) Heuristics {
	stops := mergeSet(stopWords, t.StopWords)
	common := mergeSet(commonWords, t.CommonWords)
	roles := mergeSet(roleWords, t.RoleWords)
	aliased := mergeSet(aliasProneRoles, t.AliasProneRoles)

	isNoise := func(name string) bool {
		words := strings.Fields(strings.ToLower(name))
		if len(words) != 1 {
			return false
		}
		return common[words[0]]
	}

	return Heuristics{
		IsNoise: isNoise,
		IsCharacterNoise: func(name string) bool {
			words := strings.Fields(strings.ToLower(name))
			if len(words) == 0 {
				return true
			}
			// Phrases built entirely from stopwords and common words
			// ("Good Morning") are not characters.
			for _, w := range words {
				if !stops[w] && !common[w] {
					return false
				}
			}
			return true
		},
		IsGenericRole: func(name string) bool {
			words := strings.Fields(strings.ToLower(name))
			switch len(words) {
			case 1:
				return roles[words[0]]
			case 2:
				return roleModifiers[words[0]] && roles[words[1]]
			}
			return false
		},
		IsAliasProne: func(roleToken string) bool {
			return aliased[strings.ToLower(roleToken)]
		},
	}
}

// allStopWords reports whether every constituent word is a stopword,
// against the built-in table plus the extras baked into the engine.
func (e *Engine) allStopWords(words []string) bool {
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if !e.stopWords[strings.ToLower(w)] {
			return false
		}
	}
	return true
}
