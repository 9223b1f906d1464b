// Package scan implements the canon extraction and consistency engine.
//
// One call to Engine.Scan takes freeform chapter prose plus the project's
// registered canon entries and produces, deterministically and without I/O:
//   - mention counts for every registered entry found in the prose, and
//   - proposed new entities (characters, locations, systems, artifacts)
//     the author has not yet canonized.
//
// The pipeline is entirely rule-based: capitalized-span extraction, a
// stoplist-driven noise filter, an ordered cascade of contextual
// classifier rules, and a role-alias dedup pass over the character bucket.
// There is no learned model and no external dependency; an empty or
// partial result is always acceptable output, never an error.
package scan

import (
	"sort"
	"strings"
	"time"

	"github.com/quillside/canon/internal/canon"
)

const (
	// DefaultCandidateCap bounds how many surviving candidates proceed to
	// classification, truncated by descending frequency. Keeps worst-case
	// cost flat on pathological input.
	DefaultCandidateCap = 40

	// DefaultCategoryCap bounds each proposed-entity list.
	DefaultCategoryCap = 10
)

// Mention records how often one registered canon entry occurs in the prose.
type Mention struct {
	CanonID  int64          `json:"canon_id"`
	Name     string         `json:"name"`
	Category canon.Category `json:"category"`
	Count    int            `json:"count"`
}

// NewEntities holds the proposed (unregistered) entity names per category,
// deduplicated, role-merged, and capped.
type NewEntities struct {
	Characters []string `json:"characters"`
	Locations  []string `json:"locations"`
	Systems    []string `json:"systems"`
	Artifacts  []string `json:"artifacts"`
}

// Result is the engine's sole output: the complete outcome of one scan.
type Result struct {
	ScannedAt        time.Time   `json:"scanned_at"`
	ExistingMentions []Mention   `json:"existing_mentions"`
	NewEntities      NewEntities `json:"new_entities"`
}

// ContextFlags records which contextual probes fired for a candidate.
// Scan-local only; never persisted.
type ContextFlags struct {
	NearPreposition bool
	ArtifactContext bool
	SystemContext   bool
}

// candidate is one unregistered capitalized phrase observed during a scan.
type candidate struct {
	Raw   string // exact span as first matched in prose
	Norm  string // normalized display form
	Key   string // case-folded normalized key
	Words []string
	Count int // recurrences of the normalized form in this scan
	Seq   int // first-seen order, for stable output
	Flags ContextFlags
}

// Engine runs scans. Safe for concurrent use: it holds only immutable
// configuration, and Scan allocates nothing shared.
type Engine struct {
	heur         Heuristics
	stopWords    map[string]bool
	rules        []rule
	candidateCap int
	categoryCap  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithTables extends the built-in heuristic word tables (and rebuilds the
// default predicates over them).
func WithTables(t Tables) Option {
	return func(e *Engine) {
		e.heur = DefaultHeuristics(t)
		e.stopWords = mergeSet(stopWords, t.StopWords)
	}
}

// WithHeuristics replaces the pluggable predicates wholesale. Nil fields
// disable the corresponding check.
func WithHeuristics(h Heuristics) Option {
	return func(e *Engine) { e.heur = h }
}

// WithCandidateCap overrides the classification-input cap.
func WithCandidateCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.candidateCap = n
		}
	}
}

// WithCategoryCap overrides the per-category output cap.
func WithCategoryCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.categoryCap = n
		}
	}
}

// NewEngine creates a scan engine with the default rule cascade and
// table-driven heuristics.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		heur:         DefaultHeuristics(Tables{}),
		stopWords:    stopWords,
		rules:        classifierRules(),
		candidateCap: DefaultCandidateCap,
		categoryCap:  DefaultCategoryCap,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scan analyzes prose against the registered canon entries. Pure and total:
// it performs no I/O, returns no error, and degrades to an empty result on
// degenerate input. Entries with empty names are skipped.
func (e *Engine) Scan(prose string, entries []canon.Entry) Result {
	mentions, known := matchCanon(prose, entries)
	candidates := e.gatherCandidates(prose)
	buckets := e.classify(prose, candidates, known)
	buckets[canon.CategoryCharacter] = e.dedupeRoles(buckets[canon.CategoryCharacter])

	return Result{
		ScannedAt:        time.Now().UTC(),
		ExistingMentions: mentions,
		NewEntities:      e.assemble(buckets),
	}
}

// gatherCandidates extracts, normalizes, tallies, and noise-filters the
// candidate list, then truncates it to the candidate cap by descending
// frequency (first-seen order breaking ties).
func (e *Engine) gatherCandidates(prose string) []*candidate {
	byNorm := make(map[string]*candidate)
	var order []*candidate

	for _, raw := range extractSpans(prose) {
		norm := canon.NormalizeName(raw)
		if norm == "" {
			continue
		}
		// Case-sensitive exact tally across the whole scan.
		c, ok := byNorm[norm]
		if !ok {
			c = &candidate{
				Raw:   raw,
				Norm:  norm,
				Key:   strings.ToLower(norm),
				Words: strings.Fields(norm),
				Seq:   len(order),
			}
			byNorm[norm] = c
			order = append(order, c)
		}
		c.Count++
	}

	kept := make([]*candidate, 0, len(order))
	for _, c := range order {
		if e.allStopWords(c.Words) {
			continue
		}
		if e.heur.IsNoise != nil && e.heur.IsNoise(c.Norm) {
			continue
		}
		kept = append(kept, c)
	}

	if len(kept) > e.candidateCap {
		sort.SliceStable(kept, func(i, j int) bool { return kept[i].Count > kept[j].Count })
		kept = kept[:e.candidateCap]
		sort.Slice(kept, func(i, j int) bool { return kept[i].Seq < kept[j].Seq })
	}
	return kept
}

// assemble merges the classified buckets into the output lists: dedup by
// normalized key, first-seen order, truncated to the category cap.
func (e *Engine) assemble(buckets map[canon.Category][]*candidate) NewEntities {
	pick := func(cat canon.Category) []string {
		out := []string{}
		seen := make(map[string]bool)
		for _, c := range buckets[cat] {
			key := bucketKey(cat, c.Norm)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c.Norm)
			if len(out) == e.categoryCap {
				break
			}
		}
		return out
	}

	return NewEntities{
		Characters: pick(canon.CategoryCharacter),
		Locations:  pick(canon.CategoryLocation),
		Systems:    pick(canon.CategorySystem),
		Artifacts:  pick(canon.CategoryArtifact),
	}
}

// bucketKey is the dedup/suppression key for a candidate in a category.
// Characters additionally shed honorifics so "Dr. Marcus Webb" and canon
// "Marcus Webb" collide.
func bucketKey(cat canon.Category, name string) string {
	if cat == canon.CategoryCharacter {
		return characterKey(name)
	}
	return canon.Key(name)
}

// honorifics are stripped from the front of character names when computing
// comparison keys.
var honorifics = wordSet(
	"dr", "mr", "mrs", "ms", "miss", "sir", "dame",
	"lady", "lord", "professor", "doctor", "captain",
)

func characterKey(name string) string {
	key := canon.Key(name)
	words := strings.Fields(key)
	for len(words) > 1 && honorifics[strings.TrimSuffix(words[0], ".")] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}
