package scan

import (
	"strings"
	"testing"
)

func cand(norm string, count int) *candidate {
	return &candidate{
		Raw:   norm,
		Norm:  norm,
		Key:   strings.ToLower(norm),
		Words: strings.Fields(norm),
		Count: count,
	}
}

func TestMatchArtifact_SuffixHint(t *testing.T) {
	if !matchArtifact(cand("Alderman Codex", 1), "") {
		t.Error("Codex suffix should classify as artifact")
	}
	if matchArtifact(cand("Alderman Square", 1), "") {
		t.Error("no artifact signal expected")
	}
}

func TestMatchArtifact_ContextualCue(t *testing.T) {
	prose := "On the shelf a relic known as the Emberglass sat untouched."
	c := cand("Emberglass", 1)
	if !matchArtifact(c, prose) {
		t.Fatal("cue + apposition should classify as artifact")
	}
	if !c.Flags.ArtifactContext {
		t.Error("artifact context flag should be set")
	}
}

func TestMatchSystem_SuffixAndCue(t *testing.T) {
	if !matchSystem(cand("Veiled Doctrine", 1), "") {
		t.Error("Doctrine suffix should classify as system")
	}
	prose := "The city ran on a protocol called Emberline since the flood."
	if !matchSystem(cand("Emberline", 1), prose) {
		t.Error("protocol cue should classify as system")
	}
}

func TestMatchLocation_Preposition(t *testing.T) {
	prose := "She walked into Harrowgate Library before dawn."
	c := cand("Harrowgate Library", 1)
	if !matchLocation(c, prose) {
		t.Fatal("locative preposition should classify as location")
	}
}

func TestMatchLocation_SuffixHint(t *testing.T) {
	if !matchLocation(cand("Blackpine Forest", 1), "") {
		t.Error("Forest suffix should classify as location")
	}
}

func TestMatchLocation_ContainsOf(t *testing.T) {
	if !matchLocation(cand("Bank of Harrowgate", 1), "") {
		t.Error("genitive phrase should classify as location")
	}
}

func TestRuleCascade_ArtifactBeatsLocation(t *testing.T) {
	// A genitive artifact name satisfies the weak "contains of" location
	// rule too; the cascade order must let the artifact suffix win.
	e := NewEngine()
	prose := "He opened the Codex of Winters and read aloud. The Codex of Winters glowed."

	result := e.Scan(prose, nil)
	var inArtifacts bool
	for _, a := range result.NewEntities.Artifacts {
		if a == "Codex of Winters" {
			inArtifacts = true
		}
	}
	if !inArtifacts {
		t.Errorf("artifacts = %v", result.NewEntities.Artifacts)
	}
	for _, loc := range result.NewEntities.Locations {
		if loc == "Codex of Winters" {
			t.Error("artifact leaked into locations")
		}
	}
}

func TestClassify_SingleWordRetentionRule(t *testing.T) {
	e := NewEngine()

	// Single word, one occurrence, character default: dropped.
	buckets := e.classify("", []*candidate{cand("Harlan", 1)}, make(keySet))
	if len(buckets) != 0 {
		t.Errorf("lone single-word character should be dropped, got %v", buckets)
	}

	// Recurring single word: kept.
	buckets = e.classify("", []*candidate{cand("Harlan", 3)}, make(keySet))
	if len(buckets["character"]) != 1 {
		t.Errorf("recurring single-word character should be kept, got %v", buckets)
	}

	// Single occurrence but non-character: kept.
	buckets = e.classify("", []*candidate{cand("Blackpine Forest", 1)}, make(keySet))
	if len(buckets["location"]) != 1 {
		t.Errorf("single-occurrence location should be kept, got %v", buckets)
	}
}

func TestClassify_CanonSuppression(t *testing.T) {
	e := NewEngine()
	known := make(keySet)
	known.add("location", "blackpine forest")

	buckets := e.classify("", []*candidate{cand("Blackpine Forest", 2)}, known)
	if len(buckets["location"]) != 0 {
		t.Errorf("canon location must not be re-proposed, got %v", buckets)
	}

	// Suppression is global: the same key registered under a different
	// category still blocks the proposal.
	known2 := make(keySet)
	known2.add("artifact", "blackpine forest")
	buckets = e.classify("", []*candidate{cand("Blackpine Forest", 2)}, known2)
	if len(buckets["location"]) != 0 {
		t.Errorf("cross-category canon key must suppress, got %v", buckets)
	}
}
