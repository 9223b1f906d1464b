package scan

import "testing"

func TestDedupeRoles_BareRoleKept(t *testing.T) {
	e := NewEngine()
	out := e.dedupeRoles([]*candidate{cand("Gardener", 6)})

	if len(out) != 1 || out[0].Norm != "Gardener" {
		t.Fatalf("expected lone Gardener to survive, got %+v", out)
	}
}

func TestDedupeRoles_SuppressedByNamedHolder(t *testing.T) {
	e := NewEngine()
	out := e.dedupeRoles([]*candidate{
		cand("Gardener", 6),
		cand("Gardener Hollis", 2),
	})

	if len(out) != 1 || out[0].Norm != "Gardener Hollis" {
		t.Fatalf("bare role should collapse into named holder, got %+v", out)
	}
}

func TestDedupeRoles_AliasProneDroppedWhenNamedExists(t *testing.T) {
	e := NewEngine()
	out := e.dedupeRoles([]*candidate{
		cand("Mira Vale", 3),
		cand("Captain", 4),
	})

	if len(out) != 1 || out[0].Norm != "Mira Vale" {
		t.Fatalf("alias-prone role should be dropped beside a named character, got %+v", out)
	}
}

func TestDedupeRoles_AliasProneKeptWhenAlone(t *testing.T) {
	e := NewEngine()
	out := e.dedupeRoles([]*candidate{cand("Captain", 4)})

	if len(out) != 1 || out[0].Norm != "Captain" {
		t.Fatalf("alias-prone role with no named characters survives, got %+v", out)
	}
}

func TestDedupeRoles_NonAliasProneKeptBesideNamed(t *testing.T) {
	e := NewEngine()
	out := e.dedupeRoles([]*candidate{
		cand("Mira Vale", 3),
		cand("Gardener", 2),
	})

	if len(out) != 2 {
		t.Fatalf("gardener is not alias-prone and should survive, got %+v", out)
	}
}

func TestDedupeRoles_OneRepresentativePerToken_LongestWins(t *testing.T) {
	e := NewEngine()
	out := e.dedupeRoles([]*candidate{
		cand("Gardener", 3),
		cand("Old Gardener", 1),
	})

	if len(out) != 1 {
		t.Fatalf("expected one representative per role token, got %+v", out)
	}
	if out[0].Norm != "Old Gardener" {
		t.Errorf("longest surface form should win, got %q", out[0].Norm)
	}
}

func TestDedupeRoles_NamedCandidatesUntouched(t *testing.T) {
	e := NewEngine()
	out := e.dedupeRoles([]*candidate{
		cand("Mira Vale", 1),
		cand("Tomas Rake", 1),
	})

	if len(out) != 2 {
		t.Fatalf("named candidates must pass through, got %+v", out)
	}
}
