package scan

import "testing"

func TestDefaultHeuristics_IsNoise(t *testing.T) {
	h := DefaultHeuristics(Tables{})

	if !h.IsNoise("Garden") {
		t.Error("single common word should be noise")
	}
	if !h.IsNoise("Door") {
		t.Error("single common word should be noise")
	}
	if h.IsNoise("Harrowgate") {
		t.Error("unknown single word should not be noise")
	}
	if h.IsNoise("Rosewood Garden") {
		t.Error("multi-word phrase should never be plain noise")
	}
}

func TestDefaultHeuristics_IsCharacterNoise(t *testing.T) {
	h := DefaultHeuristics(Tables{})

	if !h.IsCharacterNoise("Good Morning") {
		t.Error("all-common phrase should be character noise")
	}
	if h.IsCharacterNoise("Mira Vale") {
		t.Error("proper name should not be character noise")
	}
}

func TestDefaultHeuristics_IsGenericRole(t *testing.T) {
	h := DefaultHeuristics(Tables{})

	cases := map[string]bool{
		"Gardener":        true,
		"Archivist":       true,
		"Old Gardener":    true,
		"Mira":            false,
		"Gardener Hollis": false, // role + surname is a named character
		"Mira Vale":       false,
	}
	for name, want := range cases {
		if got := h.IsGenericRole(name); got != want {
			t.Errorf("IsGenericRole(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDefaultHeuristics_IsAliasProne(t *testing.T) {
	h := DefaultHeuristics(Tables{})

	if !h.IsAliasProne("captain") {
		t.Error("captain should be alias-prone by default")
	}
	if h.IsAliasProne("gardener") {
		t.Error("gardener should not be alias-prone by default")
	}
}

func TestDefaultHeuristics_TableExtension(t *testing.T) {
	h := DefaultHeuristics(Tables{
		CommonWords:     []string{"Veranda"},
		RoleWords:       []string{"Quartermaster"},
		AliasProneRoles: []string{"Quartermaster"},
	})

	if !h.IsNoise("Veranda") {
		t.Error("extended common word should be noise")
	}
	if !h.IsGenericRole("Quartermaster") {
		t.Error("extended role word should be generic")
	}
	if !h.IsAliasProne("quartermaster") {
		t.Error("extended alias-prone role should match case-insensitively")
	}
}

func TestEngineAllStopWords(t *testing.T) {
	e := NewEngine()

	if !e.allStopWords([]string{"But", "When"}) {
		t.Error("connective-only phrase should be all stopwords")
	}
	if !e.allStopWords([]string{"Tuesday"}) {
		t.Error("weekday should be a stopword")
	}
	if !e.allStopWords([]string{"I"}) {
		t.Error("pronoun I should be a stopword")
	}
	if e.allStopWords([]string{"Marcus", "Webb"}) {
		t.Error("proper name should not be all stopwords")
	}
	if !e.allStopWords(nil) {
		t.Error("empty word list counts as all stopwords")
	}
}

func TestEngineAllStopWords_Extended(t *testing.T) {
	e := NewEngine(WithTables(Tables{StopWords: []string{"Verily"}}))
	if !e.allStopWords([]string{"Verily"}) {
		t.Error("extended stopword should be honored")
	}
}
