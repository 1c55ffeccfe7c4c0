package cipher

import (
	"slices"
	"strings"
	"testing"
)

func TestPetname_Deterministic(t *testing.T) {
	first := Petname(generator)
	for i := 0; i < 100; i++ {
		if got := Petname(generator); got != first {
			t.Fatalf("non-deterministic on iteration %d: %q vs %q", i, got, first)
		}
	}
}

func TestPetname_Format(t *testing.T) {
	name := Petname(generator)
	adj, noun, ok := strings.Cut(name, "-")
	if !ok || adj == "" || noun == "" {
		t.Fatalf("expected adjective-noun, got %q", name)
	}
	if !slices.Contains(petAdjectives, adj) {
		t.Errorf("%q is not a known adjective", adj)
	}
	if !slices.Contains(petNouns, noun) {
		t.Errorf("%q is not a known noun", noun)
	}
}

func TestPetname_SpellingIndependent(t *testing.T) {
	want := Petname(generator)
	for _, spelling := range []string{"0x" + generator, "04" + generator, strings.ToUpper(generator)} {
		if got := Petname(spelling); got != want {
			t.Errorf("Petname(%s) = %q, want %q", spelling, got, want)
		}
	}
}

func TestPetname_NotAKey(t *testing.T) {
	name := Petname("not a key")
	if !strings.Contains(name, "-") {
		t.Errorf("Petname of arbitrary text = %q", name)
	}
}

func TestPetname_WordTables(t *testing.T) {
	for name, words := range map[string][]string{"adjectives": petAdjectives, "nouns": petNouns} {
		seen := make(map[string]bool, len(words))
		for _, w := range words {
			if seen[w] {
				t.Errorf("%s: duplicate %q", name, w)
			}
			seen[w] = true
		}
	}
}
