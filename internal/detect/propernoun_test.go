package detect

import (
	"testing"

	"github.com/raaihank/llm-cloak/internal/entity"
)

// TestClassification tests the fixed classification order and value cleanup
func TestClassification(t *testing.T) {
	e := newTestEngine(t)

	t.Run("KnownOrganisation", func(t *testing.T) {
		c := e.Detect("I heard Google is hiring")
		assertHas(t, c, entity.TypeOrganisation, "Google")
	})

	t.Run("OrganisationBySuffix", func(t *testing.T) {
		c := e.Detect("my employer is Initech Corp these days")
		assertHas(t, c, entity.TypeOrganisation, "Initech Corp")
	})

	t.Run("KnownPlace", func(t *testing.T) {
		c := e.Detect("we moved to London last spring")
		assertHas(t, c, entity.TypePlace, "London")
	})

	t.Run("PlaceWithTrailingPunct", func(t *testing.T) {
		c := e.Detect("we moved to London.")
		assertHas(t, c, entity.TypePlace, "London")
	})

	t.Run("PlaceBySuffix", func(t *testing.T) {
		c := e.Detect("the office on Baker Street is closed")
		assertHas(t, c, entity.TypePlace, "Baker Street")
	})

	t.Run("Person", func(t *testing.T) {
		c := e.Detect("please ask Jane Kowalski about it")
		assertHas(t, c, entity.TypePerson, "Jane Kowalski")
	})

	t.Run("PersonWithHonorific", func(t *testing.T) {
		c := e.Detect("an appointment with Dr Kowalski tomorrow")
		assertHas(t, c, entity.TypePerson, "Kowalski")
	})

	t.Run("HonorificWithPeriod", func(t *testing.T) {
		c := e.Detect("an appointment with Dr. Kowalski tomorrow")
		assertHas(t, c, entity.TypePerson, "Kowalski")
		if c.Has(entity.Entity{Type: entity.TypePerson, Value: "Dr"}) {
			t.Errorf("lone honorific classified as a person: %v", c.Values())
		}
	})

	t.Run("Concept", func(t *testing.T) {
		c := e.Detect("the launch of OVERDRIVE is postponed")
		assertHas(t, c, entity.TypeConcept, "OVERDRIVE")
	})

	t.Run("ConceptNotPerson", func(t *testing.T) {
		c := e.Detect("the launch of OVERDRIVE is postponed")
		if c.Has(entity.Entity{Type: entity.TypePerson, Value: "OVERDRIVE"}) {
			t.Error("acronym classified as a person")
		}
	})

	t.Run("OrganisationBeatsPlace", func(t *testing.T) {
		// Amazon is in both corpora as organisation and not as a place;
		// the fixed order must pick organisation for suffix phrases too.
		c := e.Detect("the Berlin Group meets monthly")
		assertHas(t, c, entity.TypeOrganisation, "Berlin Group")
	})

	t.Run("CommonWordsBreakCandidates", func(t *testing.T) {
		c := e.Detect("Hello Jane Kowalski")
		assertHas(t, c, entity.TypePerson, "Jane Kowalski")
		if c.Has(entity.Entity{Type: entity.TypePerson, Value: "Hello Jane Kowalski"}) {
			t.Error("greeting absorbed into the person value")
		}
	})
}

// TestCollectProperNouns tests candidate accretion directly
func TestCollectProperNouns(t *testing.T) {
	e := newTestEngine(t)

	t.Run("LongestFirst", func(t *testing.T) {
		candidates := e.collectProperNouns("Jane Kowalski met Bob")
		if len(candidates) < 2 {
			t.Fatalf("candidates = %v", candidates)
		}
		if candidates[0] != "Jane Kowalski" {
			t.Errorf("first candidate = %q, want longest", candidates[0])
		}
	})

	t.Run("LowercaseBreaks", func(t *testing.T) {
		candidates := e.collectProperNouns("Jane went to Warsaw")
		for _, c := range candidates {
			if c == "Jane went" || c == "Jane went to Warsaw" {
				t.Errorf("lowercase word absorbed into candidate %q", c)
			}
		}
	})

	t.Run("DigitsQualify", func(t *testing.T) {
		candidates := e.collectProperNouns("Flight 370 departed")
		found := false
		for _, c := range candidates {
			if c == "Flight 370" {
				found = true
			}
		}
		if !found {
			t.Errorf("candidates = %v, want one containing %q", candidates, "Flight 370")
		}
	})
}

// TestStripHonorific tests honorific removal from person values
func TestStripHonorific(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Dr Kowalski", "Kowalski"},
		{"Dr. Kowalski", "Kowalski"},
		{"Mrs Jane Kowalski", "Jane Kowalski"},
		{"Kowalski", "Kowalski"},
		{"Dr", "Dr"}, // lone honorific is left for the classifier to reject
	}
	for _, c := range cases {
		if got := stripHonorific(c.in); got != c.want {
			t.Errorf("stripHonorific(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
