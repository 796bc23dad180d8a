package cloak

import (
	"strings"
	"testing"

	"github.com/raaihank/llm-cloak/internal/entity"
	"go.uber.org/zap"
)

// stubDetector returns a fixed set of entities regardless of input.
type stubDetector struct {
	entities []entity.Entity
}

func (d *stubDetector) Detect(text string) entity.Collection {
	c := entity.NewCollection()
	for _, e := range d.entities {
		if strings.Contains(text, e.Value) {
			c.Add(e)
		}
	}
	return c
}

func newTestShield(t *testing.T, entities ...entity.Entity) *Shield {
	t.Helper()
	s, err := New(DefaultConfig(), &stubDetector{entities: entities}, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

// TestNew tests construction validation
func TestNew(t *testing.T) {
	detector := &stubDetector{}

	t.Run("EmptyStartDelimiter", func(t *testing.T) {
		_, err := New(Config{StartDelimiter: "", EndDelimiter: ">"}, detector, nil)
		if err != ErrEmptyStartDelimiter {
			t.Errorf("err = %v, want ErrEmptyStartDelimiter", err)
		}
	})

	t.Run("EmptyEndDelimiter", func(t *testing.T) {
		_, err := New(Config{StartDelimiter: "<", EndDelimiter: ""}, detector, nil)
		if err != ErrEmptyEndDelimiter {
			t.Errorf("err = %v, want ErrEmptyEndDelimiter", err)
		}
	})

	t.Run("NilDetector", func(t *testing.T) {
		_, err := New(DefaultConfig(), nil, nil)
		if err != ErrNilDetector {
			t.Errorf("err = %v, want ErrNilDetector", err)
		}
	})

	t.Run("CustomDelimiters", func(t *testing.T) {
		s, err := New(Config{StartDelimiter: "[[", EndDelimiter: "]]"}, detector, nil)
		if err != nil || s == nil {
			t.Fatalf("New = %v, %v", s, err)
		}
	})
}

// TestCloak tests placeholder substitution
func TestCloak(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		s := newTestShield(t,
			entity.Entity{Type: entity.TypePerson, Value: "Jane Kowalski"},
			entity.Entity{Type: entity.TypeEmail, Value: "jane@example.com"},
		)
		original := "Jane Kowalski can be reached at jane@example.com"
		cloaked, m := s.Cloak(original)

		if strings.Contains(cloaked, "Jane Kowalski") || strings.Contains(cloaked, "jane@example.com") {
			t.Errorf("cloaked text still holds originals: %q", cloaked)
		}
		if m.Len() != 2 {
			t.Fatalf("map Len() = %d, want 2", m.Len())
		}

		restored, err := s.Uncloak(cloaked, m)
		if err != nil {
			t.Fatalf("Uncloak failed: %v", err)
		}
		if restored != original {
			t.Errorf("round trip = %q, want %q", restored, original)
		}
	})

	t.Run("DeterministicCounters", func(t *testing.T) {
		s := newTestShield(t,
			entity.Entity{Type: entity.TypePerson, Value: "Bob"},
			entity.Entity{Type: entity.TypePerson, Value: "Alice"},
		)
		cloaked, m := s.Cloak("Alice emailed Bob")
		if !strings.Contains(cloaked, "<PERSON_0>") || !strings.Contains(cloaked, "<PERSON_1>") {
			t.Fatalf("cloaked = %q", cloaked)
		}
		// Counters follow first occurrence in the text, not detector order.
		if v, _ := m.Get("<PERSON_0>"); v != "Alice" {
			t.Errorf("<PERSON_0> = %q, want Alice", v)
		}
		if v, _ := m.Get("<PERSON_1>"); v != "Bob" {
			t.Errorf("<PERSON_1> = %q, want Bob", v)
		}
	})

	t.Run("RepeatedValueSharesPlaceholder", func(t *testing.T) {
		s := newTestShield(t, entity.Entity{Type: entity.TypePerson, Value: "Bob"})
		cloaked, m := s.Cloak("Bob talked to Bob about Bob")
		if m.Len() != 1 {
			t.Errorf("map Len() = %d, want 1", m.Len())
		}
		if strings.Count(cloaked, "<PERSON_0>") != 3 {
			t.Errorf("cloaked = %q, want three shared placeholders", cloaked)
		}
	})

	t.Run("SubstringValuesDoNotCorrupt", func(t *testing.T) {
		s := newTestShield(t,
			entity.Entity{Type: entity.TypeOrganisation, Value: "example"},
			entity.Entity{Type: entity.TypeURL, Value: "https://example.com"},
		)
		cloaked, m := s.Cloak("see https://example.com and example")
		restored, err := s.Uncloak(cloaked, m)
		if err != nil {
			t.Fatalf("Uncloak failed: %v", err)
		}
		if restored != "see https://example.com and example" {
			t.Errorf("restored = %q", restored)
		}
	})

	t.Run("NothingDetected", func(t *testing.T) {
		s := newTestShield(t)
		cloaked, m := s.Cloak("plain text")
		if cloaked != "plain text" || m.Len() != 0 {
			t.Errorf("Cloak = %q, map len %d", cloaked, m.Len())
		}
	})
}

// TestCloakAll tests shared placeholder assignment across messages
func TestCloakAll(t *testing.T) {
	s := newTestShield(t, entity.Entity{Type: entity.TypePerson, Value: "Bob"})
	cloaked, m := s.CloakAll([]string{"Bob wrote this", "reply to Bob"})
	if m.Len() != 1 {
		t.Fatalf("map Len() = %d, want 1", m.Len())
	}
	if cloaked[0] != "<PERSON_0> wrote this" || cloaked[1] != "reply to <PERSON_0>" {
		t.Errorf("cloaked = %v", cloaked)
	}
}

// TestLastMapFallback tests uncloaking without an explicit map
func TestLastMapFallback(t *testing.T) {
	s := newTestShield(t, entity.Entity{Type: entity.TypePerson, Value: "Bob"})

	t.Run("NoPriorCloak", func(t *testing.T) {
		fresh := newTestShield(t)
		if _, err := fresh.Uncloak("<PERSON_0>", nil); err != ErrNoEntityMap {
			t.Errorf("err = %v, want ErrNoEntityMap", err)
		}
	})

	t.Run("FallsBackToRetainedMap", func(t *testing.T) {
		cloaked, _ := s.Cloak("ping Bob")
		restored, err := s.Uncloak(cloaked, nil)
		if err != nil {
			t.Fatalf("Uncloak failed: %v", err)
		}
		if restored != "ping Bob" {
			t.Errorf("restored = %q", restored)
		}
	})
}
