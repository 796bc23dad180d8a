package cloak

import (
	"slices"
	"strings"
	"testing"

	"github.com/raaihank/llm-cloak/internal/entity"
)

func testMap() *entity.Map {
	m := entity.NewMap()
	m.Set("<PERSON_0>", "Jane Kowalski")
	m.Set("<EMAIL_0>", "jane@example.com")
	return m
}

func feedAll(t *testing.T, s *Shield, m *entity.Map, fragments []string) string {
	t.Helper()
	rec, err := s.NewReconstructor(m)
	if err != nil {
		t.Fatalf("NewReconstructor failed: %v", err)
	}
	var out strings.Builder
	for _, f := range fragments {
		out.WriteString(rec.Feed(f))
	}
	out.WriteString(rec.Flush())
	return out.String()
}

// TestReconstructor tests placeholder reassembly across fragment boundaries
func TestReconstructor(t *testing.T) {
	s := newTestShield(t)

	t.Run("SplitPlaceholder", func(t *testing.T) {
		got := feedAll(t, s, testMap(), []string{"Hello ", "<PER", "SON_0", ">", " bye"})
		if got != "Hello Jane Kowalski bye" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("OneRunePerFragment", func(t *testing.T) {
		stream := "mail <EMAIL_0> about <PERSON_0> today"
		var fragments []string
		for _, r := range stream {
			fragments = append(fragments, string(r))
		}
		got := feedAll(t, s, testMap(), fragments)
		if got != "mail jane@example.com about Jane Kowalski today" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("WholeStreamInOneFragment", func(t *testing.T) {
		got := feedAll(t, s, testMap(), []string{"hi <PERSON_0>!"})
		if got != "hi Jane Kowalski!" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("UnknownTokenPassesThrough", func(t *testing.T) {
		got := feedAll(t, s, testMap(), []string{"a <b> c <URL_3> d"})
		if got != "a <b> c <URL_3> d" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("TruncatedPlaceholderFlushedVerbatim", func(t *testing.T) {
		got := feedAll(t, s, testMap(), []string{"foo ", "<UNKNOWN"})
		if got != "foo <UNKNOWN" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("EmptyStream", func(t *testing.T) {
		if got := feedAll(t, s, testMap(), nil); got != "" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("TextBeforeDelimiterEmittedEagerly", func(t *testing.T) {
		rec, err := s.NewReconstructor(testMap())
		if err != nil {
			t.Fatalf("NewReconstructor failed: %v", err)
		}
		if out := rec.Feed("plenty of text then <PERS"); out != "plenty of text then " {
			t.Errorf("Feed = %q", out)
		}
		if rec.Buffered() != len("<PERS") {
			t.Errorf("Buffered() = %d, want %d", rec.Buffered(), len("<PERS"))
		}
	})

	t.Run("BufferNeverHoldsResolvedText", func(t *testing.T) {
		rec, err := s.NewReconstructor(testMap())
		if err != nil {
			t.Fatalf("NewReconstructor failed: %v", err)
		}
		rec.Feed("aaaa <PERSON_0> bbbb ")
		if rec.Buffered() != 0 {
			t.Errorf("Buffered() = %d after fully-resolvable input", rec.Buffered())
		}
	})
}

// TestReconstructorCustomDelimiters tests resolution when both delimiters
// are the same string
func TestReconstructorCustomDelimiters(t *testing.T) {
	s, err := New(Config{StartDelimiter: "||", EndDelimiter: "||"}, &stubDetector{}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	m := entity.NewMap()
	m.Set("||PERSON_0||", "Jane Kowalski")

	got := feedAll(t, s, m, []string{"hi ||PER", "SON_0|", "| bye"})
	if got != "hi Jane Kowalski bye" {
		t.Errorf("got %q", got)
	}
}

// TestUncloakStream tests the pull-based sequence wrapper
func TestUncloakStream(t *testing.T) {
	s := newTestShield(t)

	fragments := slices.Values([]string{"Hello ", "<PER", "SON_0>", " and <UNKNOWN"})
	seq, err := s.UncloakStream(fragments, testMap())
	if err != nil {
		t.Fatalf("UncloakStream failed: %v", err)
	}

	var out strings.Builder
	for chunk := range seq {
		out.WriteString(chunk)
	}
	if out.String() != "Hello Jane Kowalski and <UNKNOWN" {
		t.Errorf("got %q", out.String())
	}
}
