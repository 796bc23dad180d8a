package cloak

import (
	"reflect"
	"testing"

	"github.com/raaihank/llm-cloak/internal/entity"
)

type structuredResponse struct {
	content string
}

func (r structuredResponse) Dump() map[string]any {
	return map[string]any{"content": r.content}
}

// TestUncloak tests restoration across supported response shapes
func TestUncloak(t *testing.T) {
	s := newTestShield(t)
	m := entity.NewMap()
	m.Set("<PERSON_0>", "Jane Kowalski")
	m.Set("<EMAIL_0>", "jane@example.com")

	t.Run("String", func(t *testing.T) {
		got, err := s.Uncloak("contact <PERSON_0> via <EMAIL_0>", m)
		if err != nil {
			t.Fatalf("Uncloak failed: %v", err)
		}
		if got != "contact Jane Kowalski via jane@example.com" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("NestedStructurePreserved", func(t *testing.T) {
		in := map[string]any{
			"a": "<PERSON_0>",
			"b": []any{float64(1), "<EMAIL_0>", map[string]any{"deep": "<PERSON_0>"}},
			"c": float64(5),
		}
		got, err := s.Uncloak(in, m)
		if err != nil {
			t.Fatalf("Uncloak failed: %v", err)
		}
		want := map[string]any{
			"a": "Jane Kowalski",
			"b": []any{float64(1), "jane@example.com", map[string]any{"deep": "Jane Kowalski"}},
			"c": float64(5),
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})

	t.Run("KeysNeverAltered", func(t *testing.T) {
		in := map[string]any{"<PERSON_0>": "<PERSON_0>"}
		got, err := s.Uncloak(in, m)
		if err != nil {
			t.Fatalf("Uncloak failed: %v", err)
		}
		out := got.(map[string]any)
		if _, ok := out["<PERSON_0>"]; !ok {
			t.Error("mapping key was rewritten")
		}
		if out["<PERSON_0>"] != "Jane Kowalski" {
			t.Errorf("value = %q", out["<PERSON_0>"])
		}
	})

	t.Run("Structured", func(t *testing.T) {
		got, err := s.Uncloak(structuredResponse{content: "hi <PERSON_0>"}, m)
		if err != nil {
			t.Fatalf("Uncloak failed: %v", err)
		}
		out, ok := got.(map[string]any)
		if !ok {
			t.Fatalf("got %T, want map", got)
		}
		if out["content"] != "hi Jane Kowalski" {
			t.Errorf("content = %q", out["content"])
		}
	})

	t.Run("EmptyMapReturnsInputUnchanged", func(t *testing.T) {
		got, err := s.Uncloak("leave <PERSON_0> alone", entity.NewMap())
		if err != nil {
			t.Fatalf("Uncloak failed: %v", err)
		}
		if got != "leave <PERSON_0> alone" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("UnsupportedShape", func(t *testing.T) {
		_, err := s.Uncloak(42, m)
		if _, ok := err.(*UnsupportedShapeError); !ok {
			t.Errorf("err = %v, want UnsupportedShapeError", err)
		}
	})

	t.Run("UnknownPlaceholderLeftVerbatim", func(t *testing.T) {
		got, err := s.Uncloak("see <PLACE_7>", m)
		if err != nil {
			t.Fatalf("Uncloak failed: %v", err)
		}
		if got != "see <PLACE_7>" {
			t.Errorf("got %q", got)
		}
	})
}
