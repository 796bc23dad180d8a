package cloak

import (
	"fmt"
	"strings"

	"github.com/raaihank/llm-cloak/internal/entity"
)

// Structured is the capability interface for structured response objects
// the uncloaker must traverse. Adapters dump the object to a plain mapping;
// rebuilding the concrete type from the uncloaked mapping happens at the
// caller's boundary.
type Structured interface {
	Dump() map[string]any
}

// UnsupportedShapeError reports a top-level uncloak input that is not a
// string, ordered sequence, mapping, or structured object.
type UnsupportedShapeError struct {
	Value any
}

func (e *UnsupportedShapeError) Error() string {
	return fmt.Sprintf("cloak: unsupported response shape %T (want string, []any, map[string]any, or Structured)", e.Value)
}

// Uncloak restores original entity values in a response of arbitrary nested
// shape. Strings have every placeholder replaced; sequences and mappings
// are walked recursively (mapping keys are never altered); structured
// objects are dumped to a mapping, which is returned uncloaked for the
// caller to rebuild. Non-string scalars nested inside supported shapes pass
// through unchanged; an unsupported top-level shape is an error.
//
// A nil map falls back to the map retained from the shield's last cloak
// call.
func (s *Shield) Uncloak(response any, m *entity.Map) (any, error) {
	m, err := s.resolveMap(m)
	if err != nil {
		return nil, err
	}
	switch response.(type) {
	case string, []any, map[string]any, Structured:
		return uncloakValue(response, m), nil
	}
	return nil, &UnsupportedShapeError{Value: response}
}

func uncloakValue(v any, m *entity.Map) any {
	if m.Len() == 0 {
		return v
	}
	switch val := v.(type) {
	case string:
		return ReplaceAll(val, m)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = uncloakValue(item, m)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, item := range val {
			out[key] = uncloakValue(item, m)
		}
		return out
	case Structured:
		return uncloakValue(val.Dump(), m)
	}
	return v
}

// ReplaceAll substitutes every placeholder in s with its original value.
// Placeholders are disjoint literal tokens, so replacement order across
// keys does not matter.
func ReplaceAll(s string, m *entity.Map) string {
	m.Range(func(placeholder, original string) bool {
		s = strings.ReplaceAll(s, placeholder, original)
		return true
	})
	return s
}
