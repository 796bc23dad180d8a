// Package cloak exposes the forward and inverse operations of the system:
// replacing detected entities with reversible placeholder tokens before text
// leaves the trust boundary, and restoring the originals from plain,
// structured, or streamed responses.
package cloak

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/raaihank/llm-cloak/internal/entity"
	"go.uber.org/zap"
)

// Default placeholder delimiters.
const (
	DefaultStartDelimiter = "<"
	DefaultEndDelimiter   = ">"
)

// Validation errors reported at construction or use.
var (
	ErrEmptyStartDelimiter = errors.New("cloak: start delimiter must be a non-empty string")
	ErrEmptyEndDelimiter   = errors.New("cloak: end delimiter must be a non-empty string")
	ErrNilDetector         = errors.New("cloak: detector must not be nil")
	ErrNoEntityMap         = errors.New("cloak: no entity map provided and none retained from a previous cloak")
)

// Detector is the detection collaborator. Detect must be safe for
// concurrent use on caller-owned text.
type Detector interface {
	Detect(text string) entity.Collection
}

// Config holds Shield construction parameters.
type Config struct {
	StartDelimiter string `yaml:"start_delimiter" mapstructure:"start_delimiter"`
	EndDelimiter   string `yaml:"end_delimiter" mapstructure:"end_delimiter"`
}

// DefaultConfig returns the conventional "<"/">" delimiters.
func DefaultConfig() Config {
	return Config{StartDelimiter: DefaultStartDelimiter, EndDelimiter: DefaultEndDelimiter}
}

// Shield ties detection and placeholder substitution together behind one
// object. Cloak and Uncloak are pure with respect to their inputs and safe
// to call concurrently; the only shared state is the optional last entity
// map, which is mutex-guarded.
type Shield struct {
	start    string
	end      string
	detector Detector
	logger   *zap.Logger

	mu      sync.Mutex
	lastMap *entity.Map
}

// New validates the delimiters and creates a Shield. Empty delimiters are
// rejected outright, never defaulted.
func New(cfg Config, detector Detector, logger *zap.Logger) (*Shield, error) {
	if cfg.StartDelimiter == "" {
		return nil, ErrEmptyStartDelimiter
	}
	if cfg.EndDelimiter == "" {
		return nil, ErrEmptyEndDelimiter
	}
	if detector == nil {
		return nil, ErrNilDetector
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shield{
		start:    cfg.StartDelimiter,
		end:      cfg.EndDelimiter,
		detector: detector,
		logger:   logger,
	}, nil
}

// Cloak detects entities in text and substitutes every literal occurrence
// of each with a placeholder. Placeholder counters are per entity type,
// assigned in order of first occurrence in the text so output is
// deterministic. The returned map is fresh per call; the shield also
// retains it for later calls that omit one.
func (s *Shield) Cloak(text string) (string, *entity.Map) {
	entities := s.detector.Detect(text)
	ordered := orderByFirstOccurrence(text, entities)

	m := entity.NewMap()
	counters := make(map[entity.Type]int)
	for _, e := range ordered {
		placeholder := entity.Placeholder(s.start, e.Type, counters[e.Type], s.end)
		counters[e.Type]++
		m.Set(placeholder, e.Value)
	}

	// Substitute longest values first so a value that happens to be a
	// substring of another cannot corrupt it.
	byLength := m.Placeholders()
	sort.SliceStable(byLength, func(i, j int) bool {
		vi, _ := m.Get(byLength[i])
		vj, _ := m.Get(byLength[j])
		return len(vi) > len(vj)
	})
	cloaked := text
	for _, placeholder := range byLength {
		value, _ := m.Get(placeholder)
		cloaked = strings.ReplaceAll(cloaked, value, placeholder)
	}

	s.mu.Lock()
	s.lastMap = m
	s.mu.Unlock()

	s.logger.Debug("Prompt cloaked",
		zap.Int("entities", m.Len()),
		zap.Int("original_len", len(text)),
		zap.Int("cloaked_len", len(cloaked)),
	)
	return cloaked, m
}

// CloakAll cloaks several texts as one unit, assigning placeholders from a
// single shared map. An entity appearing in more than one text gets the
// same placeholder everywhere. Used for multi-message prompts.
func (s *Shield) CloakAll(texts []string) ([]string, *entity.Map) {
	joined := strings.Join(texts, "\n")
	entities := s.detector.Detect(joined)
	ordered := orderByFirstOccurrence(joined, entities)

	m := entity.NewMap()
	counters := make(map[entity.Type]int)
	for _, e := range ordered {
		placeholder := entity.Placeholder(s.start, e.Type, counters[e.Type], s.end)
		counters[e.Type]++
		m.Set(placeholder, e.Value)
	}

	byLength := m.Placeholders()
	sort.SliceStable(byLength, func(i, j int) bool {
		vi, _ := m.Get(byLength[i])
		vj, _ := m.Get(byLength[j])
		return len(vi) > len(vj)
	})

	cloaked := make([]string, len(texts))
	for i, text := range texts {
		for _, placeholder := range byLength {
			value, _ := m.Get(placeholder)
			text = strings.ReplaceAll(text, value, placeholder)
		}
		cloaked[i] = text
	}

	s.mu.Lock()
	s.lastMap = m
	s.mu.Unlock()
	return cloaked, m
}

// LastMap returns the entity map retained from the most recent cloak call,
// or nil if there has been none.
func (s *Shield) LastMap() *entity.Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMap
}

// resolveMap substitutes the retained map when the caller passes nil.
func (s *Shield) resolveMap(m *entity.Map) (*entity.Map, error) {
	if m != nil {
		return m, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastMap == nil {
		return nil, ErrNoEntityMap
	}
	return s.lastMap, nil
}

// orderByFirstOccurrence sorts the collection by the offset of each value's
// first occurrence in text. Entity collections are unordered; keying the
// placeholder assignment to the source text keeps cloak output stable
// across runs.
func orderByFirstOccurrence(text string, entities entity.Collection) []entity.Entity {
	ordered := entities.Values()
	sort.SliceStable(ordered, func(i, j int) bool {
		oi := strings.Index(text, ordered[i].Value)
		oj := strings.Index(text, ordered[j].Value)
		if oi != oj {
			return oi < oj
		}
		if ordered[i].Type != ordered[j].Type {
			return ordered[i].Type < ordered[j].Type
		}
		return ordered[i].Value < ordered[j].Value
	})
	return ordered
}
