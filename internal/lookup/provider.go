// Package lookup provides read-only, case-insensitive membership tests over
// the static word corpora used by proper-noun classification: known places
// (cities and countries), known organisation names, and common English words
// that disqualify a phrase from being a person name.
package lookup

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

//go:embed data/cities.txt data/countries.txt data/organisations.txt
var corpora embed.FS

// Provider answers membership queries against the embedded corpora. The
// corpora are parsed once, guarded by a sync.Once; a parse failure is
// remembered and returned on every subsequent Ensure call rather than
// retried. After successful initialization all methods are safe for
// concurrent use.
type Provider struct {
	logger *zap.Logger

	once    sync.Once
	loadErr error

	cities        map[string]struct{}
	countries     map[string]struct{}
	organisations map[string]struct{}
	commonWords   map[string]struct{}
}

// NewProvider creates a provider. Corpora are loaded lazily on first use.
func NewProvider(logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{logger: logger}
}

// Ensure loads the corpora if they have not been loaded yet and returns the
// recorded load error, if any. Callers that cannot tolerate a half-usable
// provider should call Ensure once up front.
func (p *Provider) Ensure() error {
	p.once.Do(p.load)
	return p.loadErr
}

func (p *Provider) load() {
	var err error
	if p.cities, err = loadWordList("data/cities.txt"); err != nil {
		p.loadErr = err
		return
	}
	if p.countries, err = loadWordList("data/countries.txt"); err != nil {
		p.loadErr = err
		return
	}
	if p.organisations, err = loadWordList("data/organisations.txt"); err != nil {
		p.loadErr = err
		return
	}

	p.commonWords = make(map[string]struct{}, len(commonWords))
	for _, w := range commonWords {
		p.commonWords[strings.ToLower(w)] = struct{}{}
	}

	p.logger.Info("Lookup corpora loaded",
		zap.Int("cities", len(p.cities)),
		zap.Int("countries", len(p.countries)),
		zap.Int("organisations", len(p.organisations)),
		zap.Int("common_words", len(p.commonWords)),
	)
}

// loadWordList reads one embedded corpus file into a lowercased set.
func loadWordList(name string) (map[string]struct{}, error) {
	f, err := corpora.Open(name)
	if err != nil {
		return nil, fmt.Errorf("lookup: open corpus %s: %w", name, err)
	}
	defer f.Close()

	set := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		set[strings.ToLower(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("lookup: read corpus %s: %w", name, err)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("lookup: corpus %s is empty", name)
	}
	return set, nil
}

// IsPlace reports whether s exactly matches a known city or country,
// case-insensitively.
func (p *Provider) IsPlace(s string) bool {
	if p.Ensure() != nil {
		return false
	}
	key := strings.ToLower(s)
	if _, ok := p.cities[key]; ok {
		return true
	}
	_, ok := p.countries[key]
	return ok
}

// IsOrganisation reports whether s exactly matches a known organisation
// name, case-insensitively.
func (p *Provider) IsOrganisation(s string) bool {
	if p.Ensure() != nil {
		return false
	}
	_, ok := p.organisations[strings.ToLower(s)]
	return ok
}

// IsCommonWord reports whether s is a common English word,
// case-insensitively.
func (p *Provider) IsCommonWord(s string) bool {
	if p.Ensure() != nil {
		return false
	}
	_, ok := p.commonWords[strings.ToLower(s)]
	return ok
}
