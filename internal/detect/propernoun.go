package detect

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/raaihank/llm-cloak/internal/entity"
)

// punctuation is the character set used both to disqualify candidate tokens
// and to clean accepted values. The period is treated specially throughout
// because it may belong to an honorific ("Dr. Doe").
const punctuation = `!,.?';:`

// trailingPunct is stripped from a token before honorific and suffix
// comparison.
const trailingPunct = `.,!?;:`

// honorifics are title tokens that may prefix a person's name. Stored
// without the trailing period; compare with the token's trimmed form.
var honorifics = newTokenSet(
	"Mr", "Mrs", "Ms", "Dr", "Prof", "Professor", "Sir", "Lady", "Lord",
	"Duke", "Duchess", "Prince", "Princess", "King", "Queen",
	"CEO", "VP", "CFO", "COO", "CTO",
)

// orgSuffixes mark a phrase as an organisation when any of its tokens
// matches one.
var orgSuffixes = newTokenSet(
	"Holdings", "Group", "LLP", "Ltd", "Corp", "Corporation", "Inc",
	"Industries", "Company", "Co", "LLC", "GmbH", "AG", "Pty", "L.P.",
)

// placeSuffixes mark a phrase as a place when any of its tokens matches one.
var placeSuffixes = newTokenSet(
	"St", "Street", "Road", "Rd", "Avenue", "Ave",
)

var fragmentSplit = regexp.MustCompile(`[.!?]+\s+|\n+`)

type tokenSet map[string]struct{}

func newTokenSet(words ...string) tokenSet {
	s := make(tokenSet, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// hasToken reports whether the token, raw or with trailing punctuation
// trimmed, is in the set.
func (s tokenSet) hasToken(token string) bool {
	if _, ok := s[token]; ok {
		return true
	}
	_, ok := s[strings.TrimRight(token, trailingPunct)]
	return ok
}

// detectProperNouns runs stage three: collect candidate phrases, classify
// each in longest-first order, and erase every candidate from the working
// text whether or not classification accepted it, so shorter candidates can
// never re-match inside a consumed span.
func (e *Engine) detectProperNouns(text string, out entity.Collection) string {
	reduced := text
	for _, candidate := range e.collectProperNouns(text) {
		if candidate == "" || !strings.Contains(reduced, candidate) {
			continue
		}
		if ent, ok := e.classify(candidate); ok {
			out.Add(ent)
		}
		reduced = strings.ReplaceAll(reduced, candidate, reductionSentinel)
	}
	return reduced
}

// collectProperNouns splits text into punctuation-delimited fragments and
// accretes runs of qualifying tokens into candidate phrases. A token
// qualifies if it is an honorific, or if it carries no forbidden
// punctuation, is not a common word, and is either all digits or starts
// with an uppercase letter. Common words close the pending candidate so
// that a sentence-initial "Visit" or "Hello" cannot swallow the name that
// follows it. Splitting happens before any whitespace normalisation, so a
// candidate can never bridge an erased span from an earlier stage.
// Candidates come back sorted longest first so the most specific phrase
// wins during classification and erasure.
func (e *Engine) collectProperNouns(text string) []string {
	var candidates []string
	for _, fragment := range fragmentSplit.Split(text, -1) {
		var pending []string
		flush := func() {
			if len(pending) > 0 {
				candidates = append(candidates, strings.Join(pending, " "))
				pending = nil
			}
		}
		for _, word := range strings.Fields(fragment) {
			if e.qualifiesForCandidate(word) {
				pending = append(pending, word)
			} else {
				flush()
			}
		}
		flush()
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i]) > len(candidates[j])
	})
	return candidates
}

// qualifiesForCandidate decides whether a token extends the pending
// candidate phrase.
func (e *Engine) qualifiesForCandidate(word string) bool {
	if honorifics.hasToken(word) {
		return true
	}
	if hasForbiddenPunct(word) {
		return false
	}
	if e.lookup.IsCommonWord(strings.TrimRight(word, trailingPunct)) {
		return false
	}
	return allDigits(word) || startsUpper(word)
}

// classify assigns a type to a candidate phrase and returns the cleaned
// entity value. The order is fixed: organisation, place, person, concept.
// A phrase matching none of them is rejected.
func (e *Engine) classify(phrase string) (entity.Entity, bool) {
	if phrase == "" {
		return entity.Entity{}, false
	}

	switch {
	case e.isOrganisation(phrase):
		return entity.Entity{Type: entity.TypeOrganisation, Value: stripPunct(phrase)}, true
	case e.isPlace(phrase):
		return entity.Entity{Type: entity.TypePlace, Value: stripPunct(phrase)}, true
	case e.isPerson(phrase):
		return entity.Entity{Type: entity.TypePerson, Value: stripPunct(stripHonorific(phrase))}, true
	case isConcept(phrase):
		return entity.Entity{Type: entity.TypeConcept, Value: stripPunct(phrase)}, true
	}
	return entity.Entity{}, false
}

// isOrganisation matches a known organisation name exactly or any token
// against the organisation suffixes.
func (e *Engine) isOrganisation(phrase string) bool {
	if e.lookup.IsOrganisation(phrase) || e.lookup.IsOrganisation(strings.TrimRight(phrase, trailingPunct)) {
		return true
	}
	for _, token := range strings.Fields(phrase) {
		if orgSuffixes.hasToken(token) {
			return true
		}
	}
	return false
}

// isPlace matches a known city or country exactly or any token against the
// place suffixes.
func (e *Engine) isPlace(phrase string) bool {
	if e.lookup.IsPlace(phrase) || e.lookup.IsPlace(strings.TrimRight(phrase, trailingPunct)) {
		return true
	}
	for _, token := range strings.Fields(phrase) {
		if placeSuffixes.hasToken(token) {
			return true
		}
	}
	return false
}

// isPerson accepts a phrase with no common-word tokens, no digits, and no
// punctuation other than the period, which honorifics are allowed to carry.
// A phrase made entirely of honorific tokens (a title cut off from its name
// by sentence splitting) is rejected, as is a lone acronym-shaped token.
func (e *Engine) isPerson(phrase string) bool {
	allHonorific := true
	for _, token := range strings.Fields(phrase) {
		if e.lookup.IsCommonWord(token) {
			return false
		}
		if !honorifics.hasToken(token) {
			allHonorific = false
		}
	}
	if allHonorific {
		return false
	}
	if strings.ContainsFunc(phrase, unicode.IsDigit) {
		return false
	}
	if hasForbiddenPunct(phrase) {
		return false
	}
	if isConcept(phrase) {
		return false
	}
	return len(strings.Fields(stripHonorific(phrase))) > 0
}

// isConcept accepts a single fully-uppercase token free of punctuation,
// e.g. an acronym or codename.
func isConcept(phrase string) bool {
	if strings.ContainsAny(phrase, punctuation) {
		return false
	}
	tokens := strings.Fields(phrase)
	if len(tokens) != 1 {
		return false
	}
	hasLetter := false
	for _, r := range phrase {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// stripHonorific drops a leading honorific token, so "Dr. Jane Roe" is
// stored as "Jane Roe". A lone honorific is left untouched.
func stripHonorific(phrase string) string {
	words := strings.Fields(phrase)
	if len(words) > 1 && honorifics.hasToken(words[0]) {
		return strings.Join(words[1:], " ")
	}
	return phrase
}

// hasForbiddenPunct reports whether s contains punctuation other than the
// period.
func hasForbiddenPunct(s string) bool {
	for _, r := range s {
		if r != '.' && strings.ContainsRune(punctuation, r) {
			return true
		}
	}
	return false
}

// stripPunct removes every punctuation character from an accepted value.
func stripPunct(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !strings.ContainsRune(punctuation, r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
