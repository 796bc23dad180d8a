// Package detect implements the multi-stage waterfall that turns raw text
// into a deduplicated collection of sensitive entities. Stages run in fixed
// order (locators, numbers, proper nouns) and every matched span is erased
// from the working text before anything later is allowed to look at it, so
// no two entities ever claim overlapping text.
package detect

import (
	"regexp"
	"strings"

	"github.com/raaihank/llm-cloak/internal/entity"
	"go.uber.org/zap"
)

// reductionSentinel replaces a matched span in the working text. A non-word
// separator, so later patterns cannot match across an erased span.
const reductionSentinel = "\n"

// LookupProvider answers the membership queries proper-noun classification
// depends on. Implementations must be safe for concurrent reads.
type LookupProvider interface {
	IsPlace(s string) bool
	IsOrganisation(s string) bool
	IsCommonWord(s string) bool
}

// Engine runs entity detection. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	lookup LookupProvider
	logger *zap.Logger
}

// NewEngine creates a detection engine backed by the given lookup provider.
func NewEngine(lookup LookupProvider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{lookup: lookup, logger: logger}
}

// Detect finds all sensitive entities in text. The returned collection is
// owned by the caller; the engine retains nothing. Detection always
// succeeds; text with nothing sensitive yields an empty collection.
func (e *Engine) Detect(text string) entity.Collection {
	entities := entity.NewCollection()
	working := text

	working = e.detectLocators(working, entities)
	working = e.detectNumbers(working, entities)
	e.detectProperNouns(working, entities)

	if entities.Len() > 0 {
		e.logger.Debug("Entities detected",
			zap.Int("count", entities.Len()),
			zap.Any("by_type", entities.CountByType()),
		)
	}
	return entities
}

// matchAndReduce records every match of re in text as an entity of type t
// and erases it. Identical values collapse through entity equality; distinct
// values of the same shape each count.
func matchAndReduce(re *regexp.Regexp, t entity.Type, text string, out entity.Collection) string {
	for _, match := range re.FindAllString(text, -1) {
		out.Add(entity.Entity{Type: t, Value: match})
		text = strings.ReplaceAll(text, match, reductionSentinel)
	}
	return text
}

// detectLocators runs stage one: URLs first, then emails, then IPv4
// addresses. URL spans are erased before the email and IP patterns run, so
// address-shaped fragments inside a URL are never double-counted.
func (e *Engine) detectLocators(text string, out entity.Collection) string {
	text = matchAndReduce(urlPattern, entity.TypeURL, text, out)
	text = matchAndReduce(emailPattern, entity.TypeEmail, text, out)
	text = matchAndReduce(ipv4Pattern, entity.TypeIPAddress, text, out)
	return text
}

// detectNumbers runs stage two. The email pattern runs again first, a
// no-op on anything stage one already erased, then credit-card candidates
// gated by the Luhn checksum, then phone numbers.
func (e *Engine) detectNumbers(text string, out entity.Collection) string {
	text = matchAndReduce(emailPattern, entity.TypeEmail, text, out)

	for _, match := range creditCardPattern.FindAllString(text, -1) {
		if !luhnValid(match) {
			continue
		}
		out.Add(entity.Entity{Type: entity.TypeCreditCard, Value: match})
		text = strings.ReplaceAll(text, match, reductionSentinel)
	}

	text = matchAndReduce(phonePattern, entity.TypePhoneNumber, text, out)
	return text
}
