package cloak

import (
	"iter"
	"strings"

	"github.com/raaihank/llm-cloak/internal/entity"
)

// Reconstructor resolves placeholders over an incrementally-delivered
// sequence of text fragments whose boundaries may split a placeholder
// anywhere. One instance serves exactly one stream and must not be shared
// across streams.
//
// Output is emitted as eagerly as possible: text before the first
// start-delimiter is always safe to release, so the internal buffer only
// ever holds the tail from the last unresolved start-delimiter onward,
// never the whole stream.
type Reconstructor struct {
	m     *entity.Map
	start string
	end   string
	buf   string
}

// NewReconstructor creates a reconstructor for one stream against the given
// entity map.
func (s *Shield) NewReconstructor(m *entity.Map) (*Reconstructor, error) {
	m, err := s.resolveMap(m)
	if err != nil {
		return nil, err
	}
	return &Reconstructor{m: m, start: s.start, end: s.end}, nil
}

// Feed appends a fragment to the buffer and returns whatever can be emitted
// now. The returned string may be empty when the buffer ends in a
// potentially incomplete placeholder.
func (r *Reconstructor) Feed(fragment string) string {
	r.buf += fragment
	return r.drain()
}

// drain repeatedly resolves the buffer head until it hits a start-delimiter
// with no end-delimiter after it yet.
func (r *Reconstructor) drain() string {
	var out strings.Builder
	for {
		p := strings.Index(r.buf, r.start)
		if p < 0 {
			// No placeholder can begin anywhere in the buffer.
			out.WriteString(r.buf)
			r.buf = ""
			break
		}

		// Everything before the start-delimiter is safe to emit.
		out.WriteString(r.buf[:p])
		r.buf = r.buf[p:]

		rel := strings.Index(r.buf[len(r.start):], r.end)
		if rel < 0 {
			// Genuinely incomplete: hold from the start-delimiter on.
			break
		}

		stop := len(r.start) + rel + len(r.end)
		token := r.buf[:stop]
		if original, ok := r.m.Get(token); ok {
			out.WriteString(original)
		} else {
			// Delimited but not a known placeholder: ordinary text.
			out.WriteString(token)
		}
		r.buf = r.buf[stop:]
	}
	return out.String()
}

// Flush returns whatever remains buffered, verbatim, at stream end, even
// if it resembles a truncated placeholder. Nothing is ever dropped.
func (r *Reconstructor) Flush() string {
	rest := r.buf
	r.buf = ""
	return rest
}

// Buffered returns the number of bytes currently held back.
func (r *Reconstructor) Buffered() int {
	return len(r.buf)
}

// UncloakStream restores entities over a pull-based fragment sequence,
// yielding output fragments as they become resolvable and flushing the
// remainder verbatim when the input ends. A nil map falls back to the
// shield's last cloak map. The returned sequence is single-use.
func (s *Shield) UncloakStream(fragments iter.Seq[string], m *entity.Map) (iter.Seq[string], error) {
	r, err := s.NewReconstructor(m)
	if err != nil {
		return nil, err
	}
	return func(yield func(string) bool) {
		for fragment := range fragments {
			if out := r.Feed(fragment); out != "" {
				if !yield(out) {
					return
				}
			}
		}
		if rest := r.Flush(); rest != "" {
			yield(rest)
		}
	}, nil
}
