package cloak

import (
	"context"
	"fmt"
	"iter"
)

// CompletionFunc produces a complete response for a cloaked prompt, for
// example by calling an LLM API.
type CompletionFunc func(ctx context.Context, prompt string) (string, error)

// StreamFunc produces an incrementally-delivered response for a cloaked
// prompt.
type StreamFunc func(ctx context.Context, prompt string) (iter.Seq[string], error)

// Ask is the end-to-end helper: cloak the prompt, invoke the caller's
// response function, uncloak the result.
func (s *Shield) Ask(ctx context.Context, prompt string, complete CompletionFunc) (string, error) {
	if complete == nil {
		return "", fmt.Errorf("cloak: completion function must not be nil")
	}
	cloaked, m := s.Cloak(prompt)
	response, err := complete(ctx, cloaked)
	if err != nil {
		return "", fmt.Errorf("cloak: completion failed: %w", err)
	}
	restored, err := s.Uncloak(response, m)
	if err != nil {
		return "", err
	}
	return restored.(string), nil
}

// AskStream is the streaming variant of Ask. The returned sequence yields
// uncloaked fragments as the response function delivers them.
func (s *Shield) AskStream(ctx context.Context, prompt string, stream StreamFunc) (iter.Seq[string], error) {
	if stream == nil {
		return nil, fmt.Errorf("cloak: stream function must not be nil")
	}
	cloaked, m := s.Cloak(prompt)
	fragments, err := stream(ctx, cloaked)
	if err != nil {
		return nil, fmt.Errorf("cloak: stream start failed: %w", err)
	}
	return s.UncloakStream(fragments, m)
}
