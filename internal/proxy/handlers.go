package proxy

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/raaihank/llm-cloak/internal/entity"
	"github.com/raaihank/llm-cloak/internal/logger"
	"github.com/raaihank/llm-cloak/internal/store"
	"github.com/raaihank/llm-cloak/internal/websocket"
	"go.uber.org/zap"
)

// handleChatCompletions cloaks entities in the chat messages, forwards the
// request upstream, and uncloaks placeholders in the response. Streamed
// responses are uncloaked chunk by chunk; placeholders split across chunk
// boundaries are reassembled before substitution.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	logger := s.logger.WithRequestID(requestID)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read request body", zap.Error(err))
		http.Error(w, "Failed to read request", http.StatusInternalServerError)
		return
	}
	r.Body.Close()

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Error("Invalid JSON request body", zap.Error(err))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	streamed, _ := payload["stream"].(bool)

	var entityMap *entity.Map
	cloakStart := time.Now()
	if s.config.Cloak.Enabled {
		entityMap = s.cloakMessages(payload)
	}
	cloakDuration := time.Since(cloakStart)

	if entityMap != nil && entityMap.Len() > 0 {
		logger.Info("Entities cloaked in request",
			zap.Int("entities", entityMap.Len()),
			zap.Bool("streamed", streamed),
		)
		s.recordCloak(r, requestID, entityMap, streamed, cloakDuration)
	}

	forwardBody, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal cloaked body", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	upstreamURL := strings.TrimRight(s.config.Upstream.OpenAI, "/") + r.URL.Path
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, upstreamURL, bytes.NewReader(forwardBody))
	if err != nil {
		logger.Error("Failed to build upstream request", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if auth := r.Header.Get("Authorization"); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if org := r.Header.Get("OpenAI-Organization"); org != "" {
		req.Header.Set("OpenAI-Organization", org)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Error("Upstream request failed", zap.Error(err))
		http.Error(w, fmt.Sprintf("Upstream error: %v", err), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if streamed && resp.StatusCode == http.StatusOK {
		s.streamResponse(w, resp, entityMap, logger)
		return
	}
	s.plainResponse(w, resp, entityMap, logger)
}

// cloakMessages cloaks every string content field in messages as one unit
// so a shared entity map covers the whole conversation.
func (s *Server) cloakMessages(payload map[string]any) *entity.Map {
	messages, ok := payload["messages"].([]any)
	if !ok {
		return nil
	}

	var indices []int
	var texts []string
	for i, raw := range messages {
		message, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		content, ok := message["content"].(string)
		if !ok {
			continue
		}
		indices = append(indices, i)
		texts = append(texts, content)
	}
	if len(texts) == 0 {
		return nil
	}

	cloaked, entityMap := s.shield.CloakAll(texts)
	for n, i := range indices {
		messages[i].(map[string]any)["content"] = cloaked[n]
	}
	return entityMap
}

// plainResponse uncloaks a complete JSON response body before writing it.
func (s *Server) plainResponse(w http.ResponseWriter, resp *http.Response, entityMap *entity.Map, log *logger.Logger) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read upstream response", zap.Error(err))
		http.Error(w, "Upstream read error", http.StatusBadGateway)
		return
	}

	out := body
	if entityMap != nil && entityMap.Len() > 0 && resp.StatusCode == http.StatusOK {
		var decoded any
		if err := json.Unmarshal(body, &decoded); err == nil {
			restored, err := s.shield.Uncloak(decoded, entityMap)
			if err == nil {
				if encoded, err := json.Marshal(restored); err == nil {
					out = encoded
				}
			}
		}
	}

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	w.Write(out)
}

// streamResponse relays an SSE stream, feeding each content delta through a
// placeholder reconstructor. Held-back bytes that remain when the stream
// ends are emitted as one final synthetic chunk before [DONE].
func (s *Server) streamResponse(w http.ResponseWriter, resp *http.Response, entityMap *entity.Map, log *logger.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// No entities cloaked for this request: relay verbatim. Falling back
	// to a retained map here could leak another request's substitutions.
	if entityMap == nil || entityMap.Len() == 0 {
		io.Copy(w, resp.Body)
		flusher.Flush()
		return
	}

	rec, err := s.shield.NewReconstructor(entityMap)
	if err != nil {
		io.Copy(w, resp.Body)
		flusher.Flush()
		return
	}

	var lastChunk map[string]any
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			fmt.Fprintf(w, "%s\n", line)
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			if remainder := rec.Flush(); remainder != "" && lastChunk != nil {
				s.writeChunk(w, syntheticChunk(lastChunk, remainder))
			}
			fmt.Fprint(w, "data: [DONE]\n\n")
			flusher.Flush()
			continue
		}

		var chunk map[string]any
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			fmt.Fprintf(w, "%s\n\n", line)
			flusher.Flush()
			continue
		}
		lastChunk = chunk

		if content, ok := deltaContent(chunk); ok {
			restored := rec.Feed(content)
			setDeltaContent(chunk, restored)
		}
		s.writeChunk(w, chunk)
		flusher.Flush()
	}

	if err := scanner.Err(); err != nil {
		log.Error("Upstream stream read failed", zap.Error(err))
	}
}

// writeChunk writes one SSE data line.
func (s *Server) writeChunk(w io.Writer, chunk map[string]any) {
	encoded, err := json.Marshal(chunk)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", encoded)
}

// deltaContent returns the content delta of the first choice, if present.
func deltaContent(chunk map[string]any) (string, bool) {
	choices, ok := chunk["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	delta, ok := choice["delta"].(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := delta["content"].(string)
	return content, ok
}

func setDeltaContent(chunk map[string]any, content string) {
	choices := chunk["choices"].([]any)
	choice := choices[0].(map[string]any)
	delta := choice["delta"].(map[string]any)
	delta["content"] = content
}

// syntheticChunk clones the skeleton of the last observed chunk with a new
// content delta. Used to emit reconstructor remainders at stream end.
func syntheticChunk(last map[string]any, content string) map[string]any {
	chunk := make(map[string]any, len(last))
	for k, v := range last {
		chunk[k] = v
	}
	chunk["choices"] = []any{
		map[string]any{
			"index": float64(0),
			"delta": map[string]any{"content": content},
		},
	}
	return chunk
}

// recordCloak broadcasts a cloak event to dashboard clients and, when the
// audit store is enabled, persists it. Only entity counts leave this
// function; values stay in the entity map.
func (s *Server) recordCloak(r *http.Request, requestID string, entityMap *entity.Map, streamed bool, duration time.Duration) {
	counts := make(map[entity.Type]int)
	for _, placeholder := range entityMap.Placeholders() {
		if t, _, ok := entity.ParsePlaceholder(placeholder, s.config.Cloak.StartDelimiter, s.config.Cloak.EndDelimiter); ok {
			counts[t]++
		}
	}

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeCloak,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: websocket.CloakEvent{
			RequestID:    requestID,
			Path:         r.URL.Path,
			EntityCounts: counts,
			Total:        entityMap.Len(),
			Streamed:     streamed,
			ProcessingMS: float64(duration.Nanoseconds()) / 1e6,
		},
	})

	if s.store == nil {
		return
	}
	encoded, err := json.Marshal(counts)
	if err != nil {
		return
	}
	event := &store.Event{
		RequestID:    requestID,
		Path:         r.URL.Path,
		EntityCounts: encoded,
		Total:        entityMap.Len(),
		DurationMS:   float64(duration.Nanoseconds()) / 1e6,
		Streamed:     streamed,
	}
	if err := s.store.Record(r.Context(), event); err != nil {
		s.logger.Warn("Audit record failed", zap.Error(err))
	}
}

// handlePassthrough reverse-proxies any other /v1 endpoint unmodified.
func (s *Server) handlePassthrough(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	logger := s.logger.WithRequestID(requestID)

	target, err := url.Parse(s.config.Upstream.OpenAI)
	if err != nil {
		logger.Error("Failed to parse upstream URL", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Director = func(req *http.Request) {
		req.URL.Scheme = target.Scheme
		req.URL.Host = target.Host
		req.Host = target.Host

		if _, ok := req.Header["User-Agent"]; !ok {
			req.Header.Set("User-Agent", "llm-cloak/0.1.0")
		}

		logger.Debug("Proxying request",
			zap.String("target_url", req.URL.String()),
			zap.String("method", req.Method),
		)
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("Proxy error", zap.Error(err))
		http.Error(w, fmt.Sprintf("Proxy error: %v", err), http.StatusBadGateway)
	}
	proxy.Transport = &http.Transport{
		ResponseHeaderTimeout: s.config.Upstream.Timeout,
	}

	start := time.Now()
	proxy.ServeHTTP(w, r)
	logger.Info("Request proxied",
		zap.Duration("upstream_duration", time.Since(start)),
	)
}
