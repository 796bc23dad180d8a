package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/raaihank/llm-cloak/internal/config"
	"github.com/raaihank/llm-cloak/internal/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// loggingMiddleware logs HTTP requests and responses
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		// Wrap the response writer to capture status and size
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		s.logger.WithRequestID(requestID).Info("HTTP request started",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
		)

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		s.logger.WithRequestID(requestID).Info("HTTP request completed",
			zap.Int("status_code", rw.statusCode),
			zap.Duration("duration", duration),
			zap.Int("response_size", rw.size),
		)

		s.wsHub.BroadcastEvent(websocket.Event{
			Type:      websocket.EventTypeRequestLog,
			Timestamp: time.Now(),
			RequestID: requestID,
			Data: websocket.RequestLogEvent{
				RequestID:  requestID,
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: rw.statusCode,
				ClientIP:   getClientIP(r),
				Duration:   duration,
			},
		})
	})
}

// rateLimitMiddleware enforces a per-client request rate
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.config.RateLimit.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := getClientIP(r)
		if !s.limiters.allow(clientIP) {
			s.logger.Warn("Rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientLimiters holds one token bucket per client IP.
type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newClientLimiters(cfg config.RateLimitConfig) *clientLimiters {
	perSecond := rate.Limit(float64(cfg.RequestsPerMin) / 60.0)
	return &clientLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    perSecond,
		burst:    cfg.Burst,
	}
}

func (cl *clientLimiters) allow(clientIP string) bool {
	cl.mu.Lock()
	limiter, ok := cl.limiters[clientIP]
	if !ok {
		limiter = rate.NewLimiter(cl.limit, cl.burst)
		cl.limiters[clientIP] = limiter
	}
	cl.mu.Unlock()
	return limiter.Allow()
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.Index(xff, ","); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return xff
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// responseWriter wraps http.ResponseWriter to capture response data
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// Flush forwards flushes so streamed responses pass through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// generateRequestID generates a unique request ID
func generateRequestID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// getRequestID extracts request ID from context
func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return "unknown"
}
