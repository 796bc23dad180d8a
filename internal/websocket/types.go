package websocket

import (
	"time"

	"github.com/raaihank/llm-cloak/internal/entity"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeCloak represents a cloak operation event
	EventTypeCloak EventType = "cloak"
	// EventTypeRequestLog represents a request logging event
	EventTypeRequestLog EventType = "request_log"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// CloakEvent reports one cloak operation. Only entity counts are carried;
// original values never leave the process through the event feed.
type CloakEvent struct {
	RequestID    string              `json:"request_id"`
	Path         string              `json:"path"`
	EntityCounts map[entity.Type]int `json:"entity_counts"`
	Total        int                 `json:"total"`
	Streamed     bool                `json:"streamed"`
	ProcessingMS float64             `json:"processing_ms"`
}

// RequestLogEvent represents a request logging event
type RequestLogEvent struct {
	RequestID  string        `json:"request_id"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	StatusCode int           `json:"status_code"`
	ClientIP   string        `json:"client_ip"`
	Duration   time.Duration `json:"duration"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalRequests    int64  `json:"total_requests"`
	TotalCloaked     int64  `json:"total_cloaked"`
	ConnectedClients int    `json:"connected_clients"`
}
