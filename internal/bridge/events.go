package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/workbench/internal/upstream"
)

const (
	// ProtocolVersion identifies the bridge contract version exposed via /health.
	ProtocolVersion = "1.0.0"
	// EventSchemaVersion is the currently supported inbound event version.
	EventSchemaVersion = 1
)

// Event types the backend pushes.
const (
	// TypeReadinessUpdated carries a fresh readiness payload for one project.
	TypeReadinessUpdated = "readiness.updated"
	// TypeProjectRemoved tells the board a project is gone; never dropped on
	// overflow.
	TypeProjectRemoved = "project.removed"
	// TypeHeartbeat keeps idle connections warm; first to go on overflow.
	TypeHeartbeat = "heartbeat"
)

// Event is a single notification pushed by the backend.
type Event struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	Type       string          `json:"type"`
	ProjectID  string          `json:"project_id"`
	ClientTime time.Time       `json:"client_time,omitempty"`
	ServerTime time.Time       `json:"server_time,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Normalize applies defaults and canonical formatting before validation.
func (e *Event) Normalize() {
	if e == nil {
		return
	}
	if e.Version == 0 {
		e.Version = EventSchemaVersion
	}
	e.EventID = strings.TrimSpace(e.EventID)
	e.Type = strings.ToLower(strings.TrimSpace(e.Type))
	e.ProjectID = strings.TrimSpace(e.ProjectID)
}

// StampServerTime overwrites ServerTime with the supplied clock reading (UTC).
func (e *Event) StampServerTime(now time.Time) {
	if e == nil {
		return
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	e.ServerTime = now.UTC()
}

// Validate enforces baseline schema requirements for incoming events.
func (e Event) Validate() error {
	if e.Version != EventSchemaVersion {
		return fmt.Errorf("version %d not supported", e.Version)
	}
	if e.EventID == "" {
		return errors.New("event_id is required")
	}
	switch e.Type {
	case TypeReadinessUpdated, TypeProjectRemoved:
		if e.ProjectID == "" {
			return errors.New("project_id is required")
		}
	case TypeHeartbeat:
	case "":
		return errors.New("type is required")
	default:
		return fmt.Errorf("type %q not supported", e.Type)
	}
	if e.ProjectID == Wildcard {
		return errors.New("project_id may not be the wildcard")
	}
	return nil
}

// Readiness decodes the payload of a readiness.updated event.
func (e Event) Readiness() (upstream.ReadinessPayload, error) {
	var payload upstream.ReadinessPayload
	if e.Type != TypeReadinessUpdated {
		return payload, fmt.Errorf("bridge: event %s is %s, not %s", e.EventID, e.Type, TypeReadinessUpdated)
	}
	if len(e.Payload) == 0 {
		return payload, fmt.Errorf("bridge: event %s has no payload", e.EventID)
	}
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return payload, fmt.Errorf("bridge: event %s: %w", e.EventID, err)
	}
	return payload, nil
}

// EventProcessor consumes validated events.
type EventProcessor interface {
	HandleEvent(Event) error
}

// EventProcessorFunc adapts a function into an EventProcessor.
type EventProcessorFunc func(Event) error

// HandleEvent executes f(e).
func (f EventProcessorFunc) HandleEvent(e Event) error {
	if f == nil {
		return nil
	}
	return f(e)
}

// Logger records bridge status information. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	RouterReady   bool   `json:"router_ready"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type eventResponse struct {
	Status     string    `json:"status"`
	ServerTime time.Time `json:"server_time"`
}
