// Package models defines the data structures for events and validation reports.
package models

import (
	"encoding/json"
	"time"
)

// Event is a request event as it travels on the bus. Payload, Identity, Auth
// and Metadata are arbitrary JSON; only Payload, Identity and Metadata are
// checked against a schema.
type Event struct {
	Name     string          `json:"name"`
	Version  int             `json:"version"`
	ID       string          `json:"id,omitempty"`
	FlowID   string          `json:"flowId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Identity json.RawMessage `json:"identity,omitempty"`
	Auth     json.RawMessage `json:"auth,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// ValidationError is the wire form of one validation failure.
type ValidationError struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ValidationReport describes the outcome of validating one event.
type ValidationReport struct {
	EventID         string            `json:"eventId"`
	FlowID          string            `json:"flowId,omitempty"`
	Name            string            `json:"name"`
	Version         int               `json:"version"`
	Success         bool              `json:"success"`
	Errors          []ValidationError `json:"errors"`
	EncryptedFields []string          `json:"encryptedFields"`
	ValidatedAt     int64             `json:"validatedAt"`
}

// ValidatedEvent is an event that passed validation, forwarded with the
// paths of its fields that downstream consumers must encrypt.
type ValidatedEvent struct {
	Event           *Event   `json:"event"`
	EncryptedFields []string `json:"encryptedFields"`
	ValidatedAt     int64    `json:"validatedAt"`
}

// NewReport returns a report skeleton for ev, stamped with now.
func NewReport(ev *Event, now time.Time) *ValidationReport {
	return &ValidationReport{
		EventID:         ev.ID,
		FlowID:          ev.FlowID,
		Name:            ev.Name,
		Version:         ev.Version,
		Errors:          []ValidationError{},
		EncryptedFields: []string{},
		ValidatedAt:     now.UnixMilli(),
	}
}
