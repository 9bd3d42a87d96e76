package models

import "time"

// Event is the envelope every queue message is wrapped in.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // parser_request.created
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
