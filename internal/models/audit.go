package models

import "time"

// ToggleAudit is one recorded pause/resume attempt.
type ToggleAudit struct {
	Timestamp    time.Time
	RequestID    string
	AgentID      string
	ErrorKind    string
	Error        string
	ID           int64
	AffectedRows int
	Paused       bool
}

// Succeeded reports whether the attempt reached the backend without error.
func (a ToggleAudit) Succeeded() bool {
	return a.ErrorKind == ""
}
