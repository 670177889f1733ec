package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionState represents the lifecycle state of a polish session
type SessionState string

const (
	SessionStatePending   SessionState = "pending"
	SessionStatePolished  SessionState = "polished"
	SessionStateCorrected SessionState = "corrected"
	SessionStateFailed    SessionState = "failed"
)

// IsTerminal reports whether no further transitions are allowed from this state
func (s SessionState) IsTerminal() bool {
	return s == SessionStateCorrected || s == SessionStateFailed
}

// PolishSession represents one polish attempt, persisted as an immutable history record
type PolishSession struct {
	ID               uuid.UUID    `json:"id"`
	UserID           uuid.UUID    `json:"user_id"`
	RawScript        string       `json:"raw_script"`
	AIPolishedScript string       `json:"ai_polished_script"`
	UserFinalScript  *string      `json:"user_final_script,omitempty"`
	State            SessionState `json:"state"`
	CreatedAt        time.Time    `json:"created_at"`
}
