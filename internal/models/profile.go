package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProfileState represents the usability of a user's voice profile
type ProfileState string

const (
	ProfileStateMissing        ProfileState = "missing"
	ProfileStateBelowThreshold ProfileState = "below_threshold"
	ProfileStateReady          ProfileState = "ready"
)

// VoiceProfile is the per-user derived artifact produced by pattern extraction.
// Patterns is opaque to this service; it is produced and consumed by the AI provider.
type VoiceProfile struct {
	UserID       uuid.UUID       `json:"user_id"`
	Patterns     json.RawMessage `json:"patterns,omitempty"`
	ExtractedAt  *time.Time      `json:"extracted_at,omitempty"`
	ExampleCount int             `json:"example_count"`
}

// ProfileStatus is the result of a profile usability check
type ProfileStatus struct {
	State        ProfileState `json:"state"`
	ExtractedAt  *time.Time   `json:"extracted_at,omitempty"`
	ExampleCount int          `json:"example_count"`
}
