package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// HumanAuthoredQualityScore is the fixed quality score assigned to examples
	// written or corrected by the user (as opposed to future machine-scored sources)
	HumanAuthoredQualityScore = 100
)

// StyleExample represents one text sample used as training input for voice extraction
type StyleExample struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Text         string    `json:"text"`
	QualityScore int       `json:"quality_score"`
	WordCount    int       `json:"word_count"`
	CreatedAt    time.Time `json:"created_at"`
}
