package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
)

// ProfileRepository handles voice profile database operations.
// Each user has at most one profile row; it is replaced wholesale on extraction,
// never merged.
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new voice profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID retrieves a user's voice profile
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.VoiceProfile, error) {
	profile := &models.VoiceProfile{}
	var patterns []byte
	var extractedAt sql.NullTime

	query := `
		SELECT user_id, patterns, patterns_extracted_at, example_count
		FROM profiles
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&patterns,
		&extractedAt,
		&profile.ExampleCount,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("voice profile not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voice profile: %w", err)
	}

	if len(patterns) > 0 {
		profile.Patterns = patterns
	}
	if extractedAt.Valid {
		profile.ExtractedAt = &extractedAt.Time
	}

	return profile, nil
}

// Replace upserts the user's profile wholesale: patterns, extraction timestamp and
// the corpus size snapshot are written in a single statement so a reader never sees
// a half-updated profile.
func (r *ProfileRepository) Replace(ctx context.Context, profile *models.VoiceProfile) error {
	query := `
		INSERT INTO profiles (user_id, patterns, patterns_extracted_at, example_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET patterns = EXCLUDED.patterns,
		    patterns_extracted_at = EXCLUDED.patterns_extracted_at,
		    example_count = EXCLUDED.example_count
	`

	var extractedAt sql.NullTime
	if profile.ExtractedAt != nil {
		extractedAt = sql.NullTime{Time: *profile.ExtractedAt, Valid: true}
	} else {
		extractedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		profile.UserID,
		[]byte(profile.Patterns),
		extractedAt,
		profile.ExampleCount,
	)

	if err != nil {
		return fmt.Errorf("failed to replace voice profile: %w", err)
	}

	return nil
}
