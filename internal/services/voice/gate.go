package voice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/scriptpolish/scriptpolish-api/internal/database"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
)

const (
	// MinExamplesForAnalysis is the smallest corpus the extraction service accepts.
	// Below this, analysis is rejected outright.
	MinExamplesForAnalysis = 2
)

// Gate decides whether a user's voice profile is usable, missing, or not yet
// buildable. Every check re-reads the stores; the gate holds no cached belief
// about profile presence, so a decision is never made from stale in-memory state.
type Gate struct {
	exampleRepo database.ExampleRepositoryInterface
	profileRepo database.ProfileRepositoryInterface
}

// NewGate creates a new profile gate
func NewGate(exampleRepo database.ExampleRepositoryInterface, profileRepo database.ProfileRepositoryInterface) *Gate {
	return &Gate{
		exampleRepo: exampleRepo,
		profileRepo: profileRepo,
	}
}

// CheckUsability reports the current profile state for a user:
//   - ready: a profile row exists (freshness is not a gate; a stale profile
//     remains usable for polishing until explicitly refreshed)
//   - below_threshold: no profile and too few examples to extract one
//   - missing: no profile, but enough examples exist to build one
func (g *Gate) CheckUsability(ctx context.Context, userID uuid.UUID) (*models.ProfileStatus, error) {
	count, err := g.exampleRepo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count examples: %w", err)
	}

	profile, err := g.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		profile = nil
	}

	status := &models.ProfileStatus{ExampleCount: count}

	switch {
	case profile != nil:
		status.State = models.ProfileStateReady
		status.ExtractedAt = profile.ExtractedAt
	case count < MinExamplesForAnalysis:
		status.State = models.ProfileStateBelowThreshold
	default:
		status.State = models.ProfileStateMissing
	}

	return status, nil
}

// IsFresh reports whether the profile reflects the current example corpus.
// Freshness is derived on every call by comparing the extraction timestamp and
// the corpus-size snapshot against the live corpus; it is never stored as a
// separate flag. Used for UI and telemetry only, never to block polishing.
func (g *Gate) IsFresh(ctx context.Context, userID uuid.UUID) (bool, error) {
	profile, err := g.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load profile: %w", err)
	}

	if profile.ExtractedAt == nil {
		return false, nil
	}

	count, err := g.exampleRepo.CountByUserID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to count examples: %w", err)
	}
	if count != profile.ExampleCount {
		return false, nil
	}

	latest, err := g.exampleRepo.LatestCreatedAt(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get latest example time: %w", err)
	}
	if latest != nil && latest.After(*profile.ExtractedAt) {
		return false, nil
	}

	return true, nil
}
