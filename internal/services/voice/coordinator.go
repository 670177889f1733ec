package voice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scriptpolish/scriptpolish-api/internal/database"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
	"github.com/scriptpolish/scriptpolish-api/internal/services/ai"
	"go.uber.org/zap"
)

// Coordinator serializes pattern extraction per user. At most one extraction
// per user is in flight at any time; a concurrent request is rejected
// immediately rather than queued, because queued extraction would run against
// a corpus that may have changed while it waited.
type Coordinator struct {
	provider    ai.AIProvider
	exampleRepo database.ExampleRepositoryInterface
	profileRepo database.ProfileRepositoryInterface
	gate        *Gate
	logger      *zap.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

// NewCoordinator creates a new analysis coordinator
func NewCoordinator(
	provider ai.AIProvider,
	exampleRepo database.ExampleRepositoryInterface,
	profileRepo database.ProfileRepositoryInterface,
	gate *Gate,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		provider:    provider,
		exampleRepo: exampleRepo,
		profileRepo: profileRepo,
		gate:        gate,
		logger:      logger,
		inFlight:    make(map[uuid.UUID]bool),
	}
}

// tryAcquire attempts to take the per-user analysis slot
func (c *Coordinator) tryAcquire(userID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[userID] {
		return false
	}
	c.inFlight[userID] = true
	return true
}

// release frees the per-user analysis slot
func (c *Coordinator) release(userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, userID)
}

// AnalyzeVoice extracts a new voice profile from the user's current example
// corpus and replaces the stored profile wholesale. The example set is
// whatever is readable when the call starts; examples added mid-flight are
// not included. On failure the prior profile, if any, is left untouched.
func (c *Coordinator) AnalyzeVoice(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	status, err := c.gate.CheckUsability(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	if status.ExampleCount < MinExamplesForAnalysis {
		return time.Time{}, ErrInsufficientExamples
	}

	if !c.tryAcquire(userID) {
		return time.Time{}, ErrAnalysisInProgress
	}
	defer c.release(userID)

	examples, err := c.exampleRepo.GetByUserID(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to snapshot examples: %w", err)
	}
	// The corpus may have shrunk between the gate check and the snapshot.
	if len(examples) < MinExamplesForAnalysis {
		return time.Time{}, ErrInsufficientExamples
	}

	start := time.Now()
	patterns, err := c.provider.ExtractPatterns(ctx, examples)
	if err != nil {
		c.logger.Warn("voice_analysis_failed",
			zap.String("user_id", userID.String()),
			zap.Int("example_count", len(examples)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return time.Time{}, &UpstreamError{Op: "extract_patterns", Cause: err}
	}

	extractedAt := time.Now().UTC()
	profile := &models.VoiceProfile{
		UserID:       userID,
		Patterns:     patterns,
		ExtractedAt:  &extractedAt,
		ExampleCount: len(examples),
	}

	if err := c.profileRepo.Replace(ctx, profile); err != nil {
		return time.Time{}, fmt.Errorf("failed to store profile: %w", err)
	}

	c.logger.Info("voice_analysis_completed",
		zap.String("user_id", userID.String()),
		zap.Int("example_count", len(examples)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)

	return extractedAt, nil
}
