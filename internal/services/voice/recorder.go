package voice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/scriptpolish/scriptpolish-api/internal/database"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
	"github.com/scriptpolish/scriptpolish-api/internal/validation"
	"go.uber.org/zap"
)

// CorpusChangeHandler is invoked after the example corpus for a user has been
// mutated. Used to hook optional follow-up work (such as enqueueing a
// background analysis job) without the recorder knowing about queues.
type CorpusChangeHandler func(ctx context.Context, userID uuid.UUID) error

// Recorder commits a user's final edit as both a new voice example and the
// terminal corrected state on the originating session. The two writes are one
// atomic unit; a session can be corrected at most once.
//
// Committing a correction never triggers extraction by itself: corrections are
// deliberately batched until an explicit analysis call refreshes the profile.
type Recorder struct {
	historyRepo   database.HistoryRepositoryInterface
	logger        *zap.Logger
	corpusChanged CorpusChangeHandler
}

// NewRecorder creates a new correction recorder
func NewRecorder(historyRepo database.HistoryRepositoryInterface, logger *zap.Logger) *Recorder {
	return &Recorder{
		historyRepo: historyRepo,
		logger:      logger,
	}
}

// SetCorpusChangeHandler registers a handler called after each committed
// correction. Handler errors are logged, never surfaced to the user.
func (r *Recorder) SetCorpusChangeHandler(h CorpusChangeHandler) {
	r.corpusChanged = h
}

// WordCount counts whitespace-separated tokens, matching how example length
// is reported everywhere else in the system.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// SaveCorrection commits the user's final edit for a polish session. The
// session must exist, belong to the user, and be in state polished; the
// polished -> corrected transition happens exactly once per session even under
// concurrent calls. aiPolishedText is the polished draft the client edited;
// the stored session text stays authoritative, a mismatch only means the
// client was holding a stale draft.
func (r *Recorder) SaveCorrection(ctx context.Context, userID, historyID uuid.UUID, aiPolishedText, userFinalText string) (*models.StyleExample, error) {
	finalText := validation.SanitizeText(userFinalText)
	if finalText == "" {
		return nil, ErrEmptyScript
	}

	session, err := r.historyRepo.GetByID(ctx, historyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load polish session: %w", err)
	}

	// Sessions belonging to other users are reported as not found rather than
	// forbidden, so history IDs cannot be probed across accounts.
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}

	if session.State != models.SessionStatePolished {
		return nil, ErrInvalidSessionState
	}

	if submitted := validation.SanitizeText(aiPolishedText); submitted != session.AIPolishedScript {
		r.logger.Warn("correction_polished_text_mismatch",
			zap.String("user_id", userID.String()),
			zap.String("history_id", historyID.String()),
		)
	}

	example := &models.StyleExample{
		UserID:       userID,
		Text:         finalText,
		QualityScore: models.HumanAuthoredQualityScore,
		WordCount:    WordCount(finalText),
	}

	if err := r.historyRepo.CorrectAndAddExample(ctx, session, example); err != nil {
		if errors.Is(err, database.ErrSessionStateConflict) {
			// Lost the race: another correction won the transition first.
			return nil, ErrInvalidSessionState
		}
		return nil, fmt.Errorf("failed to commit correction: %w", err)
	}

	r.logger.Info("correction_committed",
		zap.String("user_id", userID.String()),
		zap.String("history_id", historyID.String()),
		zap.String("example_id", example.ID.String()),
		zap.Int("word_count", example.WordCount),
	)

	if r.corpusChanged != nil {
		if err := r.corpusChanged(ctx, userID); err != nil {
			r.logger.Warn("corpus_change_handler_failed",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	}

	return example, nil
}
