package voice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/scriptpolish/scriptpolish-api/internal/database"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
	"github.com/scriptpolish/scriptpolish-api/internal/services/ai"
	"github.com/scriptpolish/scriptpolish-api/internal/validation"
	"go.uber.org/zap"
)

// SessionManager owns the lifecycle of polish attempts. It issues a monotonic
// attempt token per user before each polish call; when responses come back out
// of order, only the response carrying the latest token is accepted into
// session state, so a slow old polish can never clobber a newer one.
type SessionManager struct {
	provider    ai.AIProvider
	historyRepo database.HistoryRepositoryInterface
	profileRepo database.ProfileRepositoryInterface
	logger      *zap.Logger

	mu       sync.Mutex
	attempts map[uuid.UUID]*attemptState
}

// attemptState tracks the newest issued token for one user. Its mutex is held
// across both token issuance and the final check-and-persist, so a newer
// attempt cannot slip in between the token check and the insert and leave a
// superseded result persisted as polished.
type attemptState struct {
	mu     sync.Mutex
	latest uint64
}

// NewSessionManager creates a new session manager
func NewSessionManager(
	provider ai.AIProvider,
	historyRepo database.HistoryRepositoryInterface,
	profileRepo database.ProfileRepositoryInterface,
	logger *zap.Logger,
) *SessionManager {
	return &SessionManager{
		provider:    provider,
		historyRepo: historyRepo,
		profileRepo: profileRepo,
		logger:      logger,
		attempts:    make(map[uuid.UUID]*attemptState),
	}
}

// attemptFor returns the per-user attempt state, creating it on first use
func (m *SessionManager) attemptFor(userID uuid.UUID) *attemptState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.attempts[userID]
	if !ok {
		st = &attemptState{}
		m.attempts[userID] = st
	}
	return st
}

// nextAttempt issues the next attempt token for a user
func (m *SessionManager) nextAttempt(userID uuid.UUID) uint64 {
	st := m.attemptFor(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.latest++
	return st.latest
}

// StartPolish runs one polish attempt: validates the input, requires a usable
// profile, calls the polish service, and persists the outcome. The returned
// session is in state polished and carries the store-assigned history ID.
//
// The profile is re-read from the store on every call; a missing profile is a
// precondition failure, not a degraded mode.
func (m *SessionManager) StartPolish(ctx context.Context, userID uuid.UUID, rawScript string) (*models.PolishSession, error) {
	rawScript = validation.SanitizeText(rawScript)
	if rawScript == "" {
		return nil, ErrEmptyScript
	}

	profile, err := m.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileMissing
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	token := m.nextAttempt(userID)

	polished, polishErr := m.provider.PolishScript(ctx, rawScript, profile.Patterns)
	if polishErr != nil {
		m.recordFailed(ctx, userID, rawScript, "")
		return nil, &UpstreamError{Op: "polish", Cause: polishErr}
	}

	// The token check and the insert happen under the per-user lock; a newer
	// attempt blocks on token issuance until this result is persisted.
	st := m.attemptFor(userID)
	st.mu.Lock()
	if st.latest != token {
		st.mu.Unlock()
		// A newer attempt was issued while this one was in flight. The result
		// is recorded as failed and never surfaced as the active draft.
		m.recordFailed(ctx, userID, rawScript, polished)
		m.logger.Debug("polish_attempt_superseded",
			zap.String("user_id", userID.String()),
			zap.Uint64("attempt_token", token),
		)
		return nil, ErrSuperseded
	}

	session := &models.PolishSession{
		UserID:           userID,
		RawScript:        rawScript,
		AIPolishedScript: polished,
		State:            models.SessionStatePolished,
	}

	err = m.historyRepo.Create(ctx, session)
	st.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to persist polish session: %w", err)
	}

	return session, nil
}

// recordFailed persists a terminal failed session. Persistence errors here are
// logged and swallowed: the caller already has a more important error to return.
func (m *SessionManager) recordFailed(ctx context.Context, userID uuid.UUID, rawScript, polished string) {
	session := &models.PolishSession{
		UserID:           userID,
		RawScript:        rawScript,
		AIPolishedScript: polished,
		State:            models.SessionStateFailed,
	}
	if err := m.historyRepo.Create(ctx, session); err != nil {
		m.logger.Warn("failed_to_record_failed_session",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}
