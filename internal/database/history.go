package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
)

// ErrSessionStateConflict is returned when a conditional state transition matched no row
// because the session was not in the expected state
var ErrSessionStateConflict = fmt.Errorf("session not in expected state")

// HistoryRepository handles polish history database operations
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new polish history repository
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create inserts a new polish session row. The history ID is assigned here,
// which is why pending attempts are never persisted: an ID only exists once
// the polish call has resolved one way or the other.
func (r *HistoryRepository) Create(ctx context.Context, session *models.PolishSession) error {
	query := `
		INSERT INTO polish_history (id, user_id, raw_script, ai_polished_script, user_final_script, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	var finalScript sql.NullString
	if session.UserFinalScript != nil {
		finalScript = sql.NullString{String: *session.UserFinalScript, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		session.ID,
		session.UserID,
		session.RawScript,
		session.AIPolishedScript,
		finalScript,
		session.State,
		time.Now(),
	).Scan(&session.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create polish session: %w", err)
	}

	return nil
}

// GetByID retrieves a polish session by ID
func (r *HistoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PolishSession, error) {
	session := &models.PolishSession{}
	var finalScript sql.NullString

	query := `
		SELECT id, user_id, raw_script, ai_polished_script, user_final_script, state, created_at
		FROM polish_history
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.RawScript,
		&session.AIPolishedScript,
		&finalScript,
		&session.State,
		&session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("polish session not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get polish session: %w", err)
	}

	if finalScript.Valid {
		session.UserFinalScript = &finalScript.String
	}

	return session, nil
}

// GetByUserIDPaginated retrieves polish sessions for a user, newest first, with
// pagination. An empty state matches every session; a non-empty state narrows
// the listing to that state. Returns the page of sessions and the total count.
func (r *HistoryRepository) GetByUserIDPaginated(ctx context.Context, userID uuid.UUID, state string, page, pageSize int) ([]*models.PolishSession, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM polish_history WHERE user_id = $1 AND ($2 = '' OR state = $2)`
	if err := r.db.QueryRowContext(ctx, countQuery, userID, state).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count polish sessions: %w", err)
	}

	query := `
		SELECT id, user_id, raw_script, ai_polished_script, user_final_script, state, created_at
		FROM polish_history
		WHERE user_id = $1 AND ($2 = '' OR state = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, userID, state, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query polish sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.PolishSession
	for rows.Next() {
		session := &models.PolishSession{}
		var finalScript sql.NullString

		err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.RawScript,
			&session.AIPolishedScript,
			&finalScript,
			&session.State,
			&session.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan polish session: %w", err)
		}

		if finalScript.Valid {
			session.UserFinalScript = &finalScript.String
		}

		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating polish sessions: %w", err)
	}

	return sessions, total, nil
}

// CorrectAndAddExample commits a correction in one transaction: the session moves
// polished -> corrected via a conditional update, and the final text is inserted
// as a new voice example. Exactly one concurrent caller can win the transition;
// the rest get ErrSessionStateConflict.
func (r *HistoryRepository) CorrectAndAddExample(ctx context.Context, session *models.PolishSession, example *models.StyleExample) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			_ = rbErr
		}
	}()

	updateQuery := `
		UPDATE polish_history
		SET state = $1, user_final_script = $2
		WHERE id = $3 AND user_id = $4 AND state = $5
		RETURNING id
	`

	var updatedID uuid.UUID
	err = tx.QueryRowContext(ctx, updateQuery,
		models.SessionStateCorrected,
		example.Text,
		session.ID,
		session.UserID,
		models.SessionStatePolished,
	).Scan(&updatedID)

	if err == sql.ErrNoRows {
		return ErrSessionStateConflict
	}
	if err != nil {
		return fmt.Errorf("failed to transition polish session: %w", err)
	}

	if example.ID == uuid.Nil {
		example.ID = uuid.New()
	}

	insertQuery := `
		INSERT INTO voice_examples (id, user_id, text, quality_score, word_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err = tx.QueryRowContext(ctx, insertQuery,
		example.ID,
		example.UserID,
		example.Text,
		example.QualityScore,
		example.WordCount,
		time.Now(),
	).Scan(&example.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert voice example: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit correction: %w", err)
	}

	session.State = models.SessionStateCorrected
	text := example.Text
	session.UserFinalScript = &text

	return nil
}
