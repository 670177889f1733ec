package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
)

// ExampleRepository handles voice example database operations
type ExampleRepository struct {
	db *DB
}

// NewExampleRepository creates a new voice example repository
func NewExampleRepository(db *DB) *ExampleRepository {
	return &ExampleRepository{db: db}
}

// Create inserts a new voice example. The example ID is assigned by the store.
func (r *ExampleRepository) Create(ctx context.Context, example *models.StyleExample) error {
	query := `
		INSERT INTO voice_examples (id, user_id, text, quality_score, word_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	if example.ID == uuid.Nil {
		example.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		example.ID,
		example.UserID,
		example.Text,
		example.QualityScore,
		example.WordCount,
		time.Now(),
	).Scan(&example.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create voice example: %w", err)
	}

	return nil
}

// GetByID retrieves a voice example by ID
func (r *ExampleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StyleExample, error) {
	example := &models.StyleExample{}

	query := `
		SELECT id, user_id, text, quality_score, word_count, created_at
		FROM voice_examples
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&example.ID,
		&example.UserID,
		&example.Text,
		&example.QualityScore,
		&example.WordCount,
		&example.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("voice example not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voice example: %w", err)
	}

	return example, nil
}

// GetByUserID retrieves all voice examples for a user, newest first
func (r *ExampleRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.StyleExample, error) {
	query := `
		SELECT id, user_id, text, quality_score, word_count, created_at
		FROM voice_examples
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query voice examples: %w", err)
	}
	defer rows.Close()

	var examples []*models.StyleExample
	for rows.Next() {
		example := &models.StyleExample{}
		err := rows.Scan(
			&example.ID,
			&example.UserID,
			&example.Text,
			&example.QualityScore,
			&example.WordCount,
			&example.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voice example: %w", err)
		}
		examples = append(examples, example)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voice examples: %w", err)
	}

	return examples, nil
}

// CountByUserID returns the number of voice examples for a user
func (r *ExampleRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM voice_examples WHERE user_id = $1`

	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count voice examples: %w", err)
	}

	return count, nil
}

// LatestCreatedAt returns the creation time of the newest voice example for a user,
// or nil when the user has no examples
func (r *ExampleRepository) LatestCreatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var latest sql.NullTime
	query := `SELECT MAX(created_at) FROM voice_examples WHERE user_id = $1`

	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to get latest voice example time: %w", err)
	}

	if !latest.Valid {
		return nil, nil
	}

	return &latest.Time, nil
}

// Delete deletes a voice example by ID
func (r *ExampleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM voice_examples WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete voice example: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("voice example not found")
	}

	return nil
}
