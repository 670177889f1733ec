package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
)

// ExampleRepositoryInterface defines the interface for voice example repository operations
// This interface enables better testability by allowing mock implementations
type ExampleRepositoryInterface interface {
	Create(ctx context.Context, example *models.StyleExample) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StyleExample, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.StyleExample, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int, error)
	LatestCreatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProfileRepositoryInterface defines the interface for voice profile repository operations
type ProfileRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.VoiceProfile, error)
	Replace(ctx context.Context, profile *models.VoiceProfile) error
}

// HistoryRepositoryInterface defines the interface for polish history repository operations
type HistoryRepositoryInterface interface {
	Create(ctx context.Context, session *models.PolishSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PolishSession, error)
	GetByUserIDPaginated(ctx context.Context, userID uuid.UUID, state string, page, pageSize int) ([]*models.PolishSession, int, error)
	CorrectAndAddExample(ctx context.Context, session *models.PolishSession, example *models.StyleExample) error
}

// Ensure concrete types implement the interfaces
var (
	_ ExampleRepositoryInterface = (*ExampleRepository)(nil)
	_ ProfileRepositoryInterface = (*ProfileRepository)(nil)
	_ HistoryRepositoryInterface = (*HistoryRepository)(nil)
)
