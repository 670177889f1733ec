package workers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scriptpolish/scriptpolish-api/internal/database"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
	"github.com/scriptpolish/scriptpolish-api/internal/queue"
	"github.com/scriptpolish/scriptpolish-api/internal/services/voice"
)

// mockAIProvider is a mock implementation of AIProvider
type mockAIProvider struct {
	polishScriptFunc    func(ctx context.Context, rawScript string, patterns json.RawMessage) (string, error)
	extractPatternsFunc func(ctx context.Context, examples []*models.StyleExample) (json.RawMessage, error)
}

func (m *mockAIProvider) PolishScript(ctx context.Context, rawScript string, patterns json.RawMessage) (string, error) {
	if m.polishScriptFunc != nil {
		return m.polishScriptFunc(ctx, rawScript, patterns)
	}
	return "polished " + rawScript, nil
}

func (m *mockAIProvider) ExtractPatterns(ctx context.Context, examples []*models.StyleExample) (json.RawMessage, error) {
	if m.extractPatternsFunc != nil {
		return m.extractPatternsFunc(ctx, examples)
	}
	return json.RawMessage(`{"tone":"neutral"}`), nil
}

// mockExampleRepo is a mock implementation of ExampleRepositoryInterface
type mockExampleRepo struct {
	examples []*models.StyleExample
}

func (m *mockExampleRepo) Create(ctx context.Context, example *models.StyleExample) error {
	m.examples = append(m.examples, example)
	return nil
}

func (m *mockExampleRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StyleExample, error) {
	for _, e := range m.examples {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockExampleRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.StyleExample, error) {
	var out []*models.StyleExample
	for _, e := range m.examples {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockExampleRepo) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for _, e := range m.examples {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *mockExampleRepo) LatestCreatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	var latest *time.Time
	for _, e := range m.examples {
		if e.UserID == userID {
			t := e.CreatedAt
			if latest == nil || t.After(*latest) {
				latest = &t
			}
		}
	}
	return latest, nil
}

func (m *mockExampleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

var _ database.ExampleRepositoryInterface = (*mockExampleRepo)(nil)

// mockProfileRepo is a mock implementation of ProfileRepositoryInterface
type mockProfileRepo struct {
	profiles map[uuid.UUID]*models.VoiceProfile
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[uuid.UUID]*models.VoiceProfile)}
}

func (m *mockProfileRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.VoiceProfile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (m *mockProfileRepo) Replace(ctx context.Context, profile *models.VoiceProfile) error {
	m.profiles[profile.UserID] = profile
	return nil
}

var _ database.ProfileRepositoryInterface = (*mockProfileRepo)(nil)

func newTestCoordinator(provider *mockAIProvider, exampleRepo *mockExampleRepo, profileRepo *mockProfileRepo) *voice.Coordinator {
	gate := voice.NewGate(exampleRepo, profileRepo)
	return voice.NewCoordinator(provider, exampleRepo, profileRepo, gate, zap.NewNop())
}

func corpusOf(userID uuid.UUID, n int) []*models.StyleExample {
	examples := make([]*models.StyleExample, 0, n)
	for i := 0; i < n; i++ {
		examples = append(examples, &models.StyleExample{
			ID:           uuid.New(),
			UserID:       userID,
			Text:         "example script body",
			QualityScore: models.HumanAuthoredQualityScore,
			WordCount:    3,
			CreatedAt:    time.Now().Add(-time.Duration(n-i) * time.Minute),
		})
	}
	return examples
}

func TestProcessVoiceAnalysisJob_Success(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	exampleRepo := &mockExampleRepo{examples: corpusOf(userID, 3)}
	profileRepo := newMockProfileRepo()
	provider := &mockAIProvider{}

	analyzer := NewVoiceAnalyzer(newTestCoordinator(provider, exampleRepo, profileRepo), nil)

	job := queue.NewJob(queue.JobTypeVoiceAnalysis, userID)
	if err := analyzer.ProcessVoiceAnalysisJob(context.Background(), job); err != nil {
		t.Fatalf("ProcessVoiceAnalysisJob: %v", err)
	}

	profile, err := profileRepo.GetByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("Expected profile to be stored: %v", err)
	}
	if profile.ExampleCount != 3 {
		t.Errorf("Expected example count snapshot of 3, got %d", profile.ExampleCount)
	}
}

func TestProcessVoiceAnalysisJob_SkipsInsufficientExamples(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	exampleRepo := &mockExampleRepo{examples: corpusOf(userID, 1)}
	profileRepo := newMockProfileRepo()
	provider := &mockAIProvider{
		extractPatternsFunc: func(ctx context.Context, examples []*models.StyleExample) (json.RawMessage, error) {
			t.Error("ExtractPatterns should not be called with too few examples")
			return nil, errors.New("should not happen")
		},
	}

	analyzer := NewVoiceAnalyzer(newTestCoordinator(provider, exampleRepo, profileRepo), nil)

	job := queue.NewJob(queue.JobTypeVoiceAnalysis, userID)
	// Insufficient examples is a skip, not a failure: the job must not retry
	if err := analyzer.ProcessVoiceAnalysisJob(context.Background(), job); err != nil {
		t.Fatalf("Expected nil error for insufficient examples, got %v", err)
	}
}

func TestProcessVoiceAnalysisJob_ProviderError(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	exampleRepo := &mockExampleRepo{examples: corpusOf(userID, 2)}
	profileRepo := newMockProfileRepo()
	provider := &mockAIProvider{
		extractPatternsFunc: func(ctx context.Context, examples []*models.StyleExample) (json.RawMessage, error) {
			return nil, errors.New("upstream exploded")
		},
	}

	analyzer := NewVoiceAnalyzer(newTestCoordinator(provider, exampleRepo, profileRepo), nil)

	job := queue.NewJob(queue.JobTypeVoiceAnalysis, userID)
	if err := analyzer.ProcessVoiceAnalysisJob(context.Background(), job); err == nil {
		t.Fatal("Expected error from failed extraction")
	}

	if _, err := profileRepo.GetByUserID(context.Background(), userID); !errors.Is(err, sql.ErrNoRows) {
		t.Error("Expected no profile to be stored after a failed extraction")
	}
}
