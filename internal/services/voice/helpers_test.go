package voice

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scriptpolish/scriptpolish-api/internal/database"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
)

// mockAIProvider is a mock implementation of ai.AIProvider
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

// mockExampleRepo is an in-memory ExampleRepositoryInterface
type mockExampleRepo struct {
	mu       sync.Mutex
	examples []*models.StyleExample
}

func (m *mockExampleRepo) Create(ctx context.Context, example *models.StyleExample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if example.ID == uuid.Nil {
		example.ID = uuid.New()
	}
	m.examples = append(m.examples, example)
	return nil
}

func (m *mockExampleRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StyleExample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.examples {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockExampleRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.StyleExample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.StyleExample
	for _, e := range m.examples {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockExampleRepo) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.examples {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *mockExampleRepo) LatestCreatedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.examples {
		if e.ID == id {
			m.examples = append(m.examples[:i], m.examples[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

var _ database.ExampleRepositoryInterface = (*mockExampleRepo)(nil)

// mockProfileRepo is an in-memory ProfileRepositoryInterface
type mockProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*models.VoiceProfile
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[uuid.UUID]*models.VoiceProfile)}
}

func (m *mockProfileRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.VoiceProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (m *mockProfileRepo) Replace(ctx context.Context, profile *models.VoiceProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.UserID] = profile
	return nil
}

var _ database.ProfileRepositoryInterface = (*mockProfileRepo)(nil)

// mockHistoryRepo is an in-memory HistoryRepositoryInterface. Corrections go
// through the same conditional transition as the real store: only a session
// still in state polished can be corrected, all other attempts conflict.
type mockHistoryRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.PolishSession
	examples *mockExampleRepo

	createErr error
	// beforeCreate fires at the top of Create, outside the repo lock. Set it
	// before starting concurrent calls.
	beforeCreate func(*models.PolishSession)
	createOrder  []string
}

func newMockHistoryRepo(examples *mockExampleRepo) *mockHistoryRepo {
	return &mockHistoryRepo{
		sessions: make(map[uuid.UUID]*models.PolishSession),
		examples: examples,
	}
}

func (m *mockHistoryRepo) Create(ctx context.Context, session *models.PolishSession) error {
	if m.beforeCreate != nil {
		m.beforeCreate(session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = time.Now()
	stored := *session
	m.sessions[session.ID] = &stored
	m.createOrder = append(m.createOrder, session.RawScript)
	return nil
}

func (m *mockHistoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PolishSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (m *mockHistoryRepo) GetByUserIDPaginated(ctx context.Context, userID uuid.UUID, state string, page, pageSize int) ([]*models.PolishSession, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.PolishSession
	for _, s := range m.sessions {
		if s.UserID == userID && (state == "" || string(s.State) == state) {
			copied := *s
			all = append(all, &copied)
		}
	}
	return all, len(all), nil
}

func (m *mockHistoryRepo) CorrectAndAddExample(ctx context.Context, session *models.PolishSession, example *models.StyleExample) error {
	m.mu.Lock()
	stored, ok := m.sessions[session.ID]
	if !ok || stored.State != models.SessionStatePolished {
		m.mu.Unlock()
		return database.ErrSessionStateConflict
	}
	stored.State = models.SessionStateCorrected
	text := example.Text
	stored.UserFinalScript = &text
	session.State = stored.State
	session.UserFinalScript = stored.UserFinalScript
	m.mu.Unlock()

	if example.ID == uuid.Nil {
		example.ID = uuid.New()
	}
	return m.examples.Create(ctx, example)
}

var _ database.HistoryRepositoryInterface = (*mockHistoryRepo)(nil)

// corpusOf seeds an example repo with n examples for a user
func corpusOf(repo *mockExampleRepo, userID uuid.UUID, n int) {
	for i := 0; i < n; i++ {
		repo.examples = append(repo.examples, &models.StyleExample{
			ID:           uuid.New(),
			UserID:       userID,
			Text:         "Hello there, this is sample text.",
			QualityScore: models.HumanAuthoredQualityScore,
			WordCount:    6,
			CreatedAt:    time.Now().Add(-time.Duration(n-i) * time.Minute),
		})
	}
}
