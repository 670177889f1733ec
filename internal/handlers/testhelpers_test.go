package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/scriptpolish/scriptpolish-api/internal/database"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
	"github.com/scriptpolish/scriptpolish-api/internal/request"
	"github.com/scriptpolish/scriptpolish-api/internal/services/voice"
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

	createErr error
}

func (m *mockExampleRepo) Create(ctx context.Context, example *models.StyleExample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if example.ID == uuid.Nil {
		example.ID = uuid.New()
	}
	example.CreatedAt = time.Now()
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

// mockHistoryRepo is an in-memory HistoryRepositoryInterface with the same
// conditional correction transition as the real store
type mockHistoryRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.PolishSession
	examples *mockExampleRepo

	paginatedErr error
}

func newMockHistoryRepo(examples *mockExampleRepo) *mockHistoryRepo {
	return &mockHistoryRepo{
		sessions: make(map[uuid.UUID]*models.PolishSession),
		examples: examples,
	}
}

func (m *mockHistoryRepo) Create(ctx context.Context, session *models.PolishSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = time.Now()
	stored := *session
	m.sessions[session.ID] = &stored
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
	if m.paginatedErr != nil {
		return nil, 0, m.paginatedErr
	}
	var all []*models.PolishSession
	for _, s := range m.sessions {
		if s.UserID == userID && (state == "" || string(s.State) == state) {
			copied := *s
			all = append(all, &copied)
		}
	}
	total := len(all)
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []*models.PolishSession{}, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
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

// testEnv bundles the handlers and backing stores for request tests
type testEnv struct {
	user        *models.User
	router      *mux.Router
	exampleRepo *mockExampleRepo
	profileRepo *mockProfileRepo
	historyRepo *mockHistoryRepo
	provider    *mockAIProvider
}

// newTestEnv wires the full handler surface over in-memory stores. Requests
// are authenticated by injecting the test user into the request context.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	user := &models.User{
		ID:            uuid.New(),
		Email:         "writer@example.com",
		EmailVerified: true,
	}

	exampleRepo := &mockExampleRepo{}
	profileRepo := newMockProfileRepo()
	historyRepo := newMockHistoryRepo(exampleRepo)
	provider := &mockAIProvider{}
	logger := zap.NewNop()

	gate := voice.NewGate(exampleRepo, profileRepo)
	sessions := voice.NewSessionManager(provider, historyRepo, profileRepo, logger)
	coordinator := voice.NewCoordinator(provider, exampleRepo, profileRepo, gate, logger)
	recorder := voice.NewRecorder(historyRepo, logger)

	r := mux.NewRouter()
	NewPolishHandler(sessions, recorder).RegisterRoutes(r.PathPrefix("/polish").Subrouter())
	NewProfileHandler(gate, coordinator).RegisterRoutes(r.PathPrefix("/profile").Subrouter())
	NewExampleHandler(exampleRepo).RegisterRoutes(r.PathPrefix("/examples").Subrouter())
	NewHistoryHandler(historyRepo).RegisterRoutes(r.PathPrefix("/history").Subrouter())

	return &testEnv{
		user:        user,
		router:      r,
		exampleRepo: exampleRepo,
		profileRepo: profileRepo,
		historyRepo: historyRepo,
		provider:    provider,
	}
}

// seedProfile stores a ready profile for the test user
func (env *testEnv) seedProfile(t *testing.T, exampleCount int) time.Time {
	t.Helper()
	extractedAt := time.Now().UTC().Truncate(time.Second)
	env.profileRepo.profiles[env.user.ID] = &models.VoiceProfile{
		UserID:       env.user.ID,
		Patterns:     []byte(`{"tone":"casual"}`),
		ExtractedAt:  &extractedAt,
		ExampleCount: exampleCount,
	}
	return extractedAt
}

// seedExamples stores n examples for the test user
func (env *testEnv) seedExamples(t *testing.T, n int) []*models.StyleExample {
	t.Helper()
	var out []*models.StyleExample
	for i := 0; i < n; i++ {
		e := &models.StyleExample{
			ID:           uuid.New(),
			UserID:       env.user.ID,
			Text:         "Sample script text for the corpus.",
			QualityScore: models.HumanAuthoredQualityScore,
			WordCount:    6,
			CreatedAt:    time.Now().Add(-time.Duration(n-i) * time.Minute),
		}
		env.exampleRepo.examples = append(env.exampleRepo.examples, e)
		out = append(out, e)
	}
	return out
}

// do runs an authenticated request through the router and returns the recorder
func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(request.WithUser(req.Context(), env.user))

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// doAnonymous runs a request with no user attached
func (env *testEnv) doAnonymous(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// decodeData decodes the data field of a success envelope into out
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response envelope: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope, body: %s", rec.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}
