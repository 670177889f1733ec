package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/scriptpolish/scriptpolish-api/internal/models"
)

func TestStartPolishEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("returns polished session", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.seedProfile(t, 3)

		rec := env.do(t, http.MethodPost, "/polish", StartPolishRequest{RawScript: "my rough draft"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body: %s", rec.Code, rec.Body.String())
		}

		var session models.PolishSession
		decodeData(t, rec, &session)
		if session.AIPolishedScript != "polished my rough draft" {
			t.Errorf("AIPolishedScript = %q", session.AIPolishedScript)
		}
		if session.State != models.SessionStatePolished {
			t.Errorf("State = %v, want polished", session.State)
		}
		if session.UserID != env.user.ID {
			t.Errorf("UserID = %v, want %v", session.UserID, env.user.ID)
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.doAnonymous(t, http.MethodPost, "/polish")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("missing profile is a precondition failure", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/polish", StartPolishRequest{RawScript: "draft"})
		if rec.Code != http.StatusPreconditionFailed {
			t.Errorf("status = %d, want 412, body: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("blank script rejected", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.seedProfile(t, 3)

		// Whitespace passes struct validation but fails sanitization
		rec := env.do(t, http.MethodPost, "/polish", StartPolishRequest{RawScript: "   \n\t "})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}

		rec = env.do(t, http.MethodPost, "/polish", StartPolishRequest{RawScript: ""})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("empty status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid body rejected", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.seedProfile(t, 3)

		rec := env.do(t, http.MethodPost, "/polish", "not an object")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("upstream failure maps to bad gateway", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.seedProfile(t, 3)
		env.provider.polishScriptFunc = func(ctx context.Context, rawScript string, patterns json.RawMessage) (string, error) {
			return "", errors.New("model unavailable")
		}

		rec := env.do(t, http.MethodPost, "/polish", StartPolishRequest{RawScript: "draft"})
		if rec.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502, body: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestSaveCorrectionEndpoint(t *testing.T) {
	t.Parallel()

	seedSession := func(t *testing.T, env *testEnv, state models.SessionState) *models.PolishSession {
		t.Helper()
		session := &models.PolishSession{
			UserID:           env.user.ID,
			RawScript:        "raw",
			AIPolishedScript: "polished",
			State:            state,
		}
		if err := env.historyRepo.Create(context.Background(), session); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		return session
	}

	t.Run("commits correction and returns example", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := seedSession(t, env, models.SessionStatePolished)

		rec := env.do(t, http.MethodPost, "/polish/"+session.ID.String()+"/correction",
			SaveCorrectionRequest{AIPolishedScript: "polished", UserFinalScript: "the version I actually want"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body: %s", rec.Code, rec.Body.String())
		}

		var example models.StyleExample
		decodeData(t, rec, &example)
		if example.QualityScore != models.HumanAuthoredQualityScore {
			t.Errorf("QualityScore = %d, want %d", example.QualityScore, models.HumanAuthoredQualityScore)
		}
		if example.WordCount != 5 {
			t.Errorf("WordCount = %d, want 5", example.WordCount)
		}

		stored, err := env.historyRepo.GetByID(context.Background(), session.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if stored.State != models.SessionStateCorrected {
			t.Errorf("stored State = %v, want corrected", stored.State)
		}
	})

	t.Run("missing polished text rejected", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := seedSession(t, env, models.SessionStatePolished)

		rec := env.do(t, http.MethodPost, "/polish/"+session.ID.String()+"/correction",
			SaveCorrectionRequest{UserFinalScript: "final"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400, body: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("invalid session id rejected", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/polish/not-a-uuid/correction",
			SaveCorrectionRequest{AIPolishedScript: "polished", UserFinalScript: "final"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown session not found", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/polish/7f9c24e8-3b12-4f8a-9d25-1b0c8e6a1234/correction",
			SaveCorrectionRequest{AIPolishedScript: "polished", UserFinalScript: "final"})
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("second correction conflicts", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := seedSession(t, env, models.SessionStatePolished)

		first := env.do(t, http.MethodPost, "/polish/"+session.ID.String()+"/correction",
			SaveCorrectionRequest{AIPolishedScript: "polished", UserFinalScript: "first"})
		if first.Code != http.StatusCreated {
			t.Fatalf("first status = %d, want 201", first.Code)
		}

		second := env.do(t, http.MethodPost, "/polish/"+session.ID.String()+"/correction",
			SaveCorrectionRequest{AIPolishedScript: "polished", UserFinalScript: "second"})
		if second.Code != http.StatusConflict {
			t.Errorf("second status = %d, want 409", second.Code)
		}
	})

	t.Run("failed session conflicts", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		session := seedSession(t, env, models.SessionStateFailed)

		rec := env.do(t, http.MethodPost, "/polish/"+session.ID.String()+"/correction",
			SaveCorrectionRequest{AIPolishedScript: "polished", UserFinalScript: "final"})
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})
}
