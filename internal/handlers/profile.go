package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/scriptpolish/scriptpolish-api/internal/middleware"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
	"github.com/scriptpolish/scriptpolish-api/internal/services/voice"
)

// ProfileHandler handles voice profile requests
type ProfileHandler struct {
	gate        *voice.Gate
	coordinator *voice.Coordinator
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(gate *voice.Gate, coordinator *voice.Coordinator) *ProfileHandler {
	return &ProfileHandler{gate: gate, coordinator: coordinator}
}

// RegisterRoutes registers profile routes on the given router
// The router should already have the /profile prefix
func (h *ProfileHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetProfileStatus).Methods("GET")
	r.HandleFunc("/analyze", h.AnalyzeVoice).Methods("POST")
}

// ProfileStatusResponse is the profile status plus derived freshness
type ProfileStatusResponse struct {
	State        models.ProfileState `json:"state"`
	ExtractedAt  *time.Time          `json:"extracted_at,omitempty"`
	ExampleCount int                 `json:"example_count"`
	Fresh        bool                `json:"fresh"`
}

// AnalyzeVoiceResponse reports a completed analysis run
type AnalyzeVoiceResponse struct {
	ExtractedAt time.Time `json:"extracted_at"`
}

// GetProfileStatus reports whether the user's profile is usable, missing, or
// below the example threshold, plus whether it reflects the current corpus
func (h *ProfileHandler) GetProfileStatus(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	status, err := h.gate.CheckUsability(ctx, user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to check profile status")
		return
	}

	fresh := false
	if status.State == models.ProfileStateReady {
		fresh, err = h.gate.IsFresh(ctx, user.ID)
		if err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to check profile freshness")
			return
		}
	}

	respondJSON(w, http.StatusOK, ProfileStatusResponse{
		State:        status.State,
		ExtractedAt:  status.ExtractedAt,
		ExampleCount: status.ExampleCount,
		Fresh:        fresh,
	})
}

// AnalyzeVoice recomputes the user's voice profile from their current corpus
func (h *ProfileHandler) AnalyzeVoice(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	extractedAt, err := h.coordinator.AnalyzeVoice(r.Context(), user.ID)
	if err != nil {
		respondVoiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AnalyzeVoiceResponse{ExtractedAt: extractedAt})
}
