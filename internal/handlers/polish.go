package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/scriptpolish/scriptpolish-api/internal/middleware"
	"github.com/scriptpolish/scriptpolish-api/internal/services/voice"
	"github.com/scriptpolish/scriptpolish-api/internal/validation"
)

const (
	// MaxScriptLength is the maximum length for submitted script text
	MaxScriptLength = 100000
)

// PolishHandler handles polish session requests
type PolishHandler struct {
	sessions *voice.SessionManager
	recorder *voice.Recorder
}

// NewPolishHandler creates a new polish handler
func NewPolishHandler(sessions *voice.SessionManager, recorder *voice.Recorder) *PolishHandler {
	return &PolishHandler{sessions: sessions, recorder: recorder}
}

// RegisterRoutes registers polish routes on the given router
// The router should already have the /polish prefix
func (h *PolishHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.StartPolish).Methods("POST")
	r.HandleFunc("/{id}/correction", h.SaveCorrection).Methods("POST")
}

// StartPolishRequest represents a polish request
type StartPolishRequest struct {
	RawScript string `json:"raw_script" validate:"required,min=1,max=100000"`
}

// SaveCorrectionRequest represents a correction commit request. The client
// echoes back the polished text it presented for editing alongside the
// user's final version.
type SaveCorrectionRequest struct {
	AIPolishedScript string `json:"ai_polished_script" validate:"required,min=1,max=100000"`
	UserFinalScript  string `json:"user_final_script" validate:"required,min=1,max=100000"`
}

// StartPolish runs one polish attempt for the authenticated user
func (h *PolishHandler) StartPolish(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req StartPolishRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	session, err := h.sessions.StartPolish(r.Context(), user.ID, req.RawScript)
	if err != nil {
		respondVoiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// SaveCorrection commits the user's final edit for a polish session
func (h *PolishHandler) SaveCorrection(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	historyID, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid session ID")
		return
	}

	var req SaveCorrectionRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	example, err := h.recorder.SaveCorrection(r.Context(), user.ID, historyID, req.AIPolishedScript, req.UserFinalScript)
	if err != nil {
		respondVoiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, example)
}

// respondVoiceError maps orchestration errors to HTTP responses
func respondVoiceError(w http.ResponseWriter, err error) {
	var upstream *voice.UpstreamError

	switch {
	case errors.Is(err, voice.ErrEmptyScript):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Script text is required and cannot be empty")
	case errors.Is(err, voice.ErrProfileMissing):
		respondJSONError(w, http.StatusPreconditionFailed, "Precondition Failed", "No voice profile exists yet; run analysis first")
	case errors.Is(err, voice.ErrInsufficientExamples):
		respondJSONError(w, http.StatusPreconditionFailed, "Precondition Failed", fmt.Sprintf("At least %d voice examples are required for analysis", voice.MinExamplesForAnalysis))
	case errors.Is(err, voice.ErrAnalysisInProgress):
		respondJSONError(w, http.StatusConflict, "Conflict", "Voice analysis is already in progress")
	case errors.Is(err, voice.ErrSuperseded):
		respondJSONError(w, http.StatusConflict, "Conflict", "A newer polish attempt superseded this one")
	case errors.Is(err, voice.ErrInvalidSessionState):
		respondJSONError(w, http.StatusConflict, "Conflict", "Session is not awaiting correction")
	case errors.Is(err, voice.ErrSessionNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Polish session not found")
	case errors.Is(err, voice.ErrExampleNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Voice example not found")
	case errors.As(err, &upstream):
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "AI service request failed")
	default:
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Operation failed")
	}
}
