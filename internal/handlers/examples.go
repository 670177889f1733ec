package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/scriptpolish/scriptpolish-api/internal/database"
	"github.com/scriptpolish/scriptpolish-api/internal/middleware"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
	"github.com/scriptpolish/scriptpolish-api/internal/services/voice"
	"github.com/scriptpolish/scriptpolish-api/internal/validation"
)

// ExampleHandler handles voice example corpus requests
type ExampleHandler struct {
	exampleRepo   database.ExampleRepositoryInterface
	corpusChanged voice.CorpusChangeHandler
}

// NewExampleHandler creates a new example handler
func NewExampleHandler(exampleRepo database.ExampleRepositoryInterface) *ExampleHandler {
	return &ExampleHandler{exampleRepo: exampleRepo}
}

// SetCorpusChangeHandler registers a handler called after each corpus mutation.
// Handler errors are logged, never surfaced to the user.
func (h *ExampleHandler) SetCorpusChangeHandler(handler voice.CorpusChangeHandler) {
	h.corpusChanged = handler
}

// RegisterRoutes registers example routes on the given router
// The router should already have the /examples prefix
func (h *ExampleHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListExamples).Methods("GET")
	r.HandleFunc("", h.AddExample).Methods("POST")
	r.HandleFunc("/{id}", h.DeleteExample).Methods("DELETE")
}

// AddExampleRequest represents a direct example import request
type AddExampleRequest struct {
	Text string `json:"text" validate:"required,min=1,max=100000"`
}

// ListExamplesResponse lists the user's current example corpus
type ListExamplesResponse struct {
	Examples []*models.StyleExample `json:"examples"`
	Total    int                    `json:"total"`
}

// ListExamples lists the authenticated user's voice examples
func (h *ExampleHandler) ListExamples(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	examples, err := h.exampleRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve examples")
		return
	}
	if examples == nil {
		examples = []*models.StyleExample{}
	}

	respondJSON(w, http.StatusOK, ListExamplesResponse{
		Examples: examples,
		Total:    len(examples),
	})
}

// AddExample imports a pre-existing script directly into the voice corpus.
// Imported scripts count as human-authored, same as committed corrections.
func (h *ExampleHandler) AddExample(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req AddExampleRequest
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

	text := validation.SanitizeText(req.Text)
	if text == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Text is required and cannot be empty after sanitization")
		return
	}

	ctx := r.Context()
	example := &models.StyleExample{
		ID:           uuid.New(),
		UserID:       user.ID,
		Text:         text,
		QualityScore: models.HumanAuthoredQualityScore,
		WordCount:    voice.WordCount(text),
	}

	if err := h.exampleRepo.Create(ctx, example); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create example")
		return
	}

	h.notifyCorpusChanged(r, user.ID)

	respondJSON(w, http.StatusCreated, example)
}

// DeleteExample removes an example from the user's corpus. The stored profile
// is untouched; it simply goes stale until the next analysis.
func (h *ExampleHandler) DeleteExample(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid example ID")
		return
	}

	ctx := r.Context()
	example, err := h.exampleRepo.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Example not found")
		return
	}

	// Examples belonging to other users look identical to missing ones
	if example.UserID != user.ID {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Example not found")
		return
	}

	if err := h.exampleRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Example not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete example")
		return
	}

	h.notifyCorpusChanged(r, user.ID)

	respondJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}

func (h *ExampleHandler) notifyCorpusChanged(r *http.Request, userID uuid.UUID) {
	if h.corpusChanged == nil {
		return
	}
	if err := h.corpusChanged(r.Context(), userID); err != nil {
		log.Printf("Corpus change handler failed for user %s: %v", userID, err)
	}
}
