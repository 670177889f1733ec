package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/scriptpolish/scriptpolish-api/internal/database"
	"github.com/scriptpolish/scriptpolish-api/internal/middleware"
	"github.com/scriptpolish/scriptpolish-api/internal/models"
	"github.com/scriptpolish/scriptpolish-api/internal/validation"
)

const (
	// DefaultPageSize is the default page size for pagination
	DefaultPageSize = 50
	// MaxPageSize is the maximum page size for pagination
	MaxPageSize = 200
)

// HistoryHandler handles polish history requests
type HistoryHandler struct {
	historyRepo database.HistoryRepositoryInterface
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(historyRepo database.HistoryRepositoryInterface) *HistoryHandler {
	return &HistoryHandler{historyRepo: historyRepo}
}

// RegisterRoutes registers history routes on the given router
// The router should already have the /history prefix
func (h *HistoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListHistory).Methods("GET")
	r.HandleFunc("/{id}", h.GetSession).Methods("GET")
}

// historyFilter carries the optional filters from the list query string
type historyFilter struct {
	State string `validate:"omitempty,session_state"`
}

// ListHistoryResponse represents the paginated response for listing polish history
type ListHistoryResponse struct {
	Sessions   []*models.PolishSession `json:"sessions"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"page_size"`
	Total      int                     `json:"total"`
	TotalPages int                     `json:"total_pages"`
}

// ListHistory lists polish sessions for the authenticated user with pagination
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	// Parse pagination parameters
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	pageSize := DefaultPageSize
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 {
			if parsed > MaxPageSize {
				pageSize = MaxPageSize
			} else {
				pageSize = parsed
			}
		}
	}

	filter := historyFilter{State: r.URL.Query().Get("state")}
	if err := validation.Validate.Struct(filter); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid state filter")
		return
	}

	sessions, total, err := h.historyRepo.GetByUserIDPaginated(r.Context(), user.ID, filter.State, page, pageSize)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve history")
		return
	}
	if sessions == nil {
		sessions = []*models.PolishSession{}
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	respondJSON(w, http.StatusOK, ListHistoryResponse{
		Sessions:   sessions,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	})
}

// GetSession retrieves a polish session by ID
func (h *HistoryHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid session ID")
		return
	}

	session, err := h.historyRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Session not found")
		return
	}

	// Sessions belonging to other users look identical to missing ones
	if session.UserID != user.ID {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Session not found")
		return
	}

	respondJSON(w, http.StatusOK, session)
}
