package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cybercards/apiserver/internal/services"
	"github.com/cybercards/apiserver/internal/store"
	"github.com/cybercards/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AdminHandler provides the reviewer console endpoints.
type AdminHandler struct {
	submissionService *services.SubmissionService
}

// NewAdminHandler constructs a handler with the provided service.
func NewAdminHandler(submissionService *services.SubmissionService) *AdminHandler {
	return &AdminHandler{submissionService: submissionService}
}

// AdminRouter registers reviewer routes on the given router. All routes
// require authentication and the admin role.
func AdminRouter(
	r chi.Router,
	submissionService *services.SubmissionService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewAdminHandler(submissionService)

	r.Use(authMiddleware, RequireAdmin)
	r.Get("/submissions", handler.ListSubmissions)
	r.Get("/stats", handler.Stats)
	r.Post("/review-submission", handler.ReviewSubmission)
}

// ListSubmissions returns every submission at full fidelity, including
// the redemption code.
func (h *AdminHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.submissionService.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}
	writeJSON(w, http.StatusOK, submissions)
}

// Stats returns aggregate counts recomputed from current store state.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.submissionService.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ReviewRequest is the payload for a review decision.
type ReviewRequest struct {
	SubmissionID string `json:"submissionId"`
	Status       string `json:"status"`
	AdminNotes   string `json:"adminNotes"`
}

// ReviewResponse is the payload returned after a successful review.
type ReviewResponse struct {
	Message    string           `json:"message"`
	Submission types.Submission `json:"submission"`
}

// ReviewSubmission applies an approve/reject decision to a pending
// submission.
func (h *AdminHandler) ReviewSubmission(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.SubmissionID = strings.TrimSpace(req.SubmissionID)
	if req.SubmissionID == "" {
		writeError(w, http.StatusBadRequest, "submissionId is required")
		return
	}

	var notes *string
	if trimmed := strings.TrimSpace(req.AdminNotes); trimmed != "" {
		notes = &trimmed
	}

	submission, err := h.submissionService.Review(r.Context(), req.SubmissionID, types.Status(req.Status), notes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDecision):
			writeError(w, http.StatusBadRequest, "status must be approved or rejected")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "submission not found")
		case errors.Is(err, store.ErrAlreadyReviewed):
			writeError(w, http.StatusConflict, "submission has already been reviewed")
		default:
			writeError(w, http.StatusInternalServerError, "failed to review submission")
		}
		return
	}

	writeJSON(w, http.StatusOK, ReviewResponse{
		Message:    "submission reviewed successfully",
		Submission: submission,
	})
}
