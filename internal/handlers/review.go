package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyloop/studyloop-backend/internal/middleware"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
	"github.com/studyloop/studyloop-backend/internal/services"
)

type ReviewHandler struct {
	log           *logger.Logger
	reviewService services.ReviewService
}

func NewReviewHandler(log *logger.Logger, rsvc services.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		log:           log.With("handler", "ReviewHandler"),
		reviewService: rsvc,
	}
}

type setSavedRequest struct {
	Saved *bool `json:"saved" binding:"required"`
}

// PATCH /api/questions/:id/saved
func (h *ReviewHandler) SetSaved(c *gin.Context) {
	questionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req setSavedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.reviewService.SetSaved(c.Request.Context(), questionID, *req.Saved); err != nil {
		RespondMappedError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type recordReviewRequest struct {
	Success *bool `json:"success" binding:"required"`
}

// POST /api/questions/:id/review
func (h *ReviewHandler) RecordReview(c *gin.Context) {
	questionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req recordReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	q, err := h.reviewService.RecordReview(c.Request.Context(), questionID, *req.Success)
	if err != nil {
		RespondMappedError(c, err)
		return
	}
	RespondOK(c, q)
}

// GET /api/review/due
func (h *ReviewHandler) DueForReview(c *gin.Context) {
	questions, err := h.reviewService.DueForReview(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondMappedError(c, err)
		return
	}
	RespondOK(c, gin.H{"questions": questions})
}
