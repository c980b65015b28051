package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/internal/middleware"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
	"github.com/studyloop/studyloop-backend/internal/services"
)

type GenerationHandler struct {
	log               *logger.Logger
	generationService services.GenerationService
}

func NewGenerationHandler(log *logger.Logger, gsvc services.GenerationService) *GenerationHandler {
	return &GenerationHandler{
		log:               log.With("handler", "GenerationHandler"),
		generationService: gsvc,
	}
}

type generateRequest struct {
	SourceIDs  []uuid.UUID `json:"source_ids,omitempty"`
	DirectText string      `json:"direct_text,omitempty"`
}

// POST /api/topics/:id/generations
//
// Empty body means bulk generation over every source of the topic. Setting
// source_ids selects a subset; setting direct_text ingests the text as a new
// source and generates from it alone.
func (h *GenerationHandler) Generate(c *gin.Context) {
	topicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
	}

	result, err := h.generationService.Generate(c.Request.Context(), services.GenerateRequest{
		TopicID:    topicID,
		UserID:     middleware.UserID(c),
		SourceIDs:  req.SourceIDs,
		DirectText: req.DirectText,
	})
	if err != nil {
		RespondMappedError(c, err)
		return
	}
	RespondCreated(c, gin.H{
		"generation": result.Generation,
		"questions":  result.Questions,
	})
}
