package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/internal/middleware"
	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
	"github.com/studyloop/studyloop-backend/internal/services"
)

type TopicHandler struct {
	log            *logger.Logger
	topicService   services.TopicService
	historyService services.HistoryService
}

func NewTopicHandler(log *logger.Logger, tsvc services.TopicService, hsvc services.HistoryService) *TopicHandler {
	return &TopicHandler{
		log:            log.With("handler", "TopicHandler"),
		topicService:   tsvc,
		historyService: hsvc,
	}
}

type createTopicRequest struct {
	Title string `json:"title" binding:"required"`
}

// POST /api/topics
func (h *TopicHandler) CreateTopic(c *gin.Context) {
	var req createTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	topic, err := h.topicService.Create(c.Request.Context(), middleware.UserID(c), req.Title)
	if err != nil {
		RespondMappedError(c, err)
		return
	}
	RespondCreated(c, topic)
}

// GET /api/topics
func (h *TopicHandler) ListTopics(c *gin.Context) {
	topics, err := h.topicService.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondMappedError(c, err)
		return
	}
	RespondOK(c, topics)
}

// GET /api/topics/:id
func (h *TopicHandler) GetTopic(c *gin.Context) {
	topicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	topic, err := h.topicService.Get(c.Request.Context(), topicID)
	if err != nil {
		RespondMappedError(c, err)
		return
	}
	RespondOK(c, topic)
}

// DELETE /api/topics/:id
func (h *TopicHandler) DeleteTopic(c *gin.Context) {
	topicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.topicService.Delete(c.Request.Context(), topicID); err != nil {
		RespondMappedError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/topics/:id/history
func (h *TopicHandler) GetHistory(c *gin.Context) {
	topicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	entries, err := h.historyService.TopicHistory(c.Request.Context(), topicID)
	if err != nil {
		RespondMappedError(c, err)
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}

// GET /api/topics/:id/sources
func (h *TopicHandler) GetSourceStats(c *gin.Context) {
	topicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	stats, err := h.historyService.SourcesWithStats(c.Request.Context(), topicID)
	if err != nil {
		RespondMappedError(c, err)
		return
	}
	RespondOK(c, gin.H{"sources": stats})
}

// pathUUID parses the named path parameter, responding 400 itself on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_"+name, apperrors.ErrInvalidArgument)
		return uuid.Nil, false
	}
	return id, true
}
