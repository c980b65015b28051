package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/studyloop/studyloop-backend/internal/middleware"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
	"github.com/studyloop/studyloop-backend/internal/realtime"
)

type EventsHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewEventsHandler(log *logger.Logger, hub *realtime.Hub) *EventsHandler {
	return &EventsHandler{
		log: log.With("handler", "EventsHandler"),
		hub: hub,
	}
}

// GET /api/events/stream
//
// SSE stream of the caller's ingestion and generation progress events.
func (h *EventsHandler) Stream(c *gin.Context) {
	sub := h.hub.Subscribe(middleware.UserID(c))
	defer h.hub.Unsubscribe(sub)
	h.hub.ServeStream(c.Writer, c.Request, sub)
}
