package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

// Hub fans progress events out to connected SSE subscribers, keyed by the
// principal the event belongs to. It is fed by Bus.StartForwarder so events
// published on any instance reach subscribers on every instance.
type Hub struct {
	mu      sync.RWMutex
	log     *logger.Logger
	clients map[uuid.UUID]map[*Subscriber]bool
}

type Subscriber struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Outbound chan ProgressEvent
	done     chan struct{}
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:     log.With("component", "Hub"),
		clients: make(map[uuid.UUID]map[*Subscriber]bool),
	}
}

func (h *Hub) Subscribe(userID uuid.UUID) *Subscriber {
	sub := &Subscriber{
		ID:       uuid.New(),
		UserID:   userID,
		Outbound: make(chan ProgressEvent, 16),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.clients[userID]
	if !ok {
		subs = make(map[*Subscriber]bool)
		h.clients[userID] = subs
	}
	subs[sub] = true
	h.log.Debug("subscriber added", "subscriber_id", sub.ID, "user_id", userID)
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.clients[sub.UserID]
	if !ok || !subs[sub] {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.clients, sub.UserID)
	}
	close(sub.done)
	h.log.Debug("subscriber removed", "subscriber_id", sub.ID)
}

// Dispatch routes one event to the principal's subscribers. Slow consumers
// lose events rather than block the forwarder.
func (h *Hub) Dispatch(ev ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.clients[ev.UserID] {
		select {
		case sub.Outbound <- ev:
		default:
			h.log.Warn("dropping progress event, subscriber buffer full", "subscriber_id", sub.ID, "stage", ev.Stage)
		}
	}
}

// ServeStream writes the subscriber's events as an SSE stream until the
// request context ends or the subscriber is removed.
func (h *Hub) ServeStream(w http.ResponseWriter, r *http.Request, sub *Subscriber) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-sub.Outbound:
			payload, err := json.Marshal(ev)
			if err != nil {
				h.log.Warn("progress event marshal failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
