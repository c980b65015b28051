package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return NewHub(log)
}

func TestHubDispatchRoutesByUser(t *testing.T) {
	hub := newTestHub(t)
	alice := uuid.New()
	bob := uuid.New()

	aliceSub := hub.Subscribe(alice)
	bobSub := hub.Subscribe(bob)
	defer hub.Unsubscribe(aliceSub)
	defer hub.Unsubscribe(bobSub)

	hub.Dispatch(ProgressEvent{UserID: alice, Stage: StageSourceReady, At: time.Now()})

	select {
	case ev := <-aliceSub.Outbound:
		assert.Equal(t, StageSourceReady, ev.Stage)
	default:
		t.Fatal("expected an event for the addressed user")
	}
	assert.Empty(t, bobSub.Outbound)
}

func TestHubDispatchFansOutToAllSubscribers(t *testing.T) {
	hub := newTestHub(t)
	user := uuid.New()

	first := hub.Subscribe(user)
	second := hub.Subscribe(user)
	defer hub.Unsubscribe(first)
	defer hub.Unsubscribe(second)

	hub.Dispatch(ProgressEvent{UserID: user, Stage: StageGenerationDone})

	assert.Len(t, first.Outbound, 1)
	assert.Len(t, second.Outbound, 1)
}

func TestHubDispatchDropsWhenBufferFull(t *testing.T) {
	hub := newTestHub(t)
	user := uuid.New()

	sub := hub.Subscribe(user)
	defer hub.Unsubscribe(sub)

	// One more than the buffer; the overflow event is dropped, not blocked on.
	for i := 0; i < cap(sub.Outbound)+1; i++ {
		hub.Dispatch(ProgressEvent{UserID: user, Stage: StageGenerationProgress})
	}
	assert.Len(t, sub.Outbound, cap(sub.Outbound))
}

func TestHubUnsubscribeIsIdempotent(t *testing.T) {
	hub := newTestHub(t)
	sub := hub.Subscribe(uuid.New())

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub) // second call must not panic on the closed channel

	select {
	case <-sub.done:
	default:
		t.Fatal("done channel should be closed after unsubscribe")
	}

	// Events for a departed subscriber go nowhere.
	hub.Dispatch(ProgressEvent{UserID: sub.UserID, Stage: StageSourceReady})
	assert.Empty(t, sub.Outbound)
}
