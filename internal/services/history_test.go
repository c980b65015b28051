package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/studyloop-backend/internal/domain"
)

func TestTopicHistoryMergesNewestFirst(t *testing.T) {
	topic := &domain.Topic{ID: uuid.New(), UserID: uuid.New(), Title: "History"}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	oldSrc := &domain.Source{
		ID: uuid.New(), TopicID: topic.ID, UserID: topic.UserID,
		DisplayName: "oldest source", IngestedAt: base,
	}
	newSrc := &domain.Source{
		ID: uuid.New(), TopicID: topic.ID, UserID: topic.UserID,
		DisplayName: "newest source", IngestedAt: base.Add(2 * time.Hour),
	}
	gen := &domain.Generation{
		ID: uuid.New(), TopicID: topic.ID, UserID: topic.UserID,
		GenerationType: domain.GenerationTypeBulk, StartedAt: base.Add(time.Hour),
	}

	topics := newFakeTopicRepo(topic)
	sources := newFakeSourceRepo(oldSrc, newSrc)
	gens := newFakeGenerationRepo()
	_, err := gens.Create(dbc(), []*domain.Generation{gen})
	require.NoError(t, err)

	svc := NewHistoryService(testLogger(t), topics, sources, gens, newFakeGenerationItemRepo())

	entries, err := svc.TopicHistory(context.Background(), topic.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, HistoryKindSource, entries[0].Kind)
	assert.Equal(t, newSrc.ID, entries[0].Source.ID)
	assert.Equal(t, HistoryKindGeneration, entries[1].Kind)
	assert.Equal(t, gen.ID, entries[1].Generation.ID)
	assert.Equal(t, HistoryKindSource, entries[2].Kind)
	assert.Equal(t, oldSrc.ID, entries[2].Source.ID)
}

func TestTopicHistoryUnknownTopic(t *testing.T) {
	svc := NewHistoryService(testLogger(t), newFakeTopicRepo(), newFakeSourceRepo(), newFakeGenerationRepo(), newFakeGenerationItemRepo())

	_, err := svc.TopicHistory(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestSourcesWithStatsSurvivesCountFailure(t *testing.T) {
	topic := &domain.Topic{ID: uuid.New(), UserID: uuid.New(), Title: "Stats"}
	good := &domain.Source{ID: uuid.New(), TopicID: topic.ID, UserID: topic.UserID, DisplayName: "countable"}
	bad := &domain.Source{ID: uuid.New(), TopicID: topic.ID, UserID: topic.UserID, DisplayName: "uncountable"}

	items := newFakeGenerationItemRepo()
	item := &domain.GenerationItem{ID: uuid.New(), GenerationID: uuid.New(), ItemType: domain.ItemTypeFlashcard}
	_, err := items.Create(dbc(), []*domain.GenerationItem{item}, []*domain.GenerationItemSource{
		{GenerationItemID: item.ID, SourceID: good.ID},
	})
	require.NoError(t, err)
	items.failCountFor[bad.ID] = true

	svc := NewHistoryService(testLogger(t), newFakeTopicRepo(topic), newFakeSourceRepo(good, bad), newFakeGenerationRepo(), items)

	stats, err := svc.SourcesWithStats(context.Background(), topic.ID)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	byID := map[uuid.UUID]SourceStats{}
	for _, st := range stats {
		byID[st.Source.ID] = st
	}
	assert.True(t, byID[good.ID].StatsOK)
	assert.Equal(t, int64(1), byID[good.ID].DerivedItems)
	assert.False(t, byID[bad.ID].StatsOK)
	assert.Zero(t, byID[bad.ID].DerivedItems)
}
