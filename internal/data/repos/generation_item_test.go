package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/studyloop/studyloop-backend/internal/data/repos/testutil"
	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/pkg/dbctx"
)

type attributionFixture struct {
	dbc     dbctx.Context
	repo    GenerationItemRepo
	gen     *domain.Generation
	sources []*domain.Source
	userID  uuid.UUID
	topicID uuid.UUID
}

func newAttributionFixture(t *testing.T, sourceCount int) *attributionFixture {
	t.Helper()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()

	userID := uuid.New()
	topic := testutil.SeedTopic(t, ctx, tx, userID)

	sources := make([]*domain.Source, 0, sourceCount)
	ids := make([]uuid.UUID, 0, sourceCount)
	for i := 0; i < sourceCount; i++ {
		entry := testutil.SeedKnowledgeBaseEntry(t, ctx, tx, topic.ID, userID, nil)
		src := testutil.SeedSource(t, ctx, tx, topic.ID, userID, entry.ID)
		sources = append(sources, src)
		ids = append(ids, src.ID)
	}

	return &attributionFixture{
		dbc:     dbctx.Context{Ctx: ctx, Tx: tx},
		repo:    NewGenerationItemRepo(gdb, testutil.Logger(t)),
		gen:     testutil.SeedGeneration(t, ctx, tx, topic.ID, userID, ids),
		sources: sources,
		userID:  userID,
		topicID: topic.ID,
	}
}

func (f *attributionFixture) addItem(t *testing.T, srcs ...*domain.Source) *domain.GenerationItem {
	t.Helper()
	q := testutil.SeedQuestion(t, f.dbc.Ctx, f.dbc.Tx, f.topicID, f.userID, f.gen.ID)
	item := &domain.GenerationItem{
		ID:           uuid.New(),
		GenerationID: f.gen.ID,
		QuestionID:   q.ID,
		ItemType:     domain.ItemTypeFlashcard,
		Title:        "item",
		DerivedFrom:  datatypes.JSON([]byte(`[]`)),
	}
	joins := make([]*domain.GenerationItemSource, 0, len(srcs))
	for _, src := range srcs {
		joins = append(joins, &domain.GenerationItemSource{
			GenerationItemID: item.ID,
			SourceID:         src.ID,
		})
	}
	_, err := f.repo.Create(f.dbc, []*domain.GenerationItem{item}, joins)
	require.NoError(t, err)
	return item
}

func TestGenerationItemCountBySourceID(t *testing.T) {
	f := newAttributionFixture(t, 2)
	both, single := f.sources[0], f.sources[1]

	f.addItem(t, both, single)
	f.addItem(t, both)

	n, err := f.repo.CountBySourceID(f.dbc, both.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = f.repo.CountBySourceID(f.dbc, single.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = f.repo.CountBySourceID(f.dbc, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGenerationItemSourceIDsByItemIDs(t *testing.T) {
	f := newAttributionFixture(t, 2)
	a, b := f.sources[0], f.sources[1]

	wide := f.addItem(t, a, b)
	narrow := f.addItem(t, b)

	got, err := f.repo.GetSourceIDsByItemIDs(f.dbc, []uuid.UUID{wide.ID, narrow.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, got[wide.ID])
	assert.Equal(t, []uuid.UUID{b.ID}, got[narrow.ID])

	empty, err := f.repo.GetSourceIDsByItemIDs(f.dbc, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGenerationItemGetByGenerationIDs(t *testing.T) {
	f := newAttributionFixture(t, 1)

	f.addItem(t, f.sources[0])
	f.addItem(t, f.sources[0])

	items, err := f.repo.GetByGenerationIDs(f.dbc, []uuid.UUID{f.gen.ID})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = f.repo.GetByGenerationIDs(f.dbc, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}
