package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/internal/data/repos/testutil"
	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/pkg/dbctx"
)

func seedReviewQuestion(t *testing.T, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *domain.Question {
	t.Helper()
	topic := testutil.SeedTopic(t, ctx, tx, userID)
	gen := testutil.SeedGeneration(t, ctx, tx, topic.ID, userID, nil)
	return testutil.SeedQuestion(t, ctx, tx, topic.ID, userID, gen.ID)
}

func TestQuestionSetSaved(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	userID := uuid.New()
	q := seedReviewQuestion(t, ctx, tx, userID)
	repo := NewQuestionRepo(gdb, testutil.Logger(t))

	require.NoError(t, repo.SetSaved(dbc, q.ID, true))

	got, err := repo.GetByIDs(dbc, []uuid.UUID{q.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsSaved)

	require.NoError(t, repo.SetSaved(dbc, q.ID, false))
	got, err = repo.GetByIDs(dbc, []uuid.UUID{q.ID})
	require.NoError(t, err)
	assert.False(t, got[0].IsSaved)
}

func TestQuestionUpdateReviewSchedule(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	userID := uuid.New()
	q := seedReviewQuestion(t, ctx, tx, userID)
	repo := NewQuestionRepo(gdb, testutil.Logger(t))

	reviewedAt := time.Now().UTC().Truncate(time.Second)
	nextReviewAt := reviewedAt.AddDate(0, 0, 4)
	require.NoError(t, repo.UpdateReviewSchedule(dbc, q.ID, 4, reviewedAt, nextReviewAt))

	got, err := repo.GetByIDs(dbc, []uuid.UUID{q.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].ReviewIntervalDays)
	require.NotNil(t, got[0].LastReviewedAt)
	require.NotNil(t, got[0].NextReviewAt)
	assert.WithinDuration(t, nextReviewAt, *got[0].NextReviewAt, time.Second)
}

func TestQuestionGetDueForReview(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	userID := uuid.New()
	repo := NewQuestionRepo(gdb, testutil.Logger(t))
	now := time.Now().UTC()

	// Saved, never reviewed: due immediately.
	unscheduled := seedReviewQuestion(t, ctx, tx, userID)
	require.NoError(t, repo.SetSaved(dbc, unscheduled.ID, true))

	// Saved with a past next_review_at: due.
	overdue := seedReviewQuestion(t, ctx, tx, userID)
	require.NoError(t, repo.SetSaved(dbc, overdue.ID, true))
	require.NoError(t, repo.UpdateReviewSchedule(dbc, overdue.ID, 1, now.AddDate(0, 0, -2), now.AddDate(0, 0, -1)))

	// Saved but scheduled in the future: not due.
	upcoming := seedReviewQuestion(t, ctx, tx, userID)
	require.NoError(t, repo.SetSaved(dbc, upcoming.ID, true))
	require.NoError(t, repo.UpdateReviewSchedule(dbc, upcoming.ID, 8, now, now.AddDate(0, 0, 8)))

	// Never saved: excluded regardless of schedule.
	seedReviewQuestion(t, ctx, tx, userID)

	// Another user's question: never visible.
	other := seedReviewQuestion(t, ctx, tx, uuid.New())
	require.NoError(t, repo.SetSaved(dbc, other.ID, true))

	due, err := repo.GetDueForReview(dbc, userID, now)
	require.NoError(t, err)
	require.Len(t, due, 2)

	ids := []uuid.UUID{due[0].ID, due[1].ID}
	assert.ElementsMatch(t, []uuid.UUID{unscheduled.ID, overdue.ID}, ids)
	// NULLS FIRST puts the never-reviewed question ahead of the overdue one.
	assert.Equal(t, unscheduled.ID, due[0].ID)
}
