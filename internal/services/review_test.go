package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/studyloop-backend/internal/domain"
	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
)

func seedQuestion(interval int) *domain.Question {
	return &domain.Question{
		ID:                 uuid.New(),
		TopicID:            uuid.New(),
		UserID:             uuid.New(),
		ItemType:           domain.ItemTypeFlashcard,
		IsSaved:            true,
		ReviewIntervalDays: interval,
	}
}

func TestRecordReviewFirstSuccessStartsAtOneDay(t *testing.T) {
	q := seedQuestion(0)
	svc := NewReviewService(testLogger(t), newFakeQuestionRepo(q))

	got, err := svc.RecordReview(context.Background(), q.ID, true)
	require.NoError(t, err)

	assert.Equal(t, 1, got.ReviewIntervalDays)
	require.NotNil(t, got.NextReviewAt)
	require.NotNil(t, got.LastReviewedAt)
	assert.WithinDuration(t, got.LastReviewedAt.AddDate(0, 0, 1), *got.NextReviewAt, time.Second)
}

func TestRecordReviewSuccessDoublesInterval(t *testing.T) {
	q := seedQuestion(2)
	svc := NewReviewService(testLogger(t), newFakeQuestionRepo(q))

	got, err := svc.RecordReview(context.Background(), q.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 4, got.ReviewIntervalDays)

	got, err = svc.RecordReview(context.Background(), q.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 8, got.ReviewIntervalDays)
}

func TestRecordReviewFailureResetsToOneDay(t *testing.T) {
	q := seedQuestion(16)
	svc := NewReviewService(testLogger(t), newFakeQuestionRepo(q))

	got, err := svc.RecordReview(context.Background(), q.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReviewIntervalDays)
	require.NotNil(t, got.NextReviewAt)
	assert.WithinDuration(t, got.LastReviewedAt.AddDate(0, 0, 1), *got.NextReviewAt, time.Second)
}

func TestRecordReviewUnknownQuestion(t *testing.T) {
	svc := NewReviewService(testLogger(t), newFakeQuestionRepo())

	_, err := svc.RecordReview(context.Background(), uuid.New(), true)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSetSavedTogglesFlag(t *testing.T) {
	q := seedQuestion(0)
	q.IsSaved = false
	repo := newFakeQuestionRepo(q)
	svc := NewReviewService(testLogger(t), repo)

	require.NoError(t, svc.SetSaved(context.Background(), q.ID, true))
	assert.True(t, q.IsSaved)

	require.NoError(t, svc.SetSaved(context.Background(), q.ID, false))
	assert.False(t, q.IsSaved)
}

func TestSetSavedUnknownQuestion(t *testing.T) {
	svc := NewReviewService(testLogger(t), newFakeQuestionRepo())

	err := svc.SetSaved(context.Background(), uuid.New(), true)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDueForReviewReturnsSavedDueQuestions(t *testing.T) {
	user := uuid.New()
	never := seedQuestion(0) // no schedule yet, due immediately
	never.UserID = user

	future := time.Now().AddDate(0, 0, 3)
	scheduled := seedQuestion(2)
	scheduled.UserID = user
	scheduled.NextReviewAt = &future

	unsaved := seedQuestion(0)
	unsaved.UserID = user
	unsaved.IsSaved = false

	svc := NewReviewService(testLogger(t), newFakeQuestionRepo(never, scheduled, unsaved))

	due, err := svc.DueForReview(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, never.ID, due[0].ID)
}
