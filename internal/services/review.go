package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/internal/data/repos"
	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/pkg/ctxutil"
	"github.com/studyloop/studyloop-backend/internal/pkg/dbctx"
	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

// ReviewService manages the saved-question pool and its interval-doubling
// review schedule: an unreviewed question starts at 1 day, a successful
// review doubles the interval, a failed one resets it to 1 day.
type ReviewService interface {
	SetSaved(ctx context.Context, questionID uuid.UUID, saved bool) error
	RecordReview(ctx context.Context, questionID uuid.UUID, success bool) (*domain.Question, error)
	DueForReview(ctx context.Context, userID uuid.UUID) ([]*domain.Question, error)
}

type reviewService struct {
	log       *logger.Logger
	questions repos.QuestionRepo
}

func NewReviewService(log *logger.Logger, questions repos.QuestionRepo) ReviewService {
	return &reviewService{
		log:       log.With("service", "ReviewService"),
		questions: questions,
	}
}

func (s *reviewService) SetSaved(ctx context.Context, questionID uuid.UUID, saved bool) error {
	ctx = ctxutil.Default(ctx)
	dbc := dbctx.Context{Ctx: ctx}

	if _, err := s.getOne(dbc, questionID); err != nil {
		return err
	}
	return s.questions.SetSaved(dbc, questionID, saved)
}

func (s *reviewService) RecordReview(ctx context.Context, questionID uuid.UUID, success bool) (*domain.Question, error) {
	ctx = ctxutil.Default(ctx)
	dbc := dbctx.Context{Ctx: ctx}

	q, err := s.getOne(dbc, questionID)
	if err != nil {
		return nil, err
	}

	interval := nextInterval(q.ReviewIntervalDays, success)
	now := time.Now().UTC()
	next := now.AddDate(0, 0, interval)
	if err := s.questions.UpdateReviewSchedule(dbc, questionID, interval, now, next); err != nil {
		return nil, &apperrors.PersistenceError{Entity: "question", Op: "update_review_schedule", Err: err}
	}

	q.ReviewIntervalDays = interval
	q.LastReviewedAt = &now
	q.NextReviewAt = &next
	return q, nil
}

func (s *reviewService) DueForReview(ctx context.Context, userID uuid.UUID) ([]*domain.Question, error) {
	ctx = ctxutil.Default(ctx)
	return s.questions.GetDueForReview(dbctx.Context{Ctx: ctx}, userID, time.Now().UTC())
}

func (s *reviewService) getOne(dbc dbctx.Context, questionID uuid.UUID) (*domain.Question, error) {
	qs, err := s.questions.GetByIDs(dbc, []uuid.UUID{questionID})
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return qs[0], nil
}

func nextInterval(current int, success bool) int {
	if !success || current <= 0 {
		return 1
	}
	return current * 2
}
