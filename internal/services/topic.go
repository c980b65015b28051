package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/internal/clients/gcp"
	"github.com/studyloop/studyloop-backend/internal/data/repos"
	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/pkg/ctxutil"
	"github.com/studyloop/studyloop-backend/internal/pkg/dbctx"
	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

type TopicService interface {
	Create(ctx context.Context, userID uuid.UUID, title string) (*domain.Topic, error)
	Get(ctx context.Context, topicID uuid.UUID) (*domain.Topic, error)
	List(ctx context.Context, userID uuid.UUID) ([]*domain.Topic, error)
	// Delete removes the topic and everything hanging off it. Stored blobs
	// are deleted best-effort before the rows; database cascades take the
	// child rows with the topic.
	Delete(ctx context.Context, topicID uuid.UUID) error
}

type topicService struct {
	log    *logger.Logger
	topics repos.TopicRepo
	docs   repos.DocumentRepo
	bucket gcp.BucketService
}

func NewTopicService(log *logger.Logger, topics repos.TopicRepo, docs repos.DocumentRepo, bucket gcp.BucketService) TopicService {
	return &topicService{
		log:    log.With("service", "TopicService"),
		topics: topics,
		docs:   docs,
		bucket: bucket,
	}
}

func (s *topicService) Create(ctx context.Context, userID uuid.UUID, title string) (*domain.Topic, error) {
	ctx = ctxutil.Default(ctx)

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.ErrInvalidArgument
	}

	topic := &domain.Topic{UserID: userID, Title: title}
	created, err := s.topics.Create(dbctx.Context{Ctx: ctx}, []*domain.Topic{topic})
	if err != nil {
		return nil, &apperrors.PersistenceError{Entity: "topic", Op: "create", Err: err}
	}
	return created[0], nil
}

func (s *topicService) Get(ctx context.Context, topicID uuid.UUID) (*domain.Topic, error) {
	ctx = ctxutil.Default(ctx)
	return s.topics.GetByID(dbctx.Context{Ctx: ctx}, topicID)
}

func (s *topicService) List(ctx context.Context, userID uuid.UUID) ([]*domain.Topic, error) {
	ctx = ctxutil.Default(ctx)
	return s.topics.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
}

func (s *topicService) Delete(ctx context.Context, topicID uuid.UUID) error {
	ctx = ctxutil.Default(ctx)
	dbc := dbctx.Context{Ctx: ctx}

	topic, err := s.topics.GetByID(dbc, topicID)
	if err != nil {
		return err
	}

	docs, err := s.docs.GetByTopicID(dbc, topicID)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		for _, key := range []*string{doc.StorageKey, doc.ThumbnailKey} {
			if key == nil || *key == "" {
				continue
			}
			if err := s.bucket.DeleteObject(ctx, *key); err != nil {
				s.log.Warn("blob delete failed", "topic_id", topicID, "key", *key, "error", err)
			}
		}
	}

	// Object keys are namespaced by topic, so a prefix sweep catches blobs
	// the document rows no longer reference, e.g. leftovers from an
	// interrupted ingestion unwind.
	if keys, err := s.bucket.ListKeys(ctx, topicID.String()+"/"); err != nil {
		s.log.Warn("blob prefix list failed", "topic_id", topicID, "error", err)
	} else {
		for _, key := range keys {
			if err := s.bucket.DeleteObject(ctx, key); err != nil {
				s.log.Warn("blob delete failed", "topic_id", topicID, "key", key, "error", err)
			}
		}
	}

	if err := s.topics.FullDeleteByIDs(dbc, []uuid.UUID{topic.ID}); err != nil {
		return &apperrors.PersistenceError{Entity: "topic", Op: "delete", Err: err}
	}
	s.log.Info("topic deleted", "topic_id", topicID, "documents", len(docs))
	return nil
}
