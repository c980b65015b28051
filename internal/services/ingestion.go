package services

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/internal/clients/gcp"
	"github.com/studyloop/studyloop-backend/internal/data/graph"
	"github.com/studyloop/studyloop-backend/internal/data/repos"
	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/ingestion/extractor"
	"github.com/studyloop/studyloop-backend/internal/ingestion/thumbnail"
	"github.com/studyloop/studyloop-backend/internal/pkg/ctxutil"
	"github.com/studyloop/studyloop-backend/internal/pkg/dbctx"
	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
	"github.com/studyloop/studyloop-backend/internal/platform/neo4jdb"
	"github.com/studyloop/studyloop-backend/internal/realtime"
)

// IngestInput is one unit of content to ingest: an uploaded file (Data), a
// URL, or pasted text.
type IngestInput struct {
	FileName    string
	ContentType string
	URL         string
	Text        string
	Data        []byte
}

// IngestionService runs the ingestion workflow: extract, upload the blob,
// then create Document, KnowledgeBaseEntry and Source. On any step failing,
// the already-created artifacts are deleted in reverse order so a failed
// call leaves nothing behind.
type IngestionService interface {
	Ingest(ctx context.Context, topicID, userID uuid.UUID, in IngestInput) (*domain.Source, error)
	IngestBatch(ctx context.Context, topicID, userID uuid.UUID, inputs []IngestInput) ([]*domain.Source, error)
	DeleteSources(ctx context.Context, topicID uuid.UUID, sourceIDs []uuid.UUID) error
	// DownloadURL returns a short-lived signed read URL for the stored
	// original blob behind a source. Sources with no stored blob (pasted
	// text, fetched pages) have nothing to download.
	DownloadURL(ctx context.Context, topicID, sourceID uuid.UUID) (string, error)
}

// downloadURLTTL is the validity window of a signed source download URL.
const downloadURLTTL = 15 * time.Minute

type ingestionService struct {
	log     *logger.Logger
	topics  repos.TopicRepo
	docs    repos.DocumentRepo
	kb      repos.KnowledgeBaseRepo
	sources repos.SourceRepo
	bucket  gcp.BucketService
	bus     realtime.Bus
	graphDB *neo4jdb.Client
}

func NewIngestionService(
	log *logger.Logger,
	topics repos.TopicRepo,
	docs repos.DocumentRepo,
	kb repos.KnowledgeBaseRepo,
	sources repos.SourceRepo,
	bucket gcp.BucketService,
	bus realtime.Bus,
	graphDB *neo4jdb.Client,
) IngestionService {
	return &ingestionService{
		log:     log.With("service", "IngestionService"),
		topics:  topics,
		docs:    docs,
		kb:      kb,
		sources: sources,
		bucket:  bucket,
		bus:     bus,
		graphDB: graphDB,
	}
}

func (s *ingestionService) IngestBatch(ctx context.Context, topicID, userID uuid.UUID, inputs []IngestInput) ([]*domain.Source, error) {
	ctx = ctxutil.Default(ctx)

	// One at a time in caller order, so a failure is attributable to a
	// single artifact and its compensation.
	out := make([]*domain.Source, 0, len(inputs))
	for i, in := range inputs {
		src, err := s.Ingest(ctx, topicID, userID, in)
		if err != nil {
			return out, fmt.Errorf("input %d (%s): %w", i, labelOf(in), err)
		}
		out = append(out, src)
	}
	return out, nil
}

func (s *ingestionService) Ingest(ctx context.Context, topicID, userID uuid.UUID, in IngestInput) (*domain.Source, error) {
	ctx = ctxutil.Default(ctx)
	dbc := dbctx.Context{Ctx: ctx}

	topic, err := s.topics.GetByID(dbc, topicID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, realtime.ProgressEvent{
		UserID: userID, TopicID: topicID,
		Stage:  realtime.StageExtractionStarted,
		Detail: map[string]any{"label": labelOf(in)},
	})

	// Engines live exactly as long as this workflow.
	engines, err := extractor.NewEngines(s.log)
	if err != nil {
		return nil, err
	}
	defer engines.Close()

	coordinator := extractor.NewCoordinator(s.log, engines)
	extracted, err := coordinator.Extract(ctx, extractor.Input{
		Descriptor: extractor.Descriptor{
			ContentType: in.ContentType,
			FileName:    in.FileName,
			URL:         in.URL,
		},
		Data: in.Data,
		Text: in.Text,
	})
	if err != nil {
		s.publish(ctx, realtime.ProgressEvent{
			UserID: userID, TopicID: topicID,
			Stage:  realtime.StageIngestFailed,
			Detail: map[string]any{"label": labelOf(in), "error": err.Error()},
		})
		return nil, err
	}

	src, err := s.persistArtifacts(ctx, topic, userID, in, extracted)
	if err != nil {
		s.publish(ctx, realtime.ProgressEvent{
			UserID: userID, TopicID: topicID,
			Stage:  realtime.StageIngestFailed,
			Detail: map[string]any{"label": labelOf(in), "error": err.Error()},
		})
		return nil, err
	}

	sid := src.ID
	s.publish(ctx, realtime.ProgressEvent{
		UserID: userID, TopicID: topicID, SourceID: &sid,
		Stage:  realtime.StageSourceReady,
		Detail: map[string]any{"label": src.DisplayName, "word_count": src.WordCount},
	})

	if err := graph.UpsertSourceGraph(ctx, s.graphDB, s.log, topicID, []*domain.Source{src}); err != nil {
		s.log.Warn("source graph mirror failed", "source_id", src.ID, "error", err)
	}

	return src, nil
}

// persistArtifacts runs steps 2-5 of the workflow. Each step's failure
// unwinds everything the earlier steps created.
func (s *ingestionService) persistArtifacts(ctx context.Context, topic *domain.Topic, userID uuid.UUID, in IngestInput, extracted *extractor.ExtractedContent) (*domain.Source, error) {
	dbc := dbctx.Context{Ctx: ctx}
	now := time.Now().UTC()

	var storageKey, thumbKey *string
	if len(in.Data) > 0 {
		key := objectKey(topic.ID, userID, in.FileName)
		s.publish(ctx, realtime.ProgressEvent{
			UserID: userID, TopicID: topic.ID,
			Stage:  realtime.StageUploadStarted,
			Detail: map[string]any{"key": key},
		})
		if err := s.bucket.UploadObject(ctx, key, bytes.NewReader(in.Data)); err != nil {
			return nil, &apperrors.UploadError{Key: key, Err: err}
		}
		storageKey = &key

		if extracted.Kind == extractor.KindImage {
			if tk := s.uploadThumbnail(ctx, key, in.Data); tk != "" {
				thumbKey = &tk
			}
		}
	}

	doc := &domain.Document{
		TopicID:      topic.ID,
		UserID:       userID,
		OriginalName: extracted.SourceLabel,
		MimeType:     in.ContentType,
		SizeBytes:    int64(len(in.Data)),
		StorageKey:   storageKey,
		ThumbnailKey: thumbKey,
	}
	if _, err := s.docs.Create(dbc, []*domain.Document{doc}); err != nil {
		s.compensate(storageKey, thumbKey, nil, nil, nil)
		return nil, &apperrors.PersistenceError{Entity: "document", Op: "create", Err: err}
	}

	metaJSON, err := extractor.MarshalMetadata(extracted.Metadata)
	if err != nil {
		s.compensate(storageKey, thumbKey, &doc.ID, nil, nil)
		return nil, &apperrors.PersistenceError{Entity: "knowledge_base_entry", Op: "marshal_metadata", Err: err}
	}

	entry := &domain.KnowledgeBaseEntry{
		TopicID:     topic.ID,
		UserID:      userID,
		DocumentID:  &doc.ID,
		Kind:        string(extracted.Kind),
		SourceLabel: extracted.SourceLabel,
		Text:        extracted.Text,
		Metadata:    metaJSON,
	}
	if _, err := s.kb.Create(dbc, []*domain.KnowledgeBaseEntry{entry}); err != nil {
		s.compensate(storageKey, thumbKey, &doc.ID, nil, nil)
		return nil, &apperrors.PersistenceError{Entity: "knowledge_base_entry", Op: "create", Err: err}
	}

	src := &domain.Source{
		TopicID:              topic.ID,
		UserID:               userID,
		DocumentID:           &doc.ID,
		KnowledgeBaseEntryID: entry.ID,
		Kind:                 string(extracted.Kind),
		DisplayName:          extracted.SourceLabel,
		OriginalName:         in.FileName,
		SizeBytes:            int64(len(in.Data)),
		WordCount:            extractor.WordCount(extracted.Text),
		ProcessingStatus:     domain.SourceStatusProcessing,
		IngestedAt:           now,
	}
	if _, err := s.sources.Create(dbc, []*domain.Source{src}); err != nil {
		s.compensate(storageKey, thumbKey, &doc.ID, &entry.ID, nil)
		return nil, &apperrors.PersistenceError{Entity: "source", Op: "create", Err: err}
	}

	if err := s.sources.MarkProcessed(dbc, src.ID, domain.SourceStatusCompleted); err != nil {
		s.compensate(storageKey, thumbKey, &doc.ID, &entry.ID, &src.ID)
		return nil, &apperrors.PersistenceError{Entity: "source", Op: "mark_processed", Err: err}
	}
	src.ProcessingStatus = domain.SourceStatusCompleted

	return src, nil
}

// compensate deletes partial artifacts in reverse creation order. It runs on
// a detached context so a caller cancel cannot orphan a half-written
// ingestion, and failures are logged, never returned: the original error
// stays the error.
func (s *ingestionService) compensate(storageKey, thumbKey *string, docID, entryID, sourceID *uuid.UUID) {
	ctx, cancel := ctxutil.Detached(30 * time.Second)
	defer cancel()
	dbc := dbctx.Context{Ctx: ctx}

	if sourceID != nil {
		if err := s.sources.FullDeleteByIDs(dbc, []uuid.UUID{*sourceID}); err != nil {
			s.log.Error("compensating source delete failed", "source_id", *sourceID, "error", err)
		}
	}
	if entryID != nil {
		if err := s.kb.FullDeleteByIDs(dbc, []uuid.UUID{*entryID}); err != nil {
			s.log.Error("compensating knowledge base delete failed", "entry_id", *entryID, "error", err)
		}
	}
	if docID != nil {
		if err := s.docs.FullDeleteByIDs(dbc, []uuid.UUID{*docID}); err != nil {
			s.log.Error("compensating document delete failed", "document_id", *docID, "error", err)
		}
	}
	if thumbKey != nil {
		if err := s.bucket.DeleteObject(ctx, *thumbKey); err != nil {
			s.log.Error("compensating thumbnail delete failed", "key", *thumbKey, "error", err)
		}
	}
	if storageKey != nil {
		if err := s.bucket.DeleteObject(ctx, *storageKey); err != nil {
			s.log.Error("compensating blob delete failed", "key", *storageKey, "error", err)
		}
	}
}

func (s *ingestionService) DownloadURL(ctx context.Context, topicID, sourceID uuid.UUID) (string, error) {
	ctx = ctxutil.Default(ctx)
	dbc := dbctx.Context{Ctx: ctx}

	srcs, err := s.sources.GetByIDs(dbc, []uuid.UUID{sourceID})
	if err != nil {
		return "", err
	}
	if len(srcs) == 0 || srcs[0].TopicID != topicID {
		return "", apperrors.ErrNotFound
	}
	src := srcs[0]
	if src.DocumentID == nil {
		return "", apperrors.ErrNotFound
	}

	docs, err := s.docs.GetByIDs(dbc, []uuid.UUID{*src.DocumentID})
	if err != nil {
		return "", err
	}
	if len(docs) == 0 || docs[0].StorageKey == nil || *docs[0].StorageKey == "" {
		return "", apperrors.ErrNotFound
	}
	return s.bucket.SignedReadURL(*docs[0].StorageKey, downloadURLTTL)
}

// DeleteSources removes sources and their documents, knowledge base entries
// and blobs. Blob deletes are best-effort.
func (s *ingestionService) DeleteSources(ctx context.Context, topicID uuid.UUID, sourceIDs []uuid.UUID) error {
	ctx = ctxutil.Default(ctx)
	dbc := dbctx.Context{Ctx: ctx}

	srcs, err := s.sources.GetByIDs(dbc, sourceIDs)
	if err != nil {
		return err
	}

	docIDs := make([]uuid.UUID, 0, len(srcs))
	entryIDs := make([]uuid.UUID, 0, len(srcs))
	owned := make([]uuid.UUID, 0, len(srcs))
	for _, src := range srcs {
		if src.TopicID != topicID {
			continue
		}
		owned = append(owned, src.ID)
		entryIDs = append(entryIDs, src.KnowledgeBaseEntryID)
		if src.DocumentID != nil {
			docIDs = append(docIDs, *src.DocumentID)
		}
	}
	if len(owned) == 0 {
		return nil
	}

	docs, err := s.docs.GetByIDs(dbc, docIDs)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		for _, key := range []*string{doc.StorageKey, doc.ThumbnailKey} {
			if key == nil || *key == "" {
				continue
			}
			if err := s.bucket.DeleteObject(ctx, *key); err != nil {
				s.log.Warn("blob delete failed", "key", *key, "error", err)
			}
		}
	}

	if err := s.sources.FullDeleteByIDs(dbc, owned); err != nil {
		return &apperrors.PersistenceError{Entity: "source", Op: "delete", Err: err}
	}
	if err := s.kb.FullDeleteByIDs(dbc, entryIDs); err != nil {
		return &apperrors.PersistenceError{Entity: "knowledge_base_entry", Op: "delete", Err: err}
	}
	if len(docIDs) > 0 {
		if err := s.docs.FullDeleteByIDs(dbc, docIDs); err != nil {
			return &apperrors.PersistenceError{Entity: "document", Op: "delete", Err: err}
		}
	}
	return nil
}

func (s *ingestionService) uploadThumbnail(ctx context.Context, originalKey string, raw []byte) string {
	thumb, err := thumbnail.FromImage(raw)
	if err != nil {
		s.log.Warn("thumbnail generation failed", "key", originalKey, "error", err)
		return ""
	}
	key := originalKey + "_thumb.jpg"
	if err := s.bucket.UploadObject(ctx, key, bytes.NewReader(thumb)); err != nil {
		s.log.Warn("thumbnail upload failed", "key", key, "error", err)
		return ""
	}
	return key
}

func (s *ingestionService) publish(ctx context.Context, ev realtime.ProgressEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warn("progress publish failed", "stage", ev.Stage, "error", err)
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func objectKey(topicID, userID uuid.UUID, fileName string) string {
	name := unsafeKeyChars.ReplaceAllString(strings.TrimSpace(fileName), "_")
	if name == "" {
		name = "upload"
	}
	return fmt.Sprintf("%s/%s/%d_%s", topicID, userID, time.Now().UnixNano(), name)
}

func labelOf(in IngestInput) string {
	switch {
	case strings.TrimSpace(in.FileName) != "":
		return in.FileName
	case strings.TrimSpace(in.URL) != "":
		return in.URL
	default:
		return "pasted text"
	}
}
