package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/studyloop-backend/internal/domain"
	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
	"github.com/studyloop/studyloop-backend/internal/realtime"
)

type ingestionFixture struct {
	topics  *fakeTopicRepo
	docs    *fakeDocumentRepo
	kb      *fakeKnowledgeBaseRepo
	sources *fakeSourceRepo
	bucket  *fakeBucket
	bus     *recordingBus
	topic   *domain.Topic
	user    uuid.UUID
	svc     IngestionService
}

func newIngestionFixture(t *testing.T) *ingestionFixture {
	t.Helper()
	topic := &domain.Topic{ID: uuid.New(), UserID: uuid.New(), Title: "Cell Biology"}
	f := &ingestionFixture{
		topics:  newFakeTopicRepo(topic),
		docs:    newFakeDocumentRepo(),
		kb:      newFakeKnowledgeBaseRepo(),
		sources: newFakeSourceRepo(),
		bucket:  newFakeBucket(),
		bus:     &recordingBus{},
		topic:   topic,
		user:    topic.UserID,
	}
	log := testLogger(t)
	f.svc = NewIngestionService(log, f.topics, f.docs, f.kb, f.sources, f.bucket, f.bus, nil)
	return f
}

func TestIngestDirectTextCreatesSourceWithoutBlob(t *testing.T) {
	f := newIngestionFixture(t)

	src, err := f.svc.Ingest(context.Background(), f.topic.ID, f.user, IngestInput{
		Text: "Photosynthesis converts light into chemical energy.",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceStatusCompleted, src.ProcessingStatus)
	assert.Equal(t, 6, src.WordCount)
	require.NotNil(t, src.DocumentID)
	assert.NotNil(t, src.ProcessedAt)

	// No bytes were provided, so nothing goes to object storage.
	assert.Empty(t, f.bucket.keys())

	entries, err := f.kb.GetByTopicID(dbc(), f.topic.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entries[0].ID, src.KnowledgeBaseEntryID)

	stages := f.bus.stages()
	assert.Contains(t, stages, realtime.StageExtractionStarted)
	assert.Contains(t, stages, realtime.StageSourceReady)
	assert.NotContains(t, stages, realtime.StageUploadStarted)
}

func TestIngestFileUploadsBlobBeforePersisting(t *testing.T) {
	f := newIngestionFixture(t)
	data := []byte("Mitochondria are the site of aerobic respiration.\n")

	src, err := f.svc.Ingest(context.Background(), f.topic.ID, f.user, IngestInput{
		FileName:    "notes.txt",
		ContentType: "text/plain",
		Data:        data,
	})
	require.NoError(t, err)

	require.Len(t, f.bucket.keys(), 1)
	assert.Equal(t, int64(len(data)), src.SizeBytes)
	assert.Equal(t, "notes.txt", src.OriginalName)

	docs, err := f.docs.GetByTopicID(dbc(), f.topic.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.NotNil(t, docs[0].StorageKey)
	assert.Equal(t, f.bucket.keys()[0], *docs[0].StorageKey)

	assert.Contains(t, f.bus.stages(), realtime.StageUploadStarted)
}

func TestIngestDocumentFailureCompensatesUpload(t *testing.T) {
	f := newIngestionFixture(t)
	f.docs.failCreate = true

	_, err := f.svc.Ingest(context.Background(), f.topic.ID, f.user, IngestInput{
		FileName:    "notes.txt",
		ContentType: "text/plain",
		Data:        []byte("orphan candidate"),
	})
	require.Error(t, err)

	var perr *apperrors.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "document", perr.Entity)

	// The uploaded blob was deleted again and no rows survived.
	assert.Empty(t, f.bucket.keys())
	require.Len(t, f.bucket.deletes, 1)
	entries, _ := f.kb.GetByTopicID(dbc(), f.topic.ID)
	assert.Empty(t, entries)
	sources, _ := f.sources.GetByTopicID(dbc(), f.topic.ID)
	assert.Empty(t, sources)

	assert.Contains(t, f.bus.stages(), realtime.StageIngestFailed)
}

func TestIngestMarkProcessedFailureUnwindsEverything(t *testing.T) {
	f := newIngestionFixture(t)
	f.sources.failMarkProcessed = true

	_, err := f.svc.Ingest(context.Background(), f.topic.ID, f.user, IngestInput{
		Text: "short lived",
	})
	require.Error(t, err)

	var perr *apperrors.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "mark_processed", perr.Op)

	docs, _ := f.docs.GetByTopicID(dbc(), f.topic.ID)
	assert.Empty(t, docs)
	entries, _ := f.kb.GetByTopicID(dbc(), f.topic.ID)
	assert.Empty(t, entries)
	sources, _ := f.sources.GetByTopicID(dbc(), f.topic.ID)
	assert.Empty(t, sources)
}

func TestIngestUnknownTopicFails(t *testing.T) {
	f := newIngestionFixture(t)

	_, err := f.svc.Ingest(context.Background(), uuid.New(), f.user, IngestInput{Text: "hello"})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, f.bus.stages())
}

func TestIngestBatchReturnsPartialResultsOnFailure(t *testing.T) {
	f := newIngestionFixture(t)

	inputs := []IngestInput{
		{Text: "first input survives"},
		{FileName: "legacy.doc", ContentType: "application/msword", Data: []byte("binary")},
	}
	out, err := f.svc.IngestBatch(context.Background(), f.topic.ID, f.user, inputs)
	require.Error(t, err)

	var uerr *apperrors.UnsupportedFormatError
	require.ErrorAs(t, err, &uerr)
	assert.NotEmpty(t, uerr.Suggestion)

	require.Len(t, out, 1)
	assert.Equal(t, domain.SourceStatusCompleted, out[0].ProcessingStatus)
}

func TestDeleteSourcesRemovesRowsAndBlobs(t *testing.T) {
	f := newIngestionFixture(t)

	src, err := f.svc.Ingest(context.Background(), f.topic.ID, f.user, IngestInput{
		FileName:    "notes.txt",
		ContentType: "text/plain",
		Data:        []byte("delete me"),
	})
	require.NoError(t, err)
	require.Len(t, f.bucket.keys(), 1)

	require.NoError(t, f.svc.DeleteSources(context.Background(), f.topic.ID, []uuid.UUID{src.ID}))

	assert.Empty(t, f.bucket.keys())
	sources, _ := f.sources.GetByTopicID(dbc(), f.topic.ID)
	assert.Empty(t, sources)
	docs, _ := f.docs.GetByTopicID(dbc(), f.topic.ID)
	assert.Empty(t, docs)
}

func TestDownloadURLSignsStoredBlob(t *testing.T) {
	f := newIngestionFixture(t)

	src, err := f.svc.Ingest(context.Background(), f.topic.ID, f.user, IngestInput{
		FileName:    "notes.txt",
		ContentType: "text/plain",
		Data:        []byte("Ribosomes translate mRNA into protein.\n"),
	})
	require.NoError(t, err)

	url, err := f.svc.DownloadURL(context.Background(), f.topic.ID, src.ID)
	require.NoError(t, err)

	keys := f.bucket.keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "https://signed.example/"+keys[0], url)
}

func TestDownloadURLWithoutStoredBlob(t *testing.T) {
	f := newIngestionFixture(t)

	src, err := f.svc.Ingest(context.Background(), f.topic.ID, f.user, IngestInput{
		Text: "Pasted text never reaches object storage.",
	})
	require.NoError(t, err)

	_, err = f.svc.DownloadURL(context.Background(), f.topic.ID, src.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDownloadURLUnknownOrForeignSource(t *testing.T) {
	f := newIngestionFixture(t)

	src, err := f.svc.Ingest(context.Background(), f.topic.ID, f.user, IngestInput{
		FileName:    "notes.txt",
		ContentType: "text/plain",
		Data:        []byte("Lysosomes digest cellular waste.\n"),
	})
	require.NoError(t, err)

	_, err = f.svc.DownloadURL(context.Background(), f.topic.ID, uuid.New())
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	// A source only resolves under its own topic.
	_, err = f.svc.DownloadURL(context.Background(), uuid.New(), src.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
