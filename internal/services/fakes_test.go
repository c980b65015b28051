package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/studyloop/studyloop-backend/internal/clients/gcp"
	"github.com/studyloop/studyloop-backend/internal/clients/openai"
	"github.com/studyloop/studyloop-backend/internal/data/repos"
	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/pkg/dbctx"
	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
	"github.com/studyloop/studyloop-backend/internal/realtime"
)

func dbc() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

var (
	_ repos.TopicRepo          = (*fakeTopicRepo)(nil)
	_ repos.DocumentRepo       = (*fakeDocumentRepo)(nil)
	_ repos.KnowledgeBaseRepo  = (*fakeKnowledgeBaseRepo)(nil)
	_ repos.SourceRepo         = (*fakeSourceRepo)(nil)
	_ repos.GenerationRepo     = (*fakeGenerationRepo)(nil)
	_ repos.GenerationItemRepo = (*fakeGenerationItemRepo)(nil)
	_ repos.QuestionRepo       = (*fakeQuestionRepo)(nil)
	_ gcp.BucketService        = (*fakeBucket)(nil)
	_ openai.Client            = (*fakeAIClient)(nil)
	_ realtime.Bus             = (*recordingBus)(nil)
)

// In-memory fakes for the repo and client interfaces. Every Create assigns
// ids the way the database default would, and each fake exposes fail hooks
// so tests can break individual workflow steps.

type fakeTopicRepo struct {
	mu     sync.Mutex
	topics map[uuid.UUID]*domain.Topic
}

func newFakeTopicRepo(topics ...*domain.Topic) *fakeTopicRepo {
	r := &fakeTopicRepo{topics: map[uuid.UUID]*domain.Topic{}}
	for _, t := range topics {
		r.topics[t.ID] = t
	}
	return r
}

func (r *fakeTopicRepo) Create(_ dbctx.Context, topics []*domain.Topic) ([]*domain.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range topics {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		r.topics[t.ID] = t
	}
	return topics, nil
}

func (r *fakeTopicRepo) GetByID(_ dbctx.Context, topicID uuid.UUID) (*domain.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.topics[topicID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return t, nil
}

func (r *fakeTopicRepo) GetByUserID(_ dbctx.Context, userID uuid.UUID) ([]*domain.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Topic
	for _, t := range r.topics {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTopicRepo) FullDeleteByIDs(_ dbctx.Context, topicIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range topicIDs {
		delete(r.topics, id)
	}
	return nil
}

type fakeDocumentRepo struct {
	mu         sync.Mutex
	docs       map[uuid.UUID]*domain.Document
	failCreate bool
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: map[uuid.UUID]*domain.Document{}}
}

func (r *fakeDocumentRepo) Create(_ dbctx.Context, docs []*domain.Document) ([]*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return nil, errors.New("document create refused")
	}
	for _, d := range docs {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		r.docs[d.ID] = d
	}
	return docs, nil
}

func (r *fakeDocumentRepo) GetByIDs(_ dbctx.Context, docIDs []uuid.UUID) ([]*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Document
	for _, id := range docIDs {
		if d, ok := r.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) GetByTopicID(_ dbctx.Context, topicID uuid.UUID) ([]*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Document
	for _, d := range r.docs {
		if d.TopicID == topicID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) UpdateDisplay(_ dbctx.Context, docID uuid.UUID, originalName string, metadata datatypes.JSON) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.docs[docID]; ok {
		d.OriginalName = originalName
		d.Metadata = metadata
	}
	return nil
}

func (r *fakeDocumentRepo) FullDeleteByIDs(_ dbctx.Context, docIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range docIDs {
		delete(r.docs, id)
	}
	return nil
}

type fakeKnowledgeBaseRepo struct {
	mu         sync.Mutex
	entries    map[uuid.UUID]*domain.KnowledgeBaseEntry
	failCreate bool
}

func newFakeKnowledgeBaseRepo() *fakeKnowledgeBaseRepo {
	return &fakeKnowledgeBaseRepo{entries: map[uuid.UUID]*domain.KnowledgeBaseEntry{}}
}

func (r *fakeKnowledgeBaseRepo) Create(_ dbctx.Context, entries []*domain.KnowledgeBaseEntry) ([]*domain.KnowledgeBaseEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return nil, errors.New("knowledge base create refused")
	}
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		r.entries[e.ID] = e
	}
	return entries, nil
}

func (r *fakeKnowledgeBaseRepo) GetByIDs(_ dbctx.Context, entryIDs []uuid.UUID) ([]*domain.KnowledgeBaseEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.KnowledgeBaseEntry
	for _, id := range entryIDs {
		if e, ok := r.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeKnowledgeBaseRepo) GetByTopicID(_ dbctx.Context, topicID uuid.UUID) ([]*domain.KnowledgeBaseEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.KnowledgeBaseEntry
	for _, e := range r.entries {
		if e.TopicID == topicID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeKnowledgeBaseRepo) FullDeleteByIDs(_ dbctx.Context, entryIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range entryIDs {
		delete(r.entries, id)
	}
	return nil
}

func (r *fakeKnowledgeBaseRepo) FullDeleteByDocumentIDs(_ dbctx.Context, docIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, docID := range docIDs {
		for id, e := range r.entries {
			if e.DocumentID != nil && *e.DocumentID == docID {
				delete(r.entries, id)
			}
		}
	}
	return nil
}

type fakeSourceRepo struct {
	mu                sync.Mutex
	sources           map[uuid.UUID]*domain.Source
	order             []uuid.UUID
	failCreate        bool
	failMarkProcessed bool
}

func newFakeSourceRepo(seed ...*domain.Source) *fakeSourceRepo {
	r := &fakeSourceRepo{sources: map[uuid.UUID]*domain.Source{}}
	for _, s := range seed {
		r.sources[s.ID] = s
		r.order = append(r.order, s.ID)
	}
	return r
}

func (r *fakeSourceRepo) Create(_ dbctx.Context, sources []*domain.Source) ([]*domain.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return nil, errors.New("source create refused")
	}
	for _, s := range sources {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		r.sources[s.ID] = s
		r.order = append(r.order, s.ID)
	}
	return sources, nil
}

func (r *fakeSourceRepo) GetByIDs(_ dbctx.Context, sourceIDs []uuid.UUID) ([]*domain.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Source
	for _, id := range sourceIDs {
		if s, ok := r.sources[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSourceRepo) GetByTopicID(_ dbctx.Context, topicID uuid.UUID) ([]*domain.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Source
	for _, id := range r.order {
		if s, ok := r.sources[id]; ok && s.TopicID == topicID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSourceRepo) MarkProcessed(_ dbctx.Context, sourceID uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failMarkProcessed {
		return errors.New("mark processed refused")
	}
	s, ok := r.sources[sourceID]
	if !ok {
		return apperrors.ErrNotFound
	}
	s.ProcessingStatus = status
	now := time.Now()
	s.ProcessedAt = &now
	return nil
}

func (r *fakeSourceRepo) FullDeleteByIDs(_ dbctx.Context, sourceIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range sourceIDs {
		delete(r.sources, id)
	}
	return nil
}

func (r *fakeSourceRepo) FullDeleteByDocumentIDs(_ dbctx.Context, docIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, docID := range docIDs {
		for id, s := range r.sources {
			if s.DocumentID != nil && *s.DocumentID == docID {
				delete(r.sources, id)
			}
		}
	}
	return nil
}

type fakeGenerationRepo struct {
	mu        sync.Mutex
	gens      map[uuid.UUID]*domain.Generation
	finalized map[uuid.UUID]string
	// alreadyTerminal makes Finalize report false for every call.
	alreadyTerminal bool
}

func newFakeGenerationRepo() *fakeGenerationRepo {
	return &fakeGenerationRepo{
		gens:      map[uuid.UUID]*domain.Generation{},
		finalized: map[uuid.UUID]string{},
	}
}

func (r *fakeGenerationRepo) Create(_ dbctx.Context, gens []*domain.Generation) ([]*domain.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range gens {
		if g.ID == uuid.Nil {
			g.ID = uuid.New()
		}
		r.gens[g.ID] = g
	}
	return gens, nil
}

func (r *fakeGenerationRepo) GetByIDs(_ dbctx.Context, genIDs []uuid.UUID) ([]*domain.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Generation
	for _, id := range genIDs {
		if g, ok := r.gens[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeGenerationRepo) GetByTopicID(_ dbctx.Context, topicID uuid.UUID) ([]*domain.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Generation
	for _, g := range r.gens {
		if g.TopicID == topicID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeGenerationRepo) CountByTopicID(_ dbctx.Context, topicID uuid.UUID) (int64, error) {
	gens, _ := r.GetByTopicID(dbctx.Context{}, topicID)
	return int64(len(gens)), nil
}

func (r *fakeGenerationRepo) Finalize(_ dbctx.Context, genID uuid.UUID, outcome repos.GenerationOutcome) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.alreadyTerminal {
		return false, nil
	}
	if _, done := r.finalized[genID]; done {
		return false, nil
	}
	g, ok := r.gens[genID]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	g.Status = outcome.Status
	g.ItemsGenerated = outcome.ItemsGenerated
	g.Breakdown = outcome.Breakdown
	g.ErrorMessage = outcome.ErrorMessage
	completed := outcome.CompletedAt
	g.CompletedAt = &completed
	g.ProcessingTimeMs = outcome.ProcessingTimeMs
	r.finalized[genID] = outcome.Status
	return true, nil
}

type fakeGenerationItemRepo struct {
	mu    sync.Mutex
	items []*domain.GenerationItem
	joins []*domain.GenerationItemSource
	// failCountFor makes CountBySourceID fail for that source only.
	failCountFor map[uuid.UUID]bool
}

func newFakeGenerationItemRepo() *fakeGenerationItemRepo {
	return &fakeGenerationItemRepo{failCountFor: map[uuid.UUID]bool{}}
}

func (r *fakeGenerationItemRepo) Create(_ dbctx.Context, items []*domain.GenerationItem, joins []*domain.GenerationItemSource) ([]*domain.GenerationItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
	}
	r.items = append(r.items, items...)
	r.joins = append(r.joins, joins...)
	return items, nil
}

func (r *fakeGenerationItemRepo) GetByGenerationIDs(_ dbctx.Context, genIDs []uuid.UUID) ([]*domain.GenerationItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := map[uuid.UUID]bool{}
	for _, id := range genIDs {
		wanted[id] = true
	}
	var out []*domain.GenerationItem
	for _, item := range r.items {
		if wanted[item.GenerationID] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeGenerationItemRepo) CountBySourceID(_ dbctx.Context, sourceID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCountFor[sourceID] {
		return 0, errors.New("count refused")
	}
	var n int64
	for _, j := range r.joins {
		if j.SourceID == sourceID {
			n++
		}
	}
	return n, nil
}

func (r *fakeGenerationItemRepo) GetSourceIDsByItemIDs(_ dbctx.Context, itemIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := map[uuid.UUID]bool{}
	for _, id := range itemIDs {
		wanted[id] = true
	}
	out := map[uuid.UUID][]uuid.UUID{}
	for _, j := range r.joins {
		if wanted[j.GenerationItemID] {
			out[j.GenerationItemID] = append(out[j.GenerationItemID], j.SourceID)
		}
	}
	return out, nil
}

type fakeQuestionRepo struct {
	mu        sync.Mutex
	questions map[uuid.UUID]*domain.Question
}

func newFakeQuestionRepo(seed ...*domain.Question) *fakeQuestionRepo {
	r := &fakeQuestionRepo{questions: map[uuid.UUID]*domain.Question{}}
	for _, q := range seed {
		r.questions[q.ID] = q
	}
	return r
}

func (r *fakeQuestionRepo) Create(_ dbctx.Context, questions []*domain.Question) ([]*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range questions {
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		r.questions[q.ID] = q
	}
	return questions, nil
}

func (r *fakeQuestionRepo) GetByIDs(_ dbctx.Context, questionIDs []uuid.UUID) ([]*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Question
	for _, id := range questionIDs {
		if q, ok := r.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) GetByTopicID(_ dbctx.Context, topicID uuid.UUID) ([]*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Question
	for _, q := range r.questions {
		if q.TopicID == topicID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) CountByTopicID(_ dbctx.Context, topicID uuid.UUID) (int64, error) {
	qs, _ := r.GetByTopicID(dbctx.Context{}, topicID)
	return int64(len(qs)), nil
}

func (r *fakeQuestionRepo) SetSaved(_ dbctx.Context, questionID uuid.UUID, saved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[questionID]
	if !ok {
		return apperrors.ErrNotFound
	}
	q.IsSaved = saved
	return nil
}

func (r *fakeQuestionRepo) UpdateReviewSchedule(_ dbctx.Context, questionID uuid.UUID, intervalDays int, reviewedAt, nextReviewAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[questionID]
	if !ok {
		return apperrors.ErrNotFound
	}
	q.ReviewIntervalDays = intervalDays
	q.LastReviewedAt = &reviewedAt
	q.NextReviewAt = &nextReviewAt
	return nil
}

func (r *fakeQuestionRepo) GetDueForReview(_ dbctx.Context, userID uuid.UUID, due time.Time) ([]*domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Question
	for _, q := range r.questions {
		if q.UserID != userID || !q.IsSaved {
			continue
		}
		if q.NextReviewAt == nil || !q.NextReviewAt.After(due) {
			out = append(out, q)
		}
	}
	return out, nil
}

// fakeBucket records uploads and deletes in order so compensation tests can
// assert what is left behind.
type fakeBucket struct {
	mu         sync.Mutex
	objects    map[string][]byte
	deletes    []string
	failUpload bool
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (b *fakeBucket) UploadObject(_ context.Context, key string, file io.Reader) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failUpload {
		return errors.New("upload refused")
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *fakeBucket) DeleteObject(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deletes = append(b.deletes, key)
	return nil
}

func (b *fakeBucket) SignedReadURL(key string, _ time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func (b *fakeBucket) ListKeys(_ context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (b *fakeBucket) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.objects))
	for k := range b.objects {
		out = append(out, k)
	}
	return out
}

type fakeAIClient struct {
	response map[string]any
	err      error
	prompts  []string
}

func (c *fakeAIClient) GenerateJSON(_ context.Context, _ string, user string, _ string, _ map[string]any) (map[string]any, error) {
	c.prompts = append(c.prompts, user)
	if c.err != nil {
		return nil, c.err
	}
	return c.response, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []realtime.ProgressEvent
}

func (b *recordingBus) Publish(_ context.Context, ev realtime.ProgressEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBus) StartForwarder(context.Context, func(ev realtime.ProgressEvent)) error {
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) stages() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Stage)
	}
	return out
}
