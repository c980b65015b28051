package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/studyloop/studyloop-backend/internal/clients/openai"
	"github.com/studyloop/studyloop-backend/internal/data/graph"
	"github.com/studyloop/studyloop-backend/internal/data/repos"
	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/pkg/ctxutil"
	"github.com/studyloop/studyloop-backend/internal/pkg/dbctx"
	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
	"github.com/studyloop/studyloop-backend/internal/platform/neo4jdb"
	"github.com/studyloop/studyloop-backend/internal/realtime"
	"github.com/studyloop/studyloop-backend/internal/services/promptcfg"
)

// GenerateRequest selects the generation mode: DirectText set means the text
// is ingested as a new Source first; otherwise an empty SourceIDs means bulk
// (every source of the topic) and a non-empty one selective.
type GenerateRequest struct {
	TopicID    uuid.UUID
	UserID     uuid.UUID
	SourceIDs  []uuid.UUID
	DirectText string
}

type GenerationResult struct {
	Generation *domain.Generation
	Questions  []*domain.Question
}

// GenerationService drives one completion-service run end to end: resolve
// input sources, create the Generation row, call the model, persist the
// items, and finalize the row to exactly one terminal state.
type GenerationService interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerationResult, error)
}

type generationService struct {
	log       *logger.Logger
	topics    repos.TopicRepo
	sources   repos.SourceRepo
	kb        repos.KnowledgeBaseRepo
	gens      repos.GenerationRepo
	items     repos.GenerationItemRepo
	questions repos.QuestionRepo
	ingestion IngestionService
	ai        openai.Client
	cfg       promptcfg.Config
	bus       realtime.Bus
	graphDB   *neo4jdb.Client
}

func NewGenerationService(
	log *logger.Logger,
	topics repos.TopicRepo,
	sources repos.SourceRepo,
	kb repos.KnowledgeBaseRepo,
	gens repos.GenerationRepo,
	items repos.GenerationItemRepo,
	questions repos.QuestionRepo,
	ingestion IngestionService,
	ai openai.Client,
	cfg promptcfg.Config,
	bus realtime.Bus,
	graphDB *neo4jdb.Client,
) GenerationService {
	return &generationService{
		log:       log.With("service", "GenerationService"),
		topics:    topics,
		sources:   sources,
		kb:        kb,
		gens:      gens,
		items:     items,
		questions: questions,
		ingestion: ingestion,
		ai:        ai,
		cfg:       cfg,
		bus:       bus,
		graphDB:   graphDB,
	}
}

func (s *generationService) Generate(ctx context.Context, req GenerateRequest) (*GenerationResult, error) {
	ctx = ctxutil.Default(ctx)
	dbc := dbctx.Context{Ctx: ctx}

	topic, err := s.topics.GetByID(dbc, req.TopicID)
	if err != nil {
		return nil, err
	}

	mode := domain.GenerationTypeBulk
	switch {
	case strings.TrimSpace(req.DirectText) != "":
		mode = domain.GenerationTypeDirectText
		src, err := s.ingestion.Ingest(ctx, req.TopicID, req.UserID, IngestInput{Text: req.DirectText})
		if err != nil {
			return nil, err
		}
		req.SourceIDs = []uuid.UUID{src.ID}
	case len(req.SourceIDs) > 0:
		mode = domain.GenerationTypeSelective
	}

	resolved, err := s.resolveSources(dbc, req.TopicID, req.SourceIDs)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now().UTC()
	gen := &domain.Generation{
		TopicID:        req.TopicID,
		UserID:         req.UserID,
		GenerationType: mode,
		SourceIDs:      mustIDsJSON(sourceIDsOf(resolved)),
		Status:         domain.GenerationStatusProcessing,
		StartedAt:      startedAt,
	}
	if _, err := s.gens.Create(dbc, []*domain.Generation{gen}); err != nil {
		return nil, &apperrors.PersistenceError{Entity: "generation", Op: "create", Err: err}
	}

	gid := gen.ID
	s.publish(ctx, realtime.ProgressEvent{
		UserID: req.UserID, TopicID: req.TopicID, GenerationID: &gid,
		Stage:  realtime.StageGenerationStarted,
		Detail: map[string]any{"mode": mode, "source_count": len(resolved)},
	})

	result, err := s.run(ctx, topic, gen, resolved)
	if err != nil {
		s.finalize(dbc, gen.ID, repos.GenerationOutcome{
			Status:           domain.GenerationStatusFailed,
			ErrorMessage:     err.Error(),
			CompletedAt:      time.Now().UTC(),
			ProcessingTimeMs: time.Since(startedAt).Milliseconds(),
		})
		s.publish(ctx, realtime.ProgressEvent{
			UserID: req.UserID, TopicID: req.TopicID, GenerationID: &gid,
			Stage:  realtime.StageGenerationFailed,
			Detail: map[string]any{"error": err.Error()},
		})
		return nil, err
	}

	s.publish(ctx, realtime.ProgressEvent{
		UserID: req.UserID, TopicID: req.TopicID, GenerationID: &gid,
		Stage:  realtime.StageGenerationDone,
		Detail: map[string]any{"items_generated": result.Generation.ItemsGenerated},
	})
	return result, nil
}

// resolveSources loads the topic's sources and applies the request filter.
// Ids that do not belong to the topic are dropped silently; errors are
// raised only for a topic with no sources at all or a filter that removes
// everything. Both happen before any Generation row exists.
func (s *generationService) resolveSources(dbc dbctx.Context, topicID uuid.UUID, requested []uuid.UUID) ([]*domain.Source, error) {
	all, err := s.sources.GetByTopicID(dbc, topicID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, &apperrors.NoSourcesError{TopicID: topicID}
	}
	if len(requested) == 0 {
		return all, nil
	}

	wanted := make(map[uuid.UUID]bool, len(requested))
	for _, id := range requested {
		wanted[id] = true
	}
	resolved := make([]*domain.Source, 0, len(requested))
	for _, src := range all {
		if wanted[src.ID] {
			resolved = append(resolved, src)
		}
	}
	if len(resolved) == 0 {
		return nil, &apperrors.EmptyIntersectionError{TopicID: topicID, Requested: requested}
	}
	return resolved, nil
}

// run executes the fallible middle of the workflow. Any error returned here
// finalizes the Generation as failed.
func (s *generationService) run(ctx context.Context, topic *domain.Topic, gen *domain.Generation, resolved []*domain.Source) (*GenerationResult, error) {
	dbc := dbctx.Context{Ctx: ctx}

	user, err := s.buildUserPrompt(dbc, topic, resolved)
	if err != nil {
		return nil, err
	}

	raw, err := s.ai.GenerateJSON(ctx, s.systemPrompt(), user, "study_artifacts", artifactSchema())
	if err != nil {
		if apperrors.IsQuota(err) {
			return nil, err
		}
		return nil, &apperrors.GenerationError{GenerationID: gen.ID, Reason: "completion request failed", Err: err}
	}

	payload, err := parseArtifacts(raw)
	if err != nil {
		return nil, &apperrors.GenerationError{GenerationID: gen.ID, Reason: "malformed completion response", Err: err}
	}

	sourceIDs := sourceIDsOf(resolved)
	questions, items, joins := buildArtifacts(topic, gen, payload, sourceIDs)

	if len(questions) > 0 {
		if _, err := s.questions.Create(dbc, questions); err != nil {
			return nil, &apperrors.PersistenceError{Entity: "question", Op: "create", Err: err}
		}
		if _, err := s.items.Create(dbc, items, joins); err != nil {
			return nil, &apperrors.PersistenceError{Entity: "generation_item", Op: "create", Err: err}
		}
	}

	completedAt := time.Now().UTC()
	outcome := repos.GenerationOutcome{
		Status:           domain.GenerationStatusCompleted,
		ItemsGenerated:   len(questions),
		Breakdown:        mustJSON(payload.breakdown()),
		CompletedAt:      completedAt,
		ProcessingTimeMs: completedAt.Sub(gen.StartedAt).Milliseconds(),
	}
	s.finalize(dbc, gen.ID, outcome)

	gen.Status = domain.GenerationStatusCompleted
	gen.ItemsGenerated = len(questions)
	gen.Breakdown = outcome.Breakdown
	gen.CompletedAt = &completedAt
	gen.ProcessingTimeMs = outcome.ProcessingTimeMs

	if err := graph.UpsertAttributionGraph(ctx, s.graphDB, s.log, gen, items, joins); err != nil {
		s.log.Warn("attribution graph mirror failed", "generation_id", gen.ID, "error", err)
	}

	return &GenerationResult{Generation: gen, Questions: questions}, nil
}

// finalize applies the terminal outcome once. A false return means another
// path already finalized the row; that is logged and otherwise ignored.
func (s *generationService) finalize(dbc dbctx.Context, genID uuid.UUID, outcome repos.GenerationOutcome) {
	applied, err := s.gens.Finalize(dbc, genID, outcome)
	if err != nil {
		s.log.Error("generation finalize failed", "generation_id", genID, "status", outcome.Status, "error", err)
		return
	}
	if !applied {
		s.log.Warn("generation already terminal, outcome dropped", "generation_id", genID, "status", outcome.Status)
	}
}

func (s *generationService) systemPrompt() string {
	var b strings.Builder
	b.WriteString(s.cfg.SystemPrompt)
	b.WriteString(fmt.Sprintf(
		"\n\nProduce exactly: %d flashcards, %d multiple-choice questions, %d open-ended prompts, %d summaries.",
		s.cfg.ItemMix.Flashcards, s.cfg.ItemMix.MultipleChoice, s.cfg.ItemMix.OpenEnded, s.cfg.ItemMix.Summaries,
	))
	if len(s.cfg.CognitiveLevels) > 0 {
		b.WriteString(" Cover these cognitive levels: ")
		b.WriteString(strings.Join(s.cfg.CognitiveLevels, ", "))
		b.WriteString(".")
	}
	return b.String()
}

// buildUserPrompt concatenates the knowledge base text of every resolved
// source under the topic label, truncated to the configured character limit.
func (s *generationService) buildUserPrompt(dbc dbctx.Context, topic *domain.Topic, resolved []*domain.Source) (string, error) {
	entryIDs := make([]uuid.UUID, 0, len(resolved))
	for _, src := range resolved {
		entryIDs = append(entryIDs, src.KnowledgeBaseEntryID)
	}
	entries, err := s.kb.GetByIDs(dbc, entryIDs)
	if err != nil {
		return "", err
	}
	textByID := make(map[uuid.UUID]*domain.KnowledgeBaseEntry, len(entries))
	for _, e := range entries {
		textByID[e.ID] = e
	}

	var b strings.Builder
	b.WriteString("Topic: ")
	b.WriteString(topic.Title)
	b.WriteString("\n\n")
	for _, src := range resolved {
		entry, ok := textByID[src.KnowledgeBaseEntryID]
		if !ok {
			return "", &apperrors.PersistenceError{Entity: "knowledge_base_entry", Op: "load", Err: fmt.Errorf("entry %s missing for source %s", src.KnowledgeBaseEntryID, src.ID)}
		}
		b.WriteString("=== Source: ")
		b.WriteString(entry.SourceLabel)
		b.WriteString(" ===\n")
		b.WriteString(entry.Text)
		b.WriteString("\n\n")
	}

	out := b.String()
	if s.cfg.MaxSourceChars > 0 && len(out) > s.cfg.MaxSourceChars {
		cut := s.cfg.MaxSourceChars
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut]
	}
	return out, nil
}

func (s *generationService) publish(ctx context.Context, ev realtime.ProgressEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warn("progress publish failed", "stage", ev.Stage, "error", err)
	}
}

func sourceIDsOf(sources []*domain.Source) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(sources))
	for _, src := range sources {
		ids = append(ids, src.ID)
	}
	return ids
}

func mustIDsJSON(ids []uuid.UUID) datatypes.JSON {
	return mustJSON(ids)
}

func mustJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(raw)
}
