package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/studyloop/studyloop-backend/internal/data/repos"
	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/pkg/ctxutil"
	"github.com/studyloop/studyloop-backend/internal/pkg/dbctx"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

const (
	HistoryKindSource     = "source"
	HistoryKindGeneration = "generation"
)

// HistoryEntry is one row of the merged topic timeline. Exactly one of
// Source/Generation is set, matching Kind.
type HistoryEntry struct {
	Kind       string             `json:"kind"`
	OccurredAt time.Time          `json:"occurred_at"`
	Source     *domain.Source     `json:"source,omitempty"`
	Generation *domain.Generation `json:"generation,omitempty"`
}

// SourceStats pairs a Source with how many generated items were derived from
// it. StatsOK is false when the count query failed for this source only.
type SourceStats struct {
	Source       *domain.Source `json:"source"`
	DerivedItems int64          `json:"derived_items"`
	StatsOK      bool           `json:"stats_ok"`
}

type HistoryService interface {
	// TopicHistory merges a topic's sources and generations into a single
	// newest-first timeline.
	TopicHistory(ctx context.Context, topicID uuid.UUID) ([]HistoryEntry, error)
	// SourcesWithStats returns every source of the topic with its derived
	// item count. A failing count degrades that one row, not the call.
	SourcesWithStats(ctx context.Context, topicID uuid.UUID) ([]SourceStats, error)
}

type historyService struct {
	log     *logger.Logger
	topics  repos.TopicRepo
	sources repos.SourceRepo
	gens    repos.GenerationRepo
	items   repos.GenerationItemRepo
}

func NewHistoryService(
	log *logger.Logger,
	topics repos.TopicRepo,
	sources repos.SourceRepo,
	gens repos.GenerationRepo,
	items repos.GenerationItemRepo,
) HistoryService {
	return &historyService{
		log:     log.With("service", "HistoryService"),
		topics:  topics,
		sources: sources,
		gens:    gens,
		items:   items,
	}
}

func (s *historyService) TopicHistory(ctx context.Context, topicID uuid.UUID) ([]HistoryEntry, error) {
	ctx = ctxutil.Default(ctx)
	dbc := dbctx.Context{Ctx: ctx}

	if _, err := s.topics.GetByID(dbc, topicID); err != nil {
		return nil, err
	}

	sources, err := s.sources.GetByTopicID(dbc, topicID)
	if err != nil {
		return nil, err
	}
	gens, err := s.gens.GetByTopicID(dbc, topicID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(sources)+len(gens))
	for _, src := range sources {
		entries = append(entries, HistoryEntry{
			Kind:       HistoryKindSource,
			OccurredAt: src.IngestedAt,
			Source:     src,
		})
	}
	for _, gen := range gens {
		entries = append(entries, HistoryEntry{
			Kind:       HistoryKindGeneration,
			OccurredAt: gen.StartedAt,
			Generation: gen,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].OccurredAt.After(entries[j].OccurredAt)
	})
	return entries, nil
}

func (s *historyService) SourcesWithStats(ctx context.Context, topicID uuid.UUID) ([]SourceStats, error) {
	ctx = ctxutil.Default(ctx)
	dbc := dbctx.Context{Ctx: ctx}

	if _, err := s.topics.GetByID(dbc, topicID); err != nil {
		return nil, err
	}
	sources, err := s.sources.GetByTopicID(dbc, topicID)
	if err != nil {
		return nil, err
	}

	stats := make([]SourceStats, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, src := range sources {
		stats[i] = SourceStats{Source: src}
		g.Go(func() error {
			n, err := s.items.CountBySourceID(dbctx.Context{Ctx: gctx}, src.ID)
			if err != nil {
				// Partial results: the source row survives without stats.
				s.log.Warn("derived item count failed", "source_id", src.ID, "error", err)
				return nil
			}
			stats[i].DerivedItems = n
			stats[i].StatsOK = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
