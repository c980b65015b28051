package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/studyloop/studyloop-backend/internal/domain"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
	"github.com/studyloop/studyloop-backend/internal/platform/neo4jdb"
)

// The attribution graph mirrors provenance rows into neo4j so that
// "everything derived from this source" can be walked without jsonb
// containment scans. It is strictly best-effort: relational rows are the
// record of truth and callers only log mirror failures.

func UpsertSourceGraph(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, topicID uuid.UUID, sources []*domain.Source) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	sourceNodes := make([]map[string]any, 0, len(sources))
	for _, s := range sources {
		if s == nil || s.ID == uuid.Nil {
			continue
		}
		node := map[string]any{
			"id":          s.ID.String(),
			"topic_id":    s.TopicID.String(),
			"name":        s.DisplayName,
			"kind":        s.Kind,
			"status":      s.ProcessingStatus,
			"ingested_at": s.IngestedAt.UTC().Format(time.RFC3339Nano),
			"synced_at":   now,
		}
		if s.DocumentID != nil && *s.DocumentID != uuid.Nil {
			node["document_id"] = s.DocumentID.String()
		}
		sourceNodes = append(sourceNodes, node)
	}
	if len(sourceNodes) == 0 {
		return nil
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	initGraphSchema(ctx, session, log)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (t:Topic {id: $topic_id})
SET t.synced_at = $synced_at
WITH t
UNWIND $sources AS s
MERGE (src:Source {id: s.id})
SET src += s
MERGE (src)-[:IN_TOPIC]->(t)
`, map[string]any{
			"topic_id":  topicID.String(),
			"synced_at": now,
			"sources":   sourceNodes,
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func UpsertAttributionGraph(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, gen *domain.Generation, items []*domain.GenerationItem, joins []*domain.GenerationItemSource) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if gen == nil || gen.ID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	genNode := map[string]any{
		"id":        gen.ID.String(),
		"topic_id":  gen.TopicID.String(),
		"type":      gen.GenerationType,
		"status":    gen.Status,
		"synced_at": now,
	}

	itemNodes := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if it == nil || it.ID == uuid.Nil {
			continue
		}
		itemNodes = append(itemNodes, map[string]any{
			"id":            it.ID.String(),
			"generation_id": it.GenerationID.String(),
			"item_type":     it.ItemType,
			"synced_at":     now,
		})
	}

	edges := make([]map[string]any, 0, len(joins))
	for _, j := range joins {
		if j == nil || j.GenerationItemID == uuid.Nil || j.SourceID == uuid.Nil {
			continue
		}
		edges = append(edges, map[string]any{
			"item_id":   j.GenerationItemID.String(),
			"source_id": j.SourceID.String(),
		})
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	initGraphSchema(ctx, session, log)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (g:Generation {id: $gen.id})
SET g += $gen
WITH g
MERGE (t:Topic {id: $gen.topic_id})
MERGE (g)-[:IN_TOPIC]->(t)
`, map[string]any{"gen": genNode})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if len(itemNodes) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $items AS i
MERGE (gi:GenerationItem {id: i.id})
SET gi += i
WITH gi, i
MERGE (g:Generation {id: i.generation_id})
MERGE (gi)-[:IN_GENERATION]->(g)
`, map[string]any{"items": itemNodes})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(edges) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $edges AS e
MERGE (gi:GenerationItem {id: e.item_id})
MERGE (src:Source {id: e.source_id})
MERGE (gi)-[:DERIVED_FROM]->(src)
`, map[string]any{"edges": edges})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	return err
}

// Best-effort schema init.
func initGraphSchema(ctx context.Context, session neo4j.SessionWithContext, log *logger.Logger) {
	stmts := []string{
		`CREATE CONSTRAINT topic_id_unique IF NOT EXISTS FOR (t:Topic) REQUIRE t.id IS UNIQUE`,
		`CREATE CONSTRAINT source_id_unique IF NOT EXISTS FOR (s:Source) REQUIRE s.id IS UNIQUE`,
		`CREATE CONSTRAINT generation_id_unique IF NOT EXISTS FOR (g:Generation) REQUIRE g.id IS UNIQUE`,
		`CREATE CONSTRAINT generation_item_id_unique IF NOT EXISTS FOR (i:GenerationItem) REQUIRE i.id IS UNIQUE`,
	}
	for _, q := range stmts {
		if res, err := session.Run(ctx, q, nil); err != nil {
			if log != nil {
				log.Warn("neo4j schema init failed (continuing)", "error", err)
			}
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}
