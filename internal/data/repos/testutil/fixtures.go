package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyloop/studyloop-backend/internal/domain"
)

func SeedTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *domain.Topic {
	tb.Helper()
	topic := &domain.Topic{
		ID:     uuid.New(),
		UserID: userID,
		Title:  "topic",
	}
	if err := tx.WithContext(ctx).Create(topic).Error; err != nil {
		tb.Fatalf("seed topic: %v", err)
	}
	return topic
}

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, topicID, userID uuid.UUID, storageKey string) *domain.Document {
	tb.Helper()
	doc := &domain.Document{
		ID:           uuid.New(),
		TopicID:      topicID,
		UserID:       userID,
		OriginalName: "notes.pdf",
		MimeType:     "application/pdf",
		SizeBytes:    1024,
		Metadata:     datatypes.JSON([]byte(`{}`)),
	}
	if storageKey != "" {
		doc.StorageKey = &storageKey
	}
	if err := tx.WithContext(ctx).Create(doc).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return doc
}

func SeedKnowledgeBaseEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, topicID, userID uuid.UUID, docID *uuid.UUID) *domain.KnowledgeBaseEntry {
	tb.Helper()
	entry := &domain.KnowledgeBaseEntry{
		ID:          uuid.New(),
		TopicID:     topicID,
		UserID:      userID,
		DocumentID:  docID,
		Kind:        "document",
		SourceLabel: "notes.pdf",
		Text:        "seed text",
		Metadata:    datatypes.JSON([]byte(`{"word_count":2}`)),
	}
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		tb.Fatalf("seed knowledge base entry: %v", err)
	}
	return entry
}

func SeedSource(tb testing.TB, ctx context.Context, tx *gorm.DB, topicID, userID, kbEntryID uuid.UUID) *domain.Source {
	tb.Helper()
	src := &domain.Source{
		ID:                   uuid.New(),
		TopicID:              topicID,
		UserID:               userID,
		KnowledgeBaseEntryID: kbEntryID,
		Kind:                 "document",
		DisplayName:          "notes.pdf",
		OriginalName:         "notes.pdf",
		WordCount:            2,
		ProcessingStatus:     domain.SourceStatusCompleted,
		IngestedAt:           time.Now(),
	}
	if err := tx.WithContext(ctx).Create(src).Error; err != nil {
		tb.Fatalf("seed source: %v", err)
	}
	return src
}

func SeedGeneration(tb testing.TB, ctx context.Context, tx *gorm.DB, topicID, userID uuid.UUID, sourceIDs []uuid.UUID) *domain.Generation {
	tb.Helper()
	ids := make([]string, 0, len(sourceIDs))
	for _, id := range sourceIDs {
		ids = append(ids, id.String())
	}
	gen := &domain.Generation{
		ID:             uuid.New(),
		TopicID:        topicID,
		UserID:         userID,
		GenerationType: domain.GenerationTypeBulk,
		SourceIDs:      MustJSON(tb, ids),
		Status:         domain.GenerationStatusProcessing,
		StartedAt:      time.Now(),
	}
	if err := tx.WithContext(ctx).Create(gen).Error; err != nil {
		tb.Fatalf("seed generation: %v", err)
	}
	return gen
}

func SeedQuestion(tb testing.TB, ctx context.Context, tx *gorm.DB, topicID, userID, genID uuid.UUID) *domain.Question {
	tb.Helper()
	q := &domain.Question{
		ID:                uuid.New(),
		TopicID:           topicID,
		UserID:            userID,
		GenerationID:      genID,
		ItemType:          domain.ItemTypeFlashcard,
		Payload:           datatypes.JSON([]byte(`{"front":"f","back":"b"}`)),
		SourceAttribution: datatypes.JSON([]byte(`[]`)),
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed question: %v", err)
	}
	return q
}

func MustJSON(tb testing.TB, v any) datatypes.JSON {
	tb.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("marshal fixture: %v", err)
	}
	return datatypes.JSON(b)
}
