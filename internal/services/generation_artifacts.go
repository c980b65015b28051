package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/internal/domain"
)

// artifactPayload is the shape the completion service is asked to return.
// Field names here are the wire contract; artifactSchema mirrors them.
type artifactPayload struct {
	Flashcards     []flashcardArtifact      `json:"flashcards"`
	MultipleChoice []multipleChoiceArtifact `json:"multiple_choice"`
	OpenEnded      []openEndedArtifact      `json:"open_ended"`
	Summaries      []summaryArtifact        `json:"summaries"`
}

type flashcardArtifact struct {
	Front      string `json:"front"`
	Back       string `json:"back"`
	Difficulty string `json:"difficulty"`
}

type multipleChoiceArtifact struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
	Difficulty   string   `json:"difficulty"`
}

type openEndedArtifact struct {
	Prompt     string `json:"prompt"`
	Guidance   string `json:"guidance"`
	Difficulty string `json:"difficulty"`
}

type summaryArtifact struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

func (p artifactPayload) total() int {
	return len(p.Flashcards) + len(p.MultipleChoice) + len(p.OpenEnded) + len(p.Summaries)
}

func (p artifactPayload) breakdown() map[string]int {
	return map[string]int{
		domain.ItemTypeFlashcard:      len(p.Flashcards),
		domain.ItemTypeMultipleChoice: len(p.MultipleChoice),
		domain.ItemTypeOpenEnded:      len(p.OpenEnded),
		domain.ItemTypeSummary:        len(p.Summaries),
	}
}

// artifactSchema is the strict json_schema handed to the completion service.
func artifactSchema() map[string]any {
	difficulty := map[string]any{"type": "string", "enum": []string{"easy", "medium", "hard"}}

	flashcard := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"front":      map[string]any{"type": "string"},
			"back":       map[string]any{"type": "string"},
			"difficulty": difficulty,
		},
		"required":             []string{"front", "back", "difficulty"},
		"additionalProperties": false,
	}
	multipleChoice := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question":      map[string]any{"type": "string"},
			"options":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"correct_index": map[string]any{"type": "integer"},
			"explanation":   map[string]any{"type": "string"},
			"difficulty":    difficulty,
		},
		"required":             []string{"question", "options", "correct_index", "explanation", "difficulty"},
		"additionalProperties": false,
	}
	openEnded := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt":     map[string]any{"type": "string"},
			"guidance":   map[string]any{"type": "string"},
			"difficulty": difficulty,
		},
		"required":             []string{"prompt", "guidance", "difficulty"},
		"additionalProperties": false,
	}
	summary := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":   map[string]any{"type": "string"},
			"summary": map[string]any{"type": "string"},
		},
		"required":             []string{"title", "summary"},
		"additionalProperties": false,
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"flashcards":      map[string]any{"type": "array", "items": flashcard},
			"multiple_choice": map[string]any{"type": "array", "items": multipleChoice},
			"open_ended":      map[string]any{"type": "array", "items": openEnded},
			"summaries":       map[string]any{"type": "array", "items": summary},
		},
		"required":             []string{"flashcards", "multiple_choice", "open_ended", "summaries"},
		"additionalProperties": false,
	}
}

// parseArtifacts re-marshals the decoded response into the typed payload and
// validates the parts that strict schemas cannot express.
func parseArtifacts(raw map[string]any) (*artifactPayload, error) {
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var payload artifactPayload
	if err := json.Unmarshal(buf, &payload); err != nil {
		return nil, err
	}
	for i, mc := range payload.MultipleChoice {
		if len(mc.Options) < 2 {
			return nil, fmt.Errorf("multiple_choice[%d]: need at least 2 options, got %d", i, len(mc.Options))
		}
		if mc.CorrectIndex < 0 || mc.CorrectIndex >= len(mc.Options) {
			return nil, fmt.Errorf("multiple_choice[%d]: correct_index %d out of range", i, mc.CorrectIndex)
		}
	}
	return &payload, nil
}

// buildArtifacts turns a parsed payload into Question, GenerationItem and
// attribution join rows. IDs are assigned here so the join rows can reference
// their items before anything is persisted.
func buildArtifacts(topic *domain.Topic, gen *domain.Generation, payload *artifactPayload, sourceIDs []uuid.UUID) ([]*domain.Question, []*domain.GenerationItem, []*domain.GenerationItemSource) {
	questions := make([]*domain.Question, 0, payload.total())
	items := make([]*domain.GenerationItem, 0, payload.total())
	joins := make([]*domain.GenerationItemSource, 0, payload.total()*len(sourceIDs))

	attribution := mustJSON(sourceIDs)

	add := func(itemType, title, difficulty string, body any) {
		q := &domain.Question{
			ID:                uuid.New(),
			TopicID:           topic.ID,
			UserID:            topic.UserID,
			GenerationID:      gen.ID,
			ItemType:          itemType,
			Payload:           mustJSON(body),
			SourceAttribution: attribution,
		}
		item := &domain.GenerationItem{
			ID:           uuid.New(),
			GenerationID: gen.ID,
			QuestionID:   q.ID,
			ItemType:     itemType,
			Title:        title,
			Difficulty:   difficulty,
			DerivedFrom:  attribution,
		}
		questions = append(questions, q)
		items = append(items, item)
		for _, sid := range sourceIDs {
			joins = append(joins, &domain.GenerationItemSource{
				GenerationItemID: item.ID,
				SourceID:         sid,
			})
		}
	}

	for _, fc := range payload.Flashcards {
		add(domain.ItemTypeFlashcard, fc.Front, fc.Difficulty, fc)
	}
	for _, mc := range payload.MultipleChoice {
		add(domain.ItemTypeMultipleChoice, mc.Question, mc.Difficulty, mc)
	}
	for _, oe := range payload.OpenEnded {
		add(domain.ItemTypeOpenEnded, oe.Prompt, oe.Difficulty, oe)
	}
	for _, sm := range payload.Summaries {
		add(domain.ItemTypeSummary, sm.Title, "", sm)
	}

	return questions, items, joins
}
