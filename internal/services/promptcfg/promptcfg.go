package promptcfg

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ItemMix is the requested item count per artifact kind for one generation.
type ItemMix struct {
	Flashcards     int `yaml:"flashcards"`
	MultipleChoice int `yaml:"multiple_choice"`
	OpenEnded      int `yaml:"open_ended"`
	Summaries      int `yaml:"summaries"`
}

func (m ItemMix) Total() int {
	return m.Flashcards + m.MultipleChoice + m.OpenEnded + m.Summaries
}

// Config drives the completion-service request: the system instructions, the
// desired item mix, and the cognitive levels the items should cover.
type Config struct {
	SystemPrompt    string   `yaml:"system_prompt"`
	ItemMix         ItemMix  `yaml:"item_mix"`
	CognitiveLevels []string `yaml:"cognitive_levels"`
	MaxSourceChars  int      `yaml:"max_source_chars"`
}

const defaultSystemPrompt = `You are a study-material author. From the provided source material, produce flashcards, multiple-choice questions, open-ended prompts, and summaries. Ground every item strictly in the source text; never invent facts. Cover the requested cognitive levels from recall through application.`

func Default() Config {
	return Config{
		SystemPrompt: defaultSystemPrompt,
		ItemMix: ItemMix{
			Flashcards:     10,
			MultipleChoice: 8,
			OpenEnded:      4,
			Summaries:      2,
		},
		CognitiveLevels: []string{"recall", "understanding", "application"},
		MaxSourceChars:  200_000,
	}
}

// Load reads the config file named by GENERATION_PROMPT_CONFIG, filling any
// zero field from the defaults. With the variable unset, defaults apply.
func Load() (Config, error) {
	cfg := Default()

	path := strings.TrimSpace(os.Getenv("GENERATION_PROMPT_CONFIG"))
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read prompt config %s: %w", path, err)
	}

	var loaded Config
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return cfg, fmt.Errorf("parse prompt config %s: %w", path, err)
	}

	if strings.TrimSpace(loaded.SystemPrompt) != "" {
		cfg.SystemPrompt = loaded.SystemPrompt
	}
	if loaded.ItemMix.Total() > 0 {
		cfg.ItemMix = loaded.ItemMix
	}
	if len(loaded.CognitiveLevels) > 0 {
		cfg.CognitiveLevels = loaded.CognitiveLevels
	}
	if loaded.MaxSourceChars > 0 {
		cfg.MaxSourceChars = loaded.MaxSourceChars
	}
	return cfg, nil
}
