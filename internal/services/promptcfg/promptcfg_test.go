package promptcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutEnvUsesDefaults(t *testing.T) {
	t.Setenv("GENERATION_PROMPT_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 24, cfg.ItemMix.Total())
}

func TestLoadFillsZeroFieldsFromDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
item_mix:
  flashcards: 5
  multiple_choice: 3
max_source_chars: 50000
`), 0o644))
	t.Setenv("GENERATION_PROMPT_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.ItemMix.Flashcards)
	assert.Equal(t, 3, cfg.ItemMix.MultipleChoice)
	assert.Zero(t, cfg.ItemMix.OpenEnded)
	assert.Equal(t, 50_000, cfg.MaxSourceChars)
	// Untouched sections keep their defaults.
	assert.Equal(t, Default().SystemPrompt, cfg.SystemPrompt)
	assert.Equal(t, Default().CognitiveLevels, cfg.CognitiveLevels)
}

func TestLoadMissingFileErrors(t *testing.T) {
	t.Setenv("GENERATION_PROMPT_CONFIG", filepath.Join(t.TempDir(), "absent.yml"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoadMalformedYAMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.yml")
	require.NoError(t, os.WriteFile(path, []byte("item_mix: [not a map"), 0o644))
	t.Setenv("GENERATION_PROMPT_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
}
