package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/studyloop/studyloop-backend/internal/pkg/ctxutil"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

// Coordinator resolves a strategy for each input, runs it, and normalizes
// the result. Whatever a strategy returns, the coordinator guarantees
// non-empty text and a uniformly computed word count before anything is
// persisted downstream.
type Coordinator struct {
	log      *logger.Logger
	registry *Registry
}

func NewCoordinator(log *logger.Logger, engines *Engines) *Coordinator {
	return &Coordinator{
		log:      log.With("component", "ExtractionCoordinator"),
		registry: NewRegistry(log, engines),
	}
}

func (c *Coordinator) Extract(ctx context.Context, in Input) (*ExtractedContent, error) {
	ctx = ctxutil.Default(ctx)

	strategy, err := c.registry.Resolve(in.Descriptor)
	if err != nil {
		return nil, err
	}

	out, err := strategy.Extract(ctx, in)
	if err != nil {
		return nil, err
	}

	out.Text = strings.TrimSpace(out.Text)
	if out.Text == "" {
		out.Text = fmt.Sprintf("[No content extracted from: %s]", labelFor(in.Descriptor))
	}
	if strings.TrimSpace(out.SourceLabel) == "" {
		out.SourceLabel = labelFor(in.Descriptor)
	}
	out.Metadata.setWordCount(WordCount(out.Text))

	c.log.Debug("extraction complete",
		"strategy", strategy.Name(),
		"kind", string(out.Kind),
		"label", out.SourceLabel,
		"word_count", WordCount(out.Text),
	)
	return out, nil
}
