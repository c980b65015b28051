package extractor

import (
	"context"
	"strings"

	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

// Extractor is one extraction strategy. CanHandle is a pure predicate over
// the descriptor; Extract does the work. Strategies are leaf-level so each
// can be tested in isolation.
type Extractor interface {
	Name() string
	CanHandle(d Descriptor) bool
	Extract(ctx context.Context, in Input) (*ExtractedContent, error)
}

// legacyFormats are pre-XML office containers we reject outright instead of
// letting them fall through to the text fallback as garbage bytes.
var legacyFormats = map[string]string{
	".doc": ".docx",
	".ppt": ".pptx",
	".xls": ".xlsx",

	"application/msword":            ".docx",
	"application/vnd.ms-powerpoint": ".pptx",
	"application/vnd.ms-excel":      ".xlsx",
}

// Registry resolves a descriptor to a strategy by iterating a fixed priority
// order. The final entry handles anything, so resolution only errors for the
// explicitly rejected legacy formats.
type Registry struct {
	log        *logger.Logger
	strategies []Extractor
}

// NewRegistry builds the strategy chain. Order matters: specific container
// formats come before sniffing-based ones, file strategies before URL
// strategies, and the plain-text strategy last as the mandatory fallback.
func NewRegistry(log *logger.Logger, engines *Engines) *Registry {
	return &Registry{
		log: log.With("component", "ExtractorRegistry"),
		strategies: []Extractor{
			newDirectTextStrategy(),
			newDelimitedStrategy(),
			newSpreadsheetStrategy(),
			newPresentationStrategy(),
			newWordDocStrategy(),
			newPDFStrategy(engines),
			newImageStrategy(engines),
			newAudioStrategy(engines),
			newVideoFileStrategy(engines),
			newMarkupStrategy(),
			newCodeStrategy(),
			newVideoURLStrategy(engines),
			newWebpageStrategy(engines),
			newPlainTextStrategy(),
		},
	}
}

// Resolve picks the first strategy whose predicate accepts the descriptor.
func (r *Registry) Resolve(d Descriptor) (Extractor, error) {
	if ext := d.Ext(); ext != "" {
		if modern, ok := legacyFormats[ext]; ok {
			return nil, &apperrors.UnsupportedFormatError{Extension: ext, Suggestion: modern}
		}
	}
	if ct := d.NormalizedContentType(); ct != "" {
		if modern, ok := legacyFormats[ct]; ok {
			return nil, &apperrors.UnsupportedFormatError{Extension: ct, Suggestion: modern}
		}
	}

	for _, s := range r.strategies {
		if s.CanHandle(d) {
			return s, nil
		}
	}
	// Unreachable: the plain-text strategy accepts everything.
	return r.strategies[len(r.strategies)-1], nil
}

func matchContentType(d Descriptor, types ...string) bool {
	ct := d.NormalizedContentType()
	if ct == "" {
		return false
	}
	for _, t := range types {
		if ct == t {
			return true
		}
	}
	return false
}

func matchExt(d Descriptor, exts ...string) bool {
	ext := d.Ext()
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func hasURL(d Descriptor) bool {
	return strings.TrimSpace(d.URL) != ""
}
