package extractor

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
)

// directTextStrategy handles pasted text: no filename, no URL, just a body.
type directTextStrategy struct{}

func newDirectTextStrategy() *directTextStrategy { return &directTextStrategy{} }

func (s *directTextStrategy) Name() string { return "direct_text" }

func (s *directTextStrategy) CanHandle(d Descriptor) bool {
	return strings.TrimSpace(d.FileName) == "" && strings.TrimSpace(d.URL) == ""
}

func (s *directTextStrategy) Extract(_ context.Context, in Input) (*ExtractedContent, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" && len(in.Data) > 0 {
		text = strings.TrimSpace(string(in.Data))
	}
	if text == "" {
		return nil, &apperrors.ExtractionError{Kind: "direct_text", Op: "extract", Err: fmt.Errorf("empty text body")}
	}
	return &ExtractedContent{
		Kind:        KindDirectText,
		SourceLabel: "Pasted text",
		Text:        text,
		Metadata:    &DirectTextMetadata{},
	}, nil
}

// plainTextStrategy is the mandatory final fallback: anything that survived
// the earlier predicates is treated as a plain text document, provided the
// bytes actually look like text.
type plainTextStrategy struct{}

func newPlainTextStrategy() *plainTextStrategy { return &plainTextStrategy{} }

func (s *plainTextStrategy) Name() string { return "plain_text" }

func (s *plainTextStrategy) CanHandle(Descriptor) bool { return true }

func (s *plainTextStrategy) Extract(_ context.Context, in Input) (*ExtractedContent, error) {
	data := in.Data
	if len(data) == 0 && in.Text != "" {
		data = []byte(in.Text)
	}
	if len(data) == 0 {
		return nil, &apperrors.ExtractionError{Kind: "plain_text", Op: "extract", Err: fmt.Errorf("empty payload: %s", in.FileName)}
	}
	if !isProbablyText(data) {
		return nil, &apperrors.ExtractionError{Kind: "plain_text", Op: "extract", Err: fmt.Errorf("payload is not text: %s", in.FileName)}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, &apperrors.ExtractionError{Kind: "plain_text", Op: "extract", Err: fmt.Errorf("file contains no text: %s", in.FileName)}
	}
	return &ExtractedContent{
		Kind:        KindDocument,
		SourceLabel: labelFor(in.Descriptor),
		Text:        text,
		Metadata:    &DocumentMetadata{Format: "text"},
	}, nil
}

var codeLanguages = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".rs":    "rust",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".sh":    "shell",
	".sql":   "sql",
	".r":     "r",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
}

// codeStrategy keeps source files verbatim: whitespace is significant, so
// the text is not collapsed.
type codeStrategy struct{}

func newCodeStrategy() *codeStrategy { return &codeStrategy{} }

func (s *codeStrategy) Name() string { return "code" }

func (s *codeStrategy) CanHandle(d Descriptor) bool {
	_, ok := codeLanguages[d.Ext()]
	return ok
}

func (s *codeStrategy) Extract(_ context.Context, in Input) (*ExtractedContent, error) {
	if len(in.Data) == 0 || !isProbablyText(in.Data) {
		return nil, &apperrors.ExtractionError{Kind: "code", Op: "extract", Err: fmt.Errorf("not a readable source file: %s", in.FileName)}
	}
	text := strings.TrimRight(string(in.Data), "\n") + "\n"
	return &ExtractedContent{
		Kind:        KindCode,
		SourceLabel: labelFor(in.Descriptor),
		Text:        text,
		Metadata: &CodeMetadata{
			LineCount: strings.Count(text, "\n"),
			Language:  codeLanguages[in.Ext()],
		},
	}, nil
}

func labelFor(d Descriptor) string {
	if name := strings.TrimSpace(d.FileName); name != "" {
		return name
	}
	if u := strings.TrimSpace(d.URL); u != "" {
		return u
	}
	return "Untitled"
}
