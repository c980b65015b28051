package extractor

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
)

// wordDocStrategy extracts docx text: the w:t runs of word/document.xml.
type wordDocStrategy struct{}

func newWordDocStrategy() *wordDocStrategy { return &wordDocStrategy{} }

func (s *wordDocStrategy) Name() string { return "word_document" }

func (s *wordDocStrategy) CanHandle(d Descriptor) bool {
	return matchContentType(d, "application/vnd.openxmlformats-officedocument.wordprocessingml.document") ||
		matchExt(d, ".docx")
}

func (s *wordDocStrategy) Extract(_ context.Context, in Input) (*ExtractedContent, error) {
	if !isZipContainer(in.Data) {
		return nil, &apperrors.ExtractionError{Kind: "word_document", Op: "extract", Err: fmt.Errorf("%s claims docx but is not a valid container", in.FileName)}
	}

	text, _, err := openXMLText(in.Data, func(name string) bool {
		return name == "word/document.xml"
	}, "t")
	if err != nil {
		return nil, &apperrors.ExtractionError{Kind: "word_document", Op: "parse", Err: err}
	}
	if text == "" {
		return nil, &apperrors.ExtractionError{Kind: "word_document", Op: "parse", Err: fmt.Errorf("no text in document %s", in.FileName)}
	}

	return &ExtractedContent{
		Kind:        KindDocument,
		SourceLabel: labelFor(in.Descriptor),
		Text:        text,
		Metadata:    &DocumentMetadata{Format: "docx"},
	}, nil
}

// presentationStrategy extracts pptx text: the a:t runs across
// ppt/slides/*.xml, one part per slide.
type presentationStrategy struct{}

func newPresentationStrategy() *presentationStrategy { return &presentationStrategy{} }

func (s *presentationStrategy) Name() string { return "presentation" }

func (s *presentationStrategy) CanHandle(d Descriptor) bool {
	return matchContentType(d, "application/vnd.openxmlformats-officedocument.presentationml.presentation") ||
		matchExt(d, ".pptx")
}

func (s *presentationStrategy) Extract(_ context.Context, in Input) (*ExtractedContent, error) {
	if !isZipContainer(in.Data) {
		return nil, &apperrors.ExtractionError{Kind: "presentation", Op: "extract", Err: fmt.Errorf("%s claims pptx but is not a valid container", in.FileName)}
	}

	text, slides, err := openXMLText(in.Data, func(name string) bool {
		return strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml")
	}, "t")
	if err != nil {
		return nil, &apperrors.ExtractionError{Kind: "presentation", Op: "parse", Err: err}
	}
	if text == "" {
		return nil, &apperrors.ExtractionError{Kind: "presentation", Op: "parse", Err: fmt.Errorf("no text in presentation %s", in.FileName)}
	}

	return &ExtractedContent{
		Kind:        KindPresentation,
		SourceLabel: labelFor(in.Descriptor),
		Text:        text,
		Metadata:    &PresentationMetadata{SlideCount: slides},
	}, nil
}
