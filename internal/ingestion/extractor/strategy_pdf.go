package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/studyloop/studyloop-backend/internal/clients/gcp"
	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
)

// pdfStrategy extracts the embedded text layer locally first. Scanned PDFs
// carry no text layer, so when local extraction comes up empty the strategy
// sends the document through Document AI OCR if a processor is configured.
// With neither yielding text it degrades to a labeled placeholder rather
// than failing the ingestion.
type pdfStrategy struct {
	engines *Engines
}

func newPDFStrategy(engines *Engines) *pdfStrategy { return &pdfStrategy{engines: engines} }

func (s *pdfStrategy) Name() string { return "pdf" }

func (s *pdfStrategy) CanHandle(d Descriptor) bool {
	return matchContentType(d, "application/pdf") || matchExt(d, ".pdf")
}

func (s *pdfStrategy) Extract(ctx context.Context, in Input) (*ExtractedContent, error) {
	if !isPDFPayload(in.Data) {
		return nil, &apperrors.ExtractionError{Kind: "pdf", Op: "extract", Err: fmt.Errorf("%s claims pdf but is missing the %%PDF header", in.FileName)}
	}

	text, pages := localPDFText(in.Data)

	if text == "" {
		ocrText, ocrPages, err := s.ocrPDF(ctx, in)
		if err == nil {
			text, pages = ocrText, ocrPages
		}
	}

	if text == "" {
		return &ExtractedContent{
			Kind:        KindDocument,
			SourceLabel: labelFor(in.Descriptor),
			Text:        fmt.Sprintf("[Could not extract text from PDF: %s]", labelFor(in.Descriptor)),
			Metadata:    &DocumentMetadata{Format: "pdf", PageCount: pages, ExtractionFailed: true},
		}, nil
	}

	return &ExtractedContent{
		Kind:        KindDocument,
		SourceLabel: labelFor(in.Descriptor),
		Text:        text,
		Metadata:    &DocumentMetadata{Format: "pdf", PageCount: pages},
	}, nil
}

func localPDFText(data []byte) (string, int) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0
	}
	pages := r.NumPage()
	plain, err := r.GetPlainText()
	if err != nil {
		return "", pages
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", pages
	}
	return collapseWhitespace(string(raw)), pages
}

func (s *pdfStrategy) ocrPDF(ctx context.Context, in Input) (string, int, error) {
	projectID := strings.TrimSpace(os.Getenv("DOCUMENTAI_PROJECT_ID"))
	processorID := strings.TrimSpace(os.Getenv("DOCUMENTAI_PROCESSOR_ID"))
	if projectID == "" || processorID == "" {
		return "", 0, fmt.Errorf("documentai processor not configured")
	}
	location := strings.TrimSpace(os.Getenv("DOCUMENTAI_LOCATION"))
	if location == "" {
		location = "us"
	}

	engine, err := s.engines.DocAI()
	if err != nil {
		return "", 0, err
	}

	res, err := engine.ProcessBytes(ctx, gcp.DocAIProcessBytesRequest{
		ProjectID:        projectID,
		Location:         location,
		ProcessorID:      processorID,
		ProcessorVersion: strings.TrimSpace(os.Getenv("DOCUMENTAI_PROCESSOR_VERSION")),
		MimeType:         "application/pdf",
		Data:             in.Data,
	})
	if err != nil {
		return "", 0, err
	}
	return res.PrimaryText, res.PageCount, nil
}
