package extractor

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
)

// delimitedStrategy flattens csv/tsv rows into one line per record so the
// completion service sees cells in reading order.
type delimitedStrategy struct{}

func newDelimitedStrategy() *delimitedStrategy { return &delimitedStrategy{} }

func (s *delimitedStrategy) Name() string { return "delimited" }

func (s *delimitedStrategy) CanHandle(d Descriptor) bool {
	return matchContentType(d, "text/csv", "text/tab-separated-values") ||
		matchExt(d, ".csv", ".tsv")
}

func (s *delimitedStrategy) Extract(_ context.Context, in Input) (*ExtractedContent, error) {
	if len(in.Data) == 0 {
		return nil, &apperrors.ExtractionError{Kind: "delimited", Op: "extract", Err: fmt.Errorf("empty file: %s", in.FileName)}
	}

	r := csv.NewReader(bytes.NewReader(in.Data))
	if in.Ext() == ".tsv" || matchContentType(in.Descriptor, "text/tab-separated-values") {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, &apperrors.ExtractionError{Kind: "delimited", Op: "parse", Err: err}
	}
	if len(records) == 0 {
		return nil, &apperrors.ExtractionError{Kind: "delimited", Op: "parse", Err: fmt.Errorf("no rows in %s", in.FileName)}
	}

	var out strings.Builder
	for _, rec := range records {
		out.WriteString(strings.Join(rec, " | "))
		out.WriteString("\n")
	}

	return &ExtractedContent{
		Kind:        KindSpreadsheet,
		SourceLabel: labelFor(in.Descriptor),
		Text:        strings.TrimSpace(out.String()),
		Metadata:    &SpreadsheetMetadata{RowCount: len(records)},
	}, nil
}

// spreadsheetStrategy reads xlsx containers: shared strings plus inline cell
// strings from each worksheet part.
type spreadsheetStrategy struct{}

func newSpreadsheetStrategy() *spreadsheetStrategy { return &spreadsheetStrategy{} }

func (s *spreadsheetStrategy) Name() string { return "spreadsheet" }

func (s *spreadsheetStrategy) CanHandle(d Descriptor) bool {
	return matchContentType(d, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet") ||
		matchExt(d, ".xlsx")
}

func (s *spreadsheetStrategy) Extract(_ context.Context, in Input) (*ExtractedContent, error) {
	if !isZipContainer(in.Data) {
		return nil, &apperrors.ExtractionError{Kind: "spreadsheet", Op: "extract", Err: fmt.Errorf("%s claims xlsx but is not a valid container", in.FileName)}
	}

	shared, _, err := openXMLText(in.Data, func(name string) bool {
		return name == "xl/sharedStrings.xml"
	}, "t")
	if err != nil {
		return nil, &apperrors.ExtractionError{Kind: "spreadsheet", Op: "parse", Err: err}
	}

	inline, sheets, err := openXMLText(in.Data, func(name string) bool {
		return strings.HasPrefix(name, "xl/worksheets/") && strings.HasSuffix(name, ".xml")
	}, "t")
	if err != nil {
		return nil, &apperrors.ExtractionError{Kind: "spreadsheet", Op: "parse", Err: err}
	}

	text := collapseWhitespace(shared + " " + inline)
	if text == "" {
		return nil, &apperrors.ExtractionError{Kind: "spreadsheet", Op: "parse", Err: fmt.Errorf("no text in workbook %s", in.FileName)}
	}

	return &ExtractedContent{
		Kind:        KindSpreadsheet,
		SourceLabel: labelFor(in.Descriptor),
		Text:        text,
		Metadata:    &SpreadsheetMetadata{SheetCount: sheets, RowCount: 0},
	}, nil
}
