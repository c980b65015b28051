package extractor

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// Kind tags the normalized content variant an extraction produced.
type Kind string

const (
	KindDocument     Kind = "document"
	KindCode         Kind = "code"
	KindSpreadsheet  Kind = "spreadsheet"
	KindPresentation Kind = "presentation"
	KindImage        Kind = "image"
	KindAudio        Kind = "audio"
	KindWebpage      Kind = "webpage"
	KindVideo        Kind = "video"
	KindDirectText   Kind = "direct_text"
)

// Descriptor identifies what an input claims to be, before any byte-level
// sniffing. Strategies match on it; resolution never touches payload bytes.
type Descriptor struct {
	ContentType string
	FileName    string
	URL         string
}

func (d Descriptor) Ext() string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(d.FileName)))
}

func (d Descriptor) NormalizedContentType() string {
	ct := strings.ToLower(strings.TrimSpace(d.ContentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// Input is one unit of raw content handed to a strategy. Exactly one of
// Data, URL (via Descriptor) or Text is the payload, depending on the kind.
type Input struct {
	Descriptor
	Data []byte
	Text string
}

// ExtractedContent is the transient normalized result of one extraction.
// Text is never empty: when a fallback applies, it holds a labeled
// placeholder and the metadata variant records the failure.
type ExtractedContent struct {
	Kind        Kind
	SourceLabel string
	Text        string
	Metadata    Metadata
}

// Metadata is a kind-keyed variant. Each variant carries only the fields
// meaningful for its kind; WordCount is stamped uniformly by the coordinator
// over the final text.
type Metadata interface {
	metadataKind() Kind
	setWordCount(n int)
}

type DocumentMetadata struct {
	WordCount        int    `json:"word_count"`
	PageCount        int    `json:"page_count,omitempty"`
	Format           string `json:"format"`
	ExtractionFailed bool   `json:"extraction_failed,omitempty"`
}

type CodeMetadata struct {
	WordCount int    `json:"word_count"`
	LineCount int    `json:"line_count"`
	Language  string `json:"language,omitempty"`
}

type SpreadsheetMetadata struct {
	WordCount  int `json:"word_count"`
	SheetCount int `json:"sheet_count,omitempty"`
	RowCount   int `json:"row_count"`
}

type PresentationMetadata struct {
	WordCount  int `json:"word_count"`
	SlideCount int `json:"slide_count"`
}

type ImageMetadata struct {
	WordCount  int      `json:"word_count"`
	Provider   string   `json:"provider,omitempty"`
	Languages  []string `json:"languages,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	OCRFailed  bool     `json:"ocr_failed,omitempty"`
}

type AudioMetadata struct {
	WordCount       int     `json:"word_count"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Language        string  `json:"language,omitempty"`
}

type WebpageMetadata struct {
	WordCount   int    `json:"word_count"`
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	FetchFailed bool   `json:"fetch_failed,omitempty"`
}

type VideoMetadata struct {
	WordCount       int     `json:"word_count"`
	URL             string  `json:"url,omitempty"`
	VideoID         string  `json:"video_id,omitempty"`
	HasTranscript   bool    `json:"has_transcript"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Language        string  `json:"language,omitempty"`
}

type DirectTextMetadata struct {
	WordCount int `json:"word_count"`
}

func (m *DocumentMetadata) metadataKind() Kind     { return KindDocument }
func (m *CodeMetadata) metadataKind() Kind         { return KindCode }
func (m *SpreadsheetMetadata) metadataKind() Kind  { return KindSpreadsheet }
func (m *PresentationMetadata) metadataKind() Kind { return KindPresentation }
func (m *ImageMetadata) metadataKind() Kind        { return KindImage }
func (m *AudioMetadata) metadataKind() Kind        { return KindAudio }
func (m *WebpageMetadata) metadataKind() Kind      { return KindWebpage }
func (m *VideoMetadata) metadataKind() Kind        { return KindVideo }
func (m *DirectTextMetadata) metadataKind() Kind   { return KindDirectText }

func (m *DocumentMetadata) setWordCount(n int)     { m.WordCount = n }
func (m *CodeMetadata) setWordCount(n int)         { m.WordCount = n }
func (m *SpreadsheetMetadata) setWordCount(n int)  { m.WordCount = n }
func (m *PresentationMetadata) setWordCount(n int) { m.WordCount = n }
func (m *ImageMetadata) setWordCount(n int)        { m.WordCount = n }
func (m *AudioMetadata) setWordCount(n int)        { m.WordCount = n }
func (m *WebpageMetadata) setWordCount(n int)      { m.WordCount = n }
func (m *VideoMetadata) setWordCount(n int)        { m.WordCount = n }
func (m *DirectTextMetadata) setWordCount(n int)   { m.WordCount = n }

// MarshalMetadata renders a metadata variant for jsonb persistence, with the
// kind embedded as a discriminator.
func MarshalMetadata(md Metadata) ([]byte, error) {
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m["kind"] = string(md.metadataKind())
	return json.Marshal(m)
}

// WordCount is the uniform token count: whitespace-delimited fields over the
// final text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
