package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
)

func buildZip(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range parts {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestWordDocExtractsParagraphText(t *testing.T) {
	data := buildZip(t, map[string]string{
		"word/document.xml": `<?xml version="1.0"?><w:document xmlns:w="ns"><w:body><w:p><w:r><w:t>The cell membrane</w:t></w:r><w:r><w:t>is selectively permeable.</w:t></w:r></w:p></w:body></w:document>`,
	})

	coord := testCoordinator(t, testEngines(t))
	out, err := coord.Extract(context.Background(), Input{
		Descriptor: Descriptor{FileName: "bio.docx"},
		Data:       data,
	})
	require.NoError(t, err)

	assert.Equal(t, KindDocument, out.Kind)
	assert.Contains(t, out.Text, "The cell membrane")
	assert.Contains(t, out.Text, "selectively permeable")
	assert.Equal(t, "docx", out.Metadata.(*DocumentMetadata).Format)
}

func TestWordDocRejectsNonContainer(t *testing.T) {
	coord := testCoordinator(t, testEngines(t))
	_, err := coord.Extract(context.Background(), Input{
		Descriptor: Descriptor{FileName: "bio.docx"},
		Data:       []byte("plain bytes, not a zip"),
	})
	var ee *apperrors.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Error(), "not a valid container")
}

func TestPresentationCountsSlides(t *testing.T) {
	data := buildZip(t, map[string]string{
		"ppt/slides/slide1.xml": `<p:sld xmlns:a="ns"><a:t>Intro to osmosis</a:t></p:sld>`,
		"ppt/slides/slide2.xml": `<p:sld xmlns:a="ns"><a:t>Diffusion gradients</a:t></p:sld>`,
	})

	coord := testCoordinator(t, testEngines(t))
	out, err := coord.Extract(context.Background(), Input{
		Descriptor: Descriptor{FileName: "deck.pptx"},
		Data:       data,
	})
	require.NoError(t, err)

	assert.Equal(t, KindPresentation, out.Kind)
	assert.Contains(t, out.Text, "Intro to osmosis")
	assert.Contains(t, out.Text, "Diffusion gradients")
	assert.Equal(t, 2, out.Metadata.(*PresentationMetadata).SlideCount)
}

func TestSpreadsheetReadsSharedAndInlineStrings(t *testing.T) {
	data := buildZip(t, map[string]string{
		"xl/sharedStrings.xml":      `<sst xmlns="ns"><si><t>midterm</t></si><si><t>final</t></si></sst>`,
		"xl/worksheets/sheet1.xml":  `<worksheet xmlns="ns"><is><t>92</t></is></worksheet>`,
		"xl/worksheets/_rels/extra": "not xml",
	})

	coord := testCoordinator(t, testEngines(t))
	out, err := coord.Extract(context.Background(), Input{
		Descriptor: Descriptor{FileName: "grades.xlsx"},
		Data:       data,
	})
	require.NoError(t, err)

	assert.Equal(t, KindSpreadsheet, out.Kind)
	assert.Contains(t, out.Text, "midterm")
	assert.Contains(t, out.Text, "final")
	assert.Contains(t, out.Text, "92")
}
