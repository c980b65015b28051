package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}

// isProbablyText reports whether the sample looks like character data rather
// than an opaque binary. NUL bytes disqualify immediately; otherwise most of
// the sample must be printable or whitespace.
func isProbablyText(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	sample := b
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good)/float64(len(sample)) > 0.9
}

func isZipContainer(b []byte) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

func isPDFPayload(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

// openXMLText pulls the character data of every element named tagLocal from
// the archive entries selected by match, in archive order. Both docx and
// pptx reduce to this walk (word/document.xml w:t, ppt/slides/*.xml a:t).
func openXMLText(zipBytes []byte, match func(name string) bool, tagLocal string) (string, int, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return "", 0, fmt.Errorf("open container: %w", err)
	}

	var out strings.Builder
	parts := 0
	for _, f := range zr.File {
		if !match(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", 0, fmt.Errorf("open %s: %w", f.Name, err)
		}
		raw, readErr := io.ReadAll(rc)
		_ = rc.Close()
		if readErr != nil {
			return "", 0, fmt.Errorf("read %s: %w", f.Name, readErr)
		}
		out.WriteString(xmlCharData(raw, tagLocal))
		out.WriteString("\n")
		parts++
	}
	return collapseWhitespace(out.String()), parts, nil
}

// xmlCharData collects the text content of elements named tagLocal; with an
// empty tagLocal it collects every character-data token in the document.
func xmlCharData(raw []byte, tagLocal string) string {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if tagLocal == "" {
			if cd, ok := tok.(xml.CharData); ok {
				trimmed := strings.TrimSpace(string(cd))
				if trimmed != "" {
					out.WriteString(trimmed)
					out.WriteString(" ")
				}
			}
			continue
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != tagLocal {
			continue
		}
		var v string
		if err := dec.DecodeElement(&v, &se); err != nil {
			continue
		}
		if v != "" {
			out.WriteString(v)
			out.WriteString(" ")
		}
	}
	return out.String()
}

// htmlToText walks the parse tree collecting visible text, skipping script
// and style subtrees, and returns the document title alongside.
func htmlToText(raw []byte) (text string, title string) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return collapseWhitespace(string(raw)), ""
	}

	var out strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = collapseWhitespace(n.FirstChild.Data)
				}
				return
			}
		case html.TextNode:
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				out.WriteString(trimmed)
				out.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return collapseWhitespace(out.String()), title
}
