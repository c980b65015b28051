package extractor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
)

const networkTimeout = 30 * time.Second

// markupStrategy handles html/markdown/xml files uploaded as files, as
// opposed to pages fetched from the network.
type markupStrategy struct{}

func newMarkupStrategy() *markupStrategy { return &markupStrategy{} }

func (s *markupStrategy) Name() string { return "markup" }

func (s *markupStrategy) CanHandle(d Descriptor) bool {
	return matchContentType(d, "text/html", "application/xhtml+xml", "text/markdown", "application/xml", "text/xml") ||
		matchExt(d, ".html", ".htm", ".md", ".markdown", ".xml")
}

func (s *markupStrategy) Extract(_ context.Context, in Input) (*ExtractedContent, error) {
	if len(in.Data) == 0 {
		return nil, &apperrors.ExtractionError{Kind: "markup", Op: "extract", Err: fmt.Errorf("empty file: %s", in.FileName)}
	}

	var text, format string
	switch {
	case matchExt(in.Descriptor, ".md", ".markdown") || matchContentType(in.Descriptor, "text/markdown"):
		// Markdown reads fine as-is.
		text = strings.TrimSpace(string(in.Data))
		format = "markdown"
	case matchExt(in.Descriptor, ".xml") || matchContentType(in.Descriptor, "application/xml", "text/xml"):
		text = collapseWhitespace(xmlCharData(in.Data, ""))
		if text == "" {
			text = collapseWhitespace(string(in.Data))
		}
		format = "xml"
	default:
		text, _ = htmlToText(in.Data)
		format = "html"
	}

	if text == "" {
		return nil, &apperrors.ExtractionError{Kind: "markup", Op: "parse", Err: fmt.Errorf("no text in %s", in.FileName)}
	}

	return &ExtractedContent{
		Kind:        KindDocument,
		SourceLabel: labelFor(in.Descriptor),
		Text:        text,
		Metadata:    &DocumentMetadata{Format: format},
	}, nil
}

// videoURLStrategy looks up hosted-video captions by id. A missing or
// unreachable transcript falls back to the placeholder; only a URL that
// cannot be parsed at all is a hard failure (filtered by CanHandle).
type videoURLStrategy struct {
	engines *Engines
}

func newVideoURLStrategy(engines *Engines) *videoURLStrategy {
	return &videoURLStrategy{engines: engines}
}

func (s *videoURLStrategy) Name() string { return "video_url" }

func (s *videoURLStrategy) CanHandle(d Descriptor) bool {
	return hasURL(d) && videoIDFromURL(d.URL) != ""
}

func (s *videoURLStrategy) Extract(ctx context.Context, in Input) (*ExtractedContent, error) {
	videoID := videoIDFromURL(in.URL)
	if videoID == "" {
		return nil, &apperrors.ExtractionError{Kind: "video", Op: "parse_url", Err: fmt.Errorf("no video id in url %q", in.URL)}
	}
	label := labelFor(in.Descriptor)

	provider, err := s.engines.Transcripts()
	if err != nil {
		out := videoFallback(KindVideo, label, in.URL)
		out.Metadata.(*VideoMetadata).VideoID = videoID
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	segments, err := provider.FetchTranscript(ctx, videoID)
	if err != nil {
		out := videoFallback(KindVideo, label, in.URL)
		out.Metadata.(*VideoMetadata).VideoID = videoID
		return out, nil
	}

	var text strings.Builder
	var duration float64
	for _, seg := range segments {
		if text.Len() > 0 {
			text.WriteString(" ")
		}
		text.WriteString(seg.Text)
		if end := seg.StartSeconds + seg.DurationSeconds; end > duration {
			duration = end
		}
	}

	return &ExtractedContent{
		Kind:        KindVideo,
		SourceLabel: label,
		Text:        collapseWhitespace(text.String()),
		Metadata: &VideoMetadata{
			URL:             in.URL,
			VideoID:         videoID,
			HasTranscript:   true,
			DurationSeconds: duration,
		},
	}, nil
}

// webpageStrategy fetches and strips a generic web page. An unparseable URL
// is a hard failure; an unreachable page falls back to the placeholder.
type webpageStrategy struct {
	engines *Engines
}

func newWebpageStrategy(engines *Engines) *webpageStrategy {
	return &webpageStrategy{engines: engines}
}

func (s *webpageStrategy) Name() string { return "webpage" }

func (s *webpageStrategy) CanHandle(d Descriptor) bool { return hasURL(d) }

func (s *webpageStrategy) Extract(ctx context.Context, in Input) (*ExtractedContent, error) {
	parsed, err := url.Parse(strings.TrimSpace(in.URL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &apperrors.ExtractionError{Kind: "webpage", Op: "parse_url", Err: fmt.Errorf("invalid url %q", in.URL)}
	}

	fetcher, err := s.engines.Fetcher()
	if err != nil {
		return webpageFallback(in.URL), nil
	}

	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	body, err := fetcher.Get(ctx, parsed.String())
	if err != nil {
		return webpageFallback(in.URL), nil
	}

	text, title := htmlToText(body)
	if text == "" {
		return webpageFallback(in.URL), nil
	}

	label := title
	if label == "" {
		label = parsed.Host
	}

	return &ExtractedContent{
		Kind:        KindWebpage,
		SourceLabel: label,
		Text:        text,
		Metadata:    &WebpageMetadata{URL: in.URL, Title: title},
	}, nil
}

func webpageFallback(rawURL string) *ExtractedContent {
	return &ExtractedContent{
		Kind:        KindWebpage,
		SourceLabel: rawURL,
		Text:        fmt.Sprintf("[Could not fetch web page: %s]", rawURL),
		Metadata:    &WebpageMetadata{URL: rawURL, FetchFailed: true},
	}
}

// videoIDFromURL recognizes the hosted-video URL shapes we can look captions
// up for: watch?v=, youtu.be/, /embed/, /shorts/.
func videoIDFromURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")

	switch host {
	case "youtube.com", "m.youtube.com", "youtube-nocookie.com":
		if v := parsed.Query().Get("v"); v != "" {
			return v
		}
		for _, prefix := range []string{"/embed/", "/shorts/", "/live/"} {
			if strings.HasPrefix(parsed.Path, prefix) {
				id := strings.TrimPrefix(parsed.Path, prefix)
				if i := strings.IndexByte(id, '/'); i >= 0 {
					id = id[:i]
				}
				return id
			}
		}
	case "youtu.be":
		id := strings.TrimPrefix(parsed.Path, "/")
		if i := strings.IndexByte(id, '/'); i >= 0 {
			id = id[:i]
		}
		return id
	}
	return ""
}
