package transcript

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/studyloop/studyloop-backend/internal/pkg/httpx"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

// ErrNotAvailable means the video exists but exposes no caption track. It is
// an expected outcome, not a failure: callers fall back to a placeholder.
var ErrNotAvailable = errors.New("transcript not available")

// Segment is one caption cue from the provider's timedtext track.
type Segment struct {
	StartSeconds    float64
	DurationSeconds float64
	Text            string
}

// Provider fetches caption transcripts for hosted videos by id.
type Provider interface {
	FetchTranscript(ctx context.Context, videoID string) ([]Segment, error)
}

type provider struct {
	log        *logger.Logger
	baseURL    string
	language   string
	httpClient *http.Client
}

func NewProvider(log *logger.Logger) (Provider, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	baseURL := strings.TrimSpace(os.Getenv("TRANSCRIPT_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://video.google.com/timedtext"
	}

	lang := strings.TrimSpace(os.Getenv("TRANSCRIPT_LANGUAGE"))
	if lang == "" {
		lang = "en"
	}

	return &provider{
		log:        log.With("service", "TranscriptProvider"),
		baseURL:    baseURL,
		language:   lang,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type statusError struct {
	videoID string
	code    int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("timedtext %s: http %d", e.videoID, e.code)
}

func (e *statusError) HTTPStatusCode() int { return e.code }

type timedText struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}

func (p *provider) FetchTranscript(ctx context.Context, videoID string) ([]Segment, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, fmt.Errorf("videoID required")
	}

	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", p.language)

	var raw []byte
	err := httpx.Retry(ctx, httpx.RetryOptions{MaxAttempts: 3}, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
		if err != nil {
			return err
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return ErrNotAvailable
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &statusError{videoID: videoID, code: resp.StatusCode}
		}

		raw, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	// The endpoint answers 200 with an empty body when no track exists.
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, ErrNotAvailable
	}

	var doc timedText
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("timedtext %s: decode: %w", videoID, err)
	}
	if len(doc.Texts) == 0 {
		return nil, ErrNotAvailable
	}

	segments := make([]Segment, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		body := strings.TrimSpace(html.UnescapeString(t.Body))
		if body == "" {
			continue
		}
		segments = append(segments, Segment{
			StartSeconds:    t.Start,
			DurationSeconds: t.Dur,
			Text:            body,
		})
	}
	if len(segments) == 0 {
		return nil, ErrNotAvailable
	}
	return segments, nil
}
