package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"

	"github.com/studyloop/studyloop-backend/internal/pkg/ctxutil"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

// Video transcribes speech from uploaded video files, either staged in GCS
// or passed inline.
type Video interface {
	TranscribeVideoGCS(ctx context.Context, gcsURI string, cfg VideoConfig) (*VideoResult, error)
	TranscribeVideoBytes(ctx context.Context, data []byte, cfg VideoConfig) (*VideoResult, error)
	Close() error
}

type VideoConfig struct {
	LanguageCode               string
	EnableAutomaticPunctuation bool
}

type VideoResult struct {
	Provider        string   `json:"provider"`
	SourceURI       string   `json:"source_uri"`
	PrimaryText     string   `json:"primary_text"`
	DurationSeconds float64  `json:"duration_seconds"`
	LanguageCode    string   `json:"language_code,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

type videoService struct {
	log    *logger.Logger
	client *videointelligence.Client
}

func NewVideo(log *logger.Logger) (Video, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Video")

	ctx := context.Background()
	opts := ClientOptionsFromEnv()

	c, err := videointelligence.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}

	return &videoService{log: slog, client: c}, nil
}

func (s *videoService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *videoService) TranscribeVideoGCS(ctx context.Context, gcsURI string, cfg VideoConfig) (*VideoResult, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 20*time.Minute)
	defer cancel()

	if !strings.HasPrefix(gcsURI, "gs://") {
		return nil, fmt.Errorf("gcsURI must be gs://... got %q", gcsURI)
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}

	req := &vipb.AnnotateVideoRequest{
		InputUri: gcsURI,
		Features: []vipb.Feature{vipb.Feature_SPEECH_TRANSCRIPTION},
		VideoContext: &vipb.VideoContext{
			SpeechTranscriptionConfig: &vipb.SpeechTranscriptionConfig{
				LanguageCode:               cfg.LanguageCode,
				EnableAutomaticPunctuation: cfg.EnableAutomaticPunctuation,
			},
		},
	}

	return s.annotate(ctx, req, gcsURI, cfg)
}

func (s *videoService) TranscribeVideoBytes(ctx context.Context, data []byte, cfg VideoConfig) (*VideoResult, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 20*time.Minute)
	defer cancel()

	if len(data) == 0 {
		return nil, fmt.Errorf("empty video payload")
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}

	req := &vipb.AnnotateVideoRequest{
		InputContent: data,
		Features:     []vipb.Feature{vipb.Feature_SPEECH_TRANSCRIPTION},
		VideoContext: &vipb.VideoContext{
			SpeechTranscriptionConfig: &vipb.SpeechTranscriptionConfig{
				LanguageCode:               cfg.LanguageCode,
				EnableAutomaticPunctuation: cfg.EnableAutomaticPunctuation,
			},
		},
	}

	return s.annotate(ctx, req, "", cfg)
}

func (s *videoService) annotate(ctx context.Context, req *vipb.AnnotateVideoRequest, sourceURI string, cfg VideoConfig) (*VideoResult, error) {
	op, err := s.client.AnnotateVideo(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("videointelligence annotate: %w", err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("videointelligence wait: %w", err)
	}

	out := &VideoResult{
		Provider:     "gcp_videointelligence",
		SourceURI:    sourceURI,
		LanguageCode: cfg.LanguageCode,
	}
	if resp == nil || len(resp.AnnotationResults) == 0 {
		return out, nil
	}

	var full strings.Builder
	for _, ar := range resp.AnnotationResults {
		if ar == nil {
			continue
		}
		if ar.Segment != nil && ar.Segment.EndTimeOffset != nil {
			secs := ar.Segment.EndTimeOffset.AsDuration().Seconds()
			if secs > out.DurationSeconds {
				out.DurationSeconds = secs
			}
		}
		for _, st := range ar.SpeechTranscriptions {
			if st == nil || len(st.Alternatives) == 0 || st.Alternatives[0] == nil {
				continue
			}
			txt := strings.TrimSpace(st.Alternatives[0].Transcript)
			if txt == "" {
				continue
			}
			if full.Len() > 0 {
				full.WriteString(" ")
			}
			full.WriteString(txt)
		}
	}
	out.PrimaryText = collapseWhitespace(full.String())
	return out, nil
}
