package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/studyloop/studyloop-backend/internal/clients/gcp"
	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
)

const maxAudioBytes = 25 << 20

// imageStrategy runs OCR over raster images. A working engine that finds no
// text is a success with a labeled placeholder; an engine failure is a hard
// extraction error.
type imageStrategy struct {
	engines *Engines
}

func newImageStrategy(engines *Engines) *imageStrategy { return &imageStrategy{engines: engines} }

func (s *imageStrategy) Name() string { return "image" }

func (s *imageStrategy) CanHandle(d Descriptor) bool {
	return matchContentType(d, "image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp", "image/tiff") ||
		matchExt(d, ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tif", ".tiff")
}

func (s *imageStrategy) Extract(ctx context.Context, in Input) (*ExtractedContent, error) {
	if len(in.Data) == 0 {
		return nil, &apperrors.ExtractionError{Kind: "image", Op: "extract", Err: fmt.Errorf("empty image: %s", in.FileName)}
	}

	engine, err := s.engines.Vision()
	if err != nil {
		return nil, &apperrors.ExtractionError{Kind: "image", Op: "acquire_engine", Err: err}
	}

	res, err := engine.OCRImageBytes(ctx, in.Data)
	if err != nil {
		return nil, &apperrors.ExtractionError{Kind: "image", Op: "ocr", Err: err}
	}

	label := labelFor(in.Descriptor)
	if res.PrimaryText == "" {
		return &ExtractedContent{
			Kind:        KindImage,
			SourceLabel: label,
			Text:        fmt.Sprintf("[No text detected in image: %s]", label),
			Metadata:    &ImageMetadata{Provider: res.Provider, OCRFailed: true},
		}, nil
	}

	return &ExtractedContent{
		Kind:        KindImage,
		SourceLabel: label,
		Text:        res.PrimaryText,
		Metadata: &ImageMetadata{
			Provider:   res.Provider,
			Languages:  res.Languages,
			Confidence: res.Confidence,
		},
	}, nil
}

// audioStrategy transcribes audio uploads. Oversized payloads are rejected
// before the speech service is touched.
type audioStrategy struct {
	engines *Engines
}

func newAudioStrategy(engines *Engines) *audioStrategy { return &audioStrategy{engines: engines} }

func (s *audioStrategy) Name() string { return "audio" }

func (s *audioStrategy) CanHandle(d Descriptor) bool {
	return matchContentType(d, "audio/mpeg", "audio/mp3", "audio/wav", "audio/x-wav", "audio/ogg", "audio/flac", "audio/mp4", "audio/aac", "audio/webm") ||
		matchExt(d, ".mp3", ".wav", ".ogg", ".flac", ".m4a", ".aac")
}

func (s *audioStrategy) Extract(ctx context.Context, in Input) (*ExtractedContent, error) {
	if len(in.Data) == 0 {
		return nil, &apperrors.ExtractionError{Kind: "audio", Op: "extract", Err: fmt.Errorf("empty audio file: %s", in.FileName)}
	}
	if len(in.Data) > maxAudioBytes {
		return nil, &apperrors.ExtractionError{
			Kind: "audio",
			Op:   "size_check",
			Err:  fmt.Errorf("audio file %s is %d bytes, limit is %d", in.FileName, len(in.Data), maxAudioBytes),
		}
	}

	engine, err := s.engines.Speech()
	if err != nil {
		return nil, &apperrors.ExtractionError{Kind: "audio", Op: "acquire_engine", Err: err}
	}

	res, err := engine.TranscribeAudioBytes(ctx, in.Data, in.NormalizedContentType(), gcp.SpeechConfig{
		EnableAutomaticPunctuation: true,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &apperrors.TimeoutError{Op: "audio transcription", Err: err}
		}
		return nil, &apperrors.ExtractionError{Kind: "audio", Op: "transcribe", Err: err}
	}

	label := labelFor(in.Descriptor)
	text := res.PrimaryText
	if text == "" {
		text = fmt.Sprintf("[No speech detected in audio: %s]", label)
	}

	return &ExtractedContent{
		Kind:        KindAudio,
		SourceLabel: label,
		Text:        text,
		Metadata: &AudioMetadata{
			DurationSeconds: res.DurationSeconds,
			Language:        res.LanguageCode,
		},
	}, nil
}

// videoFileStrategy transcribes uploaded video files inline. Transcription
// failure has a defined fallback: the placeholder text with
// has_transcript=false, never an error past the coordinator.
type videoFileStrategy struct {
	engines *Engines
}

func newVideoFileStrategy(engines *Engines) *videoFileStrategy {
	return &videoFileStrategy{engines: engines}
}

func (s *videoFileStrategy) Name() string { return "video_file" }

func (s *videoFileStrategy) CanHandle(d Descriptor) bool {
	return matchContentType(d, "video/mp4", "video/mpeg", "video/quicktime", "video/webm", "video/x-msvideo") ||
		matchExt(d, ".mp4", ".mov", ".webm", ".avi", ".mkv")
}

func (s *videoFileStrategy) Extract(ctx context.Context, in Input) (*ExtractedContent, error) {
	if len(in.Data) == 0 {
		return nil, &apperrors.ExtractionError{Kind: "video", Op: "extract", Err: fmt.Errorf("empty video file: %s", in.FileName)}
	}

	label := labelFor(in.Descriptor)

	engine, err := s.engines.Video()
	if err != nil {
		return videoFallback(KindVideo, label, ""), nil
	}

	res, err := engine.TranscribeVideoBytes(ctx, in.Data, gcp.VideoConfig{EnableAutomaticPunctuation: true})
	if err != nil || res.PrimaryText == "" {
		return videoFallback(KindVideo, label, ""), nil
	}

	return &ExtractedContent{
		Kind:        KindVideo,
		SourceLabel: label,
		Text:        res.PrimaryText,
		Metadata: &VideoMetadata{
			HasTranscript:   true,
			DurationSeconds: res.DurationSeconds,
			Language:        res.LanguageCode,
		},
	}, nil
}

func videoFallback(kind Kind, label string, url string) *ExtractedContent {
	return &ExtractedContent{
		Kind:        kind,
		SourceLabel: label,
		Text:        fmt.Sprintf("[Transcript unavailable for video: %s]", label),
		Metadata:    &VideoMetadata{URL: url, HasTranscript: false},
	}
}
