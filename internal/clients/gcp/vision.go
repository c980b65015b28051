package gcp

import (
	"context"
	"fmt"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/studyloop/studyloop-backend/internal/pkg/ctxutil"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

// Vision is the OCR engine boundary: recognize(imageBytes) -> text.
type Vision interface {
	OCRImageBytes(ctx context.Context, img []byte) (*VisionOCRResult, error)
	Close() error
}

type VisionOCRResult struct {
	Provider    string   `json:"provider"`
	PrimaryText string   `json:"primary_text"`
	Languages   []string `json:"languages,omitempty"`
	Confidence  float64  `json:"confidence,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

type visionService struct {
	log          *logger.Logger
	visionClient *vision.ImageAnnotatorClient
}

func NewVision(log *logger.Logger) (Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Vision")

	ctx := context.Background()
	opts := ClientOptionsFromEnv()

	vClient, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}

	return &visionService{
		log:          slog,
		visionClient: vClient,
	}, nil
}

func (s *visionService) Close() error {
	if s == nil || s.visionClient == nil {
		return nil
	}
	return s.visionClient.Close()
}

func (s *visionService) OCRImageBytes(ctx context.Context, img []byte) (*VisionOCRResult, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if len(img) == 0 {
		return &VisionOCRResult{Provider: "gcp_vision", PrimaryText: ""}, nil
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: img},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := s.visionClient.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision annotate: %w", err)
	}

	out := &VisionOCRResult{Provider: "gcp_vision"}
	if len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return out, nil
	}

	r := resp.Responses[0]
	if r.Error != nil {
		return nil, fmt.Errorf("vision annotate: %s", r.Error.Message)
	}

	anno := r.FullTextAnnotation
	if anno == nil {
		return out, nil
	}
	out.PrimaryText = collapseWhitespace(anno.Text)

	seenLang := map[string]bool{}
	var confSum float64
	var confN int
	for _, page := range anno.Pages {
		if page == nil {
			continue
		}
		if page.Confidence > 0 {
			confSum += float64(page.Confidence)
			confN++
		}
		if page.Property != nil {
			for _, lang := range page.Property.DetectedLanguages {
				if lang == nil || lang.LanguageCode == "" || seenLang[lang.LanguageCode] {
					continue
				}
				seenLang[lang.LanguageCode] = true
				out.Languages = append(out.Languages, lang.LanguageCode)
			}
		}
	}
	if confN > 0 {
		out.Confidence = confSum / float64(confN)
	}
	return out, nil
}
