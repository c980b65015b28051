package extractor

import (
	"fmt"
	"sync"

	"github.com/studyloop/studyloop-backend/internal/clients/gcp"
	"github.com/studyloop/studyloop-backend/internal/clients/transcript"
	"github.com/studyloop/studyloop-backend/internal/clients/webfetch"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

// Engines owns the stateful extraction backends for a single workflow.
// Each backend is dialed on first use and released by Close at workflow end,
// so an idle workflow never pins gRPC connections and no engine instance is
// shared between concurrent workflows.
type Engines struct {
	log *logger.Logger

	mu      sync.Mutex
	vision  gcp.Vision
	speech  gcp.Speech
	docai   gcp.DocAI
	video   gcp.Video
	fetcher webfetch.Fetcher
	scripts transcript.Provider
}

func NewEngines(log *logger.Logger) (*Engines, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Engines{log: log.With("component", "ExtractionEngines")}, nil
}

func (e *Engines) Vision() (gcp.Vision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.vision == nil {
		v, err := gcp.NewVision(e.log)
		if err != nil {
			return nil, err
		}
		e.vision = v
	}
	return e.vision, nil
}

func (e *Engines) Speech() (gcp.Speech, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.speech == nil {
		s, err := gcp.NewSpeech(e.log)
		if err != nil {
			return nil, err
		}
		e.speech = s
	}
	return e.speech, nil
}

func (e *Engines) DocAI() (gcp.DocAI, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.docai == nil {
		d, err := gcp.NewDocAI(e.log)
		if err != nil {
			return nil, err
		}
		e.docai = d
	}
	return e.docai, nil
}

func (e *Engines) Video() (gcp.Video, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.video == nil {
		v, err := gcp.NewVideo(e.log)
		if err != nil {
			return nil, err
		}
		e.video = v
	}
	return e.video, nil
}

func (e *Engines) Fetcher() (webfetch.Fetcher, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fetcher == nil {
		f, err := webfetch.NewFetcher(e.log)
		if err != nil {
			return nil, err
		}
		e.fetcher = f
	}
	return e.fetcher, nil
}

func (e *Engines) Transcripts() (transcript.Provider, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scripts == nil {
		p, err := transcript.NewProvider(e.log)
		if err != nil {
			return nil, err
		}
		e.scripts = p
	}
	return e.scripts, nil
}

// Close releases every backend that was actually acquired. Safe to call
// multiple times and on an Engines that never dialed anything.
func (e *Engines) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.vision != nil {
		if err := e.vision.Close(); err != nil {
			e.log.Warn("vision engine close failed", "error", err)
		}
		e.vision = nil
	}
	if e.speech != nil {
		if err := e.speech.Close(); err != nil {
			e.log.Warn("speech engine close failed", "error", err)
		}
		e.speech = nil
	}
	if e.docai != nil {
		if err := e.docai.Close(); err != nil {
			e.log.Warn("documentai engine close failed", "error", err)
		}
		e.docai = nil
	}
	if e.video != nil {
		if err := e.video.Close(); err != nil {
			e.log.Warn("video engine close failed", "error", err)
		}
		e.video = nil
	}
	e.fetcher = nil
	e.scripts = nil
}
