package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/internal/middleware"
	"github.com/studyloop/studyloop-backend/internal/platform/logger"
	"github.com/studyloop/studyloop-backend/internal/services"
)

// maxUploadBytes bounds a single multipart upload.
const maxUploadBytes = 100 << 20

type IngestHandler struct {
	log              *logger.Logger
	ingestionService services.IngestionService
}

func NewIngestHandler(log *logger.Logger, isvc services.IngestionService) *IngestHandler {
	return &IngestHandler{
		log:              log.With("handler", "IngestHandler"),
		ingestionService: isvc,
	}
}

type ingestJSONInput struct {
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

type ingestJSONRequest struct {
	Inputs []ingestJSONInput `json:"inputs" binding:"required,min=1"`
}

// POST /api/topics/:id/sources
//
// Accepts either a multipart upload (field "files", repeated) or a JSON body
// of url/text inputs. Each input becomes at most one Source.
func (h *IngestHandler) IngestSources(c *gin.Context) {
	topicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	userID := middleware.UserID(c)

	var inputs []services.IngestInput
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		var err error
		inputs, err = h.multipartInputs(c)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_upload", err)
			return
		}
	} else {
		var req ingestJSONRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
		for _, in := range req.Inputs {
			inputs = append(inputs, services.IngestInput{URL: in.URL, Text: in.Text})
		}
	}

	sources, err := h.ingestionService.IngestBatch(c.Request.Context(), topicID, userID, inputs)
	if err != nil {
		// Earlier inputs may have succeeded; report them with the failure.
		if len(sources) > 0 {
			c.JSON(http.StatusMultiStatus, gin.H{
				"sources": sources,
				"error":   APIError{Message: err.Error(), Code: "partial_failure"},
			})
			return
		}
		RespondMappedError(c, err)
		return
	}
	RespondCreated(c, gin.H{"sources": sources})
}

// GET /api/topics/:id/sources/:sourceId/download
//
// Responds with a time-limited signed URL for the source's stored blob.
func (h *IngestHandler) DownloadSource(c *gin.Context) {
	topicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	sourceID, ok := pathUUID(c, "sourceId")
	if !ok {
		return
	}
	url, err := h.ingestionService.DownloadURL(c.Request.Context(), topicID, sourceID)
	if err != nil {
		RespondMappedError(c, err)
		return
	}
	RespondOK(c, gin.H{"url": url})
}

type deleteSourcesRequest struct {
	SourceIDs []uuid.UUID `json:"source_ids" binding:"required,min=1"`
}

// DELETE /api/topics/:id/sources
func (h *IngestHandler) DeleteSources(c *gin.Context) {
	topicID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req deleteSourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.ingestionService.DeleteSources(c.Request.Context(), topicID, req.SourceIDs); err != nil {
		RespondMappedError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *IngestHandler) multipartInputs(c *gin.Context) ([]services.IngestInput, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	var inputs []services.IngestInput
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, services.IngestInput{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return inputs, nil
}
