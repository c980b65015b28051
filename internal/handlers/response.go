package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
	"github.com/studyloop/studyloop-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// toAPIError translates the service error taxonomy into the HTTP-edge error.
// Errors that already carry an apierr.Error pass through unchanged.
func toAPIError(err error) *apierr.Error {
	var (
		apiErr         *apierr.Error
		quotaErr       *apperrors.QuotaError
		unsupportedErr *apperrors.UnsupportedFormatError
		noSourcesErr   *apperrors.NoSourcesError
		emptyErr       *apperrors.EmptyIntersectionError
		extractionErr  *apperrors.ExtractionError
		timeoutErr     *apperrors.TimeoutError
		generationErr  *apperrors.GenerationError
	)

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &quotaErr):
		return apierr.New(http.StatusTooManyRequests, "quota_exceeded", err)
	case errors.As(err, &unsupportedErr):
		return apierr.New(http.StatusUnsupportedMediaType, "unsupported_format", err)
	case errors.As(err, &noSourcesErr):
		return apierr.New(http.StatusUnprocessableEntity, "no_sources", err)
	case errors.As(err, &emptyErr):
		return apierr.New(http.StatusUnprocessableEntity, "empty_intersection", err)
	case errors.As(err, &extractionErr):
		return apierr.New(http.StatusUnprocessableEntity, "extraction_failed", err)
	case errors.As(err, &timeoutErr):
		return apierr.New(http.StatusGatewayTimeout, "timeout", err)
	case errors.As(err, &generationErr):
		return apierr.New(http.StatusBadGateway, "generation_failed", err)
	case errors.Is(err, apperrors.ErrNotFound):
		return apierr.New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperrors.ErrInvalidArgument):
		return apierr.New(http.StatusBadRequest, "invalid_argument", err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal", err)
	}
}

// RespondMappedError translates the service error taxonomy onto HTTP. Quota
// errors additionally carry the backoff hint as a Retry-After header.
func RespondMappedError(c *gin.Context, err error) {
	var quotaErr *apperrors.QuotaError
	if errors.As(err, &quotaErr) {
		secs := int(math.Ceil(quotaErr.RetryAfter.Seconds()))
		if secs > 0 {
			c.Header("Retry-After", strconv.Itoa(secs))
		}
	}

	ae := toAPIError(err)
	RespondError(c, ae.Status, ae.Code, ae)
}
