package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/studyloop/studyloop-backend/internal/pkg/errors"
)

func respondWith(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	RespondMappedError(c, err)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestRespondMappedErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "unsupported format",
			err:    &apperrors.UnsupportedFormatError{Extension: ".doc", Suggestion: "convert to .docx"},
			status: http.StatusUnsupportedMediaType,
			code:   "unsupported_format",
		},
		{
			name:   "no sources",
			err:    &apperrors.NoSourcesError{TopicID: uuid.New()},
			status: http.StatusUnprocessableEntity,
			code:   "no_sources",
		},
		{
			name:   "empty intersection",
			err:    &apperrors.EmptyIntersectionError{TopicID: uuid.New()},
			status: http.StatusUnprocessableEntity,
			code:   "empty_intersection",
		},
		{
			name:   "extraction failure",
			err:    &apperrors.ExtractionError{Kind: "pdf", Op: "parse", Err: errors.New("bad xref")},
			status: http.StatusUnprocessableEntity,
			code:   "extraction_failed",
		},
		{
			name:   "timeout",
			err:    &apperrors.TimeoutError{Op: "transcribe", Limit: time.Minute},
			status: http.StatusGatewayTimeout,
			code:   "timeout",
		},
		{
			name:   "generation failure",
			err:    &apperrors.GenerationError{GenerationID: uuid.New(), Reason: "malformed response"},
			status: http.StatusBadGateway,
			code:   "generation_failed",
		},
		{
			name:   "not found",
			err:    apperrors.ErrNotFound,
			status: http.StatusNotFound,
			code:   "not_found",
		},
		{
			name:   "invalid argument",
			err:    apperrors.ErrInvalidArgument,
			status: http.StatusBadRequest,
			code:   "invalid_argument",
		},
		{
			name:   "anything else",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			code:   "internal",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := respondWith(t, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeEnvelope(t, rec).Error.Code)
		})
	}
}

func TestRespondMappedErrorQuotaCarriesRetryAfter(t *testing.T) {
	rec := respondWith(t, &apperrors.QuotaError{RetryAfter: 2500 * time.Millisecond, Err: errors.New("429")})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	// Sub-second hints round up so clients never retry early.
	assert.Equal(t, "3", rec.Header().Get("Retry-After"))
	assert.Equal(t, "quota_exceeded", decodeEnvelope(t, rec).Error.Code)
}

func TestRespondMappedErrorUnwrapsToMostSpecificCause(t *testing.T) {
	wrapped := &apperrors.GenerationError{
		GenerationID: uuid.New(),
		Reason:       "completion request failed",
		Err:          &apperrors.TimeoutError{Op: "completion", Limit: 30 * time.Second},
	}
	rec := respondWith(t, wrapped)

	// A generation failure caused by a timeout reports the timeout.
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}
