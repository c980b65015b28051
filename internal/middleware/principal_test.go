package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

func principalRouter(t *testing.T) (*gin.Engine, *uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	require.NoError(t, err)

	var seen uuid.UUID
	r := gin.New()
	r.Use(NewPrincipalMiddleware(log).RequirePrincipal())
	r.GET("/whoami", func(c *gin.Context) {
		seen = UserID(c)
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func TestRequirePrincipalRejectsMissingHeader(t *testing.T) {
	r, _ := principalRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_principal")
}

func TestRequirePrincipalRejectsMalformedHeader(t *testing.T) {
	r, _ := principalRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(PrincipalHeader, "not-a-uuid")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_principal")
}

func TestRequirePrincipalExposesUserID(t *testing.T) {
	r, seen := principalRouter(t)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(PrincipalHeader, userID.String())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, *seen)
}

func TestUserIDWithoutPrincipalIsNil(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Equal(t, uuid.Nil, UserID(c))
}
