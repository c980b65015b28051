package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyloop/studyloop-backend/internal/platform/logger"
)

// PrincipalHeader carries the caller identity set by the upstream gateway.
// There is no authentication here; the gateway owns it.
const PrincipalHeader = "X-User-ID"

const principalKey = "principal_user_id"

type PrincipalMiddleware struct {
	log *logger.Logger
}

func NewPrincipalMiddleware(log *logger.Logger) *PrincipalMiddleware {
	return &PrincipalMiddleware{log: log.With("middleware", "PrincipalMiddleware")}
}

func (m *PrincipalMiddleware) RequirePrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(PrincipalHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "missing " + PrincipalHeader + " header", "code": "missing_principal"}})
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			m.log.Debug("malformed principal header", "value", raw)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "malformed " + PrincipalHeader + " header", "code": "bad_principal"}})
			return
		}
		c.Set(principalKey, userID)
		c.Next()
	}
}

// UserID returns the principal set by RequirePrincipal.
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(principalKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
