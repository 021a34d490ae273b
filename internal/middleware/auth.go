package middleware

import (
	"net/http"
	"strings"

	"imagegallery/internal/pkg/jwt"
	"imagegallery/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

type tokenValidator interface {
	ValidateToken(tokenStr string) (*jwt.Claims, error)
}

// JWTAuth requires a valid Bearer token and stores the caller id under "user_id".
func JWTAuth(tokens tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			response.Abort(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Missing Authorization header")
			return
		}

		scheme, tokenStr, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			response.Abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			return
		}

		tokenStr = strings.TrimSpace(tokenStr)
		if tokenStr == "" {
			response.Abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Empty token")
			return
		}

		claims, err := tokens.ValidateToken(tokenStr)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)

		c.Next()
	}
}

// UserID returns the authenticated caller, if any.
func UserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}
	switch id := v.(type) {
	case int64:
		return id, id > 0
	case float64:
		return int64(id), id > 0
	}
	return 0, false
}

// MustUserID answers 401 and returns false when no caller is set.
func MustUserID(c *gin.Context) (int64, bool) {
	id, ok := UserID(c)
	if !ok {
		response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return 0, false
	}
	return id, true
}
