package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/estate_console/utils"
)

const correlationHeader = "X-Correlation-Id"

// SessionMiddleware reads the caller's bearer token (or the legacy "token"
// header) into the request context. When API_SECRET is set the token must be a
// valid JWT; its claims supply username, user id and role. Every request gets
// a correlation id, echoed in the response.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		cid := strings.TrimSpace(c.Request.Header.Get(correlationHeader))
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header(correlationHeader, cid)
		ctx = utils.SetCorrelationIdInContext(ctx, cid)

		token := bearerToken(c.Request)
		if token == "" {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		if utils.JwtValidationEnabled() {
			validate, err := utils.JwtValidate(token)
			if err != nil || !validate.Valid {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				c.Abort()
				return
			}
			if claims, ok := validate.Claims.(*utils.JwtCustomClaim); ok {
				ctx = utils.SetUsernameInContext(ctx, claims.Username)
				ctx = utils.SetUserIdInContext(ctx, claims.ID)
				ctx = utils.SetRoleInContext(ctx, claims.Role)
			}
		}

		ctx = utils.SetTokenInContext(ctx, token)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > len("Bearer ") && strings.EqualFold(auth[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return strings.TrimSpace(r.Header.Get("token"))
}
