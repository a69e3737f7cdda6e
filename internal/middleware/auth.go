package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"perito.app/casetrack/internal/authz"
	"perito.app/casetrack/internal/modules/auth/token"
	"perito.app/casetrack/pkg/response"
)

const (
	MsgTokenMissing = "Token não fornecido."
	MsgTokenInvalid = "Token inválido."
)

type AuthMiddleware struct {
	issuer *token.Issuer
	policy *authz.Policy
}

func NewAuthMiddleware(issuer *token.Issuer, policy *authz.Policy) *AuthMiddleware {
	return &AuthMiddleware{
		issuer: issuer,
		policy: policy,
	}
}

// credential prefers the Authorization header over the session cookie.
func credential(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if t := strings.TrimSpace(parts[1]); t != "" {
				return t
			}
		}
	}

	if cookie, err := c.Cookie(token.CookieName); err == nil {
		return cookie
	}
	return ""
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := credential(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": MsgTokenMissing})
			return
		}

		claims, err := m.issuer.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": MsgTokenInvalid})
			return
		}

		c.Set(response.ContextUserID, claims.Subject)
		c.Set(response.ContextRole, claims.Role)
		c.Next()
	}
}

// Require must run after RequireAuth.
func (m *AuthMiddleware) Require(op authz.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.policy.Authorize(op, response.GetRole(c)); err != nil {
			response.Error(c, err)
			return
		}
		c.Next()
	}
}
