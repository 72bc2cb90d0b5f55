package authgin

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	jwtkit "github.com/PaulFidika/moodkit/jwt"
)

const (
	ctxClaims = "auth.claims"
	ctxEmail  = "auth.email"
)

// AuthRequired rejects requests without a valid access token. Both
// "Bearer <jwt>" and the mobile app's legacy "Token <jwt>" schemes are
// accepted.
func AuthRequired(tokens *jwtkit.AccessTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			ginutil.Unauthorized(c, "missing_token")
			return
		}
		claims, err := tokens.Verify(c.Request.Context(), raw)
		if err != nil {
			logrus.WithError(err).Debug("access token rejected")
			ginutil.Unauthorized(c, "invalid_token")
			return
		}
		c.Set(ctxClaims, claims)
		c.Set(ginutil.CtxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Next()
	}
}

// ClaimsFromGin returns the claims stored by AuthRequired.
func ClaimsFromGin(c *gin.Context) (*jwtkit.AccessClaims, bool) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil, false
	}
	cl, ok := v.(*jwtkit.AccessClaims)
	return cl, ok && cl != nil
}

func bearerToken(h string) string {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "bearer", "token":
		return strings.TrimSpace(tok)
	}
	return ""
}
