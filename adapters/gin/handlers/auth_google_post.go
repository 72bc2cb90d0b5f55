package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	core "github.com/PaulFidika/moodkit/core"
	oidckit "github.com/PaulFidika/moodkit/oidc"
)

// HandleAuthGooglePOST exchanges a Google ID token for one of our access
// tokens. Malformed tokens are a 400; every other verification failure is a
// 401 carrying the failure code.
func HandleAuthGooglePOST(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	type googleReq struct {
		IDToken string `json:"id_token"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLAuthGoogle) {
			ginutil.TooMany(c)
			return
		}
		var req googleReq
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.IDToken) == "" {
			ginutil.BadRequest(c, "missing_id_token")
			return
		}
		sess, err := svc.GoogleLogin(c.Request.Context(), strings.TrimSpace(req.IDToken))
		switch {
		case err == nil:
			c.JSON(http.StatusOK, sessionView(sess))
		case errors.Is(err, oidckit.ErrMalformedToken):
			ginutil.BadRequest(c, oidckit.FailureCode(err))
		case oidckit.IsVerificationFailure(err):
			logrus.WithField("code", oidckit.FailureCode(err)).Info("google id token rejected")
			ginutil.Unauthorized(c, oidckit.FailureCode(err))
		case errors.Is(err, core.ErrMissingEmail):
			ginutil.BadRequest(c, "missing_email")
		case errors.Is(err, core.ErrUnverifiedEmail):
			logrus.Info("google id token with unverified email rejected")
			ginutil.Unauthorized(c, "unverified_email")
		case errors.Is(err, core.ErrGoogleDisabled):
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "google_disabled"})
		default:
			logrus.WithError(err).Error("google login")
			ginutil.ServerErr(c, "login_failed")
		}
	}
}
