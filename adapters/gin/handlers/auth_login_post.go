package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	core "github.com/PaulFidika/moodkit/core"
)

func HandleAuthLoginPOST(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	type loginReq struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLAuthLogin) {
			ginutil.TooMany(c)
			return
		}
		var req loginReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		sess, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		switch {
		case errors.Is(err, core.ErrMissingCredentials):
			ginutil.BadRequest(c, "missing_credentials")
			return
		case errors.Is(err, core.ErrInvalidCredentials):
			ginutil.Unauthorized(c, "invalid_credentials")
			return
		case err != nil:
			logrus.WithError(err).Error("login")
			ginutil.ServerErr(c, "login_failed")
			return
		}
		c.JSON(http.StatusOK, sessionView(sess))
	}
}
