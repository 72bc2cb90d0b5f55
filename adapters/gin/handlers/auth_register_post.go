package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	core "github.com/PaulFidika/moodkit/core"
	"github.com/PaulFidika/moodkit/identity"
)

func HandleAuthRegisterPOST(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	type registerReq struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLAuthRegister) {
			ginutil.TooMany(c)
			return
		}
		var req registerReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		sess, err := svc.Register(c.Request.Context(), req.Email, req.Password)
		switch {
		case errors.Is(err, core.ErrMissingCredentials):
			ginutil.BadRequest(c, "missing_credentials")
			return
		case errors.Is(err, core.ErrWeakPassword):
			ginutil.BadRequest(c, "weak_password")
			return
		case errors.Is(err, identity.ErrEmailTaken):
			ginutil.BadRequest(c, "email_taken")
			return
		case err != nil:
			logrus.WithError(err).Error("register")
			ginutil.ServerErr(c, "registration_failed")
			return
		}
		c.JSON(http.StatusCreated, sessionView(sess))
	}
}
