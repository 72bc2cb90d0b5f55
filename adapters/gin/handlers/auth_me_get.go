package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	core "github.com/PaulFidika/moodkit/core"
	"github.com/PaulFidika/moodkit/identity"
)

func HandleAuthMeGET(svc *core.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := svc.CurrentUser(c.Request.Context(), c.GetString(ginutil.CtxUserID))
		if errors.Is(err, identity.ErrNotFound) {
			ginutil.NotFound(c, "user_not_found")
			return
		}
		if err != nil {
			ginutil.ServerErr(c, "failed_to_load_user")
			return
		}
		c.JSON(http.StatusOK, userView(u))
	}
}
