package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	"github.com/PaulFidika/moodkit/moods"
)

func HandleActivityPUT(repo moods.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			ginutil.NotFound(c, "activity_not_found")
			return
		}
		var in moods.ActivityInput
		if err := c.ShouldBindJSON(&in); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if err := in.Validate(); err != nil {
			ginutil.BadRequest(c, activityErrorCode(err))
			return
		}
		a, err := repo.UpdateActivity(c.Request.Context(), id, in)
		if errors.Is(err, moods.ErrNotFound) {
			ginutil.NotFound(c, "activity_not_found")
			return
		}
		if err != nil {
			ginutil.ServerErr(c, "failed_to_update_activity")
			return
		}
		c.JSON(http.StatusOK, a)
	}
}
