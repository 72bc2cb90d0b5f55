package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	"github.com/PaulFidika/moodkit/moods"
)

func HandleActivitiesPOST(repo moods.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in moods.ActivityInput
		if err := c.ShouldBindJSON(&in); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if err := in.Validate(); err != nil {
			ginutil.BadRequest(c, activityErrorCode(err))
			return
		}
		a, err := repo.CreateActivity(c.Request.Context(), in)
		if err != nil {
			ginutil.ServerErr(c, "failed_to_create_activity")
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}

func activityErrorCode(err error) string {
	if errors.Is(err, moods.ErrInvalidIcon) {
		return "invalid_icon"
	}
	return "invalid_name"
}
