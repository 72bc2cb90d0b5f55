package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	"github.com/PaulFidika/moodkit/moods"
)

func HandleMoodsPOST(repo moods.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := ginutil.CallerID(c)
		if !ok {
			ginutil.Unauthorized(c, "invalid_token")
			return
		}
		var in moods.MoodInput
		if err := c.ShouldBindJSON(&in); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if err := in.Validate(); err != nil {
			ginutil.BadRequest(c, "invalid_rating")
			return
		}
		m, err := repo.CreateMood(c.Request.Context(), uid, in)
		if err != nil {
			logrus.WithError(err).Error("create mood")
			ginutil.ServerErr(c, "failed_to_create_mood")
			return
		}
		c.JSON(http.StatusCreated, m)
	}
}
