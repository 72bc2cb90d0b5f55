package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	"github.com/PaulFidika/moodkit/moods"
)

// HandleMoodPUT replaces rating and notes. Activities are replaced only
// when activity_ids is present in the body.
func HandleMoodPUT(repo moods.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := ginutil.CallerID(c)
		if !ok {
			ginutil.Unauthorized(c, "invalid_token")
			return
		}
		id, ok := idParam(c)
		if !ok {
			ginutil.NotFound(c, "mood_not_found")
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
		m, err := repo.UpdateMood(c.Request.Context(), uid, id, in)
		if errors.Is(err, moods.ErrNotFound) {
			ginutil.NotFound(c, "mood_not_found")
			return
		}
		if err != nil {
			logrus.WithError(err).Error("update mood")
			ginutil.ServerErr(c, "failed_to_update_mood")
			return
		}
		c.JSON(http.StatusOK, m)
	}
}
