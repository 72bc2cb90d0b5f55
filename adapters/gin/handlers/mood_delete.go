package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	"github.com/PaulFidika/moodkit/moods"
)

func HandleMoodDELETE(repo moods.Repository) gin.HandlerFunc {
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
		err := repo.DeleteMood(c.Request.Context(), uid, id)
		if errors.Is(err, moods.ErrNotFound) {
			ginutil.NotFound(c, "mood_not_found")
			return
		}
		if err != nil {
			ginutil.ServerErr(c, "failed_to_delete_mood")
			return
		}
		c.Status(http.StatusNoContent)
	}
}
