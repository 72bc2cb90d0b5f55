package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	"github.com/PaulFidika/moodkit/moods"
)

func HandleActivityDELETE(repo moods.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			ginutil.NotFound(c, "activity_not_found")
			return
		}
		err := repo.DeleteActivity(c.Request.Context(), id)
		if errors.Is(err, moods.ErrNotFound) {
			ginutil.NotFound(c, "activity_not_found")
			return
		}
		if err != nil {
			ginutil.ServerErr(c, "failed_to_delete_activity")
			return
		}
		c.Status(http.StatusNoContent)
	}
}
