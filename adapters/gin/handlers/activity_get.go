package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	"github.com/PaulFidika/moodkit/moods"
)

func HandleActivityGET(repo moods.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			ginutil.NotFound(c, "activity_not_found")
			return
		}
		a, err := repo.GetActivity(c.Request.Context(), id)
		if errors.Is(err, moods.ErrNotFound) {
			ginutil.NotFound(c, "activity_not_found")
			return
		}
		if err != nil {
			ginutil.ServerErr(c, "failed_to_load_activity")
			return
		}
		c.JSON(http.StatusOK, a)
	}
}
