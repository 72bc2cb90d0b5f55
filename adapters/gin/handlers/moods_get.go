package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	"github.com/PaulFidika/moodkit/moods"
)

// HandleMoodsGET lists the caller's moods, newest first.
func HandleMoodsGET(repo moods.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := ginutil.CallerID(c)
		if !ok {
			ginutil.Unauthorized(c, "invalid_token")
			return
		}
		list, err := repo.ListMoods(c.Request.Context(), uid)
		if err != nil {
			logrus.WithError(err).Error("list moods")
			ginutil.ServerErr(c, "failed_to_list_moods")
			return
		}
		if list == nil {
			list = []moods.Mood{}
		}
		c.JSON(http.StatusOK, list)
	}
}
