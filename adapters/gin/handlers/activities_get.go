package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	"github.com/PaulFidika/moodkit/moods"
)

func HandleActivitiesGET(repo moods.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := repo.ListActivities(c.Request.Context())
		if err != nil {
			ginutil.ServerErr(c, "failed_to_list_activities")
			return
		}
		if list == nil {
			list = []moods.Activity{}
		}
		c.JSON(http.StatusOK, list)
	}
}
