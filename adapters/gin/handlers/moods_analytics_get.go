package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/moodkit/adapters/ginutil"
	"github.com/PaulFidika/moodkit/moods"
)

// HandleMoodsAnalyticsGET summarizes the caller's moods over the last
// moods.AnalyticsWindow.
func HandleMoodsAnalyticsGET(repo moods.Repository, now func() time.Time) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		uid, ok := ginutil.CallerID(c)
		if !ok {
			ginutil.Unauthorized(c, "invalid_token")
			return
		}
		ratings, err := repo.RatingsSince(c.Request.Context(), uid, now().Add(-moods.AnalyticsWindow))
		if err != nil {
			logrus.WithError(err).Error("mood analytics")
			ginutil.ServerErr(c, "failed_to_load_analytics")
			return
		}
		c.JSON(http.StatusOK, moods.Summarize(ratings))
	}
}
