package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
