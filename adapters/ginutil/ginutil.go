// Package ginutil holds the small response and rate-limit helpers shared by
// the gin handlers.
package ginutil

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Rate-limit bucket names.
const (
	RLAuthRegister = "auth_register"
	RLAuthLogin    = "auth_login"
	RLAuthGoogle   = "auth_google"
)

// CtxUserID is the gin context key holding the authenticated user's ID.
const CtxUserID = "auth.user_id"

// CallerID returns the user ID set by the auth middleware.
func CallerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(CtxUserID))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// RateLimiter is satisfied by memorylimiter.Limiter and redislimiter.Limiter.
type RateLimiter interface {
	AllowNamed(ctx context.Context, bucket, key string) (bool, error)
}

// AllowNamed applies bucket to the client IP. A nil limiter allows
// everything; limiter errors fail open and are logged.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.AllowNamed(c.Request.Context(), bucket, c.ClientIP())
	if err != nil {
		logrus.WithError(err).WithField("bucket", bucket).Warn("rate limiter unavailable")
		return true
	}
	return ok
}

func BadRequest(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": code})
}

func Unauthorized(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
}

func NotFound(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": code})
}

func TooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

func ServerErr(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": code})
}
