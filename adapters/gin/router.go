package authgin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/moodkit/adapters/gin/handlers"
	"github.com/PaulFidika/moodkit/adapters/ginutil"
	authhttp "github.com/PaulFidika/moodkit/adapters/http"
	core "github.com/PaulFidika/moodkit/core"
	"github.com/PaulFidika/moodkit/moods"
)

// Deps are the services mounted by Mount.
type Deps struct {
	Auth    *core.Service
	Moods   moods.Repository
	Limiter ginutil.RateLimiter
	Now     func() time.Time
}

// Mount registers the public API on r.
func Mount(r gin.IRouter, d Deps) {
	r.GET("/.well-known/jwks.json", gin.WrapH(authhttp.JWKSHandler(d.Auth.Tokens())))

	api := r.Group("/api")
	api.GET("/health", handlers.HandleHealthGET())

	auth := api.Group("/auth")
	auth.POST("/register", handlers.HandleAuthRegisterPOST(d.Auth, d.Limiter))
	auth.POST("/login", handlers.HandleAuthLoginPOST(d.Auth, d.Limiter))
	auth.POST("/google", handlers.HandleAuthGooglePOST(d.Auth, d.Limiter))
	auth.POST("/logout", handlers.HandleAuthLogoutPOST())
	auth.GET("/me", AuthRequired(d.Auth.Tokens()), handlers.HandleAuthMeGET(d.Auth))

	authed := api.Group("", AuthRequired(d.Auth.Tokens()))

	authed.GET("/moods", handlers.HandleMoodsGET(d.Moods))
	authed.POST("/moods", handlers.HandleMoodsPOST(d.Moods))
	authed.GET("/moods/analytics", handlers.HandleMoodsAnalyticsGET(d.Moods, d.Now))
	authed.GET("/moods/:id", handlers.HandleMoodGET(d.Moods))
	authed.PUT("/moods/:id", handlers.HandleMoodPUT(d.Moods))
	authed.DELETE("/moods/:id", handlers.HandleMoodDELETE(d.Moods))

	authed.GET("/activities", handlers.HandleActivitiesGET(d.Moods))
	authed.POST("/activities", handlers.HandleActivitiesPOST(d.Moods))
	authed.GET("/activities/:id", handlers.HandleActivityGET(d.Moods))
	authed.PUT("/activities/:id", handlers.HandleActivityPUT(d.Moods))
	authed.DELETE("/activities/:id", handlers.HandleActivityDELETE(d.Moods))
}
