// Package routes exposes the small operational HTTP surface served next
// to the polling loop: a liveness probe and a stats endpoint.
package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/teragrab/teragrab/storage"
)

// SetupRouter wires the status endpoints. username reports the bot
// account once it is authorized.
func SetupRouter(store storage.Store, username func() string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type"},
		MaxAge:          12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))

	startedAt := time.Now()

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/stats", func(ctx *gin.Context) {
		users, err := store.Count(ctx.Request.Context())
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"bot":            username(),
			"users":          users,
			"uptime_seconds": int64(time.Since(startedAt).Seconds()),
		})
	})

	return r
}
