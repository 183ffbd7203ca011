package server

import (
	"net/http"
	"time"

	httpHandler "sns-crosspost/interfaces/http"
	"sns-crosspost/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitiateRouter(postHandler httpHandler.IPostHandler, uploadDir string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Renditions must be publicly reachable: the asynchronous platform fetches
	// them by URL instead of accepting raw bytes.
	router.Static("/uploads", uploadDir)

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("api")
	api.POST("/posts", postHandler.Upload)
	api.GET("/posts", postHandler.List)
	api.GET("/posts/:id", postHandler.Get)
	api.DELETE("/posts/:id", postHandler.Delete)
	api.GET("/platforms", postHandler.GetPlatforms)

	return router
}
