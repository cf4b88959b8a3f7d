package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the API and the static Asset Store on router.
func RegisterRoutes(router gin.IRouter, videos *VideoHandler, health *HealthHandler, uploadDir string) {
	router.Static("/uploads", uploadDir)

	api := router.Group("/api")
	{
		api.GET("/health", health.Health)
		api.GET("/health/ready", health.Ready)

		v := api.Group("/videos")
		{
			v.GET("", videos.ListVideos)
			v.GET("/search", videos.SearchVideos)
			v.POST("/upload", videos.UploadVideo)
			v.POST("/upload/batch", videos.UploadBatch)
			v.GET("/:id", videos.GetVideo)
			v.DELETE("/:id", videos.DeleteVideo)
		}
	}
}
