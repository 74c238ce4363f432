package api

import (
	"github.com/gin-gonic/gin"
)

// NewServer builds the gin engine with all routes configured.
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)
	r.GET("/feeds", handler.ListFeeds)
	r.GET("/feeds/:id", handler.GetFeed)
	r.POST("/feeds", handler.RegisterFeed)
	r.POST("/feeds/:id/deactivate", handler.DeactivateFeed)
	r.PUT("/feeds/:id/frequency", handler.SetFrequency)
	r.DELETE("/feeds/:id", handler.DeleteFeed)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "feedsink",
			"endpoints": gin.H{
				"health":     "/health",
				"stats":      "/stats",
				"feeds":      "/feeds",
				"feed":       "/feeds/<id>",
				"register":   "/feeds (POST)",
				"deactivate": "/feeds/<id>/deactivate (POST)",
				"frequency":  "/feeds/<id>/frequency (PUT)",
				"delete":     "/feeds/<id> (DELETE)",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})

	return r
}
