package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the HTTP routes. CORS is wide open; the API fronts an
// internal dashboard and carries no credentials.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	router.GET("/healthcheck", h.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/upload", h.Upload)
		api.POST("/chat", h.Chat)
		api.POST("/extract/:document_id", h.ReExtract)
		api.GET("/categories", h.Categories)

		api.GET("/districts", h.ListDistricts)
		api.GET("/districts/names", h.DistrictNames)
		api.GET("/districts/:district/data", h.DistrictData)
		api.GET("/districts/:district/structured", h.DistrictStructured)
		api.GET("/districts/:district/analytics", h.DistrictAnalytics)
		api.GET("/districts/:district/history", h.DistrictHistory)
		api.GET("/districts/:district/export", h.DistrictExport)
		api.DELETE("/districts/:district", h.DeleteDistrict)
	}

	return router
}
