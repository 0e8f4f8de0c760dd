package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the gin engine with logging, recovery and CORS
func NewRouter(handler *Handler, allowedOrigins []string, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger), CORS(allowedOrigins))
	SetupRoutes(router, handler)
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/model", handler.GetModelInfo)
		api.GET("/property-types", handler.GetPropertyTypes)

		api.POST("/estimate", handler.Estimate)
		api.POST("/estimate/explain", handler.Explain)

		api.GET("/zones", handler.ListZones)
		api.GET("/zones/:slug", handler.GetZone)

		api.GET("/estimates", handler.GetRecentEstimates)
		api.GET("/estimates/stats", handler.GetEstimateStats)
		api.GET("/estimates/zones", handler.GetZoneStats)
		api.GET("/estimates/cells", handler.GetGeohashCells)
	}
}
