package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/garageboard/garageboard/internal/handlers"
)

type RouterConfig struct {
	BoardHandler  *handlers.BoardHandler
	StreamHandler *handlers.StreamHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		garage := api.Group("/garages/:garageID")
		garage.GET("/board", cfg.BoardHandler.GetBoard)
		garage.GET("/timeline", cfg.BoardHandler.GetTimeline)
		garage.GET("/metrics", cfg.BoardHandler.GetMetrics)
		garage.PATCH("/job-cards/:jobCardID/status", cfg.BoardHandler.ChangeStatus)
		garage.PATCH("/job-cards/:jobCardID", cfg.BoardHandler.UpdateFields)
		garage.GET("/stream", cfg.StreamHandler.Stream)
	}

	return router
}
