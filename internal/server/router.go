package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/banditserve-backend/internal/handlers"
)

type RouterConfig struct {
	UserHandler    *handlers.UserHandler
	ActionHandler  *handlers.ActionHandler
	OutcomeHandler *handlers.OutcomeHandler
	UpdateHandler  *handlers.UpdateHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api/v1")
	{
		api.POST("/add_user", cfg.UserHandler.AddUser)
		api.POST("/action", cfg.ActionHandler.RequestAction)
		api.POST("/upload_data", cfg.OutcomeHandler.UploadData)
		api.POST("/update", cfg.UpdateHandler.RequestUpdate)
		api.GET("/update/:update_id", cfg.UpdateHandler.GetUpdate)
	}

	return router
}
