package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/fathomcrm/fathom-backend/internal/handlers"
	"github.com/fathomcrm/fathom-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName     string
	CORSOrigins     []string
	AuthMiddleware  *middleware.AuthMiddleware
	AuthHandler     *handlers.AuthHandler
	UserHandler     *handlers.UserHandler
	SyncHandler     *handlers.SyncHandler
	JobsHandler     *handlers.JobsHandler
	ContactsHandler *handlers.ContactsHandler
	NotesHandler    *handlers.NotesHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "fathom-backend"
	}
	router.Use(otelgin.Middleware(serviceName))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)
	router.POST("/refresh", cfg.AuthHandler.Refresh)

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	api.POST("/logout", cfg.AuthHandler.Logout)

	api.GET("/user", cfg.UserHandler.Me)
	api.GET("/user/connections", cfg.UserHandler.Connections)

	api.POST("/sync/trigger", cfg.SyncHandler.Trigger)
	api.GET("/sync/batches/:id", cfg.SyncHandler.BatchStatus)
	api.POST("/sync/batches/:id/undo", cfg.SyncHandler.UndoBatch)

	api.POST("/jobs/run", cfg.JobsHandler.RunPending)
	api.GET("/jobs", cfg.JobsHandler.List)
	api.GET("/jobs/:id", cfg.JobsHandler.Get)

	api.GET("/contacts", cfg.ContactsHandler.List)
	api.GET("/contacts/:id", cfg.ContactsHandler.Get)

	api.POST("/notes", cfg.NotesHandler.Create)
	api.GET("/notes", cfg.NotesHandler.List)
	api.PUT("/notes/:id", cfg.NotesHandler.Update)
	api.DELETE("/notes/:id", cfg.NotesHandler.Delete)

	return router
}
