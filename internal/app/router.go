package app

import (
	"github.com/gin-gonic/gin"

	"github.com/fathomcrm/fathom-backend/internal/server"
)

func wireRouter(cfg Config, h Handlers, m Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ServiceName:     cfg.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		AuthMiddleware:  m.Auth,
		AuthHandler:     h.Auth,
		UserHandler:     h.User,
		SyncHandler:     h.Sync,
		JobsHandler:     h.Jobs,
		ContactsHandler: h.Contacts,
		NotesHandler:    h.Notes,
	})
}
