package app

import (
	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/middleware"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, s Services) Middleware {
	return Middleware{
		Auth: middleware.NewAuthMiddleware(log, s.Auth),
	}
}
