package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fathomcrm/fathom-backend/internal/requestdata"
	"github.com/fathomcrm/fathom-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (uh *UserHandler) Me(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	user, err := uh.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, user)
}

func (uh *UserHandler) Connections(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	connections, err := uh.userService.ListConnections(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"connections": connections})
}
