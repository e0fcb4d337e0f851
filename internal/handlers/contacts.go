package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fathomcrm/fathom-backend/internal/requestdata"
	"github.com/fathomcrm/fathom-backend/internal/services"
)

type ContactsHandler struct {
	contactService services.ContactService
}

func NewContactsHandler(contactService services.ContactService) *ContactsHandler {
	return &ContactsHandler{contactService: contactService}
}

func (ch *ContactsHandler) List(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = parsed
	}
	contacts, err := ch.contactService.List(c.Request.Context(), userID, limit)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"contacts": contacts})
}

func (ch *ContactsHandler) Get(c *gin.Context) {
	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_contact_id", err)
		return
	}
	userID := requestdata.UserID(c.Request.Context())
	contact, err := ch.contactService.Get(c.Request.Context(), userID, contactID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, contact)
}
