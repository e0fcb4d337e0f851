package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fathomcrm/fathom-backend/internal/requestdata"
	"github.com/fathomcrm/fathom-backend/internal/services"
)

type NotesHandler struct {
	noteService services.NoteService
}

func NewNotesHandler(noteService services.NoteService) *NotesHandler {
	return &NotesHandler{noteService: noteService}
}

func (nh *NotesHandler) Create(c *gin.Context) {
	var req struct {
		ContactID *uuid.UUID `json:"contact_id"`
		Body      string     `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	userID := requestdata.UserID(c.Request.Context())
	note, err := nh.noteService.Create(c.Request.Context(), userID, req.ContactID, req.Body)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, note)
}

func (nh *NotesHandler) List(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	var contactID *uuid.UUID
	if raw := c.Query("contact_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_contact_id", err)
			return
		}
		contactID = &parsed
	}
	notes, err := nh.noteService.List(c.Request.Context(), userID, contactID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"notes": notes})
}

func (nh *NotesHandler) Update(c *gin.Context) {
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_note_id", err)
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	userID := requestdata.UserID(c.Request.Context())
	if err := nh.noteService.Update(c.Request.Context(), userID, noteID, req.Body); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (nh *NotesHandler) Delete(c *gin.Context) {
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_note_id", err)
		return
	}
	userID := requestdata.UserID(c.Request.Context())
	if err := nh.noteService.Delete(c.Request.Context(), userID, noteID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
