package app

import (
	"github.com/fathomcrm/fathom-backend/internal/handlers"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	User     *handlers.UserHandler
	Sync     *handlers.SyncHandler
	Jobs     *handlers.JobsHandler
	Contacts *handlers.ContactsHandler
	Notes    *handlers.NotesHandler
}

func wireHandlers(s Services) Handlers {
	return Handlers{
		Auth:     handlers.NewAuthHandler(s.Auth),
		User:     handlers.NewUserHandler(s.User),
		Sync:     handlers.NewSyncHandler(s.Sync, s.Job, s.BatchStatus, s.Undo),
		Jobs:     handlers.NewJobsHandler(s.Job, s.JobWorker),
		Contacts: handlers.NewContactsHandler(s.Contact),
		Notes:    handlers.NewNotesHandler(s.Note),
	}
}
