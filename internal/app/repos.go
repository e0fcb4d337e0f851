package app

import (
	"gorm.io/gorm"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/repos"
)

type Repos struct {
	User           repos.UserRepo
	UserToken      repos.UserTokenRepo
	UserConnection repos.UserConnectionRepo
	RawEvent       repos.RawEventRepo
	Interaction    repos.InteractionRepo
	Contact        repos.ContactRepo
	Job            repos.JobRepo
	Note           repos.NoteRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:           repos.NewUserRepo(db, log),
		UserToken:      repos.NewUserTokenRepo(db, log),
		UserConnection: repos.NewUserConnectionRepo(db, log),
		RawEvent:       repos.NewRawEventRepo(db, log),
		Interaction:    repos.NewInteractionRepo(db, log),
		Contact:        repos.NewContactRepo(db, log),
		Job:            repos.NewJobRepo(db, log),
		Note:           repos.NewNoteRepo(db, log),
	}
}
