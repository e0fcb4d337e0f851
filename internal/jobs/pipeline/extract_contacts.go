package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/fathomcrm/fathom-backend/internal/ai"
	"github.com/fathomcrm/fathom-backend/internal/jobs"
	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

// ExtractContactsHandler links each interaction in the batch to a
// contact, creating contacts on first sight. It waits for the normalize
// stage: without interactions there is nothing to link.
type ExtractContactsHandler struct {
	log          *logger.Logger
	jobs         repos.JobRepo
	interactions repos.InteractionRepo
	rawEvents    repos.RawEventRepo
	contacts     repos.ContactRepo
	ai           ai.Client
}

func NewExtractContactsHandler(
	baseLog *logger.Logger,
	jobRepo repos.JobRepo,
	interactions repos.InteractionRepo,
	rawEvents repos.RawEventRepo,
	contacts repos.ContactRepo,
	aiClient ai.Client,
) *ExtractContactsHandler {
	return &ExtractContactsHandler{
		log:          baseLog.With("handler", types.JobKindExtractContacts),
		jobs:         jobRepo,
		interactions: interactions,
		rawEvents:    rawEvents,
		contacts:     contacts,
		ai:           aiClient,
	}
}

func (h *ExtractContactsHandler) Kind() string { return types.JobKindExtractContacts }

func (h *ExtractContactsHandler) Run(ctx context.Context, job *types.Job) (map[string]any, error) {
	ready, err := predecessorDone(ctx, h.jobs, job, types.JobKindNormalize)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, jobs.ErrNotReady
	}
	batchID, err := batchIDFromPayload(job)
	if err != nil {
		return nil, err
	}
	rows, err := h.interactions.ListByBatch(ctx, nil, job.UserID, batchID)
	if err != nil {
		return nil, err
	}
	linked := 0
	for _, row := range rows {
		if row.ContactID != nil {
			continue
		}
		counterpart, err := h.counterpart(ctx, row)
		if err != nil {
			return nil, err
		}
		if counterpart == nil {
			continue
		}
		contact, err := h.contacts.FindOrCreateByEmail(ctx, nil, row.UserID, counterpart.Email, counterpart.DisplayName)
		if err != nil {
			return nil, err
		}
		if err := h.interactions.SetContact(ctx, nil, row.ID, contact.ID); err != nil {
			return nil, err
		}
		if err := h.rawEvents.SetContact(ctx, nil, row.RawEventID, contact.ID); err != nil {
			return nil, err
		}
		linked++
	}
	return map[string]any{
		"interactions_seen": len(rows),
		"contacts_linked":   linked,
	}, nil
}

// counterpart picks the participant the interaction is "with". Inline
// provider data wins; the model only runs when the payload carried no
// usable addresses.
func (h *ExtractContactsHandler) counterpart(ctx context.Context, row *types.Interaction) (*ai.Participant, error) {
	var participants []ai.Participant
	if len(row.Participants) > 0 {
		if err := json.Unmarshal(row.Participants, &participants); err != nil {
			h.log.Warn("Malformed participants on interaction", "interaction_id", row.ID, "error", err)
		}
	}
	if len(participants) == 0 && h.ai != nil {
		text := strings.TrimSpace(row.Title + "\n" + row.Snippet)
		if text == "" {
			return nil, nil
		}
		extracted, err := h.ai.ExtractParticipants(ctx, text)
		if err != nil {
			return nil, err
		}
		participants = extracted
	}
	return pickCounterpart(participants), nil
}

// pickCounterpart prefers the sender, then the organizer, then the
// first participant with a usable address.
func pickCounterpart(participants []ai.Participant) *ai.Participant {
	for _, role := range []string{"from", "organizer"} {
		for i := range participants {
			if participants[i].Role == role && participants[i].Email != "" {
				return &participants[i]
			}
		}
	}
	for i := range participants {
		if participants[i].Email != "" {
			return &participants[i]
		}
	}
	return nil
}
