package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fathomcrm/fathom-backend/internal/ai"
	"github.com/fathomcrm/fathom-backend/internal/jobs"
	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

// batchIDFromPayload resolves the batch a stage job operates on. Stage
// jobs carry the batch both in the payload and on the row; the payload
// wins so a job copied across batches stays self-describing.
func batchIDFromPayload(job *types.Job) (uuid.UUID, error) {
	var payload struct {
		BatchID string `json:"batch_id"`
	}
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return uuid.Nil, jobs.Permanent(fmt.Errorf("decode payload: %w", err))
		}
	}
	if payload.BatchID != "" {
		id, err := uuid.Parse(payload.BatchID)
		if err != nil {
			return uuid.Nil, jobs.Permanent(fmt.Errorf("parse batch_id: %w", err))
		}
		return id, nil
	}
	if job.BatchID != nil {
		return *job.BatchID, nil
	}
	return uuid.Nil, jobs.Permanent(fmt.Errorf("job %s has no batch_id", job.ID))
}

// predecessorDone reports whether the given earlier stage has finished
// for the job's batch. A batch with no predecessor row is treated as
// ready; there is nothing to wait for.
func predecessorDone(ctx context.Context, jobRepo repos.JobRepo, job *types.Job, kind string) (bool, error) {
	batchID, err := batchIDFromPayload(job)
	if err != nil {
		return false, err
	}
	siblings, err := jobRepo.ListByBatch(ctx, nil, job.UserID, batchID)
	if err != nil {
		return false, err
	}
	for _, sibling := range siblings {
		if sibling.Kind != kind {
			continue
		}
		if sibling.Status == types.JobStatusError {
			return false, jobs.Permanent(fmt.Errorf("predecessor stage %s failed for batch %s", kind, batchID))
		}
		if sibling.Status != types.JobStatusDone {
			return false, nil
		}
	}
	return true, nil
}

// payloadParticipants pulls structured sender/recipient data out of a
// raw provider payload. Providers that ship addresses inline let the
// pipeline skip the model call entirely.
func payloadParticipants(payload map[string]any) []ai.Participant {
	var out []ai.Participant
	appendOne := func(v any, role string) {
		switch addr := v.(type) {
		case string:
			if p, ok := parseAddress(addr, role); ok {
				out = append(out, p)
			}
		case map[string]any:
			email, _ := addr["email"].(string)
			name, _ := addr["name"].(string)
			if email = strings.TrimSpace(strings.ToLower(email)); email != "" {
				out = append(out, ai.Participant{Email: email, DisplayName: name, Role: role})
			}
		}
	}
	appendMany := func(v any, role string) {
		switch vv := v.(type) {
		case []any:
			for _, item := range vv {
				appendOne(item, role)
			}
		default:
			appendOne(v, role)
		}
	}
	appendOne(payload["from"], "from")
	appendOne(payload["organizer"], "organizer")
	appendMany(payload["to"], "to")
	appendMany(payload["cc"], "cc")
	appendMany(payload["attendees"], "attendee")
	return out
}

// parseAddress accepts "a@b.c" or "Name <a@b.c>".
func parseAddress(raw string, role string) (ai.Participant, bool) {
	raw = strings.TrimSpace(raw)
	name := ""
	if i := strings.IndexByte(raw, '<'); i >= 0 {
		j := strings.IndexByte(raw, '>')
		if j > i {
			name = strings.Trim(strings.TrimSpace(raw[:i]), `"`)
			raw = raw[i+1 : j]
		}
	}
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || !strings.Contains(raw, "@") {
		return ai.Participant{}, false
	}
	return ai.Participant{Email: raw, DisplayName: name, Role: role}, true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
