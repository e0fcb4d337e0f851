package pipeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/fathomcrm/fathom-backend/internal/ai"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

func TestParseAddress(t *testing.T) {
	p, ok := parseAddress("Jordan Reyes <jordan@acme.com>", "from")
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if p.Email != "jordan@acme.com" || p.DisplayName != "Jordan Reyes" || p.Role != "from" {
		t.Fatalf("unexpected participant: %+v", p)
	}

	p, ok = parseAddress("  SAM@ACME.COM  ", "to")
	if !ok || p.Email != "sam@acme.com" || p.DisplayName != "" {
		t.Fatalf("expected bare lowered address, got %+v ok=%v", p, ok)
	}

	if _, ok := parseAddress("not an address", "to"); ok {
		t.Fatalf("expected parse failure without @")
	}
	if _, ok := parseAddress("", "to"); ok {
		t.Fatalf("expected parse failure for empty input")
	}
}

func TestPayloadParticipants(t *testing.T) {
	payload := map[string]any{
		"from": "Jordan Reyes <jordan@acme.com>",
		"to":   []any{"sam@acme.com", map[string]any{"email": "Lee@acme.com", "name": "Lee"}},
		"cc":   "casey@acme.com",
	}
	got := payloadParticipants(payload)
	if len(got) != 4 {
		t.Fatalf("expected 4 participants, got %d: %+v", len(got), got)
	}
	if got[0].Role != "from" || got[0].Email != "jordan@acme.com" {
		t.Fatalf("expected sender first, got %+v", got[0])
	}
	byEmail := map[string]string{}
	for _, p := range got {
		byEmail[p.Email] = p.Role
	}
	if byEmail["lee@acme.com"] != "to" || byEmail["casey@acme.com"] != "cc" {
		t.Fatalf("unexpected roles: %v", byEmail)
	}
}

func TestPickCounterpartPrefersSender(t *testing.T) {
	participants := []ai.Participant{
		{Email: "sam@acme.com", Role: "to"},
		{Email: "jordan@acme.com", Role: "from"},
	}
	got := pickCounterpart(participants)
	if got == nil || got.Email != "jordan@acme.com" {
		t.Fatalf("expected sender, got %+v", got)
	}

	got = pickCounterpart([]ai.Participant{{Email: "org@acme.com", Role: "organizer"}, {Email: "a@acme.com", Role: "attendee"}})
	if got == nil || got.Email != "org@acme.com" {
		t.Fatalf("expected organizer, got %+v", got)
	}

	got = pickCounterpart([]ai.Participant{{Email: "", Role: "from"}, {Email: "only@acme.com", Role: "cc"}})
	if got == nil || got.Email != "only@acme.com" {
		t.Fatalf("expected fallback to first usable address, got %+v", got)
	}

	if got := pickCounterpart(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %+v", got)
	}
}

func TestInteractionFromEmail(t *testing.T) {
	batchID := uuid.New()
	payload, _ := json.Marshal(map[string]any{
		"subject": "Q3 proposal",
		"snippet": "Attached is the draft",
		"from":    "jordan@acme.com",
	})
	ev := &types.RawEvent{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Provider:   types.ProviderEmail,
		Payload:    datatypes.JSON(payload),
		BatchID:    &batchID,
		OccurredAt: time.Now().UTC(),
	}
	row, err := interactionFrom(ev)
	if err != nil {
		t.Fatalf("interactionFrom: %v", err)
	}
	if row.Kind != types.InteractionKindEmail {
		t.Fatalf("expected email kind, got %s", row.Kind)
	}
	if row.Title != "Q3 proposal" || row.Snippet != "Attached is the draft" {
		t.Fatalf("unexpected title/snippet: %q %q", row.Title, row.Snippet)
	}
	if row.RawEventID != ev.ID || row.BatchID == nil || *row.BatchID != batchID {
		t.Fatalf("expected links back to the raw event and batch")
	}
	var participants []ai.Participant
	if err := json.Unmarshal(row.Participants, &participants); err != nil {
		t.Fatalf("decode participants: %v", err)
	}
	if len(participants) != 1 || participants[0].Email != "jordan@acme.com" {
		t.Fatalf("unexpected participants: %+v", participants)
	}
}

func TestInteractionFromCalendar(t *testing.T) {
	batchID := uuid.New()
	payload, _ := json.Marshal(map[string]any{
		"summary":     "Quarterly review",
		"description": "Agenda attached",
		"organizer":   map[string]any{"email": "host@acme.com", "name": "Host"},
	})
	ev := &types.RawEvent{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Provider:   types.ProviderCalendar,
		Payload:    datatypes.JSON(payload),
		BatchID:    &batchID,
		OccurredAt: time.Now().UTC(),
	}
	row, err := interactionFrom(ev)
	if err != nil {
		t.Fatalf("interactionFrom: %v", err)
	}
	if row.Kind != types.InteractionKindMeeting {
		t.Fatalf("expected meeting kind, got %s", row.Kind)
	}
	if row.Title != "Quarterly review" {
		t.Fatalf("unexpected title: %q", row.Title)
	}
}

func TestBatchIDFromPayloadFallsBackToRow(t *testing.T) {
	batchID := uuid.New()
	job := &types.Job{
		ID:      uuid.New(),
		BatchID: &batchID,
		Payload: datatypes.JSON([]byte(`{}`)),
	}
	got, err := batchIDFromPayload(job)
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if got != batchID {
		t.Fatalf("expected row batch id, got %s", got)
	}

	other := uuid.New()
	job.Payload = datatypes.JSON([]byte(`{"batch_id":"` + other.String() + `"}`))
	got, err = batchIDFromPayload(job)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got != other {
		t.Fatalf("expected payload to win, got %s", got)
	}

	job.Payload = datatypes.JSON([]byte(`{}`))
	job.BatchID = nil
	if _, err := batchIDFromPayload(job); err == nil {
		t.Fatalf("expected error when no batch id anywhere")
	}
}
