package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Formille/CthulhuCalender/internal/events"
	"github.com/Formille/CthulhuCalender/internal/platform/metrics"
)

// EventPersisterAdapter bridges the domain event log onto the event
// repository so the domain package never imports storage. Events keep
// the campaign attribution they were emitted with.
type EventPersisterAdapter struct {
	repo EventRepository
}

func NewEventPersisterAdapter(repo EventRepository) *EventPersisterAdapter {
	return &EventPersisterAdapter{repo: repo}
}

// Append translates a campaign event into its stored form.
func (a *EventPersisterAdapter) Append(event events.CampaignEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	start := time.Now()
	err = a.repo.Append(context.Background(), StoredEvent{
		ID:         event.ID,
		CampaignID: event.CampaignID,
		Timestamp:  event.Timestamp,
		EventType:  string(event.Type),
		GameDate:   event.GameDate,
		Payload:    string(payload),
	})
	metrics.Get().RecordEventWrite(time.Since(start), err)
	return err
}

var _ events.EventPersister = (*EventPersisterAdapter)(nil)
