// Package events provides the append-only audit log of the campaign.
// Every progression transition leaves a trace here, so a diary's history
// can always be reconstructed and pushed to connected clients.
package events

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// EventType defines the category of a campaign event.
type EventType string

const (
	EventTypeCampaignStarted    EventType = "CAMPAIGN_STARTED"
	EventTypeEncounterResolved  EventType = "ENCOUNTER_RESOLVED"
	EventTypeMadnessChanged     EventType = "MADNESS_CHANGED"
	EventTypeWeekClosed         EventType = "WEEK_CLOSED"
	EventTypeMonthClosed        EventType = "MONTH_CLOSED"
	EventTypeNarrativeGenerated EventType = "NARRATIVE_GENERATED"
)

// CampaignEvent is an immutable record of one transition.
type CampaignEvent struct {
	ID         string      `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	Type       EventType   `json:"type"`
	CampaignID string      `json:"campaign_id"`
	GameDate   string      `json:"game_date"` // diarized date, "1925-01-04"
	Payload    interface{} `json:"payload"`   // event-specific data
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event CampaignEvent) error
}

// Log is the in-memory append-only log, optionally written through to a
// persister (SQLite in production).
type Log struct {
	mu        sync.RWMutex
	events    []CampaignEvent
	persister EventPersister
}

// NewLog creates a new event log with an optional persister.
func NewLog(persister EventPersister) *Log {
	return &Log{
		events:    make([]CampaignEvent, 0),
		persister: persister,
	}
}

// Append adds a new event to the log. Events are immutable once appended.
func (l *Log) Append(event CampaignEvent) {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	persister := l.persister
	l.mu.Unlock()

	if persister != nil {
		// Write through to persistent storage. Resolution is
		// synchronous and low volume, so no buffering is needed.
		_ = persister.Append(event)
	}
}

// GetByType returns all events of a specific type.
func (l *Log) GetByType(t EventType) []CampaignEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []CampaignEvent
	for _, e := range l.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// GetByDate returns all events for a specific diarized date.
func (l *Log) GetByDate(gameDate string) []CampaignEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []CampaignEvent
	for _, e := range l.events {
		if e.GameDate == gameDate {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns the full history of events in append order.
func (l *Log) Replay() []CampaignEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]CampaignEvent, len(l.events))
	copy(out, l.events)
	return out
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return time.Now().Format("20060102150405") + "-" + hex.EncodeToString(b[:])
}
