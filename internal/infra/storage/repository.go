// Package storage provides the persistence layer for the campaign
// server. This package implements the repository pattern to keep the
// domain pure.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Formille/CthulhuCalender/internal/chronicle"
)

// ErrNotFound is returned when no campaign exists under the given ID.
var ErrNotFound = errors.New("campaign not found")

// CampaignInfo is the listing row of one stored campaign.
type CampaignInfo struct {
	CampaignID   string    `json:"campaign_id"`
	PlayerName   string    `json:"player_name"`
	CampaignYear int       `json:"campaign_year"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SaveRepository persists full campaign save documents. A save is
// written atomically as one document: a half-applied day must never be
// observable.
type SaveRepository interface {
	// Load retrieves a campaign's save document.
	Load(ctx context.Context, campaignID string) (*chronicle.SaveDocument, error)

	// Save stores the full document, replacing any previous version.
	Save(ctx context.Context, campaignID string, doc *chronicle.SaveDocument) error

	// List returns the stored campaigns, most recently played first.
	List(ctx context.Context) ([]CampaignInfo, error)

	// Delete removes a campaign and its events.
	Delete(ctx context.Context, campaignID string) error
}

// StoredEvent mirrors the domain event structure for persistence.
// The domain package does NOT import this; the adapter translates.
type StoredEvent struct {
	ID         string    `json:"id" db:"id"`
	CampaignID string    `json:"campaign_id" db:"campaign_id"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
	EventType  string    `json:"event_type" db:"event_type"`
	GameDate   string    `json:"game_date" db:"game_date"`
	Payload    string    `json:"payload" db:"payload"` // JSON
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event StoredEvent) error

	// GetByCampaignID retrieves all events of a campaign (for replay).
	GetByCampaignID(ctx context.Context, campaignID string) ([]StoredEvent, error)

	// GetByGameDate retrieves all events of one diarized date.
	GetByGameDate(ctx context.Context, campaignID, gameDate string) ([]StoredEvent, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, campaignID, eventType string) ([]StoredEvent, error)
}
