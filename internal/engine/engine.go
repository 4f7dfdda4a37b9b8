// Package engine owns the campaign progression state machine: date
// advancement, weekly and monthly cycle resets, scoring, and archival.
// It is the only writer of campaign state. State is threaded explicitly:
// every operation takes a full save document snapshot and mutates it in
// memory; the caller persists the result atomically.
package engine

import (
	"errors"
	"fmt"

	"github.com/Formille/CthulhuCalender/internal/chronicle"
	"github.com/Formille/CthulhuCalender/internal/events"
	"github.com/Formille/CthulhuCalender/internal/platform/logger"
)

// Game-rule violations, reported before any state is touched.
var (
	// ErrOutsideWeek rejects a non-forced target outside the current
	// Monday..Sunday week (or a Sunday target on any other day).
	ErrOutsideWeek = errors.New("target date outside the current week")

	// ErrAlreadyResolved rejects a target already completed this week.
	ErrAlreadyResolved = errors.New("target date already resolved this week")

	// ErrChapterClosed rejects a second closure of a completed month.
	ErrChapterClosed = errors.New("monthly chapter already completed")

	// ErrNoEntries rejects closing a month with no diary entries.
	ErrNoEntries = errors.New("no diary entries recorded for the month")
)

// Engine applies progression transitions and emits audit events.
type Engine struct {
	eventLog *events.Log
	logger   *logger.Logger
}

// New creates the progression engine.
func New(eventLog *events.Log, log *logger.Logger) *Engine {
	return &Engine{eventLog: eventLog, logger: log}
}

// CampaignStartedPayload records a campaign creation for audit.
type CampaignStartedPayload struct {
	PlayerName   string `json:"player_name"`
	CampaignYear int    `json:"campaign_year"`
}

// StartCampaign records the creation of a fresh campaign in the audit
// log. The document must already carry its campaign ID.
func (e *Engine) StartCampaign(doc *chronicle.SaveDocument) {
	e.emit(events.EventTypeCampaignStarted, doc.Info.CampaignID, doc.State.CurrentDate.String(), CampaignStartedPayload{
		PlayerName:   doc.Info.PlayerName,
		CampaignYear: doc.Info.CampaignYear,
	})
	if e.logger != nil {
		e.logger.Event("CAMPAIGN_STARTED", doc.State.CurrentDate.String(), fmt.Sprintf(
			"Campaign:%s | Player:%s | Year:%d", doc.Info.CampaignID, doc.Info.PlayerName, doc.Info.CampaignYear))
	}
}

func (e *Engine) emit(t events.EventType, campaignID, gameDate string, payload interface{}) {
	if e.eventLog == nil {
		return
	}
	e.eventLog.Append(events.CampaignEvent{
		Type:       t,
		CampaignID: campaignID,
		GameDate:   gameDate,
		Payload:    payload,
	})
}

// fatal wraps an internal invariant violation. These are configuration
// errors, never masked as game-rule rejections.
func fatal(context string, err error) error {
	return fmt.Errorf("campaign state corrupted (%s): %w", context, err)
}
