// Package campaign defines the core domain entities for the calendar campaign.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package campaign

import (
	"errors"
	"fmt"

	"github.com/Formille/CthulhuCalender/internal/domain/almanac"
)

// ActionType is the action category printed on a calendar square and on
// the green symbol dice.
type ActionType string

const (
	ActionCombat        ActionType = "COMBAT"        // physical confrontation
	ActionInvestigation ActionType = "INVESTIGATION" // detailed on-site inquiry
	ActionSearch        ActionType = "SEARCH"        // tailing and searching dark places
)

// IsValid reports whether a is a recognised action category.
func (a ActionType) IsValid() bool {
	switch a {
	case ActionCombat, ActionInvestigation, ActionSearch:
		return true
	}
	return false
}

// ErrUnknownAction is returned for an action category outside the fixed set.
var ErrUnknownAction = errors.New("unknown action type")

// ParseActionType converts a wire string into an ActionType.
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(s)
	if !a.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// Gameplay bounds. MadnessCap is a scoring threshold, not a write-time
// clamp: the tracker may overshoot 10 and the overshoot carries
// narrative weight.
const (
	MadnessCap    = 10
	MinDifficulty = 5
	MaxDifficulty = 20
)

// State is the mutable progression record of one campaign. Operations
// receive a full snapshot, mutate an in-memory copy, and hand it back to
// the caller for atomic persistence. No component holds a State across
// calls.
type State struct {
	// CurrentDate is the next day to be diarized: the earliest date
	// without a diary entry. It advances by exactly one day per
	// resolved encounter.
	CurrentDate almanac.Date `json:"current_date"`

	// MadnessLevel accumulates within a month and resets to 0 on the
	// first resolution of a new month.
	MadnessLevel int `json:"madness_level"`

	// WeeklySuccessCount counts Monday..Saturday successes. It is
	// zeroed every Monday and again after the Sunday encounter closes
	// the week.
	WeeklySuccessCount int `json:"weekly_success_count"`

	// CompletedDaysInWeek holds the target dates already resolved this
	// week. Cleared on weekly reset.
	CompletedDaysInWeek []almanac.Date `json:"completed_days_in_week"`

	// CurrentWeekNumber increments once per resolved Sunday.
	CurrentWeekNumber int `json:"current_week_number"`
}

// NewState returns the starting state for a campaign year: January 1st,
// clean trackers, week one.
func NewState(year int) State {
	return State{
		CurrentDate:       almanac.NewDate(year, 1, 1),
		CurrentWeekNumber: 1,
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	out.CompletedDaysInWeek = append([]almanac.Date(nil), s.CompletedDaysInWeek...)
	return out
}

// MarkCompleted records a target date as resolved this week. Duplicate
// dates are ignored.
func (s *State) MarkCompleted(d almanac.Date) {
	for _, c := range s.CompletedDaysInWeek {
		if c.Equal(d.Time) {
			return
		}
	}
	s.CompletedDaysInWeek = append(s.CompletedDaysInWeek, d)
}

// IsCompleted reports whether the target date was already resolved this week.
func (s State) IsCompleted(d almanac.Date) bool {
	for _, c := range s.CompletedDaysInWeek {
		if c.Equal(d.Time) {
			return true
		}
	}
	return false
}

// ClearWeek resets the per-week trackers.
func (s *State) ClearWeek() {
	s.WeeklySuccessCount = 0
	s.CompletedDaysInWeek = nil
}

// Validate checks internal invariants. A violation here means corrupted
// state, not bad player input.
func (s State) Validate() error {
	if s.CurrentDate.IsZero() {
		return errors.New("campaign state has no current date")
	}
	if s.MadnessLevel < 0 {
		return fmt.Errorf("negative madness level %d", s.MadnessLevel)
	}
	if s.WeeklySuccessCount < 0 {
		return fmt.Errorf("negative weekly success count %d", s.WeeklySuccessCount)
	}
	if s.CurrentWeekNumber < 1 {
		return fmt.Errorf("week number %d below 1", s.CurrentWeekNumber)
	}
	return nil
}
