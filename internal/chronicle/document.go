package chronicle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Formille/CthulhuCalender/internal/domain/almanac"
	"github.com/Formille/CthulhuCalender/internal/domain/campaign"
)

// SaveInfo identifies one campaign save. CampaignID doubles as the
// storage key and the attribution on emitted audit events.
type SaveInfo struct {
	CampaignID   string    `json:"campaign_id"`
	PlayerName   string    `json:"player_name"`
	CampaignYear int       `json:"campaign_year"`
	LastPlayed   time.Time `json:"last_played"`
}

// SaveDocument is the full campaign snapshot persisted as one opaque
// document: state, legacy inventory, and campaign history together. The
// engine mutates an in-memory copy and returns it for the caller to
// persist atomically.
type SaveDocument struct {
	Info    SaveInfo        `json:"save_file_info"`
	State   campaign.State  `json:"current_state"`
	Legacy  LegacyInventory `json:"legacy_inventory"`
	History History         `json:"campaign_history"`
}

// NewSaveDocument initializes a fresh campaign starting January 1st of
// the given year. The prologue is dated December 31st of the prior year
// and filled in by the narrator afterwards.
func NewSaveDocument(playerName string, year int) *SaveDocument {
	return &SaveDocument{
		Info: SaveInfo{
			PlayerName:   playerName,
			CampaignYear: year,
			LastPlayed:   time.Now().UTC(),
		},
		State: campaign.NewState(year),
		History: History{
			Prologue: Prologue{Date: almanac.NewDate(year-1, time.December, 31)},
		},
	}
}

// Clone returns a deep copy of the document via a JSON round trip, so
// a failed transition never leaves the caller's snapshot half-mutated.
func (d *SaveDocument) Clone() (*SaveDocument, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("clone save document: %w", err)
	}
	var out SaveDocument
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("clone save document: %w", err)
	}
	return &out, nil
}

// FindChapter returns the chapter for the named month, or nil.
func (d *SaveDocument) FindChapter(month string) *MonthlyChapter {
	for i := range d.History.Chapters {
		if d.History.Chapters[i].Month == month {
			return &d.History.Chapters[i]
		}
	}
	return nil
}

// Chapter returns the chapter for the named month, creating it on first
// use.
func (d *SaveDocument) Chapter(month string) *MonthlyChapter {
	if ch := d.FindChapter(month); ch != nil {
		return ch
	}
	d.History.Chapters = append(d.History.Chapters, MonthlyChapter{Month: month})
	return &d.History.Chapters[len(d.History.Chapters)-1]
}

// AppendDailyEntry files the entry under its month's chapter.
func (d *SaveDocument) AppendDailyEntry(entry DailyEntry) {
	ch := d.Chapter(almanac.MonthName(entry.DiaryDate))
	ch.DailyEntries = append(ch.DailyEntries, entry)
}

// EntryByDate returns the daily entry diarized on the given date, or nil.
func (d *SaveDocument) EntryByDate(date almanac.Date) *DailyEntry {
	ch := d.FindChapter(almanac.MonthName(date))
	if ch == nil {
		return nil
	}
	for i := range ch.DailyEntries {
		if ch.DailyEntries[i].DiaryDate.Equal(date.Time) {
			return &ch.DailyEntries[i]
		}
	}
	return nil
}

// LastDailyEntry returns the most recently diarized entry across the
// whole history, or nil for a fresh campaign.
func (d *SaveDocument) LastDailyEntry() *DailyEntry {
	var last *DailyEntry
	for i := range d.History.Chapters {
		entries := d.History.Chapters[i].DailyEntries
		for j := range entries {
			if last == nil || entries[j].DiaryDate.After(last.DiaryDate.Time) {
				last = &entries[j]
			}
		}
	}
	return last
}

// AppendWeeklyRecord archives a closed week in the legacy inventory and
// returns a pointer to the stored record so the caller can attach the
// narrated summary.
func (d *SaveDocument) AppendWeeklyRecord(rec WeeklyRecord) *WeeklyRecord {
	d.Legacy.WeeklyRecords = append(d.Legacy.WeeklyRecords, rec)
	return &d.Legacy.WeeklyRecords[len(d.Legacy.WeeklyRecords)-1]
}

// MonthWeeklyRecords returns the weekly records whose closing Sunday
// falls in the given month.
func (d *SaveDocument) MonthWeeklyRecords(year int, month time.Month) []WeeklyRecord {
	var out []WeeklyRecord
	for _, rec := range d.Legacy.WeeklyRecords {
		if rec.WeekEnd.Year() == year && rec.WeekEnd.Month() == month {
			out = append(out, rec)
		}
	}
	return out
}

// FailedTargetNames lists the target names of failed encounters recorded
// in past weekly records, for narrative reuse on later failures.
func (d *SaveDocument) FailedTargetNames() []string {
	var out []string
	for _, rec := range d.Legacy.WeeklyRecords {
		for _, enc := range rec.KeyEncounters {
			if enc.Outcome == OutcomeFailure && enc.TargetName != "" {
				out = append(out, enc.TargetName)
			}
		}
	}
	return out
}

// Outcome labels used in reduced records.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// OutcomeLabel converts a success flag to its record label.
func OutcomeLabel(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
