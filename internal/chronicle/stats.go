package chronicle

import (
	"time"

	"github.com/Formille/CthulhuCalender/internal/domain/almanac"
)

// MonthStats aggregates one month of play for scoring and for the
// month-conclusion prompt.
type MonthStats struct {
	TotalEntries          int     `json:"total_entries"`
	SuccessCount          int     `json:"success_count"`
	SuccessRate           float64 `json:"success_rate"`
	SundayTotal           int     `json:"sunday_total_count"`
	SundaySuccessCount    int     `json:"sunday_success_count"`
	SundaySuccessRate     float64 `json:"sunday_success_rate"`
	TotalMadness          int     `json:"total_madness"`
	MadnessTriggeredCount int     `json:"madness_triggered_count"`
	BossesDefeated        []string
}

// MonthStatistics walks the month's daily entries and weekly records.
// Sunday outcomes come exclusively from the weekly records, which are
// written once at week closure, so nothing here needs de-duplication.
func (d *SaveDocument) MonthStatistics(year int, month time.Month) MonthStats {
	var stats MonthStats

	if ch := d.FindChapter(month.String()); ch != nil {
		for _, entry := range ch.DailyEntries {
			if entry.DiaryDate.Year() != year || entry.DiaryDate.Month() != month {
				continue
			}
			stats.TotalEntries++
			if entry.Snapshot.IsSuccess {
				stats.SuccessCount++
			}
			if entry.Snapshot.MadnessTriggered {
				stats.MadnessTriggeredCount++
			}
			stats.TotalMadness += entry.Snapshot.SpecialSymbolCount
		}
	}

	for _, rec := range d.MonthWeeklyRecords(year, month) {
		stats.SundayTotal++
		if rec.Sunday.IsSuccess {
			stats.SundaySuccessCount++
			stats.BossesDefeated = append(stats.BossesDefeated, rec.Sunday.TargetName)
		}
	}

	if stats.TotalEntries > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalEntries)
	}
	if stats.SundayTotal > 0 {
		stats.SundaySuccessRate = float64(stats.SundaySuccessCount) / float64(stats.SundayTotal)
	}
	return stats
}

// WeekEntries returns the daily entries diarized between the week start
// of the given date and the date itself, in diary order.
func (d *SaveDocument) WeekEntries(current almanac.Date) []DailyEntry {
	start := almanac.WeekStart(current)
	var out []DailyEntry
	for i := range d.History.Chapters {
		for _, entry := range d.History.Chapters[i].DailyEntries {
			if !entry.DiaryDate.Before(start.Time) && !entry.DiaryDate.After(current.Time) {
				out = append(out, entry)
			}
		}
	}
	return out
}
