package engine

import (
	"fmt"
	"time"

	"github.com/Formille/CthulhuCalender/internal/chronicle"
	"github.com/Formille/CthulhuCalender/internal/domain/rules"
	"github.com/Formille/CthulhuCalender/internal/events"
)

// MonthClosedPayload records a chapter closure for audit.
type MonthClosedPayload struct {
	Month         string `json:"month"`
	Score         int    `json:"score"`
	Madness       int    `json:"madness"`
	SundayVictory int    `json:"sunday_victories"`
}

// MonthReport carries the scoring result of a month boundary.
type MonthReport struct {
	Month   time.Month
	Score   int
	Stats   chronicle.MonthStats
	Madness int

	// MadnessMaxedOut is the -5 penalty condition: the tracker reached
	// the cap at month end.
	MadnessMaxedOut bool
}

// ScoreMonth computes the month's score from its weekly records without
// mutating anything. Sunday victories come from the records written at
// week closure, the single source of truth for boss outcomes.
func (e *Engine) ScoreMonth(doc *chronicle.SaveDocument, month time.Month) MonthReport {
	stats := doc.MonthStatistics(doc.Info.CampaignYear, month)
	maxed := rules.MadnessMaxedOut(doc.State.MadnessLevel)
	return MonthReport{
		Month:           month,
		Score:           rules.MonthlyScore(stats.SundaySuccessCount, maxed),
		Stats:           stats,
		Madness:         doc.State.MadnessLevel,
		MadnessMaxedOut: maxed,
	}
}

// CloseMonth finalizes the month's chapter: it stores the score, freezes
// the month's peak madness, zeroes the tracker for the new month, and
// marks the chapter completed. Completion is one-way; closing an already
// completed chapter is a caller error.
func (e *Engine) CloseMonth(doc *chronicle.SaveDocument, month time.Month) (*chronicle.MonthlyChapter, MonthReport, error) {
	chapter := doc.FindChapter(month.String())
	if chapter == nil || len(chapter.DailyEntries) == 0 {
		return nil, MonthReport{}, fmt.Errorf("%w: %s", ErrNoEntries, month)
	}
	if chapter.IsCompleted {
		return nil, MonthReport{}, fmt.Errorf("%w: %s", ErrChapterClosed, month)
	}

	report := e.ScoreMonth(doc, month)

	chapter.Score = report.Score
	chapter.Madness = doc.State.MadnessLevel
	chapter.IsCompleted = true

	doc.State.MadnessLevel = 0

	e.emit(events.EventTypeMonthClosed, doc.Info.CampaignID, doc.State.CurrentDate.String(), MonthClosedPayload{
		Month:         month.String(),
		Score:         report.Score,
		Madness:       report.Madness,
		SundayVictory: report.Stats.SundaySuccessCount,
	})
	if e.logger != nil {
		e.logger.Event("MONTH_CLOSED", doc.State.CurrentDate.String(), fmt.Sprintf(
			"Month:%s | Score:%d | Madness:%d", month, report.Score, report.Madness))
	}
	return chapter, report, nil
}

// UnlockRules registers rules revealed on the back of the month's
// calendar page. They stay active until year end.
func (e *Engine) UnlockRules(doc *chronicle.SaveDocument, month time.Month, names []string) {
	for _, name := range names {
		doc.Legacy.ActiveRules = append(doc.Legacy.ActiveRules, chronicle.ActiveRule{
			ID:            fmt.Sprintf("rule_%s_%d", month.String(), len(doc.Legacy.ActiveRules)),
			Name:          name,
			EffectText:    name,
			UnlockedMonth: month.String(),
		})
	}
}

// StartMonth prepares the state for a new month: weekly progress resets
// and newly granted artifacts join the legacy inventory. The madness
// tracker was already zeroed by CloseMonth.
func (e *Engine) StartMonth(doc *chronicle.SaveDocument, artifacts []string) {
	doc.State.ClearWeek()
	doc.Legacy.CollectedArtifacts = append(doc.Legacy.CollectedArtifacts, artifacts...)
}
