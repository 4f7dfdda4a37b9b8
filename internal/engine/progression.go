package engine

import (
	"fmt"

	"github.com/Formille/CthulhuCalender/internal/chronicle"
	"github.com/Formille/CthulhuCalender/internal/domain/almanac"
	"github.com/Formille/CthulhuCalender/internal/domain/campaign"
	"github.com/Formille/CthulhuCalender/internal/domain/rules"
	"github.com/Formille/CthulhuCalender/internal/events"
)

// Resolution is the result of applying one encounter.
type Resolution struct {
	Outcome campaign.Outcome

	// Entry points at the diary entry appended to the document.
	Entry *chronicle.DailyEntry

	// ClosedWeek points at the weekly record archived by a Sunday
	// resolution, nil otherwise. Its Summary holds the deterministic
	// digest; the caller may append narrated text to it.
	ClosedWeek *chronicle.WeeklyRecord
}

// MadnessChangePayload records a madness modification for audit.
type MadnessChangePayload struct {
	Previous int    `json:"previous_madness"`
	New      int    `json:"new_madness"`
	Delta    int    `json:"delta"`
	Cause    string `json:"cause"` // "DICE", "MONTH_RESET"
}

// EncounterResolvedPayload records a resolution for audit.
type EncounterResolvedPayload struct {
	TargetDate          string `json:"target_date"`
	TargetName          string `json:"target_name"`
	IsSuccess           bool   `json:"is_success"`
	EffectiveDifficulty int    `json:"effective_difficulty"`
	IsSundayBoss        bool   `json:"is_sunday_boss"`
}

// WeekClosedPayload records a weekly closure for audit.
type WeekClosedPayload struct {
	WeekNumber   int    `json:"week_number"`
	WeekStart    string `json:"week_start"`
	WeekEnd      string `json:"week_end"`
	SuccessCount int    `json:"success_count"`
	BossDefeated bool   `json:"boss_defeated"`
}

// ResolveEncounter validates the day's input against the current state
// and computes the outcome without mutating anything. A forced failure
// skips the week-membership check: narrative setbacks may reference any
// square.
func (e *Engine) ResolveEncounter(doc *chronicle.SaveDocument, target campaign.EncounterTarget, roll campaign.DiceRoll, forcedFailure bool) (campaign.Outcome, error) {
	if err := target.Validate(); err != nil {
		return campaign.Outcome{}, err
	}
	if err := roll.Validate(); err != nil {
		return campaign.Outcome{}, err
	}
	if err := doc.State.Validate(); err != nil {
		return campaign.Outcome{}, fatal("resolve encounter", err)
	}

	if !forcedFailure {
		if !almanac.InCurrentWeek(target.TargetDate, doc.State.CurrentDate) {
			return campaign.Outcome{}, fmt.Errorf("%w: target %s, current %s",
				ErrOutsideWeek, target.TargetDate, doc.State.CurrentDate)
		}
		if doc.State.IsCompleted(target.TargetDate) {
			return campaign.Outcome{}, fmt.Errorf("%w: %s", ErrAlreadyResolved, target.TargetDate)
		}
	}

	return rules.Resolve(doc.State, target, roll, forcedFailure), nil
}

// ApplyResolution runs the day's state transitions in their fixed order:
//
//  1. weekly reset if the diarized date is a Monday
//  2. monthly madness reset if the month changed since the last entry
//  3. madness accumulation from the roll
//  4. weekly success increment
//  5. weekly closure if the diarized date is a Sunday
//  6. advancement of the diarized-date pointer by one day
//
// Reset triggers derive from date comparison alone, so the transition
// sequence cannot double-fire for one calendar day. The diarized date is
// the state's current date, not the player's target date.
func (e *Engine) ApplyResolution(doc *chronicle.SaveDocument, target campaign.EncounterTarget, roll campaign.DiceRoll, outcome campaign.Outcome, content chronicle.GeneratedContent) (*Resolution, error) {
	if err := doc.State.Validate(); err != nil {
		return nil, fatal("apply resolution", err)
	}

	diarized := doc.State.CurrentDate
	dateStr := diarized.String()

	// Step 1: Monday rule. Unconditional on Mondays, regardless of the
	// day's outcome.
	if almanac.IsMonday(diarized) {
		doc.State.ClearWeek()
	}

	// Step 2: monthly reset, derived from the previous recorded date.
	if prev := doc.LastDailyEntry(); prev != nil && !almanac.SameMonth(prev.DiaryDate, diarized) {
		if doc.State.MadnessLevel != 0 {
			e.emit(events.EventTypeMadnessChanged, doc.Info.CampaignID, dateStr, MadnessChangePayload{
				Previous: doc.State.MadnessLevel,
				New:      0,
				Delta:    -doc.State.MadnessLevel,
				Cause:    "MONTH_RESET",
			})
		}
		doc.State.MadnessLevel = 0
	}

	// Step 3: madness accumulation, only after the resets. No clamp at
	// the cap: overshoot carries narrative weight.
	if outcome.MadnessTriggered {
		prev := doc.State.MadnessLevel
		doc.State.MadnessLevel += roll.SpecialSymbolCount
		e.emit(events.EventTypeMadnessChanged, doc.Info.CampaignID, dateStr, MadnessChangePayload{
			Previous: prev,
			New:      doc.State.MadnessLevel,
			Delta:    roll.SpecialSymbolCount,
			Cause:    "DICE",
		})
		if rules.MadnessMaxedOut(doc.State.MadnessLevel) && e.logger != nil {
			e.logger.Warn("Madness tracker maxed out at %d on %s", doc.State.MadnessLevel, dateStr)
		}
	}

	// Step 4: success counting happens after the Monday reset, so a
	// Monday success is not erased by the same day's reset.
	if outcome.IsSuccess {
		doc.State.WeeklySuccessCount++
	}

	// The week log is collected before today's entry is appended: the
	// Sunday record keeps the boss encounter separate from the
	// Monday..Saturday key encounters.
	weekLog := doc.WeekEntries(diarized)

	entry := chronicle.DailyEntry{
		DiaryDate:   diarized,
		DayOfWeek:   diarized.Weekday().String(),
		IsFinalized: true,
		Snapshot: chronicle.EncounterSnapshot{
			TargetDate:          target.TargetDate,
			TargetName:          target.VisualDescription,
			Action:              target.RequiredSymbol,
			Dice:                chronicle.DiceResult{Sum: roll.NumericSum, Symbols: roll.SymbolSet},
			IsSuccess:           outcome.IsSuccess,
			EffectiveDifficulty: outcome.EffectiveDifficulty,
			MadnessTriggered:    outcome.MadnessTriggered,
			SpecialSymbolCount:  roll.SpecialSymbolCount,
		},
		Content: content,
	}
	doc.AppendDailyEntry(entry)
	stored := doc.EntryByDate(diarized)

	e.emit(events.EventTypeEncounterResolved, doc.Info.CampaignID, dateStr, EncounterResolvedPayload{
		TargetDate:          target.TargetDate.String(),
		TargetName:          target.VisualDescription,
		IsSuccess:           outcome.IsSuccess,
		EffectiveDifficulty: outcome.EffectiveDifficulty,
		IsSundayBoss:        target.IsSundayBoss,
	})

	res := &Resolution{Outcome: outcome, Entry: stored}

	// Step 5: Sunday closes the week. The archive must see the success
	// count before it is cleared.
	if almanac.IsSunday(diarized) {
		res.ClosedWeek = e.closeWeek(doc, diarized, entry, weekLog)
	} else {
		doc.State.MarkCompleted(target.TargetDate)
	}

	// Step 6: the diarized-date pointer advances by exactly one day,
	// regardless of outcome.
	doc.State.CurrentDate = diarized.AddDays(1)

	if e.logger != nil {
		e.logger.Event("ENCOUNTER", dateStr, fmt.Sprintf(
			"Target:%s | Success:%t | Madness:%d", target.VisualDescription, outcome.IsSuccess, doc.State.MadnessLevel))
	}
	return res, nil
}

// closeWeek archives the finished Monday..Sunday week: it snapshots the
// weekly counters into a WeeklyRecord, increments the week number, and
// clears the per-week trackers. This is the only place a Sunday outcome
// is recorded; downstream aggregation reads it from here.
func (e *Engine) closeWeek(doc *chronicle.SaveDocument, sunday almanac.Date, bossEntry chronicle.DailyEntry, weekLog []chronicle.DailyEntry) *chronicle.WeeklyRecord {
	start := almanac.WeekStart(sunday)

	rec := chronicle.WeeklyRecord{
		WeekNumber: doc.State.CurrentWeekNumber,
		WeekStart:  start,
		WeekEnd:    sunday,
		Sunday: chronicle.SundayEncounter{
			Date:        sunday,
			TargetName:  bossEntry.Snapshot.TargetName,
			IsSuccess:   bossEntry.Snapshot.IsSuccess,
			SummaryLine: bossEntry.Content.SummaryLine,
			MainText:    bossEntry.Content.MainText,
		},
	}
	for _, logged := range weekLog {
		rec.KeyEncounters = append(rec.KeyEncounters, chronicle.KeyEncounter{
			Date:        logged.DiaryDate,
			TargetName:  logged.Snapshot.TargetName,
			Outcome:     chronicle.OutcomeLabel(logged.Snapshot.IsSuccess),
			SummaryLine: logged.Content.SummaryLine,
		})
	}
	rec.Summary = weeklyDigest(rec)

	stored := doc.AppendWeeklyRecord(rec)

	e.emit(events.EventTypeWeekClosed, doc.Info.CampaignID, sunday.String(), WeekClosedPayload{
		WeekNumber:   rec.WeekNumber,
		WeekStart:    start.String(),
		WeekEnd:      sunday.String(),
		SuccessCount: doc.State.WeeklySuccessCount,
		BossDefeated: rec.Sunday.IsSuccess,
	})

	doc.State.CurrentWeekNumber++
	// Redundant with next Monday's reset, but the archive above had to
	// see the count before it is cleared.
	doc.State.ClearWeek()

	return stored
}

// weeklyDigest builds the deterministic one-paragraph summary of a
// closed week. Narrated detail may be appended by the caller.
func weeklyDigest(rec chronicle.WeeklyRecord) string {
	verdict := "fell"
	if !rec.Sunday.IsSuccess {
		verdict = "escaped"
	}
	return fmt.Sprintf("Week %d, %s through %s: %d encounters faced before the Sunday reckoning, where %s %s.",
		rec.WeekNumber, rec.WeekStart, rec.WeekEnd, len(rec.KeyEncounters), rec.Sunday.TargetName, verdict)
}
