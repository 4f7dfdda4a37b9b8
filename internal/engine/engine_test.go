package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/Formille/CthulhuCalender/internal/chronicle"
	"github.com/Formille/CthulhuCalender/internal/domain/almanac"
	"github.com/Formille/CthulhuCalender/internal/domain/campaign"
	"github.com/Formille/CthulhuCalender/internal/events"
	"github.com/Formille/CthulhuCalender/internal/platform/logger"
)

func newTestEngine() (*Engine, *events.Log) {
	log := events.NewLog(nil)
	return New(log, logger.NewLogger()), log
}

func mustTarget(t *testing.T, date almanac.Date, name string, symbol campaign.ActionType, difficulty int) campaign.EncounterTarget {
	t.Helper()
	target, err := campaign.NewEncounterTarget(date, name, symbol, difficulty)
	if err != nil {
		t.Fatalf("NewEncounterTarget(%s): %v", date, err)
	}
	return target
}

func winningRoll(symbol campaign.ActionType) campaign.DiceRoll {
	return campaign.DiceRoll{
		NumericSum: 18,
		SymbolSet:  []campaign.ActionType{symbol, campaign.ActionCombat},
	}
}

func losingRoll() campaign.DiceRoll {
	return campaign.DiceRoll{
		NumericSum: 3,
		SymbolSet:  []campaign.ActionType{campaign.ActionCombat, campaign.ActionCombat},
	}
}

// resolveDay runs one full resolve+apply cycle against the document's
// current diarized date, targeting that same date.
func resolveDay(t *testing.T, eng *Engine, doc *chronicle.SaveDocument, roll campaign.DiceRoll) *Resolution {
	t.Helper()
	target := mustTarget(t, doc.State.CurrentDate, "a shape in the fog", campaign.ActionSearch, 10)
	outcome, err := eng.ResolveEncounter(doc, target, roll, false)
	if err != nil {
		t.Fatalf("ResolveEncounter(%s): %v", doc.State.CurrentDate, err)
	}
	res, err := eng.ApplyResolution(doc, target, roll, outcome, chronicle.GeneratedContent{
		MainText:    "The fog parted. I wrote what I saw.",
		SummaryLine: "Something moved in the fog.",
	})
	if err != nil {
		t.Fatalf("ApplyResolution(%s): %v", doc.State.CurrentDate, err)
	}
	return res
}

func TestDayAdvancesByExactlyOneDay(t *testing.T) {
	eng, _ := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)

	// 1925-01-01 is a Thursday.
	resolveDay(t, eng, doc, losingRoll())
	if doc.State.CurrentDate.String() != "1925-01-02" {
		t.Errorf("Expected pointer at 1925-01-02, got %s", doc.State.CurrentDate)
	}
	resolveDay(t, eng, doc, losingRoll())
	if doc.State.CurrentDate.String() != "1925-01-03" {
		t.Errorf("Expected pointer at 1925-01-03, got %s", doc.State.CurrentDate)
	}
}

func TestMondayResetKeepsSameDaySuccess(t *testing.T) {
	eng, _ := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)

	// Advance to Monday Jan 5 with some accumulated weekly state.
	doc.State.CurrentDate = almanac.NewDate(1925, time.January, 5)
	doc.State.WeeklySuccessCount = 4
	doc.State.MarkCompleted(almanac.NewDate(1925, time.January, 3))

	res := resolveDay(t, eng, doc, winningRoll(campaign.ActionSearch))
	if !res.Outcome.IsSuccess {
		t.Fatalf("Expected the Monday roll to succeed")
	}

	// The reset fires first, then the success is counted: exactly 1.
	if doc.State.WeeklySuccessCount != 1 {
		t.Errorf("Expected weekly success count 1 after Monday reset+success, got %d", doc.State.WeeklySuccessCount)
	}
	// The cleared set now holds only today's target.
	if doc.State.IsCompleted(almanac.NewDate(1925, time.January, 3)) {
		t.Errorf("Monday reset should have cleared last week's completed days")
	}
	if !doc.State.IsCompleted(almanac.NewDate(1925, time.January, 5)) {
		t.Errorf("Today's target should be marked completed")
	}
}

func TestMonthlyMadnessReset(t *testing.T) {
	eng, _ := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)

	// A January entry exists; madness accumulated during January.
	doc.AppendDailyEntry(chronicle.DailyEntry{
		DiaryDate: almanac.NewDate(1925, time.January, 31),
		DayOfWeek: "Saturday",
	})
	doc.State.CurrentDate = almanac.NewDate(1925, time.February, 2) // a Monday
	doc.State.MadnessLevel = 8

	roll := losingRoll()
	roll.SpecialSymbolCount = 1
	resolveDay(t, eng, doc, roll)

	// Reset to 0 first, then the day's single symbol accumulates.
	if doc.State.MadnessLevel != 1 {
		t.Errorf("Expected madness 1 after month reset plus one symbol, got %d", doc.State.MadnessLevel)
	}
}

func TestMadnessOvershootsWithoutClamp(t *testing.T) {
	eng, _ := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)
	doc.State.MadnessLevel = 9

	roll := losingRoll()
	roll.SpecialSymbolCount = 3
	resolveDay(t, eng, doc, roll)

	if doc.State.MadnessLevel != 12 {
		t.Errorf("Expected madness to overshoot to 12, got %d", doc.State.MadnessLevel)
	}
}

func TestSundayClosureArchivesBeforeClearing(t *testing.T) {
	eng, eventLog := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)

	// Play Thursday Jan 1 through Sunday Jan 4.
	resolveDay(t, eng, doc, winningRoll(campaign.ActionSearch)) // Thu, success
	resolveDay(t, eng, doc, winningRoll(campaign.ActionSearch)) // Fri, success
	resolveDay(t, eng, doc, losingRoll())                       // Sat, failure
	res := resolveDay(t, eng, doc, winningRoll(campaign.ActionSearch)) // Sun, success

	if res.ClosedWeek == nil {
		t.Fatalf("Expected the Sunday resolution to close the week")
	}
	rec := res.ClosedWeek
	if rec.WeekNumber != 1 {
		t.Errorf("Expected week number 1 in the archive, got %d", rec.WeekNumber)
	}
	if len(rec.KeyEncounters) != 3 {
		t.Errorf("Expected 3 weekday encounters in the record, got %d", len(rec.KeyEncounters))
	}
	if !rec.Sunday.IsSuccess || rec.Sunday.Date.String() != "1925-01-04" {
		t.Errorf("Sunday encounter captured wrong: %+v", rec.Sunday)
	}

	// The archive saw the pre-clear count; the state is cleared after.
	var closed WeekClosedPayload
	found := false
	for _, ev := range eventLog.GetByType(events.EventTypeWeekClosed) {
		closed = ev.Payload.(WeekClosedPayload)
		found = true
	}
	if !found {
		t.Fatalf("Expected a WEEK_CLOSED event")
	}
	if closed.SuccessCount != 3 {
		t.Errorf("Archive must see the success count before clearing, got %d", closed.SuccessCount)
	}
	if doc.State.WeeklySuccessCount != 0 || len(doc.State.CompletedDaysInWeek) != 0 {
		t.Errorf("Weekly trackers must be cleared after closure")
	}
	if doc.State.CurrentWeekNumber != 2 {
		t.Errorf("Expected week number 2 after closure, got %d", doc.State.CurrentWeekNumber)
	}
}

func TestWeekNumberNeverDecreases(t *testing.T) {
	eng, _ := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)

	last := doc.State.CurrentWeekNumber
	for i := 0; i < 21; i++ { // three full weeks
		resolveDay(t, eng, doc, winningRoll(campaign.ActionSearch))
		if doc.State.CurrentWeekNumber < last {
			t.Fatalf("Week number decreased from %d to %d", last, doc.State.CurrentWeekNumber)
		}
		last = doc.State.CurrentWeekNumber
	}
	if last != 4 {
		t.Errorf("Expected week 4 after three closed weeks, got %d", last)
	}
}

func TestSundayBossDiscountAcrossTheWeek(t *testing.T) {
	eng, _ := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)

	// Three successes Thursday..Saturday.
	resolveDay(t, eng, doc, winningRoll(campaign.ActionSearch))
	resolveDay(t, eng, doc, winningRoll(campaign.ActionSearch))
	resolveDay(t, eng, doc, winningRoll(campaign.ActionSearch))

	// Sunday boss: base 15, discount 3, sum 12 exactly meets it.
	target := mustTarget(t, doc.State.CurrentDate, "the thing beneath the harbor", campaign.ActionCombat, 15)
	roll := campaign.DiceRoll{
		NumericSum: 12,
		SymbolSet:  []campaign.ActionType{campaign.ActionCombat, campaign.ActionSearch},
	}
	outcome, err := eng.ResolveEncounter(doc, target, roll, false)
	if err != nil {
		t.Fatalf("ResolveEncounter: %v", err)
	}
	if outcome.EffectiveDifficulty != 12 {
		t.Errorf("Expected effective difficulty 12, got %d", outcome.EffectiveDifficulty)
	}
	if !outcome.IsSuccess {
		t.Errorf("Expected the boss to fall with sum 12 against 12")
	}
}

func TestRejectsTargetOutsideWeek(t *testing.T) {
	eng, _ := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)
	doc.State.CurrentDate = almanac.NewDate(1925, time.January, 8) // Thursday

	// Next week's Tuesday.
	target := mustTarget(t, almanac.NewDate(1925, time.January, 13), "a locked door", campaign.ActionSearch, 10)
	_, err := eng.ResolveEncounter(doc, target, losingRoll(), false)
	if !errors.Is(err, ErrOutsideWeek) {
		t.Errorf("Expected ErrOutsideWeek, got %v", err)
	}

	// This week's Sunday, picked in advance: also rejected.
	sunday := mustTarget(t, almanac.NewDate(1925, time.January, 11), "the bell tower", campaign.ActionCombat, 12)
	_, err = eng.ResolveEncounter(doc, sunday, losingRoll(), false)
	if !errors.Is(err, ErrOutsideWeek) {
		t.Errorf("Expected ErrOutsideWeek for an advance Sunday pick, got %v", err)
	}

	// A forced failure skips the week check entirely.
	outcome, err := eng.ResolveEncounter(doc, target, winningRoll(campaign.ActionSearch), true)
	if err != nil {
		t.Fatalf("Forced failure should bypass the week check: %v", err)
	}
	if outcome.IsSuccess {
		t.Errorf("Forced failure must not succeed")
	}
}

func TestRejectsDoubleResolutionOfSameSquare(t *testing.T) {
	eng, _ := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)

	target := mustTarget(t, almanac.NewDate(1925, time.January, 2), "a pale stranger", campaign.ActionSearch, 10)
	outcome, err := eng.ResolveEncounter(doc, target, losingRoll(), false)
	if err != nil {
		t.Fatalf("ResolveEncounter: %v", err)
	}
	if _, err := eng.ApplyResolution(doc, target, losingRoll(), outcome, chronicle.GeneratedContent{}); err != nil {
		t.Fatalf("ApplyResolution: %v", err)
	}

	_, err = eng.ResolveEncounter(doc, target, losingRoll(), false)
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("Expected ErrAlreadyResolved, got %v", err)
	}
}

func TestCloseMonthScoresAndFinalizes(t *testing.T) {
	eng, _ := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)

	// Play January 1 through 31: every roll succeeds.
	for doc.State.CurrentDate.Month() == time.January {
		resolveDay(t, eng, doc, winningRoll(campaign.ActionSearch))
	}

	chapter, report, err := eng.CloseMonth(doc, time.January)
	if err != nil {
		t.Fatalf("CloseMonth: %v", err)
	}

	// January 1925 holds four Sundays (4, 11, 18, 25), all won: 4*5.
	if report.Score != 20 {
		t.Errorf("Expected score 20 for four Sunday victories, got %d", report.Score)
	}
	if !chapter.IsCompleted || chapter.Score != 20 {
		t.Errorf("Chapter not finalized correctly: %+v", chapter)
	}
	if doc.State.MadnessLevel != 0 {
		t.Errorf("Expected madness zeroed at month close, got %d", doc.State.MadnessLevel)
	}

	// Completion is one-way: a second closure is a caller error.
	_, _, err = eng.CloseMonth(doc, time.January)
	if !errors.Is(err, ErrChapterClosed) {
		t.Errorf("Expected ErrChapterClosed on re-close, got %v", err)
	}
}

func TestCloseMonthMadnessPenalty(t *testing.T) {
	eng, _ := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)

	// One failed week, then a maxed madness tracker at month end.
	for i := 0; i < 4; i++ {
		resolveDay(t, eng, doc, losingRoll())
	}
	doc.State.MadnessLevel = 11

	_, report, err := eng.CloseMonth(doc, time.January)
	if err != nil {
		t.Fatalf("CloseMonth: %v", err)
	}
	if !report.MadnessMaxedOut {
		t.Errorf("Expected the maxed-out condition at level 11")
	}
	if report.Score != -5 {
		t.Errorf("Expected score -5 for no victories and maxed madness, got %d", report.Score)
	}
}

func TestCloseMonthWithoutEntries(t *testing.T) {
	eng, _ := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)

	_, _, err := eng.CloseMonth(doc, time.March)
	if !errors.Is(err, ErrNoEntries) {
		t.Errorf("Expected ErrNoEntries, got %v", err)
	}
}

func TestUnlockRulesAndStartMonth(t *testing.T) {
	eng, _ := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)
	doc.State.WeeklySuccessCount = 2

	eng.UnlockRules(doc, time.January, []string{"The silver key turns"})
	eng.StartMonth(doc, []string{"Silver Key"})

	if len(doc.Legacy.ActiveRules) != 1 || doc.Legacy.ActiveRules[0].UnlockedMonth != "January" {
		t.Errorf("Rule not registered: %+v", doc.Legacy.ActiveRules)
	}
	if len(doc.Legacy.CollectedArtifacts) != 1 || doc.Legacy.CollectedArtifacts[0] != "Silver Key" {
		t.Errorf("Artifact not collected: %+v", doc.Legacy.CollectedArtifacts)
	}
	if doc.State.WeeklySuccessCount != 0 {
		t.Errorf("StartMonth must reset weekly progress")
	}
}

func TestEventsCarryCampaignID(t *testing.T) {
	eng, log := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)
	doc.Info.CampaignID = "arkham-1925"

	eng.StartCampaign(doc)
	resolveDay(t, eng, doc, campaign.DiceRoll{
		NumericSum:         18,
		SymbolSet:          []campaign.ActionType{campaign.ActionSearch, campaign.ActionCombat},
		SpecialSymbolCount: 2,
	})

	all := log.Replay()
	if len(all) == 0 {
		t.Fatal("Expected audit events after a resolution")
	}
	var started bool
	for _, ev := range all {
		if ev.CampaignID != "arkham-1925" {
			t.Errorf("Event %s attributed to %q, want arkham-1925", ev.Type, ev.CampaignID)
		}
		if ev.Type == events.EventTypeCampaignStarted {
			started = true
		}
	}
	if !started {
		t.Error("Expected a CAMPAIGN_STARTED event in the log")
	}
}

func TestForcedFailureConsumesTheSquare(t *testing.T) {
	eng, _ := newTestEngine()
	doc := chronicle.NewSaveDocument("John Miller", 1925)

	// 1925-01-02 is a Friday; force a failure against it on Thursday.
	target := mustTarget(t, almanac.NewDate(1925, time.January, 2), "a shrouded mirror", campaign.ActionSearch, 10)
	outcome, err := eng.ResolveEncounter(doc, target, winningRoll(campaign.ActionSearch), true)
	if err != nil {
		t.Fatalf("ResolveEncounter forced: %v", err)
	}
	if outcome.IsSuccess {
		t.Error("A forced failure must never succeed")
	}
	if _, err := eng.ApplyResolution(doc, target, winningRoll(campaign.ActionSearch), outcome, chronicle.GeneratedContent{}); err != nil {
		t.Fatalf("ApplyResolution forced: %v", err)
	}

	// The square is spent: a later legitimate attempt is rejected.
	_, err = eng.ResolveEncounter(doc, target, winningRoll(campaign.ActionSearch), false)
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("Expected ErrAlreadyResolved for the consumed square, got %v", err)
	}
}
