package chronicle

import (
	"testing"
	"time"

	"github.com/Formille/CthulhuCalender/internal/domain/almanac"
	"github.com/Formille/CthulhuCalender/internal/domain/campaign"
)

func entry(date almanac.Date, name string, success, madness bool, specials int) DailyEntry {
	return DailyEntry{
		DiaryDate:   date,
		DayOfWeek:   date.Weekday().String(),
		IsFinalized: true,
		Snapshot: EncounterSnapshot{
			TargetDate:         date,
			TargetName:         name,
			Action:             campaign.ActionSearch,
			IsSuccess:          success,
			MadnessTriggered:   madness,
			SpecialSymbolCount: specials,
		},
	}
}

func TestChapterGetOrCreate(t *testing.T) {
	doc := NewSaveDocument("John Miller", 1925)

	ch := doc.Chapter("January")
	if ch == nil || ch.Month != "January" {
		t.Fatalf("Expected a January chapter, got %+v", ch)
	}
	if len(doc.History.Chapters) != 1 {
		t.Errorf("Expected one chapter, got %d", len(doc.History.Chapters))
	}

	// Asking again returns the same chapter, not a duplicate.
	doc.Chapter("January").Score = 15
	if doc.Chapter("January").Score != 15 {
		t.Errorf("Chapter lookup did not return the stored chapter")
	}
	if len(doc.History.Chapters) != 1 {
		t.Errorf("Duplicate chapter created, got %d", len(doc.History.Chapters))
	}
}

func TestAppendDailyEntryFilesUnderMonth(t *testing.T) {
	doc := NewSaveDocument("John Miller", 1925)
	doc.AppendDailyEntry(entry(almanac.NewDate(1925, time.January, 2), "a pale stranger", true, false, 0))
	doc.AppendDailyEntry(entry(almanac.NewDate(1925, time.February, 1), "the singing well", false, true, 1))

	jan := doc.FindChapter("January")
	feb := doc.FindChapter("February")
	if jan == nil || len(jan.DailyEntries) != 1 {
		t.Fatalf("Expected one January entry")
	}
	if feb == nil || len(feb.DailyEntries) != 1 {
		t.Fatalf("Expected one February entry")
	}

	found := doc.EntryByDate(almanac.NewDate(1925, time.January, 2))
	if found == nil || found.Snapshot.TargetName != "a pale stranger" {
		t.Errorf("EntryByDate lookup failed, got %+v", found)
	}

	last := doc.LastDailyEntry()
	if last == nil || last.Snapshot.TargetName != "the singing well" {
		t.Errorf("Expected the February entry to be the latest, got %+v", last)
	}
}

func TestMonthStatisticsCountsSundaysOnce(t *testing.T) {
	doc := NewSaveDocument("John Miller", 1925)

	// Two weekday entries and one Sunday entry in January.
	doc.AppendDailyEntry(entry(almanac.NewDate(1925, time.January, 2), "a black cat", true, false, 0))
	doc.AppendDailyEntry(entry(almanac.NewDate(1925, time.January, 3), "harbor thugs", false, true, 2))
	doc.AppendDailyEntry(entry(almanac.NewDate(1925, time.January, 4), "the harbor thing", true, false, 0))

	// The Sunday outcome lives in the weekly record written at closure.
	doc.AppendWeeklyRecord(WeeklyRecord{
		WeekNumber: 1,
		WeekStart:  almanac.NewDate(1924, time.December, 29),
		WeekEnd:    almanac.NewDate(1925, time.January, 4),
		Sunday: SundayEncounter{
			Date:       almanac.NewDate(1925, time.January, 4),
			TargetName: "the harbor thing",
			IsSuccess:  true,
		},
	})

	stats := doc.MonthStatistics(1925, time.January)
	if stats.TotalEntries != 3 {
		t.Errorf("Expected 3 entries, got %d", stats.TotalEntries)
	}
	if stats.SundayTotal != 1 || stats.SundaySuccessCount != 1 {
		t.Errorf("Expected exactly one Sunday counted once, got total=%d success=%d",
			stats.SundayTotal, stats.SundaySuccessCount)
	}
	if len(stats.BossesDefeated) != 1 || stats.BossesDefeated[0] != "the harbor thing" {
		t.Errorf("Expected the harbor thing among defeated bosses, got %v", stats.BossesDefeated)
	}
	if stats.TotalMadness != 2 || stats.MadnessTriggeredCount != 1 {
		t.Errorf("Expected madness total 2 over 1 trigger, got %d/%d",
			stats.TotalMadness, stats.MadnessTriggeredCount)
	}
}

func TestFailedTargetNames(t *testing.T) {
	doc := NewSaveDocument("John Miller", 1925)
	doc.AppendWeeklyRecord(WeeklyRecord{
		WeekNumber: 1,
		KeyEncounters: []KeyEncounter{
			{TargetName: "a black cat", Outcome: OutcomeFailure},
			{TargetName: "harbor thugs", Outcome: OutcomeSuccess},
			{TargetName: "", Outcome: OutcomeFailure},
		},
	})

	failed := doc.FailedTargetNames()
	if len(failed) != 1 || failed[0] != "a black cat" {
		t.Errorf("Expected only the named failed encounter, got %v", failed)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	doc := NewSaveDocument("John Miller", 1925)
	doc.AppendDailyEntry(entry(almanac.NewDate(1925, time.January, 2), "a pale stranger", true, false, 0))

	clone, err := doc.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	clone.State.MadnessLevel = 7
	clone.Chapter("January").DailyEntries[0].Snapshot.TargetName = "something else"

	if doc.State.MadnessLevel != 0 {
		t.Errorf("Clone mutation leaked into the original state")
	}
	if doc.Chapter("January").DailyEntries[0].Snapshot.TargetName != "a pale stranger" {
		t.Errorf("Clone mutation leaked into the original history")
	}
}
