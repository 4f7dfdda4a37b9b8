// Package chronicle holds the append-only historical records of a
// campaign and the save document that bundles them for persistence.
// Records are immutable once written, except a chapter's trailing
// summary fields which are finalized at month end.
package chronicle

import (
	"github.com/Formille/CthulhuCalender/internal/domain/almanac"
	"github.com/Formille/CthulhuCalender/internal/domain/campaign"
)

// DiceResult is the persisted snapshot of one roll.
type DiceResult struct {
	Sum     int                   `json:"sum"`
	Symbols []campaign.ActionType `json:"symbols"`
}

// EncounterSnapshot freezes the resolved game logic of one day for
// historical display. It is written once and never recomputed.
type EncounterSnapshot struct {
	TargetDate          almanac.Date        `json:"target_date"`
	TargetName          string              `json:"target_name"`
	Action              campaign.ActionType `json:"action_type"`
	Dice                DiceResult          `json:"dice_result"`
	IsSuccess           bool                `json:"is_success"`
	EffectiveDifficulty int                 `json:"effective_difficulty"`
	MadnessTriggered    bool                `json:"madness_triggered"`
	SpecialSymbolCount  int                 `json:"special_symbol_count"`
}

// GeneratedContent is the narrator's output for one diary entry.
type GeneratedContent struct {
	MainText    string `json:"main_text"`
	SummaryLine string `json:"summary_line"`
}

// DailyEntry is one diarized day inside a monthly chapter.
type DailyEntry struct {
	DiaryDate   almanac.Date      `json:"diary_write_date"`
	DayOfWeek   string            `json:"day_of_week"`
	IsFinalized bool              `json:"is_finalized"`
	Snapshot    EncounterSnapshot `json:"game_logic_snapshot"`
	Content     GeneratedContent  `json:"ai_generated_content"`
}

// SundayEncounter is the single source of truth for a week's boss
// outcome, written exactly once at week closure.
type SundayEncounter struct {
	Date        almanac.Date `json:"date"`
	TargetName  string       `json:"target_name"`
	IsSuccess   bool         `json:"is_success"`
	SummaryLine string       `json:"summary_line"`
	MainText    string       `json:"main_text"`
}

// KeyEncounter is a reduced daily record kept inside a weekly record.
type KeyEncounter struct {
	Date        almanac.Date `json:"date"`
	TargetName  string       `json:"target_name"`
	Outcome     string       `json:"outcome"` // "success" or "failure"
	SummaryLine string       `json:"summary_line"`
}

// WeeklyRecord archives one closed Monday..Sunday week.
type WeeklyRecord struct {
	WeekNumber    int             `json:"week_number"`
	WeekStart     almanac.Date    `json:"week_start_date"`
	WeekEnd       almanac.Date    `json:"week_end_date"`
	Sunday        SundayEncounter `json:"sunday_encounter"`
	KeyEncounters []KeyEncounter  `json:"key_encounters"`
	Summary       string          `json:"weekly_summary"`
}

// ActiveRule is a rule unlocked from the back of a calendar page,
// effective until year end.
type ActiveRule struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	EffectText    string `json:"effect_text"`
	UnlockedMonth string `json:"unlocked_month"`
}

// LegacyInventory carries the elements that survive month transitions.
type LegacyInventory struct {
	ActiveRules        []ActiveRule   `json:"active_rules"`
	CollectedArtifacts []string       `json:"collected_artifacts"`
	WeeklyRecords      []WeeklyRecord `json:"weekly_records"`
}

// MonthlyChapter is the aggregate record of one calendar month. Once
// IsCompleted is set the chapter must never be reopened.
type MonthlyChapter struct {
	Month        string       `json:"month"` // "January"
	IsCompleted  bool         `json:"is_completed"`
	Score        int          `json:"monthly_score"`
	Madness      int          `json:"monthly_madness"`
	Summary      string       `json:"chapter_summary"`
	Conclusion   string       `json:"monthly_conclusion"`
	DailyEntries []DailyEntry `json:"daily_entries"`
}

// Prologue is the campaign opening text, written once at game start.
type Prologue struct {
	Date        almanac.Date `json:"date"`
	Content     string       `json:"content"`
	IsFinalized bool         `json:"is_finalized"`
}

// History is the archive of past episodes.
type History struct {
	Prologue Prologue         `json:"prologue"`
	Chapters []MonthlyChapter `json:"monthly_chapters"`
}
