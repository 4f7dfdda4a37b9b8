package rules

import (
	"testing"
	"time"

	"github.com/Formille/CthulhuCalender/internal/domain/almanac"
	"github.com/Formille/CthulhuCalender/internal/domain/campaign"
)

func sundayTarget(t *testing.T, difficulty int) campaign.EncounterTarget {
	t.Helper()
	target, err := campaign.NewEncounterTarget(
		almanac.NewDate(1925, time.January, 4), // a Sunday
		"the thing beneath the harbor",
		campaign.ActionCombat,
		difficulty,
	)
	if err != nil {
		t.Fatalf("NewEncounterTarget: %v", err)
	}
	return target
}

func weekdayTarget(t *testing.T, difficulty int) campaign.EncounterTarget {
	t.Helper()
	target, err := campaign.NewEncounterTarget(
		almanac.NewDate(1925, time.January, 6), // a Tuesday
		"a black cat with too many eyes",
		campaign.ActionSearch,
		difficulty,
	)
	if err != nil {
		t.Fatalf("NewEncounterTarget: %v", err)
	}
	return target
}

func TestEffectiveDifficultySundayDiscount(t *testing.T) {
	// The spec scenario: Sunday Jan 4 1925, base 15, three weekly successes.
	if got := EffectiveDifficulty(15, 3, true); got != 12 {
		t.Errorf("Expected effective difficulty 12, got %d", got)
	}
	// Weekday encounters never get the discount.
	if got := EffectiveDifficulty(15, 3, false); got != 15 {
		t.Errorf("Expected weekday difficulty unchanged at 15, got %d", got)
	}
	// Floored at zero, never negative.
	if got := EffectiveDifficulty(5, 9, true); got != 0 {
		t.Errorf("Expected floor at 0, got %d", got)
	}
}

func TestResolveSundayBossScenario(t *testing.T) {
	state := campaign.State{WeeklySuccessCount: 3}
	target := sundayTarget(t, 15)
	roll := campaign.DiceRoll{
		NumericSum: 12,
		SymbolSet:  []campaign.ActionType{campaign.ActionCombat, campaign.ActionSearch},
	}

	outcome := Resolve(state, target, roll, false)
	if outcome.EffectiveDifficulty != 12 {
		t.Errorf("Expected effective difficulty 12, got %d", outcome.EffectiveDifficulty)
	}
	if !outcome.IsSuccess {
		t.Errorf("Expected success with sum 12 vs difficulty 12 and matching symbol")
	}
}

func TestResolveRequiresBothConditions(t *testing.T) {
	state := campaign.State{}
	target := weekdayTarget(t, 10)

	// Number passes, symbol does not.
	noSymbol := campaign.DiceRoll{
		NumericSum: 18,
		SymbolSet:  []campaign.ActionType{campaign.ActionCombat, campaign.ActionInvestigation},
	}
	outcome := Resolve(state, target, noSymbol, false)
	if outcome.IsSuccess {
		t.Errorf("High number roll without the matching symbol must fail")
	}
	if !outcome.NumberMatch || outcome.SymbolMatch {
		t.Errorf("Expected number_match=true symbol_match=false, got %v/%v", outcome.NumberMatch, outcome.SymbolMatch)
	}

	// Symbol passes, number does not.
	lowNumber := campaign.DiceRoll{
		NumericSum: 4,
		SymbolSet:  []campaign.ActionType{campaign.ActionSearch, campaign.ActionSearch},
	}
	outcome = Resolve(state, target, lowNumber, false)
	if outcome.IsSuccess {
		t.Errorf("Matching symbol with a low number roll must fail")
	}

	// Both pass.
	winning := campaign.DiceRoll{
		NumericSum: 10,
		SymbolSet:  []campaign.ActionType{campaign.ActionSearch, campaign.ActionCombat},
	}
	outcome = Resolve(state, target, winning, false)
	if !outcome.IsSuccess {
		t.Errorf("Expected success when both conditions hold")
	}
}

func TestResolveForcedFailure(t *testing.T) {
	state := campaign.State{}
	target := weekdayTarget(t, 10)
	winning := campaign.DiceRoll{
		NumericSum:         17,
		SymbolSet:          []campaign.ActionType{campaign.ActionSearch, campaign.ActionCombat},
		SpecialSymbolCount: 2,
	}

	outcome := Resolve(state, target, winning, true)
	if outcome.IsSuccess || outcome.NumberMatch || outcome.SymbolMatch {
		t.Errorf("Forced failure must zero all success flags, got %+v", outcome)
	}
	if !outcome.MadnessTriggered || outcome.MadnessIncrease != 2 {
		t.Errorf("Forced failure must not alter the dice-driven madness trigger, got %+v", outcome)
	}
}

func TestMonthlyScoreDeterminism(t *testing.T) {
	cases := []struct {
		sundays int
		maxed   bool
		want    int
	}{
		{3, false, 15},
		{3, true, 10},
		{0, true, -5},
		{0, false, 0},
	}
	for _, c := range cases {
		if got := MonthlyScore(c.sundays, c.maxed); got != c.want {
			t.Errorf("MonthlyScore(%d, %v) = %d, want %d", c.sundays, c.maxed, got, c.want)
		}
	}
}

func TestMadnessMaxedOut(t *testing.T) {
	if MadnessMaxedOut(9) {
		t.Errorf("Level 9 is below the cap")
	}
	if !MadnessMaxedOut(10) {
		t.Errorf("Level 10 reaches the cap")
	}
	if !MadnessMaxedOut(13) {
		t.Errorf("Overshoot above the cap still counts as maxed")
	}
}
