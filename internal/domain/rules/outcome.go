// Package rules contains the pure calculation logic for game mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"github.com/Formille/CthulhuCalender/internal/domain/campaign"
)

// EffectiveDifficulty applies the Sunday weekly-success discount to the
// printed difficulty. The result is floored at 0: a long success streak
// must never produce a negative threshold.
func EffectiveDifficulty(base, weeklySuccessCount int, isSundayBoss bool) int {
	if !isSundayBoss {
		return base
	}
	eff := base - weeklySuccessCount
	if eff < 0 {
		eff = 0
	}
	return eff
}

// Resolve computes the outcome of one encounter. Success requires BOTH
// the numeric threshold and a matching symbol die; either failing alone
// is a failure. A forced failure zeroes all three success flags but
// leaves the madness trigger untouched, since madness is purely
// dice-driven.
func Resolve(state campaign.State, target campaign.EncounterTarget, roll campaign.DiceRoll, forcedFailure bool) campaign.Outcome {
	eff := EffectiveDifficulty(target.BaseDifficulty, state.WeeklySuccessCount, target.IsSundayBoss)

	numberMatch := roll.NumericSum >= eff
	symbolMatch := roll.Contains(target.RequiredSymbol)

	if forcedFailure {
		numberMatch = false
		symbolMatch = false
	}

	return campaign.Outcome{
		EffectiveDifficulty: eff,
		IsSuccess:           numberMatch && symbolMatch,
		NumberMatch:         numberMatch,
		SymbolMatch:         symbolMatch,
		MadnessTriggered:    roll.SpecialSymbolCount > 0,
		MadnessIncrease:     roll.SpecialSymbolCount,
	}
}

// MadnessMaxedOut reports whether the tracker reached the cap. Levels
// above the cap still count as maxed; overshoot is allowed at write time.
func MadnessMaxedOut(level int) bool {
	return level >= campaign.MadnessCap
}
