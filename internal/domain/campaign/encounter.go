package campaign

import (
	"errors"
	"fmt"

	"github.com/Formille/CthulhuCalender/internal/domain/almanac"
)

// EncounterTarget is an immutable description of what the player is
// attempting on one calendar square.
type EncounterTarget struct {
	TargetDate        almanac.Date `json:"target_date"`
	VisualDescription string       `json:"visual_description"` // the picture on the square ("an old woman with a gun")
	RequiredSymbol    ActionType   `json:"required_symbol"`
	BaseDifficulty    int          `json:"base_difficulty"`
	IsSundayBoss      bool         `json:"is_sunday_boss"`
}

// NewEncounterTarget builds a validated target. IsSundayBoss is derived
// from the date, never supplied by the caller.
func NewEncounterTarget(date almanac.Date, visual string, symbol ActionType, difficulty int) (EncounterTarget, error) {
	t := EncounterTarget{
		TargetDate:        date,
		VisualDescription: visual,
		RequiredSymbol:    symbol,
		BaseDifficulty:    difficulty,
		IsSundayBoss:      almanac.IsSunday(date),
	}
	if err := t.Validate(); err != nil {
		return EncounterTarget{}, err
	}
	return t, nil
}

// Validate rejects malformed targets before they reach the resolver.
func (t EncounterTarget) Validate() error {
	if t.TargetDate.IsZero() {
		return errors.New("encounter target has no date")
	}
	if !t.RequiredSymbol.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, string(t.RequiredSymbol))
	}
	if t.BaseDifficulty < MinDifficulty || t.BaseDifficulty > MaxDifficulty {
		return fmt.Errorf("base difficulty %d outside [%d,%d]", t.BaseDifficulty, MinDifficulty, MaxDifficulty)
	}
	if t.IsSundayBoss != almanac.IsSunday(t.TargetDate) {
		return fmt.Errorf("sunday boss flag inconsistent with date %s", t.TargetDate)
	}
	return nil
}

// DiceRoll is the immutable input of one encounter: three black number
// dice summed, two green symbol dice, and the count of octopus marks on
// the black dice.
type DiceRoll struct {
	NumericSum         int          `json:"numeric_sum"`
	SymbolSet          []ActionType `json:"symbol_set"`
	SpecialSymbolCount int          `json:"special_symbol_count"`
}

// Contains reports whether the symbol dice show the given category.
func (r DiceRoll) Contains(a ActionType) bool {
	for _, s := range r.SymbolSet {
		if s == a {
			return true
		}
	}
	return false
}

// Validate rejects malformed rolls.
func (r DiceRoll) Validate() error {
	if r.NumericSum < 0 {
		return fmt.Errorf("negative dice sum %d", r.NumericSum)
	}
	if len(r.SymbolSet) != 2 {
		return fmt.Errorf("symbol dice count %d, want 2", len(r.SymbolSet))
	}
	for _, s := range r.SymbolSet {
		if !s.IsValid() {
			return fmt.Errorf("%w: %q", ErrUnknownAction, string(s))
		}
	}
	if r.SpecialSymbolCount < 0 || r.SpecialSymbolCount > 3 {
		return fmt.Errorf("special symbol count %d outside [0,3]", r.SpecialSymbolCount)
	}
	return nil
}

// Outcome is derived from a state/target/roll triple and never stored
// independently of a diary entry snapshot.
type Outcome struct {
	EffectiveDifficulty int  `json:"effective_difficulty"`
	IsSuccess           bool `json:"is_success"`
	NumberMatch         bool `json:"number_match"`
	SymbolMatch         bool `json:"symbol_match"`
	MadnessTriggered    bool `json:"madness_triggered"`
	MadnessIncrease     int  `json:"madness_increase"`
}
