// Package main runs a full campaign year offline against the real
// engine, with random dice and no LLM provider. It exists to exercise
// the progression rules end to end and to eyeball score distributions.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/Formille/CthulhuCalender/internal/chronicle"
	"github.com/Formille/CthulhuCalender/internal/domain/almanac"
	"github.com/Formille/CthulhuCalender/internal/domain/campaign"
	"github.com/Formille/CthulhuCalender/internal/engine"
	"github.com/Formille/CthulhuCalender/internal/events"
	"github.com/Formille/CthulhuCalender/internal/memory"
	"github.com/Formille/CthulhuCalender/internal/narrator"
	"github.com/Formille/CthulhuCalender/internal/platform/logger"
)

var encounterNames = []string{
	"a pale stranger",
	"an old woman with a lantern",
	"a fisherman with clouded eyes",
	"a locked cellar door",
	"a hooded figure on the pier",
	"a dog that would not bark",
	"a librarian who spoke too softly",
	"a shape at the edge of the marsh",
}

var bossNames = []string{
	"the thing beneath the chapel",
	"the chanting circle",
	"the keeper of the reef",
	"the twin shadows",
}

var actions = []campaign.ActionType{
	campaign.ActionCombat,
	campaign.ActionInvestigation,
	campaign.ActionSearch,
}

// rollDice simulates three black number dice and two green symbol dice.
// A black die showing 6 also carries the octopus mark.
func rollDice(rng *rand.Rand) campaign.DiceRoll {
	var sum, special int
	for i := 0; i < 3; i++ {
		face := rng.Intn(6) + 1
		sum += face
		if face == 6 {
			special++
		}
	}
	return campaign.DiceRoll{
		NumericSum:         sum,
		SymbolSet:          []campaign.ActionType{actions[rng.Intn(3)], actions[rng.Intn(3)]},
		SpecialSymbolCount: special,
	}
}

func main() {
	year := flag.Int("year", 1925, "campaign year to simulate")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	verbose := flag.Bool("v", false, "print every diary entry")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	appLogger := logger.NewLogger()
	eventLog := events.NewLog(nil)
	eng := engine.New(eventLog, appLogger)
	narr := narrator.New(nil, eventLog, appLogger, *year)

	ctx := context.Background()
	doc := chronicle.NewSaveDocument("John Miller", *year)
	doc.History.Prologue.Content = narr.Prologue(ctx)
	doc.History.Prologue.IsFinalized = true

	fmt.Printf("Simulating campaign year %d (seed %d)\n\n", *year, *seed)

	total := 365
	if isLeap(*year) {
		total = 366
	}

	for day := 0; day < total; day++ {
		date := doc.State.CurrentDate
		currentMonth := date.Month()

		name := encounterNames[rng.Intn(len(encounterNames))]
		difficulty := campaign.MinDifficulty + rng.Intn(8)
		if almanac.IsSunday(date) {
			name = bossNames[rng.Intn(len(bossNames))]
			difficulty = campaign.MinDifficulty + 7 + rng.Intn(campaign.MaxDifficulty-campaign.MinDifficulty-6)
		}

		target, err := campaign.NewEncounterTarget(date, name, actions[rng.Intn(3)], difficulty)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad target on %s: %v\n", date, err)
			os.Exit(1)
		}
		roll := rollDice(rng)

		outcome, err := eng.ResolveEncounter(doc, target, roll, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "resolution failed on %s: %v\n", date, err)
			os.Exit(1)
		}

		story := narr.DailyStory(ctx, narrator.StoryContext{
			State:   doc.State,
			Target:  target,
			Roll:    roll,
			Outcome: outcome,
			Memory:  memory.Build(doc, date),
		})
		content := chronicle.GeneratedContent{
			MainText:    story,
			SummaryLine: narr.SummaryLine(ctx, story),
		}

		res, err := eng.ApplyResolution(doc, target, roll, outcome, content)
		if err != nil {
			fmt.Fprintf(os.Stderr, "apply failed on %s: %v\n", date, err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Printf("%s  %s\n", date, content.SummaryLine)
		}
		if res.ClosedWeek != nil && *verbose {
			boss := "lost"
			if res.ClosedWeek.Sunday.IsSuccess {
				boss = "won"
			}
			fmt.Printf("  week %d closed, boss %s\n", res.ClosedWeek.WeekNumber, boss)
		}

		// Month boundary: the pointer has advanced past the last day.
		if doc.State.CurrentDate.Month() != currentMonth {
			chapter, report, err := eng.CloseMonth(doc, currentMonth)
			if err != nil {
				fmt.Fprintf(os.Stderr, "month close failed for %s: %v\n", currentMonth, err)
				os.Exit(1)
			}
			chapter.Summary = narr.ChapterSummary(ctx, currentMonth,
				report.Score, report.Stats.BossesDefeated, report.Madness)
			fmt.Printf("%-10s score %3d  sundays %d/%d  madness %2d  maxed %v\n",
				currentMonth, report.Score,
				report.Stats.SundaySuccessCount, report.Stats.SundayTotal,
				report.Madness, report.MadnessMaxedOut)
			eng.StartMonth(doc, nil)
		}
	}

	var yearScore int
	for _, ch := range doc.History.Chapters {
		yearScore += ch.Score
	}
	fmt.Printf("\nYear total: %d\n", yearScore)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
