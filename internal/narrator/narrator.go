// Package narrator turns resolved game state into John Miller's diary.
// Every generation degrades to a deterministic fallback: an unreachable
// or over-budget LLM never blocks the day's progression.
package narrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Formille/CthulhuCalender/internal/chronicle"
	"github.com/Formille/CthulhuCalender/internal/domain/campaign"
	"github.com/Formille/CthulhuCalender/internal/domain/rules"
	"github.com/Formille/CthulhuCalender/internal/events"
	"github.com/Formille/CthulhuCalender/internal/infra/ai"
	"github.com/Formille/CthulhuCalender/internal/memory"
	"github.com/Formille/CthulhuCalender/internal/platform/logger"
	"github.com/Formille/CthulhuCalender/internal/platform/metrics"
)

// Token budgets per generation kind. The daily story carries the game;
// everything else is summary work.
const (
	tokensDailyStory     = 1000
	tokensSummaryLine    = 100
	tokensWeeklySummary  = 500
	tokensChapterSummary = 300
	tokensConclusion     = 1200
	tokensPrologue       = 800
	tokensMonthOpening   = 600
)

// StoryContext bundles everything the daily prompt needs.
type StoryContext struct {
	State   campaign.State
	Target  campaign.EncounterTarget
	Roll    campaign.DiceRoll
	Outcome campaign.Outcome
	Memory  memory.Memory

	// Campaign-wide steering signals.
	SundaySuccessRate  float64
	OverallSuccessRate float64
	SundayTotalCount   int
}

// Narrator generates diary prose through an LLM provider.
type Narrator struct {
	provider     ai.LLMProvider
	eventLog     *events.Log
	logger       *logger.Logger
	campaignYear int
}

// New creates a narrator for the given campaign year. Provider and
// event log may be nil; generation then always falls back.
func New(provider ai.LLMProvider, eventLog *events.Log, log *logger.Logger, campaignYear int) *Narrator {
	return &Narrator{
		provider:     provider,
		eventLog:     eventLog,
		logger:       log,
		campaignYear: campaignYear,
	}
}

type ctxKey int

const campaignKey ctxKey = iota

// WithCampaign tags the context with the campaign the narration belongs
// to, so generation events land in that campaign's audit trail.
func WithCampaign(ctx context.Context, campaignID string) context.Context {
	return context.WithValue(ctx, campaignKey, campaignID)
}

func campaignFrom(ctx context.Context) string {
	id, _ := ctx.Value(campaignKey).(string)
	return id
}

// complete runs one LLM call and returns its text, or "" on any
// failure. Failures are logged, never propagated.
func (n *Narrator) complete(ctx context.Context, kind, systemPrompt, userPrompt string, maxTokens int) string {
	if n.provider == nil || !n.provider.IsAvailable() {
		metrics.Get().RecordLLMFallback()
		return ""
	}
	resp, err := n.provider.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 1.0,
	})
	if err != nil {
		if n.logger != nil {
			n.logger.Warn("LLM generation failed (%s): %v", kind, err)
		}
		metrics.Get().RecordLLMFallback()
		return ""
	}
	text := strings.TrimSpace(resp.Content)
	if text != "" && n.eventLog != nil {
		n.eventLog.Append(events.CampaignEvent{
			Type:       events.EventTypeNarrativeGenerated,
			CampaignID: campaignFrom(ctx),
			Payload:    map[string]interface{}{"kind": kind, "tokens": resp.TotalTokens, "model": resp.Model},
		})
	}
	return text
}

// DailyStory writes the diary entry for one resolved encounter.
func (n *Narrator) DailyStory(ctx context.Context, sc StoryContext) string {
	text := n.complete(ctx, "daily_story", n.systemPrompt(), buildDailyPrompt(sc, n.campaignYear), tokensDailyStory)
	if text != "" {
		return text
	}
	return fallbackDailyStory(sc)
}

// SummaryLine condenses a diary entry into one sentence.
func (n *Narrator) SummaryLine(ctx context.Context, storyText string) string {
	prompt := fmt.Sprintf("Summarize the following diary entry in a single sentence:\n\n%s\n\nSummary:", storyText)
	text := n.complete(ctx, "summary_line", "You are an expert at condensing text.", prompt, tokensSummaryLine)
	if text != "" {
		return text
	}
	return fallbackSummaryLine(storyText)
}

// WeeklySummary narrates a closed week from its archived record.
func (n *Narrator) WeeklySummary(ctx context.Context, rec chronicle.WeeklyRecord) string {
	text := n.complete(ctx, "weekly_summary", n.systemPrompt(), buildWeeklyPrompt(rec), tokensWeeklySummary)
	if text != "" {
		return text
	}
	return fallbackWeeklySummary(rec)
}

// ChapterSummary writes the short memoir attached to a scored month.
func (n *Narrator) ChapterSummary(ctx context.Context, month time.Month, score int, bossesDefeated []string, madnessLevel int) string {
	prompt := fmt.Sprintf(`The following is the record of the %s investigation.

[Results]
- Encounters won: %s
- Final score: %d
- State of mind: %s

Write John Miller's monthly memoir in 3 to 4 lines. Recount the month's
events and close with unease or resolve about the month to come.`,
		month, strings.Join(bossesDefeated, ", "), score, rules.MadnessDescription(madnessLevel))

	text := n.complete(ctx, "chapter_summary", n.systemPrompt(), prompt, tokensChapterSummary)
	if text != "" {
		return text
	}
	return fmt.Sprintf("The %s investigation is over. The score stands at %d.", month, score)
}

// MonthlyConclusion writes the long closing chapter of a finished month.
func (n *Narrator) MonthlyConclusion(ctx context.Context, doc *chronicle.SaveDocument, month time.Month, stats chronicle.MonthStats) string {
	text := n.complete(ctx, "monthly_conclusion", n.systemPrompt(),
		buildConclusionPrompt(doc, month, n.campaignYear, stats), tokensConclusion)
	if text != "" {
		return text
	}
	return fmt.Sprintf("The %s %d investigation has ended. The clues I found and the horrors I witnessed are carved deep into my mind. The next month is waiting.", month, n.campaignYear)
}

// Prologue writes the campaign opening, dated the night before it all
// begins.
func (n *Narrator) Prologue(ctx context.Context) string {
	text := n.complete(ctx, "prologue", n.systemPrompt(), buildProloguePrompt(n.campaignYear), tokensPrologue)
	if text != "" {
		return text
	}
	return fallbackPrologue(n.campaignYear)
}

// NewMonthOpening writes the first page of a new month's chapter.
func (n *Narrator) NewMonthOpening(ctx context.Context, month time.Month, artifacts []string, lastConclusion string) string {
	prompt := fmt.Sprintf(`A new month begins: %s %d. Write the opening
diary entry of the new chapter in John Miller's first-person voice.

Carried over from past months: %s
How the previous month ended: %s

The entry should acknowledge what was survived, hint that the pattern
is not over, and state the resolve to keep investigating. 2 to 3
paragraphs, Lovecraftian cosmic horror tone.`,
		month, n.campaignYear, artifactsLine(artifacts), lastConclusion)

	text := n.complete(ctx, "month_opening", n.systemPrompt(), prompt, tokensMonthOpening)
	if text != "" {
		return text
	}
	return fmt.Sprintf("%s has come. The calendar turned while I slept, and whatever watched me through %s is watching still. I sharpen my pencil and begin again.", month, previousMonth(month))
}

// ReusedFailureNote picks a past failed target to haunt today's failure,
// deterministic over the given index.
func ReusedFailureNote(failedTargets []string, seed int) string {
	if len(failedTargets) == 0 {
		return ""
	}
	name := failedTargets[seed%len(failedTargets)]
	return fmt.Sprintf("It was %s again, or something wearing its shape.", name)
}

func (n *Narrator) systemPrompt() string {
	base := "You are John Miller, a private detective in Arkham, Massachusetts. You write your own diary in first person: Lovecraftian cosmic horror crossed with hardboiled noir. Keep the period voice of the nineteen-twenties."
	switch n.campaignYear {
	case 1925:
		return base + `

# Setting (1925)
The world of The Call of Cthulhu.
- Strange rumors from the harbor, unexplained incidents in dark alleys
- Sailors back from remote South Pacific islands losing their minds
- Cults that worship the Great Old Ones
- Records like Gustaf Johansen's journal may become vital clues
- Horror tied to the sea, the harbor, and far-off islands`
	case 1931:
		return base + `

# Setting (1931)
The world of The Shadow over Innsmouth.
- Strange rumors from the coastal town of Innsmouth
- A seaside city where people disappear
- The dread of Deep Ones and their hybrids with men
- The shore, the sea, and the things beneath it
- Rites held on the waterline after dark`
	default:
		return base
	}
}

func artifactsLine(artifacts []string) string {
	if len(artifacts) == 0 {
		return "nothing but scars"
	}
	return strings.Join(artifacts, ", ")
}

func previousMonth(m time.Month) time.Month {
	if m == time.January {
		return time.December
	}
	return m - 1
}

// fallbackDailyStory is the deterministic entry used when generation
// fails. It carries the factual record so the diary never has a hole.
func fallbackDailyStory(sc StoryContext) string {
	verdict := "succeeded"
	if !sc.Outcome.IsSuccess {
		verdict = "failed"
	}
	return fmt.Sprintf("%s. I %s against %s.", sc.State.CurrentDate, verdict, sc.Target.VisualDescription)
}

func fallbackSummaryLine(storyText string) string {
	runes := []rune(strings.TrimSpace(storyText))
	if len(runes) > 50 {
		return string(runes[:50]) + "..."
	}
	return string(runes)
}

func fallbackWeeklySummary(rec chronicle.WeeklyRecord) string {
	verdict := "succeeded"
	if !rec.Sunday.IsSuccess {
		verdict = "failed"
	}
	return fmt.Sprintf("This week held %d encounters, and the Sunday reckoning %s.", len(rec.KeyEncounters), verdict)
}

func fallbackPrologue(year int) string {
	return fmt.Sprintf("December 31st, %d. Arkham. The new year's noise drifts up from the street while I sit with a cold cup of coffee and a colder file of letters. Every client this winter has described the same dream. Tomorrow I start pulling the thread. I have checked the flashlight and the revolver, and I hope this journal does not become my last testament.", year-1)
}
