package narrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Formille/CthulhuCalender/internal/chronicle"
	"github.com/Formille/CthulhuCalender/internal/domain/almanac"
	"github.com/Formille/CthulhuCalender/internal/domain/campaign"
	"github.com/Formille/CthulhuCalender/internal/events"
	"github.com/Formille/CthulhuCalender/internal/infra/ai"
)

// stubProvider returns a canned response or a canned error.
type stubProvider struct {
	response string
	err      error
	lastReq  ai.CompletionRequest
}

func (s *stubProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &ai.CompletionResponse{Content: s.response, Model: "stub", TotalTokens: 42}, nil
}

func (s *stubProvider) GetUsageStats() ai.UsageStats { return ai.UsageStats{} }
func (s *stubProvider) ResetUsage()                  {}
func (s *stubProvider) Name() string                 { return "stub" }
func (s *stubProvider) IsAvailable() bool            { return true }

func sampleContext(success bool, madness int) StoryContext {
	state := campaign.NewState(1925)
	state.CurrentDate = almanac.NewDate(1925, time.January, 15)
	state.MadnessLevel = madness
	return StoryContext{
		State:   state,
		Target:  campaign.EncounterTarget{TargetDate: state.CurrentDate, VisualDescription: "a pale stranger", RequiredSymbol: campaign.ActionSearch, BaseDifficulty: 10},
		Roll:    campaign.DiceRoll{NumericSum: 12, SymbolSet: []campaign.ActionType{campaign.ActionSearch, campaign.ActionCombat}},
		Outcome: campaign.Outcome{IsSuccess: success},
	}
}

func TestDailyStoryUsesProviderText(t *testing.T) {
	stub := &stubProvider{response: "The stranger turned, and I saw his face was my own."}
	n := New(stub, nil, nil, 1925)

	got := n.DailyStory(context.Background(), sampleContext(true, 0))
	if got != stub.response {
		t.Errorf("Expected the provider's text, got %q", got)
	}
}

func TestDailyStoryFallsBackOnError(t *testing.T) {
	stub := &stubProvider{err: errors.New("connection refused")}
	n := New(stub, nil, nil, 1925)

	got := n.DailyStory(context.Background(), sampleContext(false, 0))
	want := "1925-01-15. I failed against a pale stranger."
	if got != want {
		t.Errorf("Expected fallback %q, got %q", want, got)
	}
}

func TestDailyStoryFallsBackWithoutProvider(t *testing.T) {
	n := New(nil, nil, nil, 1925)

	got := n.DailyStory(context.Background(), sampleContext(true, 0))
	if !strings.Contains(got, "succeeded against a pale stranger") {
		t.Errorf("Expected the deterministic fallback, got %q", got)
	}
}

func TestDailyPromptEscalatesToneWithMadness(t *testing.T) {
	stub := &stubProvider{response: "entry"}
	n := New(stub, nil, nil, 1925)

	n.DailyStory(context.Background(), sampleContext(false, 8))
	prompt := stub.lastReq.Messages[1].Content
	if !strings.Contains(prompt, "severe") && !strings.Contains(prompt, "collapsing consciousness") {
		t.Errorf("Expected the severe madness tone in the prompt")
	}
	if !strings.Contains(prompt, "Cause of failure") {
		t.Errorf("Expected the failure dream context for a failed day")
	}
}

func TestDailyPromptOmitsDreamContextOnSuccess(t *testing.T) {
	stub := &stubProvider{response: "entry"}
	n := New(stub, nil, nil, 1925)

	n.DailyStory(context.Background(), sampleContext(true, 8))
	if strings.Contains(stub.lastReq.Messages[1].Content, "Cause of failure") {
		t.Errorf("A successful day must not carry the failure dream context")
	}
}

func TestJanuaryEndingStage(t *testing.T) {
	stage := storyStage(100, time.January)
	if !strings.Contains(stage, "vivid dream") {
		t.Errorf("Expected January's special ending, got %q", stage)
	}
	stage = storyStage(100, time.June)
	if strings.Contains(stage, "vivid dream") {
		t.Errorf("June must not use January's ending")
	}
}

func TestSummaryLineFallbackTruncates(t *testing.T) {
	n := New(nil, nil, nil, 1925)

	long := strings.Repeat("a", 80)
	got := n.SummaryLine(context.Background(), long)
	if got != strings.Repeat("a", 50)+"..." {
		t.Errorf("Expected a 50-rune truncation, got %q", got)
	}

	short := "A quiet day."
	if got := n.SummaryLine(context.Background(), short); got != short {
		t.Errorf("Expected the short text unchanged, got %q", got)
	}
}

func TestWeeklySummaryFallback(t *testing.T) {
	n := New(nil, nil, nil, 1925)
	rec := chronicle.WeeklyRecord{
		Sunday:        chronicle.SundayEncounter{IsSuccess: false},
		KeyEncounters: []chronicle.KeyEncounter{{}, {}, {}},
	}

	got := n.WeeklySummary(context.Background(), rec)
	if !strings.Contains(got, "3 encounters") || !strings.Contains(got, "failed") {
		t.Errorf("Unexpected weekly fallback: %q", got)
	}
}

func TestPrologueFallbackMentionsNewYearsEve(t *testing.T) {
	n := New(nil, nil, nil, 1925)
	got := n.Prologue(context.Background())
	if !strings.Contains(got, "December 31st, 1924") {
		t.Errorf("Expected the prologue dated the prior New Year's Eve, got %q", got)
	}
}

func TestNarrativeEventEmitted(t *testing.T) {
	stub := &stubProvider{response: "entry"}
	log := events.NewLog(nil)
	n := New(stub, log, nil, 1925)

	n.DailyStory(context.Background(), sampleContext(true, 0))
	if got := len(log.GetByType(events.EventTypeNarrativeGenerated)); got != 1 {
		t.Errorf("Expected 1 narrative event, got %d", got)
	}
}

func TestReusedFailureNote(t *testing.T) {
	if note := ReusedFailureNote(nil, 3); note != "" {
		t.Errorf("Expected no note without past failures, got %q", note)
	}
	note := ReusedFailureNote([]string{"the harbor thing", "a pale stranger"}, 3)
	if !strings.Contains(note, "a pale stranger") {
		t.Errorf("Expected the seeded pick, got %q", note)
	}
}
