// Package memory assembles the narrative context handed to the
// narrator: what happened recently, what the diary last said, and what
// the campaign has accumulated. Aggregation never fails; missing or
// partial history degrades to neutral placeholders so a corrupted
// chapter can never block a day's story.
package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/Formille/CthulhuCalender/internal/chronicle"
	"github.com/Formille/CthulhuCalender/internal/domain/almanac"
)

// Placeholders used when a memory section has no source material.
const (
	PlaceholderLastEntry  = "The previous pages of the diary are blank."
	PlaceholderWeek       = "No encounters recorded this week yet."
	PlaceholderArtifacts  = "No artifacts collected so far."
	PlaceholderWeeklyLogs = "No weeks have been concluded this month."
	PlaceholderMonths     = "No earlier months have been concluded."
)

// EncounterSummary is one reduced line of the running week.
type EncounterSummary struct {
	Date        almanac.Date
	TargetName  string
	Outcome     string
	SummaryLine string
}

// Memory is the aggregated narrative context for one day.
type Memory struct {
	// WeeklyLog holds the current week's encounters up to and
	// including the aggregation date, oldest first.
	WeeklyLog []EncounterSummary

	// LastEntrySnippet is the closing sentence of the most recent
	// diary entry, for continuity of voice.
	LastEntrySnippet string

	// ActiveArtifacts lists the legacy inventory carried into the
	// current month.
	ActiveArtifacts []string

	// MajorEvents lists campaign-defining moments: Sunday reckonings
	// and unlocked rules.
	MajorEvents []string

	// CurrentMonthWeeklySummaries combines each closed week's summary
	// with its Sunday encounter line, current month only.
	CurrentMonthWeeklySummaries []string

	// MonthlySummaries holds one line per concluded chapter.
	MonthlySummaries []string
}

// Build aggregates the document's history relative to the given date.
// It never returns an error: absent sections come back empty and render
// as placeholders in the prompt.
func Build(doc *chronicle.SaveDocument, current almanac.Date) Memory {
	var m Memory
	if doc == nil {
		return m
	}

	for _, entry := range doc.WeekEntries(current) {
		m.WeeklyLog = append(m.WeeklyLog, EncounterSummary{
			Date:        entry.DiaryDate,
			TargetName:  entry.Snapshot.TargetName,
			Outcome:     chronicle.OutcomeLabel(entry.Snapshot.IsSuccess),
			SummaryLine: entry.Content.SummaryLine,
		})
	}

	m.LastEntrySnippet = lastEntrySnippet(doc)
	m.ActiveArtifacts = append(m.ActiveArtifacts, doc.Legacy.CollectedArtifacts...)

	for _, rule := range doc.Legacy.ActiveRules {
		m.MajorEvents = append(m.MajorEvents, fmt.Sprintf("Rule in effect since %s: %s", rule.UnlockedMonth, rule.Name))
	}
	for _, rec := range doc.Legacy.WeeklyRecords {
		if rec.Sunday.TargetName == "" {
			continue
		}
		verdict := "prevailed against"
		if !rec.Sunday.IsSuccess {
			verdict = "was driven back by"
		}
		m.MajorEvents = append(m.MajorEvents, fmt.Sprintf("On %s the investigator %s %s.", rec.Sunday.Date, verdict, rec.Sunday.TargetName))
	}

	for _, rec := range doc.MonthWeeklyRecords(current.Year(), current.Month()) {
		line := rec.Summary
		if rec.Sunday.SummaryLine != "" {
			line = strings.TrimSpace(line + " Sunday encounter: " + rec.Sunday.SummaryLine)
		}
		if line != "" {
			m.CurrentMonthWeeklySummaries = append(m.CurrentMonthWeeklySummaries, line)
		}
	}

	for _, ch := range doc.History.Chapters {
		if !ch.IsCompleted {
			continue
		}
		line := ch.Conclusion
		if line == "" {
			line = ch.Summary
		}
		if line == "" {
			line = fmt.Sprintf("%s passed with a score of %d.", ch.Month, ch.Score)
		}
		m.MonthlySummaries = append(m.MonthlySummaries, fmt.Sprintf("%s: %s", ch.Month, line))
	}

	return m
}

// lastEntrySnippet extracts the closing sentence of the most recent
// diary entry, falling back to the prologue and then to a placeholder.
func lastEntrySnippet(doc *chronicle.SaveDocument) string {
	if entry := doc.LastDailyEntry(); entry != nil && entry.Content.MainText != "" {
		return lastSentence(entry.Content.MainText)
	}
	if doc.History.Prologue.Content != "" {
		return lastSentence(doc.History.Prologue.Content)
	}
	return PlaceholderLastEntry
}

// lastSentence returns the final sentence of a text, or a trailing
// excerpt when no sentence boundary is found.
func lastSentence(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return PlaceholderLastEntry
	}
	trimmed := strings.TrimRight(text, ".!? \n\t")
	cut := strings.LastIndexAny(trimmed, ".!?")
	sentence := text
	if cut >= 0 {
		sentence = strings.TrimSpace(text[cut+1:])
	}
	const maxSnippet = 240
	if len(sentence) > maxSnippet {
		sentence = sentence[len(sentence)-maxSnippet:]
	}
	return sentence
}

// ContextPrompt renders the memory as the prompt block handed to the
// narrator. Every section is always present; empty ones carry their
// placeholder so the model sees a stable structure.
func (m Memory) ContextPrompt() string {
	var b strings.Builder

	b.WriteString("PREVIOUS DIARY LINE:\n")
	if m.LastEntrySnippet == "" {
		b.WriteString(PlaceholderLastEntry)
	} else {
		b.WriteString(m.LastEntrySnippet)
	}
	b.WriteString("\n\nTHIS WEEK SO FAR:\n")
	if len(m.WeeklyLog) == 0 {
		b.WriteString(PlaceholderWeek)
	} else {
		for _, enc := range m.WeeklyLog {
			fmt.Fprintf(&b, "- %s: %s (%s)", enc.Date, enc.TargetName, enc.Outcome)
			if enc.SummaryLine != "" {
				fmt.Fprintf(&b, " %s", enc.SummaryLine)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nCOLLECTED ARTIFACTS:\n")
	if len(m.ActiveArtifacts) == 0 {
		b.WriteString(PlaceholderArtifacts)
	} else {
		b.WriteString(strings.Join(m.ActiveArtifacts, ", "))
	}

	if len(m.MajorEvents) > 0 {
		b.WriteString("\n\nMAJOR EVENTS:\n")
		for _, ev := range m.MajorEvents {
			b.WriteString("- " + ev + "\n")
		}
	}

	b.WriteString("\nWEEKS CONCLUDED THIS MONTH:\n")
	if len(m.CurrentMonthWeeklySummaries) == 0 {
		b.WriteString(PlaceholderWeeklyLogs)
	} else {
		for _, s := range m.CurrentMonthWeeklySummaries {
			b.WriteString("- " + s + "\n")
		}
	}

	b.WriteString("\nPAST MONTHS:\n")
	if len(m.MonthlySummaries) == 0 {
		b.WriteString(PlaceholderMonths)
	} else {
		for _, s := range m.MonthlySummaries {
			b.WriteString("- " + s + "\n")
		}
	}

	return b.String()
}

// MonthLabel formats a month for prompt headers, "January 1925".
func MonthLabel(month time.Month, year int) string {
	return fmt.Sprintf("%s %d", month, year)
}
