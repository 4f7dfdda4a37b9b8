package narrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/Formille/CthulhuCalender/internal/chronicle"
	"github.com/Formille/CthulhuCalender/internal/domain/almanac"
)

// storyTone escalates the writing style with the madness tracker.
func storyTone(madness int) string {
	tone := "somber, tense, Lovecraftian"
	switch {
	case madness >= 7:
		tone += "; dreamlike and illogical, hallucinations and a collapsing consciousness bleeding into the narration (severe madness, the line between reality and vision is gone)"
	case madness >= 5:
		tone += "; dizzy, unstable sentences laced with paranoid and unreal perception (moderate madness, suspicion and dread come forward)"
	case madness >= 3:
		tone += "; anxiety and creeping paranoia in the psychological detail (mild madness, the edges of reality distorting)"
	}
	return tone
}

// madnessStateText describes the tracker for the prompt's result block.
func madnessStateText(madness int) string {
	switch {
	case madness >= 7:
		return fmt.Sprintf("severe delirium (madness %d/10), the line between reality and delusion is gone", madness)
	case madness >= 5:
		return fmt.Sprintf("moderate madness (madness %d/10), suspicion and fear dominate", madness)
	case madness >= 3:
		return fmt.Sprintf("mild madness (madness %d/10), anxiety and paranoia creep in", madness)
	default:
		return fmt.Sprintf("lucid (madness %d/10), still relatively clear-headed", madness)
	}
}

// failureDreamContext explains a failed day through the previous
// night's dreams, scaled to the madness tracker.
func failureDreamContext(madness int) string {
	switch {
	case madness >= 7:
		return `- Cause of failure: John Miller's mind has collapsed under the horrific images of last night's dream.
  * Seen in the dream: terrible visions of the subjects described in earlier entries, hallucinations of an immense presence, a voice screaming directly into his ear
  * Carried into waking: the dream images overlay reality; his hands shake, his sight blurs, and the voice of *that thing* circles his ears
  * Result: the terror of the dream made it impossible to even look at today's subject, let alone act.`
	case madness >= 5:
		return `- Cause of failure: John Miller lost his focus to the grotesque visions of last night's dream.
  * Seen in the dream: terrible visions of the subjects from earlier entries, shadows moving on their own, a distinct voice speaking to him
  * Carried into waking: the afterimage of the dream still hangs before his eyes, blurring the line to reality; his hands trembled and anxiety broke his judgment
  * Result: the dream's terror interfered with the encounter and he could not respond properly.`
	case madness >= 3:
		return `- Cause of failure: John Miller woke from an uneasy dream with his mind clouded.
  * Seen in the dream: something moving in the dark, a whisper at the edge of hearing, a sense of foreboding
  * Carried into waking: the dream's residue left him anxious and unable to concentrate, gripped by the feeling that something would go wrong
  * Result: the unease of the dream disturbed his actions and the encounter slipped away from him.`
	default:
		return `- Cause of failure: John Miller is worn down after an uneasy night's dream.
  * Seen in the dream: shadows in the dark, an ill omen
  * Carried into waking: the lingering dream dulled his concentration and anxiety hindered his actions
  * Result: fatigue and unease kept him from handling today's encounter.`
	}
}

// storyStage maps the position inside the month to a narrative arc
// stage. January ends on its own hollow twist.
func storyStage(progressPercent float64, month time.Month) string {
	switch {
	case progressPercent < 10:
		return "**The crack in the ordinary.** Small violations of the everyday appear: phenomena that defy physics, grotesque relics. Plant curiosity and a faint unease; the strangeness can still almost be explained away."
	case progressPercent < 20:
		return "**The obsession begins.** John Miller starts digging. Others deny or dismiss it, but he feels instinctively that something is wrong and sinks deeper into the investigation. Small clues begin to gather."
	case progressPercent < 30:
		return "**Omens that cannot be refused.** The attempt to explain things by everyday logic collapses. Forerunners of madness appear; he realizes he faces not an incident but a piece of a vast system. Reality begins to shake."
	case progressPercent < 40:
		return "**Isolation.** The closer he gets to the truth, the more alone he becomes. Allies are lost, trusted knowledge proves useless. The horror does not yet show itself, but its influence is certain."
	case progressPercent < 50:
		return "**Fragments of the truth (midpoint).** Forbidden knowledge or ancient records yield a clue to the horror's identity. It is not hope but the beginning of despair: the realization of how small mankind is."
	case progressPercent < 61:
		return "**Descent into the abyss.** There is no turning back. Physical and mental limits are reached and the surroundings warp. The border between reality and hallucination blurs."
	case progressPercent < 73:
		return "**Overwhelming helplessness.** Whatever countermeasures he devises mean nothing to the immense presence. An ant trying to stop a footstep. Every effort is revealed as futile."
	case progressPercent < 85:
		return "**The manifestation.** The horror itself, or its will, begins to take the world. John Miller's mind stands at the edge of collapse; reality is fully distorted."
	case progressPercent < 97:
		return "**Climax.** A last desperate act or flight. Victory is impossible; the best outcome is to delay ruin or to witness the truth and go mad. Everything converges on a final choice."
	default:
		if month == time.January {
			return "**The hollow ending.** This is the last entry of January. On the first morning of February John Miller will wake to find the whole month was a vivid dream, and then the deja vu will begin. Close the entry with everything feeling like a dream while hinting it may not have been one. It is over, and the true horror is only starting."
		}
		return "**The hollow ending.** John Miller is destroyed, or survives locked in a horror he can never put down. The world flows on indifferent; to the cosmic presences, mankind was never even a consideration. It is over, and the true horror is only starting."
	}
}

// buildDailyPrompt assembles the user prompt for one diary entry.
func buildDailyPrompt(sc StoryContext, campaignYear int) string {
	diary := sc.State.CurrentDate
	day := diary.Day()
	daysInMonth := almanac.DaysInMonth(diary)
	progressPercent := float64(day) / float64(daysInMonth) * 100

	resultDesc := "success"
	if !sc.Outcome.IsSuccess {
		resultDesc = "failure"
	}

	sundayContext := ""
	if sc.Target.IsSundayBoss {
		sundayContext = fmt.Sprintf("(A crucial Sunday encounter. Of the seven clues this week, %d were gathered.)", sc.State.WeeklySuccessCount)
	}

	dreamContext := ""
	if !sc.Outcome.IsSuccess {
		dreamContext = failureDreamContext(sc.State.MadnessLevel)
	}

	madnessLine := "none"
	if sc.Outcome.MadnessTriggered {
		madnessLine = fmt.Sprintf("triggered (%d symbols, madness +%d)", sc.Roll.SpecialSymbolCount, sc.Outcome.MadnessIncrease)
	}

	steering := ""
	if sc.SundayTotalCount > 0 {
		steering = fmt.Sprintf(`  * Sunday encounter success rate: %.1f%%. Above 70%%, John Miller faces the threat with confidence and the story advances aggressively. Below 50%%, he is mired in frustration and despair and the story darkens.
  * Overall success rate: %.1f%%. Above 70%%, the investigation flows and clues connect. Below 50%%, the investigation stalls and the threat grows.
  * State of mind: %s. The worse the madness, the further reality and vision collapse into each other.
`, sc.SundaySuccessRate*100, sc.OverallSuccessRate*100, madnessStateText(sc.State.MadnessLevel))
	}

	return fmt.Sprintf(`%s

You are John Miller, detective of Arkham. Write today's diary entry from the following.

[Situation]
- Diary date: %s (%s)
- Subject: %s
- Action attempted: %s
- Story progress: %d/%d days of the month (%.1f%%)

[Result]
- Verdict: %s %s
- Madness onset: %s
- Current madness: %d (the higher, the more psychological distress in the prose)
%s

[Requirements]
- Tone: %s
- Open the entry with the date line "%s, %s".
- Describe the concrete action taken against %s.
- On success: a clue is found or the threat is driven back.
- On failure: reflect the cause of failure above; the previous night's dream made action impossible, and its images bled into the day.
- Story stage: %s
%s  * Every entry must move the story forward: a new clue, a new connection, a sharper threat, or a changed state of mind. Never mere repetition.
- Emphasize key words with markdown: **bold** and *italic*.`,
		sc.Memory.ContextPrompt(),
		diary, diary.Weekday(),
		sc.Target.VisualDescription,
		sc.Target.RequiredSymbol,
		day, daysInMonth, progressPercent,
		resultDesc, sundayContext,
		madnessLine,
		sc.State.MadnessLevel,
		dreamContext,
		storyTone(sc.State.MadnessLevel),
		diary, diary.Weekday(),
		sc.Target.VisualDescription,
		storyStage(progressPercent, diary.Month()),
		steering,
	)
}

// buildWeeklyPrompt assembles the prompt for a closed week.
func buildWeeklyPrompt(rec chronicle.WeeklyRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, `The following is one week of investigation records. Summarize the week's events in John Miller's diary voice.

Sunday encounter:
- Date: %s
- Subject: %s
- Result: %s
- Summary: %s

Key encounters of the week:
`, rec.Sunday.Date, rec.Sunday.TargetName, chronicle.OutcomeLabel(rec.Sunday.IsSuccess), rec.Sunday.SummaryLine)

	for i, enc := range rec.KeyEncounters {
		fmt.Fprintf(&b, "%d. %s: %s (%s) %s\n", i+1, enc.Date, enc.TargetName, enc.Outcome, enc.SummaryLine)
	}

	b.WriteString(`
Requirements:
1. First person, John Miller
2. Lovecraftian cosmic horror tone
3. About ten sentences
4. Cover both the Sunday encounter and the week's key encounters
5. Keep the continuity and tension between the events
6. Mention clues or artifacts discovered

Weekly summary:`)
	return b.String()
}

// buildConclusionPrompt assembles the long month-closing prompt.
func buildConclusionPrompt(doc *chronicle.SaveDocument, month time.Month, year int, stats chronicle.MonthStats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "The following is the complete record of %s %d. Close the month's story in John Miller's diary voice.\n\n[Diary record]\n", month, year)

	if ch := doc.FindChapter(month.String()); ch != nil {
		for i, entry := range ch.DailyEntries {
			fmt.Fprintf(&b, "%d. %s (%s): %s, %s. %s\n", i+1, entry.DiaryDate, entry.DayOfWeek,
				entry.Snapshot.TargetName, chronicle.OutcomeLabel(entry.Snapshot.IsSuccess), entry.Content.SummaryLine)
		}
	}

	b.WriteString("\n[Weekly summaries]\n")
	for _, rec := range doc.MonthWeeklyRecords(year, month) {
		fmt.Fprintf(&b, "Week %d (%s to %s): Sunday against %s (%s). %s\n",
			rec.WeekNumber, rec.WeekStart, rec.WeekEnd,
			rec.Sunday.TargetName, chronicle.OutcomeLabel(rec.Sunday.IsSuccess), rec.Summary)
	}

	fmt.Fprintf(&b, `
[Statistics]
- Total encounters: %d
- Successes: %d (%.1f%%)
- Sunday encounters won: %d/%d (%.1f%%)
- Madness onsets: %d
- Total madness accumulated: %d

Requirements:
1. First person, John Miller
2. Lovecraftian cosmic horror tone
3. Recount the month's major events in order
4. Synthesize the clues, artifacts, and patterns discovered
5. Address the change in his mental state and the accumulated madness
6. What the month's experience has done to John Miller
7. Unease, foreboding, or resolve toward the coming month
8. A true ending that closes the month's story
9. About fifteen to twenty sentences

Monthly conclusion:`,
		stats.TotalEntries, stats.SuccessCount, stats.SuccessRate*100,
		stats.SundaySuccessCount, stats.SundayTotal, stats.SundaySuccessRate*100,
		stats.MadnessTriggeredCount, stats.TotalMadness)

	return b.String()
}

// buildProloguePrompt assembles the campaign opening prompt.
func buildProloguePrompt(year int) string {
	var backdrop string
	switch year {
	case 1925:
		backdrop = `[Background, 1925: The Call of Cthulhu]
- The pivotal year of the mythos
- The Cthulhu encounter of Gustaf Johansen's journal takes place on March 23rd, 1925
- The year of The Horror at Red Hook and In the Vault
- Strange rumors at the harbor, sailors back from remote South Pacific islands losing their minds
- The schemes of the Cthulhu cults`
	case 1931:
		backdrop = `[Background, 1931: The Shadow over Innsmouth]
- The era of the late masterpieces
- The year of The Shadow over Innsmouth and At the Mountains of Madness
- The Miskatonic expedition departs for the Antarctic and meets catastrophe
- Strange rumors from the coastal town of Innsmouth
- The dread of Deep Ones and their hybrids with men`
	}

	return fmt.Sprintf(`You are John Miller, sitting in your Arkham detective office on the night of December 31st, %d.

%s

Write the campaign prologue as John Miller's diary entry.

Requirements:
1. Date: December 31st, %d. Place: the detective office, Arkham, Massachusetts.
2. Form: first-person diary.
3. Mood: the new year's festivities in the street against the dark of the office; the strange rumors of recent months; unease and resolve toward %d.
4. Content: the shared fear of recent clients, the strange incidents piling up, the resolve for tomorrow's first investigation, a check of the flashlight and the revolver, and the hope that this journal does not become a last testament.
5. Length: three to four paragraphs.
6. Tone: Lovecraftian cosmic horror with hardboiled noir.

Write the prologue:`, year-1, backdrop, year-1, year)
}
