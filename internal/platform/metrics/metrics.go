// Package metrics provides observability for the campaign server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and gameplay metrics.
type Collector struct {
	// Resolution metrics
	EncountersResolved   int64
	EncounterSuccesses   int64
	MadnessTriggers      int64
	WeeksClosed          int64
	MonthsClosed         int64
	ResolutionLatencySum int64 // nanoseconds
	ResolutionLatencyMax int64
	LastResolutionTime   time.Time

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesOut       int64
	WSErrors            int64

	// LLM metrics
	LLMRequests   int64
	LLMFallbacks  int64
	LLMTokensUsed int64
	LLMCostUSD    float64
	LLMLatencySum int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordResolution records one resolved encounter.
func (c *Collector) RecordResolution(latency time.Duration, success, madnessTriggered bool) {
	atomic.AddInt64(&c.EncountersResolved, 1)
	atomic.AddInt64(&c.ResolutionLatencySum, int64(latency))
	if success {
		atomic.AddInt64(&c.EncounterSuccesses, 1)
	}
	if madnessTriggered {
		atomic.AddInt64(&c.MadnessTriggers, 1)
	}

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.ResolutionLatencyMax) {
		atomic.StoreInt64(&c.ResolutionLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastResolutionTime = time.Now()
	c.mu.Unlock()
}

// RecordWeekClosed records a Sunday closure.
func (c *Collector) RecordWeekClosed() {
	atomic.AddInt64(&c.WeeksClosed, 1)
}

// RecordMonthClosed records a finalized chapter.
func (c *Collector) RecordMonthClosed() {
	atomic.AddInt64(&c.MonthsClosed, 1)
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records an outgoing WebSocket broadcast.
func (c *Collector) RecordWSMessage() {
	atomic.AddInt64(&c.WSMessagesOut, 1)
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// RecordLLMCall records an LLM API call.
func (c *Collector) RecordLLMCall(tokens int, cost float64, latency time.Duration) {
	atomic.AddInt64(&c.LLMRequests, 1)
	atomic.AddInt64(&c.LLMTokensUsed, int64(tokens))
	atomic.AddInt64(&c.LLMLatencySum, int64(latency))

	c.mu.Lock()
	c.LLMCostUSD += cost
	c.mu.Unlock()
}

// RecordLLMFallback records a generation that fell back to the
// deterministic text.
func (c *Collector) RecordLLMFallback() {
	atomic.AddInt64(&c.LLMFallbacks, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	resolved := atomic.LoadInt64(&c.EncountersResolved)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)
	llmRequests := atomic.LoadInt64(&c.LLMRequests)

	var resolutionAvg, eventAvg, llmAvg float64
	if resolved > 0 {
		resolutionAvg = float64(atomic.LoadInt64(&c.ResolutionLatencySum)) / float64(resolved) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}
	if llmRequests > 0 {
		llmAvg = float64(atomic.LoadInt64(&c.LLMLatencySum)) / float64(llmRequests) / 1e9 // seconds
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"resolutions": map[string]interface{}{
			"count":            resolved,
			"successes":        atomic.LoadInt64(&c.EncounterSuccesses),
			"madness_triggers": atomic.LoadInt64(&c.MadnessTriggers),
			"weeks_closed":     atomic.LoadInt64(&c.WeeksClosed),
			"months_closed":    atomic.LoadInt64(&c.MonthsClosed),
			"avg_latency_ms":   resolutionAvg,
			"max_latency_ms":   float64(atomic.LoadInt64(&c.ResolutionLatencyMax)) / 1e6,
			"last_resolution":  c.LastResolutionTime.Format(time.RFC3339),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},

		"llm": map[string]interface{}{
			"requests":        llmRequests,
			"fallbacks":       atomic.LoadInt64(&c.LLMFallbacks),
			"tokens_used":     atomic.LoadInt64(&c.LLMTokensUsed),
			"cost_usd":        c.LLMCostUSD,
			"avg_latency_sec": llmAvg,
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		json.NewEncoder(w).Encode(collector.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		fmt.Fprintf(w, "# HELP campaign_encounters_resolved Total resolved encounters\n")
		fmt.Fprintf(w, "# TYPE campaign_encounters_resolved counter\n")
		fmt.Fprintf(w, "campaign_encounters_resolved %d\n\n", atomic.LoadInt64(&c.EncountersResolved))

		fmt.Fprintf(w, "# HELP campaign_encounter_successes Total successful encounters\n")
		fmt.Fprintf(w, "# TYPE campaign_encounter_successes counter\n")
		fmt.Fprintf(w, "campaign_encounter_successes %d\n\n", atomic.LoadInt64(&c.EncounterSuccesses))

		fmt.Fprintf(w, "# HELP campaign_madness_triggers Total madness onsets\n")
		fmt.Fprintf(w, "# TYPE campaign_madness_triggers counter\n")
		fmt.Fprintf(w, "campaign_madness_triggers %d\n\n", atomic.LoadInt64(&c.MadnessTriggers))

		fmt.Fprintf(w, "# HELP campaign_weeks_closed Total weekly closures\n")
		fmt.Fprintf(w, "# TYPE campaign_weeks_closed counter\n")
		fmt.Fprintf(w, "campaign_weeks_closed %d\n\n", atomic.LoadInt64(&c.WeeksClosed))

		fmt.Fprintf(w, "# HELP campaign_months_closed Total finalized chapters\n")
		fmt.Fprintf(w, "# TYPE campaign_months_closed counter\n")
		fmt.Fprintf(w, "campaign_months_closed %d\n\n", atomic.LoadInt64(&c.MonthsClosed))

		fmt.Fprintf(w, "# HELP campaign_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE campaign_events_written counter\n")
		fmt.Fprintf(w, "campaign_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP campaign_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE campaign_event_write_errors counter\n")
		fmt.Fprintf(w, "campaign_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		fmt.Fprintf(w, "# HELP campaign_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE campaign_ws_connections gauge\n")
		fmt.Fprintf(w, "campaign_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP campaign_ws_messages_out Total WebSocket broadcasts\n")
		fmt.Fprintf(w, "# TYPE campaign_ws_messages_out counter\n")
		fmt.Fprintf(w, "campaign_ws_messages_out %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		fmt.Fprintf(w, "# HELP campaign_llm_requests Total LLM API requests\n")
		fmt.Fprintf(w, "# TYPE campaign_llm_requests counter\n")
		fmt.Fprintf(w, "campaign_llm_requests %d\n\n", atomic.LoadInt64(&c.LLMRequests))

		fmt.Fprintf(w, "# HELP campaign_llm_fallbacks Total deterministic fallbacks\n")
		fmt.Fprintf(w, "# TYPE campaign_llm_fallbacks counter\n")
		fmt.Fprintf(w, "campaign_llm_fallbacks %d\n\n", atomic.LoadInt64(&c.LLMFallbacks))

		fmt.Fprintf(w, "# HELP campaign_llm_tokens_used Total tokens consumed\n")
		fmt.Fprintf(w, "# TYPE campaign_llm_tokens_used counter\n")
		fmt.Fprintf(w, "campaign_llm_tokens_used %d\n\n", atomic.LoadInt64(&c.LLMTokensUsed))

		c.mu.RLock()
		fmt.Fprintf(w, "# HELP campaign_llm_cost_usd Total LLM cost in USD\n")
		fmt.Fprintf(w, "# TYPE campaign_llm_cost_usd counter\n")
		fmt.Fprintf(w, "campaign_llm_cost_usd %.4f\n", c.LLMCostUSD)
		c.mu.RUnlock()
	}
}
