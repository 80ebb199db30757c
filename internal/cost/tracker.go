// Package cost records LLM API usage and computes spend in USD.
//
// Usage is aggregated per local calendar day and persisted to a single
// JSON file after every recording, so totals survive restarts. Pricing
// is resolved per model with a fallback to the cheapest known model
// when a name is unrecognized.
package cost

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// modelPricing holds USD prices per one million tokens.
type modelPricing struct {
	input  float64
	output float64
}

// pricing is the per-model price table. Entries reflect published
// OpenAI list prices; unknown models fall back to gpt-4o-mini.
var pricing = map[string]modelPricing{
	"gpt-4o-mini":   {input: 0.15, output: 0.60},
	"gpt-4o":        {input: 2.50, output: 10.00},
	"gpt-3.5-turbo": {input: 0.50, output: 1.50},
}

const fallbackModel = "gpt-4o-mini"

// dateFormat is the aggregation key layout, local time.
const dateFormat = "2006-01-02"

// Tracker accumulates daily cost and request counts and persists them
// to disk. Safe for concurrent use.
type Tracker struct {
	path   string
	logger *slog.Logger

	mu         sync.Mutex
	dailyCosts map[string]float64
	dailyUsage map[string]int

	now func() time.Time
}

// UsageStats summarizes recent usage over a trailing window.
type UsageStats struct {
	// TotalCost is the spend in USD inside the window
	TotalCost float64

	// TotalRequests is the number of recorded requests inside the window
	TotalRequests int

	// AverageDailyCost is the mean spend over days that have records
	AverageDailyCost float64

	// AverageCostPerRequest is TotalCost divided by TotalRequests
	AverageCostPerRequest float64

	// DaysAnalyzed is the requested window length
	DaysAnalyzed int
}

// Budget reports spend against configured limits.
type Budget struct {
	DailyExceeded   bool
	MonthlyExceeded bool
	DailyCost       float64
	MonthlyCost     float64
	DailyBudget     float64
	MonthlyBudget   float64
}

// persisted is the on-disk file layout.
type persisted struct {
	DailyCosts  map[string]float64 `json:"daily_costs"`
	DailyUsage  map[string]int     `json:"daily_usage"`
	LastUpdated time.Time          `json:"last_updated"`
}

// NewTracker creates a tracker backed by the JSON file at path, loading
// any existing data. A missing or unreadable file starts fresh with a
// warning; it is recreated on the next recording.
func NewTracker(path string, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	t := &Tracker{
		path:       path,
		logger:     logger,
		dailyCosts: make(map[string]float64),
		dailyUsage: make(map[string]int),
		now:        time.Now,
	}
	t.load()

	return t, nil
}

// load reads previously persisted data. Failures are logged and leave
// the tracker empty.
func (t *Tracker) load() {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.logger.Warn("failed to load usage data", "path", t.path, "error", err)
		}
		return
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		t.logger.Warn("failed to parse usage data", "path", t.path, "error", err)
		return
	}

	if p.DailyCosts != nil {
		t.dailyCosts = p.DailyCosts
	}
	if p.DailyUsage != nil {
		t.dailyUsage = p.DailyUsage
	}
}

// persist writes the full dataset via a temp file and rename so a crash
// mid-write cannot truncate history. Caller must hold the mutex.
func (t *Tracker) persist() {
	data, err := json.MarshalIndent(persisted{
		DailyCosts:  t.dailyCosts,
		DailyUsage:  t.dailyUsage,
		LastUpdated: t.now(),
	}, "", "  ")
	if err != nil {
		t.logger.Error("failed to encode usage data", "error", err)
		return
	}

	dir := filepath.Dir(t.path)
	tmp, err := os.CreateTemp(dir, ".usage-*.json")
	if err != nil {
		t.logger.Error("failed to create temp usage file", "dir", dir, "error", err)
		return
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		t.logger.Error("failed to write usage data", "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		t.logger.Error("failed to close temp usage file", "error", err)
		return
	}

	if err := os.Rename(tmp.Name(), t.path); err != nil {
		os.Remove(tmp.Name())
		t.logger.Error("failed to save usage data", "path", t.path, "error", err)
	}
}

// Record adds one request's token usage under today's date and returns
// its cost in USD. Unrecognized models are priced as gpt-4o-mini.
func (t *Tracker) Record(model string, inputTokens, outputTokens int) float64 {
	p, ok := pricing[model]
	if !ok {
		t.logger.Warn("unknown model pricing, using fallback", "model", model, "fallback", fallbackModel)
		p = pricing[fallbackModel]
	}

	cost := float64(inputTokens)*p.input/1_000_000 + float64(outputTokens)*p.output/1_000_000

	t.mu.Lock()
	today := t.now().Format(dateFormat)
	t.dailyCosts[today] += cost
	t.dailyUsage[today]++
	t.persist()
	t.mu.Unlock()

	t.logger.Info("recorded api usage",
		"model", model,
		"input_tokens", inputTokens,
		"output_tokens", outputTokens,
		"cost_usd", fmt.Sprintf("%.4f", cost),
	)

	return cost
}

// DailyCost returns the spend for a date in YYYY-MM-DD form.
// An empty date means today.
func (t *Tracker) DailyCost(date string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if date == "" {
		date = t.now().Format(dateFormat)
	}
	return t.dailyCosts[date]
}

// MonthlyCost returns the spend for the current calendar month.
func (t *Tracker) MonthlyCost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	nowT := t.now()
	monthStart := time.Date(nowT.Year(), nowT.Month(), 1, 0, 0, 0, 0, nowT.Location()).Format(dateFormat)

	total := 0.0
	for date, cost := range t.dailyCosts {
		if date >= monthStart {
			total += cost
		}
	}
	return total
}

// Stats summarizes usage over the trailing window of the given number
// of days, today included.
func (t *Tracker) Stats(days int) UsageStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().AddDate(0, 0, -days).Format(dateFormat)

	stats := UsageStats{DaysAnalyzed: days}
	daysWithData := 0

	for date, cost := range t.dailyCosts {
		if date >= cutoff {
			stats.TotalCost += cost
			stats.TotalRequests += t.dailyUsage[date]
			daysWithData++
		}
	}

	if daysWithData > 0 {
		stats.AverageDailyCost = stats.TotalCost / float64(daysWithData)
	}
	if stats.TotalRequests > 0 {
		stats.AverageCostPerRequest = stats.TotalCost / float64(stats.TotalRequests)
	}

	return stats
}

// DayUsage is one day's rollup.
type DayUsage struct {
	Date     string  `json:"date"`
	CostUSD  float64 `json:"cost_usd"`
	Requests int     `json:"requests"`
}

// Rollups returns the per-day rollups inside the trailing window,
// oldest first. Days without records are omitted.
func (t *Tracker) Rollups(days int) []DayUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().AddDate(0, 0, -days).Format(dateFormat)

	out := make([]DayUsage, 0, len(t.dailyCosts))
	for date, cost := range t.dailyCosts {
		if date >= cutoff {
			out = append(out, DayUsage{Date: date, CostUSD: cost, Requests: t.dailyUsage[date]})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// BudgetStatus compares today's and this month's spend against limits.
func (t *Tracker) BudgetStatus(dailyBudget, monthlyBudget float64) Budget {
	dailyCost := t.DailyCost("")
	monthlyCost := t.MonthlyCost()

	return Budget{
		DailyExceeded:   dailyCost > dailyBudget,
		MonthlyExceeded: monthlyCost > monthlyBudget,
		DailyCost:       dailyCost,
		MonthlyCost:     monthlyCost,
		DailyBudget:     dailyBudget,
		MonthlyBudget:   monthlyBudget,
	}
}
