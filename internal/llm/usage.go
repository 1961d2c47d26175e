package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrBudgetExceeded indicates the budget limit has been reached
	ErrBudgetExceeded = errors.New("LLM budget exceeded")
	// ErrRateLimited indicates too many requests
	ErrRateLimited = errors.New("rate limit exceeded")
)

// UsageRecord represents a single LLM usage event
type UsageRecord struct {
	ID           uuid.UUID `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Provider     Provider  `json:"provider"`
	Model        string    `json:"model"`
	Tier         Tier      `json:"tier"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	TotalTokens  int       `json:"total_tokens"`
	Cost         float64   `json:"cost"` // Estimated cost in USD
	RequestID    string    `json:"request_id,omitempty"`
	Duration     float64   `json:"duration_ms"`
}

// UsageStats provides aggregate usage statistics
type UsageStats struct {
	TotalRequests   int64            `json:"total_requests"`
	FailedRequests  int64            `json:"failed_requests"`
	CacheHits       int64            `json:"cache_hits"`
	RequestsByTier  map[string]int64 `json:"requests_by_tier"`
	TotalTokens     int64            `json:"total_tokens"`
	InputTokens     int64            `json:"input_tokens"`
	OutputTokens    int64            `json:"output_tokens"`
	EstimatedCost   float64          `json:"estimated_cost_usd"`
	AvgTokensPerReq float64          `json:"avg_tokens_per_request"`
	Period          string           `json:"period"` // "hour", "day", "month"
}

// BudgetConfig configures budget limits
type BudgetConfig struct {
	// HourlyTokenLimit limits tokens per hour (0 = unlimited)
	HourlyTokenLimit int64
	// DailyTokenLimit limits tokens per day (0 = unlimited)
	DailyTokenLimit int64
	// MonthlyBudgetUSD limits monthly spend in USD (0 = unlimited)
	MonthlyBudgetUSD float64
	// RequestsPerMinute limits request rate (0 = unlimited)
	RequestsPerMinute int
}

// UsageTracker tracks LLM usage and enforces budgets
type UsageTracker struct {
	mu sync.RWMutex

	// Configuration
	budget BudgetConfig

	// Counters
	hourlyTokens  int64
	dailyTokens   int64
	monthlyTokens int64
	inputTokens   int64
	outputTokens  int64
	monthlyCost   float64

	// Calls that never produced a billable response
	failedRequests int64
	cacheHits      int64

	// Rate limiting
	requestsThisMinute int32
	lastMinuteReset    time.Time

	// History (rolling window)
	records     []UsageRecord
	maxRecords  int
	recordIndex int

	// Cost estimation per 1K tokens (configurable)
	costPer1K map[Provider]map[string]float64

	done      chan struct{}
	closeOnce sync.Once
}

// UsageTrackerConfig configures the usage tracker
type UsageTrackerConfig struct {
	Budget     BudgetConfig
	MaxRecords int // Max records to keep in memory
}

// NewUsageTracker creates a new usage tracker
func NewUsageTracker(cfg UsageTrackerConfig) *UsageTracker {
	if cfg.MaxRecords == 0 {
		cfg.MaxRecords = 1000
	}

	t := &UsageTracker{
		budget:          cfg.Budget,
		records:         make([]UsageRecord, cfg.MaxRecords),
		maxRecords:      cfg.MaxRecords,
		lastMinuteReset: time.Now(),
		costPer1K:       defaultCostPer1K(),
		done:            make(chan struct{}),
	}

	// Start background cleanup
	go t.periodicReset()

	return t
}

// defaultCostPer1K returns default cost estimates per 1K tokens
// These are estimates and should be updated based on actual pricing
func defaultCostPer1K() map[Provider]map[string]float64 {
	return map[Provider]map[string]float64{
		ProviderGemini: {
			"gemini-3-pro-preview":   0.002 + 0.012,
			"gemini-3-flash-preview": 0.0005 + 0.003,
			"default":                0.002,
		},
		ProviderOllama: {
			"default": 0.0, // Local models are free
		},
		ProviderAnthropic: {
			"claude-3-haiku-20240307":    0.00025 + 0.00125, // input + output avg
			"claude-3-5-sonnet-20241022": 0.003 + 0.015,
			"claude-3-opus-20240229":     0.015 + 0.075,
			"default":                    0.005,
		},
		ProviderOpenAI: {
			"gpt-4o":      0.0025 + 0.01,
			"gpt-4o-mini": 0.00015 + 0.0006,
			"default":     0.01,
		},
	}
}

// Record records a usage event
func (t *UsageTracker) Record(record UsageRecord) {
	record.ID = uuid.New()
	record.Timestamp = time.Now()
	record.TotalTokens = record.InputTokens + record.OutputTokens
	record.Cost = t.estimateCost(record)

	t.mu.Lock()
	defer t.mu.Unlock()

	// Update counters
	atomic.AddInt64(&t.hourlyTokens, int64(record.TotalTokens))
	atomic.AddInt64(&t.dailyTokens, int64(record.TotalTokens))
	atomic.AddInt64(&t.monthlyTokens, int64(record.TotalTokens))
	atomic.AddInt64(&t.inputTokens, int64(record.InputTokens))
	atomic.AddInt64(&t.outputTokens, int64(record.OutputTokens))
	t.monthlyCost += record.Cost

	// Store record
	t.records[t.recordIndex] = record
	t.recordIndex = (t.recordIndex + 1) % t.maxRecords

	log.Debug().
		Str("provider", string(record.Provider)).
		Str("model", record.Model).
		Stringer("tier", record.Tier).
		Int("input_tokens", record.InputTokens).
		Int("output_tokens", record.OutputTokens).
		Float64("cost", record.Cost).
		Msg("recorded LLM usage")
}

// CheckBudget reports whether a call estimated at estimatedTokens fits the
// configured token, spend and rate limits.
func (t *UsageTracker) CheckBudget(estimatedTokens int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	windows := []struct {
		name  string
		used  int64
		limit int64
	}{
		{"hourly", atomic.LoadInt64(&t.hourlyTokens), t.budget.HourlyTokenLimit},
		{"daily", atomic.LoadInt64(&t.dailyTokens), t.budget.DailyTokenLimit},
	}
	for _, w := range windows {
		if w.limit > 0 && w.used+int64(estimatedTokens) > w.limit {
			log.Warn().
				Str("window", w.name).
				Int64("current", w.used).
				Int64("limit", w.limit).
				Msg("token limit would be exceeded")
			return ErrBudgetExceeded
		}
	}

	if t.budget.MonthlyBudgetUSD > 0 && t.monthlyCost >= t.budget.MonthlyBudgetUSD {
		log.Warn().
			Float64("current", t.monthlyCost).
			Float64("limit", t.budget.MonthlyBudgetUSD).
			Msg("monthly budget exceeded")
		return ErrBudgetExceeded
	}

	if t.budget.RequestsPerMinute > 0 {
		t.updateRateLimit()
		if current := atomic.LoadInt32(&t.requestsThisMinute); int(current) >= t.budget.RequestsPerMinute {
			log.Warn().
				Int32("current", current).
				Int("limit", t.budget.RequestsPerMinute).
				Msg("rate limit would be exceeded")
			return ErrRateLimited
		}
	}

	return nil
}

// IncrementRequests increments the request counter
func (t *UsageTracker) IncrementRequests() {
	atomic.AddInt32(&t.requestsThisMinute, 1)
}

// RecordFailure counts a call that returned an error
func (t *UsageTracker) RecordFailure() {
	atomic.AddInt64(&t.failedRequests, 1)
}

// RecordCacheHit counts a call answered from the response cache
func (t *UsageTracker) RecordCacheHit() {
	atomic.AddInt64(&t.cacheHits, 1)
}

// GetStats returns usage statistics
func (t *UsageTracker) GetStats() UsageStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	// Count actual records
	var totalRequests int64
	byTier := make(map[string]int64)
	for i := range t.records {
		if t.records[i].ID != uuid.Nil {
			totalRequests++
			byTier[t.records[i].Tier.String()]++
		}
	}

	monthlyTokens := atomic.LoadInt64(&t.monthlyTokens)

	var avgTokens float64
	if totalRequests > 0 {
		avgTokens = float64(monthlyTokens) / float64(totalRequests)
	}

	return UsageStats{
		TotalRequests:   totalRequests,
		FailedRequests:  atomic.LoadInt64(&t.failedRequests),
		CacheHits:       atomic.LoadInt64(&t.cacheHits),
		RequestsByTier:  byTier,
		TotalTokens:     monthlyTokens,
		InputTokens:     atomic.LoadInt64(&t.inputTokens),
		OutputTokens:    atomic.LoadInt64(&t.outputTokens),
		EstimatedCost:   t.monthlyCost,
		AvgTokensPerReq: avgTokens,
		Period:          "month",
	}
}

// GetBudgetStatus returns current budget status
func (t *UsageTracker) GetBudgetStatus() BudgetStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status := BudgetStatus{
		HourlyTokensUsed:  atomic.LoadInt64(&t.hourlyTokens),
		HourlyTokensLimit: t.budget.HourlyTokenLimit,
		DailyTokensUsed:   atomic.LoadInt64(&t.dailyTokens),
		DailyTokensLimit:  t.budget.DailyTokenLimit,
		MonthlySpentUSD:   t.monthlyCost,
		MonthlyBudgetUSD:  t.budget.MonthlyBudgetUSD,
	}

	// Calculate percentages
	if t.budget.HourlyTokenLimit > 0 {
		status.HourlyPercentUsed = float64(status.HourlyTokensUsed) / float64(t.budget.HourlyTokenLimit) * 100
	}
	if t.budget.DailyTokenLimit > 0 {
		status.DailyPercentUsed = float64(status.DailyTokensUsed) / float64(t.budget.DailyTokenLimit) * 100
	}
	if t.budget.MonthlyBudgetUSD > 0 {
		status.MonthlyPercentUsed = status.MonthlySpentUSD / t.budget.MonthlyBudgetUSD * 100
	}

	return status
}

// BudgetStatus represents current budget status
type BudgetStatus struct {
	HourlyTokensUsed   int64   `json:"hourly_tokens_used"`
	HourlyTokensLimit  int64   `json:"hourly_tokens_limit"`
	HourlyPercentUsed  float64 `json:"hourly_percent_used"`
	DailyTokensUsed    int64   `json:"daily_tokens_used"`
	DailyTokensLimit   int64   `json:"daily_tokens_limit"`
	DailyPercentUsed   float64 `json:"daily_percent_used"`
	MonthlySpentUSD    float64 `json:"monthly_spent_usd"`
	MonthlyBudgetUSD   float64 `json:"monthly_budget_usd"`
	MonthlyPercentUsed float64 `json:"monthly_percent_used"`
}

// RecentRecords returns recent usage records
func (t *UsageTracker) RecentRecords(limit int) []UsageRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if limit > t.maxRecords {
		limit = t.maxRecords
	}

	result := make([]UsageRecord, 0, limit)

	// Start from most recent
	idx := (t.recordIndex - 1 + t.maxRecords) % t.maxRecords
	for i := 0; i < limit && i < t.maxRecords; i++ {
		if t.records[idx].ID != uuid.Nil {
			result = append(result, t.records[idx])
		}
		idx = (idx - 1 + t.maxRecords) % t.maxRecords
	}

	return result
}

// estimateCost estimates the cost of a usage record
func (t *UsageTracker) estimateCost(record UsageRecord) float64 {
	providerCosts, ok := t.costPer1K[record.Provider]
	if !ok {
		return 0
	}

	costPer1K, ok := providerCosts[record.Model]
	if !ok {
		costPer1K = providerCosts["default"]
	}

	return float64(record.TotalTokens) / 1000.0 * costPer1K
}

// updateRateLimit resets the rate limit counter if needed
func (t *UsageTracker) updateRateLimit() {
	now := time.Now()
	if now.Sub(t.lastMinuteReset) >= time.Minute {
		atomic.StoreInt32(&t.requestsThisMinute, 0)
		t.lastMinuteReset = now
	}
}

// periodicReset clears the hourly and daily windows, and the monthly
// totals when the calendar month changes.
func (t *UsageTracker) periodicReset() {
	hourTicker := time.NewTicker(time.Hour)
	dayTicker := time.NewTicker(24 * time.Hour)
	defer hourTicker.Stop()
	defer dayTicker.Stop()

	month := time.Now().Month()
	for {
		select {
		case <-t.done:
			return
		case now := <-hourTicker.C:
			atomic.StoreInt64(&t.hourlyTokens, 0)
			if now.Month() != month {
				month = now.Month()
				t.resetMonth()
			}
			log.Debug().Msg("reset hourly token counter")
		case <-dayTicker.C:
			atomic.StoreInt64(&t.dailyTokens, 0)
			log.Debug().Msg("reset daily token counter")
		}
	}
}

func (t *UsageTracker) resetMonth() {
	t.mu.Lock()
	defer t.mu.Unlock()

	atomic.StoreInt64(&t.monthlyTokens, 0)
	t.monthlyCost = 0
	log.Info().Msg("reset monthly usage totals")
}

// Close stops the reset goroutine.
func (t *UsageTracker) Close() {
	t.closeOnce.Do(func() { close(t.done) })
}

// TrackedRouter wraps a Completer with usage tracking
type TrackedRouter struct {
	next    Completer
	tracker *UsageTracker
}

// NewTrackedRouter creates a router with usage tracking
func NewTrackedRouter(next Completer, tracker *UsageTracker) *TrackedRouter {
	return &TrackedRouter{
		next:    next,
		tracker: tracker,
	}
}

// EstimateTokens approximates the prompt size at four characters per token.
func EstimateTokens(req *Request) int {
	totalChars := len(req.System)
	for _, msg := range req.Messages {
		totalChars += len(msg.Content)
	}
	return totalChars / 4
}

// Complete sends a completion request with usage tracking
func (r *TrackedRouter) Complete(ctx context.Context, req *Request) (*Response, error) {
	if err := r.tracker.CheckBudget(EstimateTokens(req)); err != nil {
		return nil, err
	}

	r.tracker.IncrementRequests()

	start := time.Now()
	resp, err := r.next.Complete(ctx, req)
	duration := time.Since(start)

	switch {
	case err != nil:
		r.tracker.RecordFailure()
	case resp == nil:
	case resp.Cached:
		r.tracker.RecordCacheHit()
	default:
		r.tracker.Record(UsageRecord{
			Provider:     resp.Provider,
			Model:        resp.Model,
			Tier:         req.Tier,
			InputTokens:  resp.InputTokens,
			OutputTokens: resp.OutputTokens,
			Duration:     float64(duration.Milliseconds()),
		})
	}

	return resp, err
}

// Tracker returns the usage tracker
func (r *TrackedRouter) Tracker() *UsageTracker {
	return r.tracker
}
