// Package http provides the outbound HTTP plumbing shared by the Data API
// client and the notifiers: per-host pacing, a circuit breaker and a retrying
// client.
package http

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DataAPIBase is the host the Data API client paces against, whatever
// endpoint it is actually pointed at.
const DataAPIBase = "https://www.googleapis.com/youtube/v3/"

// Backoff tuning for hosts that answer 429.
const (
	InitialBackoff        = 1 * time.Second
	MaxBackoff            = 60 * time.Second
	BackoffMultiplier     = 2.0
	BackoffCooldownPeriod = 5 * time.Minute
	// MinRPSMultiplier is the floor for dynamic rate reduction.
	MinRPSMultiplier = 0.25
)

// RateLimiter paces requests per host with a token bucket of burst 1, so two
// requests to the same host never start closer than 1/rps apart.
type RateLimiter struct {
	limiters     map[string]*rate.Limiter
	backoffState map[string]*BackoffState
	mu           sync.RWMutex
	config       RateLimiterConfig
}

// BackoffState tracks rate limit backoff for a host.
type BackoffState struct {
	CurrentBackoff    time.Duration
	LastError         time.Time
	ConsecutiveErrors int
	OriginalRPS       float64
	// ReducedRPS is the current reduced rate, 0 while unreduced.
	ReducedRPS float64
}

// RateLimiterConfig defines rates per host class.
type RateLimiterConfig struct {
	// DataAPIRPS applies to googleapis.com.
	DataAPIRPS float64
	// WebhookRPS applies to known chat webhook and bot hosts.
	WebhookRPS float64
	// DefaultRPS applies to every other host. 0 means unlimited.
	DefaultRPS float64
	// CustomRates overrides the rate for a specific host.
	CustomRates map[string]float64
	// EnableDynamicBackoff lowers a host's rate after 429 responses.
	EnableDynamicBackoff bool
}

// DefaultRateLimiterConfig returns one Data API call per second.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		DataAPIRPS:           1.0,
		WebhookRPS:           1.0,
		DefaultRPS:           2.0,
		CustomRates:          make(map[string]float64),
		EnableDynamicBackoff: true,
	}
}

// PacingRPS converts a minimum interval between request starts into a rate.
// A non-positive interval yields 0 (unlimited).
func PacingRPS(interval time.Duration) float64 {
	if interval <= 0 {
		return 0
	}
	return float64(time.Second) / float64(interval)
}

// NewRateLimiter creates a rate limiter. Zero Data API and webhook rates fall
// back to the defaults.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	def := DefaultRateLimiterConfig()
	if cfg.DataAPIRPS == 0 {
		cfg.DataAPIRPS = def.DataAPIRPS
	}
	if cfg.WebhookRPS == 0 {
		cfg.WebhookRPS = def.WebhookRPS
	}
	if cfg.CustomRates == nil {
		cfg.CustomRates = make(map[string]float64)
	}

	return &RateLimiter{
		limiters:     make(map[string]*rate.Limiter),
		backoffState: make(map[string]*BackoffState),
		config:       cfg,
	}
}

// Wait blocks until a request to urlStr may start or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, urlStr string) error {
	if rl == nil {
		return nil
	}

	limiter := rl.getLimiter(hostOf(urlStr))
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

func (rl *RateLimiter) getLimiter(host string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limiters[host]; ok {
		return limiter
	}

	rps := rl.rpsFor(host)
	if rps == 0 {
		return nil
	}

	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	rl.limiters[host] = limiter
	return limiter
}

// rpsFor must be called with the mutex held.
func (rl *RateLimiter) rpsFor(host string) float64 {
	if rps, ok := rl.config.CustomRates[host]; ok {
		return rps
	}

	switch {
	case host == "googleapis.com" || strings.HasSuffix(host, ".googleapis.com"):
		return rl.config.DataAPIRPS
	case host == "hooks.slack.com", host == "api.telegram.org",
		host == "discord.com", strings.HasSuffix(host, ".webhook.office.com"):
		return rl.config.WebhookRPS
	default:
		return rl.config.DefaultRPS
	}
}

// hostOf returns the lower-cased host of urlStr without its port.
func hostOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// SetCustomRate overrides the rate for host and drops its existing limiter.
func (rl *RateLimiter) SetCustomRate(host string, rps float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.config.CustomRates[host] = rps
	delete(rl.limiters, host)
}

// RPS returns the rate currently configured for urlStr's host.
func (rl *RateLimiter) RPS(urlStr string) float64 {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.rpsFor(hostOf(urlStr))
}

// RecordRateLimitError records a 429 from urlStr's host and returns how long
// the caller should wait before trying again.
func (rl *RateLimiter) RecordRateLimitError(urlStr string, retryAfter time.Duration) time.Duration {
	if rl == nil || !rl.config.EnableDynamicBackoff {
		if retryAfter > 0 {
			return retryAfter
		}
		return InitialBackoff
	}

	host := hostOf(urlStr)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoffState[host]
	if !ok {
		state = &BackoffState{
			CurrentBackoff: InitialBackoff,
			OriginalRPS:    rl.rpsFor(host),
		}
		rl.backoffState[host] = state
	}

	state.LastError = time.Now()
	state.ConsecutiveErrors++

	if state.ConsecutiveErrors > 1 {
		state.CurrentBackoff = time.Duration(float64(state.CurrentBackoff) * BackoffMultiplier)
		if state.CurrentBackoff > MaxBackoff {
			state.CurrentBackoff = MaxBackoff
		}
	}
	if retryAfter > state.CurrentBackoff {
		state.CurrentBackoff = retryAfter
	}

	rl.reduceRate(host, state)
	return state.CurrentBackoff
}

// reduceRate must be called with the mutex held.
func (rl *RateLimiter) reduceRate(host string, state *BackoffState) {
	factor := MinRPSMultiplier
	switch state.ConsecutiveErrors {
	case 1:
		factor = 0.75
	case 2:
		factor = 0.5
	}

	state.ReducedRPS = state.OriginalRPS * factor
	if limiter, ok := rl.limiters[host]; ok && state.ReducedRPS > 0 {
		limiter.SetLimit(rate.Limit(state.ReducedRPS))
	}
}

// RecordSuccess lets a backed-off host recover its configured rate.
func (rl *RateLimiter) RecordSuccess(urlStr string) {
	if rl == nil || !rl.config.EnableDynamicBackoff {
		return
	}

	host := hostOf(urlStr)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoffState[host]
	if !ok {
		return
	}

	if time.Since(state.LastError) > BackoffCooldownPeriod {
		if limiter, ok := rl.limiters[host]; ok && state.OriginalRPS > 0 {
			limiter.SetLimit(rate.Limit(state.OriginalRPS))
		}
		delete(rl.backoffState, host)
		return
	}

	if state.ConsecutiveErrors > 0 {
		state.ConsecutiveErrors--
		if state.ConsecutiveErrors == 0 && state.ReducedRPS > 0 {
			half := state.OriginalRPS * 0.5
			if half > state.ReducedRPS {
				state.ReducedRPS = half
				if limiter, ok := rl.limiters[host]; ok {
					limiter.SetLimit(rate.Limit(half))
				}
			}
		}
	}
}

// GetBackoffState returns a copy of urlStr's host backoff state, or nil.
func (rl *RateLimiter) GetBackoffState(urlStr string) *BackoffState {
	if rl == nil {
		return nil
	}

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	state, ok := rl.backoffState[hostOf(urlStr)]
	if !ok {
		return nil
	}
	cp := *state
	return &cp
}

// WaitForBackoff waits out whatever is left of the host's current backoff.
func (rl *RateLimiter) WaitForBackoff(ctx context.Context, urlStr string) error {
	state := rl.GetBackoffState(urlStr)
	if state == nil {
		return nil
	}

	remaining := state.CurrentBackoff - time.Since(state.LastError)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
