package ratelimit

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultRequestsPerMinute bounds the per-host sliding window.
	DefaultRequestsPerMinute = 20

	windowSeconds      = 60.0
	failureBackoffBase = 1.5
	maxBackoffSeconds  = 60.0
	jitterMin          = 0.8
	jitterMax          = 1.2
	maxWaitSeconds     = 10.0

	// Every streak of this many successes relaxes the adaptive
	// multiplier one step.
	successStreakLength = 5
	multiplierFloor     = 0.8
	multiplierCeiling   = 3.0
)

type hostState struct {
	requests           []time.Time
	failures           int
	successStreak      int
	adaptiveMultiplier float64
	lastRequest        time.Time
}

// Stats summarizes limiter state across all tracked hosts.
type Stats struct {
	DomainsTracked            int     `json:"domains_tracked"`
	TotalFailures             int     `json:"total_failures"`
	AverageAdaptiveMultiplier float64 `json:"average_adaptive_multiplier"`
	DomainsWithFailures       int     `json:"domains_with_failures"`
}

// Limiter throttles outbound requests per host using a sliding window,
// exponential failure backoff, and an adaptive per-host multiplier.
// Safe for concurrent use; no lock is held while sleeping.
type Limiter struct {
	mu                sync.Mutex
	hosts             map[string]*hostState
	requestsPerMinute int
	rng               *rand.Rand

	// Overridable in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter returns a Limiter allowing requestsPerMinute requests per
// host in any 60 second window. Zero or negative means the default.
func NewLimiter(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	return &Limiter{
		hosts:             make(map[string]*hostState),
		requestsPerMinute: requestsPerMinute,
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
		now:               time.Now,
		sleep:             sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Limiter) state(host string) *hostState {
	s, ok := l.hosts[host]
	if !ok {
		s = &hostState{adaptiveMultiplier: 1.0}
		l.hosts[host] = s
	}
	return s
}

// WaitIfNeeded blocks until the host may be contacted again. baseDelay
// is the crawl delay suggested by robots.txt or configuration. The
// final sleep is jittered and capped at 10 seconds.
func (l *Limiter) WaitIfNeeded(ctx context.Context, host string, baseDelay time.Duration) error {
	l.mu.Lock()
	now := l.now()
	wait := l.waitSecondsLocked(host, baseDelay.Seconds(), now)

	var total time.Duration
	if wait > 0 {
		jitter := jitterMin + l.rng.Float64()*(jitterMax-jitterMin)
		total = time.Duration(math.Min(wait*jitter, maxWaitSeconds) * float64(time.Second))
	}
	l.mu.Unlock()

	if total > 0 {
		if total > 5*time.Second {
			log.Info().Str("host", host).Dur("wait", total).Msg("Rate limiting")
		} else {
			log.Debug().Str("host", host).Dur("wait", total).Msg("Rate limiting")
		}
		if err := l.sleep(ctx, total); err != nil {
			return err
		}
	}

	l.mu.Lock()
	s := l.state(host)
	s.requests = append(s.requests, now)
	s.lastRequest = now
	l.mu.Unlock()
	return nil
}

// waitSecondsLocked combines the four delay factors and subtracts time
// already elapsed since the last request.
func (l *Limiter) waitSecondsLocked(host string, baseDelay float64, now time.Time) float64 {
	s := l.state(host)

	// 1. Base delay from robots.txt or configuration.
	wait := baseDelay

	// 2. Sliding window: prune entries older than a minute, then wait
	// out the oldest if the window is full.
	cutoff := 0
	for cutoff < len(s.requests) && now.Sub(s.requests[cutoff]).Seconds() > windowSeconds {
		cutoff++
	}
	s.requests = s.requests[cutoff:]

	if len(s.requests) >= l.requestsPerMinute {
		untilNext := windowSeconds - now.Sub(s.requests[0]).Seconds()
		wait = math.Max(wait, untilNext)
	}

	// 3. Exponential backoff while the host is failing.
	if s.failures > 0 {
		backoff := math.Min(math.Pow(failureBackoffBase, float64(s.failures)), maxBackoffSeconds)
		wait = math.Max(wait, backoff)
	}

	// 4. Adaptive multiplier tuned by recent success and failure.
	wait *= s.adaptiveMultiplier

	// 5. Credit time already spent since the last request.
	if !s.lastRequest.IsZero() {
		elapsed := now.Sub(s.lastRequest).Seconds()
		if elapsed < wait {
			wait -= elapsed
		} else {
			wait = 0
		}
	} else {
		wait = 0
	}

	return math.Max(wait, 0)
}

// RecordSuccess zeroes the failure counter and, every five successes,
// relaxes the adaptive multiplier toward its floor.
func (l *Limiter) RecordSuccess(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.state(host)
	s.failures = 0
	s.successStreak++
	if s.successStreak >= successStreakLength {
		s.adaptiveMultiplier = math.Max(multiplierFloor, s.adaptiveMultiplier*0.9)
		s.successStreak = 0
	}
}

// RecordFailure bumps the failure counter and tightens the adaptive
// multiplier toward its ceiling.
func (l *Limiter) RecordFailure(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.state(host)
	s.failures++
	s.successStreak = 0
	s.adaptiveMultiplier = math.Min(multiplierCeiling, s.adaptiveMultiplier*1.2)
	log.Warn().Str("host", host).Int("failures", s.failures).Msg("Recorded request failure")
}

// Failures returns the current consecutive-failure count for a host.
func (l *Limiter) Failures(host string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.hosts[host]; ok {
		return s.failures
	}
	return 0
}

// GetStats returns aggregate limiter statistics for health reporting.
func (l *Limiter) GetStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := Stats{DomainsTracked: len(l.hosts)}
	var multiplierSum float64
	for _, s := range l.hosts {
		stats.TotalFailures += s.failures
		multiplierSum += s.adaptiveMultiplier
		if s.failures > 0 {
			stats.DomainsWithFailures++
		}
	}
	if len(l.hosts) > 0 {
		stats.AverageAdaptiveMultiplier = multiplierSum / float64(len(l.hosts))
	} else {
		stats.AverageAdaptiveMultiplier = 1.0
	}
	return stats
}
