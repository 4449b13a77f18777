package crawl

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"interview-intel/internal/ratelimit"
	"interview-intel/internal/robots"
)

// Skip reasons returned by SafeRequest. Callers treat all of them as
// "move on to the next URL"; only the counters differ.
var (
	ErrDuplicateURL    = errors.New("duplicate url")
	ErrRobotsBlocked   = errors.New("blocked by robots.txt")
	ErrHostCircuitOpen = errors.New("host circuit open")
	ErrNotFound        = errors.New("not found")
)

// ErrForbidden marks a fetch the host refused with 403 through every
// retry. Adapters use it to retire URL patterns a site has blocked.
var ErrForbidden = errors.New("forbidden by host")

var (
	fetchResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "interview_intel",
		Subsystem: "crawl",
		Name:      "fetch_results_total",
		Help:      "Fetch outcomes by platform and result.",
	}, []string{"platform", "result"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "interview_intel",
		Subsystem: "crawl",
		Name:      "fetch_duration_seconds",
		Help:      "Wall time of HTTP fetch attempts.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"platform"})
)

// Config carries the crawl knobs from the environment.
type Config struct {
	UserAgent              string
	RequestDelay           time.Duration
	MaxRetries             int
	Timeout                time.Duration
	MaxConsecutiveFailures int
	RespectRobots          bool

	// Header entries are set on every request after the defaults, so a
	// platform can add or override headers (Referer, Accept, even the
	// User-Agent) the way its site expects.
	Header http.Header
}

// Stats are the per-engine fetch counters exposed in health reports.
type Stats struct {
	RequestsMade      int `json:"requests_made"`
	SuccessfulScrapes int `json:"successful_scrapes"`
	DuplicatesFound   int `json:"duplicates_found"`
	RobotsBlocked     int `json:"robots_blocked"`
	RateLimited       int `json:"rate_limited"`
	ForbiddenErrors   int `json:"forbidden_errors"`
}

// Engine is the sole fetch primitive for source adapters. It layers
// duplicate suppression, robots compliance, rate limiting, a per-host
// circuit breaker, and bounded retry over a plain HTTP client. One
// engine serves one adapter; its dedup sets are run-local.
type Engine struct {
	platform string
	cfg      Config
	client   *http.Client
	robots   *robots.Checker
	limiter  *ratelimit.Limiter

	mu            sync.Mutex
	seenURLs      map[string]struct{}
	contentHashes map[string]struct{}
	breakers      map[string]*gobreaker.TwoStepCircuitBreaker
	stats         Stats

	// Overridable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine returns an Engine for one source platform.
func NewEngine(platform string, cfg Config, checker *robots.Checker, limiter *ratelimit.Limiter) *Engine {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Engine{
		platform:      platform,
		cfg:           cfg,
		client:        &http.Client{Timeout: cfg.Timeout},
		robots:        checker,
		limiter:       limiter,
		seenURLs:      make(map[string]struct{}),
		contentHashes: make(map[string]struct{}),
		breakers:      make(map[string]*gobreaker.TwoStepCircuitBreaker),
		sleep:         sleepContext,
	}
}

// Platform returns the source platform this engine fetches for.
func (e *Engine) Platform() string { return e.platform }

// SafeRequest fetches one URL with every safety check applied. It
// returns the response body, or a skip reason from the sentinel set,
// or the final transport error once retries are exhausted.
func (e *Engine) SafeRequest(ctx context.Context, rawURL string) ([]byte, error) {
	return e.fetch(ctx, rawURL, true)
}

// Probe runs the same safety ladder without marking the URL scraped,
// so discovery can test candidate URLs that extraction will fetch for
// real afterwards.
func (e *Engine) Probe(ctx context.Context, rawURL string) error {
	_, err := e.fetch(ctx, rawURL, false)
	return err
}

func (e *Engine) fetch(ctx context.Context, rawURL string, markSeen bool) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("unusable url %q: %w", rawURL, err)
	}
	host := u.Host

	// 1. Duplicate suppression across the run.
	e.mu.Lock()
	_, seen := e.seenURLs[rawURL]
	if seen {
		e.stats.DuplicatesFound++
	}
	e.mu.Unlock()
	if seen {
		fetchResults.WithLabelValues(e.platform, "duplicate_url").Inc()
		return nil, ErrDuplicateURL
	}

	// 2. Robots compliance, or the configured base delay in research mode.
	crawlDelay := e.cfg.RequestDelay
	if e.cfg.RespectRobots {
		allowed, delay := e.robots.CanFetch(rawURL, e.cfg.UserAgent)
		if !allowed {
			e.bump(func(s *Stats) { s.RobotsBlocked++ })
			fetchResults.WithLabelValues(e.platform, "robots_blocked").Inc()
			return nil, fmt.Errorf("%w: %s", ErrRobotsBlocked, rawURL)
		}
		crawlDelay = delay
	} else {
		log.Debug().Str("url", rawURL).Msg("Bypassing robots.txt check")
	}

	// 3. Fail fast while the host circuit is open, before any sleeping.
	breaker := e.breaker(host)
	if breaker.State() == gobreaker.StateOpen {
		fetchResults.WithLabelValues(e.platform, "circuit_open").Inc()
		log.Warn().Str("host", host).Msg("Too many consecutive failures, skipping host")
		return nil, fmt.Errorf("%w: %s", ErrHostCircuitOpen, host)
	}

	// 4. Rate limiting.
	if err := e.limiter.WaitIfNeeded(ctx, host, crawlDelay); err != nil {
		return nil, err
	}

	// 5. Bounded retry.
	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		done, allowErr := breaker.Allow()
		if allowErr != nil {
			fetchResults.WithLabelValues(e.platform, "circuit_open").Inc()
			return nil, fmt.Errorf("%w: %s", ErrHostCircuitOpen, host)
		}

		body, status, attemptErr := e.attempt(ctx, rawURL)
		switch {
		case attemptErr != nil:
			done(false)
			lastErr = attemptErr
			log.Warn().Err(attemptErr).Str("url", rawURL).Int("attempt", attempt+1).Msg("Request failed")
			if attempt == e.cfg.MaxRetries-1 {
				e.limiter.RecordFailure(host)
			}

		case status == http.StatusOK:
			done(true)
			e.mu.Lock()
			if markSeen {
				e.seenURLs[rawURL] = struct{}{}
			}
			e.stats.SuccessfulScrapes++
			e.mu.Unlock()
			e.limiter.RecordSuccess(host)
			fetchResults.WithLabelValues(e.platform, "success").Inc()
			return body, nil

		case status == http.StatusForbidden:
			e.bump(func(s *Stats) { s.ForbiddenErrors++ })
			fetchResults.WithLabelValues(e.platform, "forbidden").Inc()
			done(false)
			lastErr = fmt.Errorf("%w: http 403 for %s", ErrForbidden, rawURL)
			log.Warn().Str("url", rawURL).Msg("HTTP 403 Forbidden")
			if breaker.State() == gobreaker.StateOpen {
				// The host is actively refusing us. Stop retrying
				// without the long 403 sleep.
				return nil, fmt.Errorf("%w: %s", ErrHostCircuitOpen, host)
			}
			if err := e.sleep(ctx, time.Duration(5*(attempt+1))*time.Second); err != nil {
				return nil, err
			}

		case status == http.StatusTooManyRequests:
			e.bump(func(s *Stats) { s.RateLimited++ })
			fetchResults.WithLabelValues(e.platform, "rate_limited").Inc()
			e.limiter.RecordFailure(host)
			done(false)
			lastErr = fmt.Errorf("http 429 for %s", rawURL)
			if err := e.sleep(ctx, time.Duration(math.Pow(2, float64(attempt)))*time.Second); err != nil {
				return nil, err
			}

		case status == http.StatusNotFound:
			// Expected during URL discovery; the host is serving fine.
			done(true)
			fetchResults.WithLabelValues(e.platform, "not_found").Inc()
			log.Debug().Str("url", rawURL).Msg("HTTP 404")
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rawURL)

		default:
			done(false)
			lastErr = fmt.Errorf("http %d for %s", status, rawURL)
			log.Warn().Int("status", status).Str("url", rawURL).Msg("Unexpected HTTP status")
			if attempt == e.cfg.MaxRetries-1 {
				e.limiter.RecordFailure(host)
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("retries exhausted for %s", rawURL)
	}
	return nil, lastErr
}

// attempt performs one HTTP GET and reads the body.
func (e *Engine) attempt(ctx context.Context, rawURL string) ([]byte, int, error) {
	e.bump(func(s *Stats) { s.RequestsMade++ })

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for key, values := range e.cfg.Header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	fetchDuration.WithLabelValues(e.platform).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// IsDuplicateContent reports whether this content body was already seen
// in the run, remembering it on first sight. Check and add are one
// critical section.
func (e *Engine) IsDuplicateContent(content string) bool {
	sum := md5.Sum([]byte(content))
	hash := hex.EncodeToString(sum[:])

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.contentHashes[hash]; ok {
		e.stats.DuplicatesFound++
		fetchResults.WithLabelValues(e.platform, "duplicate_content").Inc()
		return true
	}
	e.contentHashes[hash] = struct{}{}
	return false
}

// GetStats returns a snapshot of the engine counters.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) bump(f func(*Stats)) {
	e.mu.Lock()
	f(&e.stats)
	e.mu.Unlock()
}

// breaker returns the circuit breaker for a host, creating it on first
// use. The breaker trips after MaxConsecutiveFailures consecutive
// failed attempts and probes again a minute later.
func (e *Engine) breaker(host string) *gobreaker.TwoStepCircuitBreaker {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[host]; ok {
		return cb
	}
	threshold := uint32(e.cfg.MaxConsecutiveFailures)
	cb := gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("host", name).Str("from", from.String()).Str("to", to.String()).Msg("Host circuit state changed")
		},
	})
	e.breakers[host] = cb
	return cb
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
