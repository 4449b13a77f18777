package robots

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"
)

const (
	// cacheDuration is how long a fetched policy stays valid.
	cacheDuration = time.Hour

	// fallbackDelay is used when a host has no usable robots.txt.
	fallbackDelay = 5 * time.Second

	// minDelay is the floor applied to any host-directed crawl delay.
	minDelay = 2 * time.Second

	fetchTimeout = 10 * time.Second
)

type cacheEntry struct {
	data      *robotstxt.RobotsData // nil when the fetch failed or returned non-200
	fetchedAt time.Time
}

// Checker resolves per-host crawl permission and crawl delay from
// robots.txt, caching each host's policy for an hour. Safe for
// concurrent use; no lock is held across the fetch.
type Checker struct {
	mu     sync.RWMutex
	cache  map[string]cacheEntry
	client *http.Client

	// Overridable in tests.
	now func() time.Time
}

// NewChecker returns a Checker with an empty cache.
func NewChecker() *Checker {
	return &Checker{
		cache:  make(map[string]cacheEntry),
		client: &http.Client{Timeout: fetchTimeout},
		now:    time.Now,
	}
}

// CanFetch reports whether the URL may be crawled by the given agent
// and the crawl delay to honor. Any fetch or parse problem yields the
// permissive fallback (true, 5s).
func (c *Checker) CanFetch(rawURL, userAgent string) (bool, time.Duration) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		log.Error().Str("url", rawURL).Msg("Could not parse URL for robots check")
		return true, fallbackDelay
	}

	entry, ok := c.lookup(u.Host)
	if !ok {
		entry = c.refresh(u.Scheme, u.Host)
	}
	if entry.data == nil {
		return true, fallbackDelay
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	group := entry.data.FindGroup(userAgent)
	allowed := group.Test(path)
	if !allowed {
		log.Warn().Str("url", rawURL).Msg("Blocked by robots.txt")
	}

	delay := group.CrawlDelay
	if delay < minDelay {
		delay = minDelay
	}
	return allowed, delay
}

func (c *Checker) lookup(host string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[host]
	if !ok || c.now().Sub(entry.fetchedAt) >= cacheDuration {
		return cacheEntry{}, false
	}
	return entry, true
}

// refresh fetches and caches the policy for a host. Concurrent callers
// may fetch the same host twice; last write wins, which is harmless.
func (c *Checker) refresh(scheme, host string) cacheEntry {
	if scheme == "" {
		scheme = "https"
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)

	entry := cacheEntry{fetchedAt: c.now()}
	resp, err := c.client.Get(robotsURL)
	if err != nil {
		log.Warn().Err(err).Str("host", host).Msg("Failed to load robots.txt")
	} else {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			body, readErr := io.ReadAll(resp.Body)
			if readErr == nil {
				if data, parseErr := robotstxt.FromBytes(body); parseErr == nil {
					entry.data = data
					log.Debug().Str("host", host).Msg("Loaded robots.txt")
				} else {
					log.Warn().Err(parseErr).Str("host", host).Msg("Failed to parse robots.txt")
				}
			}
		} else {
			log.Debug().Str("host", host).Int("status", resp.StatusCode).Msg("No robots.txt")
		}
	}

	c.mu.Lock()
	c.cache[host] = entry
	c.mu.Unlock()
	return entry
}

// ClearCache drops all cached policies.
func (c *Checker) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cacheEntry)
	log.Info().Msg("Robots cache cleared")
}
