// Package sources implements the per-platform interview experience
// adapters. Each adapter discovers candidate URLs for one company and
// extracts structured records from them through the shared crawl
// engine; company attribution always goes through the disambiguator.
package sources

import (
	"context"
	"errors"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"interview-intel/internal/decay"
)

// ErrRejected marks a page that was fetched fine but does not qualify
// as an interview experience record.
var ErrRejected = errors.New("record rejected")

// minContentChars is the shortest body text worth keeping. Glassdoor
// reviews run shorter and use their own floor.
const minContentChars = 100

// scraperWeightFloor keeps even ancient experiences minimally visible
// at collection time. The analysis layer applies its own tighter floor.
const scraperWeightFloor = 0.1

// RoundDetail is one captured interview round description.
type RoundDetail struct {
	RoundNumber int    `json:"round_number"`
	Description string `json:"description"`
}

// Record is the normalized output of every adapter. The first block is
// common to all platforms; the rest is populated where a site provides
// the signal.
type Record struct {
	Title                string        `json:"title"`
	Content              string        `json:"content"`
	SourceURL            string        `json:"source_url"`
	SourcePlatform       string        `json:"source_platform"`
	Company              string        `json:"company"`
	Role                 string        `json:"role"`
	ExperienceDate       time.Time     `json:"experience_date"`
	RoundsCount          int           `json:"rounds_count"`
	RoundsDetails        []RoundDetail `json:"rounds_details"`
	DifficultyIndicators []string      `json:"difficulty_indicators"`
	Outcome              string        `json:"outcome"`
	TimeWeight           float64       `json:"time_weight"`

	Upvotes            int      `json:"upvotes,omitempty"`
	CommentsCount      int      `json:"comments_count,omitempty"`
	Subreddit          string   `json:"subreddit,omitempty"`
	CodingQuestions    []string `json:"coding_questions,omitempty"`
	InterviewType      string   `json:"interview_type,omitempty"`
	DifficultyRating   float64  `json:"difficulty_rating,omitempty"`
	ExperienceRating   string   `json:"experience_rating,omitempty"`
	InterviewQuestions []string `json:"interview_questions,omitempty"`
}

// Adapter is the capability every source platform exposes.
type Adapter interface {
	// Platform names the source, lowercase, as stored on records.
	Platform() string

	// DiscoverURLs returns candidate experience URLs for a company.
	// Fetch problems shrink the result instead of failing it.
	DiscoverURLs(ctx context.Context, company string, maxPages int) []string

	// Extract fetches one URL and builds a Record from it. It returns
	// ErrRejected when the page does not qualify, or the crawl
	// engine's skip sentinels unchanged.
	Extract(ctx context.Context, url, targetCompany string) (*Record, error)
}

// urlSet collects URLs without duplicates, preserving first-seen order
// so discovery output is deterministic.
type urlSet struct {
	seen map[string]struct{}
	urls []string
}

func newURLSet() *urlSet {
	return &urlSet{seen: make(map[string]struct{})}
}

func (s *urlSet) add(u string) {
	if u == "" {
		return
	}
	if _, ok := s.seen[u]; ok {
		return
	}
	s.seen[u] = struct{}{}
	s.urls = append(s.urls, u)
}

func (s *urlSet) addAll(urls []string) {
	for _, u := range urls {
		s.add(u)
	}
}

func (s *urlSet) len() int { return len(s.urls) }

func (s *urlSet) list() []string { return s.urls }

// rolePattern maps a normalized role name to the substrings that imply
// it. Tables are ordered most-specific first.
type rolePattern struct {
	Role string
	Cues []string
}

// roleFromText returns the first role whose cues appear in the text.
func roleFromText(title, content string, patterns []rolePattern) string {
	text := strings.ToLower(title + " " + content)
	for _, p := range patterns {
		if containsAny(text, p.Cues) {
			return p.Role
		}
	}
	return "Software Engineer"
}

// difficultyCue maps a difficulty level to its wording.
type difficultyCue struct {
	Level string
	Cues  []string
}

var defaultDifficultyCues = []difficultyCue{
	{"easy", []string{"easy", "simple", "basic", "straightforward"}},
	{"medium", []string{"medium", "moderate", "intermediate", "standard"}},
	{"hard", []string{"hard", "difficult", "challenging", "tough", "complex"}},
}

// difficultyIndicators lists every difficulty level whose cues appear
// in the content, in easy-to-hard order.
func difficultyIndicators(content string, cues []difficultyCue) []string {
	lower := strings.ToLower(content)
	var levels []string
	for _, c := range cues {
		if containsAny(lower, c.Cues) {
			levels = append(levels, c.Level)
		}
	}
	return levels
}

// outcomeFromText classifies content as offer, rejected or unknown.
// Positive cues win when both appear.
func outcomeFromText(content string, positive, negative []string) string {
	lower := strings.ToLower(content)
	if containsAny(lower, positive) {
		return "offer"
	}
	if containsAny(lower, negative) {
		return "rejected"
	}
	return "unknown"
}

func containsAny(text string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}

var (
	roundCountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`round\s*(\d+)`),
		regexp.MustCompile(`(\d+)\s*round`),
		regexp.MustCompile(`interview\s*(\d+)`),
	}
	roundSplitPattern = regexp.MustCompile(`(?i)round\s*\d+|interview\s*\d+`)
)

// roundsInfo counts distinct numbered rounds and captures the text
// following each round heading. Without explicit numbers the section
// count stands in, floored at one round.
func roundsInfo(content string) (int, []RoundDetail) {
	lower := strings.ToLower(content)
	numbers := make(map[int]struct{})
	for _, re := range roundCountPatterns {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil {
				numbers[n] = struct{}{}
			}
		}
	}

	var details []RoundDetail
	sections := roundSplitPattern.Split(content, -1)
	for i, section := range sections[1:] {
		if len(strings.TrimSpace(section)) > 50 {
			details = append(details, RoundDetail{
				RoundNumber: i + 1,
				Description: truncateRunes(section, 500),
			})
		}
	}

	count := len(numbers)
	if count == 0 {
		count = max(len(details), 1)
	}
	return count, details
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// dateLayouts covers the date formats the platforms are known to emit.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2 January, 2006",
	"2 Jan, 2006",
}

// parseLooseDate tries every known layout against the trimmed input.
func parseLooseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// fallbackDate stands in when a page carries no parseable date.
// Records never fabricate precision beyond "roughly recent".
func fallbackDate(daysAgo int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -daysAgo)
}

// scraperTimeWeight applies the decay weight with the collection-time
// floor.
func scraperTimeWeight(calc *decay.Calculator, date time.Time) float64 {
	return math.Max(calc.Weight(date), scraperWeightFloor)
}

// firstText returns the trimmed text of the first selector that
// matches anything non-empty.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// paragraphText joins the page's non-empty paragraphs, the extraction
// fallback all HTML platforms share.
func paragraphText(doc *goquery.Document) string {
	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}

// stripChrome removes scripts, styles and the given page chrome before
// text extraction.
func stripChrome(doc *goquery.Document, extra ...string) {
	selectors := append([]string{"script", "style", "nav"}, extra...)
	doc.Find(strings.Join(selectors, ",")).Remove()
}

// joinURL resolves href against base the way a browser would.
func joinURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
