package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"interview-intel/internal/company"
	"interview-intel/internal/crawl"
	"interview-intel/internal/decay"
)

const glassdoorBaseURL = "https://www.glassdoor.com"

// Glassdoor pages bury the experience text in rating widgets, so the
// floor is lower than the other platforms use.
const glassdoorMinContentChars = 50

// GlassdoorHeaders returns browser-like session headers. The site
// serves bot-check pages to anything that looks like a script.
// Accept-Encoding and Connection are left to the transport.
func GlassdoorHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("DNT", "1")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Cache-Control", "max-age=0")
	h.Set("sec-ch-ua", `"Chromium";v="120", "Google Chrome";v="120", "Not:A-Brand";v="24"`)
	h.Set("sec-ch-ua-mobile", "?0")
	h.Set("sec-ch-ua-platform", `"Windows"`)
	return h
}

// glassdoorCompanyIDs are the site's numeric employer IDs. URL
// patterns only work for companies listed here.
var glassdoorCompanyIDs = map[string]string{
	"amazon":    "6036",
	"google":    "9079",
	"apple":     "1138",
	"microsoft": "1651",
	"netflix":   "11891",
	"meta":      "40772",
}

// glassdoorCompanyNames maps lowercase names to the spelling the
// site uses in URL slugs.
var glassdoorCompanyNames = map[string]string{
	"amazon":    "Amazon",
	"google":    "Google",
	"apple":     "Apple",
	"microsoft": "Microsoft",
	"netflix":   "Netflix",
	"meta":      "Meta",
}

var glassdoorTitleSelectors = []string{
	".interview-details h2",
	".interviewQuestion",
	"h1",
	".jobTitle",
	`[data-test="interview-question-title"]`,
}

var glassdoorContentSelectors = []string{
	".interview-details",
	".interviewDetails",
	".interview-content",
	`[data-test="interview-details"]`,
	".interviewExperience",
}

var glassdoorDateSelectors = []string{
	".interview-date",
	".reviewDate",
	"time[datetime]",
	".date",
}

var glassdoorRolePatterns = []rolePattern{
	{"Software Engineer Intern", []string{"intern", "internship", "summer"}},
	{"Senior Software Engineer", []string{"senior", "sr", "staff", "principal"}},
	{"Software Engineer II", []string{"software engineer ii", "swe ii", "level 2"}},
	{"Software Engineer", []string{"software engineer", "swe", "developer", "engineer"}},
}

var (
	glassdoorOfferCues    = []string{"offer", "hired", "accepted"}
	glassdoorRejectedCues = []string{"rejected", "declined", "no offer"}

	glassdoorPositivePhrases = []string{"got the job", "received offer", "was hired"}
	glassdoorNegativePhrases = []string{"did not get", "was rejected", "no offer"}
)

var glassdoorQuestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)Q\d*[:.]?\s*([^?]+\?)`),
	regexp.MustCompile(`(?im)Question\s*\d*[:.]?\s*([^?]+\?)`),
	regexp.MustCompile(`(?im)They asked[^.]*?([^?]+\?)`),
	regexp.MustCompile(`(?im)Asked about[^.]*?([^?.]+[?.])`),
}

var glassdoorInnerDatePattern = regexp.MustCompile(`(\w+ \d{1,2}, \d{4})`)

var glassdoorRatingPattern = regexp.MustCompile(`(\d+\.?\d*)`)

// Glassdoor scrapes the public interview pages. The site blocks
// aggressively, so the adapter remembers refused URL patterns and
// stops retrying them.
type Glassdoor struct {
	engine    *crawl.Engine
	companies *company.Extractor
	calc      *decay.Calculator
	baseURL   string

	mu              sync.Mutex
	blockedPatterns map[string]struct{}
}

// NewGlassdoor builds the adapter. An empty baseURL selects
// glassdoor.com.
func NewGlassdoor(engine *crawl.Engine, companies *company.Extractor, calc *decay.Calculator, baseURL string) *Glassdoor {
	if baseURL == "" {
		baseURL = glassdoorBaseURL
	}
	return &Glassdoor{
		engine:          engine,
		companies:       companies,
		calc:            calc,
		baseURL:         strings.TrimRight(baseURL, "/"),
		blockedPatterns: make(map[string]struct{}),
	}
}

func (g *Glassdoor) Platform() string { return "glassdoor" }

// DiscoverURLs tries the public employer pages when the company's
// numeric ID is known, then falls back to a conservative pattern
// search unless too many patterns are already blocked.
func (g *Glassdoor) DiscoverURLs(ctx context.Context, companyName string, maxPages int) []string {
	urls := newURLSet()
	lower := strings.ToLower(companyName)

	// 1. Public pages addressed by employer ID.
	if id, ok := glassdoorCompanyIDs[lower]; ok {
		slug := glassdoorSlug(lower, companyName)
		patterns := []string{
			fmt.Sprintf("%s/Reviews/%s-Reviews-E%s.htm", g.baseURL, slug, id),
			fmt.Sprintf("%s/Interview/%s-Interview-Questions-E%s.htm", g.baseURL, slug, id),
		}
		for _, pageURL := range patterns {
			body, err := g.engine.SafeRequest(ctx, pageURL)
			if err != nil {
				log.Debug().Err(err).Str("url", pageURL).Msg("Glassdoor page unavailable")
				continue
			}
			urls.addAll(glassdoorInterviewLinks(g.baseURL, pageURL, body, 3))
			// One working page per company keeps the footprint small.
			break
		}
	}

	// 2. Conservative pattern search while the block list is short.
	if g.blockedCount() < 5 {
		urls.addAll(g.conservativeSearch(ctx, companyName))
	}

	if urls.len() > 0 {
		log.Info().Int("count", urls.len()).Str("company", companyName).Msg("Found Glassdoor interview URLs")
	}
	return urls.list()
}

// conservativeSearch probes at most two URL patterns and remembers
// the ones the site refuses, so repeated 403s shrink the strategy
// instead of looping on it.
func (g *Glassdoor) conservativeSearch(ctx context.Context, companyName string) []string {
	lower := strings.ToLower(companyName)
	id, ok := glassdoorCompanyIDs[lower]
	if !ok {
		return nil
	}
	slug := glassdoorSlug(lower, companyName)

	patterns := []string{
		fmt.Sprintf("%s/Interview/%s-Interview-Questions-E%s.htm", g.baseURL, slug, id),
		fmt.Sprintf("%s/Interview/%s-Software-Engineer-Interview-Questions-E%s_P2.htm", g.baseURL, slug, id),
	}
	for _, pageURL := range patterns {
		if g.isBlocked(pageURL) {
			continue
		}
		body, err := g.engine.SafeRequest(ctx, pageURL)
		if err != nil {
			if errors.Is(err, crawl.ErrForbidden) {
				g.block(pageURL)
				log.Warn().Str("url", pageURL).Msg("Glassdoor blocked pattern")
			} else if !errors.Is(err, crawl.ErrDuplicateURL) && !errors.Is(err, crawl.ErrNotFound) {
				g.block(pageURL)
			}
			continue
		}
		return glassdoorInterviewLinks(g.baseURL, pageURL, body, 10)
	}
	return nil
}

// Extract pulls one interview page apart into a Record, including the
// site's own difficulty and experience ratings.
func (g *Glassdoor) Extract(ctx context.Context, rawURL, targetCompany string) (*Record, error) {
	body, err := g.engine.SafeRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	title := firstText(doc, glassdoorTitleSelectors)
	if title == "" {
		return nil, fmt.Errorf("%w: missing title at %s", ErrRejected, rawURL)
	}

	stripChrome(doc, "footer")
	content := glassdoorContent(doc)
	if len(content) < glassdoorMinContentChars {
		return nil, fmt.Errorf("%w: content under %d chars at %s", ErrRejected, glassdoorMinContentChars, rawURL)
	}
	if g.engine.IsDuplicateContent(content) {
		return nil, fmt.Errorf("%w: duplicate content at %s", ErrRejected, rawURL)
	}

	date := glassdoorDate(doc)
	count, details := roundsInfo(content)
	return &Record{
		Title:                title,
		Content:              content,
		SourceURL:            rawURL,
		SourcePlatform:       g.Platform(),
		Company:              g.companies.Extract(title, content, targetCompany),
		Role:                 roleFromText(title, content, glassdoorRolePatterns),
		ExperienceDate:       date,
		RoundsCount:          count,
		RoundsDetails:        details,
		DifficultyIndicators: difficultyIndicators(content, defaultDifficultyCues),
		Outcome:              glassdoorOutcome(doc),
		TimeWeight:           scraperTimeWeight(g.calc, date),
		DifficultyRating:     glassdoorDifficultyRating(doc),
		ExperienceRating:     glassdoorExperienceRating(doc),
		InterviewQuestions:   glassdoorQuestions(content),
	}, nil
}

func (g *Glassdoor) block(pattern string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blockedPatterns[pattern] = struct{}{}
}

func (g *Glassdoor) isBlocked(pattern string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.blockedPatterns[pattern]
	return ok
}

func (g *Glassdoor) blockedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.blockedPatterns)
}

func glassdoorSlug(lower, companyName string) string {
	if display, ok := glassdoorCompanyNames[lower]; ok {
		return display
	}
	if companyName == "" {
		return companyName
	}
	return strings.ToUpper(companyName[:1]) + companyName[1:]
}

// glassdoorInterviewLinks collects up to max interview links from a
// listing page.
func glassdoorInterviewLinks(baseURL, pageURL string, body []byte, max int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}
	var found []string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if strings.Contains(href, "Interview") {
			if abs := joinURL(baseURL, href); abs != "" && abs != pageURL {
				found = append(found, abs)
			}
		}
		return len(found) < max
	})
	return found
}

// glassdoorContent joins the matching detail blocks; rating widgets
// and short fragments are skipped.
func glassdoorContent(doc *goquery.Document) string {
	var parts []string
	for _, selector := range glassdoorContentSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			if text := strings.TrimSpace(sel.Text()); len(text) > 20 {
				parts = append(parts, text)
			}
		})
		if len(parts) > 0 {
			break
		}
	}
	if len(parts) == 0 {
		doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
			if text := strings.TrimSpace(sel.Text()); len(text) > 20 {
				parts = append(parts, text)
			}
		})
	}
	return strings.Join(parts, "\n\n")
}

func glassdoorDate(doc *goquery.Document) time.Time {
	for _, selector := range glassdoorDateSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if attr, ok := sel.Attr("datetime"); ok {
			if date, ok := parseLooseDate(attr); ok {
				return date
			}
		}
		text := strings.TrimSpace(sel.Text())
		if date, ok := parseLooseDate(text); ok {
			return date
		}
		if m := glassdoorInnerDatePattern.FindStringSubmatch(text); m != nil {
			if date, ok := parseLooseDate(m[1]); ok {
				return date
			}
		}
	}
	return fallbackDate(30)
}

// glassdoorOutcome reads the structured outcome widget first, then
// falls back to phrases in the page text.
func glassdoorOutcome(doc *goquery.Document) string {
	selectors := []string{".interviewOutcome", ".outcome", `[data-test="interview-outcome"]`}
	for _, selector := range selectors {
		text := strings.ToLower(strings.TrimSpace(doc.Find(selector).First().Text()))
		if text == "" {
			continue
		}
		if containsAny(text, glassdoorOfferCues) {
			return "offer"
		}
		if containsAny(text, glassdoorRejectedCues) {
			return "rejected"
		}
	}

	fullText := strings.ToLower(doc.Text())
	if containsAny(fullText, glassdoorPositivePhrases) {
		return "offer"
	}
	if containsAny(fullText, glassdoorNegativePhrases) {
		return "rejected"
	}
	return "unknown"
}

// glassdoorDifficultyRating reads the numeric 1-5 difficulty widget,
// 0 when the page has none.
func glassdoorDifficultyRating(doc *goquery.Document) float64 {
	selectors := []string{".difficultyRating", ".ratingNumber", `[data-test="difficulty-rating"]`}
	for _, selector := range selectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text == "" {
			continue
		}
		if m := glassdoorRatingPattern.FindStringSubmatch(text); m != nil {
			if rating, err := strconv.ParseFloat(m[1], 64); err == nil {
				return rating
			}
		}
	}
	return 0
}

func glassdoorExperienceRating(doc *goquery.Document) string {
	selectors := []string{".interviewExperience", ".experience-rating", `[data-test="experience-rating"]`}
	for _, selector := range selectors {
		text := strings.ToLower(strings.TrimSpace(doc.Find(selector).First().Text()))
		if text == "" {
			continue
		}
		switch {
		case strings.Contains(text, "positive"):
			return "positive"
		case strings.Contains(text, "negative"):
			return "negative"
		case strings.Contains(text, "neutral"):
			return "neutral"
		}
	}
	return "unknown"
}

// glassdoorQuestions lifts explicit interview questions out of the
// text, capped at five.
func glassdoorQuestions(content string) []string {
	var questions []string
	for _, re := range glassdoorQuestionPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			q := strings.TrimSpace(m[1])
			if len(q) > 10 && len(q) < 200 {
				questions = append(questions, q)
			}
			if len(questions) >= 5 {
				return questions
			}
		}
	}
	return questions
}
