package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"interview-intel/internal/company"
	"interview-intel/internal/crawl"
	"interview-intel/internal/decay"
)

const geeksforgeeksBaseURL = "https://www.geeksforgeeks.org"

// gfgCompanySlugs maps canonical company names to the URL slugs the
// site uses for them. Companies without an entry fall back to the
// lowercase name.
var gfgCompanySlugs = map[string][]string{
	"Amazon":       {"amazon", "aws"},
	"Google":       {"google", "alphabet"},
	"Apple":        {"apple"},
	"Netflix":      {"netflix"},
	"Meta":         {"meta", "facebook", "fb"},
	"Microsoft":    {"microsoft", "msft"},
	"Flipkart":     {"flipkart"},
	"Paytm":        {"paytm"},
	"Ola":          {"ola"},
	"Uber":         {"uber"},
	"Swiggy":       {"swiggy"},
	"Zomato":       {"zomato"},
	"BigBasket":    {"bigbasket", "big-basket"},
	"Carwale":      {"carwale"},
	"Razorpay":     {"razorpay"},
	"PhonePe":      {"phonepe", "phone-pe"},
	"Myntra":       {"myntra"},
	"MakeMyTrip":   {"makemytrip", "make-my-trip"},
	"BookMyShow":   {"bookmyshow", "book-my-show"},
	"Freshworks":   {"freshworks", "freshdesk"},
	"Zoho":         {"zoho"},
	"InMobi":       {"inmobi"},
	"ShareChat":    {"sharechat", "share-chat"},
	"Dream11":      {"dream11", "dream-11"},
	"Byju":         {"byjus", "byju"},
	"Unacademy":    {"unacademy"},
	"Vedantu":      {"vedantu"},
	"Nykaa":        {"nykaa"},
	"PolicyBazaar": {"policybazaar", "policy-bazaar"},
	"Lenskart":     {"lenskart"},
	"UrbanClap":    {"urbanclap", "urban-clap", "urbancompany"},
	"Cred":         {"cred"},
	"Grofers":      {"grofers"},
	"Dunzo":        {"dunzo"},
}

// experienceURLMarkers identify article URLs that look like interview
// experiences.
var experienceURLMarkers = []string{
	"interview-experience",
	"interview-exp",
	"coding-interview",
	"sde-interview",
	"software-engineer-interview",
}

var gfgTitleSelectors = []string{"h1.entry-title", "h1.article-title", "h1", ".page-title", "title"}

var gfgContentSelectors = []string{".entry-content", ".article-content", ".post-content", "article", ".content", "main"}

var gfgDateSelectors = []string{".entry-date", ".published-date", ".post-date", "time[datetime]"}

var gfgDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Last Updated\s*:?\s*(\d{1,2}\s+\w+\s+\d{4})`),
	regexp.MustCompile(`(?i)Published\s*:?\s*(\d{1,2}\s+\w+\s+\d{4})`),
	regexp.MustCompile(`(\d{1,2}\s+\w+,?\s+\d{4})`),
	regexp.MustCompile(`(\w+\s+\d{1,2},?\s+\d{4})`),
}

var gfgRolePatterns = []rolePattern{
	{"SDE Intern", []string{"intern", "internship", "summer intern"}},
	{"SDE-3", []string{"sde-3", "sde 3", "senior sde", "staff engineer"}},
	{"SDE-2", []string{"sde-2", "sde 2", "sde ii"}},
	{"SDE-1", []string{"sde-1", "sde 1", "sde i"}},
	{"SDE", []string{"sde", "software development engineer", "software developer", "software engineer"}},
}

var (
	gfgPositiveOutcomes = []string{"got the offer", "selected", "hired", "offer letter", "accepted", "joined", "success"}
	gfgNegativeOutcomes = []string{"rejected", "not selected", "failed", "did not get", "unsuccessful", "didn't make it"}
)

// GeeksForGeeks discovers interview experiences on the GeeksforGeeks
// article site through company pages, direct URL patterns, category
// pages and tag pages, strongest signal first.
type GeeksForGeeks struct {
	engine    *crawl.Engine
	companies *company.Extractor
	calc      *decay.Calculator
	baseURL   string
}

// NewGeeksForGeeks builds the adapter. An empty baseURL selects the
// public site.
func NewGeeksForGeeks(engine *crawl.Engine, companies *company.Extractor, calc *decay.Calculator, baseURL string) *GeeksForGeeks {
	if baseURL == "" {
		baseURL = geeksforgeeksBaseURL
	}
	return &GeeksForGeeks{engine: engine, companies: companies, calc: calc, baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *GeeksForGeeks) Platform() string { return "geeksforgeeks" }

// DiscoverURLs composes four strategies. Strong early hauls
// short-circuit the noisier fallbacks.
func (g *GeeksForGeeks) DiscoverURLs(ctx context.Context, companyName string, maxPages int) []string {
	urls := newURLSet()

	// 1. Company article pages carry the strongest signal.
	articleURLs := g.companyArticleURLs(ctx, companyName)
	urls.addAll(articleURLs)
	if len(articleURLs) >= 10 {
		log.Info().Int("count", len(articleURLs)).Str("company", companyName).
			Msg("Company article pages sufficed, skipping other strategies")
		return urls.list()
	}

	// 2. Known direct URL patterns. The site's search endpoint
	// disallows crawlers, so patterns stand in for search.
	urls.addAll(g.patternURLs(ctx, companyName))
	if urls.len() >= 15 {
		log.Info().Int("count", urls.len()).Str("company", companyName).
			Msg("Direct patterns sufficed, skipping remaining strategies")
		return urls.list()
	}

	// 3. Category pages when the haul is still thin.
	if urls.len() < 8 {
		urls.addAll(g.categoryURLs(ctx, companyName))
	}

	// 4. Tag pages as the last resort.
	if urls.len() < 10 {
		urls.addAll(g.tagURLs(ctx, companyName))
	}
	return urls.list()
}

func (g *GeeksForGeeks) companyArticleURLs(ctx context.Context, companyName string) []string {
	var found []string
	for _, slug := range gfgSlugs(companyName) {
		pageURL := fmt.Sprintf("%s/companies/%s/articles/", g.baseURL, slug)
		doc, err := g.fetchDocument(ctx, pageURL)
		if err != nil {
			if errors.Is(err, crawl.ErrNotFound) {
				log.Debug().Str("slug", slug).Msg("No company articles page")
			}
			continue
		}
		count := 0
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			if isExperienceURL(href) {
				found = append(found, joinURL(g.baseURL, href))
				count++
			}
		})
		if count > 0 {
			log.Info().Int("count", count).Str("slug", slug).Msg("Found experience links on company articles page")
		}
	}
	return found
}

func (g *GeeksForGeeks) patternURLs(ctx context.Context, companyName string) []string {
	var found []string
	for _, slug := range gfgSlugs(companyName) {
		candidates := []string{
			fmt.Sprintf("%s/%s-interview-experience", g.baseURL, slug),
			fmt.Sprintf("%s/%s-software-engineer-interview-experience", g.baseURL, slug),
			fmt.Sprintf("%s/%s-sde-interview-experience", g.baseURL, slug),
			fmt.Sprintf("%s/%s-coding-interview-experience", g.baseURL, slug),
		}
		for _, candidate := range candidates {
			if err := g.engine.Probe(ctx, candidate); err != nil {
				if errors.Is(err, crawl.ErrNotFound) {
					log.Debug().Str("url", candidate).Msg("URL pattern not found")
				}
				continue
			}
			if isExperienceURL(candidate) {
				found = append(found, candidate)
				log.Info().Str("url", candidate).Msg("Direct URL pattern hit")
				// One hit per slug keeps the probing polite.
				break
			}
		}
	}
	return found
}

func (g *GeeksForGeeks) categoryURLs(ctx context.Context, companyName string) []string {
	categoryPages := []string{
		g.baseURL + "/category/interview-experiences/",
		g.baseURL + "/company-interview-corner/",
	}
	var found []string
	for _, pageURL := range categoryPages {
		doc, err := g.fetchDocument(ctx, pageURL)
		if err != nil {
			continue
		}
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			if !isExperienceURL(href) {
				return
			}
			full := joinURL(g.baseURL, href)
			if g.matchesCompanyURL(full, companyName) {
				found = append(found, full)
			}
		})
	}
	return found
}

func (g *GeeksForGeeks) tagURLs(ctx context.Context, companyName string) []string {
	var found []string
	for _, slug := range gfgSlugs(companyName) {
		tagURL := fmt.Sprintf("%s/tag/%s/", g.baseURL, slug)
		doc, err := g.fetchDocument(ctx, tagURL)
		if err != nil {
			if errors.Is(err, crawl.ErrNotFound) {
				log.Info().Str("slug", slug).Msg("No tag page found")
			}
			continue
		}
		count := 0
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			if isExperienceURL(href) {
				found = append(found, joinURL(g.baseURL, href))
				count++
			}
		})
		if count > 0 {
			log.Info().Int("count", count).Str("slug", slug).Msg("Found experience links on tag page")
		}
	}
	return found
}

// Extract builds a Record from one experience page.
func (g *GeeksForGeeks) Extract(ctx context.Context, rawURL, targetCompany string) (*Record, error) {
	body, err := g.engine.SafeRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	title := gfgTitle(doc)
	if title == "" {
		return nil, fmt.Errorf("%w: no usable title at %s", ErrRejected, rawURL)
	}

	stripChrome(doc, "header", "footer", "aside")
	content := firstText(doc, gfgContentSelectors)
	if content == "" {
		content = paragraphText(doc)
	}
	content = strings.TrimSpace(content)
	if len(content) < minContentChars {
		return nil, fmt.Errorf("%w: content under %d chars at %s", ErrRejected, minContentChars, rawURL)
	}
	if g.engine.IsDuplicateContent(content) {
		return nil, fmt.Errorf("%w: duplicate content at %s", ErrRejected, rawURL)
	}

	date := gfgDate(doc, string(body))
	count, details := roundsInfo(content)
	return &Record{
		Title:                title,
		Content:              content,
		SourceURL:            rawURL,
		SourcePlatform:       g.Platform(),
		Company:              g.companies.Extract(title, content, targetCompany),
		Role:                 roleFromText(title, content, gfgRolePatterns),
		ExperienceDate:       date,
		RoundsCount:          count,
		RoundsDetails:        details,
		DifficultyIndicators: difficultyIndicators(content, defaultDifficultyCues),
		Outcome:              outcomeFromText(content, gfgPositiveOutcomes, gfgNegativeOutcomes),
		TimeWeight:           scraperTimeWeight(g.calc, date),
	}, nil
}

func (g *GeeksForGeeks) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := g.engine.SafeRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

func (g *GeeksForGeeks) matchesCompanyURL(rawURL, companyName string) bool {
	lower := strings.ToLower(rawURL)
	return containsAny(lower, gfgSlugs(companyName))
}

func gfgSlugs(companyName string) []string {
	if slugs, ok := gfgCompanySlugs[companyName]; ok {
		return slugs
	}
	return []string{strings.ToLower(companyName)}
}

func isExperienceURL(rawURL string) bool {
	return containsAny(strings.ToLower(rawURL), experienceURLMarkers)
}

// gfgTitle wants a heading of real length; ten characters filters out
// breadcrumb fragments.
func gfgTitle(doc *goquery.Document) string {
	for _, sel := range gfgTitleSelectors {
		title := strings.TrimSpace(doc.Find(sel).First().Text())
		if len(title) > 10 {
			return title
		}
	}
	return ""
}

// gfgDate reads the publication date from structured markup first and
// page text second, defaulting to a month old when neither parses.
func gfgDate(doc *goquery.Document, pageText string) time.Time {
	for _, sel := range gfgDateSelectors {
		elem := doc.Find(sel).First()
		if elem.Length() == 0 {
			continue
		}
		raw, ok := elem.Attr("datetime")
		if !ok {
			raw = elem.Text()
		}
		if t, parsed := parseLooseDate(raw); parsed {
			return t
		}
	}
	for _, re := range gfgDatePatterns {
		if m := re.FindStringSubmatch(pageText); m != nil {
			if t, parsed := parseLooseDate(m[1]); parsed {
				return t
			}
		}
	}
	return fallbackDate(30)
}
