package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"interview-intel/internal/company"
	"interview-intel/internal/crawl"
	"interview-intel/internal/decay"
)

const leetcodeBaseURL = "https://leetcode.com"

// maxParseFailures bounds consecutive request or parse failures before
// a discussion search gives up.
const maxParseFailures = 3

// LeetCodeHeaders returns the session headers the discussion endpoints
// expect.
func LeetCodeHeaders() http.Header {
	h := http.Header{}
	h.Set("Referer", "https://leetcode.com/")
	h.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	h.Set("X-Requested-With", "XMLHttpRequest")
	return h
}

// leetcodeAliases maps canonical company names to the spellings seen
// in discussion titles and bodies.
var leetcodeAliases = map[string][]string{
	"Amazon":       {"amazon", "amzn", "aws", "amazon.com", "amazon inc"},
	"Google":       {"google", "alphabet", "goog", "google.com", "alphabet inc"},
	"Apple":        {"apple", "aapl", "apple inc", "apple.com"},
	"Netflix":      {"netflix", "nflx", "netflix.com", "netflix inc"},
	"Meta":         {"meta", "facebook", "fb", "instagram", "whatsapp", "meta platforms"},
	"Microsoft":    {"microsoft", "msft", "ms", "microsoft.com", "microsoft corporation"},
	"Flipkart":     {"flipkart", "flipkart.com", "flipkart india"},
	"Carwale":      {"carwale", "carwale.com", "car wale"},
	"Swiggy":       {"swiggy", "swiggy.com"},
	"Zomato":       {"zomato", "zomato.com"},
	"Paytm":        {"paytm", "paytm.com", "one97"},
	"Ola":          {"ola", "ola cabs", "ola.com"},
	"Uber":         {"uber", "uber.com"},
	"Byju":         {"byju", "byjus", "byju's"},
	"Razorpay":     {"razorpay", "razorpay.com"},
	"Freshworks":   {"freshworks", "freshdesk", "freshservice"},
	"Zoho":         {"zoho", "zoho.com"},
	"InMobi":       {"inmobi", "inmobi.com"},
	"ShareChat":    {"sharechat", "share chat"},
	"Dream11":      {"dream11", "dream 11"},
	"PhonePe":      {"phonepe", "phone pe"},
	"Myntra":       {"myntra", "myntra.com"},
	"BigBasket":    {"bigbasket", "big basket"},
	"Grofers":      {"grofers", "blinkit"},
	"Dunzo":        {"dunzo", "dunzo.com"},
	"Nykaa":        {"nykaa", "nykaa.com"},
	"PolicyBazaar": {"policybazaar", "policy bazaar"},
	"MakeMyTrip":   {"makemytrip", "make my trip", "mmt"},
	"BookMyShow":   {"bookmyshow", "book my show", "bms"},
	"Lenskart":     {"lenskart", "lenskart.com"},
	"UrbanClap":    {"urbanclap", "urban clap", "urbancompany", "urban company"},
	"Cred":         {"cred", "cred.com"},
	"Unacademy":    {"unacademy", "unacademy.com"},
	"Vedantu":      {"vedantu", "vedantu.com"},
}

var leetcodeInterviewKeywords = []string{
	"interview", "onsite", "phone interview", "coding interview",
	"behavioral", "system design", "offer", "rejected", "hired",
}

var leetcodeTitleSelectors = []string{".discuss-topic-title", "h1", ".topic-title", `[data-cy="topic-title"]`}

var leetcodeContentSelectors = []string{
	".discuss-markdown-container", ".topic-content", ".discuss-topic-content",
	".markdown-body", `[data-cy="topic-content"]`,
}

var leetcodeDateSelectors = []string{".discuss-topic-date", ".topic-date", "time", "[datetime]"}

var leetcodeRolePatterns = []rolePattern{
	{"SDE Intern", []string{"intern", "internship", "summer intern", "new grad"}},
	{"Senior SDE", []string{"senior", "staff", "principal", "l6", "l7"}},
	{"SDE-2", []string{"sde-2", "sde 2", "mid level", "l5"}},
	{"SDE-1", []string{"sde-1", "sde 1", "junior", "l4"}},
	{"SDE", []string{"sde", "software engineer", "developer"}},
}

var leetcodeDifficultyCues = []difficultyCue{
	{"easy", []string{"easy", "simple", "straightforward", "basic"}},
	{"medium", []string{"medium", "moderate", "standard", "average"}},
	{"hard", []string{"hard", "difficult", "challenging", "tough", "complex"}},
}

var (
	leetcodePositiveOutcomes = []string{"got offer", "received offer", "accepted", "hired", "passed", "success", "offer letter", "joined"}
	leetcodeNegativeOutcomes = []string{"rejected", "failed", "did not get", "unsuccessful", "declined", "no offer"}
)

var leetcodeQuestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)leetcode\.com/problems/([a-z-]+)`),
	regexp.MustCompile(`(?i)problem #?(\d+)`),
	regexp.MustCompile(`(?i)lc[#\s]?(\d+)`),
	regexp.MustCompile(`(?i)question[#\s]?(\d+)`),
	regexp.MustCompile(`(?i)(two sum|three sum|merge sort|quick sort|binary search)`),
	regexp.MustCompile(`(?i)(sliding window|two pointer|dynamic programming|dfs|bfs)`),
	regexp.MustCompile(`(?i)(backtracking|greedy|divide and conquer)`),
}

var leetcodeInterviewTypes = []struct {
	Type string
	Cues []string
}{
	{"phone_screen", []string{"phone", "call", "screen"}},
	{"onsite", []string{"onsite", "in-person", "office"}},
	{"virtual", []string{"virtual", "video", "zoom", "online"}},
	{"behavioral", []string{"behavioral", "culture", "leadership"}},
	{"system_design", []string{"system design", "architecture", "scalability"}},
	{"coding", []string{"coding", "algorithm", "data structure", "leetcode"}},
}

// discussSearchResponse is the JSON shape of the discussion search
// endpoint.
type discussSearchResponse struct {
	Data struct {
		CategoryTopicList struct {
			Edges []struct {
				Node discussionNode `json:"node"`
			} `json:"edges"`
		} `json:"categoryTopicList"`
	} `json:"data"`
}

// discussionNode is one discussion post in a search result.
type discussionNode struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// LeetCode scrapes the discussion board. Search results come back as
// JSON or HTML depending on the endpoint's mood; both are handled.
type LeetCode struct {
	engine    *crawl.Engine
	companies *company.Extractor
	calc      *decay.Calculator
	baseURL   string
}

// NewLeetCode builds the adapter. An empty baseURL selects the public
// site.
func NewLeetCode(engine *crawl.Engine, companies *company.Extractor, calc *decay.Calculator, baseURL string) *LeetCode {
	if baseURL == "" {
		baseURL = leetcodeBaseURL
	}
	return &LeetCode{engine: engine, companies: companies, calc: calc, baseURL: strings.TrimRight(baseURL, "/")}
}

func (l *LeetCode) Platform() string { return "leetcode" }

// DiscoverURLs searches discussions per company alias, then browses
// the interview-question category for posts the search missed.
func (l *LeetCode) DiscoverURLs(ctx context.Context, companyName string, maxPages int) []string {
	urls := newURLSet()
	urls.addAll(l.searchDiscussions(ctx, companyName, maxPages))
	urls.addAll(l.browseCategory(ctx, companyName))
	urls.addAll(l.recentPosts(ctx, companyName))
	return urls.list()
}

func (l *LeetCode) searchDiscussions(ctx context.Context, companyName string, maxPages int) []string {
	var found []string
	failures := 0
	pages := min(maxPages, 4)

	for _, alias := range leetcodeAliasList(companyName) {
		for page := 1; page <= pages; page++ {
			if failures >= maxParseFailures {
				log.Warn().Str("alias", alias).Msg("Too many consecutive discussion failures, stopping search")
				break
			}
			query := url.Values{
				"currentPage": {strconv.Itoa(page)},
				"orderBy":     {"most_relevant"},
				"query":       {alias + " interview"},
			}
			searchURL := fmt.Sprintf("%s/discuss/interview-question?%s", l.baseURL, query.Encode())
			body, err := l.engine.SafeRequest(ctx, searchURL)
			if err != nil {
				failures++
				continue
			}
			urls, parseErr := l.parseSearchResults(body, companyName)
			if parseErr != nil {
				failures++
				log.Warn().Err(parseErr).Msg("Unparseable discussion search response")
				continue
			}
			failures = 0
			found = append(found, urls...)
		}
	}
	return found
}

// parseSearchResults accepts either the JSON search payload or an HTML
// listing page.
func (l *LeetCode) parseSearchResults(body []byte, companyName string) ([]string, error) {
	var payload discussSearchResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		var urls []string
		for _, edge := range payload.Data.CategoryTopicList.Edges {
			if edge.Node.ID != 0 && l.isExperiencePost(edge.Node, companyName) {
				urls = append(urls, fmt.Sprintf("%s/discuss/interview-question/%d", l.baseURL, edge.Node.ID))
			}
		}
		return urls, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var urls []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.Contains(href, "/discuss/interview-question/") && l.matchesAlias(s.Text(), companyName) {
			urls = append(urls, joinURL(l.baseURL, href))
		}
	})
	return urls, nil
}

func (l *LeetCode) browseCategory(ctx context.Context, companyName string) []string {
	doc, err := l.fetchDocument(ctx, l.baseURL+"/discuss/interview-question")
	if err != nil {
		return nil
	}
	var found []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.Contains(href, "/discuss/interview-question/") && l.matchesAlias(s.Text(), companyName) {
			found = append(found, joinURL(l.baseURL, href))
		}
	})
	return found
}

func (l *LeetCode) recentPosts(ctx context.Context, companyName string) []string {
	doc, err := l.fetchDocument(ctx, l.baseURL+"/discuss/interview-question")
	if err != nil {
		return nil
	}
	var found []string
	doc.Find("div.discuss-topic").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a[href]").First()
		href, ok := link.Attr("href")
		if ok && l.matchesAlias(link.Text(), companyName) {
			found = append(found, joinURL(l.baseURL, href))
		}
	})
	return found
}

// Extract builds a Record from one discussion post page.
func (l *LeetCode) Extract(ctx context.Context, rawURL, targetCompany string) (*Record, error) {
	body, err := l.engine.SafeRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	title := firstText(doc, leetcodeTitleSelectors)
	if title == "" {
		return nil, fmt.Errorf("%w: no usable title at %s", ErrRejected, rawURL)
	}

	stripChrome(doc, "header", "aside")
	content := firstText(doc, leetcodeContentSelectors)
	if content == "" {
		content = paragraphText(doc)
	}
	content = strings.TrimSpace(content)
	if len(content) < minContentChars {
		return nil, fmt.Errorf("%w: content under %d chars at %s", ErrRejected, minContentChars, rawURL)
	}
	if l.engine.IsDuplicateContent(content) {
		return nil, fmt.Errorf("%w: duplicate content at %s", ErrRejected, rawURL)
	}

	date := leetcodeDate(doc)
	count, details := roundsInfo(content)
	return &Record{
		Title:                title,
		Content:              content,
		SourceURL:            rawURL,
		SourcePlatform:       l.Platform(),
		Company:              l.companies.Extract(title, content, targetCompany),
		Role:                 roleFromText(title, content, leetcodeRolePatterns),
		ExperienceDate:       date,
		RoundsCount:          count,
		RoundsDetails:        details,
		DifficultyIndicators: difficultyIndicators(content, leetcodeDifficultyCues),
		Outcome:              outcomeFromText(content, leetcodePositiveOutcomes, leetcodeNegativeOutcomes),
		TimeWeight:           scraperTimeWeight(l.calc, date),
		CodingQuestions:      codingQuestions(content),
		InterviewType:        interviewType(content),
	}, nil
}

func (l *LeetCode) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := l.engine.SafeRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

func (l *LeetCode) isExperiencePost(node discussionNode, companyName string) bool {
	title := strings.ToLower(node.Title)
	content := strings.ToLower(node.Content)

	companyMatch := false
	for _, alias := range leetcodeAliasList(companyName) {
		if strings.Contains(title, alias) || strings.Contains(content, alias) {
			companyMatch = true
			break
		}
	}
	if !companyMatch {
		return false
	}
	for _, keyword := range leetcodeInterviewKeywords {
		if strings.Contains(title, keyword) || strings.Contains(content, keyword) {
			return true
		}
	}
	return false
}

func (l *LeetCode) matchesAlias(text, companyName string) bool {
	if text == "" {
		return false
	}
	return containsAny(strings.ToLower(text), leetcodeAliasList(companyName))
}

func leetcodeAliasList(companyName string) []string {
	if aliases, ok := leetcodeAliases[companyName]; ok {
		return aliases
	}
	return []string{strings.ToLower(companyName)}
}

// leetcodeDate falls back to a fortnight old; discussion posts skew
// recent.
func leetcodeDate(doc *goquery.Document) time.Time {
	for _, sel := range leetcodeDateSelectors {
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
	return fallbackDate(15)
}

// codingQuestions collects problem references, deduplicated in
// first-seen order.
func codingQuestions(content string) []string {
	seen := make(map[string]struct{})
	var questions []string
	for _, re := range leetcodeQuestionPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			q := strings.ToLower(m[1])
			if _, ok := seen[q]; ok {
				continue
			}
			seen[q] = struct{}{}
			questions = append(questions, q)
		}
	}
	return questions
}

// interviewType labels the post by its first matching cue set.
func interviewType(content string) string {
	lower := strings.ToLower(content)
	for _, t := range leetcodeInterviewTypes {
		if containsAny(lower, t.Cues) {
			return t.Type
		}
	}
	return "general"
}
