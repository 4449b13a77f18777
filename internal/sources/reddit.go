package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"interview-intel/internal/company"
	"interview-intel/internal/crawl"
	"interview-intel/internal/decay"
)

const redditBaseURL = "https://www.reddit.com"

// RedditHeaders returns the session headers for the public JSON API.
// Reddit expects a descriptive User-Agent from research crawlers.
func RedditHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", "Interview Intelligence Research Bot 1.0 (Educational Use)")
	h.Set("Accept", "application/json")
	return h
}

// redditSearchSubreddits are the communities searched for every
// company.
var redditSearchSubreddits = []string{
	"cscareerquestions",
	"ExperiencedDevs",
	"interviews",
	"leetcode",
	"ITCareerQuestions",
	"cscareerquestionsEU",
	"DeveloperJobs",
	"programming",
}

// redditCareerSubreddits get an extra pass over the last year's posts.
var redditCareerSubreddits = []string{"cscareerquestions", "ExperiencedDevs"}

// redditInterviewPatterns are the word-boundary phrases that mark a
// post as an actual interview account.
var redditInterviewPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\binterview\s+experience\b`),
	regexp.MustCompile(`\binterview\s+(process|round|question)\b`),
	regexp.MustCompile(`\b(onsite|phone|technical|coding|behavioral)\s+interview\b`),
	regexp.MustCompile(`\b(got|received|rejected)\s+(offer|rejection)\b`),
	regexp.MustCompile(`\binterview\s+(failed|passed|cleared)\b`),
	regexp.MustCompile(`\bhired\s+at\b`),
	regexp.MustCompile(`\boffered\s+position\b`),
}

// redditFalsePositiveCues reject hiring threads, salary chatter and
// other non-experience posts that match the interview phrases.
var redditFalsePositiveCues = []string{
	"hiring", "job posting", "salary negotiation", "company culture",
	"benefits", "work life balance", "resignation", "performance review",
}

var redditRolePatterns = []rolePattern{
	{"SDE Intern", []string{"intern", "internship", "summer intern", "new grad"}},
	{"Senior SDE", []string{"senior", "staff", "principal", "l6", "l7", "senior sde"}},
	{"SDE-3", []string{"sde-3", "sde 3", "staff engineer"}},
	{"SDE-2", []string{"sde-2", "sde 2", "sde ii", "mid level", "l5"}},
	{"SDE-1", []string{"sde-1", "sde 1", "sde i", "junior", "l4"}},
	{"SDE", []string{"sde", "software development engineer", "software developer", "software engineer"}},
}

var (
	redditPositiveOutcomes = []string{
		"got the offer", "selected", "hired", "offer letter",
		"accepted", "joined", "success", "got offer", "received offer",
	}
	redditNegativeOutcomes = []string{
		"rejected", "not selected", "failed", "did not get",
		"unsuccessful", "didn't make it", "no offer",
	}
)

// redditListing is one level of Reddit's nested listing JSON.
type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// redditPost is the subset of post fields the adapter reads.
type redditPost struct {
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
	CreatedUTC  float64 `json:"created_utc"`
	Ups         int     `json:"ups"`
	NumComments int     `json:"num_comments"`
}

// Reddit scrapes interview experiences through the public JSON API,
// no authentication required.
type Reddit struct {
	engine    *crawl.Engine
	companies *company.Extractor
	calc      *decay.Calculator
	baseURL   string
}

// NewReddit builds the adapter. An empty baseURL selects reddit.com.
func NewReddit(engine *crawl.Engine, companies *company.Extractor, calc *decay.Calculator, baseURL string) *Reddit {
	if baseURL == "" {
		baseURL = redditBaseURL
	}
	return &Reddit{engine: engine, companies: companies, calc: calc, baseURL: strings.TrimRight(baseURL, "/")}
}

func (r *Reddit) Platform() string { return "reddit" }

// DiscoverURLs runs targeted searches across the career subreddits,
// the company's own subreddits, and a recency-bounded pass.
func (r *Reddit) DiscoverURLs(ctx context.Context, companyName string, maxPages int) []string {
	urls := newURLSet()

	// 1. Relevance search across the standing subreddit list.
	for _, subreddit := range redditSearchSubreddits {
		for _, term := range redditSearchTerms(companyName) {
			params := url.Values{
				"q":           {term},
				"restrict_sr": {"on"},
				"sort":        {"relevance"},
				"limit":       {"25"},
				"t":           {"all"},
			}
			urls.addAll(r.matchingPosts(ctx, subreddit, params, companyName))
		}
	}

	// 2. The company's own subreddits, when they exist.
	for _, subreddit := range companySubreddits(companyName) {
		params := url.Values{
			"q":           {"interview experience"},
			"restrict_sr": {"on"},
			"sort":        {"relevance"},
			"limit":       {"20"},
		}
		urls.addAll(r.matchingPosts(ctx, subreddit, params, companyName))
	}

	// 3. Last year's posts in the two biggest career subreddits.
	for _, subreddit := range redditCareerSubreddits {
		for _, q := range []string{
			fmt.Sprintf("%q interview", companyName),
			companyName + " interview experience",
			companyName + " coding interview",
		} {
			params := url.Values{
				"q":           {q},
				"restrict_sr": {"on"},
				"sort":        {"relevance"},
				"limit":       {"25"},
				"t":           {"year"},
			}
			urls.addAll(r.matchingPosts(ctx, subreddit, params, companyName))
		}
	}
	return urls.list()
}

// matchingPosts runs one subreddit search and keeps the permalinks of
// posts that pass the experience gate.
func (r *Reddit) matchingPosts(ctx context.Context, subreddit string, params url.Values, companyName string) []string {
	searchURL := fmt.Sprintf("%s/r/%s/search.json?%s", r.baseURL, subreddit, params.Encode())
	body, err := r.engine.SafeRequest(ctx, searchURL)
	if err != nil {
		return nil
	}
	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		log.Warn().Err(err).Str("subreddit", subreddit).Msg("Unparseable subreddit listing")
		return nil
	}

	var found []string
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Permalink != "" && r.isExperiencePost(post, companyName) {
			found = append(found, r.baseURL+post.Permalink)
		}
	}
	return found
}

// isExperiencePost applies the quality gate: the disambiguator must
// attribute the post to the target company, an interview phrase must
// match, the post must carry real content, and hiring or salary
// chatter is rejected outright.
func (r *Reddit) isExperiencePost(post redditPost, companyName string) bool {
	if r.companies.Extract(post.Title, post.Selftext, companyName) != companyName {
		return false
	}

	fullText := strings.ToLower(post.Title + " " + post.Selftext)
	matched := false
	for _, re := range redditInterviewPatterns {
		if re.MatchString(fullText) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	if len(post.Title)+len(post.Selftext) <= 150 {
		return false
	}
	if containsAny(fullText, redditFalsePositiveCues) {
		return false
	}
	log.Debug().Str("title", truncateRunes(post.Title, 50)).Str("company", companyName).Msg("Valid interview post found")
	return true
}

// Extract fetches the post through the .json endpoint and builds a
// Record from the submission.
func (r *Reddit) Extract(ctx context.Context, rawURL, targetCompany string) (*Record, error) {
	jsonURL := strings.TrimRight(rawURL, "/") + ".json"
	body, err := r.engine.SafeRequest(ctx, jsonURL)
	if err != nil {
		return nil, err
	}

	// The endpoint answers [post listing, comment listing].
	var listings []redditListing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", jsonURL, err)
	}
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return nil, fmt.Errorf("%w: empty listing at %s", ErrRejected, rawURL)
	}
	post := listings[0].Data.Children[0].Data

	title := strings.TrimSpace(post.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: missing title at %s", ErrRejected, rawURL)
	}
	content := strings.TrimSpace(post.Selftext)
	if len(content) < minContentChars {
		return nil, fmt.Errorf("%w: content under %d chars at %s", ErrRejected, minContentChars, rawURL)
	}
	if r.engine.IsDuplicateContent(content) {
		return nil, fmt.Errorf("%w: duplicate content at %s", ErrRejected, rawURL)
	}

	date := redditDate(post.CreatedUTC)
	count, details := roundsInfo(content)
	return &Record{
		Title:                title,
		Content:              content,
		SourceURL:            rawURL,
		SourcePlatform:       r.Platform(),
		Company:              r.companies.Extract(title, content, targetCompany),
		Role:                 roleFromText(title, content, redditRolePatterns),
		ExperienceDate:       date,
		RoundsCount:          count,
		RoundsDetails:        details,
		DifficultyIndicators: difficultyIndicators(content, defaultDifficultyCues),
		Outcome:              outcomeFromText(content, redditPositiveOutcomes, redditNegativeOutcomes),
		TimeWeight:           scraperTimeWeight(r.calc, date),
		Upvotes:              post.Ups,
		CommentsCount:        post.NumComments,
		Subreddit:            post.Subreddit,
	}, nil
}

func redditSearchTerms(companyName string) []string {
	return []string{
		companyName + " interview experience",
		companyName + " coding interview",
		companyName + " software engineer interview",
		companyName + " onsite interview",
		companyName + " phone screen",
	}
}

func companySubreddits(companyName string) []string {
	lower := strings.ToLower(companyName)
	return []string{lower, lower + "careers", lower + "employees"}
}

// redditDate converts the created_utc epoch; absent timestamps fall
// back a month.
func redditDate(createdUTC float64) time.Time {
	if createdUTC <= 0 {
		return fallbackDate(30)
	}
	return time.Unix(int64(createdUTC), 0).UTC()
}
