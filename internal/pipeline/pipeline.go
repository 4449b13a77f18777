// Package pipeline orchestrates the complete analysis run for a
// company: collect experiences through the source adapters, extract
// topics, generate insights, and derive preparation recommendations.
// Runs for the same company are serialized; runs for different
// companies may proceed concurrently.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"interview-intel/internal/company"
	"interview-intel/internal/config"
	"interview-intel/internal/crawl"
	"interview-intel/internal/decay"
	"interview-intel/internal/insights"
	"interview-intel/internal/ratelimit"
	"interview-intel/internal/robots"
	"interview-intel/internal/sources"
	"interview-intel/internal/store"
	"interview-intel/internal/topics"
)

const (
	// DefaultMaxExperiences caps a collection run when the caller does
	// not say otherwise.
	DefaultMaxExperiences = 20

	// DefaultCollectionTTL is how long stored data stays fresh enough
	// to skip scraping.
	DefaultCollectionTTL = 7 * 24 * time.Hour

	// DefaultAnalysisTTL is how long a processed experience is exempt
	// from re-analysis.
	DefaultAnalysisTTL = 24 * time.Hour

	// DefaultBatchWorkers bounds concurrent company runs in a batch.
	DefaultBatchWorkers = 2

	// defaultMaxPages bounds discovery pagination per adapter.
	defaultMaxPages = 3
)

// Source pairs one platform adapter with the crawl engine and rate
// limiter behind it, so health reporting can reach their counters.
// Engine and Limiter may be nil for synthetic adapters.
type Source struct {
	Adapter sources.Adapter
	Engine  *crawl.Engine
	Limiter *ratelimit.Limiter
}

// Config tunes a Manager. Zero values select the defaults above.
type Config struct {
	CollectionTTL time.Duration
	AnalysisTTL   time.Duration
	MaxPages      int
	BatchWorkers  int
}

// Manager drives the four pipeline stages against the store. One
// Manager is meant to live for the process lifetime; its session
// counters accumulate across runs.
type Manager struct {
	store     store.Store
	sources   []Source
	extractor *topics.Extractor
	generator *insights.Generator
	companies *company.Extractor

	collectionTTL time.Duration
	analysisTTL   time.Duration
	maxPages      int
	batchWorkers  int

	// Overridable in tests.
	now func() time.Time

	mu        sync.Mutex
	companyMu map[string]*sync.Mutex

	statsMu sync.Mutex
	session sessionCounters
}

type sessionCounters struct {
	startTime          time.Time
	companiesProcessed int
	experiencesScraped int
	topicsExtracted    int
	insightsGenerated  int
	errorsEncountered  int
	scrapers           map[string]*ScraperPerformance
}

// NewManager wires the orchestrator. The companies extractor is used
// only to canonicalize company names; srcs may be empty for
// analysis-only deployments.
func NewManager(st store.Store, srcs []Source, extractor *topics.Extractor, generator *insights.Generator, companies *company.Extractor, cfg Config) *Manager {
	if cfg.CollectionTTL <= 0 {
		cfg.CollectionTTL = DefaultCollectionTTL
	}
	if cfg.AnalysisTTL <= 0 {
		cfg.AnalysisTTL = DefaultAnalysisTTL
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = DefaultBatchWorkers
	}
	return &Manager{
		store:         st,
		sources:       srcs,
		extractor:     extractor,
		generator:     generator,
		companies:     companies,
		collectionTTL: cfg.CollectionTTL,
		analysisTTL:   cfg.AnalysisTTL,
		maxPages:      cfg.MaxPages,
		batchWorkers:  cfg.BatchWorkers,
		now:           time.Now,
		companyMu:     make(map[string]*sync.Mutex),
		session: sessionCounters{
			startTime: time.Now().UTC(),
			scrapers:  make(map[string]*ScraperPerformance),
		},
	}
}

// DefaultSources builds the four production adapters, one crawl engine
// and rate limiter per platform, all sharing a robots checker.
func DefaultSources(cfg *config.AppConfig, companies *company.Extractor, calc *decay.Calculator) []Source {
	checker := robots.NewChecker()
	base := crawl.Config{
		UserAgent:              cfg.UserAgent,
		RequestDelay:           time.Duration(cfg.RequestDelaySeconds) * time.Second,
		MaxRetries:             cfg.MaxRetries,
		Timeout:                time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		RespectRobots:          cfg.RespectRobots,
	}

	build := func(platform string, header http.Header, adapter func(*crawl.Engine) sources.Adapter) Source {
		limiter := ratelimit.NewLimiter(cfg.RequestsPerMinute)
		engineCfg := base
		engineCfg.Header = header
		engine := crawl.NewEngine(platform, engineCfg, checker, limiter)
		return Source{Adapter: adapter(engine), Engine: engine, Limiter: limiter}
	}

	return []Source{
		build("geeksforgeeks", nil, func(e *crawl.Engine) sources.Adapter {
			return sources.NewGeeksForGeeks(e, companies, calc, "")
		}),
		build("leetcode", sources.LeetCodeHeaders(), func(e *crawl.Engine) sources.Adapter {
			return sources.NewLeetCode(e, companies, calc, "")
		}),
		build("reddit", sources.RedditHeaders(), func(e *crawl.Engine) sources.Adapter {
			return sources.NewReddit(e, companies, calc, "")
		}),
		build("glassdoor", sources.GlassdoorHeaders(), func(e *crawl.Engine) sources.Adapter {
			return sources.NewGlassdoor(e, companies, calc, "")
		}),
	}
}

// RunCompleteAnalysis runs all four stages for one company and never
// returns an error: failures are reported in the result's Status and
// Error fields so batch callers can aggregate them. maxExperiences <= 0
// selects DefaultMaxExperiences.
func (m *Manager) RunCompleteAnalysis(ctx context.Context, companyName string, maxExperiences int, forceRefresh bool) *AnalysisResult {
	start := m.now()
	if maxExperiences <= 0 {
		maxExperiences = DefaultMaxExperiences
	}
	name := m.canonicalName(companyName)

	lock := m.companyLock(name)
	lock.Lock()
	defer lock.Unlock()

	runID := uuid.NewString()[:8]
	logger := log.With().Str("run_id", runID).Str("company", name).Logger()
	logger.Info().Int("max_experiences", maxExperiences).Bool("force_refresh", forceRefresh).
		Msg("Starting complete analysis pipeline")

	result := &AnalysisResult{
		Company:         name,
		RunID:           runID,
		AnalysisDate:    start.UTC(),
		Status:          StatusSuccess,
		StagesCompleted: []string{},
	}
	fail := func(stage string, err error) *AnalysisResult {
		m.countError()
		logger.Error().Err(err).Str("stage", stage).Msg("Pipeline stage failed")
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}

	// 1. Data collection.
	collection, err := m.collectData(ctx, logger, name, maxExperiences, forceRefresh)
	if err != nil {
		return fail(StageDataCollection, err)
	}
	result.DataCollection = collection
	result.StagesCompleted = append(result.StagesCompleted, StageDataCollection)

	if collection.TotalExperiences == 0 {
		logger.Warn().Msg("No experiences available, stopping after collection")
		result.Status = StatusNoData
		result.Message = "No interview experiences found for analysis"
		return result
	}

	// 2. Topic analysis.
	analysis, err := m.analyzeExperiences(ctx, logger, name)
	if err != nil {
		return fail(StageAnalysis, err)
	}
	result.AnalysisResults = analysis
	result.StagesCompleted = append(result.StagesCompleted, StageAnalysis)

	// 3. Insight generation.
	report, err := m.generateInsights(ctx, logger, name)
	if err != nil {
		return fail(StageInsights, err)
	}
	result.Insights = report
	result.StagesCompleted = append(result.StagesCompleted, StageInsights)

	// 4. Performance metrics and preparation recommendations.
	result.Performance = m.performanceMetrics(start)
	result.Recommendations = BuildRecommendations(report)

	m.countCompany()
	logger.Info().Float64("seconds", result.Performance.TotalTimeSeconds).
		Str("status", result.Status).Msg("Complete analysis pipeline finished")
	return result
}

// collectData refreshes the stored corpus for the company when it is
// missing, thin, or stale, splitting the experience quota evenly across
// adapters. One adapter failing never stops the others.
func (m *Manager) collectData(ctx context.Context, logger zerolog.Logger, name string, maxExperiences int, forceRefresh bool) (*CollectionResult, error) {
	start := m.now()
	out := &CollectionResult{PlatformResults: make(map[string]*PlatformResult)}

	existing, err := m.store.CountExperiences(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to count stored experiences: %w", err)
	}
	out.ExistingExperiences = existing
	out.TotalExperiences = existing

	if len(m.sources) == 0 || !m.shouldScrape(ctx, name, existing, maxExperiences, forceRefresh) {
		logger.Info().Int("existing", existing).Msg("Using cached experience data")
		out.CollectionSeconds = round2(m.now().Sub(start).Seconds())
		return out, nil
	}

	out.ScrapingPerformed = true
	quota := maxExperiences / len(m.sources)

	for _, src := range m.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		platform := src.Adapter.Platform()
		platformStart := m.now()
		m.countAttempt(platform)

		urls := src.Adapter.DiscoverURLs(ctx, name, m.maxPages)
		scraped := 0
		var platformErr error
		for _, u := range urls {
			if scraped >= quota {
				break
			}
			rec, err := src.Adapter.Extract(ctx, u, name)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				if errors.Is(err, crawl.ErrHostCircuitOpen) {
					platformErr = err
					break
				}
				logger.Debug().Err(err).Str("platform", platform).Str("url", u).Msg("Skipping candidate URL")
				continue
			}
			exp := experienceFromRecord(rec)
			if _, _, err := m.store.UpsertExperience(ctx, exp); err != nil {
				logger.Warn().Err(err).Str("url", rec.SourceURL).Msg("Failed to store experience")
				continue
			}
			scraped++
		}

		pr := &PlatformResult{
			ScrapedCount: scraped,
			TimeSeconds:  round2(m.now().Sub(platformStart).Seconds()),
		}
		if platformErr != nil {
			pr.Error = platformErr.Error()
			logger.Warn().Err(platformErr).Str("platform", platform).Msg("Platform collection aborted")
		} else {
			pr.SuccessRate = round2(float64(scraped) / float64(max(len(urls), 1)))
		}
		out.PlatformResults[platform] = pr
		out.NewlyScraped += scraped
		m.countScraped(platform, scraped)
		logger.Info().Str("platform", platform).Int("candidates", len(urls)).Int("scraped", scraped).
			Msg("Platform collection finished")
	}

	total, err := m.store.CountExperiences(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to recount experiences: %w", err)
	}
	out.TotalExperiences = total
	out.CollectionSeconds = round2(m.now().Sub(start).Seconds())
	return out, nil
}

// shouldScrape decides whether the collection stage hits the network.
// Missing data counts as stale.
func (m *Manager) shouldScrape(ctx context.Context, name string, existing, maxExperiences int, forceRefresh bool) bool {
	if forceRefresh {
		return true
	}
	if existing < maxExperiences {
		return true
	}
	latest, err := m.store.LatestScrapedAt(ctx, name)
	if err != nil || latest.IsZero() {
		return true
	}
	return m.now().Sub(latest) > m.collectionTTL
}

// analyzeExperiences extracts topics from every experience that has
// never been processed or whose last analysis is older than the
// analysis TTL. Experiences are marked processed even when zero topics
// are found, so they are not re-analyzed on every run.
func (m *Manager) analyzeExperiences(ctx context.Context, logger zerolog.Logger, name string) (*AnalysisStageResult, error) {
	start := m.now()
	pending, err := m.store.ListUnprocessed(ctx, name, m.analysisTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to load experiences for analysis: %w", err)
	}

	out := &AnalysisStageResult{
		UniqueTopics:      []string{},
		TopicDistribution: make(map[string]int),
	}
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		exp := &pending[i]
		res := m.extractor.Extract(topics.Input{
			Title:          exp.Title,
			Content:        exp.Content,
			ExperienceDate: exp.ExperienceDate,
		})

		mentions := make([]store.TopicMention, 0, len(res.Topics))
		for _, ts := range res.Topics {
			mentions = append(mentions, store.TopicMention{
				Topic:       ts.Topic,
				DisplayName: ts.TopicName,
				Category:    ts.Category,
				Frequency:   ts.RawCount,
				Importance:  ts.ImportanceScore,
				Confidence:  ts.Confidence,
			})
		}
		if err := m.store.SaveMentions(ctx, exp.ID, mentions); err != nil {
			logger.Warn().Err(err).Int64("experience_id", exp.ID).Msg("Failed to store topic mentions")
			continue
		}
		out.ExperiencesAnalyzed++
		out.TotalTopicsFound += len(mentions)
		for _, mention := range mentions {
			out.TopicDistribution[mention.Topic]++
		}
	}

	for topic := range out.TopicDistribution {
		out.UniqueTopics = append(out.UniqueTopics, topic)
	}
	sort.Strings(out.UniqueTopics)

	m.countTopics(out.TotalTopicsFound)
	out.AnalysisSeconds = round2(m.now().Sub(start).Seconds())
	logger.Info().Int("analyzed", out.ExperiencesAnalyzed).Int("topics", out.TotalTopicsFound).
		Msg("Topic analysis finished")
	return out, nil
}

// generateInsights builds the company report from processed
// experiences and replaces the stored insight rollup with the new one.
// An insufficient sample still replaces the rollup, leaving it empty,
// so stale insights never outlive their data.
func (m *Manager) generateInsights(ctx context.Context, logger zerolog.Logger, name string) (*insights.Report, error) {
	all, err := m.store.ListExperiences(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load experiences for insights: %w", err)
	}

	input := make([]insights.Experience, 0, len(all))
	for i := range all {
		if !all[i].Processed() {
			continue
		}
		input = append(input, insights.Experience{
			Title:          all[i].Title,
			Content:        all[i].Content,
			ExperienceDate: all[i].ExperienceDate,
			TimeWeight:     all[i].TimeWeight,
			Outcome:        all[i].Outcome,
		})
	}
	if len(input) == 0 {
		logger.Warn().Msg("No analyzed experiences available for insights generation")
		return &insights.Report{
			Company:      name,
			AnalysisDate: m.now().UTC(),
			Status:       StatusNoData,
			Message:      "No analyzed experiences available for insights generation",
		}, nil
	}

	report := m.generator.Generate(name, input)

	rows := insightRows(report)
	if err := m.store.ReplaceInsights(ctx, name, rows); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to store company insights: %w", err)
	}
	m.countInsights()
	logger.Info().Str("status", report.Status).Int("stored", len(rows)).Msg("Insight generation finished")
	return report, nil
}

func (m *Manager) performanceMetrics(start time.Time) *PerformanceMetrics {
	total := m.now().Sub(start).Seconds()
	denom := total
	if denom < 1 {
		denom = 1
	}
	snap := m.sessionSnapshot()
	return &PerformanceMetrics{
		TotalTimeSeconds:     round2(total),
		ExperiencesPerSecond: round2(float64(snap.ExperiencesScraped) / denom),
		TopicsPerSecond:      round2(float64(snap.TopicsExtracted) / denom),
		SessionStats:         snap,
	}
}

// experienceFromRecord converts an adapter record into a storable
// experience. The company on the record decides attribution; industry
// comes from the curated lookup.
func experienceFromRecord(rec *sources.Record) *store.Experience {
	exp := &store.Experience{
		Company:        rec.Company,
		Industry:       company.Industry(rec.Company),
		Title:          rec.Title,
		Content:        rec.Content,
		SourceURL:      rec.SourceURL,
		SourcePlatform: rec.SourcePlatform,
		Role:           rec.Role,
		ExperienceDate: rec.ExperienceDate,
		TimeWeight:     rec.TimeWeight,
		RoundsCount:    rec.RoundsCount,
		Outcome:        rec.Outcome,
	}
	for _, rd := range rec.RoundsDetails {
		exp.RoundsDetails = append(exp.RoundsDetails, store.RoundDetail{
			RoundNumber: rd.RoundNumber,
			Description: rd.Description,
		})
	}
	exp.DifficultyIndicators = store.StringList(rec.DifficultyIndicators)
	if rec.DifficultyRating > 0 {
		exp.DifficultyScore = sql.NullFloat64{Float64: rec.DifficultyRating, Valid: true}
	}
	return exp
}

// insightRows flattens a report's detailed topics into store rows. A
// report without topic insights yields nil, which clears the rollup.
func insightRows(report *insights.Report) []store.CompanyInsight {
	if report.Topics == nil {
		return nil
	}
	rows := make([]store.CompanyInsight, 0, len(report.Topics.DetailedTopics))
	for _, ti := range report.Topics.DetailedTopics {
		rows = append(rows, store.CompanyInsight{
			Topic:               ti.Topic,
			DisplayName:         ti.TopicName,
			Category:            ti.Category,
			WeightedFrequency:   ti.WeightedFrequency,
			Confidence:          ti.ConfidenceScore,
			SampleSize:          report.SampleSize,
			Priority:            ti.PriorityLevel,
			StudyRecommendation: ti.ActionableInsight,
			AnalysisDate:        report.AnalysisDate,
		})
	}
	return rows
}

// canonicalName normalizes a company name through the disambiguator:
// curated names win their canonical casing, anything else gets its first
// letter capitalized.
func (m *Manager) canonicalName(name string) string {
	return m.companies.Canonical(name)
}

// companyLock returns the mutex serializing runs for one company,
// creating it on first use.
func (m *Manager) companyLock(name string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.companyMu[name]
	if !ok {
		lock = &sync.Mutex{}
		m.companyMu[name] = lock
	}
	return lock
}

func (m *Manager) countAttempt(platform string) {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	perf, ok := m.session.scrapers[platform]
	if !ok {
		perf = &ScraperPerformance{}
		m.session.scrapers[platform] = perf
	}
	perf.Attempted++
}

func (m *Manager) countScraped(platform string, n int) {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.session.experiencesScraped += n
	if perf, ok := m.session.scrapers[platform]; ok {
		perf.Successful += n
	}
}

func (m *Manager) countTopics(n int) {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.session.topicsExtracted += n
}

func (m *Manager) countInsights() {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.session.insightsGenerated++
}

func (m *Manager) countError() {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.session.errorsEncountered++
}

func (m *Manager) countCompany() {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.session.companiesProcessed++
}

// sessionSnapshot copies the counters so results can embed them
// without racing later runs.
func (m *Manager) sessionSnapshot() *SessionStats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	snap := &SessionStats{
		StartTime:          m.session.startTime,
		CompaniesProcessed: m.session.companiesProcessed,
		ExperiencesScraped: m.session.experiencesScraped,
		TopicsExtracted:    m.session.topicsExtracted,
		InsightsGenerated:  m.session.insightsGenerated,
		ErrorsEncountered:  m.session.errorsEncountered,
		ScraperPerformance: make(map[string]ScraperPerformance, len(m.session.scrapers)),
	}
	for platform, perf := range m.session.scrapers {
		snap.ScraperPerformance[platform] = *perf
	}
	return snap
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
