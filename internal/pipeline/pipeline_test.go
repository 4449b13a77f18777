package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"interview-intel/internal/company"
	"interview-intel/internal/crawl"
	"interview-intel/internal/decay"
	"interview-intel/internal/insights"
	"interview-intel/internal/sources"
	"interview-intel/internal/store"
	"interview-intel/internal/topics"
)

// fakeStore is an in-memory Store implementation for pipeline tests.
type fakeStore struct {
	mu           sync.Mutex
	nextID       int64
	experiences  map[string][]*store.Experience
	byURL        map[string]*store.Experience
	mentions     map[int64][]store.TopicMention
	insights     map[string][]store.CompanyInsight
	replaceCalls int

	countErr map[string]error
	pingErr  error
	totals   store.Totals
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		experiences: make(map[string][]*store.Experience),
		byURL:       make(map[string]*store.Experience),
		mentions:    make(map[int64][]store.TopicMention),
		insights:    make(map[string][]store.CompanyInsight),
		countErr:    make(map[string]error),
	}
}

// seed registers an experience directly, bypassing the upsert path.
func (f *fakeStore) seed(companyName string, exp store.Experience) *store.Experience {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	exp.ID = f.nextID
	exp.Company = companyName
	stored := exp
	f.experiences[companyName] = append(f.experiences[companyName], &stored)
	if stored.SourceURL != "" {
		f.byURL[stored.SourceURL] = &stored
	}
	return &stored
}

func (f *fakeStore) UpsertExperience(ctx context.Context, exp *store.Experience) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byURL[exp.SourceURL]; ok {
		return existing.ID, false, nil
	}
	f.nextID++
	stored := *exp
	stored.ID = f.nextID
	if stored.ScrapedAt.IsZero() {
		stored.ScrapedAt = time.Now().UTC()
	}
	f.experiences[stored.Company] = append(f.experiences[stored.Company], &stored)
	f.byURL[stored.SourceURL] = &stored
	return stored.ID, true, nil
}

func (f *fakeStore) CountExperiences(ctx context.Context, companyName string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.countErr[companyName]; err != nil {
		return 0, err
	}
	return len(f.experiences[companyName]), nil
}

func (f *fakeStore) LatestScrapedAt(ctx context.Context, companyName string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest time.Time
	for _, exp := range f.experiences[companyName] {
		if exp.ScrapedAt.After(latest) {
			latest = exp.ScrapedAt
		}
	}
	return latest, nil
}

func (f *fakeStore) ListExperiences(ctx context.Context, companyName string) ([]store.Experience, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Experience, 0, len(f.experiences[companyName]))
	for _, exp := range f.experiences[companyName] {
		out = append(out, *exp)
	}
	return out, nil
}

func (f *fakeStore) ListExperiencesPage(ctx context.Context, companyName string, limit, offset int) ([]store.Experience, int, error) {
	all, err := f.ListExperiences(ctx, companyName)
	if err != nil {
		return nil, 0, err
	}
	if offset > len(all) {
		offset = len(all)
	}
	end := min(offset+limit, len(all))
	return all[offset:end], len(all), nil
}

func (f *fakeStore) ListUnprocessed(ctx context.Context, companyName string, ttl time.Duration) ([]store.Experience, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-ttl)
	var out []store.Experience
	for _, exp := range f.experiences[companyName] {
		if !exp.ProcessedAt.Valid || exp.ProcessedAt.Time.Before(cutoff) {
			out = append(out, *exp)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveMentions(ctx context.Context, experienceID int64, mentions []store.TopicMention) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, list := range f.experiences {
		for _, exp := range list {
			if exp.ID == experienceID {
				exp.ProcessedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
				f.mentions[experienceID] = append([]store.TopicMention(nil), mentions...)
				return nil
			}
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) ReplaceInsights(ctx context.Context, companyName string, rows []store.CompanyInsight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.experiences[companyName]; !ok {
		return store.ErrNotFound
	}
	f.replaceCalls++
	f.insights[companyName] = append([]store.CompanyInsight(nil), rows...)
	return nil
}

func (f *fakeStore) ListInsights(ctx context.Context, companyName string) ([]store.CompanyInsight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.CompanyInsight(nil), f.insights[companyName]...), nil
}

func (f *fakeStore) GetCompany(ctx context.Context, name string) (*store.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.experiences[name]; !ok {
		return nil, store.ErrNotFound
	}
	return &store.Company{ID: 1, Name: name}, nil
}

func (f *fakeStore) ListCompanies(ctx context.Context) ([]store.CompanyCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.CompanyCount
	for name, list := range f.experiences {
		out = append(out, store.CompanyCount{
			Company:         store.Company{Name: name},
			ExperienceCount: len(list),
		})
	}
	return out, nil
}

func (f *fakeStore) Totals(ctx context.Context) (*store.Totals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	totals := f.totals
	return &totals, nil
}

func (f *fakeStore) Ping(ctx context.Context) error    { return f.pingErr }
func (f *fakeStore) Migrate(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                      { return nil }

func (f *fakeStore) mentionCount(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.mentions[id])
}

func (f *fakeStore) processed(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, list := range f.experiences {
		for _, exp := range list {
			if exp.ID == id {
				return exp.ProcessedAt.Valid
			}
		}
	}
	return false
}

// stubAdapter serves canned records for fixed URLs.
type stubAdapter struct {
	platform   string
	urls       []string
	records    map[string]*sources.Record
	extractErr error

	mu            sync.Mutex
	discoverCalls int
}

func (a *stubAdapter) Platform() string { return a.platform }

func (a *stubAdapter) DiscoverURLs(ctx context.Context, companyName string, maxPages int) []string {
	a.mu.Lock()
	a.discoverCalls++
	a.mu.Unlock()
	return a.urls
}

func (a *stubAdapter) Extract(ctx context.Context, url, targetCompany string) (*sources.Record, error) {
	if a.extractErr != nil {
		return nil, a.extractErr
	}
	rec, ok := a.records[url]
	if !ok {
		return nil, sources.ErrRejected
	}
	return rec, nil
}

func (a *stubAdapter) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.discoverCalls
}

const sampleContent = "First round was an online coding test with two questions on arrays and " +
	"strings, one needing a sliding window and the other a hash map. The second round went " +
	"deep into dynamic programming and binary tree traversal, and the interviewer pushed for " +
	"an optimal solution with a clear time complexity argument. The final round covered " +
	"system design, where I had to design a URL shortener with a load balancer and a caching " +
	"layer in front of the database. Difficult overall but the interviewers stayed friendly."

// blandContent has no taxonomy keywords at all.
const blandContent = "The campus cafeteria served wonderful pasta and the lobby fountain was " +
	"calming. Everyone wore comfortable shoes and the plants near the windows looked very " +
	"healthy. Lunch lasted a pleasant forty minutes and the weather outside stayed sunny."

func stubRecord(url, companyName, content string, daysAgo int) *sources.Record {
	return &sources.Record{
		Title:          companyName + " Interview Experience",
		Content:        content,
		SourceURL:      url,
		SourcePlatform: "stub",
		Company:        companyName,
		Role:           "Software Engineer",
		ExperienceDate: time.Now().AddDate(0, 0, -daysAgo),
		RoundsCount:    3,
		Outcome:        "offer",
		TimeWeight:     0.9,
	}
}

func seedExperience(url string, scrapedAt time.Time) store.Experience {
	return store.Experience{
		Title:          "Onsite loop",
		Content:        sampleContent,
		SourceURL:      url,
		SourcePlatform: "stub",
		Role:           "Software Engineer",
		ExperienceDate: scrapedAt.AddDate(0, -1, 0),
		ScrapedAt:      scrapedAt,
		TimeWeight:     0.8,
		Outcome:        "offer",
	}
}

func newTestManager(t *testing.T, st store.Store, srcs ...Source) *Manager {
	t.Helper()
	calc := decay.NewCalculator(0.08)
	extractor, err := topics.NewExtractor(calc)
	if err != nil {
		t.Fatalf("topics.NewExtractor returned error: %v", err)
	}
	companies, err := company.NewExtractor()
	if err != nil {
		t.Fatalf("company.NewExtractor returned error: %v", err)
	}
	generator := insights.NewGenerator(extractor, 3)
	return NewManager(st, srcs, extractor, generator, companies, Config{})
}

func TestRunCompleteAnalysisFullFlow(t *testing.T) {
	st := newFakeStore()
	adapter := &stubAdapter{
		platform: "stub",
		urls:     []string{"https://stub.test/a", "https://stub.test/b", "https://stub.test/c"},
		records: map[string]*sources.Record{
			"https://stub.test/a": stubRecord("https://stub.test/a", "Amazon", sampleContent, 30),
			"https://stub.test/b": stubRecord("https://stub.test/b", "Amazon", sampleContent+" There were behavioral questions about leadership too.", 60),
			"https://stub.test/c": stubRecord("https://stub.test/c", "Amazon", sampleContent+" They also probed concurrency and locking.", 90),
		},
	}
	m := newTestManager(t, st, Source{Adapter: adapter})

	result := m.RunCompleteAnalysis(context.Background(), "Amazon", 3, false)

	if result.Status != StatusSuccess {
		t.Fatalf("Expected status %q, got %q (error: %s)", StatusSuccess, result.Status, result.Error)
	}
	if len(result.RunID) != 8 {
		t.Errorf("Expected 8-char run id, got %q", result.RunID)
	}
	wantStages := []string{StageDataCollection, StageAnalysis, StageInsights}
	if len(result.StagesCompleted) != len(wantStages) {
		t.Fatalf("Expected %d stages, got %v", len(wantStages), result.StagesCompleted)
	}
	for i, stage := range wantStages {
		if result.StagesCompleted[i] != stage {
			t.Errorf("Expected stage %d to be %q, got %q", i, stage, result.StagesCompleted[i])
		}
	}

	dc := result.DataCollection
	if dc == nil {
		t.Fatal("Expected data collection results")
	}
	if !dc.ScrapingPerformed {
		t.Error("Expected scraping to be performed on an empty store")
	}
	if dc.NewlyScraped != 3 || dc.TotalExperiences != 3 {
		t.Errorf("Expected 3 newly scraped and 3 total, got %d and %d", dc.NewlyScraped, dc.TotalExperiences)
	}
	pr := dc.PlatformResults["stub"]
	if pr == nil || pr.ScrapedCount != 3 {
		t.Fatalf("Expected platform result with 3 scraped, got %+v", pr)
	}
	if pr.SuccessRate != 1.0 {
		t.Errorf("Expected success rate 1.0, got %v", pr.SuccessRate)
	}

	ar := result.AnalysisResults
	if ar == nil {
		t.Fatal("Expected analysis results")
	}
	if ar.ExperiencesAnalyzed != 3 {
		t.Errorf("Expected 3 experiences analyzed, got %d", ar.ExperiencesAnalyzed)
	}
	if ar.TotalTopicsFound == 0 || len(ar.UniqueTopics) == 0 {
		t.Errorf("Expected topics from keyword-rich content, got %d total %d unique",
			ar.TotalTopicsFound, len(ar.UniqueTopics))
	}

	if result.Insights == nil || result.Insights.Status != insights.StatusSuccess {
		t.Fatalf("Expected successful insights, got %+v", result.Insights)
	}
	if result.Insights.SampleSize != 3 {
		t.Errorf("Expected sample size 3, got %d", result.Insights.SampleSize)
	}
	if st.replaceCalls != 1 || len(st.insights["Amazon"]) == 0 {
		t.Errorf("Expected stored insight rollup, got %d calls %d rows",
			st.replaceCalls, len(st.insights["Amazon"]))
	}

	if result.Recommendations == nil {
		t.Fatal("Expected preparation recommendations")
	}
	if len(result.Recommendations.StudyPlan) == 0 {
		t.Error("Expected a non-empty study plan")
	}

	perf := result.Performance
	if perf == nil || perf.SessionStats == nil {
		t.Fatal("Expected performance metrics with session stats")
	}
	if perf.SessionStats.ExperiencesScraped != 3 {
		t.Errorf("Expected 3 experiences scraped in session, got %d", perf.SessionStats.ExperiencesScraped)
	}
	sp := perf.SessionStats.ScraperPerformance["stub"]
	if sp.Attempted != 1 || sp.Successful != 3 {
		t.Errorf("Expected scraper performance 1 attempt 3 successful, got %+v", sp)
	}
}

func TestRunCompleteAnalysisNoData(t *testing.T) {
	st := newFakeStore()
	adapter := &stubAdapter{platform: "stub"}
	m := newTestManager(t, st, Source{Adapter: adapter})

	result := m.RunCompleteAnalysis(context.Background(), "Amazon", 10, false)

	if result.Status != StatusNoData {
		t.Fatalf("Expected status %q, got %q", StatusNoData, result.Status)
	}
	if result.Message != "No interview experiences found for analysis" {
		t.Errorf("Unexpected message: %q", result.Message)
	}
	if len(result.StagesCompleted) != 1 || result.StagesCompleted[0] != StageDataCollection {
		t.Errorf("Expected only the collection stage, got %v", result.StagesCompleted)
	}
	if result.AnalysisResults != nil || result.Insights != nil || result.Recommendations != nil {
		t.Error("Expected no analysis, insights, or recommendations without data")
	}
}

func TestCollectionSkipsFreshData(t *testing.T) {
	st := newFakeStore()
	now := time.Now().UTC()
	st.seed("Amazon", seedExperience("https://stub.test/s1", now.Add(-time.Hour)))
	st.seed("Amazon", seedExperience("https://stub.test/s2", now.Add(-2*time.Hour)))
	adapter := &stubAdapter{platform: "stub", urls: []string{"https://stub.test/x"}}
	m := newTestManager(t, st, Source{Adapter: adapter})

	result := m.RunCompleteAnalysis(context.Background(), "Amazon", 2, false)

	if result.Status != StatusSuccess {
		t.Fatalf("Expected status %q, got %q (error: %s)", StatusSuccess, result.Status, result.Error)
	}
	if result.DataCollection.ScrapingPerformed {
		t.Error("Expected fresh data to skip scraping")
	}
	if adapter.calls() != 0 {
		t.Errorf("Expected no discovery calls, got %d", adapter.calls())
	}
	if result.DataCollection.ExistingExperiences != 2 || result.DataCollection.NewlyScraped != 0 {
		t.Errorf("Expected 2 existing and 0 new, got %d and %d",
			result.DataCollection.ExistingExperiences, result.DataCollection.NewlyScraped)
	}
	// Two processed experiences are below the minimum sample.
	if result.Insights == nil || result.Insights.Status != insights.StatusInsufficientData {
		t.Errorf("Expected insufficient_data insights, got %+v", result.Insights)
	}
	if result.Recommendations != nil {
		t.Error("Expected no recommendations without topic insights")
	}
}

func TestCollectionForceRefresh(t *testing.T) {
	st := newFakeStore()
	now := time.Now().UTC()
	st.seed("Amazon", seedExperience("https://stub.test/s1", now.Add(-time.Hour)))
	st.seed("Amazon", seedExperience("https://stub.test/s2", now.Add(-time.Hour)))
	adapter := &stubAdapter{platform: "stub"}
	m := newTestManager(t, st, Source{Adapter: adapter})

	result := m.RunCompleteAnalysis(context.Background(), "Amazon", 2, true)

	if !result.DataCollection.ScrapingPerformed {
		t.Error("Expected force refresh to scrape despite fresh data")
	}
	if adapter.calls() != 1 {
		t.Errorf("Expected 1 discovery call, got %d", adapter.calls())
	}
}

func TestCollectionScrapesWhenStale(t *testing.T) {
	st := newFakeStore()
	stale := time.Now().UTC().Add(-8 * 24 * time.Hour)
	st.seed("Amazon", seedExperience("https://stub.test/s1", stale))
	st.seed("Amazon", seedExperience("https://stub.test/s2", stale))
	st.seed("Amazon", seedExperience("https://stub.test/s3", stale))
	adapter := &stubAdapter{platform: "stub"}
	m := newTestManager(t, st, Source{Adapter: adapter})

	result := m.RunCompleteAnalysis(context.Background(), "Amazon", 3, false)

	if result.Status != StatusSuccess {
		t.Fatalf("Expected status %q, got %q (error: %s)", StatusSuccess, result.Status, result.Error)
	}
	if !result.DataCollection.ScrapingPerformed {
		t.Error("Expected stale data to trigger scraping")
	}
	if result.DataCollection.NewlyScraped != 0 {
		t.Errorf("Expected 0 newly scraped from an empty adapter, got %d", result.DataCollection.NewlyScraped)
	}
	// All three stale experiences still feed the analysis half.
	if result.Insights == nil || result.Insights.SampleSize != 3 {
		t.Fatalf("Expected insights over all 3 stored experiences, got %+v", result.Insights)
	}
	if result.Insights.Status != insights.StatusSuccess {
		t.Errorf("Expected successful insights, got %q", result.Insights.Status)
	}
}

func TestAdapterFailureIsolation(t *testing.T) {
	st := newFakeStore()
	bad := &stubAdapter{
		platform:   "broken",
		urls:       []string{"https://broken.test/a"},
		extractErr: crawl.ErrHostCircuitOpen,
	}
	good := &stubAdapter{
		platform: "stub",
		urls:     []string{"https://stub.test/a", "https://stub.test/b"},
		records: map[string]*sources.Record{
			"https://stub.test/a": stubRecord("https://stub.test/a", "Amazon", sampleContent, 20),
			"https://stub.test/b": stubRecord("https://stub.test/b", "Amazon", sampleContent+" Graph traversal came up as well.", 40),
		},
	}
	m := newTestManager(t, st, Source{Adapter: bad}, Source{Adapter: good})

	result := m.RunCompleteAnalysis(context.Background(), "Amazon", 4, false)

	if result.Status != StatusSuccess {
		t.Fatalf("Expected one broken adapter to be tolerated, got status %q (error: %s)",
			result.Status, result.Error)
	}
	brokenResult := result.DataCollection.PlatformResults["broken"]
	if brokenResult == nil || brokenResult.Error == "" {
		t.Fatalf("Expected broken platform to report its error, got %+v", brokenResult)
	}
	if brokenResult.ScrapedCount != 0 {
		t.Errorf("Expected broken platform to scrape nothing, got %d", brokenResult.ScrapedCount)
	}
	goodResult := result.DataCollection.PlatformResults["stub"]
	if goodResult == nil || goodResult.ScrapedCount != 2 {
		t.Fatalf("Expected healthy platform to scrape 2, got %+v", goodResult)
	}
	if result.DataCollection.NewlyScraped != 2 {
		t.Errorf("Expected 2 newly scraped in total, got %d", result.DataCollection.NewlyScraped)
	}
}

func TestCollectionSkipsRejectedURLs(t *testing.T) {
	st := newFakeStore()
	adapter := &stubAdapter{
		platform: "stub",
		urls:     []string{"https://stub.test/a", "https://stub.test/junk1", "https://stub.test/junk2"},
		records: map[string]*sources.Record{
			"https://stub.test/a": stubRecord("https://stub.test/a", "Amazon", sampleContent, 15),
		},
	}
	m := newTestManager(t, st, Source{Adapter: adapter})

	result := m.RunCompleteAnalysis(context.Background(), "Amazon", 10, false)

	pr := result.DataCollection.PlatformResults["stub"]
	if pr == nil {
		t.Fatal("Expected a platform result")
	}
	if pr.ScrapedCount != 1 {
		t.Errorf("Expected 1 scraped with 2 rejections, got %d", pr.ScrapedCount)
	}
	if pr.SuccessRate != 0.33 {
		t.Errorf("Expected success rate 0.33, got %v", pr.SuccessRate)
	}
	if pr.Error != "" {
		t.Errorf("Expected rejections not to count as a platform error, got %q", pr.Error)
	}
}

func TestAnalyzeMarksZeroTopicExperiences(t *testing.T) {
	st := newFakeStore()
	exp := st.seed("Acme", func() store.Experience {
		e := seedExperience("https://stub.test/bland", time.Now().UTC())
		e.Content = blandContent
		e.Title = "Campus visit notes"
		return e
	}())
	m := newTestManager(t, st)

	out, err := m.analyzeExperiences(context.Background(), zerolog.Nop(), "Acme")
	if err != nil {
		t.Fatalf("analyzeExperiences returned error: %v", err)
	}
	if out.ExperiencesAnalyzed != 1 {
		t.Fatalf("Expected 1 experience analyzed, got %d", out.ExperiencesAnalyzed)
	}
	if out.TotalTopicsFound != 0 {
		t.Errorf("Expected no topics in bland content, got %d", out.TotalTopicsFound)
	}
	if !st.processed(exp.ID) {
		t.Error("Expected zero-topic experience to still be marked processed")
	}
	if st.mentionCount(exp.ID) != 0 {
		t.Errorf("Expected no stored mentions, got %d", st.mentionCount(exp.ID))
	}

	// A second pass within the analysis TTL finds nothing to do.
	again, err := m.analyzeExperiences(context.Background(), zerolog.Nop(), "Acme")
	if err != nil {
		t.Fatalf("analyzeExperiences returned error: %v", err)
	}
	if again.ExperiencesAnalyzed != 0 {
		t.Errorf("Expected recently processed experience to be skipped, got %d analyzed",
			again.ExperiencesAnalyzed)
	}
}

func TestRunBatchAnalysisDedupAndSummary(t *testing.T) {
	st := newFakeStore()
	now := time.Now().UTC()
	for i, url := range []string{"https://stub.test/a1", "https://stub.test/a2", "https://stub.test/a3"} {
		st.seed("Amazon", seedExperience(url, now.Add(-time.Duration(i+1)*time.Hour)))
	}
	m := newTestManager(t, st)

	batch := m.RunBatchAnalysis(context.Background(), []string{"Amazon", "amazon", "Google"}, 3)

	if len(batch.CompaniesProcessed) != 2 {
		t.Fatalf("Expected duplicates collapsed to 2 runs, got %d", len(batch.CompaniesProcessed))
	}
	if batch.CompaniesProcessed[0].Company != "Amazon" || batch.CompaniesProcessed[1].Company != "Google" {
		t.Errorf("Expected input order preserved, got %q then %q",
			batch.CompaniesProcessed[0].Company, batch.CompaniesProcessed[1].Company)
	}
	if batch.CompaniesProcessed[1].Status != StatusNoData {
		t.Errorf("Expected Google to report no_data, got %q", batch.CompaniesProcessed[1].Status)
	}
	if len(batch.Errors) != 0 {
		t.Errorf("Expected no errors, got %+v", batch.Errors)
	}
	summary := batch.SummaryStats
	if summary == nil {
		t.Fatal("Expected summary stats")
	}
	if summary.SuccessfulCompanies != 1 || summary.FailedCompanies != 0 {
		t.Errorf("Expected 1 successful and 0 failed, got %d and %d",
			summary.SuccessfulCompanies, summary.FailedCompanies)
	}
	if summary.TotalExperiencesAnalyzed != 3 {
		t.Errorf("Expected 3 experiences analyzed, got %d", summary.TotalExperiencesAnalyzed)
	}
	if summary.TotalUniqueTopicsFound == 0 {
		t.Error("Expected unique topics from the Amazon corpus")
	}
}

func TestRunBatchAnalysisIsolatesFailures(t *testing.T) {
	st := newFakeStore()
	st.countErr["Amazon"] = errors.New("connection refused")
	m := newTestManager(t, st)

	batch := m.RunBatchAnalysis(context.Background(), []string{"Amazon", "Google"}, 5)

	if len(batch.CompaniesProcessed) != 2 {
		t.Fatalf("Expected both companies in the result, got %d", len(batch.CompaniesProcessed))
	}
	if len(batch.Errors) != 1 {
		t.Fatalf("Expected exactly one error entry, got %+v", batch.Errors)
	}
	if batch.Errors[0].Company != "Amazon" {
		t.Errorf("Expected the Amazon run to fail, got %q", batch.Errors[0].Company)
	}
	if batch.CompaniesProcessed[1].Status != StatusNoData {
		t.Errorf("Expected the Google run to proceed, got status %q", batch.CompaniesProcessed[1].Status)
	}
	if batch.SummaryStats.FailedCompanies != 1 {
		t.Errorf("Expected 1 failed company, got %d", batch.SummaryStats.FailedCompanies)
	}
}

func TestHealthReport(t *testing.T) {
	st := newFakeStore()
	st.totals = store.Totals{Companies: 5, Experiences: 120, Topics: 40, RecentScrapes: 12}
	m := newTestManager(t, st)

	report := m.Health(context.Background())

	if !report.DatabaseHealth {
		t.Error("Expected healthy database")
	}
	if report.SystemPerformance == nil || report.SystemPerformance.Experiences != 120 {
		t.Errorf("Expected totals in the report, got %+v", report.SystemPerformance)
	}
	if report.SessionStats == nil {
		t.Fatal("Expected session stats")
	}
	if report.Timestamp.IsZero() {
		t.Error("Expected a timestamp")
	}

	st.pingErr = errors.New("connection refused")
	report = m.Health(context.Background())
	if report.DatabaseHealth {
		t.Error("Expected ping failure to mark the database unhealthy")
	}
}

func TestCanonicalName(t *testing.T) {
	m := newTestManager(t, newFakeStore())
	tests := []struct {
		in   string
		want string
	}{
		{"  amazon ", "Amazon"},
		{"GOOGLE", "Google"},
		{"cred", "Cred"},
		{"acme corp", "Acme corp"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := m.canonicalName(tt.in); got != tt.want {
			t.Errorf("canonicalName(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestCompanyLockReuse(t *testing.T) {
	m := newTestManager(t, newFakeStore())
	first := m.companyLock("Amazon")
	second := m.companyLock("Amazon")
	other := m.companyLock("Google")
	if first != second {
		t.Error("Expected the same mutex for repeated lookups of one company")
	}
	if first == other {
		t.Error("Expected distinct mutexes for distinct companies")
	}
}

func TestRunIDFreshPerRun(t *testing.T) {
	m := newTestManager(t, newFakeStore())
	first := m.RunCompleteAnalysis(context.Background(), "Amazon", 5, false)
	second := m.RunCompleteAnalysis(context.Background(), "Amazon", 5, false)
	if len(first.RunID) != 8 || len(second.RunID) != 8 {
		t.Fatalf("Expected 8-char run ids, got %q and %q", first.RunID, second.RunID)
	}
	if first.RunID == second.RunID {
		t.Error("Expected a fresh run id per call")
	}
}

func TestExperienceFromRecord(t *testing.T) {
	rec := stubRecord("https://stub.test/r", "Amazon", sampleContent, 45)
	rec.RoundsDetails = []sources.RoundDetail{{RoundNumber: 1, Description: "Phone screen"}}
	rec.DifficultyIndicators = []string{"medium", "hard"}
	rec.DifficultyRating = 3.5

	exp := experienceFromRecord(rec)

	if exp.Company != "Amazon" || exp.Industry == "" {
		t.Errorf("Expected company with industry, got %q / %q", exp.Company, exp.Industry)
	}
	if len(exp.RoundsDetails) != 1 || exp.RoundsDetails[0].Description != "Phone screen" {
		t.Errorf("Expected rounds carried over, got %+v", exp.RoundsDetails)
	}
	if len(exp.DifficultyIndicators) != 2 {
		t.Errorf("Expected 2 difficulty indicators, got %v", exp.DifficultyIndicators)
	}
	if !exp.DifficultyScore.Valid || exp.DifficultyScore.Float64 != 3.5 {
		t.Errorf("Expected difficulty score 3.5, got %+v", exp.DifficultyScore)
	}

	rec.DifficultyRating = 0
	if exp := experienceFromRecord(rec); exp.DifficultyScore.Valid {
		t.Error("Expected no difficulty score without a rating")
	}
}
