package pipeline

import (
	"time"

	"interview-intel/internal/crawl"
	"interview-intel/internal/insights"
	"interview-intel/internal/ratelimit"
	"interview-intel/internal/store"
)

// Run statuses reported by the orchestrator.
const (
	StatusSuccess = "success"
	StatusNoData  = "no_data"
	StatusError   = "error"
)

// Stage names in completion order.
const (
	StageDataCollection = "data_collection"
	StageAnalysis       = "analysis"
	StageInsights       = "insights_generation"
)

// AnalysisResult is the full outcome of one pipeline run for one
// company. RunID is a fresh correlation id assigned per run.
type AnalysisResult struct {
	Company         string               `json:"company"`
	RunID           string               `json:"run_id"`
	AnalysisDate    time.Time            `json:"analysis_date"`
	Status          string               `json:"status"`
	Message         string               `json:"message,omitempty"`
	Error           string               `json:"error,omitempty"`
	StagesCompleted []string             `json:"stages_completed"`
	DataCollection  *CollectionResult    `json:"data_collection,omitempty"`
	AnalysisResults *AnalysisStageResult `json:"analysis_results,omitempty"`
	Insights        *insights.Report     `json:"insights,omitempty"`
	Performance     *PerformanceMetrics  `json:"performance_metrics,omitempty"`
	Recommendations *Recommendations     `json:"recommendations,omitempty"`
}

// CollectionResult summarizes the data collection stage.
type CollectionResult struct {
	ExistingExperiences int                        `json:"existing_experiences"`
	NewlyScraped        int                        `json:"newly_scraped"`
	TotalExperiences    int                        `json:"total_experiences"`
	ScrapingPerformed   bool                       `json:"scraping_performed"`
	PlatformResults     map[string]*PlatformResult `json:"platform_results"`
	CollectionSeconds   float64                    `json:"collection_time_seconds"`
}

// PlatformResult is one adapter's share of a collection stage. Error
// is set when the platform was abandoned mid-run, for example because
// its host circuit opened; the other platforms still run.
type PlatformResult struct {
	ScrapedCount int     `json:"scraped_count"`
	TimeSeconds  float64 `json:"time_seconds"`
	SuccessRate  float64 `json:"success_rate,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// AnalysisStageResult summarizes the topic extraction stage.
type AnalysisStageResult struct {
	ExperiencesAnalyzed int            `json:"experiences_analyzed"`
	TotalTopicsFound    int            `json:"total_topics_found"`
	UniqueTopics        []string       `json:"unique_topics"`
	TopicDistribution   map[string]int `json:"topic_distribution"`
	AnalysisSeconds     float64        `json:"analysis_time_seconds"`
}

// PerformanceMetrics carries run timing plus a snapshot of the
// manager's session counters at completion time.
type PerformanceMetrics struct {
	TotalTimeSeconds     float64       `json:"total_time_seconds"`
	ExperiencesPerSecond float64       `json:"experiences_per_second"`
	TopicsPerSecond      float64       `json:"topics_per_second"`
	SessionStats         *SessionStats `json:"session_stats"`
}

// SessionStats is a point-in-time copy of the counters a Manager
// accumulates across all runs since construction.
type SessionStats struct {
	StartTime          time.Time                     `json:"start_time"`
	CompaniesProcessed int                           `json:"companies_processed"`
	ExperiencesScraped int                           `json:"experiences_scraped"`
	TopicsExtracted    int                           `json:"topics_extracted"`
	InsightsGenerated  int                           `json:"insights_generated"`
	ErrorsEncountered  int                           `json:"errors_encountered"`
	ScraperPerformance map[string]ScraperPerformance `json:"scraper_performance"`
}

// ScraperPerformance counts collection attempts and stored records per
// platform across the session.
type ScraperPerformance struct {
	Attempted  int `json:"attempted"`
	Successful int `json:"successful"`
}

// BatchResult is the outcome of analyzing several companies.
type BatchResult struct {
	CompaniesProcessed []*AnalysisResult `json:"companies_processed"`
	TotalTimeSeconds   float64           `json:"total_time_seconds"`
	SummaryStats       *BatchSummary     `json:"summary_stats"`
	Errors             []BatchError      `json:"errors"`
}

// BatchError records one company whose run ended with StatusError.
type BatchError struct {
	Company string `json:"company"`
	Error   string `json:"error"`
}

// BatchSummary aggregates the successful runs of a batch.
type BatchSummary struct {
	SuccessfulCompanies      int     `json:"successful_companies"`
	FailedCompanies          int     `json:"failed_companies"`
	TotalExperiencesAnalyzed int     `json:"total_experiences_analyzed"`
	TotalUniqueTopicsFound   int     `json:"total_unique_topics_found"`
	AverageProcessingTime    float64 `json:"average_processing_time"`
}

// HealthReport is a point-in-time view of the whole system.
type HealthReport struct {
	Timestamp         time.Time                  `json:"timestamp"`
	DatabaseHealth    bool                       `json:"database_health"`
	ScraperStats      map[string]crawl.Stats     `json:"scraper_stats"`
	RateLimiterStats  map[string]ratelimit.Stats `json:"rate_limiter_stats"`
	SessionStats      *SessionStats              `json:"session_stats"`
	SystemPerformance *store.Totals              `json:"system_performance,omitempty"`
}

// Recommendations is the preparation bundle derived from an insight
// report. It is a pure projection; nothing here touches the store.
type Recommendations struct {
	ImmediateFocus   []FocusItem         `json:"immediate_focus"`
	StudyPlan        map[string]WeekPlan `json:"study_plan"`
	TimeAllocation   map[string]string   `json:"time_allocation,omitempty"`
	PracticeStrategy *PracticeStrategy   `json:"practice_strategy,omitempty"`
	Timeline         map[string]string   `json:"timeline"`
}

// FocusItem flags one high-priority topic for immediate attention.
type FocusItem struct {
	Topic    string `json:"topic"`
	Priority string `json:"priority"`
	Reason   string `json:"reason"`
	Action   string `json:"action"`
}

// WeekPlan assigns one focus topic to a study week.
type WeekPlan struct {
	FocusTopic       string                  `json:"focus_topic"`
	StudyResources   insights.StudyResources `json:"study_resources"`
	EstimatedHours   string                  `json:"estimated_hours"`
	PracticeProblems []string                `json:"practice_problems"`
}

// PracticeStrategy tailors practice advice to the observed difficulty
// profile.
type PracticeStrategy struct {
	DifficultyFocus        string `json:"difficulty_focus"`
	ProblemSolvingApproach string `json:"problem_solving_approach"`
	MockInterviews         string `json:"mock_interviews"`
	SystemDesign           string `json:"system_design"`
}
