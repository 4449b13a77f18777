package insights

import "time"

// Experience is the slice of a stored interview record the generator consumes.
type Experience struct {
	Title          string
	Content        string
	ExperienceDate time.Time
	TimeWeight     float64
	Outcome        string
}

// Report is the full insight bundle for one company.
type Report struct {
	Company      string    `json:"company"`
	AnalysisDate time.Time `json:"analysis_date"`
	Status       string    `json:"status"`
	Message      string    `json:"message,omitempty"`
	SampleSize   int       `json:"sample_size"`

	DataQuality DataQuality `json:"data_quality"`

	Topics     *TopicInsights         `json:"topic_insights,omitempty"`
	Difficulty *DifficultyTrends      `json:"difficulty_analysis,omitempty"`
	Process    *ProcessInsights       `json:"interview_process_insights,omitempty"`
	Temporal   *TemporalTrends        `json:"temporal_trends,omitempty"`
	StudyRecs  *StudyRecommendations  `json:"study_recommendations,omitempty"`
	Strategy   *PreparationStrategy   `json:"preparation_strategy,omitempty"`
	Success    *SuccessFactors        `json:"success_factors,omitempty"`
	Confidence *StatisticalConfidence `json:"statistical_confidence,omitempty"`

	// Set on the insufficient-data path only.
	Recommendations []string `json:"recommendations,omitempty"`
}

// DataQuality grades the sample the report was built from.
type DataQuality struct {
	QualityScore           float64  `json:"quality_score"`
	SampleAdequacy         string   `json:"sample_adequacy"`
	ConfidenceLevel        string   `json:"confidence_level"`
	SampleSize             int      `json:"sample_size,omitempty"`
	AvgContentLength       int      `json:"avg_content_length,omitempty"`
	AvgConfidence          float64  `json:"avg_confidence,omitempty"`
	AvgTopicsPerExperience float64  `json:"avg_topics_per_experience,omitempty"`
	DataIssues             []string `json:"data_issues,omitempty"`
	Recommendations        []string `json:"recommendations,omitempty"`
}

// TopicInsight is the statistical rollup for a single topic across the sample.
type TopicInsight struct {
	Topic             string          `json:"topic"`
	TopicName         string          `json:"topic_name"`
	Category          string          `json:"category"`
	WeightedFrequency float64         `json:"weighted_frequency"`
	AverageImportance float64         `json:"average_importance"`
	ConfidenceScore   float64         `json:"confidence_score"`
	FrequencyStdDev   float64         `json:"frequency_std_dev"`
	PriorityLevel     string          `json:"priority_level"`
	MentionsCount     int             `json:"mentions_count"`
	ActionableInsight string          `json:"actionable_insight"`
	StudyResources    StudyResources  `json:"study_resources"`
	Difficulty        TopicDifficulty `json:"difficulty_assessment"`
}

// StudyResources lists curated practice material for a topic.
type StudyResources struct {
	PracticeProblems   []string `json:"practice_problems"`
	StudyMaterials     []string `json:"study_materials"`
	EstimatedStudyTime string   `json:"estimated_study_time"`
}

// TopicDifficulty is the per-topic difficulty vote.
type TopicDifficulty struct {
	Assessment   string         `json:"assessment"`
	Confidence   float64        `json:"confidence"`
	Distribution map[string]int `json:"distribution"`
	SampleSize   int            `json:"sample_size,omitempty"`
}

// TopicInsights groups the per-topic rollups, ordered by weighted frequency.
type TopicInsights struct {
	DetailedTopics     []TopicInsight    `json:"detailed_topics"`
	Top5Topics         []string          `json:"top_5_topics"`
	HighPriorityTopics []string          `json:"high_priority_topics"`
	Distribution       TopicDistribution `json:"topic_distribution"`
}

// DistributionSlice is one bucket of a categorical breakdown.
type DistributionSlice struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// TopicDistribution breaks the topic set down by category and priority.
type TopicDistribution struct {
	ByCategory  map[string]DistributionSlice `json:"by_category"`
	ByPriority  map[string]DistributionSlice `json:"by_priority"`
	TotalTopics int                          `json:"total_topics"`
}

// DifficultyTrends is the company-wide difficulty vote.
type DifficultyTrends struct {
	PrimaryDifficulty    string         `json:"primary_difficulty"`
	DifficultyPercentage float64        `json:"difficulty_percentage"`
	Distribution         map[string]int `json:"difficulty_distribution"`
	AverageConfidence    float64        `json:"average_confidence"`
	TrendInsight         string         `json:"trend_insight"`
}

// RoundFrequency is how often one interview round type shows up.
type RoundFrequency struct {
	RoundType        string  `json:"round_type"`
	FrequencyPercent float64 `json:"frequency_percent"`
	Count            int     `json:"count"`
}

// ProcessInsights summarizes the interview round structure.
type ProcessInsights struct {
	CommonRounds      []RoundFrequency `json:"common_rounds"`
	TotalRoundTypes   int              `json:"total_round_types"`
	ProcessInsight    string           `json:"process_insight"`
	RoundDistribution map[string]int   `json:"round_distribution"`
}

// TrendingTopic is a topic whose share moved between the two halves of the sample.
type TrendingTopic struct {
	Topic  string  `json:"topic"`
	Change float64 `json:"change"`
}

// TemporalTrends compares the last six months against everything older.
type TemporalTrends struct {
	TrendAvailable   bool            `json:"trend_available"`
	Message          string          `json:"message,omitempty"`
	RecentPeriod     string          `json:"recent_period,omitempty"`
	OlderPeriod      string          `json:"older_period,omitempty"`
	RecentCount      int             `json:"recent_count,omitempty"`
	OlderCount       int             `json:"older_count,omitempty"`
	TrendingUp       []TrendingTopic `json:"trending_up,omitempty"`
	TrendingDown     []TrendingTopic `json:"trending_down,omitempty"`
	StabilityInsight string          `json:"stability_insight,omitempty"`
}

// FocusArea is one study recommendation slot.
type FocusArea struct {
	Topic      string  `json:"topic"`
	Category   string  `json:"category"`
	Frequency  float64 `json:"frequency"`
	StudyHours int     `json:"study_hours"`
	Priority   string  `json:"priority"`
}

// StudyRecommendations splits the topic list into focus tiers.
type StudyRecommendations struct {
	ImmediateFocus []FocusArea `json:"immediate_focus"`
	SecondaryFocus []FocusArea `json:"secondary_focus"`
}

// PreparationStrategy is the difficulty-driven preparation plan.
type PreparationStrategy struct {
	DifficultyFocus      string            `json:"difficulty_focus"`
	PreparationTimeline  string            `json:"preparation_timeline"`
	PracticeDistribution map[string]string `json:"practice_distribution"`
	KeyRecommendations   []string          `json:"key_recommendations"`
}

// OutcomeSampleSizes counts experiences by reported outcome.
type OutcomeSampleSizes struct {
	Successful   int `json:"successful"`
	Unsuccessful int `json:"unsuccessful"`
	Unknown      int `json:"unknown"`
}

// SuccessPattern is a topic that shows up more often in offers than rejections.
type SuccessPattern struct {
	Factor      string  `json:"factor"`
	SuccessRate float64 `json:"success_rate"`
	Difference  float64 `json:"difference"`
}

// SuccessFactors contrasts offer and rejection experiences.
type SuccessFactors struct {
	SampleSizes     OutcomeSampleSizes `json:"sample_sizes"`
	SuccessPatterns []SuccessPattern   `json:"success_patterns"`
	Confidence      string             `json:"confidence"`
}

// ConfidenceFactors records the inputs behind the statistical confidence score.
type ConfidenceFactors struct {
	SampleSize             int     `json:"sample_size"`
	AvgTopicsPerExperience float64 `json:"avg_topics_per_experience"`
}

// StatisticalConfidence grades how much the numbers in the report can be trusted.
type StatisticalConfidence struct {
	OverallScore          float64           `json:"overall_score"`
	SampleSizeConfidence  float64           `json:"sample_size_confidence"`
	DataQualityConfidence float64           `json:"data_quality_confidence"`
	ConfidenceLevel       string            `json:"confidence_level"`
	Factors               ConfidenceFactors `json:"factors"`
}
