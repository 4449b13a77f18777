package topics

import "time"

// Input is one experience handed to the extractor.
type Input struct {
	Title          string
	Content        string
	ExperienceDate time.Time
}

// TopicScore is the scored detection of one category.topic.
type TopicScore struct {
	Topic              string  `json:"topic"`
	Category           string  `json:"category"`
	TopicName          string  `json:"topic_name"`
	RawCount           int     `json:"raw_count"`
	FrequencyPercent   float64 `json:"frequency_percent"`
	ImportanceScore    float64 `json:"importance_score"`
	WeightedImportance float64 `json:"weighted_importance"`
	TimeFactor         float64 `json:"time_factor"`
	Confidence         float64 `json:"confidence"`
}

// DifficultyAssessment summarizes easy/medium/hard cues in one text.
type DifficultyAssessment struct {
	Overall    string         `json:"overall_difficulty"`
	Confidence float64        `json:"confidence"`
	Breakdown  map[string]int `json:"breakdown"`
	Indicators []string       `json:"difficulty_indicators"`
}

// RoundClassification scores one detected interview round type.
type RoundClassification struct {
	Score      int     `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Metadata describes the analysis itself.
type Metadata struct {
	TotalTopicsFound int       `json:"total_topics_found"`
	TextLength       int       `json:"text_length"`
	ProcessedAt      time.Time `json:"processing_date"`
	ConfidenceScore  float64   `json:"confidence_score"`
}

// Result is the full extraction output for one experience, topics
// sorted by descending weighted importance.
type Result struct {
	Topics      []TopicScore                   `json:"topics"`
	Difficulty  DifficultyAssessment           `json:"difficulty_assessment"`
	Rounds      map[string]RoundClassification `json:"interview_rounds"`
	KeyInsights []string                       `json:"key_insights"`
	Metadata    Metadata                       `json:"analysis_metadata"`
}
