package pipeline

import (
	"fmt"
	"strings"

	"interview-intel/internal/insights"
)

// estimatedHours maps a topic category to a study-time range for the
// weekly plan.
func estimatedHours(category string) string {
	switch category {
	case "algorithms":
		return "15-20 hours"
	case "data_structures":
		return "12-15 hours"
	case "system_design":
		return "20-25 hours"
	case "programming_concepts":
		return "8-10 hours"
	case "technologies":
		return "5-8 hours"
	}
	return "10-12 hours"
}

// BuildRecommendations derives the preparation bundle from an insight
// report. Reports without topic insights (no data, insufficient
// sample) yield nil.
func BuildRecommendations(report *insights.Report) *Recommendations {
	if report == nil || report.Topics == nil {
		return nil
	}

	byTopic := make(map[string]insights.TopicInsight, len(report.Topics.DetailedTopics))
	for _, ti := range report.Topics.DetailedTopics {
		byTopic[ti.Topic] = ti
	}

	rec := &Recommendations{
		ImmediateFocus: []FocusItem{},
		StudyPlan:      make(map[string]WeekPlan),
		Timeline: map[string]string{
			"preparation_duration":  "3-4 weeks",
			"daily_study_hours":     "2-3 hours",
			"mock_interview_timing": "Week 3-4",
			"final_review":          "Last 2-3 days before interview",
		},
	}

	// 1. The top three high-priority topics demand immediate focus.
	for i, topic := range report.Topics.HighPriorityTopics {
		if i == 3 {
			break
		}
		ti, ok := byTopic[topic]
		if !ok {
			continue
		}
		rec.ImmediateFocus = append(rec.ImmediateFocus, FocusItem{
			Topic:    ti.TopicName,
			Priority: "CRITICAL",
			Reason:   fmt.Sprintf("Appears in %.1f%% of interviews", ti.WeightedFrequency),
			Action:   fmt.Sprintf("Dedicate 40%% of study time to %s", ti.TopicName),
		})
	}

	// 2. The top topics fill a four week study plan, one per week.
	for i, topic := range report.Topics.Top5Topics {
		if i == 4 {
			break
		}
		ti, ok := byTopic[topic]
		if !ok {
			continue
		}
		rec.StudyPlan[fmt.Sprintf("Week %d", i+1)] = WeekPlan{
			FocusTopic:       ti.TopicName,
			StudyResources:   ti.StudyResources,
			EstimatedHours:   estimatedHours(ti.Category),
			PracticeProblems: ti.StudyResources.PracticeProblems,
		}
	}

	// 3. Split study time when anything is high priority.
	if len(report.Topics.HighPriorityTopics) > 0 {
		rec.TimeAllocation = map[string]string{
			"high_priority_topics":   "60%",
			"medium_priority_topics": "30%",
			"additional_preparation": "10%",
		}
	}

	rec.PracticeStrategy = practiceStrategy(report)
	return rec
}

// practiceStrategy tailors practice advice to the company's dominant
// interview difficulty.
func practiceStrategy(report *insights.Report) *PracticeStrategy {
	difficulty := "medium"
	if report.Difficulty != nil && report.Difficulty.PrimaryDifficulty != "" {
		difficulty = report.Difficulty.PrimaryDifficulty
	}

	approach := "Practice systematic problem-solving approach"
	switch difficulty {
	case "easy":
		approach = "Focus on implementation speed and clean code"
	case "medium":
		approach = "Balance between optimization and correctness"
	case "hard":
		approach = "Emphasize problem breakdown and multiple approaches"
	}

	systemDesign := "Optional"
	for _, topic := range report.Topics.Top5Topics {
		if strings.SplitN(topic, ".", 2)[0] == "system_design" {
			systemDesign = "Include if 3+ years experience"
			break
		}
	}

	return &PracticeStrategy{
		DifficultyFocus:        difficulty,
		ProblemSolvingApproach: approach,
		MockInterviews:         "Schedule 2-3 mock interviews focusing on top topics",
		SystemDesign:           systemDesign,
	}
}
