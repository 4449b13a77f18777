package pipeline

import (
	"testing"

	"interview-intel/internal/insights"
)

func recommendationsReport() *insights.Report {
	return &insights.Report{
		Company:    "Amazon",
		Status:     insights.StatusSuccess,
		SampleSize: 8,
		Topics: &insights.TopicInsights{
			DetailedTopics: []insights.TopicInsight{
				{
					Topic:             "algorithms.dynamic_programming",
					TopicName:         "Dynamic Programming",
					Category:          "algorithms",
					WeightedFrequency: 34.5,
					PriorityLevel:     "HIGH",
					StudyResources: insights.StudyResources{
						PracticeProblems:   []string{"Longest common subsequence", "Coin change"},
						StudyMaterials:     []string{"DP patterns guide"},
						EstimatedStudyTime: "2-3 weeks",
					},
				},
				{
					Topic:             "system_design.scalability",
					TopicName:         "Scalability",
					Category:          "system_design",
					WeightedFrequency: 21.0,
					PriorityLevel:     "MEDIUM",
				},
				{
					Topic:             "data_structures.trees",
					TopicName:         "Trees",
					Category:          "data_structures",
					WeightedFrequency: 18.2,
					PriorityLevel:     "MEDIUM",
				},
				{
					Topic:             "programming_concepts.oop",
					TopicName:         "Object-Oriented Programming",
					Category:          "programming_concepts",
					WeightedFrequency: 9.9,
					PriorityLevel:     "LOW",
				},
				{
					Topic:             "technologies.databases",
					TopicName:         "Databases",
					Category:          "technologies",
					WeightedFrequency: 7.1,
					PriorityLevel:     "LOW",
				},
			},
			Top5Topics: []string{
				"algorithms.dynamic_programming",
				"system_design.scalability",
				"data_structures.trees",
				"programming_concepts.oop",
				"technologies.databases",
			},
			HighPriorityTopics: []string{"algorithms.dynamic_programming"},
		},
		Difficulty: &insights.DifficultyTrends{PrimaryDifficulty: "hard"},
	}
}

func TestBuildRecommendations(t *testing.T) {
	rec := BuildRecommendations(recommendationsReport())
	if rec == nil {
		t.Fatal("Expected recommendations from a full report")
	}

	if len(rec.ImmediateFocus) != 1 {
		t.Fatalf("Expected 1 immediate focus item, got %d", len(rec.ImmediateFocus))
	}
	focus := rec.ImmediateFocus[0]
	if focus.Topic != "Dynamic Programming" || focus.Priority != "CRITICAL" {
		t.Errorf("Unexpected focus item: %+v", focus)
	}
	if focus.Reason != "Appears in 34.5% of interviews" {
		t.Errorf("Unexpected focus reason: %q", focus.Reason)
	}
	if focus.Action != "Dedicate 40% of study time to Dynamic Programming" {
		t.Errorf("Unexpected focus action: %q", focus.Action)
	}

	if len(rec.StudyPlan) != 4 {
		t.Fatalf("Expected a 4-week study plan, got %d weeks", len(rec.StudyPlan))
	}
	weekHours := map[string]string{
		"Week 1": "15-20 hours",
		"Week 2": "20-25 hours",
		"Week 3": "12-15 hours",
		"Week 4": "8-10 hours",
	}
	for week, hours := range weekHours {
		plan, ok := rec.StudyPlan[week]
		if !ok {
			t.Errorf("Expected a plan for %s", week)
			continue
		}
		if plan.EstimatedHours != hours {
			t.Errorf("%s: expected %q, got %q", week, hours, plan.EstimatedHours)
		}
	}
	if got := rec.StudyPlan["Week 1"].FocusTopic; got != "Dynamic Programming" {
		t.Errorf("Expected week 1 to focus on Dynamic Programming, got %q", got)
	}
	if got := rec.StudyPlan["Week 1"].PracticeProblems; len(got) != 2 {
		t.Errorf("Expected week 1 practice problems carried over, got %v", got)
	}

	if rec.TimeAllocation["high_priority_topics"] != "60%" {
		t.Errorf("Expected a 60%% high-priority allocation, got %v", rec.TimeAllocation)
	}

	strategy := rec.PracticeStrategy
	if strategy == nil {
		t.Fatal("Expected a practice strategy")
	}
	if strategy.DifficultyFocus != "hard" {
		t.Errorf("Expected hard difficulty focus, got %q", strategy.DifficultyFocus)
	}
	if strategy.ProblemSolvingApproach != "Emphasize problem breakdown and multiple approaches" {
		t.Errorf("Unexpected approach: %q", strategy.ProblemSolvingApproach)
	}
	if strategy.SystemDesign != "Include if 3+ years experience" {
		t.Errorf("Expected system design inclusion, got %q", strategy.SystemDesign)
	}

	if rec.Timeline["preparation_duration"] != "3-4 weeks" {
		t.Errorf("Unexpected timeline: %v", rec.Timeline)
	}
}

func TestBuildRecommendationsDefaults(t *testing.T) {
	report := recommendationsReport()
	report.Topics.HighPriorityTopics = nil
	report.Topics.Top5Topics = []string{"algorithms.dynamic_programming", "data_structures.trees"}
	report.Difficulty = nil

	rec := BuildRecommendations(report)
	if rec == nil {
		t.Fatal("Expected recommendations")
	}
	if len(rec.ImmediateFocus) != 0 {
		t.Errorf("Expected no immediate focus without high-priority topics, got %d", len(rec.ImmediateFocus))
	}
	if rec.TimeAllocation != nil {
		t.Errorf("Expected no time allocation without high-priority topics, got %v", rec.TimeAllocation)
	}
	if len(rec.StudyPlan) != 2 {
		t.Errorf("Expected 2 study weeks from 2 top topics, got %d", len(rec.StudyPlan))
	}
	if rec.PracticeStrategy.DifficultyFocus != "medium" {
		t.Errorf("Expected medium default difficulty, got %q", rec.PracticeStrategy.DifficultyFocus)
	}
	if rec.PracticeStrategy.ProblemSolvingApproach != "Balance between optimization and correctness" {
		t.Errorf("Unexpected approach: %q", rec.PracticeStrategy.ProblemSolvingApproach)
	}
	if rec.PracticeStrategy.SystemDesign != "Optional" {
		t.Errorf("Expected optional system design without the topic, got %q", rec.PracticeStrategy.SystemDesign)
	}
}

func TestBuildRecommendationsWithoutTopics(t *testing.T) {
	if rec := BuildRecommendations(nil); rec != nil {
		t.Errorf("Expected nil for a nil report, got %+v", rec)
	}
	insufficient := &insights.Report{Status: insights.StatusInsufficientData}
	if rec := BuildRecommendations(insufficient); rec != nil {
		t.Errorf("Expected nil without topic insights, got %+v", rec)
	}
}

func TestEstimatedHoursByCategory(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"algorithms", "15-20 hours"},
		{"data_structures", "12-15 hours"},
		{"system_design", "20-25 hours"},
		{"programming_concepts", "8-10 hours"},
		{"technologies", "5-8 hours"},
		{"behavioral", "10-12 hours"},
	}
	for _, tt := range tests {
		if got := estimatedHours(tt.category); got != tt.want {
			t.Errorf("estimatedHours(%q): expected %q, got %q", tt.category, tt.want, got)
		}
	}
}
