package topics

import (
	"testing"
	"time"

	"interview-intel/internal/decay"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(decay.NewCalculator(0.08))
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	return e
}

func findTopic(result Result, key string) (TopicScore, bool) {
	for _, ts := range result.Topics {
		if ts.Topic == key {
			return ts, true
		}
	}
	return TopicScore{}, false
}

func TestPreprocess(t *testing.T) {
	e := newTestExtractor(t)

	got := e.preprocess("Hello!!!   World... and C++ (tough)")
	expected := "hello world... and c tough"
	if got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestExtractKeywordTopics(t *testing.T) {
	e := newTestExtractor(t)

	result := e.Extract(Input{
		Title:          "SDE interview",
		Content:        "dynamic programming question in the interview",
		ExperienceDate: time.Now().UTC(),
	})

	ts, ok := findTopic(result, "algorithms.dynamic_programming")
	if !ok {
		t.Fatalf("Expected dynamic_programming topic, got %+v", result.Topics)
	}
	if ts.RawCount != 1 {
		t.Errorf("Expected raw count 1, got %d", ts.RawCount)
	}
	if ts.Category != "algorithms" || ts.TopicName != "dynamic_programming" {
		t.Errorf("Unexpected split: %s / %s", ts.Category, ts.TopicName)
	}
	if ts.TimeFactor != 1.0 {
		t.Errorf("Expected time factor 1.0 for a fresh experience, got %f", ts.TimeFactor)
	}
	if ts.Confidence != 0.6 {
		t.Errorf("Expected confidence 0.6, got %f", ts.Confidence)
	}
}

func TestKeywordOwnedByLaterTopic(t *testing.T) {
	e := newTestExtractor(t)

	// "queue" appears under both data_structures.queue and
	// system_design.messaging; the later entry owns it.
	result := e.Extract(Input{
		Title:          "",
		Content:        "the queue was the central piece of the architecture discussion",
		ExperienceDate: time.Now().UTC(),
	})

	if _, ok := findTopic(result, "system_design.messaging"); !ok {
		t.Errorf("Expected queue to count for messaging, got %+v", result.Topics)
	}
	if _, ok := findTopic(result, "data_structures.queue"); ok {
		t.Error("Expected bare 'queue' not to count for data_structures.queue")
	}
}

func TestAdvancedPatternPass(t *testing.T) {
	e := newTestExtractor(t)

	// "memoization" hits both the keyword table and the advanced
	// pattern list.
	result := e.Extract(Input{
		Content:        "solved it with memoization after the brute force timed out",
		ExperienceDate: time.Now().UTC(),
	})

	ts, ok := findTopic(result, "algorithms.dynamic_programming")
	if !ok {
		t.Fatal("Expected dynamic_programming from advanced patterns")
	}
	if ts.RawCount < 2 {
		t.Errorf("Expected keyword + pattern to both count, got %d", ts.RawCount)
	}
}

func TestContextPatternPass(t *testing.T) {
	e := newTestExtractor(t)

	result := e.Extract(Input{
		Content:        "they asked me to implement a binary search over the rotated input",
		ExperienceDate: time.Now().UTC(),
	})

	ts, ok := findTopic(result, "algorithms.searching")
	if !ok {
		t.Fatal("Expected searching topic")
	}
	// "binary search" counts once as a keyword, once more via the
	// "implement ..." context capture, and "search" adds another.
	if ts.RawCount < 3 {
		t.Errorf("Expected at least 3 counts, got %d", ts.RawCount)
	}
}

func TestTopicsSortedByWeightedImportance(t *testing.T) {
	e := newTestExtractor(t)

	result := e.Extract(Input{
		Content:        "scaling scaling scaling java",
		ExperienceDate: time.Now().UTC(),
	})

	if len(result.Topics) < 2 {
		t.Fatalf("Expected at least 2 topics, got %d", len(result.Topics))
	}
	if result.Topics[0].Topic != "system_design.scalability" {
		t.Errorf("Expected scalability ranked first, got %s", result.Topics[0].Topic)
	}
	for i := 1; i < len(result.Topics); i++ {
		if result.Topics[i].WeightedImportance > result.Topics[i-1].WeightedImportance {
			t.Error("Topics not sorted by weighted importance")
		}
	}
}

func TestTimeDecayLowersWeightedImportance(t *testing.T) {
	e := newTestExtractor(t)

	old := e.Extract(Input{
		Content:        "dynamic programming dynamic programming",
		ExperienceDate: time.Now().UTC().AddDate(-1, 0, 0),
	})
	fresh := e.Extract(Input{
		Content:        "dynamic programming dynamic programming",
		ExperienceDate: time.Now().UTC(),
	})

	oldTS, _ := findTopic(old, "algorithms.dynamic_programming")
	freshTS, _ := findTopic(fresh, "algorithms.dynamic_programming")

	if oldTS.TimeFactor < 0.35 || oldTS.TimeFactor > 0.4 {
		t.Errorf("Expected year-old time factor near 0.383, got %f", oldTS.TimeFactor)
	}
	if oldTS.WeightedImportance >= freshTS.WeightedImportance {
		t.Errorf("Expected decay to lower weighted importance: old %f, fresh %f",
			oldTS.WeightedImportance, freshTS.WeightedImportance)
	}
	if oldTS.ImportanceScore != freshTS.ImportanceScore {
		t.Errorf("Expected identical undecayed importance, got %f and %f",
			oldTS.ImportanceScore, freshTS.ImportanceScore)
	}
}

func TestAssessDifficulty(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name       string
		content    string
		expected   string
		confidence float64
	}{
		{"clearly hard", "it was hard, genuinely difficult and challenging", "hard", 1.0},
		{"mixed leans easy", "simple and easy overall though one part was hard", "easy", 0.67},
		{"no signal", "we talked about the weather", "unknown", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.assessDifficulty(e.preprocess(tt.content))
			if d.Overall != tt.expected {
				t.Errorf("Expected %s, got %s (breakdown %v)", tt.expected, d.Overall, d.Breakdown)
			}
			if d.Confidence != tt.confidence {
				t.Errorf("Expected confidence %f, got %f", tt.confidence, d.Confidence)
			}
		})
	}
}

func TestClassifyRounds(t *testing.T) {
	e := newTestExtractor(t)

	rounds := e.classifyRounds(e.preprocess(
		"first a coding round on algorithm and data structure skills, then a system design round",
	))

	coding, ok := rounds["coding"]
	if !ok || coding.Score != 3 {
		t.Errorf("Expected coding score 3, got %+v", rounds["coding"])
	}
	if coding.Confidence != 1.0 {
		t.Errorf("Expected coding confidence 1.0, got %f", coding.Confidence)
	}

	sd, ok := rounds["system_design"]
	if !ok || sd.Score != 2 {
		t.Errorf("Expected system_design score 2, got %+v", rounds["system_design"])
	}
	if _, ok := rounds["behavioral"]; ok {
		t.Error("Expected no behavioral round detected")
	}
}

func TestExtractInsights(t *testing.T) {
	e := newTestExtractor(t)

	insights := e.extractInsights(e.preprocess(
		"My advice: practice dynamic programming problems daily for two months before applying.",
	))
	if len(insights) == 0 {
		t.Fatal("Expected at least one insight")
	}
	found := false
	for _, insight := range insights {
		if len(insight) > 15 && len(insight) <= 200 {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected bounded insight lengths, got %v", insights)
	}
}

func TestExtractEmptyContent(t *testing.T) {
	e := newTestExtractor(t)

	result := e.Extract(Input{Title: "title only"})
	if len(result.Topics) != 0 {
		t.Errorf("Expected no topics for empty content, got %d", len(result.Topics))
	}
	if result.Metadata.ConfidenceScore != 0 {
		t.Errorf("Expected zero confidence, got %f", result.Metadata.ConfidenceScore)
	}
}

func TestOverallConfidence(t *testing.T) {
	e := newTestExtractor(t)

	result := e.Extract(Input{
		Content:        "arrays and linked list and stack problems in the coding round",
		ExperienceDate: time.Now().UTC(),
	})
	if result.Metadata.TotalTopicsFound != len(result.Topics) {
		t.Errorf("Metadata count %d disagrees with %d topics",
			result.Metadata.TotalTopicsFound, len(result.Topics))
	}
	if result.Metadata.ConfidenceScore <= 0 || result.Metadata.ConfidenceScore > 1 {
		t.Errorf("Confidence out of range: %f", result.Metadata.ConfidenceScore)
	}
}
