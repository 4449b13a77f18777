// Package insights turns analyzed interview experiences into statistical
// company reports with study recommendations.
package insights

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"interview-intel/internal/topics"
)

const (
	// DefaultMinSampleSize is the smallest sample a report may be built from.
	DefaultMinSampleSize = 3

	StatusSuccess          = "success"
	StatusInsufficientData = "insufficient_data"

	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"

	// recentWindow splits the sample for temporal trend detection.
	recentWindow = 180 * 24 * time.Hour
	// trendChangeThreshold is the per-capita frequency shift that counts as a trend.
	trendChangeThreshold = 0.2
	// successGapThreshold is the rate gap that marks a topic as a success factor.
	successGapThreshold = 0.3
)

// ErrInsufficientSample marks reports built from fewer experiences than the
// configured minimum.
var ErrInsufficientSample = errors.New("sample below minimum size")

var difficultyOrder = []string{"easy", "medium", "hard"}

// Generator builds company insight reports from raw experiences. It runs its
// own topic extraction so reports never depend on stale stored analysis.
type Generator struct {
	extractor *topics.Extractor
	minSample int
	now       func() time.Time
}

// NewGenerator returns a generator using the given extractor. A minSample
// below 1 falls back to DefaultMinSampleSize.
func NewGenerator(extractor *topics.Extractor, minSample int) *Generator {
	if minSample < 1 {
		minSample = DefaultMinSampleSize
	}
	return &Generator{extractor: extractor, minSample: minSample, now: time.Now}
}

// analyzed pairs an experience with its extraction result.
type analyzed struct {
	exp    Experience
	result topics.Result
	weight float64
	topics map[string]topics.TopicScore
}

// Generate produces the full insight report for a company. Samples below the
// minimum size yield a report with StatusInsufficientData instead of numbers.
func (g *Generator) Generate(company string, experiences []Experience) *Report {
	if len(experiences) < g.minSample {
		return g.insufficientData(company, len(experiences))
	}

	log.Info().Str("company", company).Int("experiences", len(experiences)).Msg("Generating company insights")

	analyses := make([]analyzed, 0, len(experiences))
	for _, exp := range experiences {
		result := g.extractor.Extract(topics.Input{
			Title:          exp.Title,
			Content:        exp.Content,
			ExperienceDate: exp.ExperienceDate,
		})
		weight := exp.TimeWeight
		if weight <= 0 {
			weight = 1.0
		}
		byKey := make(map[string]topics.TopicScore, len(result.Topics))
		for _, score := range result.Topics {
			byKey[score.Topic] = score
		}
		analyses = append(analyses, analyzed{exp: exp, result: result, weight: weight, topics: byKey})
	}

	return &Report{
		Company:      company,
		AnalysisDate: g.now().UTC(),
		Status:       StatusSuccess,
		SampleSize:   len(experiences),
		DataQuality:  g.assessDataQuality(analyses),
		Topics:       g.topicInsights(analyses),
		Difficulty:   g.difficultyTrends(analyses),
		Process:      g.processInsights(analyses),
		Temporal:     g.temporalTrends(analyses),
		StudyRecs:    g.studyRecommendations(analyses),
		Strategy:     g.preparationStrategy(analyses),
		Success:      g.successFactors(analyses),
		Confidence:   g.statisticalConfidence(analyses),
	}
}

// Err returns ErrInsufficientSample when the report was refused for lack of
// data, nil otherwise.
func (r *Report) Err() error {
	if r.Status == StatusInsufficientData {
		return fmt.Errorf("%w: %s has %d experiences", ErrInsufficientSample, r.Company, r.SampleSize)
	}
	return nil
}

func (g *Generator) insufficientData(company string, count int) *Report {
	log.Warn().Str("company", company).Int("experiences", count).Int("required", g.minSample).
		Msg("Not enough experiences for insights")
	return &Report{
		Company:      company,
		AnalysisDate: g.now().UTC(),
		Status:       StatusInsufficientData,
		Message:      fmt.Sprintf("Only %d experiences available. Need at least %d for analysis.", count, g.minSample),
		SampleSize:   count,
		DataQuality: DataQuality{
			SampleAdequacy:  "insufficient",
			ConfidenceLevel: "none",
		},
		Recommendations: []string{
			"Collect more interview experiences",
			"Try different scraping sources",
			"Wait for more data to accumulate",
		},
	}
}

func (g *Generator) assessDataQuality(analyses []analyzed) DataQuality {
	if len(analyses) == 0 {
		return DataQuality{
			SampleAdequacy:  "insufficient",
			ConfidenceLevel: "none",
			DataIssues:      []string{"No experiences available"},
			Recommendations: []string{"Collect more interview experiences"},
		}
	}

	var contentTotal, topicTotal int
	var confidenceTotal float64
	for _, a := range analyses {
		contentTotal += len(a.exp.Content)
		topicTotal += len(a.result.Topics)
		confidenceTotal += a.result.Metadata.ConfidenceScore
	}
	n := float64(len(analyses))
	avgContentLength := float64(contentTotal) / n
	avgConfidence := confidenceTotal / n
	avgTopics := float64(topicTotal) / n

	adequacy := "insufficient"
	switch {
	case len(analyses) >= 15:
		adequacy = "excellent"
	case len(analyses) >= 8:
		adequacy = "good"
	case len(analyses) >= 5:
		adequacy = "adequate"
	case len(analyses) >= 3:
		adequacy = "minimal"
	}

	// Content, extraction confidence, topic density and sample size each
	// contribute a quarter of the composite score.
	contentScore := min(avgContentLength/500, 1.0)
	topicScore := min(avgTopics/5, 1.0)
	sampleScore := min(n/15, 1.0)
	qualityScore := (contentScore + avgConfidence + topicScore + sampleScore) / 4

	level := "very_low"
	switch {
	case qualityScore >= 0.8:
		level = "high"
	case qualityScore >= 0.6:
		level = "medium"
	case qualityScore >= 0.4:
		level = "low"
	}

	var issues, recommendations []string
	if avgContentLength < 200 {
		issues = append(issues, "Short experience descriptions")
		recommendations = append(recommendations, "Collect more detailed interview experiences")
	}
	if avgConfidence < 0.5 {
		issues = append(issues, "Low topic extraction confidence")
		recommendations = append(recommendations, "Improve content quality or extraction algorithms")
	}
	if avgTopics < 2 {
		issues = append(issues, "Few topics per experience")
		recommendations = append(recommendations, "Target more technical interview experiences")
	}
	if len(analyses) < 5 {
		issues = append(issues, "Small sample size")
		recommendations = append(recommendations, "Collect more experiences for statistical significance")
	}

	return DataQuality{
		QualityScore:           round2(qualityScore),
		SampleAdequacy:         adequacy,
		ConfidenceLevel:        level,
		SampleSize:             len(analyses),
		AvgContentLength:       int(math.Round(avgContentLength)),
		AvgConfidence:          round2(avgConfidence),
		AvgTopicsPerExperience: round1(avgTopics),
		DataIssues:             issues,
		Recommendations:        recommendations,
	}
}

func (g *Generator) topicInsights(analyses []analyzed) *TopicInsights {
	var totalWeight float64
	weightedFreqs := map[string][]float64{}
	weightedImps := map[string][]float64{}
	confidences := map[string][]float64{}
	rawFreqs := map[string][]float64{}
	refs := map[string]topics.TopicScore{}

	for _, a := range analyses {
		totalWeight += a.weight
		for _, score := range a.result.Topics {
			weightedFreqs[score.Topic] = append(weightedFreqs[score.Topic], score.FrequencyPercent*a.weight)
			weightedImps[score.Topic] = append(weightedImps[score.Topic], score.ImportanceScore*a.weight)
			confidences[score.Topic] = append(confidences[score.Topic], score.Confidence)
			rawFreqs[score.Topic] = append(rawFreqs[score.Topic], score.FrequencyPercent)
			refs[score.Topic] = score
		}
	}

	detailed := make([]TopicInsight, 0, len(weightedFreqs))
	for topic, freqs := range weightedFreqs {
		weightedFrequency := sum(freqs) / totalWeight * 100
		avgImportance := mean(weightedImps[topic])
		avgConfidence := mean(confidences[topic])
		priority := priorityLevel(weightedFrequency, avgImportance, avgConfidence)
		ref := refs[topic]
		displayName := titleWords(ref.TopicName)

		detailed = append(detailed, TopicInsight{
			Topic:             topic,
			TopicName:         displayName,
			Category:          ref.Category,
			WeightedFrequency: round1(weightedFrequency),
			AverageImportance: round2(avgImportance),
			ConfidenceScore:   round2(avgConfidence),
			FrequencyStdDev:   round2(stddev(rawFreqs[topic])),
			PriorityLevel:     priority,
			MentionsCount:     len(freqs),
			ActionableInsight: actionableInsight(displayName, weightedFrequency, priority),
			StudyResources:    studyResources(topic, ref.Category),
			Difficulty:        topicDifficulty(topic, analyses),
		})
	}

	slices.SortFunc(detailed, func(a, b TopicInsight) int {
		if a.WeightedFrequency != b.WeightedFrequency {
			return cmp.Compare(b.WeightedFrequency, a.WeightedFrequency)
		}
		return cmp.Compare(a.Topic, b.Topic)
	})

	top5 := make([]string, 0, min(5, len(detailed)))
	for _, ti := range detailed[:min(5, len(detailed))] {
		top5 = append(top5, ti.Topic)
	}
	var high []string
	for _, ti := range detailed {
		if ti.PriorityLevel == PriorityHigh {
			high = append(high, ti.Topic)
		}
	}

	return &TopicInsights{
		DetailedTopics:     detailed,
		Top5Topics:         top5,
		HighPriorityTopics: high,
		Distribution:       topicDistribution(detailed),
	}
}

// priorityLevel scores a topic on frequency, importance and confidence.
func priorityLevel(frequency, importance, confidence float64) string {
	score := frequency*0.4 + importance*0.4 + confidence*20*0.2
	switch {
	case score >= 15 && confidence >= 0.7:
		return PriorityHigh
	case score >= 8 && confidence >= 0.5:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func actionableInsight(name string, frequency float64, priority string) string {
	switch priority {
	case PriorityHigh:
		return fmt.Sprintf("CRITICAL: %s appears in %.1f%% of interviews - prioritize this heavily", name, frequency)
	case PriorityMedium:
		return fmt.Sprintf("IMPORTANT: %s mentioned in %.1f%% of cases - solid preparation needed", name, frequency)
	default:
		return fmt.Sprintf("MODERATE: %s occasionally mentioned (%.1f%%) - good to review", name, frequency)
	}
}

func studyResources(topic, category string) StudyResources {
	res := StudyResources{
		PracticeProblems:   []string{},
		StudyMaterials:     []string{},
		EstimatedStudyTime: "2-3 days",
	}

	switch category {
	case "algorithms":
		if strings.Contains(topic, "dynamic_programming") {
			res.PracticeProblems = []string{
				"LeetCode: Climbing Stairs",
				"LeetCode: House Robber",
				"LeetCode: Coin Change",
				"LeetCode: Longest Common Subsequence",
			}
			res.EstimatedStudyTime = "5-7 days"
		} else if strings.Contains(topic, "searching") {
			res.PracticeProblems = []string{
				"LeetCode: Binary Search",
				"LeetCode: Search in Rotated Sorted Array",
				"LeetCode: Find Peak Element",
			}
		}
	case "data_structures":
		if strings.Contains(topic, "tree") {
			res.PracticeProblems = []string{
				"LeetCode: Binary Tree Inorder Traversal",
				"LeetCode: Maximum Depth of Binary Tree",
				"LeetCode: Validate Binary Search Tree",
			}
		}
	case "system_design":
		res.StudyMaterials = []string{
			"Designing Data-Intensive Applications",
			"System Design Interview by Alex Xu",
			"High Scalability blog",
		}
		res.EstimatedStudyTime = "7-10 days"
	}
	return res
}

func topicDifficulty(topic string, analyses []analyzed) TopicDifficulty {
	dist := map[string]int{"easy": 0, "medium": 0, "hard": 0}
	total := 0
	for _, a := range analyses {
		if _, ok := a.topics[topic]; !ok {
			continue
		}
		overall := a.result.Difficulty.Overall
		if _, counted := dist[overall]; counted {
			dist[overall]++
			total++
		}
	}
	if total == 0 {
		return TopicDifficulty{Assessment: "unknown", Distribution: dist}
	}
	primary := majorityDifficulty(dist)
	return TopicDifficulty{
		Assessment:   primary,
		Confidence:   round2(float64(dist[primary]) / float64(total)),
		Distribution: dist,
		SampleSize:   total,
	}
}

func topicDistribution(detailed []TopicInsight) TopicDistribution {
	catCounts := map[string]int{}
	prioCounts := map[string]int{}
	for _, ti := range detailed {
		catCounts[ti.Category]++
		prioCounts[ti.PriorityLevel]++
	}

	total := len(detailed)
	byCategory := make(map[string]DistributionSlice, len(catCounts))
	for cat, count := range catCounts {
		byCategory[cat] = DistributionSlice{Count: count, Percentage: round1(float64(count) / float64(total) * 100)}
	}
	byPriority := make(map[string]DistributionSlice, len(prioCounts))
	for prio, count := range prioCounts {
		byPriority[prio] = DistributionSlice{Count: count, Percentage: round1(float64(count) / float64(total) * 100)}
	}

	return TopicDistribution{ByCategory: byCategory, ByPriority: byPriority, TotalTopics: total}
}

func (g *Generator) difficultyTrends(analyses []analyzed) *DifficultyTrends {
	dist := map[string]int{"easy": 0, "medium": 0, "hard": 0}
	var totalConfidence float64
	for _, a := range analyses {
		d := a.result.Difficulty
		if _, counted := dist[d.Overall]; counted {
			dist[d.Overall]++
			totalConfidence += d.Confidence
		}
	}
	totalAssessed := dist["easy"] + dist["medium"] + dist["hard"]
	avgConfidence := totalConfidence / float64(len(analyses))

	primary := "unknown"
	var percentage float64
	if totalAssessed > 0 {
		primary = majorityDifficulty(dist)
		percentage = float64(dist[primary]) / float64(totalAssessed) * 100
	}

	return &DifficultyTrends{
		PrimaryDifficulty:    primary,
		DifficultyPercentage: round1(percentage),
		Distribution:         dist,
		AverageConfidence:    round2(avgConfidence),
		TrendInsight:         difficultyInsight(primary, percentage),
	}
}

// majorityDifficulty picks the largest bucket; ties resolve easy before
// medium before hard.
func majorityDifficulty(counts map[string]int) string {
	best := difficultyOrder[0]
	for _, level := range difficultyOrder[1:] {
		if counts[level] > counts[best] {
			best = level
		}
	}
	return best
}

func difficultyInsight(difficulty string, percentage float64) string {
	switch difficulty {
	case "hard":
		return fmt.Sprintf("Challenging interviews: %.1f%% report high difficulty - thorough preparation essential", percentage)
	case "medium":
		return fmt.Sprintf("Balanced difficulty: %.1f%% find interviews moderately challenging", percentage)
	case "easy":
		return fmt.Sprintf("Approachable interviews: %.1f%% report manageable difficulty levels", percentage)
	default:
		return "Mixed difficulty reports - prepare for various complexity levels"
	}
}

func (g *Generator) processInsights(analyses []analyzed) *ProcessInsights {
	roundCounts := map[string]int{}
	for _, a := range analyses {
		for roundType, info := range a.result.Rounds {
			if info.Confidence > 0.5 {
				roundCounts[roundType]++
			}
		}
	}

	total := len(analyses)
	var common []RoundFrequency
	for roundType, count := range roundCounts {
		frequency := float64(count) / float64(total) * 100
		if frequency > 30 {
			common = append(common, RoundFrequency{
				RoundType:        titleWords(roundType),
				FrequencyPercent: round1(frequency),
				Count:            count,
			})
		}
	}
	slices.SortFunc(common, func(a, b RoundFrequency) int {
		if a.FrequencyPercent != b.FrequencyPercent {
			return cmp.Compare(b.FrequencyPercent, a.FrequencyPercent)
		}
		return cmp.Compare(a.RoundType, b.RoundType)
	})

	insight := "Varied interview processes"
	if len(common) > 0 {
		insight = fmt.Sprintf("Most interviews include %d common round types", len(common))
	}

	return &ProcessInsights{
		CommonRounds:      common,
		TotalRoundTypes:   len(roundCounts),
		ProcessInsight:    insight,
		RoundDistribution: roundCounts,
	}
}

func (g *Generator) temporalTrends(analyses []analyzed) *TemporalTrends {
	now := g.now().UTC()
	cutoff := now.Add(-recentWindow)

	var recent, older []analyzed
	for _, a := range analyses {
		date := a.exp.ExperienceDate
		if date.IsZero() {
			date = now
		}
		if date.After(cutoff) {
			recent = append(recent, a)
		} else {
			older = append(older, a)
		}
	}

	if len(recent) < 2 || len(older) < 2 {
		return &TemporalTrends{
			TrendAvailable: false,
			Message:        "Insufficient data for temporal analysis",
			RecentCount:    len(recent),
			OlderCount:     len(older),
		}
	}

	recentCounts := map[string]int{}
	olderCounts := map[string]int{}
	names := map[string]string{}
	for _, a := range recent {
		for _, score := range a.result.Topics {
			recentCounts[score.Topic]++
			names[score.Topic] = titleWords(score.TopicName)
		}
	}
	for _, a := range older {
		for _, score := range a.result.Topics {
			olderCounts[score.Topic]++
			names[score.Topic] = titleWords(score.TopicName)
		}
	}

	var up, down []TrendingTopic
	for topic, name := range names {
		recentFreq := float64(recentCounts[topic]) / float64(len(recent))
		olderFreq := float64(olderCounts[topic]) / float64(len(older))
		change := recentFreq - olderFreq
		if math.Abs(change) <= trendChangeThreshold {
			continue
		}
		if change > 0 {
			up = append(up, TrendingTopic{Topic: name, Change: round1(change * 100)})
		} else {
			down = append(down, TrendingTopic{Topic: name, Change: round1(-change * 100)})
		}
	}
	sortTrending(up)
	sortTrending(down)
	if len(up) > 3 {
		up = up[:3]
	}
	if len(down) > 3 {
		down = down[:3]
	}

	insight := "Interview patterns remain relatively stable"
	if len(up) > 0 || len(down) > 0 {
		insight = "Notable shifts in interview focus detected"
	}

	return &TemporalTrends{
		TrendAvailable:   true,
		RecentPeriod:     fmt.Sprintf("Last 6 months (%d experiences)", len(recent)),
		OlderPeriod:      fmt.Sprintf("Earlier period (%d experiences)", len(older)),
		TrendingUp:       up,
		TrendingDown:     down,
		StabilityInsight: insight,
	}
}

func sortTrending(trending []TrendingTopic) {
	slices.SortFunc(trending, func(a, b TrendingTopic) int {
		if a.Change != b.Change {
			return cmp.Compare(b.Change, a.Change)
		}
		return cmp.Compare(a.Topic, b.Topic)
	})
}

func (g *Generator) studyRecommendations(analyses []analyzed) *StudyRecommendations {
	counts := map[string]int{}
	refs := map[string]topics.TopicScore{}
	for _, a := range analyses {
		for _, score := range a.result.Topics {
			counts[score.Topic]++
			refs[score.Topic] = score
		}
	}

	type topicCount struct {
		topic string
		count int
	}
	ranked := make([]topicCount, 0, len(counts))
	for topic, count := range counts {
		ranked = append(ranked, topicCount{topic, count})
	}
	slices.SortFunc(ranked, func(a, b topicCount) int {
		if a.count != b.count {
			return cmp.Compare(b.count, a.count)
		}
		return cmp.Compare(a.topic, b.topic)
	})

	recs := &StudyRecommendations{
		ImmediateFocus: []FocusArea{},
		SecondaryFocus: []FocusArea{},
	}
	total := float64(len(analyses))

	for i, tc := range ranked[:min(3, len(ranked))] {
		ref := refs[tc.topic]
		hours := 10
		if ref.Category == "algorithms" {
			hours = 15
		}
		priority := PriorityMedium
		if i == 0 {
			priority = PriorityHigh
		}
		recs.ImmediateFocus = append(recs.ImmediateFocus, FocusArea{
			Topic:      titleWords(ref.TopicName),
			Category:   ref.Category,
			Frequency:  round1(float64(tc.count) / total * 100),
			StudyHours: hours,
			Priority:   priority,
		})
	}

	if len(ranked) > 3 {
		for _, tc := range ranked[3:min(6, len(ranked))] {
			ref := refs[tc.topic]
			recs.SecondaryFocus = append(recs.SecondaryFocus, FocusArea{
				Topic:      titleWords(ref.TopicName),
				Category:   ref.Category,
				Frequency:  round1(float64(tc.count) / total * 100),
				StudyHours: 8,
				Priority:   PriorityLow,
			})
		}
	}
	return recs
}

func (g *Generator) preparationStrategy(analyses []analyzed) *PreparationStrategy {
	dist := map[string]int{"easy": 0, "medium": 0, "hard": 0}
	for _, a := range analyses {
		overall := a.result.Difficulty.Overall
		if _, counted := dist[overall]; counted {
			dist[overall]++
		}
	}
	total := dist["easy"] + dist["medium"] + dist["hard"]

	strategy := &PreparationStrategy{
		DifficultyFocus:      "unknown",
		PreparationTimeline:  "4-6 weeks",
		PracticeDistribution: map[string]string{},
		KeyRecommendations:   []string{},
	}
	if total == 0 {
		return strategy
	}

	primary := majorityDifficulty(dist)
	strategy.DifficultyFocus = primary

	switch primary {
	case "hard":
		strategy.PreparationTimeline = "6-8 weeks"
		strategy.PracticeDistribution = map[string]string{
			"hard_problems":   "50%",
			"medium_problems": "35%",
			"easy_problems":   "15%",
		}
		strategy.KeyRecommendations = []string{
			"Focus heavily on advanced algorithms and system design",
			"Practice complex problem-solving patterns",
			"Prepare for multiple rounds of technical interviews",
		}
	case "medium":
		strategy.PreparationTimeline = "4-6 weeks"
		strategy.PracticeDistribution = map[string]string{
			"medium_problems": "60%",
			"hard_problems":   "25%",
			"easy_problems":   "15%",
		}
		strategy.KeyRecommendations = []string{
			"Balance breadth and depth in technical preparation",
			"Focus on common algorithm patterns",
			"Practice coding under time pressure",
		}
	default:
		strategy.PreparationTimeline = "3-4 weeks"
		strategy.PracticeDistribution = map[string]string{
			"easy_problems":   "40%",
			"medium_problems": "50%",
			"hard_problems":   "10%",
		}
		strategy.KeyRecommendations = []string{
			"Focus on fundamentals and clean code",
			"Practice explaining your thought process",
			"Review basic data structures and algorithms",
		}
	}
	return strategy
}

func (g *Generator) successFactors(analyses []analyzed) *SuccessFactors {
	var offers, rejections []analyzed
	for _, a := range analyses {
		switch a.exp.Outcome {
		case "offer":
			offers = append(offers, a)
		case "rejected":
			rejections = append(rejections, a)
		}
	}

	factors := &SuccessFactors{
		SampleSizes: OutcomeSampleSizes{
			Successful:   len(offers),
			Unsuccessful: len(rejections),
			Unknown:      len(analyses) - len(offers) - len(rejections),
		},
		SuccessPatterns: []SuccessPattern{},
		Confidence:      "low",
	}
	if len(offers) < 2 || len(rejections) < 2 {
		return factors
	}

	successCounts := map[string]int{}
	failureCounts := map[string]int{}
	names := map[string]string{}
	for _, a := range offers {
		for _, score := range a.result.Topics {
			successCounts[score.Topic]++
			names[score.Topic] = titleWords(score.TopicName)
		}
	}
	for _, a := range rejections {
		for _, score := range a.result.Topics {
			failureCounts[score.Topic]++
		}
	}

	for topic, count := range successCounts {
		successRate := float64(count) / float64(len(offers))
		failureRate := float64(failureCounts[topic]) / float64(len(rejections))
		if successRate-failureRate > successGapThreshold {
			factors.SuccessPatterns = append(factors.SuccessPatterns, SuccessPattern{
				Factor:      names[topic],
				SuccessRate: round1(successRate * 100),
				Difference:  round1((successRate - failureRate) * 100),
			})
		}
	}
	slices.SortFunc(factors.SuccessPatterns, func(a, b SuccessPattern) int {
		if a.Difference != b.Difference {
			return cmp.Compare(b.Difference, a.Difference)
		}
		return cmp.Compare(a.Factor, b.Factor)
	})

	if len(factors.SuccessPatterns) > 0 {
		factors.Confidence = "medium"
	}
	return factors
}

func (g *Generator) statisticalConfidence(analyses []analyzed) *StatisticalConfidence {
	sampleSize := len(analyses)

	var sampleConfidence float64
	switch {
	case sampleSize >= 20:
		sampleConfidence = 0.9
	case sampleSize >= 10:
		sampleConfidence = 0.7
	case sampleSize >= 5:
		sampleConfidence = 0.5
	default:
		sampleConfidence = 0.3
	}

	totalTopics := 0
	for _, a := range analyses {
		totalTopics += len(a.result.Topics)
	}
	avgTopics := float64(totalTopics) / float64(sampleSize)

	var qualityConfidence float64
	switch {
	case avgTopics >= 5:
		qualityConfidence = 0.9
	case avgTopics >= 3:
		qualityConfidence = 0.7
	case avgTopics >= 2:
		qualityConfidence = 0.5
	default:
		qualityConfidence = 0.3
	}

	overall := (sampleConfidence + qualityConfidence) / 2
	level := "low"
	switch {
	case overall >= 0.7:
		level = "high"
	case overall >= 0.5:
		level = "medium"
	}

	return &StatisticalConfidence{
		OverallScore:          round2(overall),
		SampleSizeConfidence:  round2(sampleConfidence),
		DataQualityConfidence: round2(qualityConfidence),
		ConfidenceLevel:       level,
		Factors: ConfidenceFactors{
			SampleSize:             sampleSize,
			AvgTopicsPerExperience: round1(avgTopics),
		},
	}
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var acc float64
	for _, v := range values {
		acc += (v - m) * (v - m)
	}
	return math.Sqrt(acc / float64(len(values)))
}

func titleWords(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }
