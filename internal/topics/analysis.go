package topics

import (
	"math"
	"strings"
)

// difficultyLevels fixes the evaluation order so ties resolve the same
// way on every run.
var difficultyLevels = []string{"easy", "medium", "hard"}

// assessDifficulty tallies easy/medium/hard cues and votes.
func (e *Extractor) assessDifficulty(text string) DifficultyAssessment {
	breakdown := map[string]int{"easy": 0, "medium": 0, "hard": 0}
	for level, patterns := range e.difficultyPatterns {
		for _, re := range patterns {
			breakdown[level] += len(re.FindAllString(text, -1))
		}
	}

	total := breakdown["easy"] + breakdown["medium"] + breakdown["hard"]
	assessment := DifficultyAssessment{
		Overall:    "unknown",
		Breakdown:  breakdown,
		Indicators: e.difficultyIndicators(text),
	}
	if total == 0 {
		return assessment
	}

	best := ""
	for _, level := range difficultyLevels {
		if best == "" || breakdown[level] > breakdown[best] {
			best = level
		}
	}
	assessment.Overall = best
	assessment.Confidence = round2(float64(breakdown[best]) / float64(total))
	return assessment
}

// difficultyIndicators pulls concrete time and effort cues, capped at
// five.
func (e *Extractor) difficultyIndicators(text string) []string {
	var indicators []string
	for _, re := range e.indicatorPatterns {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			value := match[0]
			if len(match) > 1 && match[1] != "" {
				value = match[1]
			}
			indicators = append(indicators, value)
			if len(indicators) >= 5 {
				return indicators
			}
		}
	}
	return indicators
}

// classifyRounds scores coding / system design / behavioral /
// technical discussion signals.
func (e *Extractor) classifyRounds(text string) map[string]RoundClassification {
	rounds := make(map[string]RoundClassification)
	for roundType, patterns := range e.roundPatterns {
		score := 0
		for _, re := range patterns {
			score += len(re.FindAllString(text, -1))
		}
		if score > 0 {
			rounds[roundType] = RoundClassification{
				Score:      score,
				Confidence: math.Min(float64(score)/3.0, 1.0),
			}
		}
	}
	return rounds
}

// extractInsights captures advice-style sentences, top five.
func (e *Extractor) extractInsights(text string) []string {
	var insights []string
	for _, re := range e.insightPatterns {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			if len(match) < 2 {
				continue
			}
			insight := strings.TrimSpace(match[1])
			if len(insight) <= 15 {
				continue
			}
			if len(insight) > 200 {
				insight = insight[:200]
			}
			insights = append(insights, insight)
			if len(insights) >= 5 {
				return insights
			}
		}
	}
	return insights
}
