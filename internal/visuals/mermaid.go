package visuals

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"interview-intel/internal/insights"
	"interview-intel/internal/pipeline"
)

// GenerateCategoryPie creates a Mermaid pie chart of the topic category mix.
func GenerateCategoryPie(dist insights.TopicDistribution) string {
	if dist.TotalTopics == 0 || len(dist.ByCategory) == 0 {
		return ""
	}

	categories := make([]string, 0, len(dist.ByCategory))
	for category := range dist.ByCategory {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool {
		a, b := dist.ByCategory[categories[i]], dist.ByCategory[categories[j]]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return categories[i] < categories[j]
	})

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("pie title Topic Categories\n")
	for _, category := range categories {
		sb.WriteString(fmt.Sprintf("    \"%s\" : %d\n", displayCategory(category), dist.ByCategory[category].Count))
	}
	sb.WriteString("```")
	return sb.String()
}

// GenerateTopTopicsChart creates a Mermaid bar chart of the highest weighted topics.
func GenerateTopTopicsChart(topics []insights.TopicInsight) string {
	if len(topics) == 0 {
		return ""
	}

	// Mermaid xychart labels start colliding past a handful of bars
	limit := len(topics)
	if limit > 8 {
		limit = 8
	}

	var labels []string
	var values []string
	maxVal := 0.0

	for i := 0; i < limit; i++ {
		topic := topics[i]
		safeName := strings.ReplaceAll(topic.TopicName, " ", "_")
		labels = append(labels, fmt.Sprintf("\"%s\"", safeName))
		values = append(values, fmt.Sprintf("%.1f", topic.WeightedFrequency))
		if topic.WeightedFrequency > maxVal {
			maxVal = topic.WeightedFrequency
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Top Topics by Weighted Frequency\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Weighted Frequency\" 0 --> %d\n", int(math.Ceil(maxVal*1.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateStudyPlanGantt creates a Mermaid gantt laying the weekly study plan
// onto the calendar, one section per week starting from the given date.
func GenerateStudyPlanGantt(rec *pipeline.Recommendations, start time.Time) string {
	if rec == nil || len(rec.StudyPlan) == 0 {
		return ""
	}

	// Week keys are "Week 1".."Week 4", so a lexicographic sort orders them.
	weeks := make([]string, 0, len(rec.StudyPlan))
	for week := range rec.StudyPlan {
		weeks = append(weeks, week)
	}
	sort.Strings(weeks)

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("gantt\n")
	sb.WriteString("    title Study Plan\n")
	sb.WriteString("    dateFormat YYYY-MM-DD\n")

	for i, week := range weeks {
		plan := rec.StudyPlan[week]
		weekStart := start.AddDate(0, 0, i*7)
		sb.WriteString(fmt.Sprintf("    section %s\n", week))
		sb.WriteString(fmt.Sprintf("    %s (%s) :w%d, %s, 7d\n",
			plan.FocusTopic, plan.EstimatedHours, i+1, weekStart.Format("2006-01-02")))
	}

	reviewStart := start.AddDate(0, 0, len(weeks)*7)
	sb.WriteString("    section Review\n")
	sb.WriteString(fmt.Sprintf("    Mock interviews and final review :r1, %s, 3d\n",
		reviewStart.Format("2006-01-02")))

	sb.WriteString("```")
	return sb.String()
}

// displayCategory turns a category key like data_structures into a heading.
func displayCategory(category string) string {
	words := strings.Split(category, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
