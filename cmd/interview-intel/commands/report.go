package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"interview-intel/internal/insights"
	"interview-intel/internal/pipeline"
	"interview-intel/internal/visuals"
)

var reportOut string

var reportCmd = &cobra.Command{
	Use:   "report <company>",
	Short: "Render a markdown study report from analyzed experiences",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := companyExtractor.Canonical(args[0])

		exps, err := st.ListExperiences(cmd.Context(), name)
		if err != nil {
			return err
		}
		input := make([]insights.Experience, 0, len(exps))
		for i := range exps {
			if !exps[i].Processed() {
				continue
			}
			input = append(input, insights.Experience{
				Title:          exps[i].Title,
				Content:        exps[i].Content,
				ExperienceDate: exps[i].ExperienceDate,
				TimeWeight:     exps[i].TimeWeight,
				Outcome:        exps[i].Outcome,
			})
		}
		if len(input) == 0 {
			return fmt.Errorf("no analyzed experiences for %s, run 'interview-intel analyze %s' first", name, name)
		}

		markdown := renderReport(generator.Generate(name, input))

		if reportOut == "" {
			fmt.Print(markdown)
			return nil
		}
		if err := os.WriteFile(reportOut, []byte(markdown), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Report written to %s\n", reportOut)
		return nil
	},
}

func renderReport(report *insights.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Interview Preparation Report: %s\n\n", report.Company)
	fmt.Fprintf(&sb, "Generated %s from %d analyzed experiences. Data quality %.0f/100 (%s sample).\n\n",
		report.AnalysisDate.Format("2006-01-02"), report.SampleSize,
		report.DataQuality.QualityScore, report.DataQuality.SampleAdequacy)

	if report.Topics == nil {
		fmt.Fprintf(&sb, "%s\n", report.Message)
		for _, rec := range report.Recommendations {
			fmt.Fprintf(&sb, "\n- %s", rec)
		}
		if len(report.Recommendations) > 0 {
			sb.WriteString("\n")
		}
		return sb.String()
	}

	sb.WriteString("## Topic Landscape\n\n")
	if pie := visuals.GenerateCategoryPie(report.Topics.Distribution); pie != "" {
		sb.WriteString(pie)
		sb.WriteString("\n\n")
	}
	if bars := visuals.GenerateTopTopicsChart(report.Topics.DetailedTopics); bars != "" {
		sb.WriteString(bars)
		sb.WriteString("\n\n")
	}

	rec := pipeline.BuildRecommendations(report)
	if rec != nil && len(rec.ImmediateFocus) > 0 {
		sb.WriteString("## Immediate Focus\n\n")
		for _, item := range rec.ImmediateFocus {
			fmt.Fprintf(&sb, "- **%s** (%s): %s. %s.\n", item.Topic, item.Priority, item.Reason, item.Action)
		}
		sb.WriteString("\n")
	}

	if rec != nil && len(rec.StudyPlan) > 0 {
		sb.WriteString("## Study Plan\n\n")
		if gantt := visuals.GenerateStudyPlanGantt(rec, nextMonday(time.Now())); gantt != "" {
			sb.WriteString(gantt)
			sb.WriteString("\n\n")
		}
		if len(rec.TimeAllocation) > 0 {
			fmt.Fprintf(&sb, "Allocate %s of study time to high-priority topics, %s to medium and %s to everything else.\n\n",
				rec.TimeAllocation["high_priority_topics"],
				rec.TimeAllocation["medium_priority_topics"],
				rec.TimeAllocation["additional_preparation"])
		}
	}

	if report.Difficulty != nil {
		sb.WriteString("## Difficulty Profile\n\n")
		fmt.Fprintf(&sb, "%s\n\n", report.Difficulty.TrendInsight)
		if rec != nil && rec.PracticeStrategy != nil {
			fmt.Fprintf(&sb, "Practice approach: %s %s\n\n",
				rec.PracticeStrategy.ProblemSolvingApproach, rec.PracticeStrategy.MockInterviews)
		}
	}

	return sb.String()
}

// nextMonday is the start date for the study-plan gantt.
func nextMonday(from time.Time) time.Time {
	from = from.UTC().Truncate(24 * time.Hour)
	days := (8 - int(from.Weekday())) % 7
	if days == 0 {
		days = 7
	}
	return from.AddDate(0, 0, days)
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "write the report to a file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}
