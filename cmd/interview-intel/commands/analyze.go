package commands

import (
	"github.com/spf13/cobra"

	"interview-intel/internal/pipeline"
)

var (
	analyzeMax     int
	analyzeRefresh bool
	batchMax       int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <company>",
	Short: "Run the full collection and analysis pipeline for one company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result := manager.RunCompleteAnalysis(cmd.Context(), args[0], analyzeMax, analyzeRefresh)
		return printJSON(result)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <company>...",
	Short: "Run the pipeline for up to five companies",
	Args:  cobra.RangeArgs(1, 5),
	RunE: func(cmd *cobra.Command, args []string) error {
		result := manager.RunBatchAnalysis(cmd.Context(), args, batchMax)
		return printJSON(result)
	},
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeMax, "max", pipeline.DefaultMaxExperiences,
		"maximum experiences to collect")
	analyzeCmd.Flags().BoolVar(&analyzeRefresh, "refresh", false,
		"scrape fresh data even when the cached corpus is recent")
	batchCmd.Flags().IntVar(&batchMax, "max", pipeline.DefaultMaxExperiences,
		"maximum experiences to collect per company")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(batchCmd)
}
