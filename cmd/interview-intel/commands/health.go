package commands

import (
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Print a system health report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(manager.Health(cmd.Context()))
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
