package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// reportCmd sends the daily summary immediately.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Send the daily summary now",
	Long:  `Builds the daily report (known hosts, today's new and changed counts, missing hosts) and sends it to every notification channel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false, false)
		if err != nil {
			return err
		}
		defer a.close()

		report, err := a.monitorService().SendDailyReport(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to send daily report: %w", err)
		}
		a.logger.Info("Daily report sent",
			zap.String("date", report.Date),
			zap.Int("total", report.Total),
			zap.Int("new", report.New),
			zap.Int("changed", report.Changed),
			zap.Int("missing", len(report.Missing)),
		)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(reportCmd)
}
