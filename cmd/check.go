package cmd

import (
	"errors"

	"inventory-sync/feature/health"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errUnhealthy = errors.New("one or more required checks failed")

// checkCmd verifies connectivity to every configured backend.
var checkCmd = &cobra.Command{
	Use:   "check [name]",
	Short: "Check connectivity to Zabbix, NetBox, the state store and channels",
	Long: `Runs every connectivity check, or only the named one. Optional checks
(telegram, storage) are reported but never fail the command.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false, true)
		if err != nil {
			return err
		}
		defer a.close()

		svc := a.healthService()
		if len(args) == 1 {
			res, err := svc.RunOne(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			logResult(a.logger, res)
			if !res.OK && res.Required {
				return errUnhealthy
			}
			return nil
		}

		report := svc.Run(cmd.Context())
		for _, res := range report.Results {
			logResult(a.logger, res)
		}
		if !report.Healthy {
			return errUnhealthy
		}
		a.logger.Info("All required checks passed")
		return nil
	},
}

func logResult(l *zap.Logger, res health.Result) {
	fields := []zap.Field{zap.String("check", res.Name), zap.Duration("duration", res.Duration)}
	switch {
	case res.OK:
		l.Info("Check passed", append(fields, zap.String("detail", res.Detail))...)
	case res.Required:
		l.Error("Check failed", append(fields, zap.String("error", res.Error))...)
	default:
		l.Warn("Optional check failed", append(fields, zap.String("error", res.Error))...)
	}
}

func init() {
	RootCmd.AddCommand(checkCmd)
}
