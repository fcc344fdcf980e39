package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"inventory-sync/core/kv"
	"inventory-sync/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// stateCmd is the parent command for state store maintenance.
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and maintain the tracked host state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show <hostid>",
	Short: "Print the tracked state of a host as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false, false)
		if err != nil {
			return err
		}
		defer a.close()

		prior, err := a.engine.Tracker().Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !prior.Known() && prior.MissingSince.IsZero() {
			return fmt.Errorf("no state for host %s", args[0])
		}
		return printJSON(prior)
	},
}

var stateMissingCmd = &cobra.Command{
	Use:   "missing",
	Short: "List hosts currently missing from monitoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false, false)
		if err != nil {
			return err
		}
		defer a.close()

		entries, err := a.engine.MissingEntities(cmd.Context())
		if err != nil {
			return err
		}
		if entries == nil {
			entries = []reconcile.MissingEntry{}
		}
		return printJSON(entries)
	},
}

var statePurgeCmd = &cobra.Command{
	Use:   "purge <hostid>...",
	Short: "Forget hosts so they are no longer tracked or escalated",
	Long: `Deletes every tracked field of the given hosts, registry reference
included. A purged host that reappears in Zabbix is looked up in NetBox again.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false, false)
		if err != nil {
			return err
		}
		defer a.close()

		for _, id := range args {
			if err := a.engine.Tracker().Purge(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to purge %s: %w", id, err)
			}
			a.logger.Info("Host state purged", zap.String("id", id))
		}
		return nil
	},
}

var statePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired rows from the SQL state table",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false, false)
		if err != nil {
			return err
		}
		defer a.close()

		store, ok := a.state.(*kv.SQLStore)
		if !ok {
			a.logger.Info("Backend expires entries itself, nothing to prune", zap.String("backend", a.cfg.State.Backend))
			return nil
		}
		n, err := store.Prune(cmd.Context())
		if err != nil {
			return err
		}
		a.logger.Info("Expired state pruned", zap.Int64("rows", n))
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	stateCmd.AddCommand(stateShowCmd, stateMissingCmd, statePurgeCmd, statePruneCmd)
	RootCmd.AddCommand(stateCmd)
}
