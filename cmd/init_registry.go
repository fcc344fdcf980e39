package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// initRegistryCmd prepares NetBox for synchronization.
var initRegistryCmd = &cobra.Command{
	Use:   "init-registry",
	Short: "Create the NetBox custom fields and device role",
	Long: `Verifies the NetBox API token, then creates the device custom fields
(zabbix_hostid, last_sync, os_version, serial_a, serial_b, hardware_info)
and the Storage device role when they do not exist. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, false, true)
		if err != nil {
			return err
		}
		defer a.close()

		version, err := a.registry.Ping(ctx)
		if err != nil {
			return fmt.Errorf("failed to reach NetBox: %w", err)
		}
		a.logger.Info("Connected to NetBox", zap.String("version", version))

		created, err := a.registry.EnsureCustomFields(ctx)
		if len(created) > 0 {
			a.logger.Info("Custom fields created", zap.Strings("names", created))
		}
		if err != nil {
			return fmt.Errorf("failed to create custom fields: %w", err)
		}

		roleID, err := a.registry.EnsureDeviceRole(ctx)
		if err != nil {
			return fmt.Errorf("failed to create device role: %w", err)
		}
		a.logger.Info("NetBox initialized", zap.Int("device_role_id", roleID))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(initRegistryCmd)
}
