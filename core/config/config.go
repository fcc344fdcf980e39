package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"inventory-sync/core/database"
	"inventory-sync/core/kv"
	"inventory-sync/core/logger"
	"inventory-sync/core/server"
	"inventory-sync/core/storage"
	"inventory-sync/feature/monitor"
	"inventory-sync/feature/netbox"
	"inventory-sync/feature/notify"
	"inventory-sync/feature/zabbix"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the SQL state backend.
	Database database.Config `mapstructure:"database"`
	// Storage holds configuration for the report archive (S3/MinIO).
	Storage storage.Config `mapstructure:"storage"`
	// State holds configuration for the state store.
	State kv.Config `mapstructure:"state"`
	// Source holds configuration for the Zabbix inventory source.
	Source zabbix.Config `mapstructure:"source"`
	// Registry holds configuration for the NetBox registry.
	Registry netbox.Config `mapstructure:"registry"`
	// Notify holds configuration for event delivery.
	Notify notify.Config `mapstructure:"notify"`
	// Monitor holds configuration for scheduled reconciliation.
	Monitor monitor.Config `mapstructure:"monitor"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SOURCE_URL -> source.url)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if !c.State.IsValidBackend() {
		errs = append(errs, fmt.Errorf("state.backend: unsupported backend %q", c.State.Backend))
	}
	if c.Source.URL == "" {
		errs = append(errs, errors.New("source.url: required"))
	}
	if c.Source.Token == "" && c.Source.Username == "" {
		errs = append(errs, errors.New("source: token or username required"))
	}
	if len(c.Source.GroupNames()) == 0 {
		errs = append(errs, errors.New("source.groups: at least one group required"))
	}
	if c.Registry.URL == "" {
		errs = append(errs, errors.New("registry.url: required"))
	}
	if _, err := c.Monitor.Policy(); err != nil {
		errs = append(errs, fmt.Errorf("monitor.thresholds: %w", err))
	}
	if c.Monitor.DailyReportHour > 23 {
		errs = append(errs, fmt.Errorf("monitor.daily_report_hour: %d is not an hour", c.Monitor.DailyReportHour))
	}
	for _, ch := range c.Notify.ChannelNames() {
		switch ch {
		case notify.ChannelLog, notify.ChannelNats:
		case notify.ChannelTelegram:
			if !c.Notify.Telegram.Configured() {
				errs = append(errs, errors.New("notify.telegram: token and chat_id required"))
			}
		default:
			errs = append(errs, fmt.Errorf("notify.channels: unknown channel %q", ch))
		}
	}
	return errors.Join(errs...)
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// Nested sections recurse; time.Duration is an int64 and falls through.
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
