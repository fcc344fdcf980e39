package health

import (
	"context"
	"fmt"
	"strings"

	"inventory-sync/core/database"
	"inventory-sync/core/kv"
	"inventory-sync/core/storage"

	"gorm.io/gorm"
)

// Check is one named connectivity check. Optional checks never make the
// report unhealthy.
type Check struct {
	Name     string
	Required bool
	Run      func(ctx context.Context) (detail string, err error)
}

// Pinger is implemented by the inventory source.
type Pinger interface {
	Ping(ctx context.Context) error
}

// VersionPinger is implemented by the registry.
type VersionPinger interface {
	Ping(ctx context.Context) (version string, err error)
}

// BotChecker is implemented by the Telegram channel.
type BotChecker interface {
	Check(ctx context.Context) (username string, err error)
}

// SourceCheck logs in to the inventory source.
func SourceCheck(p Pinger) Check {
	return Check{Name: "source", Required: true, Run: func(ctx context.Context) (string, error) {
		if err := p.Ping(ctx); err != nil {
			return "", err
		}
		return "login ok", nil
	}}
}

// RegistryCheck queries the registry status endpoint.
func RegistryCheck(p VersionPinger) Check {
	return Check{Name: "registry", Required: true, Run: func(ctx context.Context) (string, error) {
		version, err := p.Ping(ctx)
		if err != nil {
			return "", err
		}
		return "version " + version, nil
	}}
}

// StateCheck runs a write/read/delete round trip against the state store.
func StateCheck(s kv.Store, prefix string) Check {
	return Check{Name: "state", Required: true, Run: func(ctx context.Context) (string, error) {
		if err := kv.Probe(ctx, s, prefix+":health:probe"); err != nil {
			return "", err
		}
		return "round trip ok", nil
	}}
}

// SchemaCheck verifies the SQL state table has every expected column.
func SchemaCheck(db *gorm.DB) Check {
	return Check{Name: "schema", Required: true, Run: func(ctx context.Context) (string, error) {
		missing, err := database.MissingColumns(db.WithContext(ctx), kv.TableName, kv.Columns)
		if err != nil {
			return "", err
		}
		if len(missing) > 0 {
			return "", fmt.Errorf("table %s is missing columns: %s", kv.TableName, strings.Join(missing, ", "))
		}
		return kv.TableName + " ok", nil
	}}
}

// TelegramCheck calls getMe on the bot.
func TelegramCheck(b BotChecker) Check {
	return Check{Name: "telegram", Run: func(ctx context.Context) (string, error) {
		name, err := b.Check(ctx)
		if err != nil {
			return "", err
		}
		return "@" + name, nil
	}}
}

// StorageCheck verifies the archive bucket exists.
func StorageCheck(c storage.Client, bucket string) Check {
	return Check{Name: "storage", Run: func(ctx context.Context) (string, error) {
		exists, err := c.BucketExists(ctx, bucket)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", fmt.Errorf("bucket %s does not exist", bucket)
		}
		return "bucket " + bucket, nil
	}}
}
