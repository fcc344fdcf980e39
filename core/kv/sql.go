package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory-sync/core/clock"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TableName is the table backing SQLStore.
const TableName = "kv_entries"

// Columns lists the columns SQLStore relies on.
var Columns = []string{"key", "value", "expires_at"}

// Entry is a row of the state table.
type Entry struct {
	Key       string    `gorm:"column:key;primaryKey;size:191"`
	Value     []byte    `gorm:"column:value"`
	ExpiresAt time.Time `gorm:"column:expires_at;index"`
}

// TableName implements gorm's Tabler.
func (Entry) TableName() string {
	return TableName
}

// SQLStore stores entries in a relational table through GORM.
type SQLStore struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewSQLStore migrates the state table and returns a store over it.
func NewSQLStore(ctx context.Context, db *gorm.DB, clk clock.Clock) (*SQLStore, error) {
	if clk == nil {
		clk = clock.Real()
	}
	if err := db.WithContext(ctx).AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate %s: %w", TableName, err)
	}
	return &SQLStore{db: db, clock: clk}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry Entry
	err := s.db.WithContext(ctx).
		Where("`key` = ? AND expires_at > ?", key, s.clock.Now()).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := Entry{
		Key:       key,
		Value:     value,
		ExpiresAt: s.clock.Now().Add(effectiveTTL(ttl)),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("`key` = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).
		Model(&Entry{}).
		Where("`key` LIKE ? ESCAPE '!' AND expires_at > ?", globToLike(pattern), s.clock.Now()).
		Order("`key`").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", pattern, err)
	}
	return keys, nil
}

// Prune deletes expired rows and returns how many were removed.
func (s *SQLStore) Prune(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.clock.Now()).Delete(&Entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune %s: %w", TableName, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *SQLStore) Close() error {
	return nil
}

// globToLike converts a '*'/'?' glob into a LIKE pattern escaped with '!'.
func globToLike(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '!', '%', '_':
			b.WriteRune('!')
			b.WriteRune(r)
		case '*':
			b.WriteRune('%')
		case '?':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
