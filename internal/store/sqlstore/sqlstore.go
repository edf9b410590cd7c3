// Package sqlstore implements store.Store on a single SQLite table through
// GORM. TTL is emulated with an expires_at column: expired rows are treated
// as absent on read and reaped lazily, which matches the semantics of a KV
// namespace with per-key expiry.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"valeshop/internal/store"
)

type kvRecord struct {
	Key       string     `gorm:"column:key;primaryKey"`
	Value     []byte     `gorm:"column:value"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (kvRecord) TableName() string { return "kv_records" }

// Store persists records in a kv_records table.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open opens (and migrates) the SQLite database at dsn.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return NewWithDB(db)
}

// NewWithDB wraps an existing GORM handle, running the schema migration.
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&kvRecord{}); err != nil {
		return nil, fmt.Errorf("migrate kv_records: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var rec kvRecord
	err := s.db.WithContext(ctx).First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	if rec.ExpiresAt != nil && s.now().After(*rec.ExpiresAt) {
		// Lazy reaping, same as a KV namespace dropping the key at expiry.
		s.db.WithContext(ctx).Delete(&kvRecord{}, "key = ?", key)
		return nil, store.ErrNotFound
	}
	return rec.Value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	rec := kvRecord{
		Key:       key,
		Value:     value,
		UpdatedAt: s.now(),
	}
	if ttl > 0 {
		exp := s.now().Add(ttl)
		rec.ExpiresAt = &exp
	}
	err := s.db.WithContext(ctx).Save(&rec).Error
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Delete(&kvRecord{}, "key = ?", key).Error
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string, limit int, cursor string) (store.Page, error) {
	if limit <= 0 {
		limit = 50
	}

	q := s.db.WithContext(ctx).Model(&kvRecord{}).
		Where("key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Where("expires_at IS NULL OR expires_at > ?", s.now()).
		Order("key ASC").
		Limit(limit + 1)
	if cursor != "" {
		q = q.Where("key > ?", cursor)
	}

	var keys []string
	if err := q.Pluck("key", &keys).Error; err != nil {
		return store.Page{}, fmt.Errorf("list %q: %w", prefix, err)
	}

	page := store.Page{}
	if len(keys) > limit {
		page.Keys = keys[:limit]
		page.NextCursor = keys[limit-1]
		page.HasMore = true
	} else {
		page.Keys = keys
	}
	return page, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
