/*
Package sqlite is a GORM/SQLite-backed implementation of store.Store.

It keeps a single table, kv(key, value, proposal), auto-migrated on
open rather than hand-rolled CREATE TABLE statements — GORM's AutoMigrate
replaces the original implementation's per-table DDL loop, and a proper
WHERE clause replaces what was a stray keystroke away from a full scan.
*/
package sqlite

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appErrors "github.com/mnikhil-git/zpax/pkg/errors"
	"github.com/mnikhil-git/zpax/pkg/store"
)

// kvRow is the GORM model for the kv table.
type kvRow struct {
	Key      string `gorm:"primaryKey;column:key"`
	Value    string `gorm:"column:value"`
	Proposal uint64 `gorm:"column:proposal;index:proposal_index"`
}

func (kvRow) TableName() string { return "kv" }

// Store is a SQLite-backed store.Store.
type Store struct {
	db *gorm.DB
}

// Config holds configuration for the SQLite-backed store.
type Config struct {
	// Path is the sqlite database file path.
	Path string `env:"STORE_SQLITE_PATH" env-default:"zpax.db"`
}

// New opens (and, if necessary, creates and migrates) the SQLite file at
// cfg.Path.
func New(cfg Config) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = "zpax.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, appErrors.New(appErrors.CodeInternal, "failed to open sqlite store", err)
	}

	if err := db.AutoMigrate(&kvRow{}); err != nil {
		return nil, appErrors.New(appErrors.CodeInternal, "failed to migrate kv table", err)
	}

	return &Store{db: db}, nil
}

var _ store.Store = (*Store)(nil)

// Commit writes value under key if proposalNumber exceeds the row's
// current proposal number, or the row does not exist yet.
func (s *Store) Commit(ctx context.Context, key string, value string, proposalNumber uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&kvRow{}).
			Where("key = ? AND proposal < ?", key, proposalNumber).
			Updates(map[string]any{"value": value, "proposal": proposalNumber})
		if result.Error != nil {
			return appErrors.New(appErrors.CodeInternal, fmt.Sprintf("failed to commit key %q", key), result.Error)
		}
		if result.RowsAffected > 0 {
			return nil
		}

		var existing kvRow
		found := tx.Where("key = ?", key).Limit(1).Find(&existing)
		if found.Error != nil {
			return appErrors.New(appErrors.CodeInternal, fmt.Sprintf("failed to commit key %q", key), found.Error)
		}
		if found.RowsAffected > 0 {
			// Row exists but proposalNumber did not exceed it; a stale
			// commit, not an error.
			return nil
		}

		row := kvRow{Key: key, Value: value, Proposal: proposalNumber}
		if err := tx.Create(&row).Error; err != nil {
			return appErrors.New(appErrors.CodeInternal, fmt.Sprintf("failed to commit key %q", key), err)
		}
		return nil
	})
}

// Get returns the value currently stored for key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var row kvRow
	result := s.db.WithContext(ctx).Where("key = ?", key).Limit(1).Find(&row)
	if result.Error != nil {
		return "", false, appErrors.New(appErrors.CodeInternal, fmt.Sprintf("failed to read key %q", key), result.Error)
	}
	if result.RowsAffected == 0 {
		return "", false, nil
	}
	return row.Value, true, nil
}

// HighestProposalNumber returns MAX(proposal) across every row, or zero
// if the table is empty.
func (s *Store) HighestProposalNumber(ctx context.Context) (uint64, error) {
	var max uint64
	row := s.db.WithContext(ctx).Model(&kvRow{}).Select("COALESCE(MAX(proposal), 0)").Row()
	if err := row.Scan(&max); err != nil {
		return 0, appErrors.New(appErrors.CodeInternal, "failed to read highest proposal number", err)
	}
	return max, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return appErrors.New(appErrors.CodeInternal, "failed to obtain sql.DB", err)
	}
	return sqlDB.Close()
}
