// Package storage persists projects, worker configs, and settings in a local
// sqlite-backed key-value store. Loads are defensive: a missing or corrupt
// entry falls back to defaults instead of failing app startup.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite"

	"mapleboard/internal/domain"
)

type kvRecord struct {
	Key       string `gorm:"primaryKey;column:key"`
	Value     string `gorm:"column:value"`
	UpdatedAt int64  `gorm:"column:updated_at"`
}

func (kvRecord) TableName() string { return "kv" }

// KV is the sqlite-backed key-value store.
type KV struct {
	db *gorm.DB
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*KV, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &domain.StorageError{Op: "open", Err: err}
		}
	}

	gdb, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
	if err != nil {
		return nil, &domain.StorageError{Op: "open", Err: err}
	}

	if err := gdb.Exec(`PRAGMA journal_mode=WAL;`).Error; err != nil {
		return nil, &domain.StorageError{Op: "open", Err: err}
	}
	if err := gdb.Exec(`PRAGMA busy_timeout=5000;`).Error; err != nil {
		return nil, &domain.StorageError{Op: "open", Err: err}
	}

	if err := gdb.AutoMigrate(&kvRecord{}); err != nil {
		return nil, &domain.StorageError{Op: "migrate", Err: err}
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, &domain.StorageError{Op: "open", Err: err}
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return &KV{db: gdb}, nil
}

// Close releases the underlying database handle.
func (k *KV) Close() error {
	sqlDB, err := k.db.DB()
	if err != nil {
		return &domain.StorageError{Op: "close", Err: err}
	}
	return sqlDB.Close()
}

// SaveJSON serializes value and upserts it under key.
func (k *KV) SaveJSON(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return &domain.StorageError{Op: "save", Key: key, Err: err}
	}

	record := kvRecord{
		Key:       key,
		Value:     string(raw),
		UpdatedAt: time.Now().UTC().Unix(),
	}
	err = k.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return &domain.StorageError{Op: "save", Key: key, Err: err}
	}
	return nil
}

// LoadJSON reads key into out. found is false when the key is absent; a
// malformed stored value is returned as an error for the caller to default.
func (k *KV) LoadJSON(key string, out any) (bool, error) {
	var record kvRecord
	err := k.db.Where("key = ?", key).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &domain.StorageError{Op: "load", Key: key, Err: err}
	}

	if err := json.Unmarshal([]byte(record.Value), out); err != nil {
		return false, &domain.StorageError{Op: "load", Key: key, Err: err}
	}
	return true, nil
}
