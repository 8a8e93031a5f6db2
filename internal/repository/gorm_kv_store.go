package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xcloud/console-client/internal/domain"
	"github.com/xcloud/console-client/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// OpenSessionDB opens a SQL database for session storage and migrates the
// session_entries table. driver is "sqlite" or "postgres".
func OpenSessionDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported session db driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s session db: %w", driver, err)
	}
	if err := db.AutoMigrate(&domain.SessionEntry{}); err != nil {
		return nil, fmt.Errorf("migrate session entries: %w", err)
	}
	return db, nil
}

type GormKeyValueStore struct {
	db        *gorm.DB
	namespace string
}

func NewGormKeyValueStore(db *gorm.DB, namespace string) *GormKeyValueStore {
	if namespace == "" {
		namespace = "default"
	}
	return &GormKeyValueStore{db: db, namespace: namespace}
}

func (s *GormKeyValueStore) Get(ctx context.Context, key string) (string, error) {
	var entry domain.SessionEntry
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", s.namespace, key).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordStorageOperation(ctx, "sql", "get", "not_found")
			return "", ErrKeyNotFound
		}
		observability.RecordStorageOperation(ctx, "sql", "get", "error")
		return "", err
	}
	observability.RecordStorageOperation(ctx, "sql", "get", "success")
	return entry.Value, nil
}

func (s *GormKeyValueStore) Set(ctx context.Context, key, value string) error {
	entry := domain.SessionEntry{
		Namespace: s.namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		observability.RecordStorageOperation(ctx, "sql", "set", "error")
		return err
	}
	observability.RecordStorageOperation(ctx, "sql", "set", "success")
	return nil
}

func (s *GormKeyValueStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND entry_key IN ?", s.namespace, keys).
		Delete(&domain.SessionEntry{}).Error
	if err != nil {
		observability.RecordStorageOperation(ctx, "sql", "delete", "error")
		return err
	}
	observability.RecordStorageOperation(ctx, "sql", "delete", "success")
	return nil
}
