package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry kv_entries 表，由 pkg/database 的迁移创建
type KVEntry struct {
	Key       string    `gorm:"type:varchar(200);primaryKey"`
	Payload   string    `gorm:"type:jsonb;not null"`
	Revision  int64     `gorm:"not null;default:1"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName 指定表名
func (KVEntry) TableName() string { return "kv_entries" }

// PostgresStore 基于 GORM/PostgreSQL 的键值存储
// 变更通知仅在本进程内分发；跨进程通知请使用 RedisStore
type PostgresStore struct {
	db     *gorm.DB
	now    func() time.Time
	events *notifier
}

// NewPostgresStore 创建 PostgreSQL 存储，要求 kv_entries 表已迁移
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now, events: newNotifier()}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var row KVEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{Key: key}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("读取键 %s 失败: %w", key, err)
	}
	return Entry{
		Key:       row.Key,
		Value:     json.RawMessage(row.Payload),
		Revision:  row.Revision,
		UpdatedAt: row.UpdatedAt,
	}, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value json.RawMessage) (Entry, error) {
	now := s.now()
	var saved KVEntry

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := KVEntry{Key: key, Payload: string(value), Revision: 1, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"payload":    gorm.Expr("excluded.payload"),
				"revision":   gorm.Expr("kv_entries.revision + 1"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		return tx.Where("key = ?", key).First(&saved).Error
	})
	if err != nil {
		return Entry{}, fmt.Errorf("写入键 %s 失败: %w", key, err)
	}

	e := Entry{Key: key, Value: cloneRaw(value), Revision: saved.Revision, UpdatedAt: now}
	s.events.publish(Change{Key: key, Value: e.Value, Revision: e.Revision, UpdatedAt: now})
	return e, nil
}

func (s *PostgresStore) CompareAndSet(ctx context.Context, key string, value json.RawMessage, expectedRevision int64) (Entry, error) {
	now := s.now()
	var result *gorm.DB

	if expectedRevision == 0 {
		result = s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&KVEntry{Key: key, Payload: string(value), Revision: 1, UpdatedAt: now})
	} else {
		result = s.db.WithContext(ctx).
			Model(&KVEntry{}).
			Where("key = ? AND revision = ?", key, expectedRevision).
			Updates(map[string]interface{}{
				"payload":    string(value),
				"revision":   gorm.Expr("revision + 1"),
				"updated_at": now,
			})
	}
	if result.Error != nil {
		return Entry{}, fmt.Errorf("写入键 %s 失败: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return Entry{}, ErrOptimisticLock
	}

	e := Entry{Key: key, Value: cloneRaw(value), Revision: expectedRevision + 1, UpdatedAt: now}
	s.events.publish(Change{Key: key, Value: e.Value, Revision: e.Revision, UpdatedAt: now})
	return e, nil
}

func (s *PostgresStore) Subscribe(key string, fn Listener) func() {
	return s.events.subscribe(key, fn)
}

// Close 连接由 pkg/database 持有，此处不关闭
func (s *PostgresStore) Close() error { return nil }
