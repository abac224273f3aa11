package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteStore 单文件 SQLite 键值存储，一个键一行
type SQLiteStore struct {
	db     *sql.DB
	path   string
	mu     sync.Mutex
	now    func() time.Time
	events *notifier
}

// NewSQLiteStore 打开（必要时创建）SQLite 存储文件
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "campus-asset.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开 sqlite 失败: %w", err)
	}
	// 单连接：SQLite 写入本身串行，避免 database is locked
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv_entries (
		key        TEXT PRIMARY KEY,
		payload    BLOB NOT NULL,
		revision   INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("创建 kv_entries 表失败: %w", err)
	}

	return &SQLiteStore{db: db, path: path, now: time.Now, events: newNotifier()}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var (
		payload   []byte
		revision  int64
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, revision, updated_at FROM kv_entries WHERE key = ?`, key,
	).Scan(&payload, &revision, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{Key: key}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("读取键 %s 失败: %w", key, err)
	}
	return Entry{
		Key:       key,
		Value:     json.RawMessage(payload),
		Revision:  revision,
		UpdatedAt: time.Unix(0, updatedAt),
	}, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value json.RawMessage) (Entry, error) {
	s.mu.Lock()
	now := s.now()
	var revision int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO kv_entries(key, payload, revision, updated_at) VALUES(?, ?, 1, ?)
		 ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			revision = kv_entries.revision + 1,
			updated_at = excluded.updated_at
		 RETURNING revision`,
		key, []byte(value), now.UnixNano(),
	).Scan(&revision)
	s.mu.Unlock()
	if err != nil {
		return Entry{}, fmt.Errorf("写入键 %s 失败: %w", key, err)
	}

	e := Entry{Key: key, Value: cloneRaw(value), Revision: revision, UpdatedAt: now}
	s.events.publish(Change{Key: key, Value: e.Value, Revision: revision, UpdatedAt: now})
	return e, nil
}

func (s *SQLiteStore) CompareAndSet(ctx context.Context, key string, value json.RawMessage, expectedRevision int64) (Entry, error) {
	s.mu.Lock()
	now := s.now()
	var (
		res sql.Result
		err error
	)
	if expectedRevision == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO kv_entries(key, payload, revision, updated_at) VALUES(?, ?, 1, ?)
			 ON CONFLICT(key) DO NOTHING`,
			key, []byte(value), now.UnixNano())
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE kv_entries SET payload = ?, revision = revision + 1, updated_at = ?
			 WHERE key = ? AND revision = ?`,
			[]byte(value), now.UnixNano(), key, expectedRevision)
	}
	s.mu.Unlock()
	if err != nil {
		return Entry{}, fmt.Errorf("写入键 %s 失败: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Entry{}, fmt.Errorf("写入键 %s 失败: %w", key, err)
	}
	if n == 0 {
		return Entry{}, ErrOptimisticLock
	}

	e := Entry{Key: key, Value: cloneRaw(value), Revision: expectedRevision + 1, UpdatedAt: now}
	s.events.publish(Change{Key: key, Value: e.Value, Revision: e.Revision, UpdatedAt: now})
	return e, nil
}

func (s *SQLiteStore) Subscribe(key string, fn Listener) func() {
	return s.events.subscribe(key, fn)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path 返回数据库文件路径
func (s *SQLiteStore) Path() string { return s.path }
