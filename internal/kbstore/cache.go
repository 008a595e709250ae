// 本文件用于知识库快照的本地持久缓存
// 单槽位 sqlite 存储 读改写不加显式锁 快照幂等 最后写入生效

package kbstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"error-match/internal/kb"
)

const defaultCacheDir = "data/kbcache"

// Cache 持久化的单槽位快照缓存
type Cache struct {
	db     *sql.DB
	dbPath string
}

// OpenCache 统一负责缓存存储初始化
// 目录创建 打开数据库 设置 WAL 和迁移收敛在一个入口
// 调用方拿到 Cache 时已处于可读写状态
func OpenCache(dataDir string) (*Cache, error) {
	root := strings.TrimSpace(dataDir)
	if root == "" {
		root = defaultCacheDir
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create kb cache dir failed: %w", err)
	}
	dbPath := filepath.Join(root, "kbcache.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open kb cache sqlite failed: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set kb cache sqlite wal failed: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db, dbPath: dbPath}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kb_cache (
			slot INTEGER PRIMARY KEY CHECK (slot = 1),
			updated_at TEXT NOT NULL,
			payload TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate kb cache failed: %w", err)
	}
	return nil
}

// Close 关闭底层数据库
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DBPath 返回缓存库文件路径
func (c *Cache) DBPath() string {
	if c == nil {
		return ""
	}
	return c.dbPath
}

// Load 读取缓存槽位，槽位为空时 ok 为 false
func (c *Cache) Load() (items []kb.Entry, updatedAt time.Time, ok bool, err error) {
	if c == nil || c.db == nil {
		return nil, time.Time{}, false, nil
	}
	var updatedRaw, payload string
	row := c.db.QueryRow(`SELECT updated_at, payload FROM kb_cache WHERE slot = 1`)
	if scanErr := row.Scan(&updatedRaw, &payload); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, fmt.Errorf("read kb cache failed: %w", scanErr)
	}
	updatedAt, parseErr := time.Parse(time.RFC3339, updatedRaw)
	if parseErr != nil {
		return nil, time.Time{}, false, fmt.Errorf("parse kb cache updated_at failed: %w", parseErr)
	}
	if unmarshalErr := json.Unmarshal([]byte(payload), &items); unmarshalErr != nil {
		return nil, time.Time{}, false, fmt.Errorf("decode kb cache payload failed: %w", unmarshalErr)
	}
	return items, updatedAt, true, nil
}

// Save 覆盖缓存槽位
func (c *Cache) Save(items []kb.Entry, updatedAt time.Time) error {
	if c == nil || c.db == nil {
		return fmt.Errorf("kb cache not ready")
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode kb cache payload failed: %w", err)
	}
	_, err = c.db.Exec(`
		INSERT INTO kb_cache (slot, updated_at, payload) VALUES (1, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET updated_at = excluded.updated_at, payload = excluded.payload
	`, updatedAt.UTC().Format(time.RFC3339), string(payload))
	if err != nil {
		return fmt.Errorf("write kb cache failed: %w", err)
	}
	return nil
}

// Clear 清空缓存槽位
func (c *Cache) Clear() error {
	if c == nil || c.db == nil {
		return nil
	}
	if _, err := c.db.Exec(`DELETE FROM kb_cache WHERE slot = 1`); err != nil {
		return fmt.Errorf("clear kb cache failed: %w", err)
	}
	return nil
}
