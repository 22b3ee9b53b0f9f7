package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	// 注册纯 Go 实现的 sqlite 驱动。
	_ "modernc.org/sqlite"

	"ScriptPilot/deploy/migrations"
	"ScriptPilot/internal/storage/sqlstore"
)

// DefaultFilename 是未指定 DSN 时使用的数据库文件名。
const DefaultFilename = "scriptpilot.db"

const defaultPragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// Config 描述 SQLite 数据库的位置。
type Config struct {
	// DSN 优先使用；为空时在 DataDir 下创建数据库文件。
	DSN     string
	DataDir string
}

// Open 打开数据库、执行迁移并返回 memory.Store 实现。
func Open(ctx context.Context, cfg Config) (*sqlstore.Store, error) {
	dsn, err := resolveDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开 SQLite 失败: %w", err)
	}
	// SQLite 只允许单个写入者。
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("无法连接到 SQLite: %w", err)
	}
	if err := sqlstore.Migrate(ctx, db, migrations.SQLite()); err != nil {
		db.Close()
		return nil, err
	}
	return sqlstore.New(db), nil
}

func resolveDSN(cfg Config) (string, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, nil
	}
	dataDir := strings.TrimSpace(cfg.DataDir)
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("创建数据目录失败: %w", err)
	}
	return "file:" + filepath.Join(dataDir, DefaultFilename) + "?" + defaultPragmas, nil
}
