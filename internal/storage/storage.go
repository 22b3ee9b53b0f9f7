package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ScriptPilot/internal/config"
	xerrors "ScriptPilot/internal/errors"
	"ScriptPilot/internal/memory"
	"ScriptPilot/internal/storage/file"
	"ScriptPilot/internal/storage/mysql"
	rediscache "ScriptPilot/internal/storage/redis"
	"ScriptPilot/internal/storage/sqlite"
	"ScriptPilot/pkg/logger"
)

// 支持的存储驱动。
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverFile   = "file"
)

// Open 根据配置创建会话记忆存储，启用 Redis 时在外层叠加最近消息缓存。
func Open(ctx context.Context, cfg config.StorageConfig) (memory.Store, error) {
	store, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.Redis.Enabled {
		return store, nil
	}

	client, err := newRedisClient(ctx, cfg.Redis)
	if err != nil {
		store.Close()
		return nil, err
	}
	logger.Named("storage").Info("已启用 Redis 消息缓存", "address", cfg.Redis.Address)
	return rediscache.NewCachedStore(store, client, rediscache.Config{
		Prefix: cfg.Redis.Prefix,
		Window: cfg.Redis.Window,
		TTL:    time.Duration(cfg.Redis.TTL) * time.Second,
	}), nil
}

func openBackend(ctx context.Context, cfg config.StorageConfig) (memory.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", DriverSQLite:
		return sqlite.Open(ctx, sqlite.Config{DSN: cfg.DSN, DataDir: cfg.DataDir})
	case DriverMySQL:
		return mysql.Open(ctx, mysql.Config{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeSeconds) * time.Second,
		})
	case DriverFile:
		return file.Open(cfg.DataDir)
	default:
		return nil, xerrors.New(xerrors.CodeInitializationFailure, fmt.Sprintf("不支持的存储驱动: %s", cfg.Driver))
	}
}

// NewRedisClient 按配置创建 Redis 客户端并检查连通性。
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (goredis.UniversalClient, error) {
	return newRedisClient(ctx, cfg)
}

func newRedisClient(ctx context.Context, cfg config.RedisConfig) (goredis.UniversalClient, error) {
	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		address = "127.0.0.1:6379"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "连接 Redis 失败")
	}
	return client, nil
}
