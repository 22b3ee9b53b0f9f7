package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ScriptPilot/internal/memory"
	"ScriptPilot/pkg/logger"
)

const (
	defaultPrefix = "scriptpilot:"
	defaultWindow = 50
	defaultTTL    = 24 * time.Hour
)

// Config 控制缓存键前缀、窗口大小与过期时间。
type Config struct {
	Prefix string
	Window int
	TTL    time.Duration
}

// CachedStore 在 memory.Store 之前缓存每个会话最近的消息。
type CachedStore struct {
	memory.Store

	client goredis.UniversalClient
	prefix string
	window int
	ttl    time.Duration
	log    *slog.Logger
}

// NewCachedStore 包装底层存储，读取失败时回退到底层存储。
func NewCachedStore(inner memory.Store, client goredis.UniversalClient, cfg Config) *CachedStore {
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	window := cfg.Window
	if window <= 0 {
		window = defaultWindow
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &CachedStore{
		Store:  inner,
		client: client,
		prefix: prefix,
		window: window,
		ttl:    ttl,
		log:    logger.Named("storage.redis"),
	}
}

func (c *CachedStore) key(conversationID string) string {
	return c.prefix + "messages:" + conversationID
}

// AppendMessage 先写底层存储，再追加到缓存列表。
func (c *CachedStore) AppendMessage(ctx context.Context, msg *memory.Message) error {
	if err := c.Store.AppendMessage(ctx, msg); err != nil {
		return err
	}
	encoded, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化缓存消息失败: %w", err)
	}
	key := c.key(msg.ConversationID)
	if _, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, key, encoded)
		pipe.LTrim(ctx, key, int64(-c.window), -1)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	}); err != nil {
		// 缓存写入失败时删除键，避免读到缺失消息的列表。
		c.log.Warn("写入消息缓存失败", slog.String("conversation_id", msg.ConversationID), slog.String("error", err.Error()))
		c.client.Del(ctx, key)
	}
	return nil
}

// RecentMessages 优先从缓存读取，缓存不足时回源并重建缓存。
func (c *CachedStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]memory.Message, error) {
	if limit <= 0 || limit > c.window {
		return c.Store.RecentMessages(ctx, conversationID, limit)
	}
	if cached, ok := c.readCache(ctx, conversationID, limit); ok {
		return cached, nil
	}

	messages, err := c.Store.RecentMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	c.rebuild(ctx, conversationID)
	return messages, nil
}

func (c *CachedStore) readCache(ctx context.Context, conversationID string, limit int) ([]memory.Message, bool) {
	raw, err := c.client.LRange(ctx, c.key(conversationID), int64(-limit), -1).Result()
	if err != nil {
		c.log.Warn("读取消息缓存失败", slog.String("conversation_id", conversationID), slog.String("error", err.Error()))
		return nil, false
	}
	if len(raw) < limit {
		return nil, false
	}
	messages := make([]memory.Message, 0, len(raw))
	for _, item := range raw {
		var msg memory.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, false
		}
		messages = append(messages, msg)
	}
	return messages, true
}

// rebuild 用底层存储的最近窗口覆盖缓存。
func (c *CachedStore) rebuild(ctx context.Context, conversationID string) {
	messages, err := c.Store.RecentMessages(ctx, conversationID, c.window)
	if err != nil || len(messages) == 0 {
		return
	}
	values := make([]any, 0, len(messages))
	for _, msg := range messages {
		encoded, err := json.Marshal(msg)
		if err != nil {
			return
		}
		values = append(values, encoded)
	}
	key := c.key(conversationID)
	if _, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, values...)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	}); err != nil {
		c.log.Warn("重建消息缓存失败", slog.String("conversation_id", conversationID), slog.String("error", err.Error()))
	}
}

// Close 关闭底层存储与 Redis 连接。
func (c *CachedStore) Close() error {
	storeErr := c.Store.Close()
	if err := c.client.Close(); err != nil && storeErr == nil {
		return err
	}
	return storeErr
}

var _ memory.Store = (*CachedStore)(nil)
