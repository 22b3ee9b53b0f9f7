package memory

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	xerrors "ScriptPilot/internal/errors"
	"ScriptPilot/pkg/logger"
)

// Memory 在持久化后端之上维护当前活跃会话。
type Memory struct {
	store Store
	now   func() time.Time
	log   *slog.Logger

	mu     sync.Mutex
	active *Conversation
}

// Option 定义 Memory 的可选配置。
type Option func(*Memory)

// WithClock 替换时间来源，便于测试。
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// New 创建会话记忆服务。
func New(store Store, opts ...Option) *Memory {
	m := &Memory{
		store: store,
		now:   time.Now,
		log:   logger.Named("memory"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Open 返回当前活跃会话；人设或渠道变化或尚无会话时新建一个。
func (m *Memory) Open(ctx context.Context, personaID, channelID string) (Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.PersonaID == personaID && m.active.ChannelID == channelID {
		return *m.active, nil
	}

	conv := &Conversation{
		ID:        uuid.NewString(),
		PersonaID: personaID,
		ChannelID: channelID,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.CreateConversation(ctx, conv); err != nil {
		return Conversation{}, wrapStorage(err, "创建会话失败")
	}
	m.active = conv
	m.log.Debug("开启新会话", slog.String("conversation_id", conv.ID), slog.String("persona", personaID), slog.String("channel", channelID))
	return *conv, nil
}

// Reset 结束当前活跃会话，下一条消息会开启新会话。
func (m *Memory) Reset() {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
}

// Active 返回当前活跃会话。
func (m *Memory) Active() (Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return Conversation{}, false
	}
	return *m.active, true
}

// AppendMessage 向指定会话追加一条消息。
func (m *Memory) AppendMessage(ctx context.Context, conversationID string, role Role, content string, metadata map[string]string) (*Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "会话标识不能为空")
	}
	if !role.Valid() {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "消息角色不合法", xerrors.WithMetadata("role", string(role)))
	}
	msg := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       metadata,
		CreatedAt:      m.now().UTC(),
	}
	if err := m.store.AppendMessage(ctx, msg); err != nil {
		return nil, wrapStorage(err, "写入消息失败")
	}
	return msg, nil
}

// RecentMessages 按时间正序返回活跃会话最近的 n 条消息。
func (m *Memory) RecentMessages(ctx context.Context, n int) ([]Message, error) {
	conv, ok := m.Active()
	if !ok || n <= 0 {
		return nil, nil
	}
	return m.History(ctx, conv.ID, n)
}

// History 按时间正序返回指定会话最近的 n 条消息。
func (m *Memory) History(ctx context.Context, conversationID string, n int) ([]Message, error) {
	messages, err := m.store.RecentMessages(ctx, conversationID, n)
	if err != nil {
		return nil, wrapStorage(err, "查询消息失败")
	}
	return messages, nil
}

// RecordAutomation 把生成成功的脚本写入台账。
func (m *Memory) RecordAutomation(ctx context.Context, automation Automation) (*Automation, error) {
	if strings.TrimSpace(automation.Platform) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "脚本平台不能为空")
	}
	if automation.ID == "" {
		automation.ID = uuid.NewString()
	}
	if automation.CreatedAt.IsZero() {
		automation.CreatedAt = m.now().UTC()
	}
	if err := m.store.AppendAutomation(ctx, &automation); err != nil {
		return nil, wrapStorage(err, "写入脚本记录失败")
	}
	logger.Audit().Info("automation generated",
		slog.String("automation_id", automation.ID),
		slog.String("platform", automation.Platform),
		slog.String("filename", automation.Filename),
	)
	return &automation, nil
}

// SimilarAutomations 返回描述或平台与查询匹配的脚本，limit 小于等于 0 表示全部。
func (m *Memory) SimilarAutomations(ctx context.Context, query string, limit int) ([]Automation, error) {
	terms := Terms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	results, err := m.store.SearchAutomations(ctx, terms, limit)
	if err != nil {
		return nil, wrapStorage(err, "检索脚本失败")
	}
	return results, nil
}

// RecentAutomations 返回最新生成的脚本。
func (m *Memory) RecentAutomations(ctx context.Context, limit int) ([]Automation, error) {
	results, err := m.store.ListAutomations(ctx, limit)
	if err != nil {
		return nil, wrapStorage(err, "查询脚本失败")
	}
	return results, nil
}

// Stats 返回脚本总数与各平台分布。
func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	stats, err := m.store.AutomationStats(ctx)
	if err != nil {
		return Stats{}, wrapStorage(err, "统计脚本失败")
	}
	if stats.PlatformDistribution == nil {
		stats.PlatformDistribution = map[string]int{}
	}
	return stats, nil
}

// Close 关闭底层存储。
func (m *Memory) Close() error {
	return m.store.Close()
}

func wrapStorage(err error, message string) error {
	if _, ok := xerrors.From(err); ok {
		return err
	}
	return xerrors.Wrap(xerrors.CodeStorageFailure, err, message)
}
