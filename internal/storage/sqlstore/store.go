package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ScriptPilot/internal/memory"
)

// Store 基于 database/sql 实现 memory.Store。
type Store struct {
	db *sql.DB
}

// New 使用已完成迁移的连接创建存储。
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB 暴露底层连接，便于健康检查。
func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateConversation 写入一条会话记录。
func (s *Store) CreateConversation(ctx context.Context, conv *memory.Conversation) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, persona_id, channel_id, created_at) VALUES (?, ?, ?, ?)`,
		conv.ID, conv.PersonaID, conv.ChannelID, conv.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("写入会话失败: %w", err)
	}
	return nil
}

// AppendMessage 追加一条消息。
func (s *Store) AppendMessage(ctx context.Context, msg *memory.Message) error {
	metadata := ""
	if len(msg.Metadata) > 0 {
		encoded, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("序列化消息元数据失败: %w", err)
		}
		metadata = string(encoded)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, string(msg.Role), msg.Content, metadata, msg.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("写入消息失败: %w", err)
	}
	return nil
}

// RecentMessages 按插入顺序返回会话最近的 limit 条消息。
func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]memory.Message, error) {
	query := `SELECT id, conversation_id, role, content, metadata, created_at FROM messages
        WHERE conversation_id = ? ORDER BY seq DESC`
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询消息失败: %w", err)
	}
	defer rows.Close()

	var messages []memory.Message
	for rows.Next() {
		var (
			msg       memory.Message
			role      string
			metadata  string
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("解析消息失败: %w", err)
		}
		msg.Role = memory.Role(role)
		msg.CreatedAt = time.UnixMilli(createdAt).UTC()
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("解析消息元数据失败: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历消息失败: %w", err)
	}

	// 查询结果为倒序，这里翻转为时间正序。
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// AppendAutomation 写入脚本台账。
func (s *Store) AppendAutomation(ctx context.Context, a *memory.Automation) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO automations (id, platform, description, script, documentation, filename, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Platform, a.Description, a.Script, a.Documentation, a.Filename, a.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("写入脚本记录失败: %w", err)
	}
	return nil
}

const automationColumns = `id, platform, description, script, documentation, filename, created_at`

// SearchAutomations 以 LIKE 匹配描述与平台。
func (s *Store) SearchAutomations(ctx context.Context, terms []string, limit int) ([]memory.Automation, error) {
	var (
		clauses []string
		args    []any
	)
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		pattern := "%" + escapeLike(term) + "%"
		clauses = append(clauses, `(LOWER(description) LIKE ? ESCAPE '!' OR LOWER(platform) LIKE ? ESCAPE '!')`)
		args = append(args, pattern, pattern)
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	query := `SELECT ` + automationColumns + ` FROM automations WHERE ` + strings.Join(clauses, " OR ") + ` ORDER BY seq DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryAutomations(ctx, query, args...)
}

// ListAutomations 返回最新的脚本记录。
func (s *Store) ListAutomations(ctx context.Context, limit int) ([]memory.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryAutomations(ctx, query, args...)
}

func (s *Store) queryAutomations(ctx context.Context, query string, args ...any) ([]memory.Automation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询脚本记录失败: %w", err)
	}
	defer rows.Close()

	var automations []memory.Automation
	for rows.Next() {
		var (
			a         memory.Automation
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &a.Platform, &a.Description, &a.Script, &a.Documentation, &a.Filename, &createdAt); err != nil {
			return nil, fmt.Errorf("解析脚本记录失败: %w", err)
		}
		a.CreatedAt = time.UnixMilli(createdAt).UTC()
		automations = append(automations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历脚本记录失败: %w", err)
	}
	return automations, nil
}

// AutomationStats 统计脚本总数与平台分布。
func (s *Store) AutomationStats(ctx context.Context) (memory.Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT platform, COUNT(*) FROM automations GROUP BY platform`)
	if err != nil {
		return memory.Stats{}, fmt.Errorf("统计脚本失败: %w", err)
	}
	defer rows.Close()

	stats := memory.Stats{PlatformDistribution: make(map[string]int)}
	for rows.Next() {
		var (
			platform string
			count    int
		)
		if err := rows.Scan(&platform, &count); err != nil {
			return memory.Stats{}, fmt.Errorf("解析统计结果失败: %w", err)
		}
		stats.PlatformDistribution[platform] = count
		stats.TotalAutomations += count
	}
	if err := rows.Err(); err != nil {
		return memory.Stats{}, fmt.Errorf("遍历统计结果失败: %w", err)
	}
	return stats, nil
}

// Close 关闭底层数据库连接。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func escapeLike(term string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(term)
}

var _ memory.Store = (*Store)(nil)
