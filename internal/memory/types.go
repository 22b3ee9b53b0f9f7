package memory

import (
	"context"
	"time"
)

// Role 标识消息的发送方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid 判断角色是否合法。
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Conversation 记录一次会话所使用的人设与渠道。
type Conversation struct {
	ID        string    `json:"id"`
	PersonaID string    `json:"persona_id"`
	ChannelID string    `json:"channel_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message 是会话中的一条消息。
type Message struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	Role           Role              `json:"role"`
	Content        string            `json:"content"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Automation 是一次成功生成的脚本，写入后不可修改。
type Automation struct {
	ID            string    `json:"id"`
	Platform      string    `json:"platform"`
	Description   string    `json:"description"`
	Script        string    `json:"script"`
	Documentation string    `json:"documentation"`
	Filename      string    `json:"filename"`
	CreatedAt     time.Time `json:"created_at"`
}

// Stats 汇总脚本生成情况。
type Stats struct {
	TotalAutomations     int            `json:"total_automations"`
	PlatformDistribution map[string]int `json:"platform_distribution"`
}

// Store 定义会话记忆的持久化接口，只允许追加写入。
type Store interface {
	CreateConversation(ctx context.Context, conv *Conversation) error
	AppendMessage(ctx context.Context, msg *Message) error
	// RecentMessages 按时间正序返回会话最近的 limit 条消息。
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)
	AppendAutomation(ctx context.Context, automation *Automation) error
	// SearchAutomations 返回描述或平台包含任一关键词的脚本，最新的在前。
	SearchAutomations(ctx context.Context, terms []string, limit int) ([]Automation, error)
	// ListAutomations 返回最新的 limit 条脚本，limit 小于等于 0 表示全部。
	ListAutomations(ctx context.Context, limit int) ([]Automation, error)
	AutomationStats(ctx context.Context) (Stats, error)
	Close() error
}
