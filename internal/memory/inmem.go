package memory

import (
	"context"
	"sync"

	xerrors "ScriptPilot/internal/errors"
)

// InMemoryStore 将会话记忆保存在进程内存中，主要用于测试与文件后端。
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]Conversation
	messages      map[string][]Message
	automations   []Automation
}

// NewInMemoryStore 创建内存存储。
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[string]Conversation),
		messages:      make(map[string][]Message),
	}
}

// CreateConversation 实现 Store 接口。
func (s *InMemoryStore) CreateConversation(_ context.Context, conv *Conversation) error {
	if conv == nil || conv.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "会话标识不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.conversations[conv.ID]; exists {
		return xerrors.New(xerrors.CodeConflict, "会话已存在")
	}
	s.conversations[conv.ID] = *conv
	return nil
}

// AppendMessage 实现 Store 接口。
func (s *InMemoryStore) AppendMessage(_ context.Context, msg *Message) error {
	if msg == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "消息不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[msg.ConversationID]; !ok {
		return xerrors.New(xerrors.CodeNotFound, "会话不存在")
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], cloneMessage(*msg))
	return nil
}

// RecentMessages 实现 Store 接口。
func (s *InMemoryStore) RecentMessages(_ context.Context, conversationID string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.messages[conversationID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]Message, 0, limit)
	for _, msg := range all[len(all)-limit:] {
		out = append(out, cloneMessage(msg))
	}
	return out, nil
}

// AppendAutomation 实现 Store 接口。
func (s *InMemoryStore) AppendAutomation(_ context.Context, automation *Automation) error {
	if automation == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "脚本记录不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.automations = append(s.automations, *automation)
	return nil
}

// SearchAutomations 实现 Store 接口。
func (s *InMemoryStore) SearchAutomations(_ context.Context, terms []string, limit int) ([]Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Automation
	for i := len(s.automations) - 1; i >= 0; i-- {
		if !Matches(s.automations[i], terms) {
			continue
		}
		out = append(out, s.automations[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ListAutomations 实现 Store 接口。
func (s *InMemoryStore) ListAutomations(_ context.Context, limit int) ([]Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.automations) {
		limit = len(s.automations)
	}
	out := make([]Automation, 0, limit)
	for i := len(s.automations) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.automations[i])
	}
	return out, nil
}

// AutomationStats 实现 Store 接口。
func (s *InMemoryStore) AutomationStats(context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{PlatformDistribution: make(map[string]int)}
	for _, a := range s.automations {
		stats.TotalAutomations++
		stats.PlatformDistribution[a.Platform]++
	}
	return stats, nil
}

// Close 实现 Store 接口。
func (s *InMemoryStore) Close() error { return nil }

func cloneMessage(msg Message) Message {
	if msg.Metadata != nil {
		meta := make(map[string]string, len(msg.Metadata))
		for k, v := range msg.Metadata {
			meta[k] = v
		}
		msg.Metadata = meta
	}
	return msg
}

var _ Store = (*InMemoryStore)(nil)
