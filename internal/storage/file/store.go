package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"ScriptPilot/internal/memory"
	"ScriptPilot/pkg/logger"
)

// LogFilename 是数据目录下的日志文件名。
const LogFilename = "memory.log"

const (
	kindConversation = "conversation"
	kindMessage      = "message"
	kindAutomation   = "automation"
)

// entry 是日志文件中的一行记录。
type entry struct {
	Kind         string               `json:"kind"`
	Conversation *memory.Conversation `json:"conversation,omitempty"`
	Message      *memory.Message      `json:"message,omitempty"`
	Automation   *memory.Automation   `json:"automation,omitempty"`
}

// Store 以追加写 JSON 行的方式持久化记忆，读取由内存索引完成。
type Store struct {
	*memory.InMemoryStore

	mu       sync.Mutex
	dataFile string
}

// Open 在数据目录下打开或创建日志并回放已有记录。
func Open(dataDir string) (*Store, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	s := &Store{
		InMemoryStore: memory.NewInMemoryStore(),
		dataFile:      filepath.Join(dataDir, LogFilename),
	}
	if err := s.loadFromDisk(); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateConversation 先写日志再更新内存索引。
func (s *Store) CreateConversation(ctx context.Context, conv *memory.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.InMemoryStore.CreateConversation(ctx, conv); err != nil {
		return err
	}
	return s.append(entry{Kind: kindConversation, Conversation: conv})
}

// AppendMessage 追加一条消息。
func (s *Store) AppendMessage(ctx context.Context, msg *memory.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.InMemoryStore.AppendMessage(ctx, msg); err != nil {
		return err
	}
	return s.append(entry{Kind: kindMessage, Message: msg})
}

// AppendAutomation 追加一条脚本记录。
func (s *Store) AppendAutomation(ctx context.Context, automation *memory.Automation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.InMemoryStore.AppendAutomation(ctx, automation); err != nil {
		return err
	}
	return s.append(entry{Kind: kindAutomation, Automation: automation})
}

func (s *Store) append(e entry) error {
	file, err := os.OpenFile(s.dataFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("打开记忆日志失败: %w", err)
	}
	defer file.Close()

	encoded, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("序列化记忆记录失败: %w", err)
	}
	if _, err := file.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("写入记忆日志失败: %w", err)
	}
	return nil
}

func (s *Store) loadFromDisk() error {
	file, err := os.OpenFile(s.dataFile, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("读取记忆日志失败: %w", err)
	}
	defer file.Close()

	ctx := context.Background()
	log := logger.Named("storage.file")
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		var e entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			log.Warn("跳过损坏的记忆日志行", slog.Int("line", line), slog.String("error", err.Error()))
			continue
		}
		var applyErr error
		switch {
		case e.Kind == kindConversation && e.Conversation != nil:
			applyErr = s.InMemoryStore.CreateConversation(ctx, e.Conversation)
		case e.Kind == kindMessage && e.Message != nil:
			applyErr = s.InMemoryStore.AppendMessage(ctx, e.Message)
		case e.Kind == kindAutomation && e.Automation != nil:
			applyErr = s.InMemoryStore.AppendAutomation(ctx, e.Automation)
		default:
			applyErr = fmt.Errorf("未知记录类型 %q", e.Kind)
		}
		if applyErr != nil {
			log.Warn("跳过无法回放的记忆日志行", slog.Int("line", line), slog.String("error", applyErr.Error()))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("解析记忆日志失败: %w", err)
	}
	return nil
}

var _ memory.Store = (*Store)(nil)
