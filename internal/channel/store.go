package channel

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	xerrors "ScriptPilot/internal/errors"
	"ScriptPilot/pkg/logger"
)

// Store 保存渠道目录与当前渠道。
type Store struct {
	mu      sync.RWMutex
	items   map[string]Channel
	order   []string
	current string
	now     func() time.Time
	log     *slog.Logger
}

// Option 定义 Store 的可选配置。
type Option func(*Store)

// WithClock 替换生成时间的时钟，便于测试。
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore 使用内置目录创建渠道存储，默认渠道为 web。
func NewStore(opts ...Option) *Store {
	s := &Store{
		items:   make(map[string]Channel),
		current: DefaultID,
		now:     time.Now,
		log:     logger.Named("channel"),
	}
	for _, ch := range builtinCatalog() {
		ch.syncArtifacts()
		s.items[ch.ID] = ch
		s.order = append(s.order, ch.ID)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Get 根据标识查询渠道。
func (s *Store) Get(id string) (*Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.items[normalizeID(id)]
	if !ok {
		return nil, false
	}
	return ch.clone(), true
}

// Current 返回当前渠道。
func (s *Store) Current() *Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch := s.items[s.current]
	return ch.clone()
}

// Switch 切换当前渠道，未知标识时保持原状态。
func (s *Store) Switch(id string) (*Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.items[normalizeID(id)]
	if !ok {
		return nil, false
	}
	s.current = ch.ID
	return ch.clone(), true
}

// List 返回全部渠道。
func (s *Store) List() []Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Channel, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id].clone())
	}
	return out
}

// GenerateArtifact 使用当前渠道的构建器生成产物。
func (s *Store) GenerateArtifact(artifactType, description string, options map[string]any) (*Artifact, error) {
	artifactType = strings.ToLower(strings.TrimSpace(artifactType))
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "产物描述不能为空")
	}

	// 在读锁内取得当前渠道与构建器的快照。
	s.mu.RLock()
	ch := s.items[s.current]
	builder, ok := ch.builders[artifactType]
	s.mu.RUnlock()

	if !ok {
		return nil, xerrors.New(xerrors.CodeUnsupportedArtifact,
			fmt.Sprintf("artifact type %q not supported by channel %q", artifactType, ch.ID),
			xerrors.WithMetadata("channel", ch.ID),
			xerrors.WithMetadata("artifact_type", artifactType),
		)
	}

	payload, err := builder(description, options)
	if err != nil {
		if _, coded := xerrors.From(err); coded {
			return nil, err
		}
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "生成产物失败")
	}

	return &Artifact{
		Channel:      ch.ID,
		ArtifactType: artifactType,
		Description:  description,
		Artifact:     payload,
		GeneratedAt:  s.now().UTC(),
	}, nil
}

// overlayEntry 描述渠道覆盖配置中的一条记录。
type overlayEntry struct {
	ID          string   `mapstructure:"id"`
	Name        string   `mapstructure:"name"`
	Description string   `mapstructure:"description"`
	Artifacts   []string `mapstructure:"artifacts"`
}

// LoadOverlay 读取可选的渠道覆盖配置，文件不存在时忽略。
func (s *Store) LoadOverlay(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("读取渠道配置失败: %w", err)
	}
	return s.ApplyOverlay(data)
}

// ApplyOverlay 按覆盖配置调整渠道名称、描述以及可用的产物类型。
func (s *Store) ApplyOverlay(data []byte) error {
	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return xerrors.Wrap(xerrors.CodeParseFailure, err, "解析渠道配置失败")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range raw {
		var entry overlayEntry
		if err := mapstructure.Decode(item, &entry); err != nil {
			s.log.Warn("跳过无法解析的渠道配置", slog.Int("index", i), slog.String("error", err.Error()))
			continue
		}
		ch, ok := s.items[normalizeID(entry.ID)]
		if !ok {
			s.log.Warn("跳过未知渠道", slog.String("channel", entry.ID))
			continue
		}
		if entry.Name != "" {
			ch.Name = entry.Name
		}
		if entry.Description != "" {
			ch.Description = entry.Description
		}
		if entry.Artifacts != nil {
			restricted := make(map[string]Builder, len(entry.Artifacts))
			for _, name := range entry.Artifacts {
				name = strings.ToLower(strings.TrimSpace(name))
				builder, exists := ch.builders[name]
				if !exists {
					s.log.Warn("忽略没有构建器的产物类型", slog.String("channel", ch.ID), slog.String("artifact_type", name))
					continue
				}
				restricted[name] = builder
			}
			ch.builders = restricted
			ch.syncArtifacts()
		}
		s.items[ch.ID] = ch
	}
	return nil
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
