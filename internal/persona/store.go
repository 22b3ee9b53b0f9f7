package persona

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	xerrors "ScriptPilot/internal/errors"
	"ScriptPilot/pkg/logger"
)

// Store 保存人设目录与当前激活的人设。
type Store struct {
	mu      sync.RWMutex
	items   map[string]Persona
	order   []string
	current string
	log     *slog.Logger
}

// NewStore 创建仅包含兜底人设的目录。
func NewStore() *Store {
	s := &Store{
		items: make(map[string]Persona),
		log:   logger.Named("persona"),
	}
	fb := fallbackPersona()
	s.items[fb.ID] = fb
	s.order = append(s.order, fb.ID)
	s.current = fb.ID
	return s
}

// Load 从 YAML 文件加载人设目录，文件不存在时仅记录日志。
func (s *Store) Load(path string) (int, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("人设目录不存在，使用兜底人设", slog.String("path", path))
			return 0, nil
		}
		return 0, fmt.Errorf("读取人设目录失败: %w", err)
	}
	return s.LoadBytes(data)
}

// LoadBytes 解析 YAML 文档，逐条校验并跳过非法条目。
//
// 文档可以是人设列表，也可以是以 id 为键的映射。
func (s *Store) LoadBytes(data []byte) (int, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, xerrors.Wrap(xerrors.CodeParseFailure, err, "解析人设目录失败")
	}

	entries, err := catalogEntries(doc)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for i, raw := range entries {
		var p Persona
		if err := decodeEntry(raw, &p); err != nil {
			s.log.Warn("跳过无法解析的人设", slog.Int("index", i), slog.String("error", err.Error()))
			continue
		}
		if !Validate(p) {
			s.log.Warn("跳过缺少必填字段的人设", slog.Int("index", i), slog.String("id", p.ID))
			continue
		}
		if p.ID == FallbackID {
			s.log.Warn("忽略覆盖兜底人设的条目", slog.Int("index", i))
			continue
		}
		s.put(p)
		loaded++
	}
	s.log.Info("人设目录已加载", slog.Int("loaded", loaded), slog.Int("entries", len(entries)))
	return loaded, nil
}

func catalogEntries(doc any) ([]any, error) {
	switch v := doc.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case map[string]any:
		if list, ok := v["personas"]; ok {
			return catalogEntries(list)
		}
		ids := make([]string, 0, len(v))
		for id := range v {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		entries := make([]any, 0, len(v))
		for _, id := range ids {
			raw := v[id]
			if m, ok := raw.(map[string]any); ok {
				if _, has := m["id"]; !has {
					m["id"] = id
				}
			}
			entries = append(entries, raw)
		}
		return entries, nil
	default:
		return nil, xerrors.New(xerrors.CodeParseFailure, "人设目录格式不正确")
	}
}

func decodeEntry(raw any, out *Persona) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

func (s *Store) put(p Persona) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	s.items[p.ID] = p
}

// Get 根据标识查询人设。
func (s *Store) Get(id string) (*Persona, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[strings.TrimSpace(id)]
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

// Current 返回当前激活的人设。
func (s *Store) Current() *Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[s.current].clone()
}

// Fallback 返回兜底人设。
func (s *Store) Fallback() *Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[FallbackID].clone()
}

// Switch 切换当前人设，未知标识时保持原状态。
func (s *Store) Switch(id string) (*Persona, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[strings.TrimSpace(id)]
	if !ok {
		return nil, false
	}
	s.current = p.ID
	return p.clone(), true
}

// List 按加载顺序返回全部人设，兜底人设位于首位。
func (s *Store) List() []Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Persona, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id].clone())
	}
	return out
}

// BuildPrompt 使用当前人设构建对话提示词。
func (s *Store) BuildPrompt(message string, history []HistoryEntry) string {
	return BuildPrompt(*s.Current(), message, history)
}

// CreateCustom 校验并保存运行时创建的人设，缺少标识时自动生成。
func (s *Store) CreateCustom(p Persona) (*Persona, error) {
	p.ID = strings.TrimSpace(p.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		for {
			candidate := CustomPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
			if _, exists := s.items[candidate]; !exists {
				p.ID = candidate
				break
			}
		}
	} else if _, exists := s.items[p.ID]; exists {
		return nil, xerrors.New(xerrors.CodeConflict, "人设标识已存在", xerrors.WithMetadata("id", p.ID))
	}

	if !Validate(p) {
		return nil, xerrors.New(xerrors.CodePersonaInvalid, "人设缺少必填字段 name、greeting 或 system_prompt")
	}

	s.items[p.ID] = p
	s.order = append(s.order, p.ID)
	logger.Audit().Info("persona created", slog.String("persona_id", p.ID), slog.String("name", p.Name))
	return p.clone(), nil
}
