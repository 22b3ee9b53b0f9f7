package generator

import (
	"sort"
	"strings"
	"sync"
)

// Registry 维护平台到生成器的映射。
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
	aliases    map[string]string
}

// NewRegistry 创建空的生成器注册表。
func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[string]Generator),
		aliases:    make(map[string]string),
	}
}

// Default 返回注册了 PowerShell、AppleScript 与 Bash 的注册表。
func Default() *Registry {
	r := NewRegistry()
	r.Register(PowerShell{}, "ps1", "pwsh", "windows")
	r.Register(AppleScript{}, "osascript", "macos", "mac")
	r.Register(Bash{}, "sh", "shell", "linux", "zsh")
	return r
}

// Register 注册生成器及其别名。
func (r *Registry) Register(g Generator, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	platform := normalizePlatform(g.Platform())
	r.generators[platform] = g
	for _, alias := range aliases {
		r.aliases[normalizePlatform(alias)] = platform
	}
}

// Get 按平台名称或别名查找生成器。
func (r *Registry) Get(platform string) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := normalizePlatform(platform)
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	g, ok := r.generators[key]
	return g, ok
}

// Platforms 返回已注册的平台名称。
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.generators))
	for platform := range r.generators {
		out = append(out, platform)
	}
	sort.Strings(out)
	return out
}

func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}
