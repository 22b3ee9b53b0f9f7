package agent

import (
	"regexp"
	"sort"
	"strings"

	"ScriptPilot/internal/generator"
)

// Kind 是消息分类结果。
type Kind string

const (
	KindConversation Kind = "conversation"
	KindAutomation   Kind = "automation"
)

// Intent 描述一条消息的处理路径以及从文本中推断出的平台。
type Intent struct {
	Kind     Kind
	Platform string
}

var (
	automationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(write|create|generate|make|build|give me)\b.*\b(script|automation|one-liner|cron job|shortcut)\b`),
		regexp.MustCompile(`\bautomate\b`),
		regexp.MustCompile(`\b(powershell|applescript|bash|shell|zsh)\s+(script|command|snippet)\b`),
		regexp.MustCompile(`\bscript\s+(to|that|for|which)\b`),
	}
	// need/want 只在同时提到平台时才算脚本请求。
	wishPattern     = regexp.MustCompile(`\b(need|want)\b.*\b(script|automation|one-liner|cron job|shortcut)\b`)
	questionPattern = regexp.MustCompile(`^(what|why|who|when|explain|tell me about|define)\b`)
)

// platformHints 列出从文本推断平台时使用的关键词。
var platformHints = map[string][]string{
	"powershell":  {"powershell", "pwsh", "ps1", "windows", "active directory", "registry", "cmdlet"},
	"applescript": {"applescript", "osascript", "macos", "mac os", "finder", "safari", "keynote", "mail.app"},
	"bash":        {"bash", "linux", "ubuntu", "debian", "cron", "zsh", "systemd", "shell script"},
}

// Classify 使用关键词与模式判断消息是闲聊还是脚本生成请求，无法确定时归为闲聊。
func Classify(text string, registry *generator.Registry) Intent {
	normalized := strings.ToLower(strings.TrimSpace(text))
	intent := Intent{Kind: KindConversation, Platform: inferPlatform(normalized, registry)}
	if normalized == "" {
		return intent
	}
	if questionPattern.MatchString(normalized) && !strings.Contains(normalized, "automate") {
		return intent
	}
	for _, pattern := range automationPatterns {
		if pattern.MatchString(normalized) {
			intent.Kind = KindAutomation
			return intent
		}
	}
	if intent.Platform != "" && wishPattern.MatchString(normalized) {
		intent.Kind = KindAutomation
	}
	return intent
}

// inferPlatform 返回文本中最先出现的已注册平台关键词所对应的平台。
func inferPlatform(normalized string, registry *generator.Registry) string {
	type hit struct {
		platform string
		index    int
	}
	var hits []hit
	for platform, words := range platformHints {
		if registry != nil {
			if _, ok := registry.Get(platform); !ok {
				continue
			}
		}
		best := -1
		for _, word := range words {
			idx := indexWord(normalized, word)
			if idx >= 0 && (best < 0 || idx < best) {
				best = idx
			}
		}
		if best >= 0 {
			hits = append(hits, hit{platform: platform, index: best})
		}
	}
	if len(hits) == 0 {
		return ""
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].index == hits[j].index {
			return hits[i].platform < hits[j].platform
		}
		return hits[i].index < hits[j].index
	})
	return hits[0].platform
}

// indexWord 查找完整单词出现的位置，子串命中不算。
func indexWord(text, word string) int {
	offset := 0
	for {
		idx := strings.Index(text[offset:], word)
		if idx < 0 {
			return -1
		}
		start := offset + idx
		end := start + len(word)
		if isBoundary(text, start-1) && isBoundary(text, end) {
			return start
		}
		offset = start + 1
	}
}

func isBoundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	c := text[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_')
}
