package generator

import "strings"

// headerComments 收集脚本开头的注释行，跳过 shebang 与文件名标记。
func headerComments(script, prefix string) []string {
	var out []string
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(out) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(trimmed, "#!") || strings.HasPrefix(strings.ToLower(trimmed), "#requires") {
			continue
		}
		if !strings.HasPrefix(trimmed, prefix) {
			break
		}
		text := strings.TrimSpace(strings.TrimLeft(trimmed, prefix[:1]))
		if text == "" || filenamePattern.MatchString(trimmed) {
			continue
		}
		out = append(out, text)
	}
	return out
}

// blockComment 返回首个 open/close 包围的注释块内容。
func blockComment(script, open, close string) (string, bool) {
	start := strings.Index(script, open)
	if start < 0 {
		return "", false
	}
	rest := script[start+len(open):]
	end := strings.Index(rest, close)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
