package generator

import (
	"fmt"
	"strings"
)

// DefaultShebang 是缺少 shebang 时补充的首行。
const DefaultShebang = "#!/usr/bin/env bash"

// Bash 生成 Linux/macOS shell 脚本。
type Bash struct{}

var bashTags = []string{"bash", "sh", "shell", "zsh"}

func (Bash) Platform() string    { return "bash" }
func (Bash) DisplayName() string { return "Bash" }
func (Bash) Extension() string   { return ".sh" }

// BuildPrompt 渲染 Bash 生成提示词。
func (Bash) BuildPrompt(description string, opts Options) string {
	shell := strings.TrimSpace(opts.Shell)
	if shell == "" {
		shell = "bash"
	}
	var b strings.Builder
	b.WriteString("You are an expert Unix system administrator. Write a shell script for the following task.\n\n")
	fmt.Fprintf(&b, "Task: %s\n\n", strings.TrimSpace(description))
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- The first line must be the shebang '#!/usr/bin/env %s'.\n", shell)
	b.WriteString("- Follow it with '# Script Name: <short descriptive name>' and '#' comment lines describing the script.\n")
	if opts.StrictMode {
		b.WriteString("- Enable strict mode with 'set -euo pipefail'.\n")
	}
	if opts.RequireAdmin {
		b.WriteString("- Exit with an error unless the script runs as root (check $EUID).\n")
	}
	if opts.TargetApp != "" {
		fmt.Fprintf(&b, "- The script manages %s.\n", opts.TargetApp)
	}
	b.WriteString(bulletList(opts.Requirements))
	b.WriteString("\nReturn only the script inside a single ```bash fenced code block.")
	return b.String()
}

// ParseResponse 从模型响应中提取 shell 脚本。
func (s Bash) ParseResponse(raw string) Result {
	return parse(s, bashTags, raw)
}

// Cleanup 去掉首尾空行，并确保 shebang 位于首行。
func (Bash) Cleanup(script string) string {
	script = trimBlankLines(script)
	if script == "" {
		return DefaultShebang
	}
	lines := strings.Split(script, "\n")
	if strings.HasPrefix(lines[0], "#!") {
		return script
	}
	// 只提升前面仅有注释的 shebang，heredoc 等正文里的 #! 保持原位。
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#!") {
			rest := append(append([]string{}, lines[:i]...), lines[i+1:]...)
			return strings.Join(append([]string{trimmed}, rest...), "\n")
		}
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			break
		}
	}
	return DefaultShebang + "\n" + script
}

// ExtractDocumentation 读取 shebang 之后的 # 注释行。
func (s Bash) ExtractDocumentation(script string) string {
	if lines := headerComments(script, "#"); len(lines) > 0 {
		return strings.Join(lines, " ")
	}
	return fallbackDocumentation(s)
}

// GenerateFilename 以下划线连接单词并追加 .sh。
func (s Bash) GenerateFilename(script string) string {
	return generateFilename(s, "_", script)
}
