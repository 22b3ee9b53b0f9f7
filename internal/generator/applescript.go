package generator

import (
	"fmt"
	"strings"
)

// AppleScript 生成 macOS AppleScript 脚本。
type AppleScript struct{}

var applescriptTags = []string{"applescript", "osascript", "scpt"}

func (AppleScript) Platform() string    { return "applescript" }
func (AppleScript) DisplayName() string { return "AppleScript" }
func (AppleScript) Extension() string   { return ".applescript" }

// BuildPrompt 渲染 AppleScript 生成提示词。
func (AppleScript) BuildPrompt(description string, opts Options) string {
	var b strings.Builder
	b.WriteString("You are an expert macOS automation engineer. Write an AppleScript for the following task.\n\n")
	fmt.Fprintf(&b, "Task: %s\n\n", strings.TrimSpace(description))
	b.WriteString("Requirements:\n")
	b.WriteString("- Begin with '-- Script Name: <short descriptive name>' followed by '--' comment lines describing the script.\n")
	b.WriteString("- Wrap application interactions in try/on error blocks and report failures with display dialog.\n")
	if opts.TargetApp != "" {
		fmt.Fprintf(&b, "- Target the application \"%s\" with a tell block.\n", opts.TargetApp)
	}
	if opts.RequireAdmin {
		b.WriteString("- Use 'with administrator privileges' for shell commands that need elevation.\n")
	}
	b.WriteString(bulletList(opts.Requirements))
	b.WriteString("\nReturn only the script inside a single ```applescript fenced code block.")
	return b.String()
}

// ParseResponse 从模型响应中提取 AppleScript 脚本。
func (a AppleScript) ParseResponse(raw string) Result {
	return parse(a, applescriptTags, raw)
}

// Cleanup 去掉首尾空行与行尾空白。
func (AppleScript) Cleanup(script string) string {
	return trimBlankLines(script)
}

// ExtractDocumentation 读取开头的 -- 注释行或 (* *) 注释块。
func (a AppleScript) ExtractDocumentation(script string) string {
	if lines := headerComments(script, "--"); len(lines) > 0 {
		return strings.Join(lines, " ")
	}
	if strings.HasPrefix(strings.TrimSpace(script), "(*") {
		if block, ok := blockComment(script, "(*", "*)"); ok {
			var lines []string
			for _, line := range strings.Split(block, "\n") {
				line = strings.TrimSpace(line)
				if line == "" || filenamePattern.MatchString(line) {
					continue
				}
				lines = append(lines, line)
			}
			if len(lines) > 0 {
				return strings.Join(lines, " ")
			}
		}
	}
	return fallbackDocumentation(a)
}

// GenerateFilename 以下划线连接单词并追加 .applescript。
func (a AppleScript) GenerateFilename(script string) string {
	return generateFilename(a, "_", script)
}
