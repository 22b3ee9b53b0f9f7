package generator

import (
	"fmt"
	"strings"
)

// PowerShell 生成 Windows PowerShell 脚本。
type PowerShell struct{}

var powershellTags = []string{"powershell", "ps1", "pwsh", "ps"}

func (PowerShell) Platform() string    { return "powershell" }
func (PowerShell) DisplayName() string { return "PowerShell" }
func (PowerShell) Extension() string   { return ".ps1" }

// BuildPrompt 渲染 PowerShell 生成提示词。
func (PowerShell) BuildPrompt(description string, opts Options) string {
	var b strings.Builder
	b.WriteString("You are an expert Windows administrator. Write a PowerShell script for the following task.\n\n")
	fmt.Fprintf(&b, "Task: %s\n\n", strings.TrimSpace(description))
	b.WriteString("Requirements:\n")
	b.WriteString("- Start with a comment-based help block (<# ... #>) containing .SYNOPSIS and .DESCRIPTION.\n")
	b.WriteString("- Include a line '# Script Name: <short descriptive name>' near the top.\n")
	b.WriteString("- Use approved verbs, Write-Verbose for progress and try/catch for error handling.\n")
	if opts.RequireAdmin {
		b.WriteString("- The script must begin with '#Requires -RunAsAdministrator'.\n")
	}
	if opts.StrictMode {
		b.WriteString("- Enable Set-StrictMode -Version Latest and set $ErrorActionPreference = 'Stop'.\n")
	}
	if opts.TargetApp != "" {
		fmt.Fprintf(&b, "- The script automates %s.\n", opts.TargetApp)
	}
	b.WriteString(bulletList(opts.Requirements))
	b.WriteString("\nReturn only the script inside a single ```powershell fenced code block.")
	return b.String()
}

// ParseResponse 从模型响应中提取 PowerShell 脚本。
func (p PowerShell) ParseResponse(raw string) Result {
	return parse(p, powershellTags, raw)
}

// Cleanup 仅去除首尾空白并统一换行符。
func (PowerShell) Cleanup(script string) string {
	return strings.TrimSpace(strings.ReplaceAll(script, "\r\n", "\n"))
}

// ExtractDocumentation 读取注释帮助块中的 .SYNOPSIS。
func (p PowerShell) ExtractDocumentation(script string) string {
	if block, ok := blockComment(script, "<#", "#>"); ok {
		if synopsis := helpSection(block, ".SYNOPSIS"); synopsis != "" {
			return synopsis
		}
		if description := helpSection(block, ".DESCRIPTION"); description != "" {
			return description
		}
	}
	if lines := headerComments(script, "#"); len(lines) > 0 {
		return strings.Join(lines, " ")
	}
	return fallbackDocumentation(p)
}

// helpSection 返回注释帮助块中指定关键字之后、下一个关键字之前的文本。
func helpSection(block, keyword string) string {
	var collected []string
	inSection := false
	for _, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ".") {
			if inSection {
				break
			}
			inSection = strings.EqualFold(strings.Fields(trimmed)[0], keyword)
			if inSection {
				if rest := strings.TrimSpace(trimmed[len(keyword):]); rest != "" {
					collected = append(collected, rest)
				}
			}
			continue
		}
		if inSection && trimmed != "" {
			collected = append(collected, trimmed)
		}
	}
	return strings.Join(collected, " ")
}

// GenerateFilename 以连字符连接单词并追加 .ps1。
func (p PowerShell) GenerateFilename(script string) string {
	return generateFilename(p, "-", script)
}
