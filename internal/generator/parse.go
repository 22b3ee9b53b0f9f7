package generator

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	fencePattern   = regexp.MustCompile("(?s)```([A-Za-z0-9_+#.-]*)[ \\t]*\\r?\\n(.*?)```")
	openingPattern = regexp.MustCompile("```([A-Za-z0-9_+#.-]*)[ \\t]*\\r?\\n")
)

type codeBlock struct {
	tag  string
	body string
}

// findCodeBlocks 返回全部闭合代码块；回复被截断时，最后一个未闭合的代码块延伸到文本末尾。
func findCodeBlocks(raw string) []codeBlock {
	matches := fencePattern.FindAllStringSubmatchIndex(raw, -1)
	blocks := make([]codeBlock, 0, len(matches)+1)
	end := 0
	for _, m := range matches {
		blocks = append(blocks, codeBlock{tag: strings.ToLower(raw[m[2]:m[3]]), body: raw[m[4]:m[5]]})
		end = m[1]
	}
	if m := openingPattern.FindStringSubmatchIndex(raw[end:]); m != nil {
		blocks = append(blocks, codeBlock{
			tag:  strings.ToLower(raw[end+m[2] : end+m[3]]),
			body: raw[end+m[1]:],
		})
	}
	return blocks
}

// extractCodeBlock 依次选择平台标签代码块、无标签代码块、任意代码块，最后退回原始文本。
func extractCodeBlock(raw string, tags []string) (string, bool) {
	blocks := findCodeBlocks(raw)
	for _, block := range blocks {
		for _, tag := range tags {
			if block.tag == tag {
				return block.body, true
			}
		}
	}
	for _, block := range blocks {
		if block.tag == "" {
			return block.body, true
		}
	}
	if len(blocks) > 0 {
		return blocks[0].body, true
	}
	return raw, false
}

var filenamePattern = regexp.MustCompile(`(?i)^\s*(?:#|--|//|<#|\(\*|\.)?\s*(?:script\s*name|name|title)\s*:\s*(.+?)\s*(?:\*\)|#>)?\s*$`)

// filenameMarker 在前 10 行中查找 script name / name / title 标记。
func filenameMarker(script string) string {
	lines := strings.Split(script, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}
	for _, line := range lines {
		if m := filenamePattern.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

// sanitizeName 把标记转为小写、仅含字母数字并按平台约定连接的文件名主体。
func sanitizeName(name, joiner, ext string) string {
	name = strings.TrimSpace(name)
	if strings.HasSuffix(strings.ToLower(name), ext) {
		name = name[:len(name)-len(ext)]
	}
	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return strings.Join(words, joiner)
}

func generateFilename(g Generator, joiner, script string) string {
	base := sanitizeName(filenameMarker(script), joiner, g.Extension())
	if base == "" {
		return fallbackFilename(g)
	}
	if len(base) > 64 {
		base = strings.Trim(base[:64], joiner)
	}
	return base + g.Extension()
}

func trimBlankLines(script string) string {
	lines := strings.Split(strings.ReplaceAll(script, "\r\n", "\n"), "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	out := lines[start:end]
	for i, line := range out {
		out[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(out, "\n")
}
