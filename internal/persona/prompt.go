package persona

import "strings"

// HistoryEntry 是构建提示词时使用的一条历史消息。
type HistoryEntry struct {
	Role    string
	Content string
}

// BuildPrompt 按照系统提示、历史消息、当前消息的顺序拼接提示词。
func BuildPrompt(p Persona, message string, history []HistoryEntry) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.SystemPrompt))
	b.WriteString("\n\n")
	for _, entry := range history {
		b.WriteString(roleLabel(entry.Role))
		b.WriteString(": ")
		b.WriteString(entry.Content)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(message)
	b.WriteString("\nAssistant:")
	return b.String()
}

func roleLabel(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case "", "user":
		return "User"
	case "assistant":
		return "Assistant"
	default:
		return strings.ToUpper(role[:1]) + role[1:]
	}
}
