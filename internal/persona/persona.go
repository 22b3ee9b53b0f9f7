package persona

import "strings"

// FallbackID 是始终存在的兜底人设标识。
const FallbackID = "fallback"

// CustomPrefix 是运行时创建的人设标识前缀。
const CustomPrefix = "custom_"

// Persona 描述了一个具名的行为配置。
type Persona struct {
	ID           string   `json:"id" yaml:"id" mapstructure:"id"`
	Name         string   `json:"name" yaml:"name" mapstructure:"name"`
	Description  string   `json:"description,omitempty" yaml:"description" mapstructure:"description"`
	Greeting     string   `json:"greeting" yaml:"greeting" mapstructure:"greeting"`
	SystemPrompt string   `json:"system_prompt" yaml:"system_prompt" mapstructure:"system_prompt"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities" mapstructure:"capabilities"`
	Examples     []string `json:"examples,omitempty" yaml:"examples" mapstructure:"examples"`
	// Channels 为空表示不限制渠道。
	Channels []string `json:"channels,omitempty" yaml:"channels" mapstructure:"channels"`
}

// Validate 检查四个必填字段，缺失时返回 false。
func Validate(p Persona) bool {
	return strings.TrimSpace(p.ID) != "" &&
		strings.TrimSpace(p.Name) != "" &&
		strings.TrimSpace(p.Greeting) != "" &&
		strings.TrimSpace(p.SystemPrompt) != ""
}

// AllowsChannel 判断人设是否允许在指定渠道使用。
func (p Persona) AllowsChannel(channelID string) bool {
	if len(p.Channels) == 0 {
		return true
	}
	for _, id := range p.Channels {
		if strings.EqualFold(strings.TrimSpace(id), channelID) {
			return true
		}
	}
	return false
}

func (p Persona) clone() *Persona {
	out := p
	out.Capabilities = append([]string(nil), p.Capabilities...)
	out.Examples = append([]string(nil), p.Examples...)
	out.Channels = append([]string(nil), p.Channels...)
	return &out
}

func fallbackPersona() Persona {
	return Persona{
		ID:          FallbackID,
		Name:        "Assistant",
		Description: "General purpose assistant used when no persona catalog is available.",
		Greeting:    "Hello! How can I help you today?",
		SystemPrompt: "You are a helpful assistant. Answer clearly and concisely, and when the user " +
			"asks for an automation, describe what the script will do.",
		Capabilities: []string{"conversation", "automation"},
	}
}
