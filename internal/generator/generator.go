package generator

import (
	"strings"

	"github.com/mitchellh/mapstructure"

	xerrors "ScriptPilot/internal/errors"
)

// Options 是生成脚本时可识别的附加选项。
type Options struct {
	Requirements []string `json:"requirements,omitempty" mapstructure:"requirements"`
	TargetApp    string   `json:"target_app,omitempty" mapstructure:"target_app"`
	RequireAdmin bool     `json:"require_admin,omitempty" mapstructure:"require_admin"`
	Shell        string   `json:"shell,omitempty" mapstructure:"shell"`
	StrictMode   bool     `json:"strict_mode,omitempty" mapstructure:"strict_mode"`
}

// DecodeOptions 把请求中的自由格式选项解析为 Options。
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	if len(raw) == 0 {
		return opts, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return opts, err
	}
	if err := decoder.Decode(raw); err != nil {
		return opts, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "生成选项格式不正确")
	}
	return opts, nil
}

// Result 是解析模型响应后得到的脚本信息。
type Result struct {
	Script        string
	Documentation string
	Filename      string
	// Fenced 表示脚本是否来自代码块，否则为原始文本。
	Fenced bool
}

// Generator 定义了单个平台的脚本生成能力。
type Generator interface {
	Platform() string
	DisplayName() string
	Extension() string
	BuildPrompt(description string, opts Options) string
	ParseResponse(raw string) Result
	Cleanup(script string) string
	ExtractDocumentation(script string) string
	GenerateFilename(script string) string
}

// parse 实现各平台共用的解析流程。
func parse(g Generator, tags []string, raw string) Result {
	script, fenced := extractCodeBlock(raw, tags)
	script = g.Cleanup(script)
	return Result{
		Script:        script,
		Documentation: g.ExtractDocumentation(script),
		Filename:      g.GenerateFilename(script),
		Fenced:        fenced,
	}
}

func fallbackDocumentation(g Generator) string {
	return "Generated " + g.DisplayName() + " script"
}

func fallbackFilename(g Generator) string {
	return g.Platform() + "_automation" + g.Extension()
}

// bulletList 把附加要求渲染为列表。
func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return b.String()
}
