package channel

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"

	xerrors "ScriptPilot/internal/errors"
)

// Button 是卡片类产物中的交互按钮。
type Button struct {
	Text  string `mapstructure:"text"`
	Value string `mapstructure:"value"`
	URL   string `mapstructure:"url"`
}

// Field 是卡片类产物中的键值字段。
type Field struct {
	Title string `mapstructure:"title"`
	Value string `mapstructure:"value"`
}

func decodeOptions(options map[string]any, out any) error {
	if len(options) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(options); err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "产物选项格式不正确")
	}
	return nil
}

// titleFrom 取描述的第一句作为标题。
func titleFrom(description string, max int) string {
	title := strings.TrimSpace(description)
	if idx := strings.IndexAny(title, ".!?\n"); idx > 0 {
		title = title[:idx]
	}
	return truncate(title, max)
}

func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}

// slug 把文本转为小写并以分隔符连接单词。
func slug(s, sep string, max int) string {
	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	out := strings.Join(words, sep)
	if max > 0 && utf8.RuneCountInString(out) > max {
		out = strings.Trim(string([]rune(out)[:max]), sep)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
