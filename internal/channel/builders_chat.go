package channel

import (
	"strconv"
	"strings"

	xerrors "ScriptPilot/internal/errors"
)

type cardOptions struct {
	Title   string   `mapstructure:"title"`
	Fields  []Field  `mapstructure:"fields"`
	Buttons []Button `mapstructure:"buttons"`
}

func buildTeamsAdaptiveCard(description string, options map[string]any) (map[string]any, error) {
	var opts cardOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	body := []map[string]any{
		{"type": "TextBlock", "text": firstNonEmpty(opts.Title, titleFrom(description, 80)), "size": "Large", "weight": "Bolder", "wrap": true},
		{"type": "TextBlock", "text": description, "wrap": true},
	}
	if len(opts.Fields) > 0 {
		facts := make([]map[string]any, 0, len(opts.Fields))
		for _, f := range opts.Fields {
			facts = append(facts, map[string]any{"title": f.Title, "value": f.Value})
		}
		body = append(body, map[string]any{"type": "FactSet", "facts": facts})
	}
	actions := make([]map[string]any, 0, len(opts.Buttons))
	for _, button := range opts.Buttons {
		if button.URL != "" {
			actions = append(actions, map[string]any{"type": "Action.OpenUrl", "title": button.Text, "url": button.URL})
			continue
		}
		actions = append(actions, map[string]any{"type": "Action.Submit", "title": button.Text, "data": map[string]any{"value": button.Value}})
	}

	return map[string]any{
		"type": "teams-adaptive-card",
		"card": map[string]any{
			"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
			"type":    "AdaptiveCard",
			"version": "1.5",
			"body":    body,
			"actions": actions,
		},
	}, nil
}

func buildTeamsMessageExtension(description string, options map[string]any) (map[string]any, error) {
	var opts cardOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	return map[string]any{
		"type": "teams-message-extension",
		"composeExtension": map[string]any{
			"type":             "result",
			"attachmentLayout": "list",
			"attachments": []map[string]any{
				{
					"contentType": "application/vnd.microsoft.card.thumbnail",
					"content": map[string]any{
						"title": firstNonEmpty(opts.Title, titleFrom(description, 80)),
						"text":  description,
					},
				},
			},
		},
	}, nil
}

type embedOptions struct {
	Title  string  `mapstructure:"title"`
	Color  string  `mapstructure:"color"`
	URL    string  `mapstructure:"url"`
	Footer string  `mapstructure:"footer"`
	Fields []Field `mapstructure:"fields"`
}

const discordBlurple = 0x5865F2

func buildDiscordEmbed(description string, options map[string]any) (map[string]any, error) {
	var opts embedOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	color := int64(discordBlurple)
	if raw := strings.TrimPrefix(strings.TrimSpace(opts.Color), "#"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 16, 32)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "颜色必须是十六进制值")
		}
		color = parsed
	}

	embed := map[string]any{
		"title":       truncate(firstNonEmpty(opts.Title, titleFrom(description, 256)), 256),
		"description": truncate(description, 4096),
		"color":       color,
	}
	if opts.URL != "" {
		embed["url"] = opts.URL
	}
	if opts.Footer != "" {
		embed["footer"] = map[string]any{"text": opts.Footer}
	}
	if len(opts.Fields) > 0 {
		fields := make([]map[string]any, 0, len(opts.Fields))
		for _, f := range opts.Fields {
			fields = append(fields, map[string]any{"name": f.Title, "value": f.Value, "inline": true})
		}
		embed["fields"] = fields
	}

	return map[string]any{
		"type":   "discord-embed",
		"embeds": []map[string]any{embed},
	}, nil
}

type commandOption struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Required    bool   `mapstructure:"required"`
}

type slashOptions struct {
	Name    string          `mapstructure:"name"`
	Options []commandOption `mapstructure:"options"`
}

func buildDiscordSlashCommand(description string, options map[string]any) (map[string]any, error) {
	var opts slashOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	name := firstNonEmpty(slug(opts.Name, "-", 32), slug(titleFrom(description, 32), "-", 32), "command")
	params := make([]map[string]any, 0, len(opts.Options))
	for _, o := range opts.Options {
		params = append(params, map[string]any{
			"type":        3,
			"name":        firstNonEmpty(slug(o.Name, "-", 32), "value"),
			"description": truncate(firstNonEmpty(o.Description, o.Name), 100),
			"required":    o.Required,
		})
	}

	return map[string]any{
		"type": "discord-slash-command",
		"command": map[string]any{
			"name":        name,
			"description": truncate(description, 100),
			"type":        1,
			"options":     params,
		},
	}, nil
}

type twitchOptions struct {
	Name      string `mapstructure:"name"`
	Cooldown  int    `mapstructure:"cooldown"`
	UserLevel string `mapstructure:"user_level"`
}

func buildTwitchChatCommand(description string, options map[string]any) (map[string]any, error) {
	var opts twitchOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	name := firstNonEmpty(slug(opts.Name, "", 25), slug(titleFrom(description, 25), "", 25), "command")
	cooldown := opts.Cooldown
	if cooldown <= 0 {
		cooldown = 30
	}

	return map[string]any{
		"type": "twitch-chat-command",
		"command": map[string]any{
			"trigger":          "!" + name,
			"response":         truncate(description, 500),
			"cooldown_seconds": cooldown,
			"user_level":       firstNonEmpty(opts.UserLevel, "everyone"),
		},
	}, nil
}

type templateOptions struct {
	Name     string   `mapstructure:"name"`
	Language string   `mapstructure:"language"`
	Category string   `mapstructure:"category"`
	Buttons  []Button `mapstructure:"buttons"`
}

func buildWhatsAppTemplate(description string, options map[string]any) (map[string]any, error) {
	var opts templateOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	components := []map[string]any{
		{"type": "BODY", "text": truncate(description, 1024)},
	}
	if len(opts.Buttons) > 0 {
		buttons := make([]map[string]any, 0, len(opts.Buttons))
		for _, button := range opts.Buttons {
			if button.URL != "" {
				buttons = append(buttons, map[string]any{"type": "URL", "text": truncate(button.Text, 25), "url": button.URL})
				continue
			}
			buttons = append(buttons, map[string]any{"type": "QUICK_REPLY", "text": truncate(button.Text, 25)})
		}
		components = append(components, map[string]any{"type": "BUTTONS", "buttons": buttons})
	}

	return map[string]any{
		"type": "whatsapp-message-template",
		"template": map[string]any{
			"name":       firstNonEmpty(slug(opts.Name, "_", 512), slug(titleFrom(description, 60), "_", 512), "template"),
			"language":   firstNonEmpty(opts.Language, "en_US"),
			"category":   strings.ToUpper(firstNonEmpty(opts.Category, "utility")),
			"components": components,
		},
	}, nil
}

const appleListPickerBID = "com.apple.messages.MSMessageExtensionBalloonPlugin:0000000000:com.apple.icloud.apps.messages.business.extension"

type listPickerOptions struct {
	Title    string   `mapstructure:"title"`
	Subtitle string   `mapstructure:"subtitle"`
	Items    []string `mapstructure:"items"`
	Multiple bool     `mapstructure:"multiple_selection"`
}

func buildAppleListPicker(description string, options map[string]any) (map[string]any, error) {
	var opts listPickerOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	if len(opts.Items) == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "list-picker 至少需要一个选项")
	}
	title := firstNonEmpty(opts.Title, titleFrom(description, 60))
	items := make([]map[string]any, 0, len(opts.Items))
	for i, item := range opts.Items {
		items = append(items, map[string]any{
			"identifier": strconv.Itoa(i + 1),
			"order":      i,
			"title":      item,
			"style":      "default",
		})
	}

	return map[string]any{
		"type": "apple-business-chat-list-picker",
		"interactiveData": map[string]any{
			"bid": appleListPickerBID,
			"data": map[string]any{
				"listPicker": map[string]any{
					"sections": []map[string]any{
						{"order": 0, "title": title, "multipleSelection": opts.Multiple, "items": items},
					},
				},
			},
			"receivedMessage": map[string]any{
				"title":    title,
				"subtitle": firstNonEmpty(opts.Subtitle, description),
				"style":    "icon",
			},
		},
	}, nil
}

type richLinkOptions struct {
	URL   string `mapstructure:"url"`
	Title string `mapstructure:"title"`
	Image string `mapstructure:"image_url"`
}

func buildAppleRichLink(description string, options map[string]any) (map[string]any, error) {
	var opts richLinkOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.URL) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "rich-link 需要 url 选项")
	}
	data := map[string]any{
		"url":   opts.URL,
		"title": firstNonEmpty(opts.Title, titleFrom(description, 80)),
	}
	if opts.Image != "" {
		data["assets"] = map[string]any{"image": map[string]any{"url": opts.Image}}
	}

	return map[string]any{
		"type":         "apple-business-chat-rich-link",
		"richLinkData": data,
	}, nil
}
