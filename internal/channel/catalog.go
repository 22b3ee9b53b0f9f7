package channel

// DefaultID 是启动时的默认渠道。
const DefaultID = "web"

func builtinCatalog() []Channel {
	return []Channel{
		{
			ID:           "web",
			Name:         "Web",
			Description:  "Embedded web chat widget",
			Capabilities: []string{"rich-text", "html", "javascript", "forms"},
			builders: map[string]Builder{
				"html-component":    buildHTMLComponent,
				"css-styling":       buildCSSStyling,
				"javascript-widget": buildJavaScriptWidget,
			},
		},
		{
			ID:           "slack",
			Name:         "Slack",
			Description:  "Slack workspace app",
			Capabilities: []string{"blocks", "threads", "buttons", "modals", "workflows"},
			builders: map[string]Builder{
				"block-kit": buildSlackBlockKit,
				"workflow":  buildSlackWorkflow,
				"modal":     buildSlackModal,
			},
		},
		{
			ID:           "teams",
			Name:         "Microsoft Teams",
			Description:  "Teams bot and messaging extension",
			Capabilities: []string{"adaptive-cards", "buttons", "message-extensions"},
			builders: map[string]Builder{
				"adaptive-card":     buildTeamsAdaptiveCard,
				"message-extension": buildTeamsMessageExtension,
			},
		},
		{
			ID:           "discord",
			Name:         "Discord",
			Description:  "Discord bot",
			Capabilities: []string{"embeds", "buttons", "slash-commands"},
			builders: map[string]Builder{
				"embed":         buildDiscordEmbed,
				"slash-command": buildDiscordSlashCommand,
			},
		},
		{
			ID:           "twitch",
			Name:         "Twitch",
			Description:  "Twitch chat bot",
			Capabilities: []string{"chat", "commands"},
			builders: map[string]Builder{
				"chat-command": buildTwitchChatCommand,
			},
		},
		{
			ID:           "whatsapp",
			Name:         "WhatsApp",
			Description:  "WhatsApp Business messaging",
			Capabilities: []string{"templates", "quick-replies", "media"},
			builders: map[string]Builder{
				"message-template": buildWhatsAppTemplate,
			},
		},
		{
			ID:           "apple-business-chat",
			Name:         "Apple Messages for Business",
			Description:  "Apple Business Chat conversations",
			Capabilities: []string{"list-picker", "rich-links", "apple-pay"},
			builders: map[string]Builder{
				"list-picker": buildAppleListPicker,
				"rich-link":   buildAppleRichLink,
			},
		},
	}
}
