package channel

import "strconv"

func slackText(kind, text string) map[string]any {
	return map[string]any{"type": kind, "text": text}
}

type blockKitOptions struct {
	Title   string   `mapstructure:"title"`
	Fields  []Field  `mapstructure:"fields"`
	Buttons []Button `mapstructure:"buttons"`
}

func buildSlackBlockKit(description string, options map[string]any) (map[string]any, error) {
	var opts blockKitOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	title := firstNonEmpty(opts.Title, titleFrom(description, 150))

	blocks := []map[string]any{
		{"type": "header", "text": slackText("plain_text", truncate(title, 150))},
		{"type": "section", "text": slackText("mrkdwn", truncate(description, 3000))},
	}
	if len(opts.Fields) > 0 {
		fields := make([]map[string]any, 0, len(opts.Fields))
		for _, f := range opts.Fields {
			fields = append(fields, slackText("mrkdwn", "*"+f.Title+"*\n"+f.Value))
		}
		blocks = append(blocks, map[string]any{"type": "section", "fields": fields})
	}
	if len(opts.Buttons) > 0 {
		elements := make([]map[string]any, 0, len(opts.Buttons))
		for i, button := range opts.Buttons {
			element := map[string]any{
				"type":      "button",
				"text":      slackText("plain_text", truncate(button.Text, 75)),
				"action_id": firstNonEmpty(slug(button.Value, "_", 200), slug(button.Text, "_", 200), "action") + "_" + strconv.Itoa(i),
			}
			if button.URL != "" {
				element["url"] = button.URL
			}
			if button.Value != "" {
				element["value"] = button.Value
			}
			elements = append(elements, element)
		}
		blocks = append(blocks, map[string]any{"type": "actions", "elements": elements})
	}

	return map[string]any{
		"type":   "slack-block-kit",
		"blocks": blocks,
	}, nil
}

type workflowOptions struct {
	Name    string   `mapstructure:"name"`
	Trigger string   `mapstructure:"trigger"`
	Steps   []string `mapstructure:"steps"`
}

func buildSlackWorkflow(description string, options map[string]any) (map[string]any, error) {
	var opts workflowOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	steps := opts.Steps
	if len(steps) == 0 {
		steps = []string{description}
	}
	workflowSteps := make([]map[string]any, 0, len(steps))
	for i, step := range steps {
		workflowSteps = append(workflowSteps, map[string]any{
			"id":   "step_" + strconv.Itoa(i+1),
			"type": "send_message",
			"text": step,
		})
	}

	return map[string]any{
		"type": "slack-workflow",
		"workflow": map[string]any{
			"name":        firstNonEmpty(opts.Name, titleFrom(description, 80)),
			"description": description,
			"trigger":     firstNonEmpty(opts.Trigger, "shortcut"),
			"steps":       workflowSteps,
		},
	}, nil
}

type modalOptions struct {
	Title       string   `mapstructure:"title"`
	SubmitLabel string   `mapstructure:"submit_label"`
	Inputs      []string `mapstructure:"inputs"`
}

func buildSlackModal(description string, options map[string]any) (map[string]any, error) {
	var opts modalOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	blocks := []map[string]any{
		{"type": "section", "text": slackText("mrkdwn", truncate(description, 3000))},
	}
	for _, label := range opts.Inputs {
		id := firstNonEmpty(slug(label, "_", 255), "input")
		blocks = append(blocks, map[string]any{
			"type":     "input",
			"block_id": id,
			"label":    slackText("plain_text", truncate(label, 2000)),
			"element":  map[string]any{"type": "plain_text_input", "action_id": id},
		})
	}

	return map[string]any{
		"type": "slack-modal",
		"view": map[string]any{
			"type":   "modal",
			"title":  slackText("plain_text", truncate(firstNonEmpty(opts.Title, titleFrom(description, 24)), 24)),
			"submit": slackText("plain_text", truncate(firstNonEmpty(opts.SubmitLabel, "Submit"), 24)),
			"close":  slackText("plain_text", "Cancel"),
			"blocks": blocks,
		},
	}, nil
}
