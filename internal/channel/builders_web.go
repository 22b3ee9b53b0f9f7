package channel

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

type htmlOptions struct {
	Title   string   `mapstructure:"title"`
	Tag     string   `mapstructure:"tag"`
	Classes []string `mapstructure:"classes"`
	Buttons []Button `mapstructure:"buttons"`
}

func buildHTMLComponent(description string, options map[string]any) (map[string]any, error) {
	var opts htmlOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	tag := firstNonEmpty(slug(opts.Tag, "-", 16), "section")
	title := firstNonEmpty(opts.Title, titleFrom(description, 60))
	classes := append([]string{"sp-component"}, opts.Classes...)

	var b strings.Builder
	fmt.Fprintf(&b, "<%s class=\"%s\">\n", tag, html.EscapeString(strings.Join(classes, " ")))
	fmt.Fprintf(&b, "  <h2>%s</h2>\n", html.EscapeString(title))
	fmt.Fprintf(&b, "  <p>%s</p>\n", html.EscapeString(description))
	for _, button := range opts.Buttons {
		if button.URL != "" {
			fmt.Fprintf(&b, "  <a class=\"sp-button\" href=\"%s\">%s</a>\n", html.EscapeString(button.URL), html.EscapeString(button.Text))
			continue
		}
		fmt.Fprintf(&b, "  <button class=\"sp-button\" value=\"%s\">%s</button>\n", html.EscapeString(button.Value), html.EscapeString(button.Text))
	}
	fmt.Fprintf(&b, "</%s>", tag)

	return map[string]any{
		"type":  "web-html-component",
		"title": title,
		"html":  b.String(),
	}, nil
}

type cssOptions struct {
	Selector     string `mapstructure:"selector"`
	PrimaryColor string `mapstructure:"primary_color"`
	FontFamily   string `mapstructure:"font_family"`
	Radius       string `mapstructure:"radius"`
}

func buildCSSStyling(description string, options map[string]any) (map[string]any, error) {
	var opts cssOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	selector := firstNonEmpty(opts.Selector, ".sp-component")
	color := firstNonEmpty(opts.PrimaryColor, "#2563eb")
	font := firstNonEmpty(opts.FontFamily, "system-ui, sans-serif")
	radius := firstNonEmpty(opts.Radius, "8px")

	css := fmt.Sprintf(`/* %s */
%[2]s {
  font-family: %[3]s;
  border: 1px solid %[4]s;
  border-radius: %[5]s;
  padding: 1rem;
}
%[2]s h2 {
  color: %[4]s;
  margin-top: 0;
}
%[2]s .sp-button {
  background: %[4]s;
  color: #ffffff;
  border: none;
  border-radius: %[5]s;
  padding: 0.5rem 1rem;
}`, strings.ReplaceAll(titleFrom(description, 80), "*/", ""), selector, font, color, radius)

	return map[string]any{
		"type":     "web-css-styling",
		"selector": selector,
		"css":      css,
	}, nil
}

type widgetOptions struct {
	ElementID string `mapstructure:"element_id"`
	Title     string `mapstructure:"title"`
}

func buildJavaScriptWidget(description string, options map[string]any) (map[string]any, error) {
	var opts widgetOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	elementID := firstNonEmpty(slug(opts.ElementID, "-", 40), "sp-widget")
	title := firstNonEmpty(opts.Title, titleFrom(description, 60))

	quotedID, _ := json.Marshal(elementID)
	quotedTitle, _ := json.Marshal(title)
	quotedBody, _ := json.Marshal(description)

	script := fmt.Sprintf(`(function () {
  var root = document.getElementById(%s);
  if (!root) { return; }
  var heading = document.createElement("h2");
  heading.textContent = %s;
  var body = document.createElement("p");
  body.textContent = %s;
  root.appendChild(heading);
  root.appendChild(body);
})();`, quotedID, quotedTitle, quotedBody)

	return map[string]any{
		"type":       "web-javascript-widget",
		"element_id": elementID,
		"javascript": script,
	}, nil
}
