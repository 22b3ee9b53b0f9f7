package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"ScriptPilot/internal/llm"
)

const (
	defaultModelName   = "claude-3-5-sonnet-20241022"
	defaultTimeout     = 60 * time.Second
	defaultTemperature = 0.2
	defaultMaxTokens   = 2048
)

// Config 描述了调用 Anthropic Messages API 所需的信息。
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
	Timeout     time.Duration
}

// Client 通过官方 SDK 调用 Claude 模型。
type Client struct {
	client      *sdk.Client
	model       sdk.Model
	temperature float64
	maxTokens   int64
}

// NewClient 根据配置创建 Anthropic 客户端。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供 Anthropic API Key")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelName
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}

	client := sdk.NewClient(opts...)
	return &Client{
		client:      &client,
		model:       sdk.Model(model),
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Generate 调用 Messages API 并拼接所有文本块。
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("提示内容为空")
	}

	params := sdk.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: sdk.Float(c.temperature),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("请求 Anthropic 失败: %w", err)
	}

	var builder strings.Builder
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		builder.WriteString(block.AsText().Text)
	}

	content := strings.TrimSpace(builder.String())
	if content == "" {
		return nil, errors.New("Anthropic 响应内容为空")
	}
	return &llm.Response{Text: content}, nil
}

var _ llm.Client = (*Client)(nil)
