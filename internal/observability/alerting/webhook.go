package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WebhookSender 通过 Slack Incoming Webhook 发送消息。
type WebhookSender struct {
	URL    string
	Client *http.Client
}

// NewWebhookSender 创建带超时的 Webhook 发送器。
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		URL:    strings.TrimSpace(url),
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send 以 JSON 形式投递文本消息。
func (s *WebhookSender) Send(ctx context.Context, content string) error {
	body, err := json.Marshal(map[string]string{"text": content})
	if err != nil {
		return fmt.Errorf("序列化 Slack 消息失败: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建 Slack 请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送 Slack 消息失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("Slack 返回状态码 %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return nil
}
