package scriptpilot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. Script generation waits on a language model, so it is
// longer than a typical API call.
const DefaultHTTPTimeout = 90 * time.Second

// Client wraps the HTTP interactions with the ScriptPilot REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// MessageRequest is a single user message.
type MessageRequest struct {
	Text     string         `json:"text"`
	Platform string         `json:"platform,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// Automation is a generated script as stored by the server.
type Automation struct {
	ID            string    `json:"id"`
	Platform      string    `json:"platform"`
	Description   string    `json:"description"`
	Script        string    `json:"script"`
	Documentation string    `json:"documentation"`
	Filename      string    `json:"filename"`
	CreatedAt     time.Time `json:"created_at"`
}

// MessageResult is the outcome of processing one message. Type is one of
// "conversation", "automation" or "error".
type MessageResult struct {
	Type           string       `json:"type"`
	Message        string       `json:"message,omitempty"`
	Automation     *Automation  `json:"automation,omitempty"`
	Related        []Automation `json:"related,omitempty"`
	Error          string       `json:"error,omitempty"`
	ErrorCode      string       `json:"error_code,omitempty"`
	PersonaID      string       `json:"persona_id,omitempty"`
	ChannelID      string       `json:"channel_id,omitempty"`
	ConversationID string       `json:"conversation_id,omitempty"`
}

// Persona describes an assistant character.
type Persona struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Greeting     string   `json:"greeting"`
	SystemPrompt string   `json:"system_prompt"`
	Capabilities []string `json:"capabilities,omitempty"`
	Examples     []string `json:"examples,omitempty"`
	Channels     []string `json:"channels,omitempty"`
}

// Channel describes a delivery surface and the artifacts it supports.
type Channel struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Capabilities []string `json:"capabilities"`
	Artifacts    []string `json:"supported_artifacts"`
}

// Artifact is a channel specific payload such as a Slack Block Kit message.
type Artifact struct {
	Channel      string         `json:"channel"`
	ArtifactType string         `json:"artifact_type"`
	Description  string         `json:"description"`
	Artifact     map[string]any `json:"artifact"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

// Stats summarises generated automations.
type Stats struct {
	TotalAutomations     int            `json:"total_automations"`
	PlatformDistribution map[string]int `json:"platform_distribution"`
}

// Job is an asynchronously processed message.
type Job struct {
	ID         string         `json:"id"`
	Request    MessageRequest `json:"request"`
	Status     string         `json:"status"`
	Attempts   int            `json:"attempts"`
	MaxRetries int            `json:"max_retries"`
	LastError  string         `json:"last_error,omitempty"`
	ErrorCode  string         `json:"error_code,omitempty"`
	Result     *MessageResult `json:"result,omitempty"`
	CreatedAt  int64          `json:"created_at"`
	UpdatedAt  int64          `json:"updated_at"`
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	Status string
	Query  string
	Limit  int
	Offset int
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("scriptpilot api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("scriptpilot api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the ScriptPilot API. When httpClient is
// nil, a default client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// SendMessage routes a message through the assistant and waits for the reply.
func (c *Client) SendMessage(ctx context.Context, msg MessageRequest) (MessageResult, error) {
	var result MessageResult
	err := c.send(ctx, http.MethodPost, "/api/v1/messages", nil, msg, &result)
	return result, err
}

// GenerateAutomation asks for a script on an explicit platform.
func (c *Client) GenerateAutomation(ctx context.Context, description, platform string) (Automation, error) {
	var automation Automation
	payload := map[string]string{"description": description, "platform": platform}
	err := c.send(ctx, http.MethodPost, "/api/v1/automations", nil, payload, &automation)
	return automation, err
}

// SearchAutomations returns stored automations matching query. An empty query
// returns the most recent ones.
func (c *Client) SearchAutomations(ctx context.Context, query string, limit int) ([]Automation, error) {
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var out []Automation
	err := c.send(ctx, http.MethodGet, "/api/v1/automations", params, nil, &out)
	return out, err
}

// GenerateArtifact builds an artifact for the active channel.
func (c *Client) GenerateArtifact(ctx context.Context, artifactType, description string, options map[string]any) (Artifact, error) {
	var artifact Artifact
	payload := map[string]any{"artifact_type": artifactType, "description": description, "options": options}
	err := c.send(ctx, http.MethodPost, "/api/v1/artifacts", nil, payload, &artifact)
	return artifact, err
}

// Personas lists the persona catalog.
func (c *Client) Personas(ctx context.Context) ([]Persona, error) {
	var out []Persona
	err := c.send(ctx, http.MethodGet, "/api/v1/personas", nil, nil, &out)
	return out, err
}

// CreatePersona registers a custom persona and returns it with its assigned ID.
func (c *Client) CreatePersona(ctx context.Context, p Persona) (Persona, error) {
	var out Persona
	err := c.send(ctx, http.MethodPost, "/api/v1/personas", nil, p, &out)
	return out, err
}

// SwitchPersona activates a persona and starts a new conversation.
func (c *Client) SwitchPersona(ctx context.Context, id string) (Persona, error) {
	var out Persona
	err := c.send(ctx, http.MethodPut, "/api/v1/persona", nil, map[string]string{"id": id}, &out)
	return out, err
}

// Channels lists the delivery channels.
func (c *Client) Channels(ctx context.Context) ([]Channel, error) {
	var out []Channel
	err := c.send(ctx, http.MethodGet, "/api/v1/channels", nil, nil, &out)
	return out, err
}

// SwitchChannel activates a channel and starts a new conversation.
func (c *Client) SwitchChannel(ctx context.Context, id string) (Channel, error) {
	var out Channel
	err := c.send(ctx, http.MethodPut, "/api/v1/channel", nil, map[string]string{"id": id}, &out)
	return out, err
}

// Stats returns automation statistics.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	err := c.send(ctx, http.MethodGet, "/api/v1/stats", nil, nil, &out)
	return out, err
}

// SubmitJob queues a message for asynchronous processing. A non-empty id makes
// the submission idempotent.
func (c *Client) SubmitJob(ctx context.Context, id string, msg MessageRequest) (Job, error) {
	payload := struct {
		ID string `json:"id,omitempty"`
		MessageRequest
	}{ID: id, MessageRequest: msg}
	var job Job
	err := c.send(ctx, http.MethodPost, "/api/v1/jobs", nil, payload, &job)
	return job, err
}

// GetJob fetches a job by identifier.
func (c *Client) GetJob(ctx context.Context, id string) (Job, error) {
	var job Job
	err := c.send(ctx, http.MethodGet, "/api/v1/jobs/"+url.PathEscape(id), nil, nil, &job)
	return job, err
}

// ListJobs returns jobs matching filter.
func (c *Client) ListJobs(ctx context.Context, filter JobFilter) ([]Job, error) {
	params := url.Values{}
	if filter.Status != "" {
		params.Set("status", filter.Status)
	}
	if filter.Query != "" {
		params.Set("q", filter.Query)
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		params.Set("offset", strconv.Itoa(filter.Offset))
	}
	var out []Job
	err := c.send(ctx, http.MethodGet, "/api/v1/jobs", params, nil, &out)
	return out, err
}

// WaitForJob polls until the job succeeds or fails terminally.
func (c *Client) WaitForJob(ctx context.Context, id string, interval time.Duration) (Job, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := c.GetJob(ctx, id)
		if err != nil {
			return Job{}, err
		}
		if job.Status == "succeeded" || job.Status == "failed" {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return Job{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) send(ctx context.Context, method, endpoint string, params url.Values, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	if len(params) > 0 {
		rel.RawQuery = params.Encode()
	}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
