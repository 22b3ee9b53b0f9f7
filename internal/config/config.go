package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ScriptPilot/pkg/logger"
)

// EnvConfigPath 指定配置文件路径的环境变量。
const EnvConfigPath = "SCRIPTPILOT_CONFIG"

// Config 描述了 ScriptPilot 在启动阶段需要加载的核心配置。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      logger.Config  `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	LLM      LLMConfig      `yaml:"llm"`
	Catalogs CatalogConfig  `yaml:"catalogs"`
	Agent    AgentConfig    `yaml:"agent"`
	Queue    QueueConfig    `yaml:"queue"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Alerting AlertingConfig `yaml:"alerting"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address string `yaml:"address"`
}

// StorageConfig 描述会话记忆的持久化后端。
type StorageConfig struct {
	Driver                 string      `yaml:"driver"`
	DSN                    string      `yaml:"dsn"`
	DataDir                string      `yaml:"data_dir"`
	MaxOpenConns           int         `yaml:"max_open_conns"`
	MaxIdleConns           int         `yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int         `yaml:"conn_max_lifetime_seconds"`
	Redis                  RedisConfig `yaml:"redis"`
}

// RedisConfig 描述最近消息缓存所使用的 Redis。
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	Window   int    `yaml:"window"`
	TTL      int    `yaml:"ttl_seconds"`
}

// LLMConfig 用于配置补全服务的调用方式。
type LLMConfig struct {
	Provider       string  `yaml:"provider"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"api_key"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	BaseURL        string  `yaml:"base_url"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int64   `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// Timeout 返回单次补全请求的超时时间。
func (c LLMConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolveAPIKey 优先使用显式配置的密钥，其次读取环境变量。
func (c LLMConfig) ResolveAPIKey() string {
	if key := strings.TrimSpace(c.APIKey); key != "" {
		return key
	}
	if c.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.APIKeyEnv))
}

// CatalogConfig 指向人设与渠道目录文档。
type CatalogConfig struct {
	Personas string `yaml:"personas"`
	Channels string `yaml:"channels"`
}

// AgentConfig 控制编排器的行为。
type AgentConfig struct {
	HistoryDepth    int    `yaml:"history_depth"`
	DefaultPlatform string `yaml:"default_platform"`
	DefaultPersona  string `yaml:"default_persona"`
	DefaultChannel  string `yaml:"default_channel"`
}

// QueueConfig 描述异步任务队列。
type QueueConfig struct {
	Driver     string         `yaml:"driver"`
	Workers    int            `yaml:"workers"`
	MaxRetries int            `yaml:"max_retries"`
	Redis      RedisConfig    `yaml:"redis"`
	RabbitMQ   RabbitMQConfig `yaml:"rabbitmq"`
}

// RabbitMQConfig 描述 RabbitMQ 队列的连接参数。
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Queue      string `yaml:"queue"`
	Prefetch   int    `yaml:"prefetch"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// MetricsConfig 控制 Prometheus 指标的暴露方式。
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// AlertingConfig 配置任务失败时的告警渠道。
type AlertingConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
}

// Load 负责解析指定路径的 YAML 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg, err := Parse(content, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse 解析 YAML 内容，相对路径以 baseDir 为基准。
func Parse(content []byte, baseDir string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.applyDefaults(baseDir)
	return &cfg, nil
}

// Default 返回不依赖配置文件的默认配置。
func Default(baseDir string) *Config {
	cfg := &Config{}
	cfg.applyDefaults(baseDir)
	return cfg
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	c.Storage.DataDir = resolvePath(baseDir, c.Storage.DataDir, "data")
	if c.Storage.Redis.Window <= 0 {
		c.Storage.Redis.Window = 50
	}
	if c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = "scriptpilot:"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.APIKeyEnv == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.APIKeyEnv = "OPENAI_API_KEY"
		case "anthropic":
			c.LLM.APIKeyEnv = "ANTHROPIC_API_KEY"
		}
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = 60
	}

	if c.Catalogs.Personas != "" {
		c.Catalogs.Personas = resolvePath(baseDir, c.Catalogs.Personas, "")
	}
	if c.Catalogs.Channels != "" {
		c.Catalogs.Channels = resolvePath(baseDir, c.Catalogs.Channels, "")
	}

	if c.Agent.HistoryDepth <= 0 {
		c.Agent.HistoryDepth = 10
	}
	c.Agent.DefaultPlatform = strings.ToLower(strings.TrimSpace(c.Agent.DefaultPlatform))

	if c.Queue.Driver == "" {
		c.Queue.Driver = "memory"
	}
	if c.Queue.Workers <= 0 {
		c.Queue.Workers = 4
	}
	if c.Queue.MaxRetries <= 0 {
		c.Queue.MaxRetries = 3
	}

	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}

	if c.Log.Audit.Path != "" {
		c.Log.Audit.Path = resolvePath(baseDir, c.Log.Audit.Path, "")
	}
}

func resolvePath(baseDir, value, fallback string) string {
	if value == "" {
		value = fallback
	}
	if value == "" || filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(baseDir, value)
}
