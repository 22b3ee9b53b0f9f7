package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ScriptPilot/internal/agent"
	"ScriptPilot/internal/channel"
	"ScriptPilot/internal/config"
	"ScriptPilot/internal/llm"
	"ScriptPilot/internal/llm/anthropic"
	"ScriptPilot/internal/llm/openai"
	"ScriptPilot/internal/memory"
	"ScriptPilot/internal/observability/alerting"
	"ScriptPilot/internal/observability/metrics"
	"ScriptPilot/internal/persona"
	"ScriptPilot/internal/storage"
	"ScriptPilot/internal/task"
	"ScriptPilot/pkg/logger"
)

// app 汇总一次进程生命周期内共享的组件。
type app struct {
	cfg     *config.Config
	agent   *agent.Agent
	memory  *memory.Memory
	metrics *metrics.Recorder
	log     *slog.Logger
}

// bootstrap 按配置依次初始化日志、大模型、目录、存储与编排器。
// withLLM 为 false 时不创建大模型客户端，仅用于只读命令。
func bootstrap(ctx context.Context, withLLM bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	log := logger.Named("scriptpilotd")

	var llmClient llm.Client
	if withLLM {
		if llmClient, err = createLLMClient(cfg); err != nil {
			return nil, err
		}
	}

	personas := persona.NewStore()
	if cfg.Catalogs.Personas != "" {
		n, err := personas.Load(cfg.Catalogs.Personas)
		if err != nil {
			return nil, err
		}
		log.Info("已加载人设目录", slog.Int("count", n), slog.String("path", cfg.Catalogs.Personas))
	}
	if cfg.Agent.DefaultPersona != "" {
		if _, ok := personas.Switch(cfg.Agent.DefaultPersona); !ok {
			log.Warn("默认人设不存在，使用回退人设", slog.String("persona_id", cfg.Agent.DefaultPersona))
		}
	}

	channels := channel.NewStore()
	if err := channels.LoadOverlay(cfg.Catalogs.Channels); err != nil {
		return nil, err
	}
	if cfg.Agent.DefaultChannel != "" {
		if _, ok := channels.Switch(cfg.Agent.DefaultChannel); !ok {
			log.Warn("默认渠道不存在，保持当前渠道", slog.String("channel_id", cfg.Agent.DefaultChannel))
		}
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	mem := memory.New(store)

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
	}

	ag := agent.New(llmClient, personas, channels, mem,
		agent.WithHistoryDepth(cfg.Agent.HistoryDepth),
		agent.WithLLMTimeout(cfg.LLM.Timeout()),
		agent.WithDefaultPlatform(cfg.Agent.DefaultPlatform),
		agent.WithMetrics(recorder),
	)

	return &app{cfg: cfg, agent: ag, memory: mem, metrics: recorder, log: log}, nil
}

// Close 释放存储并刷新日志。
func (a *app) Close() {
	if a == nil {
		return
	}
	if err := a.memory.Close(); err != nil {
		a.log.Warn("关闭会话存储失败", slog.Any("error", err))
	}
	_ = logger.Sync()
}

func createLLMClient(cfg *config.Config) (llm.Client, error) {
	apiKey := cfg.LLM.ResolveAPIKey()
	switch cfg.LLM.Provider {
	case "", "openai":
		if apiKey == "" {
			return nil, errors.New("OpenAI provider 需要配置 api_key 或 api_key_env")
		}
		return openai.NewClient(openai.Config{
			APIKey:      apiKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout(),
		})
	case "anthropic":
		if apiKey == "" {
			return nil, errors.New("Anthropic provider 需要配置 api_key 或 api_key_env")
		}
		return anthropic.NewClient(anthropic.Config{
			APIKey:      apiKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout(),
		})
	default:
		return nil, fmt.Errorf("未知的大模型 provider: %s", cfg.LLM.Provider)
	}
}

// createQueue 根据配置创建异步任务队列。
func createQueue(ctx context.Context, cfg config.QueueConfig) (task.Queue, error) {
	switch cfg.Driver {
	case "", "memory":
		return task.NewMemoryQueue(1024), nil
	case "redis":
		client, err := storage.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		queueName := ""
		if cfg.Redis.Prefix != "" {
			queueName = cfg.Redis.Prefix + "jobs"
		}
		return task.NewRedisQueue(client, task.RedisQueueConfig{Queue: queueName, BlockWait: 5 * time.Second})
	case "rabbitmq":
		return task.NewRabbitMQQueue(task.RabbitMQConfig{
			URL:        cfg.RabbitMQ.URL,
			Queue:      cfg.RabbitMQ.Queue,
			Prefetch:   cfg.RabbitMQ.Prefetch,
			Durable:    cfg.RabbitMQ.Durable,
			AutoDelete: cfg.RabbitMQ.AutoDelete,
		})
	default:
		return nil, fmt.Errorf("未知的队列驱动: %s", cfg.Driver)
	}
}

// createAlerts 组装任务失败时的告警渠道。
func createAlerts(cfg config.AlertingConfig) alerting.Dispatcher {
	notifiers := []alerting.Notifier{&alerting.LogNotifier{Logger: logger.Named("alerting")}}
	if cfg.SlackWebhookURL != "" {
		notifiers = append(notifiers, &alerting.SlackNotifier{Sender: alerting.NewWebhookSender(cfg.SlackWebhookURL)})
	}
	return alerting.NewFanout(notifiers...)
}
