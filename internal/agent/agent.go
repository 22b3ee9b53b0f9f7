package agent

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ScriptPilot/internal/channel"
	xerrors "ScriptPilot/internal/errors"
	"ScriptPilot/internal/generator"
	"ScriptPilot/internal/llm"
	"ScriptPilot/internal/memory"
	"ScriptPilot/internal/observability/metrics"
	"ScriptPilot/internal/persona"
	"ScriptPilot/pkg/logger"
)

// ResultType 标识消息处理结果的类别。
type ResultType string

const (
	ResultConversation ResultType = "conversation"
	ResultAutomation   ResultType = "automation"
	ResultError        ResultType = "error"
)

// MessageRequest 是一条待处理的用户消息。
type MessageRequest struct {
	Text     string         `json:"text" mapstructure:"text"`
	Platform string         `json:"platform,omitempty" mapstructure:"platform"`
	Options  map[string]any `json:"options,omitempty" mapstructure:"options"`
}

// MessageResult 汇总一次消息处理的结果。
type MessageResult struct {
	Type           ResultType          `json:"type"`
	Message        string              `json:"message,omitempty"`
	Automation     *memory.Automation  `json:"automation,omitempty"`
	Related        []memory.Automation `json:"related,omitempty"`
	Error          string              `json:"error,omitempty"`
	ErrorCode      xerrors.Code        `json:"error_code,omitempty"`
	PersonaID      string              `json:"persona_id,omitempty"`
	ChannelID      string              `json:"channel_id,omitempty"`
	ConversationID string              `json:"conversation_id,omitempty"`
}

// Agent 协调人设、渠道、会话记忆与脚本生成器，是系统的业务核心。
type Agent struct {
	llmClient       llm.Client
	personas        *persona.Store
	channels        *channel.Store
	memory          *memory.Memory
	generators      *generator.Registry
	historyDepth    int
	llmTimeout      time.Duration
	defaultPlatform string
	metrics         *metrics.Recorder
	log             *slog.Logger
}

// Option 定义可选的 Agent 配置。
type Option func(*Agent)

// defaultHistoryDepth 是构建对话提示时引用的历史消息数量的默认值。
const defaultHistoryDepth = 10

// relatedLimit 是自动化结果附带的相似脚本数量上限。
const relatedLimit = 3

// WithHistoryDepth 设置构建对话提示时引用的历史消息数量。
func WithHistoryDepth(depth int) Option {
	return func(a *Agent) {
		a.historyDepth = depth
	}
}

// WithLLMTimeout 设置调用大模型的超时时间。
func WithLLMTimeout(timeout time.Duration) Option {
	return func(a *Agent) {
		if timeout <= 0 {
			a.llmTimeout = 0
			return
		}
		a.llmTimeout = timeout
	}
}

// WithDefaultPlatform 设置无法从请求与文本推断平台时使用的平台。
func WithDefaultPlatform(platform string) Option {
	return func(a *Agent) {
		a.defaultPlatform = strings.TrimSpace(platform)
	}
}

// WithGenerators 替换默认的生成器注册表。
func WithGenerators(registry *generator.Registry) Option {
	return func(a *Agent) {
		if registry != nil {
			a.generators = registry
		}
	}
}

// WithMetrics 配置 Prometheus 指标记录器。
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(a *Agent) {
		a.metrics = recorder
	}
}

// New 创建一个 Agent。
func New(llmClient llm.Client, personas *persona.Store, channels *channel.Store, mem *memory.Memory, opts ...Option) *Agent {
	// 初始化 Agent 实例。
	ag := &Agent{
		llmClient:    llmClient,
		personas:     personas,
		channels:     channels,
		memory:       mem,
		generators:   generator.Default(),
		historyDepth: defaultHistoryDepth,
		log:          logger.Named("agent"),
	}
	// 应用可选配置。
	for _, opt := range opts {
		if opt != nil {
			opt(ag)
		}
	}
	// 设置默认的历史深度。
	if ag.historyDepth <= 0 {
		ag.historyDepth = defaultHistoryDepth
	}
	if ag.personas == nil {
		ag.personas = persona.NewStore()
	}
	if ag.channels == nil {
		ag.channels = channel.NewStore()
	}
	if ag.memory == nil {
		ag.memory = memory.New(memory.NewInMemoryStore())
	}
	return ag
}

// ProcessMessage 对消息分类后走闲聊或脚本生成路径，处理中的失败以 error 类型的结果返回。
func (a *Agent) ProcessMessage(ctx context.Context, req MessageRequest) (*MessageResult, error) {
	// 验证消息的合法性。
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "消息内容不能为空")
	}
	if a.llmClient == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置大模型客户端")
	}

	// 在分类时固定本次请求使用的人设与渠道。
	active, ch := a.snapshot()
	result := &MessageResult{PersonaID: active.ID, ChannelID: ch.ID}

	// 打开当前会话。
	conv, err := a.memory.Open(ctx, active.ID, ch.ID)
	if err != nil {
		return a.fail(result, err), nil
	}
	result.ConversationID = conv.ID

	// 判断处理路径。
	intent := Classify(text, a.generators)
	if strings.TrimSpace(req.Platform) != "" {
		intent.Kind = KindAutomation
	}

	if intent.Kind == KindAutomation {
		platform := a.resolvePlatform(req.Platform, intent.Platform)
		a.processAutomation(ctx, result, conv, active, text, platform, req.Options)
	} else {
		a.processConversation(ctx, result, conv, active, text)
	}
	a.metrics.ObserveMessage(string(result.Type))
	return result, nil
}

// snapshot 读取当前人设与渠道，人设不允许当前渠道时改用兜底人设。
func (a *Agent) snapshot() (*persona.Persona, *channel.Channel) {
	active := a.personas.Current()
	ch := a.channels.Current()
	if !active.AllowsChannel(ch.ID) {
		a.log.Warn("当前人设不支持该渠道，改用兜底人设",
			slog.String("persona", active.ID),
			slog.String("channel", ch.ID),
		)
		active = a.personas.Fallback()
	}
	return active, ch
}

// resolvePlatform 依次使用请求指定的平台、文本推断的平台与默认平台。
func (a *Agent) resolvePlatform(explicit, inferred string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	if inferred != "" {
		return inferred
	}
	return a.defaultPlatform
}

func (a *Agent) processConversation(ctx context.Context, result *MessageResult, conv memory.Conversation, active *persona.Persona, text string) {
	// 加载历史消息并构建提示。
	history, err := a.memory.History(ctx, conv.ID, a.historyDepth)
	if err != nil {
		a.fail(result, err)
		return
	}
	prompt := persona.BuildPrompt(*active, text, toHistoryEntries(history))

	// 先写入用户消息。
	if _, err := a.memory.AppendMessage(ctx, conv.ID, memory.RoleUser, text, nil); err != nil {
		a.fail(result, err)
		return
	}

	// 调用大模型生成回复。
	output, err := a.complete(ctx, llm.Request{Prompt: prompt, Purpose: string(KindConversation)})
	if err != nil {
		a.fail(result, err)
		return
	}
	reply := strings.TrimSpace(output.Text)

	// 写入助手回复。
	if _, err := a.memory.AppendMessage(ctx, conv.ID, memory.RoleAssistant, reply, nil); err != nil {
		a.fail(result, err)
		return
	}
	result.Type = ResultConversation
	result.Message = reply
}

func (a *Agent) processAutomation(ctx context.Context, result *MessageResult, conv memory.Conversation, active *persona.Persona, text, platform string, rawOptions map[string]any) {
	// 确认目标平台，失败时不写入任何记录。
	gen, err := a.lookupGenerator(platform)
	if err != nil {
		a.fail(result, err)
		return
	}
	opts, err := generator.DecodeOptions(rawOptions)
	if err != nil {
		a.fail(result, err)
		return
	}

	// 写入用户消息。
	if _, err := a.memory.AppendMessage(ctx, conv.ID, memory.RoleUser, text, nil); err != nil {
		a.fail(result, err)
		return
	}

	// 在写入新脚本前检索相似的历史脚本。
	related, err := a.memory.SimilarAutomations(ctx, text, relatedLimit)
	if err != nil {
		a.log.Warn("检索相似脚本失败", slog.String("error", err.Error()))
		related = nil
	}

	// 生成并保存脚本。
	automation, err := a.generate(ctx, gen, active, text, opts)
	if err != nil {
		a.fail(result, err)
		return
	}

	// 追加一条带脚本元数据的助手消息。
	reply := fmt.Sprintf("Generated %s script %s: %s", gen.DisplayName(), automation.Filename, automation.Documentation)
	metadata := map[string]string{
		"automation_id": automation.ID,
		"platform":      automation.Platform,
		"filename":      automation.Filename,
	}
	if _, err := a.memory.AppendMessage(ctx, conv.ID, memory.RoleAssistant, reply, metadata); err != nil {
		a.fail(result, err)
		return
	}

	result.Type = ResultAutomation
	result.Message = reply
	result.Automation = automation
	result.Related = related
}

// GenerateAutomation 直接为指定平台生成脚本并写入台账，不写入会话消息。
func (a *Agent) GenerateAutomation(ctx context.Context, description, platform string, rawOptions map[string]any) (*memory.Automation, error) {
	// 验证请求。
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "脚本描述不能为空")
	}
	if a.llmClient == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置大模型客户端")
	}
	gen, err := a.lookupGenerator(platform)
	if err != nil {
		return nil, err
	}
	opts, err := generator.DecodeOptions(rawOptions)
	if err != nil {
		return nil, err
	}

	active, _ := a.snapshot()
	return a.generate(ctx, gen, active, description, opts)
}

// generate 调用大模型、解析响应并把脚本写入台账。
func (a *Agent) generate(ctx context.Context, gen generator.Generator, active *persona.Persona, description string, opts generator.Options) (*memory.Automation, error) {
	output, err := a.complete(ctx, llm.Request{
		System:  active.SystemPrompt,
		Prompt:  gen.BuildPrompt(description, opts),
		Purpose: string(KindAutomation),
	})
	if err != nil {
		return nil, err
	}

	parsed := gen.ParseResponse(output.Text)
	if !parsed.Fenced {
		a.log.Warn("模型响应中没有代码块，使用原始文本", slog.String("platform", gen.Platform()))
	}

	automation, err := a.memory.RecordAutomation(ctx, memory.Automation{
		Platform:      gen.Platform(),
		Description:   description,
		Script:        parsed.Script,
		Documentation: parsed.Documentation,
		Filename:      parsed.Filename,
	})
	if err != nil {
		return nil, err
	}
	a.metrics.ObserveAutomation(automation.Platform)
	return automation, nil
}

// complete 在配置的超时时间内调用大模型并归类错误。
func (a *Agent) complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	llmCtx := ctx
	if a.llmTimeout > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, a.llmTimeout)
		defer cancel()
	}

	started := time.Now()
	output, err := a.llmClient.Generate(llmCtx, req)
	a.metrics.ObserveLLM(req.Purpose, time.Since(started))
	if err != nil {
		if stdErrors.Is(err, context.DeadlineExceeded) || stdErrors.Is(llmCtx.Err(), context.DeadlineExceeded) {
			return nil, xerrors.Wrap(xerrors.CodeTimeout, err, "大模型推理超时")
		}
		return nil, xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "大模型推理失败")
	}
	if output == nil || strings.TrimSpace(output.Text) == "" {
		return nil, xerrors.New(xerrors.CodeUpstreamFailure, "大模型返回了空响应")
	}
	return output, nil
}

func (a *Agent) lookupGenerator(platform string) (generator.Generator, error) {
	if strings.TrimSpace(platform) == "" {
		return nil, xerrors.New(xerrors.CodeUnsupportedPlatform,
			fmt.Sprintf("无法确定目标平台，可选平台: %s", strings.Join(a.generators.Platforms(), ", ")))
	}
	gen, ok := a.generators.Get(platform)
	if !ok {
		return nil, xerrors.New(xerrors.CodeUnsupportedPlatform,
			fmt.Sprintf("不支持的平台 %q，可选平台: %s", platform, strings.Join(a.generators.Platforms(), ", ")),
			xerrors.WithMetadata("platform", platform))
	}
	return gen, nil
}

// fail 把处理过程中的错误转换为 error 类型的结果。
func (a *Agent) fail(result *MessageResult, err error) *MessageResult {
	code := xerrors.CodeOf(err)
	a.log.Error("消息处理失败",
		slog.String("code", string(code)),
		slog.String("error", err.Error()),
	)
	result.Type = ResultError
	result.Error = err.Error()
	result.ErrorCode = code
	result.Message = ""
	result.Automation = nil
	result.Related = nil
	return result
}

// GenerateChannelArtifact 为当前渠道生成结构化产物。
func (a *Agent) GenerateChannelArtifact(artifactType, description string, options map[string]any) (*channel.Artifact, error) {
	artifact, err := a.channels.GenerateArtifact(artifactType, description, options)
	if err != nil {
		return nil, err
	}
	a.metrics.ObserveArtifact(artifact.Channel, artifact.ArtifactType)
	return artifact, nil
}

// SwitchPersona 切换当前人设并开启新会话，未找到时返回 nil 且保持原状。
func (a *Agent) SwitchPersona(id string) *persona.Persona {
	p, ok := a.personas.Switch(id)
	if !ok {
		return nil
	}
	a.memory.Reset()
	return p
}

// SwitchChannel 切换当前渠道并开启新会话，未找到时返回 nil 且保持原状。
func (a *Agent) SwitchChannel(id string) *channel.Channel {
	ch, ok := a.channels.Switch(id)
	if !ok {
		return nil
	}
	a.memory.Reset()
	return ch
}

// CreatePersona 注册自定义人设。
func (a *Agent) CreatePersona(p persona.Persona) (*persona.Persona, error) {
	return a.personas.CreateCustom(p)
}

// Stats 返回脚本总数与平台分布。
func (a *Agent) Stats(ctx context.Context) (memory.Stats, error) {
	return a.memory.Stats(ctx)
}

// SearchAutomations 检索相似脚本，查询为空时返回最新脚本。
func (a *Agent) SearchAutomations(ctx context.Context, query string, limit int) ([]memory.Automation, error) {
	if strings.TrimSpace(query) == "" {
		return a.memory.RecentAutomations(ctx, limit)
	}
	return a.memory.SimilarAutomations(ctx, query, limit)
}

// CurrentPersona 返回当前人设。
func (a *Agent) CurrentPersona() *persona.Persona { return a.personas.Current() }

// CurrentChannel 返回当前渠道。
func (a *Agent) CurrentChannel() *channel.Channel { return a.channels.Current() }

// Personas 返回全部人设。
func (a *Agent) Personas() []persona.Persona { return a.personas.List() }

// Channels 返回全部渠道。
func (a *Agent) Channels() []channel.Channel { return a.channels.List() }

// Platforms 返回支持的脚本平台。
func (a *Agent) Platforms() []string { return a.generators.Platforms() }

func toHistoryEntries(messages []memory.Message) []persona.HistoryEntry {
	entries := make([]persona.HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, persona.HistoryEntry{Role: string(msg.Role), Content: msg.Content})
	}
	return entries
}
