package llm

import "context"

// Request 描述发送给补全服务的一次调用。
type Request struct {
	// System 是可选的系统提示，Prompt 为完整的用户侧提示文本。
	System string
	Prompt string
	// Purpose 标记调用来源（conversation/automation），仅用于日志与指标。
	Purpose string
}

// Response 是补全服务返回的原始文本。
type Response struct {
	Text string
}

// Client 定义了调用补全服务的统一接口。
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ClientFunc 允许普通函数充当 Client。
type ClientFunc func(ctx context.Context, req Request) (*Response, error)

// Generate 实现 Client 接口。
func (f ClientFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
