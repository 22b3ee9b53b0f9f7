package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ScriptPilot/internal/agent"
	xerrors "ScriptPilot/internal/errors"
	"ScriptPilot/internal/observability/metrics"
	"ScriptPilot/internal/task"
	"ScriptPilot/pkg/logger"
)

// maxBodyBytes 限制请求体大小。
const maxBodyBytes = 1 << 20

// Server 负责暴露 REST 接口，供外部驱动编排器。
type Server struct {
	addr    string
	agent   *agent.Agent
	jobs    *task.Service
	metrics *metrics.Recorder
	log     *slog.Logger
}

// Option 定义可选的 Server 配置。
type Option func(*Server)

// WithJobs 启用异步任务接口。
func WithJobs(service *task.Service) Option {
	return func(s *Server) {
		s.jobs = service
	}
}

// WithMetrics 为每个请求记录 HTTP 指标。
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *Server) {
		s.metrics = recorder
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, ag *agent.Agent, opts ...Option) *Server {
	s := &Server{addr: addr, agent: ag, log: logger.Named("api")}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler 返回挂载了全部路由的 http.Handler。
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireAgent)
		r.Post("/messages", s.handleProcessMessage)

		r.Post("/automations", s.handleGenerateAutomation)
		r.Get("/automations", s.handleSearchAutomations)
		r.Post("/artifacts", s.handleGenerateArtifact)

		r.Get("/persona", s.handleCurrentPersona)
		r.Put("/persona", s.handleSwitchPersona)
		r.Get("/personas", s.handleListPersonas)
		r.Post("/personas", s.handleCreatePersona)

		r.Get("/channel", s.handleCurrentChannel)
		r.Put("/channel", s.handleSwitchChannel)
		r.Get("/channels", s.handleListChannels)

		r.Get("/stats", s.handleStats)

		r.Route("/jobs", func(r chi.Router) {
			r.Use(s.requireJobs)
			r.Post("/", s.handleSubmitJob)
			r.Get("/", s.handleListJobs)
			r.Get("/{id}", s.handleGetJob)
		})
	})
	return r
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	// 配置 HTTP 服务器。
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 启动服务器并监听关闭信号。
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API 服务已启动", slog.String("address", s.addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// observe 记录请求耗时与状态码。
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveHTTPRequest(route, r.Method, status, time.Since(started))
	})
}

func (s *Server) requireAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.agent == nil {
			writeError(w, xerrors.New(xerrors.CodeInitializationFailure, "编排器未初始化"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireJobs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.jobs == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "异步任务未启用", Code: string(xerrors.CodeInitializationFailure)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor 把错误码映射为 HTTP 状态码。
func statusFor(code xerrors.Code) int {
	switch code {
	case xerrors.CodeInvalidArgument, xerrors.CodePersonaInvalid:
		return http.StatusBadRequest
	case xerrors.CodeUnsupportedPlatform, xerrors.CodeUnsupportedArtifact:
		return http.StatusUnprocessableEntity
	case xerrors.CodeNotFound:
		return http.StatusNotFound
	case xerrors.CodeConflict, xerrors.CodeAlreadyCompleted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := xerrors.CodeOf(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		logger.L().Error("请求处理失败", slog.String("code", string(code)), slog.Any("error", err))
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: string(code)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L().Warn("响应编码失败", slog.Any("error", err))
	}
}

// decodeJSON 解析请求体，失败时返回 INVALID_ARGUMENT。
func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := decoder.Decode(out); err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "请求体解析失败")
	}
	return nil
}
