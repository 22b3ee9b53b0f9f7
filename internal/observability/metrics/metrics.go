package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scriptpilot"

// Recorder 持有全部 Prometheus 指标。
type Recorder struct {
	registry     *prometheus.Registry
	messages     *prometheus.CounterVec
	automations  *prometheus.CounterVec
	artifacts    *prometheus.CounterVec
	jobs         *prometheus.CounterVec
	llmLatency   *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// New 创建指标记录器并注册到独立的 Registry。
func New() *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Processed inbound messages by result type.",
		}, []string{"type"}),
		automations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "automations_total",
			Help:      "Generated automations by platform.",
		}, []string{"platform"}),
		artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_total",
			Help:      "Generated channel artifacts.",
		}, []string{"channel", "artifact_type"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Async job state transitions.",
		}, []string{"status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Completion service latency by pipeline path.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"path"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed.",
		}, []string{"route", "method", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route", "method"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.messages,
		r.automations,
		r.artifacts,
		r.jobs,
		r.llmLatency,
		r.httpRequests,
		r.httpLatency,
	)
	return r
}

// Registry 返回底层 Registry。
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveMessage 记录一次消息处理结果。
func (r *Recorder) ObserveMessage(kind string) {
	if r == nil {
		return
	}
	r.messages.WithLabelValues(kind).Inc()
}

// ObserveAutomation 记录一次脚本生成。
func (r *Recorder) ObserveAutomation(platform string) {
	if r == nil {
		return
	}
	r.automations.WithLabelValues(platform).Inc()
}

// ObserveArtifact 记录一次渠道产物生成。
func (r *Recorder) ObserveArtifact(channel, artifactType string) {
	if r == nil {
		return
	}
	r.artifacts.WithLabelValues(channel, artifactType).Inc()
}

// ObserveJob 记录异步任务状态变化。
func (r *Recorder) ObserveJob(status string) {
	if r == nil {
		return
	}
	r.jobs.WithLabelValues(status).Inc()
}

// ObserveLLM 记录补全服务耗时。
func (r *Recorder) ObserveLLM(path string, duration time.Duration) {
	if r == nil {
		return
	}
	r.llmLatency.WithLabelValues(path).Observe(duration.Seconds())
}

// ObserveHTTPRequest 记录 HTTP 请求的状态码与耗时。
func (r *Recorder) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// Handler 以 Prometheus 文本格式暴露指标。
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// StartServer 启动独立的 /metrics HTTP 服务，ctx 结束时优雅退出。
func StartServer(ctx context.Context, addr string, handler http.Handler) error {
	if addr == "" {
		return errors.New("metrics address is empty")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
