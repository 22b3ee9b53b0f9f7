package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ScriptPilot/internal/api"
	"ScriptPilot/internal/observability/metrics"
	"ScriptPilot/internal/task"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the job workers and the metrics endpoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	a, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	queue, err := createQueue(ctx, a.cfg.Queue)
	if err != nil {
		return err
	}
	jobStore := task.NewMemoryStore()
	jobs := task.NewService(jobStore, queue, a.cfg.Queue.MaxRetries)
	defer func() {
		if err := jobs.Close(); err != nil {
			a.log.Warn("关闭任务服务失败", slog.Any("error", err))
		}
	}()

	processor := task.NewProcessor(a.agent, jobStore, queue, queue,
		task.WithWorkerCount(a.cfg.Queue.Workers),
		task.WithAlertDispatcher(createAlerts(a.cfg.Alerting)),
		task.WithProcessorMetrics(a.metrics),
	)

	serverOpts := []api.Option{api.WithJobs(jobs)}
	if a.metrics != nil {
		serverOpts = append(serverOpts, api.WithMetrics(a.metrics))
	}
	server := api.NewServer(a.cfg.Server.Address, a.agent, serverOpts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(server.Start(gctx))
	})
	g.Go(func() error {
		return ignoreCanceled(processor.Start(gctx))
	})
	if a.metrics != nil {
		g.Go(func() error {
			a.log.Info("指标服务已启动", slog.String("address", a.cfg.Metrics.Address))
			return metrics.StartServer(gctx, a.cfg.Metrics.Address, a.metrics.Handler())
		})
	}
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
