// Command cron runs the daily rollup refresh without the HTTP API, for
// deployments that keep the query layer and the scheduler apart.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stockpipe/internal/cli"
	"stockpipe/internal/config"
	"stockpipe/internal/scheduler"
	"stockpipe/internal/svc"
)

const shutdownTimeout = 10 * time.Second // grace period for an in-flight refresh

var (
	configFile = flag.String("f", "etc/stockpipe.yaml", "the config file")
	runNow     = flag.Bool("now", false, "refresh once immediately before waiting for the schedule")
)

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)
	logx.MustSetup(cfg.Log)
	cli.LogConfigSummary(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcCtx, err := svc.NewServiceContext(ctx, *cfg)
	logx.Must(err)
	defer svcCtx.Close(context.Background())
	if svcCtx.Rollup == nil {
		logx.Must(svc.ErrNoDatabase)
	}

	sched, err := scheduler.New(cfg.Schedule, svcCtx.Rollup, svcCtx.Metrics)
	logx.Must(err)

	if *runNow {
		if err := sched.RunOnce(ctx); err != nil {
			logx.Errorf("cron: initial refresh err=%v", err)
		}
	}

	sched.Start()
	logx.Info("cron: waiting for schedule, press Ctrl+C to stop")
	<-ctx.Done()
	logx.Info("cron: shutdown signal received")

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()
	select {
	case <-done:
		logx.Info("cron: stopped cleanly")
	case <-time.After(shutdownTimeout):
		logx.Error("cron: shutdown timeout exceeded, forcing exit")
	}
}
