package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/service"
	"github.com/zeromicro/go-zero/rest"

	"stockpipe/internal/cli"
	"stockpipe/internal/config"
	"stockpipe/internal/handler"
	"stockpipe/internal/scheduler"
	"stockpipe/internal/svc"
)

var configFile = flag.String("f", "etc/stockpipe.yaml", "the config file")

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)
	logx.MustSetup(cfg.Log)

	server := rest.MustNewServer(cfg.RestConf)
	cli.LogConfigSummary(cfg)

	ctx := svc.MustNewServiceContext(*cfg)
	defer ctx.Close(context.Background())
	handler.RegisterHandlers(server, ctx)

	group := service.NewServiceGroup()
	defer group.Stop()
	group.Add(server)

	if cfg.Schedule.Enabled {
		if ctx.Rollup == nil {
			logx.Error("scheduler: disabled, postgres dsn not configured")
		} else {
			sched, err := scheduler.New(cfg.Schedule, ctx.Rollup, ctx.Metrics)
			logx.Must(err)
			group.Add(sched)
		}
	}

	fmt.Printf("Starting server at %s:%d...\n", cfg.Host, cfg.Port)
	group.Start()
}
