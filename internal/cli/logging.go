package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"stockpipe/internal/config"
	"stockpipe/pkg/confkit"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	schedule := "disabled"
	if cfg.Schedule.Enabled {
		schedule = fmt.Sprintf("daily at %s %s", cfg.Schedule.At, cfg.Schedule.Timezone)
	}
	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Postgres: %s", presence(cfg.Postgres.DSN != "")),
		fmt.Sprintf("Mongo: %s", presence(cfg.Mongo.Configured())),
		fmt.Sprintf("Redis: %s", presence(strings.TrimSpace(cfg.Redis.Host) != "")),
		fmt.Sprintf("Object store: %s", bucketLine(cfg)),
		fmt.Sprintf("TTL (short/medium/long): %ds / %ds / %ds", cfg.TTL.Short, cfg.TTL.Medium, cfg.TTL.Long),
		fmt.Sprintf("Tick load batch: %d rows via %s", cfg.TickLoad.BatchSize, cfg.TickLoad.StagingTable),
		fmt.Sprintf("Rollup refresh: %s", schedule),
		sectionLine("Source config", cfg.Source),
	}

	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func bucketLine(cfg *config.Config) string {
	if !cfg.ObjectStore.Configured() {
		return presence(false)
	}
	if cfg.ObjectStore.Prefix == "" {
		return cfg.ObjectStore.Bucket
	}
	return cfg.ObjectStore.Bucket + "/" + strings.TrimPrefix(cfg.ObjectStore.Prefix, "/")
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: not configured", name)
	}
}
