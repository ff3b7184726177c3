// Command ingest runs one pipeline job per invocation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/zeromicro/go-zero/core/logx"

	"stockpipe/internal/cli"
	"stockpipe/internal/config"
	"stockpipe/internal/svc"
)

var (
	configFile string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "ingest",
	Short:         "Run stockpipe ingestion and rollup jobs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logx.MustSetup(cfg.Log)
		cli.LogConfigSummary(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "f", "etc/stockpipe.yaml", "the config file")

	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(financialsCmd)
	rootCmd.AddCommand(pricesCmd)
	rootCmd.AddCommand(dividendsCmd)
	rootCmd.AddCommand(ticksCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(viewsCmd)
}

// session builds a fresh service context for one command. Metrics go to a
// private registry since nothing scrapes a one-shot process.
func session(cmd *cobra.Command, run func(ctx context.Context, s *svc.ServiceContext) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := svc.NewServiceContext(ctx, *cfg, svc.WithRegisterer(prometheus.NewRegistry()))
	if err != nil {
		return err
	}
	defer s.Close(context.Background())
	return run(ctx, s)
}
