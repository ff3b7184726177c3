package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stockpipe/internal/rollup"
	"stockpipe/internal/svc"
	"stockpipe/internal/tickload"
	"stockpipe/pkg/source/tcbs"
)

const dateLayout = "2006-01-02"

// --- Symbols ---

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "Refresh the listed stock table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, func(ctx context.Context, s *svc.ServiceContext) error {
			job, err := s.SymbolJob()
			if err != nil {
				return err
			}
			report, err := job.Run(ctx)
			fmt.Println(report)
			return err
		})
	},
}

// --- Financials ---

var financialsCmd = &cobra.Command{
	Use:   "financials",
	Short: "Download financial statements for every listed symbol",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, _ := cmd.Flags().GetStringSlice("kind")
		kinds := make([]tcbs.Kind, 0, len(names))
		for _, name := range names {
			kind, err := tcbs.ParseKind(name)
			if err != nil {
				return err
			}
			kinds = append(kinds, kind)
		}
		return session(cmd, func(ctx context.Context, s *svc.ServiceContext) error {
			job, err := s.FinancialJob()
			if err != nil {
				return err
			}
			report, err := job.Run(ctx, kinds...)
			fmt.Println(report)
			return err
		})
	},
}

func init() {
	financialsCmd.Flags().StringSlice("kind", nil, "statement kinds (balancesheet, cashflow, incomestatement, financialratio); all when empty")
}

// --- Prices ---

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Pull daily bars for every listed symbol",
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now().UTC()
		from, err := dateFlag(cmd, "from", now.AddDate(0, 0, -7))
		if err != nil {
			return err
		}
		to, err := dateFlag(cmd, "to", now)
		if err != nil {
			return err
		}
		if from.After(to) {
			return fmt.Errorf("--from %s is after --to %s", from.Format(dateLayout), to.Format(dateLayout))
		}
		return session(cmd, func(ctx context.Context, s *svc.ServiceContext) error {
			job, err := s.PriceJob()
			if err != nil {
				return err
			}
			report, err := job.Run(ctx, from, to)
			fmt.Println(report)
			return err
		})
	},
}

func init() {
	pricesCmd.Flags().String("from", "", "first day, YYYY-MM-DD (default: 7 days ago)")
	pricesCmd.Flags().String("to", "", "last day, YYYY-MM-DD (default: today)")
}

// --- Dividends ---

var dividendsCmd = &cobra.Command{
	Use:   "dividends",
	Short: "Replace the dividend event collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, func(ctx context.Context, s *svc.ServiceContext) error {
			job, err := s.DividendJob()
			if err != nil {
				return err
			}
			report, err := job.Run(ctx)
			fmt.Println(report)
			return err
		})
	},
}

// --- Ticks ---

var ticksCmd = &cobra.Command{
	Use:   "ticks",
	Short: "Rebuild the raw tick table from the object store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, func(ctx context.Context, s *svc.ServiceContext) error {
			loader, err := s.TickLoader(ctx)
			if err != nil {
				return err
			}
			stats, err := loader.Run(ctx)
			fmt.Println(stats)
			return ticksError(err)
		})
	},
}

// ticksError spells out what state a failed reload left the live table in.
func ticksError(err error) error {
	switch {
	case err == nil:
		return nil
	case tickload.IsStagingError(err):
		return fmt.Errorf("staging write failed, stockprice unchanged: %w", err)
	case errors.Is(err, tickload.ErrNothingStaged):
		return fmt.Errorf("no readable objects in bucket: %w", err)
	}
	return err
}

// --- Refresh ---

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the candle views",
	RunE: func(cmd *cobra.Command, args []string) error {
		asOf, err := dateFlag(cmd, "date", time.Now().UTC())
		if err != nil {
			return err
		}
		full, _ := cmd.Flags().GetBool("full")
		var opts []rollup.RefreshOption
		if full {
			opts = append(opts, rollup.FullHistory())
		}
		return session(cmd, func(ctx context.Context, s *svc.ServiceContext) error {
			if s.Rollup == nil {
				return svc.ErrNoDatabase
			}
			results := s.Rollup.RefreshAll(ctx, asOf, opts...)
			for _, r := range results {
				status := "ok"
				if r.Err != nil {
					status = r.Err.Error()
				}
				fmt.Printf("%-22s %8s %s\n", r.View, r.Elapsed.Round(time.Millisecond), status)
			}
			if failed := rollup.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d views failed to refresh", len(failed), len(results))
			}
			return nil
		})
	},
}

func init() {
	refreshCmd.Flags().String("date", "", "refresh as of this day, YYYY-MM-DD (default: today)")
	refreshCmd.Flags().Bool("full", false, "refresh the whole history instead of the trailing window")
}

// --- Views ---

var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "Create the candle views and their refresh policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		return session(cmd, func(ctx context.Context, s *svc.ServiceContext) error {
			if s.Rollup == nil {
				return svc.ErrNoDatabase
			}
			return s.Rollup.EnsureViews(ctx)
		})
	},
}

func dateFlag(cmd *cobra.Command, name string, fallback time.Time) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}
