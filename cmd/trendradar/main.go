package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"TrendRadar/internal/app"
	"TrendRadar/internal/config"
	"TrendRadar/internal/logging"
	"TrendRadar/internal/usecase"
)

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:           "trendradar",
		Short:         "Hotlist monitor with multi-day trend correlation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (defaults to $TRENDRADAR_CONFIG)")

	root.AddCommand(monitorCMD(&cfgPath), reportCMD(&cfgPath), serveCMD(&cfgPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp loads the config, builds the application and closes it afterwards.
func withApp(cmd *cobra.Command, cfgPath string, fn func(ctx context.Context, a *app.Application) error) error {
	cfg := config.Load(cfgPath)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()

	if err := fn(ctx, application); err != nil {
		logger.Error("command failed", "command", cmd.Name(), "error", err)
		return err
	}
	return nil
}

func monitorCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Fetch, index and analyze hotlist items once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *cfgPath, func(ctx context.Context, a *app.Application) error {
				return a.RunMonitor(ctx, usecase.TriggerCLI)
			})
		},
	}
}

func reportCMD(cfgPath *string) *cobra.Command {
	var date, from, to string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate and send the daily or a historical report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *cfgPath, func(ctx context.Context, a *app.Application) error {
				if from != "" {
					return a.RunRangeReport(ctx, from, to, usecase.TriggerCLI)
				}
				return a.RunDailyReport(ctx, date, usecase.TriggerCLI)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to report on (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&from, "from", "", "range start (yy-MM-dd HH:mm)")
	cmd.Flags().StringVar(&to, "to", "", "range end (yy-MM-dd HH:mm), defaults to now")
	cmd.MarkFlagsMutuallyExclusive("date", "from")
	return cmd
}

func serveCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as a daemon with scheduler and status server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *cfgPath, func(ctx context.Context, a *app.Application) error {
				return a.Serve(ctx)
			})
		},
	}
}
