package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/crop-advisor/internal/api/http"
	"github.com/i474232898/crop-advisor/internal/config"
	"github.com/i474232898/crop-advisor/internal/logger"
	"github.com/i474232898/crop-advisor/internal/recommend"
	"github.com/i474232898/crop-advisor/internal/scheduler"
)

const appName = "crop-advisor"

func main() {
	rootCmd := &cobra.Command{
		Use:           "cropadvisor",
		Short:         "Rank crops for a field by suitability and profitability",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(recommendCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the weather cache warmer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger.Setup(cfg)
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	// Scheduler that keeps the weather cache warm.
	sched := scheduler.New(cfg.WarmLocations, cfg.WarmInterval, app.weather)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	server := httpapi.NewApp(appName, httpapi.Deps{
		Recommender: app.recommender,
		Weather:     app.weather,
		Soil:        app.soil,
		Market:      app.market,
	})

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "port", cfg.Port)
		errCh <- server.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("fiber server stopped: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
	return nil
}

func recommendCmd() *cobra.Command {
	var req recommend.Request

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print crop recommendations for a location as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Logs go to stderr so stdout stays valid JSON.
			slog.SetDefault(logger.New(os.Stderr, cfg))

			ctx := cmd.Context()
			app, err := build(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.recommender.Recommend(ctx, req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().Float64Var(&req.Latitude, "lat", 0, "latitude in decimal degrees")
	cmd.Flags().Float64Var(&req.Longitude, "lon", 0, "longitude in decimal degrees")
	cmd.Flags().Float64Var(&req.LandArea, "area", 0, "land area in hectares")
	cmd.Flags().IntVar(&req.TopN, "top", 0, "number of crops to return (default from DEFAULT_TOP_N)")
	cmd.Flags().StringSliceVar(&req.Crops, "crops", nil, "restrict the analysis to these crops")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	_ = cmd.MarkFlagRequired("area")
	return cmd
}
