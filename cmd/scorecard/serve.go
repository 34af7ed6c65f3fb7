package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/scorecard/internal/api"
	"github.com/newthinker/scorecard/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scorecard API server and scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	log, cfg := c.log, c.cfg
	defer log.Sync()

	a := app.New(cfg, c.service, log.Named("app"))
	a.SetMetrics(c.metrics)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	server, err := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		APIKey:      cfg.Server.APIKey,
		MaxJobs:     cfg.Server.MaxJobs,
		JobTTL:      time.Duration(cfg.Server.JobTTLHours) * time.Hour,
		MetricsPath: metricsPath,
	}, api.Dependencies{
		App:        a,
		Service:    c.service,
		ScoreStore: c.store,
		Metrics:    c.metrics,
	}, log.Named("api"))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	log.Info("starting scorecard server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("auth", cfg.Server.APIKey != ""),
		zap.Bool("schedule", cfg.Schedule.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c.router.StartCleanupRoutine(ctx, time.Hour)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	schedulerDone := make(chan struct{})
	if cfg.Schedule.Enabled {
		go func() {
			defer close(schedulerDone)
			if err := a.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("scheduler stopped", zap.Error(err))
			}
		}()
	} else {
		close(schedulerDone)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
		if runErr != nil {
			log.Error("server error", zap.Error(runErr))
		}
		stop()
	}

	log.Info("shutting down scorecard server")

	a.Stop()
	<-schedulerDone

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return runErr
}
