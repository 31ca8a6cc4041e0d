package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-resilient/internal/credentials"
	"github.com/ahrav/go-resilient/internal/domain"
	"github.com/ahrav/go-resilient/internal/llm/configuration"
	"github.com/ahrav/go-resilient/internal/llm/resilience"
	"github.com/ahrav/go-resilient/internal/suitability"
	"github.com/ahrav/go-resilient/internal/worker"
	"github.com/ahrav/go-resilient/pkg/events"
)

const metricsNamespace = "resilient"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "resilient",
		Short:         "Resilient provider calls with credential renewal and fallback ladders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML or JSON config file")

	root.AddCommand(
		newWorkerCmd(&configPath),
		newAskCmd(&configPath),
		newScoreCmd(),
	)
	return root
}

func newWorkerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal worker for the chat and suitability workflows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configuration.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Observability, os.Stderr)
			slog.SetDefault(logger)

			metrics, stopMetrics := startMetrics(cfg.Observability, logger)
			defer stopMetrics()

			svc, err := worker.Build(cfg, worker.Options{
				Logger:           logger,
				Metrics:          metrics,
				Sink:             events.NewLogSink(logger.With("component", "events")),
				SessionListeners: []credentials.SessionListener{sessionEnded(logger)},
			})
			if err != nil {
				return err
			}

			c, err := client.Dial(client.Options{
				HostPort:  cfg.Temporal.HostPort,
				Namespace: cfg.Temporal.Namespace,
				Logger:    temporallog.NewStructuredLogger(logger),
			})
			if err != nil {
				return fmt.Errorf("connecting to temporal at %s: %w", cfg.Temporal.HostPort, err)
			}
			defer c.Close()

			w := sdkworker.New(c, cfg.Temporal.TaskQueue, sdkworker.Options{})
			worker.RegisterAll(w, svc)

			logger.Info("worker starting",
				"task_queue", cfg.Temporal.TaskQueue,
				"namespace", cfg.Temporal.Namespace,
			)
			return w.Run(sdkworker.InterruptCh())
		},
	}
}

func newAskCmd(configPath *string) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one chat turn through the chat ladder without Temporal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configuration.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Observability, cmd.ErrOrStderr())

			svc, err := worker.Build(cfg, worker.Options{Logger: logger})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.Chat.Timeout)
			defer cancel()

			reply, err := svc.Chat.Reply(ctx, domain.ChatRequest{
				SessionID: sessionID,
				Message:   strings.Join(args, " "),
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), reply)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session identifier for logs")
	return cmd
}

func newScoreCmd() *cobra.Command {
	var (
		in       domain.SuitabilityInput
		season   string
		soil     string
		drainage string
		slope    string
		top      int
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rank crops for a plot with the offline rule-based scorer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Season = domain.Season(season)
			in.SoilType = domain.SoilType(soil)
			in.Drainage = domain.Drainage(drainage)
			in.Slope = domain.Slope(slope)
			if err := in.Validate(); err != nil {
				return err
			}

			recs := suitability.Score(in)
			if top > 0 && top < len(recs) {
				recs = recs[:top]
			}
			return writeJSON(cmd.OutOrStdout(), domain.SuitabilityResult{
				Recommendations: recs,
				Source:          domain.SourceRules,
				Provider:        suitability.RungRules,
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.District, "district", "", "district name")
	f.StringVar(&season, "season", string(domain.SeasonMaha), "cultivation season (Maha or Yala)")
	f.Float64Var(&in.SoilPH, "ph", 6.5, "soil pH")
	f.StringVar(&soil, "soil", string(domain.SoilLoam), "soil type")
	f.StringVar(&drainage, "drainage", string(domain.DrainageModerate), "drainage (Poor, Moderate, Good)")
	f.StringVar(&slope, "slope", string(domain.SlopeFlat), "slope (Flat, Gentle, Moderate, Steep)")
	f.BoolVar(&in.Irrigation, "irrigation", false, "plot is irrigated")
	f.Float64Var(&in.RainfallMM, "rainfall", 1000, "seasonal rainfall in mm")
	f.Float64Var(&in.TemperatureC, "temperature", 27, "mean temperature in °C")
	f.Float64Var(&in.LandSize, "land-size", 0, "land size in acres")
	f.IntVar(&top, "top", 0, "limit output to the best N crops")
	return cmd
}

// newLogger builds the process logger from the observability settings.
func newLogger(cfg configuration.ObservabilityConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// startMetrics serves Prometheus metrics on cfg.MetricsAddr. The returned
// function shuts the server down.
func startMetrics(cfg configuration.ObservabilityConfig, logger *slog.Logger) (resilience.Metrics, func()) {
	if !cfg.MetricsEnabled {
		return resilience.NewNoOpMetrics(), func() {}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := resilience.NewPrometheusMetrics(metricsNamespace, reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", cfg.MetricsAddr)

	return metrics, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func sessionEnded(logger *slog.Logger) credentials.SessionListener {
	return func(reason error) {
		logger.Warn("credential session ended; re-authentication required", "reason", reason)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
