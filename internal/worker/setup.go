// Package worker assembles the call layer and registers its workflows and
// activities with a Temporal worker.
package worker

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ahrav/go-resilient/internal/chat"
	"github.com/ahrav/go-resilient/internal/credentials"
	"github.com/ahrav/go-resilient/internal/ladder"
	"github.com/ahrav/go-resilient/internal/llm"
	"github.com/ahrav/go-resilient/internal/llm/configuration"
	"github.com/ahrav/go-resilient/internal/llm/resilience"
	"github.com/ahrav/go-resilient/internal/suitability"
	"github.com/ahrav/go-resilient/pkg/events"
)

// Options carries the process-wide collaborators shared by every service.
type Options struct {
	Logger           *slog.Logger
	Metrics          resilience.Metrics
	Sink             events.EventSink
	SessionListeners []credentials.SessionListener
}

// Services is the assembled call layer.
type Services struct {
	Client      llm.Client
	Coordinator *credentials.Coordinator // nil when no renewal endpoint is configured
	Chat        *chat.Service
	Suitability *suitability.Service
	Sink        events.EventSink
}

// Build wires the provider client, the credential coordinator and both ladders
// from cfg. It is called once during worker startup.
func Build(cfg *configuration.Config, opts Options) (*Services, error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = resilience.NewNoOpMetrics()
	}
	if opts.Sink == nil {
		opts.Sink = events.NewNoOpEventSink()
	}

	client, err := llm.NewClient(cfg,
		llm.WithLogger(opts.Logger.With("component", "llm")),
		llm.WithMetrics(opts.Metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	svc := &Services{Client: client, Sink: opts.Sink}

	var authz ladder.Authorizer
	if cfg.Credentials.RenewURL != "" {
		coordOpts := []credentials.Option{
			credentials.WithLogger(opts.Logger.With("component", "credentials")),
			credentials.WithMetrics(opts.Metrics),
			credentials.WithEventSink(opts.Sink),
			credentials.WithRenewTimeout(cfg.Credentials.RenewTimeout),
		}
		for _, l := range opts.SessionListeners {
			coordOpts = append(coordOpts, credentials.WithSessionListener(l))
		}

		renewer := credentials.NewHTTPRenewer(cfg.Credentials.RenewURL, &http.Client{Timeout: cfg.Credentials.RenewTimeout})
		svc.Coordinator = credentials.NewCoordinator(renewer, credentials.Pair{
			AccessToken:  cfg.Credentials.AccessToken,
			RefreshToken: cfg.Credentials.RefreshToken,
		}, coordOpts...)
		authz = svc.Coordinator
	}

	svc.Chat, err = chat.NewService(client, authz, cfg.Chat,
		chat.WithLogger(opts.Logger.With("component", "chat")),
		chat.WithMetrics(opts.Metrics),
	)
	if err != nil {
		return nil, err
	}

	svc.Suitability, err = suitability.NewService(client, authz, cfg.Suitability,
		suitability.WithLogger(opts.Logger.With("component", "suitability")),
		suitability.WithMetrics(opts.Metrics),
	)
	if err != nil {
		return nil, err
	}

	return svc, nil
}
