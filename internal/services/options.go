package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/spanner"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/materializer"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/orchestrator"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/queries/list_status_events"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/repo"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/usecases/cancel_message"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/usecases/receive_message"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/usecases/retry_send"
	"github.com/light-bringer/commhistory-mms/internal/app/mms/usecases/send_message"
	"github.com/light-bringer/commhistory-mms/internal/pkg/clock"
	"github.com/light-bringer/commhistory-mms/internal/pkg/committer"
	"github.com/light-bringer/commhistory-mms/internal/transport/engine"
	httphandler "github.com/light-bringer/commhistory-mms/internal/transport/http"
)

// Config holds what the wiring needs from the environment.
type Config struct {
	SpannerDB    string
	EngineAddr   string
	WorkspaceDir string
	Logger       *zap.Logger
}

// ServiceOptions holds all dependencies for the application.
type ServiceOptions struct {
	SpannerClient *spanner.Client
	EngineConn    *grpc.ClientConn
	Engine        *engine.Client
	Orchestrator  *orchestrator.Orchestrator
	HTTPHandler   http.Handler
}

// NewServiceOptions creates and wires up all application dependencies.
func NewServiceOptions(ctx context.Context, cfg Config) (*ServiceOptions, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// 1. Spanner
	spannerClient, err := spanner.NewClient(ctx, cfg.SpannerDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spanner client: %w", err)
	}

	// 2. Engine connection. NewClient does not dial; calls wait for readiness.
	engineConn, err := grpc.NewClient(cfg.EngineAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		spannerClient.Close()
		return nil, fmt.Errorf("failed to create engine connection: %w", err)
	}
	engineClient := engine.NewClient(engineConn, logger)

	// 3. Infrastructure
	clk := clock.NewRealClock()
	comm := committer.NewCommitter(spannerClient)

	// 4. Repositories
	outboxRepo := repo.NewOutboxRepo()
	eventStore := repo.NewEventStore(spannerClient, comm, outboxRepo)
	statusEvents := repo.NewStatusEventsReadModel(spannerClient)

	// 5. Use cases
	sendMessage := send_message.NewInteractor(engineClient, materializer.New(), cfg.WorkspaceDir, logger)
	receiveMessage := receive_message.NewInteractor(eventStore, engineClient, clk)
	cancelMessage := cancel_message.NewInteractor(eventStore, engineClient, clk)
	retrySend := retry_send.NewInteractor(engineClient)

	orch := orchestrator.New(sendMessage, receiveMessage, cancelMessage, retrySend, logger)

	// 6. Queries
	listStatusEvents := list_status_events.NewQuery(statusEvents)

	// 7. HTTP
	handler := httphandler.NewHandler(orch, listStatusEvents, logger)

	return &ServiceOptions{
		SpannerClient: spannerClient,
		EngineConn:    engineConn,
		Engine:        engineClient,
		Orchestrator:  orch,
		HTTPHandler:   otelhttp.NewHandler(handler.Routes(), "mmsd"),
	}, nil
}

// Close releases everything in dependency order. Outstanding engine calls are
// abandoned first so their workspaces are removed before the process exits.
func (s *ServiceOptions) Close() error {
	var errs []error
	if s.Engine != nil {
		s.Engine.Close()
	}
	if s.EngineConn != nil {
		if err := s.EngineConn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close engine connection: %w", err))
		}
	}
	if s.SpannerClient != nil {
		s.SpannerClient.Close()
	}
	return errors.Join(errs...)
}
