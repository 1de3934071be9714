package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/weft/internal/analysis"
	"github.com/randalmurphal/weft/internal/client"
	"github.com/randalmurphal/weft/internal/config"
	"github.com/randalmurphal/weft/internal/events"
	"github.com/randalmurphal/weft/internal/reconcile"
	"github.com/randalmurphal/weft/internal/store"
	"github.com/randalmurphal/weft/internal/stream"
)

// newWatchCmd creates the watch command.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Mirror a workspace and print activity as it arrives",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng := newEngine(cfg, logger)
			defer eng.Close()

			if err := eng.prime(ctx); err != nil {
				// A failed initial fetch is not fatal: the mirror starts
				// empty and fills in as the stream and later fetches land.
				logger.Warn("initial fetch incomplete", "error", err)
			}

			feed := eng.publisher.Subscribe(events.GlobalMissionID)
			go func() {
				for change := range feed {
					fmt.Printf("%s  %-14s mission=%s entity=%s\n",
						change.Time.Format("15:04:05"), change.Type, change.MissionID, change.EntityID)
				}
			}()

			logger.Info("watching workspace", "workspace", cfg.WorkspaceID, "backend", cfg.BackendURL)
			err = eng.consumer.Run(ctx)
			eng.workflows.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}

// engine bundles the wired sync components for one workspace.
type engine struct {
	publisher  *events.MemoryPublisher
	workflows  *store.WorkflowStore
	questions  *store.QuestionStore
	timeline   *store.TimelineStore
	correlator *analysis.Correlator
	reconciler *reconcile.Reconciler
	consumer   *stream.Consumer
	cfg        *config.Config
}

// newEngine wires the full client-side stack from config: REST client,
// publisher, stores, correlator, reconciler, and stream consumer.
func newEngine(cfg *config.Config, logger *slog.Logger) *engine {
	api := client.New(cfg.BackendURL)
	pub := events.NewMemoryPublisher()

	workflows := store.NewWorkflowStore(cfg.WorkspaceID, api, pub, logger)
	questions := store.NewQuestionStore(pub, logger)
	timeline := store.NewTimelineStore(pub)
	correlator := analysis.NewCorrelator(api, workflows, questions, pub, logger)
	reconciler := reconcile.New(workflows, questions, timeline, correlator, logger)
	consumer := stream.New(cfg.EventsURL, cfg.WorkspaceID, reconciler, logger,
		stream.WithReconnectDelay(cfg.ReconnectDelay))

	return &engine{
		publisher:  pub,
		workflows:  workflows,
		questions:  questions,
		timeline:   timeline,
		correlator: correlator,
		reconciler: reconciler,
		consumer:   consumer,
		cfg:        cfg,
	}
}

// prime loads the initial snapshot: all missions, then each mission's
// todos. Partial failure returns the first error but keeps whatever
// did load.
func (e *engine) prime(ctx context.Context) error {
	fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	if err := e.workflows.FetchMissions(fctx); err != nil {
		return err
	}
	var firstErr error
	for _, m := range e.workflows.Missions() {
		if err := e.workflows.FetchTodos(fctx, m.ID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close settles in-flight commands and tears down the change feed.
func (e *engine) Close() {
	e.workflows.Wait()
	e.publisher.Close()
}
