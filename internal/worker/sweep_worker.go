package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-scheduler/internal/config"
	"github.com/spec-kit/ticket-scheduler/internal/domain"
	"github.com/spec-kit/ticket-scheduler/internal/scheduler"
	apperrors "github.com/spec-kit/ticket-scheduler/pkg/util"
)

// AutoAssigner is the scheduler surface the sweep needs.
type AutoAssigner interface {
	AutoAssign(ctx context.Context, ticketID string) (scheduler.Decision, error)
}

// UnassignedLister lists open tickets without an owner.
type UnassignedLister interface {
	ListUnassigned(ctx context.Context, limit int) ([]domain.Ticket, error)
}

// SweepWorker periodically re-triggers auto-assignment for orphaned tickets:
// ones created while no agent was eligible, or whose trigger was lost.
type SweepWorker struct {
	assigner AutoAssigner
	tickets  UnassignedLister
	cfg      config.SchedulerConfig
	logger   *zap.Logger
	cron     *cron.Cron
}

// NewSweepWorker creates the worker; call Start to begin sweeping.
func NewSweepWorker(assigner AutoAssigner, tickets UnassignedLister, cfg config.SchedulerConfig, logger *zap.Logger) *SweepWorker {
	return &SweepWorker{
		assigner: assigner,
		tickets:  tickets,
		cfg:      cfg,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start schedules the recurring sweep.
func (w *SweepWorker) Start() error {
	if !w.cfg.SweepEnabled {
		w.logger.Info("orphan sweep disabled")
		return nil
	}
	spec := fmt.Sprintf("@every %s", w.cfg.SweepInterval())
	if _, err := w.cron.AddFunc(spec, w.Sweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	w.cron.Start()
	w.logger.Info("orphan sweep scheduled", zap.Duration("interval", w.cfg.SweepInterval()))
	return nil
}

// Stop halts the cron loop, waiting for a running sweep to finish.
func (w *SweepWorker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
}

// Sweep runs one pass over unassigned open tickets. Per-ticket failures are
// logged and do not stop the pass; a transient store failure aborts it, the
// next tick retries.
func (w *SweepWorker) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	orphans, err := w.tickets.ListUnassigned(ctx, w.cfg.SweepBatchSize)
	if err != nil {
		w.logger.Warn("sweep: listing unassigned tickets failed", zap.Error(err))
		return
	}
	if len(orphans) == 0 {
		return
	}

	assigned, unfilled := 0, 0
	for _, ticket := range orphans {
		decision, err := w.assigner.AutoAssign(ctx, ticket.ID)
		switch {
		case err == nil && decision.Assigned:
			assigned++
		case err == nil:
			unfilled++
		case apperrors.IsTransient(err):
			w.logger.Warn("sweep aborted; store unreachable", zap.Error(err))
			return
		default:
			w.logger.Warn("sweep: assignment failed",
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
		}
	}
	w.logger.Info("sweep complete",
		zap.Int("orphans", len(orphans)),
		zap.Int("assigned", assigned),
		zap.Int("unfilled", unfilled))
}
