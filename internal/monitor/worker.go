package monitor

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/tagwatch/tagwatch/internal/database/types"
	"github.com/tagwatch/tagwatch/internal/metrics"
	"github.com/tagwatch/tagwatch/internal/pool"
	"go.uber.org/zap"
)

// Worker is one polling engine instance. It owns a run state and the current
// session-bound client, and cycles through active campaigns until its context
// is cancelled.
type Worker struct {
	stores   Stores
	sessions SessionPool
	reporter TaskReporter
	metrics  *metrics.Collector
	config   Config
	state    *pool.State
	client   SearchClient
	logger   *zap.Logger
}

// NewWorker creates a polling worker. The reporter may be nil.
func NewWorker(
	stores Stores, sessions SessionPool, reporter TaskReporter,
	collector *metrics.Collector, config Config, logger *zap.Logger,
) *Worker {
	return &Worker{
		stores:   stores,
		sessions: sessions,
		reporter: reporter,
		metrics:  collector,
		config:   config,
		state:    pool.NewState(),
		logger:   logger.Named("monitor"),
	}
}

// Start runs the polling loop until ctx is cancelled. A failed cycle moves
// the worker into recovery: it cools down, drops the current client so the
// next cycle rebuilds the pool from scratch, and resumes.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Monitor worker started",
		zap.Duration("pollInterval", w.config.PollInterval))

	for {
		if ctx.Err() != nil {
			w.logger.Info("Monitor worker stopped")
			return
		}

		start := time.Now()

		if err := w.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Monitor worker stopped")
				return
			}

			w.setHealthy(false)
			w.logger.Error("Cycle failed, entering recovery",
				zap.Duration("cooldown", w.config.RecoveryCooldown),
				zap.Error(err))

			if sleepCtx(ctx, w.config.RecoveryCooldown) != nil {
				return
			}

			w.client = nil

			continue
		}

		w.setHealthy(true)
		w.metrics.CyclesCompleted.Inc()

		if sleepCtx(ctx, cycleSleep(w.config.PollInterval, time.Since(start))) != nil {
			return
		}
	}
}

// runCycle is one full pass: account fleet check, pool acquisition if needed,
// the campaign sweep, and the failed-account retry pass.
func (w *Worker) runCycle(ctx context.Context) error {
	w.updateTask("Checking account fleet")

	if err := w.checkNewAccounts(ctx); err != nil {
		return err
	}

	if w.client == nil {
		client, err := w.sessions.Acquire(ctx, w.state, pool.AcquireOptions{})
		if err != nil {
			return fmt.Errorf("failed to acquire session pool: %w", err)
		}

		w.client = client
	}

	campaigns, err := w.stores.Campaigns.GetActive(ctx)
	if err != nil {
		return err
	}

	for _, campaign := range campaigns {
		if !w.assignedCampaign(campaign.ID) {
			continue
		}

		w.updateTask("Monitoring campaign " + campaign.Name)

		if err := w.runCampaign(ctx, campaign); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			w.metrics.CampaignFailures.Inc()
			w.logger.Error("Campaign cycle failed",
				zap.String("campaign", campaign.Name),
				zap.Error(err))
		}
	}

	w.retryFailedAccounts(ctx)

	return nil
}

// runCampaign processes one campaign end to end. Errors and panics are
// contained here so sibling campaigns still run.
func (w *Worker) runCampaign(ctx context.Context, campaign *types.Campaign) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("campaign panicked: %v", r)
		}
	}()

	if err := w.ingestCampaign(ctx, campaign); err != nil {
		return err
	}

	if _, err := w.flagAuthors(ctx, campaign); err != nil {
		return err
	}

	if _, err := w.detectSurges(ctx, campaign); err != nil {
		return err
	}

	return nil
}

// checkNewAccounts rebuilds the pool when accounts were enrolled since the
// last check, clearing the run state so previously burned accounts get a
// fresh chance alongside the new ones.
func (w *Worker) checkNewAccounts(ctx context.Context) error {
	count, err := w.stores.Accounts.CountAddedSince(ctx, w.state.LastAccountCheck())
	if err != nil {
		return err
	}

	w.state.TouchAccountCheck()

	if count == 0 {
		return nil
	}

	w.logger.Info("New accounts enrolled, rebuilding pool",
		zap.Int("newAccounts", count))

	w.state.ClearFailed()
	w.state.ClearUsed()

	client, err := w.sessions.Acquire(ctx, w.state, pool.AcquireOptions{})
	if err != nil {
		return fmt.Errorf("failed to rebuild pool for new accounts: %w", err)
	}

	w.client = client

	return nil
}

// retryFailedAccounts gives accounts that failed earlier in the run another
// login attempt by acquiring a pool that tries them first. The used set is
// cleared with the failed set so accounts rotated out for capacity become
// eligible again next rotation. A failed retry pass never fails the cycle;
// the current client stays in place.
func (w *Worker) retryFailedAccounts(ctx context.Context) {
	if w.state.FailedCount() == 0 {
		return
	}

	w.updateTask("Retrying failed accounts")

	client, err := w.sessions.Acquire(ctx, w.state, pool.AcquireOptions{
		Prefer: w.state.Failed(),
	})
	if err != nil {
		w.logger.Warn("Failed-account retry pass could not acquire a pool",
			zap.Error(err))
		return
	}

	w.client = client
	w.state.ClearFailed()
	w.state.ClearUsed()
}

// assignedCampaign reports whether this worker owns the campaign under the
// fan-out partition. Campaigns hash stably onto worker indexes so two workers
// never double-process the same flagging window.
func (w *Worker) assignedCampaign(id uuid.UUID) bool {
	if w.config.WorkerCount <= 1 {
		return true
	}

	h := fnv.New32a()
	h.Write(id[:])

	return int(h.Sum32()%uint32(w.config.WorkerCount)) == w.config.WorkerIndex
}

func (w *Worker) updateTask(task string) {
	if w.reporter != nil {
		w.reporter.UpdateTask(task)
	}
}

func (w *Worker) setHealthy(healthy bool) {
	if w.reporter != nil {
		w.reporter.SetHealthy(healthy)
	}
}

// cycleSleep returns how long to wait before the next cycle so cycle starts
// land pollInterval apart, never negative when a cycle overran.
func cycleSleep(pollInterval, elapsed time.Duration) time.Duration {
	remaining := pollInterval - elapsed
	if remaining < 0 {
		return 0
	}

	return remaining
}

// sleepCtx waits for the duration unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
