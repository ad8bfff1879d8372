package decay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/zerolog/log"

	"github.com/licenced/internal/licence"
)

// SweepArgs is the job payload for one decay sweep. It carries no data:
// the sweep reads everything it needs from the licences table.
type SweepArgs struct{}

// Kind returns the job kind for River
func (SweepArgs) Kind() string { return "licence_decay_sweep" }

// SweepWorker runs the reconciling decay sweep.
type SweepWorker struct {
	river.WorkerDefaults[SweepArgs]
	svc *licence.Service
}

func NewSweepWorker(svc *licence.Service) *SweepWorker {
	return &SweepWorker{svc: svc}
}

func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepArgs]) error {
	runID := uuid.NewString()
	affected, err := w.svc.RunDecay(ctx, time.Now())
	if err != nil {
		// Not fatal to the host: River retries, and the next scheduled
		// run reconciles whatever this one missed.
		log.Error().Err(err).Str("run_id", runID).Msg("decay sweep failed")
		return err
	}
	log.Info().Str("run_id", runID).Int64("grants_decayed", affected).Msg("decay sweep complete")
	return nil
}

// midnightSchedule fires at the next midnight in its location.
type midnightSchedule struct {
	loc *time.Location
}

func (s midnightSchedule) Next(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, s.loc)
}

// Queue manages the River client running the periodic decay sweep.
type Queue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
}

// NewQueue connects to databaseURL, applies River's schema migrations
// and registers the periodic sweep job. Call Start to begin processing.
func NewQueue(databaseURL string, svc *licence.Service, cfg *QueueConfig) (*Queue, error) {
	if cfg == nil {
		cfg = DefaultQueueConfig()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve decay timezone: %w", err)
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(context.Background(), rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply river migrations: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewSweepWorker(svc))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers:    workers,
		JobTimeout: cfg.JobTimeout,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				midnightSchedule{loc: loc},
				func() (river.JobArgs, *river.InsertOpts) {
					return SweepArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: cfg.RunOnStart},
			),
		},
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &Queue{client: client, pool: pool}, nil
}

// Start starts the job queue workers and the periodic schedule.
func (q *Queue) Start(ctx context.Context) error {
	return q.client.Start(ctx)
}

// Stop drains the workers and closes the connection pool.
func (q *Queue) Stop(ctx context.Context) error {
	err := q.client.Stop(ctx)
	q.pool.Close()
	return err
}
