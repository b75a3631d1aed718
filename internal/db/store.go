package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists aggregation run history. The dashboard works without it;
// a nil *Store disables persistence entirely.
type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

type Run struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	TimeRange  string     `json:"time_range"`
	Status     string     `json:"status"`
	Envelope   []byte     `json:"envelope"`
}

// InsertRun records one dashboard build: the criteria range, the outcome,
// and the serialized envelope.
func (s *Store) InsertRun(ctx context.Context, timeRange, status string, envelope []byte, took time.Duration) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO runs (time_range, status, envelope, started_at, finished_at)
		 VALUES ($1, $2, $3, NOW() - make_interval(secs => $4), NOW())`,
		timeRange, status, envelope, took.Seconds())
	return err
}

func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT id, started_at, finished_at, time_range, status, envelope
		 FROM runs ORDER BY started_at DESC LIMIT 1`)
	var run Run
	if err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.TimeRange, &run.Status, &run.Envelope); err != nil {
		return Run{}, err
	}
	return run, nil
}
