package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"hrcrm/internal/platform/metrics"
	"hrcrm/internal/platform/querier"
)

const (
	JobTimeEntryAutoClose = "time_entry_autoclose"
	JobLeaveRollover      = "leave_rollover"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var ErrUnknownJob = errors.New("unknown job type")

// RunFunc performs one job run and returns details persisted with the run.
type RunFunc func(context.Context) (any, error)

type definition struct {
	interval time.Duration
	run      RunFunc
}

type Service struct {
	DB      querier.Querier
	Metrics *metrics.Collector

	mu    sync.RWMutex
	defs  map[string]definition
	queue chan job
}

type job struct {
	Type string
	Run  RunFunc
}

type Run struct {
	ID          string          `json:"id"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

func New(db querier.Querier, collector *metrics.Collector) *Service {
	return &Service{
		DB:      db,
		Metrics: collector,
		defs:    map[string]definition{},
		queue:   make(chan job, 128),
	}
}

// Register adds a job type. A zero interval registers it for manual triggering only.
func (s *Service) Register(jobType string, interval time.Duration, run RunFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs[jobType] = definition{interval: interval, run: run}
}

func (s *Service) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.defs))
	for t := range s.defs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for jobType, def := range s.defs {
		if def.interval > 0 {
			go s.schedule(ctx, jobType, def)
		}
	}
}

func (s *Service) Enqueue(jobType string, run RunFunc) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

// Trigger runs a registered job synchronously.
func (s *Service) Trigger(ctx context.Context, jobType string) (any, error) {
	s.mu.RLock()
	def, ok := s.defs[jobType]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownJob
	}
	return s.RunNow(ctx, jobType, def.run)
}

func (s *Service) RunNow(ctx context.Context, jobType string, run RunFunc) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.DB != nil {
		if err := s.DB.QueryRow(ctx, `
      INSERT INTO job_runs (job_type, status)
      VALUES ($1,$2)
      RETURNING id
    `, j.Type, StatusRunning).Scan(&runID); err != nil {
			slog.Warn("job run insert failed", "err", err)
		}
	}

	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}
	s.Metrics.RecordJob(j.Type, status)

	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) schedule(ctx context.Context, jobType string, def definition) {
	ticker := time.NewTicker(def.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(jobType, def.run)
		}
	}
}

func (s *Service) ListRuns(ctx context.Context, jobType string, limit int) ([]Run, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, job_type, status, details_json, started_at, completed_at
    FROM job_runs
    WHERE ($1 = '' OR job_type = $1)
    ORDER BY started_at DESC
    LIMIT $2
  `, jobType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Run{}
	for rows.Next() {
		var r Run
		var details []byte
		if err := rows.Scan(&r.ID, &r.JobType, &r.Status, &details, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			r.Details = details
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
