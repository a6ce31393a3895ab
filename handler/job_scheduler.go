// Package handler wires the HTTP surface and the background job scheduler.
package handler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one scheduled background task.
type Job struct {
	Name     string
	Interval time.Duration
	RunFunc  func(ctx context.Context) error

	mu        sync.Mutex
	lastRun   time.Time
	lastError string
	runCount  int64
}

// JobStatus is the externally visible state of one job.
type JobStatus struct {
	Name      string    `json:"name"`
	Interval  string    `json:"interval"`
	LastRun   time.Time `json:"lastRun"`
	LastError string    `json:"lastError,omitempty"`
	RunCount  int64     `json:"runCount"`
}

// JobScheduler runs each registered job on its own ticker. Every job also
// runs once immediately at start so a fresh deployment does not wait a full
// interval for its first ingestion.
type JobScheduler struct {
	jobs   []*Job
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewJobScheduler(logger *slog.Logger) *JobScheduler {
	return &JobScheduler{logger: logger}
}

func (s *JobScheduler) AddJob(job *Job) {
	s.jobs = append(s.jobs, job)
}

// Start launches the job loops. They stop when ctx is cancelled.
func (s *JobScheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)

		go func(job *Job) {
			defer s.wg.Done()
			s.runLoop(ctx, job)
		}(job)
	}

	s.logger.Info("job scheduler started", "jobs", len(s.jobs))
}

// Wait blocks until every job loop has exited.
func (s *JobScheduler) Wait() {
	s.wg.Wait()
}

func (s *JobScheduler) runLoop(ctx context.Context, job *Job) {
	s.runJob(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("job loop stopped", "job", job.Name)
			return
		case <-ticker.C:
			s.runJob(ctx, job)
		}
	}
}

func (s *JobScheduler) runJob(ctx context.Context, job *Job) {
	start := time.Now()
	err := job.RunFunc(ctx)

	job.mu.Lock()
	job.lastRun = start
	job.runCount++
	if err != nil {
		job.lastError = err.Error()
	} else {
		job.lastError = ""
	}
	job.mu.Unlock()

	if err != nil {
		s.logger.Error("job run failed",
			"job", job.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return
	}

	s.logger.Info("job run finished",
		"job", job.Name,
		"duration_ms", time.Since(start).Milliseconds())
}

// GetJobStatus snapshots every job's state.
func (s *JobScheduler) GetJobStatus() []JobStatus {
	statuses := make([]JobStatus, 0, len(s.jobs))

	for _, job := range s.jobs {
		job.mu.Lock()
		statuses = append(statuses, JobStatus{
			Name:      job.Name,
			Interval:  job.Interval.String(),
			LastRun:   job.lastRun,
			LastError: job.lastError,
			RunCount:  job.runCount,
		})
		job.mu.Unlock()
	}

	return statuses
}
