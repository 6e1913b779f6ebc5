package api

import (
	"context"

	"lectern/internal/queue"
)

// Page size bounds applied to list requests before they reach the store.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// JobReader abstracts queue persistence interactions needed for API queries.
type JobReader interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	ListPage(ctx context.Context, status queue.Status, offset, limit int) ([]*queue.Job, int, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	GetByID(ctx context.Context, id string) (*queue.Job, error)
}

// JobService exposes read-only job operations returning API DTOs.
type JobService struct {
	store JobReader
}

// NewJobService constructs a JobService around the provided reader.
func NewJobService(store JobReader) *JobService {
	if store == nil {
		return nil
	}
	return &JobService{store: store}
}

// List returns jobs filtered by status.
func (s *JobService) List(ctx context.Context, statuses ...queue.Status) ([]Job, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Page returns one page of jobs, newest first, optionally filtered by status.
// Page numbers start at one; out-of-range inputs are clamped rather than
// rejected so callers can pass query parameters through unvalidated.
func (s *JobService) Page(ctx context.Context, status queue.Status, page, pageSize int) (JobListResponse, error) {
	if s == nil || s.store == nil {
		return JobListResponse{}, nil
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	jobs, total, err := s.store.ListPage(ctx, status, (page-1)*pageSize, pageSize)
	if err != nil {
		return JobListResponse{}, err
	}
	return JobListResponse{
		Jobs:       FromJobs(jobs),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}, nil
}

// Stats returns queue summary counts keyed by status string.
func (s *JobService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}

// Describe fetches a single job.
func (s *JobService) Describe(ctx context.Context, id string) (*Job, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	job, err := s.store.GetByID(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}
