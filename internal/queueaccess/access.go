// Package queueaccess gives CLI commands one queue surface whether the
// daemon is running or not. The IPC-backed implementation proxies every
// call to the daemon; the store-backed fallback reads the queue database
// directly and rejects mutations, since only the daemon owns locking,
// artifact cleanup, and notifications.
package queueaccess

import (
	"context"
	"errors"
	"fmt"

	"lectern/internal/api"
	"lectern/internal/ipc"
	"lectern/internal/queue"
)

// ErrDaemonRequired marks operations that only the daemon may perform.
var ErrDaemonRequired = errors.New("daemon not running; start it with 'lectern daemon start'")

// Access provides queue operations regardless of IPC or direct store backing.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]api.Job, error)
	Describe(ctx context.Context, id string) (*api.Job, error)
	Retry(ctx context.Context, ids []string) (int64, []api.RetryJobResult, error)
	Stop(ctx context.Context, ids []string) (int64, []api.StopJobResult, error)
	Remove(ctx context.Context, ids []string) (int64, []api.RemoveJobResult, error)
	Submit(ctx context.Context, path string) (*api.Job, error)
	QueueHealth(ctx context.Context) (queue.HealthSummary, error)
	DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error)
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns a read-only Access backed by direct database access.
func NewStoreAccess(store *queue.Store) Access {
	return &storeAccess{store: store, service: api.NewJobService(store)}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) Stats(_ context.Context) (map[string]int, error) {
	resp, err := a.client.Status()
	if err != nil {
		return nil, err
	}
	return resp.QueueStats, nil
}

func (a *ipcAccess) List(_ context.Context, statuses []string) ([]api.Job, error) {
	resp, err := a.client.JobList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (a *ipcAccess) Describe(_ context.Context, id string) (*api.Job, error) {
	resp, err := a.client.JobDescribe(id)
	if err != nil {
		return nil, err
	}
	job := resp.Job
	return &job, nil
}

func (a *ipcAccess) Retry(_ context.Context, ids []string) (int64, []api.RetryJobResult, error) {
	resp, err := a.client.JobRetry(ids)
	if err != nil {
		return 0, nil, err
	}
	return resp.Updated, resp.Outcomes, nil
}

func (a *ipcAccess) Stop(_ context.Context, ids []string) (int64, []api.StopJobResult, error) {
	resp, err := a.client.JobStop(ids)
	if err != nil {
		return 0, nil, err
	}
	return resp.Updated, resp.Outcomes, nil
}

func (a *ipcAccess) Remove(_ context.Context, ids []string) (int64, []api.RemoveJobResult, error) {
	resp, err := a.client.JobRemove(ids)
	if err != nil {
		return 0, nil, err
	}
	return resp.Removed, resp.Outcomes, nil
}

func (a *ipcAccess) Submit(_ context.Context, path string) (*api.Job, error) {
	resp, err := a.client.SubmitFile(path)
	if err != nil {
		return nil, err
	}
	job := resp.Job
	return &job, nil
}

func (a *ipcAccess) QueueHealth(_ context.Context) (queue.HealthSummary, error) {
	resp, err := a.client.QueueHealth()
	if err != nil {
		return queue.HealthSummary{}, err
	}
	return queue.HealthSummary{
		Total:      resp.Total,
		Pending:    resp.Pending,
		Processing: resp.Processing,
		Completed:  resp.Completed,
		Failed:     resp.Failed,
		Cancelled:  resp.Cancelled,
	}, nil
}

func (a *ipcAccess) DatabaseHealth(_ context.Context) (queue.DatabaseHealth, error) {
	resp, err := a.client.DatabaseHealth()
	if err != nil {
		return queue.DatabaseHealth{}, err
	}
	return queue.DatabaseHealth{
		DBPath:           resp.DBPath,
		DatabaseExists:   resp.DatabaseExists,
		DatabaseReadable: resp.DatabaseReadable,
		SchemaVersion:    resp.SchemaVersion,
		TableExists:      resp.TableExists,
		ColumnsPresent:   resp.ColumnsPresent,
		MissingColumns:   resp.MissingColumns,
		IntegrityCheck:   resp.IntegrityCheck,
		TotalJobs:        resp.TotalJobs,
		Error:            resp.Error,
	}, nil
}

type storeAccess struct {
	store   *queue.Store
	service *api.JobService
}

func (a *storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Stats(ctx)
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]api.Job, error) {
	var filters []queue.Status
	for _, s := range statuses {
		if parsed, ok := queue.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}
	return a.service.List(ctx, filters...)
}

func (a *storeAccess) Describe(ctx context.Context, id string) (*api.Job, error) {
	job, err := a.service.Describe(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s not found", id)
	}
	return job, nil
}

func (a *storeAccess) Retry(context.Context, []string) (int64, []api.RetryJobResult, error) {
	return 0, nil, ErrDaemonRequired
}

func (a *storeAccess) Stop(context.Context, []string) (int64, []api.StopJobResult, error) {
	return 0, nil, ErrDaemonRequired
}

func (a *storeAccess) Remove(context.Context, []string) (int64, []api.RemoveJobResult, error) {
	return 0, nil, ErrDaemonRequired
}

func (a *storeAccess) Submit(context.Context, string) (*api.Job, error) {
	return nil, ErrDaemonRequired
}

func (a *storeAccess) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return a.store.Health(ctx)
}

func (a *storeAccess) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return a.store.CheckHealth(ctx)
}
