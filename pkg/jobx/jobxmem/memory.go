// Package jobxmem is an in-process jobx.Queue. Jobs are lost on restart.
package jobxmem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Abraxas-365/escolar/pkg/jobx"
)

type scheduled struct {
	id    string
	queue string
	at    time.Time
}

// MemoryQueue implements jobx.Queue with maps guarded by a mutex. Dequeue
// waits on a signal channel instead of polling.
type MemoryQueue struct {
	mu        sync.Mutex
	jobs      map[string]*jobx.JobInfo
	ready     map[string][]string
	scheduled []scheduled
	signal    chan struct{}
	now       func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		jobs:   make(map[string]*jobx.JobInfo),
		ready:  make(map[string][]string),
		signal: make(chan struct{}, 1),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (q *MemoryQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job jobx.Job) (string, error) {
	info := jobx.NewJobInfo(uuid.NewString(), job, q.now())

	q.mu.Lock()
	q.jobs[info.ID] = &info
	q.ready[job.Queue] = append(q.ready[job.Queue], info.ID)
	q.mu.Unlock()

	q.notify()
	return info.ID, nil
}

func (q *MemoryQueue) EnqueueDelayed(_ context.Context, job jobx.Job, delay time.Duration) (string, error) {
	now := q.now()
	info := jobx.NewJobInfo(uuid.NewString(), job, now)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[info.ID] = &info
	q.scheduled = append(q.scheduled, scheduled{id: info.ID, queue: job.Queue, at: now.Add(delay)})
	return info.ID, nil
}

// GetJob returns a copy so callers cannot race with workers.
func (q *MemoryQueue) GetJob(_ context.Context, jobID string) (*jobx.JobInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	info, ok := q.jobs[jobID]
	if !ok {
		return nil, jobx.NotFound(jobID)
	}
	cp := *info
	return &cp, nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*jobx.JobInfo, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if info := q.pop(queues); info != nil {
			return info, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-deadline.C:
			return nil, nil
		case <-q.signal:
		}
	}
}

func (q *MemoryQueue) pop(queues []string) *jobx.JobInfo {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, name := range queues {
		ids := q.ready[name]
		if len(ids) == 0 {
			continue
		}
		id := ids[0]
		q.ready[name] = ids[1:]

		info, ok := q.jobs[id]
		if !ok {
			continue
		}
		info.Status = jobx.JobStatusActive
		info.Attempts++
		info.UpdatedAt = q.now()
		cp := *info
		return &cp
	}
	return nil
}

func (q *MemoryQueue) Complete(_ context.Context, jobID string, result []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	info, ok := q.jobs[jobID]
	if !ok {
		return jobx.NotFound(jobID)
	}
	info.Status = jobx.JobStatusCompleted
	info.Result = result
	info.Error = ""
	info.UpdatedAt = q.now()
	return nil
}

func (q *MemoryQueue) Fail(_ context.Context, jobID string, errMsg string, permanent bool) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	info, ok := q.jobs[jobID]
	if !ok {
		return false, jobx.NotFound(jobID)
	}

	retry := !permanent && info.Attempts <= info.MaxRetries
	if retry {
		info.Status = jobx.JobStatusRetrying
	} else {
		info.Status = jobx.JobStatusFailed
	}
	info.Error = errMsg
	info.UpdatedAt = q.now()
	return retry, nil
}

func (q *MemoryQueue) Retry(_ context.Context, jobID string, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	info, ok := q.jobs[jobID]
	if !ok {
		return jobx.NotFound(jobID)
	}
	q.scheduled = append(q.scheduled, scheduled{id: jobID, queue: info.Queue, at: q.now().Add(delay)})
	return nil
}

func (q *MemoryQueue) PromoteScheduled(_ context.Context, queues []string) error {
	wanted := make(map[string]bool, len(queues))
	for _, name := range queues {
		wanted[name] = true
	}

	q.mu.Lock()
	now := q.now()
	kept := q.scheduled[:0]
	promoted := 0
	for _, s := range q.scheduled {
		if wanted[s.queue] && !s.at.After(now) {
			q.ready[s.queue] = append(q.ready[s.queue], s.id)
			promoted++
			continue
		}
		kept = append(kept, s)
	}
	q.scheduled = kept
	q.mu.Unlock()

	if promoted > 0 {
		q.notify()
	}
	return nil
}
