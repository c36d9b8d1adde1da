package jobx_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/jobx"
	"github.com/Abraxas-365/escolar/pkg/jobx/jobxmem"
)

func newClient(q jobx.Queue) *jobx.Client {
	return jobx.NewClient(q,
		jobx.WithQueues("ocr"),
		jobx.WithDefaultRetryDelay(0),
		jobx.WithDequeueTimeout(10*time.Millisecond),
		jobx.WithPollInterval(5*time.Millisecond),
	)
}

// drain dequeues and processes jobs until the queue stays empty.
func drain(t *testing.T, ctx context.Context, q *jobxmem.MemoryQueue, c *jobx.Client) {
	t.Helper()
	for range 20 {
		require.NoError(t, q.PromoteScheduled(ctx, []string{"ocr"}))
		job, err := q.Dequeue(ctx, []string{"ocr"}, time.Millisecond)
		require.NoError(t, err)
		if job == nil {
			return
		}
		c.ProcessJob(ctx, job)
	}
}

func TestClient_CompletesWithResult(t *testing.T) {
	ctx := context.Background()
	q := jobxmem.NewMemoryQueue()
	c := newClient(q)
	c.Register("echo", func(_ context.Context, job *jobx.JobInfo) ([]byte, error) {
		return job.Payload, nil
	})

	id, err := c.Enqueue(ctx, jobx.Job{Type: "echo", Payload: json.RawMessage(`{"a":1}`), Owner: "u1"})
	require.NoError(t, err)

	drain(t, ctx, q, c)

	info, err := c.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobx.JobStatusCompleted, info.Status)
	assert.JSONEq(t, `{"a":1}`, string(info.Result))
	assert.Equal(t, "ocr", info.Queue)
	assert.Equal(t, "u1", info.Owner)
	assert.Equal(t, 1, info.Attempts)
}

func TestClient_RetriesThenFails(t *testing.T) {
	ctx := context.Background()
	q := jobxmem.NewMemoryQueue()
	c := newClient(q)

	calls := 0
	c.Register("flaky", func(context.Context, *jobx.JobInfo) ([]byte, error) {
		calls++
		return nil, errors.New("engine down")
	})

	id, err := c.Enqueue(ctx, jobx.Job{Type: "flaky", MaxRetries: 2})
	require.NoError(t, err)

	drain(t, ctx, q, c)

	info, err := c.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobx.JobStatusFailed, info.Status)
	assert.Equal(t, "engine down", info.Error)
	assert.Equal(t, 3, calls)
}

func TestClient_PermanentErrorSkipsRetry(t *testing.T) {
	ctx := context.Background()
	q := jobxmem.NewMemoryQueue()
	c := newClient(q)

	calls := 0
	c.Register("bad", func(context.Context, *jobx.JobInfo) ([]byte, error) {
		calls++
		return nil, jobx.Permanent(errors.New("invalid payload"))
	})

	id, err := c.Enqueue(ctx, jobx.Job{Type: "bad", MaxRetries: 5})
	require.NoError(t, err)

	drain(t, ctx, q, c)

	info, _ := c.GetJob(ctx, id)
	assert.Equal(t, jobx.JobStatusFailed, info.Status)
	assert.Equal(t, 1, calls)
}

func TestClient_HandlerPanicFailsJob(t *testing.T) {
	ctx := context.Background()
	q := jobxmem.NewMemoryQueue()
	c := newClient(q)
	c.Register("boom", func(context.Context, *jobx.JobInfo) ([]byte, error) {
		panic("nil map")
	})

	id, err := c.Enqueue(ctx, jobx.Job{Type: "boom"})
	require.NoError(t, err)

	drain(t, ctx, q, c)

	info, _ := c.GetJob(ctx, id)
	assert.Equal(t, jobx.JobStatusFailed, info.Status)
	assert.Contains(t, info.Error, "nil map")
}

func TestClient_UnknownTypeFails(t *testing.T) {
	ctx := context.Background()
	q := jobxmem.NewMemoryQueue()
	c := newClient(q)

	id, err := c.Enqueue(ctx, jobx.Job{Type: "nobody"})
	require.NoError(t, err)
	drain(t, ctx, q, c)

	info, _ := c.GetJob(ctx, id)
	assert.Equal(t, jobx.JobStatusFailed, info.Status)
}

func TestClient_EnqueueValidation(t *testing.T) {
	_, err := newClient(jobxmem.NewMemoryQueue()).Enqueue(context.Background(), jobx.Job{})
	assert.True(t, errx.IsCode(err, jobx.ErrInvalidJob))
}

func TestClient_GetJobNotFound(t *testing.T) {
	_, err := newClient(jobxmem.NewMemoryQueue()).GetJob(context.Background(), "nope")
	assert.True(t, errx.IsCode(err, jobx.ErrJobNotFound))
}

func TestClient_StartProcessesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := jobxmem.NewMemoryQueue()
	c := newClient(q)
	done := make(chan struct{})
	c.Register("ping", func(context.Context, *jobx.JobInfo) ([]byte, error) {
		close(done)
		return []byte(`"pong"`), nil
	})

	stopped := make(chan error, 1)
	go func() { stopped <- c.Start(ctx) }()

	_, err := c.Enqueue(ctx, jobx.Job{Type: "ping"})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}

	cancel()
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
