package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := New(3)
	errc := p.ServeBackground(ctx)

	var wg sync.WaitGroup
	var m sync.Mutex
	seen := make(map[int]bool)
	for i := range 20 {
		wg.Add(1)
		require.True(t, p.Submit(func(ctx context.Context) {
			defer wg.Done()
			m.Lock()
			defer m.Unlock()
			seen[i] = true
		}))
	}
	wg.Wait()
	assert.Len(t, seen, 20)

	cancel()
	select {
	case <-errc:
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not stop")
	}
}

func TestPoolSurvivesPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := New(1)
	p.ServeBackground(ctx)

	p.Submit(func(ctx context.Context) { panic("job failed") })

	done := make(chan struct{})
	p.Submit(func(ctx context.Context) { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job after panic did not run")
	}
}

func TestClosedPoolRefusesJobs(t *testing.T) {
	p := New(1)
	p.Close()
	assert.False(t, p.Submit(func(ctx context.Context) {}))
}
