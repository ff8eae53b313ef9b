package cq

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueBatchesInOrder(t *testing.T) {
	q := New[int]()
	defer q.Stop()

	for i := range 10 {
		require.True(t, q.Post(i))
	}

	var got []int
	for len(got) < 10 {
		select {
		case batch := <-q.Get():
			require.NotEmpty(t, batch)
			got = append(got, batch...)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for batch")
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := New[int]()
	defer q.Stop()

	var wg sync.WaitGroup
	for p := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				q.Post(p*1000 + i)
			}
		}()
	}

	seen := make(map[int]struct{})
	timeout := time.After(5 * time.Second)
	for len(seen) < 400 {
		select {
		case batch := <-q.Get():
			for _, v := range batch {
				seen[v] = struct{}{}
			}
		case <-timeout:
			t.Fatalf("only received %v values", len(seen))
		}
	}
	wg.Wait()
}

func TestPostAfterStop(t *testing.T) {
	q := New[int]()
	q.Stop()
	assert.False(t, q.Post(1))

	select {
	case <-q.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestFlush(t *testing.T) {
	var calls []int
	errs := Flush([]func() error{
		func() error { calls = append(calls, 1); return nil },
		func() error { calls = append(calls, 2); return errors.New("two") },
		func() error { calls = append(calls, 3); return nil },
	})
	assert.Equal(t, []int{1, 2, 3}, calls)
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "two")
}
