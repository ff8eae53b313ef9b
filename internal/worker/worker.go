// Package worker runs blocking jobs away from the reactor goroutine.
package worker

import (
	"context"
	"fmt"

	"deedles.dev/oxyde/internal/cq"
	"deedles.dev/oxyde/internal/debug"
	"github.com/thejerf/suture/v4"
)

// Job is a unit of work. ctx is cancelled when the pool stops.
type Job func(ctx context.Context)

// Pool is a fixed number of workers running under a supervisor. A
// worker whose job panics is restarted. Pool is itself a
// suture.Service.
type Pool struct {
	*suture.Supervisor

	queue *cq.Queue[Job]
	jobs  chan Job
}

// New creates a pool of n workers. It does nothing until it is served.
func New(n int) *Pool {
	p := Pool{
		Supervisor: suture.New("workers", suture.Spec{EventHook: debug.SutureHook}),
		queue:      cq.New[Job](),
		jobs:       make(chan Job),
	}

	p.Add(&dispatcher{queue: p.queue, jobs: p.jobs})
	for i := range max(n, 1) {
		p.Add(&worker{name: fmt.Sprintf("worker-%v", i), jobs: p.jobs})
	}

	return &p
}

// Submit queues a job without blocking. It returns false if the pool
// has been closed.
func (p *Pool) Submit(job Job) bool {
	return p.queue.Post(job)
}

// Close discards queued jobs and refuses new ones.
func (p *Pool) Close() {
	p.queue.Stop()
}

type dispatcher struct {
	queue *cq.Queue[Job]
	jobs  chan<- Job
}

func (d *dispatcher) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.queue.Done():
			return suture.ErrDoNotRestart
		case batch := <-d.queue.Get():
			for _, job := range batch {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case d.jobs <- job:
				}
			}
		}
	}
}

func (d *dispatcher) String() string {
	return "dispatcher"
}

type worker struct {
	name string
	jobs <-chan Job
}

func (w *worker) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-w.jobs:
			job(ctx)
		}
	}
}

func (w *worker) String() string {
	return w.name
}
