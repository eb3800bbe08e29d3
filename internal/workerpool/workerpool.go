// Package workerpool runs a bounded number of goroutines draining a shared
// task queue, supervised by a tomb so callers can wait for a clean shutdown.
package workerpool

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const defaultTaskChanSize = 100

// Func is the unit of work a Pool runs for each task. Returning a non-nil
// error kills the owning tomb, stopping every other worker in the pool.
type Func func(t *tomb.Tomb, task any) error

// Pool maintains n workers pulling tasks off a shared channel.
type Pool struct {
	n     int
	tasks chan any
}

// New builds a Pool with room for defaultTaskChanSize queued tasks before
// AddTask blocks.
func New(size int) Pool {
	return Pool{
		n:     size,
		tasks: make(chan any, defaultTaskChanSize),
	}
}

// AddTask enqueues a task for the next free worker.
func (p *Pool) AddTask(task any) {
	p.tasks <- task
}

// Setup launches the full complement of workers under t and blocks until t
// starts dying. Each worker runs for the tomb's whole lifetime, pulling
// tasks off the shared channel as they arrive rather than being respawned
// per task.
func (p *Pool) Setup(t *tomb.Tomb, work Func) {
	log.Info().Int("workers", p.n).Msg("workerpool starting")
	for i := 0; i < p.n; i++ {
		t.Go(func() error {
			return p.worker(t, work)
		})
	}
	<-t.Dying()
}

// worker pulls tasks off the shared channel and runs them one at a time
// until t starts dying.
func (p *Pool) worker(t *tomb.Tomb, work Func) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			if err := work(t, task); err != nil {
				log.Error().Err(err).Msg("worker exiting")
				return err
			}
		}
	}
}
