// Package jobs runs background work triggered by webhook events: changelog
// video generation for merged pull requests and manual trigger commands.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/reelforge/hookrelay/internal/core"
)

// Dispatcher implements core.Dispatcher and manages a pool of worker
// goroutines consuming trigger requests.
type Dispatcher struct {
	job        core.Job                  // Job implementation executed by each worker.
	queue      chan *core.TriggerRequest // Queue of incoming trigger requests.
	maxWorkers int                       // Number of concurrent workers.
	wg         sync.WaitGroup            // Tracks active workers for graceful shutdown.
	logger     *slog.Logger
}

// NewDispatcher initializes a dispatcher with a worker pool.
// If maxWorkers is 0 or negative, it defaults to 1.
func NewDispatcher(job core.Job, maxWorkers int, logger *slog.Logger) *Dispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	d := &Dispatcher{
		job:        job,
		maxWorkers: maxWorkers,
		queue:      make(chan *core.TriggerRequest, 100),
		logger:     logger,
	}
	d.startWorkers()
	return d
}

// startWorkers launches maxWorkers goroutines to process requests from the queue.
func (d *Dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

// startWorker processes requests from the queue until it's closed.
func (d *Dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Info("starting generation worker", "id", workerID)

	for req := range d.queue {
		d.processRequest(workerID, req)
	}

	d.logger.Info("shutting down generation worker", "id", workerID)
}

func (d *Dispatcher) processRequest(workerID int, req *core.TriggerRequest) {
	d.logger.Info("worker processing trigger", "worker_id", workerID, "trigger", describe(req))

	if err := d.job.Run(context.Background(), req); err != nil {
		d.logger.Error("generation job failed", "trigger", describe(req), "error", err)
	}
}

// Dispatch queues a trigger request for processing by a worker.
func (d *Dispatcher) Dispatch(_ context.Context, req *core.TriggerRequest) error {
	d.logger.Info("queuing trigger request", "trigger", describe(req))

	select {
	case d.queue <- req:
		return nil
	default:
		return fmt.Errorf("job queue is full, cannot accept new trigger request")
	}
}

// Stop gracefully shuts down the dispatcher, waiting for all workers to finish.
func (d *Dispatcher) Stop() {
	d.logger.Info("stopping dispatcher and waiting for jobs to finish")
	close(d.queue)
	d.wg.Wait()
	d.logger.Info("all generation jobs have finished")
}

func describe(req *core.TriggerRequest) string {
	switch {
	case req.Entry != nil:
		return fmt.Sprintf("changelog %s#%d", req.Entry.RepoFullName, req.Entry.PRNumber)
	case req.Command != nil:
		return fmt.Sprintf("command %s", req.Command.Kind)
	default:
		return "empty"
	}
}
