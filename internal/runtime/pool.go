package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// worker pulls events off its own channel and runs them through the router.
// Each worker registers its channel with the shared pool between events, so
// the dispatcher always hands an event to an idle worker.
type worker struct {
	id         int
	workerPool chan chan Event
	events     chan Event
	quit       chan struct{}
	router     *Router
	log        *logrus.Logger
	wg         *sync.WaitGroup
}

func newWorker(id int, pool chan chan Event, router *Router, log *logrus.Logger, wg *sync.WaitGroup) *worker {
	return &worker{
		id:         id,
		workerPool: pool,
		events:     make(chan Event),
		quit:       make(chan struct{}),
		router:     router,
		log:        log,
		wg:         wg,
	}
}

func (w *worker) start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			w.workerPool <- w.events

			select {
			case evt := <-w.events:
				entry := w.log.WithFields(logrus.Fields{
					"worker": w.id,
					"event":  evt.Name,
					"run_id": evt.ID,
				})
				entry.Info("Worker picked up event")
				if _, err := w.router.Handle(ctx, evt); err != nil {
					entry.WithError(err).Error("Event processing failed")
				} else {
					entry.Info("Event processed")
				}
			case <-w.quit:
				return
			}
		}
	}()
}

func (w *worker) stop() {
	close(w.quit)
}

// Dispatcher fans incoming events out to a fixed pool of workers. Concurrency
// exists only across runs; a single run is always one worker executing steps
// in order.
type Dispatcher struct {
	maxWorkers int
	workerPool chan chan Event
	queue      chan Event
	workers    []*worker
	router     *Router
	log        *logrus.Logger
	wg         sync.WaitGroup
	quit       chan struct{}
}

// NewDispatcher creates a Dispatcher for the router with the given worker
// count and queue capacity.
func NewDispatcher(router *Router, log *logrus.Logger, maxWorkers, queueSize int) *Dispatcher {
	return &Dispatcher{
		maxWorkers: maxWorkers,
		workerPool: make(chan chan Event, maxWorkers),
		queue:      make(chan Event, queueSize),
		router:     router,
		log:        log,
		quit:       make(chan struct{}),
	}
}

// Run starts the workers and the dispatch loop.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.WithField("workers", d.maxWorkers).Info("Starting pipeline dispatcher")
	for i := 1; i <= d.maxWorkers; i++ {
		w := newWorker(i, d.workerPool, d.router, d.log, &d.wg)
		d.workers = append(d.workers, w)
		w.start(ctx)
	}
	go d.dispatch()
}

func (d *Dispatcher) dispatch() {
	for {
		select {
		case evt := <-d.queue:
			go func(evt Event) {
				events := <-d.workerPool
				events <- evt
			}(evt)
		case <-d.quit:
			return
		}
	}
}

// Submit enqueues an event for asynchronous processing. It does not block: a
// full queue is reported to the caller instead of stalling the trigger
// surface.
func (d *Dispatcher) Submit(evt Event) error {
	select {
	case d.queue <- evt:
		d.log.WithFields(logrus.Fields{
			"event":  evt.Name,
			"run_id": evt.ID,
		}).Info("Event queued")
		return nil
	default:
		return fmt.Errorf("event queue full, dropped event %q (run %s)", evt.Name, evt.ID)
	}
}

// Stop shuts down the dispatch loop and waits for in-flight runs to finish.
func (d *Dispatcher) Stop() {
	d.log.Info("Stopping pipeline dispatcher")
	close(d.quit)
	for _, w := range d.workers {
		w.stop()
	}
	d.wg.Wait()
	d.log.Info("All pipeline workers stopped")
}
