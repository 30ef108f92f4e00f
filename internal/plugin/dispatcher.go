package plugin

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the number of pending milestones a Dispatcher holds.
const DefaultQueueSize = 64

// Runner executes one plugin request. *Executor implements it.
type Runner interface {
	Execute(ctx context.Context, p *Plugin, req Request) (*Response, error)
}

// Dispatcher delivers milestones to subscribed plugins from a single worker.
// Notify never blocks: when the queue is full the milestone is dropped.
type Dispatcher struct {
	manager *Manager
	runner  Runner
	queue   chan Request
	dropped atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts a Dispatcher. A non-positive size uses DefaultQueueSize.
func NewDispatcher(manager *Manager, runner Runner, size int) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		manager: manager,
		runner:  runner,
		queue:   make(chan Request, size),
		ctx:     ctx,
		cancel:  cancel,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Notify queues req. It reports false when the milestone was dropped.
func (d *Dispatcher) Notify(req Request) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}
	select {
	case d.queue <- req:
		return true
	default:
		n := d.dropped.Add(1)
		log.Printf("plugin: queue full, dropped %s event (%d dropped so far)", req.Event, n)
		return false
	}
}

// Dropped returns the number of milestones discarded because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops accepting milestones, delivers what is queued and waits for the worker.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		d.wg.Wait()
		d.cancel()
	})
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for req := range d.queue {
		for _, p := range d.manager.Subscribers(req.Event) {
			resp, err := d.runner.Execute(d.ctx, p, req)
			if err != nil {
				log.Printf("plugin %s: %v", p.Manifest.Name, err)
				continue
			}
			if !resp.Success {
				log.Printf("plugin %s: reported failure: %s", p.Manifest.Name, resp.Error)
			}
		}
	}
}
