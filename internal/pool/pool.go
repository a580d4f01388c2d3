package pool

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Task is one unit of pool work. Run receives a context cancelled on
// pool shutdown; interruption is best-effort.
type Task struct {
	ID   string
	Path string
	Run  func(ctx context.Context) error
}

// Pool executes tasks on a bounded set of worker slots with a bounded
// FIFO backlog. Submissions beyond slots plus backlog are rejected, not
// queued. Construct with New, then Start before submitting.
type Pool struct {
	maxActive int
	maxQueued int
	backlog   chan Task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inFlight int
	started  bool
	closed   bool
}

const (
	DefaultMaxActiveTasks = 5
	DefaultMaxQueuedTasks = 10
)

// New creates a pool with maxActive concurrent slots and a maxQueued
// deep backlog. Invalid values fall back to the defaults.
func New(maxActive, maxQueued int) *Pool {
	if maxActive <= 0 {
		maxActive = DefaultMaxActiveTasks
	}
	if maxQueued < 0 {
		maxQueued = DefaultMaxQueuedTasks
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		maxActive: maxActive,
		maxQueued: maxQueued,
		// sized so a bounded send never blocks
		backlog: make(chan Task, maxActive+maxQueued),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the worker slots. Idempotent.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	for i := 0; i < p.maxActive; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Submit hands a task to the pool without blocking. A task counts
// against capacity from acceptance until its Run returns. Submit returns
// ErrPoolSaturated when every slot is busy and the backlog is full, and
// ErrPoolClosed after Stop. The caller owns what happens to rejected
// work; the pool never retries.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	if p.inFlight >= p.maxActive+p.maxQueued {
		return ErrPoolSaturated
	}
	p.inFlight++
	p.backlog <- task
	return nil
}

// InFlight reports tasks accepted and not yet finished (executing or
// queued).
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Queued reports tasks waiting for a slot.
func (p *Pool) Queued() int {
	return len(p.backlog)
}

// Stop rejects further submissions, drops queued tasks without running
// them, cancels in-flight task contexts, and waits for workers to exit
// or ctx to expire. Returns true if all workers finished in time.
func (p *Pool) Stop(ctx context.Context) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return true
	}
	p.closed = true
	started := p.started
	p.mu.Unlock()

	p.cancel()
	if !started {
		return true
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.backlog:
			// drop the dequeued task too if shutdown already began
			select {
			case <-p.ctx.Done():
				log.Debug().Str("task_id", task.ID).Str("path", task.Path).Msg("dropping queued task on shutdown")
				p.finish()
				return
			default:
			}
			p.run(task)
		}
	}
}

// run executes one task, containing panics and errors so a bad file
// never takes down the pool.
func (p *Pool) run(task Task) {
	defer p.finish()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("task_id", task.ID).Str("path", task.Path).Interface("panic", r).Msg("task panicked")
		}
	}()
	if err := task.Run(p.ctx); err != nil {
		log.Error().Str("task_id", task.ID).Str("path", task.Path).Err(err).Msg("task failed")
	}
}

func (p *Pool) finish() {
	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
}
