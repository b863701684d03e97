package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// indexed pairs a job or result with its submission position
type indexed[T any] struct {
	index int
	value T
}

// Pool runs jobs on a fixed number of goroutines and returns their results
// in submission order
type Pool struct {
	workers    int
	jobQueue   chan indexed[Job]
	results    chan indexed[Result]
	collected  chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	startOnce  sync.Once
	queueOnce  sync.Once
	closeOnce  sync.Once

	mu        sync.Mutex
	submitted int
	slots     map[int]Result
}

// NewPool creates a pool bound to ctx. Cancelling ctx stops the workers.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan indexed[Job], workers*2),
		results:    make(chan indexed[Result], workers*2),
		collected:  make(chan struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
		slots:      make(map[int]Result),
	}
}

// Start launches the workers and the result collector. Results are drained
// while jobs are still being submitted, so batches of any size make progress.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
		go p.collect()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := job.value.Execute(p.ctx)
			select {
			case p.results <- indexed[Result]{index: job.index, value: result}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

func (p *Pool) collect() {
	defer close(p.collected)

	for r := range p.results {
		p.mu.Lock()
		p.slots[r.index] = r.value
		p.mu.Unlock()
	}
}

// Submit queues a job. It reports false when the pool has been stopped.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}

	p.mu.Lock()
	index := p.submitted
	p.submitted++
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- indexed[Job]{index: index, value: job}:
		return true
	}
}

// Wait closes the queue, waits for the workers and returns one slot per
// submitted job. Slots of jobs that never ran (cancellation) are nil.
func (p *Pool) Wait() []Result {
	p.Start()
	p.queueOnce.Do(func() { close(p.jobQueue) })

	p.wg.Wait()
	p.closeResults()
	<-p.collected
	p.cancelFunc()

	p.mu.Lock()
	defer p.mu.Unlock()

	results := make([]Result, p.submitted)
	for i, r := range p.slots {
		if i < len(results) {
			results[i] = r
		}
	}
	return results
}

// Shutdown stops the pool immediately
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
