package ecs

import "sync"

// workerPool is a fixed set of goroutines draining a shared FIFO queue.
// submit never blocks, so continuations that fire on a worker goroutine can
// enqueue follow-up work without deadlocking the pool.
type workerPool struct {
	size   int
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []task
	head   int
	closed bool
	wg     sync.WaitGroup
}

// task receives the index of the worker executing it, in [0, size).
type task func(worker int)

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		return nil
	}
	p := &workerPool{
		size:  size,
		queue: make([]task, 0, size*4),
	}
	p.cond = sync.NewCond(&p.mu)
	p.start()
	return p
}

func (p *workerPool) start() {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Size reports the parallelism degree. A nil pool runs work inline and counts as one worker.
func (p *workerPool) Size() int {
	if p == nil {
		return 1
	}
	return p.size
}

func (p *workerPool) worker(id int) {
	defer p.wg.Done()
	for {
		t, ok := p.next()
		if !ok {
			return
		}
		t(id)
	}
}

func (p *workerPool) next() (task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.head == len(p.queue) && !p.closed {
		p.cond.Wait()
	}
	if p.head == len(p.queue) {
		return nil, false
	}
	t := p.queue[p.head]
	p.queue[p.head] = nil
	p.head++
	if p.head == len(p.queue) {
		p.queue = p.queue[:0]
		p.head = 0
	}
	return t, true
}

// submit enqueues t and reports whether it was accepted. A nil pool runs t on
// the calling goroutine as worker 0.
func (p *workerPool) submit(t task) bool {
	if t == nil {
		return true
	}
	if p == nil {
		t(0)
		return true
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.queue = append(p.queue, t)
	p.mu.Unlock()
	p.cond.Signal()
	return true
}

// Close stops accepting work, lets workers drain what is already queued, and waits for them.
func (p *workerPool) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}
