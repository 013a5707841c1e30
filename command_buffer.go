package ecs

import "sync"

// CommandBuffer accumulates deferred commands during a frame. Jobs running on
// worker goroutines may push concurrently; commands are applied at the frame boundary.
type CommandBuffer struct {
	mu       sync.Mutex
	commands []Command
}

// NewCommandBuffer creates an empty buffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

// Len reports how many commands are queued.
func (b *CommandBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.commands)
}

// Push appends a command to the buffer.
func (b *CommandBuffer) Push(cmd Command) {
	if cmd == nil {
		return
	}
	b.mu.Lock()
	b.commands = append(b.commands, cmd)
	b.mu.Unlock()
}

// Drain returns queued commands and resets the buffer.
func (b *CommandBuffer) Drain() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	drained := b.commands
	b.commands = nil
	return drained
}

// Snapshot returns the current command count so callers can restore later.
func (b *CommandBuffer) Snapshot() int {
	return b.Len()
}

// Restore truncates the command buffer back to the provided snapshot.
func (b *CommandBuffer) Restore(snapshot int) {
	if snapshot < 0 {
		snapshot = 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if snapshot >= len(b.commands) {
		return
	}
	b.commands = b.commands[:snapshot]
}

// CommandBufferPool reuses buffers across frames.
type CommandBufferPool struct {
	pool sync.Pool
}

// NewCommandBufferPool constructs a pool that returns fresh buffers.
func NewCommandBufferPool() *CommandBufferPool {
	p := &CommandBufferPool{}
	p.pool.New = func() any { return NewCommandBuffer() }
	return p
}

// Get retrieves a buffer from the pool.
func (p *CommandBufferPool) Get() *CommandBuffer {
	return p.pool.Get().(*CommandBuffer)
}

// Put returns a buffer to the pool after clearing it.
func (p *CommandBufferPool) Put(buf *CommandBuffer) {
	if buf == nil {
		return
	}
	buf.Drain()
	p.pool.Put(buf)
}
