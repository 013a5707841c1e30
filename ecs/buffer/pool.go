// Package buffer provides per-worker append lanes that are reused frame over
// frame. Each lane has exactly one writer during a frame; the pool is reset
// at the frame boundary, which truncates bookkeeping but keeps every backing
// block, so steady-state appends do not allocate.
package buffer

// DefaultBlockSize is used when NewPool is given a non-positive block size.
const DefaultBlockSize = 4096

// Pool is an ordered set of lanes, one per worker.
type Pool struct {
	lanes     []*Lane
	blockSize int
}

// NewPool returns a pool with the given number of lanes. Lanes start with no
// blocks; the first append on a lane allocates its first block.
func NewPool(lanes, blockSize int) *Pool {
	if lanes < 0 {
		lanes = 0
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	p := &Pool{
		lanes:     make([]*Lane, lanes),
		blockSize: blockSize,
	}
	for i := range p.lanes {
		p.lanes[i] = &Lane{blockSize: blockSize}
	}
	return p
}

// Lanes reports the number of lanes.
func (p *Pool) Lanes() int {
	if p == nil {
		return 0
	}
	return len(p.lanes)
}

// Lane returns lane i. It panics when i is out of range, like a slice index.
func (p *Pool) Lane(i int) *Lane {
	return p.lanes[i]
}

// Reset empties every lane. The caller must guarantee that no lane is being
// appended to; the frame pipeline only resets between frames. A nil pool is a no-op.
func (p *Pool) Reset() {
	if p == nil {
		return
	}
	for _, lane := range p.lanes {
		lane.reset()
	}
}

// Len returns the number of items across all lanes.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, lane := range p.lanes {
		n += lane.Len()
	}
	return n
}

// Capacity returns the retained backing bytes across all lanes.
func (p *Pool) Capacity() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, lane := range p.lanes {
		n += lane.Capacity()
	}
	return n
}

// Each visits every item lane by lane, in append order within a lane, until fn returns false.
// item aliases lane memory and is valid until the next Reset.
func (p *Pool) Each(fn func(lane int, item []byte) bool) {
	if p == nil {
		return
	}
	for i, lane := range p.lanes {
		stopped := false
		lane.Each(func(item []byte) bool {
			if !fn(i, item) {
				stopped = true
				return false
			}
			return true
		})
		if stopped {
			return
		}
	}
}
