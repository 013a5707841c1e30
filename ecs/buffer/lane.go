package buffer

// block is one link in a lane's chain. n is the only header Reset touches;
// bytes past n are stale and never read.
type block struct {
	data []byte
	n    int
	next *block
}

type item struct {
	blk *block
	off int
	n   int
}

// Lane is a single-writer append region made of chained blocks. An item never
// spans blocks; an item larger than the block size gets a block of its own.
type Lane struct {
	blockSize int
	head      *block
	cur       *block
	items     []item
	size      int
}

// Append copies p into the lane as one item.
func (l *Lane) Append(p []byte) {
	dst := l.reserve(len(p))
	copy(dst, p)
}

// AppendFunc reserves n bytes as one item and lets fill write them in place.
// The slice passed to fill must not be retained.
func (l *Lane) AppendFunc(n int, fill func([]byte)) {
	dst := l.reserve(n)
	if fill != nil {
		fill(dst)
	}
}

// Reserve appends an n-byte item and returns it for the caller to fill.
// The slice is capped at n and is valid until the next Reset.
func (l *Lane) Reserve(n int) []byte {
	return l.reserve(n)
}

// Len returns the number of items appended since the last reset.
func (l *Lane) Len() int {
	return len(l.items)
}

// Bytes returns the payload bytes appended since the last reset.
func (l *Lane) Bytes() int {
	return l.size
}

// Item returns item i. It panics when i is out of range.
func (l *Lane) Item(i int) []byte {
	it := l.items[i]
	return it.blk.data[it.off : it.off+it.n : it.off+it.n]
}

// Each visits items in append order until fn returns false.
func (l *Lane) Each(fn func(item []byte) bool) {
	for _, it := range l.items {
		if !fn(it.blk.data[it.off : it.off+it.n : it.off+it.n]) {
			return
		}
	}
}

// Capacity returns the bytes held by the lane's block chain.
func (l *Lane) Capacity() int {
	total := 0
	for b := l.head; b != nil; b = b.next {
		total += cap(b.data)
	}
	return total
}

func (l *Lane) reserve(n int) []byte {
	if n < 0 {
		n = 0
	}
	b := l.blockFor(n)
	off := b.n
	b.n += n
	l.items = append(l.items, item{blk: b, off: off, n: n})
	l.size += n
	return b.data[off : off+n : off+n]
}

// blockFor returns a block with at least n free bytes, walking forward through
// blocks retained from earlier frames before allocating a new one.
func (l *Lane) blockFor(n int) *block {
	if l.cur == nil {
		l.head = newBlock(max(n, l.blockSize))
		l.cur = l.head
		return l.cur
	}
	for {
		if cap(l.cur.data)-l.cur.n >= n {
			return l.cur
		}
		if l.cur.next == nil {
			l.cur.next = newBlock(max(n, l.blockSize))
		}
		l.cur = l.cur.next
	}
}

func newBlock(size int) *block {
	return &block{data: make([]byte, size)}
}

// reset zeroes each block's length and rewinds the write cursor. A lane that
// never allocated a block has nothing to walk.
func (l *Lane) reset() {
	for b := l.head; b != nil; b = b.next {
		b.n = 0
	}
	l.cur = l.head
	l.items = l.items[:0]
	l.size = 0
}
