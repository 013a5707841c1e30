package simclock

import (
	"encoding/binary"

	ecs "github.com/DangerosoDavo/simecs"
	"github.com/DangerosoDavo/simecs/ecs/buffer"
)

// RevolutionSize is the encoded size of a RevolutionEvent.
const RevolutionSize = 16

const revolutionKind byte = 'R'

// RevolutionEvent reports that an entity completed another full turn during a frame.
type RevolutionEvent struct {
	Entity      ecs.EntityID
	Revolutions uint32
}

// EncodeRevolution writes ev into dst, which must hold RevolutionSize bytes.
func EncodeRevolution(dst []byte, ev RevolutionEvent) {
	_ = dst[RevolutionSize-1]
	dst[0] = revolutionKind
	dst[1], dst[2], dst[3] = 0, 0, 0
	binary.LittleEndian.PutUint32(dst[4:], ev.Entity.Index())
	binary.LittleEndian.PutUint32(dst[8:], ev.Entity.Generation())
	binary.LittleEndian.PutUint32(dst[12:], ev.Revolutions)
}

// DecodeRevolution reads an event written by EncodeRevolution. It reports
// false for items of another size or kind.
func DecodeRevolution(item []byte) (RevolutionEvent, bool) {
	if len(item) != RevolutionSize || item[0] != revolutionKind {
		return RevolutionEvent{}, false
	}
	return RevolutionEvent{
		Entity: ecs.EntityIDFromParts(
			binary.LittleEndian.Uint32(item[4:]),
			binary.LittleEndian.Uint32(item[8:]),
		),
		Revolutions: binary.LittleEndian.Uint32(item[12:]),
	}, true
}

// EachRevolution visits the revolution events of the last frame. Other items
// in the pool are skipped. Call it after the frame's handle has completed and
// before the next frame starts.
func EachRevolution(pool *buffer.Pool, fn func(RevolutionEvent) bool) {
	pool.Each(func(_ int, item []byte) bool {
		ev, ok := DecodeRevolution(item)
		if !ok {
			return true
		}
		return fn(ev)
	})
}
