package reliability

import (
	"github.com/fisadev/grillo/internal/chunk"
)

// receiveBuffer tracks chunk arrivals for one in-flight message. Inserts
// are idempotent and placed by index; assembly order is always index
// order, never arrival order.
type receiveBuffer struct {
	total int
	parts map[int][]byte
}

func newReceiveBuffer(total int) *receiveBuffer {
	return &receiveBuffer{
		total: total,
		parts: make(map[int][]byte, total),
	}
}

func (b *receiveBuffer) insert(p chunk.Packet) {
	b.parts[int(p.Index)] = p.Data
}

func (b *receiveBuffer) has(index int) bool {
	_, ok := b.parts[index]
	return ok
}

func (b *receiveBuffer) complete() bool {
	return len(b.parts) == b.total
}

// missing returns the absent chunk indices in ascending order.
func (b *receiveBuffer) missing() []uint8 {
	out := make([]uint8, 0, b.total-len(b.parts))
	for i := 0; i < b.total; i++ {
		if !b.has(i) {
			out = append(out, uint8(i))
		}
	}
	return out
}

// assemble concatenates the chunks by index. Only valid once complete.
func (b *receiveBuffer) assemble() []byte {
	var out []byte
	for i := 0; i < b.total; i++ {
		out = append(out, b.parts[i]...)
	}
	return out
}
