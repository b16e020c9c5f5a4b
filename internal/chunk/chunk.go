// Package chunk splits framed messages into fixed-size packets and
// implements the packet and acknowledgment wire codecs.
//
// Packet wire format: byte 0 = total chunk count (1-255), byte 1 = chunk
// index (0..total-1), bytes 2.. = up to DataLen bytes of chunk data.
package chunk

import (
	"errors"
	"fmt"
)

const (
	// DataLen is the chunk data capacity of one packet.
	DataLen = 30
	// MaxChunks bounds the total chunk count encodable in one header byte.
	MaxChunks = 255
	headerLen = 2
	// MaxPacketLen is the transport frame bound.
	MaxPacketLen = headerLen + DataLen
)

var (
	ErrEmptyMessage    = errors.New("chunk: empty message")
	ErrMessageTooLarge = errors.New("chunk: message needs more than 255 chunks")
	ErrShortPacket     = errors.New("chunk: packet shorter than header")
	ErrPacketTooLong   = errors.New("chunk: packet exceeds frame size")
	ErrBadChunkCount   = errors.New("chunk: zero total chunk count")
	ErrBadChunkIndex   = errors.New("chunk: chunk index out of range")
)

// Packet is one bounded unit carried by the transport.
type Packet struct {
	Total uint8
	Index uint8
	Data  []byte
}

// Split cuts a framed message into packets with strictly increasing index.
// Total is ceil(len(msg)/DataLen); the last chunk may be shorter.
func Split(msg []byte) ([]Packet, error) {
	if len(msg) == 0 {
		return nil, ErrEmptyMessage
	}
	total := (len(msg) + DataLen - 1) / DataLen
	if total > MaxChunks {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(msg))
	}

	packets := make([]Packet, 0, total)
	for i := 0; i < total; i++ {
		start := i * DataLen
		end := start + DataLen
		if end > len(msg) {
			end = len(msg)
		}
		data := make([]byte, end-start)
		copy(data, msg[start:end])
		packets = append(packets, Packet{
			Total: uint8(total),
			Index: uint8(i),
			Data:  data,
		})
	}
	return packets, nil
}

// Encode serializes p into its wire form.
func (p Packet) Encode() []byte {
	buf := make([]byte, 0, headerLen+len(p.Data))
	buf = append(buf, p.Total, p.Index)
	return append(buf, p.Data...)
}

// DecodePacket parses a raw transport frame as a data packet.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < headerLen {
		return Packet{}, ErrShortPacket
	}
	if len(b) > MaxPacketLen {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrPacketTooLong, len(b))
	}
	total, index := b[0], b[1]
	if total == 0 {
		return Packet{}, ErrBadChunkCount
	}
	if index >= total {
		return Packet{}, fmt.Errorf("%w: index %d of %d", ErrBadChunkIndex, index, total)
	}
	data := make([]byte, len(b)-headerLen)
	copy(data, b[headerLen:])
	return Packet{Total: total, Index: index, Data: data}, nil
}
