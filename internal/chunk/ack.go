package chunk

import (
	"errors"
	"fmt"
)

// AckMarker is byte 0 of every acknowledgment packet. A data packet can
// never start with 0x00 since its first byte is a total chunk count >= 1.
const AckMarker = 0x00

// ErrAckCorrupted reports an acknowledgment whose marker byte is not 0.
// This indicates protocol desynchronization and always aborts the send.
var ErrAckCorrupted = errors.New("chunk: corrupted ack marker")

// IsAck reports whether a raw frame is an acknowledgment packet.
func IsAck(b []byte) bool {
	return len(b) > 0 && b[0] == AckMarker
}

// EncodeAck serializes missing chunk indices into an ack packet. The list
// is capped at DataLen entries so the ack honors the same frame bound as
// data packets; later rounds pick up the remainder.
func EncodeAck(missing []uint8) []byte {
	if len(missing) > DataLen {
		missing = missing[:DataLen]
	}
	buf := make([]byte, 0, 1+len(missing))
	buf = append(buf, AckMarker)
	return append(buf, missing...)
}

// DecodeAck parses an ack packet into its missing chunk indices. An empty
// index list means the receiver holds the complete message.
func DecodeAck(b []byte) ([]uint8, error) {
	if len(b) == 0 {
		return nil, ErrShortPacket
	}
	if b[0] != AckMarker {
		return nil, fmt.Errorf("%w: 0x%02x", ErrAckCorrupted, b[0])
	}
	missing := make([]uint8, len(b)-1)
	copy(missing, b[1:])
	return missing, nil
}
