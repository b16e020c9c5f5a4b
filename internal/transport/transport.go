// Package transport defines the packet channel capability consumed by the
// reliability layer, plus two implementations: a deterministic in-memory
// pair for tests and a UDP binding for real use. The physical layer only
// has to carry small frames; everything above the frame boundary lives in
// the reliability packages.
package transport

import (
	"context"
	"errors"
)

// MaxFrameLen bounds one transport frame.
const MaxFrameLen = 32

var (
	ErrFrameTooLong     = errors.New("transport: frame exceeds bound")
	ErrReceiverAttached = errors.New("transport: receiver slot already owned")
	ErrClosed           = errors.New("transport: closed")
)

// Receiver consumes frames pushed by a Transport. OnDecodeFailure signals
// a frame the physical layer could not recover; its contents are gone.
// Implementations must not block.
type Receiver interface {
	OnPacket(frame []byte)
	OnDecodeFailure()
}

// Transport carries bounded frames between exactly two endpoints.
//
// The receiver slot is exclusive: whichever component currently listens
// owns it, and must Detach before another may Attach. Send blocks until
// the frame has been physically transmitted.
type Transport interface {
	Send(ctx context.Context, frame []byte) error
	Attach(r Receiver) error
	Detach()
}
