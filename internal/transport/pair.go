package transport

import (
	"context"
	"sync"
	"time"
)

type delivery struct {
	frame  []byte
	failed bool
}

// Endpoint is one side of an in-memory transport pair with programmable
// loss and corruption, used to exercise the reliability layer against a
// deterministic lossy channel.
type Endpoint struct {
	mu     sync.Mutex
	peer   *Endpoint
	recv   Receiver
	closed bool
	seq    int
	delay  time.Duration
	drop   func(seq int, frame []byte) bool
	mangle func(seq int, frame []byte) bool

	inbox chan delivery
	done  chan struct{}
}

// Pair returns two linked endpoints. Frames sent on one are delivered to
// the receiver attached on the other, in order, on a dispatch goroutine.
func Pair() (*Endpoint, *Endpoint) {
	a := newEndpoint()
	b := newEndpoint()
	a.peer, b.peer = b, a
	go a.dispatch()
	go b.dispatch()
	return a, b
}

func newEndpoint() *Endpoint {
	return &Endpoint{
		inbox: make(chan delivery, 256),
		done:  make(chan struct{}),
	}
}

// SetDelay makes every Send block for d, simulating transmission time.
func (e *Endpoint) SetDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = d
}

// SetDrop installs a loss hook. Frames for which fn returns true vanish
// silently. seq counts frames sent on this endpoint, from 1.
func (e *Endpoint) SetDrop(fn func(seq int, frame []byte) bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.drop = fn
}

// SetDecodeFailure installs a corruption hook. Frames for which fn returns
// true are delivered as an explicit decode failure instead of data.
func (e *Endpoint) SetDecodeFailure(fn func(seq int, frame []byte) bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mangle = fn
}

func (e *Endpoint) Send(ctx context.Context, frame []byte) error {
	if len(frame) > MaxFrameLen {
		return ErrFrameTooLong
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.seq++
	seq := e.seq
	delay := e.delay
	drop := e.drop
	mangle := e.mangle
	e.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	if drop != nil && drop(seq, frame) {
		return nil
	}
	d := delivery{frame: append([]byte(nil), frame...)}
	if mangle != nil && mangle(seq, frame) {
		d = delivery{failed: true}
	}

	select {
	case e.peer.inbox <- d:
		return nil
	case <-e.peer.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Endpoint) Attach(r Receiver) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recv != nil {
		return ErrReceiverAttached
	}
	e.recv = r
	return nil
}

func (e *Endpoint) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recv = nil
}

// Close tears down the endpoint; pending frames are discarded.
func (e *Endpoint) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.done)
	e.mu.Unlock()
}

func (e *Endpoint) dispatch() {
	for {
		select {
		case d := <-e.inbox:
			e.mu.Lock()
			recv := e.recv
			e.mu.Unlock()
			if recv == nil {
				continue // nobody listening, the frame is lost
			}
			if d.failed {
				recv.OnDecodeFailure()
			} else {
				recv.OnPacket(d.frame)
			}
		case <-e.done:
			return
		}
	}
}
