package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
)

// UDP carries frames as single datagrams between two fixed peers. Datagram
// loss and reordering on a real network make it an honest stand-in for any
// other lossy physical layer behind the Transport interface.
type UDP struct {
	conn   *net.UDPConn
	remote *net.UDPAddr

	mu     sync.Mutex
	recv   Receiver
	closed bool
}

// DialUDP binds the local side of the channel and resolves the peer.
func DialUDP(bind, remote string) (*UDP, error) {
	local, err := net.ResolveUDPAddr("udp", bind)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve bind addr: %w", err)
	}
	peer, err := net.ResolveUDPAddr("udp", remote)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve peer addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, fmt.Errorf("transport: bind: %w", err)
	}
	u := &UDP{conn: conn, remote: peer}
	go u.readLoop()
	return u, nil
}

func (u *UDP) Send(ctx context.Context, frame []byte) error {
	if len(frame) > MaxFrameLen {
		return ErrFrameTooLong
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := u.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	if _, err := u.conn.WriteToUDP(frame, u.remote); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	return nil
}

func (u *UDP) Attach(r Receiver) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.recv != nil {
		return ErrReceiverAttached
	}
	u.recv = r
	return nil
}

func (u *UDP) Detach() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.recv = nil
}

// Close shuts the socket down and ends the read loop.
func (u *UDP) Close() error {
	u.mu.Lock()
	u.closed = true
	u.mu.Unlock()
	return u.conn.Close()
}

func (u *UDP) readLoop() {
	buf := make([]byte, 2*MaxFrameLen)
	for {
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			u.mu.Lock()
			closed := u.closed
			u.mu.Unlock()
			if closed {
				return
			}
			continue
		}

		u.mu.Lock()
		recv := u.recv
		u.mu.Unlock()
		if recv == nil {
			continue
		}
		if n > MaxFrameLen {
			recv.OnDecodeFailure()
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		recv.OnPacket(frame)
	}
}
