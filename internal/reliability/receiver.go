package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fisadev/grillo/internal/chunk"
	"github.com/fisadev/grillo/internal/logging"
	"github.com/fisadev/grillo/internal/observability"
	"github.com/fisadev/grillo/internal/transport"
)

// State is the reassembly state machine position.
type State int

const (
	StateIdle State = iota
	StateReceiving
	StateComplete
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReceiving:
		return "receiving"
	case StateComplete:
		return "complete"
	case StateAbandoned:
		return "abandoned"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type rxEvent struct {
	frame  []byte
	failed bool
}

// packetListener owns the transport's receiver slot during a receive and
// parks deliveries for the reassembly loop.
type packetListener struct {
	events chan rxEvent
}

func (l *packetListener) OnPacket(frame []byte) {
	select {
	case l.events <- rxEvent{frame: frame}:
	default:
	}
}

func (l *packetListener) OnDecodeFailure() {
	select {
	case l.events <- rxEvent{failed: true}:
	default:
	}
}

// Receiver reassembles one message from packet arrivals, driving the
// acknowledgment protocol in confirmed mode.
//
// A packet whose total-chunk header differs from the in-flight buffer is
// taken to start a new message when its index is 0: the old reassembly is
// abandoned and a fresh one seeded. Two senders interleaving on one
// channel therefore corrupt each other; the wire header has no message id
// to tell them apart.
type Receiver struct {
	cfg Config
	log zerolog.Logger
}

func NewReceiver(cfg Config) *Receiver {
	return &Receiver{cfg: cfg, log: logging.Component("receiver")}
}

// Receive blocks until one message is fully reassembled, the overall
// receive window elapses (ErrReceiveTimeout), or ctx is cancelled.
// Cancellation detaches from the transport and returns promptly.
func (r *Receiver) Receive(ctx context.Context, t transport.Transport) ([]byte, error) {
	listener := &packetListener{events: make(chan rxEvent, 64)}
	if err := t.Attach(listener); err != nil {
		return nil, err
	}
	defer t.Detach()

	overall := time.NewTimer(r.cfg.ReceiveTimeout)
	defer overall.Stop()
	tick := time.NewTicker(r.cfg.EvalInterval)
	defer tick.Stop()

	state := StateIdle
	var buf *receiveBuffer
	lastArrival := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-overall.C:
			state = StateAbandoned
			r.log.Warn().
				Stringer("state", state).
				Msg("receive window elapsed, abandoning reassembly")
			return nil, ErrReceiveTimeout

		case ev := <-listener.events:
			if ev.failed {
				// The chunk is gone. Confirmed mode recovers it through
				// the missing-index mechanism; brave mode cannot, and the
				// buffer can only leave Receiving via the overall timeout.
				r.log.Debug().Msg("packet decode failed")
				observability.RecordDecodeFailure()
				continue
			}
			if chunk.IsAck(ev.frame) {
				continue // stray ack from a previous exchange
			}
			p, err := chunk.DecodePacket(ev.frame)
			if err != nil {
				r.log.Debug().Err(err).Msg("dropping undecodable packet")
				continue
			}
			observability.RecordPacketReceived()

			switch {
			case buf == nil:
				buf = newReceiveBuffer(int(p.Total))
				state = StateReceiving
				r.log.Info().
					Int("chunks", int(p.Total)).
					Msg("reassembly started")
			case p.Index == 0 && int(p.Total) != buf.total:
				r.log.Warn().
					Int("old_chunks", buf.total).
					Int("new_chunks", int(p.Total)).
					Msg("new message interrupts reassembly, discarding old buffer")
				buf = newReceiveBuffer(int(p.Total))
			case int(p.Total) != buf.total:
				continue // stray packet from another exchange
			}

			buf.insert(p)
			lastArrival = time.Now()

			if buf.complete() {
				if r.cfg.Confirmed {
					r.sendAck(ctx, t, nil)
				}
				state = StateComplete
				r.log.Info().
					Int("chunks", buf.total).
					Stringer("state", state).
					Msg("message reassembled")
				return buf.assemble(), nil
			}

			// The highest expected index arriving means the sender's pass
			// is over: report what is still missing right away.
			if r.cfg.Confirmed && int(p.Index) == buf.total-1 {
				r.sendAck(ctx, t, buf.missing())
				lastArrival = time.Now()
			}

		case <-tick.C:
			if !r.cfg.Confirmed || state != StateReceiving {
				continue
			}
			if time.Since(lastArrival) < r.cfg.attemptTimeout() {
				continue
			}
			r.sendAck(ctx, t, buf.missing())
			lastArrival = time.Now()
		}
	}
}

func (r *Receiver) sendAck(ctx context.Context, t transport.Transport, missing []uint8) {
	if err := t.Send(ctx, chunk.EncodeAck(missing)); err != nil {
		r.log.Warn().Err(err).Msg("ack send failed")
		return
	}
	observability.RecordAckSent(len(missing) == 0)
	r.log.Debug().Int("missing", len(missing)).Msg("ack sent")
}
