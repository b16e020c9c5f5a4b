package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fisadev/grillo/internal/chunk"
	"github.com/fisadev/grillo/internal/logging"
	"github.com/fisadev/grillo/internal/observability"
	"github.com/fisadev/grillo/internal/transport"
)

// Result reports how a send finished.
type Result int

const (
	// ResultConfirmed means the peer acknowledged the complete message.
	ResultConfirmed Result = iota
	// ResultUnconfirmed means the message went out but no confirmation
	// exists: brave mode, or ack silence after a full round.
	ResultUnconfirmed
)

func (r Result) String() string {
	if r == ResultConfirmed {
		return "confirmed"
	}
	return "unconfirmed"
}

// Sender transmits one framed message, optionally driving ack rounds to
// retransmit chunks the receiver reports missing.
type Sender struct {
	cfg Config
	log zerolog.Logger
}

func NewSender(cfg Config) *Sender {
	return &Sender{cfg: cfg, log: logging.Component("sender")}
}

// ackListener owns the transport's receiver slot during a send and parks
// incoming frames for the round loop.
type ackListener struct {
	frames chan []byte
}

func (l *ackListener) OnPacket(frame []byte) {
	select {
	case l.frames <- frame:
	default:
	}
}

func (l *ackListener) OnDecodeFailure() {
	// A garbled ack is indistinguishable from no ack; the round wait
	// times out and the send finishes unconfirmed.
	observability.RecordDecodeFailure()
}

// Send splits framed into packets and transmits them in index order. In
// confirmed mode it then runs ack rounds: one bounded wait per round,
// selective retransmission of reported-missing chunks, until an empty ack
// confirms completion. A round with no ack at all ends the send as
// ResultUnconfirmed rather than retrying forever; this deliberately trades
// certainty for forward progress.
//
// Size errors surface before any transmission. A corrupted ack marker
// aborts with chunk.ErrAckCorrupted.
func (s *Sender) Send(ctx context.Context, t transport.Transport, framed []byte) (Result, error) {
	packets, err := chunk.Split(framed)
	if err != nil {
		return ResultUnconfirmed, err
	}

	var listener *ackListener
	if s.cfg.Confirmed {
		// Attach before the first pass so an ack racing the last chunk
		// cannot slip past an empty receiver slot.
		listener = &ackListener{frames: make(chan []byte, 8)}
		if err := t.Attach(listener); err != nil {
			return ResultUnconfirmed, err
		}
		defer t.Detach()
	}

	s.log.Info().
		Int("chunks", len(packets)).
		Bool("confirmed", s.cfg.Confirmed).
		Msg("sending message")

	for _, p := range packets {
		if err := t.Send(ctx, p.Encode()); err != nil {
			return ResultUnconfirmed, err
		}
		observability.RecordPacketSent(false)
	}

	if !s.cfg.Confirmed {
		return ResultUnconfirmed, nil
	}

	for round := 1; ; round++ {
		raw, ok, err := waitAck(ctx, listener.frames, s.cfg.ackWait())
		if err != nil {
			return ResultUnconfirmed, err
		}
		if !ok {
			s.log.Warn().Int("rounds", round).Msg("no ack, finishing unconfirmed")
			observability.RecordSendRounds(round)
			return ResultUnconfirmed, nil
		}
		observability.RecordAckReceived()

		missing, err := chunk.DecodeAck(raw)
		if err != nil {
			return ResultUnconfirmed, err
		}
		if len(missing) == 0 {
			s.log.Info().Int("rounds", round).Msg("message confirmed")
			observability.RecordSendRounds(round)
			return ResultConfirmed, nil
		}

		s.log.Debug().
			Int("round", round).
			Int("missing", len(missing)).
			Msg("retransmitting missing chunks")
		for _, idx := range missing {
			if int(idx) >= len(packets) {
				continue // foreign index, nothing of ours to resend
			}
			if err := t.Send(ctx, packets[idx].Encode()); err != nil {
				return ResultUnconfirmed, err
			}
			observability.RecordPacketSent(true)
		}
	}
}

func waitAck(ctx context.Context, frames <-chan []byte, wait time.Duration) ([]byte, bool, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case raw := <-frames:
		return raw, true, nil
	case <-timer.C:
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
