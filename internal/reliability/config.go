package reliability

import "time"

// Config tunes the acknowledgment protocol. Durations are estimates of a
// slow physical layer; an acoustic link needs seconds per packet where a
// datagram link needs milliseconds.
type Config struct {
	// PacketSendTime estimates one packet's transmission duration.
	PacketSendTime time.Duration
	// AckWaitFactor scales PacketSendTime into the per-round ack wait.
	AckWaitFactor float64
	// EvalInterval is the receiver's steady evaluation tick.
	EvalInterval time.Duration
	// AttemptTimeout is the silence window after which the receiver
	// requests missing chunks. Zero derives it from the ack wait.
	AttemptTimeout time.Duration
	// ReceiveTimeout bounds one whole receive operation.
	ReceiveTimeout time.Duration
	// Confirmed enables the acknowledgment protocol. Disabled ("brave")
	// mode has no recovery path for lost packets at all.
	Confirmed bool
}

func DefaultConfig() Config {
	return Config{
		PacketSendTime: 4 * time.Second,
		AckWaitFactor:  2.0,
		EvalInterval:   100 * time.Millisecond,
		AttemptTimeout: 0,
		ReceiveTimeout: 5 * time.Minute,
		Confirmed:      true,
	}
}

// ackWait is the bounded wait for one ack round.
func (c Config) ackWait() time.Duration {
	factor := c.AckWaitFactor
	if factor < 1.0 {
		factor = 1.0
	}
	return time.Duration(float64(c.PacketSendTime) * factor)
}

// attemptTimeout resolves the configured or derived silence window. The
// derived default sits strictly below the sender's per-round ack wait:
// after a resend round the receiver's follow-up ack (the next slice of a
// capped missing list, or a report of lost resends) fires on this window,
// measured from the last resend arrival — which is later than the start
// of the sender's round deadline. An equal or larger window would always
// lose that race and strand multi-round recoveries.
func (c Config) attemptTimeout() time.Duration {
	if c.AttemptTimeout > 0 {
		return c.AttemptTimeout
	}
	return c.ackWait() / 2
}
