// Package reliability owns delivery of whole messages over a channel that
// only carries small, occasionally lost packets.
//
// Ownership boundary:
// - sender ack rounds and selective retransmission
// - receiver reassembly state machine and missing-index tracking
// - timeout policy (per-round, per-attempt, overall)
//
// One message is in flight per transport at a time. The receiver slot of
// the transport is owned by whichever side currently waits on it: the
// reassembly loop during a receive, the ack wait during a send.
package reliability
