package reliability

import "errors"

var (
	// ErrReceiveTimeout reports that the overall receive window elapsed
	// before the message completed; the reassembly is abandoned.
	ErrReceiveTimeout = errors.New("reliability: receive timed out")
)
