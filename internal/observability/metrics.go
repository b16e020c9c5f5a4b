// Package observability exposes prometheus metrics for the reliability
// layer and an optional scrape endpoint.
package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	packetsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grillo",
			Subsystem: "transport",
			Name:      "packets_sent_total",
			Help:      "Data packets handed to the transport.",
		},
		[]string{"retransmit"},
	)
	packetsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "grillo",
			Subsystem: "transport",
			Name:      "packets_received_total",
			Help:      "Data packets delivered by the transport.",
		},
	)
	decodeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "grillo",
			Subsystem: "transport",
			Name:      "packet_decode_failures_total",
			Help:      "Frames the physical layer could not recover.",
		},
	)
	acksSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grillo",
			Subsystem: "ack",
			Name:      "sent_total",
			Help:      "Acknowledgment packets sent, by completeness.",
		},
		[]string{"complete"},
	)
	acksReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "grillo",
			Subsystem: "ack",
			Name:      "received_total",
			Help:      "Acknowledgment packets received by the sender.",
		},
	)
	sendRounds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "grillo",
			Subsystem: "ack",
			Name:      "send_rounds",
			Help:      "Ack rounds needed to finish one send.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			packetsSent, packetsReceived, decodeFailures,
			acksSent, acksReceived, sendRounds,
		)
	})
}

func RecordPacketSent(retransmit bool) {
	RegisterMetrics()
	label := "false"
	if retransmit {
		label = "true"
	}
	packetsSent.WithLabelValues(label).Inc()
}

func RecordPacketReceived() {
	RegisterMetrics()
	packetsReceived.Inc()
}

func RecordDecodeFailure() {
	RegisterMetrics()
	decodeFailures.Inc()
}

func RecordAckSent(complete bool) {
	RegisterMetrics()
	label := "false"
	if complete {
		label = "true"
	}
	acksSent.WithLabelValues(label).Inc()
}

func RecordAckReceived() {
	RegisterMetrics()
	acksReceived.Inc()
}

func RecordSendRounds(rounds int) {
	RegisterMetrics()
	sendRounds.Observe(float64(rounds))
}

// Serve exposes /metrics on addr. It blocks, so callers run it on its own
// goroutine; errors after a clean shutdown are the caller's to ignore.
func Serve(addr string) error {
	RegisterMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
