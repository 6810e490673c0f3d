package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	BytesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "at_ingress_bytes_total",
		Help: "Total bytes fed into the ingress state machine.",
	})
	Commands = promauto.NewCounter(prometheus.CounterOpts{
		Name: "at_commands_total",
		Help: "Total AT commands dispatched.",
	})
	CommandErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "at_command_errors_total",
		Help: "Command failures by reason.",
	}, []string{"reason"})
	FramingResyncs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "at_framing_resyncs_total",
		Help: "Receive buffer overflows that forced a resynchronization.",
	})
	StaleFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "at_stale_frames_total",
		Help: "Final result codes discarded because no command was pending.",
	})
	URCsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "at_urcs_received_total",
		Help: "Unsolicited result codes classified from the receive stream.",
	})
	URCsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "at_urcs_dropped_total",
		Help: "Unsolicited result codes dropped due to a full sink.",
	})
)

// Error reason label constants (stable label values to bound cardinality)
const (
	ReasonBusy      = "busy"
	ReasonTimeout   = "timeout"
	ReasonFraming   = "framing"
	ReasonParse     = "parse"
	ReasonTransport = "transport"
	ReasonPeer      = "peer_error"
)

// StartHTTP serves Prometheus metrics at /metrics on the given address.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
