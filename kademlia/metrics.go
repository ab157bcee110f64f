package kademlia

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the node's observable counters: dropped/undecodable
// frames, RPC timeouts, and storage errors. Each node gets its own
// registry so multiple nodes in one process (as in tests) don't collide
// on metric registration.
type metrics struct {
	registry       *prometheus.Registry
	decodeErrors   prometheus.Counter
	rpcTimeouts    *prometheus.CounterVec
	storageErrors  *prometheus.CounterVec
	lookupRounds   prometheus.Histogram
	inboundByType  *prometheus.CounterVec
	outboundByType *prometheus.CounterVec
}

func newMetrics(nodeID string) *metrics {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"node": nodeID}
	m := &metrics{
		registry: reg,
		decodeErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "kademlia_decode_errors_total",
			Help:        "Frames dropped because they failed to decode.",
			ConstLabels: labels,
		}),
		rpcTimeouts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name:        "kademlia_rpc_timeouts_total",
			Help:        "RPCs that received no response before their deadline.",
			ConstLabels: labels,
		}, []string{"kind"}),
		storageErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name:        "kademlia_storage_errors_total",
			Help:        "Local storage operations that returned an error.",
			ConstLabels: labels,
		}, []string{"op"}),
		lookupRounds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:        "kademlia_lookup_rounds",
			Help:        "Number of rounds an iterative lookup took to converge.",
			ConstLabels: labels,
			Buckets:     prometheus.LinearBuckets(1, 1, 20),
		}),
		inboundByType: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name:        "kademlia_inbound_messages_total",
			Help:        "Inbound messages handled, by type.",
			ConstLabels: labels,
		}, []string{"type"}),
		outboundByType: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name:        "kademlia_outbound_messages_total",
			Help:        "Outbound messages sent, by type.",
			ConstLabels: labels,
		}, []string{"type"}),
	}
	return m
}

// Handler exposes the node's metrics registry for scraping.
func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
