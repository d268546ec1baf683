// Package metrics holds the Prometheus collectors for the inbox server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inbox"

// Result labels for refreshes and replies
const (
	ResultOK          = "ok"
	ResultError       = "error"
	ResultStale       = "stale"
	ResultEncodeError = "encode_error"
)

var (
	// Refreshes counts refresh cycles by kind (conversations, hidden) and result
	Refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_total",
		Help:      "Refresh cycles by kind and result.",
	}, []string{"kind", "result"})

	Conversations = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "conversations",
		Help:      "Conversations in the last applied refresh.",
	})

	Unread = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "unread_messages",
		Help:      "Sum of unread counts in the last applied refresh.",
	})

	HiddenThreads = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hidden_threads",
		Help:      "Threads in the hidden set.",
	})

	// Replies counts reply dispatches by channel and result
	Replies = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "replies_total",
		Help:      "Reply dispatch attempts by channel and result.",
	}, []string{"channel", "result"})

	ReplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reply_duration_seconds",
		Help:      "Time spent posting replies to webhooks.",
		Buckets:   prometheus.DefBuckets,
	})

	// Ingested counts messages written by mailbox ingest
	Ingested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingested_messages_total",
		Help:      "Messages inserted by mailbox ingest.",
	}, []string{"mailbox"})
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
