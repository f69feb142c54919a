package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "ntpal"

	// Metrics names.
	MetricNameRequests        = Namespace + "_requests_total"
	MetricNameRequestDuration = Namespace + "_request_duration_seconds"
	MetricNameServerStratum   = Namespace + "_server_stratum"

	// Labels.
	LabelResult = "result"
	LabelServer = "server"

	// Results.
	ResultOK              = "ok"
	ResultInvalidArgument = "invalid_argument"
	ResultMalformed       = "malformed"
	ResultTransport       = "transport"
	ResultCanceled        = "canceled"
)

var (
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRequests,
			Help: "Number of NTP request/reply exchanges by outcome",
		},
		[]string{LabelResult},
	)

	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    MetricNameRequestDuration,
			Help:    "Wall time of completed NTP exchanges",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	ServerStratum = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameServerStratum,
			Help: "Stratum reported in the last reply from a server",
		},
		[]string{LabelServer},
	)
)
