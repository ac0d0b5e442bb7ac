package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	conversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docextract",
			Name:      "conversions_total",
			Help:      "Total document conversions by target format and result",
		},
		[]string{"format", "result"},
	)

	conversionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docextract",
			Name:      "conversion_duration_seconds",
			Help:      "Duration of document conversions by target format",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"format"},
	)

	providerReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docextract",
			Name:      "provider_requests_total",
			Help:      "Total provider requests by provider, model and result",
		},
		[]string{"provider", "model", "result"},
	)

	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docextract",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of provider requests by provider and model",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)

	extractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docextract",
			Name:      "extractions_total",
			Help:      "Total extractions by result (success, error kind)",
		},
		[]string{"result"},
	)

	degradedDecodes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docextract",
			Name:      "degraded_decodes_total",
			Help:      "Total text recoveries that fell back to lossy decoding",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(conversions, conversionLatency, providerReqs, providerLatency, extractions, degradedDecodes)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveConversion(format, result string, dur time.Duration) {
	conversions.WithLabelValues(format, result).Inc()
	conversionLatency.WithLabelValues(format).Observe(dur.Seconds())
}

func ObserveProvider(provider, model, result string, dur time.Duration) {
	providerReqs.WithLabelValues(provider, model, result).Inc()
	providerLatency.WithLabelValues(provider, model).Observe(dur.Seconds())
}

func IncExtraction(result string) { extractions.WithLabelValues(result).Inc() }
func IncDegradedDecode()          { degradedDecodes.Inc() }
