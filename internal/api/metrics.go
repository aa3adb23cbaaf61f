package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicewidget_api_requests_total",
		Help: "HTTP requests served by route and status code",
	}, []string{"route", "code"})

	metricRequestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voicewidget_api_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"route"})

	metricCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicewidget_api_commands_total",
		Help: "Voice commands answered, by matched keyword",
	}, []string{"keyword"})
)
