// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "proctorlens"

// Tick outcomes.
const (
	TickSent    = "sent"
	TickSkipped = "skipped"
	TickDevice  = "device_lost"
)

// Skip reasons.
const (
	SkipInFlight = "in_flight"
	SkipNoFrame  = "no_frame"
	SkipEncoding = "encoding"
	SkipCapture  = "capture"
)

// Request results.
const (
	ResultSuccess   = "success"
	ResultNetwork   = "network"
	ResultMalformed = "malformed"
	ResultCanceled  = "canceled"
	ResultOther     = "other"
)

const resultError = "error"

func counter(subsystem, name, help string) prometheus.Counter {
	return promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help,
	})
}

func counterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func gauge(subsystem, name, help string) prometheus.Gauge {
	return promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help,
	})
}

func gaugeVec(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

// Scheduler and session state.
var (
	AttentionTicks = counterVec("attention", "ticks_total",
		"Scheduler ticks by outcome.", "outcome")
	AttentionTicksSkipped = counterVec("attention", "ticks_skipped_total",
		"Ticks that produced no request, by reason.", "reason")
	AttentionRequests = counterVec("attention", "requests_total",
		"Inference requests by result.", "result")
	AttentionRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "attention",
		Name:      "request_duration_seconds",
		Help:      "Inference round-trip time.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 3, 5, 10},
	})
	AttentionInFlight = gauge("attention", "in_flight",
		"Inference requests in flight across all sessions.")
	AttentionPublishes = counter("attention", "publishes_total",
		"Metrics snapshots published to attention state.")
	AttentionDiscardedResponses = counter("attention", "discarded_responses_total",
		"Responses that arrived after their run stopped.")
	AttentionSessionsActive = gauge("attention", "sessions_active",
		"Sessions with a running scheduler.")
	SessionsTotal = gauge("attention", "sessions",
		"Registered exam sessions.")
	SessionsExpired = counter("attention", "sessions_expired_total",
		"Idle sessions removed by the sweep.")
)

// Capture and encoding.
var (
	CaptureAcquisitions = counterVec("capture", "device_acquisitions_total",
		"Capture device acquisitions by result (success, busy, unavailable).", "result")
	CaptureFramesDropped = counterVec("capture", "frames_dropped_total",
		"Frames overwritten before any consumer read them.", "source")
	EncodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "capture",
		Name:      "encode_duration_seconds",
		Help:      "JPEG encode time.",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})
)

// Activation store and event delivery.
var (
	GateOperations = counterVec("gate", "store_operations_total",
		"Activation flag store operations.", "operation", "result")
	EventsPublished = counterVec("events", "published_total",
		"Snapshot events delivered per sink (bus, nats).", "sink", "result")
)

// HTTP and WebSocket surface.
var (
	APIRequestsTotal = counterVec("api", "requests_total",
		"API requests by route pattern.", "method", "endpoint", "status_code")
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "API request latency by route pattern.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "endpoint"})
	APIActiveRequests = gauge("api", "active_requests",
		"API requests being served.")
	APIRateLimitHits = counterVec("api", "rate_limit_hits_total",
		"Requests rejected by the rate limiter.", "endpoint")

	WSConnections = gauge("websocket", "connections_active",
		"Open viewer connections.")
	WSMessagesSent = counterVec("websocket", "messages_sent_total",
		"Messages queued to viewers by type.", "message_type")
	WSMessagesDropped = counter("websocket", "messages_dropped_total",
		"Messages dropped on a full buffer.")
)

// Inference circuit breaker.
var (
	CircuitBreakerState = gaugeVec("circuit_breaker", "state",
		"Breaker state: 0 closed, 1 half-open, 2 open.", "name")
	CircuitBreakerRequests = counterVec("circuit_breaker", "requests_total",
		"Calls through the breaker by result (success, failure, rejected).", "name", "result")
	CircuitBreakerConsecutiveFailures = gaugeVec("circuit_breaker", "consecutive_failures",
		"Current run of consecutive failures.", "name")
	CircuitBreakerTransitions = counterVec("circuit_breaker", "state_transitions_total",
		"Breaker state changes.", "name", "from_state", "to_state")
)

// RecordTickSkipped counts a tick that did not send a frame.
func RecordTickSkipped(reason string) {
	AttentionTicks.WithLabelValues(TickSkipped).Inc()
	AttentionTicksSkipped.WithLabelValues(reason).Inc()
}

func RecordAttentionRequest(result string, d time.Duration) {
	AttentionRequests.WithLabelValues(result).Inc()
	AttentionRequestDuration.Observe(d.Seconds())
}

func RecordAcquisition(result string) {
	CaptureAcquisitions.WithLabelValues(result).Inc()
}

func RecordGateOperation(operation string, err error) {
	GateOperations.WithLabelValues(operation, outcome(err)).Inc()
}

func RecordEventPublish(sink string, err error) {
	EventsPublished.WithLabelValues(sink, outcome(err)).Inc()
}

func RecordAPIRequest(method, endpoint, statusCode string, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// TrackActiveRequest moves the in-progress gauge up on start and down on finish.
func TrackActiveRequest(started bool) {
	if started {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}

func outcome(err error) string {
	if err != nil {
		return resultError
	}
	return ResultSuccess
}
