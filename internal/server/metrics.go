package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upload outcomes by variant, exposed on /metrics. "rejected" covers
// authentication, directory, and validation refusals; "error" covers funding
// and submission failures after the request was accepted for processing.
var uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gateway_uploads_total",
	Help: "Upload attempts by payload variant and outcome.",
}, []string{"variant", "outcome"})

const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

func observe(variant, outcome string) {
	uploadsTotal.WithLabelValues(variant, outcome).Inc()
}
