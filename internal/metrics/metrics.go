package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IssueCouponDuration tracks the latency of coupon issuance.
	IssueCouponDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coupon_issue_duration_seconds",
			Help:    "Duration of coupon issuance in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		},
		[]string{"status"}, // success or failure
	)

	// ValidationsTotal counts coupon validations by outcome.
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_validations_total",
			Help: "Coupon validation results by outcome",
		},
		[]string{"outcome"}, // valid, no_code, invalid_code, expired, depleted
	)

	// GenerationsTotal counts image-generation attempts by outcome.
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_generations_total",
			Help: "Image generation attempts by outcome",
		},
		[]string{"outcome"}, // success, coupon_rejected, api_error
	)

	// SignaturesTotal counts accepted petition signatures.
	SignaturesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "petition_signatures_total",
			Help: "Accepted petition signatures",
		},
	)
)

// RecordIssueCouponDuration records one coupon issuance.
func RecordIssueCouponDuration(status string, seconds float64) {
	IssueCouponDuration.WithLabelValues(status).Observe(seconds)
}

// RecordValidation records one validation outcome.
func RecordValidation(outcome string) {
	ValidationsTotal.WithLabelValues(outcome).Inc()
}

// RecordGeneration records one image-generation outcome.
func RecordGeneration(outcome string) {
	GenerationsTotal.WithLabelValues(outcome).Inc()
}
