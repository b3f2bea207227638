package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records the observable behavior of the checkout core:
// gateway round trips, cart verification outcomes, and payment session
// terminal phases.
type CheckoutMetrics struct {
	gatewayDuration *prometheus.HistogramVec
	verifyAttempts  *prometheus.CounterVec
	pollTicks       prometheus.Counter
	sessionOutcomes *prometheus.CounterVec
}

// NewCheckoutMetrics registers the collectors on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_call_duration_seconds",
		Help:    "Duration of commerce backend round trips.",
		Buckets: prometheus.DefBuckets,
	}, []string{"call", "outcome"})
	verifyAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_verification_total",
		Help: "Cart consistency verification runs by outcome.",
	}, []string{"outcome"})
	pollTicks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_poll_ticks_total",
		Help: "Payment verification polls issued by active sessions.",
	})
	sessionOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_session_outcomes_total",
		Help: "Payment sessions reaching a terminal phase.",
	}, []string{"phase"})
	reg.MustRegister(gatewayDuration, verifyAttempts, pollTicks, sessionOutcomes)
	return &CheckoutMetrics{
		gatewayDuration: gatewayDuration,
		verifyAttempts:  verifyAttempts,
		pollTicks:       pollTicks,
		sessionOutcomes: sessionOutcomes,
	}
}

// ObserveGatewayCall records one backend round trip.
func (c *CheckoutMetrics) ObserveGatewayCall(call, outcome string, duration time.Duration) {
	if c == nil || c.gatewayDuration == nil {
		return
	}
	c.gatewayDuration.WithLabelValues(normalizeLabel(call), normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncVerification counts a verification run ("verified" or "unverified").
func (c *CheckoutMetrics) IncVerification(outcome string) {
	if c == nil || c.verifyAttempts == nil {
		return
	}
	c.verifyAttempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncPollTick counts one automatic payment poll.
func (c *CheckoutMetrics) IncPollTick() {
	if c == nil || c.pollTicks == nil {
		return
	}
	c.pollTicks.Inc()
}

// IncSessionOutcome counts a session reaching a terminal phase.
func (c *CheckoutMetrics) IncSessionOutcome(phase string) {
	if c == nil || c.sessionOutcomes == nil {
		return
	}
	c.sessionOutcomes.WithLabelValues(normalizeLabel(phase)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
