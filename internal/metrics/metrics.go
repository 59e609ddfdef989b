package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors for the payment lifecycle. Registered by the server at startup.
var (
	IntentsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_intents_created_total",
			Help: "Total number of payment intents created at the gateway",
		},
	)

	IntentsCanceledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_intents_canceled_total",
			Help: "Total number of payment intents canceled by the client",
		},
	)

	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	WebhookVerificationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_verification_failures_total",
			Help: "Webhook deliveries rejected at the signature check",
		},
	)

	SweeperReconciledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sweeper_reconciled_total",
			Help: "Stale intents resolved by polling the gateway",
		},
	)
)

// Register adds all collectors to reg. Call once.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		IntentsCreatedTotal,
		IntentsCanceledTotal,
		WebhookEventsTotal,
		WebhookVerificationFailuresTotal,
		SweeperReconciledTotal,
	)
}
