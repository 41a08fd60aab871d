package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CallsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callsignal_calls_created_total",
		Help: "Calls created via the signaling endpoint.",
	})

	ActionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callsignal_actions_applied_total",
		Help: "Lifecycle actions applied to calls.",
	}, []string{"action"})

	CallTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callsignal_call_timeouts_total",
		Help: "Calls force-ended by the inactivity check.",
	})

	PushesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callsignal_pushes_sent_total",
		Help: "Push notifications delivered, by channel.",
	}, []string{"channel"})

	PushFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callsignal_push_failures_total",
		Help: "Push notifications that failed to deliver, by channel.",
	}, []string{"channel"})
)
