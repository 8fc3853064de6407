package contract

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contract_status_transitions_total",
		Help: "Committed contract status transitions.",
	}, []string{"from", "to"})

	numberCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contract_number_collisions_total",
		Help: "Contract creations retried after a contract number collision.",
	})

	contractsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contracts_created_total",
		Help: "Contracts created, including renewals.",
	})
)

var eventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "contract_events_consumed_total",
	Help: "Contract event tasks processed by the worker.",
}, []string{"type"})
