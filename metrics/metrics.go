// Package metrics holds the process-wide prometheus collectors. They are
// registered with the default registry and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kittens"

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_active",
		Help:      "Open game socket connections.",
	})

	PlayersRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "players_registered",
		Help:      "Players known to the session registry, connected or awaiting reconnection.",
	})

	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconnects_total",
		Help:      "Successful reconnections.",
	})

	Expirations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_expirations_total",
		Help:      "Players removed after the reconnect grace period.",
	})

	GamesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "games_active",
		Help:      "Lobbies and running games held by the lobby manager.",
	})

	GamesFinished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "games_finished_total",
		Help:      "Games that ended with a winner or with every player gone.",
	})

	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_total",
		Help:      "Upstream messages dispatched, by opcode.",
	}, []string{"opcode"})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Errors returned by handlers, by class.",
	}, []string{"class"})
)
