// Package metrics defines the prometheus collectors of one server instance.
// Each server owns its own registry; nothing is registered globally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the collectors shared by the registry and the orchestrator
type Metrics struct {
	Registry *prometheus.Registry

	Requests    *prometheus.CounterVec
	Connections prometheus.Gauge
	Uploads     *prometheus.CounterVec
	Spawns      *prometheus.CounterVec
	RoomsPlay   prometheus.Gauge
}

// New creates and registers the collectors for the named server
// ("store" or "lobby")
func New(server string) *Metrics {
	labels := prometheus.Labels{"server": server}
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gamehub_requests_total",
			Help:        "Framed requests handled, by op and response code.",
			ConstLabels: labels,
		}, []string{"op", "code"}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gamehub_connections_active",
			Help:        "Open client connections.",
			ConstLabels: labels,
		}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gamehub_uploads_total",
			Help:        "Bundle uploads, by result code.",
			ConstLabels: labels,
		}, []string{"result"}),
		Spawns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gamehub_spawns_total",
			Help:        "Game server spawn attempts, by result code.",
			ConstLabels: labels,
		}, []string{"result"}),
		RoomsPlay: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gamehub_rooms_playing",
			Help:        "Rooms with a running game server.",
			ConstLabels: labels,
		}),
	}

	m.Registry.MustRegister(
		m.Requests,
		m.Connections,
		m.Uploads,
		m.Spawns,
		m.RoomsPlay,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
