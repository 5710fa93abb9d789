// Package metrics exposes the tick loop and session counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"voxelyard.dev/internal/persistence/indexdb"
)

const namespace = "voxelyard"

// Collectors implements world.Metrics and the connection and chat hooks used
// by the websocket server.
type Collectors struct {
	tickDuration prometheus.Histogram
	outcomes     *prometheus.CounterVec
	placed       prometheus.Gauge
	clients      prometheus.Gauge
	chat         *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent inside one world tick.",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "interactions_total",
			Help:      "Interactions by outcome.",
		}, []string{"outcome"}),
		placed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "placed_blocks",
			Help:      "Blocks currently placed by the player.",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "connected_clients",
			Help:      "Open websocket sessions.",
		}),
		chat: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat prompts by result (ok, demo, error, busy).",
		}, []string{"result"}),
	}
	if reg != nil {
		for _, col := range []prometheus.Collector{c.tickDuration, c.outcomes, c.placed, c.clients, c.chat} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Collectors) ObserveTick(d time.Duration) { c.tickDuration.Observe(d.Seconds()) }

func (c *Collectors) CountOutcome(outcome string) { c.outcomes.WithLabelValues(outcome).Inc() }

func (c *Collectors) SetPlaced(n int) { c.placed.Set(float64(n)) }

func (c *Collectors) ClientConnected() { c.clients.Inc() }

func (c *Collectors) ClientDisconnected() { c.clients.Dec() }

func (c *Collectors) CountChat(result string) { c.chat.WithLabelValues(result).Inc() }

// RegisterIndexQueue exposes the sqlite writer queue. stats is read on every
// scrape.
func RegisterIndexQueue(reg prometheus.Registerer, stats func() indexdb.QueueStats) error {
	cols := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "queue_depth",
			Help:      "Writes waiting for the index writer.",
		}, func() float64 { return float64(stats().QueueDepth) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "queue_capacity",
			Help:      "Size of the index write queue.",
		}, func() float64 { return float64(stats().QueueCapacity) }),
	}
	drops := map[string]func(indexdb.QueueStats) uint64{
		"tick":       func(s indexdb.QueueStats) uint64 { return s.DropTickTotal },
		"audit":      func(s indexdb.QueueStats) uint64 { return s.DropAuditTotal },
		"submission": func(s indexdb.QueueStats) uint64 { return s.DropSubmissionTotal },
	}
	for kind, get := range drops {
		cols = append(cols, prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "index",
			Name:        "dropped_total",
			Help:        "Index writes dropped because the queue was full.",
			ConstLabels: prometheus.Labels{"kind": kind},
		}, func() float64 { return float64(get(stats())) }))
	}
	for _, col := range cols {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}
