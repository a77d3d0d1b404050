package beacon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processedBlocks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_processed_blocks_total",
		Help: "The number of blocks passed to insert, by processing result.",
	}, []string{"result"})
	reorgCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_reorgs_total",
		Help: "The number of times the canonical head moved to another fork.",
	})
	headSlot = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_head_slot",
		Help: "Slot of the canonical head.",
	})
	insertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "beacon_insert_duration_seconds",
		Help:    "Time spent inserting a block.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_events_dropped_total",
		Help: "The number of events not delivered to slow subscribers.",
	})
)
