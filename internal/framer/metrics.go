package framer

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an EventSink that records FRAMER's event stream as prometheus
// collectors registered into a caller-supplied registry -- never the
// global default registry, so more than one Framer (as in tests) can run
// in the same process without colliding.
type Metrics struct {
	framesEmitted      prometheus.Counter
	syncAcquired       prometheus.Counter
	syncLost           prometheus.Counter
	flowDefChanges     prometheus.Counter
	allocationErrors   prometheus.Counter
	structuralErrors   prometheus.Counter
	randomAccessFrames prometheus.Counter
	frameBytes         prometheus.Histogram
}

// NewMetrics registers FRAMER's collectors into reg and returns the
// resulting Metrics sink.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		framesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upipe_framer_frames_emitted_total",
			Help: "Total frames emitted by the framer.",
		}),
		syncAcquired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upipe_framer_sync_acquired_total",
			Help: "Total SYNC_ACQUIRED events.",
		}),
		syncLost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upipe_framer_sync_lost_total",
			Help: "Total SYNC_LOST events.",
		}),
		flowDefChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upipe_framer_flow_definition_changes_total",
			Help: "Total NEW_FLOW_DEFINITION events.",
		}),
		allocationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upipe_framer_allocation_errors_total",
			Help: "Total ALLOCATION_ERROR events.",
		}),
		structuralErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upipe_framer_structural_errors_total",
			Help: "Total structural errors that dropped a frame and lost sync.",
		}),
		randomAccessFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upipe_framer_random_access_frames_total",
			Help: "Total frames emitted with the random-access flag set.",
		}),
		frameBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "upipe_framer_frame_bytes",
			Help:    "Size in bytes of emitted frames.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.framesEmitted, m.syncAcquired, m.syncLost, m.flowDefChanges,
		m.allocationErrors, m.structuralErrors, m.randomAccessFrames, m.frameBytes,
	)
	return m
}

// HandleEvent implements EventSink.
func (m *Metrics) HandleEvent(ev Event) {
	switch ev.Kind {
	case EventSyncAcquired:
		m.syncAcquired.Inc()
	case EventSyncLost:
		m.structuralErrors.Inc()
		m.syncLost.Inc()
	case EventNewFlowDefinition:
		m.flowDefChanges.Inc()
	case EventAllocationError:
		m.allocationErrors.Inc()
	}
}

// RecordFrame is called directly by Framer on every successful emission;
// frame-level counters aren't themselves part of the EventKind set.
func (m *Metrics) RecordFrame(byteLen int, randomAccess bool) {
	m.framesEmitted.Inc()
	m.frameBytes.Observe(float64(byteLen))
	if randomAccess {
		m.randomAccessFrames.Inc()
	}
}
