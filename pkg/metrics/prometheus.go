// Package metrics provides Prometheus metrics for the wordgraph engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace       string
	subsystem       string
	prefix          string
	latencyBuckets  []float64
	constLabels     map[string]string
	refreshInterval time.Duration
	registry        prometheus.Registerer

	// Simulation
	ticks          prometheus.Counter
	tickLatency    prometheus.Histogram
	alpha          prometheus.Gauge
	jitterEvents   prometheus.Counter
	liveLoops      prometheus.Gauge
	loopRestarts   prometheus.Counter
	nodeCount      prometheus.Gauge
	linkCount      prometheus.Gauge
	exitingCount   prometheus.Gauge
	pinnedCount    prometheus.Gauge
	newFlagCleared prometheus.Counter

	// Reconciliation
	snapshotsApplied *prometheus.CounterVec
	nodesAdded       prometheus.Counter
	nodesRemoved     prometheus.Counter
	nodesRestored    prometheus.Counter
	linksDropped     *prometheus.CounterVec
	staleResponses   prometheus.Counter

	// Game commands
	commands         *prometheus.CounterVec
	commandErrors    *prometheus.CounterVec
	guessesDuplicate prometheus.Counter
	historySize      prometheus.Gauge
	collabLatency    *prometheus.HistogramVec
	collabErrors     *prometheus.CounterVec
	breakerState     prometheus.Gauge
	rendererClients  prometheus.Gauge
	framesRendered   prometheus.Counter
	framesDropped    prometheus.Counter

	// Command mailbox
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegisterer(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "wordgraph",
		subsystem:       "engine",
		latencyBuckets:  []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		constLabels:     make(map[string]string),
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval returns how often the process gauges should be sampled.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) name(n string) string {
	return m.prefix + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, Buckets: m.latencyBuckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.ticks = m.counter("ticks_total", "Total number of simulation ticks executed")
	m.tickLatency = m.histogram("tick_latency_milliseconds", "Wall time spent in one simulation tick", m.latencyBuckets)
	m.alpha = m.gauge("alpha", "Current simulation temperature")
	m.jitterEvents = m.counter("jitter_events_total", "Coincident node pairs separated by deterministic jitter")
	m.liveLoops = m.gauge("live_loops", "Scheduler loops currently running")
	m.loopRestarts = m.counter("loop_restarts_total", "Scheduler loops replaced by a restart")
	m.nodeCount = m.gauge("nodes", "Nodes in the current graph (including exiting)")
	m.linkCount = m.gauge("links", "Links in the current graph (including exiting)")
	m.exitingCount = m.gauge("exiting_nodes", "Nodes waiting for their exit transition to finish")
	m.pinnedCount = m.gauge("pinned_nodes", "Nodes currently pinned by a drag")
	m.newFlagCleared = m.counter("new_flag_cleared_total", "Number of isNew flags cleared by their timer")

	m.snapshotsApplied = m.counterVec("snapshots_applied_total", "Snapshots merged into graph state", "kind")
	m.nodesAdded = m.counter("nodes_added_total", "Nodes added by reconciliation")
	m.nodesRemoved = m.counter("nodes_removed_total", "Nodes physically removed after exit")
	m.nodesRestored = m.counter("nodes_restored_total", "Exiting nodes restored before removal")
	m.linksDropped = m.counterVec("links_dropped_total", "Pairwise records dropped during apply", "reason")
	m.staleResponses = m.counter("stale_responses_total", "Collaborator responses discarded for a stale generation")

	m.commands = m.counterVec("commands_total", "Commands executed by the engine loop", "command")
	m.commandErrors = m.counterVec("command_errors_total", "Commands that returned an error", "command")
	m.guessesDuplicate = m.counter("guesses_duplicate_total", "Guesses rejected because the word was already guessed")
	m.historySize = m.gauge("history_size", "Words in the current round's guess history")
	m.collabLatency = m.histogramVec("collaborator_latency_milliseconds", "Similarity collaborator call latency", "operation")
	m.collabErrors = m.counterVec("collaborator_errors_total", "Similarity collaborator call failures", "operation")
	m.breakerState = m.gauge("collaborator_breaker_state", "Circuit breaker state (0 closed, 1 half-open, 2 open)")
	m.rendererClients = m.gauge("renderer_clients", "Connected streaming renderer clients")
	m.framesRendered = m.counter("frames_rendered_total", "Frames painted")
	m.framesDropped = m.counter("frames_dropped_total", "Frames not delivered to a slow or failed client")

	m.queueSize = m.gauge("queue_size", "Commands waiting in the engine mailbox")
	m.queueCapacity = m.gauge("queue_capacity", "Engine mailbox capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Mailbox utilization ratio (size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Commands enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Commands dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Commands rejected by a full or closed mailbox")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Simulation.

// RecordTick records one simulation tick and its latency.
func RecordTick(latencyMs float64) {
	globalManager.ticks.Inc()
	globalManager.tickLatency.Observe(latencyMs)
}

// UpdateAlpha sets the current simulation temperature.
func UpdateAlpha(alpha float64) { globalManager.alpha.Set(alpha) }

// RecordJitter counts a zero-distance pair separated by jitter.
func RecordJitter() { globalManager.jitterEvents.Inc() }

// UpdateLiveLoops sets the number of running scheduler loops.
func UpdateLiveLoops(n int) { globalManager.liveLoops.Set(float64(n)) }

// RecordLoopRestart counts a scheduler loop replaced by Start.
func RecordLoopRestart() { globalManager.loopRestarts.Inc() }

// UpdateGraphSize publishes the node, link, exiting and pinned counts.
func UpdateGraphSize(nodes, links, exiting, pinned int) {
	globalManager.nodeCount.Set(float64(nodes))
	globalManager.linkCount.Set(float64(links))
	globalManager.exitingCount.Set(float64(exiting))
	globalManager.pinnedCount.Set(float64(pinned))
}

// RecordNewFlagCleared counts an isNew flag cleared by its timer.
func RecordNewFlagCleared() { globalManager.newFlagCleared.Inc() }

// Reconciliation.

// RecordSnapshotApplied counts a merged snapshot; kind is "full" or "partial".
func RecordSnapshotApplied(kind string) { globalManager.snapshotsApplied.WithLabelValues(kind).Inc() }

// RecordReconcile adds the per-apply diff sizes.
func RecordReconcile(added, restored int) {
	globalManager.nodesAdded.Add(float64(added))
	globalManager.nodesRestored.Add(float64(restored))
}

// RecordNodeRemoved counts a node physically removed after its exit.
func RecordNodeRemoved() { globalManager.nodesRemoved.Inc() }

// RecordLinkDropped counts a pairwise record dropped for the given reason.
func RecordLinkDropped(reason string) { globalManager.linksDropped.WithLabelValues(reason).Inc() }

// RecordStaleResponse counts a collaborator result discarded by the generation check.
func RecordStaleResponse() { globalManager.staleResponses.Inc() }

// Commands and collaborators.

// RecordCommand counts a command executed on the engine loop.
func RecordCommand(name string) { globalManager.commands.WithLabelValues(name).Inc() }

// RecordCommandError counts a command that failed.
func RecordCommandError(name string) { globalManager.commandErrors.WithLabelValues(name).Inc() }

// RecordGuessDuplicate counts a guess rejected as already seen.
func RecordGuessDuplicate() { globalManager.guessesDuplicate.Inc() }

// UpdateHistorySize sets the number of words in the guess history.
func UpdateHistorySize(n int) { globalManager.historySize.Set(float64(n)) }

// RecordCollaboratorLatency records a similarity collaborator call latency.
func RecordCollaboratorLatency(op string, latencyMs float64) {
	globalManager.collabLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordCollaboratorError counts a failed similarity collaborator call.
func RecordCollaboratorError(op string) { globalManager.collabErrors.WithLabelValues(op).Inc() }

// UpdateBreakerState publishes the circuit breaker state.
func UpdateBreakerState(state int) { globalManager.breakerState.Set(float64(state)) }

// UpdateRendererClients sets the number of connected streaming clients.
func UpdateRendererClients(n int) { globalManager.rendererClients.Set(float64(n)) }

// RecordFrame counts a painted frame.
func RecordFrame() { globalManager.framesRendered.Inc() }

// RecordFrameDropped counts a frame a client did not receive.
func RecordFrameDropped() { globalManager.framesDropped.Inc() }

// Mailbox.

// UpdateQueueSize sets the current mailbox size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the mailbox capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the mailbox utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueueRate.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeueRate.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// Global returns the process-wide manager.
func Global() *Manager { return globalManager }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
