package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures lifecycle events emitted by a connection registry.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. They should be inexpensive to call because hooks are
// executed inline with connect and disconnect paths.
type Collector interface {
	IncConnect(client string)
	IncConnectFailure(client string)
	IncDisconnect(client string)
	SetOpenConnections(count int)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncConnect(string)        {}
func (noopCollector) IncConnectFailure(string) {}
func (noopCollector) IncDisconnect(string)     {}
func (noopCollector) SetOpenConnections(int)   {}

// PrometheusCollector exposes registry lifecycle counters via Prometheus.
type PrometheusCollector struct {
	connects        *prometheus.CounterVec
	connectFailures *prometheus.CounterVec
	disconnects     *prometheus.CounterVec
	openConnections prometheus.Gauge
}

var (
	metricsLock     sync.Mutex
	connectCounter  *prometheus.CounterVec
	failureCounter  *prometheus.CounterVec
	closeCounter    *prometheus.CounterVec
	openConnsGauge  prometheus.Gauge
)

// NewPrometheusCollector registers the required metrics with the provided
// registerer. Metrics survive repeated collector construction against the
// same registerer; an existing registration is reused.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	metricsLock.Lock()
	defer metricsLock.Unlock()

	if connectCounter == nil {
		counter, err := registerCounterVec(reg, prometheus.CounterOpts{
			Name: "docstore_registry_connect_total",
			Help: "Number of connections established per client.",
		}, []string{"client"})
		if err != nil {
			return nil, err
		}
		connectCounter = counter
	}
	if failureCounter == nil {
		counter, err := registerCounterVec(reg, prometheus.CounterOpts{
			Name: "docstore_registry_connect_failures_total",
			Help: "Number of failed connection attempts per client.",
		}, []string{"client"})
		if err != nil {
			return nil, err
		}
		failureCounter = counter
	}
	if closeCounter == nil {
		counter, err := registerCounterVec(reg, prometheus.CounterOpts{
			Name: "docstore_registry_disconnect_total",
			Help: "Number of connections closed per client.",
		}, []string{"client"})
		if err != nil {
			return nil, err
		}
		closeCounter = counter
	}
	if openConnsGauge == nil {
		gauge, err := registerGauge(reg, prometheus.GaugeOpts{
			Name: "docstore_registry_open_connections",
			Help: "Number of currently open connections across all clients.",
		})
		if err != nil {
			return nil, err
		}
		openConnsGauge = gauge
	}

	return &PrometheusCollector{
		connects:        connectCounter,
		connectFailures: failureCounter,
		disconnects:     closeCounter,
		openConnections: openConnsGauge,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels []string) (*prometheus.CounterVec, error) {
	counter := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, opts prometheus.GaugeOpts) (prometheus.Gauge, error) {
	gauge := prometheus.NewGauge(opts)
	if err := reg.Register(gauge); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return gauge, nil
}

// IncConnect increments the established-connection counter for a client.
func (p *PrometheusCollector) IncConnect(client string) {
	if p == nil || p.connects == nil {
		return
	}
	p.connects.WithLabelValues(client).Inc()
}

// IncConnectFailure records a failed connection attempt for a client.
func (p *PrometheusCollector) IncConnectFailure(client string) {
	if p == nil || p.connectFailures == nil {
		return
	}
	p.connectFailures.WithLabelValues(client).Inc()
}

// IncDisconnect records a closed connection for a client.
func (p *PrometheusCollector) IncDisconnect(client string) {
	if p == nil || p.disconnects == nil {
		return
	}
	p.disconnects.WithLabelValues(client).Inc()
}

// SetOpenConnections updates the gauge tracking currently open connections.
func (p *PrometheusCollector) SetOpenConnections(count int) {
	if p == nil || p.openConnections == nil {
		return
	}
	p.openConnections.Set(float64(count))
}
