package status

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the watcher's operational counters.
type Metrics struct {
	registry       *prometheus.Registry
	ticks          prometheus.Counter
	lcuErrors      prometheus.Counter
	sharesReceived prometheus.Counter
	sharesSent     prometheus.Counter
	injections     prometheus.Counter
	sessionResets  prometheus.Counter
}

// NewMetrics builds a registry with process/Go collectors plus the watcher
// counters.
func NewMetrics(namespace string) *Metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	ticks := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "ticks_total"})
	lcuErrors := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "lcu_errors_total"})
	sharesReceived := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "shares_received_total"})
	sharesSent := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "shares_sent_total"})
	injections := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "injections_total"})
	sessionResets := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "session_resets_total"})
	r.MustRegister(ticks, lcuErrors, sharesReceived, sharesSent, injections, sessionResets)

	return &Metrics{
		registry:       r,
		ticks:          ticks,
		lcuErrors:      lcuErrors,
		sharesReceived: sharesReceived,
		sharesSent:     sharesSent,
		injections:     injections,
		sessionResets:  sessionResets,
	}
}

func (m *Metrics) TickDone()       { m.ticks.Inc() }
func (m *Metrics) LCUError()       { m.lcuErrors.Inc() }
func (m *Metrics) ShareReceived()  { m.sharesReceived.Inc() }
func (m *Metrics) ShareSent()      { m.sharesSent.Inc() }
func (m *Metrics) InjectionFired() { m.injections.Inc() }
func (m *Metrics) SessionReset()   { m.sessionResets.Inc() }

// Handler exposes the registry for promhttp.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
