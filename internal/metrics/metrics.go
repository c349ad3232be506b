package metrics

import (
	"OrderFlow/entity"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orderflow"

// Collector holds the flow metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	Transitions        *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	Orders             *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Flow transitions by name",
		}, []string{"transition"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Rejected answers by step kind",
		}, []string{"kind"}),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Order submissions by result",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status",
		}, []string{"route", "status"}),
	}
	reg.MustRegister(
		c.Transitions,
		c.ValidationFailures,
		c.Orders,
		c.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Transition(name string) {
	c.Transitions.WithLabelValues(name).Inc()
}

func (c *Collector) ValidationFailed(kind entity.AnswerKind) {
	c.ValidationFailures.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) Order(result string) {
	c.Orders.WithLabelValues(result).Inc()
}

func (c *Collector) Request(route string, status int) {
	c.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
