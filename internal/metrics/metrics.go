// Package metrics exposes Prometheus counters and histograms for report
// rendering, mail delivery, and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the services report to.
type Recorder interface {
	RecordSubmission(result string)
	RecordRender(d time.Duration)
	RecordEmail(result string)
	RecordDownload()
	RecordDeletion()
}

// Result labels.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Collector implements Recorder with Prometheus metrics.
type Collector struct {
	submissions  *prometheus.CounterVec
	renderTime   prometheus.Histogram
	emails       *prometheus.CounterVec
	downloads    prometheus.Counter
	deletions    prometheus.Counter
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewCollector creates the collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workdoc_submissions_total",
			Help: "Report submissions by result.",
		}, []string{"result"}),
		renderTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "workdoc_render_duration_seconds",
			Help:    "Time spent rendering a report.",
			Buckets: prometheus.DefBuckets,
		}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workdoc_emails_total",
			Help: "Report emails by result.",
		}, []string{"result"}),
		downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workdoc_downloads_total",
			Help: "Report downloads.",
		}),
		deletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workdoc_deletions_total",
			Help: "Deleted submissions.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workdoc_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workdoc_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		c.submissions,
		c.renderTime,
		c.emails,
		c.downloads,
		c.deletions,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) RecordSubmission(result string) {
	c.submissions.WithLabelValues(result).Inc()
}

func (c *Collector) RecordRender(d time.Duration) {
	c.renderTime.Observe(d.Seconds())
}

func (c *Collector) RecordEmail(result string) {
	c.emails.WithLabelValues(result).Inc()
}

func (c *Collector) RecordDownload() {
	c.downloads.Inc()
}

func (c *Collector) RecordDeletion() {
	c.deletions.Inc()
}

// RecordHTTP counts one served request.
func (c *Collector) RecordHTTP(method string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method).Observe(d.Seconds())
}

// Handler serves the metrics gathered by gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordSubmission(string) {}
func (Nop) RecordRender(time.Duration) {}
func (Nop) RecordEmail(string) {}
func (Nop) RecordDownload() {}
func (Nop) RecordDeletion() {}
