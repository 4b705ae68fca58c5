// Package metrics exposes parse-quality counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/insightdelivered/statement-layout-parser/internal/models"
)

const namespace = "statement_parser"

// Recorder counts documents, anchors and transactions per issuer. It
// satisfies statement.Observer.
type Recorder struct {
	registry     *prometheus.Registry
	documents    *prometheus.CounterVec
	pages        *prometheus.CounterVec
	anchors      *prometheus.CounterVec
	transactions *prometheus.CounterVec
	rejections   *prometheus.CounterVec
}

// NewRecorder registers the counters on a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Statements processed, by issuer and status.",
		}, []string{"issuer", "status"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Statement pages processed, by issuer.",
		}, []string{"issuer"}),
		anchors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anchors_total",
			Help:      "Candidate rows found, by issuer.",
		}, []string{"issuer"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Candidate rows resolved into transactions, by issuer.",
		}, []string{"issuer"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Candidate rows rejected, by issuer and reason.",
		}, []string{"issuer", "reason"}),
	}
	r.registry.MustRegister(r.documents, r.pages, r.anchors, r.transactions, r.rejections)
	return r
}

// ObserveStatement records the outcome of one document.
func (r *Recorder) ObserveStatement(issuer models.IssuerID, info *models.StatementInfo, err error) {
	id := string(issuer)
	if id == "" {
		id = string(models.IssuerUnknown)
	}
	if err != nil {
		r.documents.WithLabelValues(id, "error").Inc()
		return
	}
	r.documents.WithLabelValues(id, "ok").Inc()
	if info == nil {
		return
	}
	r.pages.WithLabelValues(id).Add(float64(info.Pages))
	r.anchors.WithLabelValues(id).Add(float64(info.AnchorsFound()))
	r.transactions.WithLabelValues(id).Add(float64(len(info.Transactions)))
	for reason, n := range info.Rejected() {
		r.rejections.WithLabelValues(id, string(reason)).Add(float64(n))
	}
}

// Handler serves the counters in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
