package observe

import (
	"db-automigrate/internal/engine"
	"db-automigrate/internal/schema"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts schema mutations in its own registry.
type Metrics struct {
	registry *prometheus.Registry

	Changes          *prometheus.CounterVec
	TablesReconciled prometheus.Counter
	TablesChanged    prometheus.Counter
}

var _ engine.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_changes_total",
			Help:      "Total number of schema mutations applied",
		}, []string{"kind"}),
		TablesReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tables_reconciled_total",
			Help:      "Total number of tables checked against the model",
		}),
		TablesChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tables_changed_total",
			Help:      "Total number of tables that needed at least one mutation",
		}),
	}
	reg.MustRegister(m.Changes, m.TablesReconciled, m.TablesChanged)
	return m
}

// WriteToTextfile writes the metrics in the node_exporter textfile format.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) TableCreated(*schema.TargetTable) {
	m.Changes.WithLabelValues("table_created").Inc()
}

func (m *Metrics) ColumnAdded(*schema.TargetColumn) {
	m.Changes.WithLabelValues("column_added").Inc()
}

func (m *Metrics) ColumnChanged(*schema.LiveColumn, *schema.TargetColumn) {
	m.Changes.WithLabelValues("column_changed").Inc()
}

func (m *Metrics) IndexCreated(*schema.TargetIndex) {
	m.Changes.WithLabelValues("index_created").Inc()
}

func (m *Metrics) IndexDropped(*schema.TargetTable, string) {
	m.Changes.WithLabelValues("index_dropped").Inc()
}

func (m *Metrics) TableReconciled(_ *schema.TargetTable, changes *engine.TableResult) {
	m.TablesReconciled.Inc()
	if !changes.Empty() {
		m.TablesChanged.Inc()
	}
}
