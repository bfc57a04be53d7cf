package cloudmetrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder accepts portfolio-level events emitted by domain services.
type Recorder interface {
	RecordPaymentRecorded(orgID, paymentType string)
	RecordContractActivated(orgID string)
	RecordMaintenanceOpened(orgID, priority string)
	UpdateActiveContracts(orgID string, count int)
}

type metrics struct {
	paymentsRecorded   *prometheus.CounterVec
	contractsActivated *prometheus.CounterVec
	maintenanceOpened  *prometheus.CounterVec
	activeContracts    *prometheus.GaugeVec
	organizationsTotal prometheus.Gauge
	occupiedUnits      prometheus.Gauge
	memoryBytes        prometheus.Gauge
}

func newMetrics(registry *prometheus.Registry) *metrics {
	m := &metrics{
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentflow_cloud_payments_recorded_total",
			Help: "Payments recorded per organization and type.",
		}, []string{"org_id", "type"}),
		contractsActivated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentflow_cloud_contracts_activated_total",
			Help: "Lease contracts activated per organization.",
		}, []string{"org_id"}),
		maintenanceOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentflow_cloud_maintenance_opened_total",
			Help: "Maintenance requests opened per organization and priority.",
		}, []string{"org_id", "priority"}),
		activeContracts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rentflow_cloud_active_contracts",
			Help: "Currently active lease contracts per organization.",
		}, []string{"org_id"}),
		organizationsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rentflow_cloud_organizations_total",
			Help: "Organizations registered on this instance.",
		}),
		occupiedUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rentflow_cloud_occupied_units",
			Help: "Units currently marked occupied on this instance.",
		}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rentflow_cloud_memory_bytes",
			Help: "Process memory obtained from the OS.",
		}),
	}
	if registry != nil {
		registry.MustRegister(
			m.paymentsRecorded,
			m.contractsActivated,
			m.maintenanceOpened,
			m.activeContracts,
			m.organizationsTotal,
			m.occupiedUnits,
			m.memoryBytes,
		)
	}
	return m
}

type recorder struct {
	metrics      *metrics
	defaultOrgID string
}

type noopRecorder struct{}

func (noopRecorder) RecordPaymentRecorded(string, string)   {}
func (noopRecorder) RecordContractActivated(string)         {}
func (noopRecorder) RecordMaintenanceOpened(string, string) {}
func (noopRecorder) UpdateActiveContracts(string, int)      {}

var (
	activeRecorder Recorder = noopRecorder{}
	recorderMu     sync.RWMutex
)

func setRecorder(rec Recorder) {
	if rec == nil {
		return
	}
	recorderMu.Lock()
	activeRecorder = rec
	recorderMu.Unlock()
}

func RecordPaymentRecorded(orgID, paymentType string) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.RecordPaymentRecorded(orgID, paymentType)
}

func RecordContractActivated(orgID string) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.RecordContractActivated(orgID)
}

func RecordMaintenanceOpened(orgID, priority string) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.RecordMaintenanceOpened(orgID, priority)
}

func UpdateActiveContracts(orgID string, count int) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.UpdateActiveContracts(orgID, count)
}

func (r *recorder) RecordPaymentRecorded(orgID, paymentType string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.paymentsRecorded.WithLabelValues(r.normalizeOrg(orgID), normalizeLabel(paymentType)).Inc()
}

func (r *recorder) RecordContractActivated(orgID string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.contractsActivated.WithLabelValues(r.normalizeOrg(orgID)).Inc()
}

func (r *recorder) RecordMaintenanceOpened(orgID, priority string) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.maintenanceOpened.WithLabelValues(r.normalizeOrg(orgID), normalizeLabel(priority)).Inc()
}

func (r *recorder) UpdateActiveContracts(orgID string, count int) {
	if r == nil || r.metrics == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	r.metrics.activeContracts.WithLabelValues(r.normalizeOrg(orgID)).Set(float64(count))
}

func (r *recorder) normalizeOrg(orgID string) string {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		orgID = strings.TrimSpace(r.defaultOrgID)
	}
	if orgID == "" {
		return "unknown"
	}
	return orgID
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
