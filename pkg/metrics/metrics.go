package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tenantkit"

// Tenancy holds the counters exported by the tenant-isolation components.
// A nil *Tenancy is valid and records nothing.
type Tenancy struct {
	Resolutions          *prometheus.CounterVec
	DirectoryLookups     *prometheus.CounterVec
	CacheDegraded        *prometheus.CounterVec
	SessionsOpened       *prometheus.CounterVec
	SessionSetupFailures *prometheus.CounterVec
	Provisions           *prometheus.CounterVec
}

// NewTenancy creates the counters and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewTenancy(reg prometheus.Registerer) *Tenancy {
	f := promauto.With(reg)
	return &Tenancy{
		Resolutions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Tenant resolution attempts by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		DirectoryLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "directory_lookups_total",
				Help:      "Directory lookups by source (cache or directory)",
			},
			[]string{"source"},
		),
		CacheDegraded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_degraded_total",
				Help:      "Cache operations that failed and were downgraded",
			},
			[]string{"component", "op"},
		),
		SessionsOpened: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_opened_total",
				Help:      "Database sessions handed out, by scope",
			},
			[]string{"scope"},
		),
		SessionSetupFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_setup_failures_total",
				Help:      "Session acquisitions that failed closed, by stage",
			},
			[]string{"stage"},
		),
		Provisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provisions_total",
				Help:      "Tenant provisioning attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (t *Tenancy) Resolution(method, outcome string) {
	if t == nil {
		return
	}
	t.Resolutions.WithLabelValues(method, outcome).Inc()
}

func (t *Tenancy) DirectoryLookup(source string) {
	if t == nil {
		return
	}
	t.DirectoryLookups.WithLabelValues(source).Inc()
}

func (t *Tenancy) Degraded(component, op string) {
	if t == nil {
		return
	}
	t.CacheDegraded.WithLabelValues(component, op).Inc()
}

func (t *Tenancy) SessionOpened(scope string) {
	if t == nil {
		return
	}
	t.SessionsOpened.WithLabelValues(scope).Inc()
}

func (t *Tenancy) SetupFailed(stage string) {
	if t == nil {
		return
	}
	t.SessionSetupFailures.WithLabelValues(stage).Inc()
}

func (t *Tenancy) Provision(outcome string) {
	if t == nil {
		return
	}
	t.Provisions.WithLabelValues(outcome).Inc()
}
