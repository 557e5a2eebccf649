// package metrics exposes prometheus counters for avatar rebuilds and extras reconciliation.
// Every method is safe to call on a nil *Collectors, so metrics stay optional.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "oxy"

// Collectors groups the counters shared by the avatar and extras packages.
type Collectors struct {
	notifications *prometheus.CounterVec
	rigBuilds     *prometheus.CounterVec
	reconciles    *prometheus.CounterVec
	extras        *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg leaves them unregistered.
//
// Parameters:
//   - reg: the registerer to add the collectors to, or nil
//
// Returns:
//   - *Collectors: the collectors
//   - error: error if registration fails
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "avatar",
			Name:      "notifications_total",
			Help:      "Rebuild notifications delivered to subscribers, by kind.",
		}, []string{"kind"}),
		rigBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "avatar",
			Name:      "rig_builds_total",
			Help:      "Humanoid rig asset builds, by reason.",
		}, []string{"reason"}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "avatar",
			Name:      "reconcile_total",
			Help:      "Skeleton reconciliations, by result.",
		}, []string{"result"}),
		extras: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extras",
			Name:      "outcomes_total",
			Help:      "Extras reconciliation outcomes per item.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		for _, col := range []prometheus.Collector{c.notifications, c.rigBuilds, c.reconciles, c.extras} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// Notification counts one delivered notification of kind.
func (c *Collectors) Notification(kind string) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(kind).Inc()
}

// RigBuild counts one rig asset build for reason.
func (c *Collectors) RigBuild(reason string) {
	if c == nil {
		return
	}
	c.rigBuilds.WithLabelValues(reason).Inc()
}

// Reconcile counts one skeleton reconciliation with result.
func (c *Collectors) Reconcile(result string) {
	if c == nil {
		return
	}
	c.reconciles.WithLabelValues(result).Inc()
}

// ExtrasOutcome counts one extras item outcome, e.g. "attached" or "negative_cached".
func (c *Collectors) ExtrasOutcome(outcome string) {
	if c == nil {
		return
	}
	c.extras.WithLabelValues(outcome).Inc()
}

// NotificationCounter returns the counter for kind, for tests and dashboards.
func (c *Collectors) NotificationCounter(kind string) prometheus.Counter {
	return c.notifications.WithLabelValues(kind)
}

// RigBuildCounter returns the counter for reason.
func (c *Collectors) RigBuildCounter(reason string) prometheus.Counter {
	return c.rigBuilds.WithLabelValues(reason)
}

// ReconcileCounter returns the counter for result.
func (c *Collectors) ReconcileCounter(result string) prometheus.Counter {
	return c.reconciles.WithLabelValues(result)
}

// ExtrasOutcomeCounter returns the counter for outcome.
func (c *Collectors) ExtrasOutcomeCounter(outcome string) prometheus.Counter {
	return c.extras.WithLabelValues(outcome)
}
