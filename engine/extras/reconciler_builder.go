package extras

import (
	"log/slog"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rig/engine/config"
	"github.com/Carmen-Shannon/oxy-rig/engine/metrics"
)

// ReconcilerBuilderOption is a functional option for configuring a Reconciler via NewReconciler.
type ReconcilerBuilderOption func(*reconciler)

// WithLogger sets the structured logger for skipped items.
//
// Parameters:
//   - logger: the logger to use; nil keeps slog.Default()
//
// Returns:
//   - ReconcilerBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) ReconcilerBuilderOption {
	return func(r *reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConfig supplies the human description type, negative cache size and worker count.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - ReconcilerBuilderOption: option function to apply
func WithConfig(cfg *config.Config) ReconcilerBuilderOption {
	return func(r *reconciler) {
		r.cfg = cfg
	}
}

// WithMetrics records per-item outcomes on c.
//
// Parameters:
//   - c: the collectors; nil disables metrics
//
// Returns:
//   - ReconcilerBuilderOption: option function to apply
func WithMetrics(c *metrics.Collectors) ReconcilerBuilderOption {
	return func(r *reconciler) {
		r.metrics = c
	}
}

// WithNegativeCache shares an existing negative cache. The caller controls its lifetime.
//
// Parameters:
//   - cache: the cache
//
// Returns:
//   - ReconcilerBuilderOption: option function to apply
func WithNegativeCache(cache *NegativeCache) ReconcilerBuilderOption {
	return func(r *reconciler) {
		r.negative = cache
	}
}

// WithDecoder replaces the payload decoder. A supplied decoder is not closed by Dispose.
//
// Parameters:
//   - d: the decoder
//
// Returns:
//   - ReconcilerBuilderOption: option function to apply
func WithDecoder(d PayloadDecoder) ReconcilerBuilderOption {
	return func(r *reconciler) {
		r.decoder = d
	}
}

// WithHumanDescriptionType overrides the item type carrying the human description.
func WithHumanDescriptionType(itemType string) ReconcilerBuilderOption {
	return func(r *reconciler) {
		r.humanType = itemType
	}
}

// WithDecodeWorkers overrides the number of workers decoding payloads.
func WithDecodeWorkers(n int) ReconcilerBuilderOption {
	return func(r *reconciler) {
		r.workers = n
	}
}

// WithWorkerPool decodes payloads on pool instead of the shared pool. The caller owns the
// pool; Dispose does not stop it.
//
// Parameters:
//   - pool: the worker pool; nil keeps the shared pool
//
// Returns:
//   - ReconcilerBuilderOption: option function to apply
func WithWorkerPool(pool worker.DynamicWorkerPool) ReconcilerBuilderOption {
	return func(r *reconciler) {
		r.pool = pool
	}
}
