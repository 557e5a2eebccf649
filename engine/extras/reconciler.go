package extras

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rig/engine/avatar"
	"github.com/Carmen-Shannon/oxy-rig/engine/config"
	"github.com/Carmen-Shannon/oxy-rig/engine/event"
	"github.com/Carmen-Shannon/oxy-rig/engine/humanoid"
	"github.com/Carmen-Shannon/oxy-rig/engine/metrics"
	"github.com/google/uuid"
)

// Target is the avatar surface the reconciler drives. avatar.Avatar satisfies it.
type Target interface {
	SetHumanRig(desc *humanoid.Description)
	ClearHumanRig()
	AttachComponent(c avatar.Component) error
	DetachComponent(slot string) error
	Component(slot string) (avatar.Component, bool)
	Edit(fn func())
	Disposed() *event.Event[avatar.Avatar]
}

type reconciler struct {
	target   Target
	decoder  PayloadDecoder
	ownsDec  bool
	negative *NegativeCache

	humanType   string
	humanHash   string
	attached    []*AttachedExtra
	byHash      map[string]*AttachedExtra
	pool        worker.DynamicWorkerPool
	workers     int
	disposed    bool
	targetGone  bool
	unsubscribe func()

	cfg     *config.Config
	metrics *metrics.Collectors
	logger  *slog.Logger
}

// Reconciler synchronizes an avatar's extras-driven state with the latest extras list.
//
// Items are identified by content hash: an unchanged hash is never decoded or attached
// twice, and a hash that failed to decode is remembered in the NegativeCache and skipped.
// Failures never reach the caller; each bad item is logged and skipped so the rest of the
// avatar still assembles.
// Not safe for concurrent use; SyncExtras must be called from the avatar's goroutine.
// Payload decoding runs on a worker pool but results are applied on the caller's goroutine.
// Unless WithWorkerPool supplies one, reconcilers with the same worker count share a single
// process-wide pool.
type Reconciler interface {
	// SyncExtras reconciles the target against items. The human description item, if any,
	// is applied first; component items are attached next; attachments whose hash is no
	// longer listed are released last. The target sees a single edit transaction.
	//
	// Parameters:
	//   - items: the ordered extras list
	SyncExtras(items []Item)

	// Attached returns the current attachments in attach order.
	//
	// Returns:
	//   - []*AttachedExtra: the attachments
	Attached() []*AttachedExtra

	// HumanDescriptionHash returns the hash of the applied human description, or "".
	HumanDescriptionHash() string

	// NegativeCache returns the cache of known-bad payload hashes.
	NegativeCache() *NegativeCache

	// Dispose releases every attachment. Called automatically when the target is disposed.
	Dispose()
}

var _ Reconciler = &reconciler{}

// NewReconciler creates a Reconciler driving target.
//
// Parameters:
//   - target: the avatar to reconcile
//   - options: functional options to configure the reconciler
//
// Returns:
//   - Reconciler: the reconciler
func NewReconciler(target Target, options ...ReconcilerBuilderOption) Reconciler {
	if target == nil {
		panic("extras: NewReconciler requires a non-nil Target")
	}
	r := &reconciler{
		target: target,
		byHash: make(map[string]*AttachedExtra),
		logger: slog.Default(),
	}
	for _, option := range options {
		option(r)
	}
	if r.cfg == nil {
		r.cfg = config.Default()
	}
	if r.humanType == "" {
		r.humanType = r.cfg.Extras.HumanDescriptionType
	}
	if r.workers < 1 {
		r.workers = r.cfg.Extras.DecodeWorkers
	}
	if r.negative == nil {
		r.negative = NewNegativeCache(r.cfg.Extras.NegativeCacheSize)
	}
	if r.decoder == nil {
		r.decoder = NewDecoder()
		r.ownsDec = true
	}
	r.unsubscribe = target.Disposed().Subscribe(func(avatar.Avatar) {
		r.targetGone = true
		r.Dispose()
	})
	return r
}

func (r *reconciler) SyncExtras(items []Item) {
	if r.disposed {
		r.logger.Warn("extras: ignoring sync after dispose", "items", len(items))
		return
	}

	normalized := make([]Item, len(items))
	for i, item := range items {
		if item.Hash == "" {
			item.Hash = HashPayload(item.Payload)
		}
		normalized[i] = item
	}

	r.target.Edit(func() {
		r.syncHumanDescription(normalized)
		seen := r.syncComponents(normalized)
		r.releaseUnseen(seen)
	})
}

func (r *reconciler) Attached() []*AttachedExtra {
	out := make([]*AttachedExtra, len(r.attached))
	copy(out, r.attached)
	return out
}

func (r *reconciler) HumanDescriptionHash() string {
	return r.humanHash
}

func (r *reconciler) NegativeCache() *NegativeCache {
	return r.negative
}

func (r *reconciler) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	releaseAll := func() {
		for i := len(r.attached) - 1; i >= 0; i-- {
			r.release(r.attached[i])
		}
	}
	if r.targetGone {
		releaseAll()
	} else {
		r.target.Edit(releaseAll)
	}
	r.attached = nil
	r.byHash = make(map[string]*AttachedExtra)
	if r.ownsDec {
		r.decoder.Close()
	}
}

// syncHumanDescription applies the first human description item, or clears a description
// previously applied from extras when none is listed.
func (r *reconciler) syncHumanDescription(items []Item) {
	var found *Item
	for i := range items {
		if items[i].Type != r.humanType {
			continue
		}
		if found != nil {
			r.logger.Warn("extras: ignoring additional human description", "hash", items[i].Hash)
			continue
		}
		found = &items[i]
	}

	if found == nil {
		if r.humanHash != "" {
			r.target.ClearHumanRig()
			r.humanHash = ""
			r.metrics.ExtrasOutcome("human_cleared")
		}
		return
	}
	if found.Hash == r.humanHash {
		return
	}
	if r.negative.Contains(found.Hash) {
		r.metrics.ExtrasOutcome("negative_cached")
		return
	}

	desc, err := r.decoder.DecodeHumanDescription(found.Payload)
	if err != nil {
		r.negative.Add(found.Hash)
		r.metrics.ExtrasOutcome("failed")
		r.logger.Error("extras: failed to decode human description", "hash", found.Hash, "error", err)
		return
	}
	r.target.SetHumanRig(desc)
	r.humanHash = found.Hash
	r.metrics.ExtrasOutcome("human_applied")
}

type decodeResult struct {
	decoded Decoded
	err     error
}

// syncComponents keeps known hashes, decodes new payloads in parallel and attaches the
// results in input order. It returns the set of hashes that are attached afterwards.
func (r *reconciler) syncComponents(items []Item) map[string]struct{} {
	seen := make(map[string]struct{}, len(items))
	listed := make(map[string]struct{}, len(items))
	var pending []Item
	queued := make(map[string]struct{})

	for _, item := range items {
		if item.Type == r.humanType {
			continue
		}
		listed[item.Hash] = struct{}{}
		if extra, ok := r.byHash[item.Hash]; ok {
			if r.stillAttached(extra) {
				seen[item.Hash] = struct{}{}
				r.metrics.ExtrasOutcome("kept")
				continue
			}
			r.logger.Warn("extras: component was detached by the avatar, attaching again",
				"slot", extra.Component.Slot(), "hash", extra.Hash)
			r.forget(extra)
			r.metrics.ExtrasOutcome("lost")
		}
		if _, dup := queued[item.Hash]; dup {
			continue
		}
		if r.negative.Contains(item.Hash) {
			r.metrics.ExtrasOutcome("negative_cached")
			continue
		}
		queued[item.Hash] = struct{}{}
		pending = append(pending, item)
	}

	results := r.decodeAll(pending)
	for i, item := range pending {
		if extra, ok := r.attach(item, results[i], listed); ok {
			seen[extra.Hash] = struct{}{}
		}
	}
	return seen
}

// stillAttached reports whether the avatar still holds extra's component in its slot.
func (r *reconciler) stillAttached(extra *AttachedExtra) bool {
	c, ok := r.target.Component(extra.Component.Slot())
	return ok && c == extra.Component
}

// forget drops extra from the registry and disposes its creator without touching the target.
func (r *reconciler) forget(extra *AttachedExtra) {
	extra.creator.Dispose()
	r.unregister(extra)
}

func (r *reconciler) unregister(extra *AttachedExtra) {
	delete(r.byHash, extra.Hash)
	if i := slices.Index(r.attached, extra); i >= 0 {
		r.attached = slices.Delete(r.attached, i, i+1)
	}
}

// freeSlot releases the extra holding slot when its hash is no longer listed, so a
// replacement payload can take the slot within the same sync.
func (r *reconciler) freeSlot(slot string, listed map[string]struct{}) {
	for _, extra := range r.attached {
		if extra.Component.Slot() != slot {
			continue
		}
		if _, ok := listed[extra.Hash]; ok {
			return
		}
		r.release(extra)
		r.unregister(extra)
		r.metrics.ExtrasOutcome("released")
		return
	}
}

// decodeAll decodes payloads on the worker pool. results[i] belongs to items[i].
func (r *reconciler) decodeAll(items []Item) []decodeResult {
	results := make([]decodeResult, len(items))
	if len(items) == 1 {
		results[0].decoded, results[0].err = r.decoder.DecodeComponent(items[0].Payload)
		return results
	}

	pool := r.decodePool()
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		idx := i
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				results[idx].decoded, results[idx].err = r.decoder.DecodeComponent(items[idx].Payload)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return results
}

func (r *reconciler) attach(item Item, res decodeResult, listed map[string]struct{}) (*AttachedExtra, bool) {
	if res.err != nil {
		r.negative.Add(item.Hash)
		r.metrics.ExtrasOutcome("failed")
		r.logger.Error("extras: failed to decode component", "type", item.Type, "hash", item.Hash, "error", res.err)
		return nil, false
	}
	if res.decoded.Kind == DecodedUnsupported {
		r.negative.Add(item.Hash)
		r.metrics.ExtrasOutcome("unsupported")
		r.logger.Error("extras: payload is not a component creator", "type", item.Type, "hash", item.Hash, "reason", res.decoded.Reason)
		return nil, false
	}

	creator := res.decoded.Creator
	component, err := creator.CreateComponent()
	if err != nil {
		creator.Dispose()
		r.negative.Add(item.Hash)
		r.metrics.ExtrasOutcome("failed")
		r.logger.Error("extras: failed to create component", "type", item.Type, "hash", item.Hash, "error", err)
		return nil, false
	}
	r.freeSlot(component.Slot(), listed)
	if err := r.target.AttachComponent(component); err != nil {
		creator.Dispose()
		r.metrics.ExtrasOutcome("rejected")
		r.logger.Warn("extras: component attachment rejected", "type", item.Type, "hash", item.Hash, "error", err)
		return nil, false
	}

	extra := &AttachedExtra{
		ID:        uuid.New(),
		Hash:      item.Hash,
		Type:      item.Type,
		Component: component,
		creator:   creator,
	}
	r.attached = append(r.attached, extra)
	r.byHash[extra.Hash] = extra
	r.metrics.ExtrasOutcome("attached")
	return extra, true
}

func (r *reconciler) decodePool() worker.DynamicWorkerPool {
	if r.pool != nil {
		return r.pool
	}
	return sharedDecodePool(r.workers)
}

var (
	sharedPoolsMu sync.Mutex
	sharedPools   = map[int]worker.DynamicWorkerPool{}
)

// sharedDecodePool returns the process-wide pool with the given worker count, creating it on
// first use.
func sharedDecodePool(workers int) worker.DynamicWorkerPool {
	sharedPoolsMu.Lock()
	defer sharedPoolsMu.Unlock()
	pool, ok := sharedPools[workers]
	if !ok {
		pool = worker.NewDynamicWorkerPool(workers, 256, time.Second)
		sharedPools[workers] = pool
	}
	return pool
}

func (r *reconciler) releaseUnseen(seen map[string]struct{}) {
	kept := r.attached[:0]
	for _, extra := range r.attached {
		if _, ok := seen[extra.Hash]; ok {
			kept = append(kept, extra)
			continue
		}
		r.release(extra)
		delete(r.byHash, extra.Hash)
		r.metrics.ExtrasOutcome("released")
	}
	clear(r.attached[len(kept):])
	r.attached = kept
}

// release detaches the component from the target, unless the target is gone, and disposes
// the creator artifact.
func (r *reconciler) release(extra *AttachedExtra) {
	if !r.targetGone {
		err := r.target.DetachComponent(extra.Component.Slot())
		if err != nil && !errors.Is(err, avatar.ErrComponentNotAttached) {
			r.logger.Warn("extras: failed to detach component", "hash", extra.Hash, "error", err)
		}
	}
	extra.creator.Dispose()
}
