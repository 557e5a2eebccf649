package avatar

// EditTransaction is the scope returned by BeginEditing. While it is active the avatar's
// notifications only set its pending flags; ending it resolves each flag at most once.
type EditTransaction struct {
	owner  *avatar
	active bool

	rebuild              bool
	rootRebuild          bool
	humanSkeletonChanged bool
	boundsDirty          bool
}

// Active reports whether the transaction still defers notifications.
func (tx *EditTransaction) Active() bool {
	return tx != nil && tx.active
}

// End resolves the transaction. Ending an inactive or superseded transaction is a no-op.
func (tx *EditTransaction) End() {
	if !tx.Active() {
		return
	}
	tx.owner.endTransaction(tx)
}

func (a *avatar) BeginEditing() *EditTransaction {
	if a.rejectDisposed("BeginEditing") {
		return &EditTransaction{}
	}
	if a.tx != nil {
		a.EndEditing()
	}
	a.tx = &EditTransaction{owner: a, active: true}
	return a.tx
}

func (a *avatar) EndEditing() {
	if a.tx == nil {
		return
	}
	a.endTransaction(a.tx)
}

func (a *avatar) Editing() bool {
	return a.tx != nil
}

func (a *avatar) Edit(fn func()) {
	tx := a.BeginEditing()
	defer tx.End()
	fn()
}

// endTransaction consumes tx's pending flags. The transaction is detached before resolving
// so notifications raised by subscribers resolve immediately.
func (a *avatar) endTransaction(tx *EditTransaction) {
	if a.tx != tx {
		return
	}
	a.tx = nil
	tx.active = false

	if tx.humanSkeletonChanged {
		a.rebuildRigAsset("human")
	} else if tx.boundsDirty {
		a.checkGrounding()
	}
	if tx.rebuild {
		a.fireRebuilt()
	}
	if tx.rootRebuild {
		a.fireRootRebuilt()
	}
	tx.rebuild, tx.rootRebuild, tx.humanSkeletonChanged, tx.boundsDirty = false, false, false, false
}

func (a *avatar) NotifyRebuild() {
	if a.disposed {
		return
	}
	if a.tx != nil {
		a.tx.rebuild = true
		return
	}
	a.fireRebuilt()
}

func (a *avatar) NotifyRootRebuild() {
	if a.disposed {
		return
	}
	if a.tx != nil {
		a.tx.rootRebuild = true
		return
	}
	a.fireRootRebuilt()
}

func (a *avatar) NotifyHumanSkeletonChanged() {
	if a.disposed {
		return
	}
	if a.tx != nil {
		a.tx.humanSkeletonChanged = true
		return
	}
	a.rebuildRigAsset("human")
}

func (a *avatar) NotifyBoundsDirty() {
	if a.disposed {
		return
	}
	if a.tx != nil {
		a.tx.boundsDirty = true
		return
	}
	a.checkGrounding()
}

func (a *avatar) fireRebuilt() {
	a.metrics.Notification("rebuild")
	a.rebuilt.Emit(a)
}

func (a *avatar) fireRootRebuilt() {
	a.metrics.Notification("root_rebuild")
	a.rootRebuilt.Emit(a)
}

// checkGrounding rebuilds the rig asset only when the grounding offset drifted past the threshold.
func (a *avatar) checkGrounding() {
	if a.rig.Description() == nil {
		return
	}
	offset, exceeds := a.rig.GroundingExceeds(a.threshold)
	if !exceeds {
		return
	}
	a.logger.Debug("avatar: grounding offset exceeded threshold", "offset", offset, "threshold", a.threshold)
	a.rebuildRigAsset("grounding")
}

// rebuildRigAsset replaces the rig asset and hands it to the animator. When no asset can be
// built, an existing asset is withdrawn; otherwise nothing happens.
func (a *avatar) rebuildRigAsset(reason string) {
	asset, ok := a.rig.BuildAsset()
	if !ok {
		if a.asset == nil {
			return
		}
		a.logger.Debug("avatar: rig asset unavailable, withdrawing previous asset", "reason", reason)
		reason = "withdrawn"
	}
	a.asset = asset
	a.metrics.RigBuild(reason)
	if a.animator != nil {
		a.animator.ApplyRigAsset(asset)
	}
	a.rigAssetRebuilt.Emit(asset)
}
