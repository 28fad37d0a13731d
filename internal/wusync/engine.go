package wusync

import (
	"github.com/google/uuid"

	"github.com/microsoft/update-client-server-sync/internal/catalog"
)

// Engine runs the offering algorithm (§4.4) against a catalog guarded
// by a single reader/writer lock, with the two approval sets layered
// on top.
type Engine struct {
	guard      *catalog.Guard
	approvals  *catalog.Approvals
	fragmenter Fragmenter
	events     UnapprovedEventSink
}

// NewEngine constructs an Engine. sink may be nil, in which case
// unapproved-update notifications are discarded.
func NewEngine(guard *catalog.Guard, approvals *catalog.Approvals, fragmenter Fragmenter, sink UnapprovedEventSink) *Engine {
	if sink == nil {
		sink = NopEventSink{}
	}
	return &Engine{guard: guard, approvals: approvals, fragmenter: fragmenter, events: sink}
}

// SyncUpdates is the public operation of the offering engine (§4.4).
func (e *Engine) SyncUpdates(params Params) (*SyncInfo, error) {
	if params.SkipSoftwareSync {
		return skippedReply(), nil
	}

	var reply *SyncInfo
	err := e.guard.View(func(snap *catalog.Snapshot) error {
		installedNonLeaf, err := resolveGuids(snap, params.InstalledNonLeafUpdateIDs)
		if err != nil {
			return err
		}
		otherCached, err := resolveGuids(snap, params.OtherCachedUpdateIDs)
		if err != nil {
			return err
		}
		excluded := unionSet(installedNonLeaf, otherCached)
		installedNonLeafSet := toSet(installedNonLeaf)

		info := &SyncInfo{NewCookie: newCookie(), DriverSyncNotNeeded: false}

		if done, err := e.runPhaseA(snap, excluded, info); err != nil || done {
			reply = info
			return err
		}
		if done, err := e.runPhaseB(snap, excluded, installedNonLeafSet, info); err != nil || done {
			reply = info
			return err
		}
		if done, err := e.runPhaseC(snap, excluded, installedNonLeafSet, info); err != nil || done {
			reply = info
			return err
		}
		if err := e.runPhaseD(snap, excluded, installedNonLeafSet, info); err != nil {
			return err
		}
		reply = info
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// resolveGuids translates client-supplied revision ordinals to GUIDs
// via RevisionIndex (§4.4 step 1). An unresolvable revision is a hard
// error for the whole request.
func resolveGuids(snap *catalog.Snapshot, revisions []int32) ([]uuid.UUID, error) {
	guids := make([]uuid.UUID, 0, len(revisions))
	for _, rev := range revisions {
		identity, ok := snap.ResolveRevision(rev)
		if !ok {
			return nil, catalog.ErrUnknownRevision(rev)
		}
		guids = append(guids, identity.ID)
	}
	return guids, nil
}

func toSet(guids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(guids))
	for _, g := range guids {
		set[g] = struct{}{}
	}
	return set
}

func unionSet(a, b []uuid.UUID) map[uuid.UUID]struct{} {
	set := toSet(a)
	for _, g := range b {
		set[g] = struct{}{}
	}
	return set
}

// runPhaseA implements the roots phase (§4.4 Phase A). Returns done=true
// if it produced output, stopping the phase chain.
func (e *Engine) runPhaseA(snap *catalog.Snapshot, excluded map[uuid.UUID]struct{}, info *SyncInfo) (bool, error) {
	var candidates []struct {
		identity catalog.Identity
		cat      *catalog.CategoryUpdate
	}
	for _, guid := range snap.RootUpdates() {
		if len(candidates) >= fetchCap {
			break
		}
		if _, skip := excluded[guid]; skip {
			continue
		}
		identity, ok := snap.ResolveLatest(guid)
		if !ok {
			continue
		}
		cat, ok := snap.LookupCategory(identity)
		if !ok || cat.IsSuperseded() {
			continue
		}
		candidates = append(candidates, struct {
			identity catalog.Identity
			cat      *catalog.CategoryUpdate
		}{identity, cat})
	}
	if len(candidates) == 0 {
		return false, nil
	}

	info.Truncated = true
	limit := len(candidates)
	if limit > MaxUpdatesInResponse {
		limit = MaxUpdatesInResponse
	}
	for _, c := range candidates[:limit] {
		ui, err := e.encodeNonLeaf(snap, c.identity)
		if err != nil {
			return true, err
		}
		info.NewUpdates = append(info.NewUpdates, ui)
	}
	return true, nil
}

// runPhaseB implements the non-leaves phase (§4.4 Phase B).
func (e *Engine) runPhaseB(snap *catalog.Snapshot, excluded, installedNonLeaf map[uuid.UUID]struct{}, info *SyncInfo) (bool, error) {
	var candidates []catalog.Identity
	for _, guid := range snap.NonLeafUpdates() {
		if len(candidates) >= fetchCap {
			break
		}
		if _, skip := excluded[guid]; skip {
			continue
		}
		identity, ok := snap.ResolveLatest(guid)
		if !ok {
			continue
		}
		upd, ok := resolveUpdate(snap, identity)
		if !ok || upd.IsSuperseded() || !upd.IsApplicable(installedNonLeaf) {
			continue
		}
		candidates = append(candidates, identity)
	}
	if len(candidates) == 0 {
		return false, nil
	}

	info.Truncated = true
	limit := len(candidates)
	if limit > MaxUpdatesInResponse {
		limit = MaxUpdatesInResponse
	}
	for _, identity := range candidates[:limit] {
		ui, err := e.encodeNonLeaf(snap, identity)
		if err != nil {
			return true, err
		}
		info.NewUpdates = append(info.NewUpdates, ui)
	}
	return true, nil
}

// runPhaseC implements the bundles phase (§4.4 Phase C).
func (e *Engine) runPhaseC(snap *catalog.Snapshot, excluded, installedNonLeaf map[uuid.UUID]struct{}, info *SyncInfo) (bool, error) {
	var approved []*catalog.SoftwareUpdate
	var unapproved []catalog.Identity

	for _, guid := range snap.SoftwareLeafGuids() {
		if len(approved) >= fetchCap {
			break
		}
		if _, skip := excluded[guid]; skip {
			continue
		}
		identity, ok := snap.ResolveLatest(guid)
		if !ok {
			continue
		}
		su, ok := snap.LookupSoftware(identity)
		if !ok || su.IsSuperseded() || !su.IsApplicable(installedNonLeaf) || !su.Bundle {
			continue
		}
		// Phase C splits by Identity alone (§4.4): unlike phase D, a
		// bundle's own approval is never inherited from a parent
		// bundle it happens to also be nested under.
		if e.approvals.Software.Contains(su.Identity()) {
			approved = append(approved, su)
		} else {
			unapproved = append(unapproved, identity)
		}
	}

	if len(unapproved) > 0 {
		e.events.OnUnApprovedSoftwareUpdatesRequested(unapproved)
	}
	if len(approved) == 0 {
		return false, nil
	}

	info.Truncated = true
	limit := len(approved)
	if limit > MaxUpdatesInResponse {
		limit = MaxUpdatesInResponse
	}
	for _, su := range approved[:limit] {
		ui, err := e.encodeSoftware(snap, su)
		if err != nil {
			return true, err
		}
		info.NewUpdates = append(info.NewUpdates, ui)
	}
	return true, nil
}

// runPhaseD implements the leaf-software phase (§4.4 Phase D).
func (e *Engine) runPhaseD(snap *catalog.Snapshot, excluded, installedNonLeaf map[uuid.UUID]struct{}, info *SyncInfo) error {
	var approved []*catalog.SoftwareUpdate
	var unapproved []catalog.Identity

	for _, guid := range snap.SoftwareLeafGuids() {
		if _, skip := excluded[guid]; skip {
			continue
		}
		identity, ok := snap.ResolveLatest(guid)
		if !ok {
			continue
		}
		su, ok := snap.LookupSoftware(identity)
		if !ok || su.IsSuperseded() || !su.IsApplicable(installedNonLeaf) || su.Bundle {
			continue
		}
		if e.approvals.SoftwareApproved(su) {
			if len(approved) < fetchCap {
				approved = append(approved, su)
			}
		} else {
			unapproved = append(unapproved, identity)
		}
	}

	if len(unapproved) > 0 {
		e.events.OnUnApprovedSoftwareUpdatesRequested(unapproved)
	}

	info.Truncated = len(approved) > MaxUpdatesInResponse
	limit := len(approved)
	if limit > MaxUpdatesInResponse {
		limit = MaxUpdatesInResponse
	}
	for _, su := range approved[:limit] {
		ui, err := e.encodeSoftware(snap, su)
		if err != nil {
			return err
		}
		info.NewUpdates = append(info.NewUpdates, ui)
	}
	return nil
}

// resolveUpdate looks up an Identity first against CategoriesIndex,
// then UpdatesIndex, per §4.4 Phase B.
func resolveUpdate(snap *catalog.Snapshot, identity catalog.Identity) (catalog.Update, bool) {
	if cat, ok := snap.LookupCategory(identity); ok {
		return cat, true
	}
	if su, ok := snap.LookupSoftware(identity); ok {
		return su, true
	}
	return nil, false
}

// encodeNonLeaf implements the non-leaf encoder (§4.4.1).
func (e *Engine) encodeNonLeaf(snap *catalog.Snapshot, identity catalog.Identity) (UpdateInfo, error) {
	rev, _ := snap.LatestRevision(identity.ID)
	xml, err := e.fragmenter.CoreFragment(snap, identity)
	if err != nil {
		return UpdateInfo{}, err
	}
	return UpdateInfo{
		ID:       rev,
		IsLeaf:   false,
		IsShared: false,
		Xml:      xml,
		Deployment: Deployment{
			Action:         ActionEvaluate,
			ID:             NonLeafDeploymentID,
			AutoDownload:   "0",
			AutoSelect:     "0",
			IsAssigned:     true,
			LastChangeTime: LastChangeTime,
		},
	}, nil
}

// encodeSoftware implements the software encoder (§4.4.2).
func (e *Engine) encodeSoftware(snap *catalog.Snapshot, su *catalog.SoftwareUpdate) (UpdateInfo, error) {
	rev, _ := snap.LatestRevision(su.Identity().ID)
	xml, err := e.fragmenter.CoreFragment(snap, su.Identity())
	if err != nil {
		return UpdateInfo{}, err
	}

	action := ActionInstall
	var deploymentID int32 = StandaloneDeploymentID
	switch {
	case su.Bundle:
		deploymentID = BundleDeploymentID
	case su.Bundled:
		action = ActionBundle
		deploymentID = BundledDeploymentID
	}

	return UpdateInfo{
		ID:       rev,
		IsLeaf:   true,
		IsShared: false,
		Xml:      xml,
		Deployment: Deployment{
			Action:         action,
			ID:             deploymentID,
			AutoDownload:   "0",
			AutoSelect:     "0",
			IsAssigned:     true,
			LastChangeTime: LastChangeTime,
		},
	}, nil
}
