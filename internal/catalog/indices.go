package catalog

import (
	"io"

	"github.com/google/uuid"
)

// Snapshot is the read-only view of a catalog's derived indices
// handed to a reader for the lifetime of one View call (§4.1, §4.3).
// Callers must not retain a Snapshot beyond the View callback's return.
type Snapshot struct {
	source MetadataSource

	rootGuids    []uuid.UUID
	nonLeafGuids []uuid.UUID
	leafGuids    []uuid.UUID

	revisionIndex map[int32]Identity

	// idToLatestRevision maps a logical update ID to the RevisionIndex
	// ordinal of the revision with the largest Revision seen for it in
	// this catalog.
	idToLatestRevision map[uuid.UUID]int32
	// idToLatestIdentity maps a logical update ID to the Identity of
	// that latest revision.
	idToLatestIdentity map[uuid.UUID]Identity

	// softwareLeafGuids is the leaf partition filtered and
	// order-preserved to only the GUIDs that resolve to a Software
	// update in the software index.
	softwareLeafGuids []uuid.UUID
}

// buildIndices performs steps 3-5 of §4.1: partitions, the
// latest-revision map, and the software-leaf list.
func buildIndices(source MetadataSource) *Snapshot {
	idx := &Snapshot{
		source:             source,
		rootGuids:          source.RootUpdates(),
		nonLeafGuids:       source.NonLeafUpdates(),
		leafGuids:          source.LeafUpdates(),
		revisionIndex:      source.RevisionIndex(),
		idToLatestRevision: map[uuid.UUID]int32{},
		idToLatestIdentity: map[uuid.UUID]Identity{},
	}

	// Step 4: invert the revision map, group by ID, keep the largest
	// Revision per group.
	for ordinal, identity := range idx.revisionIndex {
		current, exists := idx.idToLatestIdentity[identity.ID]
		if !exists || identity.Revision > current.Revision {
			idx.idToLatestRevision[identity.ID] = ordinal
			idx.idToLatestIdentity[identity.ID] = identity
		}
	}

	// Step 5: leaves that resolve to a Software update, in leaf
	// partition order.
	leafSet := make(map[uuid.UUID]struct{}, len(idx.leafGuids))
	for _, g := range idx.leafGuids {
		leafSet[g] = struct{}{}
	}
	for _, g := range idx.leafGuids {
		identity, ok := idx.idToLatestIdentity[g]
		if !ok {
			continue
		}
		if _, ok := source.LookupSoftware(identity); ok {
			idx.softwareLeafGuids = append(idx.softwareLeafGuids, g)
		}
	}

	return idx
}

// ResolveLatest looks up the latest Identity for a GUID, filtering out
// GUIDs absent from idToLatestIdentity per the invariant in §3 ("the
// engine tolerates a GUID missing... filtered out").
func (idx *Snapshot) ResolveLatest(guid uuid.UUID) (Identity, bool) {
	identity, ok := idx.idToLatestIdentity[guid]
	return identity, ok
}

// ResolveRevision looks up the Identity a client-supplied revision
// ordinal currently names (§4.4 step 1).
func (idx *Snapshot) ResolveRevision(revision int32) (Identity, bool) {
	identity, ok := idx.revisionIndex[revision]
	return identity, ok
}

// LatestRevision returns the newest revision ordinal known for a
// logical update ID, used by the non-leaf and software encoders
// (§4.4.1, §4.4.2) to report the `ID` field.
func (idx *Snapshot) LatestRevision(id uuid.UUID) (int32, bool) {
	rev, ok := idx.idToLatestRevision[id]
	return rev, ok
}

// RootUpdates returns the root GUID partition.
func (idx *Snapshot) RootUpdates() []uuid.UUID { return idx.rootGuids }

// NonLeafUpdates returns the non-leaf GUID partition.
func (idx *Snapshot) NonLeafUpdates() []uuid.UUID { return idx.nonLeafGuids }

// SoftwareLeafGuids returns the leaf GUIDs that resolve to a Software
// update, in partition order.
func (idx *Snapshot) SoftwareLeafGuids() []uuid.UUID { return idx.softwareLeafGuids }

// LookupCategory resolves an Identity against the categories index of
// the underlying source.
func (idx *Snapshot) LookupCategory(id Identity) (*CategoryUpdate, bool) {
	return idx.source.LookupCategory(id)
}

// LookupSoftware resolves an Identity against the software index of
// the underlying source.
func (idx *Snapshot) LookupSoftware(id Identity) (*SoftwareUpdate, bool) {
	return idx.source.LookupSoftware(id)
}

// MetadataStream opens the full metadata document for an Identity.
func (idx *Snapshot) MetadataStream(id Identity) (io.ReadCloser, error) {
	return idx.source.MetadataStream(id)
}
