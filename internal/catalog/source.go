package catalog

import (
	"io"

	"github.com/google/uuid"
)

// MetadataSource is the read-only interface the sync engine consumes
// to learn about the update catalog. It is implemented by the
// content-addressed metadata store (out of scope here); this package
// only depends on the shape below (§6).
type MetadataSource interface {
	// RootUpdates returns the GUIDs of updates with no prerequisites.
	RootUpdates() []uuid.UUID
	// NonLeafUpdates returns the GUIDs of updates that have dependents.
	NonLeafUpdates() []uuid.UUID
	// LeafUpdates returns the GUIDs of updates with no dependents.
	LeafUpdates() []uuid.UUID
	// RevisionIndex returns the catalog's own ordinal: a per-catalog
	// int32 handle for each live Identity.
	RevisionIndex() map[int32]Identity

	// LookupCategory resolves an Identity against the categories index.
	LookupCategory(id Identity) (*CategoryUpdate, bool)
	// LookupSoftware resolves an Identity against the software index.
	LookupSoftware(id Identity) (*SoftwareUpdate, bool)

	// MetadataStream opens the full metadata XML document for an
	// update. Callers must close the returned stream.
	MetadataStream(id Identity) (io.ReadCloser, error)
}
