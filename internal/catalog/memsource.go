package catalog

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// MemorySource is an in-memory MetadataSource implementation, used by
// tests and by small standalone deployments that load a catalog
// directly from fixtures rather than a real content-addressed store.
type MemorySource struct {
	categories map[Identity]*CategoryUpdate
	software   map[Identity]*SoftwareUpdate
	metadata   map[Identity][]byte

	roots    []uuid.UUID
	nonLeafs []uuid.UUID
	leafs    []uuid.UUID

	revisions map[int32]Identity
}

// NewMemorySource returns an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		categories: map[Identity]*CategoryUpdate{},
		software:   map[Identity]*SoftwareUpdate{},
		metadata:   map[Identity][]byte{},
		revisions:  map[int32]Identity{},
	}
}

// AddCategory registers a Category update under the given catalog
// revision ordinal.
func (m *MemorySource) AddCategory(revision int32, u *CategoryUpdate, meta []byte) {
	m.categories[u.Identity()] = u
	m.metadata[u.Identity()] = meta
	m.revisions[revision] = u.Identity()
}

// AddSoftware registers a Software update under the given catalog
// revision ordinal.
func (m *MemorySource) AddSoftware(revision int32, u *SoftwareUpdate, meta []byte) {
	m.software[u.Identity()] = u
	m.metadata[u.Identity()] = meta
	m.revisions[revision] = u.Identity()
}

// SetPartitions sets the root/non-leaf/leaf GUID partitions directly.
func (m *MemorySource) SetPartitions(roots, nonLeafs, leafs []uuid.UUID) {
	m.roots = roots
	m.nonLeafs = nonLeafs
	m.leafs = leafs
}

// RootUpdates implements MetadataSource.
func (m *MemorySource) RootUpdates() []uuid.UUID { return m.roots }

// NonLeafUpdates implements MetadataSource.
func (m *MemorySource) NonLeafUpdates() []uuid.UUID { return m.nonLeafs }

// LeafUpdates implements MetadataSource.
func (m *MemorySource) LeafUpdates() []uuid.UUID { return m.leafs }

// RevisionIndex implements MetadataSource.
func (m *MemorySource) RevisionIndex() map[int32]Identity {
	out := make(map[int32]Identity, len(m.revisions))
	for k, v := range m.revisions {
		out[k] = v
	}
	return out
}

// LookupCategory implements MetadataSource.
func (m *MemorySource) LookupCategory(id Identity) (*CategoryUpdate, bool) {
	u, ok := m.categories[id]
	return u, ok
}

// LookupSoftware implements MetadataSource.
func (m *MemorySource) LookupSoftware(id Identity) (*SoftwareUpdate, bool) {
	u, ok := m.software[id]
	return u, ok
}

// MetadataStream implements MetadataSource.
func (m *MemorySource) MetadataStream(id Identity) (io.ReadCloser, error) {
	data, ok := m.metadata[id]
	if !ok {
		return nil, fmt.Errorf("no metadata for identity %s", id)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
