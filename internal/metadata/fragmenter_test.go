package metadata

import (
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/update-client-server-sync/internal/catalog"
)

const sampleMetadataXML = `<UpdateXml>
  <CoreFragment><UpdateIdentity/></CoreFragment>
  <ExtendedFragment><MoreInfoUrl>http://example/</MoreInfoUrl></ExtendedFragment>
  <LocalizedPropertiesCollection>
    <LocalizedProperties Language="en"><Title>Example Update</Title></LocalizedProperties>
    <LocalizedProperties Language="fr"><Title>Mise a jour</Title></LocalizedProperties>
  </LocalizedPropertiesCollection>
</UpdateXml>`

type stubSource struct {
	data map[catalog.Identity]string
}

func (s *stubSource) RootUpdates() []uuid.UUID                                       { return nil }
func (s *stubSource) NonLeafUpdates() []uuid.UUID                                     { return nil }
func (s *stubSource) LeafUpdates() []uuid.UUID                                        { return nil }
func (s *stubSource) RevisionIndex() map[int32]catalog.Identity                       { return nil }
func (s *stubSource) LookupCategory(id catalog.Identity) (*catalog.CategoryUpdate, bool) { return nil, false }
func (s *stubSource) LookupSoftware(id catalog.Identity) (*catalog.SoftwareUpdate, bool) { return nil, false }
func (s *stubSource) MetadataStream(id catalog.Identity) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.data[id])), nil
}

func newTestSnapshot(t *testing.T, id catalog.Identity, xml string) *catalog.Snapshot {
	t.Helper()
	source := &stubSource{data: map[catalog.Identity]string{id: xml}}
	guard := catalog.NewGuard()
	guard.SetCatalog(source)

	var snap *catalog.Snapshot
	err := guard.View(func(s *catalog.Snapshot) error {
		snap = s
		return nil
	})
	require.NoError(t, err)
	return snap
}

func TestFragmenter_CoreFragment(t *testing.T) {
	id := catalog.Identity{ID: uuid.New(), Revision: 1}
	snap := newTestSnapshot(t, id, sampleMetadataXML)

	f := New(0)
	xml, err := f.CoreFragment(snap, id)
	require.NoError(t, err)
	assert.Contains(t, xml, "UpdateIdentity")
}

func TestFragmenter_ExtendedFragment(t *testing.T) {
	id := catalog.Identity{ID: uuid.New(), Revision: 1}
	snap := newTestSnapshot(t, id, sampleMetadataXML)

	f := New(0)
	xml, err := f.ExtendedFragment(snap, id)
	require.NoError(t, err)
	assert.Contains(t, xml, "MoreInfoUrl")
}

func TestFragmenter_LocalizedProperties_PicksFirstMatchingLocale(t *testing.T) {
	id := catalog.Identity{ID: uuid.New(), Revision: 1}
	snap := newTestSnapshot(t, id, sampleMetadataXML)

	f := New(0)
	xml, err := f.LocalizedProperties(snap, id, []string{"de", "fr", "en"})
	require.NoError(t, err)
	assert.Contains(t, xml, "Mise a jour")
}

func TestFragmenter_LocalizedProperties_EmptyWhenNoMatch(t *testing.T) {
	id := catalog.Identity{ID: uuid.New(), Revision: 1}
	snap := newTestSnapshot(t, id, sampleMetadataXML)

	f := New(0)
	xml, err := f.LocalizedProperties(snap, id, []string{"ja"})
	require.NoError(t, err)
	assert.Empty(t, xml)
}

func TestFragmenter_MemoizesWhenCacheEnabled(t *testing.T) {
	id := catalog.Identity{ID: uuid.New(), Revision: 1}
	source := &stubSource{data: map[catalog.Identity]string{id: sampleMetadataXML}}
	guard := catalog.NewGuard()
	guard.SetCatalog(source)

	f := New(8)
	err := guard.View(func(snap *catalog.Snapshot) error {
		_, err := f.CoreFragment(snap, id)
		require.NoError(t, err)
		return nil
	})
	require.NoError(t, err)

	// Clear the backing data; a memoized result must still resolve.
	source.data = map[catalog.Identity]string{}
	err = guard.View(func(snap *catalog.Snapshot) error {
		xml, err := f.CoreFragment(snap, id)
		require.NoError(t, err)
		assert.Contains(t, xml, "UpdateIdentity")
		return nil
	})
	require.NoError(t, err)
}
