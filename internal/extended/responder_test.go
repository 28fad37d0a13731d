package extended

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/update-client-server-sync/internal/catalog"
	"github.com/microsoft/update-client-server-sync/internal/metadata"
)

func newGuardWithSoftware(id catalog.Identity, files []catalog.UpdateFile) *catalog.Guard {
	source := catalog.NewMemorySource()
	metadataXML := `<UpdateXml><CoreFragment/><ExtendedFragment><Info/></ExtendedFragment></UpdateXml>`
	source.AddSoftware(id.Revision, catalog.NewSoftwareUpdate(id, nil, false, false, false, nil, files), []byte(metadataXML))
	source.SetPartitions(nil, nil, []uuid.UUID{id.ID})

	guard := catalog.NewGuard()
	guard.SetCatalog(source)
	return guard
}

func TestResponder_GetExtendedUpdateInfo_ExtendedFragment(t *testing.T) {
	id := catalog.Identity{ID: uuid.New(), Revision: 1}
	guard := newGuardWithSoftware(id, nil)
	r := NewResponder(guard, metadata.New(0), "", []byte(`{}`))

	info, err := r.GetExtendedUpdateInfo([]int32{1}, []string{InfoTypeExtended}, nil)
	require.NoError(t, err)
	require.Len(t, info.Updates, 1)
	assert.Equal(t, int32(1), info.Updates[0].ID)
	assert.Contains(t, info.Updates[0].Xml, "Info")
}

func TestResponder_GetExtendedUpdateInfo_UnknownRevisionFails(t *testing.T) {
	guard := newGuardWithSoftware(catalog.Identity{ID: uuid.New(), Revision: 1}, nil)
	r := NewResponder(guard, metadata.New(0), "", nil)

	_, err := r.GetExtendedUpdateInfo([]int32{999}, []string{InfoTypeExtended}, nil)
	require.Error(t, err)
}

func TestResponder_GetExtendedUpdateInfo_FileLocationsWithContentRoot(t *testing.T) {
	digest := catalog.Digest{Algorithm: "SHA256", Bytes: []byte{0xAB, 0xCD}, Hex: "abcd"}
	file := catalog.UpdateFile{
		Digests: []catalog.Digest{digest},
		URLs:    []catalog.FileURL{{MuURL: "http://upstream/file", Digest: digest}},
	}
	id := catalog.Identity{ID: uuid.New(), Revision: 1}
	guard := newGuardWithSoftware(id, []catalog.UpdateFile{file})
	r := NewResponder(guard, metadata.New(0), "http://srv:32150", nil)

	info, err := r.GetExtendedUpdateInfo([]int32{1}, nil, nil)
	require.NoError(t, err)
	require.Len(t, info.FileLocations, 1)
	assert.Equal(t, "http://srv:32150/Content/CD/abcd", info.FileLocations[0].Url)
}

func TestResponder_GetExtendedUpdateInfo_FileLocationsUpstreamWithoutContentRoot(t *testing.T) {
	digest := catalog.Digest{Algorithm: "SHA256", Bytes: []byte{0xAB, 0xCD}, Hex: "abcd"}
	file := catalog.UpdateFile{
		Digests: []catalog.Digest{digest},
		URLs:    []catalog.FileURL{{MuURL: "http://upstream/file", Digest: digest}},
	}
	id := catalog.Identity{ID: uuid.New(), Revision: 1}
	guard := newGuardWithSoftware(id, []catalog.UpdateFile{file})
	r := NewResponder(guard, metadata.New(0), "", nil)

	info, err := r.GetExtendedUpdateInfo([]int32{1}, nil, nil)
	require.NoError(t, err)
	require.Len(t, info.FileLocations, 1)
	assert.Equal(t, "http://upstream/file", info.FileLocations[0].Url)
}

func TestResponder_GetConfig_AuthPlugIns(t *testing.T) {
	guard := catalog.NewGuard()
	guard.SetCatalog(catalog.NewMemorySource())
	r := NewResponder(guard, metadata.New(0), "", []byte(`{"k":"v"}`))

	cfg := r.GetConfig()
	require.Len(t, cfg.AuthPlugIns, 2)
	assert.Equal(t, "PidValidator", cfg.AuthPlugIns[0].PlugInID)
	assert.Equal(t, "Anonymous", cfg.AuthPlugIns[1].PlugInID)
	assert.False(t, cfg.IsRegistrationRequired)
	assert.JSONEq(t, `{"k":"v"}`, string(cfg.Properties))
}

func TestResponder_GetCookie_FiveDayExpiration(t *testing.T) {
	guard := catalog.NewGuard()
	guard.SetCatalog(catalog.NewMemorySource())
	r := NewResponder(guard, metadata.New(0), "", nil)

	cookie := r.GetCookie()
	assert.WithinDuration(t, time.Now().Add(5*24*time.Hour), cookie.Expiration, time.Minute)
}
