// Package extended implements the extended info responder (§4.6):
// GetExtendedUpdateInfo and the always-succeed cookie/config family.
package extended

import (
	"fmt"
	"strings"
	"time"

	"github.com/microsoft/update-client-server-sync/internal/catalog"
	"github.com/microsoft/update-client-server-sync/internal/metadata"
)

// Info types a client may request in GetExtendedUpdateInfo (§4.6).
const (
	InfoTypeExtended            = "Extended"
	InfoTypeLocalizedProperties = "LocalizedProperties"
)

// UpdateData is one fragment emitted for a requested revision.
type UpdateData struct {
	ID  int32
	Xml string
}

// FileLocation is one resolved download location for a requested
// update's file.
type FileLocation struct {
	FileDigest []byte
	Url        string
}

// ExtendedUpdateInfo is the reply to GetExtendedUpdateInfo.
type ExtendedUpdateInfo struct {
	Updates       []UpdateData
	FileLocations []FileLocation
}

// AuthPlugInInfo mirrors the two fixed entries every config reply
// carries (§4.6).
type AuthPlugInInfo struct {
	PlugInID   string
	ServiceUrl string
	Parameter  string
}

// Cookie is re-exported shape returned by GetCookie; identical in
// meaning to wusync.Cookie but kept independent since this package
// must not import the offering engine.
type Cookie struct {
	Expiration    time.Time
	EncryptedData [12]byte
}

// Config is the reply to GetConfig / GetConfig2.
type Config struct {
	LastChange             time.Time
	IsRegistrationRequired bool
	AllowedEventIds        []int32
	AuthPlugIns            []AuthPlugInInfo
	Properties             []byte
}

// NotImplementedError is returned by the stub operations (§4.6,
// "unimplemented and return a protocol fault").
type NotImplementedError struct {
	Operation string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("operation not implemented: %s", e.Operation)
}

// Responder answers GetExtendedUpdateInfo and the cookie/config family.
type Responder struct {
	guard       *catalog.Guard
	fragmenter  *metadata.Fragmenter
	contentRoot string // "" if no content store is configured
	properties  []byte
	startTime   time.Time
}

// NewResponder constructs a Responder. contentRoot is the configured
// content-http-root base URL, or "" when no content source backs this
// deployment (§6, "Configuration surface").
func NewResponder(guard *catalog.Guard, fragmenter *metadata.Fragmenter, contentRoot string, properties []byte) *Responder {
	return &Responder{
		guard:       guard,
		fragmenter:  fragmenter,
		contentRoot: contentRoot,
		properties:  properties,
		startTime:   time.Now(),
	}
}

// GetExtendedUpdateInfo implements §4.6 steps 1-4.
func (r *Responder) GetExtendedUpdateInfo(revisions []int32, infoTypes, locales []string) (*ExtendedUpdateInfo, error) {
	wantExtended := containsStr(infoTypes, InfoTypeExtended)
	wantLocalized := containsStr(infoTypes, InfoTypeLocalizedProperties)

	reply := &ExtendedUpdateInfo{}
	var seenFiles = map[string]struct{}{}

	err := r.guard.View(func(snap *catalog.Snapshot) error {
		for _, rev := range revisions {
			identity, ok := snap.ResolveRevision(rev)
			if !ok {
				return catalog.ErrUnknownRevision(rev)
			}

			if wantExtended {
				xml, err := r.fragmenter.ExtendedFragment(snap, identity)
				if err != nil {
					return err
				}
				reply.Updates = append(reply.Updates, UpdateData{ID: rev, Xml: xml})
			}
			if wantLocalized {
				xml, err := r.fragmenter.LocalizedProperties(snap, identity, locales)
				if err != nil {
					return err
				}
				if xml != "" {
					reply.Updates = append(reply.Updates, UpdateData{ID: rev, Xml: xml})
				}
			}

			su, ok := snap.LookupSoftware(identity)
			if !ok {
				continue
			}
			for _, file := range su.Files {
				digest, ok := file.FirstDigest()
				if !ok {
					continue
				}
				dedupKey := digestDedupKey(digest)
				if _, seen := seenFiles[dedupKey]; seen {
					continue
				}
				seenFiles[dedupKey] = struct{}{}

				reply.FileLocations = append(reply.FileLocations, FileLocation{
					FileDigest: digest.Bytes,
					Url:        r.resolveFileURL(file, digest),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// resolveFileURL implements §4.6 step 4's Url rule.
func (r *Responder) resolveFileURL(file catalog.UpdateFile, digest catalog.Digest) string {
	if r.contentRoot == "" {
		return file.URLs[0].MuURL
	}
	dir, name := digest.ContentKey()
	return fmt.Sprintf("%s/Content/%s/%s", r.contentRoot, dir, strings.ToLower(name))
}

// digestDedupKey matches §4.7's dedup rule: keyed by the first digest's
// base64/hex identity, keeping the first occurrence.
func digestDedupKey(d catalog.Digest) string {
	return d.Algorithm + ":" + d.Hex
}

// GetCookie always succeeds (§4.6).
func (r *Responder) GetCookie() Cookie {
	return Cookie{Expiration: time.Now().Add(5 * 24 * time.Hour)}
}

// GetConfig always succeeds (§4.6).
func (r *Responder) GetConfig() Config {
	return Config{
		LastChange:             r.startTime,
		IsRegistrationRequired: false,
		AllowedEventIds:        nil,
		AuthPlugIns: []AuthPlugInInfo{
			{PlugInID: "PidValidator"},
			{PlugInID: "Anonymous"},
		},
		Properties: r.properties,
	}
}

// GetConfig2 is identical to GetConfig; MS-WUSP carries both as
// separate operations for client version compatibility.
func (r *Responder) GetConfig2() Config {
	return r.GetConfig()
}

// Stub operations: unimplemented, always fault (§4.6).
func (r *Responder) GetExtendedUpdateInfo2() error { return &NotImplementedError{"GetExtendedUpdateInfo2"} }
func (r *Responder) GetFileLocations() error       { return &NotImplementedError{"GetFileLocations"} }
func (r *Responder) GetTimestamps() error          { return &NotImplementedError{"GetTimestamps"} }
func (r *Responder) RefreshCache() error           { return &NotImplementedError{"RefreshCache"} }
func (r *Responder) RegisterComputer() error       { return &NotImplementedError{"RegisterComputer"} }
func (r *Responder) StartCategoryScan() error      { return &NotImplementedError{"StartCategoryScan"} }
func (r *Responder) SyncPrinterCatalog() error     { return &NotImplementedError{"SyncPrinterCatalog"} }

func containsStr(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
