// Package wusync implements the offering engine (§4.4): the four-phase
// algorithm that turns a client's installed/cached update set into the
// next batch of applicable, approved offers.
package wusync

import (
	"time"

	"github.com/microsoft/update-client-server-sync/internal/catalog"
)

// Deployment actions (§4.4.1, §4.4.2).
const (
	ActionEvaluate = "Evaluate"
	ActionInstall  = "Install"
	ActionBundle   = "Bundle"
)

// Deployment IDs. Non-leaf offers always use NonLeafDeploymentID; leaf
// software offers pick one of the three Software* values depending on
// bundle role.
const (
	NonLeafDeploymentID    int32 = 15000
	BundleDeploymentID     int32 = 20000
	BundledDeploymentID    int32 = 20001
	StandaloneDeploymentID int32 = 20002
)

// LastChangeTime is the protocol-observable constant literal every
// Deployment carries (§4.4.1).
const LastChangeTime = "2019-08-06"

// MaxUpdatesInResponse is the cap on updates sent to the client in a
// single SyncInfo reply (§4.4).
const MaxUpdatesInResponse = 50

// fetchCap is one more than MaxUpdatesInResponse: every phase collects
// at most this many candidates and never encodes the extra item. Only
// phase D compares the collected count with MaxUpdatesInResponse to set
// Truncated; phases A/B/C set it whenever they emit (§4.4, Open
// Questions in §9).
const fetchCap = MaxUpdatesInResponse + 1

// Params is one client sync request (§4.4).
type Params struct {
	SkipSoftwareSync bool

	// InstalledNonLeafUpdateIDs and OtherCachedUpdateIDs are revision
	// ordinals as reported by the client; they are resolved against
	// the current catalog's RevisionIndex.
	InstalledNonLeafUpdateIDs []int32
	OtherCachedUpdateIDs      []int32
}

// Cookie is the opaque, stateless sync cookie (§9, "Stateless
// cookies"): the server only ever synthesizes one, never inspects an
// incoming one.
type Cookie struct {
	Expiration    time.Time
	EncryptedData [12]byte
}

// Deployment mirrors the MS-WUSP Deployment record attached to every
// UpdateInfo.
type Deployment struct {
	Action               string
	ID                   int32
	AutoDownload         string
	AutoSelect           string
	SupersedenceBehavior string
	IsAssigned           bool
	LastChangeTime       string
}

// UpdateInfo is one offered update in a SyncInfo reply.
type UpdateInfo struct {
	ID         int32 // latest revision ordinal, IdToLatestRevision[Identity.ID]
	IsLeaf     bool
	IsShared   bool
	Xml        string
	Deployment Deployment
}

// SyncInfo is the reply to SyncUpdates (§4.4).
type SyncInfo struct {
	NewCookie           Cookie
	DriverSyncNotNeeded bool
	Truncated           bool
	NewUpdates          []UpdateInfo
}

// newCookie synthesizes a fresh cookie expiring 5 days from now with
// 12 zeroed bytes, per §4.4 step 2 and §4.6.
func newCookie() Cookie {
	return Cookie{Expiration: time.Now().Add(5 * 24 * time.Hour)}
}

// skippedReply is the canned reply returned when Params.SkipSoftwareSync
// is true (§4.4).
func skippedReply() *SyncInfo {
	return &SyncInfo{
		NewCookie:           newCookie(),
		DriverSyncNotNeeded: false,
		Truncated:           false,
	}
}

// Fragmenter extracts the core XML fragment an offered update needs
// (§4.5). It is satisfied by the metadata fragmenter component; the
// engine only ever asks for the core fragment, the cheapest of the
// three transformations.
type Fragmenter interface {
	CoreFragment(snap *catalog.Snapshot, id catalog.Identity) (string, error)
}

// UnapprovedEventSink receives best-effort notification of candidate
// updates that were applicable but not approved (§4.4 phases C/D, §9
// "Event for unapproved updates"). Implementations must not block;
// dispatch failures are the caller's concern, never the engine's.
type UnapprovedEventSink interface {
	OnUnApprovedSoftwareUpdatesRequested(ids []catalog.Identity)
}

// NopEventSink discards every notification. It is the default when no
// sink is configured.
type NopEventSink struct{}

// OnUnApprovedSoftwareUpdatesRequested implements UnapprovedEventSink.
func (NopEventSink) OnUnApprovedSoftwareUpdatesRequested(ids []catalog.Identity) {}
