package catalog

import (
	"fmt"

	"github.com/google/uuid"
)

// PrerequisiteExpr is a pure predicate over a boolean expression tree,
// evaluated against a caller-supplied set of installed non-leaf update
// IDs. The tree itself is owned and constructed by the metadata source;
// this package only consumes it through this interface.
type PrerequisiteExpr interface {
	Evaluate(installedNonLeaf map[uuid.UUID]struct{}) bool
}

// Digest is one content digest for an update file: an algorithm name
// plus its bytes, kept alongside a precomputed lowercase hex form so
// content-addressed URLs don't re-encode on every request.
type Digest struct {
	Algorithm string
	Bytes     []byte
	Hex       string
}

// FileURL is one upstream download location for an UpdateFile, with
// the digest it authenticates against.
type FileURL struct {
	MuURL  string
	Digest Digest
}

// UpdateFile describes one downloadable payload attached to a
// Software update: one or more digests and one or more URLs.
type UpdateFile struct {
	Digests []Digest
	URLs    []FileURL
}

// FirstDigest returns the digest referenced by the file's first URL,
// the canonical digest used throughout content addressing (§4.6, §4.7).
func (f UpdateFile) FirstDigest() (Digest, bool) {
	if len(f.URLs) == 0 {
		return Digest{}, false
	}
	return f.URLs[0].Digest, true
}

// ContentKey returns the (directory, name) pair the content router and
// extended-info responder key content-addressed URLs by (§4.6 step 4,
// §4.7): the uppercase hex of the last byte of the digest, and the
// full lowercase hex of the digest.
func (d Digest) ContentKey() (dir, name string) {
	if len(d.Bytes) == 0 {
		return "", ""
	}
	return fmt.Sprintf("%X", d.Bytes[len(d.Bytes)-1]), d.Hex
}

// Update is the shared behavior of every catalog entry, Category or
// Software alike.
type Update interface {
	Identity() Identity
	IsSuperseded() bool
	// IsApplicable evaluates this update's prerequisite expression
	// against the client's installed non-leaf set. An update with no
	// prerequisites (a root) is always applicable.
	IsApplicable(installedNonLeaf map[uuid.UUID]struct{}) bool
}

// base holds the fields common to every Update variant.
type base struct {
	ID            Identity
	Prerequisites PrerequisiteExpr
	Superseded    bool
}

func (b base) Identity() Identity { return b.ID }
func (b base) IsSuperseded() bool { return b.Superseded }

func (b base) IsApplicable(installedNonLeaf map[uuid.UUID]struct{}) bool {
	if b.Prerequisites == nil {
		return true
	}
	return b.Prerequisites.Evaluate(installedNonLeaf)
}

// CategoryUpdate is a non-installable catalog entry: a detectoid,
// product category, or classification used for prerequisite
// evaluation and update grouping.
type CategoryUpdate struct {
	base
}

// NewCategoryUpdate constructs a Category update.
func NewCategoryUpdate(id Identity, prereq PrerequisiteExpr, superseded bool) *CategoryUpdate {
	return &CategoryUpdate{base{ID: id, Prerequisites: prereq, Superseded: superseded}}
}

// SoftwareUpdate is an installable update: a standalone patch, a
// bundle of children, or a child bundled under a parent.
type SoftwareUpdate struct {
	base

	// Bundle is true when this update exists only to aggregate
	// children (IsBundle in §3/§4.4).
	Bundle bool
	// Bundled is true when this update is a child of at least one
	// bundle (IsBundled).
	Bundled bool
	// BundleParents lists the Identities of bundles this update is a
	// child of, used for bundle-inclusion approval (§4.2, §4.4).
	BundleParents []Identity

	Files []UpdateFile
}

// NewSoftwareUpdate constructs a Software update.
func NewSoftwareUpdate(id Identity, prereq PrerequisiteExpr, superseded, isBundle, isBundled bool, bundleParents []Identity, files []UpdateFile) *SoftwareUpdate {
	return &SoftwareUpdate{
		base:          base{ID: id, Prerequisites: prereq, Superseded: superseded},
		Bundle:        isBundle,
		Bundled:       isBundled,
		BundleParents: bundleParents,
		Files:         files,
	}
}
