package catalog

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// LoadMemorySource reads the JSON catalog fixture at path and returns a
// populated MemorySource (§6, "small/static deployments"). This is the
// reference loader behind CatalogConfig.MetadataSourcePath: it exists
// so the MetadataSourcePath config field actually backs a catalog
// rather than describing a real content-addressed store's on-disk
// layout, which is an external collaborator out of scope for the core
// (§1, §6).
//
// Document shape:
//
//	{
//	  "categories": [{"identity": {"id": "<uuid>", "revision": 1}, "superseded": false, "prerequisites": null, "metadata": "<xml/>"}],
//	  "software":   [{"identity": {...}, "bundle": false, "bundled": false, "bundleParents": [...], "files": [...], "metadata": "<xml/>"}]
//	}
//
// A prerequisite node is one of {"requireInstalled": "<uuid>"},
// {"allOf": [...]}, {"anyOf": [...]}, or null/omitted for a root
// update. Root/non-leaf/leaf partitions are derived, not authored:
// an update is a root iff it carries no prerequisites, and non-leaf
// iff some other update's prerequisite tree names its GUID (§3
// glossary).
func LoadMemorySource(path string) (*MemorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata source %s: %w", path, err)
	}

	var doc sourceDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse metadata source %s: %w", path, err)
	}

	source := NewMemorySource()
	referenced := map[uuid.UUID]struct{}{}
	var allGuids, rootGuids []uuid.UUID

	var ordinal int32
	for _, c := range doc.Categories {
		ordinal++
		identity, err := c.Identity.toIdentity()
		if err != nil {
			return nil, fmt.Errorf("category %d: %w", ordinal, err)
		}
		prereq, err := c.Prerequisites.toExpr(referenced)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", identity, err)
		}
		source.AddCategory(ordinal, NewCategoryUpdate(identity, prereq, c.Superseded), []byte(c.Metadata))

		allGuids = append(allGuids, identity.ID)
		if prereq == nil {
			rootGuids = append(rootGuids, identity.ID)
		}
	}
	for _, s := range doc.Software {
		ordinal++
		identity, err := s.Identity.toIdentity()
		if err != nil {
			return nil, fmt.Errorf("software %d: %w", ordinal, err)
		}
		prereq, err := s.Prerequisites.toExpr(referenced)
		if err != nil {
			return nil, fmt.Errorf("software %s: %w", identity, err)
		}
		bundleParents, err := identityDocs(s.BundleParents).toIdentities()
		if err != nil {
			return nil, fmt.Errorf("software %s bundleParents: %w", identity, err)
		}
		files, err := fileDocs(s.Files).toUpdateFiles()
		if err != nil {
			return nil, fmt.Errorf("software %s files: %w", identity, err)
		}

		update := NewSoftwareUpdate(identity, prereq, s.Superseded, s.Bundle, s.Bundled, bundleParents, files)
		source.AddSoftware(ordinal, update, []byte(s.Metadata))

		allGuids = append(allGuids, identity.ID)
		if prereq == nil {
			rootGuids = append(rootGuids, identity.ID)
		}
	}

	var nonLeafGuids, leafGuids []uuid.UUID
	for _, g := range allGuids {
		if _, ok := referenced[g]; ok {
			nonLeafGuids = append(nonLeafGuids, g)
		} else {
			leafGuids = append(leafGuids, g)
		}
	}
	source.SetPartitions(rootGuids, nonLeafGuids, leafGuids)

	return source, nil
}

type sourceDocument struct {
	Categories []categoryDoc `json:"categories"`
	Software   []softwareDoc `json:"software"`
}

type identityDoc struct {
	ID       string `json:"id"`
	Revision int32  `json:"revision"`
}

func (d identityDoc) toIdentity() (Identity, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid identity id %q: %w", d.ID, err)
	}
	return Identity{ID: id, Revision: d.Revision}, nil
}

type identityDocs []identityDoc

func (ds identityDocs) toIdentities() ([]Identity, error) {
	if len(ds) == 0 {
		return nil, nil
	}
	out := make([]Identity, 0, len(ds))
	for _, d := range ds {
		id, err := d.toIdentity()
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// prerequisiteDoc is the JSON shape of a PrerequisiteExpr node. Exactly
// one of RequireInstalled, AllOf, AnyOf is set; a nil *prerequisiteDoc
// means "no prerequisites" (a root update).
type prerequisiteDoc struct {
	RequireInstalled string             `json:"requireInstalled,omitempty"`
	AllOf            []*prerequisiteDoc `json:"allOf,omitempty"`
	AnyOf            []*prerequisiteDoc `json:"anyOf,omitempty"`
}

// toExpr converts the tree to a PrerequisiteExpr, recording every
// referenced GUID into referenced so the loader can derive the
// non-leaf partition afterward.
func (d *prerequisiteDoc) toExpr(referenced map[uuid.UUID]struct{}) (PrerequisiteExpr, error) {
	if d == nil {
		return nil, nil
	}
	switch {
	case d.RequireInstalled != "":
		guid, err := uuid.Parse(d.RequireInstalled)
		if err != nil {
			return nil, fmt.Errorf("invalid requireInstalled guid %q: %w", d.RequireInstalled, err)
		}
		referenced[guid] = struct{}{}
		return RequireInstalled{GUID: guid}, nil
	case len(d.AllOf) > 0:
		children, err := toExprs(d.AllOf, referenced)
		if err != nil {
			return nil, err
		}
		return AllOf(children), nil
	case len(d.AnyOf) > 0:
		children, err := toExprs(d.AnyOf, referenced)
		if err != nil {
			return nil, err
		}
		return AnyOf(children), nil
	default:
		return nil, fmt.Errorf("prerequisite node has none of requireInstalled/allOf/anyOf set")
	}
}

func toExprs(docs []*prerequisiteDoc, referenced map[uuid.UUID]struct{}) ([]PrerequisiteExpr, error) {
	out := make([]PrerequisiteExpr, 0, len(docs))
	for _, child := range docs {
		expr, err := child.toExpr(referenced)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

type digestDoc struct {
	Algorithm string `json:"algorithm"`
	Base64    string `json:"base64"`
}

func (d digestDoc) toDigest() (Digest, error) {
	bytes, err := base64.StdEncoding.DecodeString(d.Base64)
	if err != nil {
		return Digest{}, fmt.Errorf("invalid digest base64: %w", err)
	}
	return Digest{Algorithm: d.Algorithm, Bytes: bytes, Hex: fmt.Sprintf("%x", bytes)}, nil
}

type fileURLDoc struct {
	MuURL       string `json:"muUrl"`
	DigestIndex int    `json:"digestIndex"`
}

type fileDoc struct {
	Digests []digestDoc  `json:"digests"`
	URLs    []fileURLDoc `json:"urls"`
}

type fileDocs []fileDoc

func (fs fileDocs) toUpdateFiles() ([]UpdateFile, error) {
	if len(fs) == 0 {
		return nil, nil
	}
	out := make([]UpdateFile, 0, len(fs))
	for _, f := range fs {
		digests := make([]Digest, 0, len(f.Digests))
		for _, d := range f.Digests {
			digest, err := d.toDigest()
			if err != nil {
				return nil, err
			}
			digests = append(digests, digest)
		}
		urls := make([]FileURL, 0, len(f.URLs))
		for _, u := range f.URLs {
			if u.DigestIndex < 0 || u.DigestIndex >= len(digests) {
				return nil, fmt.Errorf("url digestIndex %d out of range (%d digests)", u.DigestIndex, len(digests))
			}
			urls = append(urls, FileURL{MuURL: u.MuURL, Digest: digests[u.DigestIndex]})
		}
		out = append(out, UpdateFile{Digests: digests, URLs: urls})
	}
	return out, nil
}

type categoryDoc struct {
	Identity      identityDoc      `json:"identity"`
	Prerequisites *prerequisiteDoc `json:"prerequisites,omitempty"`
	Superseded    bool             `json:"superseded"`
	Metadata      string           `json:"metadata"`
}

type softwareDoc struct {
	Identity      identityDoc      `json:"identity"`
	Prerequisites *prerequisiteDoc `json:"prerequisites,omitempty"`
	Superseded    bool             `json:"superseded"`
	Bundle        bool             `json:"bundle"`
	Bundled       bool             `json:"bundled"`
	BundleParents []identityDoc    `json:"bundleParents,omitempty"`
	Files         []fileDoc        `json:"files,omitempty"`
	Metadata      string           `json:"metadata"`
}
