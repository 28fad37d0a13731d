// Package metadata implements the metadata fragmenter (§4.5): pure
// transformations from an update's full metadata XML document to the
// core, extended, and localized-properties fragments the rest of the
// server consumes.
package metadata

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/microsoft/update-client-server-sync/internal/catalog"
)

// document is the subset of an update's full metadata document this
// package understands. Unknown elements are preserved verbatim inside
// innerXML fields so fragment extraction never lossily reinterprets
// content it doesn't need to transform.
type document struct {
	XMLName xml.Name            `xml:"UpdateXml"`
	Core    rawXML              `xml:"CoreFragment"`
	Extend  rawXML              `xml:"ExtendedFragment"`
	Locales []localizedFragment `xml:"LocalizedPropertiesCollection>LocalizedProperties"`
}

type rawXML struct {
	Inner string `xml:",innerxml"`
}

type localizedFragment struct {
	Language string `xml:"Language,attr"`
	Inner    string `xml:",innerxml"`
}

// Fragmenter extracts fragments from metadata streams, optionally
// memoizing results per Identity (§4.5, "Implementations may memoize
// per-Identity results").
type Fragmenter struct {
	cache *lru.Cache[catalog.Identity, document]
}

// New constructs a Fragmenter. cacheSize <= 0 disables memoization.
func New(cacheSize int) *Fragmenter {
	f := &Fragmenter{}
	if cacheSize > 0 {
		c, err := lru.New[catalog.Identity, document](cacheSize)
		if err == nil {
			f.cache = c
		}
	}
	return f
}

// CoreFragment implements wusync.Fragmenter: the minimal XML fragment
// a client needs to evaluate applicability and identity.
func (f *Fragmenter) CoreFragment(snap *catalog.Snapshot, id catalog.Identity) (string, error) {
	doc, err := f.load(snap, id)
	if err != nil {
		return "", err
	}
	return doc.Core.Inner, nil
}

// ExtendedFragment returns the supplementary metadata used once an
// update has been selected for installation (§4.6 step 2).
func (f *Fragmenter) ExtendedFragment(snap *catalog.Snapshot, id catalog.Identity) (string, error) {
	doc, err := f.load(snap, id)
	if err != nil {
		return "", err
	}
	return doc.Extend.Inner, nil
}

// LocalizedProperties returns the title/description fragment for the
// first matching locale in the client's requested language list, or
// "" if none is available (§4.5, §4.6 step 3).
func (f *Fragmenter) LocalizedProperties(snap *catalog.Snapshot, id catalog.Identity, locales []string) (string, error) {
	doc, err := f.load(snap, id)
	if err != nil {
		return "", err
	}
	for _, want := range locales {
		for _, lp := range doc.Locales {
			if lp.Language == want {
				return lp.Inner, nil
			}
		}
	}
	return "", nil
}

func (f *Fragmenter) load(snap *catalog.Snapshot, id catalog.Identity) (document, error) {
	if f.cache != nil {
		if doc, ok := f.cache.Get(id); ok {
			return doc, nil
		}
	}

	stream, err := snap.MetadataStream(id)
	if err != nil {
		return document{}, fmt.Errorf("metadata stream for %s: %w", id, err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return document{}, fmt.Errorf("read metadata for %s: %w", id, err)
	}

	var doc document
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return document{}, fmt.Errorf("decode metadata for %s: %w", id, err)
	}

	if f.cache != nil {
		f.cache.Add(id, doc)
	}
	return doc, nil
}
