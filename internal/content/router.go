// Package content implements the content router (§4.7): maps
// (directory, name) URL pairs from update files to streams out of a
// content-addressed store, with HEAD and ranged-GET support.
package content

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/microsoft/update-client-server-sync/internal/catalog"
)

var modTimeZero time.Time

// Stream is a seekable byte stream of known length, the shape the
// content store hands back (§6, "Content source").
type Stream interface {
	io.ReadSeekCloser
	Len() int64
}

// Store is the read interface the content router consumes, keyed by
// update file (§6).
type Store interface {
	Contains(file catalog.UpdateFile) bool
	Get(file catalog.UpdateFile) (Stream, error)
}

// Router answers GET/HEAD /Content/{directory}/{name} (§4.7). The
// (dir, name) index is rebuilt on every catalog swap (§4.7, "build once
// per catalog swap"), not merely once at construction: Router
// subscribes to its Guard and re-derives the index each time
// SetCatalog runs.
type Router struct {
	store Store
	guard *catalog.Guard

	mu    sync.RWMutex
	index map[string]catalog.UpdateFile
}

// NewRouter builds the (dir, name) -> UpdateFile map over every file
// reachable from the current catalog snapshot (§4.7), then subscribes
// to guard so the index is rebuilt on every later catalog swap. Dedup
// keeps the first occurrence by first-digest identity.
func NewRouter(guard *catalog.Guard, store Store) (*Router, error) {
	r := &Router{store: store, guard: guard, index: map[string]catalog.UpdateFile{}}

	if err := r.rebuild(); err != nil {
		return nil, err
	}
	guard.Subscribe(func() {
		// A swap to a nil catalog (ErrCatalogUnavailable) is reported
		// by rebuild as an empty index rather than propagated: there
		// is no caller here to hand the error to, and "no catalog"
		// should simply mean "nothing resolves" until the next swap.
		_ = r.rebuild()
	})
	return r, nil
}

// rebuild re-derives the (dir, name) index from the guard's current
// snapshot and swaps it in under the index lock.
func (r *Router) rebuild() error {
	next := map[string]catalog.UpdateFile{}

	err := r.guard.View(func(snap *catalog.Snapshot) error {
		seen := map[string]struct{}{}
		for _, guid := range snap.SoftwareLeafGuids() {
			identity, ok := snap.ResolveLatest(guid)
			if !ok {
				continue
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
				dedupKey := digest.Algorithm + ":" + digest.Hex
				if _, dup := seen[dedupKey]; dup {
					continue
				}
				seen[dedupKey] = struct{}{}

				dir, name := digest.ContentKey()
				key := strings.ToLower(dir + "/" + name)
				next[key] = file
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, catalog.ErrCatalogUnavailable) {
			r.mu.Lock()
			r.index = map[string]catalog.UpdateFile{}
			r.mu.Unlock()
			return nil
		}
		return err
	}

	r.mu.Lock()
	r.index = next
	r.mu.Unlock()
	return nil
}

// Register wires GET and HEAD handlers for /Content/{directory}/{name}
// onto an existing mux.Router.
func (r *Router) Register(mr *mux.Router) {
	mr.HandleFunc("/Content/{directory}/{name}", r.handleGet).Methods(http.MethodGet)
	mr.HandleFunc("/Content/{directory}/{name}", r.handleHead).Methods(http.MethodHead)
}

func (r *Router) lookup(req *http.Request) (catalog.UpdateFile, bool) {
	vars := mux.Vars(req)
	key := strings.ToLower(vars["directory"] + "/" + vars["name"])

	r.mu.RLock()
	file, ok := r.index[key]
	r.mu.RUnlock()
	if !ok {
		return catalog.UpdateFile{}, false
	}
	if !r.store.Contains(file) {
		return catalog.UpdateFile{}, false
	}
	return file, true
}

func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) {
	file, ok := r.lookup(req)
	if !ok {
		http.NotFound(w, req)
		return
	}

	stream, err := r.store.Get(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer stream.Close()

	name := mux.Vars(req)["name"]
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, req, name, modTimeZero, stream)
}

func (r *Router) handleHead(w http.ResponseWriter, req *http.Request) {
	file, ok := r.lookup(req)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	stream, err := r.store.Get(file)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Length", strconv.FormatInt(stream.Len(), 10))
	w.WriteHeader(http.StatusOK)
}
