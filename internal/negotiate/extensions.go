package negotiate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/go-mizu/h2kv/internal/storage"
)

// sidecarSuffix is appended to a logical path's stem to form the storage
// key of its extensions sidecar.
const sidecarSuffix = ".ext"

type extEntry struct {
	Ext       string
	MediaType string // essence only ("type/subtype"), no parameters
}

// Extensions is the ordered ext -> media-type map for one logical path.
// Order matters: it is the tie-break for Accept-header negotiation when
// the client expresses no real preference, and it is preserved across a
// JSON round-trip so a hand-edited sidecar keeps its shape.
type Extensions struct {
	path    string // logical path this sidecar belongs to
	entries []extEntry
	index   map[string]int // ext -> index into entries
}

func newExtensions(logicalPath string) *Extensions {
	return &Extensions{path: logicalPath, index: make(map[string]int)}
}

// SidecarKey returns the storage key backing path's extensions sidecar.
func SidecarKey(logicalPath string) string {
	return pathStem(logicalPath) + sidecarSuffix
}

// pathStem strips every trailing extension from p, e.g.
// "/foo/bar/baz.foo.txt" -> "/foo/bar/baz".
func pathStem(p string) string {
	dir, file := path.Split(p)
	if i := strings.IndexByte(file, '.'); i >= 0 {
		file = file[:i]
	}
	return strings.TrimSuffix(dir, "/") + "/" + file
}

// LoadExtensions loads the sidecar for logicalPath, defaulting to an
// empty (but still usable) Extensions when none exists yet.
func LoadExtensions(ctx context.Context, backend storage.Backend, logicalPath string) (*Extensions, error) {
	raw, err := backend.Get(ctx, SidecarKey(logicalPath))
	if err != nil {
		return nil, fmt.Errorf("negotiate: load extensions for %s: %w", logicalPath, err)
	}
	ext := newExtensions(logicalPath)
	if raw == nil {
		return ext, nil
	}
	if err := ext.unmarshal(raw); err != nil {
		return nil, fmt.Errorf("negotiate: decode extensions sidecar for %s: %w", logicalPath, err)
	}
	return ext, nil
}

// MediaType returns the media type registered for ext, if any.
func (e *Extensions) MediaType(ext string) (MediaType, bool) {
	i, ok := e.index[ext]
	if !ok {
		return MediaType{}, false
	}
	mt, err := ParseMediaType(e.entries[i].MediaType)
	if err != nil {
		return MediaType{}, false
	}
	return mt, true
}

// ExtensionFor returns the extension registered for mt's essence, if any
// (a linear scan, matching the reference's reverse lookup; sidecars are
// small enough that this is not a performance concern).
func (e *Extensions) ExtensionFor(mt MediaType) (string, bool) {
	essence := mt.Essence()
	for _, en := range e.entries {
		if en.MediaType == essence {
			return en.Ext, true
		}
	}
	return "", false
}

// MediaTypes returns every registered media type, JSON essences first
// (stable within that partition), then the rest in insertion order. This
// is the candidate list Accept-header negotiation chooses from when no
// extension was named explicitly.
func (e *Extensions) MediaTypes() []MediaType {
	out := make([]MediaType, 0, len(e.entries))
	for _, en := range e.entries {
		if mt, err := ParseMediaType(en.MediaType); err == nil {
			out = append(out, mt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsJSON() && !out[j].IsJSON()
	})
	return out
}

// Insert returns the storage.Op that persists ext -> mt for this sidecar.
// If ext already exists its media type is overwritten in place, keeping
// its original position (see SPEC_FULL.md's decision on this open question).
func (e *Extensions) Insert(ext string, mt MediaType) storage.Op {
	essence := mt.Essence()
	if i, ok := e.index[ext]; ok {
		e.entries[i].MediaType = essence
	} else {
		e.index[ext] = len(e.entries)
		e.entries = append(e.entries, extEntry{Ext: ext, MediaType: essence})
	}
	return e.opForCurrentState()
}

// Remove returns the storage.Op that drops ext from this sidecar. If the
// sidecar becomes empty the Op deletes the sidecar key entirely.
func (e *Extensions) Remove(ext string) storage.Op {
	i, ok := e.index[ext]
	if !ok {
		return e.opForCurrentState()
	}
	e.entries = append(e.entries[:i], e.entries[i+1:]...)
	delete(e.index, ext)
	for k, v := range e.index {
		if v > i {
			e.index[k] = v - 1
		}
	}
	return e.opForCurrentState()
}

func (e *Extensions) opForCurrentState() storage.Op {
	if len(e.entries) == 0 {
		return storage.Op{Key: SidecarKey(e.path), Value: nil}
	}
	data, err := e.marshal()
	if err != nil {
		// marshal only fails if entries contain types json.Marshal cannot
		// encode, which strings never do.
		panic(fmt.Sprintf("negotiate: marshal extensions: %v", err))
	}
	return storage.Op{Key: SidecarKey(e.path), Value: data}
}

func (e *Extensions) marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, en := range e.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyB, err := json.Marshal(en.Ext)
		if err != nil {
			return nil, err
		}
		valB, err := json.Marshal(en.MediaType)
		if err != nil {
			return nil, err
		}
		buf.Write(keyB)
		buf.WriteByte(':')
		buf.Write(valB)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e *Extensions) unmarshal(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil { // '{'
		return err
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("negotiate: non-string sidecar key %v", keyTok)
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return err
		}
		e.index[key] = len(e.entries)
		e.entries = append(e.entries, extEntry{Ext: key, MediaType: val})
	}
	_, err := dec.Token() // '}'
	return err
}
