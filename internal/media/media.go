package media

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Kind classifies a registered source.
type Kind string

const (
	Video      Kind = "video"
	Audio      Kind = "audio"
	Image      Kind = "image"
	GIF        Kind = "gif"
	Transition Kind = "transition"
	RemoteURL  Kind = "url"
)

// Kinds lists every kind in registry order.
var Kinds = []Kind{Video, Audio, Image, GIF, Transition, RemoteURL}

// ParseKind resolves a kind name from user input.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown media kind: %q", s)
}

// Reference points at one source. Immutable once registered.
type Reference struct {
	Kind    Kind
	Locator string
}

func (r Reference) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.Locator)
}

// IsVisual reports whether the reference contributes picture content.
func (r Reference) IsVisual() bool {
	switch r.Kind {
	case Video, Image, GIF:
		return true
	}
	return false
}

// Registry holds the sources for a session. Mutations are safe to call
// while a render runs; the worker only ever sees snapshots.
type Registry struct {
	mu   sync.Mutex
	refs map[Kind][]Reference
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{refs: make(map[Kind][]Reference)}
}

// Add registers a source locator under a kind, keeping insertion order.
func (r *Registry) Add(kind Kind, locator string) (Reference, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return Reference{}, err
	}
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return Reference{}, fmt.Errorf("empty locator for kind %s", kind)
	}

	ref := Reference{Kind: kind, Locator: locator}
	r.mu.Lock()
	r.refs[kind] = append(r.refs[kind], ref)
	r.mu.Unlock()
	return ref, nil
}

// Remove drops the first reference matching locator under kind.
func (r *Registry) Remove(kind Kind, locator string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.refs[kind]
	for i, ref := range list {
		if ref.Locator == locator {
			r.refs[kind] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties one kind.
func (r *Registry) Clear(kind Kind) {
	r.mu.Lock()
	delete(r.refs, kind)
	r.mu.Unlock()
}

// ClearAll empties the registry.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	r.refs = make(map[Kind][]Reference)
	r.mu.Unlock()
}

// Count returns how many references are registered under kind.
func (r *Registry) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.refs[kind])
}

// Snapshot deep-copies the current registry state. A render works from
// the snapshot, so later registry edits never affect it.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	refs := make(map[Kind][]Reference, len(r.refs))
	for kind, list := range r.refs {
		refs[kind] = append([]Reference(nil), list...)
	}
	return &Snapshot{refs: refs}
}

// Snapshot is an immutable view of the registry at one instant.
type Snapshot struct {
	refs map[Kind][]Reference
}

// SnapshotOf builds a snapshot directly from reference lists, mainly
// for tests and project files.
func SnapshotOf(refs ...Reference) *Snapshot {
	m := make(map[Kind][]Reference)
	for _, ref := range refs {
		m[ref.Kind] = append(m[ref.Kind], ref)
	}
	return &Snapshot{refs: m}
}

// Refs returns the references of one kind in registration order.
func (s *Snapshot) Refs(kind Kind) []Reference {
	return append([]Reference(nil), s.refs[kind]...)
}

// Count returns how many references of kind the snapshot holds.
func (s *Snapshot) Count(kind Kind) int {
	return len(s.refs[kind])
}

// Visuals returns video, image and GIF references, videos first.
func (s *Snapshot) Visuals() []Reference {
	var out []Reference
	for _, kind := range []Kind{Video, Image, GIF} {
		out = append(out, s.refs[kind]...)
	}
	return out
}

// Total counts every reference in the snapshot.
func (s *Snapshot) Total() int {
	n := 0
	for _, list := range s.refs {
		n += len(list)
	}
	return n
}

// KindForPath classifies a local file by extension. Unknown extensions
// come back as Video, the forgiving default for ffmpeg input.
func KindForPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".wav", ".ogg", ".flac", ".m4a", ".aac", ".opus":
		return Audio
	case ".png", ".jpg", ".jpeg", ".bmp", ".webp", ".tiff":
		return Image
	case ".gif":
		return GIF
	default:
		return Video
	}
}
