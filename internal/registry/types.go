package registry

import (
	"fmt"
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ExtensionID uniquely identifies an extension within a registry
type ExtensionID string

func (id ExtensionID) String() string {
	return string(id)
}

// Entry is one extension's record in the registry file
type Entry struct {
	Path       string `toml:"path"`
	Version    string `toml:"version"`
	Repository string `toml:"repository,omitempty"` // Remote source; Path is then relative to the checkout
	Rev        string `toml:"rev,omitempty"`        // Commit to check out from Repository
}

// IsRemote reports whether the extension source must be fetched from a repository
func (e Entry) IsRemote() bool {
	return e.Repository != ""
}

// Registry is the ordered id -> entry mapping loaded from the registry file.
// Iteration follows the order in which entries appear in the source file.
type Registry struct {
	entries *orderedmap.OrderedMap[ExtensionID, Entry]
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		entries: orderedmap.New[ExtensionID, Entry](),
	}
}

// Add appends an entry. Adding an ID twice is an error.
func (r *Registry) Add(id ExtensionID, entry Entry) error {
	if _, exists := r.entries.Get(id); exists {
		return fmt.Errorf("duplicate extension id %q", id)
	}
	r.entries.Set(id, entry)
	return nil
}

// Lookup returns the entry for id
func (r *Registry) Lookup(id ExtensionID) (Entry, bool) {
	if r == nil || r.entries == nil {
		return Entry{}, false
	}
	return r.entries.Get(id)
}

// Len returns the number of entries
func (r *Registry) Len() int {
	if r == nil || r.entries == nil {
		return 0
	}
	return r.entries.Len()
}

// All iterates entries in registry order
func (r *Registry) All() iter.Seq2[ExtensionID, Entry] {
	return func(yield func(ExtensionID, Entry) bool) {
		if r == nil || r.entries == nil {
			return
		}
		for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// IDs returns all extension IDs in registry order
func (r *Registry) IDs() []ExtensionID {
	ids := make([]ExtensionID, 0, r.Len())
	for id := range r.All() {
		ids = append(ids, id)
	}
	return ids
}

// ParseError reports a registry file that could not be read or decoded
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse registry %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
