// Package diff selects which extensions in a registry need packaging.
//
// Both selection modes are pure functions over in-memory snapshots; fetching
// the baseline registry or the published index is the caller's job.
package diff

import "extpack/internal/registry"

// ChangedSince returns the IDs in current whose version differs from the
// same ID in baseline. IDs missing from baseline count as changed. The
// result follows current's order.
func ChangedSince(current, baseline *registry.Registry) []registry.ExtensionID {
	changed := []registry.ExtensionID{}
	for id, entry := range current.All() {
		previous, ok := baseline.Lookup(id)
		if ok && previous.Version == entry.Version {
			continue
		}
		changed = append(changed, id)
	}
	return changed
}

// Unpublished returns the IDs in current whose version has not been
// published yet. An extension with no published history at all is
// unpublished. The result follows current's order.
func Unpublished(current *registry.Registry, published registry.PublishedVersions) []registry.ExtensionID {
	unpublished := []registry.ExtensionID{}
	for id, entry := range current.All() {
		if _, has := published.Contains(id, entry.Version); has {
			continue
		}
		unpublished = append(unpublished, id)
	}
	return unpublished
}
