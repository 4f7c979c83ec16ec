package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
)

// Load reads and parses the registry file at path. Either every entry loads
// or an error is returned.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return Parse(data, path)
}

// Parse decodes registry content. source names the content in errors.
func Parse(data []byte, source string) (*Registry, error) {
	var raw map[string]Entry
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, &ParseError{Path: source, Err: err}
	}

	reg := New()
	// MetaData.Keys preserves file order; top-level keys are the extension IDs
	for _, key := range md.Keys() {
		if len(key) != 1 {
			continue
		}
		name := key[0]
		entry := raw[name]

		if err := validateID(name); err != nil {
			return nil, &ParseError{Path: source, Err: err}
		}
		// Remote entries may leave path empty to mean the repository root
		if !entry.IsRemote() && (!md.IsDefined(name, "path") || entry.Path == "") {
			return nil, &ParseError{Path: source, Err: fmt.Errorf("extension %q: missing path", name)}
		}
		if !md.IsDefined(name, "version") || entry.Version == "" {
			return nil, &ParseError{Path: source, Err: fmt.Errorf("extension %q: missing version", name)}
		}
		if _, err := semver.StrictNewVersion(entry.Version); err != nil {
			return nil, &ParseError{Path: source, Err: fmt.Errorf("extension %q: invalid version %q: %w", name, entry.Version, err)}
		}
		if entry.Repository != "" && entry.Rev == "" {
			return nil, &ParseError{Path: source, Err: fmt.Errorf("extension %q: repository requires rev", name)}
		}

		if err := reg.Add(ExtensionID(name), entry); err != nil {
			return nil, &ParseError{Path: source, Err: err}
		}
	}

	return reg, nil
}

// ParseBaseline decodes a historical copy of the registry. Only each ID's
// version is needed to compare against, so entries that no longer pass
// validation are kept as they are.
func ParseBaseline(data []byte, source string) (*Registry, error) {
	var raw map[string]Entry
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, &ParseError{Path: source, Err: err}
	}

	reg := New()
	for _, key := range md.Keys() {
		if len(key) != 1 {
			continue
		}
		if err := reg.Add(ExtensionID(key[0]), raw[key[0]]); err != nil {
			return nil, &ParseError{Path: source, Err: err}
		}
	}
	return reg, nil
}

// validateID rejects IDs that cannot be used as a file name component
func validateID(id string) error {
	if id == "" || id == "." || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid extension id %q: must be a single path component", id)
	}
	return nil
}
