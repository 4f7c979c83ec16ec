package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tailscale/hujson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	TOMLFileName = "extension.toml"
	JSONFileName = "extension.json"
)

// ErrNotFound is returned when an extension directory has no manifest in
// either format.
var ErrNotFound = errors.New("extension manifest not found")

// MalformedError reports a manifest file that exists but could not be read
// or decoded.
type MalformedError struct {
	Path   string
	Format Format
	Err    error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s manifest %s: %v", e.Format, e.Path, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// Load reads the manifest in dir. extension.toml takes priority; the legacy
// extension.json is only consulted when the TOML file does not exist. A file
// that exists but fails to parse is an error, never a fallback.
func Load(dir string) (*Manifest, Format, error) {
	tomlPath := filepath.Join(dir, TOMLFileName)
	data, err := os.ReadFile(tomlPath)
	if err == nil {
		m, err := ParseTOML(data)
		if err != nil {
			return nil, FormatTOML, &MalformedError{Path: tomlPath, Format: FormatTOML, Err: err}
		}
		return m, FormatTOML, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, FormatTOML, &MalformedError{Path: tomlPath, Format: FormatTOML, Err: err}
	}

	jsonPath := filepath.Join(dir, JSONFileName)
	data, err = os.ReadFile(jsonPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, FormatJSON, fmt.Errorf("%w in %s", ErrNotFound, dir)
		}
		return nil, FormatJSON, &MalformedError{Path: jsonPath, Format: FormatJSON, Err: err}
	}

	m, err := ParseJSON(data)
	if err != nil {
		return nil, FormatJSON, &MalformedError{Path: jsonPath, Format: FormatJSON, Err: err}
	}
	return m, FormatJSON, nil
}

type tomlManifest struct {
	Name            string                         `toml:"name"`
	Version         string                         `toml:"version"`
	Description     string                         `toml:"description"`
	Repository      string                         `toml:"repository"`
	Authors         []string                       `toml:"authors"`
	Lib             *LibEntry                      `toml:"lib"`
	Themes          []string                       `toml:"themes"`
	Languages       []string                       `toml:"languages"`
	Grammars        map[string]GrammarEntry        `toml:"grammars"`
	LanguageServers map[string]LanguageServerEntry `toml:"language_servers"`
}

// ParseTOML decodes extension.toml content
func ParseTOML(data []byte) (*Manifest, error) {
	var raw tomlManifest
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Name:        raw.Name,
		Version:     raw.Version,
		Description: raw.Description,
		Repository:  raw.Repository,
		Authors:     raw.Authors,
		Lib:         raw.Lib,
		Themes:      raw.Themes,
		Languages:   raw.Languages,
	}

	// Go maps lose declaration order; recover it from the decoder's key list
	m.Grammars = orderedmap.New[string, GrammarEntry]()
	m.LanguageServers = orderedmap.New[string, LanguageServerEntry]()
	for _, key := range md.Keys() {
		if len(key) != 2 {
			continue
		}
		switch key[0] {
		case "grammars":
			m.Grammars.Set(key[1], raw.Grammars[key[1]])
		case "language_servers":
			m.LanguageServers.Set(key[1], raw.LanguageServers[key[1]])
		}
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseJSON decodes extension.json content. Comments and trailing commas
// are accepted.
func ParseJSON(data []byte) (*Manifest, error) {
	value, err := hujson.Parse(data)
	if err != nil {
		return nil, err
	}
	value.Standardize()

	var m Manifest
	if err := json.Unmarshal(value.Pack(), &m); err != nil {
		return nil, err
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Name == "" {
		return errors.New("missing required field \"name\"")
	}
	if m.Version == "" {
		return errors.New("missing required field \"version\"")
	}
	m.normalize()
	return nil
}

// WriteJSON writes m as indented canonical JSON
func (m *Manifest) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
