package manifest

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Format records which on-disk manifest form an extension used
type Format int

const (
	FormatTOML Format = iota // extension.toml
	FormatJSON               // legacy extension.json
)

func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Grammars maps grammar names to their sources, in declaration order
type Grammars = orderedmap.OrderedMap[string, GrammarEntry]

// LanguageServers maps server IDs to their entries, in declaration order
type LanguageServers = orderedmap.OrderedMap[string, LanguageServerEntry]

// Manifest is the canonical extension metadata, independent of source format
type Manifest struct {
	Name            string           `json:"name"`
	Version         string           `json:"version"`
	Description     string           `json:"description,omitempty"`
	Repository      string           `json:"repository,omitempty"`
	Authors         []string         `json:"authors"`
	Lib             *LibEntry        `json:"lib,omitempty"`
	Themes          []string         `json:"themes"`
	Languages       []string         `json:"languages"`
	Grammars        *Grammars        `json:"grammars"`
	LanguageServers *LanguageServers `json:"language_servers"`
}

// GrammarEntry points at the source of a tree-sitter grammar
type GrammarEntry struct {
	Repository string `json:"repository" toml:"repository"`
	Rev        string `json:"rev" toml:"rev"`
}

// UnmarshalJSON accepts the legacy "commit" key in place of "rev"
func (g *GrammarEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Repository string `json:"repository"`
		Rev        string `json:"rev"`
		Commit     string `json:"commit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.Repository = raw.Repository
	g.Rev = raw.Rev
	if g.Rev == "" {
		g.Rev = raw.Commit
	}
	return nil
}

// LanguageServerEntry declares a language server and the language it serves
type LanguageServerEntry struct {
	Name     string `json:"name,omitempty" toml:"name"`
	Language string `json:"language" toml:"language"`
}

// LibEntry points at the extension's compiled library
type LibEntry struct {
	Path string `json:"path" toml:"path"`
}

// NewManifest creates a manifest with every list and map empty
func NewManifest() *Manifest {
	return &Manifest{
		Authors:         []string{},
		Themes:          []string{},
		Languages:       []string{},
		Grammars:        orderedmap.New[string, GrammarEntry](),
		LanguageServers: orderedmap.New[string, LanguageServerEntry](),
	}
}

// Skeleton returns a manifest carrying m's identity fields with all asset
// lists and maps empty, ready to be filled from a package's asset walk.
func (m *Manifest) Skeleton() *Manifest {
	out := NewManifest()
	out.Name = m.Name
	out.Version = m.Version
	out.Description = m.Description
	out.Repository = m.Repository
	out.Authors = append(out.Authors, m.Authors...)
	return out
}

// normalize fills absent lists and maps with empty values
func (m *Manifest) normalize() {
	if m.Authors == nil {
		m.Authors = []string{}
	}
	if m.Themes == nil {
		m.Themes = []string{}
	}
	if m.Languages == nil {
		m.Languages = []string{}
	}
	if m.Grammars == nil {
		m.Grammars = orderedmap.New[string, GrammarEntry]()
	}
	if m.LanguageServers == nil {
		m.LanguageServers = orderedmap.New[string, LanguageServerEntry]()
	}
}
