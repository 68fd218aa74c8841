// Package manifest defines the parsed catalog model consumed by the
// dependency-graph engine, together with loaders and a provider port.
//
// A catalog document describes reusable packs (bundles of wiki pages) and
// the pages they reference. The document is authored as JSON or YAML and
// validated against an embedded JSON schema before normalization.
//
// The engine treats the Manifest as read-only input: packs with blank ids
// and pages without a source descriptor are dropped during normalization
// rather than reported as errors, favoring partial availability over
// strict rejection.
package manifest

import (
	"sort"
	"strings"
)

// PackDefinition describes one installable bundle of pages.
type PackDefinition struct {
	ID          string   `json:"id" yaml:"id" bson:"id"`
	Version     string   `json:"version" yaml:"version" bson:"version"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" bson:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty" bson:"tags,omitempty"`
	Pages       []string `json:"pages,omitempty" yaml:"pages,omitempty" bson:"pages,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty" bson:"depends_on,omitempty"`
}

// HasTag reports whether the pack declares the given tag.
func (p *PackDefinition) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// PageDefinition describes a single content unit referenced by packs.
type PageDefinition struct {
	Name        string `json:"name" yaml:"name" bson:"name"`
	File        string `json:"file" yaml:"file" bson:"file"`
	LastUpdated string `json:"last_updated,omitempty" yaml:"last_updated,omitempty" bson:"last_updated,omitempty"`
}

// Manifest is the parsed catalog: metadata plus the pack and page tables.
type Manifest struct {
	SchemaVersion string `json:"schema_version" yaml:"schema_version" bson:"schema_version"`
	Name          string `json:"name,omitempty" yaml:"name,omitempty" bson:"name,omitempty"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty" bson:"description,omitempty"`
	Author        string `json:"author,omitempty" yaml:"author,omitempty" bson:"author,omitempty"`
	LastUpdated   string `json:"last_updated,omitempty" yaml:"last_updated,omitempty" bson:"last_updated,omitempty"`

	Packs map[string]*PackDefinition `json:"packs" yaml:"packs" bson:"packs"`
	Pages map[string]*PageDefinition `json:"pages,omitempty" yaml:"pages,omitempty" bson:"pages,omitempty"`
}

// Pack returns the pack definition for id, or nil if unknown.
func (m *Manifest) Pack(id string) *PackDefinition {
	if m == nil {
		return nil
	}
	return m.Packs[id]
}

// Page returns the page definition for name, or nil if unknown.
func (m *Manifest) Page(name string) *PageDefinition {
	if m == nil {
		return nil
	}
	return m.Pages[name]
}

// PackIDs returns all pack ids in lexicographic order.
func (m *Manifest) PackIDs() []string {
	ids := make([]string, 0, len(m.Packs))
	for id := range m.Packs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PackList returns all pack definitions ordered by id. The graph and
// hierarchy builders consume this deterministic ordering.
func (m *Manifest) PackList() []*PackDefinition {
	packs := make([]*PackDefinition, 0, len(m.Packs))
	for _, id := range m.PackIDs() {
		packs = append(packs, m.Packs[id])
	}
	return packs
}

// Normalize drops invalid entries and aligns keys with declared ids:
//
//   - A pack whose map key or declared id is blank is removed.
//   - A pack with an empty id field inherits its map key.
//   - A page without a source descriptor (file) is removed.
//   - A page with an empty name field inherits its map key.
//
// Normalize mutates the manifest in place and returns it for chaining.
func (m *Manifest) Normalize() *Manifest {
	if m.Packs == nil {
		m.Packs = map[string]*PackDefinition{}
	}
	if m.Pages == nil {
		m.Pages = map[string]*PageDefinition{}
	}

	for key, pack := range m.Packs {
		if pack == nil || strings.TrimSpace(key) == "" {
			delete(m.Packs, key)
			continue
		}
		if pack.ID == "" {
			pack.ID = key
		}
		if strings.TrimSpace(pack.ID) == "" {
			delete(m.Packs, key)
		}
	}

	for key, page := range m.Pages {
		if page == nil || strings.TrimSpace(page.File) == "" {
			delete(m.Pages, key)
			continue
		}
		if page.Name == "" {
			page.Name = key
		}
	}

	return m
}
