package manifest

import (
	"reflect"
	"testing"

	pherrors "github.com/packhouse/packhouse/pkg/errors"
)

const sampleJSON = `{
  "schema_version": "1",
  "name": "demo",
  "packs": {
    "docs": {"version": "1.0", "pages": ["Home"], "depends_on": ["base"]},
    "base": {"id": "base", "version": "2.0", "tags": ["core"]}
  },
  "pages": {
    "Home": {"file": "home.md"}
  }
}`

func TestDecode(t *testing.T) {
	m, err := Decode([]byte(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}

	docs := m.Pack("docs")
	if docs == nil {
		t.Fatal("missing pack docs")
	}
	// The id is inherited from the map key during normalization.
	if docs.ID != "docs" || docs.Version != "1.0" {
		t.Errorf("docs = %+v", docs)
	}
	if !m.Pack("base").HasTag("core") || m.Pack("base").HasTag("extra") {
		t.Error("HasTag wrong for base")
	}

	home := m.Page("Home")
	if home == nil || home.Name != "Home" || home.File != "home.md" {
		t.Errorf("Home = %+v", home)
	}
}

func TestDecodeRejectsInvalidDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"not json", `{"schema_version":`},
		{"missing schema_version", `{"packs": {}}`},
		{"missing packs", `{"schema_version": "1"}`},
		{"packs wrong shape", `{"schema_version": "1", "packs": []}`},
		{"pages wrong shape", `{"schema_version": "1", "packs": {}, "pages": {"Home": {"file": 7}}}`},
	}
	for _, tc := range cases {
		if _, err := Decode([]byte(tc.doc)); !pherrors.Is(err, pherrors.ErrCodeInvalidManifest) {
			t.Errorf("%s: err = %v, want INVALID_MANIFEST", tc.name, err)
		}
	}
}

func TestDecodeYAML(t *testing.T) {
	doc := `
schema_version: "1"
packs:
  docs:
    version: "1.0"
    pages: [Home]
pages:
  Home:
    file: home.md
`
	m, err := DecodeYAML([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if m.Pack("docs") == nil || m.Page("Home") == nil {
		t.Fatalf("yaml decode lost entries: %+v", m)
	}

	if _, err := DecodeYAML([]byte(":\n  - not yaml: [")); !pherrors.Is(err, pherrors.ErrCodeInvalidManifest) {
		t.Errorf("bad yaml: err = %v, want INVALID_MANIFEST", err)
	}
}

func TestNormalize(t *testing.T) {
	m := &Manifest{
		SchemaVersion: "1",
		Packs: map[string]*PackDefinition{
			"docs": {Version: "1.0"},
			"  ":   {ID: "spaced", Version: "1.0"},
			"nil":  nil,
		},
		Pages: map[string]*PageDefinition{
			"Home":     {File: "home.md"},
			"Orphaned": {File: "   "},
		},
	}
	m.Normalize()

	if got := m.PackIDs(); !reflect.DeepEqual(got, []string{"docs"}) {
		t.Errorf("PackIDs = %v, want [docs]", got)
	}
	if m.Pack("docs").ID != "docs" {
		t.Error("pack did not inherit its map key as id")
	}
	if m.Page("Orphaned") != nil {
		t.Error("page without a file survived normalization")
	}
	if m.Page("Home").Name != "Home" {
		t.Error("page did not inherit its map key as name")
	}
}

func TestPackList(t *testing.T) {
	m := &Manifest{
		SchemaVersion: "1",
		Packs: map[string]*PackDefinition{
			"zeta":  {ID: "zeta", Version: "1"},
			"alpha": {ID: "alpha", Version: "1"},
		},
	}

	list := m.PackList()
	if len(list) != 2 || list[0].ID != "alpha" || list[1].ID != "zeta" {
		t.Fatalf("PackList = %+v, want id order", list)
	}
}
