package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	pherrors "github.com/packhouse/packhouse/pkg/errors"
)

// Decode parses, validates and normalizes a JSON catalog document.
func Decode(data []byte) (*Manifest, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, pherrors.Wrap(pherrors.ErrCodeInvalidManifest, err, "decode catalog document")
	}
	return m.Normalize(), nil
}

// DecodeYAML parses a YAML catalog document. The document is converted to
// JSON first so schema validation and normalization share one code path.
func DecodeYAML(data []byte) (*Manifest, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, pherrors.Wrap(pherrors.ErrCodeInvalidManifest, err, "decode catalog yaml")
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, pherrors.Wrap(pherrors.ErrCodeInvalidManifest, err, "convert catalog yaml")
	}
	return Decode(jsonData)
}

// LoadFile reads a catalog document from disk, choosing the decoder by
// file extension (.yaml/.yml ⇒ YAML, anything else ⇒ JSON).
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pherrors.Wrap(pherrors.ErrCodeNotFound, err, "read catalog %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return Decode(data)
	}
}
