package manifest

import (
	"bytes"
	"encoding/json"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	pherrors "github.com/packhouse/packhouse/pkg/errors"
)

// catalogSchema is the JSON schema every catalog document must satisfy
// before normalization. The schema is intentionally permissive about
// unknown metadata fields and strict about the shapes the engine reads.
const catalogSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schema_version", "packs"],
  "properties": {
    "schema_version": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "description": {"type": "string"},
    "author": {"type": "string"},
    "last_updated": {"type": "string"},
    "packs": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "version": {"type": "string"},
          "description": {"type": "string"},
          "tags": {"type": "array", "items": {"type": "string"}},
          "pages": {"type": "array", "items": {"type": "string"}},
          "depends_on": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "pages": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "file": {"type": "string"},
          "last_updated": {"type": "string"}
        }
      }
    }
  }
}`

const schemaResourceID = "inmemory://catalog-schema.json"

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiled() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaResourceID, bytes.NewReader([]byte(catalogSchema))); err != nil {
			compileErr = err
			return
		}
		compiledSchema, compileErr = compiler.Compile(schemaResourceID)
	})
	return compiledSchema, compileErr
}

// ValidateDocument checks raw JSON catalog bytes against the catalog
// schema. YAML documents are converted to JSON before validation by the
// loader, so this always receives JSON.
func ValidateDocument(data []byte) error {
	schema, err := compiled()
	if err != nil {
		return pherrors.Wrap(pherrors.ErrCodeInternal, err, "compile catalog schema")
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return pherrors.Wrap(pherrors.ErrCodeInvalidManifest, err, "decode catalog document")
	}

	if err := schema.Validate(payload); err != nil {
		return pherrors.Wrap(pherrors.ErrCodeInvalidManifest, err, "catalog document rejected by schema")
	}
	return nil
}
