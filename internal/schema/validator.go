// Package schema validates raw candidate bundles against the structural
// invariants of the secret bundle format. Candidates that are partially
// shaped are rejected outright; required fields are never defaulted.
package schema

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/systmms/credkit/pkg/secrets"
)

// bundleSchema is the JSON Schema every candidate must satisfy before it is
// accepted as a secret bundle. Token length and bucket length bounds mirror
// the provisioning tooling that writes these documents.
const bundleSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["tokens", "storage"],
  "properties": {
    "tokens": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "string",
        "minLength": 16
      }
    },
    "service_key": {
      "type": "string"
    },
    "storage": {
      "type": "object",
      "required": ["endpoint", "bucket"],
      "properties": {
        "access_key": {"type": "string"},
        "secret_key": {"type": "string"},
        "endpoint": {"type": "string", "minLength": 1},
        "bucket": {"type": "string", "minLength": 3}
      }
    }
  }
}`

// InvalidError reports why a candidate failed validation. It carries every
// violation found, not just the first, so source owners can fix a document
// in one pass.
type InvalidError struct {
	Causes []string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("candidate bundle failed schema validation: %s", strings.Join(e.Causes, "; "))
}

// Validator checks raw candidate documents against the bundle schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// New compiles the bundle schema. Compilation failure means the embedded
// schema document itself is broken, which is a programming error.
func New() (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(bundleSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile bundle schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks a raw JSON candidate and returns the decoded bundle.
// Returns *InvalidError when the candidate violates any structural invariant.
func (v *Validator) Validate(raw []byte) (*secrets.Bundle, error) {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		// Not even parseable JSON.
		return nil, &InvalidError{Causes: []string{err.Error()}}
	}

	if !result.Valid() {
		causes := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			causes = append(causes, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return nil, &InvalidError{Causes: causes}
	}

	var bundle secrets.Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, &InvalidError{Causes: []string{fmt.Sprintf("decode: %v", err)}}
	}

	// JSON Schema cannot express URL well-formedness; check it here.
	if err := checkEndpoint(bundle.Storage.Endpoint); err != nil {
		return nil, &InvalidError{Causes: []string{err.Error()}}
	}

	return &bundle, nil
}

func checkEndpoint(endpoint string) error {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("storage.endpoint: not a well-formed URL: %v", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("storage.endpoint: URL must carry a scheme and host, got %q", endpoint)
	}
	return nil
}
