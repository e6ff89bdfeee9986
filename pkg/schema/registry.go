// Package schema compiles the canonical JSON Schemas for every
// artifact type named in §6's outbound data contracts and validates
// stage output against them before it reaches put_if_absent. A
// non-canonical label or a structurally invalid payload is always a
// schema-validation failure, never a warning: the orchestrator treats
// it as ireerrors.KindValidation and fails the stage closed.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// schemaFiles lists the embedded files in load order; artifact-ref is
// loaded first since every other schema $refs it.
var schemaFiles = []string{
	"schemas/artifact-ref.schema.json",
	"schemas/provenance-envelope.schema.json",
	"schemas/normalized-message.schema.json",
	"schemas/identity-resolution-result.schema.json",
	"schemas/classification-result.schema.json",
	"schemas/extraction-result.schema.json",
	"schemas/routing-decision.schema.json",
	"schemas/audit-event.schema.json",
	"schemas/correction-record.schema.json",
	"schemas/llm-inference.schema.json",
}

// Registry holds one compiled *jsonschema.Schema per canonical $id URN.
type Registry struct {
	byID map[string]*jsonschema.Schema
}

// NewRegistry compiles every embedded schema. An error here is a
// programmer error (a malformed schema shipped in the binary), not a
// runtime condition, so callers should treat it as fatal at startup.
func NewRegistry() (*Registry, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	for _, path := range schemaFiles {
		raw, err := schemaFS.Open(path)
		if err != nil {
			return nil, fmt.Errorf("schema: open %s: %w", path, err)
		}
		var probe struct {
			ID string `json:"$id"`
		}
		data, err := io.ReadAll(raw)
		_ = raw.Close()
		if err != nil {
			return nil, fmt.Errorf("schema: read %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("schema: parse %s: %w", path, err)
		}
		if err := c.AddResource(probe.ID, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("schema: add resource %s: %w", probe.ID, err)
		}
	}

	byID := make(map[string]*jsonschema.Schema, len(schemaFiles))
	for _, id := range []string{
		model.SchemaNormalizedMessage,
		model.SchemaIdentityResolution,
		model.SchemaClassificationResult,
		model.SchemaExtractionResult,
		model.SchemaRoutingDecision,
		model.SchemaAuditEvent,
		model.SchemaCorrectionRecord,
		model.SchemaLLMInference,
	} {
		compiled, err := c.Compile(id)
		if err != nil {
			return nil, fmt.Errorf("schema: compile %s: %w", id, err)
		}
		byID[id] = compiled
	}
	return &Registry{byID: byID}, nil
}

// Validate checks payload (raw JSON bytes) against the schema
// registered for schemaID. A missing schemaID is itself a validation
// failure: there is no implicit "no schema, so anything passes" case.
func (r *Registry) Validate(schemaID string, payload []byte) error {
	compiled, ok := r.byID[schemaID]
	if !ok {
		return ireerrors.New(ireerrors.KindValidation, "", ireerrors.ReasonSchemaInvalid)
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return ireerrors.Wrap(ireerrors.KindValidation, "", ireerrors.ReasonSchemaInvalid, err)
	}
	if err := compiled.Validate(v); err != nil {
		return ireerrors.Wrap(ireerrors.KindValidation, "", ireerrors.ReasonSchemaInvalid, err)
	}
	return nil
}
