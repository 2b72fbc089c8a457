// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

// Package tool parses, sanitizes, and dispatches tool invocations emitted
// by session actors. Tools are described by a Descriptor, registered in an
// explicit Registry, and executed over persistent per-endpoint transports.
package tool

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Descriptor describes one callable tool: its name, the endpoint it is
// dispatched to, and the shape of its arguments. Args holds a zero value of
// the argument struct; the JSON Schema is reflected from it on first use.
type Descriptor struct {
	Name        string
	Description string
	// Endpoint names the transport channel this tool is dispatched over.
	Endpoint string
	// Args is a zero value of the argument struct, or nil for tools that
	// take free-form arguments.
	Args any

	schemaOnce sync.Once
	schema     *jschema.Schema
	schemaErr  error
}

// SchemaJSON generates the JSON Schema document for the tool's arguments.
func (d *Descriptor) SchemaJSON() ([]byte, error) {
	if d.Args == nil {
		return []byte(`{"type":"object"}`), nil
	}
	// Actors are sloppy: only fields tagged required are enforced, and
	// unknown keys are tolerated rather than failing the call.
	r := jsonschema.Reflector{
		DoNotReference:             true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(d.Args)
	schema.Title = d.Name
	schema.Description = d.Description

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema for %s: %w", d.Name, err)
	}
	return data, nil
}

// Validate checks arguments against the tool's compiled schema. Arguments
// are round-tripped through JSON so typed Go values validate the same as
// decoded wire data.
func (d *Descriptor) Validate(args map[string]any) error {
	sch, err := d.compiledSchema()
	if err != nil {
		return schemaErr(d.Name, err, "")
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return schemaErr(d.Name, err, "")
	}
	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err != nil {
		return schemaErr(d.Name, err, "")
	}

	if err := sch.Validate(jsonData); err != nil {
		return schemaErr(d.Name, err, "")
	}
	return nil
}

func (d *Descriptor) compiledSchema() (*jschema.Schema, error) {
	d.schemaOnce.Do(func() {
		d.schema, d.schemaErr = d.compileSchema()
	})
	return d.schema, d.schemaErr
}

func (d *Descriptor) compileSchema() (*jschema.Schema, error) {
	schemaBytes, err := d.SchemaJSON()
	if err != nil {
		return nil, err
	}

	var schemaData any
	if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	c := jschema.NewCompiler()
	resource := d.Name + ".schema.json"
	if err := c.AddResource(resource, schemaData); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return sch, nil
}
