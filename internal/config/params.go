// Package config holds the build parameters a host agent hands to the
// runner.
//
// Parameters arrive as a JSON document (the string-keyed parameter map a CI
// server passes to its build steps). The document is validated against a
// JSON Schema before binding so a malformed step configuration fails with a
// schema error instead of a silent zero value.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// Params are the step-level build parameters.
type Params struct {
	// Version is the requested editor version, empty for latest.
	Version string `json:"unityVersion,omitempty"`

	// ProjectPath is the Unity project directory. Required.
	ProjectPath string `json:"projectPath"`

	// BuildTarget is the target platform name.
	BuildTarget string `json:"buildTarget,omitempty"`

	// PlayerFlag is the build-player flag name, without the leading dash.
	PlayerFlag string `json:"buildPlayer,omitempty"`

	// PlayerPath is the output path for the built player.
	PlayerPath string `json:"playerPath,omitempty"`

	// RunTests requests a test run.
	RunTests bool `json:"runTests,omitempty"`

	// NoGraphics disables graphics device initialization.
	NoGraphics bool `json:"noGraphics,omitempty"`

	// ExecuteMethod is a static method to invoke.
	ExecuteMethod string `json:"executeMethod,omitempty"`

	// Arguments is the free-form extra arguments string.
	Arguments string `json:"arguments,omitempty"`

	// TestPlatform, TestCategories and TestNames filter a test run.
	TestPlatform   string   `json:"testPlatform,omitempty"`
	TestCategories []string `json:"testCategories,omitempty"`
	TestNames      []string `json:"testNames,omitempty"`
}

// FeatureParams are the feature-level parameters, set once per build
// configuration rather than per step.
type FeatureParams struct {
	// Version overrides the step-level version request.
	Version string `json:"unityVersion,omitempty"`

	// CacheServer is the cache server address.
	CacheServer string `json:"cacheServer,omitempty"`
}

// Document is the full parameters document.
type Document struct {
	Params

	// Feature carries the feature-level parameter set.
	Feature FeatureParams `json:"feature,omitzero"`
}

// stringSchema and the helpers below build the parameters schema.
func stringSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string"}
}

func stringListSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: stringSchema()}
}

func boolSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean"}
}

// resolvedSchema resolves the parameters schema once.
var resolvedSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	// jsonschema-go requires the schema to form a tree, so each
	// AdditionalProperties needs its own "false" schema instance.
	falseSchema := func() *jsonschema.Schema {
		return &jsonschema.Schema{Not: &jsonschema.Schema{}}
	}

	schema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"unityVersion":   stringSchema(),
			"projectPath":    stringSchema(),
			"buildTarget":    stringSchema(),
			"buildPlayer":    stringSchema(),
			"playerPath":     stringSchema(),
			"runTests":       boolSchema(),
			"noGraphics":     boolSchema(),
			"executeMethod":  stringSchema(),
			"arguments":      stringSchema(),
			"testPlatform":   stringSchema(),
			"testCategories": stringListSchema(),
			"testNames":      stringListSchema(),
			"feature": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"unityVersion": stringSchema(),
					"cacheServer":  stringSchema(),
				},
				AdditionalProperties: falseSchema(),
			},
		},
		Required:             []string{"projectPath"},
		AdditionalProperties: falseSchema(),
	}

	return schema.Resolve(nil)
})

// Load decodes and validates a parameters document.
func Load(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read parameters: %w", err)
	}

	var raw any

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse parameters: %w", err)
	}

	resolved, err := resolvedSchema()
	if err != nil {
		return nil, fmt.Errorf("resolve parameters schema: %w", err)
	}

	if err := resolved.Validate(raw); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	var doc Document

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("bind parameters: %w", err)
	}

	return &doc, nil
}

// EffectiveVersion returns the requested version, with the feature-level
// override taking precedence over the step parameter.
func (d *Document) EffectiveVersion() string {
	if d.Feature.Version != "" {
		return d.Feature.Version
	}

	return d.Params.Version
}
