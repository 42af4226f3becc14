package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	_ "embed"
)

//go:embed override.schema.json
var overrideSchemaJSON []byte

// Override is the set of per-run configuration overrides accepted from a
// YAML file. Nil fields leave the base value untouched. Derived fields
// (base URLs) are not overridable; the schema rejects unknown keys.
type Override struct {
	ServerHost            *string             `yaml:"server_host" json:"server_host,omitempty"`
	ServerPort            *int                `yaml:"server_port" json:"server_port,omitempty"`
	EndpointPrefix        *string             `yaml:"endpoint_prefix" json:"endpoint_prefix,omitempty"`
	CloneTimeoutSeconds   *int                `yaml:"clone_timeout_seconds" json:"clone_timeout_seconds,omitempty"`
	InstallTimeoutSeconds *int                `yaml:"install_timeout_seconds" json:"install_timeout_seconds,omitempty"`
	StartupTimeoutSeconds *int                `yaml:"startup_timeout_seconds" json:"startup_timeout_seconds,omitempty"`
	RequestTimeoutSeconds *int                `yaml:"request_timeout_seconds" json:"request_timeout_seconds,omitempty"`
	RequiredEnvVars       *[]string           `yaml:"required_env_vars" json:"required_env_vars,omitempty"`
	Weights               *Weights            `yaml:"weights" json:"weights,omitempty"`
	TestQueries           *[]TestQuery        `yaml:"test_queries" json:"test_queries,omitempty"`
	GradeThresholds       *map[string]float64 `yaml:"grade_thresholds" json:"grade_thresholds,omitempty"`
	EmbedModelName        *string             `yaml:"embed_model_name" json:"embed_model_name,omitempty"`
	LLMModelName          *string             `yaml:"llm_model_name" json:"llm_model_name,omitempty"`
	ChunkLength           *int                `yaml:"chunk_length" json:"chunk_length,omitempty"`
}

var compileOverrideSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(overrideSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse override schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("override.schema.json", doc); err != nil {
		return nil, fmt.Errorf("add override schema: %w", err)
	}
	sch, err := c.Compile("override.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile override schema: %w", err)
	}
	return sch, nil
})

// LoadOverrideFile parses and schema-validates a YAML override file.
func LoadOverrideFile(path string) (*Override, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read override file: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse override YAML: %w", err)
	}
	if doc == nil {
		return &Override{}, nil
	}

	// Round-trip through JSON so the schema validator sees canonical types.
	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode override for validation: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonDoc))
	if err != nil {
		return nil, fmt.Errorf("decode override for validation: %w", err)
	}

	sch, err := compileOverrideSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("invalid override file: %w", err)
	}

	var ov Override
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&ov); err != nil {
		return nil, fmt.Errorf("decode override: %w", err)
	}
	return &ov, nil
}

// Apply returns a new Config with the override applied on top of c. The
// receiver is never mutated; derived fields are recomputed on the copy.
func (c *Config) Apply(ov *Override) (*Config, error) {
	out := c.Clone()
	if ov == nil {
		out.derive()
		return out, nil
	}

	if ov.ServerHost != nil {
		out.ServerHost = *ov.ServerHost
	}
	if ov.ServerPort != nil {
		out.ServerPort = *ov.ServerPort
	}
	if ov.EndpointPrefix != nil {
		out.EndpointPrefix = *ov.EndpointPrefix
	}
	if ov.CloneTimeoutSeconds != nil {
		out.CloneTimeout = time.Duration(*ov.CloneTimeoutSeconds) * time.Second
	}
	if ov.InstallTimeoutSeconds != nil {
		out.InstallTimeout = time.Duration(*ov.InstallTimeoutSeconds) * time.Second
	}
	if ov.StartupTimeoutSeconds != nil {
		out.StartupTimeout = time.Duration(*ov.StartupTimeoutSeconds) * time.Second
	}
	if ov.RequestTimeoutSeconds != nil {
		out.RequestTimeout = time.Duration(*ov.RequestTimeoutSeconds) * time.Second
	}
	if ov.RequiredEnvVars != nil {
		out.RequiredEnvVars = append([]string(nil), (*ov.RequiredEnvVars)...)
	}
	if ov.Weights != nil {
		out.Weights = *ov.Weights
	}
	if ov.TestQueries != nil {
		out.TestQueries = append([]TestQuery(nil), (*ov.TestQueries)...)
	}
	if ov.GradeThresholds != nil {
		out.GradeThresholds = sortThresholds(*ov.GradeThresholds)
	}
	if ov.EmbedModelName != nil {
		out.EmbedModelName = *ov.EmbedModelName
	}
	if ov.LLMModelName != nil {
		out.LLMModelName = *ov.LLMModelName
	}
	if ov.ChunkLength != nil {
		out.ChunkLength = *ov.ChunkLength
	}

	out.derive()
	if err := out.validate(); err != nil {
		return nil, fmt.Errorf("override produced invalid config: %w", err)
	}
	return out, nil
}

// sortThresholds converts a grade→minimum map into the descending slice the
// scoring engine walks.
func sortThresholds(m map[string]float64) []GradeThreshold {
	out := make([]GradeThreshold, 0, len(m))
	for grade, min := range m {
		out = append(out, GradeThreshold{Grade: grade, Min: min})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Min != out[j].Min {
			return out[i].Min > out[j].Min
		}
		return out[i].Grade < out[j].Grade
	})
	return out
}
