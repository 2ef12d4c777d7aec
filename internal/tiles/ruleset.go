package tiles

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultRuleSet []byte

//go:embed ruleset.schema.json
var ruleSetSchemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func ruleSetSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("ruleset.schema.json", ruleSetSchemaJSON)
	})
	return schema, schemaErr
}

// RuleSet is a named list of tile rules.
type RuleSet struct {
	Name  string `yaml:"name"`
	Rules []Rule `yaml:"tiles"`
}

// DefaultRuleSet returns the built-in countryside rules.
func DefaultRuleSet() (RuleSet, error) {
	rs, err := ParseRuleSet(defaultRuleSet)
	if err != nil {
		return RuleSet{}, fmt.Errorf("default rules: %w", err)
	}
	return rs, nil
}

// LoadRuleSet reads and validates a YAML rule set from path.
func LoadRuleSet(path string) (RuleSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, err
	}
	rs, err := ParseRuleSet(b)
	if err != nil {
		return RuleSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// ParseRuleSet validates YAML rule set data against the rule set schema and
// decodes it. Missing weights default to 1.
func ParseRuleSet(data []byte) (RuleSet, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RuleSet{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return RuleSet{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	var v any
	if err := json.Unmarshal(js, &v); err != nil {
		return RuleSet{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	s, err := ruleSetSchema()
	if err != nil {
		return RuleSet{}, fmt.Errorf("compile rule set schema: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return RuleSet{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for i := range rs.Rules {
		if rs.Rules[i].Weight == 0 {
			rs.Rules[i].Weight = 1
		}
	}
	if err := ValidateRules(rs.Rules); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// Index returns the position of the rule called name, or -1.
func (rs RuleSet) Index(name string) int {
	for i, r := range rs.Rules {
		if r.Name == name {
			return i
		}
	}
	return -1
}
