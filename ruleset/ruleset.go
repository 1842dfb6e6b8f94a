// Package ruleset loads rule tables from declarative YAML documents. It
// is a thin layer over RuleSet.Register: every binding it supports maps
// to one stock rule.
package ruleset

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/midbel/digest/digest"
)

// Env supplies what rule files can refer to by name.
type Env struct {
	Factories  map[string]func() any
	Namespaces map[string]string

	// Fallback resolves factory names absent from Factories. Leaving it
	// nil makes unknown names a configuration error.
	Fallback func(name string) func() any
}

func (e Env) factory(name string) (func() any, error) {
	if fn, ok := e.Factories[name]; ok {
		return fn, nil
	}
	if e.Fallback != nil {
		if fn := e.Fallback(name); fn != nil {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("%w: %s: unknown factory", digest.ErrConfiguration, name)
}

type callSpec struct {
	Method string `yaml:"method"`
	Params int    `yaml:"params"`
}

type paramSpec struct {
	Slot  *int   `yaml:"slot"`
	From  string `yaml:"from"`
	Attr  string `yaml:"attr"`
	Value string `yaml:"value"`
}

type ruleSpec struct {
	Pattern string            `yaml:"pattern"`
	Create  string            `yaml:"create"`
	Keep    bool              `yaml:"keep"`
	Props   bool              `yaml:"props"`
	Aliases map[string]string `yaml:"aliases"`
	Strict  bool              `yaml:"strict"`
	Text    string            `yaml:"text"`
	Attach  string            `yaml:"attach"`
	Call    *callSpec         `yaml:"call"`
	Param   *paramSpec        `yaml:"param"`
}

type document struct {
	Namespaces map[string]string `yaml:"namespaces"`
	Rules      []ruleSpec        `yaml:"rules"`
}

func LoadFile(file string, env Env) (*digest.RuleSet, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return Load(r, env)
}

func Load(r io.Reader, env Env) (*digest.RuleSet, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := yaml.UnmarshalStrict(buf, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s", digest.ErrConfiguration, err)
	}
	set := digest.NewRuleSet()
	for prefix, uri := range env.Namespaces {
		set.RegisterNS(prefix, uri)
	}
	for prefix, uri := range doc.Namespaces {
		set.RegisterNS(prefix, uri)
	}
	for i, spec := range doc.Rules {
		if err := register(set, spec, env); err != nil {
			return nil, fmt.Errorf("rule #%d: %w", i+1, err)
		}
	}
	return set, nil
}

func register(set *digest.RuleSet, spec ruleSpec, env Env) error {
	if spec.Pattern == "" {
		return fmt.Errorf("%w: pattern is missing", digest.ErrConfiguration)
	}
	var rules []digest.Rule
	if spec.Create != "" {
		fn, err := env.factory(spec.Create)
		if err != nil {
			return err
		}
		if spec.Keep {
			rules = append(rules, digest.CreateAndKeep(fn))
		} else {
			rules = append(rules, digest.CreateObject(fn))
		}
	}
	if spec.Props || len(spec.Aliases) > 0 {
		rules = append(rules, digest.SetPropertiesWith(spec.Aliases, spec.Strict))
	}
	if spec.Text != "" {
		rules = append(rules, digest.SetBody(spec.Text))
	}
	if spec.Call != nil {
		if spec.Call.Method == "" {
			return fmt.Errorf("%w: call method is missing", digest.ErrConfiguration)
		}
		rules = append(rules, digest.CallMethod(spec.Call.Method, spec.Call.Params))
	}
	if spec.Param != nil {
		rule, err := paramRule(spec.Param)
		if err != nil {
			return err
		}
		rules = append(rules, rule)
	}
	if spec.Attach != "" {
		rules = append(rules, digest.Attach(spec.Attach))
	}
	if len(rules) == 0 {
		return fmt.Errorf("%w: %s: rule has no effect", digest.ErrConfiguration, spec.Pattern)
	}
	for _, rule := range rules {
		if err := set.Register(spec.Pattern, rule); err != nil {
			return err
		}
	}
	return nil
}

func paramRule(spec *paramSpec) (digest.Rule, error) {
	slot := -1
	if spec.Slot != nil {
		slot = *spec.Slot
	}
	switch spec.From {
	case "", "body":
		return digest.ParamFromBody(slot), nil
	case "attr":
		if spec.Attr == "" {
			return nil, fmt.Errorf("%w: param attribute is missing", digest.ErrConfiguration)
		}
		return digest.ParamFromAttr(slot, spec.Attr), nil
	case "const":
		return digest.ParamConst(slot, spec.Value), nil
	default:
		return nil, fmt.Errorf("%w: %s: unknown param source", digest.ErrConfiguration, spec.From)
	}
}
