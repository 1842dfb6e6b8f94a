package ruleset_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/midbel/digest/digest"
	"github.com/midbel/digest/ruleset"
)

const sampleRules = `
rules:
  - pattern: catalog
    create: catalog
  - pattern: catalog/book
    create: book
    props: true
    aliases:
      alt-id: id
    attach: book
  - pattern: catalog/book/title
    text: title
`

const sampleDoc = `<catalog>
	<book alt-id="b-1" lang="en">
		<title>Dune</title>
	</book>
</catalog>`

func mapEnv() ruleset.Env {
	makeMap := func() any {
		return make(map[string]any)
	}
	return ruleset.Env{
		Factories: map[string]func() any{
			"catalog": makeMap,
			"book":    makeMap,
		},
	}
}

func TestLoad(t *testing.T) {
	set, err := ruleset.Load(strings.NewReader(sampleRules), mapEnv())
	if err != nil {
		t.Fatalf("fail to load rules: %s", err)
	}
	if set.Len() != 5 {
		t.Errorf("want 5 rules registered, got %d", set.Len())
	}

	d := digest.NewDigester(set)
	d.Setter = digest.MapSetter{}
	d.Invoker = digest.MapInvoker{}
	d.TrimSpace = true

	root, err := d.Parse(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	want := map[string]any{
		"book": map[string]any{
			"id":    "b-1",
			"lang":  "en",
			"title": "Dune",
		},
	}
	if !reflect.DeepEqual(root, want) {
		t.Errorf("object graph mismatched! want %v, got %v", want, root)
	}
}

func TestLoadCall(t *testing.T) {
	const doc = `
rules:
  - pattern: person
    create: person
    keep: true
  - pattern: person/phone
    call:
      method: addPhone
      params: 2
  - pattern: person/phone
    param:
      slot: 0
      from: attr
      attr: kind
  - pattern: person/phone
    param:
      slot: 1
`
	env := ruleset.Env{
		Fallback: func(_ string) func() any {
			return func() any {
				return make(map[string]any)
			}
		},
	}
	set, err := ruleset.Load(strings.NewReader(doc), env)
	if err != nil {
		t.Fatalf("fail to load rules: %s", err)
	}
	d := digest.NewDigester(set)
	d.Invoker = digest.MapInvoker{}

	root, err := d.Parse(strings.NewReader(`<person><phone kind="home">123</phone></person>`))
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	want := map[string]any{
		"addPhone": []any{"home", "123"},
	}
	if !reflect.DeepEqual(root, want) {
		t.Errorf("call mismatched! want %v, got %v", want, root)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		Name string
		Doc  string
	}{
		{
			Name: "missing pattern",
			Doc:  "rules:\n  - create: catalog\n",
		},
		{
			Name: "unknown factory",
			Doc:  "rules:\n  - pattern: a\n    create: nope\n",
		},
		{
			Name: "no effect",
			Doc:  "rules:\n  - pattern: a\n",
		},
		{
			Name: "bad pattern",
			Doc:  "rules:\n  - pattern: a//b\n    create: catalog\n",
		},
		{
			Name: "call without method",
			Doc:  "rules:\n  - pattern: a\n    call:\n      params: 1\n",
		},
		{
			Name: "param from attr without name",
			Doc:  "rules:\n  - pattern: a\n    param:\n      from: attr\n",
		},
		{
			Name: "unknown param source",
			Doc:  "rules:\n  - pattern: a\n    param:\n      from: elsewhere\n",
		},
		{
			Name: "unknown field",
			Doc:  "rules:\n  - pattern: a\n    whatever: true\n",
		},
	}
	for _, d := range tests {
		_, err := ruleset.Load(strings.NewReader(d.Doc), mapEnv())
		if err == nil {
			t.Errorf("%s: invalid rule file loaded properly!", d.Name)
			continue
		}
		if !errors.Is(err, digest.ErrConfiguration) {
			t.Errorf("%s: error should wrap ErrConfiguration, got %s", d.Name, err)
		}
	}
}

func TestLoadNamespaces(t *testing.T) {
	const doc = `
namespaces:
  m: urn:meta
rules:
  - pattern: m:item
    create: item
    keep: true
`
	env := ruleset.Env{
		Factories: map[string]func() any{
			"item": func() any { return make(map[string]any) },
		},
	}
	set, err := ruleset.Load(strings.NewReader(doc), env)
	if err != nil {
		t.Fatalf("fail to load rules: %s", err)
	}
	d := digest.NewDigester(set)
	root, err := d.Parse(strings.NewReader(`<x:item xmlns:x="urn:meta"/>`))
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	if root == nil {
		t.Errorf("rule should have matched on namespace uri")
	}
}
