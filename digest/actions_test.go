package digest_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/midbel/digest/digest"
)

const catalogDoc = `<catalog>
	<book alt-id="b-1" rev="7" lang="en">
		<title>Dune</title>
	</book>
	<book alt-id="b-2">
		<title>Emma</title>
	</book>
</catalog>`

func makeMap() any {
	return make(map[string]any)
}

func TestBuildObjectGraph(t *testing.T) {
	rs := digest.NewRuleSet()
	rs.Register("catalog", digest.CreateObject(makeMap))
	rs.Register("catalog/book", digest.CreateObject(makeMap))
	rs.Register("catalog/book", digest.SetPropertiesWith(map[string]string{
		"alt-id": "id",
		"rev":    "",
	}, false))
	rs.Register("catalog/book/title", digest.SetBody("title"))
	rs.Register("catalog/book", digest.Attach("book"))

	d := digest.NewDigester(rs)
	d.Setter = digest.MapSetter{}
	d.Invoker = digest.MapInvoker{}
	d.TrimSpace = true

	root, err := d.Parse(strings.NewReader(catalogDoc))
	if err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	want := map[string]any{
		"book": []any{
			map[string]any{"id": "b-1", "lang": "en", "title": "Dune"},
			map[string]any{"id": "b-2", "title": "Emma"},
		},
	}
	if !reflect.DeepEqual(root, want) {
		t.Errorf("object graph mismatched! want %v, got %v", want, root)
	}
	if n := d.Context().Len(); n != 0 {
		t.Errorf("object stack should be empty after parse, got %d", n)
	}
}

func TestCallMethod(t *testing.T) {
	rs := digest.NewRuleSet()
	rs.Register("person", digest.CreateObject(makeMap))
	rs.Register("person/phone", digest.CallMethod("addPhone", 2))
	rs.Register("person/phone", digest.ParamFromAttr(0, "kind"))
	rs.Register("person/phone", digest.ParamFromBody(1))

	d := digest.NewDigester(rs)
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

func TestCallMethodNested(t *testing.T) {
	var calls [][]any
	rs := digest.NewRuleSet()
	rs.Register("cfg", digest.CreateAndKeep(makeMap))
	rs.Register("//set", digest.CallMethod("set", 2))
	rs.Register("//set/name", digest.ParamFromBody(0))
	rs.Register("//set/value", digest.ParamFromBody(1))

	d := digest.NewDigester(rs)
	d.Invoker = digest.InvokerFunc(func(_ any, _ string, args []any) error {
		calls = append(calls, args)
		return nil
	})

	doc := `<cfg><set><name>outer</name><set><name>inner</name><value>1</value></set><value>2</value></set></cfg>`
	if _, err := d.Parse(strings.NewReader(doc)); err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	want := [][]any{
		{"inner", "1"},
		{"outer", "2"},
	}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls mismatched! want %v, got %v", want, calls)
	}
}

func TestCallMethodUnsetSlot(t *testing.T) {
	var got []any
	rs := digest.NewRuleSet()
	rs.Register("a", digest.CreateAndKeep(makeMap))
	rs.Register("a", digest.CallMethod("m", 2))
	rs.Register("a/x", digest.ParamFromBody(0))

	d := digest.NewDigester(rs)
	d.Invoker = digest.InvokerFunc(func(_ any, _ string, args []any) error {
		got = args
		return nil
	})
	if _, err := d.Parse(strings.NewReader(`<a><x>v</x></a>`)); err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 arguments, got %d", len(got))
	}
	if got[0] != "v" {
		t.Errorf("first argument: want %q, got %v", "v", got[0])
	}
	if !digest.IsUnset(got[1]) {
		t.Errorf("second argument should be unset, got %v", got[1])
	}
}

func TestParamConst(t *testing.T) {
	var got []any
	rs := digest.NewRuleSet()
	rs.Register("a", digest.CreateAndKeep(makeMap))
	rs.Register("a", digest.CallMethod("m", 1))
	rs.Register("a/flag", digest.ParamConst(-1, true))

	d := digest.NewDigester(rs)
	d.Invoker = digest.InvokerFunc(func(_ any, _ string, args []any) error {
		got = args
		return nil
	})
	if _, err := d.Parse(strings.NewReader(`<a><flag/></a>`)); err != nil {
		t.Fatalf("fail to parse document: %s", err)
	}
	if len(got) != 1 || got[0] != true {
		t.Errorf("want [true], got %v", got)
	}
}

func TestSetPropertiesStrict(t *testing.T) {
	rs := digest.NewRuleSet()
	rs.Register("a", digest.CreateObject(makeMap))
	rs.Register("a", digest.SetPropertiesWith(nil, true))

	reject := digest.SetterFunc(func(_ any, _, _ string) error {
		return digest.ErrUnknownProperty
	})

	d := digest.NewDigester(rs)
	d.Setter = reject
	if _, err := d.Parse(strings.NewReader(`<a id="1"/>`)); err == nil {
		t.Errorf("strict mode should fail the parse on unknown property")
	}

	other := digest.NewRuleSet()
	other.Register("a", digest.CreateObject(makeMap))
	other.Register("a", digest.SetProperties())

	d = digest.NewDigester(other)
	d.Setter = reject
	if _, err := d.Parse(strings.NewReader(`<a id="1"/>`)); err != nil {
		t.Errorf("unknown property should be skipped by default, got %s", err)
	}
}
