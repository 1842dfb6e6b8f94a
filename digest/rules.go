package digest

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/midbel/digest/pattern"
	"github.com/midbel/digest/xml"
)

// Rule is a unit of behavior bound to one or more patterns. Rules must
// be stateless strategies: the same rule value can be active at several
// concurrently open paths when a document recurses, so per-match state
// belongs on the Context, never in rule fields.
type Rule interface {
	Begin(*Context, []xml.A) error
	Body(*Context, string) error
	End(*Context) error
}

// Keeper marks rules that intentionally leave a net push on the object
// stack for an enclosing rule to consume. The engine skips its stack
// balance check for such rules.
type Keeper interface {
	LeavesObject() bool
}

// Funcs adapts plain functions to the Rule interface. Nil callbacks are
// skipped.
type Funcs struct {
	OnBegin func(*Context, []xml.A) error
	OnBody  func(*Context, string) error
	OnEnd   func(*Context) error
}

func (f Funcs) Begin(ctx *Context, attrs []xml.A) error {
	if f.OnBegin == nil {
		return nil
	}
	return f.OnBegin(ctx, attrs)
}

func (f Funcs) Body(ctx *Context, text string) error {
	if f.OnBody == nil {
		return nil
	}
	return f.OnBody(ctx, text)
}

func (f Funcs) End(ctx *Context) error {
	if f.OnEnd == nil {
		return nil
	}
	return f.OnEnd(ctx)
}

type entry struct {
	pat  *pattern.Pattern
	rule Rule
}

// RuleSet is the ordered table of pattern to rule bindings. It is
// populated before the first parse event and read only afterwards; a
// sealed set can safely be shared by sequential parses.
type RuleSet struct {
	entries  []entry
	compiler *pattern.Compiler
	sealed   bool
}

func NewRuleSet() *RuleSet {
	return &RuleSet{
		compiler: pattern.NewCompiler(),
	}
}

func (r *RuleSet) RegisterNS(prefix, uri string) {
	r.compiler.RegisterNS(prefix, uri)
}

func (r *RuleSet) Register(query string, rule Rule) error {
	if r.sealed {
		return fmt.Errorf("%w: register after parse started", ErrConfiguration)
	}
	if rule == nil {
		return fmt.Errorf("%w: nil rule", ErrConfiguration)
	}
	pat, err := r.compiler.CompileString(query)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrConfiguration, err)
	}
	r.entries = append(r.entries, entry{
		pat:  pat,
		rule: rule,
	})
	return nil
}

func (r *RuleSet) Len() int {
	return len(r.entries)
}

// Match returns the rules whose pattern accepts the path, most specific
// first. Equally specific rules keep their registration order.
func (r *RuleSet) Match(path []xml.QName) []Rule {
	var found []entry
	for _, e := range r.entries {
		if e.pat.Match(path) {
			found = append(found, e)
		}
	}
	slices.SortStableFunc(found, func(a, b entry) int {
		return cmp.Compare(b.pat.Priority(), a.pat.Priority())
	})
	rules := make([]Rule, len(found))
	for i := range found {
		rules[i] = found[i].rule
	}
	return rules
}

func (r *RuleSet) seal() {
	r.sealed = true
}
