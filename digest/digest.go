package digest

import (
	"fmt"
	"io"

	"github.com/midbel/digest/xml"
)

type state int8

const (
	stateIdle state = iota
	stateDocument
)

// activation is one rule being live for one matched path occurrence. It
// is created when the rule matches an open event and retired once the
// matching close event has been fully processed.
type activation struct {
	rule    Rule
	depth   int
	objMark int
	began   bool
	ended   bool
}

// Digester receives parser events and dispatches them to the rules of
// its RuleSet. One event is fully dispatched before the next one is
// accepted; a Digester must not be shared by concurrent parses.
type Digester struct {
	rules *RuleSet
	ctx   *Context

	state  state
	active []*activation

	Setter  Setter
	Invoker Invoker
	Tracer  Tracer

	TrimSpace bool
}

func NewDigester(rules *RuleSet) *Digester {
	return &Digester{
		rules:  rules,
		Tracer: NoopTracer(),
	}
}

// Parse drives the event reader over the document and returns the root
// object built by the rules. On any error all open activations are
// retired and the stacks are released before the error is returned.
func (d *Digester) Parse(r io.Reader) (any, error) {
	rs := xml.NewReader(r)
	rs.TrimSpace = d.TrimSpace
	if err := rs.Run(d); err != nil {
		d.release()
		return nil, err
	}
	return d.ctx.Root(), nil
}

// Context returns the stacks of the parse in progress or of the last
// completed parse.
func (d *Digester) Context() *Context {
	return d.ctx
}

func (d *Digester) StartDocument() error {
	if d.state != stateIdle {
		return fmt.Errorf("%w: parse already in progress", ErrConfiguration)
	}
	d.rules.seal()
	d.ctx = newContext(d.Setter, d.Invoker)
	d.active = d.active[:0]
	d.state = stateDocument
	return nil
}

func (d *Digester) StartElement(elem xml.E) error {
	if d.state != stateDocument {
		return fmt.Errorf("%w: no parse in progress", ErrConfiguration)
	}
	d.ctx.open(elem.QName)
	var (
		path  = d.ctx.MatchPath()
		rules = d.rules.Match(d.ctx.path)
		depth = d.ctx.Depth()
	)
	for _, rule := range rules {
		act := &activation{
			rule:    rule,
			depth:   depth,
			objMark: d.ctx.Len(),
		}
		d.active = append(d.active, act)
		d.Tracer.Enter(path, rule)

		d.ctx.current = act
		err := rule.Begin(d.ctx, elem.Attrs)
		d.ctx.current = nil
		if err != nil {
			return d.fail("begin", err)
		}
		act.began = true
	}
	return nil
}

func (d *Digester) Text(content string) error {
	if d.state != stateDocument {
		return fmt.Errorf("%w: no parse in progress", ErrConfiguration)
	}
	d.ctx.text(content)
	return nil
}

func (d *Digester) EndElement(_ xml.E) error {
	if d.state != stateDocument {
		return fmt.Errorf("%w: no parse in progress", ErrConfiguration)
	}
	depth := d.ctx.Depth()
	if depth == 0 {
		return ErrImbalance
	}
	var (
		path = d.ctx.MatchPath()
		body = d.ctx.body()
		mark = d.mark(depth)
	)
	for i := len(d.active) - 1; i >= mark; i-- {
		act := d.active[i]
		d.ctx.current = act
		if err := act.rule.Body(d.ctx, body); err != nil {
			return d.fail("body", err)
		}
		err := act.rule.End(d.ctx)
		act.ended = true
		if err != nil {
			return d.fail("end", err)
		}
		d.retire(path, act)
		d.ctx.current = nil
	}
	d.active = d.active[:mark]
	return d.ctx.close()
}

func (d *Digester) EndDocument() error {
	if d.state != stateDocument {
		return fmt.Errorf("%w: no parse in progress", ErrConfiguration)
	}
	if depth := d.ctx.Depth(); depth > 0 {
		err := fmt.Errorf("%w: %s still open", ErrUnterminated, d.ctx.MatchPath())
		d.release()
		return err
	}
	d.state = stateIdle
	return nil
}

// mark returns the index of the first activation created for the given
// depth. Activations above it all belong to that depth.
func (d *Digester) mark(depth int) int {
	ix := len(d.active)
	for ix > 0 && d.active[ix-1].depth == depth {
		ix--
	}
	return ix
}

func (d *Digester) retire(path string, act *activation) {
	d.ctx.dropParams(act)
	d.Tracer.Leave(path, act.rule)

	after := d.ctx.Len()
	if after == act.objMark {
		return
	}
	if k, ok := act.rule.(Keeper); ok && k.LeavesObject() {
		return
	}
	d.Tracer.Unbalanced(path, act.rule, act.objMark, after)
}

// fail wraps a callback error with its context, retires every open
// activation and releases the stacks before returning the wrapped
// error. Sibling activations of the failing rule are ended first since
// they sit on top of the activation stack.
func (d *Digester) fail(phase string, err error) error {
	werr := callbackError(phase, d.ctx.path, err)
	d.Tracer.Error(d.ctx.MatchPath(), werr)
	d.release()
	return werr
}

func (d *Digester) release() {
	if d.state == stateIdle || d.ctx == nil {
		return
	}
	for i := len(d.active) - 1; i >= 0; i-- {
		act := d.active[i]
		if act.began && !act.ended {
			act.ended = true
			d.ctx.current = act
			if err := act.rule.End(d.ctx); err != nil {
				d.Tracer.Error(d.ctx.MatchPath(), err)
			}
		}
		d.ctx.dropParams(act)
	}
	d.active = d.active[:0]
	d.ctx.reset()
	d.state = stateIdle
}
