package digest

import (
	"fmt"
	"slices"

	"github.com/midbel/digest/xml"
)

// Unset marks a parameter slot that no descendant rule has written. It
// is passed to the downstream call as is so the call target decides how
// to handle a missing argument.
var Unset unset

type unset struct{}

func (unset) String() string {
	return "unset"
}

// IsUnset reports whether a collected parameter slot was never written.
func IsUnset(v any) bool {
	_, ok := v.(unset)
	return ok
}

type paramFrame struct {
	values []any
	owner  *activation
}

// Context carries the state rules read and write during a parse: the
// current path, the object stack, named auxiliary stacks and parameter
// buffers. One Context belongs to exactly one parse.
type Context struct {
	path   []xml.QName
	bodies []string

	objects Stack[any]
	named   map[string]*Stack[any]
	params  Stack[*paramFrame]

	root    any
	hasRoot bool
	current *activation

	Setter  Setter
	Invoker Invoker
}

func newContext(setter Setter, invoker Invoker) *Context {
	return &Context{
		named:   make(map[string]*Stack[any]),
		Setter:  setter,
		Invoker: invoker,
	}
}

// Path returns a copy of the current path. The path itself is owned by
// the engine and never shared.
func (c *Context) Path() []xml.QName {
	return slices.Clone(c.path)
}

func (c *Context) Depth() int {
	return len(c.path)
}

func (c *Context) MatchPath() string {
	return pathString(c.path)
}

// Root returns the first object ever pushed on the object stack. It is
// the conventional result of a parse.
func (c *Context) Root() any {
	return c.root
}

func (c *Context) Push(v any) {
	if !c.hasRoot {
		c.root = v
		c.hasRoot = true
	}
	c.objects.Push(v)
}

func (c *Context) Pop() (any, error) {
	v, ok := c.objects.Pop()
	if !ok {
		return nil, fmt.Errorf("object stack: %w", ErrEmpty)
	}
	return v, nil
}

func (c *Context) Peek(n int) (any, error) {
	v, ok := c.objects.Peek(n)
	if !ok {
		return nil, fmt.Errorf("object stack: %w", ErrEmpty)
	}
	return v, nil
}

func (c *Context) Len() int {
	return c.objects.Len()
}

func (c *Context) PushNamed(key string, v any) {
	st, ok := c.named[key]
	if !ok {
		st = new(Stack[any])
		c.named[key] = st
	}
	st.Push(v)
}

func (c *Context) PopNamed(key string) (any, error) {
	st, ok := c.named[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrEmpty)
	}
	v, ok := st.Pop()
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrEmpty)
	}
	return v, nil
}

func (c *Context) PeekNamed(key string) (any, error) {
	st, ok := c.named[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrEmpty)
	}
	v, ok := st.Peek(0)
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrEmpty)
	}
	return v, nil
}

// AllocateParams pushes a fresh parameter buffer of n slots, all Unset.
// The buffer belongs to the rule activation that allocated it and is
// released when that activation retires.
func (c *Context) AllocateParams(n int) {
	frame := paramFrame{
		values: make([]any, n),
		owner:  c.current,
	}
	for i := range frame.values {
		frame.values[i] = Unset
	}
	c.params.Push(&frame)
}

// SetParam writes one slot of the nearest enclosing parameter buffer. A
// negative slot selects the first slot still unset.
func (c *Context) SetParam(slot int, v any) error {
	frame, ok := c.params.Peek(0)
	if !ok {
		return fmt.Errorf("%w: no parameter buffer allocated", ErrConfiguration)
	}
	if slot < 0 {
		slot = slices.IndexFunc(frame.values, IsUnset)
		if slot < 0 {
			frame.values = append(frame.values, v)
			return nil
		}
	}
	if slot >= len(frame.values) {
		return fmt.Errorf("%w: parameter slot %d out of range", ErrConfiguration, slot)
	}
	frame.values[slot] = v
	return nil
}

// ConsumeParams pops the nearest enclosing parameter buffer and returns
// its slots in order.
func (c *Context) ConsumeParams() ([]any, error) {
	frame, ok := c.params.Pop()
	if !ok {
		return nil, fmt.Errorf("%w: no parameter buffer allocated", ErrConfiguration)
	}
	return frame.values, nil
}

func (c *Context) open(qn xml.QName) {
	c.path = append(c.path, qn)
	c.bodies = append(c.bodies, "")
}

func (c *Context) close() error {
	size := len(c.path)
	if size == 0 {
		return ErrImbalance
	}
	c.path = c.path[:size-1]
	c.bodies = c.bodies[:size-1]
	return nil
}

func (c *Context) text(str string) {
	if i := len(c.bodies) - 1; i >= 0 {
		c.bodies[i] += str
	}
}

func (c *Context) body() string {
	if i := len(c.bodies) - 1; i >= 0 {
		return c.bodies[i]
	}
	return ""
}

func (c *Context) dropParams(act *activation) {
	for {
		frame, ok := c.params.Peek(0)
		if !ok || frame.owner != act {
			break
		}
		c.params.Pop()
	}
}

func (c *Context) reset() {
	c.path = c.path[:0]
	c.bodies = c.bodies[:0]
	c.objects.Reset()
	c.params.Reset()
	for key := range c.named {
		delete(c.named, key)
	}
	c.current = nil
}
