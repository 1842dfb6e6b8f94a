package digest

import (
	"errors"
	"fmt"

	"github.com/midbel/digest/xml"
)

var ErrUnknownProperty = errors.New("unknown property")

// Setter is the narrow interface through which rules mutate properties
// of target objects. How the mutation happens (per type registries,
// generated code, maps) is not the engine's concern.
type Setter interface {
	SetProperty(target any, name, value string) error
}

type SetterFunc func(any, string, string) error

func (f SetterFunc) SetProperty(target any, name, value string) error {
	return f(target, name, value)
}

// Invoker is the narrow interface through which rules call a method on
// a target object with collected arguments.
type Invoker interface {
	Invoke(target any, method string, args []any) error
}

type InvokerFunc func(any, string, []any) error

func (f InvokerFunc) Invoke(target any, method string, args []any) error {
	return f(target, method, args)
}

// MapSetter sets properties on map[string]any targets.
type MapSetter struct{}

func (_ MapSetter) SetProperty(target any, name, value string) error {
	m, ok := target.(map[string]any)
	if !ok {
		return fmt.Errorf("can not set %s: target is not a map", name)
	}
	m[name] = value
	return nil
}

// MapInvoker treats a method call on a map[string]any target as an
// append under the method name: repeated calls build a list.
type MapInvoker struct{}

func (_ MapInvoker) Invoke(target any, method string, args []any) error {
	m, ok := target.(map[string]any)
	if !ok {
		return fmt.Errorf("can not call %s: target is not a map", method)
	}
	var value any
	if len(args) == 1 {
		value = args[0]
	} else {
		value = args
	}
	if prev, ok := m[method]; ok {
		if list, ok := prev.([]any); ok {
			m[method] = append(list, value)
		} else {
			m[method] = []any{prev, value}
		}
	} else {
		m[method] = value
	}
	return nil
}

type createRule struct {
	factory func() any
	keep    bool
}

// CreateObject pushes a fresh object built by factory on begin and pops
// it on end.
func CreateObject(factory func() any) Rule {
	return createRule{
		factory: factory,
	}
}

// CreateAndKeep pushes a fresh object on begin and leaves it on the
// stack for an enclosing rule to consume.
func CreateAndKeep(factory func() any) Rule {
	return createRule{
		factory: factory,
		keep:    true,
	}
}

func (r createRule) Begin(ctx *Context, _ []xml.A) error {
	ctx.Push(r.factory())
	return nil
}

func (r createRule) Body(_ *Context, _ string) error {
	return nil
}

func (r createRule) End(ctx *Context) error {
	if r.keep {
		return nil
	}
	_, err := ctx.Pop()
	return err
}

func (r createRule) LeavesObject() bool {
	return r.keep
}

func (r createRule) String() string {
	return "create-object"
}

type propsRule struct {
	aliases map[string]string
	strict  bool
}

// SetProperties copies every attribute of the matched element to a
// property of the same name on the top object.
func SetProperties() Rule {
	return propsRule{}
}

// SetPropertiesWith overrides the natural attribute to property mapping.
// An attribute mapped to the empty string is ignored. With strict set,
// an unknown property reported by the Setter fails the parse; otherwise
// it is skipped.
func SetPropertiesWith(aliases map[string]string, strict bool) Rule {
	return propsRule{
		aliases: aliases,
		strict:  strict,
	}
}

func (r propsRule) Begin(ctx *Context, attrs []xml.A) error {
	if ctx.Setter == nil {
		return fmt.Errorf("%w: no property setter configured", ErrConfiguration)
	}
	top, err := ctx.Peek(0)
	if err != nil {
		return err
	}
	for _, a := range attrs {
		if a.Space == "xmlns" || (a.Space == "" && a.Name == "xmlns") {
			continue
		}
		name := a.Name
		if alias, ok := r.aliases[name]; ok {
			if alias == "" {
				continue
			}
			name = alias
		}
		err := ctx.Setter.SetProperty(top, name, a.Value)
		if err != nil {
			if errors.Is(err, ErrUnknownProperty) && !r.strict {
				continue
			}
			return err
		}
	}
	return nil
}

func (r propsRule) Body(_ *Context, _ string) error {
	return nil
}

func (r propsRule) End(_ *Context) error {
	return nil
}

func (r propsRule) String() string {
	return "set-properties"
}

type bodyRule struct {
	property string
}

// SetBody assigns the accumulated body text of the matched element to
// the named property of the top object.
func SetBody(property string) Rule {
	return bodyRule{
		property: property,
	}
}

func (r bodyRule) Begin(_ *Context, _ []xml.A) error {
	return nil
}

func (r bodyRule) Body(ctx *Context, text string) error {
	if ctx.Setter == nil {
		return fmt.Errorf("%w: no property setter configured", ErrConfiguration)
	}
	top, err := ctx.Peek(0)
	if err != nil {
		return err
	}
	return ctx.Setter.SetProperty(top, r.property, text)
}

func (r bodyRule) End(_ *Context) error {
	return nil
}

func (r bodyRule) String() string {
	return "set-body"
}

type attachRule struct {
	method string
}

// Attach links the top object to the one beneath it by invoking the
// given method on the parent with the child as only argument. Register
// it after the rule that creates the child so the link is made before
// the child is popped.
func Attach(method string) Rule {
	return attachRule{
		method: method,
	}
}

func (r attachRule) Begin(_ *Context, _ []xml.A) error {
	return nil
}

func (r attachRule) Body(_ *Context, _ string) error {
	return nil
}

func (r attachRule) End(ctx *Context) error {
	if ctx.Invoker == nil {
		return fmt.Errorf("%w: no invoker configured", ErrConfiguration)
	}
	child, err := ctx.Peek(0)
	if err != nil {
		return err
	}
	parent, err := ctx.Peek(1)
	if err != nil {
		return err
	}
	return ctx.Invoker.Invoke(parent, r.method, []any{child})
}

func (r attachRule) String() string {
	return "attach"
}

type callRule struct {
	method string
	arity  int
}

// CallMethod allocates a parameter buffer of the given arity on begin;
// descendant parameter rules fill its slots. On end the buffer is
// consumed and the method is invoked on the top object with the slots
// in order, unwritten slots passed as Unset.
func CallMethod(method string, arity int) Rule {
	return callRule{
		method: method,
		arity:  arity,
	}
}

func (r callRule) Begin(ctx *Context, _ []xml.A) error {
	ctx.AllocateParams(r.arity)
	return nil
}

func (r callRule) Body(_ *Context, _ string) error {
	return nil
}

func (r callRule) End(ctx *Context) error {
	if ctx.Invoker == nil {
		return fmt.Errorf("%w: no invoker configured", ErrConfiguration)
	}
	args, err := ctx.ConsumeParams()
	if err != nil {
		return err
	}
	target, err := ctx.Peek(0)
	if err != nil {
		return err
	}
	return ctx.Invoker.Invoke(target, r.method, args)
}

func (r callRule) String() string {
	return "call-method"
}

type paramRule struct {
	slot int
	attr string
	text bool
	cst  any
}

// ParamFromBody writes the body text of the matched element into the
// given slot of the nearest enclosing parameter buffer. A negative slot
// selects the next free one.
func ParamFromBody(slot int) Rule {
	return paramRule{
		slot: slot,
		text: true,
	}
}

// ParamFromAttr writes the value of the named attribute, when present,
// into the given slot of the nearest enclosing parameter buffer.
func ParamFromAttr(slot int, attr string) Rule {
	return paramRule{
		slot: slot,
		attr: attr,
	}
}

// ParamConst writes a fixed value into the given slot of the nearest
// enclosing parameter buffer when the pattern matches.
func ParamConst(slot int, value any) Rule {
	return paramRule{
		slot: slot,
		cst:  value,
	}
}

func (r paramRule) Begin(ctx *Context, attrs []xml.A) error {
	if r.text {
		return nil
	}
	if r.attr != "" {
		e := xml.E{Attrs: attrs}
		a := e.GetAttribute(r.attr)
		if a.Name == "" {
			return nil
		}
		return ctx.SetParam(r.slot, a.Value)
	}
	return ctx.SetParam(r.slot, r.cst)
}

func (r paramRule) Body(ctx *Context, text string) error {
	if !r.text {
		return nil
	}
	return ctx.SetParam(r.slot, text)
}

func (r paramRule) End(_ *Context) error {
	return nil
}

func (r paramRule) String() string {
	return "call-param"
}
