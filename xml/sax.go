package xml

import (
	"io"
	"slices"
	"strings"

	"github.com/midbel/digest/environ"
)

const MaxDepth = 512

const attrXmlNS = "xmlns"

// Element event
type E struct {
	QName
	Attrs      []A
	SelfClosed bool
}

func (e E) GetAttribute(name string) A {
	i := slices.IndexFunc(e.Attrs, func(a A) bool {
		return a.Name == name
	})
	var a A
	if i >= 0 {
		a = e.Attrs[i]
	}
	return a
}

func (e E) GetAttributeValue(name string) string {
	a := e.GetAttribute(name)
	return a.Value
}

// Attribute
type A struct {
	QName
	Value string
}

// Handler receives the event sequence of one well-formed document. Open
// and close events are guaranteed to be balanced and properly nested by
// the Reader; a self closed element produces a StartElement immediately
// followed by its EndElement.
type Handler interface {
	StartDocument() error
	StartElement(E) error
	Text(string) error
	EndElement(E) error
	EndDocument() error
}

type Reader struct {
	scan *Scanner
	curr Token
	peek Token

	depth int

	TrimSpace bool
	MaxDepth  int

	namespaces environ.Environ[string]
	stack      []QName
}

func NewReader(r io.Reader) *Reader {
	rs := Reader{
		scan:       Scan(r),
		MaxDepth:   MaxDepth,
		namespaces: environ.Empty[string](),
	}
	rs.next()
	rs.next()
	return &rs
}

// Run drives the handler with the full event sequence of the document.
// The first error returned by the handler stops the run and is returned
// as is.
func (r *Reader) Run(h Handler) error {
	if err := h.StartDocument(); err != nil {
		return err
	}
	for !r.done() {
		if err := r.step(h); err != nil {
			return err
		}
	}
	if len(r.stack) > 0 {
		qn := r.stack[len(r.stack)-1]
		return r.createError(qn.QualifiedName(), "element is not closed at end of document")
	}
	return h.EndDocument()
}

func (r *Reader) step(h Handler) error {
	switch r.curr.Type {
	case ProcInstTag:
		return r.skipPI()
	case CommentTag:
		r.next()
		return nil
	case OpenTag:
		return r.readStartElement(h)
	case CloseTag:
		return r.readEndElement(h)
	case Cdata:
		return r.readText(h, r.curr.Literal)
	case Literal:
		str := r.curr.Literal
		if r.TrimSpace {
			str = strings.TrimSpace(str)
		}
		return r.readText(h, str)
	default:
		return r.createError("document", "unexpected element type")
	}
}

func (r *Reader) readText(h Handler, str string) error {
	r.next()
	if str == "" || len(r.stack) == 0 {
		return nil
	}
	return h.Text(str)
}

func (r *Reader) readStartElement(h Handler) error {
	if r.depth >= r.MaxDepth {
		return r.createError("document", "maximum depth reached")
	}
	r.next()
	var elem E
	if r.is(Namespace) {
		elem.Space = r.curr.Literal
		r.next()
	}
	if !r.is(Name) {
		return r.createError("element", "name is missing")
	}
	elem.Name = r.curr.Literal
	r.next()

	var err error
	elem.Attrs, err = r.readAttributes(func() bool {
		return r.is(EndTag) || r.is(EmptyElemTag)
	})
	if err != nil {
		return err
	}
	switch {
	case r.is(EmptyElemTag):
		elem.SelfClosed = true
		r.next()
	case r.is(EndTag):
		r.next()
	default:
		return r.createError("element", "end of element expected")
	}
	r.enterNS(elem.Attrs)
	r.resolveNS(&elem)

	if elem.SelfClosed {
		defer r.leaveNS()
		if err := h.StartElement(elem); err != nil {
			return err
		}
		return h.EndElement(elem)
	}
	r.stack = append(r.stack, elem.QName)
	r.depth++
	return h.StartElement(elem)
}

func (r *Reader) readEndElement(h Handler) error {
	r.next()
	var elem E
	if r.is(Namespace) {
		elem.Space = r.curr.Literal
		r.next()
	}
	if !r.is(Name) {
		return r.createError("element", "name is missing")
	}
	elem.Name = r.curr.Literal
	r.next()
	if !r.is(EndTag) {
		return r.createError("element", "end of element expected")
	}
	r.next()

	size := len(r.stack)
	if size == 0 {
		return r.createError(elem.QualifiedName(), "element closed without being open")
	}
	last := r.stack[size-1]
	if last.Name != elem.Name || last.Space != elem.Space {
		return r.createError(elem.QualifiedName(), "name mismatched with opening element")
	}
	elem.QName = last
	r.stack = r.stack[:size-1]
	r.depth--
	defer r.leaveNS()
	return h.EndElement(elem)
}

func (r *Reader) readAttributes(done func() bool) ([]A, error) {
	var attrs []A
	for !r.done() && !done() {
		attr, err := r.readAttr()
		if err != nil {
			return nil, err
		}
		ok := slices.ContainsFunc(attrs, func(a A) bool {
			return attr.QualifiedName() == a.QualifiedName()
		})
		if ok {
			return nil, r.createError("attribute", "attribute is already defined")
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func (r *Reader) readAttr() (A, error) {
	var attr A
	if r.is(Namespace) {
		attr.Space = r.curr.Literal
		r.next()
	}
	if !r.is(Attr) {
		return attr, r.createError("attribute", "name is expected")
	}
	attr.Name = r.curr.Literal
	r.next()
	if !r.is(Literal) {
		return attr, r.createError("attribute", "value is missing")
	}
	attr.Value = r.curr.Literal
	r.next()
	return attr, nil
}

func (r *Reader) skipPI() error {
	r.next()
	if !r.is(Name) {
		return r.createError("processing instruction", "name is missing")
	}
	r.next()
	if _, err := r.readAttributes(func() bool {
		return r.is(ProcInstTag)
	}); err != nil {
		return err
	}
	if !r.is(ProcInstTag) {
		return r.createError("processing instruction", "end of element expected")
	}
	r.next()
	return nil
}

func (r *Reader) enterNS(attrs []A) {
	r.namespaces = environ.Enclosed(r.namespaces)
	for _, a := range attrs {
		if a.Space == "" && a.Name == attrXmlNS {
			r.namespaces.Define("", a.Value)
		} else if a.Space == attrXmlNS {
			r.namespaces.Define(a.Name, a.Value)
		}
	}
}

func (r *Reader) leaveNS() {
	u, ok := r.namespaces.(interface {
		Unwrap() environ.Environ[string]
	})
	if ok {
		r.namespaces = u.Unwrap()
	}
}

func (r *Reader) resolveNS(elem *E) {
	elem.Uri = r.lookupNS(elem.Space)
	for i := range elem.Attrs {
		a := &elem.Attrs[i]
		if a.Space == "" || a.Space == attrXmlNS || a.Name == attrXmlNS {
			continue
		}
		a.Uri = r.lookupNS(a.Space)
	}
}

func (r *Reader) lookupNS(prefix string) string {
	uri, err := r.namespaces.Resolve(prefix)
	if err != nil {
		return ""
	}
	return uri
}

func (r *Reader) done() bool {
	return r.is(EOF)
}

func (r *Reader) is(kind rune) bool {
	return r.curr.Type == kind
}

func (r *Reader) next() {
	r.curr = r.peek
	r.peek = r.scan.Scan()
}

func (r *Reader) createError(elem, msg string) error {
	return createParseError(elem, msg, r.curr.Position)
}
