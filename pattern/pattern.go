package pattern

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/midbel/digest/environ"
	"github.com/midbel/digest/xml"
)

var ErrSyntax = errors.New("invalid pattern")

// Priority contributions. An anchored pattern made only of literal
// segments always outranks every other pattern matching the same path.
const (
	literalWeight  = 1.0
	wildcardWeight = 0.25
	anchorPenalty  = 0.5
)

type Segment struct {
	Uri   string
	Space string
	Name  string
	Wild  bool
}

func (s Segment) match(qn xml.QName) bool {
	if !s.Wild && s.Name != qn.Name {
		return false
	}
	switch {
	case s.Uri != "":
		return s.Uri == qn.Uri
	case s.Space != "":
		return s.Space == qn.Space
	default:
		return true
	}
}

type Pattern struct {
	segments []Segment
	anyHead  bool
	anyTail  bool
	source   string
}

func (p *Pattern) String() string {
	return p.source
}

// Match reports whether the pattern accepts the given path. A pattern is
// rooted unless it starts with "//"; a trailing "//" accepts any
// descendant of the fixed prefix.
func (p *Pattern) Match(path []xml.QName) bool {
	var (
		size = len(path)
		want = len(p.segments)
	)
	if want == 0 || size < want {
		return false
	}
	last := 0
	if p.anyHead {
		last = size - want
	}
	for start := 0; start <= last; start++ {
		if !p.matchAt(path, start) {
			continue
		}
		if start+want == size || p.anyTail {
			return true
		}
	}
	return false
}

func (p *Pattern) matchAt(path []xml.QName, start int) bool {
	for i, s := range p.segments {
		if !s.match(path[start+i]) {
			return false
		}
	}
	return true
}

// Priority orders patterns matching the same path: more literal segments
// win, wildcards and relaxed anchors cost.
func (p *Pattern) Priority() float64 {
	var prio float64
	for _, s := range p.segments {
		if s.Wild {
			prio += wildcardWeight
		} else {
			prio += literalWeight
		}
	}
	if p.anyHead {
		prio -= anchorPenalty
	}
	if p.anyTail {
		prio -= anchorPenalty
	}
	return prio
}

// Exact reports whether the pattern can only match one path shape: both
// ends anchored and no wildcard segment.
func (p *Pattern) Exact() bool {
	if p.anyHead || p.anyTail {
		return false
	}
	for _, s := range p.segments {
		if s.Wild {
			return false
		}
	}
	return true
}

func Compile(query string) (*Pattern, error) {
	return NewCompiler().CompileString(query)
}

type Compiler struct {
	scan *Scanner
	curr Token
	peek Token

	namespaces environ.Environ[string]
}

func NewCompiler() *Compiler {
	var cp Compiler
	cp.namespaces = environ.Empty[string]()
	return &cp
}

func (c *Compiler) RegisterNS(prefix, uri string) {
	c.namespaces.Define(prefix, uri)
}

func (c *Compiler) CompileString(query string) (*Pattern, error) {
	pat, err := c.Compile(strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", query, err)
	}
	pat.source = query
	return pat, nil
}

func (c *Compiler) Compile(r io.Reader) (*Pattern, error) {
	c.scan = ScanPattern(r)
	c.next()
	c.next()
	return c.compile()
}

func (c *Compiler) compile() (*Pattern, error) {
	var pat Pattern
	if c.is(opAnyLevel) {
		pat.anyHead = true
		c.next()
	} else if c.is(opLevel) {
		return nil, fmt.Errorf("%w: pattern can not start with \"/\"", ErrSyntax)
	}
	for {
		seg, err := c.compileSegment()
		if err != nil {
			return nil, err
		}
		pat.segments = append(pat.segments, seg)
		if c.done() {
			break
		}
		switch {
		case c.is(opAnyLevel):
			c.next()
			if !c.done() {
				return nil, fmt.Errorf("%w: \"//\" only allowed at start or end", ErrSyntax)
			}
			pat.anyTail = true
		case c.is(opLevel):
			c.next()
		default:
			return nil, fmt.Errorf("%w: \"/\" or \"//\" expected", ErrSyntax)
		}
		if pat.anyTail {
			break
		}
	}
	return &pat, nil
}

func (c *Compiler) compileSegment() (Segment, error) {
	var seg Segment
	if !c.is(opName) && !c.is(opStar) {
		return seg, fmt.Errorf("%w: name or \"*\" expected", ErrSyntax)
	}
	seg.Wild = c.is(opStar)
	seg.Name = c.curr.Literal
	c.next()

	if c.is(opNamespace) {
		c.next()
		if !c.is(opName) && !c.is(opStar) {
			return seg, fmt.Errorf("%w: name or \"*\" expected", ErrSyntax)
		}
		if seg.Wild {
			seg.Space = ""
		} else {
			seg.Space = seg.Name
		}
		seg.Wild = c.is(opStar)
		seg.Name = c.curr.Literal
		c.next()
	}
	if seg.Wild {
		seg.Name = ""
	}
	if seg.Space != "" {
		uri, err := c.namespaces.Resolve(seg.Space)
		if err == nil {
			seg.Uri = uri
		}
	}
	return seg, nil
}

func (c *Compiler) next() {
	c.curr = c.peek
	c.peek = c.scan.Scan()
}

func (c *Compiler) is(kind rune) bool {
	return c.curr.Type == kind
}

func (c *Compiler) done() bool {
	return c.is(opEOF)
}

const (
	opEOF rune = -(1 + iota)
	opName
	opStar
	opNamespace
	opLevel
	opAnyLevel
	opInvalid
)

type Token struct {
	Literal string
	Type    rune
}

func (t Token) String() string {
	switch t.Type {
	case opEOF:
		return "<eof>"
	case opName:
		return fmt.Sprintf("name(%s)", t.Literal)
	case opStar:
		return "<star>"
	case opNamespace:
		return "<namespace>"
	case opLevel:
		return "<level>"
	case opAnyLevel:
		return "<any-level>"
	default:
		return "<invalid>"
	}
}

type Scanner struct {
	input *bufio.Reader
	char  rune
	str   bytes.Buffer
}

func ScanPattern(r io.Reader) *Scanner {
	scan := &Scanner{
		input: bufio.NewReader(r),
	}
	scan.read()
	return scan
}

func (s *Scanner) Scan() Token {
	var tok Token
	s.skipBlank()
	if s.done() {
		tok.Type = opEOF
		return tok
	}
	s.str.Reset()
	switch {
	case s.char == star:
		tok.Type = opStar
		s.read()
	case s.char == colon:
		tok.Type = opNamespace
		s.read()
	case s.char == slash:
		tok.Type = opLevel
		if s.peek() == slash {
			s.read()
			tok.Type = opAnyLevel
		}
		s.read()
	case unicode.IsLetter(s.char) || s.char == underscore:
		s.scanIdent(&tok)
	default:
		tok.Type = opInvalid
		s.read()
	}
	return tok
}

func (s *Scanner) scanIdent(tok *Token) {
	accept := func() bool {
		return unicode.IsLetter(s.char) || unicode.IsDigit(s.char) ||
			s.char == dash || s.char == underscore || s.char == dot
	}
	for !s.done() && accept() {
		s.str.WriteRune(s.char)
		s.read()
	}
	tok.Literal = s.str.String()
	tok.Type = opName
}

func (s *Scanner) read() {
	c, _, err := s.input.ReadRune()
	if err != nil {
		s.char = utf8.RuneError
	} else {
		s.char = c
	}
}

func (s *Scanner) peek() rune {
	defer s.input.UnreadRune()
	c, _, _ := s.input.ReadRune()
	return c
}

func (s *Scanner) done() bool {
	return s.char == utf8.RuneError
}

func (s *Scanner) skipBlank() {
	for !s.done() && unicode.IsSpace(s.char) {
		s.read()
	}
}

const (
	star       = '*'
	colon      = ':'
	slash      = '/'
	dash       = '-'
	underscore = '_'
	dot        = '.'
)
