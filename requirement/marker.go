package requirement

import (
	"fmt"
	"strings"

	"github.com/wheelhouse-dev/wheelhouse/pyver"
)

// Environment holds the target facts a marker is evaluated against.
type Environment struct {
	// Values maps marker variable names (python_version, sys_platform,
	// os_name, ...) to their values on the target. A variable absent from
	// the map is undefined and makes evaluation fail.
	Values map[string]string

	// Extras is the set of capability extras active in the evaluation
	// context: the extras requested on the requirement whose dependency
	// list is being walked. Empty outside any extras context.
	Extras []string
}

// HasExtra reports whether the canonical form of name is active.
func (e Environment) HasExtra(name string) bool {
	want := CanonicalName(name)
	for _, extra := range e.Extras {
		if extra == want {
			return true
		}
	}
	return false
}

// Marker is a parsed environment marker expression.
type Marker struct {
	expr markerNode
	raw  string
}

// ParseMarker parses a marker expression such as
//
//	python_version >= "3.8" and (sys_platform == "linux" or extra == "tls")
func ParseMarker(s string) (*Marker, error) {
	toks, err := lexMarker(s)
	if err != nil {
		return nil, err
	}
	p := &markerParser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, fmt.Errorf("invalid marker %q: trailing tokens", s)
	}
	return &Marker{expr: expr, raw: strings.TrimSpace(s)}, nil
}

// MustParseMarker parses a marker or panics. Use only for tests.
func MustParseMarker(s string) *Marker {
	m, err := ParseMarker(s)
	if err != nil {
		panic(err)
	}
	return m
}

// String returns the marker as originally written.
func (m *Marker) String() string {
	return m.raw
}

// Eval evaluates the marker against the environment. Evaluation fails
// when the marker references a variable the environment cannot answer,
// which callers treat as a target-configuration error rather than a
// false result.
func (m *Marker) Eval(env Environment) (bool, error) {
	return m.expr.eval(env)
}

type markerNode interface {
	eval(env Environment) (bool, error)
}

type orNode struct{ left, right markerNode }

func (n orNode) eval(env Environment) (bool, error) {
	l, err := n.left.eval(env)
	if err != nil {
		return false, err
	}
	if l {
		return true, nil
	}
	return n.right.eval(env)
}

type andNode struct{ left, right markerNode }

func (n andNode) eval(env Environment) (bool, error) {
	l, err := n.left.eval(env)
	if err != nil {
		return false, err
	}
	if !l {
		return false, nil
	}
	return n.right.eval(env)
}

// operand is one side of a comparison: an environment variable reference
// or a quoted literal.
type operand struct {
	text    string
	literal bool
}

func (o operand) resolve(env Environment) (string, error) {
	if o.literal {
		return o.text, nil
	}
	value, ok := env.Values[o.text]
	if !ok {
		return "", fmt.Errorf("undefined environment marker variable %q", o.text)
	}
	return value, nil
}

type cmpNode struct {
	lhs operand
	op  string
	rhs operand
}

func (n cmpNode) eval(env Environment) (bool, error) {
	// "extra" compares against the active extras set rather than a single
	// value: a sub-requirement gated on extra == "x" applies when x was
	// requested, whatever else was requested alongside it.
	if !n.lhs.literal && n.lhs.text == "extra" {
		return evalExtra(n.op, n.rhs, env)
	}
	if !n.rhs.literal && n.rhs.text == "extra" {
		return evalExtra(flipOp(n.op), n.lhs, env)
	}

	lhs, err := n.lhs.resolve(env)
	if err != nil {
		return false, err
	}
	rhs, err := n.rhs.resolve(env)
	if err != nil {
		return false, err
	}
	return compareValues(lhs, n.op, rhs)
}

func evalExtra(op string, other operand, env Environment) (bool, error) {
	value, err := other.resolve(env)
	if err != nil {
		return false, err
	}
	switch op {
	case "==":
		return env.HasExtra(value), nil
	case "!=":
		return !env.HasExtra(value), nil
	default:
		return false, fmt.Errorf("unsupported operator %q for extra marker", op)
	}
}

func flipOp(op string) string {
	switch op {
	case "<":
		return ">"
	case ">":
		return "<"
	case "<=":
		return ">="
	case ">=":
		return "<="
	}
	return op
}

var versionOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true, "~=": true,
}

func compareValues(lhs, op, rhs string) (bool, error) {
	if versionOps[op] {
		lv, lerr := pyver.Parse(lhs)
		rv, rerr := pyver.Parse(rhs)
		if lerr == nil && rerr == nil {
			return compareVersions(lv, op, rv)
		}
	}

	switch op {
	case "==", "===":
		return lhs == rhs, nil
	case "!=":
		return lhs != rhs, nil
	case "<":
		return lhs < rhs, nil
	case "<=":
		return lhs <= rhs, nil
	case ">":
		return lhs > rhs, nil
	case ">=":
		return lhs >= rhs, nil
	case "in":
		return strings.Contains(rhs, lhs), nil
	case "not in":
		return !strings.Contains(rhs, lhs), nil
	}
	return false, fmt.Errorf("unsupported marker operator %q", op)
}

func compareVersions(lv pyver.Version, op string, rv pyver.Version) (bool, error) {
	c := lv.Compare(rv)
	switch op {
	case "==":
		return c == 0, nil
	case "!=":
		return c != 0, nil
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	case "~=":
		spec, err := pyver.ParseSpecifier("~=" + rv.String())
		if err != nil {
			return false, err
		}
		return spec.Match(lv), nil
	}
	return false, fmt.Errorf("unsupported marker operator %q", op)
}

// --- lexer ---

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

func lexMarker(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '\'' || c == '"':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("invalid marker %q: unterminated string", s)
			}
			toks = append(toks, token{tokString, s[i+1 : i+1+end]})
			i += end + 2
		case isOpChar(c):
			j := i
			for j < len(s) && isOpChar(s[j]) {
				j++
			}
			op := s[i:j]
			switch op {
			case "==", "!=", "<", "<=", ">", ">=", "~=", "===":
				toks = append(toks, token{tokOp, op})
			default:
				return nil, fmt.Errorf("invalid marker %q: bad operator %q", s, op)
			}
			i = j
		case isIdentChar(c):
			j := i
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			toks = append(toks, token{tokIdent, s[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("invalid marker %q: unexpected character %q", s, string(c))
		}
	}
	return toks, nil
}

func isOpChar(c byte) bool {
	return c == '<' || c == '>' || c == '=' || c == '!' || c == '~'
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// --- parser ---

type markerParser struct {
	toks []token
	pos  int
}

func (p *markerParser) eof() bool {
	return p.pos >= len(p.toks)
}

func (p *markerParser) peek() (token, bool) {
	if p.eof() {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *markerParser) next() (token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}
	return tok, ok
}

func (p *markerParser) parseOr() (markerNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokIdent || tok.text != "or" {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
}

func (p *markerParser) parseAnd() (markerNode, error) {
	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokIdent || tok.text != "and" {
			return left, nil
		}
		p.pos++
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
}

func (p *markerParser) parseExpr() (markerNode, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of marker")
	}
	if tok.kind == tokLParen {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.next()
		if !ok || closing.kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis in marker")
		}
		return inner, nil
	}

	lhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, err := p.parseCompareOp()
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return cmpNode{lhs: lhs, op: op, rhs: rhs}, nil
}

func (p *markerParser) parseOperand() (operand, error) {
	tok, ok := p.next()
	if !ok {
		return operand{}, fmt.Errorf("unexpected end of marker: expected operand")
	}
	switch tok.kind {
	case tokString:
		return operand{text: tok.text, literal: true}, nil
	case tokIdent:
		return operand{text: tok.text}, nil
	default:
		return operand{}, fmt.Errorf("unexpected token %q in marker", tok.text)
	}
}

func (p *markerParser) parseCompareOp() (string, error) {
	tok, ok := p.next()
	if !ok {
		return "", fmt.Errorf("unexpected end of marker: expected operator")
	}
	if tok.kind == tokOp {
		return tok.text, nil
	}
	if tok.kind == tokIdent {
		switch tok.text {
		case "in":
			return "in", nil
		case "not":
			follow, ok := p.next()
			if ok && follow.kind == tokIdent && follow.text == "in" {
				return "not in", nil
			}
			return "", fmt.Errorf("expected 'in' after 'not' in marker")
		}
	}
	return "", fmt.Errorf("expected comparison operator in marker, got %q", tok.text)
}
