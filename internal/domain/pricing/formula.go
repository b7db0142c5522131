// Package pricing implements the sale-price formula language and the
// per-price-list price computation.
//
// A formula is an arithmetic expression over four identifiers:
//
//	cost            the product's purchase cost
//	discount        the price-list margin percentage (null treated as 0)
//	markup          shorthand for 1 + discount/100
//	discount_factor shorthand for 1 - discount/100
//
// Identifiers match case-insensitively. A `%` token means "divide by
// 100" exactly as if the character were replaced by `/100` in the text:
// `25%` is 25/100, while `a % b` does not parse. Operator precedence is
// the usual one (* and / over + and -), parentheses and unary minus are
// supported.
package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Evaluate computes a formula for the given cost and margin percentage.
// A nil discount evaluates as 0 (the entry stays "not configured" for
// validation purposes; that is the validator's concern, not ours).
//
// Evaluate never fails: an empty formula, a parse error, or a
// non-finite result all yield 0. Callers that want diagnostics should
// use Parse.
func Evaluate(cost float64, discount *float64, formula string) float64 {
	expr, err := Parse(formula)
	if err != nil {
		return 0
	}

	d := 0.0
	if discount != nil {
		d = *discount
	}

	v := expr.Eval(cost, d)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Expr is a parsed formula, reusable across evaluations.
type Expr struct {
	root node
}

// Eval evaluates the expression for the given variable values.
func (e *Expr) Eval(cost, discount float64) float64 {
	vars := variables{cost: cost, discount: discount}
	return e.root.eval(vars)
}

// Parse parses a formula into an expression tree. It reports unknown
// identifiers, misplaced operators and unbalanced parentheses, so the
// settings screen can warn about a bad formula before it is stored.
func Parse(formula string) (*Expr, error) {
	if strings.TrimSpace(formula) == "" {
		return nil, fmt.Errorf("empty formula")
	}

	tokens, err := lex(formula)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, fmt.Errorf("unexpected %q", p.peek().text)
	}

	return &Expr{root: root}, nil
}

// --- AST ---

type variables struct {
	cost     float64
	discount float64
}

type node interface {
	eval(v variables) float64
}

type numberNode float64

func (n numberNode) eval(variables) float64 { return float64(n) }

type identKind int

const (
	identCost identKind = iota
	identDiscount
	identMarkup
	identDiscountFactor
)

type identNode identKind

func (n identNode) eval(v variables) float64 {
	switch identKind(n) {
	case identCost:
		return v.cost
	case identDiscount:
		return v.discount
	case identMarkup:
		return 1 + v.discount/100
	default:
		return 1 - v.discount/100
	}
}

type unaryNode struct {
	op      rune
	operand node
}

func (n unaryNode) eval(v variables) float64 {
	val := n.operand.eval(v)
	if n.op == '-' {
		return -val
	}
	return val
}

type binaryNode struct {
	op          rune
	left, right node
}

func (n binaryNode) eval(v variables) float64 {
	l, r := n.left.eval(v), n.right.eval(v)
	switch n.op {
	case '+':
		return l + r
	case '-':
		return l - r
	case '*':
		return l * r
	default:
		return l / r
	}
}

// --- Lexer ---

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp    // + - * /
	tokLParen
	tokRParen
)

type token struct {
	kind  tokenKind
	text  string
	value float64
	ident identKind
}

var identifiers = map[string]identKind{
	"cost":            identCost,
	"discount":        identDiscount,
	"markup":          identMarkup,
	"discount_factor": identDiscountFactor,
}

func lex(input string) ([]token, error) {
	var tokens []token
	runes := []rune(strings.ToLower(input))

	for i := 0; i < len(runes); {
		c := runes[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9' || c == '.':
			start := i
			for i < len(runes) && (runes[i] >= '0' && runes[i] <= '9' || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", text)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, value: v})
		case c >= 'a' && c <= 'z' || c == '_':
			start := i
			for i < len(runes) && (runes[i] >= 'a' && runes[i] <= 'z' || runes[i] == '_') {
				i++
			}
			word := string(runes[start:i])
			ident, ok := identifiers[word]
			if !ok {
				return nil, fmt.Errorf("unknown identifier %q", word)
			}
			tokens = append(tokens, token{kind: tokIdent, text: word, ident: ident})
		case c == '+' || c == '-' || c == '*' || c == '/':
			tokens = append(tokens, token{kind: tokOp, text: string(c)})
			i++
		case c == '%':
			// Literal-substitution semantics: `%` is `/100` wherever it
			// appears, so `25%` parses and `a % b` does not.
			tokens = append(tokens,
				token{kind: tokOp, text: "/"},
				token{kind: tokNumber, text: "100", value: 100},
			)
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")"})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", string(c))
		}
	}

	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty formula")
	}
	return tokens, nil
}

// --- Parser (recursive descent) ---

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.tokens)
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

// expr := term (('+'|'-') term)*
func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for !p.eof() && p.peek().kind == tokOp && (p.peek().text == "+" || p.peek().text == "-") {
		op := rune(p.next().text[0])
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

// term := unary (('*'|'/') unary)*
func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for !p.eof() && p.peek().kind == tokOp && (p.peek().text == "*" || p.peek().text == "/") {
		op := rune(p.next().text[0])
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

// unary := ('-'|'+') unary | primary
func (p *parser) parseUnary() (node, error) {
	if !p.eof() && p.peek().kind == tokOp && (p.peek().text == "-" || p.peek().text == "+") {
		op := rune(p.next().text[0])
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, operand: operand}, nil
	}
	return p.parsePrimary()
}

// primary := number | ident | '(' expr ')'
func (p *parser) parsePrimary() (node, error) {
	if p.eof() {
		return nil, fmt.Errorf("unexpected end of formula")
	}

	t := p.next()
	switch t.kind {
	case tokNumber:
		return numberNode(t.value), nil
	case tokIdent:
		return identNode(t.ident), nil
	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.eof() || p.peek().kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.next()
		return inner, nil
	default:
		return nil, fmt.Errorf("unexpected %q", t.text)
	}
}
