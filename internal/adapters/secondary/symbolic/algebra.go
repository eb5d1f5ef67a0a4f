package symbolic

import (
	"strings"
	"unicode"
)

// lexAlgebra tokenizes Python-style math: x**2 + 3*sin(x).
func lexAlgebra(src string) ([]token, error) {
	var toks []token
	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isASCIIDigit(r) || (r == '.' && i+1 < len(runes) && isASCIIDigit(runes[i+1])):
			start := i
			for i < len(runes) && (isASCIIDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			// scientific notation: 1e-3, 2E5
			if i < len(runes) && (runes[i] == 'e' || runes[i] == 'E') {
				j := i + 1
				if j < len(runes) && (runes[j] == '+' || runes[j] == '-') {
					j++
				}
				if j < len(runes) && isASCIIDigit(runes[j]) {
					for j < len(runes) && isASCIIDigit(runes[j]) {
						j++
					}
					i = j
				}
			}
			toks = append(toks, token{kind: tokNumber, text: string(runes[start:i]), pos: start})
		case r == '_' || (r < unicode.MaxASCII && unicode.IsLetter(r)):
			start := i
			for i < len(runes) && (runes[i] == '_' || (runes[i] < unicode.MaxASCII && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])))) {
				i++
			}
			toks = append(toks, token{kind: tokLetter, text: string(runes[start:i]), pos: start})
		case r == '*' && i+1 < len(runes) && runes[i+1] == '*':
			toks = append(toks, token{kind: tokOp, text: "**", pos: i})
			i += 2
		case strings.ContainsRune("+-*/^(),", r):
			toks = append(toks, token{kind: tokOp, text: string(r), pos: i})
			i++
		default:
			return nil, exprErrorf("invalid syntax: unexpected character %q at position %d", r, i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(runes)}), nil
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

type algebraParser struct {
	toks []token
	pos  int
}

// parseAlgebra parses an expected answer written in SymPy syntax. Implicit
// multiplication is rejected, as sympify does.
func parseAlgebra(src string) (node, error) {
	toks, err := lexAlgebra(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 {
		return nil, exprErrorf("empty expression")
	}
	p := &algebraParser{toks: toks}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, exprErrorf("invalid syntax: unexpected %s at position %d", t, t.pos)
	}
	return n, nil
}

func (p *algebraParser) peek() token {
	return p.toks[p.pos]
}

func (p *algebraParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *algebraParser) accept(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.next()
			return op, true
		}
	}
	return "", false
}

func (p *algebraParser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = bin(op[0], left, right)
	}
}

func (p *algebraParser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept("*", "/")
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = bin(op[0], left, right)
	}
}

func (p *algebraParser) parseUnary() (node, error) {
	if op, ok := p.accept("+", "-"); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op == "-" {
			return &negNode{x: x}, nil
		}
		return x, nil
	}
	return p.parsePower()
}

// parsePower binds tighter than unary minus on its left and is right
// associative: -x**2 is -(x**2), 2**3**2 is 2**9.
func (p *algebraParser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.accept("**", "^"); !ok {
		return base, nil
	}
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return bin('^', base, exp), nil
}

func (p *algebraParser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokEOF:
		return nil, exprErrorf("invalid syntax: unexpected end of input")
	case tokNumber:
		n, ok := parseNumber(t.text)
		if !ok {
			return nil, exprErrorf("invalid syntax: bad number %q", t.text)
		}
		return n, nil
	case tokLetter:
		if _, ok := p.accept("("); ok {
			return p.parseCall(t.text)
		}
		return p.identifier(t.text)
	}
	if t.text == "(" {
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, ok := p.accept(")"); !ok {
			u := p.peek()
			return nil, exprErrorf("invalid syntax: expected ')' at position %d, found %s", u.pos, u)
		}
		return n, nil
	}
	return nil, exprErrorf("invalid syntax: unexpected %s at position %d", t, t.pos)
}

func (p *algebraParser) identifier(name string) (node, error) {
	switch name {
	case "pi", "E":
		return sym(name), nil
	case "I":
		return call("sqrt", num(-1)), nil
	case "oo", "zoo", "nan":
		return nil, exprErrorf("%s is not supported", name)
	}
	return sym(name), nil
}

func (p *algebraParser) parseCall(name string) (node, error) {
	var args []node
	if _, ok := p.accept(")"); !ok {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if _, ok := p.accept(","); ok {
				continue
			}
			if _, ok := p.accept(")"); ok {
				break
			}
			u := p.peek()
			return nil, exprErrorf("invalid syntax: expected ')' at position %d, found %s", u.pos, u)
		}
	}
	if fn, ok := knownFunctions[name]; ok {
		name = fn
	}
	return call(name, args...), nil
}
