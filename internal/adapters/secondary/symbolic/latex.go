package symbolic

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokLetter
	tokCommand
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokCommand:
		return `\` + t.text
	}
	return t.text
}

// ignoredCommands only affect spacing or delimiter sizing.
var ignoredCommands = map[string]bool{
	",": true, ";": true, ":": true, "!": true, " ": true,
	"quad": true, "qquad": true, "displaystyle": true,
	"left": true, "right": true,
	"big": true, "Big": true, "bigl": true, "bigr": true, "Bigl": true, "Bigr": true,
}

// unicodeOps maps symbols handwriting OCR tends to emit.
var unicodeOps = map[rune]string{
	'−': "-",
	'×': "*",
	'·': "*",
	'÷': "/",
}

func lexLatex(src string) ([]token, error) {
	var toks []token
	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			seenDot := false
			for i < len(runes) && (unicode.IsDigit(runes[i]) || (runes[i] == '.' && !seenDot)) {
				if runes[i] == '.' {
					seenDot = true
				}
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: string(runes[start:i]), pos: start})
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			toks = append(toks, token{kind: tokLetter, text: string(r), pos: i})
			i++
		case r == '\\':
			start := i
			i++
			if i >= len(runes) {
				return nil, exprErrorf("dangling backslash at position %d", start)
			}
			var name string
			if unicode.IsLetter(runes[i]) {
				j := i
				for j < len(runes) && unicode.IsLetter(runes[j]) {
					j++
				}
				name = string(runes[i:j])
				i = j
			} else {
				name = string(runes[i])
				i++
			}
			if ignoredCommands[name] {
				// \left. and \right. are invisible delimiters
				if (name == "left" || name == "right") && i < len(runes) && runes[i] == '.' {
					i++
				}
				continue
			}
			switch name {
			case "{":
				toks = append(toks, token{kind: tokOp, text: "(", pos: start})
			case "}":
				toks = append(toks, token{kind: tokOp, text: ")", pos: start})
			case "|":
				toks = append(toks, token{kind: tokOp, text: "|", pos: start})
			default:
				toks = append(toks, token{kind: tokCommand, text: name, pos: start})
			}
		case strings.ContainsRune("+-*/^_()[]{}|=<>,!'", r):
			toks = append(toks, token{kind: tokOp, text: string(r), pos: i})
			i++
		default:
			if op, ok := unicodeOps[r]; ok {
				toks = append(toks, token{kind: tokOp, text: op, pos: i})
				i++
				continue
			}
			return nil, exprErrorf("unexpected character %q at position %d", r, i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(runes)}), nil
}

// Commands that stand for operators.
var latexOperators = map[string]string{
	"cdot":  "*",
	"times": "*",
	"ast":   "*",
	"div":   "/",
}

var latexRelations = map[string]bool{
	"le": true, "ge": true, "leq": true, "geq": true, "neq": true, "ne": true,
	"lt": true, "gt": true, "approx": true, "equiv": true, "to": true,
	"rightarrow": true, "Rightarrow": true,
}

var greekLetters = map[string]bool{
	"alpha": true, "beta": true, "gamma": true, "delta": true, "epsilon": true,
	"varepsilon": true, "zeta": true, "eta": true, "theta": true, "vartheta": true,
	"iota": true, "kappa": true, "lambda": true, "mu": true, "nu": true, "xi": true,
	"rho": true, "sigma": true, "tau": true, "upsilon": true, "phi": true,
	"varphi": true, "chi": true, "psi": true, "omega": true,
	"Gamma": true, "Delta": true, "Theta": true, "Lambda": true, "Xi": true,
	"Sigma": true, "Phi": true, "Psi": true, "Omega": true,
}

// Font and text wrappers whose argument is read as plain math.
var latexWrappers = map[string]bool{
	"mathrm": true, "mathit": true, "mathbf": true, "text": true, "textrm": true, "mathsf": true,
}

var latexFunctions = map[string]string{
	"sin": "sin", "cos": "cos", "tan": "tan", "cot": "cot", "sec": "sec", "csc": "csc",
	"arcsin": "asin", "arccos": "acos", "arctan": "atan",
	"sinh": "sinh", "cosh": "cosh", "tanh": "tanh",
	"ln": "log", "log": "log", "exp": "exp",
}

type latexParser struct {
	toks     []token
	pos      int
	absDepth int
}

// parseLatex parses a LaTeX math expression.
func parseLatex(src string) (node, error) {
	toks, err := lexLatex(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 1 {
		return nil, exprErrorf("empty expression")
	}
	p := &latexParser{toks: toks}
	n, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		if p.isRelation(t) {
			return nil, exprErrorf("relations such as %s are not supported", t)
		}
		return nil, exprErrorf("unexpected %s at position %d", t, t.pos)
	}
	return n, nil
}

func (p *latexParser) peek() token {
	return p.toks[p.pos]
}

func (p *latexParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *latexParser) isOp(t token, ops ...string) bool {
	if t.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

func (p *latexParser) isRelation(t token) bool {
	return p.isOp(t, "=", "<", ">") || (t.kind == tokCommand && latexRelations[t.text])
}

func (p *latexParser) expect(op string) error {
	t := p.next()
	if !p.isOp(t, op) {
		return exprErrorf("expected %q at position %d, found %s", op, t.pos, t)
	}
	return nil
}

func (p *latexParser) parseAdditive() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if !p.isOp(t, "+", "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = bin(t.text[0], left, right)
	}
}

// mulOp reports the explicit multiplicative operator at t, if any.
func (p *latexParser) mulOp(t token) (byte, bool) {
	if p.isOp(t, "*", "/") {
		return t.text[0], true
	}
	if t.kind == tokCommand {
		if op, ok := latexOperators[t.text]; ok {
			return op[0], true
		}
	}
	return 0, false
}

func (p *latexParser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if op, ok := p.mulOp(t); ok {
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = bin(op, left, right)
			continue
		}
		if !p.startsImplicit(t, true) {
			return left, nil
		}
		right, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		left = bin('*', left, right)
	}
}

// startsImplicit reports whether t can begin a factor that is multiplied
// without an explicit operator.
func (p *latexParser) startsImplicit(t token, allowFunctions bool) bool {
	switch t.kind {
	case tokNumber, tokLetter:
		return true
	case tokOp:
		switch t.text {
		case "(", "[", "{":
			return true
		case "|":
			return p.absDepth == 0
		}
		return false
	case tokCommand:
		if _, ok := latexFunctions[t.text]; ok {
			return allowFunctions
		}
		switch t.text {
		case "frac", "dfrac", "tfrac", "sqrt", "pi", "operatorname":
			return true
		}
		return greekLetters[t.text] || latexWrappers[t.text]
	}
	return false
}

func (p *latexParser) parseUnary() (node, error) {
	t := p.peek()
	if p.isOp(t, "+") {
		p.next()
		return p.parseUnary()
	}
	if p.isOp(t, "-") {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &negNode{x: x}, nil
	}
	return p.parsePostfix()
}

func (p *latexParser) parsePostfix() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.isOp(p.peek(), "!") {
		p.next()
		base = call("factorial", base)
	}
	if p.isOp(p.peek(), "^") {
		p.next()
		exp, err := p.parseScript()
		if err != nil {
			return nil, err
		}
		base = bin('^', base, exp)
		if p.isOp(p.peek(), "^") {
			return nil, exprErrorf("double superscript at position %d", p.peek().pos)
		}
	}
	return base, nil
}

// parseScript reads a superscript or a \frac argument: a braced group or a
// single token, where a multi-digit number contributes only its first digit.
func (p *latexParser) parseScript() (node, error) {
	t := p.peek()
	switch {
	case p.isOp(t, "{"):
		p.next()
		n, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return n, p.expect("}")
	case t.kind == tokNumber:
		if len(t.text) > 1 && t.text[0] != '.' {
			p.toks[p.pos].text = t.text[1:]
			p.toks[p.pos].pos++
			n, _ := parseNumber(t.text[:1])
			return n, nil
		}
		p.next()
		n, ok := parseNumber(t.text)
		if !ok {
			return nil, exprErrorf("invalid number %q", t.text)
		}
		return n, nil
	case p.isOp(t, "-"):
		p.next()
		x, err := p.parseScript()
		if err != nil {
			return nil, err
		}
		return &negNode{x: x}, nil
	}
	return p.parsePrimary()
}

func (p *latexParser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokEOF:
		return nil, exprErrorf("unexpected end of input")
	case tokNumber:
		n, ok := parseNumber(t.text)
		if !ok {
			return nil, exprErrorf("invalid number %q", t.text)
		}
		return n, nil
	case tokLetter:
		return p.parseSymbol(t)
	case tokCommand:
		return p.parseCommand(t)
	}

	switch t.text {
	case "(", "[", "{":
		closer := map[string]string{"(": ")", "[": "]", "{": "}"}[t.text]
		n, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return n, p.expect(closer)
	case "|":
		p.absDepth++
		n, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		p.absDepth--
		if err := p.expect("|"); err != nil {
			return nil, err
		}
		return call("Abs", n), nil
	}
	if p.isRelation(t) {
		return nil, exprErrorf("relations such as %s are not supported", t)
	}
	return nil, exprErrorf("unexpected %s at position %d", t, t.pos)
}

func (p *latexParser) parseSymbol(t token) (node, error) {
	name := t.text
	if !p.isOp(p.peek(), "_") {
		if name == "e" {
			return sym(symbolEuler), nil
		}
		return sym(name), nil
	}
	p.next()
	sub, err := p.rawScript()
	if err != nil {
		return nil, err
	}
	return sym(name + "_" + sub), nil
}

// rawScript returns the text of a subscript, which names a symbol rather
// than being evaluated.
func (p *latexParser) rawScript() (string, error) {
	t := p.peek()
	if t.kind == tokNumber && len(t.text) > 1 {
		p.toks[p.pos].text = t.text[1:]
		p.toks[p.pos].pos++
		return t.text[:1], nil
	}
	p.next()
	switch {
	case t.kind == tokNumber || t.kind == tokLetter:
		return t.text, nil
	case t.kind == tokCommand:
		return t.text, nil
	case p.isOp(t, "{"):
		var b strings.Builder
		for {
			t := p.next()
			if p.isOp(t, "}") {
				break
			}
			if t.kind == tokEOF || !(t.kind == tokNumber || t.kind == tokLetter || t.kind == tokCommand) {
				return "", exprErrorf("unsupported subscript at position %d", t.pos)
			}
			b.WriteString(t.text)
		}
		if b.Len() == 0 {
			return "", exprErrorf("empty subscript")
		}
		return b.String(), nil
	}
	return "", exprErrorf("unsupported subscript at position %d", t.pos)
}

func (p *latexParser) parseCommand(t token) (node, error) {
	if fn, ok := latexFunctions[t.text]; ok {
		return p.parseFunction(fn)
	}
	switch t.text {
	case "frac", "dfrac", "tfrac":
		num, err := p.parseScript()
		if err != nil {
			return nil, err
		}
		den, err := p.parseScript()
		if err != nil {
			return nil, err
		}
		return bin('/', num, den), nil
	case "sqrt":
		var index node
		if p.isOp(p.peek(), "[") {
			p.next()
			n, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			index = n
		}
		radicand, err := p.parseScript()
		if err != nil {
			return nil, err
		}
		if index == nil {
			return call("sqrt", radicand), nil
		}
		return call("root", radicand, index), nil
	case "pi":
		return sym(symbolPi), nil
	case "operatorname":
		name, err := p.rawScript()
		if err != nil {
			return nil, err
		}
		fn, ok := knownFunctions[name]
		if !ok {
			return nil, exprErrorf(`unsupported function \operatorname{%s}`, name)
		}
		return p.parseFunction(fn)
	}
	if greekLetters[t.text] {
		return sym(t.text), nil
	}
	if latexWrappers[t.text] {
		return p.parseScript()
	}
	if p.isRelation(t) {
		return nil, exprErrorf("relations such as %s are not supported", t)
	}
	return nil, exprErrorf(`unsupported command \%s`, t.text)
}

// parseFunction reads the argument of \sin and friends, including the
// \sin^2 x and \sin^{-1} x forms.
func (p *latexParser) parseFunction(fn string) (node, error) {
	var power node
	if p.isOp(p.peek(), "^") {
		p.next()
		exp, err := p.parseScript()
		if err != nil {
			return nil, err
		}
		if inv, ok := inverseTrig[fn]; ok && isMinusOne(exp) {
			fn = inv
		} else {
			power = exp
		}
	}

	var arg node
	var err error
	if t := p.peek(); p.isOp(t, "(") || p.isOp(t, "[") {
		arg, err = p.parsePrimary()
	} else {
		arg, err = p.parseFunctionArg()
	}
	if err != nil {
		return nil, err
	}

	var out node = call(fn, arg)
	if power != nil {
		out = bin('^', out, power)
	}
	return out, nil
}

// parseFunctionArg reads an unparenthesized argument: implicitly multiplied
// factors up to the next operator or function.
func (p *latexParser) parseFunctionArg() (node, error) {
	arg, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	for p.startsImplicit(p.peek(), false) {
		right, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		arg = bin('*', arg, right)
	}
	return arg, nil
}

func isMinusOne(n node) bool {
	neg, ok := n.(*negNode)
	if !ok {
		return false
	}
	one, ok := neg.x.(*numberNode)
	return ok && one.val.IsInt() && one.val.Num().Int64() == 1
}
