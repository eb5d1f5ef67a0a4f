package symbolic

import (
	"math/big"
	"strconv"
	"strings"
)

// node is a parsed expression before normalization. Both the LaTeX and
// the algebraic parser produce the same tree.
type node interface {
	String() string
}

type numberNode struct {
	val *big.Rat
}

type symbolNode struct {
	name string
}

// binaryNode op is one of + - * / ^
type binaryNode struct {
	op          byte
	left, right node
}

type negNode struct {
	x node
}

type callNode struct {
	fn   string
	args []node
}

func (n *numberNode) String() string { return n.val.RatString() }
func (n *symbolNode) String() string { return n.name }
func (n *negNode) String() string    { return "-(" + n.x.String() + ")" }

func (n *binaryNode) String() string {
	return "(" + n.left.String() + " " + string(n.op) + " " + n.right.String() + ")"
}

func (n *callNode) String() string {
	args := make([]string, len(n.args))
	for i, a := range n.args {
		args[i] = a.String()
	}
	return n.fn + "(" + strings.Join(args, ", ") + ")"
}

func num(v int64) *numberNode {
	return &numberNode{val: new(big.Rat).SetInt64(v)}
}

func sym(name string) *symbolNode {
	return &symbolNode{name: name}
}

func bin(op byte, left, right node) *binaryNode {
	return &binaryNode{op: op, left: left, right: right}
}

func call(fn string, args ...node) *callNode {
	return &callNode{fn: fn, args: args}
}

// maxLiteralExponent bounds scientific notation such as 1e300 so a short
// literal cannot expand into a huge integer.
const maxLiteralExponent = 4096

// parseNumber reads a decimal literal exactly.
func parseNumber(text string) (*numberNode, bool) {
	if i := strings.IndexAny(text, "eE"); i >= 0 {
		e, err := strconv.Atoi(text[i+1:])
		if err != nil || e > maxLiteralExponent || e < -maxLiteralExponent {
			return nil, false
		}
	}
	v, ok := new(big.Rat).SetString(text)
	if !ok {
		return nil, false
	}
	return &numberNode{val: v}, true
}

// Canonical names shared by both parsers.
const (
	symbolEuler = "E"
	symbolPi    = "pi"
)

// knownFunctions maps accepted spellings to canonical function names.
var knownFunctions = map[string]string{
	"sin":       "sin",
	"cos":       "cos",
	"tan":       "tan",
	"cot":       "cot",
	"sec":       "sec",
	"csc":       "csc",
	"asin":      "asin",
	"acos":      "acos",
	"atan":      "atan",
	"arcsin":    "asin",
	"arccos":    "acos",
	"arctan":    "atan",
	"sinh":      "sinh",
	"cosh":      "cosh",
	"tanh":      "tanh",
	"log":       "log",
	"ln":        "log",
	"exp":       "exp",
	"sqrt":      "sqrt",
	"root":      "root",
	"Abs":       "Abs",
	"abs":       "Abs",
	"factorial": "factorial",
}

// inverseTrig is used for \sin^{-1} style notation.
var inverseTrig = map[string]string{
	"sin": "asin",
	"cos": "acos",
	"tan": "atan",
}
