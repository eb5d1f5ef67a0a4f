package symbolic

import (
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// factor is an atom raised to a positive integer power.
type factor struct {
	atom string
	exp  int
}

// monomial is a product of factors sorted by atom key. The empty monomial
// is the constant 1.
type monomial []factor

func (m monomial) key() string {
	if len(m) == 0 {
		return ""
	}
	var b strings.Builder
	for i, f := range m {
		if i > 0 {
			b.WriteByte('*')
		}
		b.WriteString(f.atom)
		if f.exp != 1 {
			b.WriteByte('^')
			b.WriteString(strconv.Itoa(f.exp))
		}
	}
	return b.String()
}

func (m monomial) exponent(atom string) int {
	for _, f := range m {
		if f.atom == atom {
			return f.exp
		}
	}
	return 0
}

func mulMonomial(a, b monomial) monomial {
	out := make(monomial, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].atom < b[j].atom:
			out = append(out, a[i])
			i++
		case a[i].atom > b[j].atom:
			out = append(out, b[j])
			j++
		default:
			out = append(out, factor{atom: a[i].atom, exp: a[i].exp + b[j].exp})
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// divMonomial assumes b divides a.
func divMonomial(a, b monomial) monomial {
	out := make(monomial, 0, len(a))
	for _, f := range a {
		if e := f.exp - b.exponent(f.atom); e > 0 {
			out = append(out, factor{atom: f.atom, exp: e})
		}
	}
	return out
}

// gcdMonomial keeps the atoms common to both with the smaller exponent.
func gcdMonomial(a, b monomial) monomial {
	var out monomial
	for _, f := range a {
		if e := b.exponent(f.atom); e > 0 {
			out = append(out, factor{atom: f.atom, exp: min(e, f.exp)})
		}
	}
	return out
}

type term struct {
	mono monomial
	coef *big.Rat
}

// poly is a polynomial over the rationals keyed by monomial key. Zero
// coefficients are never stored, so the zero polynomial is empty.
type poly map[string]term

func constPoly(v *big.Rat) poly {
	p := poly{}
	if v.Sign() != 0 {
		p[""] = term{coef: new(big.Rat).Set(v)}
	}
	return p
}

func intPoly(v int64) poly {
	return constPoly(new(big.Rat).SetInt64(v))
}

func atomPoly(atom string) poly {
	return poly{atom: term{mono: monomial{{atom: atom, exp: 1}}, coef: big.NewRat(1, 1)}}
}

func (p poly) isZero() bool {
	return len(p) == 0
}

// constant returns the value of a constant polynomial.
func (p poly) constant() (*big.Rat, bool) {
	switch len(p) {
	case 0:
		return new(big.Rat), true
	case 1:
		if t, ok := p[""]; ok {
			return t.coef, true
		}
	}
	return nil, false
}

func (p poly) isOne() bool {
	c, ok := p.constant()
	return ok && c.Cmp(big.NewRat(1, 1)) == 0
}

func (p poly) addTerm(mono monomial, coef *big.Rat) {
	if coef.Sign() == 0 {
		return
	}
	k := mono.key()
	if t, ok := p[k]; ok {
		sum := new(big.Rat).Add(t.coef, coef)
		if sum.Sign() == 0 {
			delete(p, k)
			return
		}
		p[k] = term{mono: t.mono, coef: sum}
		return
	}
	p[k] = term{mono: mono, coef: new(big.Rat).Set(coef)}
}

func (p poly) keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedTerms iterates in canonical order so results never depend on map order.
func (p poly) sortedTerms() []term {
	keys := p.keys()
	out := make([]term, len(keys))
	for i, k := range keys {
		out[i] = p[k]
	}
	return out
}

func addPoly(a, b poly) poly {
	out := make(poly, len(a)+len(b))
	for _, t := range a.sortedTerms() {
		out.addTerm(t.mono, t.coef)
	}
	for _, t := range b.sortedTerms() {
		out.addTerm(t.mono, t.coef)
	}
	return out
}

func scalePoly(p poly, c *big.Rat) poly {
	out := make(poly, len(p))
	for _, t := range p.sortedTerms() {
		out.addTerm(t.mono, new(big.Rat).Mul(t.coef, c))
	}
	return out
}

func negPoly(p poly) poly {
	return scalePoly(p, big.NewRat(-1, 1))
}

func mulPoly(a, b poly) poly {
	out := make(poly, len(a)*len(b))
	for _, x := range a.sortedTerms() {
		for _, y := range b.sortedTerms() {
			out.addTerm(mulMonomial(x.mono, y.mono), new(big.Rat).Mul(x.coef, y.coef))
		}
	}
	return out
}

// divPolyMonomial divides every term by mono, which must divide each of them.
func divPolyMonomial(p poly, mono monomial) poly {
	out := make(poly, len(p))
	for _, t := range p.sortedTerms() {
		out.addTerm(divMonomial(t.mono, mono), t.coef)
	}
	return out
}

// content is the monomial dividing every term of p.
func (p poly) content() monomial {
	terms := p.sortedTerms()
	if len(terms) == 0 {
		return nil
	}
	g := terms[0].mono
	for _, t := range terms[1:] {
		g = gcdMonomial(g, t.mono)
	}
	return g
}

// maxCoefBits is the size of the widest coefficient, numerator and
// denominator together.
func (p poly) maxCoefBits() int {
	widest := 0
	for _, t := range p {
		if b := ratBits(t.coef); b > widest {
			widest = b
		}
	}
	return widest
}

func ratBits(v *big.Rat) int {
	return v.Num().BitLen() + v.Denom().BitLen()
}

// leading is the first term in canonical order.
func (p poly) leading() term {
	return p[p.keys()[0]]
}

// ratio returns c when p == c*q for a constant c.
func ratio(p, q poly) (*big.Rat, bool) {
	if len(p) != len(q) || len(q) == 0 {
		return nil, false
	}
	var c *big.Rat
	for k, qt := range q {
		pt, ok := p[k]
		if !ok {
			return nil, false
		}
		r := new(big.Rat).Quo(pt.coef, qt.coef)
		if c == nil {
			c = r
		} else if c.Cmp(r) != 0 {
			return nil, false
		}
	}
	return c, true
}

func (p poly) String() string {
	if len(p) == 0 {
		return "0"
	}
	var b strings.Builder
	for i, t := range p.sortedTerms() {
		if i > 0 {
			b.WriteString(" + ")
		}
		mk := t.mono.key()
		switch {
		case mk == "":
			b.WriteString(t.coef.RatString())
		case t.coef.Cmp(big.NewRat(1, 1)) == 0:
			b.WriteString(mk)
		default:
			b.WriteString(t.coef.RatString())
			b.WriteByte('*')
			b.WriteString(mk)
		}
	}
	return b.String()
}

// ratFunc is num/den with den never the zero polynomial.
type ratFunc struct {
	num, den poly
}

func constRat(v *big.Rat) ratFunc {
	return ratFunc{num: constPoly(v), den: intPoly(1)}
}

func (r ratFunc) isZero() bool {
	return r.num.isZero()
}

func (r ratFunc) constant() (*big.Rat, bool) {
	n, ok := r.num.constant()
	if !ok {
		return nil, false
	}
	d, ok := r.den.constant()
	if !ok {
		return nil, false
	}
	return new(big.Rat).Quo(n, d), true
}

// key is the canonical text of an already simplified rational function.
func (r ratFunc) key() string {
	if r.den.isOne() {
		return r.num.String()
	}
	return "(" + r.num.String() + ")/(" + r.den.String() + ")"
}
