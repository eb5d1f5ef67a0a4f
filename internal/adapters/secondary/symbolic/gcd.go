package symbolic

import "math/big"

// maxGCDDegree bounds the polynomials handed to the univariate gcd.
const maxGCDDegree = 256

// dense is a univariate polynomial, lowest degree first, without trailing
// zeros. The zero polynomial is empty.
type dense []*big.Rat

// univariate reads p as a polynomial in a single atom. The atom is empty
// when p is constant.
func univariate(p poly) (string, dense, bool) {
	name, deg := "", 0
	for _, t := range p {
		switch len(t.mono) {
		case 0:
		case 1:
			f := t.mono[0]
			if f.exp <= 0 || (name != "" && f.atom != name) {
				return "", nil, false
			}
			name = f.atom
			deg = max(deg, f.exp)
		default:
			return "", nil, false
		}
	}
	if deg > maxGCDDegree {
		return "", nil, false
	}

	d := make(dense, deg+1)
	for i := range d {
		d[i] = new(big.Rat)
	}
	for _, t := range p {
		e := 0
		if len(t.mono) == 1 {
			e = t.mono[0].exp
		}
		d[e].Set(t.coef)
	}
	return name, d.trim(), true
}

func (d dense) trim() dense {
	for len(d) > 0 && d[len(d)-1].Sign() == 0 {
		d = d[:len(d)-1]
	}
	return d
}

func (d dense) monic() dense {
	if len(d) == 0 {
		return d
	}
	lead := new(big.Rat).Inv(d[len(d)-1])
	out := make(dense, len(d))
	for i, c := range d {
		out[i] = new(big.Rat).Mul(c, lead)
	}
	return out
}

func (d dense) maxCoefBits() int {
	widest := 0
	for _, c := range d {
		widest = max(widest, ratBits(c))
	}
	return widest
}

// divmod divides d by a non-zero b.
func (d dense) divmod(b dense) (dense, dense) {
	r := make(dense, len(d))
	for i, c := range d {
		r[i] = new(big.Rat).Set(c)
	}
	db := len(b) - 1
	if len(r) <= db {
		return nil, r.trim()
	}

	q := make(dense, len(r)-db)
	for i := range q {
		q[i] = new(big.Rat)
	}
	lead := b[db]
	for k := len(r) - 1; k >= db; k-- {
		if r[k].Sign() == 0 {
			continue
		}
		c := new(big.Rat).Quo(r[k], lead)
		q[k-db] = c
		for i := 0; i <= db; i++ {
			r[k-db+i].Sub(r[k-db+i], new(big.Rat).Mul(c, b[i]))
		}
	}
	return q.trim(), r.trim()
}

// gcdDense is the monic gcd by Euclid's algorithm. It gives up when the
// remainders grow past maxBits.
func gcdDense(a, b dense, maxBits int) (dense, bool) {
	for len(b) > 0 {
		_, r := a.divmod(b)
		a, b = b, r.monic()
		if b.maxCoefBits() > maxBits {
			return nil, false
		}
	}
	return a.monic(), true
}

func (d dense) toPoly(atom string) poly {
	p := poly{}
	for e, c := range d {
		var mono monomial
		if e > 0 {
			mono = monomial{{atom: atom, exp: e}}
		}
		p.addTerm(mono, c)
	}
	return p
}

// cancelCommonFactor divides num and den by their polynomial gcd when both
// are polynomials in the same single atom.
func (n *normalizer) cancelCommonFactor(r ratFunc) ratFunc {
	numAtom, num, ok := univariate(r.num)
	if !ok || numAtom == "" {
		return r
	}
	denAtom, den, ok := univariate(r.den)
	if !ok || denAtom != numAtom {
		return r
	}

	g, ok := gcdDense(num, den, n.maxBits)
	if !ok || len(g) < 2 {
		return r
	}
	numQ, numR := num.divmod(g)
	denQ, denR := den.divmod(g)
	if len(numR) > 0 || len(denR) > 0 {
		return r
	}
	return ratFunc{num: numQ.toPoly(numAtom), den: denQ.toPoly(numAtom)}
}
