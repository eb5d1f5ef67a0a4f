package symbolic

import (
	"fmt"
	"math/big"
	"strings"

	"answer-grading-service/internal/core/domain"
)

const (
	maxReducePasses  = 32
	productFactor    = 4
	maxConstExponent = 4096
	maxFactorial     = 170
	trialDivisorCap  = 1000
)

// atom is an indivisible factor of a monomial. Root atoms carry the base
// and index so that a root raised to its index folds back to the base.
type atom struct {
	key   string
	base  *ratFunc
	index int
}

// normalizer turns trees into canonical rational functions. One normalizer
// must be shared by both sides of a comparison so atom keys agree.
type normalizer struct {
	atoms       map[string]*atom
	maxExponent int
	maxTerms    int
	maxBits     int
}

func newNormalizer(maxExponent, maxTerms, maxBits int) *normalizer {
	return &normalizer{
		atoms:       make(map[string]*atom),
		maxExponent: maxExponent,
		maxTerms:    maxTerms,
		maxBits:     maxBits,
	}
}

func exprErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrExpression, fmt.Sprintf(format, args...))
}

var (
	errDivisionByZero = exprErrorf("division by zero")
	errNumberTooLarge = exprErrorf("number is too large")
)

func (n *normalizer) eval(nd node) (ratFunc, error) {
	switch x := nd.(type) {
	case *numberNode:
		if ratBits(x.val) > n.maxBits {
			return ratFunc{}, errNumberTooLarge
		}
		return constRat(x.val), nil
	case *symbolNode:
		return n.atomValue(x.name, nil, 0), nil
	case *negNode:
		v, err := n.eval(x.x)
		if err != nil {
			return ratFunc{}, err
		}
		return ratFunc{num: negPoly(v.num), den: v.den}, nil
	case *binaryNode:
		left, err := n.eval(x.left)
		if err != nil {
			return ratFunc{}, err
		}
		right, err := n.eval(x.right)
		if err != nil {
			return ratFunc{}, err
		}
		switch x.op {
		case '+':
			return n.add(left, right)
		case '-':
			return n.add(left, ratFunc{num: negPoly(right.num), den: right.den})
		case '*':
			return n.mul(left, right)
		case '/':
			return n.div(left, right)
		case '^':
			return n.pow(left, right)
		}
		return ratFunc{}, exprErrorf("unknown operator %q", x.op)
	case *callNode:
		return n.call(x)
	}
	return ratFunc{}, exprErrorf("unsupported expression %s", nd)
}

func (n *normalizer) atomValue(key string, base *ratFunc, index int) ratFunc {
	if _, ok := n.atoms[key]; !ok {
		n.atoms[key] = &atom{key: key, base: base, index: index}
	}
	return ratFunc{num: atomPoly(key), den: intPoly(1)}
}

func (n *normalizer) checkSize(polys ...poly) error {
	for _, p := range polys {
		if len(p) > n.maxTerms {
			return exprErrorf("expression too complex to simplify")
		}
		if p.maxCoefBits() > n.maxBits {
			return errNumberTooLarge
		}
	}
	return nil
}

// checkProduct rejects multiplications whose expansion could blow up
// before doing the work. A coefficient of a product has at most as many
// bits as the two widest factors together, plus carries from summing.
func (n *normalizer) checkProduct(a, b poly) error {
	if len(a)*len(b) > productFactor*n.maxTerms {
		return exprErrorf("expression too complex to simplify")
	}
	if a.maxCoefBits()+b.maxCoefBits() > n.maxBits {
		return errNumberTooLarge
	}
	return nil
}

func (n *normalizer) add(a, b ratFunc) (ratFunc, error) {
	if err := n.checkProduct(a.num, b.den); err != nil {
		return ratFunc{}, err
	}
	if err := n.checkProduct(b.num, a.den); err != nil {
		return ratFunc{}, err
	}
	var out ratFunc
	if a.den.String() == b.den.String() {
		out = ratFunc{num: addPoly(a.num, b.num), den: a.den}
	} else {
		out = ratFunc{
			num: addPoly(mulPoly(a.num, b.den), mulPoly(b.num, a.den)),
			den: mulPoly(a.den, b.den),
		}
	}
	return n.simplify(out)
}

func (n *normalizer) mul(a, b ratFunc) (ratFunc, error) {
	if err := n.checkProduct(a.num, b.num); err != nil {
		return ratFunc{}, err
	}
	if err := n.checkProduct(a.den, b.den); err != nil {
		return ratFunc{}, err
	}
	return n.simplify(ratFunc{num: mulPoly(a.num, b.num), den: mulPoly(a.den, b.den)})
}

func (n *normalizer) div(a, b ratFunc) (ratFunc, error) {
	if b.isZero() {
		return ratFunc{}, errDivisionByZero
	}
	if err := n.checkProduct(a.num, b.den); err != nil {
		return ratFunc{}, err
	}
	if err := n.checkProduct(a.den, b.num); err != nil {
		return ratFunc{}, err
	}
	return n.simplify(ratFunc{num: mulPoly(a.num, b.den), den: mulPoly(a.den, b.num)})
}

func (n *normalizer) invert(a ratFunc) (ratFunc, error) {
	if a.isZero() {
		return ratFunc{}, errDivisionByZero
	}
	return n.simplify(ratFunc{num: a.den, den: a.num})
}

func (n *normalizer) pow(base, exp ratFunc) (ratFunc, error) {
	e, ok := exp.constant()
	if !ok {
		if base.num.isOne() && base.den.isOne() {
			return base, nil
		}
		return n.atomValue("pow("+base.key()+","+exp.key()+")", nil, 0), nil
	}
	if e.IsInt() {
		return n.powInt(base, e.Num())
	}

	p, q := e.Num(), e.Denom()
	if !q.IsInt64() || q.Int64() > int64(n.maxExponent) {
		return ratFunc{}, exprErrorf("root index %s is too large", q)
	}
	index := int(q.Int64())

	if c, ok := base.constant(); ok {
		return n.constRoot(c, p, index)
	}

	// (c*u)^e == c^e * u^e for c > 0, so sqrt(4x) is 2*sqrt(x).
	if scale := new(big.Rat).Abs(base.num.leading().coef); scale.Cmp(big.NewRat(1, 1)) != 0 {
		outer, err := n.constRoot(scale, p, index)
		if err != nil {
			return ratFunc{}, err
		}
		inner, err := n.pow(ratFunc{num: scalePoly(base.num, new(big.Rat).Inv(scale)), den: base.den}, exp)
		if err != nil {
			return ratFunc{}, err
		}
		return n.mul(outer, inner)
	}

	root := n.atomValue(fmt.Sprintf("root(%s,%d)", base.key(), index), &base, index)
	return n.powInt(root, p)
}

func (n *normalizer) powInt(base ratFunc, k *big.Int) (ratFunc, error) {
	limit := int64(n.maxExponent)
	if _, ok := base.constant(); ok {
		limit = maxConstExponent
	}
	if !k.IsInt64() || abs64(k.Int64()) > limit {
		return ratFunc{}, exprErrorf("exponent %s is too large", k)
	}
	e := k.Int64()
	if e == 0 {
		return constRat(big.NewRat(1, 1)), nil
	}
	if e < 0 {
		inv, err := n.invert(base)
		if err != nil {
			return ratFunc{}, err
		}
		base, e = inv, -e
	}

	result := constRat(big.NewRat(1, 1))
	for e > 0 {
		var err error
		if e&1 == 1 {
			if result, err = n.mul(result, base); err != nil {
				return ratFunc{}, err
			}
		}
		e >>= 1
		if e > 0 {
			if base, err = n.mul(base, base); err != nil {
				return ratFunc{}, err
			}
		}
	}
	return result, nil
}

// constRoot computes c^(p/index) exactly. Integer powers of prime factors
// are pulled out and the remainder becomes root atoms over single bases, so
// sqrt(8) and 2*sqrt(2) share a normal form.
func (n *normalizer) constRoot(c *big.Rat, p *big.Int, index int) (ratFunc, error) {
	if c.Sign() == 0 {
		if p.Sign() < 0 {
			return ratFunc{}, errDivisionByZero
		}
		return constRat(new(big.Rat)), nil
	}

	exp := new(big.Rat).SetFrac(p, big.NewInt(int64(index)))
	result := constRat(big.NewRat(1, 1))

	if c.Sign() < 0 {
		// (-1)^(p/q) is kept symbolic, as sqrt(-1) is.
		part, err := n.rootFactor(big.NewInt(-1), exp)
		if err != nil {
			return ratFunc{}, err
		}
		if result, err = n.mul(result, part); err != nil {
			return ratFunc{}, err
		}
	}

	abs := new(big.Rat).Abs(c)
	for _, side := range []struct {
		val  *big.Int
		sign int64
	}{{abs.Num(), 1}, {abs.Denom(), -1}} {
		for _, pf := range factorize(side.val) {
			e := new(big.Rat).Mul(exp, new(big.Rat).SetInt64(side.sign*int64(pf.exp)))
			part, err := n.rootFactor(pf.prime, e)
			if err != nil {
				return ratFunc{}, err
			}
			if result, err = n.mul(result, part); err != nil {
				return ratFunc{}, err
			}
		}
	}
	return result, nil
}

// rootFactor computes base^e for an integer base, splitting e into an
// integer part and a fractional part in [0, 1).
func (n *normalizer) rootFactor(base *big.Int, e *big.Rat) (ratFunc, error) {
	whole := new(big.Int).Div(e.Num(), e.Denom()) // floor for positive denominators
	frac := new(big.Rat).Sub(e, new(big.Rat).SetInt(whole))

	b := constRat(new(big.Rat).SetInt(base))
	result, err := n.powInt(b, whole)
	if err != nil {
		return ratFunc{}, err
	}
	if frac.Sign() == 0 {
		return result, nil
	}

	index := int(frac.Denom().Int64())
	root := n.atomValue(fmt.Sprintf("root(%s,%d)", base.String(), index), &b, index)
	rootPow, err := n.powInt(root, frac.Num())
	if err != nil {
		return ratFunc{}, err
	}
	return n.mul(result, rootPow)
}

func (n *normalizer) call(c *callNode) (ratFunc, error) {
	args := make([]ratFunc, len(c.args))
	for i, a := range c.args {
		v, err := n.eval(a)
		if err != nil {
			return ratFunc{}, err
		}
		args[i] = v
	}

	arity := func(want int) error {
		if len(args) != want {
			return exprErrorf("%s expects %d argument(s), got %d", c.fn, want, len(args))
		}
		return nil
	}

	switch c.fn {
	case "sqrt":
		if err := arity(1); err != nil {
			return ratFunc{}, err
		}
		return n.pow(args[0], constRat(big.NewRat(1, 2)))
	case "root":
		if err := arity(2); err != nil {
			return ratFunc{}, err
		}
		inv, err := n.invert(args[1])
		if err != nil {
			return ratFunc{}, err
		}
		return n.pow(args[0], inv)
	case "exp":
		if err := arity(1); err != nil {
			return ratFunc{}, err
		}
		return n.pow(n.atomValue(symbolEuler, nil, 0), args[0])
	case "log":
		if len(args) == 2 {
			num, err := n.log(args[0])
			if err != nil {
				return ratFunc{}, err
			}
			den, err := n.log(args[1])
			if err != nil {
				return ratFunc{}, err
			}
			return n.div(num, den)
		}
		if err := arity(1); err != nil {
			return ratFunc{}, err
		}
		return n.log(args[0])
	case "Abs":
		if err := arity(1); err != nil {
			return ratFunc{}, err
		}
		return n.abs(args[0])
	case "factorial":
		if err := arity(1); err != nil {
			return ratFunc{}, err
		}
		return n.factorial(args[0])
	}

	if len(args) == 1 {
		if v, ok := zeroValues[c.fn]; ok && args[0].isZero() {
			return constRat(big.NewRat(v, 1)), nil
		}
	}
	return n.opaque(c.fn, args...), nil
}

// zeroValues are function values at 0.
var zeroValues = map[string]int64{
	"sin": 0, "tan": 0, "asin": 0, "atan": 0, "sinh": 0, "tanh": 0,
	"cos": 1, "cosh": 1,
}

func (n *normalizer) opaque(fn string, args ...ratFunc) ratFunc {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = a.key()
	}
	return n.atomValue(fn+"("+strings.Join(keys, ",")+")", nil, 0)
}

func (n *normalizer) log(arg ratFunc) (ratFunc, error) {
	if arg.isZero() {
		return ratFunc{}, exprErrorf("logarithm of zero")
	}
	if c, ok := arg.constant(); ok && c.Cmp(big.NewRat(1, 1)) == 0 {
		return constRat(new(big.Rat)), nil
	}
	if arg.den.isOne() && arg.num.String() == symbolEuler {
		return constRat(big.NewRat(1, 1)), nil
	}
	return n.opaque("log", arg), nil
}

func (n *normalizer) abs(arg ratFunc) (ratFunc, error) {
	if c, ok := arg.constant(); ok {
		return constRat(new(big.Rat).Abs(c)), nil
	}
	// |-u| == |u|
	if arg.num.leading().coef.Sign() < 0 {
		arg = ratFunc{num: negPoly(arg.num), den: arg.den}
	}
	return n.opaque("Abs", arg), nil
}

func (n *normalizer) factorial(arg ratFunc) (ratFunc, error) {
	c, ok := arg.constant()
	if !ok || !c.IsInt() {
		return n.opaque("factorial", arg), nil
	}
	if c.Sign() < 0 {
		return ratFunc{}, exprErrorf("factorial of a negative number")
	}
	if c.Num().Cmp(big.NewInt(maxFactorial)) > 0 {
		return ratFunc{}, exprErrorf("factorial argument %s is too large", c.RatString())
	}
	v := new(big.Int).MulRange(1, c.Num().Int64())
	return constRat(new(big.Rat).SetInt(v)), nil
}

// simplify folds roots, cancels common factors and fixes the scale of the
// denominator so equal values print equal keys.
func (n *normalizer) simplify(r ratFunc) (ratFunc, error) {
	if r.den.isZero() {
		return ratFunc{}, errDivisionByZero
	}
	if err := n.checkSize(r.num, r.den); err != nil {
		return ratFunc{}, err
	}

	r, err := n.reduceRoots(r)
	if err != nil {
		return ratFunc{}, err
	}
	if r.den.isZero() {
		return ratFunc{}, errDivisionByZero
	}
	if r.num.isZero() {
		return constRat(new(big.Rat)), nil
	}

	if g := gcdMonomial(r.num.content(), r.den.content()); len(g) > 0 {
		r = ratFunc{num: divPolyMonomial(r.num, g), den: divPolyMonomial(r.den, g)}
	}
	if _, ok := r.den.constant(); !ok {
		r = n.cancelCommonFactor(r)
	}

	if c, ok := ratio(r.num, r.den); ok {
		return constRat(c), nil
	}

	lc := new(big.Rat).Inv(r.den.leading().coef)
	return ratFunc{num: scalePoly(r.num, lc), den: scalePoly(r.den, lc)}, nil
}

// reduceRoots rewrites root^k with k >= index as base^(k/index) * root^(k%index)
// until nothing changes.
func (n *normalizer) reduceRoots(r ratFunc) (ratFunc, error) {
	for pass := 0; pass < maxReducePasses; pass++ {
		num, numChanged, err := n.reducePoly(r.num)
		if err != nil {
			return ratFunc{}, err
		}
		den, denChanged, err := n.reducePoly(r.den)
		if err != nil {
			return ratFunc{}, err
		}
		if !numChanged && !denChanged {
			return r, nil
		}
		r = ratFunc{num: mulPoly(num.num, den.den), den: mulPoly(num.den, den.num)}
		if err := n.checkSize(r.num, r.den); err != nil {
			return ratFunc{}, err
		}
	}
	return ratFunc{}, exprErrorf("expression too complex to simplify")
}

// reducePoly returns p as a rational function with every root exponent below
// its index. Terms are grouped by the denominator they pick up.
func (n *normalizer) reducePoly(p poly) (ratFunc, bool, error) {
	type group struct {
		num poly
		den poly
	}
	var order []string
	groups := map[string]*group{}
	changed := false

	for _, t := range p.sortedTerms() {
		mono := make(monomial, 0, len(t.mono))
		num := poly{}
		num.addTerm(nil, t.coef)
		den := intPoly(1)

		for _, f := range t.mono {
			a := n.atoms[f.atom]
			if a == nil || a.base == nil || f.exp < a.index {
				mono = append(mono, f)
				continue
			}
			changed = true
			k, rest := f.exp/a.index, f.exp%a.index
			if rest > 0 {
				mono = append(mono, factor{atom: f.atom, exp: rest})
			}
			for i := 0; i < k; i++ {
				num = mulPoly(num, a.base.num)
				den = mulPoly(den, a.base.den)
			}
			if err := n.checkSize(num, den); err != nil {
				return ratFunc{}, false, err
			}
		}

		num = mulPoly(num, poly{mono.key(): term{mono: mono, coef: big.NewRat(1, 1)}})
		dk := den.String()
		g, ok := groups[dk]
		if !ok {
			g = &group{num: poly{}, den: den}
			groups[dk] = g
			order = append(order, dk)
		}
		g.num = addPoly(g.num, num)
	}

	if !changed {
		return ratFunc{num: p, den: intPoly(1)}, false, nil
	}

	out := ratFunc{num: poly{}, den: intPoly(1)}
	for _, dk := range order {
		g := groups[dk]
		out = ratFunc{
			num: addPoly(mulPoly(out.num, g.den), mulPoly(g.num, out.den)),
			den: mulPoly(out.den, g.den),
		}
		if err := n.checkSize(out.num, out.den); err != nil {
			return ratFunc{}, false, err
		}
	}
	return out, true, nil
}

type primePower struct {
	prime *big.Int
	exp   int
}

// factorize splits v > 0 by trial division. A cofactor without small
// divisors is returned as a single factor.
func factorize(v *big.Int) []primePower {
	var out []primePower
	rest := new(big.Int).Set(v)
	one := big.NewInt(1)
	mod := new(big.Int)
	for d := int64(2); d <= trialDivisorCap && rest.Cmp(one) > 0; d++ {
		div := big.NewInt(d)
		count := 0
		for {
			q, m := new(big.Int).QuoRem(rest, div, mod)
			if m.Sign() != 0 {
				break
			}
			rest = q
			count++
		}
		if count > 0 {
			out = append(out, primePower{prime: div, exp: count})
		}
	}
	if rest.Cmp(one) > 0 {
		base, exp := perfectPower(rest)
		out = append(out, primePower{prime: base, exp: exp})
	}
	return out
}

// powerPrimes are the exponents tried by perfectPower. Composite powers are
// found by applying them repeatedly.
var powerPrimes = []int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61}

// perfectPower writes v as base^exp with the largest exp it can find. v has
// no factor below trialDivisorCap, so a k-th root needs about 10k bits.
func perfectPower(v *big.Int) (*big.Int, int) {
	base, exp := v, 1
	for found := true; found; {
		found = false
		for _, k := range powerPrimes {
			if base.BitLen() < 9*k {
				break
			}
			if r, ok := intRoot(base, k); ok {
				base, exp = r, exp*k
				found = true
				break
			}
		}
	}
	return base, exp
}

// intRoot returns floor(v^(1/k)) for v > 0 and whether it is exact.
func intRoot(v *big.Int, k int) (*big.Int, bool) {
	if k == 2 {
		r := new(big.Int).Sqrt(v)
		return r, new(big.Int).Mul(r, r).Cmp(v) == 0
	}

	bk := big.NewInt(int64(k))
	bk1 := big.NewInt(int64(k - 1))
	// Newton's method from above converges to the floor.
	x := new(big.Int).Lsh(big.NewInt(1), uint(v.BitLen()/k+1))
	for {
		y := new(big.Int).Exp(x, bk1, nil)
		y.Quo(v, y)
		y.Add(y, new(big.Int).Mul(x, bk1))
		y.Quo(y, bk)
		if y.Cmp(x) >= 0 {
			break
		}
		x = y
	}
	return x, new(big.Int).Exp(x, bk, nil).Cmp(v) == 0
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
