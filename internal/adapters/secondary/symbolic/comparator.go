package symbolic

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"answer-grading-service/internal/config"
	ports "answer-grading-service/internal/core/ports/output"
)

const (
	defaultMaxExponent = 64
	defaultMaxTerms    = 4096
	defaultMaxBits     = 1 << 16
)

// Comparator checks exact algebraic equivalence: both sides are brought to
// a canonical rational function and their difference must vanish.
type Comparator struct {
	maxExponent int
	maxTerms    int
	maxBits     int
}

// NewComparator creates a new symbolic comparator adapter
func NewComparator(cfg *config.SymbolicConfig) ports.ExpressionComparator {
	c := &Comparator{
		maxExponent: cfg.MaxExponent,
		maxTerms:    cfg.MaxTerms,
		maxBits:     cfg.MaxBits,
	}
	if c.maxExponent <= 0 {
		c.maxExponent = defaultMaxExponent
	}
	if c.maxTerms <= 0 {
		c.maxTerms = defaultMaxTerms
	}
	if c.maxBits <= 0 {
		c.maxBits = defaultMaxBits
	}
	return c
}

func (c *Comparator) Equivalent(recognized, expected string) (bool, error) {
	student, err := parseLatex(stripMathDelimiters(recognized))
	if err != nil {
		return false, err
	}
	answer, err := parseAlgebra(expected)
	if err != nil {
		return false, err
	}

	n := newNormalizer(c.maxExponent, c.maxTerms, c.maxBits)
	diff, err := n.eval(bin('-', student, answer))
	if err != nil {
		return false, err
	}

	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithFields(log.Fields{
			"student":    student.String(),
			"expected":   answer.String(),
			"difference": diff.key(),
		}).Debug("compared expressions")
	}

	return diff.isZero(), nil
}

var mathDelimiters = [][2]string{
	{`\(`, `\)`},
	{`\[`, `\]`},
	{`$$`, `$$`},
	{`$`, `$`},
}

// stripMathDelimiters removes one pair of inline or display math delimiters
// wrapping the whole text, as MathPix emits in its text format.
func stripMathDelimiters(s string) string {
	s = strings.TrimSpace(s)
	for _, d := range mathDelimiters {
		if len(s) >= len(d[0])+len(d[1]) && strings.HasPrefix(s, d[0]) && strings.HasSuffix(s, d[1]) {
			return strings.TrimSpace(s[len(d[0]) : len(s)-len(d[1])])
		}
	}
	return s
}
