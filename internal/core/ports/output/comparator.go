package ports

// ExpressionComparator decides exact algebraic equivalence
type ExpressionComparator interface {
	// Equivalent parses recognized as LaTeX and expected as a plain algebraic
	// expression. Parse and evaluation failures wrap domain.ErrExpression.
	Equivalent(recognized, expected string) (bool, error)
}
