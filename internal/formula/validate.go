package formula

// Result is the outcome of structural validation. Message carries the
// first failing reason; it is empty when Valid is true.
type Result struct {
	Valid   bool
	Message string
}

func invalid(msg string) Result {
	return Result{Valid: false, Message: msg}
}

// Validate applies the structural rules every downstream consumer of a
// formula relies on, in a fixed order, returning the first failure:
//
//  1. the sequence must be non-empty
//  2. parentheses must balance and the running count never goes negative
//  3. no two consecutive operators
//  4. the sequence must not start or end with an operator
//
// Validation is purely structural; it never evaluates the formula.
func Validate(tokens Tokens) Result {
	if len(tokens) == 0 {
		return invalid("formula is empty")
	}

	depth := 0
	for _, t := range tokens {
		p, ok := t.(Parenthesis)
		if !ok {
			continue
		}
		if p.Symbol == "(" {
			depth++
		} else {
			depth--
		}
		if depth < 0 {
			return invalid("closing parenthesis without a matching opening parenthesis")
		}
	}
	if depth != 0 {
		return invalid("unbalanced parentheses")
	}

	for i := 1; i < len(tokens); i++ {
		_, prevOp := tokens[i-1].(Operator)
		_, curOp := tokens[i].(Operator)
		if prevOp && curOp {
			return invalid("two operators in a row")
		}
	}

	if _, ok := tokens[0].(Operator); ok {
		return invalid("formula cannot start with an operator")
	}
	if _, ok := tokens[len(tokens)-1].(Operator); ok {
		return invalid("formula cannot end with an operator")
	}

	return Result{Valid: true}
}
