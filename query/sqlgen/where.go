package sqlgen

import (
	"fmt"
	"strings"

	"github.com/quarrydb/quarry/query/plan"
)

// conjunction renders predicates joined by AND, in insertion order.
func (b *build) conjunction(preds []plan.Predicate) (string, error) {
	rendered := make([]string, len(preds))
	for i, pr := range preds {
		s, err := b.predicate(pr)
		if err != nil {
			return "", err
		}
		rendered[i] = s
	}
	return strings.Join(rendered, " AND "), nil
}

// predicate renders one conjunct. One placeholder is emitted per operand,
// so placeholder count always tracks argument count.
func (b *build) predicate(pr plan.Predicate) (string, error) {
	if err := pr.Validate(); err != nil {
		return "", err
	}
	col := b.qualify(pr.Table, pr.Column)

	switch pr.Op {
	case plan.OpEq, plan.OpNeq, plan.OpGt, plan.OpGte, plan.OpLt, plan.OpLte, plan.OpLike:
		return fmt.Sprintf("%s %s %s", col, pr.Op, b.placeholder(pr.Args[0])), nil

	case plan.OpILike:
		if !b.dialect.SupportsILike() {
			return "", fmt.Errorf("%w: ILIKE on %s", ErrUnsupportedClause, b.dialect.Name())
		}
		return fmt.Sprintf("%s ILIKE %s", col, b.placeholder(pr.Args[0])), nil

	case plan.OpIn:
		// x IN () is vacuously false.
		if len(pr.Args) == 0 {
			return "1=0", nil
		}
		return fmt.Sprintf("%s IN (%s)", col, b.placeholderList(pr.Args)), nil

	case plan.OpNotIn:
		// x NOT IN () is vacuously true.
		if len(pr.Args) == 0 {
			return "1=1", nil
		}
		return fmt.Sprintf("%s NOT IN (%s)", col, b.placeholderList(pr.Args)), nil

	case plan.OpIsNull:
		return col + " IS NULL", nil

	case plan.OpIsNotNull:
		return col + " IS NOT NULL", nil
	}

	return "", fmt.Errorf("%w: operator %q", plan.ErrInvalidPredicate, string(pr.Op))
}

func (b *build) placeholderList(args []any) string {
	markers := make([]string, len(args))
	for i, a := range args {
		markers[i] = b.placeholder(a)
	}
	return strings.Join(markers, ", ")
}
