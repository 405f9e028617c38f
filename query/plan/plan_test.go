package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicateValidate(t *testing.T) {
	tests := []struct {
		name string
		pred Predicate
		ok   bool
	}{
		{"eq with one operand", Pred("users", "id", OpEq, int64(1)), true},
		{"eq with no operand", Pred("users", "id", OpEq), false},
		{"eq with two operands", Pred("users", "id", OpEq, 1, 2), false},
		{"neq", Pred("users", "id", OpNeq, int64(1)), true},
		{"gt", Pred("users", "age", OpGt, int64(18)), true},
		{"like", Pred("users", "name", OpLike, "a%"), true},
		{"like with extra operand", Pred("users", "name", OpLike, "a%", "b%"), false},
		{"ilike", Pred("users", "name", OpILike, "a%"), true},
		{"in with several operands", Pred("users", "id", OpIn, 1, 2, 3), true},
		{"in with none", Pred("users", "id", OpIn), true},
		{"not in with none", Pred("users", "id", OpNotIn), true},
		{"is null without operand", Pred("users", "name", OpIsNull), true},
		{"is null with operand", Pred("users", "name", OpIsNull, 1), false},
		{"is not null", Pred("users", "name", OpIsNotNull), true},
		{"unknown operator", Pred("users", "id", Op("BETWEEN"), 1, 2), false},
		{"empty column", Pred("users", "", OpEq, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pred.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPredicate)
			}
		})
	}
}

func TestPredicateQualified(t *testing.T) {
	assert.Equal(t, "users.id", Pred("users", "id", OpEq, 1).Qualified())
	assert.Equal(t, "id", Pred("", "id", OpEq, 1).Qualified())
}

func TestPlanCloneIsDeep(t *testing.T) {
	limit, offset := 10, 5
	original := Plan{
		Table:      "users",
		Where:      []Predicate{Pred("users", "id", OpIn, 1, 2)},
		Order:      []Ordering{{Table: "users", Column: "id", Dir: Asc}},
		Limit:      &limit,
		Offset:     &offset,
		DistinctOn: []string{"email"},
		GroupBy:    []string{"name"},
		Having:     []Predicate{Pred("users", "id", OpGt, 1)},
		Joins:      []Join{{Kind: InnerJoin, Assoc: "posts", On: []Predicate{Pred("posts", "views", OpGt, 0)}}},
		Preloads: []Preload{{
			Assoc:    "posts",
			Where:    []Predicate{Pred("posts", "published", OpEq, true)},
			Children: []Preload{{Assoc: "comments"}},
		}},
		Aggregate: &Aggregate{Fn: AggCount},
	}

	clone := original.Clone()
	require.Equal(t, original.Table, clone.Table)

	clone.Where[0].Args[0] = 99
	clone.Where = append(clone.Where, Pred("users", "name", OpEq, "x"))
	clone.Order[0].Dir = Desc
	*clone.Limit = 1
	*clone.Offset = 0
	clone.DistinctOn[0] = "changed"
	clone.GroupBy[0] = "changed"
	clone.Having[0].Op = OpLt
	clone.Joins[0].On[0].Args[0] = 42
	clone.Preloads[0].Where[0].Args[0] = false
	clone.Preloads[0].Children[0].Assoc = "changed"
	clone.Aggregate.Fn = AggSum

	assert.Equal(t, 1, original.Where[0].Args[0])
	assert.Len(t, original.Where, 1)
	assert.Equal(t, Asc, original.Order[0].Dir)
	assert.Equal(t, 10, *original.Limit)
	assert.Equal(t, 5, *original.Offset)
	assert.Equal(t, "email", original.DistinctOn[0])
	assert.Equal(t, "name", original.GroupBy[0])
	assert.Equal(t, OpGt, original.Having[0].Op)
	assert.Equal(t, 0, original.Joins[0].On[0].Args[0])
	assert.Equal(t, true, original.Preloads[0].Where[0].Args[0])
	assert.Equal(t, "comments", original.Preloads[0].Children[0].Assoc)
	assert.Equal(t, AggCount, original.Aggregate.Fn)
}

func TestPlanCloneNilFields(t *testing.T) {
	clone := Plan{Table: "users"}.Clone()
	assert.Nil(t, clone.Limit)
	assert.Nil(t, clone.Offset)
	assert.Nil(t, clone.Aggregate)
	assert.Empty(t, clone.Where)
	assert.Empty(t, clone.Preloads)
}
