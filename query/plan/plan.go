package plan

// Direction orders a column ascending or descending.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Ordering is one ORDER BY term.
type Ordering struct {
	Table  string
	Column string
	Dir    Direction
}

// JoinKind selects the join operator.
type JoinKind string

const (
	InnerJoin JoinKind = "INNER JOIN"
	LeftJoin  JoinKind = "LEFT JOIN"
)

// Join requests a join through a named association. On carries extra
// conditions rendered into the ON clause after the key equality.
type Join struct {
	Kind  JoinKind
	Assoc string
	On    []Predicate
}

// Preload requests eager loading of an association after the parent rows
// materialize. Where, Order and Limit scope the single batched child query;
// Children recurse one level deeper.
type Preload struct {
	Assoc    string
	Where    []Predicate
	Order    []Ordering
	Limit    *int
	Children []Preload
}

// AggregateFunc names a SQL aggregate.
type AggregateFunc string

const (
	AggCount AggregateFunc = "COUNT"
	AggSum   AggregateFunc = "SUM"
	AggAvg   AggregateFunc = "AVG"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

// Aggregate replaces the projection with a single aggregate expression.
// An empty Column means COUNT(*).
type Aggregate struct {
	Fn     AggregateFunc
	Table  string
	Column string
}

// Plan is the full description of one query. Plans are values; builders
// clone before mutating so shared prefixes stay independent.
type Plan struct {
	Table      string
	Where      []Predicate
	Order      []Ordering
	Limit      *int
	Offset     *int
	Distinct   bool
	DistinctOn []string
	GroupBy    []string
	Having     []Predicate
	Joins      []Join
	Preloads   []Preload
	Aggregate  *Aggregate

	// None marks the plan contradictory. Reads short-circuit to the empty
	// result shape and the compiler renders an always-false clause.
	None bool
}

// Clone returns a deep copy. Slice fields are reallocated so appending to
// the copy never writes through to the original.
func (p Plan) Clone() Plan {
	out := p
	out.Where = clonePredicates(p.Where)
	out.Order = append([]Ordering(nil), p.Order...)
	out.DistinctOn = append([]string(nil), p.DistinctOn...)
	out.GroupBy = append([]string(nil), p.GroupBy...)
	out.Having = clonePredicates(p.Having)
	if p.Joins != nil {
		out.Joins = make([]Join, len(p.Joins))
		for i, j := range p.Joins {
			j.On = clonePredicates(j.On)
			out.Joins[i] = j
		}
	}
	if p.Preloads != nil {
		out.Preloads = clonePreloads(p.Preloads)
	}
	if p.Limit != nil {
		v := *p.Limit
		out.Limit = &v
	}
	if p.Offset != nil {
		v := *p.Offset
		out.Offset = &v
	}
	if p.Aggregate != nil {
		a := *p.Aggregate
		out.Aggregate = &a
	}
	return out
}

func clonePredicates(in []Predicate) []Predicate {
	if in == nil {
		return nil
	}
	out := make([]Predicate, len(in))
	for i, pr := range in {
		pr.Args = append([]any(nil), pr.Args...)
		out[i] = pr
	}
	return out
}

func clonePreloads(in []Preload) []Preload {
	out := make([]Preload, len(in))
	for i, pl := range in {
		pl.Where = clonePredicates(pl.Where)
		pl.Order = append([]Ordering(nil), pl.Order...)
		if pl.Limit != nil {
			v := *pl.Limit
			pl.Limit = &v
		}
		if pl.Children != nil {
			pl.Children = clonePreloads(pl.Children)
		}
		out[i] = pl
	}
	return out
}
