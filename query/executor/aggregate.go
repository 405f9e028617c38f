package executor

import (
	"context"

	"github.com/quarrydb/quarry/query/plan"
	"github.com/quarrydb/quarry/registry"
)

// CountBy runs a grouped COUNT plan and returns the count per group key.
// The plan must carry a COUNT aggregate and exactly one grouping column;
// the compiler emits the count first and the key second, which is the
// order scanned here.
func CountBy[K comparable](ctx context.Context, s *Session, t *registry.Table, p plan.Plan) (map[K]int64, error) {
	out := make(map[K]int64)
	if p.None {
		return out, nil
	}
	st, err := s.comp.Compile(t, p)
	if err != nil {
		return nil, err
	}
	rows, err := s.run(ctx, "aggregate", t.Name(), st)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var n int64
		var key K
		if err := rows.Scan(&n, &key); err != nil {
			return nil, s.wrapErr("aggregate", t.Name(), st.SQL, err)
		}
		out[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapErr("aggregate", t.Name(), st.SQL, err)
	}
	return out, nil
}
