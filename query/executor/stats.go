package executor

import (
	"sync/atomic"
	"time"
)

// Stats is a snapshot of a session's counters. The query count is the
// number of statements actually sent to the backend, which is what the
// batching guarantees are stated in terms of.
type Stats struct {
	Queries    int64
	Rows       int64
	StmtHits   int64
	StmtMisses int64
	Duration   time.Duration
}

type counters struct {
	queries    atomic.Int64
	rows       atomic.Int64
	stmtHits   atomic.Int64
	stmtMisses atomic.Int64
	nanos      atomic.Int64
}

func (c *counters) record(d time.Duration) {
	c.queries.Add(1)
	c.nanos.Add(int64(d))
}

func (c *counters) snapshot() Stats {
	return Stats{
		Queries:    c.queries.Load(),
		Rows:       c.rows.Load(),
		StmtHits:   c.stmtHits.Load(),
		StmtMisses: c.stmtMisses.Load(),
		Duration:   time.Duration(c.nanos.Load()),
	}
}
