package command

import (
	"github.com/leengari/ksdb/internal/storeerr"
)

// execMetrics handles "METRICS k.t", surfacing the per-table counters
// original_source's metrics.cpp exposes.
func (sess *Session) execMetrics(c *cursor) []byte {
	qualified, err := c.expectIdent()
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	keyspaceName, table := splitQualifiedName(qualified, sess.CurrentKeyspace)
	engine, err := sess.Store.OpenTable(keyspaceName, table)
	if err != nil {
		return replyFromError(err)
	}

	m := engine.Metrics()
	return replyOKFields(
		rawField("rowCountEstimate", m.RowCountEstimate),
		rawField("sstableCount", m.SSTableCount),
		rawField("memtableBytes", m.MemtableBytes),
		rawField("walDirtyBytes", m.WALDirtyBytes),
	)
}
