package tableengine

// Metrics is the read-only counter snapshot the METRICS command surfaces
// (original_source's metrics.cpp): no state beyond what the engine and
// memtable already track.
type Metrics struct {
	RowCountEstimate uint64
	SSTableCount     int
	MemtableBytes    uint64
	WALDirtyBytes    uint64
}

// Metrics snapshots the table's current counters.
func (e *Engine) Metrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Metrics{
		RowCountEstimate: uint64(e.mem.Len()),
		SSTableCount:     len(e.sstables),
		MemtableBytes:    e.mem.Bytes(),
		WALDirtyBytes:    e.wal.BytesSinceFsync(),
	}
}
