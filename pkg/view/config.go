package view

// Config tunes the external merge-sorters every stage uses internally. It
// is modeled on the teacher's zap.Options struct-of-tunables-with-defaults
// (main.go): a plain struct, never a functional-options chain, since every
// field has one obvious default and no field depends on another.
type Config struct {
	// RowsPerGroup is the row-group size used by the serialization façade
	// and by the merge-sorter's spilled batches.
	RowsPerGroup int
	// GroupsPerBatch, multiplied by RowsPerGroup, is the in-memory sort
	// buffer capacity before a batch spills to a temporary stream.
	GroupsPerBatch int
}

// DefaultConfig returns the engine's defaults: 100,000 rows per group and
// 20 groups per batch, i.e. a 2,000,000-row sort buffer.
func DefaultConfig() Config {
	return Config{
		RowsPerGroup:   100_000,
		GroupsPerBatch: 20,
	}
}
