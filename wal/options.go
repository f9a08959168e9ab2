package wal

// DurabilityMode controls the fsync policy applied after each appended
// frame. Unlike the snapshot/export path, the WAL itself is never
// compressed: its entries are raw, byte-identical copies of the request
// frames that were applied, so replay can hand them straight back to the
// same opcode handlers that served the live connection.
type DurabilityMode int

const (
	// DurabilityAsync relies on the OS page cache flush schedule. Fastest,
	// and the default: a crash can lose the last few appended frames, but
	// the storage layer never promises more than "survives a clean
	// restart" unless DurabilitySync is requested.
	DurabilityAsync DurabilityMode = iota

	// DurabilitySync calls fsync after every append. Strongest guarantee,
	// at the cost of one fsync per mutating request.
	DurabilitySync
)

// Options configures a WAL.
type Options struct {
	// Durability selects the fsync policy. Defaults to DurabilityAsync.
	Durability DurabilityMode
}

// DefaultOptions is the baseline configuration: async durability.
var DefaultOptions = Options{
	Durability: DurabilityAsync,
}

// Option mutates Options; passed variadically to Open.
type Option func(*Options)

// WithDurability sets the fsync policy.
func WithDurability(m DurabilityMode) Option {
	return func(o *Options) { o.Durability = m }
}
