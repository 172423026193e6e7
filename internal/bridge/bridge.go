package bridge

// Config fixes the bridge's per-direction capacity and which event kinds
// coalesce on overflow in each direction.
type Config struct {
	Capacity int

	// ToInteractiveIdempotentKinds lists kinds (e.g. "node_moved") that
	// collapse to their latest value when the interactive side falls
	// behind the async producer.
	ToInteractiveIdempotentKinds []string

	// ToAsyncIdempotentKinds lists kinds eligible for coalescing in the
	// reverse direction (e.g. a drag gesture emitting many intermediate
	// MoveNode intents before the async side can apply any of them).
	ToAsyncIdempotentKinds []string
}

// DefaultConfig matches spec §8's illustrative capacity (4096) with
// node_moved coalescible in both directions.
func DefaultConfig() Config {
	return Config{
		Capacity:                     4096,
		ToInteractiveIdempotentKinds: []string{"node_moved"},
		ToAsyncIdempotentKinds:       []string{"node_moved"},
	}
}

// Bridge pairs the two bounded SPSC queues spec §5 describes: one
// carrying projection updates out to the interactive thread, one carrying
// interactive-originated commands back to the async side. Each direction
// has its own monotone sequence counter and its own coalescing policy.
type Bridge struct {
	ToInteractive *Queue
	ToAsync       *Queue
}

// New builds a Bridge from cfg.
func New(cfg Config) *Bridge {
	return &Bridge{
		ToInteractive: NewQueue(cfg.Capacity, cfg.ToInteractiveIdempotentKinds...),
		ToAsync:       NewQueue(cfg.Capacity, cfg.ToAsyncIdempotentKinds...),
	}
}

// Close shuts down both directions.
func (b *Bridge) Close() {
	b.ToInteractive.Close()
	b.ToAsync.Close()
}
