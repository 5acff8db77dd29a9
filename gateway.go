package arena

import "context"

// Clock abstracts monotonic wall-clock time so presence/throttle logic is
// deterministic under test. NowMS must be non-decreasing within a single
// process run; it need not track real wall-clock time exactly.
type Clock interface {
	NowMS() int64
}

// systemClock is the default Clock, backed by time.Now.
type systemClock struct{}

// InboundEvent is the gateway's decoded-enough view of one event received
// over a subscription: just enough to let the wire codec take over. Tag
// lookups are by tag name -> first value, matching how callers usually
// consult a small, known tag set (`d`, `t`).
type InboundEvent struct {
	Pubkey    string
	Kind      int
	Tags      map[string][]string
	Content   string
	CreatedAt int64
}

// Tag returns the first value of tag name, or "" if absent.
func (e InboundEvent) Tag(name string) string {
	vs := e.Tags[name]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// OutboundEvent is what the core asks the gateway to publish.
type OutboundEvent struct {
	Kind    int
	Tags    map[string][]string
	Content string
	// Replaceable marks kind-30078 room events, which the gateway must
	// publish such that a later event at the same (kind, pubkey, d-tag)
	// supersedes this one.
	Replaceable bool
}

// Filter selects which events a subscription should deliver.
type Filter struct {
	Kinds []int
	Tags  map[string][]string
	// Since, in ms, bounds discovery-style one-shot subscriptions. Zero
	// means unbounded.
	Since int64
}

// Address identifies a specific replaceable event for fetch_replaceable.
type Address struct {
	Kind       int
	HostPubkey string
	DTag       string
}

// Gateway is the relay transport contract the core consumes. It is owned
// by the platform: reconnection with backoff, event signing, and actual
// network I/O all live on the other side of this interface. The core
// treats a transient disconnect as recoverable and keeps its subscription
// spec ready for resubscribe; it never assumes the gateway retries
// publishes on its behalf.
type Gateway interface {
	// Publish sends an event, blocking until accepted or failed. The core
	// calls Publish synchronously from within actor commands (create,
	// send_state, presence republish, ...): a slow Publish delays that one
	// command's turn on cmdCh, not any ticker, which fires on its own
	// goroutine regardless and only queues its resulting work behind it.
	// Implementations should bound Publish's own latency accordingly.
	Publish(ctx context.Context, event OutboundEvent) error

	// Subscribe opens a merged stream of inbound events matching filters.
	// The returned channel is closed when the subscription ends (context
	// cancellation, or the gateway giving up). Implementations should
	// keep delivering events across their own internal reconnects for the
	// lifetime of ctx.
	Subscribe(ctx context.Context, filters []Filter) (<-chan InboundEvent, error)

	// FetchReplaceable returns the latest event at addr, or (nil, nil) if
	// none exists.
	FetchReplaceable(ctx context.Context, addr Address) (*InboundEvent, error)

	// SetRelays reconfigures the relay URL set.
	SetRelays(relays []string)

	// Connected reports the gateway's last-observed connection status.
	Connected() bool
}
