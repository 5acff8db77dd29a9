// Package localrelay is a minimal in-process and HTTP-backed relay,
// standing in for a real Nostr relay network during local development
// and tests. It generalizes treacherest's room-scoped EventBus (a
// mutex-guarded subscriber registry broadcasting to per-room channels)
// into a filter-matching broadcaster addressed the way arena.Gateway
// expects: by (kind, tags), not by a single room code string.
package localrelay

import (
	"sync"
	"sync/atomic"

	"nostrarena"
)

// Hub is the shared broadcast core: every publish is matched against
// every live subscription's filters, and every replaceable event
// (kind 30078 room records) is additionally retained for FetchReplaceable
// lookups and replayed to new subscriptions, mirroring a real relay's "latest wins" semantics for
// addressable events.
type Hub struct {
	mu          sync.RWMutex
	subscribers []*subscription
	replaceable map[addrKey]arena.InboundEvent
	seq         int64
}

type addrKey struct {
	kind   int
	pubkey string
	dtag   string
}

type subscription struct {
	filters []arena.Filter
	ch      chan arena.InboundEvent
}

// NewHub constructs an empty relay core.
func NewHub() *Hub {
	return &Hub{replaceable: make(map[addrKey]arena.InboundEvent)}
}

// Publish broadcasts ev (stamped with pubkey and a fresh sequence-based
// CreatedAt) to every subscription whose filters match, and — if
// ev.Replaceable — records it as the latest event at its (kind, pubkey,
// d-tag) address.
func (h *Hub) Publish(pubkey string, ev arena.OutboundEvent) arena.InboundEvent {
	createdAt := atomic.AddInt64(&h.seq, 1)
	inbound := arena.InboundEvent{
		Pubkey:    pubkey,
		Kind:      ev.Kind,
		Tags:      ev.Tags,
		Content:   ev.Content,
		CreatedAt: createdAt,
	}

	h.mu.Lock()
	if ev.Replaceable {
		if d := firstTag(ev.Tags, "d"); d != "" {
			h.replaceable[addrKey{kind: ev.Kind, pubkey: pubkey, dtag: d}] = inbound
		}
	}
	subs := append([]*subscription(nil), h.subscribers...)
	h.mu.Unlock()

	for _, sub := range subs {
		if matches(inbound, sub.filters) {
			select {
			case sub.ch <- inbound:
			default:
				// Slow subscriber: drop rather than block the publisher,
				// matching EventBus.Publish's "channel full, skip".
			}
		}
	}
	return inbound
}

// Subscribe registers filters and returns a channel that first receives
// every retained replaceable event matching them (as a real relay
// replays stored events) and then future publishes, until unsubscribe
// is called.
func (h *Hub) Subscribe(filters []arena.Filter) (<-chan arena.InboundEvent, func()) {
	sub := &subscription{filters: filters, ch: make(chan arena.InboundEvent, 64)}
	h.mu.Lock()
	h.subscribers = append(h.subscribers, sub)
	for _, ev := range h.replaceable {
		if matches(ev, filters) {
			select {
			case sub.ch <- ev:
			default:
			}
		}
	}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		for i, s := range h.subscribers {
			if s == sub {
				h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
				break
			}
		}
		h.mu.Unlock()
		close(sub.ch)
	}
	return sub.ch, unsubscribe
}

// FetchReplaceable returns the latest retained event at addr. An empty
// HostPubkey matches any author for the given (kind, d-tag) — needed for
// joining a room by room_id alone, before the host's pubkey is known.
func (h *Hub) FetchReplaceable(addr arena.Address) *arena.InboundEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if addr.HostPubkey != "" {
		if ev, ok := h.replaceable[addrKey{kind: addr.Kind, pubkey: addr.HostPubkey, dtag: addr.DTag}]; ok {
			return &ev
		}
		return nil
	}
	for key, ev := range h.replaceable {
		if key.kind == addr.Kind && key.dtag == addr.DTag {
			out := ev
			return &out
		}
	}
	return nil
}

func firstTag(tags map[string][]string, name string) string {
	vs := tags[name]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func matches(ev arena.InboundEvent, filters []arena.Filter) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if matchesOne(ev, f) {
			return true
		}
	}
	return false
}

func matchesOne(ev arena.InboundEvent, f arena.Filter) bool {
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, ev.Kind) {
		return false
	}
	if f.Since != 0 && ev.CreatedAt < f.Since {
		return false
	}
	for name, values := range f.Tags {
		if !anyMatch(ev.Tags[name], values) {
			return false
		}
	}
	return true
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func anyMatch(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
