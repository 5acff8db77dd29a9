package localrelay

import (
	"context"

	"nostrarena"
)

// InProcess returns a fresh Hub for wiring multiple simulated peers
// together within a single test or demo process, with no network
// involved at all.
func InProcess() *Hub {
	return NewHub()
}

// Gateway returns an arena.Gateway bound to pubkey, backed by h. Every
// Gateway obtained from the same Hub shares one broadcast domain, so
// events published by one peer are observed by every other peer
// subscribed on this Hub — including, symmetrically, the publisher
// itself.
func (h *Hub) Gateway(pubkey string) arena.Gateway {
	return &inProcessGateway{hub: h, pubkey: pubkey}
}

type inProcessGateway struct {
	hub    *Hub
	pubkey string
}

func (g *inProcessGateway) Publish(ctx context.Context, event arena.OutboundEvent) error {
	g.hub.Publish(g.pubkey, event)
	return nil
}

func (g *inProcessGateway) Subscribe(ctx context.Context, filters []arena.Filter) (<-chan arena.InboundEvent, error) {
	ch, unsubscribe := g.hub.Subscribe(filters)
	out := make(chan arena.InboundEvent, cap(ch))
	go func() {
		defer close(out)
		defer unsubscribe()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (g *inProcessGateway) FetchReplaceable(ctx context.Context, addr arena.Address) (*arena.InboundEvent, error) {
	return g.hub.FetchReplaceable(addr), nil
}

func (g *inProcessGateway) SetRelays(relays []string) {}

func (g *inProcessGateway) Connected() bool { return true }
