package localrelay

import (
	"testing"
	"time"

	arena "nostrarena"
)

func TestHubPublishSubscribeMatchesFilter(t *testing.T) {
	h := NewHub()
	ch, unsubscribe := h.Subscribe([]arena.Filter{{Kinds: []int{arena.KindEphemeral}, Tags: map[string][]string{"d": {"chess-ABC"}}}})
	defer unsubscribe()

	h.Publish("peer-a", arena.OutboundEvent{Kind: arena.KindEphemeral, Tags: map[string][]string{"d": {"chess-ABC"}}, Content: "hello"})

	select {
	case ev := <-ch:
		if ev.Pubkey != "peer-a" || ev.Content != "hello" {
			t.Errorf("unexpected event: %+v", ev)
		}
		if ev.CreatedAt == 0 {
			t.Error("expected a non-zero CreatedAt stamp")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for matched publish")
	}
}

func TestHubPublishDoesNotDeliverToNonMatchingFilter(t *testing.T) {
	h := NewHub()
	ch, unsubscribe := h.Subscribe([]arena.Filter{{Kinds: []int{arena.KindEphemeral}, Tags: map[string][]string{"d": {"chess-OTHER"}}}})
	defer unsubscribe()

	h.Publish("peer-a", arena.OutboundEvent{Kind: arena.KindEphemeral, Tags: map[string][]string{"d": {"chess-ABC"}}, Content: "hello"})

	select {
	case ev := <-ch:
		t.Fatalf("expected no delivery, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubSubscribeEmptyFiltersMatchesEverything(t *testing.T) {
	h := NewHub()
	ch, unsubscribe := h.Subscribe(nil)
	defer unsubscribe()

	h.Publish("peer-a", arena.OutboundEvent{Kind: arena.KindRoom, Content: "x"})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for publish with empty filter set")
	}
}

func TestHubUnsubscribeStopsDeliveryAndClosesChannel(t *testing.T) {
	h := NewHub()
	ch, unsubscribe := h.Subscribe(nil)
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}

	h.Publish("peer-a", arena.OutboundEvent{Kind: arena.KindRoom, Content: "x"})
}

func TestHubFetchReplaceableLatestWins(t *testing.T) {
	h := NewHub()
	h.Publish("host-pub", arena.OutboundEvent{
		Kind:        arena.KindRoom,
		Tags:        map[string][]string{"d": {"chess-ABC"}},
		Content:     "v1",
		Replaceable: true,
	})
	h.Publish("host-pub", arena.OutboundEvent{
		Kind:        arena.KindRoom,
		Tags:        map[string][]string{"d": {"chess-ABC"}},
		Content:     "v2",
		Replaceable: true,
	})

	got := h.FetchReplaceable(arena.Address{Kind: arena.KindRoom, HostPubkey: "host-pub", DTag: "chess-ABC"})
	if got == nil {
		t.Fatal("expected a retained replaceable event")
	}
	if got.Content != "v2" {
		t.Errorf("expected latest content v2, got %q", got.Content)
	}
}

func TestHubFetchReplaceableWithoutHostPubkeyMatchesAnyAuthor(t *testing.T) {
	h := NewHub()
	h.Publish("some-host", arena.OutboundEvent{
		Kind:        arena.KindRoom,
		Tags:        map[string][]string{"d": {"chess-XYZ"}},
		Content:     "room-content",
		Replaceable: true,
	})

	got := h.FetchReplaceable(arena.Address{Kind: arena.KindRoom, DTag: "chess-XYZ"})
	if got == nil {
		t.Fatal("expected a match regardless of host pubkey")
	}
	if got.Pubkey != "some-host" {
		t.Errorf("expected pubkey some-host, got %q", got.Pubkey)
	}
}

func TestHubFetchReplaceableMissingReturnsNil(t *testing.T) {
	h := NewHub()
	if got := h.FetchReplaceable(arena.Address{Kind: arena.KindRoom, HostPubkey: "nobody", DTag: "nope"}); got != nil {
		t.Errorf("expected nil for unknown address, got %+v", got)
	}
}

func TestHubNonReplaceableEventNotRetained(t *testing.T) {
	h := NewHub()
	h.Publish("peer-a", arena.OutboundEvent{
		Kind:    arena.KindEphemeral,
		Tags:    map[string][]string{"d": {"chess-ABC"}},
		Content: "ephemeral",
	})

	if got := h.FetchReplaceable(arena.Address{Kind: arena.KindEphemeral, HostPubkey: "peer-a", DTag: "chess-ABC"}); got != nil {
		t.Errorf("expected ephemeral events to not be retained, got %+v", got)
	}
}

func TestHubSinceFilterExcludesOlderEvents(t *testing.T) {
	h := NewHub()
	h.Publish("peer-a", arena.OutboundEvent{Kind: arena.KindRoom, Content: "first"})

	ch, unsubscribe := h.Subscribe([]arena.Filter{{Since: 1 << 40}})
	defer unsubscribe()

	h.Publish("peer-a", arena.OutboundEvent{Kind: arena.KindRoom, Content: "second"})

	select {
	case ev := <-ch:
		t.Fatalf("expected no delivery for an event older than Since, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
