package arena

import (
	"context"
	"sort"
	"time"
)

// DiscoveryOptions tunes ListRooms' collection window.
type DiscoveryOptions struct {
	// Limit caps the number of distinct rooms returned. Zero means
	// unbounded (collection still stops at Quiescence).
	Limit int
	// Quiescence is how long ListRooms waits for a gap in incoming events
	// before deciding the relay has no more to offer. Zero defaults to
	// one second.
	Quiescence time.Duration
}

// ListRooms is a one-shot, non-session-bound room browser: it opens its
// own subscription to kind-30078 room events tagged with game_id,
// collects distinct (host_pubkey, d-tag) addresses until either Limit is
// reached or Quiescence passes with nothing new arriving, decodes each,
// drops anything that fails to decode or is expired/deleted, and returns
// the rest sorted by most-recently-created first.
func ListRooms(ctx context.Context, gw Gateway, clock Clock, gameID string, opts DiscoveryOptions) ([]RoomRecord, error) {
	if clock == nil {
		clock = SystemClock()
	}
	quiescence := opts.Quiescence
	if quiescence <= 0 {
		quiescence = time.Second
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := gw.Subscribe(subCtx, []Filter{
		{Kinds: []int{KindRoom}, Tags: map[string][]string{"t": {gameID}}},
	})
	if err != nil {
		return nil, wrapErr(ErrKindSubscribe, "discovery subscribe failed", err)
	}

	type addrKey struct {
		host string
		dtag string
	}
	type seenEntry struct {
		record    RoomRecord
		createdAt int64
	}
	seen := make(map[addrKey]seenEntry)

	timer := time.NewTimer(quiescence)
	defer timer.Stop()

collect:
	for {
		select {
		case ev, ok := <-stream:
			if !ok {
				break collect
			}
			record, decErr := decodeRoomEvent(ev)
			if decErr != nil {
				continue
			}
			record.HostPubkey = ev.Pubkey
			key := addrKey{host: ev.Pubkey, dtag: record.DTag()}
			if existing, ok := seen[key]; ok && existing.createdAt > ev.CreatedAt {
				continue
			}
			seen[key] = seenEntry{record: record, createdAt: ev.CreatedAt}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(quiescence)
			if opts.Limit > 0 && len(seen) >= opts.Limit {
				break collect
			}
		case <-timer.C:
			break collect
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	now := clock.NowMS()
	type ranked struct {
		record    RoomRecord
		createdAt int64
	}
	rankedOut := make([]ranked, 0, len(seen))
	for _, e := range seen {
		if e.record.Status == RoomDeleted || e.record.Expired(now) {
			continue
		}
		rankedOut = append(rankedOut, ranked{record: e.record, createdAt: e.createdAt})
	}
	sort.Slice(rankedOut, func(i, j int) bool {
		return rankedOut[i].createdAt > rankedOut[j].createdAt
	})
	if opts.Limit > 0 && len(rankedOut) > opts.Limit {
		rankedOut = rankedOut[:opts.Limit]
	}
	out := make([]RoomRecord, len(rankedOut))
	for i, r := range rankedOut {
		out[i] = r.record
	}
	return out, nil
}
