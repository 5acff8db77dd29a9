package arena_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	arena "nostrarena"
	"nostrarena/internal/localrelay"
)

func newTestArena(t *testing.T, hub *localrelay.Hub, pubkey string) *arena.Arena {
	t.Helper()
	cfg := arena.Config{GameID: "test-game", MaxPlayers: 2}
	a, err := arena.NewArena(cfg, hub.Gateway(pubkey), nil, pubkey)
	require.NoError(t, err)
	require.NoError(t, a.Connect(context.Background()))
	t.Cleanup(a.Disconnect)
	return a
}

func awaitEvent(t *testing.T, a *arena.Arena, want arena.EventType, timeout time.Duration) arena.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for {
		ev, err := a.Recv(ctx)
		require.NoErrorf(t, err, "timed out waiting for event %v", want)
		if ev.Type == want {
			return ev
		}
	}
}

func awaitMode(t *testing.T, a *arena.Arena, want arena.Mode, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		mode, err := a.CurrentMode(context.Background())
		require.NoError(t, err)
		if mode == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for mode %v", want)
}

func TestCreateJoinAutoStart(t *testing.T) {
	hub := localrelay.InProcess()
	host := newTestArena(t, hub, "host-pubkey")
	guest := newTestArena(t, hub, "guest-pubkey")

	room, err := host.Create(context.Background())
	require.NoError(t, err)
	require.Equal(t, "host-pubkey", room.HostPubkey)

	joined, err := guest.Join(context.Background(), room.RoomID)
	require.NoError(t, err)
	require.Equal(t, room.RoomID, joined.RoomID)

	awaitEvent(t, host, arena.EventPlayerJoin, 2*time.Second)
	awaitEvent(t, host, arena.EventGameStart, 2*time.Second)
	awaitEvent(t, guest, arena.EventGameStart, 2*time.Second)

	hostMode, err := host.CurrentMode(context.Background())
	require.NoError(t, err)
	require.Equal(t, arena.ModePlaying, hostMode)

	count, err := host.PlayerCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func newTestArenaMaxPlayers(t *testing.T, hub *localrelay.Hub, pubkey string, maxPlayers int) *arena.Arena {
	t.Helper()
	cfg := arena.Config{GameID: "test-game", MaxPlayers: maxPlayers}
	a, err := arena.NewArena(cfg, hub.Gateway(pubkey), nil, pubkey)
	require.NoError(t, err)
	require.NoError(t, a.Connect(context.Background()))
	t.Cleanup(a.Disconnect)
	return a
}

func awaitPlayerCount(t *testing.T, a *arena.Arena, want int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		count, err := a.PlayerCount(context.Background())
		require.NoError(t, err)
		if count == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for player count %d", want)
}

// TestJoinRepublishesRoomRecordWithoutCoordinatorFiring covers the gap
// where a join that doesn't trip the start-mode coordinator (MaxPlayers
// well above the current membership) still must republish the
// authoritative RoomRecord, not just emit locally on the host.
func TestJoinRepublishesRoomRecordWithoutCoordinatorFiring(t *testing.T) {
	hub := localrelay.InProcess()
	host := newTestArenaMaxPlayers(t, hub, "host-pubkey-4", 4)
	guestA := newTestArenaMaxPlayers(t, hub, "guest-pubkey-4a", 4)

	room, err := host.Create(context.Background())
	require.NoError(t, err)

	_, err = guestA.Join(context.Background(), room.RoomID)
	require.NoError(t, err)
	awaitEvent(t, host, arena.EventPlayerJoin, 2*time.Second)
	awaitPlayerCount(t, host, 2, 2*time.Second)

	hostMode, err := host.CurrentMode(context.Background())
	require.NoError(t, err)
	require.Equal(t, arena.ModeWaiting, hostMode, "two joins against MaxPlayers 4 must not trip Auto start")

	// A fresh peer fetching the room's authoritative RoomRecord directly
	// (rather than observing the host's local PlayerJoin emission) must
	// see guestA's membership already reflected.
	guestB := newTestArenaMaxPlayers(t, hub, "guest-pubkey-4b", 4)
	fetched, err := guestB.Join(context.Background(), room.RoomID)
	require.NoError(t, err)
	require.Len(t, fetched.Players, 2)
	var pubkeys []string
	for _, p := range fetched.Players {
		pubkeys = append(pubkeys, p.Pubkey)
	}
	require.Contains(t, pubkeys, "guest-pubkey-4a")
}

func TestGameOverAndRematch(t *testing.T) {
	hub := localrelay.InProcess()
	host := newTestArena(t, hub, "host-pubkey-2")
	guest := newTestArena(t, hub, "guest-pubkey-2")

	room, err := host.Create(context.Background())
	require.NoError(t, err)
	_, err = guest.Join(context.Background(), room.RoomID)
	require.NoError(t, err)
	awaitEvent(t, host, arena.EventGameStart, 2*time.Second)
	awaitEvent(t, guest, arena.EventGameStart, 2*time.Second)

	const reason = "completed"
	require.NoError(t, host.SendGameOver(context.Background(), reason, nil, nil))
	ev := awaitEvent(t, guest, arena.EventPlayerGameOver, 2*time.Second)
	require.Equal(t, reason, ev.Reason)
	awaitMode(t, guest, arena.ModeFinished, 2*time.Second)
	awaitMode(t, host, arena.ModeFinished, 2*time.Second)

	require.NoError(t, guest.RequestRematch(context.Background()))
	awaitEvent(t, host, arena.EventRematchRequested, 2*time.Second)

	newSeed, err := host.AcceptRematch(context.Background())
	require.NoError(t, err)
	require.NotZero(t, newSeed)

	ev = awaitEvent(t, guest, arena.EventRematchStart, 2*time.Second)
	require.Equal(t, newSeed, ev.NewSeed)
}

func TestLeaveTombstonesRoomForHost(t *testing.T) {
	hub := localrelay.InProcess()
	host := newTestArena(t, hub, "host-pubkey-3")

	room, err := host.Create(context.Background())
	require.NoError(t, err)
	require.NoError(t, host.Leave(context.Background()))

	mode, err := host.CurrentMode(context.Background())
	require.NoError(t, err)
	require.Equal(t, arena.ModeIdle, mode)

	other := newTestArena(t, hub, "other-pubkey-3")
	_, err = other.Join(context.Background(), room.RoomID)
	require.Error(t, err, "expected join against a tombstoned room to fail")
}
