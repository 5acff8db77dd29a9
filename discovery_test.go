package arena_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	arena "nostrarena"
	"nostrarena/internal/localrelay"
)

type fixedClock int64

func (c fixedClock) NowMS() int64 { return int64(c) }

func publishRoom(t *testing.T, hub *localrelay.Hub, host string, room arena.RoomRecord) {
	t.Helper()
	a, err := arena.NewArena(arena.Config{GameID: room.GameID, MaxPlayers: room.MaxPlayers}, hub.Gateway(host), nil, host)
	require.NoError(t, err)
	require.NoError(t, a.Connect(context.Background()))
	defer a.Disconnect()
	_, err = a.Create(context.Background())
	require.NoError(t, err)
}

func TestListRoomsReturnsDistinctRooms(t *testing.T) {
	hub := localrelay.InProcess()
	publishRoom(t, hub, "host-1", arena.RoomRecord{GameID: "chess", MaxPlayers: 2})
	publishRoom(t, hub, "host-2", arena.RoomRecord{GameID: "chess", MaxPlayers: 2})

	rooms, err := arena.ListRooms(context.Background(), hub.Gateway("browser"), nil, "chess", arena.DiscoveryOptions{
		Quiescence: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Len(t, rooms, 2)
}

func TestListRoomsRespectsLimit(t *testing.T) {
	hub := localrelay.InProcess()
	publishRoom(t, hub, "host-1", arena.RoomRecord{GameID: "chess", MaxPlayers: 2})
	publishRoom(t, hub, "host-2", arena.RoomRecord{GameID: "chess", MaxPlayers: 2})
	publishRoom(t, hub, "host-3", arena.RoomRecord{GameID: "chess", MaxPlayers: 2})

	rooms, err := arena.ListRooms(context.Background(), hub.Gateway("browser"), nil, "chess", arena.DiscoveryOptions{
		Limit:      1,
		Quiescence: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
}

func TestListRoomsFiltersExpired(t *testing.T) {
	hub := localrelay.InProcess()
	hub.Publish("host-1", arena.OutboundEvent{
		Kind:        arena.KindRoom,
		Tags:        map[string][]string{"d": {"chess-ROOM1"}, "t": {"chess"}},
		Content:     `{"room_id":"ROOM1","game_id":"chess","status":"waiting","max_players":2,"expires_at":1000}`,
		Replaceable: true,
	})

	rooms, err := arena.ListRooms(context.Background(), hub.Gateway("browser"), fixedClock(2000), "chess", arena.DiscoveryOptions{
		Quiescence: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Empty(t, rooms)
}

func TestListRoomsNoRoomsReturnsEmptyAfterQuiescence(t *testing.T) {
	hub := localrelay.InProcess()
	rooms, err := arena.ListRooms(context.Background(), hub.Gateway("browser"), nil, "chess", arena.DiscoveryOptions{
		Quiescence: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Empty(t, rooms)
}
