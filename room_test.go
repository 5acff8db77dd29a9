package arena

import "testing"

func TestRoomRecordDTag(t *testing.T) {
	r := RoomRecord{GameID: "chess", RoomID: "XYZ"}
	if got := r.DTag(); got != "chess-XYZ" {
		t.Errorf("expected chess-XYZ, got %q", got)
	}
}

func TestRoomRecordExpired(t *testing.T) {
	r := RoomRecord{ExpiresAt: 1000}
	if r.Expired(999) {
		t.Error("should not be expired before expires_at")
	}
	if !r.Expired(1000) {
		t.Error("should be expired at expires_at")
	}
	if !r.Expired(1001) {
		t.Error("should be expired after expires_at")
	}

	never := RoomRecord{ExpiresAt: 0}
	if never.Expired(1 << 40) {
		t.Error("zero expires_at should never expire")
	}
}

func TestRoomRecordFindPlayer(t *testing.T) {
	r := RoomRecord{Players: []PlayerPresence{{Pubkey: "a"}, {Pubkey: "b"}}}
	if idx := r.findPlayer("b"); idx != 1 {
		t.Errorf("expected index 1, got %d", idx)
	}
	if idx := r.findPlayer("missing"); idx != -1 {
		t.Errorf("expected -1, got %d", idx)
	}
}

func TestRoomRecordClone(t *testing.T) {
	r := RoomRecord{Players: []PlayerPresence{{Pubkey: "a"}}}
	c := r.clone()
	c.Players[0].Pubkey = "mutated"
	if r.Players[0].Pubkey != "a" {
		t.Error("clone should not share backing array with original")
	}
}

func TestRegressesFrom(t *testing.T) {
	cases := []struct {
		from, to RoomStatus
		want     bool
	}{
		{RoomWaiting, RoomPlaying, false},
		{RoomPlaying, RoomFinished, false},
		{RoomFinished, RoomDeleted, false},
		{RoomPlaying, RoomWaiting, true},
		{RoomFinished, RoomWaiting, true},
		{RoomDeleted, RoomWaiting, true},
		{RoomWaiting, RoomWaiting, false},
	}
	for _, tc := range cases {
		if got := regressesFrom(tc.from, tc.to); got != tc.want {
			t.Errorf("regressesFrom(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
