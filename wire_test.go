package arena

import (
	"encoding/json"
	"testing"
)

func TestEncodeDecodeRoomEvent(t *testing.T) {
	record := RoomRecord{
		RoomID:     "ABC123",
		GameID:     "chess",
		Status:     RoomWaiting,
		Seed:       42,
		HostPubkey: "host-pub",
		MaxPlayers: 4,
		ExpiresAt:  1000,
		Players: []PlayerPresence{
			{Pubkey: "host-pub", JoinedAt: 1, LastSeen: 1, Ready: false},
		},
	}

	out, err := encodeRoomEvent(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if out.Kind != KindRoom {
		t.Errorf("expected kind %d, got %d", KindRoom, out.Kind)
	}
	if !out.Replaceable {
		t.Error("expected room event to be replaceable")
	}
	if got := out.Tags["d"]; len(got) != 1 || got[0] != "chess-ABC123" {
		t.Errorf("expected d-tag chess-ABC123, got %v", got)
	}

	decoded, err := decodeRoomEvent(InboundEvent{
		Pubkey:  record.HostPubkey,
		Kind:    KindRoom,
		Tags:    out.Tags,
		Content: out.Content,
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.RoomID != record.RoomID || decoded.GameID != record.GameID {
		t.Errorf("round-trip mismatch: got %+v", decoded)
	}
	if decoded.Status != RoomWaiting || decoded.Seed != 42 {
		t.Errorf("round-trip mismatch: got %+v", decoded)
	}
	if len(decoded.Players) != 1 || decoded.Players[0].Pubkey != "host-pub" {
		t.Errorf("round-trip players mismatch: got %+v", decoded.Players)
	}
}

func TestDecodeRoomEventMalformedDTag(t *testing.T) {
	_, err := decodeRoomEvent(InboundEvent{
		Tags:    map[string][]string{"d": {"noseparator"}},
		Content: "{}",
	})
	if err == nil {
		t.Fatal("expected error for malformed d-tag")
	}
}

func TestDecodeRoomEventMalformedJSON(t *testing.T) {
	_, err := decodeRoomEvent(InboundEvent{
		Tags:    map[string][]string{"d": {"chess-ABC123"}},
		Content: "not json",
	})
	if err == nil {
		t.Fatal("expected error for malformed content")
	}
}

func TestEphemeralRoundTrip(t *testing.T) {
	score := int64(7)
	winner := "alice"
	seed := uint64(99)

	cases := []struct {
		name   string
		encode func() (OutboundEvent, error)
		check  func(t *testing.T, d decodedEphemeral)
	}{
		{
			name:   "join",
			encode: func() (OutboundEvent, error) { return encodeJoin("g", "r", "alice-pub") },
			check: func(t *testing.T, d decodedEphemeral) {
				if d.kind != EphemeralJoin || d.playerPubkey != "alice-pub" {
					t.Errorf("unexpected decode: %+v", d)
				}
			},
		},
		{
			name:   "state",
			encode: func() (OutboundEvent, error) { return encodeState("g", "r", json.RawMessage(`{"x":1}`)) },
			check: func(t *testing.T, d decodedEphemeral) {
				if d.kind != EphemeralState || string(d.gameState) != `{"x":1}` {
					t.Errorf("unexpected decode: %+v", d)
				}
			},
		},
		{
			name:   "heartbeat",
			encode: func() (OutboundEvent, error) { return encodeHeartbeat("g", "r", 12345) },
			check: func(t *testing.T, d decodedEphemeral) {
				if d.kind != EphemeralHeartbeat || d.timestamp != 12345 {
					t.Errorf("unexpected decode: %+v", d)
				}
			},
		},
		{
			name:   "ready",
			encode: func() (OutboundEvent, error) { return encodeReady("g", "r", true) },
			check: func(t *testing.T, d decodedEphemeral) {
				if d.kind != EphemeralReady || !d.ready {
					t.Errorf("unexpected decode: %+v", d)
				}
			},
		},
		{
			name:   "gamestart",
			encode: func() (OutboundEvent, error) { return encodeGameStart("g", "r") },
			check: func(t *testing.T, d decodedEphemeral) {
				if d.kind != EphemeralGameStart {
					t.Errorf("unexpected decode: %+v", d)
				}
			},
		},
		{
			name:   "gameover",
			encode: func() (OutboundEvent, error) { return encodeGameOver("g", "r", "completed", &score, &winner) },
			check: func(t *testing.T, d decodedEphemeral) {
				if d.kind != EphemeralGameOver || d.reason != "completed" || *d.finalScore != score || *d.winner != winner {
					t.Errorf("unexpected decode: %+v", d)
				}
			},
		},
		{
			name:   "rematch request",
			encode: func() (OutboundEvent, error) { return encodeRematchRequest("g", "r") },
			check: func(t *testing.T, d decodedEphemeral) {
				if d.kind != EphemeralRematch || d.action != rematchRequest {
					t.Errorf("unexpected decode: %+v", d)
				}
			},
		},
		{
			name:   "rematch accept",
			encode: func() (OutboundEvent, error) { return encodeRematchAccept("g", "r", seed) },
			check: func(t *testing.T, d decodedEphemeral) {
				if d.kind != EphemeralRematch || d.action != rematchAccept || d.newSeed == nil || *d.newSeed != seed {
					t.Errorf("unexpected decode: %+v", d)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.encode()
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if out.Kind != KindEphemeral {
				t.Errorf("expected kind %d, got %d", KindEphemeral, out.Kind)
			}
			decoded, err := decodeEphemeral(InboundEvent{Pubkey: "sender-pub", Content: out.Content})
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if decoded.sender != "sender-pub" {
				t.Errorf("expected sender preserved, got %q", decoded.sender)
			}
			tc.check(t, decoded)
		})
	}
}

func TestDecodeEphemeralUnknownType(t *testing.T) {
	_, err := decodeEphemeral(InboundEvent{Content: `{"type":"bogus"}`})
	if err == nil {
		t.Fatal("expected error for unknown ephemeral type")
	}
	if ae, ok := err.(*Error); !ok || ae.Kind != ErrKindMalformed {
		t.Errorf("expected ErrKindMalformed, got %v", err)
	}
}

func TestDecodeEphemeralMissingRequiredField(t *testing.T) {
	_, err := decodeEphemeral(InboundEvent{Content: `{"type":"join"}`})
	if err == nil {
		t.Fatal("expected error for join missing player_pubkey")
	}
}
