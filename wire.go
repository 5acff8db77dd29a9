package arena

import (
	"encoding/json"
	"fmt"
)

// Wire event kinds. KindRoom is a Nostr replaceable event (NIP-78-style
// application data); KindEphemeral is never stored by a relay.
const (
	KindRoom      = 30078
	KindEphemeral = 25000
)

// EphemeralType discriminates the `type` field of an ephemeral event's
// JSON content.
type EphemeralType string

const (
	EphemeralJoin      EphemeralType = "join"
	EphemeralState     EphemeralType = "state"
	EphemeralHeartbeat EphemeralType = "heartbeat"
	EphemeralReady     EphemeralType = "ready"
	EphemeralGameStart EphemeralType = "gamestart"
	EphemeralGameOver  EphemeralType = "gameover"
	EphemeralRematch   EphemeralType = "rematch"
)

// roomContent is the JSON shape of a kind-30078 room event's content.
type roomContent struct {
	Status     RoomStatus       `json:"status"`
	Seed       uint64           `json:"seed"`
	HostPubkey string           `json:"host_pubkey"`
	MaxPlayers int              `json:"max_players"`
	ExpiresAt  int64            `json:"expires_at"`
	Players    []PlayerPresence `json:"players"`
}

// encodeRoomEvent renders record as an OutboundEvent ready for
// Gateway.Publish.
func encodeRoomEvent(record RoomRecord) (OutboundEvent, error) {
	body, err := json.Marshal(roomContent{
		Status:     record.Status,
		Seed:       record.Seed,
		HostPubkey: record.HostPubkey,
		MaxPlayers: record.MaxPlayers,
		ExpiresAt:  record.ExpiresAt,
		Players:    record.Players,
	})
	if err != nil {
		return OutboundEvent{}, wrapErr(ErrKindMalformed, "encode room event", err)
	}
	return OutboundEvent{
		Kind: KindRoom,
		Tags: map[string][]string{
			"d": {record.DTag()},
			"t": {record.GameID},
		},
		Content:     string(body),
		Replaceable: true,
	}, nil
}

// decodeRoomEvent parses an inbound kind-30078 event into a RoomRecord.
// gameID/roomID come from the d-tag, which the caller is expected to have
// already matched against the subscription filter.
func decodeRoomEvent(ev InboundEvent) (RoomRecord, error) {
	d := ev.Tag("d")
	gameID, roomID, err := splitDTag(d)
	if err != nil {
		return RoomRecord{}, err
	}
	var body roomContent
	if err := json.Unmarshal([]byte(ev.Content), &body); err != nil {
		return RoomRecord{}, wrapErr(ErrKindMalformed, "decode room event", err)
	}
	return RoomRecord{
		RoomID:     roomID,
		GameID:     gameID,
		Status:     body.Status,
		Seed:       body.Seed,
		HostPubkey: body.HostPubkey,
		MaxPlayers: body.MaxPlayers,
		ExpiresAt:  body.ExpiresAt,
		Players:    body.Players,
	}, nil
}

// splitDTag splits at the last '-': generated room ids never contain one,
// while game ids may ("test-game").
func splitDTag(d string) (gameID, roomID string, err error) {
	for i := len(d) - 1; i >= 0; i-- {
		if d[i] == '-' {
			return d[:i], d[i+1:], nil
		}
	}
	return "", "", newErr(ErrKindMalformed, fmt.Sprintf("malformed d-tag %q", d))
}

// ephemeralEnvelope is the common decode target for every ephemeral
// content payload: enough to read `type` and re-parse the rest precisely.
type ephemeralEnvelope struct {
	Type EphemeralType `json:"type"`
}

type joinPayload struct {
	Type         EphemeralType `json:"type"`
	PlayerPubkey string        `json:"player_pubkey"`
}

type statePayload struct {
	Type      EphemeralType   `json:"type"`
	GameState json.RawMessage `json:"game_state"`
}

type heartbeatPayload struct {
	Type      EphemeralType `json:"type"`
	Timestamp int64         `json:"timestamp"`
}

type readyPayload struct {
	Type  EphemeralType `json:"type"`
	Ready bool          `json:"ready"`
}

type gameStartPayload struct {
	Type EphemeralType `json:"type"`
}

type gameOverPayload struct {
	Type       EphemeralType `json:"type"`
	Reason     string        `json:"reason"`
	FinalScore *int64        `json:"final_score,omitempty"`
	Winner     *string       `json:"winner,omitempty"`
}

type rematchAction string

const (
	rematchRequest rematchAction = "request"
	rematchAccept  rematchAction = "accept"
)

type rematchPayload struct {
	Type    EphemeralType `json:"type"`
	Action  rematchAction `json:"action"`
	NewSeed *uint64       `json:"new_seed,omitempty"`
}

// decodedEphemeral is the codec's transport-agnostic, already-validated
// representation of one ephemeral event, handed to the dispatcher.
type decodedEphemeral struct {
	sender string
	kind   EphemeralType

	playerPubkey string          // join
	gameState    json.RawMessage // state
	timestamp    int64           // heartbeat
	ready        bool            // ready
	reason       string          // gameover
	finalScore   *int64          // gameover
	winner       *string         // gameover
	action       rematchAction   // rematch
	newSeed      *uint64         // rematch
}

// decodeEphemeral validates and parses an inbound kind-25000 event.
// Unknown types, missing required fields, and parse failures all return
// ErrKindMalformed; callers must drop the event silently, per spec.
func decodeEphemeral(ev InboundEvent) (decodedEphemeral, error) {
	var env ephemeralEnvelope
	if err := json.Unmarshal([]byte(ev.Content), &env); err != nil {
		return decodedEphemeral{}, wrapErr(ErrKindMalformed, "decode ephemeral envelope", err)
	}

	out := decodedEphemeral{sender: ev.Pubkey, kind: env.Type}

	switch env.Type {
	case EphemeralJoin:
		var p joinPayload
		if err := json.Unmarshal([]byte(ev.Content), &p); err != nil {
			return decodedEphemeral{}, wrapErr(ErrKindMalformed, "decode join", err)
		}
		if p.PlayerPubkey == "" {
			return decodedEphemeral{}, newErr(ErrKindMalformed, "join missing player_pubkey")
		}
		out.playerPubkey = p.PlayerPubkey

	case EphemeralState:
		var p statePayload
		if err := json.Unmarshal([]byte(ev.Content), &p); err != nil {
			return decodedEphemeral{}, wrapErr(ErrKindMalformed, "decode state", err)
		}
		if len(p.GameState) == 0 {
			return decodedEphemeral{}, newErr(ErrKindMalformed, "state missing game_state")
		}
		out.gameState = p.GameState

	case EphemeralHeartbeat:
		var p heartbeatPayload
		if err := json.Unmarshal([]byte(ev.Content), &p); err != nil {
			return decodedEphemeral{}, wrapErr(ErrKindMalformed, "decode heartbeat", err)
		}
		out.timestamp = p.Timestamp

	case EphemeralReady:
		var p readyPayload
		if err := json.Unmarshal([]byte(ev.Content), &p); err != nil {
			return decodedEphemeral{}, wrapErr(ErrKindMalformed, "decode ready", err)
		}
		out.ready = p.Ready

	case EphemeralGameStart:
		var p gameStartPayload
		if err := json.Unmarshal([]byte(ev.Content), &p); err != nil {
			return decodedEphemeral{}, wrapErr(ErrKindMalformed, "decode gamestart", err)
		}

	case EphemeralGameOver:
		var p gameOverPayload
		if err := json.Unmarshal([]byte(ev.Content), &p); err != nil {
			return decodedEphemeral{}, wrapErr(ErrKindMalformed, "decode gameover", err)
		}
		if p.Reason == "" {
			return decodedEphemeral{}, newErr(ErrKindMalformed, "gameover missing reason")
		}
		out.reason = p.Reason
		out.finalScore = p.FinalScore
		out.winner = p.Winner

	case EphemeralRematch:
		var p rematchPayload
		if err := json.Unmarshal([]byte(ev.Content), &p); err != nil {
			return decodedEphemeral{}, wrapErr(ErrKindMalformed, "decode rematch", err)
		}
		if p.Action != rematchRequest && p.Action != rematchAccept {
			return decodedEphemeral{}, newErr(ErrKindMalformed, fmt.Sprintf("rematch unknown action %q", p.Action))
		}
		out.action = p.Action
		out.newSeed = p.NewSeed

	default:
		return decodedEphemeral{}, newErr(ErrKindMalformed, fmt.Sprintf("unknown ephemeral type %q", env.Type))
	}

	return out, nil
}

func ephemeralFilterTags(gameID, roomID string) map[string][]string {
	return map[string][]string{"d": {gameID + "-" + roomID}}
}

// encodeJoin builds the OutboundEvent for a `join` ephemeral.
func encodeJoin(gameID, roomID, playerPubkey string) (OutboundEvent, error) {
	return encodeEphemeral(gameID, roomID, joinPayload{Type: EphemeralJoin, PlayerPubkey: playerPubkey})
}

// encodeState builds the OutboundEvent for a `state` ephemeral.
func encodeState(gameID, roomID string, gameState json.RawMessage) (OutboundEvent, error) {
	return encodeEphemeral(gameID, roomID, statePayload{Type: EphemeralState, GameState: gameState})
}

// encodeHeartbeat builds the OutboundEvent for a `heartbeat` ephemeral.
func encodeHeartbeat(gameID, roomID string, timestamp int64) (OutboundEvent, error) {
	return encodeEphemeral(gameID, roomID, heartbeatPayload{Type: EphemeralHeartbeat, Timestamp: timestamp})
}

// encodeReady builds the OutboundEvent for a `ready` ephemeral.
func encodeReady(gameID, roomID string, ready bool) (OutboundEvent, error) {
	return encodeEphemeral(gameID, roomID, readyPayload{Type: EphemeralReady, Ready: ready})
}

// encodeGameStart builds the OutboundEvent for a `gamestart` ephemeral.
func encodeGameStart(gameID, roomID string) (OutboundEvent, error) {
	return encodeEphemeral(gameID, roomID, gameStartPayload{Type: EphemeralGameStart})
}

// encodeGameOver builds the OutboundEvent for a `gameover` ephemeral.
func encodeGameOver(gameID, roomID, reason string, finalScore *int64, winner *string) (OutboundEvent, error) {
	return encodeEphemeral(gameID, roomID, gameOverPayload{
		Type: EphemeralGameOver, Reason: reason, FinalScore: finalScore, Winner: winner,
	})
}

// encodeRematchRequest builds the OutboundEvent for a `rematch` request.
func encodeRematchRequest(gameID, roomID string) (OutboundEvent, error) {
	return encodeEphemeral(gameID, roomID, rematchPayload{Type: EphemeralRematch, Action: rematchRequest})
}

// encodeRematchAccept builds the OutboundEvent for a `rematch` accept.
func encodeRematchAccept(gameID, roomID string, newSeed uint64) (OutboundEvent, error) {
	return encodeEphemeral(gameID, roomID, rematchPayload{Type: EphemeralRematch, Action: rematchAccept, NewSeed: &newSeed})
}

func encodeEphemeral(gameID, roomID string, payload interface{}) (OutboundEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return OutboundEvent{}, wrapErr(ErrKindMalformed, "encode ephemeral", err)
	}
	return OutboundEvent{
		Kind:    KindEphemeral,
		Tags:    ephemeralFilterTags(gameID, roomID),
		Content: string(body),
	}, nil
}
