package arena

import "context"

// Join fetches the room's current RoomRecord, validates it is neither
// expired nor full, then subscribes and publishes a join ephemeral. The
// subscription task is started before the publish, but it registers with
// the gateway on its own goroutine, so this client's own echoed join
// (which the dispatcher uses to insert its own PlayerPresence and emit
// PlayerJoin) can still arrive before the subscription is in place; in
// that case this client's presence reaches its mirror through the
// host's republished RoomRecord instead.
func (a *Arena) Join(ctx context.Context, roomID string) (RoomRecord, error) {
	return a.joinOrReconnect(ctx, roomID)
}

// Reconnect is Join with the same wire behavior: fetch, validate,
// subscribe, publish a fresh join. Tolerance for "already a member" is
// shared by both: the capacity check skips a pubkey the fetched record
// already lists, and the dispatcher's join handler is idempotent against
// a pubkey already present in the room. The two differ only in the
// caller's intent, not in what goes over the wire; Reconnect restores no
// player_states.
func (a *Arena) Reconnect(ctx context.Context, roomID string) (RoomRecord, error) {
	return a.joinOrReconnect(ctx, roomID)
}

func (a *Arena) joinOrReconnect(ctx context.Context, roomID string) (RoomRecord, error) {
	v, err := a.call(ctx, func(a *Arena) (interface{}, error) {
		if a.sess.mode != ModeIdle {
			return RoomRecord{}, newErr(ErrKindInvalidState, "join requires Idle mode")
		}
		a.sess.mode = ModeJoining

		addr := Address{Kind: KindRoom, DTag: a.cfg.GameID + "-" + roomID}
		inbound, fetchErr := a.gw.FetchReplaceable(ctx, addr)
		if fetchErr != nil {
			a.sess.mode = ModeIdle
			return RoomRecord{}, wrapErr(ErrKindRoomNotFound, "fetch room record failed", fetchErr)
		}
		if inbound == nil {
			a.sess.mode = ModeIdle
			return RoomRecord{}, newErr(ErrKindRoomNotFound, "room not found")
		}
		record, decErr := decodeRoomEvent(*inbound)
		if decErr != nil {
			a.sess.mode = ModeIdle
			return RoomRecord{}, wrapErr(ErrKindRoomNotFound, "decode room record failed", decErr)
		}
		record.HostPubkey = inbound.Pubkey

		now := a.now()
		if record.Status == RoomDeleted || record.Expired(now) {
			a.sess.mode = ModeIdle
			return RoomRecord{}, newErr(ErrKindRoomExpired, "room expired or deleted")
		}
		if len(record.Players) >= record.MaxPlayers {
			if record.findPlayer(a.selfPubkey) == -1 {
				a.sess.mode = ModeIdle
				return RoomRecord{}, newErr(ErrKindRoomFull, "room is full")
			}
		}

		a.sess.isHost = false
		a.sess.currentRoom = &record
		a.sess.beginWaitingPhase()
		switch record.Status {
		case RoomPlaying:
			a.sess.mode = ModePlaying
			a.sess.gameStartFired = true
		case RoomFinished:
			a.sess.mode = ModeFinished
		default:
			a.sess.mode = ModeWaiting
		}

		a.startRoomSubscription(record.DTag())

		ev, encErr := encodeJoin(a.cfg.GameID, roomID, a.selfPubkey)
		if encErr != nil {
			a.emit(Event{Type: EventError, Err: encErr.(*Error)})
			return record.clone(), nil
		}
		if pubErr := a.publishRateLimited(ctx, ev); pubErr != nil {
			a.emit(Event{Type: EventError, Err: pubErr.(*Error)})
		}
		return record.clone(), nil
	})
	if err != nil {
		return RoomRecord{}, err
	}
	return v.(RoomRecord), nil
}
