package arena

import "context"

// Create generates a fresh room_id and seed, publishes the initial
// RoomRecord as host, subscribes to the room's events, and transitions
// Idle -> Waiting. Publish failures are surfaced as Error events rather
// than returned here, since local state has already committed.
func (a *Arena) Create(ctx context.Context) (RoomRecord, error) {
	v, err := a.call(ctx, func(a *Arena) (interface{}, error) {
		if a.sess.mode != ModeIdle {
			return RoomRecord{}, newErr(ErrKindInvalidState, "create requires Idle mode")
		}
		a.sess.mode = ModeCreating

		now := a.now()
		var expiresAt int64
		if a.cfg.RoomExpiry > 0 {
			expiresAt = now + a.cfg.RoomExpiry.Milliseconds()
		}
		record := RoomRecord{
			RoomID:     generateRoomID(),
			GameID:     a.cfg.GameID,
			Status:     RoomWaiting,
			Seed:       generateSeed(),
			HostPubkey: a.selfPubkey,
			MaxPlayers: a.cfg.MaxPlayers,
			ExpiresAt:  expiresAt,
			Players: []PlayerPresence{
				{Pubkey: a.selfPubkey, JoinedAt: now, LastSeen: now, Ready: false},
			},
		}

		a.sess.isHost = true
		a.sess.currentRoom = &record
		a.sess.beginWaitingPhase()
		a.sess.bumpEpoch(a.selfPubkey)
		a.sess.mode = ModeWaiting

		ev, encErr := encodeRoomEvent(record)
		if encErr != nil {
			a.emit(Event{Type: EventError, Err: encErr.(*Error)})
			return record.clone(), nil
		}
		if pubErr := a.publishRateLimited(ctx, ev); pubErr != nil {
			a.emit(Event{Type: EventError, Err: pubErr.(*Error)})
		}
		a.startRoomSubscription(record.DTag())

		return record.clone(), nil
	})
	if err != nil {
		return RoomRecord{}, err
	}
	return v.(RoomRecord), nil
}

// Leave departs the current room. Guests publish nothing; the host
// tombstones the room by publishing RoomRecord(status=deleted). Either
// way, local membership is cleared and mode returns to Idle.
func (a *Arena) Leave(ctx context.Context) error {
	_, err := a.call(ctx, func(a *Arena) (interface{}, error) {
		if a.sess.currentRoom == nil {
			a.resetToIdleLocked()
			return nil, nil
		}
		if a.sess.isHost {
			tombstone := a.sess.currentRoom.clone()
			tombstone.Status = RoomDeleted
			if ev, encErr := encodeRoomEvent(tombstone); encErr == nil {
				if pubErr := a.publishRateLimited(ctx, ev); pubErr != nil {
					a.emit(Event{Type: EventError, Err: pubErr.(*Error)})
				}
			} else {
				a.emit(Event{Type: EventError, Err: encErr.(*Error)})
			}
		}
		a.resetToIdleLocked()
		return nil, nil
	})
	return err
}

// DeleteRoom is the host-only explicit teardown: publish
// RoomRecord(status=deleted) and return to Idle. Invoked by a non-host it
// returns ErrKindNotHost and mutates nothing.
func (a *Arena) DeleteRoom(ctx context.Context) error {
	_, err := a.call(ctx, func(a *Arena) (interface{}, error) {
		if a.sess.currentRoom == nil {
			return nil, newErr(ErrKindInvalidState, "delete_room requires a current room")
		}
		if !a.sess.isHost {
			return nil, newErr(ErrKindNotHost, "delete_room is host-only")
		}
		tombstone := a.sess.currentRoom.clone()
		tombstone.Status = RoomDeleted
		ev, encErr := encodeRoomEvent(tombstone)
		if encErr != nil {
			return nil, encErr
		}
		if pubErr := a.publishRateLimited(ctx, ev); pubErr != nil {
			a.emit(Event{Type: EventError, Err: pubErr.(*Error)})
		}
		a.resetToIdleLocked()
		return nil, nil
	})
	return err
}
