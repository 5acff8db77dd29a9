package arena

import "context"

// RequestRematch publishes this player's wish for a rematch once the
// current game is Finished. The local rematch_requests set is updated
// here immediately (not deferred to the self-echo) and its own
// RematchRequested event is emitted right away; the ephemeral dispatcher guards against the later echo double-firing
// RematchRequested by checking set membership first.
func (a *Arena) RequestRematch(ctx context.Context) error {
	_, err := a.call(ctx, func(a *Arena) (interface{}, error) {
		if a.sess.currentRoom == nil || a.sess.mode != ModeFinished {
			return nil, newErr(ErrKindInvalidState, "request_rematch requires Finished mode")
		}
		if _, already := a.sess.rematchRequests[a.selfPubkey]; !already {
			a.sess.rematchRequests[a.selfPubkey] = struct{}{}
			a.emit(Event{Type: EventRematchRequested, Pubkey: a.selfPubkey})
		}
		ev, err := encodeRematchRequest(a.cfg.GameID, a.sess.currentRoom.RoomID)
		if err != nil {
			return nil, err
		}
		if pubErr := a.publishRateLimited(ctx, ev); pubErr != nil {
			a.emit(Event{Type: EventError, Err: pubErr.(*Error)})
		}
		return nil, nil
	})
	return err
}

// AcceptRematch is the host-only action that seals a rematch: mint a
// fresh seed, reset every player's ready flag, flip the room back to
// Waiting, and publish both the rematch-accept ephemeral and the updated
// RoomRecord. The returned seed is the one the new game should use.
func (a *Arena) AcceptRematch(ctx context.Context) (uint64, error) {
	v, err := a.call(ctx, func(a *Arena) (interface{}, error) {
		if a.sess.currentRoom == nil || a.sess.mode != ModeFinished {
			return uint64(0), newErr(ErrKindInvalidState, "accept_rematch requires Finished mode")
		}
		if !a.sess.isHost {
			return uint64(0), newErr(ErrKindNotHost, "accept_rematch is host-only")
		}

		newSeed := generateSeed()
		now := a.now()
		updated := a.sess.currentRoom.clone()
		updated.Status = RoomWaiting
		updated.Seed = newSeed
		for i := range updated.Players {
			updated.Players[i].Ready = false
			updated.Players[i].LastSeen = now
		}
		a.sess.currentRoom = &updated
		a.sess.playerStates = make(map[string][]byte)
		a.sess.rematchRequests = make(map[string]struct{})
		a.sess.gameOverReported = make(map[string]struct{})
		a.sess.mode = ModeWaiting
		a.sess.beginWaitingPhase()
		a.emit(Event{Type: EventRematchStart, NewSeed: newSeed})

		if ev, encErr := encodeRematchAccept(a.cfg.GameID, updated.RoomID, newSeed); encErr == nil {
			if pubErr := a.publishRateLimited(ctx, ev); pubErr != nil {
				a.emit(Event{Type: EventError, Err: pubErr.(*Error)})
			}
		} else {
			a.emit(Event{Type: EventError, Err: encErr.(*Error)})
		}
		if ev, encErr := encodeRoomEvent(updated); encErr == nil {
			if pubErr := a.publishRateLimited(ctx, ev); pubErr != nil {
				a.emit(Event{Type: EventError, Err: pubErr.(*Error)})
			}
		} else {
			a.emit(Event{Type: EventError, Err: encErr.(*Error)})
		}
		return newSeed, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}
