package arena

import "log"

// handleInbound routes one decoded-enough wire event to the room-record
// or ephemeral handler. It always runs on the actor goroutine.
func (a *Arena) handleInbound(ev InboundEvent) {
	switch ev.Kind {
	case KindRoom:
		a.handleRoomEvent(ev)
	case KindEphemeral:
		a.handleEphemeralEvent(ev)
	default:
		// Unknown kind on our subscription: nothing to do, drop silently.
	}
}

// handleRoomEvent applies an inbound room-metadata event against the
// host-authority and monotone-status invariants before merging its
// membership list into the local mirror.
func (a *Arena) handleRoomEvent(ev InboundEvent) {
	decoded, err := decodeRoomEvent(ev)
	if err != nil {
		logMalformed("room event", err)
		return
	}
	if a.sess.currentRoom == nil {
		return
	}
	if ev.Pubkey != a.sess.currentRoom.HostPubkey {
		// Host-authority invariant: a RoomRecord signed by anyone other
		// than the current host never mutates local state.
		return
	}
	if regressesFrom(a.sess.currentRoom.Status, decoded.Status) {
		return
	}

	old := a.sess.currentRoom

	// Membership diff against the authoritative list.
	for _, op := range old.Players {
		if decoded.findPlayer(op.Pubkey) == -1 {
			a.applyPlayerRemoved(op.Pubkey)
		}
	}
	for _, np := range decoded.Players {
		if old.findPlayer(np.Pubkey) == -1 {
			a.applyPlayerJoined(np.Pubkey, np.JoinedAt, np.LastSeen)
		}
	}

	statusChanged := old.Status != decoded.Status
	a.sess.currentRoom = &decoded

	if statusChanged {
		switch decoded.Status {
		case RoomPlaying:
			if a.sess.mode == ModeWaiting {
				a.sess.mode = ModePlaying
			}
			if !a.sess.gameStartFired {
				a.sess.gameStartFired = true
				a.emit(Event{Type: EventGameStart})
			}
		case RoomFinished:
			a.sess.mode = ModeFinished
		case RoomDeleted:
			a.emit(Event{Type: EventError, Err: newErr(ErrKindRoomNotFound, "room deleted by host")})
			a.resetToIdleLocked()
		}
	}
}

// applyPlayerJoined inserts pubkey into the local room mirror and emits
// PlayerJoin, unless pubkey is already present — which makes the handler
// idempotent against both reconnects and the self-echo of our own `join`
// ephemeral racing an authoritative RoomRecord update.
func (a *Arena) applyPlayerJoined(pubkey string, joinedAt, lastSeen int64) {
	room := a.sess.currentRoom
	if room == nil {
		return
	}
	if room.findPlayer(pubkey) != -1 {
		return
	}
	a.sess.bumpEpoch(pubkey)
	presence := PlayerPresence{Pubkey: pubkey, JoinedAt: joinedAt, LastSeen: lastSeen, Ready: false}
	room.Players = append(room.Players, presence)
	a.emit(Event{Type: EventPlayerJoin, Pubkey: pubkey, Presence: presence})

	if a.sess.isHost {
		if ev, err := encodeRoomEvent(*room); err == nil {
			if pubErr := a.publishRateLimited(a.ctx, ev); pubErr != nil {
				a.emit(Event{Type: EventError, Err: pubErr.(*Error)})
			}
		} else {
			a.emit(Event{Type: EventError, Err: err.(*Error)})
		}
	}

	a.evaluateAllReady()
	if a.sess.isHost {
		a.evaluateCoordinator()
	}
}

// applyPlayerRemoved drops pubkey from the local mirror and emits either
// PlayerDisconnect, or — when the removed pubkey is ourselves — a
// PlayerLeave plus the RoomFull error the join-race tie-break promises
// dropped peers, before falling back to Idle.
func (a *Arena) applyPlayerRemoved(pubkey string) {
	room := a.sess.currentRoom
	if room == nil {
		return
	}
	idx := room.findPlayer(pubkey)
	if idx != -1 {
		room.Players = append(room.Players[:idx], room.Players[idx+1:]...)
	}
	delete(a.sess.playerStates, pubkey)

	if pubkey == a.selfPubkey {
		if a.sess.markTerminal(pubkey) {
			a.emit(Event{Type: EventPlayerLeave, Pubkey: pubkey})
			a.emit(Event{Type: EventError, Err: newErr(ErrKindRoomFull, "room full, dropped by host")})
		}
		a.resetToIdleLocked()
		return
	}
	if a.sess.markTerminal(pubkey) {
		a.emit(Event{Type: EventPlayerDisconnect, Pubkey: pubkey})
	}
}

// handleEphemeralEvent decodes and applies one kind-25000 event. Malformed
// events (unknown type, missing fields, parse failure) are dropped with
// a log.Printf line (always written, not gated on a debug setting) and
// never reach the consumer.
func (a *Arena) handleEphemeralEvent(ev InboundEvent) {
	decoded, err := decodeEphemeral(ev)
	if err != nil {
		logMalformed("ephemeral event", err)
		return
	}
	if a.sess.currentRoom == nil {
		return
	}
	now := a.now()

	switch decoded.kind {
	case EphemeralJoin:
		a.applyPlayerJoined(decoded.playerPubkey, now, now)

	case EphemeralState:
		a.sess.playerStates[decoded.sender] = append([]byte(nil), decoded.gameState...)
		a.emit(Event{Type: EventPlayerState, Pubkey: decoded.sender, GameState: decoded.gameState})

	case EphemeralHeartbeat:
		a.touchLastSeen(decoded.sender, now)

	case EphemeralReady:
		a.touchLastSeen(decoded.sender, now)
		room := a.sess.currentRoom
		if idx := room.findPlayer(decoded.sender); idx != -1 {
			room.Players[idx].Ready = decoded.ready
		}
		a.evaluateAllReady()
		if a.sess.isHost {
			a.evaluateCoordinator()
		}

	case EphemeralGameStart:
		if decoded.sender != a.sess.currentRoom.HostPubkey {
			return
		}
		if a.sess.mode == ModeWaiting {
			a.sess.mode = ModePlaying
		}
		if !a.sess.gameStartFired {
			a.sess.gameStartFired = true
			a.emit(Event{Type: EventGameStart})
		}

	case EphemeralGameOver:
		a.touchLastSeen(decoded.sender, now)
		a.emit(Event{Type: EventPlayerGameOver, Pubkey: decoded.sender, Reason: decoded.reason, FinalScore: decoded.finalScore, Winner: decoded.winner})
		a.applyGameOver(decoded.sender)

	case EphemeralRematch:
		a.touchLastSeen(decoded.sender, now)
		switch decoded.action {
		case rematchRequest:
			if _, already := a.sess.rematchRequests[decoded.sender]; already {
				return
			}
			a.sess.rematchRequests[decoded.sender] = struct{}{}
			a.emit(Event{Type: EventRematchRequested, Pubkey: decoded.sender})
		case rematchAccept:
			a.applyRematchAccept(decoded)
		}
	}
}

// touchLastSeen updates pubkey's last-observed-activity time to the
// local clock reading, never the event's own embedded timestamp — this
// is the clock-skew-griefing mitigation from the presence tracker.
func (a *Arena) touchLastSeen(pubkey string, now int64) {
	room := a.sess.currentRoom
	if room == nil {
		return
	}
	if idx := room.findPlayer(pubkey); idx != -1 {
		if now > room.Players[idx].LastSeen {
			room.Players[idx].LastSeen = now
		}
	}
}

// applyGameOver folds one more terminal report into the bookkeeping that
// decides when Playing becomes Finished: all players done, or only one
// left standing. Only the host acts on the condition by publishing the
// authoritative status flip; guests wait to observe it.
func (a *Arena) applyGameOver(sender string) {
	if a.sess.gameOverReported == nil {
		a.sess.gameOverReported = make(map[string]struct{})
	}
	a.sess.gameOverReported[sender] = struct{}{}
	if a.sess.mode != ModePlaying || !a.sess.isHost {
		return
	}
	room := a.sess.currentRoom
	total := len(room.Players)
	reported := len(a.sess.gameOverReported)
	remaining := total - reported
	if reported < total && remaining > 1 {
		return
	}
	finished := room.clone()
	finished.Status = RoomFinished
	a.sess.currentRoom = &finished
	a.sess.mode = ModeFinished
	if ev, err := encodeRoomEvent(finished); err == nil {
		if pubErr := a.publishRateLimited(a.ctx, ev); pubErr != nil {
			a.emit(Event{Type: EventError, Err: pubErr.(*Error)})
		}
	} else {
		a.emit(Event{Type: EventError, Err: err.(*Error)})
	}
}

// applyRematchAccept adopts a host-issued rematch acceptance. Comparing
// against the already-applied seed makes this idempotent against our own
// self-echo when we are the host that issued it.
func (a *Arena) applyRematchAccept(decoded decodedEphemeral) {
	room := a.sess.currentRoom
	if room == nil || decoded.sender != room.HostPubkey || decoded.newSeed == nil {
		return
	}
	if a.sess.mode == ModeWaiting && room.Seed == *decoded.newSeed {
		return // already applied locally (we are the host; this is our echo)
	}
	updated := room.clone()
	updated.Status = RoomWaiting
	updated.Seed = *decoded.newSeed
	now := a.now()
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
	a.emit(Event{Type: EventRematchStart, NewSeed: *decoded.newSeed})
}

func logMalformed(what string, err error) {
	log.Printf("arena: dropping malformed %s: %v", what, err)
}
