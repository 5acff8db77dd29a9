package arena

import (
	"time"
)

// runHeartbeatTask publishes a heartbeat ephemeral every
// Config.HeartbeatInterval while a room is current, and — for non-host
// arenas only — opportunistically detects a peer gone stale from its own
// point of view, satisfying "whichever comes first" against the host's
// 30s presence-update loop without ever mutating the authoritative
// record itself.
func (a *Arena) runHeartbeatTask() {
	ticker := time.NewTicker(a.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			select {
			case a.cmdCh <- func(a *Arena) { a.onHeartbeatTick() }:
			case <-a.ctx.Done():
				return
			}
		}
	}
}

func (a *Arena) onHeartbeatTick() {
	room := a.sess.currentRoom
	if room == nil {
		return
	}
	now := a.now()
	if ev, err := encodeHeartbeat(a.cfg.GameID, room.RoomID, now); err == nil {
		if pubErr := a.publishRateLimited(a.ctx, ev); pubErr != nil {
			a.emit(Event{Type: EventError, Err: pubErr.(*Error)})
		}
	} else {
		a.emit(Event{Type: EventError, Err: err.(*Error)})
	}

	if a.sess.isHost {
		// The host's own staleness pruning — and the republish that must
		// accompany it — belongs solely to runPresenceTask.
		return
	}
	kept := room.Players[:0:0]
	for _, p := range room.Players {
		if p.Pubkey != a.selfPubkey && now-p.LastSeen > a.cfg.DisconnectThreshold.Milliseconds() {
			if a.sess.markTerminal(p.Pubkey) {
				a.emit(Event{Type: EventPlayerDisconnect, Pubkey: p.Pubkey})
			}
			continue
		}
		kept = append(kept, p)
	}
	room.Players = kept
}

// runPresenceTask is the host's authoritative 30s presence-update loop.
// It is inert whenever isHost is false — it simply finds nothing to do,
// since only the host ever holds the room's publish authority.
func (a *Arena) runPresenceTask() {
	ticker := time.NewTicker(a.cfg.PresenceUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			select {
			case a.cmdCh <- func(a *Arena) { a.onPresenceTick() }:
			case <-a.ctx.Done():
				return
			}
		}
	}
}

func (a *Arena) onPresenceTick() {
	if !a.sess.isHost || a.sess.currentRoom == nil {
		return
	}
	room := a.sess.currentRoom
	now := a.now()
	threshold := a.cfg.DisconnectThreshold.Milliseconds()

	changed := false
	kept := room.Players[:0:0]
	var dropped []string
	for _, p := range room.Players {
		if p.Pubkey != a.selfPubkey && now-p.LastSeen > threshold {
			dropped = append(dropped, p.Pubkey)
			changed = true
			continue
		}
		kept = append(kept, p)
	}

	// Join-race tie-break: if membership somehow exceeds max_players
	// (two near-simultaneous joins), keep the earliest joined_at entries
	// and drop the rest — the dropped peers learn this from the record
	// diff in applyPlayerRemoved the next time they observe this update.
	if len(kept) > room.MaxPlayers {
		sortByJoinedAt(kept)
		for _, p := range kept[room.MaxPlayers:] {
			dropped = append(dropped, p.Pubkey)
		}
		kept = append([]PlayerPresence(nil), kept[:room.MaxPlayers]...)
		changed = true
	}

	for _, pubkey := range dropped {
		if a.sess.markTerminal(pubkey) {
			a.emit(Event{Type: EventPlayerDisconnect, Pubkey: pubkey})
		}
		delete(a.sess.playerStates, pubkey)
	}

	if !changed {
		return
	}
	room.Players = kept
	if ev, err := encodeRoomEvent(*room); err == nil {
		if pubErr := a.publishRateLimited(a.ctx, ev); pubErr != nil {
			a.emit(Event{Type: EventError, Err: pubErr.(*Error)})
		}
	} else {
		a.emit(Event{Type: EventError, Err: err.(*Error)})
	}
	// A shrunken membership can cancel a running countdown.
	a.evaluateCoordinator()
}

func sortByJoinedAt(players []PlayerPresence) {
	for i := 1; i < len(players); i++ {
		for j := i; j > 0 && players[j].JoinedAt < players[j-1].JoinedAt; j-- {
			players[j], players[j-1] = players[j-1], players[j]
		}
	}
}
