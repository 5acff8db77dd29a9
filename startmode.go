package arena

import (
	"context"
	"time"
)

// evaluateAllReady fires the at-most-once AllReady event the moment
// every present player is ready, for every start mode except Auto. It
// runs identically for host and guest arenas: readiness is a shared
// observation, not a host decision.
func (a *Arena) evaluateAllReady() {
	room := a.sess.currentRoom
	if room == nil || a.cfg.StartMode == StartModeAuto || a.sess.allReadyFired {
		return
	}
	if len(room.Players) < 2 || !a.sess.allPresentReady() {
		return
	}
	a.sess.allReadyFired = true
	a.emit(Event{Type: EventAllReady})
}

// evaluateCoordinator is the host-only start-mode coordinator: it alone
// decides when Waiting -> Playing fires and owns the Countdown timer.
// Guests never call this; they learn of the transition by observing the
// host's RoomRecord (or, for Host mode, the host's gamestart ephemeral).
func (a *Arena) evaluateCoordinator() {
	room := a.sess.currentRoom
	if room == nil || a.sess.mode != ModeWaiting {
		return
	}
	switch a.cfg.StartMode {
	case StartModeAuto:
		if len(room.Players) == room.MaxPlayers {
			a.fireEnterPlaying()
		}
	case StartModeReady:
		if len(room.Players) >= 2 && a.sess.allPresentReady() {
			a.fireEnterPlaying()
		}
	case StartModeCountdown:
		ready := len(room.Players) >= 2 && a.sess.allPresentReady()
		switch {
		case ready && !a.sess.countdownActive:
			a.startCountdown()
		case !ready && a.sess.countdownActive:
			a.cancelCountdown()
		}
	case StartModeHost:
		// Only the explicit StartGame command fires in Host mode.
	}
}

// fireEnterPlaying performs the host's authoritative Waiting -> Playing
// transition: flip status locally, emit GameStart once, and publish.
func (a *Arena) fireEnterPlaying() {
	room := a.sess.currentRoom
	if room == nil {
		return
	}
	updated := room.clone()
	updated.Status = RoomPlaying
	a.sess.currentRoom = &updated
	a.sess.mode = ModePlaying
	if !a.sess.gameStartFired {
		a.sess.gameStartFired = true
		a.emit(Event{Type: EventGameStart})
	}
	if ev, err := encodeRoomEvent(updated); err == nil {
		if pubErr := a.publishRateLimited(a.ctx, ev); pubErr != nil {
			a.emit(Event{Type: EventError, Err: pubErr.(*Error)})
		}
	} else {
		a.emit(Event{Type: EventError, Err: err.(*Error)})
	}
}

func (a *Arena) startCountdown() {
	a.sess.countdownActive = true
	deadline := a.now() + int64(a.cfg.CountdownSeconds)*1000
	a.sess.countdownDeadline = &deadline
	a.emit(Event{Type: EventCountdownStart, Seconds: a.cfg.CountdownSeconds})

	ctx, cancel := context.WithCancel(a.ctx)
	a.sess.countdownCancel = cancel
	seconds := a.cfg.CountdownSeconds
	a.wg.Go(func() { a.runCountdownTimer(ctx, seconds) })
}

func (a *Arena) cancelCountdown() {
	a.sess.countdownActive = false
	if a.sess.countdownCancel != nil {
		a.sess.countdownCancel()
		a.sess.countdownCancel = nil
	}
	a.sess.countdownDeadline = nil
}

// runCountdownTimer ticks once per second, handing every tick and the
// final completion back to the actor via cmdCh. A cancellation (via ctx)
// from a membership/ready change simply stops it — evaluateCoordinator
// restarts fresh from StartModeCountdown's ready branch if the condition
// holds again.
func (a *Arena) runCountdownTimer(ctx context.Context, seconds int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	remaining := seconds
	for i := 0; i < seconds; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining--
			if remaining <= 0 {
				select {
				case a.cmdCh <- func(a *Arena) { a.completeCountdown() }:
				case <-ctx.Done():
				}
				return
			}
			r := remaining
			select {
			case a.cmdCh <- func(a *Arena) { a.emitCountdownTick(r) }:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (a *Arena) emitCountdownTick(remaining int) {
	if !a.sess.countdownActive {
		return // cancelled since this tick was scheduled
	}
	a.emit(Event{Type: EventCountdownTick, Seconds: remaining})
}

func (a *Arena) completeCountdown() {
	if !a.sess.countdownActive {
		return
	}
	a.sess.countdownActive = false
	a.sess.countdownCancel = nil
	a.sess.countdownDeadline = nil
	a.fireEnterPlaying()
}

// StartGame is the host-only explicit trigger used by StartModeHost: it
// publishes a gamestart ephemeral (which fires GameStart on every
// recipient, host-authored, even before their copy of the room record
// catches up) and performs the authoritative Playing transition.
func (a *Arena) StartGame(ctx context.Context) error {
	_, err := a.call(ctx, func(a *Arena) (interface{}, error) {
		room := a.sess.currentRoom
		if room == nil || a.sess.mode != ModeWaiting {
			return nil, newErr(ErrKindInvalidState, "start_game requires Waiting mode")
		}
		if !a.sess.isHost {
			return nil, newErr(ErrKindNotHost, "start_game is host-only")
		}
		if a.cfg.StartMode != StartModeHost {
			return nil, newErr(ErrKindInvalidState, "start_game requires Host start mode")
		}
		if len(room.Players) < 2 {
			return nil, newErr(ErrKindInvalidState, "start_game requires at least two players")
		}
		if ev, encErr := encodeGameStart(a.cfg.GameID, room.RoomID); encErr == nil {
			if pubErr := a.publishRateLimited(ctx, ev); pubErr != nil {
				a.emit(Event{Type: EventError, Err: pubErr.(*Error)})
			}
		} else {
			a.emit(Event{Type: EventError, Err: encErr.(*Error)})
		}
		a.fireEnterPlaying()
		return nil, nil
	})
	return err
}
