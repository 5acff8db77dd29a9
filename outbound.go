package arena

import (
	"context"
	"time"
)

// SendState publishes the caller's opaque game-state payload. While the
// room's throttle window is still open from the last publish, the
// payload replaces any pending one rather than queueing — the flusher
// sends only the freshest value at the next window boundary.
func (a *Arena) SendState(ctx context.Context, payload []byte) error {
	_, err := a.call(ctx, func(a *Arena) (interface{}, error) {
		if a.sess.mode != ModePlaying {
			return nil, newErr(ErrKindInvalidState, "send_state requires Playing mode")
		}
		now := a.now()
		if now-a.sess.lastStatePublishedAt >= a.cfg.StateThrottle.Milliseconds() {
			a.publishState(ctx, payload, now)
		} else {
			a.sess.pendingState = payload
			a.sess.pendingStateSet = true
		}
		return nil, nil
	})
	return err
}

func (a *Arena) publishState(ctx context.Context, payload []byte, now int64) {
	if now > a.sess.lastStatePublishedAt {
		a.sess.lastStatePublishedAt = now
	}
	room := a.sess.currentRoom
	if room == nil {
		return
	}
	ev, err := encodeState(a.cfg.GameID, room.RoomID, payload)
	if err != nil {
		a.emit(Event{Type: EventError, Err: err.(*Error)})
		return
	}
	if pubErr := a.publishRateLimited(ctx, ev); pubErr != nil {
		a.emit(Event{Type: EventError, Err: pubErr.(*Error)})
	}
}

// runFlushTask is the outbound pipeline's throttle-window flusher: once
// per Config.StateThrottle it publishes whatever send_state payload is
// still pending, replacing queueing with coalescing.
func (a *Arena) runFlushTask() {
	interval := a.cfg.StateThrottle
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			select {
			case a.cmdCh <- func(a *Arena) { a.flushPendingState() }:
			case <-a.ctx.Done():
				return
			}
		}
	}
}

func (a *Arena) flushPendingState() {
	if !a.sess.pendingStateSet {
		return
	}
	payload := a.sess.pendingState
	a.sess.pendingState = nil
	a.sess.pendingStateSet = false
	a.publishState(a.ctx, payload, a.now())
}

// SendReady publishes the caller's ready/not-ready declaration. It
// bypasses the state throttle entirely, like every non-state ephemeral.
func (a *Arena) SendReady(ctx context.Context, ready bool) error {
	_, err := a.call(ctx, func(a *Arena) (interface{}, error) {
		if a.sess.mode != ModeWaiting || a.sess.currentRoom == nil {
			return nil, newErr(ErrKindInvalidState, "send_ready requires Waiting mode")
		}
		ev, err := encodeReady(a.cfg.GameID, a.sess.currentRoom.RoomID, ready)
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

// SendGameOver reports the caller's own terminal game outcome.
func (a *Arena) SendGameOver(ctx context.Context, reason string, finalScore *int64, winner *string) error {
	_, err := a.call(ctx, func(a *Arena) (interface{}, error) {
		if a.sess.mode != ModePlaying || a.sess.currentRoom == nil {
			return nil, newErr(ErrKindInvalidState, "send_game_over requires Playing mode")
		}
		ev, err := encodeGameOver(a.cfg.GameID, a.sess.currentRoom.RoomID, reason, finalScore, winner)
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
