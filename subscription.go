package arena

import (
	"context"
	"log"
	"time"
)

// startRoomSubscription cancels any previous per-room subscription and
// starts a fresh one scoped to dtag, covering both ephemeral game events
// and room-metadata updates (needed so guests observe the host's status
// transitions and presence republications). Must be called from within
// the actor goroutine.
func (a *Arena) startRoomSubscription(dtag string) {
	a.stopRoomSubscriptionLocked()
	subCtx, cancel := context.WithCancel(a.ctx)
	a.sess.roomSubCancel = cancel
	a.wg.Go(func() { a.pumpRoomEvents(subCtx, dtag) })
}

// stopRoomSubscriptionLocked cancels the current per-room subscription,
// if any. Must be called from within the actor goroutine.
func (a *Arena) stopRoomSubscriptionLocked() {
	if a.sess.roomSubCancel != nil {
		a.sess.roomSubCancel()
		a.sess.roomSubCancel = nil
	}
}

// pumpRoomEvents owns the inbound-pump background task for one room
// membership. It retries Subscribe failures once per second, up to five
// attempts, then gives up and asks the actor to fall back to Idle with a
// Subscribe error — it never blocks a timer because it runs on its own
// goroutine and only ever hands work to the actor via cmdCh.
func (a *Arena) pumpRoomEvents(ctx context.Context, dtag string) {
	filters := []Filter{
		{Kinds: []int{KindEphemeral}, Tags: map[string][]string{"d": {dtag}}},
		{Kinds: []int{KindRoom}, Tags: map[string][]string{"d": {dtag}}},
	}

	const maxAttempts = 5
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}
		stream, err := a.gw.Subscribe(ctx, filters)
		if err != nil {
			lastErr = err
			log.Printf("arena: subscribe attempt %d/%d for %s failed: %v", attempt+1, maxAttempts, dtag, err)
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}

		for ev := range stream {
			inbound := ev
			select {
			case a.cmdCh <- func(a *Arena) { a.handleInbound(inbound) }:
			case <-ctx.Done():
				return
			}
		}

		// The stream closed. If the context is still live, this was the
		// gateway giving up internally (its own reconnect budget, not
		// ours) — surface it and retry on our own schedule.
		if ctx.Err() != nil {
			return
		}
		lastErr = wrapErr(ErrKindSubscribe, "subscription stream closed", nil)
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return
		}
	}

	final := lastErr
	select {
	case a.cmdCh <- func(a *Arena) { a.handleSubscribeFailure(final) }:
	case <-ctx.Done():
	}
}

// handleSubscribeFailure runs on the actor goroutine after pumpRoomEvents
// exhausts its retry budget: surface the error and fall back to Idle.
func (a *Arena) handleSubscribeFailure(cause error) {
	a.emit(Event{Type: EventError, Err: wrapErr(ErrKindSubscribe, "subscription failed after retries", cause)})
	a.resetToIdleLocked()
}

// resetToIdleLocked clears room membership and returns to Idle. Must be
// called from within the actor goroutine.
func (a *Arena) resetToIdleLocked() {
	a.stopRoomSubscriptionLocked()
	a.sess.mode = ModeIdle
	a.sess.isHost = false
	a.sess.currentRoom = nil
	a.sess.playerStates = make(map[string][]byte)
	a.sess.rematchRequests = make(map[string]struct{})
	a.sess.gameOverReported = make(map[string]struct{})
	a.sess.beginWaitingPhase()
}
