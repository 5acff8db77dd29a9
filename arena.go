// Package arena implements a peer-to-peer multiplayer game-session
// coordinator that runs entirely over a signed-event relay network. It
// owns the session state machine — room lifecycle, membership/presence,
// start-mode coordination, rematch negotiation, and the concurrency
// between background tasks and the consumer's event loop — while leaving
// the transport (signing, publish/subscribe, reconnection) to a Gateway
// the embedder supplies.
package arena

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"
)

// Arena is the per-consumer coordinator. All session state is owned by a
// single actor goroutine reached through cmdCh; every exported method is
// safe to call concurrently because it only ever hands work to that
// goroutine.
type Arena struct {
	cfg        Config
	gw         Gateway
	clock      Clock
	selfPubkey string

	cmdCh   chan func(*Arena)
	eventCh chan Event

	sess *session

	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	connected int32 // atomic bool: background tasks spawned and running
	closeOnce sync.Once
	doneCh    chan struct{}
}

// NewArena validates cfg, applies documented defaults, and constructs an
// Arena bound to gw/clock/selfPubkey. The Arena is idle (not connected)
// until Connect is called.
func NewArena(cfg Config, gw Gateway, clock Clock, selfPubkey string) (*Arena, error) {
	full, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if gw == nil {
		return nil, newErr(ErrKindConfig, "gateway must not be nil")
	}
	if clock == nil {
		clock = SystemClock()
	}
	if selfPubkey == "" {
		return nil, newErr(ErrKindConfig, "self_pubkey must not be empty")
	}
	gw.SetRelays(full.Relays)

	a := &Arena{
		cfg:        full,
		gw:         gw,
		clock:      clock,
		selfPubkey: selfPubkey,
		cmdCh:      make(chan func(*Arena), 64),
		eventCh:    make(chan Event, 256),
		sess:       newSession(full, selfPubkey),
		limiter:    rate.NewLimiter(rate.Limit(full.PublishRateLimit), full.PublishBurst),
	}
	return a, nil
}

// Connect starts the actor loop and three background tasks (heartbeat
// timer, host presence-update timer, throttled state flusher). The
// inbound pump is spawned when a room is created or joined, and the
// countdown timer when a countdown starts. It is idempotent:
// calling Connect while already connected is a no-op.
func (a *Arena) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&a.connected, 0, 1) {
		return nil
	}
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.doneCh = make(chan struct{})
	a.closeOnce = sync.Once{}

	a.wg.Go(func() { a.runActor() })
	a.wg.Go(func() { a.runHeartbeatTask() })
	a.wg.Go(func() { a.runPresenceTask() })
	a.wg.Go(func() { a.runFlushTask() })
	return nil
}

// Disconnect stops all background tasks, releases the gateway
// subscription, and drains the event channel to a terminal
// Error("disconnected") event if any commands are pending. It blocks
// until every background task has exited. Safe to call more than once,
// and safe to omit before dropping the Arena: Go's GC does not run
// finalizers reliably, so callers that skip Disconnect are responsible
// for leaking a goroutine set — the scoped-acquisition guarantee here is
// about Disconnect itself being unconditionally effective, not about
// replacing an explicit call.
func (a *Arena) Disconnect() {
	if !atomic.CompareAndSwapInt32(&a.connected, 1, 0) {
		return
	}
	a.cancel()
	a.wg.Wait()
	if len(a.cmdCh) == 0 {
		return
	}
	a.closeOnce.Do(func() {
		select {
		case a.eventCh <- Event{Type: EventError, Err: newErr(ErrKindDisconnected, "disconnected")}:
		default:
		}
	})
}

func (a *Arena) runActor() {
	defer close(a.doneCh)
	for {
		select {
		case <-a.ctx.Done():
			return
		case fn, ok := <-a.cmdCh:
			if !ok {
				return
			}
			a.safely(fn)
		}
	}
}

// safely runs an actor closure with panic recovery, converting a panic
// into an Error event rather than letting it escape the actor goroutine
// — the core must never panic, even when a command handler has a bug.
func (a *Arena) safely(fn func(*Arena)) {
	defer func() {
		if r := recover(); r != nil {
			a.emit(Event{Type: EventError, Err: newErr(ErrKindInvalidState, "recovered panic in actor")})
		}
	}()
	fn(a)
}

// dispatch hands fn to the actor goroutine and blocks until the Arena is
// connected enough to accept it or ctx/the Arena's own lifetime ends.
func (a *Arena) dispatch(ctx context.Context, fn func(*Arena)) error {
	if atomic.LoadInt32(&a.connected) == 0 {
		return newErr(ErrKindNotConnected, "arena not connected")
	}
	select {
	case a.cmdCh <- fn:
		return nil
	case <-a.ctx.Done():
		return newErr(ErrKindDisconnected, "arena disconnected")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn on the actor goroutine and waits for its result.
func (a *Arena) call(ctx context.Context, fn func(*Arena) (interface{}, error)) (interface{}, error) {
	reply := make(chan struct {
		v   interface{}
		err error
	}, 1)
	err := a.dispatch(ctx, func(a *Arena) {
		v, err := fn(a)
		reply <- struct {
			v   interface{}
			err error
		}{v, err}
	})
	if err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.v, r.err
	case <-a.ctx.Done():
		return nil, newErr(ErrKindDisconnected, "arena disconnected while command pending")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// emit delivers a user-visible event. Called only from within the actor
// goroutine (directly, or from a task closure running inline via
// safely). The channel is generously buffered; a consumer that never
// drains it will eventually stall the actor, which is the documented
// back-pressure behavior for a slow consumer.
func (a *Arena) emit(ev Event) {
	select {
	case a.eventCh <- ev:
	case <-a.ctx.Done():
	}
}

// now returns the current clock reading in ms.
func (a *Arena) now() int64 { return a.clock.NowMS() }

// TryRecv returns the next user-visible event without blocking, or
// (Event{}, false) if none is pending.
func (a *Arena) TryRecv() (Event, bool) {
	select {
	case ev := <-a.eventCh:
		return ev, true
	default:
		return Event{}, false
	}
}

// Recv blocks until a user-visible event is available or ctx is done.
func (a *Arena) Recv(ctx context.Context) (Event, error) {
	select {
	case ev := <-a.eventCh:
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Players returns a snapshot of the current room's player presences, or
// nil if there is no current room.
func (a *Arena) Players(ctx context.Context) ([]PlayerPresence, error) {
	v, err := a.call(ctx, func(a *Arena) (interface{}, error) {
		if a.sess.currentRoom == nil {
			return []PlayerPresence(nil), nil
		}
		return append([]PlayerPresence(nil), a.sess.currentRoom.Players...), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]PlayerPresence), nil
}

// PlayerCount returns len(Players()), without allocating the slice.
func (a *Arena) PlayerCount(ctx context.Context) (int, error) {
	v, err := a.call(ctx, func(a *Arena) (interface{}, error) {
		if a.sess.currentRoom == nil {
			return 0, nil
		}
		return len(a.sess.currentRoom.Players), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// CurrentMode returns the session's current top-level mode.
func (a *Arena) CurrentMode(ctx context.Context) (Mode, error) {
	v, err := a.call(ctx, func(a *Arena) (interface{}, error) {
		return a.sess.mode, nil
	})
	if err != nil {
		return ModeIdle, err
	}
	return v.(Mode), nil
}

// GetRoomURL returns a shareable URL or bare room id for the current
// room, per Config.BaseURL. Returns "" if there is no current room.
func (a *Arena) GetRoomURL(ctx context.Context) (string, error) {
	v, err := a.call(ctx, func(a *Arena) (interface{}, error) {
		if a.sess.currentRoom == nil {
			return "", nil
		}
		return a.roomURLLocked(a.sess.currentRoom.RoomID), nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (a *Arena) roomURLLocked(roomID string) string {
	if a.cfg.BaseURL == "" {
		return roomID
	}
	return a.cfg.BaseURL + "?room=" + roomID
}

// publishRateLimited asks the outbound rate limiter for permission and
// publishes event if granted, else returns ErrKindPublish. It is called
// synchronously from within the actor; see Gateway.Publish in gateway.go
// for why this is
// an acceptable (and documented) exception to "never block a timer" —
// user-triggered publishes are rare relative to tick cadence.
func (a *Arena) publishRateLimited(ctx context.Context, event OutboundEvent) error {
	if !a.limiter.Allow() {
		return wrapErr(ErrKindPublish, "rate limit exceeded", nil)
	}
	if err := a.gw.Publish(ctx, event); err != nil {
		return wrapErr(ErrKindPublish, "publish failed", err)
	}
	return nil
}
