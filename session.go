package arena

// session holds everything SessionState enumerates in the spec. It is
// owned exclusively by the Arena's actor goroutine: nothing outside
// the runActor loop in arena.go may read or write it, which is what lets every
// field below go without its own lock.
type session struct {
	mode       Mode
	isHost     bool
	selfPubkey string
	cfg        Config

	currentRoom *RoomRecord
	playerStates map[string][]byte

	lastStatePublishedAt int64
	countdownDeadline    *int64

	rematchRequests  map[string]struct{}
	gameOverReported map[string]struct{}

	// presenceEpoch tracks, per pubkey, a counter bumped every time the
	// pubkey transitions absent->present. It is the key half of the
	// (pubkey, membership-epoch) pairs the dispatcher's at-most-once
	// terminal-event guarantee is stated over.
	presenceEpoch map[string]int
	// terminalSent records which (pubkey, epoch) pairs have already had a
	// PlayerLeave or PlayerDisconnect emitted, so a late-arriving
	// duplicate departure signal cannot double-fire.
	terminalSent map[presenceKey]bool

	// allReadyFired and gameStartFired are cleared whenever a fresh
	// waiting phase begins (room creation, rematch) so AllReady/GameStart
	// remain at-most-once per phase without leaking across phases.
	allReadyFired   bool
	gameStartFired  bool
	countdownActive bool
	countdownCancel func()

	// pendingState holds the most recent send_state payload not yet
	// published, coalesced per the outbound pipeline's throttle window.
	pendingState    []byte
	pendingStateSet bool

	// roomSubCancel cancels the current per-room inbound subscription,
	// if any. Only ever set/called from within the actor goroutine.
	roomSubCancel func()
}

type presenceKey struct {
	pubkey string
	epoch  int
}

func newSession(cfg Config, selfPubkey string) *session {
	return &session{
		mode:            ModeIdle,
		selfPubkey:      selfPubkey,
		cfg:             cfg,
		playerStates:     make(map[string][]byte),
		rematchRequests:  make(map[string]struct{}),
		gameOverReported: make(map[string]struct{}),
		presenceEpoch:    make(map[string]int),
		terminalSent:     make(map[presenceKey]bool),
	}
}

// beginWaitingPhase resets the per-phase bookkeeping that must not leak
// across a create/rematch boundary.
func (s *session) beginWaitingPhase() {
	s.allReadyFired = false
	s.gameStartFired = false
	s.countdownActive = false
	if s.countdownCancel != nil {
		s.countdownCancel()
		s.countdownCancel = nil
	}
	s.countdownDeadline = nil
}

// epochFor returns the current membership epoch for pubkey: generation
// 0 for a pubkey that has never been bumped. It stores nothing.
func (s *session) epochFor(pubkey string) int {
	return s.presenceEpoch[pubkey]
}

// bumpEpoch increments pubkey's membership epoch, marking the start of a
// fresh presence interval (a rejoin after a prior departure).
func (s *session) bumpEpoch(pubkey string) int {
	s.presenceEpoch[pubkey]++
	return s.presenceEpoch[pubkey]
}

// markTerminal records that a terminal (leave/disconnect) event has been
// emitted for pubkey's current epoch, returning false if it already had
// been (the at-most-once guarantee).
func (s *session) markTerminal(pubkey string) bool {
	key := presenceKey{pubkey: pubkey, epoch: s.epochFor(pubkey)}
	if s.terminalSent[key] {
		return false
	}
	s.terminalSent[key] = true
	return true
}

// allPresentReady reports whether every player currently in the room has
// ready=true. An empty or single-player room is never "ready" under this
// definition (the Ready/Countdown conditions additionally require >= 2
// players, checked by the caller).
func (s *session) allPresentReady() bool {
	if s.currentRoom == nil || len(s.currentRoom.Players) == 0 {
		return false
	}
	for _, p := range s.currentRoom.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}
