package arena

import "testing"

func TestSessionEpochForDefaultsToZero(t *testing.T) {
	s := newSession(Config{}, "self")
	if got := s.epochFor("alice"); got != 0 {
		t.Errorf("expected generation 0 for an unseen pubkey, got %d", got)
	}
}

func TestSessionBumpEpochIncrements(t *testing.T) {
	s := newSession(Config{}, "self")
	if got := s.bumpEpoch("alice"); got != 1 {
		t.Errorf("expected epoch 1 after first bump, got %d", got)
	}
	if got := s.bumpEpoch("alice"); got != 2 {
		t.Errorf("expected epoch 2 after second bump, got %d", got)
	}
	if got := s.epochFor("bob"); got != 0 {
		t.Errorf("bumping alice should not affect bob, got %d", got)
	}
}

func TestSessionMarkTerminalAtMostOncePerEpoch(t *testing.T) {
	s := newSession(Config{}, "self")
	if !s.markTerminal("alice") {
		t.Error("expected first markTerminal to report a fresh event")
	}
	if s.markTerminal("alice") {
		t.Error("expected second markTerminal for the same epoch to be suppressed")
	}

	s.bumpEpoch("alice")
	if !s.markTerminal("alice") {
		t.Error("expected markTerminal to fire again after a fresh epoch (rejoin)")
	}
}

func TestSessionBeginWaitingPhaseResetsPerPhaseState(t *testing.T) {
	s := newSession(Config{}, "self")
	s.allReadyFired = true
	s.gameStartFired = true
	s.countdownActive = true
	deadline := int64(1234)
	s.countdownDeadline = &deadline
	cancelled := false
	s.countdownCancel = func() { cancelled = true }

	s.beginWaitingPhase()

	if s.allReadyFired || s.gameStartFired || s.countdownActive {
		t.Error("expected per-phase flags cleared")
	}
	if s.countdownDeadline != nil {
		t.Error("expected countdown deadline cleared")
	}
	if !cancelled {
		t.Error("expected the prior countdown's cancel func to be invoked")
	}
	if s.countdownCancel != nil {
		t.Error("expected countdownCancel cleared after being invoked")
	}
}

func TestSessionBeginWaitingPhaseNoCancelIsNoop(t *testing.T) {
	s := newSession(Config{}, "self")
	s.beginWaitingPhase()
}

func TestSessionAllPresentReadyEmptyRoomIsFalse(t *testing.T) {
	s := newSession(Config{}, "self")
	if s.allPresentReady() {
		t.Error("expected no current room to report not-ready")
	}
	s.currentRoom = &RoomRecord{}
	if s.allPresentReady() {
		t.Error("expected a room with no players to report not-ready")
	}
}

func TestSessionAllPresentReadyRequiresEveryPlayer(t *testing.T) {
	s := newSession(Config{}, "self")
	s.currentRoom = &RoomRecord{Players: []PlayerPresence{
		{Pubkey: "a", Ready: true},
		{Pubkey: "b", Ready: false},
	}}
	if s.allPresentReady() {
		t.Error("expected not-ready while any player is unready")
	}

	s.currentRoom.Players[1].Ready = true
	if !s.allPresentReady() {
		t.Error("expected ready once every player is ready")
	}
}
