package arena

// EventType discriminates the user-visible events delivered on an Arena's
// event channel.
type EventType int

const (
	EventPlayerJoin EventType = iota
	EventPlayerLeave
	EventPlayerDisconnect
	EventPlayerState
	EventAllReady
	EventCountdownStart
	EventCountdownTick
	EventGameStart
	EventPlayerGameOver
	EventRematchRequested
	EventRematchStart
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventPlayerJoin:
		return "PlayerJoin"
	case EventPlayerLeave:
		return "PlayerLeave"
	case EventPlayerDisconnect:
		return "PlayerDisconnect"
	case EventPlayerState:
		return "PlayerState"
	case EventAllReady:
		return "AllReady"
	case EventCountdownStart:
		return "CountdownStart"
	case EventCountdownTick:
		return "CountdownTick"
	case EventGameStart:
		return "GameStart"
	case EventPlayerGameOver:
		return "PlayerGameOver"
	case EventRematchRequested:
		return "RematchRequested"
	case EventRematchStart:
		return "RematchStart"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Event is the single user-visible event envelope. Only the field(s)
// relevant to Type are populated; the rest are zero values.
type Event struct {
	Type EventType

	// PlayerJoin, PlayerDisconnect (pubkey only), RematchRequested.
	Pubkey   string
	Presence PlayerPresence // PlayerJoin

	// PlayerState
	GameState []byte

	// CountdownStart / CountdownTick
	Seconds int

	// PlayerGameOver
	Reason     string
	FinalScore *int64
	Winner     *string

	// RematchStart
	NewSeed uint64

	// Error
	Err *Error
}

// String renders a compact, test-friendly representation of the event,
// primarily useful for assertions that want to diff a recorded sequence.
func (e Event) String() string {
	switch e.Type {
	case EventPlayerJoin, EventPlayerLeave, EventPlayerDisconnect, EventRematchRequested:
		return e.Type.String() + "(" + e.Pubkey + ")"
	default:
		return e.Type.String()
	}
}
