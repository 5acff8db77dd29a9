package arena

import "time"

// StartMode selects the sub-state machine that decides when a Waiting
// room transitions to Playing. See the start-mode coordinator.
type StartMode int

const (
	// StartModeAuto fires as soon as the room reaches max_players.
	StartModeAuto StartMode = iota
	// StartModeReady fires once every present player has ready=true and
	// at least two players are present.
	StartModeReady
	// StartModeCountdown behaves like Ready but interposes a countdown
	// broadcast before entering Playing.
	StartModeCountdown
	// StartModeHost requires an explicit host start_game() command.
	StartModeHost
)

func (m StartMode) String() string {
	switch m {
	case StartModeAuto:
		return "Auto"
	case StartModeReady:
		return "Ready"
	case StartModeCountdown:
		return "Countdown"
	case StartModeHost:
		return "Host"
	default:
		return "Unknown"
	}
}

// DefaultRelays mirrors the public relay fleet most Nostr clients bundle
// as a sane starting point. Operators are expected to override this list.
var DefaultRelays = []string{
	"wss://relay.damus.io",
	"wss://nos.lol",
	"wss://relay.nostr.band",
	"wss://relay.snort.social",
}

// Config is frozen at Arena construction: every field enumerated here is
// read once by NewArena and never mutated afterward.
type Config struct {
	// GameID is required and non-empty; it scopes discovery and the wire
	// `t` tag.
	GameID string

	// Relays is the list of ws/wss URLs the gateway should be configured
	// with. Defaults to DefaultRelays when empty.
	Relays []string

	// RoomExpiry is added to created_at to compute expires_at. Zero means
	// the room never expires.
	RoomExpiry time.Duration

	// MaxPlayers bounds room membership. Must be >= 2. Defaults to 2.
	MaxPlayers int

	// StartMode selects the start-mode coordinator behavior. Defaults to
	// StartModeAuto.
	StartMode StartMode

	// CountdownSeconds is the Countdown mode's tick count. Defaults to 3.
	CountdownSeconds int

	// HeartbeatInterval is how often the local Arena publishes a
	// heartbeat ephemeral. Defaults to 3s.
	HeartbeatInterval time.Duration

	// DisconnectThreshold is how long a pubkey can go without an observed
	// heartbeat/join before it is considered disconnected. Defaults to
	// 10s.
	DisconnectThreshold time.Duration

	// StateThrottle bounds how often send_state publishes. Defaults to
	// 100ms.
	StateThrottle time.Duration

	// BaseURL, when set, makes GetRoomURL return "{BaseURL}?room={id}"
	// instead of the bare room id.
	BaseURL string

	// PublishRateLimit and PublishBurst configure the token-bucket
	// limiter guarding the outbound pipeline against runaway game loops.
	// Defaults: 50 events/s, burst 20.
	PublishRateLimit float64
	PublishBurst     int

	// PresenceUpdateInterval is the host's republication cadence. Fixed
	// at 30s per spec; exposed here only so tests can shrink it.
	PresenceUpdateInterval time.Duration
}

// withDefaults returns a copy of cfg with zero-valued fields replaced by
// their documented defaults, and validates the result.
func (cfg Config) withDefaults() (Config, error) {
	if cfg.GameID == "" {
		return cfg, newErr(ErrKindConfig, "game_id must be non-empty")
	}
	if len(cfg.Relays) == 0 {
		cfg.Relays = append([]string(nil), DefaultRelays...)
	}
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = 2
	}
	if cfg.MaxPlayers < 2 {
		return cfg, newErr(ErrKindConfig, "max_players must be >= 2")
	}
	if cfg.CountdownSeconds == 0 {
		cfg.CountdownSeconds = 3
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 3000 * time.Millisecond
	}
	if cfg.DisconnectThreshold == 0 {
		cfg.DisconnectThreshold = 10000 * time.Millisecond
	}
	if cfg.StateThrottle == 0 {
		cfg.StateThrottle = 100 * time.Millisecond
	}
	if cfg.PublishRateLimit == 0 {
		cfg.PublishRateLimit = 50
	}
	if cfg.PublishBurst == 0 {
		cfg.PublishBurst = 20
	}
	if cfg.PresenceUpdateInterval == 0 {
		cfg.PresenceUpdateInterval = 30 * time.Second
	}
	return cfg, nil
}
