// Command arenademo boots a local relay, creates or joins a room, and
// logs every consumer-visible event until interrupted. It exists to
// exercise the full public Arena API end to end against the in-process
// transport, the way treacherest's cmd/server boots a real HTTP game
// server against its MemoryStore.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"nostrarena"
	"nostrarena/internal/config"
	"nostrarena/internal/localrelay"
)

func main() {
	configPath := flag.String("config", "", "path to arena.yaml (optional)")
	addr := flag.String("addr", ":8787", "address for the local relay's HTTP endpoint")
	roomID := flag.String("room", "", "room id to join; creates a new room when empty")
	host := flag.Bool("relay", false, "serve the local relay over HTTP instead of running a peer in-process")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("failed to load configuration: ", err)
	}
	log.Printf("loaded configuration: game_id=%s max_players=%d start_mode=%v", cfg.GameID, cfg.MaxPlayers, cfg.StartMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *host {
		runRelay(ctx, *addr)
		return
	}
	runPeer(ctx, cfg, *addr, *roomID)
}

// runRelay serves a bare Hub over HTTP so separate arenademo peer
// processes can dial in and coordinate across a real network boundary.
func runRelay(ctx context.Context, addr string) {
	srv := localrelay.NewServer(nil)
	log.Printf("local relay listening on %s", addr)
	if err := srv.Serve(ctx, addr); err != nil {
		log.Fatal("relay server failed: ", err)
	}
	log.Println("relay server stopped")
}

// runPeer drives one Arena against an in-process Hub (no room id given)
// or a remote relay (room id given, dialed via -addr), logging every
// event until interrupted or an Error event arrives.
func runPeer(ctx context.Context, cfg arena.Config, addr, roomID string) {
	pubkey := generatePubkey()
	log.Printf("peer pubkey: %s", pubkey)

	var gw arena.Gateway
	if roomID == "" {
		gw = localrelay.InProcess().Gateway(pubkey)
	} else {
		relayURL := "http://" + trimHost(addr)
		// NewArena hands cfg.Relays to SetRelays, which retargets the client.
		cfg.Relays = []string{relayURL}
		gw = localrelay.DialGateway(relayURL, pubkey)
	}

	a, err := arena.NewArena(cfg, gw, nil, pubkey)
	if err != nil {
		log.Fatal("failed to construct arena: ", err)
	}
	if err := a.Connect(ctx); err != nil {
		log.Fatal("failed to connect: ", err)
	}
	defer a.Disconnect()

	var room arena.RoomRecord
	if roomID == "" {
		room, err = a.Create(ctx)
		if err != nil {
			log.Fatal("failed to create room: ", err)
		}
		log.Printf("created room %s (host)", room.RoomID)
	} else {
		room, err = a.Join(ctx, roomID)
		if err != nil {
			log.Fatal("failed to join room: ", err)
		}
		log.Printf("joined room %s, host=%s", room.RoomID, room.HostPubkey)
	}

	if url, err := a.GetRoomURL(ctx); err == nil {
		log.Printf("room url: %s", url)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			ev, err := a.Recv(ctx)
			if err != nil {
				return
			}
			logEvent(ev)
			if ev.Type == arena.EventError {
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
	log.Println("shutting down peer")
}

func logEvent(ev arena.Event) {
	switch ev.Type {
	case arena.EventPlayerJoin:
		log.Printf("event: player joined %s", ev.Presence.Pubkey)
	case arena.EventPlayerLeave:
		log.Printf("event: player left %s", ev.Pubkey)
	case arena.EventPlayerDisconnect:
		log.Printf("event: player disconnected %s", ev.Pubkey)
	case arena.EventAllReady:
		log.Print("event: all players ready")
	case arena.EventCountdownStart:
		log.Printf("event: countdown started at %d", ev.Seconds)
	case arena.EventCountdownTick:
		log.Printf("event: countdown tick %d", ev.Seconds)
	case arena.EventGameStart:
		log.Print("event: game start")
	case arena.EventPlayerGameOver:
		log.Printf("event: game over from %s reason=%s", ev.Pubkey, ev.Reason)
	case arena.EventRematchRequested:
		log.Printf("event: rematch requested by %s", ev.Pubkey)
	case arena.EventRematchStart:
		log.Printf("event: rematch start seed=%d", ev.NewSeed)
	case arena.EventError:
		log.Printf("event: error %v", ev.Err)
	default:
		log.Printf("event: %s", ev)
	}
}

func generatePubkey() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		log.Fatal("failed to generate pubkey: ", err)
	}
	return hex.EncodeToString(b[:])
}

func trimHost(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
