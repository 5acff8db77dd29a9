package localrelay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	datastar "github.com/starfederation/datastar-go/datastar"
	"golang.org/x/time/rate"

	"nostrarena"
)

// maxPublishBodyBytes bounds a single /publish request body.
const maxPublishBodyBytes = 64 * 1024

// publishRateLimit and publishRateBurst bound how fast any one remote
// address may call /publish, independent of the outbound limiter each
// arena.Arena applies on its own side.
const (
	publishRateLimit = 100.0
	publishRateBurst = 40
)

// requestSizeLimiter caps an incoming publish body at maxBytes so one
// oversized event can't exhaust the relay's memory.
func requestSizeLimiter(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// securityHeaders adds baseline security headers to every relay response.
func securityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-XSS-Protection", "1; mode=block")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}

// publishLimiter rate-limits /publish per remote address, independent of
// the token bucket each arena.Arena applies on its own side.
type publishLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newPublishLimiter(limit float64, burst int) *publishLimiter {
	return &publishLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(limit),
		burst:    burst,
	}
}

func (pl *publishLimiter) forKey(key string) *rate.Limiter {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	l, ok := pl.limiters[key]
	if !ok {
		l = rate.NewLimiter(pl.rate, pl.burst)
		pl.limiters[key] = l
	}
	return l
}

func (pl *publishLimiter) middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
				key = forwarded
			}
			if !pl.forKey(key).Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Server exposes a Hub over HTTP, standing in for a real relay's
// websocket endpoint with a simpler publish/fetch/subscribe surface a
// plain Go client (Client, below) can speak without a Nostr library.
// Routing and middleware mirror treacherest's SetupRouter: chi's
// Logger/Recoverer/Timeout, then the app's own routes.
type Server struct {
	hub    *Hub
	router *chi.Mux
	http   *http.Server
}

// NewServer wraps hub with chi routing. Pass nil to create a fresh Hub.
func NewServer(hub *Hub) *Server {
	if hub == nil {
		hub = NewHub()
	}
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(securityHeaders())

	limiter := newPublishLimiter(publishRateLimit, publishRateBurst)

	s := &Server{hub: hub, router: r}
	r.Get("/healthz", s.handleHealthz)
	r.With(requestSizeLimiter(maxPublishBodyBytes), limiter.middleware()).Post("/publish", s.handlePublish)
	r.Get("/fetch", s.handleFetch)
	r.Get("/subscribe", s.handleSubscribe)
	r.Get("/dashboard/{dtag}/events", s.handleDashboardEvents)
	return s
}

// Serve starts listening on addr and blocks until ctx is cancelled, then
// shuts the HTTP server down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() { errCh <- s.http.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type publishRequest struct {
	Pubkey      string              `json:"pubkey"`
	Kind        int                 `json:"kind"`
	Tags        map[string][]string `json:"tags"`
	Content     string              `json:"content"`
	Replaceable bool                `json:"replaceable"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed publish body", http.StatusBadRequest)
		return
	}
	if req.Pubkey == "" {
		http.Error(w, "pubkey required", http.StatusBadRequest)
		return
	}
	s.hub.Publish(req.Pubkey, arena.OutboundEvent{
		Kind: req.Kind, Tags: req.Tags, Content: req.Content, Replaceable: req.Replaceable,
	})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	kind, _ := strconv.Atoi(r.URL.Query().Get("kind"))
	addr := arena.Address{
		Kind:       kind,
		HostPubkey: r.URL.Query().Get("host_pubkey"),
		DTag:       r.URL.Query().Get("dtag"),
	}
	ev := s.hub.FetchReplaceable(addr)
	w.Header().Set("Content-Type", "application/json")
	if ev == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	json.NewEncoder(w).Encode(ev)
}

// handleSubscribe streams newline-delimited JSON InboundEvents as raw
// SSE `data:` lines. Plain Go peers (Client) read this directly; it
// deliberately skips datastar's fragment-patch envelope, which has no
// meaning for a non-HTML consumer.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, unsubscribe := s.hub.Subscribe(filters)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			body, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", body)
			flusher.Flush()
		}
	}
}

// handleDashboardEvents is a browser-facing demo endpoint: it patches a
// "room" signal with the latest room-record JSON for dtag, using
// datastar-go the way treacherest's lobby stream does — a reactive
// signal push, not the raw event feed Client consumes.
func (s *Server) handleDashboardEvents(w http.ResponseWriter, r *http.Request) {
	dtag := chi.URLParam(r, "dtag")
	sse := datastar.NewSSE(w, r)

	ch, unsubscribe := s.hub.Subscribe([]arena.Filter{
		{Kinds: []int{arena.KindRoom}, Tags: map[string][]string{"d": {dtag}}},
	})
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			sse.MarshalAndPatchSignals(map[string]interface{}{
				"room": ev.Content,
			})
		}
	}
}

func parseFilters(r *http.Request) ([]arena.Filter, error) {
	q := r.URL.Query()
	var kinds []int
	for _, k := range q["kind"] {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("bad kind %q", k)
		}
		kinds = append(kinds, n)
	}
	var dtags []string
	if d := q.Get("dtag"); d != "" {
		dtags = []string{d}
	}
	tags := map[string][]string{}
	if len(dtags) > 0 {
		tags["d"] = dtags
	}
	return []arena.Filter{{Kinds: kinds, Tags: tags}}, nil
}
