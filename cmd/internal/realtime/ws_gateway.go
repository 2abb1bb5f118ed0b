package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"ticketd/cmd/internal/auth"
	v1 "ticketd/shared/contracts/feed/v1"
)

const (
	wsSubprotocolV1 = v1.Subprotocol

	wsDefaultSendQueueSize = 256
	wsMinSendQueueSize     = 32

	wsDefaultWriteTimeout = 5 * time.Second

	wsMaxPingFailures = 3
)

// GatewayConfig controls the ticket event feed. Field tags are read by the
// app config under the TICKETD_WS_ prefix.
type GatewayConfig struct {
	// OriginRequired rejects handshakes without an Origin header.
	OriginRequired bool `env:"ORIGIN_REQUIRED" envDefault:"true"`
	// AllowedOrigins is matched by full origin first, then by host.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost,http://127.0.0.1" envSeparator:","`
	// InsecureSkipVerify disables the library origin check. Dev only.
	InsecureSkipVerify bool `env:"DEV_INSECURE" envDefault:"false"`

	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"5s"`
	SendQueueSize     int           `env:"SEND_QUEUE" envDefault:"256"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"25s"`
	HeartbeatTimeout  time.Duration `env:"HEARTBEAT_TIMEOUT" envDefault:"5s"`
}

// DefaultGatewayConfig mirrors the envDefault tags.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		OriginRequired:    true,
		AllowedOrigins:    []string{"http://localhost", "http://127.0.0.1"},
		WriteTimeout:      wsDefaultWriteTimeout,
		SendQueueSize:     wsDefaultSendQueueSize,
		HeartbeatInterval: heartbeatInterval,
		HeartbeatTimeout:  heartbeatTimeout,
	}
}

func (c GatewayConfig) normalized() GatewayConfig {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = wsDefaultWriteTimeout
	}
	if c.SendQueueSize < wsMinSendQueueSize {
		c.SendQueueSize = wsMinSendQueueSize
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = heartbeatInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = heartbeatTimeout
	}

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.AllowedOrigins = origins
	return c
}

// WSGateway serves the authenticated ticket event feed.
//
// It must be mounted behind auth.RequireAuth: the caller identity is read from
// the request context. The feed is one-way; inbound data frames close the session.
type WSGateway struct {
	log *slog.Logger
	hub *Hub
	cfg GatewayConfig

	// Derived for websocket.Accept, which authorizes same-host origins by
	// default and needs host patterns for everything else.
	originPatterns []string
}

// NewWSGateway constructs a gateway. A nil hub gets a private one.
func NewWSGateway(log *slog.Logger, hub *Hub, cfg GatewayConfig) *WSGateway {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if hub == nil {
		hub = NewHub(log)
	}

	cfg = cfg.normalized()
	return &WSGateway{
		log:            log,
		hub:            hub,
		cfg:            cfg,
		originPatterns: deriveOriginPatternsFromAllowedOrigins(cfg.AllowedOrigins),
	}
}

// ServeHTTP adapter so it can be mounted as http.Handler.
func (g *WSGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS upgrades the request and streams ticket events until either side goes away.
func (g *WSGateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		g.log.Info("ws.reject.auth", "err", err, "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := g.enforceOrigin(r); err != nil {
		g.log.Info("ws.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	// The server's read/write timeouts would otherwise outlive the upgrade and
	// cut long-lived sessions. Heartbeats and per-write timeouts take over.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       []string{wsSubprotocolV1},
		OriginPatterns:     g.originPatterns,
		InsecureSkipVerify: g.cfg.InsecureSkipVerify,
	})
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	if sp := conn.Subprotocol(); sp != wsSubprotocolV1 {
		g.log.Info("ws.reject.subprotocol", "got", sp, "want", wsSubprotocolV1)
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol required")
		return
	}

	conn.SetReadLimit(maxFrameBytes)

	now := time.Now().UTC()
	sessionID, err := NewSessionID(now)
	if err != nil {
		g.log.Error("ws.session_id.fail", "err", err)
		_ = conn.Close(websocket.StatusInternalError, "internal error")
		return
	}

	// CloseRead keeps control frames flowing (pong, close) and cancels ctx
	// when the peer disconnects or sends a data frame.
	ctx := conn.CloseRead(r.Context())

	client := NewClient(id.UserID, sessionID, g.cfg.SendQueueSize)
	g.hub.Subscribe(client)
	defer func() {
		g.hub.Unsubscribe(sessionID)
		client.Close()
	}()

	g.log.Info("ws.open", "session_id", sessionID, "user_id", id.UserID)

	ready := Envelope{V: Version, Type: TypeReady, ID: envelopeID(now), TS: now, Session: sessionID}
	if err := g.write(ctx, conn, ready); err != nil {
		g.log.Info("ws.write.fail", "session_id", sessionID, "err", err)
		return
	}

	reason := g.pump(ctx, conn, client)
	g.log.Info("ws.close", "session_id", sessionID, "user_id", id.UserID, "reason", reason)
}

// pump writes queued envelopes and heartbeats until the session ends.
func (g *WSGateway) pump(ctx context.Context, conn *websocket.Conn, client *Client) string {
	t := time.NewTicker(g.cfg.HeartbeatInterval)
	defer t.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return "peer closed"
		case <-client.Done():
			return "client closed"
		case env := <-client.Send:
			if err := g.write(ctx, conn, env); err != nil {
				g.log.Info("ws.write.fail", "session_id", client.SessionID, "close_status", websocket.CloseStatus(err), "err", err)
				_ = conn.Close(websocket.StatusAbnormalClosure, "write failed")
				return "write failed"
			}
		case <-t.C:
			pingCtx, cancel := context.WithTimeout(ctx, g.cfg.HeartbeatTimeout)
			err := conn.Ping(pingCtx)
			cancel()

			if err != nil {
				failures++
				g.log.Info("ws.ping.fail", "session_id", client.SessionID, "failures", failures, "err", err)
				if failures >= wsMaxPingFailures {
					_ = conn.Close(websocket.StatusGoingAway, "heartbeat failed")
					return "heartbeat failed"
				}
				continue
			}
			failures = 0
		}
	}
}

func (g *WSGateway) write(parent context.Context, conn *websocket.Conn, env Envelope) error {
	ctx, cancel := context.WithTimeout(parent, g.cfg.WriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, env)
}

// ---- origin policy ----

func (g *WSGateway) enforceOrigin(r *http.Request) error {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		if g.cfg.OriginRequired {
			return errors.New("missing origin")
		}
		return nil
	}

	if len(g.cfg.AllowedOrigins) == 0 {
		return errors.New("origin not allowed (no allowlist)")
	}

	originHost := originHostOnly(origin)
	for _, a := range g.cfg.AllowedOrigins {
		if a == "*" {
			return nil
		}
		if origin == a {
			return nil
		}
		// Host match ignores scheme and port.
		if originHost != "" && originHost == originHostOnly(a) {
			return nil
		}
	}

	return fmt.Errorf("origin not allowed: %s", origin)
}

func originHostOnly(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		h := strings.TrimSpace(u.Host)
		if h == "" {
			return ""
		}
		if host, _, err := net.SplitHostPort(h); err == nil {
			return strings.ToLower(host)
		}
		return strings.ToLower(h)
	}

	if host, _, err := net.SplitHostPort(s); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(s)
}

func deriveOriginPatternsFromAllowedOrigins(allowed []string) []string {
	seen := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		if strings.TrimSpace(a) == "*" {
			// Any host; the library matches patterns with path.Match.
			return []string{"*"}
		}
		h := originHostOnly(a)
		if h == "" {
			continue
		}
		seen[h] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}
