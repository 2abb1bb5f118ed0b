package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketd/cmd/internal/auth"
	"ticketd/cmd/internal/ticket"
)

func identity(userID uint64) auth.Identity { return auth.Identity{UserID: userID} }

// startFeed serves the gateway behind the resolver and gate, the same way the app mounts it.
func startFeed(t *testing.T, cfg GatewayConfig) (*httptest.Server, *Hub) {
	t.Helper()

	hub := NewHub(nil)
	gw := NewWSGateway(nil, hub, cfg)
	rs := auth.NewResolver(nil, auth.DefaultCookieConfig())

	ts := httptest.NewServer(rs.Middleware(auth.RequireAuth(nil)(gw)))
	t.Cleanup(ts.Close)
	return ts, hub
}

func dialFeed(t *testing.T, ctx context.Context, baseURL, origin, cookie string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	h := http.Header{}
	if origin != "" {
		h.Set("Origin", origin)
	}
	if cookie != "" {
		h.Set("Cookie", auth.DefaultCookieName+"="+cookie)
	}

	u := "ws" + strings.TrimPrefix(baseURL, "http")
	return websocket.Dial(ctx, u, &websocket.DialOptions{
		Subprotocols: []string{wsSubprotocolV1},
		HTTPHeader:   h,
	})
}

func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}

func testGatewayConfig() GatewayConfig {
	cfg := DefaultGatewayConfig()
	cfg.HeartbeatInterval = time.Hour
	return cfg
}

func TestWSGateway_RejectsUnauthenticated(t *testing.T) {
	t.Parallel()

	ts, _ := startFeed(t, testGatewayConfig())
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	for _, cookie := range []string{"", "not-a-token"} {
		_, resp, err := dialFeed(t, ctx, ts.URL, "http://localhost", cookie)
		closeBody(resp)
		require.Error(t, err, "cookie %q", cookie)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestWSGateway_OriginPolicy(t *testing.T) {
	t.Parallel()

	ts, _ := startFeed(t, testGatewayConfig())
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	for _, origin := range []string{"", "https://evil.example.com"} {
		_, resp, err := dialFeed(t, ctx, ts.URL, origin, "user-42.a.b")
		closeBody(resp)
		require.Error(t, err, "origin %q", origin)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}
}

func TestWSGateway_StreamsTicketEvents(t *testing.T) {
	t.Parallel()

	ts, hub := startFeed(t, testGatewayConfig())
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	conn, resp, err := dialFeed(t, ctx, ts.URL, "http://localhost", "user-42.20260101T000000Z.sig")
	closeBody(resp)
	require.NoError(t, err)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()
	assert.Equal(t, wsSubprotocolV1, conn.Subprotocol())

	var ready Envelope
	require.NoError(t, wsjson.Read(ctx, conn, &ready))
	assert.Equal(t, TypeReady, ready.Type)
	assert.NotEmpty(t, ready.Session)
	require.NoError(t, ready.Validate())
	require.Equal(t, 1, hub.Len(), "client is subscribed before ready is sent")

	store := ticket.NewStore(ticket.WithPublisher(hub))
	created, err := store.Create(ctx, identity(42), ticket.ForCreate{Title: "fix bug"})
	require.NoError(t, err)
	_, err = store.Delete(ctx, identity(42), created.ID)
	require.NoError(t, err)

	var got []Envelope
	for range 2 {
		var env Envelope
		require.NoError(t, wsjson.Read(ctx, conn, &env))
		got = append(got, env)
	}

	assert.Equal(t, "ticket.created", got[0].Type)
	assert.Equal(t, "ticket.deleted", got[1].Type)
	for _, env := range got {
		require.NotNil(t, env.Ticket)
		assert.Equal(t, *wireTicket(created), *env.Ticket)
		assert.NoError(t, env.Validate())
		assert.Equal(t, uint64(42), env.ActorID)
	}
}

func TestWSGateway_UnsubscribesOnClose(t *testing.T) {
	t.Parallel()

	ts, hub := startFeed(t, testGatewayConfig())
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	conn, resp, err := dialFeed(t, ctx, ts.URL, "http://127.0.0.1", "user-1.a.b")
	closeBody(resp)
	require.NoError(t, err)

	var ready Envelope
	require.NoError(t, wsjson.Read(ctx, conn, &ready))
	require.Equal(t, 1, hub.Len())

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestDeriveOriginPatterns(t *testing.T) {
	t.Parallel()

	got := deriveOriginPatternsFromAllowedOrigins([]string{
		"http://localhost:3000", "https://LOCALHOST", "app.example.com:8443", "",
	})
	assert.Equal(t, []string{"app.example.com", "localhost"}, got)

	got = deriveOriginPatternsFromAllowedOrigins([]string{"http://localhost", " * "})
	assert.Equal(t, []string{"*"}, got)
}

func TestWSGateway_WildcardOriginAcceptsCrossOrigin(t *testing.T) {
	t.Parallel()

	cfg := testGatewayConfig()
	cfg.AllowedOrigins = []string{"*"}
	ts, _ := startFeed(t, cfg)
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	c, resp, err := dialFeed(t, ctx, ts.URL, "https://elsewhere.example.com", "user-42.a.b")
	closeBody(resp)
	require.NoError(t, err)

	var ready Envelope
	require.NoError(t, wsjson.Read(ctx, c, &ready))
	assert.Equal(t, TypeReady, ready.Type)
	require.NoError(t, c.Close(websocket.StatusNormalClosure, ""))
}

func TestGatewayConfigNormalized(t *testing.T) {
	t.Parallel()

	cfg := GatewayConfig{SendQueueSize: 1, AllowedOrigins: []string{" http://a ", " "}}.normalized()
	assert.Equal(t, wsMinSendQueueSize, cfg.SendQueueSize)
	assert.Equal(t, wsDefaultWriteTimeout, cfg.WriteTimeout)
	assert.Equal(t, heartbeatInterval, cfg.HeartbeatInterval)
	assert.Equal(t, []string{"http://a"}, cfg.AllowedOrigins)
}
