// Package main provides a CI-friendly smoke test for a running ticketd.
//
// It logs in, subscribes to the ticket event feed, creates and deletes one
// ticket over HTTP, and expects both events on the feed in order.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/pflag"

	v1 "ticketd/shared/contracts/feed/v1"
)

const maxReadBytes = 1 << 20 // 1MiB

type smokeClient struct {
	base    *url.URL
	http    *http.Client
	conn    *websocket.Conn
	session string
	timeout time.Duration
}

func main() {
	var (
		baseURL  = pflag.String("url", "http://127.0.0.1:8080", "ticketd base URL")
		origin   = pflag.String("origin", "http://localhost", "Origin header for the feed handshake")
		username = pflag.String("user", "demo1", "login username")
		pwd      = pflag.String("pwd", "welcome", "login password")
		title    = pflag.String("title", "smoke "+time.Now().UTC().Format(time.RFC3339), "ticket title")
		timeout  = pflag.Duration("timeout", 7*time.Second, "per-step timeout")
		verbose  = pflag.BoolP("verbose", "v", false, "verbose output")
	)
	pflag.Parse()

	base, err := validateBaseURL(*baseURL)
	if err != nil {
		fatalf("invalid --url: %v", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		fatalf("cookie jar: %v", err)
	}
	c := &smokeClient{
		base:    base,
		http:    &http.Client{Jar: jar},
		timeout: *timeout,
	}

	root := context.Background()

	c.mustLogin(root, *username, *pwd)
	c.mustConnect(root, *origin)
	defer closeWS(c.conn)

	if *verbose {
		fmt.Printf("connected: session=%s origin=%q\n", c.session, *origin)
	}

	var created v1.Ticket
	c.mustCall(root, http.MethodPost, "/api/tickets", map[string]string{"title": *title}, http.StatusCreated, &created)

	env := c.mustReadUntilType(root, v1.TypeTicketCreated)
	assertTicket(env, created)

	var deleted v1.Ticket
	c.mustCall(root, http.MethodDelete, "/api/tickets/"+strconv.FormatUint(created.ID, 10), nil, http.StatusOK, &deleted)

	env = c.mustReadUntilType(root, v1.TypeTicketDeleted)
	assertTicket(env, deleted)

	fmt.Printf("OK: session=%s ticket_id=%d owner_id=%d\n", c.session, created.ID, created.OwnerID)
}

func validateBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

func (c *smokeClient) endpoint(path string) string {
	return c.base.JoinPath(path).String()
}

func (c *smokeClient) mustLogin(parent context.Context, username, pwd string) {
	var out struct {
		Result struct {
			Success bool `json:"success"`
		} `json:"result"`
	}
	c.mustCall(parent, http.MethodPost, "/api/login", map[string]string{"username": username, "pwd": pwd}, http.StatusOK, &out)
	if !out.Result.Success {
		fatalf("login: success=false")
	}
}

func (c *smokeClient) mustCall(parent context.Context, method, path string, in any, wantStatus int, out any) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			fatalf("marshal %s %s: %v", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		fatalf("request %s %s: %v", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReadBytes))
	if err != nil {
		fatalf("%s %s: read body: %v", method, path, err)
	}
	if resp.StatusCode != wantStatus {
		fatalf("%s %s: status=%d want=%d body=%s", method, path, resp.StatusCode, wantStatus, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

func (c *smokeClient) mustConnect(parent context.Context, origin string) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	wsURL := *c.base.JoinPath("/api/tickets/ws")
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL.String(), &websocket.DialOptions{
		HTTPClient:   c.http,
		Subprotocols: []string{v1.Subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect feed: %v", err)
	}

	assertSubprotocol(resp, v1.Subprotocol)
	conn.SetReadLimit(maxReadBytes)
	c.conn = conn

	ready := c.mustReadUntilType(parent, v1.TypeReady)
	if strings.TrimSpace(ready.Session) == "" {
		fatalf("feed.ready missing session_id")
	}
	c.session = ready.Session
}

func assertSubprotocol(resp *http.Response, want string) {
	if resp == nil {
		return
	}
	got := strings.TrimSpace(resp.Header.Get("Sec-WebSocket-Protocol"))
	if got != want {
		fatalf("subprotocol mismatch: got=%q want=%q", got, want)
	}
}

func (c *smokeClient) mustReadUntilType(parent context.Context, wantType string) v1.Envelope {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	for {
		var env v1.Envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			fatalf("waiting for %q: %v", wantType, err)
		}
		if err := env.Validate(); err != nil {
			fatalf("bad envelope: %v", err)
		}
		if env.Type == wantType {
			return env
		}
		// Events from other clients may interleave.
		if strings.HasPrefix(env.Type, "ticket.") {
			continue
		}
		fatalf("unexpected envelope type: got=%q want=%q", env.Type, wantType)
	}
}

func assertTicket(env v1.Envelope, want v1.Ticket) {
	if env.Ticket == nil {
		fatalf("%s: missing ticket", env.Type)
	}
	if *env.Ticket != want {
		fatalf("%s: ticket mismatch: got=%+v want=%+v", env.Type, *env.Ticket, want)
	}
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
