// Package ws is the real-time boundary of the notification service. It accepts
// WebSocket connections, identifies them from the session cookie, keeps the
// presence registry current and writes notification frames to clients.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/ugram-notify/internal/domain"
	"github.com/ugram-notify/internal/observability/metrics"
	"github.com/ugram-notify/internal/pkg/id"
	"github.com/ugram-notify/internal/presence"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	defaultSendBuffer = 16
	defaultIdentify   = 5 * time.Second
)

// Identifier resolves a session token to a user id.
type Identifier interface {
	ResolveUserIDFromToken(ctx context.Context, token string) (string, bool)
}

// Frame is the JSON text frame a client receives for each notification.
type Frame struct {
	Event domain.Kind `json:"event"`
	Data  any         `json:"data"`
}

// Options configures a Gateway.
type Options struct {
	CookieName      string
	AllowedOrigins  []string
	SendBuffer      int
	IdentifyTimeout time.Duration
	Logger          logrus.FieldLogger
	Metrics         *metrics.NotificationMetrics
	NewID           func() string
}

// Gateway owns every open connection and routes notification frames to them.
type Gateway struct {
	registry        *presence.Registry
	auth            Identifier
	upgrader        websocket.Upgrader
	cookieName      string
	sendBuffer      int
	identifyTimeout time.Duration
	log             logrus.FieldLogger
	metrics         *metrics.NotificationMetrics
	newID           func() string

	mu     sync.RWMutex
	conns  map[string]*conn
	closed bool
	wg     sync.WaitGroup
}

func NewGateway(registry *presence.Registry, auth Identifier, opts Options) *Gateway {
	if opts.CookieName == "" {
		opts.CookieName = "token"
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.IdentifyTimeout <= 0 {
		opts.IdentifyTimeout = defaultIdentify
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.NewID == nil {
		opts.NewID = id.New
	}
	g := &Gateway{
		registry:        registry,
		auth:            auth,
		cookieName:      opts.CookieName,
		sendBuffer:      opts.SendBuffer,
		identifyTimeout: opts.IdentifyTimeout,
		log:             opts.Logger.WithField("component", "gateway"),
		metrics:         opts.Metrics,
		newID:           opts.NewID,
		conns:           make(map[string]*conn),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(opts.AllowedOrigins),
	}
	g.log.Info("Notifications gateway initialized")
	return g
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		http.Error(w, `{"error":"shutting down"}`, http.StatusServiceUnavailable)
		return
	}
	g.wg.Add(1)
	g.mu.Unlock()
	defer g.wg.Done()

	wsConn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		g.log.WithError(err).Debug("WebSocket upgrade failed")
		return
	}

	c := newConn(g.newID(), wsConn, g.sendBuffer)
	entry := g.log.WithField("conn_id", c.id)
	if !g.track(c) {
		_ = wsConn.Close()
		return
	}
	entry.Info("Client connected")

	ctx, cancel := context.WithTimeout(r.Context(), g.identifyTimeout)
	userID, ok := g.Identify(ctx, c.id, r.Header.Get("Cookie"))
	cancel()
	if ok {
		c.identify(userID)
		g.registry.Register(userID, c.id)
		g.metrics.SetRegisteredUsers(g.registry.Len())
		entry = entry.WithField("user_id", userID)
		entry.Debug("Client identified")
	} else {
		c.setState(StateUnidentified)
		entry.Debug("Client left unidentified")
	}
	g.metrics.ConnectionOpened(ok)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		c.writePump(entry)
	}()
	c.readPump()

	g.disconnect(c)
	entry.Info("Client disconnected")
}

// Identify extracts the session token from a raw Cookie header and resolves it
// to a user id. Missing or invalid credentials yield false; it never fails.
func (g *Gateway) Identify(ctx context.Context, connID, rawCookie string) (string, bool) {
	token := tokenFromCookie(rawCookie, g.cookieName)
	if token == "" {
		g.log.WithField("conn_id", connID).Debug("No session token on connection")
		return "", false
	}
	return g.auth.ResolveUserIDFromToken(ctx, token)
}

// Deliver emits kind with payload to the connection connID. It does not wait
// for the write and reports nothing; an unknown or closing connection, or a
// full send buffer, drops the frame.
func (g *Gateway) Deliver(connID string, kind domain.Kind, payload any) {
	_, _ = g.deliver(connID, kind, payload)
}

// TryDeliver resolves userID and delivers to its connection in one step. The
// presence registry cannot change between the lookup and the hand-off.
func (g *Gateway) TryDeliver(userID string, kind domain.Kind, payload any) bool {
	entry := g.log.WithFields(logrus.Fields{"user_id": userID, "kind": kind.String()})
	entry.Debug("Sending notification")

	var delivered, attached bool
	found := g.registry.Do(userID, func(connID string) {
		delivered, attached = g.deliver(connID, kind, payload)
	})
	// A registered connection that is no longer attached is mid-disconnect:
	// the user is already gone from the gateway's point of view.
	if !found || !attached {
		g.metrics.Dropped(kind.String(), metrics.DropOffline)
		entry.Debug("User not connected, notification dropped")
		return false
	}
	if delivered {
		g.metrics.Delivered(kind.String())
	}
	return delivered
}

// Connections returns the number of open connections.
func (g *Gateway) Connections() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

// OnlineUsers returns the number of users with a registered connection.
func (g *Gateway) OnlineUsers() int {
	return g.registry.Len()
}

// Close refuses new connections, closes every open one and waits for their
// goroutines to exit or for ctx to end.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	for _, c := range g.conns {
		c.close()
	}
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deliver hands one frame to connID's write pump. attached reports whether
// connID was in the connection table; when it is false nothing is recorded.
func (g *Gateway) deliver(connID string, kind domain.Kind, payload any) (delivered, attached bool) {
	g.mu.RLock()
	c, ok := g.conns[connID]
	g.mu.RUnlock()
	if !ok {
		return false, false
	}

	frame, err := json.Marshal(Frame{Event: kind, Data: payload})
	if err != nil {
		g.metrics.Dropped(kind.String(), metrics.DropEncode)
		g.log.WithError(err).WithField("kind", kind.String()).Error("Could not encode notification")
		return false, true
	}
	if !c.enqueue(frame) {
		g.metrics.Dropped(kind.String(), metrics.DropBufferFull)
		g.log.WithFields(logrus.Fields{"conn_id": connID, "kind": kind.String()}).
			Warn("Connection not writable, notification dropped")
		return false, true
	}
	return true, true
}

func (g *Gateway) track(c *conn) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.conns[c.id] = c
	return true
}

// disconnect moves c to Closed. An identified connection unregisters the user
// it was identified as at connect time.
func (g *Gateway) disconnect(c *conn) {
	c.close()
	g.mu.Lock()
	delete(g.conns, c.id)
	g.mu.Unlock()

	if userID, ok := c.identity(); ok {
		g.registry.Unregister(userID)
		g.metrics.SetRegisteredUsers(g.registry.Len())
	}
	c.setState(StateClosed)
	g.metrics.ConnectionClosed()
}

func tokenFromCookie(rawCookie, name string) string {
	if rawCookie == "" {
		return ""
	}
	// http.Request.Cookie skips malformed pairs instead of rejecting the line.
	r := http.Request{Header: http.Header{"Cookie": {rawCookie}}}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
