// Package realtime is a minimal Phoenix channel client for presence topics
// served by Supabase-compatible realtime endpoints.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
)

const (
	eventJoin          = "phx_join"
	eventLeave         = "phx_leave"
	eventReply         = "phx_reply"
	eventError         = "phx_error"
	eventClose         = "phx_close"
	eventHeartbeat     = "heartbeat"
	eventPresenceState = "presence_state"
	eventPresenceDiff  = "presence_diff"

	defaultHeartbeat = 30 * time.Second
	handshakeTimeout = 10 * time.Second
)

// ErrClosed is returned by channels whose connection has gone away.
var ErrClosed = errors.New("realtime channel closed")

// Handlers receive presence changes for a joined topic. Callbacks run on the
// connection's read goroutine in delivery order.
type Handlers struct {
	OnSync  func(keys []string)
	OnJoin  func(key string)
	OnLeave func(key string)
}

// Config describes the realtime endpoint.
type Config struct {
	URL               string
	APIKey            string
	HeartbeatInterval time.Duration
}

// Client opens presence channels against a realtime endpoint.
type Client struct {
	url       string
	heartbeat time.Duration
	dialer    *websocket.Dialer
}

// NewClient builds a client. Plain http(s) URLs are rewritten to the
// websocket endpoint.
func NewClient(cfg Config) (*Client, error) {
	endpoint, err := websocketURL(cfg.URL, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &Client{
		url:       endpoint,
		heartbeat: heartbeat,
		dialer:    &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}, nil
}

func websocketURL(raw, apiKey string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported realtime url scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/websocket") {
		u.Path = strings.TrimRight(u.Path, "/") + "/realtime/v1/websocket"
	}
	q := u.Query()
	if apiKey != "" {
		q.Set("apikey", apiKey)
	}
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

type meta struct {
	PhxRef string `json:"phx_ref"`
}

type entry struct {
	Metas []meta `json:"metas"`
}

type diffPayload struct {
	Joins  map[string]entry `json:"joins"`
	Leaves map[string]entry `json:"leaves"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// PresenceChannel is a joined presence topic on its own connection.
type PresenceChannel struct {
	topic    string
	conn     *websocket.Conn
	handlers Handlers

	writeMu sync.Mutex
	ref     int
	joinRef string

	mu      sync.Mutex
	replica map[string]map[string]struct{}
	closed  bool
	broken  bool

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// Join connects, joins topic and waits for the server to acknowledge. ctx
// bounds the handshake only.
func (c *Client) Join(ctx context.Context, topic string, handlers Handlers) (*PresenceChannel, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("topic required")
	}
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	ch := &PresenceChannel{
		topic:    "realtime:" + topic,
		conn:     conn,
		handlers: handlers,
		replica:  map[string]map[string]struct{}{},
		done:     make(chan struct{}),
	}
	if err := ch.join(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	go ch.readLoop()
	go ch.heartbeatLoop(c.heartbeat)
	return ch, nil
}

func (ch *PresenceChannel) join(ctx context.Context) error {
	payload := map[string]any{
		"config": map[string]any{
			"presence":  map[string]any{"key": ""},
			"broadcast": map[string]any{"self": false},
		},
	}
	ref, err := ch.send(ch.topic, eventJoin, payload)
	if err != nil {
		return fmt.Errorf("send join: %w", err)
	}
	ch.joinRef = ref

	if deadline, ok := ctx.Deadline(); ok {
		_ = ch.conn.SetReadDeadline(deadline)
		defer ch.conn.SetReadDeadline(time.Time{})
	}
	for {
		var msg message
		if err := ch.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("await join reply: %w", err)
		}
		if msg.Topic != ch.topic || msg.Event != eventReply || msg.Ref == nil || *msg.Ref != ref {
			continue
		}
		var reply replyPayload
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			return fmt.Errorf("decode join reply: %w", err)
		}
		if reply.Status != "ok" {
			return fmt.Errorf("join %s rejected: %s %s", ch.topic, reply.Status, string(reply.Response))
		}
		return nil
	}
}

func (ch *PresenceChannel) send(topic, event string, payload any) (string, error) {
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	ch.ref++
	ref := strconv.Itoa(ch.ref)
	msg := map[string]any{
		"topic":   topic,
		"event":   event,
		"payload": payload,
		"ref":     ref,
	}
	switch {
	case event == eventJoin:
		msg["join_ref"] = ref
	case ch.joinRef != "" && topic == ch.topic:
		msg["join_ref"] = ch.joinRef
	}
	return ref, ch.conn.WriteJSON(msg)
}

func (ch *PresenceChannel) readLoop() {
	defer ch.markClosed()
	for {
		var msg message
		if err := ch.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Topic != ch.topic {
			continue
		}
		switch msg.Event {
		case eventPresenceState:
			var state map[string]entry
			if err := json.Unmarshal(msg.Payload, &state); err != nil {
				continue
			}
			ch.applyState(state)
		case eventPresenceDiff:
			var diff diffPayload
			if err := json.Unmarshal(msg.Payload, &diff); err != nil {
				continue
			}
			ch.applyDiff(diff)
		case eventError, eventClose:
			return
		}
	}
}

func (ch *PresenceChannel) applyState(state map[string]entry) {
	ch.mu.Lock()
	ch.replica = make(map[string]map[string]struct{}, len(state))
	for key, e := range state {
		ch.replica[key] = refsOf(e)
	}
	keys := ch.keysLocked()
	ch.mu.Unlock()

	if ch.handlers.OnSync != nil {
		ch.handlers.OnSync(keys)
	}
}

// applyDiff follows Phoenix presence semantics: a key is present while it
// holds at least one meta.
func (ch *PresenceChannel) applyDiff(diff diffPayload) {
	var joined, left []string

	ch.mu.Lock()
	for key, e := range diff.Joins {
		refs, existed := ch.replica[key]
		if !existed {
			refs = map[string]struct{}{}
			ch.replica[key] = refs
		}
		for ref := range refsOf(e) {
			refs[ref] = struct{}{}
		}
		if !existed {
			joined = append(joined, key)
		}
	}
	for key, e := range diff.Leaves {
		refs, ok := ch.replica[key]
		if !ok {
			continue
		}
		for ref := range refsOf(e) {
			delete(refs, ref)
		}
		if len(refs) == 0 {
			delete(ch.replica, key)
			left = append(left, key)
		}
	}
	ch.mu.Unlock()

	for _, key := range joined {
		if ch.handlers.OnJoin != nil {
			ch.handlers.OnJoin(key)
		}
	}
	for _, key := range left {
		if ch.handlers.OnLeave != nil {
			ch.handlers.OnLeave(key)
		}
	}
}

func refsOf(e entry) map[string]struct{} {
	refs := make(map[string]struct{}, len(e.Metas))
	for i, m := range e.Metas {
		ref := m.PhxRef
		if ref == "" {
			ref = "#" + strconv.Itoa(i)
		}
		refs[ref] = struct{}{}
	}
	return refs
}

func (ch *PresenceChannel) keysLocked() []string {
	keys := make([]string, 0, len(ch.replica))
	for key := range ch.replica {
		keys = append(keys, key)
	}
	return keys
}

// PresenceState returns the keys currently present on the topic.
func (ch *PresenceChannel) PresenceState() ([]string, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return nil, ErrClosed
	}
	return ch.keysLocked(), nil
}

// Done is closed once the connection stops delivering events.
func (ch *PresenceChannel) Done() <-chan struct{} {
	return ch.done
}

func (ch *PresenceChannel) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ch.done:
			return
		case <-ticker.C:
			if _, err := ch.send("phoenix", eventHeartbeat, map[string]any{}); err != nil {
				ch.conn.Close()
				return
			}
		}
	}
}

func (ch *PresenceChannel) markClosed() {
	ch.mu.Lock()
	ch.closed = true
	ch.broken = true
	ch.mu.Unlock()
	ch.doneOnce.Do(func() { close(ch.done) })
}

// Close leaves the topic and closes the connection. It does not wait for
// in-flight callbacks, so it is safe to call from a handler.
func (ch *PresenceChannel) Close() error {
	ch.closeOnce.Do(func() {
		ch.mu.Lock()
		ch.closed = true
		broken := ch.broken
		ch.mu.Unlock()
		ch.doneOnce.Do(func() { close(ch.done) })

		if broken {
			ch.closeErr = ch.conn.Close()
			return
		}
		var err error
		if _, leaveErr := ch.send(ch.topic, eventLeave, map[string]any{}); leaveErr != nil {
			err = multierr.Append(err, fmt.Errorf("send leave: %w", leaveErr))
		}
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if closeErr := ch.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second)); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close message: %w", closeErr))
		}
		if connErr := ch.conn.Close(); connErr != nil {
			err = multierr.Append(err, fmt.Errorf("close connection: %w", connErr))
		}
		ch.closeErr = err
	})
	return ch.closeErr
}
