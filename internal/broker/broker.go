// Package broker fans alert lifecycle events out to WebSocket subscribers.
// Each client gets a buffered send queue; a client that cannot keep up or
// whose write fails is disconnected rather than allowed to stall the feed.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/couchcryptid/nws-alert-relay/internal/domain"
	"github.com/couchcryptid/nws-alert-relay/internal/manager"
	"github.com/couchcryptid/nws-alert-relay/internal/observability"
)

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Outbound envelope types.
const (
	TypeConnectionAck = "connection_ack"
	TypeAlertNew      = "alert_new"
	TypeAlertUpdate   = "alert_update"
	TypeAlertRemove   = "alert_remove"
	TypeAlertBulk     = "alert_bulk"
	TypeSystemStatus  = "system_status"
	TypeError         = "error"
	TypePong          = "pong"
)

// Well-known topics. Alert events also carry derived topics such as
// "state:OH" and "type:tornado_warning", so clients can narrow their feed. A
// client with no subscriptions receives everything.
const (
	TopicAlerts = "alerts"
	TopicStatus = "status"
)

// inbound is a client request frame. Request payloads ride in data, e.g.
// {"type": "subscribe", "data": {"topics": ["state:OH"]}}.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// topicsPayload is the data member of subscribe and unsubscribe requests.
type topicsPayload struct {
	Topics []string `json:"topics"`
}

// Handler is an application callback for a custom inbound request type.
type Handler func(clientID string, data json.RawMessage)

// AlertStore is the slice of the alert manager the broker reads snapshots
// from.
type AlertStore interface {
	Active() []*domain.Alert
	Statistics() manager.Statistics
	RecentProducts(limit int) []manager.RecentProduct
}

const (
	sendQueueSize = 64
	writeTimeout  = 10 * time.Second
)

// Broker owns the set of connected WebSocket clients.
type Broker struct {
	store   AlertStore
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	clients  map[string]*client
	handlers map[string]Handler
}

type client struct {
	id     string
	send   chan Envelope
	cancel context.CancelFunc

	mu       sync.Mutex
	topics   map[string]bool
	lastPing time.Time
}

// wants reports whether the client should receive a message published on the
// given topics. A client that never subscribed receives everything.
func (c *client) wants(topics []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.topics) == 0 {
		return true
	}
	for _, t := range topics {
		if c.topics[t] {
			return true
		}
	}
	return false
}

func (c *client) setTopics(topics []string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		if on {
			c.topics[t] = true
		} else {
			delete(c.topics, t)
		}
	}
}

func (c *client) markPing(now time.Time) {
	c.mu.Lock()
	c.lastPing = now
	c.mu.Unlock()
}

// New creates a Broker. A nil clock uses the real one.
func New(store AlertStore, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Broker {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Broker{
		store:    store,
		clock:    clk,
		logger:   logger.With("component", "broker"),
		metrics:  metrics,
		clients:  make(map[string]*client),
		handlers: make(map[string]Handler),
	}
}

// RegisterHandler installs a callback for a custom inbound request type,
// overriding the built-in handling for that type. Register before serving
// connections.
func (b *Broker) RegisterHandler(msgType string, h Handler) {
	b.mu.Lock()
	b.handlers[msgType] = h
	b.mu.Unlock()
}

// statusInterval is how often connected clients get an unsolicited
// system_status frame.
const statusInterval = 30 * time.Second

// Run consumes the manager's event stream and fans each event out until the
// context ends, pushing periodic status frames in between.
func (b *Broker) Run(ctx context.Context, events <-chan manager.Event) {
	ticker := b.clock.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			b.broadcast(ev)
		case <-ticker.Chan():
			b.BroadcastStatus()
		}
	}
}

// alertTopics derives the topics an alert event publishes on: the firehose
// topic, one per affected state, and one for the event type.
func alertTopics(alert *domain.Alert) []string {
	topics := []string{TopicAlerts}

	seen := map[string]struct{}{}
	for _, ugc := range alert.AffectedAreas {
		if len(ugc) < 2 {
			continue
		}
		state := ugc[:2]
		if _, ok := seen[state]; ok {
			continue
		}
		seen[state] = struct{}{}
		topics = append(topics, "state:"+state)
	}

	if alert.EventName != "" {
		name := strings.ReplaceAll(strings.ToLower(alert.EventName), " ", "_")
		topics = append(topics, "type:"+name)
	}
	return topics
}

func (b *Broker) broadcast(ev manager.Event) {
	env := Envelope{Timestamp: b.clock.Now().UTC()}
	switch ev.Type {
	case manager.EventAlertNew:
		env.Type = TypeAlertNew
		env.Data = ev.Alert
	case manager.EventAlertUpdate:
		env.Type = TypeAlertUpdate
		env.Data = ev.Alert
	case manager.EventAlertRemove:
		env.Type = TypeAlertRemove
		env.Data = map[string]any{
			"product_id": ev.Alert.ProductID,
			"reason":     ev.Reason,
		}
	default:
		return
	}

	b.publish(alertTopics(ev.Alert), env)
}

// publish delivers an envelope to every client whose subscriptions match the
// message topics.
func (b *Broker) publish(topics []string, env Envelope) {
	b.mu.Lock()
	targets := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		targets = append(targets, c)
	}
	b.mu.Unlock()

	for _, c := range targets {
		if !c.wants(topics) {
			continue
		}
		b.enqueue(c, env)
	}
}

// SendToClient queues an envelope for one client by id. Returns false when
// the client is not connected.
func (b *Broker) SendToClient(clientID string, env Envelope) bool {
	b.mu.Lock()
	c, ok := b.clients[clientID]
	b.mu.Unlock()
	if !ok {
		return false
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = b.clock.Now().UTC()
	}
	b.enqueue(c, env)
	return true
}

// enqueue hands an envelope to the client's writer. A full queue drops the
// client; its writer is wedged or too slow to matter.
func (b *Broker) enqueue(c *client, env Envelope) {
	select {
	case c.send <- env:
	default:
		b.logger.Warn("client send queue full, disconnecting", "client_id", c.id)
		b.metrics.SendFailures.Inc()
		b.drop(c.id)
	}
}

// drop removes a client and cancels its session. The send channel is left
// open; both loops exit through the cancelled context.
func (b *Broker) drop(id string) {
	b.mu.Lock()
	c, ok := b.clients[id]
	if ok {
		delete(b.clients, id)
	}
	b.metrics.ConnectedClients.Set(float64(len(b.clients)))
	b.mu.Unlock()

	if ok {
		c.cancel()
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// ServeHTTP upgrades the request to a WebSocket session and serves it until
// the client disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		b.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// No initial subscriptions: an unfiltered client receives everything
	// until it narrows the feed with a subscribe request.
	c := &client{
		id:     uuid.NewString(),
		send:   make(chan Envelope, sendQueueSize),
		cancel: cancel,
		topics: map[string]bool{},
	}

	b.mu.Lock()
	b.clients[c.id] = c
	b.metrics.ConnectedClients.Set(float64(len(b.clients)))
	b.mu.Unlock()
	defer b.drop(c.id)

	b.logger.Info("client connected", "client_id", c.id, "remote", r.RemoteAddr)
	defer b.logger.Info("client disconnected", "client_id", c.id)

	go b.writeLoop(ctx, cancel, conn, c)

	b.enqueue(c, Envelope{
		Type:      TypeConnectionAck,
		Data:      map[string]any{"client_id": c.id},
		Timestamp: b.clock.Now().UTC(),
	})
	b.sendBulk(c)

	b.readLoop(ctx, conn, c)
	conn.Close(websocket.StatusNormalClosure, "")
}

func (b *Broker) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *client) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-c.send:
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, env)
			wcancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					b.logger.Debug("write failed", "client_id", c.id, "error", err)
					b.metrics.SendFailures.Inc()
				}
				return
			}
			b.metrics.MessagesSent.WithLabelValues(env.Type).Inc()
		}
	}
}

func (b *Broker) readLoop(ctx context.Context, conn *websocket.Conn, c *client) {
	for {
		var req inbound
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			return
		}

		b.mu.Lock()
		handler := b.handlers[req.Type]
		b.mu.Unlock()
		if handler != nil {
			handler(c.id, req.Data)
			continue
		}

		switch req.Type {
		case "ping":
			now := b.clock.Now().UTC()
			c.markPing(now)
			b.enqueue(c, Envelope{Type: TypePong, Timestamp: now})
		case "subscribe":
			c.setTopics(requestTopics(req.Data), true)
		case "unsubscribe":
			c.setTopics(requestTopics(req.Data), false)
		case "get_alerts":
			b.sendBulk(c)
		case "get_status":
			b.enqueue(c, Envelope{
				Type:      TypeSystemStatus,
				Data:      b.store.Statistics(),
				Timestamp: b.clock.Now().UTC(),
			})
		default:
			b.enqueue(c, Envelope{
				Type:      TypeError,
				Data:      map[string]any{"message": "unknown request type: " + req.Type},
				Timestamp: b.clock.Now().UTC(),
			})
		}
	}
}

func requestTopics(data json.RawMessage) []string {
	var p topicsPayload
	if len(data) == 0 || json.Unmarshal(data, &p) != nil {
		return nil
	}
	return p.Topics
}

// sendBulk delivers the full active set, the snapshot a client renders from
// before incremental events take over.
func (b *Broker) sendBulk(c *client) {
	alerts := b.store.Active()
	b.enqueue(c, Envelope{
		Type: TypeAlertBulk,
		Data: map[string]any{
			"alerts": alerts,
			"count":  len(alerts),
		},
		Timestamp: b.clock.Now().UTC(),
	})
}

// BroadcastStatus pushes a system_status frame to every client whose
// subscriptions cover the status topic.
func (b *Broker) BroadcastStatus() {
	b.publish([]string{TopicStatus}, Envelope{
		Type:      TypeSystemStatus,
		Data:      b.store.Statistics(),
		Timestamp: b.clock.Now().UTC(),
	})
}
