package render

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/wordgraph/internal/domain/interaction"
	"github.com/okian/wordgraph/internal/domain/visual"
	"github.com/okian/wordgraph/pkg/logger"
	"github.com/okian/wordgraph/pkg/metrics"
)

const (
	clientBuffer = 32
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// Frame is one tick as sent to WebSocket clients.
type Frame struct {
	ID           string                `json:"id"`
	Seq          uint64                `json:"seq"`
	Transform    interaction.Transform `json:"transform"`
	Nodes        []visual.NodeStyle    `json:"nodes"`
	Links        []visual.LinkStyle    `json:"links"`
	RemovedNodes []string              `json:"removedNodes,omitempty"`
	RemovedLinks []string              `json:"removedLinks,omitempty"`
}

type client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithBroadcasterLogger sets a custom logger.
func WithBroadcasterLogger(l logger.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		if l != nil {
			b.log = l
		}
	}
}

// WithCheckOrigin overrides the upgrader origin check.
func WithCheckOrigin(f func(*http.Request) bool) BroadcasterOption {
	return func(b *Broadcaster) {
		if f != nil {
			b.upgrader.CheckOrigin = f
		}
	}
}

// Broadcaster is a FrameRenderer that streams each frame as JSON to every
// connected WebSocket client. Slow clients miss frames rather than stall
// the engine loop.
type Broadcaster struct {
	upgrader websocket.Upgrader
	log      logger.Logger

	clientsMu sync.RWMutex
	clients   map[string]*client
	onJoin    func()

	// frame state, touched only by the engine loop
	cur *Frame
	seq uint64
}

// NewBroadcaster creates a Broadcaster.
func NewBroadcaster(opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:     logger.GetOrNop().Named("websocket"),
		clients: make(map[string]*client),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OnJoin registers f to run whenever a client connects, typically asking the
// engine to repaint so the newcomer gets a full frame.
func (b *Broadcaster) OnJoin(f func()) {
	b.clientsMu.Lock()
	b.onJoin = f
	b.clientsMu.Unlock()
}

// Clients returns the number of connected clients.
func (b *Broadcaster) Clients() int {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	return len(b.clients)
}

// ServeHTTP upgrades the request and registers the client.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.RecordErrorByComponent("websocket", "connection_upgrade")
		b.log.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}
	b.clientsMu.Lock()
	b.clients[c.id] = c
	n := len(b.clients)
	onJoin := b.onJoin
	b.clientsMu.Unlock()
	metrics.UpdateRendererClients(n)
	b.log.Info(r.Context(), "renderer client connected", logger.String("client", c.id))

	go b.writePump(c)
	go b.readPump(c)

	if onJoin != nil {
		onJoin()
	}
}

// readPump discards client messages and detects disconnects.
func (b *Broadcaster) readPump(c *client) {
	defer b.remove(c)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		b.remove(c)
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (b *Broadcaster) remove(c *client) {
	c.closeOnce.Do(func() {
		b.clientsMu.Lock()
		if _, ok := b.clients[c.id]; ok {
			delete(b.clients, c.id)
			close(c.send)
		}
		n := len(b.clients)
		b.clientsMu.Unlock()
		metrics.UpdateRendererClients(n)
		_ = c.conn.Close()
		b.log.Info(context.Background(), "renderer client disconnected", logger.String("client", c.id))
	})
}

// Close disconnects every client.
func (b *Broadcaster) Close() error {
	b.clientsMu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.clientsMu.RUnlock()
	for _, c := range clients {
		b.remove(c)
	}
	return nil
}

func (b *Broadcaster) frame() *Frame {
	if b.cur == nil {
		b.BeginFrame(interaction.Identity())
	}
	return b.cur
}

// BeginFrame starts buffering a frame.
func (b *Broadcaster) BeginFrame(t interaction.Transform) {
	b.seq++
	b.cur = &Frame{ID: uuid.NewString(), Seq: b.seq, Transform: t}
}

func (b *Broadcaster) DrawNode(s visual.NodeStyle) {
	f := b.frame()
	f.Nodes = append(f.Nodes, s)
}

func (b *Broadcaster) DrawLink(s visual.LinkStyle) {
	f := b.frame()
	f.Links = append(f.Links, s)
}

func (b *Broadcaster) RemoveNode(id string) {
	f := b.frame()
	f.RemovedNodes = append(f.RemovedNodes, id)
}

func (b *Broadcaster) RemoveLink(key string) {
	f := b.frame()
	f.RemovedLinks = append(f.RemovedLinks, key)
}

// EndFrame sends the buffered frame to every client.
func (b *Broadcaster) EndFrame() {
	f := b.cur
	b.cur = nil
	if f == nil {
		return
	}
	data, err := json.Marshal(f)
	if err != nil {
		metrics.RecordErrorByComponent("websocket", "marshal")
		return
	}

	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	for _, c := range b.clients {
		select {
		case c.send <- data:
		default:
			metrics.RecordFrameDropped()
		}
	}
	metrics.RecordFrame()
}
