package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/unforced/nature-of-ai/internal/domain/playground"
	"github.com/unforced/nature-of-ai/internal/infrastructure/monitoring"
	"github.com/unforced/nature-of-ai/internal/sandbox"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// Controller is the playground surface used by stream clients.
// *sandbox.Host implements it.
type Controller interface {
	Run() (uint64, error)
	Stop() error
	Reset() error
	SetCode(code string)
	ClearOutput()
	SetError(message *string)
	SetTheme(theme playground.Theme)
	Snapshot() playground.Snapshot
	Status() sandbox.Status
	Subscribe(l playground.Listener) func()
}

// Handler manages WebSocket connections
type Handler struct {
	host     Controller
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
	active  sync.WaitGroup
}

// NewHandler creates a new WebSocket handler. metrics may be nil.
func NewHandler(host Controller, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		host:    host,
		metrics: metrics,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		clients: make(map[string]*client),
	}
}

// client is one connection. Store listeners only record the newest
// snapshot and wake the writer, so they never block the host.
type client struct {
	id   string
	conn *websocket.Conn

	mu      sync.Mutex
	pending *playground.Snapshot
	seq     uint64

	wake chan struct{}
	out  chan Reply
	done chan struct{}
}

func (c *client) offer(snap playground.Snapshot) {
	c.mu.Lock()
	c.pending = &snap
	c.seq++
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *client) take() (playground.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return playground.Snapshot{}, false
	}
	snap := *c.pending
	c.pending = nil
	return snap, true
}

// HandleConnection upgrades the request and serves the client until it
// disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		wake: make(chan struct{}, 1),
		out:  make(chan Reply, 16),
		done: make(chan struct{}),
	}
	log := h.logger.With(zap.String("conn_id", cl.id))

	if !h.add(cl) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	defer h.active.Done()
	defer h.remove(cl)

	unsubscribe := h.host.Subscribe(cl.offer)
	defer unsubscribe()
	h.sendInitial(cl)

	go h.writeLoop(cl, log)
	h.readLoop(cl, log)

	close(cl.done)
	_ = conn.Close()
	log.Debug("WebSocket client disconnected")
}

// sendInitial queues the current snapshot unless a newer one already
// arrived through the subscription.
func (h *Handler) sendInitial(cl *client) {
	cl.mu.Lock()
	before := cl.seq
	cl.mu.Unlock()

	snap := h.host.Snapshot()

	cl.mu.Lock()
	if cl.seq == before {
		cl.pending = &snap
	}
	cl.mu.Unlock()

	select {
	case cl.wake <- struct{}{}:
	default:
	}
}

func (h *Handler) readLoop(cl *client, log *zap.Logger) {
	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		var cmd Command
		if err := sonic.Unmarshal(data, &cmd); err != nil {
			h.reply(cl, Reply{Type: TypeError, Message: "invalid message"})
			continue
		}
		h.recordMessage("in", cmd.Type)
		h.dispatch(cl, cmd)
	}
}

func (h *Handler) dispatch(cl *client, cmd Command) {
	switch cmd.Type {
	case TypeRun:
		runID, err := h.host.Run()
		if err != nil {
			h.replyError(cl, err)
			return
		}
		h.reply(cl, Reply{Type: TypeRunStarted, RunID: runID})
	case TypeStop:
		if err := h.host.Stop(); err != nil {
			h.replyError(cl, err)
		}
	case TypeReset:
		if err := h.host.Reset(); err != nil {
			h.replyError(cl, err)
		}
	case TypeClearOutput:
		h.host.ClearOutput()
	case TypeSetCode:
		if cmd.Code == nil {
			h.reply(cl, Reply{Type: TypeError, Message: "code is required"})
			return
		}
		h.host.SetCode(*cmd.Code)
	case TypeSetTheme:
		theme, err := playground.ParseTheme(cmd.Theme)
		if err != nil {
			h.replyError(cl, err)
			return
		}
		h.host.SetTheme(theme)
	case TypeSetError:
		h.host.SetError(cmd.Error)
	case TypePing:
		h.reply(cl, Reply{Type: TypePong})
	default:
		h.reply(cl, Reply{Type: TypeError, Message: "unknown message type"})
	}
}

func (h *Handler) writeLoop(cl *client, log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var (
			payload any
			msgType string
		)

		select {
		case <-cl.done:
			return
		case <-cl.wake:
			snap, ok := cl.take()
			if !ok {
				continue
			}
			payload = SnapshotMessage{Type: TypeSnapshot, Snapshot: snap, Status: h.host.Status()}
			msgType = TypeSnapshot
		case r := <-cl.out:
			payload = r
			msgType = r.Type
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = cl.conn.Close()
				return
			}
			continue
		}

		data, err := sonic.Marshal(payload)
		if err != nil {
			log.Error("failed to encode message", zap.String("type", msgType), zap.Error(err))
			continue
		}
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug("WebSocket write failed", zap.Error(err))
			_ = cl.conn.Close()
			return
		}
		h.recordMessage("out", msgType)
	}
}

func (h *Handler) reply(cl *client, r Reply) {
	select {
	case cl.out <- r:
	case <-cl.done:
	}
}

func (h *Handler) replyError(cl *client, err error) {
	message := err.Error()
	if errors.Is(err, sandbox.ErrHostClosed) {
		message = "playground is shutting down"
	}
	h.reply(cl, Reply{Type: TypeError, Message: message})
}

func (h *Handler) recordMessage(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}

// add registers cl unless the handler is closed.
func (h *Handler) add(cl *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[cl.id] = cl
	h.active.Add(1)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	return true
}

func (h *Handler) remove(cl *client) {
	h.mu.Lock()
	delete(h.clients, cl.id)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
}

// Count returns the number of connected clients.
func (h *Handler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close sends a close frame to every client, drops the connections and
// waits for their handlers to return. Later upgrades are refused.
func (h *Handler) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, cl := range clients {
		_ = cl.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = cl.conn.Close()
	}
	h.active.Wait()
}
