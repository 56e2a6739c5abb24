package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"CryptoRNN/internal/domain/models"
	domrepo "CryptoRNN/internal/domain/repository"
	xlogger "CryptoRNN/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 16
	maxFrameSize = 512
)

// ProgressEvent is the message pushed to websocket subscribers.
type ProgressEvent struct {
	Type  string             `json:"type"`
	Run   models.Run         `json:"run"`
	Epoch models.EpochResult `json:"epoch"`
}

// ProgressHub streams epoch results to websocket clients on /ws/progress.
// Slow clients whose buffer is full are disconnected.
// Clients that answer no ping within two ping intervals are dropped too.
type ProgressHub struct {
	logger   *xlogger.Logger
	upgrader websocket.Upgrader
	ping     time.Duration
	pongWait time.Duration

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// HubOption configures ProgressHub.
type HubOption func(*ProgressHub)

// WithPingInterval sets how often clients are pinged. The pong deadline is
// twice the interval.
func WithPingInterval(d time.Duration) HubOption {
	return func(h *ProgressHub) {
		if d > 0 {
			h.ping = d
			h.pongWait = 2 * d
		}
	}
}

func NewProgressHub(logger *xlogger.Logger, opts ...HubOption) *ProgressHub {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &ProgressHub{
		logger:   logger,
		ping:     pingInterval,
		pongWait: 2 * pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ domrepo.HistorySink = (*ProgressHub)(nil)

func (h *ProgressHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/progress", h.Serve)
}

// Serve upgrades the request and blocks until the client goes away.
func (h *ProgressHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}

	cl := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.add(cl) {
		conn.Close()
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(cl)
	}()

	h.readPump(cl)
	h.remove(cl)
	<-done
	conn.Close()
	return nil
}

// RecordEpoch broadcasts an epoch result to every connected client.
func (h *ProgressHub) RecordEpoch(_ context.Context, run models.Run, e models.EpochResult) error {
	msg, err := json.Marshal(ProgressEvent{Type: "epoch", Run: run, Epoch: e})
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- msg:
		default:
			delete(h.clients, cl)
			close(cl.send)
			h.logger.Warn("dropping slow websocket client", xlogger.String("remote", cl.conn.RemoteAddr().String()))
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *ProgressHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *ProgressHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
}

func (h *ProgressHub) add(cl *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	return true
}

func (h *ProgressHub) remove(cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// readPump drains client frames so control messages are processed. Each pong
// pushes the read deadline out; a silent client times out here.
func (h *ProgressHub) readPump(cl *wsClient) {
	cl.conn.SetReadLimit(maxFrameSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket client gone", xlogger.Error(err))
			}
			return
		}
	}
}

func (h *ProgressHub) writePump(cl *wsClient) {
	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				cl.conn.Close()
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				cl.conn.Close()
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.conn.Close()
				return
			}
		}
	}
}
