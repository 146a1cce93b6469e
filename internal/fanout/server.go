package fanout

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dotaedge/esport-signal/internal/models"
	"github.com/dotaedge/esport-signal/internal/telemetry"
)

const (
	clientSendBuf = 256
	writeDeadline = 5 * time.Second
	pongWait      = 30 * time.Second
	pingInterval  = 20 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type wsClient struct {
	// market filters the stream to one condition_id; empty means all.
	market string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
}

// Server fans stored signals out to connected WebSocket clients.
// It satisfies the processor's publisher interface.
type Server struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func NewServer() *Server {
	return &Server{
		clients: make(map[*wsClient]struct{}),
	}
}

// PublishSignal is called on the processor's goroutine. It serializes
// the signal and enqueues it to matching clients' send channels
// (non-blocking; slow clients lose messages, never stall the pipeline).
func (s *Server) PublishSignal(sig models.Signal) {
	data, err := MarshalSignal(sig)
	if err != nil {
		telemetry.Warnf("fanout: marshal error: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		if c.market != "" && c.market != sig.MarketConditionID {
			continue
		}
		select {
		case c.send <- data:
		default:
			telemetry.Warnf("fanout: dropping message for slow client")
		}
	}
}

// HandleWS is the HTTP handler for WebSocket upgrade requests.
// Consumers may subscribe to one market with ?market=<condition_id>.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		telemetry.Warnf("fanout: upgrade failed: %v", err)
		return
	}

	c := &wsClient{
		market: r.URL.Query().Get("market"),
		conn:   conn,
		send:   make(chan []byte, clientSendBuf),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	telemetry.Infof("fanout: client connected (market filter: %q)", c.market)

	go s.writePump(c)
	go s.readPump(c)
}

// writePump drains the client's send channel and writes to the WS
// connection. It owns the client lifecycle: on exit it removes the
// client from the map (so PublishSignal never sends to a stale channel)
// and closes the connection.
func (s *Server) writePump(c *wsClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.removeClient(c)
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				telemetry.Warnf("fanout: write error: %v", err)
				return
			}
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the connection alive by reading pongs / close frames.
// No upstream messages are expected from consumers.
// On exit it signals writePump via c.done (never closes c.send).
func (s *Server) readPump(c *wsClient) {
	defer close(c.done)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
	}
}

func (s *Server) removeClient(c *wsClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	telemetry.Infof("fanout: client disconnected")
}

// Run serves the fanout WebSocket endpoint until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		telemetry.Infof("fanout: server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
