package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"market_sim/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	feedSendBuffer   = 256
	feedWriteTimeout = 5 * time.Second
	feedPingInterval = 30 * time.Second
	feedReadTimeout  = 60 * time.Second
)

// FeedFrame is one message pushed to chart clients.
type FeedFrame struct {
	Type string `json:"type"` // "tick", "news", "session"
	Data any    `json:"data"`
}

// FeedTick is the wire form of a tick frame.
type FeedTick struct {
	Price    int64   `json:"price"`
	High     int64   `json:"high"`
	Low      int64   `json:"low"`
	Volume   int64   `json:"volume"`
	Minute   float64 `json:"minute"`
	Clock    string  `json:"clock"`
	VolState string  `json:"vol_state"`
	Zone     string  `json:"zone"`
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// FeedHub broadcasts ticks to websocket subscribers. Slow clients drop
// frames instead of blocking the market loop.
type FeedHub struct {
	upgrader websocket.Upgrader
	rec      *Recorder

	mu      sync.RWMutex
	clients map[*feedClient]struct{}
	wg      sync.WaitGroup
}

var _ domain.TickSink = (*FeedHub)(nil)

// NewFeedHub creates an empty hub.
func NewFeedHub(rec *Recorder) *FeedHub {
	return &FeedHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		rec:     rec,
		clients: make(map[*feedClient]struct{}),
	}
}

// PublishTick implements domain.TickSink.
func (h *FeedHub) PublishTick(t domain.Tick) {
	h.Broadcast("tick", FeedTick{
		Price:    int64(t.Price),
		High:     int64(t.High),
		Low:      int64(t.Low),
		Volume:   t.Volume,
		Minute:   t.Timestamp,
		Clock:    t.Clock(),
		VolState: t.VolState.String(),
		Zone:     t.Zone.String(),
	})
}

// Broadcast sends a typed frame to every client.
func (h *FeedHub) Broadcast(kind string, data any) {
	msg, err := json.Marshal(FeedFrame{Type: kind, Data: data})
	if err != nil {
		slog.Error("Feed marshal failed", slog.String("type", kind), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slog.Warn("Feed client buffer full, dropping frame", slog.String("addr", c.conn.RemoteAddr().String()))
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *FeedHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the client.
func (h *FeedHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Feed upgrade failed", slog.Any("error", err))
		return
	}

	c := &feedClient{conn: conn, send: make(chan []byte, feedSendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.rec.ClientConnected()
	slog.Info("Feed client connected", slog.String("addr", conn.RemoteAddr().String()))

	h.wg.Add(2)
	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *FeedHub) remove(c *feedClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.rec.ClientDisconnected()
		slog.Info("Feed client disconnected", slog.String("addr", c.conn.RemoteAddr().String()))
	}
}

// readLoop only drains control frames; clients never send data.
func (h *FeedHub) readLoop(c *feedClient) {
	defer h.wg.Done()
	defer h.remove(c)

	c.conn.SetReadDeadline(time.Now().Add(feedReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedReadTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Feed read error", slog.Any("error", err))
			}
			return
		}
	}
}

func (h *FeedHub) writeLoop(c *feedClient) {
	defer h.wg.Done()
	ticker := time.NewTicker(feedPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and waits for their goroutines.
func (h *FeedHub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		h.rec.ClientDisconnected()
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// NewFeedMux routes the websocket feed and the Prometheus endpoint.
func NewFeedMux(cfg FeedConfig, hub *FeedHub, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, hub)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ServeFeed runs the feed server until ctx is canceled.
func ServeFeed(ctx context.Context, cfg FeedConfig, hub *FeedHub, gatherer prometheus.Gatherer) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewFeedMux(cfg, hub, gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Feed server listening", slog.String("addr", cfg.Addr), slog.String("path", cfg.Path))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return domain.NewFatalNetworkError("feed listen", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("feed shutdown: %w", err)
	}
	return nil
}
