package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"market_sim/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	feedClientMaxRetries = 10
	feedClientBaseDelay  = 500 * time.Millisecond
	feedClientMaxDelay   = 30 * time.Second
	feedClientUserAgent  = "market-sim-watch/0.1"
)

// FeedMessage is one decoded frame from a feed server. Tick is set for
// "tick" frames; other frames keep their raw payload.
type FeedMessage struct {
	Type string
	Tick *FeedTick
	Raw  json.RawMessage
}

type feedFrameIn struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// FeedClient subscribes to a FeedHub over websocket and reconnects with
// exponential backoff until a non-retriable error or Disconnect.
type FeedClient struct {
	url       string
	out       chan<- FeedMessage
	conn      *websocket.Conn
	mu        sync.RWMutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	fatal     chan error
}

// NewFeedClient creates a client for url (ws://host:port/path).
func NewFeedClient(url string, out chan<- FeedMessage) *FeedClient {
	return &FeedClient{
		url:   url,
		out:   out,
		fatal: make(chan error, 1),
	}
}

// Connect starts the connection loop in the background.
func (c *FeedClient) Connect(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.connectionLoop(ctx)

	return nil
}

// Fatal delivers the error that stopped the loop for good.
func (c *FeedClient) Fatal() <-chan error {
	return c.fatal
}

func (c *FeedClient) connectionLoop(ctx context.Context) {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Feed client panic recovered", slog.Any("panic", r))
		}
	}()

	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("Feed client loop stopped")
			return
		default:
		}

		err := c.connect(ctx)
		if err != nil {
			if !domain.IsRetriable(err) {
				slog.Error("Feed client giving up", slog.Any("error", err))
				c.fatal <- err
				return
			}
			slog.Warn("Feed connection failed",
				slog.Any("error", err),
				slog.Int("retry", retryCount),
			)

			delay := feedBackoff(retryCount)
			retryCount++
			if retryCount > feedClientMaxRetries {
				slog.Error("Feed max retries exceeded, resetting counter")
				retryCount = 0
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retryCount = 0
		c.readLoop(ctx)
	}
}

// feedBackoff doubles from feedClientBaseDelay up to feedClientMaxDelay.
func feedBackoff(retryCount int) time.Duration {
	delay := float64(feedClientBaseDelay) * math.Pow(2, float64(retryCount))
	if delay > float64(feedClientMaxDelay) {
		return feedClientMaxDelay
	}
	return time.Duration(delay)
}

func (c *FeedClient) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	header := make(http.Header)
	header.Add("User-Agent", feedClientUserAgent)

	conn, resp, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		// A server that answers but refuses the upgrade will not change its mind.
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil && resp.StatusCode < 500 {
			return domain.NewFatalNetworkError("dial", fmt.Errorf("%w: status %d", err, resp.StatusCode))
		}
		return domain.NewNetworkError("dial", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	slog.Info("Feed connected", slog.String("url", c.url))
	return nil
}

func (c *FeedClient) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(feedReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Feed read error", slog.Any("error", err))
			}
			c.closeConnection()
			return
		}

		c.handleMessage(message)
	}
}

func (c *FeedClient) handleMessage(message []byte) {
	var frame feedFrameIn
	if err := json.Unmarshal(message, &frame); err != nil {
		slog.Debug("Feed message parse error", slog.Any("error", err))
		return
	}

	msg := FeedMessage{Type: frame.Type, Raw: frame.Data}
	if frame.Type == "tick" {
		var t FeedTick
		if err := json.Unmarshal(frame.Data, &t); err != nil {
			slog.Debug("Feed tick parse error", slog.Any("error", err))
			return
		}
		msg.Tick = &t
	}

	if c.out != nil {
		select {
		case c.out <- msg:
		default:
			slog.Warn("Feed client channel full, dropping frame", slog.String("type", frame.Type))
		}
	}
}

func (c *FeedClient) closeConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
}

// Disconnect stops the loop and closes the connection.
func (c *FeedClient) Disconnect() {
	if c.cancel != nil {
		c.cancel()
	}
	c.closeConnection()
	c.wg.Wait()
	slog.Info("Feed client disconnected")
}

// IsConnected returns connection status.
func (c *FeedClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
