package infra

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"market_sim/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

// httpToWS converts http:// URL to ws://
func httpToWS(url string) string {
	return strings.Replace(url, "http://", "ws://", 1)
}

func waitClients(t *testing.T, hub *FeedHub, n int) {
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, got %d", n, hub.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFeedHub_BroadcastsTicks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := &Metrics{}
	hub := NewFeedHub(NewRecorder(reg, m))
	cfg := DefaultConfig().Feed

	server := httptest.NewServer(NewFeedMux(cfg, hub, reg))
	defer server.Close()
	defer hub.Close()

	conn, _, err := websocket.DefaultDialer.Dial(httpToWS(server.URL)+cfg.Path, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	waitClients(t, hub, 1)

	hub.PublishTick(domain.Tick{
		Price: 30010, High: 30020, Low: 30000, Volume: 150,
		Timestamp: 545.5, VolState: domain.VolHigh, Zone: domain.ZoneOpen,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var frame struct {
		Type string   `json:"type"`
		Data FeedTick `json:"data"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if frame.Type != "tick" {
		t.Errorf("Expected type tick, got %s", frame.Type)
	}
	if frame.Data.Price != 30010 || frame.Data.Volume != 150 {
		t.Errorf("Expected price 30010 volume 150, got %+v", frame.Data)
	}
	if frame.Data.Clock != "09:05" {
		t.Errorf("Expected clock 09:05, got %s", frame.Data.Clock)
	}
	if m.Snapshot().FeedClients != 1 {
		t.Errorf("Expected 1 client in metrics, got %d", m.Snapshot().FeedClients)
	}
}

func TestFeedHub_ClientDisconnect(t *testing.T) {
	hub := NewFeedHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	conn, _, err := websocket.DefaultDialer.Dial(httpToWS(server.URL), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	waitClients(t, hub, 1)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitClients(t, hub, 0)

	// Publishing with no clients must not block or panic.
	hub.PublishTick(domain.Tick{Price: 30000})
}

func TestFeedMux_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg, &Metrics{})
	rec.RecordTick(30000, 10, time.Microsecond)

	server := httptest.NewServer(NewFeedMux(DefaultConfig().Feed, NewFeedHub(rec), reg))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "marketsim_ticks_total 1") {
		t.Errorf("Expected ticks counter in body, got %s", body)
	}
}
