package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PetoAdam/homenavi/citysearch/internal/models"
	"github.com/PetoAdam/homenavi/citysearch/internal/search"

	"github.com/gorilla/websocket"
)

type londonSearcher struct{}

func (londonSearcher) Search(_ context.Context, q string) (models.SearchResult, error) {
	gb := models.Country{Code: "GB", Name: "United Kingdom"}
	return models.SearchResult{Query: q, Cities: []models.City{
		{Name: "London", Country: gb, Lat: 51.51, Lon: -0.13},
		{Name: "Londonderry", Country: gb, Lat: 55.0, Lon: -7.3},
	}}, nil
}

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func idx(i int) *int { return &i }

func send(t *testing.T, conn *websocket.Conn, f ClientFrame) {
	t.Helper()
	if err := conn.WriteJSON(f); err != nil {
		t.Fatalf("write %+v: %v", f, err)
	}
}

// readUntil reads frames until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, what string, match func(ServerFrame) bool) ServerFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", what, err)
		}
		var f ServerFrame
		if err := json.Unmarshal(msg, &f); err != nil {
			t.Fatalf("bad frame %q: %v", msg, err)
		}
		if match(f) {
			return f
		}
	}
}

func TestSessionSearchAndCommit(t *testing.T) {
	h := NewHub(londonSearcher{}, search.WithDelay(time.Millisecond))
	conn := dial(t, h)

	hello := readUntil(t, conn, "session id", func(f ServerFrame) bool { return f.Type == "session" })
	if hello.Session == "" {
		t.Fatalf("session frame without id")
	}

	send(t, conn, ClientFrame{Type: "focus"})
	send(t, conn, ClientFrame{Type: "input", Text: "Lon"})
	f := readUntil(t, conn, "candidates", func(f ServerFrame) bool {
		return f.Type == "view" && f.View != nil && len(f.View.Items) == 2 && !f.View.Loading
	})
	if f.View.Items[0].Label != "London, GB" || f.View.Selected != 0 || !f.View.Open {
		t.Fatalf("unexpected view %+v", f.View)
	}

	send(t, conn, ClientFrame{Type: "key", Key: "ArrowDown"})
	readUntil(t, conn, "second item selected", func(f ServerFrame) bool {
		return f.Type == "view" && f.View != nil && f.View.Selected == 1
	})

	send(t, conn, ClientFrame{Type: "key", Key: "Enter"})
	nav := readUntil(t, conn, "navigation", func(f ServerFrame) bool { return f.Type == "navigate" })
	if nav.URL != "/weather?lat=55&lon=-7.3" {
		t.Fatalf("navigate url = %q", nav.URL)
	}
}

func TestSessionClick(t *testing.T) {
	h := NewHub(londonSearcher{}, search.WithDelay(time.Millisecond))
	conn := dial(t, h)

	send(t, conn, ClientFrame{Type: "focus"})
	send(t, conn, ClientFrame{Type: "input", Text: "Lon"})
	readUntil(t, conn, "candidates", func(f ServerFrame) bool {
		return f.Type == "view" && f.View != nil && len(f.View.Items) == 2
	})

	send(t, conn, ClientFrame{Type: "mousedown", Index: idx(0)})
	send(t, conn, ClientFrame{Type: "blur"})
	send(t, conn, ClientFrame{Type: "click", Index: idx(0)})
	nav := readUntil(t, conn, "navigation", func(f ServerFrame) bool { return f.Type == "navigate" })
	if nav.URL != "/weather?lat=51.51&lon=-0.13" {
		t.Fatalf("navigate url = %q", nav.URL)
	}
}

func TestHubTracksSessions(t *testing.T) {
	h := NewHub(londonSearcher{})
	conn := dial(t, h)
	readUntil(t, conn, "session id", func(f ServerFrame) bool { return f.Type == "session" })
	if n := h.Sessions(); n != 1 {
		t.Fatalf("Sessions() = %d, want 1", n)
	}

	h.Close()
	deadline := time.Now().Add(2 * time.Second)
	for h.Sessions() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session was not removed after Close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMalformedFramesAreIgnored(t *testing.T) {
	h := NewHub(londonSearcher{}, search.WithDelay(time.Millisecond))
	conn := dial(t, h)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	send(t, conn, ClientFrame{Type: "teleport"})
	send(t, conn, ClientFrame{Type: "focus"})
	readUntil(t, conn, "focused view", func(f ServerFrame) bool {
		return f.Type == "view" && f.View != nil && f.View.Focused
	})
}

func TestPointerFramesWithoutIndexAreIgnored(t *testing.T) {
	h := NewHub(londonSearcher{}, search.WithDelay(time.Millisecond))
	conn := dial(t, h)

	send(t, conn, ClientFrame{Type: "focus"})
	send(t, conn, ClientFrame{Type: "input", Text: "Lon"})
	readUntil(t, conn, "candidates", func(f ServerFrame) bool {
		return f.Type == "view" && f.View != nil && len(f.View.Items) == 2 && !f.View.Loading
	})

	for _, raw := range []string{`{"type":"hover"}`, `{"type":"mousedown"}`, `{"type":"click"}`, `{"type":"click","index":null}`} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatal(err)
		}
	}
	send(t, conn, ClientFrame{Type: "key", Key: "ArrowDown"})
	readUntil(t, conn, "second item selected", func(f ServerFrame) bool {
		if f.Type == "navigate" {
			t.Fatalf("click without index navigated to %q", f.URL)
		}
		return f.Type == "view" && f.View != nil && f.View.Selected == 1
	})
}
