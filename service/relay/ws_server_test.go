package relay_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sybui2004/SeaU-sub001/service/relay"
	"github.com/sybui2004/SeaU-sub001/service/relay/handlers"
	"github.com/sybui2004/SeaU-sub001/service/storage"
)

func newTestEndpoint(t *testing.T, originAllowed func(string) bool) (*httptest.Server, *relay.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := relay.NewServer("test-node", storage.NewMemoryStore(), relay.ServerConf{})
	handlers.RegisterAll(srv)

	r := gin.New()
	r.GET("/socket", relay.NewWSHandler(srv, originAllowed))
	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts, srv
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/socket"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn, event string) *relay.Frame {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	f, err := relay.ParseFrame(raw)
	if err != nil {
		t.Fatalf("unparseable frame %q: %v", raw, err)
	}
	if f.Event != event {
		t.Fatalf("got event %q, want %q", f.Event, event)
	}
	return f
}

func TestEndpoint_AnnounceAndRelay(t *testing.T) {
	ts, _ := newTestEndpoint(t, func(string) bool { return true })

	alice := dial(t, ts)
	if err := alice.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"connect-announce","data":{"userId":"alice"}}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	f := readEvent(t, alice, relay.EventPresenceUpdate)
	users := presenceOverWire(t, f)
	if len(users) != 1 || users[0].UserID != "alice" {
		t.Fatalf("presence = %+v", users)
	}

	bob := dial(t, ts)
	if err := bob.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"connect-announce","data":{"userId":"bob"}}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	readEvent(t, bob, relay.EventPresenceUpdate)
	readEvent(t, alice, relay.EventPresenceUpdate)

	if err := alice.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"send-message","data":{"senderId":"alice","receiverId":"bob","text":"over the wire"}}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	f = readEvent(t, bob, relay.EventReceiveMessage)
	if f.Data["text"] != "over the wire" {
		t.Fatalf("relayed payload = %+v", f.Data)
	}
}

func TestEndpoint_DisconnectShrinksPresence(t *testing.T) {
	ts, _ := newTestEndpoint(t, func(string) bool { return true })

	alice := dial(t, ts)
	alice.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"connect-announce","data":{"userId":"alice"}}`))
	readEvent(t, alice, relay.EventPresenceUpdate)

	bob := dial(t, ts)
	bob.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"connect-announce","data":{"userId":"bob"}}`))
	readEvent(t, bob, relay.EventPresenceUpdate)
	readEvent(t, alice, relay.EventPresenceUpdate)

	bob.Close()

	f := readEvent(t, alice, relay.EventPresenceUpdate)
	users := presenceOverWire(t, f)
	if len(users) != 1 || users[0].UserID != "alice" {
		t.Fatalf("presence after bob left = %+v", users)
	}
}

func TestEndpoint_OriginRefused(t *testing.T) {
	ts, _ := newTestEndpoint(t, func(origin string) bool {
		return origin == "http://localhost:3000"
	})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/socket"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatalf("handshake from a disallowed origin should fail")
	}
	if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func presenceOverWire(t *testing.T, f *relay.Frame) []storage.Entry {
	t.Helper()
	var p relay.PresencePayload
	b, _ := json.Marshal(f.Data)
	if err := json.Unmarshal(b, &p); err != nil {
		t.Fatalf("presence payload unmarshal failed: %v", err)
	}
	return p.Users
}
