package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gorilla/websocket/websockettest"
)

var upgrader = websocket.Upgrader{}

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		hub.Register("s1", conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHubUnregistersPeerThatStopsRespondingToPings(t *testing.T) {
	hub := NewHub(16, nil)
	hub.writeWait = 20 * time.Millisecond
	hub.pongWait = 40 * time.Millisecond
	hub.pingInterval = 10 * time.Millisecond

	srv := newTestServer(t, hub)
	wsURL := "ws" + srv.URL[len("http"):]

	conn, _, err := websockettest.DialIgnoringPongs(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(hub.Sessions()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected hub to drop the unresponsive session once its read deadline lapsed")
}
