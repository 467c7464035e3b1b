package feed

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"vault-indexer/internal/domain"
)

func jsonEncoder(a *domain.Activity) ([]byte, error) {
	return json.Marshal(map[string]string{"id": a.ID, "vault": a.VaultAddress})
}

func TestHub_PublishFiltersByVault(t *testing.T) {
	h := NewHub(Config{Buffer: 4}, jsonEncoder, nil)

	a := h.Subscribe("0xAAA")
	b := h.Subscribe("0xbbb")
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	h.Publish(&domain.Activity{ID: "1", VaultAddress: "0xaaa"})

	select {
	case msg := <-a.C():
		if !strings.Contains(string(msg), `"id":"1"`) {
			t.Errorf("unexpected message %s", msg)
		}
	default:
		t.Fatal("subscriber of 0xaaa got nothing")
	}

	select {
	case msg := <-b.C():
		t.Errorf("subscriber of 0xbbb got %s", msg)
	default:
	}
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	h := NewHub(Config{Buffer: 1}, jsonEncoder, nil)
	s := h.Subscribe("0xaaa")

	h.Publish(&domain.Activity{ID: "1", VaultAddress: "0xaaa"})
	h.Publish(&domain.Activity{ID: "2", VaultAddress: "0xaaa"})

	<-s.C() // buffered message
	if _, ok := <-s.C(); ok {
		t.Fatal("expected channel to be closed after overflow")
	}

	h.mu.Lock()
	n := len(h.subs)
	h.mu.Unlock()
	if n != 0 {
		t.Errorf("expected no subscribers, have %d", n)
	}

	h.Unsubscribe(s) // closing twice must not panic
}

func TestHub_ServeWS(t *testing.T) {
	h := NewHub(Config{}, jsonEncoder, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, r.URL.Query().Get("vault"))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?vault=0xaaa"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait until the server registered the subscriber.
	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.Lock()
		n := len(h.subs)
		h.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	h.Publish(&domain.Activity{ID: "42", VaultAddress: "0xaaa"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(msg), `"id":"42"`) {
		t.Errorf("unexpected message %s", msg)
	}
}

func TestHub_CloseEndsSubscriptions(t *testing.T) {
	h := NewHub(Config{}, jsonEncoder, nil)
	s := h.Subscribe("0xaaa")

	h.Close()

	if _, ok := <-s.C(); ok {
		t.Fatal("expected channel to be closed")
	}
	if s.closeCode != websocket.CloseGoingAway {
		t.Errorf("close code = %d, want %d", s.closeCode, websocket.CloseGoingAway)
	}

	// Publishing after close reaches nobody.
	h.Publish(&domain.Activity{ID: "1", VaultAddress: "0xaaa"})
	h.Unsubscribe(s)
}
