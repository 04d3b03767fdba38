package websocket

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/chesscast/chesscast/pkg/logger"
)

func TestEchoTextAndBinary(t *testing.T) {
	up := NewUpgrader("*")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, Options{}, logger.Nop())
		if err != nil {
			t.Errorf("upgrade fail: %v", err)
			return
		}
		ws.OnMessage = func(mt MessageType, data []byte) {
			if mt == BinaryMessage {
				_ = ws.WriteBinary(data)
				return
			}
			_ = ws.Write(data)
		}
		ws.Listen()
	}))
	defer srv.Close()

	type msg struct {
		mt   MessageType
		data string
	}
	got := make(chan msg, 2)
	client, err := Connect(url.URL{Scheme: "ws", Host: strings.TrimPrefix(srv.URL, "http://")}, Options{}, logger.Nop())
	if err != nil {
		t.Fatalf("dial fail: %v", err)
	}
	client.OnMessage = func(mt MessageType, data []byte) { got <- msg{mt, string(data)} }
	client.Listen()
	defer client.Close()

	_ = client.Write([]byte("hello"))
	_ = client.WriteBinary([]byte{1, 2, 3})

	want := []msg{{TextMessage, "hello"}, {BinaryMessage, "\x01\x02\x03"}}
	for _, w := range want {
		select {
		case m := <-got:
			if m != w {
				t.Errorf("expected %v, got %v", w, m)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("no echo for %v", w)
		}
	}
}

func TestWriteAfterClose(t *testing.T) {
	ws := newSocket(nil, false, Options{SendBuffer: 1}, logger.Nop())
	if err := ws.WriteBinary([]byte{1}); err != nil {
		t.Errorf("expected buffered write, got %v", err)
	}
	if err := ws.WriteBinary([]byte{2}); err != ErrBufferFull {
		t.Errorf("expected full buffer, got %v", err)
	}
	ws.Close()
	ws.Close()
	if err := ws.Write([]byte("x")); err != ErrClosed {
		t.Errorf("expected closed, got %v", err)
	}
}

func TestOriginCheck(t *testing.T) {
	u := NewUpgrader("https://chess.example")
	tests := []struct {
		origin string
		ok     bool
	}{
		{"", true},
		{"https://chess.example", true},
		{"https://evil.example", false},
	}
	for _, test := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if test.origin != "" {
			r.Header.Set("Origin", test.origin)
		}
		if ok := u.CheckOrigin(r); ok != test.ok {
			t.Errorf("origin %q: expected %v, got %v", test.origin, test.ok, ok)
		}
	}
}
