package httpx

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/chesscast/chesscast/pkg/logger"
)

func TestServerPrefixedMux(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", func(*Server) Handler {
		h := NewServeMux("/api")
		h.HandleFunc("/ping", func(w ResponseWriter, _ *Request) { _, _ = w.Write([]byte("pong")) })
		return h
	}, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	srv.Run()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://127.0.0.1:" + strconv.Itoa(srv.GetPort()) + "/api/ping")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "pong" {
		t.Errorf("expected pong, got %s", body)
	}
}
