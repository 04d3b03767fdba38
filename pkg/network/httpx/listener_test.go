package httpx

import (
	"strconv"
	"testing"
)

func TestListenerCreation(t *testing.T) {
	tests := []struct {
		addr   string
		random bool
		error  bool
	}{
		{addr: "127.0.0.1:", random: true},
		{addr: "127.0.0.1:0", random: true},
		{addr: "https://garbage.com:99a9a", error: true},
		{addr: "localhost:abc1", error: true},
	}

	for _, test := range tests {
		ls, err := NewListener(test.addr, false)

		if test.error {
			if err == nil {
				t.Errorf("expected error, but got none")
			}
			continue
		}
		if err != nil {
			t.Errorf("unexpected error %v", err)
			continue
		}

		if test.random && ls.GetPort() <= 0 {
			t.Errorf("expected a random port, got %v", ls.GetPort())
		}
		_ = ls.Close()
	}
}

func TestListenerPortRoll(t *testing.T) {
	a, err := NewListener("127.0.0.1:0", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = a.Close() }()
	busy := "127.0.0.1:" + strconv.Itoa(a.GetPort())

	if _, err = NewListener(busy, false); err == nil {
		t.Errorf("expected busy port error, but got none")
	}

	b, err := NewListener(busy, true)
	if err != nil {
		t.Fatalf("expected no port error, but got %v", err)
	}
	defer func() { _ = b.Close() }()
	if b.GetPort() == a.GetPort() {
		t.Errorf("expected a different port")
	}
}
