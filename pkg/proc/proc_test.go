package proc

import (
	"io"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
}

func TestSpawnEcho(t *testing.T) {
	skipWindows(t)
	p, err := Exec{}.Spawn("cat")
	if err != nil {
		t.Fatalf("spawn fail: %v", err)
	}
	go func() {
		_, _ = p.Stdin().Write([]byte("hello\n"))
		_ = p.Stdin().Close()
	}()
	go func() { _, _ = io.Copy(io.Discard, p.Stderr()) }()

	out, err := io.ReadAll(p.Stdout())
	if err != nil {
		t.Fatalf("read fail: %v", err)
	}
	if string(out) != "hello\n" {
		t.Errorf("expected echo, got %q", out)
	}
	if code, err := p.Wait(); code != 0 || err != nil {
		t.Errorf("expected a clean exit, got %v %v", code, err)
	}
}

func TestExitCodeAndStderr(t *testing.T) {
	skipWindows(t)
	p, err := Exec{}.Spawn("sh", "-c", "echo oops >&2; exit 3")
	if err != nil {
		t.Fatalf("spawn fail: %v", err)
	}
	go func() { _, _ = io.Copy(io.Discard, p.Stdout()) }()
	diag, _ := io.ReadAll(p.Stderr())
	if strings.TrimSpace(string(diag)) != "oops" {
		t.Errorf("expected stderr, got %q", diag)
	}
	code, err := p.Wait()
	if err != nil {
		t.Errorf("unexpected error %v", err)
	}
	if code != 3 {
		t.Errorf("expected 3, got %v", code)
	}
	// the second wait returns the same
	if code, _ = p.Wait(); code != 3 {
		t.Errorf("expected 3 again, got %v", code)
	}
}

func TestKill(t *testing.T) {
	skipWindows(t)
	p, err := Exec{WaitDelay: time.Second}.Spawn("sleep", "30")
	if err != nil {
		t.Fatalf("spawn fail: %v", err)
	}
	go func() { _, _ = io.Copy(io.Discard, p.Stdout()) }()
	go func() { _, _ = io.Copy(io.Discard, p.Stderr()) }()
	if p.Pid() <= 0 {
		t.Errorf("expected a pid")
	}

	if err = p.Kill(); err != nil {
		t.Fatalf("kill fail: %v", err)
	}
	done := make(chan int)
	go func() { code, _ := p.Wait(); done <- code }()
	select {
	case code := <-done:
		if code == 0 {
			t.Errorf("expected a non-zero code for a killed process")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("process was not killed")
	}
	if err = p.Kill(); err != nil {
		t.Errorf("expected no error on a dead process, got %v", err)
	}
}

func TestSpawnErrors(t *testing.T) {
	if _, err := (Exec{}).Spawn(""); err != ErrNoCommand {
		t.Errorf("expected no command error, got %v", err)
	}
	if _, err := (Exec{}).Spawn("/definitely/not/here"); err == nil {
		t.Errorf("expected an error for a missing program")
	}
}
