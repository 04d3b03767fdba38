package os

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "a_mapping.json")

	if err := WriteFileAtomic(name, []byte(`{"a":1}`), 0644); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	data, err := ReadFile(name)
	if err != nil || string(data) != `{"a":1}` {
		t.Errorf("unexpected content %q, %v", data, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected no temporary leftovers, got %v files", len(entries))
	}
}

func TestRemoveMissing(t *testing.T) {
	if err := Remove(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCheckCreateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := CheckCreateDir(dir); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !Exists(dir) {
		t.Errorf("expected %v to exist", dir)
	}
}

func TestFileLockContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g1.lock")
	a, err := NewFileLock(path)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err = a.Lock(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	b, _ := NewFileLock(path)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err = b.LockContext(ctx); err == nil {
		t.Errorf("expected the second lock to time out")
	}

	_ = a.Unlock()
	if err = b.LockContext(context.Background()); err != nil {
		t.Errorf("expected the lock after unlock, got %v", err)
	}
	_ = b.Unlock()
}
