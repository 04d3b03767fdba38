package calibration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chesscast/chesscast/pkg/logger"
)

var command = []string{"python", "calibrate_board.py"}

func newTestCoordinator(t *testing.T, sp *scriptSpawner) *Coordinator {
	store, err := NewStore(filepath.Join(t.TempDir(), "maps"), nil, logger.Nop())
	if err != nil {
		t.Fatalf("store fail: %v", err)
	}
	return NewCoordinator(command, sp, store, logger.Nop())
}

func writesMapping(mapping string) script {
	return func(args map[string]string) (int, string, string) {
		path := filepath.Join(args["--mappings-dir"], args["--token"]+"_mapping.json")
		_ = os.WriteFile(path, []byte(mapping), 0644)
		return 0, "done", ""
	}
}

func TestCalibrateSuccess(t *testing.T) {
	var image string
	sp := &scriptSpawner{run: func(args map[string]string) (int, string, string) {
		data, _ := os.ReadFile(args["--image"])
		image = string(data)
		return writesMapping(`{"a1":[10,20]}`)(args)
	}}
	c := newTestCoordinator(t, sp)

	res := c.Calibrate(context.Background(), "g1", []byte("jpeg"))
	if !res.Success || res.Message != MsgSuccess {
		t.Fatalf("expected a success, got %+v", res)
	}
	if string(res.MappingData) != `{"a1":[10,20]}` {
		t.Errorf("unexpected mapping %s", res.MappingData)
	}
	if image != "jpeg" {
		t.Errorf("expected the image to be passed, got %q", image)
	}
	if !c.HasMapping("g1") {
		t.Errorf("expected the mapping to exist")
	}
	if _, err := os.Stat(c.Store().ImagePath("g1")); !os.IsNotExist(err) {
		t.Errorf("expected the image to be removed")
	}

	want := "python calibrate_board.py --token g1 --image " + c.Store().ImagePath("g1") + " --mappings-dir " + c.Store().Dir()
	if got := strings.Join(sp.last, " "); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCalibrateFailures(t *testing.T) {
	tests := []struct {
		name string
		run  script
		msg  string
	}{
		{
			name: "stderr",
			run:  func(map[string]string) (int, string, string) { return 1, "", "no board found\n" },
			msg:  "Calibration failed: no board found",
		},
		{
			name: "stdout fallback",
			run:  func(map[string]string) (int, string, string) { return 2, "Error: too dark", "" },
			msg:  "Calibration failed: Error: too dark",
		},
		{
			name: "no mapping",
			run:  func(map[string]string) (int, string, string) { return 0, "", "" },
			msg:  MsgNoMapping,
		},
		{
			name: "bad mapping",
			run:  writesMapping("{not json"),
			msg:  "Error reading mapping result: " + ErrBadMapping.Error(),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := newTestCoordinator(t, &scriptSpawner{run: test.run})
			res := c.Calibrate(context.Background(), "g1", []byte("jpeg"))
			if res.Success {
				t.Fatalf("expected a failure")
			}
			if res.Message != test.msg {
				t.Errorf("expected %q, got %q", test.msg, res.Message)
			}
		})
	}
}

func TestCalibrateCancel(t *testing.T) {
	c := newTestCoordinator(t, &scriptSpawner{block: true})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { time.Sleep(20 * time.Millisecond); cancel() }()

	res := c.Calibrate(ctx, "g1", []byte("jpeg"))
	if res.Success || !strings.HasPrefix(res.Message, "Calibration error") {
		t.Errorf("expected a canceled calibration, got %+v", res)
	}
}

func TestCalibrateNoCommand(t *testing.T) {
	store, _ := NewStore(t.TempDir(), nil, logger.Nop())
	c := NewCoordinator(nil, &scriptSpawner{}, store, logger.Nop())
	if res := c.Calibrate(context.Background(), "g1", nil); res.Success {
		t.Errorf("expected a failure without the command")
	}
}

func TestReason(t *testing.T) {
	if r := (Result{Message: "Calibration failed: dark"}).Reason(); r != "dark" {
		t.Errorf("expected dark, got %v", r)
	}
	if r := (Result{Message: MsgNoMapping}).Reason(); r != MsgNoMapping {
		t.Errorf("expected the message as is, got %v", r)
	}
}
