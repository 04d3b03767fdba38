package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	conf, err := NewConfig()
	if err != nil {
		t.Fatal(err)
	}

	if conf.Gateway.Path != "/chess-stream" {
		t.Errorf("unexpected gateway path %v", conf.Gateway.Path)
	}
	if len(conf.Recognition.Command) != 2 || conf.Recognition.Command[0] != "python" {
		t.Errorf("unexpected recognition command %v", conf.Recognition.Command)
	}
	if conf.Mappings.Dir != "chessboard_mappings" {
		t.Errorf("unexpected mappings dir %v", conf.Mappings.Dir)
	}
	if conf.Webrtc.IcePorts.Min != 40000 || conf.Webrtc.IcePorts.Max != 49999 {
		t.Errorf("unexpected port range %v", conf.Webrtc.IcePorts)
	}
	if conf.Webrtc.GatherTimeout != 2*time.Second {
		t.Errorf("unexpected gather timeout %v", conf.Webrtc.GatherTimeout)
	}
	if conf.Storage.IsEnabled() {
		t.Errorf("expected no remote storage by default")
	}
}

func TestConfigEnv(t *testing.T) {
	_ = os.Setenv("CHESSCAST_RECOGNITION_MODELPATH", "models/custom.pt")
	defer func() { _ = os.Unsetenv("CHESSCAST_RECOGNITION_MODELPATH") }()
	_ = os.Setenv("CHESSCAST_RECOGNITION_QUEUESIZE", "3")
	defer func() { _ = os.Unsetenv("CHESSCAST_RECOGNITION_QUEUESIZE") }()

	var conf Config
	if err := LoadConfig(&conf, ""); err != nil {
		t.Fatal(err)
	}
	if conf.Recognition.ModelPath != "models/custom.pt" {
		t.Errorf("%v is not models/custom.pt", conf.Recognition.ModelPath)
	}
	if conf.Recognition.QueueSize != 3 {
		t.Errorf("%v is not 3", conf.Recognition.QueueSize)
	}
}

func TestPreParse(t *testing.T) {
	old := configPath
	defer func() { configPath = old }()

	PreParse([]string{"--debug", "--conf", "/tmp/x", "--address", ":9000"})
	if configPath != "/tmp/x" {
		t.Errorf("expected the custom path, got %v", configPath)
	}
}
