package config

import "time"

type Version int

type Monitoring struct {
	Port             int
	URLPrefix        string
	MetricEnabled    bool `json:"metric_enabled"`
	ProfilingEnabled bool `json:"profiling_enabled"`
}

func (c *Monitoring) IsEnabled() bool { return c.MetricEnabled || c.ProfilingEnabled }

type Server struct {
	Address string
	Https   bool
	Tls     struct {
		Address   string
		Domain    string
		HttpsKey  string
		HttpsCert string
	}
}

func (s *Server) GetAddr() string {
	if s.Https {
		return s.Tls.Address
	}
	return s.Address
}

type Log struct {
	Debug   bool
	NoColor bool
	File    struct {
		Path       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}
}

func (l *Log) HasFile() bool { return l.File.Path != "" }

// Gateway is the realtime websocket endpoint config.
type Gateway struct {
	// websocket path
	Path string
	// a prefix for HTTP API routes
	ApiPrefix string
	// allowed websocket origin, * or empty allows any
	Origin string
	// the largest accepted websocket message (frames included)
	MaxMessageSize int64
	// outgoing message buffer per client
	SendBuffer   int
	PingInterval time.Duration
}

type Recognition struct {
	// the worker program with its fixed args,
	// i.e. [python, chess-recognition/src/stream_server.py]
	Command   []string
	ModelPath string
	// frames waiting for the worker stdin, the oldest is dropped on overflow
	QueueSize int
	// diagnostic substrings that are not errors
	Advisory []string
}

type Calibration struct {
	Command []string
}

type Mappings struct {
	Dir   string
	Watch bool
}

type Storage struct {
	// gcs, s3 or empty
	Provider          string
	Bucket            string
	GcsCredentials    string
	S3Endpoint        string
	S3AccessKeyId     string
	S3SecretAccessKey string
	S3Insecure        bool
}

func (s *Storage) IsEnabled() bool { return s.Provider != "" }
