package config

import (
	"flag"

	"github.com/spf13/pflag"
)

type Config struct {
	Server      Server
	Gateway     Gateway
	Recognition Recognition
	Calibration Calibration
	Mappings    Mappings
	Storage     Storage
	Webrtc      Webrtc
	Monitoring  Monitoring
	Log         Log
	Version     Version
}

// allows custom config path
var configPath string

func NewConfig() (conf Config, err error) {
	err = LoadConfig(&conf, configPath)
	return
}

// PreParse reads the custom config path before the config is loaded,
// the rest of the flags are ignored here.
func PreParse(args []string) {
	fs := pflag.NewFlagSet("pre", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	fs.StringVar(&configPath, "conf", configPath, "")
	_ = fs.Parse(args)
}

// ParseFlags overrides the loaded values with the command-line flags.
func (c *Config) ParseFlags() {
	pflag.StringVar(&configPath, "conf", configPath, "Set custom configuration file path")
	pflag.StringVar(&c.Server.Address, "address", c.Server.Address, "HTTP server address (host:port)")
	pflag.StringVar(&c.Server.Tls.Address, "httpsAddress", c.Server.Tls.Address, "HTTPS server address (host:port)")
	pflag.StringVar(&c.Server.Tls.HttpsKey, "httpsKey", c.Server.Tls.HttpsKey, "HTTPS key")
	pflag.StringVar(&c.Server.Tls.HttpsCert, "httpsCert", c.Server.Tls.HttpsCert, "HTTPS chain")
	pflag.StringVar(&c.Mappings.Dir, "mappings", c.Mappings.Dir, "Calibration mappings directory")
	pflag.StringVar(&c.Recognition.ModelPath, "model", c.Recognition.ModelPath, "Default recognition model path")
	pflag.IntVar(&c.Monitoring.Port, "monitoring.port", c.Monitoring.Port, "Monitoring server port")
	pflag.BoolVar(&c.Log.Debug, "debug", c.Log.Debug, "Debug logging")
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()
}
