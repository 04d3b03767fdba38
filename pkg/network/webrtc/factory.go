package webrtc

import (
	"github.com/chesscast/chesscast/pkg/config"
	"github.com/chesscast/chesscast/pkg/logger"
	"github.com/chesscast/chesscast/pkg/network/socket"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v3"
)

type ApiFactory struct {
	api        *webrtc.API
	iceServers []webrtc.ICEServer
	closers    []func() error
}

// RegisterCodecsFn registers the codecs of the media engine,
// when nil the default pion codecs are used.
type RegisterCodecsFn func(m *webrtc.MediaEngine) error

type ModApiFun func(m *webrtc.MediaEngine, i *interceptor.Registry, s *webrtc.SettingEngine)

func NewApiFactory(conf config.Webrtc, log *logger.Logger, codecs RegisterCodecsFn, mod ModApiFun) (api *ApiFactory, err error) {
	m := &webrtc.MediaEngine{}
	if codecs == nil {
		codecs = func(m *webrtc.MediaEngine) error { return m.RegisterDefaultCodecs() }
	}
	if err = codecs(m); err != nil {
		return
	}
	i := &interceptor.Registry{}
	if !conf.DisableDefaultInterceptors {
		if err = webrtc.RegisterDefaultInterceptors(m, i); err != nil {
			return
		}
	}
	customLogger := NewPionLogger(log, conf.LogLevel)
	s := webrtc.SettingEngine{LoggerFactory: customLogger}
	api = &ApiFactory{}
	if conf.HasPortRange() {
		if err = s.SetEphemeralUDPPortRange(conf.IcePorts.Min, conf.IcePorts.Max); err != nil {
			return nil, err
		}
	}
	if conf.HasSinglePort() {
		udp, err := socket.NewUDPPortRoll(conf.SinglePort)
		if err != nil {
			return nil, err
		}
		s.SetICEUDPMux(webrtc.NewICEUDPMux(customLogger.NewLogger("mux"), udp))
		api.closers = append(api.closers, udp.Close)
		log.Info().Msgf("The single port mode is active for %s", udp.LocalAddr())
	}
	if conf.HasIceIpMap() {
		s.SetNAT1To1IPs([]string{conf.IceIpMap}, webrtc.ICECandidateTypeHost)
		log.Info().Msgf("The NAT mapping is active for %v", conf.IceIpMap)
	}
	if conf.IceLite {
		s.SetLite(true)
	}

	if mod != nil {
		mod(m, i, &s)
	}

	for _, server := range conf.IceServers {
		api.iceServers = append(api.iceServers, webrtc.ICEServer{
			URLs:       []string{server.Urls},
			Username:   server.Username,
			Credential: server.Credential,
		})
	}
	api.api = webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(i), webrtc.WithSettingEngine(s))
	return api, nil
}

func (a *ApiFactory) API() *webrtc.API               { return a.api }
func (a *ApiFactory) ICEServers() []webrtc.ICEServer { return a.iceServers }

// Close frees the shared sockets.
func (a *ApiFactory) Close() error {
	var err error
	for _, c := range a.closers {
		if e := c(); e != nil {
			err = e
		}
	}
	return err
}
