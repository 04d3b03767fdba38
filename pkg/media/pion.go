package media

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chesscast/chesscast/pkg/logger"
	"github.com/pion/randutil"
	"github.com/pion/webrtc/v3"
)

const defaultGatherTimeout = 2 * time.Second

var (
	ErrEngineClosed    = errors.New("media engine is closed")
	ErrTransportClosed = errors.New("transport is closed")
	ErrConnected       = errors.New("transport is already connected")
	ErrNoIceParameters = errors.New("no remote ICE parameters")
	ErrNoSsrc          = errors.New("no SSRC in the RTP encodings")
	ErrUnsupportedKind = errors.New("only video is supported")
)

// PionEngine is an ORTC media engine,
// one ICE and DTLS transport for each client transport.
type PionEngine struct {
	api           *webrtc.API
	iceServers    []webrtc.ICEServer
	gatherTimeout time.Duration
	ssrc          randutil.MathRandomGenerator

	done chan struct{}
	once sync.Once
	err  error
	log  *logger.Logger
}

func NewPionEngine(api *webrtc.API, iceServers []webrtc.ICEServer, gatherTimeout time.Duration, log *logger.Logger) *PionEngine {
	if gatherTimeout <= 0 {
		gatherTimeout = defaultGatherTimeout
	}
	return &PionEngine{
		api:           api,
		iceServers:    iceServers,
		gatherTimeout: gatherTimeout,
		ssrc:          randutil.NewMathRandomGenerator(),
		done:          make(chan struct{}),
		log:           log.Module("pion"),
	}
}

func (e *PionEngine) Done() <-chan struct{} { return e.done }

// Err returns the reason of the engine stop.
func (e *PionEngine) Err() error {
	select {
	case <-e.done:
		return e.err
	default:
		return nil
	}
}

func (e *PionEngine) Close() error { e.stop(nil); return nil }

func (e *PionEngine) stop(err error) {
	e.once.Do(func() {
		e.err = err
		if err != nil {
			e.log.Error().Err(err).Msg("Media engine has failed")
		}
		close(e.done)
	})
}

// guard stops the whole engine on a panic in a media goroutine.
func (e *PionEngine) guard() {
	if r := recover(); r != nil {
		e.stop(fmt.Errorf("media panic: %v", r))
	}
}

func (e *PionEngine) CreateTransport(id string, dir Direction) (Transport, error) {
	select {
	case <-e.done:
		return nil, ErrEngineClosed
	default:
	}

	gatherer, err := e.api.NewICEGatherer(webrtc.ICEGatherOptions{ICEServers: e.iceServers})
	if err != nil {
		return nil, err
	}
	ice := e.api.NewICETransport(gatherer)
	dtls, err := e.api.NewDTLSTransport(ice, nil)
	if err != nil {
		_ = gatherer.Close()
		return nil, err
	}

	t := &pionTransport{
		id:       id,
		dir:      dir,
		engine:   e,
		gatherer: gatherer,
		ice:      ice,
		dtls:     dtls,
		ready:    make(chan struct{}),
		log:      e.log.Extend(e.log.With().Str("transport", id)),
	}

	gathered := make(chan struct{})
	var once sync.Once
	gatherer.OnLocalCandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			once.Do(func() { close(gathered) })
		}
	})
	if err = gatherer.Gather(); err != nil {
		_ = t.Close()
		return nil, err
	}
	select {
	case <-gathered:
	case <-time.After(e.gatherTimeout):
		t.log.Debug().Msg("ICE gathering timeout, using the candidates so far")
	}

	if err = t.describe(); err != nil {
		_ = t.Close()
		return nil, err
	}
	dtls.OnStateChange(func(s webrtc.DTLSTransportState) {
		t.log.Debug().Str("state", s.String()).Msg("DTLS")
		if s == webrtc.DTLSTransportStateClosed || s == webrtc.DTLSTransportStateFailed {
			go func() { _ = t.Close() }()
		}
	})
	return t, nil
}

type pionTransport struct {
	closeHandlers

	id       string
	dir      Direction
	engine   *PionEngine
	gatherer *webrtc.ICEGatherer
	ice      *webrtc.ICETransport
	dtls     *webrtc.DTLSTransport
	info     TransportInfo

	ready     chan struct{}
	connected atomic.Bool
	mu        sync.Mutex
	children  []interface{ Close() error }
	log       *logger.Logger
}

func (t *pionTransport) describe() error {
	candidates, err := t.gatherer.GetLocalCandidates()
	if err != nil {
		return err
	}
	ice, err := t.gatherer.GetLocalParameters()
	if err != nil {
		return err
	}
	dtls, err := t.dtls.GetLocalParameters()
	if err != nil {
		return err
	}

	t.info = TransportInfo{
		Id: t.id,
		IceParameters: IceParameters{
			UsernameFragment: ice.UsernameFragment,
			Password:         ice.Password,
			IceLite:          ice.ICELite,
		},
		IceCandidates:  make([]IceCandidate, 0, len(candidates)),
		DtlsParameters: DtlsParameters{Role: dtls.Role.String()},
	}
	for _, c := range candidates {
		t.info.IceCandidates = append(t.info.IceCandidates, IceCandidate{
			Foundation: c.Foundation,
			Priority:   c.Priority,
			Ip:         c.Address,
			Protocol:   c.Protocol.String(),
			Port:       c.Port,
			Type:       c.Typ.String(),
		})
	}
	for _, f := range dtls.Fingerprints {
		t.info.DtlsParameters.Fingerprints = append(t.info.DtlsParameters.Fingerprints,
			DtlsFingerprint{Algorithm: f.Algorithm, Value: f.Value})
	}
	return nil
}

func (t *pionTransport) Id() string           { return t.id }
func (t *pionTransport) Direction() Direction { return t.dir }
func (t *pionTransport) Info() TransportInfo  { return t.info }

// Connect starts ICE and DTLS in the background,
// media flows after the handshake.
func (t *pionTransport) Connect(remote RemoteParams) error {
	if t.isClosed() {
		return ErrTransportClosed
	}
	if remote.IceParameters == nil {
		return ErrNoIceParameters
	}
	if !t.connected.CompareAndSwap(false, true) {
		return ErrConnected
	}

	candidates := make([]webrtc.ICECandidate, 0, len(remote.IceCandidates))
	for _, c := range remote.IceCandidates {
		protocol, err := webrtc.NewICEProtocol(c.Protocol)
		if err != nil {
			continue
		}
		typ, err := webrtc.NewICECandidateType(c.Type)
		if err != nil {
			continue
		}
		candidates = append(candidates, webrtc.ICECandidate{
			Foundation: c.Foundation,
			Priority:   c.Priority,
			Address:    c.Ip,
			Protocol:   protocol,
			Port:       c.Port,
			Typ:        typ,
			Component:  1,
		})
	}
	if err := t.ice.SetRemoteCandidates(candidates); err != nil {
		return err
	}

	ice := webrtc.ICEParameters{
		UsernameFragment: remote.IceParameters.UsernameFragment,
		Password:         remote.IceParameters.Password,
		ICELite:          remote.IceParameters.IceLite,
	}
	dtls := webrtc.DTLSParameters{Role: dtlsRole(remote.DtlsParameters.Role)}
	for _, f := range remote.DtlsParameters.Fingerprints {
		dtls.Fingerprints = append(dtls.Fingerprints, webrtc.DTLSFingerprint{Algorithm: f.Algorithm, Value: f.Value})
	}

	go func() {
		defer t.engine.guard()
		role := webrtc.ICERoleControlled
		if err := t.ice.Start(nil, ice, &role); err != nil {
			t.log.Warn().Err(err).Msg("ICE start fail")
			_ = t.Close()
			return
		}
		if err := t.dtls.Start(dtls); err != nil {
			t.log.Warn().Err(err).Msg("DTLS start fail")
			_ = t.Close()
			return
		}
		close(t.ready)
		t.log.Info().Msg("Connected")
	}()
	return nil
}

func dtlsRole(role string) webrtc.DTLSRole {
	switch role {
	case "client":
		return webrtc.DTLSRoleClient
	case "server":
		return webrtc.DTLSRoleServer
	default:
		return webrtc.DTLSRoleAuto
	}
}

func (t *pionTransport) adopt(c interface{ Close() error }) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isClosed() {
		return ErrTransportClosed
	}
	t.children = append(t.children, c)
	return nil
}

func (t *pionTransport) Produce(id string, kind string, params RtpParameters) (Producer, error) {
	if t.dir != Send {
		return nil, ErrWrongDirection
	}
	if kind != "video" {
		return nil, ErrUnsupportedKind
	}
	c, remote, err := negotiate(params.Codecs)
	if err != nil {
		return nil, err
	}
	ssrc := params.Ssrc()
	if ssrc == 0 {
		return nil, ErrNoSsrc
	}

	track, err := webrtc.NewTrackLocalStaticRTP(c.pion(), id, "chesscast")
	if err != nil {
		return nil, err
	}
	receiver, err := t.engine.api.NewRTPReceiver(webrtc.RTPCodecTypeVideo, t.dtls)
	if err != nil {
		return nil, err
	}
	p := &pionProducer{
		id:       id,
		kind:     kind,
		params:   params,
		codec:    c,
		track:    track,
		receiver: receiver,
		done:     make(chan struct{}),
		log:      t.log.Extend(t.log.With().Str("producer", id)),
	}
	if err = t.adopt(p); err != nil {
		_ = receiver.Stop()
		return nil, err
	}
	go p.forward(t.engine, t.ready, ssrc, remote.PayloadType)
	return p, nil
}

func (t *pionTransport) Consume(id string, producer Producer) (Consumer, error) {
	if t.dir != Recv {
		return nil, ErrWrongDirection
	}
	pp, ok := producer.(*pionProducer)
	if !ok {
		return nil, ErrCannotConsume
	}
	sender, err := t.engine.api.NewRTPSender(pp.track, t.dtls)
	if err != nil {
		return nil, err
	}
	ssrc := t.engine.ssrc.Uint32()
	c := &pionConsumer{
		id:         id,
		producerId: pp.id,
		kind:       pp.kind,
		params: RtpParameters{
			Codecs:    []RtpCodecParameters{pp.codec.parametersOf()},
			Encodings: []RtpEncoding{{Ssrc: ssrc}},
		},
		sender: sender,
		done:   make(chan struct{}),
		log:    t.log.Extend(t.log.With().Str("consumer", id)),
	}
	if err = t.adopt(c); err != nil {
		_ = sender.Stop()
		return nil, err
	}
	go c.send(t.engine, t.ready, ssrc, pp.codec.pt)
	return c, nil
}

func (t *pionTransport) Close() error {
	t.mu.Lock()
	fns, ok := t.close()
	children := t.children
	t.children = nil
	t.mu.Unlock()
	if !ok {
		return nil
	}

	for _, c := range children {
		_ = c.Close()
	}
	err := errors.Join(t.dtls.Stop(), t.ice.Stop(), t.gatherer.Close())
	for _, fn := range fns {
		fn()
	}
	return err
}

type pionProducer struct {
	closeHandlers

	id       string
	kind     string
	params   RtpParameters
	codec    codec
	track    *webrtc.TrackLocalStaticRTP
	receiver *webrtc.RTPReceiver
	done     chan struct{}
	log      *logger.Logger
}

func (p *pionProducer) Id() string                   { return p.id }
func (p *pionProducer) Kind() string                 { return p.kind }
func (p *pionProducer) RtpParameters() RtpParameters { return p.params }

// forward copies the incoming RTP packets into the local track of the consumers.
func (p *pionProducer) forward(e *PionEngine, ready <-chan struct{}, ssrc uint32, pt uint8) {
	defer e.guard()
	select {
	case <-ready:
	case <-p.done:
		return
	}
	err := p.receiver.Receive(webrtc.RTPReceiveParameters{Encodings: []webrtc.RTPDecodingParameters{
		{RTPCodingParameters: webrtc.RTPCodingParameters{SSRC: webrtc.SSRC(ssrc), PayloadType: webrtc.PayloadType(pt)}},
	}})
	if err != nil {
		p.log.Warn().Err(err).Msg("RTP receive fail")
		_ = p.Close()
		return
	}
	remote := p.receiver.Track()
	p.log.Debug().Uint32("ssrc", ssrc).Msg("Forwarding")
	for {
		pkt, _, err := remote.ReadRTP()
		if err != nil {
			return
		}
		if err = p.track.WriteRTP(pkt); err != nil {
			p.log.Debug().Err(err).Msg("RTP write")
		}
	}
}

func (p *pionProducer) Close() error {
	fns, ok := p.close()
	if !ok {
		return nil
	}
	close(p.done)
	err := p.receiver.Stop()
	for _, fn := range fns {
		fn()
	}
	return err
}

type pionConsumer struct {
	closeHandlers

	id         string
	producerId string
	kind       string
	params     RtpParameters
	sender     *webrtc.RTPSender
	done       chan struct{}
	log        *logger.Logger
}

func (c *pionConsumer) Id() string                   { return c.id }
func (c *pionConsumer) ProducerId() string           { return c.producerId }
func (c *pionConsumer) Kind() string                 { return c.kind }
func (c *pionConsumer) RtpParameters() RtpParameters { return c.params }

func (c *pionConsumer) send(e *PionEngine, ready <-chan struct{}, ssrc uint32, pt uint8) {
	defer e.guard()
	select {
	case <-ready:
	case <-c.done:
		return
	}
	err := c.sender.Send(webrtc.RTPSendParameters{Encodings: []webrtc.RTPEncodingParameters{
		{RTPCodingParameters: webrtc.RTPCodingParameters{SSRC: webrtc.SSRC(ssrc), PayloadType: webrtc.PayloadType(pt)}},
	}})
	if err != nil {
		c.log.Warn().Err(err).Msg("RTP send fail")
		_ = c.Close()
		return
	}
	// drain RTCP for the interceptors
	for {
		if _, _, err := c.sender.ReadRTCP(); err != nil {
			return
		}
	}
}

func (c *pionConsumer) Close() error {
	fns, ok := c.close()
	if !ok {
		return nil
	}
	close(c.done)
	err := c.sender.Stop()
	for _, fn := range fns {
		fn()
	}
	return err
}
