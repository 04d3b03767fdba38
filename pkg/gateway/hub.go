// Package gateway terminates the realtime protocol of the chess streams
// and routes client events to the recognition, calibration and media parts.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/chesscast/chesscast/pkg/api"
	"github.com/chesscast/chesscast/pkg/calibration"
	"github.com/chesscast/chesscast/pkg/com"
	"github.com/chesscast/chesscast/pkg/config"
	"github.com/chesscast/chesscast/pkg/logger"
	"github.com/chesscast/chesscast/pkg/media"
	"github.com/chesscast/chesscast/pkg/network/websocket"
	"github.com/chesscast/chesscast/pkg/recognition"
	"github.com/chesscast/chesscast/pkg/session"
)

type Recognizer interface {
	Start(token, modelPath string, onResult recognition.ResultFunc, onError recognition.ErrorFunc) (bool, error)
	Send(token string, frame []byte) error
	Stop(token string) bool
}

type Calibrator interface {
	HasMapping(token string) bool
	Calibrate(ctx context.Context, token string, image []byte) calibration.Result
	Restore(ctx context.Context, token string) bool
}

type MediaRooms interface {
	EnsureRoom(token string) media.RtpCapabilities
	CreateTransport(token, client string, dir media.Direction) (media.TransportInfo, error)
	ConnectTransport(token, client string, remote media.RemoteParams) (string, error)
	Produce(token, client, transportId, kind string, params media.RtpParameters) (media.ProducerInfo, error)
	Consume(token, client, transportId, producerId string, caps *media.RtpCapabilities) (media.ConsumerInfo, error)
	CloseClient(token, client string) bool
	CloseRoom(token string) bool
}

type Hub struct {
	conf     config.Gateway
	upgrader *websocket.Upgrader
	clients  *com.Map[string, *Client]

	sessions   *session.Registry
	recognizer Recognizer
	calibrator Calibrator
	media      MediaRooms

	// background calibrations
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *logger.Logger
}

func NewHub(conf config.Gateway, sessions *session.Registry, recognizer Recognizer, calibrator Calibrator,
	rooms MediaRooms, log *logger.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		conf:       conf,
		upgrader:   websocket.NewUpgrader(conf.Origin),
		clients:    com.NewMap[string, *Client](),
		sessions:   sessions,
		recognizer: recognizer,
		calibrator: calibrator,
		media:      rooms,
		ctx:        ctx,
		cancel:     cancel,
		log:        log.Module("gateway"),
	}
}

// handleWebsocket serves one client connection until it closes.
func (h *Hub) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, websocket.Options{
		MaxMessageSize: h.conf.MaxMessageSize,
		SendBuffer:     h.conf.SendBuffer,
		PingInterval:   h.conf.PingInterval,
	}, h.log)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade fail")
		return
	}
	c := h.connect(conn)
	conn.OnMessage = func(mt websocket.MessageType, data []byte) { h.handle(c, mt, data) }
	conn.Listen()
	<-conn.Done
	h.disconnect(c)
}

func (h *Hub) connect(conn Conn) *Client {
	c := NewClient(conn, h.log)
	h.clients.Put(c.Id(), c)
	clientsConnected.Inc()
	c.log.Info().Msg("Client connected")
	return c
}

// handle routes one inbound message, it never panics.
func (h *Hub) handle(c *Client, mt websocket.MessageType, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("Handler has failed")
			c.Error("Internal error")
		}
	}()

	if mt == websocket.BinaryMessage {
		events.WithLabelValues(api.Frame.String()).Inc()
		h.handleFrame(c, data)
		return
	}

	in, err := api.Decode(data)
	if err != nil {
		c.Error(err.Error())
		return
	}
	c.log.Debug().Str(logger.DirectionField, "←").Str("t", in.T.String()).Msg("Event")

	switch in.T {
	case api.StartStream:
		h.handleStartStream(c, in.Payload)
	case api.JoinStream:
		h.handleJoinStream(c, in.Payload)
	case api.GetRouterRtpCapabilities:
		h.handleGetRouterRtpCapabilities(c, in.Payload)
	case api.CreateTransport:
		h.handleCreateTransport(c, in.Payload)
	case api.ConnectTransport:
		h.handleConnectTransport(c, in.Payload)
	case api.Produce:
		h.handleProduce(c, in.Payload)
	case api.Consume:
		h.handleConsume(c, in.Payload)
	case api.StopStream:
		h.handleStopStream(c, in.Payload)
	case api.Frame:
		c.Error("Frames should be sent as binary messages")
	default:
		events.WithLabelValues("unknown").Inc()
		c.Error("Unknown event " + in.T.String())
		return
	}
	events.WithLabelValues(in.T.String()).Inc()
}

// disconnect clears everything the client had.
func (h *Hub) disconnect(c *Client) {
	h.clients.RemoveByKey(c.Id())
	clientsConnected.Dec()

	for _, d := range h.sessions.Disconnect(c.Id()) {
		switch {
		case d.WasStreamer:
			h.recognizer.Stop(d.Token)
			h.media.CloseRoom(d.Token)
			h.notifyAll(d.Remaining, api.StreamStopped, api.StreamResponse{Token: d.Token})
			c.log.Info().Str("token", d.Token).Msg("Streamer has left, the stream is stopped")
		case d.HeldMedia:
			h.media.CloseClient(d.Token, c.Id())
		}
	}
	c.log.Info().Msg("Client disconnected")
}

// notifyAll sends the event to every listed client.
func (h *Hub) notifyAll(ids []string, t api.PT, payload any) {
	if len(ids) == 0 {
		return
	}
	data, err := api.Encode(t, payload)
	if err != nil {
		h.log.Error().Err(err).Str("t", t.String()).Msg("Packet encode fail")
		return
	}
	for _, id := range ids {
		if c, err := h.clients.Find(id); err == nil {
			c.send(t, data)
		}
	}
}

// broadcast sends the event to the token room.
func (h *Hub) broadcast(token string, t api.PT, payload any) {
	h.notifyAll(h.sessions.Members(token), t, payload)
}

// relay sends a binary frame to the token room except the sender.
func (h *Hub) relay(token, sender string, data []byte) {
	for _, id := range h.sessions.Members(token) {
		if id == sender {
			continue
		}
		if c, err := h.clients.Find(id); err == nil && c.SendFrame(data) {
			framesRelayed.Inc()
		}
	}
}

// startWorker makes sure a recognition worker runs for the token,
// its results go to the whole room.
func (h *Hub) startWorker(token, modelPath string) error {
	_, err := h.recognizer.Start(token, modelPath,
		func(token string, result json.RawMessage) { h.broadcast(token, api.FrameProcessed, result) },
		func(token string, err error) {
			if streamer, e := h.clients.Find(h.sessions.Streamer(token)); e == nil {
				streamer.Error(err.Error())
			}
		},
	)
	return err
}

// OnMappingChange tracks mapping files made outside of the gateway.
func (h *Hub) OnMappingChange(token string, created bool) {
	if !created {
		h.log.Info().Str("token", token).Msg("Mapping was removed")
		return
	}
	if h.sessions.MarkCalibrated(token) {
		h.log.Info().Str("token", token).Msg("Mapping has appeared, the session is calibrated")
	}
}

func (h *Hub) Clients() int { return h.clients.Len() }

// Shutdown cancels running calibrations and closes all the clients.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()
	for _, c := range h.clients.Values() {
		c.Close()
	}
	done := make(chan struct{})
	go func() { h.wg.Wait(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) String() string { return "gateway" }
