// Package media is a small selective forwarding unit:
// per token rooms with client transports, producers and consumers.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/chesscast/chesscast/pkg/com"
	"github.com/chesscast/chesscast/pkg/logger"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrTransportNotFound = errors.New("transport not found")
	ErrProducerNotFound  = errors.New("producer not found")
	ErrWrongDirection    = errors.New("wrong transport direction")
	ErrCannotConsume     = errors.New("cannot consume the producer")
	ErrBadDirection      = errors.New("direction should be send or recv")
)

type room struct {
	token      string
	caps       RtpCapabilities
	transports map[string]Transport
	producers  map[string]Producer
	consumers  map[string]Consumer
}

// Manager keeps the media rooms.
type Manager struct {
	engine Engine
	mu     sync.Mutex
	rooms  map[string]*room
	log    *logger.Logger
}

func NewManager(engine Engine, log *logger.Logger) *Manager {
	return &Manager{engine: engine, rooms: make(map[string]*room), log: log.Module("media")}
}

// EnsureRoom creates the room of the token if needed and returns its capabilities.
func (m *Manager) EnsureRoom(token string) RtpCapabilities {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensure(token).caps
}

func (m *Manager) ensure(token string) *room {
	r, ok := m.rooms[token]
	if !ok {
		r = &room{
			token:      token,
			caps:       Capabilities(),
			transports: make(map[string]Transport),
			producers:  make(map[string]Producer),
			consumers:  make(map[string]Consumer),
		}
		m.rooms[token] = r
		rooms.Set(float64(len(m.rooms)))
		m.log.Info().Str("token", token).Msg("Room created")
	}
	return r
}

func (m *Manager) HasRoom(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rooms[token]
	return ok
}

// transport returns the client transport, the caller must hold the lock.
func (m *Manager) transport(token, client string) (*room, Transport, error) {
	r, ok := m.rooms[token]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %w", ErrTransportNotFound, ErrRoomNotFound)
	}
	t, ok := r.transports[client]
	if !ok {
		return nil, nil, ErrTransportNotFound
	}
	return r, t, nil
}

// CreateTransport makes a new transport for the client in the token room.
// The previous transport of the client is closed.
func (m *Manager) CreateTransport(token, client string, dir Direction) (TransportInfo, error) {
	if !dir.IsValid() {
		return TransportInfo{}, ErrBadDirection
	}
	id := com.NewId()
	t, err := m.engine.CreateTransport(id, dir)
	if err != nil {
		return TransportInfo{}, err
	}

	m.mu.Lock()
	r := m.ensure(token)
	old := r.transports[client]
	r.transports[client] = t
	m.mu.Unlock()

	transports.Inc()
	t.OnClose(func() {
		transports.Dec()
		m.forgetTransport(token, client, id)
	})
	if old != nil {
		m.log.Debug().Str("token", token).Str("c", client).Str("id", old.Id()).Msg("Transport replaced")
		_ = old.Close()
	}
	m.log.Debug().Str("token", token).Str("c", client).Str("id", id).Str("dir", string(dir)).Msg("Transport created")
	return t.Info(), nil
}

// ConnectTransport starts the client transport with the remote parameters.
func (m *Manager) ConnectTransport(token, client string, remote RemoteParams) (string, error) {
	m.mu.Lock()
	_, t, err := m.transport(token, client)
	m.mu.Unlock()
	if err != nil {
		return "", err
	}
	if err = t.Connect(remote); err != nil {
		return "", err
	}
	return t.Id(), nil
}

// Produce binds a new producer to the client send transport.
func (m *Manager) Produce(token, client, transportId, kind string, params RtpParameters) (ProducerInfo, error) {
	m.mu.Lock()
	_, t, err := m.transport(token, client)
	m.mu.Unlock()
	if err != nil {
		return ProducerInfo{}, err
	}
	if transportId != "" && t.Id() != transportId {
		return ProducerInfo{}, ErrTransportNotFound
	}
	if kind == "" {
		kind = "video"
	}

	id := com.NewId()
	p, err := t.Produce(id, kind, params)
	if err != nil {
		return ProducerInfo{}, err
	}

	m.mu.Lock()
	r, ok := m.rooms[token]
	if !ok || r.transports[client] != t {
		m.mu.Unlock()
		_ = p.Close()
		return ProducerInfo{}, ErrTransportNotFound
	}
	r.producers[id] = p
	m.mu.Unlock()

	producers.Inc()
	p.OnClose(func() { m.forgetProducer(token, id) })
	m.log.Info().Str("token", token).Str("c", client).Str("id", id).Msg("Producer created")
	return ProducerInfo{Id: id, Kind: p.Kind(), RtpParameters: p.RtpParameters()}, nil
}

// Consume binds a consumer of a room producer to the client receive transport.
// The optional capabilities must support the producer codec.
func (m *Manager) Consume(token, client, transportId, producerId string, caps *RtpCapabilities) (ConsumerInfo, error) {
	m.mu.Lock()
	r, t, err := m.transport(token, client)
	var p Producer
	if err == nil {
		var ok bool
		if p, ok = r.producers[producerId]; !ok {
			err = ErrProducerNotFound
		}
	}
	m.mu.Unlock()
	if err != nil {
		return ConsumerInfo{}, err
	}
	if transportId != "" && t.Id() != transportId {
		return ConsumerInfo{}, ErrTransportNotFound
	}
	if caps != nil && !canConsume(*caps, p) {
		return ConsumerInfo{}, ErrCannotConsume
	}

	id := com.NewId()
	c, err := t.Consume(id, p)
	if err != nil {
		return ConsumerInfo{}, err
	}

	m.mu.Lock()
	r, ok := m.rooms[token]
	if ok {
		_, ok = r.producers[producerId]
	}
	if !ok || r.transports[client] != t {
		m.mu.Unlock()
		_ = c.Close()
		return ConsumerInfo{}, ErrTransportNotFound
	}
	r.consumers[id] = c
	m.mu.Unlock()

	consumers.Inc()
	c.OnClose(func() { m.forgetConsumer(token, id) })
	m.log.Info().Str("token", token).Str("c", client).Str("id", id).Str("producer", producerId).Msg("Consumer created")
	return ConsumerInfo{Id: id, ProducerId: producerId, Kind: c.Kind(), RtpParameters: c.RtpParameters()}, nil
}

func canConsume(caps RtpCapabilities, p Producer) bool {
	for _, pc := range p.RtpParameters().Codecs {
		for _, c := range caps.Codecs {
			if strings.EqualFold(c.MimeType, pc.MimeType) {
				return true
			}
		}
	}
	return false
}

func (m *Manager) forgetTransport(token, client, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[token]; ok {
		if t, ok := r.transports[client]; ok && t.Id() == id {
			delete(r.transports, client)
		}
	}
	m.log.Debug().Str("token", token).Str("c", client).Str("id", id).Msg("Transport closed")
}

// forgetProducer removes the producer and closes its consumers.
func (m *Manager) forgetProducer(token, id string) {
	m.mu.Lock()
	r, ok := m.rooms[token]
	var orphans []Consumer
	if ok {
		delete(r.producers, id)
		for cid, c := range r.consumers {
			if c.ProducerId() == id {
				orphans = append(orphans, c)
				delete(r.consumers, cid)
			}
		}
	}
	m.mu.Unlock()
	for _, c := range orphans {
		_ = c.Close()
	}
}

func (m *Manager) forgetConsumer(token, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[token]; ok {
		delete(r.consumers, id)
	}
}

// CloseClient closes the transport of the client in the token room.
func (m *Manager) CloseClient(token, client string) bool {
	m.mu.Lock()
	var t Transport
	if r, ok := m.rooms[token]; ok {
		if t, ok = r.transports[client]; ok {
			delete(r.transports, client)
		}
	}
	m.mu.Unlock()
	if t == nil {
		return false
	}
	if err := t.Close(); err != nil {
		m.log.Warn().Err(err).Str("token", token).Str("c", client).Msg("Transport close")
	}
	return true
}

// CloseRoom closes every transport of the room and removes it.
func (m *Manager) CloseRoom(token string) bool {
	m.mu.Lock()
	r, ok := m.rooms[token]
	if ok {
		delete(m.rooms, token)
		rooms.Set(float64(len(m.rooms)))
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	closeRoom(r, m.log)
	m.log.Info().Str("token", token).Msg("Room closed")
	return true
}

func closeRoom(r *room, log *logger.Logger) {
	for client, t := range r.transports {
		if err := t.Close(); err != nil {
			log.Warn().Err(err).Str("token", r.token).Str("c", client).Msg("Transport close")
		}
	}
	// the engine closes them with the transports, these are leftovers
	for _, p := range r.producers {
		_ = p.Close()
	}
	for _, c := range r.consumers {
		_ = c.Close()
	}
}

// Rooms returns the number of rooms.
func (m *Manager) Rooms() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// Done closes when the media engine fails.
func (m *Manager) Done() <-chan struct{} { return m.engine.Done() }

// Shutdown closes all the rooms and the engine.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	all := m.rooms
	m.rooms = make(map[string]*room)
	rooms.Set(0)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, r := range all {
			closeRoom(r, m.log)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return m.engine.Close()
}

func (m *Manager) String() string { return "media rooms" }
