package media

import "sync"

// Engine makes the media transports of all rooms.
// Its Done channel closes when the engine can not work anymore.
type Engine interface {
	CreateTransport(id string, dir Direction) (Transport, error)
	Done() <-chan struct{}
	Close() error
}

// Transport is a client network path.
// Closing a transport closes its producers and consumers.
type Transport interface {
	Id() string
	Direction() Direction
	Info() TransportInfo
	Connect(remote RemoteParams) error
	Produce(id string, kind string, params RtpParameters) (Producer, error)
	Consume(id string, producer Producer) (Consumer, error)
	OnClose(fn func())
	Close() error
}

type Producer interface {
	Id() string
	Kind() string
	RtpParameters() RtpParameters
	OnClose(fn func())
	Close() error
}

type Consumer interface {
	Id() string
	ProducerId() string
	Kind() string
	RtpParameters() RtpParameters
	OnClose(fn func())
	Close() error
}

// closeHandlers runs the close callbacks of an entity once.
type closeHandlers struct {
	mu     sync.Mutex
	closed bool
	fns    []func()
}

// OnClose adds the callback or runs it if already closed.
func (h *closeHandlers) OnClose(fn func()) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		fn()
		return
	}
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

// close marks the entity closed, it returns false on repeated calls.
func (h *closeHandlers) close() ([]func(), bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	h.closed = true
	fns := h.fns
	h.fns = nil
	return fns, true
}

func (h *closeHandlers) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}
