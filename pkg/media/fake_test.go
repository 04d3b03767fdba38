package media

import "sync"

type fakeEngine struct {
	mu         sync.Mutex
	transports []*fakeTransport
	fail       error
	done       chan struct{}
}

func newFakeEngine() *fakeEngine { return &fakeEngine{done: make(chan struct{})} }

func (e *fakeEngine) CreateTransport(id string, dir Direction) (Transport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return nil, e.fail
	}
	t := &fakeTransport{id: id, dir: dir}
	e.transports = append(e.transports, t)
	return t, nil
}

func (e *fakeEngine) Done() <-chan struct{} { return e.done }
func (e *fakeEngine) Close() error          { close(e.done); return nil }

type fakeTransport struct {
	closeHandlers
	id        string
	dir       Direction
	connected *RemoteParams
	mu        sync.Mutex
	children  []interface{ Close() error }
}

func (t *fakeTransport) Id() string           { return t.id }
func (t *fakeTransport) Direction() Direction { return t.dir }
func (t *fakeTransport) Info() TransportInfo {
	return TransportInfo{Id: t.id, IceParameters: IceParameters{UsernameFragment: "u", Password: "p"}}
}

func (t *fakeTransport) Connect(remote RemoteParams) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connected != nil {
		return ErrConnected
	}
	t.connected = &remote
	return nil
}

func (t *fakeTransport) Produce(id string, kind string, params RtpParameters) (Producer, error) {
	if t.dir != Send {
		return nil, ErrWrongDirection
	}
	if _, _, err := negotiate(params.Codecs); err != nil {
		return nil, err
	}
	p := &fakeProducer{id: id, kind: kind, params: params}
	t.mu.Lock()
	t.children = append(t.children, p)
	t.mu.Unlock()
	return p, nil
}

func (t *fakeTransport) Consume(id string, producer Producer) (Consumer, error) {
	if t.dir != Recv {
		return nil, ErrWrongDirection
	}
	c := &fakeConsumer{id: id, producer: producer.Id(), kind: producer.Kind()}
	t.mu.Lock()
	t.children = append(t.children, c)
	t.mu.Unlock()
	return c, nil
}

func (t *fakeTransport) Close() error {
	fns, ok := t.close()
	if !ok {
		return nil
	}
	t.mu.Lock()
	children := t.children
	t.children = nil
	t.mu.Unlock()
	for _, c := range children {
		_ = c.Close()
	}
	for _, fn := range fns {
		fn()
	}
	return nil
}

func (t *fakeTransport) Closed() bool { return t.isClosed() }

type fakeProducer struct {
	closeHandlers
	id, kind string
	params   RtpParameters
}

func (p *fakeProducer) Id() string                   { return p.id }
func (p *fakeProducer) Kind() string                 { return p.kind }
func (p *fakeProducer) RtpParameters() RtpParameters { return p.params }
func (p *fakeProducer) Close() error                 { return runClose(&p.closeHandlers) }

type fakeConsumer struct {
	closeHandlers
	id, producer, kind string
}

func (c *fakeConsumer) Id() string                   { return c.id }
func (c *fakeConsumer) ProducerId() string           { return c.producer }
func (c *fakeConsumer) Kind() string                 { return c.kind }
func (c *fakeConsumer) RtpParameters() RtpParameters { return RtpParameters{} }
func (c *fakeConsumer) Close() error                 { return runClose(&c.closeHandlers) }

func runClose(h *closeHandlers) error {
	fns, ok := h.close()
	if !ok {
		return nil
	}
	for _, fn := range fns {
		fn()
	}
	return nil
}
