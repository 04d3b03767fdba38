package websocket

import (
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/chesscast/chesscast/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	maxMessageSize = 10 * 1024
	pingTime       = pongTime * 9 / 10
	pongTime       = 5 * time.Second
	writeWait      = 1 * time.Second
	sendBuffer     = 64
)

type MessageType int

const (
	TextMessage   MessageType = websocket.TextMessage
	BinaryMessage MessageType = websocket.BinaryMessage
)

var (
	ErrClosed     = errors.New("websocket closed")
	ErrBufferFull = errors.New("websocket send buffer is full")
)

type (
	WS struct {
		conn       deadlinedConn
		send       chan message
		OnMessage  MessageHandler
		pingPong   bool
		pingEvery  time.Duration
		maxMessage int64
		once       sync.Once
		Done       chan struct{}
		log        *logger.Logger
	}
	MessageHandler func(mt MessageType, data []byte)

	message struct {
		mt   MessageType
		data []byte
	}

	Upgrader struct {
		websocket.Upgrader
		origin string
	}

	Options struct {
		MaxMessageSize int64
		SendBuffer     int
		PingInterval   time.Duration
	}
)

var DefaultUpgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	WriteBufferPool: &sync.Pool{},
}

// NewUpgrader makes an upgrader that allows the origin.
// An empty value or * allows any origin.
func NewUpgrader(origin string) *Upgrader {
	u := Upgrader{Upgrader: DefaultUpgrader, origin: origin}
	switch origin {
	case "", "*":
		u.CheckOrigin = func(*http.Request) bool { return true }
	default:
		u.CheckOrigin = u.originMatch
	}
	return &u
}

func (u *Upgrader) originMatch(r *http.Request) bool {
	o := r.Header.Get("Origin")
	return o == "" || o == u.origin
}

func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request, opts Options, log *logger.Logger) (*WS, error) {
	conn, err := u.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, true, opts, log), nil
}

// Connect dials a websocket server.
func Connect(address url.URL, opts Options, log *logger.Logger) (*WS, error) {
	conn, _, err := websocket.DefaultDialer.Dial(address.String(), nil)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, false, opts, log), nil
}

func newSocket(conn *websocket.Conn, pingPong bool, opts Options, log *logger.Logger) *WS {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = maxMessageSize
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = sendBuffer
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = pingTime
	}
	if log == nil {
		log = logger.Default()
	}
	return &WS{
		conn:       deadlinedConn{sock: conn, wt: writeWait},
		send:       make(chan message, opts.SendBuffer),
		pingPong:   pingPong,
		pingEvery:  opts.PingInterval,
		maxMessage: opts.MaxMessageSize,
		Done:       make(chan struct{}),
		log:        log,
	}
}

// reader pumps messages from the websocket connection to the OnMessage callback.
// Run reader in a per-connection goroutine.
func (ws *WS) reader() {
	defer ws.shutdown()

	pongWait := ws.pingEvery * 10 / 9
	ws.conn.setup(func(conn *websocket.Conn) {
		conn.SetReadLimit(ws.maxMessage)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if ws.pingPong {
			conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
		} else {
			_ = conn.SetReadDeadline(time.Time{})
		}
	})
	for {
		mt, data, err := ws.conn.read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				ws.log.Error().Err(err).Msg("WebSocket read fail")
			}
			return
		}
		if ws.pingPong {
			_ = ws.conn.sock.SetReadDeadline(time.Now().Add(pongWait))
		}
		if ws.OnMessage != nil {
			ws.OnMessage(MessageType(mt), data)
		}
	}
}

// writer pumps messages from the send channel to the websocket connection.
// Run writer in a per-connection goroutine.
func (ws *WS) writer() {
	var tick <-chan time.Time
	if ws.pingPong {
		ticker := time.NewTicker(ws.pingEvery)
		defer ticker.Stop()
		tick = ticker.C
	}

	defer func() { _ = ws.conn.close() }()
	for {
		select {
		case <-ws.Done:
			_ = ws.conn.write(websocket.CloseMessage, []byte{})
			return
		case m := <-ws.send:
			if err := ws.conn.write(int(m.mt), m.data); err != nil {
				ws.log.Error().Err(err).Msg("WebSocket write fail")
				ws.shutdown()
				return
			}
		case <-tick:
			if err := ws.conn.write(websocket.PingMessage, nil); err != nil {
				ws.shutdown()
				return
			}
		}
	}
}

// Listen starts the read and write pumps.
func (ws *WS) Listen() {
	go ws.writer()
	go ws.reader()
}

// Write enqueues a text message, it waits if the buffer is full.
func (ws *WS) Write(data []byte) error { return ws.enqueue(message{mt: TextMessage, data: data}, true) }

// WriteBinary enqueues a binary message or drops it if the buffer is full.
func (ws *WS) WriteBinary(data []byte) error {
	return ws.enqueue(message{mt: BinaryMessage, data: data}, false)
}

func (ws *WS) enqueue(m message, wait bool) error {
	select {
	case <-ws.Done:
		return ErrClosed
	default:
	}
	if wait {
		select {
		case ws.send <- m:
			return nil
		case <-ws.Done:
			return ErrClosed
		}
	}
	select {
	case ws.send <- m:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close closes the connection gracefully.
func (ws *WS) Close() { ws.shutdown() }

func (ws *WS) shutdown() {
	ws.once.Do(func() {
		close(ws.Done)
		ws.log.Debug().Msg("WebSocket should be closed now")
	})
}
