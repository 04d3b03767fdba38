package gateway

import (
	"github.com/chesscast/chesscast/pkg/api"
	"github.com/chesscast/chesscast/pkg/com"
	"github.com/chesscast/chesscast/pkg/logger"
)

// Conn is a client message connection.
// Write waits for the buffer space, WriteBinary drops the message instead.
type Conn interface {
	Write(data []byte) error
	WriteBinary(data []byte) error
	Close()
}

type Client struct {
	id   string
	conn Conn
	log  *logger.Logger
}

func NewClient(conn Conn, log *logger.Logger) *Client {
	id := com.NewId()
	return &Client{
		id:   id,
		conn: conn,
		log:  log.Extend(log.With().Str(logger.ClientField, id)),
	}
}

func (c *Client) Id() string { return c.id }

// Notify sends an event to the client.
func (c *Client) Notify(t api.PT, payload any) {
	data, err := api.Encode(t, payload)
	if err != nil {
		c.log.Error().Err(err).Str("t", t.String()).Msg("Packet encode fail")
		return
	}
	c.send(t, data)
}

func (c *Client) send(t api.PT, data []byte) {
	if err := c.conn.Write(data); err != nil {
		c.log.Debug().Err(err).Str("t", t.String()).Msg("Packet was not sent")
	}
}

// Error sends an error event with the message.
func (c *Client) Error(message string) {
	c.log.Debug().Str("msg", message).Msg("Client error")
	c.Notify(api.Error, api.ErrorResponse{Message: message})
}

// SendFrame sends a binary frame, slow clients skip frames.
func (c *Client) SendFrame(data []byte) bool {
	if err := c.conn.WriteBinary(data); err != nil {
		framesSkipped.Inc()
		return false
	}
	return true
}

func (c *Client) Close() { c.conn.Close() }
