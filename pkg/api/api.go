// Package api defines the realtime protocol of the chess streams.
//
// Each control message is a JSON-encoded "packet" of the following structure:
//
//	t - (required) one of the predefined event names;
//	p - (optional) the event payload.
//
// The event name tells into which request/response structure the payload unwraps.
// Video frames go in binary messages instead (see DecodeFrame).
//
// Example:
//
//	{"t":"start-stream","p":{"token":"g1"}}
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gojson "github.com/goccy/go-json"
)

type PT string

// Inbound events.
const (
	StartStream              PT = "start-stream"
	JoinStream               PT = "join-stream"
	GetRouterRtpCapabilities PT = "get-router-rtp-capabilities"
	CreateTransport          PT = "create-transport"
	ConnectTransport         PT = "connect-transport"
	Produce                  PT = "produce"
	Consume                  PT = "consume"
	Frame                    PT = "frame"
	StopStream               PT = "stop-stream"
)

// Outbound events.
const (
	StreamStarted         PT = "stream-started"
	StreamJoined          PT = "stream-joined"
	StreamStopped         PT = "stream-stopped"
	RouterRtpCapabilities PT = "router-rtp-capabilities"
	TransportCreated      PT = "transport-created"
	TransportConnected    PT = "transport-connected"
	Produced              PT = "produced"
	Consumed              PT = "consumed"
	CalibrationStarted    PT = "calibration-started"
	CalibrationCompleted  PT = "calibration-completed"
	FrameProcessed        PT = "frame-processed"
	Error                 PT = "error"
)

func (p PT) String() string { return string(p) }

type In struct {
	T       PT              `json:"t"`
	Payload json.RawMessage `json:"p,omitempty"` // should be json.RawMessage for 2-pass unmarshal
}

type Out struct {
	T       PT  `json:"t"`
	Payload any `json:"p,omitempty"`
}

var (
	ErrMalformed = errors.New("malformed message")
	ErrBadToken  = errors.New("invalid token")
)

// MissingField is a validation error of a required request field.
type MissingField string

func (m MissingField) Error() string {
	if m == "" {
		return "field is required"
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:]) + " is required"
}

// Decode reads a control packet.
func Decode(data []byte) (In, error) {
	var in In
	if err := gojson.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if in.T == "" {
		return in, fmt.Errorf("%w: no event type", ErrMalformed)
	}
	return in, nil
}

// Encode makes a control packet.
func Encode(t PT, payload any) ([]byte, error) { return gojson.Marshal(Out{T: t, Payload: payload}) }

// Unwrap decodes the payload into the request structure T.
func Unwrap[T any](data []byte) (*T, error) {
	out := new(T)
	if len(data) == 0 {
		return out, nil
	}
	if err := gojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return out, nil
}

const maxTokenLen = 128

// ValidToken checks that the token is usable as a file name part.
func ValidToken(token string) error {
	switch {
	case token == "":
		return MissingField("token")
	case len(token) > maxTokenLen,
		token == ".",
		strings.Contains(token, ".."),
		strings.ContainsAny(token, "/\\\x00"):
		return ErrBadToken
	}
	return nil
}
