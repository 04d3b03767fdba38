package gateway

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chesscast/chesscast/pkg/api"
	"github.com/chesscast/chesscast/pkg/calibration"
	"github.com/chesscast/chesscast/pkg/media"
	"github.com/chesscast/chesscast/pkg/recognition"
)

// encodeFrame makes a binary frame message the way clients do.
func encodeFrame(token string, image []byte) []byte {
	buf := make([]byte, 2+len(token)+len(image))
	binary.BigEndian.PutUint16(buf, uint16(len(token)))
	copy(buf[2:], token)
	copy(buf[2+len(token):], image)
	return buf
}

type fakeConn struct {
	mu     sync.Mutex
	text   [][]byte
	binary [][]byte
	closed bool
}

func (f *fakeConn) Write(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = append(f.text, data)
	return nil
}

func (f *fakeConn) WriteBinary(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binary = append(f.binary, data)
	return nil
}

func (f *fakeConn) Close() { f.mu.Lock(); f.closed = true; f.mu.Unlock() }

func (f *fakeConn) events() []api.In {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []api.In
	for _, m := range f.text {
		in, err := api.Decode(m)
		if err != nil {
			panic(err)
		}
		out = append(out, in)
	}
	return out
}

// types returns the sent event names in order.
func (f *fakeConn) types() []api.PT {
	var tt []api.PT
	for _, e := range f.events() {
		tt = append(tt, e.T)
	}
	return tt
}

// last returns the payload of the last event of the type.
func (f *fakeConn) last(t api.PT) (json.RawMessage, bool) {
	ee := f.events()
	for i := len(ee) - 1; i >= 0; i-- {
		if ee[i].T == t {
			return ee[i].Payload, true
		}
	}
	return nil, false
}

func (f *fakeConn) lastError() string {
	p, ok := f.last(api.Error)
	if !ok {
		return ""
	}
	var e api.ErrorResponse
	if err := json.Unmarshal(p, &e); err != nil {
		panic(err)
	}
	return e.Message
}

func (f *fakeConn) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.binary...)
}

type fakeRecognizer struct {
	mu       sync.Mutex
	err      error
	models   map[string]string
	frames   map[string]int
	stopped  []string
	onResult map[string]recognition.ResultFunc
	onError  map[string]recognition.ErrorFunc
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{
		models:   make(map[string]string),
		frames:   make(map[string]int),
		onResult: make(map[string]recognition.ResultFunc),
		onError:  make(map[string]recognition.ErrorFunc),
	}
}

func (f *fakeRecognizer) Start(token, modelPath string, onResult recognition.ResultFunc, onError recognition.ErrorFunc) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.models[token]; ok {
		return false, nil
	}
	f.models[token] = modelPath
	f.onResult[token] = onResult
	f.onError[token] = onError
	return true, nil
}

func (f *fakeRecognizer) Send(token string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.models[token]; !ok {
		return fmt.Errorf("%w for token %s", recognition.ErrNoActiveStream, token)
	}
	f.frames[token]++
	return nil
}

func (f *fakeRecognizer) Stop(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.models[token]
	delete(f.models, token)
	f.stopped = append(f.stopped, token)
	return ok
}

func (f *fakeRecognizer) running(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.models[token]
	return ok
}

type fakeCalibrator struct {
	mu       sync.Mutex
	mappings map[string]bool
	remote   map[string]bool
	result   calibration.Result
	calls    int
}

func newFakeCalibrator() *fakeCalibrator {
	return &fakeCalibrator{mappings: make(map[string]bool), remote: make(map[string]bool)}
}

func (f *fakeCalibrator) HasMapping(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mappings[token]
}

func (f *fakeCalibrator) Calibrate(_ context.Context, token string, image []byte) calibration.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(image) == 0 {
		return calibration.Result{Message: "Calibration error: no image"}
	}
	if f.result.Success {
		f.mappings[token] = true
	}
	return f.result
}

func (f *fakeCalibrator) Restore(_ context.Context, token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remote[token] {
		f.mappings[token] = true
		return true
	}
	return false
}

func (f *fakeCalibrator) Calls() int { f.mu.Lock(); defer f.mu.Unlock(); return f.calls }

type fakeMedia struct {
	mu           sync.Mutex
	transports   map[string]media.Direction
	closedRooms  []string
	closedClient []string
}

func newFakeMedia() *fakeMedia { return &fakeMedia{transports: make(map[string]media.Direction)} }

func (f *fakeMedia) EnsureRoom(string) media.RtpCapabilities { return media.Capabilities() }

func (f *fakeMedia) CreateTransport(token, client string, dir media.Direction) (media.TransportInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transports[token+"/"+client] = dir
	return media.TransportInfo{Id: "t-" + client}, nil
}

func (f *fakeMedia) ConnectTransport(token, client string, _ media.RemoteParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.transports[token+"/"+client]; !ok {
		return "", media.ErrTransportNotFound
	}
	return "t-" + client, nil
}

func (f *fakeMedia) Produce(token, client, transportId, kind string, params media.RtpParameters) (media.ProducerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transports[token+"/"+client] != media.Send {
		return media.ProducerInfo{}, media.ErrTransportNotFound
	}
	return media.ProducerInfo{Id: "p-" + client, Kind: kind, RtpParameters: params}, nil
}

func (f *fakeMedia) Consume(token, client, transportId, producerId string, _ *media.RtpCapabilities) (media.ConsumerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transports[token+"/"+client] != media.Recv {
		return media.ConsumerInfo{}, media.ErrTransportNotFound
	}
	return media.ConsumerInfo{Id: "c-" + client, ProducerId: producerId, Kind: "video"}, nil
}

func (f *fakeMedia) CloseClient(token, client string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closedClient = append(f.closedClient, token+"/"+client)
	delete(f.transports, token+"/"+client)
	return true
}

func (f *fakeMedia) CloseRoom(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closedRooms = append(f.closedRooms, token)
	return true
}
