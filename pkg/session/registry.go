// Package session keeps the state of every streamed token:
// who streams it, who watches it, its calibration and media holders.
package session

import (
	"sort"
	"sync"

	"github.com/chesscast/chesscast/pkg/logger"
)

type Role int

const (
	NoRole Role = iota
	Streamer
	Viewer
)

func (r Role) String() string {
	switch r {
	case Streamer:
		return "streamer"
	case Viewer:
		return "viewer"
	default:
		return "none"
	}
}

type CalibrationState int

const (
	NotStarted CalibrationState = iota
	InProgress
	Succeeded
	Failed
)

func (c CalibrationState) String() string {
	switch c {
	case InProgress:
		return "in progress"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "not started"
	}
}

type session struct {
	token       string
	streamer    string
	viewers     map[string]struct{}
	calibration CalibrationState
	media       map[string]struct{}
}

func (s *session) empty() bool { return s.streamer == "" && len(s.viewers) == 0 && len(s.media) == 0 }

func (s *session) has(client string) bool {
	if s.streamer == client {
		return true
	}
	_, v := s.viewers[client]
	_, m := s.media[client]
	return v || m
}

// Snapshot is a copy of a session state.
type Snapshot struct {
	Token       string
	Streamer    string
	Viewers     []string
	Calibration CalibrationState
	HasMedia    bool
}

// Departure describes what a gone client leaves behind in a session.
type Departure struct {
	Token       string
	WasStreamer bool
	// HeldMedia is true if the client had media transports in the token room.
	HeldMedia bool
	// Remaining are the clients still in the session.
	Remaining []string
}

// Registry is the single owner of all sessions.
// Every method is atomic.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	clients  map[string]map[string]struct{}
	log      *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		clients:  make(map[string]map[string]struct{}),
		log:      log.Module("session"),
	}
}

// obtain returns the session of the token, creating it if needed.
func (r *Registry) obtain(token string) *session {
	s, ok := r.sessions[token]
	if !ok {
		s = &session{token: token, viewers: make(map[string]struct{}), media: make(map[string]struct{})}
		r.sessions[token] = s
		sessions.Set(float64(len(r.sessions)))
		r.log.Debug().Str("token", token).Msg("Session created")
	}
	return s
}

func (r *Registry) index(client, token string) {
	tt, ok := r.clients[client]
	if !ok {
		tt = make(map[string]struct{})
		r.clients[client] = tt
	}
	tt[token] = struct{}{}
}

func (r *Registry) unindex(client, token string) {
	if tt, ok := r.clients[client]; ok {
		delete(tt, token)
		if len(tt) == 0 {
			delete(r.clients, client)
		}
	}
}

func (r *Registry) drop(s *session) {
	delete(r.sessions, s.token)
	sessions.Set(float64(len(r.sessions)))
	r.log.Debug().Str("token", s.token).Msg("Session removed")
}

// SetStreamer makes the client the streamer of the token.
// The replaced streamer becomes a viewer and is returned.
func (r *Registry) SetStreamer(token, client string) (previous string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.obtain(token)
	if s.streamer != "" && s.streamer != client {
		previous = s.streamer
		s.viewers[previous] = struct{}{}
		r.log.Info().Str("token", token).Str("c", previous).Msg("Streamer replaced")
	}
	delete(s.viewers, client)
	s.streamer = client
	r.index(client, token)
	return
}

// AddViewer adds the client into the viewers of the token,
// the streamer keeps its role.
func (r *Registry) AddViewer(token, client string) Role {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.obtain(token)
	r.index(client, token)
	if s.streamer == client {
		return Streamer
	}
	s.viewers[client] = struct{}{}
	return Viewer
}

// Members returns the streamer and the viewers of the token.
func (r *Registry) Members(token string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok {
		return nil
	}
	return members(s)
}

func members(s *session) []string {
	mm := make([]string, 0, len(s.viewers)+1)
	if s.streamer != "" {
		mm = append(mm, s.streamer)
	}
	vv := make([]string, 0, len(s.viewers))
	for v := range s.viewers {
		vv = append(vv, v)
	}
	sort.Strings(vv)
	return append(mm, vv...)
}

func (r *Registry) Streamer(token string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[token]; ok {
		return s.streamer
	}
	return ""
}

func snapshot(s *session) Snapshot {
	vv := make([]string, 0, len(s.viewers))
	for v := range s.viewers {
		vv = append(vv, v)
	}
	sort.Strings(vv)
	return Snapshot{
		Token:       s.token,
		Streamer:    s.streamer,
		Viewers:     vv,
		Calibration: s.calibration,
		HasMedia:    len(s.media) > 0,
	}
}

// TryBeginCalibration moves the token calibration from NotStarted into InProgress.
// Only one caller gets true until the stream ends.
// The client is bound to the session, so its disconnect drops
// a session that nobody else has joined.
func (r *Registry) TryBeginCalibration(token, client string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.obtain(token)
	r.index(client, token)
	if s.calibration != NotStarted {
		return false
	}
	s.calibration = InProgress
	return true
}

// FinishCalibration ends the running calibration of the token.
func (r *Registry) FinishCalibration(token string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok || s.calibration != InProgress {
		return
	}
	if success {
		s.calibration = Succeeded
	} else {
		s.calibration = Failed
	}
}

// MarkCalibrated sets the calibration of an existing session as succeeded.
func (r *Registry) MarkCalibrated(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok {
		return false
	}
	s.calibration = Succeeded
	return true
}

func (r *Registry) Calibration(token string) CalibrationState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[token]; ok {
		return s.calibration
	}
	return NotStarted
}

// MarkMediaRoom records that the client has media transports in the token room.
func (r *Registry) MarkMediaRoom(token, client string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.obtain(token)
	s.media[client] = struct{}{}
	r.index(client, token)
}

// EndStream removes the token session with all its roles,
// the calibration state and the media holders.
// The returned snapshot has the members it had.
func (r *Registry) EndStream(token string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok {
		return Snapshot{}, false
	}
	snap := snapshot(s)
	for client, tokens := range r.clients {
		if _, ok := tokens[token]; ok {
			r.unindex(client, token)
		}
	}
	r.drop(s)
	return snap, true
}

// clearStream resets the stream part of the session and returns
// the clients that are not in the session anymore.
func (r *Registry) clearStream(s *session) (gone []string) {
	candidates := make([]string, 0, len(s.media)+1)
	if s.streamer != "" {
		candidates = append(candidates, s.streamer)
	}
	for c := range s.media {
		candidates = append(candidates, c)
	}
	s.streamer = ""
	s.media = make(map[string]struct{})
	s.calibration = NotStarted
	for _, c := range candidates {
		if !s.has(c) {
			gone = append(gone, c)
		}
	}
	return
}

// Disconnect removes the client from all its sessions.
// Sessions that lost the streamer have their stream ended.
func (r *Registry) Disconnect(client string) []Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokens, ok := r.clients[client]
	if !ok {
		return nil
	}
	delete(r.clients, client)

	out := make([]Departure, 0, len(tokens))
	for token := range tokens {
		s, ok := r.sessions[token]
		if !ok {
			continue
		}
		d := Departure{Token: token}
		if _, d.HeldMedia = s.media[client]; d.HeldMedia {
			delete(s.media, client)
		}
		delete(s.viewers, client)
		if s.streamer == client {
			d.WasStreamer = true
			for _, c := range r.clearStream(s) {
				if c != client {
					r.unindex(c, token)
				}
			}
		}
		d.Remaining = members(s)
		if s.empty() {
			r.drop(s)
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
