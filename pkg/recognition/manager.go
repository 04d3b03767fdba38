// Package recognition runs external chess recognition workers,
// one process per token.
//
// Frames go into the worker stdin as length-prefixed binary blobs,
// the worker answers with JSON objects, one per stdout line.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chesscast/chesscast/pkg/logger"
	"github.com/chesscast/chesscast/pkg/proc"
)

var ErrNoActiveStream = errors.New("no active stream processing")

type Config struct {
	// Command is the worker program with its fixed args.
	Command     []string
	ModelPath   string
	MappingsDir string
	QueueSize   int
	Advisory    []string
}

type Manager struct {
	conf       Config
	spawner    proc.Spawner
	classifier Classifier

	mu      sync.Mutex
	workers map[string]*Worker

	log *logger.Logger
}

func NewManager(conf Config, spawner proc.Spawner, log *logger.Logger) *Manager {
	return &Manager{
		conf:       conf,
		spawner:    spawner,
		classifier: NewClassifier(conf.Advisory),
		workers:    make(map[string]*Worker),
		log:        log.Module("recognition"),
	}
}

// Start spawns a worker for the token unless one is already running.
// A running worker makes the call a no-op with started set to false.
// An empty model path means the default one.
func (m *Manager) Start(token, modelPath string, onResult ResultFunc, onError ErrorFunc) (started bool, err error) {
	if len(m.conf.Command) == 0 {
		return false, proc.ErrNoCommand
	}
	log := m.log.Extend(m.log.With().Str("token", token))

	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.workers[token]; ok {
		log.Warn().Int("pid", w.Pid()).Msg("Recognition worker is already active")
		return false, nil
	}

	if modelPath == "" {
		modelPath = m.conf.ModelPath
	}
	args := append([]string{}, m.conf.Command[1:]...)
	args = append(args, "--token", token, "--model", modelPath, "--mappings-dir", m.conf.MappingsDir)

	p, err := m.spawner.Spawn(m.conf.Command[0], args...)
	if err != nil {
		return false, fmt.Errorf("recognition worker spawn: %w", err)
	}

	w := newWorker(token, p, m.conf.QueueSize, m.classifier, onResult, onError, log)
	m.workers[token] = w
	workersActive.Inc()
	log.Info().Int("pid", p.Pid()).Str("model", modelPath).Msg("Recognition worker started")

	w.run(func(code int, err error) { m.exited(w, code, err) })
	return true, nil
}

// Send enqueues the frame for the token worker.
func (m *Manager) Send(token string, frame []byte) error {
	m.mu.Lock()
	w, ok := m.workers[token]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w for token %s", ErrNoActiveStream, token)
	}
	if err := w.send(frame); err != nil {
		return fmt.Errorf("%w for token %s", err, token)
	}
	return nil
}

// Stop kills the token worker without waiting for its exit.
func (m *Manager) Stop(token string) bool {
	w := m.remove(token, nil)
	if w == nil {
		return false
	}
	w.stop()
	w.log.Info().Msg("Recognition worker stopped")
	return true
}

func (m *Manager) Has(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.workers[token]
	return ok
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workers)
}

// Shutdown stops every worker and waits for their exits.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	all := make([]*Worker, 0, len(m.workers))
	for token, w := range m.workers {
		all = append(all, w)
		delete(m.workers, token)
		workersActive.Dec()
	}
	m.mu.Unlock()

	for _, w := range all {
		w.stop()
	}
	for _, w := range all {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Manager) String() string { return "recognition" }

// remove unregisters the token worker, if only is set
// it should be the registered one.
func (m *Manager) remove(token string, only *Worker) *Worker {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[token]
	if !ok || (only != nil && w != only) {
		return nil
	}
	delete(m.workers, token)
	workersActive.Dec()
	return w
}

func (m *Manager) exited(w *Worker, code int, err error) {
	m.remove(w.token, w)
	ev := w.log.Info()
	if err != nil {
		ev = w.log.Warn().Err(err)
	}
	ev.Int("code", code).Msg("Recognition worker exited")

	if !w.stopped.Load() && code != 0 {
		w.onError(w.token, fmt.Errorf("recognition worker exited with code %d", code))
	}
}
