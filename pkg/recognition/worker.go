package recognition

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync/atomic"

	"github.com/chesscast/chesscast/pkg/logger"
	"github.com/chesscast/chesscast/pkg/proc"
	gojson "github.com/goccy/go-json"
)

const readChunk = 32 * 1024

type (
	// ResultFunc receives one worker output object as is.
	ResultFunc func(token string, result json.RawMessage)
	// ErrorFunc receives worker failures.
	ErrorFunc func(token string, err error)
)

// Worker is a running recognition process of a token.
type Worker struct {
	token      string
	proc       proc.Process
	queue      *frameQueue
	classifier Classifier
	onResult   ResultFunc
	onError    ErrorFunc
	stopped    atomic.Bool
	done       chan struct{}
	log        *logger.Logger
}

func newWorker(token string, p proc.Process, queueSize int, c Classifier, onResult ResultFunc, onError ErrorFunc, log *logger.Logger) *Worker {
	if onResult == nil {
		onResult = func(string, json.RawMessage) {}
	}
	if onError == nil {
		onError = func(string, error) {}
	}
	return &Worker{
		token:      token,
		proc:       p,
		queue:      newFrameQueue(queueSize),
		classifier: c,
		onResult:   onResult,
		onError:    onError,
		done:       make(chan struct{}),
		log:        log,
	}
}

func (w *Worker) Token() string { return w.token }
func (w *Worker) Pid() int      { return w.proc.Pid() }

// Done is closed when the process exits.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) run(onExit func(code int, err error)) {
	go w.writeFrames()
	go w.readResults()
	go w.readDiagnostics()
	go func() {
		code, err := w.proc.Wait()
		w.queue.Close()
		close(w.done)
		onExit(code, err)
	}()
}

func (w *Worker) send(frame []byte) error {
	dropped, ok := w.queue.Push(frame)
	if !ok {
		return ErrNoActiveStream
	}
	if dropped {
		framesDropped.Inc()
		w.log.Debug().Msg("Worker is slow, the oldest frame was dropped")
	}
	return nil
}

// stop kills the process, the queued frames and pending results are discarded.
func (w *Worker) stop() {
	if !w.stopped.CompareAndSwap(false, true) {
		return
	}
	w.queue.Close()
	if err := w.proc.Kill(); err != nil {
		w.log.Warn().Err(err).Msg("Worker kill fail")
	}
}

func (w *Worker) writeFrames() {
	in := w.proc.Stdin()
	defer func() { _ = in.Close() }()
	for {
		frame, ok := w.queue.Pop(w.done)
		if !ok {
			return
		}
		if err := WriteFrame(in, frame); err != nil {
			if !w.stopped.Load() {
				w.log.Warn().Err(err).Msg("Frame write fail")
			}
			return
		}
		framesSent.Inc()
	}
}

func (w *Worker) readResults() {
	var lines lineBuffer
	buf := make([]byte, readChunk)
	out := w.proc.Stdout()
	for {
		n, err := out.Read(buf)
		if n > 0 && !w.stopped.Load() {
			for _, line := range lines.Feed(buf[:n]) {
				w.handleResult(line)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !w.stopped.Load() {
				w.log.Warn().Err(err).Msg("Worker output read fail")
			}
			return
		}
	}
}

func (w *Worker) handleResult(line []byte) {
	// the result is dropped once the worker is stopped
	if w.stopped.Load() {
		return
	}
	if !gojson.Valid(line) {
		results.WithLabelValues("invalid").Inc()
		w.log.Warn().Str("line", truncate(string(line), 200)).Msg("Non-JSON worker output")
		return
	}
	results.WithLabelValues("ok").Inc()
	w.onResult(w.token, json.RawMessage(line))
}

func (w *Worker) readDiagnostics() {
	buf := make([]byte, readChunk)
	diag := w.proc.Stderr()
	for {
		n, err := diag.Read(buf)
		if n > 0 {
			w.handleDiagnostic(strings.TrimSpace(string(buf[:n])))
		}
		if err != nil {
			return
		}
	}
}

func (w *Worker) handleDiagnostic(text string) {
	if text == "" {
		return
	}
	if w.classifier.IsAdvisory(text) {
		diagnostics.WithLabelValues("advisory").Inc()
		w.log.Debug().Str("diag", text).Msg("Worker advisory")
		return
	}
	diagnostics.WithLabelValues("failure").Inc()
	if w.stopped.Load() {
		w.log.Debug().Str("diag", text).Msg("Diagnostic after stop")
		return
	}
	w.log.Error().Str("diag", text).Msg("Worker failure")
	w.onError(w.token, &DiagnosticError{Text: text})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
