package recognition

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/chesscast/chesscast/pkg/proc"
)

type fakeProcess struct {
	stdinR, stdoutR, stderrR *io.PipeReader
	stdinW, stdoutW, stderrW *io.PipeWriter

	pid    int
	once   sync.Once
	exit   chan struct{}
	code   int
	killed bool
	mu     sync.Mutex
}

func newFakeProcess(pid int) *fakeProcess {
	p := fakeProcess{pid: pid, exit: make(chan struct{})}
	p.stdinR, p.stdinW = io.Pipe()
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return &p
}

func (p *fakeProcess) Stdin() io.WriteCloser { return p.stdinW }
func (p *fakeProcess) Stdout() io.Reader      { return p.stdoutR }
func (p *fakeProcess) Stderr() io.Reader      { return p.stderrR }
func (p *fakeProcess) Pid() int               { return p.pid }

func (p *fakeProcess) Wait() (int, error) {
	<-p.exit
	return p.code, nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.finish(-1)
	return nil
}

func (p *fakeProcess) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// finish emulates the process exit with the code.
func (p *fakeProcess) finish(code int) {
	p.once.Do(func() {
		p.code = code
		_ = p.stdoutW.Close()
		_ = p.stderrW.Close()
		_ = p.stdinR.CloseWithError(io.ErrClosedPipe)
		close(p.exit)
	})
}

type spawnCall struct {
	name string
	args []string
	proc *fakeProcess
}

type fakeSpawner struct {
	mu    sync.Mutex
	calls []spawnCall
	err   error
}

func (s *fakeSpawner) Spawn(name string, args ...string) (proc.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p := newFakeProcess(len(s.calls) + 100)
	s.calls = append(s.calls, spawnCall{name: name, args: args, proc: p})
	return p, nil
}

func (s *fakeSpawner) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeSpawner) Last() spawnCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

func contextWithTimeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	t.Cleanup(cancel)
	return ctx
}
