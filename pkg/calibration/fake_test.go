package calibration

import (
	"io"
	"strings"
	"sync"

	"github.com/chesscast/chesscast/pkg/proc"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// scriptProcess is a finished process with the given output,
// unless block is set, then it waits for the kill.
type scriptProcess struct {
	stdout, stderr io.Reader
	code           int
	block          chan struct{}
	once           sync.Once
}

func (p *scriptProcess) Stdin() io.WriteCloser { return nopCloser{io.Discard} }
func (p *scriptProcess) Stdout() io.Reader      { return p.stdout }
func (p *scriptProcess) Stderr() io.Reader      { return p.stderr }
func (p *scriptProcess) Pid() int               { return 42 }
func (p *scriptProcess) Wait() (int, error) {
	if p.block != nil {
		<-p.block
	}
	return p.code, nil
}
func (p *scriptProcess) Kill() error {
	if p.block != nil {
		p.once.Do(func() { p.code = -1; close(p.block) })
	}
	return nil
}

// script emulates the calibration worker, it gets the parsed args.
type script func(args map[string]string) (code int, stdout, stderr string)

type scriptSpawner struct {
	mu    sync.Mutex
	run   script
	block bool
	calls int
	last  []string
}

func (s *scriptSpawner) Spawn(name string, args ...string) (proc.Process, error) {
	s.mu.Lock()
	s.calls++
	s.last = append([]string{name}, args...)
	s.mu.Unlock()

	if s.block {
		return &scriptProcess{stdout: strings.NewReader(""), stderr: strings.NewReader(""), block: make(chan struct{})}, nil
	}
	parsed := map[string]string{}
	for i := 0; i+1 < len(args); i++ {
		if strings.HasPrefix(args[i], "--") {
			parsed[args[i]] = args[i+1]
		}
	}
	code, out, diag := s.run(parsed)
	return &scriptProcess{stdout: strings.NewReader(out), stderr: strings.NewReader(diag), code: code}, nil
}

func (s *scriptSpawner) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
