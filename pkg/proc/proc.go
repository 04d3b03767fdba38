// Package proc spawns external worker programs and exposes
// their standard streams.
package proc

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Process is a running external program.
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until the program exits and returns its exit code.
	// It can be called many times.
	Wait() (code int, err error)
	// Kill requests termination, it does not wait for the exit.
	Kill() error
	Pid() int
}

// Spawner starts external programs.
type Spawner interface {
	Spawn(name string, args ...string) (Process, error)
}

// Exec is a Spawner based on os/exec.
type Exec struct {
	// Dir is the working directory, the current one if empty.
	Dir string
	// Env is appended to the current environment.
	Env []string
	// WaitDelay bounds the wait for the output after the exit.
	WaitDelay time.Duration
}

var ErrNoCommand = errors.New("no command")

func (e Exec) Spawn(name string, args ...string) (Process, error) {
	if name == "" {
		return nil, ErrNoCommand
	}
	cmd := exec.Command(name, args...)
	cmd.Dir = e.Dir
	if len(e.Env) > 0 {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}
	cmd.WaitDelay = e.WaitDelay

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err = cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = outW.Close()
		_ = errW.Close()
		return nil, err
	}

	p := &execProcess{cmd: cmd, stdin: stdin, stdout: outR, stderr: errR, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		_ = outW.Close()
		_ = errW.Close()
		p.code = cmd.ProcessState.ExitCode()
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			err = nil
		}
		p.err = err
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *io.PipeReader
	stderr *io.PipeReader

	done chan struct{}
	code int
	err  error
	kill sync.Once
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader      { return p.stdout }
func (p *execProcess) Stderr() io.Reader      { return p.stderr }
func (p *execProcess) Pid() int               { return p.cmd.Process.Pid }

func (p *execProcess) Wait() (int, error) {
	<-p.done
	return p.code, p.err
}

func (p *execProcess) Kill() (err error) {
	select {
	case <-p.done:
		return nil
	default:
	}
	p.kill.Do(func() {
		err = p.cmd.Process.Kill()
		if errors.Is(err, os.ErrProcessDone) {
			err = nil
		}
	})
	return
}
