// Package calibration maps an empty board image into board square
// coordinates with a short-lived external worker.
package calibration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chesscast/chesscast/pkg/logger"
	osx "github.com/chesscast/chesscast/pkg/os"
	"github.com/chesscast/chesscast/pkg/proc"
	"github.com/gofrs/uuid"
)

const (
	MsgSuccess    = "Board calibrated successfully"
	MsgNoMapping  = "Mapping file not created"
	failedPrefix  = "Calibration failed: "
	readErrPrefix = "Error reading mapping result: "
	errorPrefix   = "Calibration error: "
)

// Result is the outcome of a calibration run.
type Result struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	MappingData json.RawMessage `json:"mappingData,omitempty"`
}

// Reason returns the failure message without the generic prefix.
func (r Result) Reason() string { return strings.TrimPrefix(r.Message, failedPrefix) }

type Coordinator struct {
	command []string
	spawner proc.Spawner
	store   *Store
	log     *logger.Logger
}

func NewCoordinator(command []string, spawner proc.Spawner, store *Store, log *logger.Logger) *Coordinator {
	return &Coordinator{command: command, spawner: spawner, store: store, log: log.Module("calibration")}
}

func (c *Coordinator) Store() *Store { return c.store }

func (c *Coordinator) HasMapping(token string) bool { return c.store.Has(token) }

func (c *Coordinator) Mapping(token string) (json.RawMessage, error) { return c.store.Read(token) }

// Restore brings a mapping from the remote storage if there is no local one.
func (c *Coordinator) Restore(ctx context.Context, token string) bool {
	ok, err := c.store.Restore(ctx, token)
	if err != nil {
		c.log.Warn().Err(err).Str("token", token).Msg("Mapping restore fail")
	}
	if ok {
		c.log.Info().Str("token", token).Msg("Mapping restored from the remote storage")
	}
	return ok
}

// Calibrate runs the calibration worker with the image and waits for its exit.
// It never fails, all errors are in the result.
// The context cancellation kills the worker.
func (c *Coordinator) Calibrate(ctx context.Context, token string, image []byte) (res Result) {
	runId := "-"
	if id, err := uuid.NewV4(); err == nil {
		runId = id.String()
	}
	log := c.log.Extend(c.log.With().Str("token", token).Str("run", runId))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if !res.Success {
			outcome = "fail"
		}
		calibrations.WithLabelValues(outcome).Inc()
		calibrationTime.Observe(time.Since(start).Seconds())
		log.Info().Bool("success", res.Success).Str("msg", res.Message).Dur("took", time.Since(start)).Msg("Calibration")
	}()

	if len(c.command) == 0 {
		return failure(errorPrefix + proc.ErrNoCommand.Error())
	}

	lock, err := osx.NewFileLock(c.store.LockPath(token))
	if err != nil {
		return failure(errorPrefix + err.Error())
	}
	if err = lock.LockContext(ctx); err != nil {
		return failure(errorPrefix + err.Error())
	}
	defer func() { _ = lock.Unlock() }()

	// another instance could finish the calibration while we were waiting
	if mt := c.store.ModTime(token); !mt.IsZero() && !mt.Before(start) {
		log.Debug().Msg("Reusing the fresh mapping of a concurrent run")
		return c.readMapping(token)
	}

	imagePath := c.store.ImagePath(token)
	if err = osx.WriteFile(imagePath, image, 0644); err != nil {
		return failure(errorPrefix + err.Error())
	}
	defer func() {
		if err := osx.Remove(imagePath); err != nil {
			log.Warn().Err(err).Msg("Calibration image cleanup fail")
		}
	}()

	args := append([]string{}, c.command[1:]...)
	args = append(args, "--token", token, "--image", imagePath, "--mappings-dir", c.store.Dir())
	p, err := c.spawner.Spawn(c.command[0], args...)
	if err != nil {
		return failure(errorPrefix + err.Error())
	}
	log.Debug().Int("pid", p.Pid()).Msg("Calibration worker started")
	_ = p.Stdin().Close()

	var stdout, stderr bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, _ = io.Copy(&stdout, p.Stdout()) }()
	go func() { defer wg.Done(); _, _ = io.Copy(&stderr, p.Stderr()) }()

	type exit struct {
		code int
		err  error
	}
	exited := make(chan exit, 1)
	go func() { code, err := p.Wait(); exited <- exit{code, err} }()

	var ex exit
	select {
	case ex = <-exited:
	case <-ctx.Done():
		_ = p.Kill()
		<-exited
		wg.Wait()
		return failure(errorPrefix + ctx.Err().Error())
	}
	wg.Wait()

	if ex.err != nil {
		return failure(errorPrefix + ex.err.Error())
	}
	if ex.code != 0 {
		// the worker prints its errors to stdout sometimes
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = strings.TrimSpace(stdout.String())
		}
		if diag == "" {
			diag = fmt.Sprintf("exit code %d", ex.code)
		}
		return failure(failedPrefix + diag)
	}

	res = c.readMapping(token)
	if res.Success {
		if err := c.store.Publish(ctx, token); err != nil {
			log.Warn().Err(err).Msg("Mapping upload fail")
		}
	}
	return res
}

func (c *Coordinator) readMapping(token string) Result {
	if !c.store.Has(token) {
		return failure(MsgNoMapping)
	}
	data, err := c.store.Read(token)
	if err != nil {
		return failure(readErrPrefix + err.Error())
	}
	return Result{Success: true, Message: MsgSuccess, MappingData: data}
}

func failure(msg string) Result { return Result{Message: msg} }
