// Package camera starts the driver video feed.
package camera

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// Service starts capture once at robot init.
type Service interface {
	StartAutomaticCapture(ctx context.Context) error
}

// Disabled is a Service for robots without a camera.
type Disabled struct{}

func (Disabled) StartAutomaticCapture(context.Context) error { return nil }

// Command runs an external streamer, such as mjpg-streamer, for the life of
// the context passed to the first StartAutomaticCapture call.
type Command struct {
	argv []string
	log  *zap.SugaredLogger

	once sync.Once
	err  error
	cmd  *exec.Cmd
}

// NewCommand returns a Command for argv.
func NewCommand(argv []string, log *zap.SugaredLogger) *Command {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Command{argv: argv, log: log}
}

// StartAutomaticCapture starts the streamer. Later calls return the result
// of the first one.
func (c *Command) StartAutomaticCapture(ctx context.Context) error {
	c.once.Do(func() {
		if len(c.argv) == 0 {
			c.err = errors.New("no camera command configured")
			return
		}
		c.cmd = exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
		if err := c.cmd.Start(); err != nil {
			c.err = fmt.Errorf("start %s: %w", c.argv[0], err)
			return
		}
		c.log.Infow("camera streamer started", "command", c.argv[0], "pid", c.cmd.Process.Pid)
		go func() {
			err := c.cmd.Wait()
			c.log.Infow("camera streamer exited", "error", err)
		}()
	})
	return c.err
}
