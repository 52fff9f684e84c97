package runner

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/DevSymphony/scalastyle-marker/internal/logging"
)

// State is the coordinator's run state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateRunningRerunPending
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateRunningRerunPending:
		return "running+rerun-pending"
	default:
		return "idle"
	}
}

// Coordinator serializes invocations of the analysis command.
//
// At most one invocation is in flight. Triggers that arrive while one is
// running collapse into a single pending rerun; there is no queue and no
// cancellation of the current run.
type Coordinator struct {
	runner  CommandRunner
	dir     func() string
	command func() string
	log     logrus.FieldLogger

	// OnFailure is called after a failed invocation (non-zero exit or
	// spawn error). It must not block.
	OnFailure func(err error, output *Output)

	// OnSettled is called once the coordinator returns to idle after the
	// last pending run completed.
	OnSettled func(ctx context.Context)

	mu    sync.Mutex
	state State
	idle  chan struct{}
	runs  int
}

// NewCoordinator creates a coordinator. dir and command are read at the
// start of every invocation so configuration changes apply to the next run.
func NewCoordinator(runner CommandRunner, dir, command func() string, log logrus.FieldLogger) *Coordinator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	idle := make(chan struct{})
	close(idle)
	return &Coordinator{
		runner:  runner,
		dir:     dir,
		command: command,
		log:     log,
		idle:    idle,
	}
}

// Trigger requests a run and returns immediately. The run keeps ctx's
// values but not its cancellation: an in-flight command is never killed
// because the caller that started it went away. Use Wait to give up.
func (c *Coordinator) Trigger(ctx context.Context) {
	c.mu.Lock()
	switch c.state {
	case StateRunning:
		c.state = StateRunningRerunPending
		c.mu.Unlock()
		c.log.Debug("run in flight, rerun scheduled")
		return
	case StateRunningRerunPending:
		c.mu.Unlock()
		return
	}
	c.state = StateRunning
	c.idle = make(chan struct{})
	c.mu.Unlock()

	go c.loop(context.WithoutCancel(ctx))
}

// Wait blocks until the coordinator is idle or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current run state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Runs returns the number of invocations started so far.
func (c *Coordinator) Runs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

func (c *Coordinator) loop(ctx context.Context) {
	for {
		c.invoke(ctx)

		c.mu.Lock()
		if c.state == StateRunningRerunPending {
			c.state = StateRunning
			c.mu.Unlock()
			continue
		}
		c.mu.Unlock()

		if c.OnSettled != nil {
			c.OnSettled(ctx)
		}

		c.mu.Lock()
		// A trigger during OnSettled already flagged a rerun.
		if c.state == StateRunningRerunPending {
			c.state = StateRunning
			c.mu.Unlock()
			continue
		}
		c.state = StateIdle
		close(c.idle)
		c.mu.Unlock()
		return
	}
}

func (c *Coordinator) invoke(ctx context.Context) {
	c.mu.Lock()
	c.runs++
	c.mu.Unlock()

	dir, command := c.dir(), c.command()
	log := c.log.WithFields(logrus.Fields{
		"run":     uuid.NewString(),
		"command": command,
	})
	log.Info("running analysis")

	output, err := c.runner.Run(ctx, dir, command)
	if err != nil {
		log.WithError(err).Warn("analysis command failed")
		if c.OnFailure != nil {
			c.OnFailure(err, output)
		}
		return
	}
	log.WithField("duration", logging.Elapsed(output.Duration)).Info("analysis finished")
	if output.Stdout != "" {
		log.Debug(output.Stdout)
	}
}
