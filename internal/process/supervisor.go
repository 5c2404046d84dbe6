package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// State is the lifecycle state of the supervised daemon.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StateBackoff State = "backoff"
	StateFailed  State = "failed"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultName        = "zwave-driver"
	DefaultMinBackoff  = 2 * time.Second
	DefaultMaxBackoff  = 2 * time.Minute
	DefaultStableAfter = time.Minute
	DefaultStopTimeout = 10 * time.Second
)

// maxLineLength bounds one captured output line.
const maxLineLength = 64 * 1024

// ErrAlreadyRunning is returned by Start on a running supervisor.
var ErrAlreadyRunning = errors.New("process: already running")

// Config describes the daemon to run.
type Config struct {
	// Name labels log entries and health output. Default: "zwave-driver".
	Name string

	Binary string
	Args   []string

	// Env is appended to the core's own environment.
	Env []string

	WorkDir string

	// NoRestart leaves the daemon down after it exits.
	NoRestart bool

	// MinBackoff is the first restart delay; each further failure doubles it
	// up to MaxBackoff.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// StableAfter is how long a run must last for the backoff to reset.
	StableAfter time.Duration

	// MaxRestarts gives up after this many consecutive failed runs. 0 means
	// no limit.
	MaxRestarts int

	// StopTimeout is how long Stop waits after SIGTERM before killing the
	// daemon.
	StopTimeout time.Duration
}

// Logger is the logging interface used by the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Stats is a snapshot of the supervisor, reported in health messages.
type Stats struct {
	Name          string `json:"name"`
	State         State  `json:"state"`
	PID           int    `json:"pid,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds,omitempty"`
	Restarts      int    `json:"restarts"`
	LastError     string `json:"last_error,omitempty"`
}

// Supervisor starts the driver daemon and keeps it running.
//
// Thread Safety: All methods are safe for concurrent use.
type Supervisor struct {
	cfg    Config
	logger Logger

	mu        sync.RWMutex
	cmd       *exec.Cmd
	state     State
	startedAt time.Time
	restarts  int
	lastErr   error
	stopping  bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a supervisor. Call Start to launch the daemon.
func New(cfg Config) *Supervisor {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = DefaultMinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = max(DefaultMaxBackoff, cfg.MinBackoff)
	}
	if cfg.StableAfter <= 0 {
		cfg.StableAfter = DefaultStableAfter
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}

	return &Supervisor{
		cfg:    cfg,
		logger: noopLogger{},
		state:  StateStopped,
	}
}

// SetLogger sets the logger. Call before Start.
func (s *Supervisor) SetLogger(logger Logger) {
	s.logger = logger
}

// Start launches the daemon. A daemon that cannot be started at all (missing
// binary, bad working directory) is reported here and not retried.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.stopping = false
	s.restarts = 0
	s.mu.Unlock()

	cmd, err := s.spawn(runCtx)
	if err != nil {
		cancel()
		close(done)
		s.mu.Lock()
		s.state = StateFailed
		s.lastErr = err
		s.cancel = nil
		s.done = nil
		s.mu.Unlock()
		return err
	}

	go s.supervise(runCtx, cmd, done)
	return nil
}

// spawn starts one run of the daemon in its own process group. Cancelling
// ctx sends SIGTERM to the group; the daemon is killed if it is still
// running StopTimeout later.
func (s *Supervisor) spawn(ctx context.Context) (*exec.Cmd, error) {
	cmd := exec.CommandContext(ctx, s.cfg.Binary, s.cfg.Args...) // #nosec G204 -- binary and args come from configuration
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = s.cfg.StopTimeout
	if s.cfg.Env != nil {
		cmd.Env = append(os.Environ(), s.cfg.Env...)
	}
	cmd.Dir = s.cfg.WorkDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", s.cfg.Name, err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.state = StateRunning
	s.startedAt = time.Now()
	s.mu.Unlock()

	go s.logLines("stdout", stdout)
	go s.logLines("stderr", stderr)

	s.logger.Info("driver daemon started", "name", s.cfg.Name, "pid", cmd.Process.Pid)
	return cmd, nil
}

func (s *Supervisor) logLines(stream string, r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineLength)
	for sc.Scan() {
		s.logger.Debug("driver output", "name", s.cfg.Name, "stream", stream, "line", sc.Text())
	}
}

// supervise waits for each run to end and restarts the daemon until Stop,
// ctx cancellation, NoRestart or MaxRestarts ends it.
func (s *Supervisor) supervise(ctx context.Context, cmd *exec.Cmd, done chan struct{}) {
	defer close(done)

	backoff := s.cfg.MinBackoff
	failures := 0

	for {
		err := cmd.Wait()

		s.mu.Lock()
		ran := time.Since(s.startedAt)
		stopping := s.stopping
		s.mu.Unlock()

		if stopping || ctx.Err() != nil {
			// Anything left in the group outlived SIGTERM and the leader.
			if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
				s.logger.Warn("killing driver process group", "name", s.cfg.Name, "error", err)
			}
			s.setState(StateStopped, nil)
			s.logger.Info("driver daemon stopped", "name", s.cfg.Name)
			return
		}

		if err == nil {
			err = errors.New("exited with status 0")
		}
		s.logger.Warn("driver daemon exited", "name", s.cfg.Name, "error", err, "ran", ran.Round(time.Millisecond))

		if s.cfg.NoRestart {
			s.setState(StateFailed, err)
			return
		}

		if ran >= s.cfg.StableAfter {
			backoff = s.cfg.MinBackoff
			failures = 0
		}
		failures++
		if s.cfg.MaxRestarts > 0 && failures > s.cfg.MaxRestarts {
			s.logger.Error("driver daemon keeps failing, giving up", "name", s.cfg.Name, "failures", failures-1)
			s.setState(StateFailed, err)
			return
		}

		s.setState(StateBackoff, err)
		s.logger.Info("restarting driver daemon", "name", s.cfg.Name, "delay", backoff, "attempt", failures)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.setState(StateStopped, nil)
			return
		case <-timer.C:
		}
		backoff = min(backoff*2, s.cfg.MaxBackoff)

		next, spawnErr := s.spawn(ctx)
		for spawnErr != nil {
			// The binary was there a moment ago; keep retrying on the same
			// backoff until it comes back or we are stopped.
			s.setState(StateBackoff, spawnErr)
			s.logger.Error("restarting driver daemon failed", "name", s.cfg.Name, "error", spawnErr)
			select {
			case <-ctx.Done():
				s.setState(StateStopped, nil)
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, s.cfg.MaxBackoff)
			next, spawnErr = s.spawn(ctx)
		}

		s.mu.Lock()
		s.restarts++
		s.mu.Unlock()
		cmd = next
	}
}

func (s *Supervisor) setState(state State, err error) {
	s.mu.Lock()
	s.state = state
	if err != nil {
		s.lastErr = err
	}
	s.mu.Unlock()
}

// Stop sends SIGTERM to the daemon's process group and waits for it to
// exit, killing it after StopTimeout. A pending restart is abandoned.
// Safe to call when not running.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	done := s.done
	if done == nil {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info("stopping driver daemon", "name", s.cfg.Name)
	cancel()
	<-done

	s.mu.Lock()
	s.done = nil
	s.cancel = nil
	s.mu.Unlock()
	return nil
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Running reports whether the daemon is up.
func (s *Supervisor) Running() bool {
	return s.State() == StateRunning
}

// Stats returns a snapshot for health reporting.
func (s *Supervisor) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Name:     s.cfg.Name,
		State:    s.state,
		Restarts: s.restarts,
	}
	if s.state == StateRunning && s.cmd != nil && s.cmd.Process != nil {
		st.PID = s.cmd.Process.Pid
		st.UptimeSeconds = int64(time.Since(s.startedAt).Seconds())
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
