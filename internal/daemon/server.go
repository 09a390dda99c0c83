package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	procctlv1 "procctl/api/procctl/v1"
	"procctl/internal/config"
	"procctl/internal/logging"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// Server owns the daemon's gRPC listener, core and background refresh loop.
type Server struct {
	ln   net.Listener
	path string
	lock *flock.Flock

	grpc   *grpc.Server
	core   *Core
	cancel context.CancelFunc
	group  *errgroup.Group

	closeOnce sync.Once
	closeErr  error
}

// Close stops serving, waits for the refresh loop and removes the socket,
// pid file and lock.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.grpc != nil {
			s.grpc.Stop()
		}
		var errs []error
		if s.group != nil {
			if err := s.group.Wait(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errs = append(errs, err)
			}
		}
		if s.core != nil {
			s.core.Events.Close()
		}
		if s.path != "" {
			errs = append(errs, removeIfExists(s.path))
		}
		errs = append(errs, RemovePID())
		if s.lock != nil {
			errs = append(errs, s.lock.Unlock())
		}
		s.closeErr = errors.Join(errs...)
		log.Info("daemon stopped")
	})
	return s.closeErr
}

// StartDaemon loads configuration, takes the single-instance lock, binds the
// UNIX socket and starts serving. The first snapshot is taken before the
// socket accepts requests.
func StartDaemon(configPath string) (*Server, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, nil)

	core, err := NewCore(cfg)
	if err != nil {
		return nil, err
	}
	return Serve(core, cfg.RefreshInterval)
}

// Serve runs core on the daemon socket. refreshEvery of 0 disables the
// background refresh.
func Serve(core *Core, refreshEvery time.Duration) (*Server, error) {
	if err := EnsureRuntimeDir(); err != nil {
		return nil, fmt.Errorf("create runtime dir: %w", err)
	}

	lock := flock.New(LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return nil, errors.New("daemon already running (lock held by another process)")
	}

	s := &Server{path: SocketPath(), lock: lock, core: core}

	// lock is ours, so any socket file left behind belongs to a dead daemon
	if err := removeIfExists(s.path); err != nil {
		s.path = ""
		_ = s.Close()
		return nil, err
	}

	if _, err := core.Controller.Refresh(context.Background()); err != nil {
		log.Warn("initial refresh failed", logging.KeyError, err)
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		s.path = ""
		_ = s.Close()
		return nil, err
	}
	s.ln = ln
	if err := os.Chmod(s.path, 0o600); err != nil {
		_ = ln.Close()
		_ = s.Close()
		return nil, err
	}
	if err := WritePID(os.Getpid()); err != nil {
		_ = ln.Close()
		_ = s.Close()
		return nil, err
	}

	s.grpc = grpc.NewServer()
	procctlv1.RegisterProcCtlServer(s.grpc, newService(core.Controller, core.Events))

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	g, ctx := errgroup.WithContext(ctx)
	s.group = g
	g.Go(func() error {
		return s.grpc.Serve(ln)
	})
	if refreshEvery > 0 {
		g.Go(func() error {
			autoRefresh(ctx, core, refreshEvery)
			return nil
		})
	}

	log.Info("daemon listening", "socket", s.path, logging.KeyPID, os.Getpid(), "refresh_interval", refreshEvery.String())
	return s, nil
}

func autoRefresh(ctx context.Context, core *Core, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// failures are published as Failed events by the controller
			_, _ = core.Controller.Refresh(ctx)
		}
	}
}

// StopRunningDaemon sends a termination signal to the currently running daemon if any.
func StopRunningDaemon(force bool) error {
	pid, err := RunningPID()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if IsRunning() {
				return fmt.Errorf("daemon is running but PID file %q is missing; stop it manually", PIDPath())
			}
			return nil
		}
		return fmt.Errorf("unable to read daemon PID: %w", err)
	}
	if pid == os.Getpid() {
		return errors.New("refusing to stop current process")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := sendSignal(proc, syscall.SIGTERM); err != nil {
		return err
	}
	if waitForShutdown(3 * time.Second) {
		return nil
	}
	if !force {
		return fmt.Errorf("daemon process %d did not exit after SIGTERM", pid)
	}
	if err := sendSignal(proc, syscall.SIGKILL); err != nil {
		return err
	}
	if waitForShutdown(2 * time.Second) {
		return nil
	}
	return fmt.Errorf("daemon process %d did not exit after SIGKILL", pid)
}

func sendSignal(proc *os.Process, sig syscall.Signal) error {
	if err := proc.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = RemovePID()
			return nil
		}
		return err
	}
	return nil
}

func waitForShutdown(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !IsRunning() {
			_ = RemovePID()
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
}
