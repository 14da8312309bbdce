// Package daemon holds process-level helpers for a long-running replyd.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrNotRunning is returned when no live process owns the PID file.
var ErrNotRunning = errors.New("replyd is not running")

// errInvalidPID marks a PID file whose content is not a number.
var errInvalidPID = errors.New("invalid pid")

// PIDFile records the PID of the serving process so a second instance
// refuses to start and `replyd stop` can find the first.
type PIDFile struct {
	path string
}

// NewPIDFile returns a PID file at path. Nothing is touched until Acquire.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the PID file location.
func (p *PIDFile) Path() string { return p.path }

// Acquire writes the current PID, failing when a live process already
// owns the file. A stale file left by a crashed process, or one with
// unparsable content, is replaced.
func (p *PIDFile) Acquire() error {
	pid, alive, err := p.Owner()
	if err != nil && !errors.Is(err, errInvalidPID) {
		return err
	}
	if alive && pid != os.Getpid() {
		return fmt.Errorf("replyd already running (pid=%d, %s)", pid, p.path)
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create pid dir: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// Release removes the file if it still names this process.
func (p *PIDFile) Release() error {
	pid, err := p.read()
	if err != nil || pid != os.Getpid() {
		return err
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}

// Owner reports the recorded PID and whether that process is alive. A
// missing file is pid 0, not alive, no error.
func (p *PIDFile) Owner() (int, bool, error) {
	pid, err := p.read()
	if err != nil || pid == 0 {
		return 0, false, err
	}
	return pid, processAlive(pid), nil
}

// Terminate sends SIGTERM to the process owning the file.
func (p *PIDFile) Terminate() (int, error) {
	pid, alive, err := p.Owner()
	if err != nil {
		return 0, err
	}
	if !alive {
		return 0, ErrNotRunning
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return 0, fmt.Errorf("send SIGTERM to %d: %w", pid, err)
	}
	return pid, nil
}

func (p *PIDFile) read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("%w in %s: %w", errInvalidPID, p.path, err)
	}
	return pid, nil
}

// processAlive probes pid with signal 0. On Unix FindProcess always
// succeeds.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
