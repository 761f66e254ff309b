package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/salahlog/internal/constants"
)

var findProcessFunc = ps.FindProcess

var (
	ErrAlreadyRunning = errors.New("salahlog daemon is already running")
	ErrNotRunning     = errors.New("salahlog daemon is not running")
)

// LockInfo is the content of the daemon lockfile: "pid|metrics-addr".
type LockInfo struct {
	PID         int
	MetricsAddr string
}

func (l LockInfo) String() string {
	return fmt.Sprintf("%d|%s", l.PID, l.MetricsAddr)
}

func parseLock(content string) (LockInfo, error) {
	parts := strings.Split(strings.TrimSpace(content), "|")
	if len(parts) != 2 {
		return LockInfo{}, errors.New("lockfile is malformed")
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 {
		return LockInfo{}, errors.New("invalid process ID in lockfile")
	}
	return LockInfo{PID: pid, MetricsAddr: parts[1]}, nil
}

// LockPath returns the lockfile path inside dir
func LockPath(dir string) string {
	return filepath.Join(dir, constants.DaemonLockfileName)
}

// ReadLock returns the running daemon described by the lockfile at path.
// A lockfile whose process is gone or belongs to another program yields ErrNotRunning.
func ReadLock(path string) (LockInfo, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return LockInfo{}, ErrNotRunning
	}
	if err != nil {
		return LockInfo{}, fmt.Errorf("failed to read lockfile: %w", err)
	}

	info, err := parseLock(string(content))
	if err != nil {
		return LockInfo{}, err
	}

	process, err := findProcessFunc(info.PID)
	if err != nil || process == nil {
		return LockInfo{}, fmt.Errorf("%w: stale lockfile for PID %d", ErrNotRunning, info.PID)
	}
	if !strings.HasPrefix(process.Executable(), constants.AppName) {
		return LockInfo{}, fmt.Errorf("%w: PID %d is %s", ErrNotRunning, info.PID, process.Executable())
	}
	return info, nil
}

// Lock is a held daemon lockfile
type Lock struct {
	path string
}

// AcquireLock creates the lockfile in dir, replacing a stale one.
func AcquireLock(dir string, info LockInfo) (*Lock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create lockfile directory: %w", err)
	}
	path := LockPath(dir)

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			_, werr := f.WriteString(info.String())
			cerr := f.Close()
			if werr != nil || cerr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("failed to write lockfile: %w", errors.Join(werr, cerr))
			}
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create lockfile: %w", err)
		}

		running, rerr := ReadLock(path)
		if rerr == nil {
			return nil, fmt.Errorf("%w (PID %d)", ErrAlreadyRunning, running.PID)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove stale lockfile: %w", err)
		}
	}
	return nil, fmt.Errorf("failed to acquire lockfile %s", path)
}

func (l *Lock) Path() string { return l.path }

func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
