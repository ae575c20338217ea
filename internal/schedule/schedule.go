// Package schedule manages the crontab entry that re-runs the wallpaper
// pipeline on a timer. All managed lines carry a sentinel comment so the
// upsert can find and replace its own entry without disturbing anything
// else in the user's crontab.
package schedule

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"
)

// Sentinel marks crontab lines owned by this tool. Never change this
// string: existing installs are found by exact substring match.
const Sentinel = "# wallfetch:managed"

var (
	ErrWrite       = errors.New("failed to install crontab")
	ErrInvalidExpr = errors.New("invalid cron expression")
)

// Crontab abstracts the system crontab so the upsert logic is testable
// without touching the real user crontab.
type Crontab interface {
	// Current returns the user's crontab content. An empty crontab is
	// not an error and returns "".
	Current() (string, error)
	// Install replaces the user's crontab with content.
	Install(content string) error
}

// SystemCrontab shells out to crontab(1).
type SystemCrontab struct{}

func (SystemCrontab) Current() (string, error) {
	out, err := exec.Command("crontab", "-l").Output()
	if err != nil {
		// crontab -l exits non-zero when no crontab exists yet.
		return "", nil
	}
	return string(out), nil
}

func (SystemCrontab) Install(content string) error {
	cmd := exec.Command("crontab", "-")
	cmd.Stdin = strings.NewReader(content)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", ErrWrite, strings.TrimSpace(string(out)))
	}
	return nil
}

// Manager performs idempotent upserts of the managed entry. A file lock
// serializes concurrent invocations so two racing upserts cannot
// interleave their read-modify-write cycles.
type Manager struct {
	Tab      Crontab
	LockPath string
}

func NewManager() *Manager {
	return &Manager{
		Tab:      SystemCrontab{},
		LockPath: filepath.Join(os.TempDir(), "wallfetch-schedule.lock"),
	}
}

// Upsert installs command under expr, replacing any previous managed
// entry. Repeated calls leave exactly one managed line.
func (m *Manager) Upsert(expr, command string) error {
	if err := ValidateExpr(expr); err != nil {
		return err
	}

	unlock, err := m.lock()
	if err != nil {
		return err
	}
	defer unlock()

	current, err := m.Tab.Current()
	if err != nil {
		return err
	}

	kept := stripManaged(current)
	entry := fmt.Sprintf("%s %s %s", expr, command, Sentinel)
	kept = append(kept, entry)

	content := strings.Join(kept, "\n") + "\n"
	if err := m.Tab.Install(content); err != nil {
		return err
	}
	log.Infof("Installed schedule: %s", entry)
	return nil
}

// Remove deletes the managed entry if present. Removing when no entry
// exists is a no-op, not an error.
func (m *Manager) Remove() error {
	unlock, err := m.lock()
	if err != nil {
		return err
	}
	defer unlock()

	current, err := m.Tab.Current()
	if err != nil {
		return err
	}

	kept := stripManaged(current)
	if len(kept) == 0 {
		return m.Tab.Install("")
	}
	return m.Tab.Install(strings.Join(kept, "\n") + "\n")
}

// Status returns the currently installed managed line, or "" when none.
func (m *Manager) Status() (string, error) {
	current, err := m.Tab.Current()
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(current, "\n") {
		if strings.Contains(line, Sentinel) {
			return strings.TrimSpace(line), nil
		}
	}
	return "", nil
}

func (m *Manager) lock() (func(), error) {
	fl := flock.New(m.LockPath)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("failed to acquire schedule lock: %w", err)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			log.WithError(err).Warn("Failed to release schedule lock")
		}
	}, nil
}

// stripManaged returns every non-empty crontab line that is not ours.
func stripManaged(content string) []string {
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Contains(line, Sentinel) {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

// ValidateExpr checks that expr has the five whitespace-separated cron
// fields. Field contents are left to cron itself to reject.
func ValidateExpr(expr string) error {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return fmt.Errorf("%w: expected 5 fields, got %d", ErrInvalidExpr, len(fields))
	}
	return nil
}
