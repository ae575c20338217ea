package schedule

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

// fakeCrontab keeps the crontab content in memory.
type fakeCrontab struct {
	content  string
	installs int
	failNext error
}

func (f *fakeCrontab) Current() (string, error) { return f.content, nil }

func (f *fakeCrontab) Install(content string) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.content = content
	f.installs++
	return nil
}

func newTestManager(t *testing.T, tab Crontab) *Manager {
	t.Helper()
	return &Manager{
		Tab:      tab,
		LockPath: filepath.Join(t.TempDir(), "sched.lock"),
	}
}

func managedLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, Sentinel) {
			out = append(out, line)
		}
	}
	return out
}

func TestUpsertInstallsEntry(t *testing.T) {
	tab := &fakeCrontab{}
	m := newTestManager(t, tab)

	if err := m.Upsert("0 * * * *", "/usr/local/bin/wallfetch run"); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	lines := managedLines(tab.content)
	if len(lines) != 1 {
		t.Fatalf("got %d managed lines, want 1:\n%s", len(lines), tab.content)
	}
	if !strings.HasPrefix(lines[0], "0 * * * * /usr/local/bin/wallfetch run") {
		t.Errorf("managed line = %q", lines[0])
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	tab := &fakeCrontab{}
	m := newTestManager(t, tab)

	if err := m.Upsert("0 * * * *", "wallfetch run"); err != nil {
		t.Fatal(err)
	}
	if err := m.Upsert("30 */2 * * *", "wallfetch run"); err != nil {
		t.Fatal(err)
	}

	lines := managedLines(tab.content)
	if len(lines) != 1 {
		t.Fatalf("got %d managed lines after double upsert, want 1:\n%s", len(lines), tab.content)
	}
	if !strings.HasPrefix(lines[0], "30 */2 * * *") {
		t.Errorf("second upsert did not replace the entry: %q", lines[0])
	}
}

func TestUpsertPreservesForeignEntries(t *testing.T) {
	tab := &fakeCrontab{content: "0 2 * * * /usr/bin/backup\n# a comment\n"}
	m := newTestManager(t, tab)

	if err := m.Upsert("0 * * * *", "wallfetch run"); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(tab.content, "/usr/bin/backup") {
		t.Error("foreign crontab entry was dropped")
	}
	if !strings.Contains(tab.content, "# a comment") {
		t.Error("foreign comment was dropped")
	}
}

func TestUpsertRejectsInvalidExpr(t *testing.T) {
	tab := &fakeCrontab{}
	m := newTestManager(t, tab)

	err := m.Upsert("not a cron expr at all ok", "wallfetch run")
	if !errors.Is(err, ErrInvalidExpr) {
		t.Fatalf("expected ErrInvalidExpr, got %v", err)
	}
	if tab.installs != 0 {
		t.Error("invalid expression still reached Install")
	}
}

func TestUpsertSurfacesWriteError(t *testing.T) {
	tab := &fakeCrontab{failNext: ErrWrite}
	m := newTestManager(t, tab)

	if err := m.Upsert("0 * * * *", "wallfetch run"); !errors.Is(err, ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	tab := &fakeCrontab{content: "0 2 * * * backup\n0 * * * * wallfetch run " + Sentinel + "\n"}
	m := newTestManager(t, tab)

	if err := m.Remove(); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if len(managedLines(tab.content)) != 0 {
		t.Errorf("managed line survived removal:\n%s", tab.content)
	}
	if !strings.Contains(tab.content, "backup") {
		t.Error("foreign entry removed")
	}

	// Removing again is a no-op, not an error.
	if err := m.Remove(); err != nil {
		t.Errorf("second Remove returned error: %v", err)
	}
}

func TestStatus(t *testing.T) {
	tab := &fakeCrontab{}
	m := newTestManager(t, tab)

	line, err := m.Status()
	if err != nil || line != "" {
		t.Fatalf("Status on empty crontab = (%q, %v)", line, err)
	}

	if err := m.Upsert("15 * * * *", "wallfetch run"); err != nil {
		t.Fatal(err)
	}
	line, err = m.Status()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(line, "15 * * * * wallfetch run") {
		t.Errorf("Status = %q", line)
	}
}

func TestValidateExpr(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"Hourly", "0 * * * *", false},
		{"Every two hours", "30 */2 * * *", false},
		{"Complex fields", "*/15 0-6 1,15 * 1-5", false},
		{"Too few fields", "0 * * *", true},
		{"Too many fields", "0 * * * * *", true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExpr(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateExpr(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}
