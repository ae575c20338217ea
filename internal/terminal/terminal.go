// Package terminal detects which image-rendering protocol the current
// terminal supports and builds the preview command the fzf picker uses.
// Detection is a priority-ordered rule table over an environment
// snapshot: new terminal quirks are added as rules, not branches.
package terminal

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Capability enumerates supported preview protocols, highest fidelity
// first. Computed once per invocation and never re-detected mid-session.
type Capability int

const (
	// None falls back to a plain filename listing, no thumbnails.
	None Capability = iota
	// Chafa renders through the generic chafa rasterizer.
	Chafa
	// WezTermChafa is chafa in iterm mode: WezTerm supports the iTerm2
	// protocol but its native imgcat hangs inside fzf previews, so it
	// is force-routed away from the native path.
	WezTermChafa
	// ITerm2Inline uses imgcat's inline image protocol.
	ITerm2Inline
	// KittyGraphics uses kitty's icat graphics protocol.
	KittyGraphics
)

func (c Capability) String() string {
	switch c {
	case KittyGraphics:
		return "kitty-graphics"
	case ITerm2Inline:
		return "iterm2-inline"
	case WezTermChafa:
		return "wezterm-chafa"
	case Chafa:
		return "chafa"
	default:
		return "none"
	}
}

// Env is the immutable snapshot detection runs against. Tests construct
// it directly; Detect fills it from the process environment.
type Env struct {
	Term        string
	TermProgram string
	KittyWindow bool
	WezTerm     bool
	HasChafa    bool
	HasImgcat   bool
	IsTTY       bool
}

// SnapshotEnv captures the current process environment.
func SnapshotEnv() Env {
	return Env{
		Term:        os.Getenv("TERM"),
		TermProgram: os.Getenv("TERM_PROGRAM"),
		KittyWindow: os.Getenv("KITTY_WINDOW_ID") != "",
		WezTerm:     os.Getenv("WEZTERM_EXECUTABLE") != "",
		HasChafa:    binaryExists("chafa"),
		HasImgcat:   binaryExists("imgcat"),
		IsTTY:       isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// rule pairs a capability with its applicability predicate. The table is
// evaluated in order and the first match wins, so override entries for
// broken terminals sit above the native protocols they suppress.
type rule struct {
	cap     Capability
	applies func(Env) bool
}

var rules = []rule{
	// WezTerm's native imgcat path is broken under fzf (stays in a
	// loading state forever), so it must never get a native protocol
	// even though it would otherwise qualify for iTerm2 inline.
	{WezTermChafa, func(e Env) bool {
		return (e.TermProgram == "WezTerm" || e.WezTerm) && e.HasChafa
	}},
	{None, func(e Env) bool {
		// WezTerm without chafa has no working preview path at all.
		return e.TermProgram == "WezTerm" || e.WezTerm
	}},
	{KittyGraphics, func(e Env) bool {
		return e.Term == "xterm-kitty" || e.KittyWindow
	}},
	{ITerm2Inline, func(e Env) bool {
		return e.TermProgram == "iTerm.app" && e.HasImgcat
	}},
	{Chafa, func(e Env) bool {
		return e.HasChafa
	}},
}

// Detect resolves the preview capability for an environment snapshot.
func Detect(e Env) Capability {
	if !e.IsTTY {
		return None
	}
	for _, r := range rules {
		if r.applies(e) {
			log.Debugf("Terminal capability detected: %s", r.cap)
			return r.cap
		}
	}
	return None
}

// PreviewCommand returns the shell command template the fzf picker runs
// as its preview callback; "{}" is fzf's placeholder for the candidate
// path. cols and rows are the full terminal size; the preview pane gets
// the right 60% with a line spared for the fzf prompt.
func PreviewCommand(cap Capability, cols, rows int) string {
	previewW := cols * 60 / 100
	if previewW < 20 {
		previewW = 20
	}
	previewH := rows - 2
	if previewH < 10 {
		previewH = 10
	}

	switch cap {
	case KittyGraphics:
		return "kitty +kitten icat --clear --transfer-mode=memory --stdin=no --place=${FZF_PREVIEW_COLUMNS}x${FZF_PREVIEW_LINES}@0x0 {}"
	case ITerm2Inline:
		return "imgcat -W ${FZF_PREVIEW_COLUMNS} -H ${FZF_PREVIEW_LINES} {}"
	case WezTermChafa:
		return fmt.Sprintf("chafa -f iterm -s %dx%d --animate false {}", previewW, previewH)
	case Chafa:
		return fmt.Sprintf("chafa -s %dx%d --animate false {}", previewW, previewH)
	default:
		return "echo {}"
	}
}

// WindowSize reads the terminal dimensions via TIOCGWINSZ, trying
// stdout, stderr then stdin, falling back to 80x24.
func WindowSize() (cols, rows int) {
	for _, f := range []*os.File{os.Stdout, os.Stderr, os.Stdin} {
		ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
		if err == nil && ws.Col > 0 && ws.Row > 0 {
			return int(ws.Col), int(ws.Row)
		}
	}
	return 80, 24
}

func binaryExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
