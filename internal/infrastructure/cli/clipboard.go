package cli

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/doeshing/gensh/internal/ports"
)

// ErrNoClipboardTool is returned when none of the platform's copy tools is installed.
var ErrNoClipboardTool = errors.New("no clipboard tool found")

// copyTool is one program that reads stdin into the clipboard.
type copyTool struct {
	name string
	args []string
}

// copyTools lists the candidates per GOOS in order of preference.
var copyTools = map[string][]copyTool{
	"darwin":  {{name: "pbcopy"}},
	"windows": {{name: "clip"}},
	"linux": {
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
}

// commandRunner runs name with args, feeding stdin.
type commandRunner func(name string, args []string, stdin string) error

// Clipboard implements ports.Clipboard by piping text into a platform copy tool.
type Clipboard struct {
	goos     string
	lookPath func(string) (string, error)
	run      commandRunner
}

// NewClipboard builds a clipboard for the running platform.
func NewClipboard() *Clipboard {
	return &Clipboard{goos: runtime.GOOS, lookPath: exec.LookPath, run: runCopyTool}
}

// Enabled reports whether the platform has clipboard candidates at all.
func (c *Clipboard) Enabled() bool {
	return len(copyTools[c.goos]) > 0
}

// Copy writes text through the first installed tool.
func (c *Clipboard) Copy(text string) error {
	if !c.Enabled() {
		return fmt.Errorf("clipboard not supported on %s", c.goos)
	}
	tool, err := c.tool()
	if err != nil {
		return err
	}
	if err := c.run(tool.name, tool.args, text); err != nil {
		return fmt.Errorf("%s: %w", tool.name, err)
	}
	return nil
}

func (c *Clipboard) tool() (copyTool, error) {
	candidates := copyTools[c.goos]
	names := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if _, err := c.lookPath(candidate.name); err == nil {
			return candidate, nil
		}
		names = append(names, candidate.name)
	}
	return copyTool{}, fmt.Errorf("%w (tried %s)", ErrNoClipboardTool, strings.Join(names, ", "))
}

func runCopyTool(name string, args []string, stdin string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	return cmd.Run()
}

var _ ports.Clipboard = (*Clipboard)(nil)
