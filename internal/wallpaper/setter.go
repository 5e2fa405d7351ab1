package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// Setter asks the operating system to use the image at path as the desktop
// background.
type Setter interface {
	SetWallpaper(ctx context.Context, path string) error
}

// SetterFunc adapts a function to Setter.
type SetterFunc func(ctx context.Context, path string) error

func (f SetterFunc) SetWallpaper(ctx context.Context, path string) error { return f(ctx, path) }

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func runCommand(ctx context.Context, run Runner, name string, args ...string) error {
	out, err := run(ctx, name, args...)
	if err != nil {
		if detail := strings.TrimSpace(string(out)); detail != "" {
			return fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// ErrUnsupported is returned when no wallpaper facility is known for the
// running platform.
var ErrUnsupported = errors.New("no supported wallpaper facility")

// SystemSetter returns the Setter for the running operating system.
func SystemSetter() Setter {
	return &systemSetter{goos: runtime.GOOS, run: execRunner, lookPath: exec.LookPath}
}

type systemSetter struct {
	goos     string
	run      Runner
	lookPath func(string) (string, error)
}

func (s *systemSetter) SetWallpaper(ctx context.Context, path string) error {
	switch s.goos {
	case "darwin":
		script := fmt.Sprintf(`tell application "System Events" to tell every desktop to set picture to "%s"`, appleScriptEscape(path))
		return runCommand(ctx, s.run, "osascript", "-e", script)
	case "windows":
		return runCommand(ctx, s.run, "powershell", "-NoProfile", "-NonInteractive", "-Command", windowsScript(path))
	case "linux", "freebsd", "openbsd", "netbsd":
		return s.setUnix(ctx, path)
	default:
		return fmt.Errorf("%w on %s", ErrUnsupported, s.goos)
	}
}

func (s *systemSetter) setUnix(ctx context.Context, path string) error {
	if _, err := s.lookPath("gsettings"); err == nil {
		uri := (&url.URL{Scheme: "file", Path: path}).String()
		if err := runCommand(ctx, s.run, "gsettings", "set", "org.gnome.desktop.background", "picture-uri", uri); err != nil {
			return err
		}
		// Older GNOME releases have no dark variant key.
		_ = runCommand(ctx, s.run, "gsettings", "set", "org.gnome.desktop.background", "picture-uri-dark", uri)
		return nil
	}
	if _, err := s.lookPath("feh"); err == nil {
		return runCommand(ctx, s.run, "feh", "--bg-fill", path)
	}
	return fmt.Errorf("%w: install gsettings or feh, or set wallpaper_command", ErrUnsupported)
}

func appleScriptEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func windowsScript(path string) string {
	quoted := strings.ReplaceAll(path, "'", "''")
	return `Add-Type -TypeDefinition 'using System.Runtime.InteropServices; public class Wallpaper { [DllImport("user32.dll", CharSet=CharSet.Unicode)] public static extern bool SystemParametersInfo(int uAction, int uParam, string lpvParam, int fuWinIni); }'; ` +
		`if (-not [Wallpaper]::SystemParametersInfo(20, 0, '` + quoted + `', 3)) { exit 1 }`
}

// CommandSetter runs a user supplied command. Every "{path}" in the command
// is replaced by the staged image path; if none is present the path is
// appended as the last argument.
type CommandSetter struct {
	args []string
	run  Runner
}

// NewCommandSetter parses a whitespace separated command line.
func NewCommandSetter(command string) (*CommandSetter, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, errors.New("wallpaper command is empty")
	}
	return &CommandSetter{args: args, run: execRunner}, nil
}

func (s *CommandSetter) SetWallpaper(ctx context.Context, path string) error {
	args := make([]string, 0, len(s.args)+1)
	substituted := false
	for _, arg := range s.args {
		if strings.Contains(arg, "{path}") {
			substituted = true
			arg = strings.ReplaceAll(arg, "{path}", path)
		}
		args = append(args, arg)
	}
	if !substituted {
		args = append(args, path)
	}
	return runCommand(ctx, s.run, args[0], args[1:]...)
}
