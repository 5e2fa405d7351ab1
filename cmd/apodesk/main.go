package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"

	"github.com/five82/apodesk/internal/app"
	"github.com/five82/apodesk/internal/pipeline"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config   string `help:"Config file path." type:"path" placeholder:"PATH"`
	LogLevel string `help:"Override log_level (debug, info, warn, error)." placeholder:"LEVEL"`
}

func (g Globals) options() app.Options {
	return app.Options{ConfigPath: g.Config, LogLevel: g.LogLevel}
}

// CLI is the top-level command structure for apodesk.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version." short:"V"`
	TUI     TUICmd           `cmd:"" name:"tui" default:"1" help:"Open the interactive picture viewer."`
	Refresh RefreshCmd       `cmd:"" help:"Fetch today's picture once."`
	Apply   ApplyCmd         `cmd:"" help:"Set the cached picture as the desktop background."`
	Show    ShowCmd          `cmd:"" help:"Print the cached picture's metadata."`
	Clear   ClearCmd         `cmd:"" help:"Empty the wallpaper staging directory."`
	Daemon  DaemonCmd        `cmd:"" help:"Refresh daily at refresh_at and serve metrics."`
}

// TUICmd opens the Bubble Tea interface.
type TUICmd struct{}

// Run executes the tui command.
func (c *TUICmd) Run(ctx context.Context, g *Globals) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("tui: requires a terminal (TTY)")
	}
	return app.Run(ctx, g.options())
}

// RefreshCmd runs one refresh and waits for it to finish.
type RefreshCmd struct {
	Apply bool `help:"Apply the picture after a successful refresh."`
}

// Run executes the refresh command.
func (c *RefreshCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	ev, err := app.Refresh(ctx, g.options(), c.Apply)
	if err != nil {
		return err
	}
	printResult(out, ev)
	return nil
}

// ApplyCmd applies the cached picture.
type ApplyCmd struct{}

// Run executes the apply command.
func (c *ApplyCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	ev, err := app.Apply(ctx, g.options())
	if err != nil {
		return err
	}
	printResult(out, ev)
	return nil
}

// ShowCmd prints the cached record.
type ShowCmd struct {
	Output string `help:"Output format." short:"o" enum:"text,json,yaml" default:"text"`
}

// Run executes the show command.
func (c *ShowCmd) Run(g *Globals, out io.Writer) error {
	rec, err := app.Show(g.options())
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	return app.WriteRecord(out, rec, c.Output)
}

// ClearCmd empties the staging directory.
type ClearCmd struct {
	Cache bool `help:"Also delete the cached picture."`
}

// Run executes the clear command.
func (c *ClearCmd) Run(g *Globals) error {
	if err := app.Clear(g.options(), c.Cache); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// DaemonCmd runs the scheduler until interrupted.
type DaemonCmd struct{}

// Run executes the daemon command.
func (c *DaemonCmd) Run(ctx context.Context, g *Globals) error {
	return app.RunDaemon(ctx, g.options())
}

func printResult(w io.Writer, ev pipeline.Event) {
	if ev.SaveErr != nil {
		_, _ = fmt.Fprintf(w, "warning: picture not cached: %v\n", ev.SaveErr)
	}
	if rec := ev.State.Current; rec != nil {
		_, _ = fmt.Fprintf(w, "%s: %s\n", ev.Kind, rec.Title)
		return
	}
	_, _ = fmt.Fprintln(w, ev.Kind)
}

func newParser(ctx context.Context, cli *CLI, out io.Writer, options ...kong.Option) (*kong.Kong, error) {
	base := []kong.Option{
		kong.Name("apodesk"),
		kong.Description("NASA Astronomy Picture of the Day on your desktop."),
		kong.UsageOnError(),
		kong.Vars{"version": version + " " + commit + " " + date},
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(out, (*io.Writer)(nil)),
		kong.Bind(&cli.Globals),
	}
	return kong.New(cli, append(base, options...)...)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cli CLI
	parser, err := newParser(ctx, &cli, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := kctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "apodesk: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
