package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/rileyhilliard/gpuwatch/internal/config"
	"github.com/rileyhilliard/gpuwatch/internal/dashboard"
	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/rileyhilliard/gpuwatch/internal/history"
	"github.com/rileyhilliard/gpuwatch/internal/logger"
	"github.com/rileyhilliard/gpuwatch/internal/surface"
	"golang.org/x/term"
)

// environment is everything a run takes from the process it lives in.
type environment struct {
	stdout io.Writer
	stderr io.Writer
	// tty is set when both stdin and stdout are terminals.
	tty       bool
	stderrTTY bool
	// width is the stdout terminal width, 0 when unknown.
	width     int
	lookupEnv func(string) (string, bool)
	now       func() time.Time
	log       logger.Logger
	// interactive owns the terminal until the user quits.
	interactive func(ctx context.Context, l *dashboard.Loop, cfg config.Config, profile termenv.Profile) error
}

func systemEnvironment() environment {
	tty := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	width := 0
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width = w
	}
	return environment{
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		tty:         tty,
		stderrTTY:   term.IsTerminal(int(os.Stderr.Fd())),
		width:       width,
		lookupEnv:   os.LookupEnv,
		now:         time.Now,
		log:         logger.NewEnvLogger("[gpuwatch]"),
		interactive: runInteractive,
	}
}

// messages collects problems that don't stop the run. They are printed
// after the final frame and turn the exit status into 1.
type messages struct {
	lines []string
}

func (m *messages) errorf(format string, args ...any) {
	m.lines = append(m.lines, "ERROR: "+fmt.Sprintf(format, args...))
}

// flush prints the collected lines to w with a red ERROR: prefix.
func (m *messages) flush(w io.Writer, profile termenv.Profile) error {
	if len(m.lines) == 0 {
		return nil
	}
	out := termenv.NewOutput(w, termenv.WithProfile(profile))
	prefix := out.String("ERROR:").Foreground(out.Color("1")).Bold().String()
	for _, line := range m.lines {
		if rest, ok := strings.CutPrefix(line, "ERROR:"); ok {
			line = prefix + rest
		}
		fmt.Fprintln(w, line)
	}
	return errors.NewExitError(1)
}

// resolveMonitor decides whether the dashboard runs interactively.
// --once beats --monitor; a terminal makes monitor mode the default unless
// monitor_always is off; without a terminal only one frame is printed.
func resolveMonitor(cfg config.Config, tty bool, msgs *messages) bool {
	monitor := cfg.Monitor
	if cfg.Once && monitor {
		msgs.errorf("Both `--once` and `--monitor` switches are on.")
		monitor = false
	}
	if !cfg.Once && !monitor && tty && cfg.MonitorAlways {
		monitor = true
	}
	if monitor && !tty {
		msgs.errorf("You must run monitor mode from a TTY terminal.")
		monitor = false
	}
	return monitor
}

// colorProfile is the profile for text written to out: colors on a
// terminal or with --force-color, plain text otherwise.
func colorProfile(out io.Writer, tty, force bool) termenv.Profile {
	if !tty && !force {
		return termenv.Ascii
	}
	p := termenv.NewOutput(out, termenv.WithTTY(true)).EnvColorProfile()
	if p == termenv.Ascii && force {
		p = termenv.ANSI
	}
	return p
}

// run is the whole program after flag parsing.
func run(ctx context.Context, cfg config.Config, env environment) error {
	var msgs messages
	monitor := resolveMonitor(cfg, env.tty, &msgs)

	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	defer src.close()

	all, err := enumerate(ctx, src.provider)
	if err != nil {
		return err
	}
	devices := selectDevices(all, cfg.Devices, env.lookupEnv, &msgs)

	versions, err := src.provider.Versions(ctx)
	if err != nil {
		env.log.Warn("driver versions: %v", err)
	}

	l, err := dashboard.New(ctx, cfg, dashboard.Deps{
		Provider: src.provider,
		Info:     src.info,
		Devices:  devices,
		Versions: versions,
		History:  history.NewRegistry(history.CapacityForWidth(env.width)),
		Now:      env.now,
		Log:      env.log,
	})
	if err != nil {
		return err
	}
	defer l.Close()

	if monitor && len(devices) > 0 {
		profile := colorProfile(env.stdout, true, cfg.ForceColor)
		if err := env.interactive(ctx, l, cfg, profile); err != nil {
			// Once a frame is up the terminal is ours to break; before
			// that we can still print instead.
			if !errors.IsCode(err, errors.ErrSurfaceInit) || l.Frames() > 0 {
				return err
			}
			msgs.errorf("Failed to initialize the terminal (%v)", err)
		}
	}

	if err := l.Print(env.stdout, env.width, colorProfile(env.stdout, env.tty, cfg.ForceColor)); err != nil {
		return errors.WrapWithCode(err, errors.ErrSurfaceInit, "Failed to write output", "")
	}
	return msgs.flush(env.stderr, colorProfile(env.stderr, env.stderrTTY, cfg.ForceColor))
}

// runInteractive hands the terminal to the chosen backend. Log output goes
// to the log file (or nowhere) while it runs, since stderr is the screen.
func runInteractive(ctx context.Context, l *dashboard.Loop, cfg config.Config, profile termenv.Profile) error {
	restore, err := redirectLogs(cfg.LogFile)
	if err != nil {
		return err
	}
	defer restore()

	if cfg.Backend == config.BackendTcell {
		sc, err := surface.OpenScreen()
		if err != nil {
			return err
		}
		defer sc.Close()
		return l.Run(ctx, sc)
	}
	return l.RunTea(ctx, profile)
}

// redirectLogs points the standard logger at path. With no path, debug
// runs log to the default state file and everything else is discarded.
func redirectLogs(path string) (func(), error) {
	if path == "" && os.Getenv(logger.DebugEnv) != "" {
		path = config.DefaultLogFile()
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Can't create log directory", "Check --log-file")
		}
	}
	restore, err := logger.RedirectTo(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Can't open log file", "Check --log-file")
	}
	return restore, nil
}
