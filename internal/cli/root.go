package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rileyhilliard/gpuwatch/internal/config"
	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// cfgFile is the --config override.
var cfgFile string

// rootCmd runs the dashboard.
var rootCmd = &cobra.Command{
	Use:   "gpuwatch",
	Short: "Live GPU dashboard for the terminal",
	Long: `gpuwatch shows GPU utilization, memory, temperature and power next to the
processes using each device. On a terminal it runs an interactive dashboard,
otherwise it prints one frame and exits.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  h / ?       Show help
  j / k       Select next / previous process
  g g / G     Select first / last process
  s / r       Cycle sort order / reverse it
  a / f / c   Auto, full or compact layout
  Esc         Clear selection

Examples:
  gpuwatch
  gpuwatch --once
  gpuwatch -m compact --only 0,1
  gpuwatch --hosts gpu1,gpu2
  gpuwatch --fixture demo.yaml --once`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Find(cfgFile)
		if err != nil {
			return err
		}
		cfg, err := config.Load(path, cmd.Flags())
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg, systemEnvironment())
	},
}

func init() {
	addFlags(rootCmd.Flags())
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/gpuwatch/config.yaml)")
}

// addFlags registers the dashboard flags. Each name is a key of
// config.FlagKeys, which is how the values reach the configuration.
func addFlags(flags *pflag.FlagSet) {
	flags.BoolP("once", "1", false, "print one frame and exit")
	flags.StringP("monitor", "m", "", "run the interactive dashboard (auto, full or compact)")
	flags.Lookup("monitor").NoOptDefVal = config.ModeAuto
	flags.BoolP("ascii", "U", false, "use ASCII characters only")
	flags.Bool("force-color", false, "force colored output, even when not on a terminal")
	flags.Bool("light", false, "use the light color theme")
	flags.IntSlice("gpu-util-thresh", nil, "GPU utilization thresholds th1,th2 (1 <= th1 < th2 <= 99)")
	flags.IntSlice("mem-util-thresh", nil, "memory utilization thresholds th1,th2 (1 <= th1 < th2 <= 99)")
	flags.IntSliceP("only", "o", nil, "only show the given device indices")
	flags.Bool("only-visible", false, "only show devices listed in CUDA_VISIBLE_DEVICES")
	flags.BoolP("compute", "c", false, "only show compute processes")
	flags.BoolP("graphics", "g", false, "only show graphics processes")
	flags.StringSliceP("user", "u", nil, "only show processes of the given users")
	flags.IntSliceP("pid", "p", nil, "only show the given process IDs")
	flags.StringSlice("hosts", nil, "query nvidia-smi on these SSH hosts (comma-separated)")
	flags.String("fixture", "", "replay telemetry from a YAML fixture")
	flags.String("backend", "", "interactive backend (tea or tcell)")
	flags.Duration("interval", 0, "input wait interval (e.g., 250ms)")
	flags.String("log-file", "", "write logs to this file while the dashboard runs")
}

// Execute runs the root command and exits with its status.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	// Diagnostics were printed already.
	if code, ok := errors.GetExitCode(err); ok {
		os.Exit(code)
	}

	if isUnknownCommandError(err) {
		if name := extractUnknownCommand(err); name != "" {
			err = errors.New(errors.ErrConfig,
				fmt.Sprintf("Unknown command '%s'", name),
				"Run 'gpuwatch --help' to see what's available")
		}
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// isUnknownCommandError reports whether cobra rejected the command line
// itself rather than the run failing.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unknown command") ||
		strings.Contains(msg, "unknown flag") ||
		strings.Contains(msg, "unknown shorthand flag")
}

// extractUnknownCommand pulls the quoted name out of cobra's
// `unknown command "foo" for "gpuwatch"` message.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
