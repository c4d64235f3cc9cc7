// Package cli implements the gpuwatch command-line interface.
//
// The root command does the work:
//
//	gpuwatch            - interactive dashboard on a terminal, one frame otherwise
//	gpuwatch --once     - print one frame and exit
//	gpuwatch -m compact - force interactive mode with a layout
//	gpuwatch version    - build information
//
// # Flow
//
// Flags are bound onto the viper configuration (see config.FlagKeys), so
// every flag can also come from the config file or a GPUWATCH_* variable.
// The run then:
//
//  1. Decides between interactive and one-shot mode
//  2. Picks a telemetry provider (fixture, SSH fleet or local nvidia-smi)
//  3. Enumerates and filters devices
//  4. Runs the dashboard, if interactive
//  5. Prints the final frame to stdout
//
// # Exit status
//
// Fatal errors (no provider, bad config) print one line and exit 1.
// Recoverable problems, like asking for monitor mode without a terminal,
// are collected as ERROR lines, printed after the frame, and also exit 1.
package cli
