// =============================================================================
// main.go - ncore Entry Point
// =============================================================================
//
// ncore runs an Arduino sketch against emulated pins, a serial port and an
// EEPROM, with a command shell on the terminal for inspecting and driving
// the board while the sketch runs.
//
// Usage:
//
//	ncore                           Run the configured sketch (default: idle)
//	ncore --sketch blink            Run a built-in sketch
//	ncore --config board.yaml       Load settings from a file
//	ncore sketches                  List built-in sketches
//	ncore version                   Show version
//
// Settings come from, in increasing priority: built-in defaults, the
// config file, NCORE_* environment variables, command-line flags.
//
// =============================================================================

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sangpham88/ncore/config"
	"github.com/sangpham88/ncore/emulator"
	"github.com/sangpham88/ncore/shell"
	"github.com/sangpham88/ncore/sketch"
)

// =============================================================================
// Version Information
// =============================================================================

const (
	appName   = "NCORE"
	version   = "0.1.0"
	copyright = "Copyright (C) 2011 maniacbug@ymail.com GPLv2"
)

// banner is written to stderr before any command is processed. A blank
// line separates it from what follows.
func banner() string {
	return fmt.Sprintf("%s: Arduino Native Core\n%s\n\n", appName, copyright)
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = []struct{ flag, key string }{
	{"sketch", "sketch"},
	{"clock", "clock.mode"},
	{"eeprom", "eeprom.path"},
	{"eeprom-backend", "eeprom.backend"},
	{"log-level", "logging.level"},
	{"log-file", "logging.file"},
}

// streams are the process's standard files. Tests substitute pipes.
type streams struct {
	in  *os.File
	out io.Writer
	err io.Writer
}

func main() {
	root := newRootCmd(streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
	if err := root.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}

// =============================================================================
// Commands
// =============================================================================

func newRootCmd(s streams) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "ncore",
		Short: "Arduino native core with an interactive command shell",
		Long: `ncore runs an Arduino sketch on the host against emulated pins, a serial
port and an EEPROM. The shell reads commands from stdin while the sketch
runs; type .help for a list.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader := config.NewLoader()
			for _, fk := range flagKeys {
				if err := loader.BindFlag(fk.key, cmd.Flags().Lookup(fk.flag)); err != nil {
					return err
				}
			}
			cfg, err := loader.Load(cfgFile)
			if err != nil {
				return err
			}
			return runCore(cmd.Context(), cfg, s)
		},
	}
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.err)

	flags := root.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./ncore.yaml or ~/.config/ncore/ncore.yaml)")
	flags.String("sketch", sketch.DefaultName, "built-in sketch to run (see 'ncore sketches')")
	flags.String("clock", "wall", "clock mode: wall or virtual")
	flags.String("eeprom", "eeprom.bin", "EEPROM image path")
	flags.String("eeprom-backend", "file", "EEPROM storage: file, sqlite or memory")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-file", "", "append log records to this file")

	root.AddCommand(newSketchesCmd(), newVersionCmd())
	return root
}

func newSketchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sketches",
		Short: "List built-in sketches",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range sketch.Names() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %s\n", name, sketch.Description(name))
			}
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", appName, version)
		},
	}
}

// =============================================================================
// Running the Core
// =============================================================================

// runCore builds the emulator and runs the shell on s.in until end of
// input, .quit, SIGINT or SIGTERM. A signal cancels ctx, which makes the
// emulator close the editor and end a read blocked on stdin.
func runCore(parent context.Context, cfg *config.Config, s streams) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprint(s.err, banner())

	em, err := emulator.New(emulator.Options{
		Config:  cfg,
		Console: s.err,
		Out:     s.out,
		Err:     s.err,
	})
	if err != nil {
		return err
	}

	editor := shell.NewLineEditor(shell.EditorOptions{
		Input:        s.in,
		Output:       s.out,
		HistoryFile:  cfg.Shell.HistoryFile,
		HistoryLimit: cfg.Shell.HistoryLimit,
		Warn:         s.err,
	})

	return em.Run(ctx, editor)
}
