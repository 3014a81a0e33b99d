package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todoflow/internal/cli"
	"github.com/idilsaglam/todoflow/internal/config"
	"github.com/idilsaglam/todoflow/internal/logging"
	"github.com/idilsaglam/todoflow/internal/ui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	// Root flags (apply to every subcommand)
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfg, args, err := config.Load(fs, argv)
	if err != nil {
		if config.IsHelp(err) {
			cli.PrintHelp()
			return 0
		}
		ui.Fail(err.Error())
		return 2
	}
	logger, closeLog, err := newLogger(cfg, args)
	if err != nil {
		ui.Fail(err.Error())
		return 1
	}
	defer closeLog()
	if err := ui.SetTheme(cfg.Theme); err != nil {
		logger.Warn("theme", "err", err)
	}
	logger.Debug("config resolved", "backend", cfg.Backend, "path", cfg.Path)

	// Hand the remaining args to the CLI runner.
	if len(args) == 0 {
		cli.PrintHelp()
		return 2
	}
	code := cli.Run(args, cli.Options{Config: cfg, Logger: logger})
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	return code
}

// newLogger writes to log_file when set. Without one the TUI logs nowhere,
// since stderr belongs to the alt screen.
func newLogger(cfg *config.Config, args []string) (*log.Logger, func(), error) {
	opts := logging.DefaultOptions()
	opts.Level = cfg.LogLevel
	if cfg.LogFile != "" {
		logger, f, err := logging.NewFile(cfg.LogFile, opts)
		if err != nil {
			return nil, nil, err
		}
		return logger, func() { f.Close() }, nil
	}
	if len(args) > 0 && args[0] == "tui" {
		return logging.Discard(), func() {}, nil
	}
	return logging.New(os.Stderr, opts), func() {}, nil
}
