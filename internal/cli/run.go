package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	consumedOne  = 1
	consumedTwo  = 2
	consumedNone = 0
	helpFlag     = "--help"
)

// runEnv carries everything a command needs: streams, environment, the
// effective config and the run logger. Passed explicitly so tests can pin
// all of it down.
type runEnv struct {
	stdin   io.Reader
	io      *IO
	env     map[string]string
	workDir string
	cfg     Config
	sources ConfigSources
	logger  *slog.Logger
}

// Run is the main entry point. Returns the process exit code. sigCh, when
// non-nil, cancels long-running commands (watch mode) on the first signal.
func Run(stdin io.Reader, out, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	ioCtx := NewIO(out, errOut)

	if len(args) < 2 {
		printUsage(ioCtx)

		return 0
	}

	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		ioCtx.ErrPrintln("error:", err)

		return 1
	}

	workDir := flags.workDir
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			ioCtx.ErrPrintln("error: cannot get working directory:", err)

			return 1
		}
	}

	cfg, sources, err := LoadConfig(workDir, flags.configPath, env)
	if err != nil {
		ioCtx.ErrPrintln("error:", err)

		return 1
	}

	if len(flags.remaining) == 0 {
		printUsage(ioCtx)

		return 0
	}

	name := flags.remaining[0]
	if name == "-h" || name == helpFlag {
		printUsage(ioCtx)

		return 0
	}

	logger := newLogger(errOut, cfg, flags.verbose, workDir)

	r := &runEnv{
		stdin:   stdin,
		io:      ioCtx,
		env:     env,
		workDir: workDir,
		cfg:     cfg,
		sources: sources,
		logger:  logger,
	}

	commands := []*Command{
		cmdSync(r),
		cmdLs(r),
		cmdPrintConfig(r),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			<-sigCh
			cancel()
		}()
	}

	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd.Run(ctx, ioCtx, flags.remaining[1:])
		}
	}

	ioCtx.ErrPrintln(fmt.Sprintf("error: %v: %s", errUnknownCommand, name))
	printUsage(ioCtx)

	return 1
}

// newLogger builds the run logger: text to stderr, plus a rotating file
// sink when the config names one.
func newLogger(errOut io.Writer, cfg Config, verbose bool, workDir string) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	sink := errOut

	if cfg.LogFile != "" {
		logFile := cfg.LogFile
		if !filepath.IsAbs(logFile) {
			logFile = filepath.Join(workDir, logFile)
		}

		sink = io.MultiWriter(errOut, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}

	return slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{Level: level}))
}

// resolveDir anchors a relative path at the work directory.
func (r *runEnv) resolveDir(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}

	return filepath.Join(r.workDir, dir)
}

type globalFlags struct {
	workDir    string
	configPath string
	verbose    bool
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	// -C/--cwd flag (work directory)
	if (arg == "-C" || arg == "--cwd") && idx+1 < len(args) {
		flags.workDir = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "-C"); ok && after != "" {
		flags.workDir = after

		return consumedOne, nil
	}

	if after, ok := strings.CutPrefix(arg, "--cwd="); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	// -c/--config flag
	if (arg == "-c" || arg == "--config") && idx+1 < len(args) {
		flags.configPath = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "--config="); ok {
		flags.configPath = after

		return consumedOne, nil
	}

	// -v/--verbose flag
	if arg == "-v" || arg == "--verbose" {
		flags.verbose = true

		return consumedOne, nil
	}

	return consumedNone, nil
}

func printUsage(o *IO) {
	o.Println("chat2notes - sync ChatGPT conversation exports into a notes folder")
	o.Println()
	o.Println("Usage: chat2notes [global flags] <command> [args]")
	o.Println()
	o.Println("Commands:")
	o.Println("  sync <source>              Sync conversations into the notes folder")
	o.Println("  ls                         List managed notes and their watermarks")
	o.Println("  print-config               Show the effective configuration")
	o.Println()
	o.Println("Global flags:")
	o.Println("  -C, --cwd <dir>            Run as if started in <dir>")
	o.Println("  -c, --config <file>        Use an explicit config file")
	o.Println("  -v, --verbose              Debug logging")
}
