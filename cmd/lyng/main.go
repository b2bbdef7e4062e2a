package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"lyng/internal/evaluator"
	"lyng/internal/object"
	"lyng/internal/repl"
	"lyng/internal/util"
)

var (
	// Version is the current version of the lyng binary, set at link time.
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
	help      bool
	version   bool
	// logging
	logLevel string
	logFile  string
	// config vars
	rootPath   string
	configPath string
	noPIC      bool
	pool       bool
	stats      bool
	evalCode   string
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	flag.StringVar(&rootPath, "root", "", "Set the root directory used to resolve imports")
	flag.StringVar(&configPath, "config", "", "Load settings from a TOML file")
	flag.BoolVar(&noPIC, "no-pic", false, "Disable inline caches at call sites")
	flag.BoolVar(&pool, "pool", false, "Recycle call frames of non-capturing functions")
	flag.BoolVar(&stats, "stats", false, "Print inline cache statistics on exit")
	flag.StringVar(&evalCode, "e", "", "Evaluate the given code and print its value")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
}

func main() {
	flag.Parse()

	if version {
		printVersion()
		return
	}
	if help {
		printHelp()
		return
	}

	config, err := util.LoadConfiguration(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	config.Version, config.BuildDate, config.Commit = Version, BuildDate, Commit
	if rootPath != "" {
		config.RootPath = rootPath
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if noPIC {
		config.PICEnabled = false
	}
	if pool {
		config.ScopePoolEnabled = true
	}

	loggerOptions := &slog.HandlerOptions{
		AddSource: false,
		Level:     logLevelFromString(config.LogLevel),
	}
	logWriter := configureLogWriter()
	slog.SetDefault(slog.New(slog.NewJSONHandler(logWriter, loggerOptions)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, config))
}

func run(ctx context.Context, config util.Configuration) int {
	var args []string
	if flag.NArg() > 1 {
		args = flag.Args()[1:]
	}
	if flag.NArg() > 0 && evalCode == "" && rootPath == "" && config.RootPath == "." {
		config.RootPath = filepath.Dir(flag.Arg(0))
	}
	rt := evaluator.New(config, evaluator.WithOutput(os.Stdout), evaluator.WithArgs(args))
	defer func() {
		if stats {
			fmt.Fprintln(os.Stderr, rt.CacheStats().String())
		}
	}()

	switch {
	case evalCode != "":
		v, err := rt.Eval(ctx, evalCode)
		if err != nil {
			return report(err)
		}
		if v != object.VOID {
			fmt.Println(v.Inspect())
		}
	case flag.NArg() > 0:
		if _, err := rt.RunFile(ctx, flag.Arg(0)); err != nil {
			return report(err)
		}
	default:
		repl.Start(ctx, rt, os.Stdout)
	}
	return 0
}

// report prints an uncaught error and returns the process exit code.
func report(err error) int {
	var ee *object.ExecutionError
	var cs *object.CancelledSignal
	switch {
	case errors.As(err, &ee):
		fmt.Fprintln(os.Stderr, object.RenderStacktrace(ee))
	case errors.As(err, &cs):
		fmt.Fprintln(os.Stderr, "interrupted")
		return 130
	default:
		fmt.Fprintln(os.Stderr, object.Diagnostic(err))
	}
	slog.Debug("script failed", slog.Any("error", err))
	return 1
}

func configureLogWriter() *os.File {
	if logFile == "" {
		return os.Stderr
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", logFile, err)
		return os.Stderr
	}
	logWriter, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
		return os.Stderr
	}
	return logWriter
}

func printVersion() {
	fmt.Printf("lyng version 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: lyng [options] [filename [args...]]

Options:
  -root <path>       Root directory for imports. Defaults to the script's directory.
  -config <path>     Load settings from a TOML file.
  -e <code>          Evaluate code and print its value.
  -no-pic            Disable inline caches at call sites.
  -pool              Recycle call frames of non-capturing functions.
  -stats             Print inline cache statistics on exit.
  -log-level <level> Set the log level: debug, info, warn, error. Default is 'info'.
  -log-file <path>   Specify a log file to write logs. Default is stderr.
  -help              Display this help information and exit.
  -version           Display version information and exit.

Without a filename lyng starts an interactive session.

Examples:
  lyng                          Start the REPL
  lyng -e '1 + 2'               Print 3
  lyng main.lyng arg1 arg2      Run a script; arguments are available as ARGV

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, Version, BuildDate, Commit)
}

func logLevelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
