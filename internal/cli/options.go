package cli

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"golang.org/x/term"
)

// RedisAddrEnv is read when --redis is not given.
const RedisAddrEnv = "ARBOR_REDIS_ADDR"

// Options carries the flags shared by the commands.
type Options struct {
	// Path is a pipeline file. Ignored when Dir is set.
	Path string
	// Dir is a loam repository holding one document per task.
	Dir string
	// Name overrides the pipeline name used for locking and history.
	Name string

	Debug     bool
	LogFormat string
	Parallel  int
	Strict    bool
	Quiet     bool

	RedisAddr string
	RunTTL    time.Duration

	// RunTimeout bounds runs submitted to the HTTP API. Zero keeps the server default.
	RunTimeout time.Duration

	Stdout io.Writer
	Stderr io.Writer
}

// RedisAddr resolves the Redis address from the flag or the environment.
func RedisAddr(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(RedisAddrEnv)
}

func (o Options) stdout() io.Writer {
	if o.Stdout != nil {
		return o.Stdout
	}
	return os.Stdout
}

func (o Options) stderr() io.Writer {
	if o.Stderr != nil {
		return o.Stderr
	}
	return os.Stderr
}

// createLogger configures the application logger.
// In debug mode it writes to Stderr to keep Stdout for task output.
func createLogger(opts Options) *slog.Logger {
	if !opts.Debug {
		return logging.NewNop()
	}
	format := logging.FormatText
	if opts.LogFormat == string(logging.FormatJSON) {
		format = logging.FormatJSON
	}
	return logging.New(slog.LevelDebug, logging.WithWriter(opts.stderr()), logging.WithFormat(format))
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
