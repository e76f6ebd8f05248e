// Package x_log configures the process-wide zerolog logger: styled console
// output, optional rotated file output and module-scoped child loggers.
package x_log

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logger type handed out by this package.
type Logger = zerolog.Logger

var (
	mu         sync.Mutex
	base       = zerolog.New(os.Stderr).With().Timestamp().Logger()
	fileWriter *lumberjack.Logger
)

//---------------------
// Initialization
//---------------------

// Init loads config and installs the global logger:
// - Init() → uses XLOG_CONFIG or ./xlog.json
// - Init("path/to/xlog.json")
// - Init("path/to/xlog.json", "module")
func Init(args ...string) {
	var (
		path   string
		module = "nested"
	)
	if len(args) > 0 {
		path = args[0]
	}
	if len(args) > 1 && args[1] != "" {
		module = args[1]
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		def := DefaultConfig()
		cfg = &def
		defer Warn().Err(err).Msg("log config unreadable, using defaults")
	}
	InitWithConfig(cfg, module)
}

// InitWithConfig installs the global logger from an explicit config.
func InitWithConfig(cfg *Config, module string) {
	c := *cfg
	applyDefaults(&c)

	mu.Lock()
	defer mu.Unlock()

	zerolog.SetGlobalLevel(parseLevel(c.Level))

	if fileWriter != nil {
		_ = fileWriter.Close()
		fileWriter = nil
	}

	var writers []io.Writer
	if c.ToConsole {
		writers = append(writers, consoleOutput(c, os.Stdout))
	}
	if c.ToFile {
		fileWriter = &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    c.MaxSize,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAge,
			Compress:   c.Compress,
		}
		writers = append(writers, fileWriter)
	}

	base = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	log.Logger = base.With().Str("module", module).Logger()
	zerolog.DefaultContextLogger = &log.Logger
}

// consoleOutput picks the JSON or styled console writer for stdout.
func consoleOutput(c Config, out *os.File) io.Writer {
	if strings.EqualFold(c.Format, "json") {
		return out
	}
	styles := DefaultStylesByName(c.Style)
	styles.Out = out
	styles.NoColor = !isatty.IsTerminal(out.Fd()) && !isatty.IsCygwinTerminal(out.Fd())
	return ConsoleWriterWithStyles(styles)
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

//---------------------
// Scoped loggers
//---------------------

// New returns a logger tagged with the given module name.
func New(module string) Logger {
	mu.Lock()
	defer mu.Unlock()
	return base.With().Str("module", module).Logger()
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return l.WithContext(ctx)
}

// From returns the context logger, or fallback when none is set.
func From(ctx context.Context, fallback Logger) Logger {
	if ctx == nil {
		return fallback
	}
	// zerolog.Ctx answers DefaultContextLogger when nothing was stored
	l := zerolog.Ctx(ctx)
	if l == nil || l == zerolog.DefaultContextLogger || l.GetLevel() == zerolog.Disabled {
		return fallback
	}
	return *l
}

// Close flushes and closes the rotated log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}

//---------------------
// Global shortcuts
//---------------------

func Debug() *zerolog.Event { return log.Debug() }
func Info() *zerolog.Event  { return log.Info() }
func Warn() *zerolog.Event  { return log.Warn() }
func Error() *zerolog.Event { return log.Error() }
