package x_db

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rskv-p/nested/pkg/x_log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//---------------------
// gorm -> x_log
//---------------------

// gormLogger sends gorm output to x_log. Statements run under a context
// logger, such as a tree operation's, carry that logger's fields.
type gormLogger struct {
	log   x_log.Logger
	level logger.LogLevel
	slow  time.Duration
}

func newGormLogger(l x_log.Logger, level logger.LogLevel, slow time.Duration) logger.Interface {
	return &gormLogger{log: l, level: level, slow: slow}
}

func (g *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	c := *g
	c.level = level
	return &c
}

func (g *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	g.printf(ctx, logger.Info, zerolog.InfoLevel, msg, data)
}

func (g *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	g.printf(ctx, logger.Warn, zerolog.WarnLevel, msg, data)
}

func (g *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	g.printf(ctx, logger.Error, zerolog.ErrorLevel, msg, data)
}

func (g *gormLogger) printf(ctx context.Context, need logger.LogLevel, lvl zerolog.Level, msg string, data []any) {
	if g.level < need {
		return
	}
	l := x_log.From(ctx, g.log)
	l.WithLevel(lvl).Msgf(msg, data...)
}

// Trace logs failed statements at error, slow ones at warn and the rest at
// debug. Record-not-found is not a failure here.
func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	l := x_log.From(ctx, g.log)

	var ev *zerolog.Event
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= logger.Error:
		ev = l.Error().Err(err)
	case g.slow > 0 && elapsed > g.slow && g.level >= logger.Warn:
		ev = l.Warn().Bool("slow", true)
	case g.level >= logger.Info:
		ev = l.Debug()
	default:
		return
	}

	sql, rows := fc()
	ev.Dur("elapsed", elapsed).Int64("rows", rows).Msg(sql)
}
