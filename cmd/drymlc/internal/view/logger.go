package view

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/lmittmann/tint"
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelSilent
)

// ParseLogLevel maps a config level name to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "silent":
		return LogLevelSilent, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func (l LogLevel) toSlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.Level(100)
	}
}

func rewriteLogLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey && len(groups) == 0 {
		level := a.Value.Any().(slog.Level)

		var levelText string
		switch {
		case level < slog.LevelInfo:
			levelText = "DEBUG"
		case level == slog.LevelInfo:
			levelText = color.GreenString("INFO")
		case level == slog.LevelWarn:
			levelText = color.YellowString("WARN")
		case level >= slog.LevelError:
			levelText = color.RedString("ERROR")
		default:
			levelText = level.String()
		}
		a.Value = slog.StringValue(levelText)
	}
	return a
}

// NewHumanLogger creates a colourised logger. logr verbosity V(n) is logged
// at slog level -n, so debug level shows every V level.
func NewHumanLogger(w io.Writer, level LogLevel) logr.Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:       level.toSlogLevel(),
		TimeFormat:  time.DateTime,
		ReplaceAttr: rewriteLogLevel,
		NoColor:     color.NoColor,
	})
	return logr.FromSlogHandler(handler)
}

// NewJSONLogger creates a JSON-structured logger.
func NewJSONLogger(w io.Writer, level LogLevel) logr.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level.toSlogLevel()})
	return logr.FromSlogHandler(handler)
}

// NewLogger picks the logger for a config format, "json" or "text".
func NewLogger(w io.Writer, format string, level LogLevel) logr.Logger {
	if level == LogLevelSilent {
		return logr.Discard()
	}
	if format == "json" {
		return NewJSONLogger(w, level)
	}
	return NewHumanLogger(w, level)
}
