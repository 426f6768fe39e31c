package config

import (
	"fmt"
	"log/slog"
)

// LogLevel is the --logging-level flag value. The zero value means error.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelError LogLevel = "error"
)

// String implements pflag.Value.
func (l *LogLevel) String() string {
	if *l == "" {
		return string(LevelError)
	}
	return string(*l)
}

// Set implements pflag.Value and rejects anything but debug, info or error.
func (l *LogLevel) Set(s string) error {
	switch LogLevel(s) {
	case LevelDebug, LevelInfo, LevelError:
		*l = LogLevel(s)
		return nil
	}
	return fmt.Errorf("must be one of %s, %s, %s", LevelDebug, LevelInfo, LevelError)
}

// Type implements pflag.Value.
func (l *LogLevel) Type() string {
	return "level"
}

// Level maps the flag value onto a slog level.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	}
	return slog.LevelError
}
