// Package logger provides the console and no-op loggers used by framemark.
//
// Messages are lexicon keys: they are translated with go-l10n before the
// arguments are applied, so the keys must stay stable.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"

	"github.com/user/framemark/pkg/ports"
)

// ConsoleLogger writes one line per message. All levels go to the same
// writer so that command output on stdout stays clean.
type ConsoleLogger struct {
	level     ports.LogLevel
	component string
	out       *output
}

// output is shared between a logger and its component loggers.
type output struct {
	mu        sync.Mutex
	w         io.Writer
	component *color.Color
	debug     *color.Color
	warn      *color.Color
	err       *color.Color
}

// NewConsole creates a console logger writing to stderr. Color is enabled
// when stderr is a terminal.
func NewConsole(level ports.LogLevel) *ConsoleLogger {
	fd := os.Stderr.Fd()
	return NewConsoleWriter(os.Stderr, level, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

// NewConsoleWriter creates a console logger writing to w.
func NewConsoleWriter(w io.Writer, level ports.LogLevel, colorize bool) *ConsoleLogger {
	o := &output{
		w:         w,
		component: color.New(color.FgCyan),
		debug:     color.New(color.FgHiBlack),
		warn:      color.New(color.FgYellow),
		err:       color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{o.component, o.debug, o.warn, o.err} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return &ConsoleLogger{level: level, out: o}
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) {
	l.log(ports.LevelDebug, msg, args...)
}

func (l *ConsoleLogger) Info(msg string, args ...interface{}) {
	l.log(ports.LevelInfo, msg, args...)
}

func (l *ConsoleLogger) Warn(msg string, args ...interface{}) {
	l.log(ports.LevelWarn, msg, args...)
}

func (l *ConsoleLogger) Error(msg string, args ...interface{}) {
	l.log(ports.LevelError, msg, args...)
}

// WithComponent returns a logger that prefixes lines with [component].
func (l *ConsoleLogger) WithComponent(component string) ports.Logger {
	return &ConsoleLogger{level: l.level, component: component, out: l.out}
}

func (l *ConsoleLogger) log(level ports.LogLevel, msg string, args ...interface{}) {
	if level < l.level {
		return
	}
	line := l10n.F(msg, args...)
	switch level {
	case ports.LevelDebug:
		line = l.out.debug.Sprint(line)
	case ports.LevelWarn:
		line = l.out.warn.Sprint(line)
	case ports.LevelError:
		line = l.out.err.Sprint(line)
	}
	if l.component != "" {
		line = l.out.component.Sprintf("[%s]", l.component) + " " + line
	}

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	fmt.Fprintln(l.out.w, line)
}
