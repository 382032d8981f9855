package strata

import (
	"fmt"
	"io"
	"os"
	"time"
)

// LogLevel controls the verbosity of a LoggingObserver
type LogLevel int

const (
	// LogError logs only failures
	LogError LogLevel = iota
	// LogWarning adds unhandled events
	LogWarning
	// LogInfo adds transitions and lifecycle changes
	LogInfo
	// LogDebug adds state entries, exits and guard evaluations
	LogDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogError:
		return "ERROR"
	case LogWarning:
		return "WARN"
	case LogInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// LogFormatter renders one log line. The default formatter produces
// "2006-01-02T15:04:05Z [LEVEL] message".
type LogFormatter func(level LogLevel, message string) string

func defaultLogFormatter(level LogLevel, message string) string {
	return fmt.Sprintf("%s [%s] %s", time.Now().UTC().Format(time.RFC3339), level, message)
}

// LoggingObserver writes machine activity to an io.Writer. It implements
// ExtendedObserver and is safe to register on multiple machines.
type LoggingObserver struct {
	writer    io.Writer
	level     LogLevel
	formatter LogFormatter
}

// NewLoggingObserver creates an observer logging at LogInfo to os.Stdout
func NewLoggingObserver() *LoggingObserver {
	return &LoggingObserver{
		writer:    os.Stdout,
		level:     LogInfo,
		formatter: defaultLogFormatter,
	}
}

// WithWriter sets the log destination
func (lo *LoggingObserver) WithWriter(w io.Writer) *LoggingObserver {
	lo.writer = w
	return lo
}

// WithLevel sets the verbosity threshold
func (lo *LoggingObserver) WithLevel(level LogLevel) *LoggingObserver {
	lo.level = level
	return lo
}

// WithFormatter replaces the line formatter
func (lo *LoggingObserver) WithFormatter(f LogFormatter) *LoggingObserver {
	lo.formatter = f
	return lo
}

func (lo *LoggingObserver) log(level LogLevel, format string, args ...any) {
	if level > lo.level {
		return
	}
	fmt.Fprintln(lo.writer, lo.formatter(level, fmt.Sprintf(format, args...)))
}

func (lo *LoggingObserver) OnTransition(from, to string, event Event, ctx Context) {
	lo.log(LogInfo, "transition %s -> %s on '%s'", from, to, event.Name)
}

func (lo *LoggingObserver) OnStateEnter(state string, ctx Context) {
	lo.log(LogDebug, "enter %s", state)
}

func (lo *LoggingObserver) OnStateExit(state string, ctx Context) {
	lo.log(LogDebug, "exit %s", state)
}

func (lo *LoggingObserver) OnGuardEvaluation(from, to string, event Event, passed bool, ctx Context) {
	lo.log(LogDebug, "guard %s -> %s on '%s': passed=%t", from, to, event.Name, passed)
}

func (lo *LoggingObserver) OnEventUnhandled(event Event, ctx Context) {
	lo.log(LogWarning, "unhandled event '%s'", event.Name)
}

func (lo *LoggingObserver) OnError(err error, ctx Context) {
	lo.log(LogError, "error: %v", err)
}

func (lo *LoggingObserver) OnMachineStarted(ctx Context) {
	lo.log(LogInfo, "machine started in %v", ctx.Machine().Configuration())
}

func (lo *LoggingObserver) OnMachineStopped(ctx Context) {
	lo.log(LogInfo, "machine stopped")
}
