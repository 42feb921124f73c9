package internal

import (
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/fatih/color"
)

var (
	rePassword = regexp.MustCompile(`(?i)((?:password|pwd)=)([^;&\s]+)`)
	reUserInfo = regexp.MustCompile(`(://)([^:/@]+):([^@]+)(@)`)
)

// Logger writes progress lines when enabled. A nil or disabled Logger is silent.
type Logger struct {
	out     io.Writer
	enabled bool
}

func NewLogger(out io.Writer, enabled bool) *Logger {
	return &Logger{out: out, enabled: enabled}
}

func (l *Logger) Enabled() bool {
	return l != nil && l.enabled && l.out != nil
}

func (l *Logger) Writer() io.Writer {
	return l.out
}

func (l *Logger) Printf(format string, args ...interface{}) {
	if !l.Enabled() {
		return
	}
	fmt.Fprintf(l.out, format+"\n", args...)
}

// Labelf prints a yellow label followed by the message, like the text formatter.
func (l *Logger) Labelf(label string, format string, args ...interface{}) {
	if !l.Enabled() {
		return
	}
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(l.out, "%s %s\n", yellow(label), fmt.Sprintf(format, args...))
}

// maskSecrets hides passwords in connection strings and URLs before they are logged.
func maskSecrets(s string) string {
	out := rePassword.ReplaceAllString(s, "$1***")
	out = reUserInfo.ReplaceAllString(out, "$1$2:***$4")
	return out
}

// timed runs fn and reports how long it took under label.
func timed[T any](log *Logger, label string, fn func() (T, error)) (T, error) {
	start := time.Now()
	result, err := fn()
	log.Labelf("Timer:", "%s %s", label, formatElapsed(time.Since(start)))
	return result, err
}

// formatElapsed renders whole seconds as h:mm:ss.
func formatElapsed(d time.Duration) string {
	s := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", s/3600, (s/60)%60, s%60)
}
