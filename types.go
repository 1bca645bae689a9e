package chatauth

import (
	"fmt"
	"strings"
	"time"
)

// AnonymousIdentity is the reserved identity the auth provider assigns to a
// user that signed in anonymously and has not upgraded to a real account.
const AnonymousIdentity = "anonymous"

// IsAnonymous reports whether identity is the anonymous sentinel.
func IsAnonymous(identity string) bool {
	return identity == AnonymousIdentity
}

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Clock returns the current time. Issuer and verifier must agree on it, both
// read it as UTC epoch milliseconds.
type Clock func() time.Time

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Print("[ERR] CHATAUTH " + render(format, args))
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Print("[WRN] CHATAUTH " + render(format, args))
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Print("[INF] CHATAUTH " + render(format, args))
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Print("[DBG] CHATAUTH " + render(format, args))
}

// DefaultLogger returns the stdout logger used when no Logger is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}

// render supports both printf style calls and the key/value pairs the
// structured loggers expect.
func render(format string, args []any) string {
	if strings.Contains(format, "%") {
		return newline(fmt.Sprintf(format, args...))
	}
	var b strings.Builder
	b.WriteString(format)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, " %v", args[i])
	}
	return newline(b.String())
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
