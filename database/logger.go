package database

import (
	"fmt"
	"io"
	"os"
)

// Logger receives the SQL shown to the user, as opposed to diagnostics which
// go through slog.
type Logger interface {
	Print(v ...any)
	Printf(format string, v ...any)
	Println(v ...any)
}

// WriterLogger prints to an io.Writer.
type WriterLogger struct {
	W io.Writer
}

func (l WriterLogger) Print(v ...any) {
	fmt.Fprint(l.W, v...)
}

func (l WriterLogger) Printf(format string, v ...any) {
	fmt.Fprintf(l.W, format, v...)
}

func (l WriterLogger) Println(v ...any) {
	fmt.Fprintln(l.W, v...)
}

func StdoutLogger() Logger {
	return WriterLogger{W: os.Stdout}
}

type NullLogger struct{}

func (n NullLogger) Print(v ...any)                 {}
func (n NullLogger) Printf(format string, v ...any) {}
func (n NullLogger) Println(v ...any)               {}
