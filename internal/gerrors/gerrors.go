// Package gerrors wraps errors with the call site they passed through, so a
// top-level log line points at the code that failed without a full trace.
package gerrors

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

type withFrame struct {
	err error
	pc  uintptr
}

func (w withFrame) Error() string {
	if w.pc == 0 {
		return w.err.Error()
	}
	frame, _ := runtime.CallersFrames([]uintptr{w.pc}).Next()
	if frame.File == "" {
		return "[unknown] " + w.err.Error()
	}
	_, file := filepath.Split(frame.File)
	site := fmt.Sprintf("%s:%d", file, frame.Line)
	if frame.Function != "" {
		idx := strings.LastIndex(frame.Function, "/")
		site += " " + frame.Function[idx+1:]
	}
	return fmt.Sprintf("[%s] %s", site, w.err)
}

func (w withFrame) Unwrap() error {
	return w.err
}

func New(s string) error {
	return withFrame{err: errors.New(s), pc: caller()}
}

func Newf(format string, a ...interface{}) error {
	return withFrame{err: fmt.Errorf(format, a...), pc: caller()}
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return withFrame{err: err, pc: caller()}
}

func caller() uintptr {
	pc := make([]uintptr, 1)
	runtime.Callers(3, pc)
	return pc[0]
}
