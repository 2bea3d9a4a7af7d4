package logger

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
)

// StackError remembers where an error was first wrapped.
type StackError struct {
	err  error
	site string
}

func (e StackError) Error() string {
	root := e.rootErr()
	return fmt.Sprintf("[%s] %v", root.site, root.err)
}

func (e StackError) Unwrap() error {
	return e.err
}

func (e StackError) rootErr() StackError {
	err := e
	var se StackError
	for errors.As(err.err, &se) {
		err = se
	}
	return err
}

func (e StackError) OriginError() error {
	return e.rootErr().err
}

// WarpError tags err with the caller's file:line. Nil stays nil.
func WarpError(err error) error {
	if err == nil {
		return nil
	}

	site := "unknown"
	if _, file, line, ok := runtime.Caller(1); ok {
		site = trimFile(file) + ":" + strconv.Itoa(line)
	}
	return StackError{err: err, site: site}
}
