package cli

import "fmt"

// ExitCoder is an error that picks the process exit code.
type ExitCoder interface {
	error
	ExitCode() int
}

// UsageError is a user-facing mistake in how a command was invoked. Run prints Message followed by the command's help and exits with code 2.
type UsageError struct {
	Message string
}

// Usagef returns a UsageError with a formatted message.
func Usagef(format string, args ...any) UsageError {
	return UsageError{Message: fmt.Sprintf(format, args...)}
}

func (e UsageError) Error() string { return e.Message }
func (e UsageError) ExitCode() int { return 2 }

func usageErrorf(format string, args ...any) UsageError { return Usagef(format, args...) }

// ExitError exits with Code, printing Err if it is non-nil and has a non-empty message. ExitError{Code: 1} is a silent failure, like `diff` reporting that
// its inputs differ.
type ExitError struct {
	Code int
	Err  error
}

func (e ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e ExitError) Unwrap() error { return e.Err }
func (e ExitError) ExitCode() int { return e.Code }
