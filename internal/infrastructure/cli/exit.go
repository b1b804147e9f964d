package cli

import "errors"

// Process exit codes.
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitRejected          = 2
	ExitNeedsConfirmation = 3
	ExitDangerous         = 4
)

// ExitError carries a process exit code out of a cobra command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func exitf(code int, msg string) error {
	return &ExitError{Code: code, Message: msg}
}

// ExitCode maps an error returned by the root command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
