package config

import "fmt"

// UsageError reports a missing or invalid command-line argument.
type UsageError struct {
	Arg string // offending flag or positional, e.g. "--server"
	Msg string
}

func (e *UsageError) Error() string {
	if e.Arg == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Arg, e.Msg)
}
