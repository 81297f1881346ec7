package pump

import "fmt"

// ConnectionError means the transport channel could not be opened or was
// lost. A session that sees one moves to Faulted.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("pump: cannot open %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransportError is an I/O failure or timeout while a command was in
// flight. The physical device state is unknown until the next Home.
type TransportError struct {
	Command string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pump: transport failed on %q: %v", e.Command, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// InvalidCommand is a constraint violation caught before anything is sent.
type InvalidCommand struct {
	Reason string
}

func (e *InvalidCommand) Error() string {
	return "pump: invalid command: " + e.Reason
}

func invalidf(format string, args ...interface{}) *InvalidCommand {
	return &InvalidCommand{Reason: fmt.Sprintf(format, args...)}
}
