package pg2parquet

import "fmt"

// ConfigError reports mutually exclusive options, unknown enum values, or a
// missing required flag. Exit code 1.
type ConfigError struct {
	Option string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %v", e.Option, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
func (e *ConfigError) ExitCode() int { return 1 }

// ConnectError wraps authentication, host, or TLS failures while acquiring
// the PostgreSQL connection. Exit code 2.
type ConnectError struct {
	Target string // host:port/dbname, never credentials
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Target, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
func (e *ConnectError) ExitCode() int { return 2 }

// UnsupportedTypeError reports a pg_type OID the resolver has no mapping
// for. Raised before any data is written. Exit code 1.
type UnsupportedTypeError struct {
	OID  uint32
	Name string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported PostgreSQL type OID %d (%s)", e.OID, e.Name)
}

func (e *UnsupportedTypeError) ExitCode() int { return 1 }

// ProtocolError reports a malformed COPY BINARY stream: bad magic, a
// negative field length, or unexpected EOF. Fatal.
type ProtocolError struct {
	Context string
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("COPY protocol error (%s): %v", e.Context, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
func (e *ProtocolError) ExitCode() int { return 3 }

// IOError reports a failure writing the output Parquet file.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("I/O error writing %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
func (e *IOError) ExitCode() int { return 4 }

// exitCoder is implemented by every error type above; cmd/pg2parquet
// consults it to pick os.Exit's argument.
type exitCoder interface {
	ExitCode() int
}

// ExitCodeFor returns the exit code a fatal error should produce, falling
// back to 1 for errors outside the taxonomy above.
func ExitCodeFor(err error) int {
	if ec, ok := err.(exitCoder); ok {
		return ec.ExitCode()
	}
	return 1
}
