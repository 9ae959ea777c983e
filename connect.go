package pg2parquet

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/term"
)

// ConnectOptions describes how to reach the source database, gathered
// from CLI flags with the same PG* environment variable fallbacks
// psql itself honors.
type ConnectOptions struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	// SSLRootCert is the CA certificate path passed to libpq's own
	// sslrootcert keyword, when the caller supplied --ssl-root-cert.
	SSLRootCert string

	// PromptForPassword is set when no password was supplied on the
	// command line or through PGPASSWORD, and stdin is a terminal.
	PromptForPassword bool
}

// ResolveConnectOptions fills in whatever opts leaves blank from the
// environment, matching libpq's PGHOST/PGPORT/PGUSER/PGPASSWORD/
// PGDATABASE/PGSSLMODE.
func ResolveConnectOptions(opts ConnectOptions) ConnectOptions {
	if opts.Host == "" {
		opts.Host = envOr("PGHOST", "localhost")
	}
	if opts.Port == 0 {
		opts.Port = 5432
		if p, err := strconv.Atoi(os.Getenv("PGPORT")); err == nil && p > 0 {
			opts.Port = p
		}
	}
	if opts.User == "" {
		opts.User = envOr("PGUSER", currentOSUser())
	}
	if opts.Database == "" {
		opts.Database = envOr("PGDATABASE", opts.User)
	}
	if opts.SSLMode == "" {
		opts.SSLMode = envOr("PGSSLMODE", "prefer")
	}
	if opts.Password == "" {
		if pw := os.Getenv("PGPASSWORD"); pw != "" {
			opts.Password = pw
		} else {
			opts.PromptForPassword = term.IsTerminal(int(os.Stdin.Fd()))
		}
	}
	return opts
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func currentOSUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "postgres"
}

// PromptPassword reads a password from the controlling terminal
// without echoing it, the same way psql does when PGPASSWORD is unset.
func PromptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// connString renders opts into a libpq keyword/value connection string.
func (o ConnectOptions) connString() string {
	s := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		o.Host, o.Port, o.Database, o.User, o.Password, o.SSLMode)
	if o.SSLRootCert != "" {
		s += fmt.Sprintf(" sslrootcert=%s", o.SSLRootCert)
	}
	return s
}

// Connect opens a connection pool tuned the way a one-shot export
// needs: a handful of connections at most, short idle lifetimes since
// the process exits as soon as the export finishes, and health checks
// frequent enough to surface a dropped connection before it's blamed
// on a COPY stream instead.
func Connect(ctx context.Context, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(opts.connString())
	if err != nil {
		return nil, &ConfigError{Option: "connection string", Err: err}
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 5 * time.Second
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, &ConnectError{Target: fmt.Sprintf("%s:%d/%s", opts.Host, opts.Port, opts.Database), Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &ConnectError{Target: fmt.Sprintf("%s:%d/%s", opts.Host, opts.Port, opts.Database), Err: err}
	}
	return pool, nil
}
