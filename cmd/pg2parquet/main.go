// Command pg2parquet streams a PostgreSQL query's result through COPY
// BINARY straight into a Parquet file, without materializing the
// result set in memory.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/exyi/pg2parquet"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "pg2parquet",
		Short:         "Export a PostgreSQL query to a Parquet file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newExportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pg2parquet:", err)
		os.Exit(pg2parquet.ExitCodeFor(err))
	}
}

type exportFlags struct {
	outputFile string
	host       string
	port       int
	dbname     string
	user       string
	password   string
	sslMode    string
	sslRootCert []string

	query string
	table string

	compression      string
	compressionLevel int
	quiet            bool

	macaddrHandling string
	jsonHandling    string
	enumHandling    string
	intervalHandling string
	numericHandling  string
	decimalPrecision int32
	decimalScale     int32
	arrayHandling    string
}

func newExportCmd() *cobra.Command {
	f := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run a query's COPY BINARY stream into a Parquet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.outputFile, "output-file", "o", "", "path to write the Parquet file to (required)")
	fl.StringVarP(&f.host, "host", "H", "", "database host")
	fl.IntVarP(&f.port, "port", "p", 0, "database port")
	fl.StringVarP(&f.dbname, "dbname", "d", "", "database name (required)")
	fl.StringVarP(&f.user, "user", "U", "", "database user")
	fl.StringVar(&f.password, "password", "", "database password")
	fl.StringVar(&f.sslMode, "sslmode", "", "SSL mode: disable, prefer or require")
	fl.StringArrayVar(&f.sslRootCert, "ssl-root-cert", nil, "CA certificate path, repeatable; implies --sslmode require")

	fl.StringVarP(&f.query, "query", "q", "", "SQL query to export")
	fl.StringVarP(&f.table, "table", "t", "", "table name to export (expands to SELECT * FROM <name>)")

	fl.StringVar(&f.compression, "compression", "zstd", "none, snappy, gzip, lzo, brotli, lz4 or zstd")
	fl.IntVar(&f.compressionLevel, "compression-level", 0, "compression level; accepted but not applied, every codec runs at its library default level")
	fl.BoolVar(&f.quiet, "quiet", false, "suppress the row-count summary and progress logging")

	fl.StringVar(&f.macaddrHandling, "macaddr-handling", "text", "text, byte-array or int64")
	fl.StringVar(&f.jsonHandling, "json-handling", "text", "text or text-marked-as-json")
	fl.StringVar(&f.enumHandling, "enum-handling", "text", "text, plain-text or int")
	fl.StringVar(&f.intervalHandling, "interval-handling", "interval", "interval or struct")
	fl.StringVar(&f.numericHandling, "numeric-handling", "decimal", "decimal, double, float32 or string")
	fl.Int32Var(&f.decimalPrecision, "decimal-precision", 38, "precision for numeric-handling=decimal")
	fl.Int32Var(&f.decimalScale, "decimal-scale", 18, "scale for numeric-handling=decimal")
	fl.StringVar(&f.arrayHandling, "array-handling", "plain", "plain, dimensions or dimensions+lowerbound")

	cmd.MarkFlagRequired("output-file")
	cmd.MarkFlagRequired("dbname")

	return cmd
}

func runExport(cmd *cobra.Command, f *exportFlags) error {
	settings, err := resolveSettings(f)
	if err != nil {
		return err
	}

	query, err := resolveQuery(f)
	if err != nil {
		return err
	}

	connOpts := pg2parquet.ResolveConnectOptions(pg2parquet.ConnectOptions{
		Host:        f.host,
		Port:        f.port,
		Database:    f.dbname,
		User:        f.user,
		Password:    f.password,
		SSLMode:     resolveSSLMode(f),
		SSLRootCert: lastOrEmpty(f.sslRootCert),
	})
	if connOpts.PromptForPassword {
		pw, err := pg2parquet.PromptPassword()
		if err != nil {
			return &pg2parquet.ConfigError{Option: "password", Err: err}
		}
		connOpts.Password = pw
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log := pg2parquet.NewLogger(!f.quiet)

	pool, err := pg2parquet.Connect(ctx, connOpts)
	if err != nil {
		return err
	}
	defer pool.Close()

	out, err := os.Create(f.outputFile)
	if err != nil {
		return &pg2parquet.ConfigError{Option: "output-file", Err: err}
	}
	defer out.Close()

	exporter := pg2parquet.NewExporter(pool, settings, log)
	result, err := exporter.Export(ctx, query, out)
	if err != nil {
		return err
	}

	if !f.quiet {
		fmt.Fprintf(os.Stderr, "wrote %d rows across %d columns to %s\n", result.RowsWritten, result.Columns, f.outputFile)
	}
	return nil
}

// resolveQuery enforces that exactly one of --query/--table was given.
func resolveQuery(f *exportFlags) (string, error) {
	haveQuery := f.query != ""
	haveTable := f.table != ""
	if haveQuery == haveTable {
		return "", &pg2parquet.ConfigError{Option: "query/table", Err: fmt.Errorf("exactly one of --query or --table is required")}
	}
	if haveTable {
		return fmt.Sprintf("SELECT * FROM %s", pgQuoteIdent(f.table)), nil
	}
	return f.query, nil
}

// pgQuoteIdent double-quotes an identifier that may itself contain a
// schema-qualifying dot, quoting each dot-separated part independently
// so `--table public.orders` addresses the right object.
func pgQuoteIdent(name string) string {
	parts := splitIdent(name)
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "."
		}
		out += `"` + escapeIdentPart(p) + `"`
	}
	return out
}

func splitIdent(name string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			parts = append(parts, name[start:i])
			start = i + 1
		}
	}
	parts = append(parts, name[start:])
	return parts
}

func escapeIdentPart(p string) string {
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		out = append(out, p[i])
		if p[i] == '"' {
			out = append(out, '"')
		}
	}
	return string(out)
}

// lastOrEmpty takes the last of a repeatable --ssl-root-cert flag's
// values, since libpq's own sslrootcert keyword accepts only one path.
func lastOrEmpty(certs []string) string {
	if len(certs) == 0 {
		return ""
	}
	return certs[len(certs)-1]
}

func resolveSSLMode(f *exportFlags) string {
	if len(f.sslRootCert) > 0 && f.sslMode == "" {
		return "require"
	}
	return f.sslMode
}

func resolveSettings(f *exportFlags) (pg2parquet.Settings, error) {
	s := pg2parquet.DefaultSettings()

	var err error
	if s.Macaddr, err = pg2parquet.ParseMacaddrHandling(f.macaddrHandling); err != nil {
		return s, &pg2parquet.ConfigError{Option: "macaddr-handling", Err: err}
	}
	if s.JSON, err = pg2parquet.ParseJSONHandling(f.jsonHandling); err != nil {
		return s, &pg2parquet.ConfigError{Option: "json-handling", Err: err}
	}
	if s.Enum, err = pg2parquet.ParseEnumHandling(f.enumHandling); err != nil {
		return s, &pg2parquet.ConfigError{Option: "enum-handling", Err: err}
	}
	if s.Interval, err = pg2parquet.ParseIntervalHandling(f.intervalHandling); err != nil {
		return s, &pg2parquet.ConfigError{Option: "interval-handling", Err: err}
	}
	if s.Numeric, err = pg2parquet.ParseNumericHandling(f.numericHandling); err != nil {
		return s, &pg2parquet.ConfigError{Option: "numeric-handling", Err: err}
	}
	if s.Array, err = pg2parquet.ParseArrayHandling(f.arrayHandling); err != nil {
		return s, &pg2parquet.ConfigError{Option: "array-handling", Err: err}
	}

	s.NumericPrecision = f.decimalPrecision
	s.NumericScale = f.decimalScale
	s.CompressionCodec = f.compression
	s.CompressionLevel = f.compressionLevel
	return s, nil
}
