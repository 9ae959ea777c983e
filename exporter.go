package pg2parquet

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Exporter drives one query from a COPY BINARY stream into a Parquet
// file. Everything - the wire reader, every column's ColumnWriter, and
// the row group flusher - runs on the goroutine that calls Export;
// the only other goroutine involved is the one piping CopyTo's output
// through an io.Pipe, which does no decoding of its own.
type Exporter struct {
	pool     *pgxpool.Pool
	settings Settings
	log      zerolog.Logger
}

func NewExporter(pool *pgxpool.Pool, settings Settings, log zerolog.Logger) *Exporter {
	return &Exporter{pool: pool, settings: settings, log: log}
}

// ExportResult reports what an export actually wrote, for the CLI's
// final summary line.
type ExportResult struct {
	RowsWritten int64
	Columns     int
}

// Export runs query's rows through COPY BINARY and writes them to out
// as Parquet, cutting a row group every settings.BatchSize rows.
func (e *Exporter) Export(ctx context.Context, query string, out io.Writer) (ExportResult, error) {
	columns, err := e.describeColumns(ctx, query)
	if err != nil {
		return ExportResult{}, err
	}
	e.log.Debug().Int("columns", len(columns)).Msg("resolved output schema")

	catalog := NewCatalog(e.pool)
	schemaNodes := make([]*ParquetSchemaNode, len(columns))
	columnWriters := make([]ColumnWriter, len(columns))
	for i, col := range columns {
		pgt, err := catalog.Resolve(ctx, col.oid)
		if err != nil {
			return ExportResult{}, fmt.Errorf("resolve type of column %q: %w", col.name, err)
		}
		// Every column is resolved as nullable: the result-set description
		// available here doesn't carry a query-level NOT NULL guarantee, so
		// a source column declared NOT NULL still comes out OPTIONAL.
		node, writer, err := BuildColumn(col.name, pgt, true, e.settings)
		if err != nil {
			return ExportResult{}, fmt.Errorf("column %q: %w", col.name, err)
		}
		schemaNodes[i] = node
		columnWriters[i] = writer
	}

	flusher, err := NewRowGroupFlusher(out, schemaNodes, columnWriters, e.settings.CompressionCodec, e.settings.CompressionLevel)
	if err != nil {
		return ExportResult{}, err
	}

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return ExportResult{}, &ConnectError{Target: "copy connection", Err: err}
	}
	defer conn.Release()

	pipeReader, pipeWriter := io.Pipe()
	copySQL := fmt.Sprintf("COPY (%s) TO STDOUT BINARY", query)
	copyErrCh := make(chan error, 1)
	go func() {
		_, err := conn.Conn().PgConn().CopyTo(ctx, pipeWriter, copySQL)
		pipeWriter.CloseWithError(err)
		copyErrCh <- err
	}()

	rows, err := e.pump(pipeReader, columnWriters, flusher)
	if err != nil {
		pipeReader.CloseWithError(err)
		<-copyErrCh
		return ExportResult{}, err
	}

	if copyErr := <-copyErrCh; copyErr != nil && copyErr != io.EOF {
		return ExportResult{}, &ProtocolError{Context: "COPY TO STDOUT BINARY", Err: copyErr}
	}

	if err := flusher.Close(); err != nil {
		return ExportResult{}, err
	}

	return ExportResult{RowsWritten: rows, Columns: len(columns)}, nil
}

// pump is the exporter's hot loop: read one tuple, hand each field to
// its column's writer, cut a row group every BatchSize rows.
func (e *Exporter) pump(r io.Reader, columnWriters []ColumnWriter, flusher *RowGroupFlusher) (int64, error) {
	wr := NewWireReader(r)
	if err := wr.ReadHeader(); err != nil {
		return 0, err
	}

	var rows int64
	for {
		fieldCount, ok, err := wr.StartRow()
		if err != nil {
			return rows, err
		}
		if !ok {
			break
		}
		if fieldCount != len(columnWriters) {
			return rows, &ProtocolError{Context: "tuple field count", Err: fmt.Errorf("got %d fields, schema has %d columns", fieldCount, len(columnWriters))}
		}

		for i := 0; i < fieldCount; i++ {
			data, isNull, err := wr.NextField()
			if err != nil {
				return rows, err
			}
			if err := columnWriters[i].Append(data, isNull, 0); err != nil {
				return rows, &ProtocolError{Context: fmt.Sprintf("decoding column %d", i), Err: err}
			}
		}

		rows++
		flusher.AddRow()
		if flusher.RowCount() >= e.settings.BatchSize {
			if err := flusher.Flush(); err != nil {
				return rows, err
			}
			e.log.Debug().Int64("rows_written", rows).Msg("flushed row group")
		}
	}
	return rows, nil
}

type describedColumn struct {
	name string
	oid  uint32
}

// describeColumns runs query with a LIMIT 0 wrapper purely to read
// back its result row's field descriptions, the cheapest way to learn
// each output column's name and type OID without fetching any rows.
func (e *Exporter) describeColumns(ctx context.Context, query string) ([]describedColumn, error) {
	probe := fmt.Sprintf("SELECT * FROM (%s) AS pg2parquet_probe LIMIT 0", query)
	rows, err := e.pool.Query(ctx, probe)
	if err != nil {
		return nil, &ConfigError{Option: "query", Err: err}
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]describedColumn, len(fds))
	for i, fd := range fds {
		cols[i] = describedColumn{name: fd.Name, oid: fd.DataTypeOID}
	}
	return cols, rows.Err()
}
