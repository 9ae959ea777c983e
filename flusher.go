package pg2parquet

import (
	"fmt"
	"io"
	"strings"

	"github.com/hangxie/parquet-go/v2/common"
	"github.com/hangxie/parquet-go/v2/layout"
	"github.com/hangxie/parquet-go/v2/parquet"
	"github.com/hangxie/parquet-go/v2/schema"
	"github.com/hangxie/parquet-go/v2/writer"
)

// RowGroupFlusher owns the underlying *writer.ParquetWriter and drives
// it through our own pre-built layout.Tables instead of its default
// reflection-based marshaling: ColumnWriter.Flush already produces
// Dremel-encoded values/levels directly, so there is nothing left for
// the library's own Marshal to do beyond handing those tables to the
// page encoder.
type RowGroupFlusher struct {
	pw      *writer.ParquetWriter
	columns []*ParquetSchemaNode
	writers []ColumnWriter
	mapper  indexMapper
	rows    int
}

// NewRowGroupFlusher builds the Parquet file schema from columns,
// opens the writer against out, and wires its MarshalFunc to read
// straight from writers' accumulated LeafTables.
func NewRowGroupFlusher(out io.Writer, columns []*ParquetSchemaNode, writers []ColumnWriter, compressionCodec string, compressionLevel int) (*RowGroupFlusher, error) {
	if len(columns) != len(writers) {
		return nil, fmt.Errorf("internal error: %d schema columns but %d column writers", len(columns), len(writers))
	}

	jsonSchema, err := BuildSchemaJSON(columns)
	if err != nil {
		return nil, fmt.Errorf("render parquet schema: %w", err)
	}

	pw, err := writer.NewParquetWriterFromWriter(out, jsonSchema, 1)
	if err != nil {
		return nil, fmt.Errorf("open parquet writer: %w", err)
	}

	codecName := strings.ToUpper(compressionCodec)
	if codecName == "NONE" {
		codecName = "UNCOMPRESSED"
	}
	codec, err := parquet.CompressionCodecFromString(codecName)
	if err != nil {
		return nil, &ConfigError{Option: "compression", Err: err}
	}
	pw.CompressionType = codec
	_ = compressionLevel // the library picks each codec's level internally; nothing to wire here

	slots := SchemaLeafSlots(columns)
	mapper, err := BuildIndexMapper(slots, pw.SchemaHandler.IndexMap)
	if err != nil {
		return nil, fmt.Errorf("build schema index map: %w", err)
	}

	f := &RowGroupFlusher{pw: pw, columns: columns, writers: writers, mapper: mapper}
	pw.MarshalFunc = f.marshal
	return f, nil
}

// marshal ignores src entirely - pw.Objs is only ever populated with
// row-count placeholders by AddRow - and returns the tables our
// ColumnWriters have already built for the rows accumulated since the
// last Flush.
func (f *RowGroupFlusher) marshal(_ []any, sh *schema.SchemaHandler) (*map[string]*layout.Table, error) {
	leaves := make(map[*ParquetSchemaNode]*LeafTable)
	for _, w := range f.writers {
		w.Flush(leaves)
	}

	out := make(map[string]*layout.Table, len(leaves))
	for node, lt := range leaves {
		key, err := f.mapper(node)
		if err != nil {
			return nil, err
		}
		elem, info, err := f.leafSchemaElement(node, sh)
		if err != nil {
			return nil, err
		}

		repType := parquet.FieldRepetitionType_REQUIRED
		if node.Optional {
			repType = parquet.FieldRepetitionType_OPTIONAL
		}

		out[key] = &layout.Table{
			RepetitionType:     repType,
			Schema:             elem,
			Path:               common.StrToPath(key),
			MaxDefinitionLevel: node.MaxDefinitionLevel,
			MaxRepetitionLevel: node.MaxRepetitionLevel,
			Values:             lt.Values,
			DefinitionLevels:   lt.DefinitionLevels,
			RepetitionLevels:   lt.RepetitionLevels,
			Info:               info,
		}
	}
	return &out, nil
}

// leafSchemaElement finds the SchemaElement and Tag the SchemaHandler
// built for node, by re-deriving its position with the same
// SchemaLeafSlots walk used to build the index mapper.
func (f *RowGroupFlusher) leafSchemaElement(node *ParquetSchemaNode, sh *schema.SchemaHandler) (*parquet.SchemaElement, *common.Tag, error) {
	slots := SchemaLeafSlots(f.columns)
	for i, n := range slots {
		if n == node {
			if i >= len(sh.SchemaElements) || i >= len(sh.Infos) {
				return nil, nil, fmt.Errorf("schema index %d out of range", i)
			}
			return sh.SchemaElements[i], sh.Infos[i], nil
		}
	}
	return nil, nil, fmt.Errorf("leaf %q not present in resolved schema", node.Name)
}

// AddRow records that one more row has been appended to every column
// writer (the actual values were already pushed by the exporter
// calling ColumnWriter.Append directly); pw.Objs only needs to grow to
// the right length so pw.Flush(true) below processes the right row
// count.
func (f *RowGroupFlusher) AddRow() {
	f.pw.Objs = append(f.pw.Objs, struct{}{})
	f.rows++
}

// RowCount is the number of rows accumulated since the last Flush.
func (f *RowGroupFlusher) RowCount() int { return f.rows }

// Flush cuts a row group from everything accumulated so far and resets
// every column writer's buffers for the next one.
func (f *RowGroupFlusher) Flush() error {
	if f.rows == 0 {
		return nil
	}
	if err := f.pw.Flush(true); err != nil {
		return &IOError{Path: "<parquet output>", Err: err}
	}
	for _, w := range f.writers {
		w.Reset()
	}
	f.rows = 0
	return nil
}

// Close flushes any remaining buffered rows and writes the file
// footer.
func (f *RowGroupFlusher) Close() error {
	if err := f.Flush(); err != nil {
		return err
	}
	if err := f.pw.WriteStop(); err != nil {
		return &IOError{Path: "<parquet output>", Err: err}
	}
	return nil
}
