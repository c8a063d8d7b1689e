package main

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// WriteIPC writes arr as a single-column record batch in the Arrow IPC
// stream format.
func WriteIPC(w io.Writer, column string, arr arrow.Array, mem memory.Allocator) error {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: column, Type: arr.DataType(), Nullable: true},
	}, nil)
	rec := array.NewRecordBatch(schema, []arrow.Array{arr}, int64(arr.Len()))
	defer rec.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	defer writer.Close()

	if err := writer.Write(rec); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

// ReadIPC reads back the first column of the first record batch written by
// WriteIPC. The caller must release the array.
func ReadIPC(r io.Reader, mem memory.Allocator) (arrow.Array, error) {
	reader, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Release()

	if !reader.Next() {
		if reader.Err() != nil {
			return nil, reader.Err()
		}
		return nil, fmt.Errorf("no records in IPC data")
	}

	rec := reader.Record()
	if rec.NumCols() != 1 {
		return nil, fmt.Errorf("expected 1 column, got %d", rec.NumCols())
	}
	col := rec.Column(0)
	col.Retain()
	return col, nil
}

func dumpIPC(path, column string, arr arrow.Array, mem memory.Allocator) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteIPC(f, column, arr, mem); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
