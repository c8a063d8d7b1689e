package columnar

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute/exec"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Pipeline is the native entry point called with foreign values. It is safe
// for concurrent use as long as its Runtime is.
type Pipeline struct {
	rt       Runtime
	mem      memory.Allocator
	exporter *Exporter
	importer *Importer
	metrics  *Metrics
	logger   *log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithAllocator sets the allocator used for computed arrays. It must hand out
// memory that may be passed to C; the default does when cgo is enabled.
func WithAllocator(mem memory.Allocator) Option {
	return func(p *Pipeline) {
		if mem != nil {
			p.mem = mem
		}
	}
}

// WithMetrics records calls, exports and imports in m.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger logs failed calls to logger. The pipeline is silent by default.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a Pipeline exchanging values with rt.
func NewPipeline(rt Runtime, opts ...Option) *Pipeline {
	p := &Pipeline{
		rt:     rt,
		mem:    defaultAllocator(),
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.exporter = NewExporter(p.metrics)
	p.importer = NewImporter(p.metrics)
	return p
}

// Allocator returns the allocator used for computed arrays.
func (p *Pipeline) Allocator() memory.Allocator { return p.mem }

// FromForeign imports the foreign value behind handle as a native array
// sharing its buffers. The caller must release the array.
func (p *Pipeline) FromForeign(handle uint64) (arrow.Array, error) {
	pair := p.exporter.NewEmptyPair()
	defer pair.Close()

	if err := RequestExportInto(p.rt, handle, pair); err != nil {
		return nil, err
	}
	return p.importer.Import(pair)
}

// ToForeign hands arr to the foreign runtime without copying its buffers and
// returns the new foreign value. arr is consumed whether or not the call
// succeeds.
func (p *Pipeline) ToForeign(arr arrow.Array) (*ForeignArray, error) {
	pair, err := p.exporter.Export(arr)
	if err != nil {
		if arr != nil {
			arr.Release()
		}
		return nil, err
	}
	defer pair.Close()

	handle, err := RequestImportFrom(p.rt, pair)
	if err != nil {
		return nil, err
	}
	return newForeignArray(handle, p.rt, p.metrics), nil
}

// Call runs op over the foreign value behind handle, paired with itself, as
// an array of type T and returns the result as a new foreign value.
//
// Every error is a *bridge.Error whose code names the failing step; the
// original error stays reachable through errors.Is and errors.As. On failure
// nothing is left allocated on either side.
func Call[T arrow.Array](ctx context.Context, p *Pipeline, handle uint64, op BinaryOp) (out *ForeignArray, err error) {
	start := time.Now()
	defer func() {
		p.metrics.RecordCall(op.Name, err, time.Since(start))
		if err != nil {
			p.logger.Printf("%s(%d) failed: %v", op.Name, handle, err)
			err = toBoundaryError(err)
		}
	}()

	// Received -> Imported
	arr, err := p.FromForeign(handle)
	if err != nil {
		return nil, err
	}
	defer arr.Release()

	// Imported -> Downcast
	typed, err := Downcast[T](arr)
	if err != nil {
		return nil, err
	}

	// Downcast -> Computed
	result, err := ApplyBinaryOp(exec.WithAllocator(ctx, p.mem), op, typed, typed)
	if err != nil {
		return nil, err
	}

	// Computed -> Exported -> Returned
	out, err = p.ToForeign(result)
	if err != nil {
		return nil, fmt.Errorf("returning %s result: %w", op.Name, err)
	}
	return out, nil
}

// Apply runs op over an int64 foreign array.
func (p *Pipeline) Apply(ctx context.Context, handle uint64, op BinaryOp) (*ForeignArray, error) {
	return Call[*array.Int64](ctx, p, handle, op)
}

// Double returns a new foreign int64 array holding x+x for every element x of
// the value behind handle. Nulls stay null; overflow is an error.
func (p *Pipeline) Double(ctx context.Context, handle uint64) (*ForeignArray, error) {
	return p.Apply(ctx, handle, Add)
}
