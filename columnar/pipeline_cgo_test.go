//go:build cgo
// +build cgo

package columnar

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"os"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/isesword/arrow-cdata-bridge/bridge"
	"github.com/isesword/arrow-cdata-bridge/loopback"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Runtime = (*loopback.Runtime)(nil)

// faultyRuntime injects failures around a loopback runtime.
type faultyRuntime struct {
	*loopback.Runtime
	exportErr   error
	exportNoArm bool
	importErr   error
}

func (f *faultyRuntime) ExportValue(handle uint64, arr *bridge.ArrowArray, schema *bridge.ArrowSchema) error {
	if f.exportNoArm {
		return nil
	}
	if f.exportErr != nil {
		return f.exportErr
	}
	return f.Runtime.ExportValue(handle, arr, schema)
}

func (f *faultyRuntime) ImportValue(arr *bridge.ArrowArray, schema *bridge.ArrowSchema) (uint64, error) {
	if f.importErr != nil {
		return 0, f.importErr
	}
	return f.Runtime.ImportValue(arr, schema)
}

// newLoopback closes the runtime before the allocator check registered
// earlier runs.
func newLoopback(t *testing.T) *loopback.Runtime {
	t.Helper()
	rt := loopback.New()
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func foreignInt64s(t *testing.T, rt *loopback.Runtime, fa *ForeignArray) ([]int64, []bool) {
	t.Helper()
	arr, err := rt.Get(fa.Handle())
	require.NoError(t, err)
	defer arr.Release()
	typed, err := Downcast[*array.Int64](arr)
	require.NoError(t, err)

	values := make([]int64, typed.Len())
	valid := make([]bool, typed.Len())
	for i := 0; i < typed.Len(); i++ {
		valid[i] = typed.IsValid(i)
		if valid[i] {
			values[i] = typed.Value(i)
		}
	}
	return values, valid
}

func TestDouble(t *testing.T) {
	mem := checkedAllocator(t)
	rt := newLoopback(t)
	p := NewPipeline(rt, WithAllocator(mem))

	h := rt.Put(int64Array(mem, []int64{1, 2, 3}, nil))
	out, err := p.Double(context.Background(), h)
	require.NoError(t, err)
	defer out.Free()

	values, _ := foreignInt64s(t, rt, out)
	assert.Equal(t, []int64{2, 4, 6}, values)
	assert.Equal(t, 2, rt.Len())

	// 原值不受影响
	in, err := p.FromForeign(h)
	require.NoError(t, err)
	defer in.Release()
	assert.Equal(t, []int64{1, 2, 3}, in.(*array.Int64).Int64Values())
}

func TestDoubleKeepsNulls(t *testing.T) {
	mem := checkedAllocator(t)
	rt := newLoopback(t)
	p := NewPipeline(rt, WithAllocator(mem))

	h := rt.Put(int64Array(mem, []int64{1, 0, -3}, []bool{true, false, true}))
	out, err := p.Double(context.Background(), h)
	require.NoError(t, err)
	defer out.Free()

	values, valid := foreignInt64s(t, rt, out)
	assert.Equal(t, []bool{true, false, true}, valid)
	assert.Equal(t, []int64{2, 0, -6}, values)
}

func TestDoubleEmpty(t *testing.T) {
	rt := loopback.New()
	defer rt.Close()
	p := NewPipeline(rt)

	h := rt.Put(int64Array(rt.Allocator(), nil, nil))
	out, err := p.Double(context.Background(), h)
	require.NoError(t, err)
	defer out.Free()

	values, _ := foreignInt64s(t, rt, out)
	assert.Empty(t, values)
}

func TestDoubleStringArray(t *testing.T) {
	mem := checkedAllocator(t)
	rt := newLoopback(t)
	metrics := NewMetrics("test", prometheus.NewRegistry())
	p := NewPipeline(rt, WithAllocator(mem), WithMetrics(metrics))

	sb := array.NewStringBuilder(mem)
	defer sb.Release()
	sb.AppendValues([]string{"a", "b"}, nil)
	h := rt.Put(sb.NewArray())

	out, err := p.Double(context.Background(), h)
	require.Error(t, err)
	assert.Nil(t, out)

	var be *bridge.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, bridge.ErrTypeMismatch, be.Code)
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.True(t, arrow.TypeEqual(arrow.BinaryTypes.String, mismatch.Found))

	// 失败时两侧都没有残留
	assert.Equal(t, 1, rt.Len())
	assert.Zero(t, testutil.ToFloat64(metrics.ExportsTotal))
	assert.Zero(t, testutil.ToFloat64(metrics.ForeignValuesLive))
}

func TestDoubleOverflow(t *testing.T) {
	mem := checkedAllocator(t)
	rt := newLoopback(t)
	p := NewPipeline(rt, WithAllocator(mem))

	h := rt.Put(int64Array(mem, []int64{math.MaxInt64}, nil))
	_, err := p.Double(context.Background(), h)

	var be *bridge.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, bridge.ErrExecution, be.Code)
	assert.ErrorIs(t, err, ErrCompute)
	assert.Equal(t, 1, rt.Len())
}

func TestApplyOps(t *testing.T) {
	mem := checkedAllocator(t)
	rt := newLoopback(t)
	p := NewPipeline(rt, WithAllocator(mem))
	h := rt.Put(int64Array(mem, []int64{3, -4}, nil))

	tests := []struct {
		op       BinaryOp
		expected []int64
	}{
		{Add, []int64{6, -8}},
		{Subtract, []int64{0, 0}},
		{Multiply, []int64{9, 16}},
	}
	for _, tt := range tests {
		t.Run(tt.op.Name, func(t *testing.T) {
			out, err := p.Apply(context.Background(), h, tt.op)
			require.NoError(t, err)
			defer out.Free()
			values, _ := foreignInt64s(t, rt, out)
			assert.Equal(t, tt.expected, values)
		})
	}
}

func TestCallInt32(t *testing.T) {
	mem := checkedAllocator(t)
	rt := newLoopback(t)
	p := NewPipeline(rt, WithAllocator(mem))

	b := array.NewInt32Builder(mem)
	defer b.Release()
	b.AppendValues([]int32{5, 6}, nil)
	h := rt.Put(b.NewArray())

	out, err := Call[*array.Int32](context.Background(), p, h, Multiply)
	require.NoError(t, err)
	defer out.Free()

	arr, err := rt.Get(out.Handle())
	require.NoError(t, err)
	defer arr.Release()
	assert.Equal(t, []int32{25, 36}, arr.(*array.Int32).Int32Values())

	_, err = p.Double(context.Background(), h)
	var be *bridge.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, bridge.ErrTypeMismatch, be.Code)
}

func TestBoundaryFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *faultyRuntime)
	}{
		{"export error", func(f *faultyRuntime) { f.exportErr = errors.New("value is gone") }},
		{"export without release", func(f *faultyRuntime) { f.exportNoArm = true }},
		{"import error", func(f *faultyRuntime) {
			f.importErr = &bridge.Error{Code: bridge.ErrOom, Message: "no room"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := checkedAllocator(t)
			rt := newLoopback(t)
			f := &faultyRuntime{Runtime: rt}
			tt.setup(f)
			p := NewPipeline(f, WithAllocator(mem))

			h := rt.Put(int64Array(mem, []int64{1, 2}, nil))
			out, err := p.Double(context.Background(), h)
			assert.Nil(t, out)

			var be *bridge.Error
			require.ErrorAs(t, err, &be)
			assert.Equal(t, bridge.ErrBoundary, be.Code)
			assert.ErrorIs(t, err, ErrBoundary)
			assert.Equal(t, 1, rt.Len())
		})
	}
}

func TestRequestExportIntoPoisonsPair(t *testing.T) {
	mem := checkedAllocator(t)
	rt := newLoopback(t)
	h := rt.Put(int64Array(mem, []int64{1}, nil))

	// 先填充再报错：描述符已被写入，但不能信任
	half := &halfRuntime{Runtime: rt}
	pair := NewExporter(nil).NewEmptyPair()
	err := RequestExportInto(half, h, pair)
	require.ErrorIs(t, err, ErrBoundary)
	assert.Equal(t, pairPoisoned, pair.state)
	assert.False(t, pair.Armed())

	pair.Release()
	assert.False(t, pair.Array().Released(), "poisoned pair must not be released")

	// 测试自己清理，避免泄漏
	bridge.ReleaseArrowArray(pair.Array())
	bridge.ReleaseArrowSchema(pair.Schema())
	pair.Close()

	_, err = NewImporter(nil).Import(pair)
	assert.ErrorIs(t, err, ErrImport)
}

type halfRuntime struct {
	*loopback.Runtime
}

func (h *halfRuntime) ExportValue(handle uint64, arr *bridge.ArrowArray, schema *bridge.ArrowSchema) error {
	if err := h.Runtime.ExportValue(handle, arr, schema); err != nil {
		return err
	}
	return errors.New("failed after populating")
}

func TestRequestPreconditions(t *testing.T) {
	mem := checkedAllocator(t)
	rt := newLoopback(t)
	exp := NewExporter(nil)

	armed, err := exp.Export(int64Array(mem, []int64{1}, nil))
	require.NoError(t, err)
	defer armed.Close()
	assert.ErrorIs(t, RequestExportInto(rt, 1, armed), ErrBoundary)
	assert.ErrorIs(t, RequestExportInto(nil, 1, exp.NewEmptyPair()), ErrBoundary)

	empty := exp.NewEmptyPair()
	defer empty.Close()
	_, err = RequestImportFrom(rt, empty)
	assert.ErrorIs(t, err, ErrBoundary)

	_, err = RequestImportFrom(nil, armed)
	assert.ErrorIs(t, err, ErrBoundary)
	assert.True(t, armed.Armed(), "a rejected request must not consume the pair")
}

func TestPipelineMetrics(t *testing.T) {
	mem := checkedAllocator(t)
	rt := newLoopback(t)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics("bridge", reg)
	p := NewPipeline(rt, WithAllocator(mem), WithMetrics(metrics))

	h := rt.Put(int64Array(mem, []int64{1, 2}, nil))
	out, err := p.Double(context.Background(), h)
	require.NoError(t, err)

	nb := array.NewNull(2)
	bad := rt.Put(nb)
	_, err = p.Double(context.Background(), bad)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CallsTotal.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CallsTotal.WithLabelValues("add", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FailuresTotal.WithLabelValues("type_mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ExportsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ImportsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ForeignValuesLive))

	out.Free()
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ForeignValuesLive))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.CallLatency))
}

func TestPipelineLogger(t *testing.T) {
	rt := loopback.New()
	defer rt.Close()
	var buf bytes.Buffer
	p := NewPipeline(rt, WithLogger(log.New(&buf, "", 0)))

	_, err := p.Double(context.Background(), 42)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "add(42) failed")
	assert.Contains(t, buf.String(), "unknown value handle 42")
}

func TestForeignArrayFree(t *testing.T) {
	mem := checkedAllocator(t)
	rt := newLoopback(t)
	p := NewPipeline(rt, WithAllocator(mem))

	fa, err := p.ToForeign(int64Array(mem, []int64{7}, nil))
	require.NoError(t, err)
	require.NotZero(t, fa.Handle())
	assert.Equal(t, 1, rt.Len())

	fa.Free()
	assert.Zero(t, fa.Handle())
	assert.Equal(t, 0, rt.Len())
	fa.Free()

	var nilArray *ForeignArray
	nilArray.Free()
	assert.Zero(t, nilArray.Handle())
}

func TestNewForeignArray(t *testing.T) {
	mem := checkedAllocator(t)
	rt := newLoopback(t)
	p := NewPipeline(rt, WithAllocator(mem))

	// 运行时里已有的值也可以交给 ForeignArray 管理
	fa := NewForeignArray(rt.Put(int64Array(mem, []int64{4, 5}, nil)), rt)
	require.NotZero(t, fa.Handle())

	out, err := p.Double(context.Background(), fa.Handle())
	require.NoError(t, err)
	defer out.Free()
	values, _ := foreignInt64s(t, rt, out)
	assert.Equal(t, []int64{8, 10}, values)

	fa.Free()
	assert.Zero(t, fa.Handle())
	assert.Equal(t, 1, rt.Len())
}

func TestToForeignConsumesOnFailure(t *testing.T) {
	mem := checkedAllocator(t)
	rt := newLoopback(t)
	f := &faultyRuntime{Runtime: rt, importErr: errors.New("refused")}
	p := NewPipeline(f, WithAllocator(mem))

	_, err := p.ToForeign(int64Array(mem, []int64{1, 2, 3}, nil))
	assert.ErrorIs(t, err, ErrBoundary)
	assert.Zero(t, rt.Len())
}

func TestDoubleConcurrent(t *testing.T) {
	mem := checkedAllocator(t)
	rt := newLoopback(t)
	p := NewPipeline(rt, WithAllocator(mem))
	h := rt.Put(int64Array(mem, []int64{10, 20, 30}, nil))

	const workers = 8
	outs := make([]*ForeignArray, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = p.Double(context.Background(), h)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		values, _ := foreignInt64s(t, rt, outs[i])
		assert.Equal(t, []int64{20, 40, 60}, values)
		outs[i].Free()
	}
	assert.Equal(t, 1, rt.Len())
}

func TestDoubleWithLibrary(t *testing.T) {
	libPath := os.Getenv(bridge.LibEnvVar)
	if libPath == "" {
		t.Skip("ARROW_BRIDGE_LIB not set, skipping test")
	}

	brg, err := bridge.LoadBridge(libPath)
	if err != nil {
		t.Fatalf("Failed to load bridge: %v", err)
	}
	defer brg.Close()

	p := NewPipeline(brg)
	in, err := p.ToForeign(int64Array(p.Allocator(), []int64{1, 2, 3}, nil))
	require.NoError(t, err)
	defer in.Free()

	out, err := p.Double(context.Background(), in.Handle())
	require.NoError(t, err)
	defer out.Free()

	got, err := p.FromForeign(out.Handle())
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, []int64{2, 4, 6}, got.(*array.Int64).Int64Values())
}
