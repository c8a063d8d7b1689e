package columnar

import (
	"runtime"
)

// ForeignArray is an array held by the foreign runtime.
type ForeignArray struct {
	handle  uint64
	rt      Runtime
	metrics *Metrics
}

// NewForeignArray wraps a handle owned by rt. The handle is freed by Free, or
// by the garbage collector if Free is never called.
func NewForeignArray(handle uint64, rt Runtime) *ForeignArray {
	return newForeignArray(handle, rt, nil)
}

func newForeignArray(handle uint64, rt Runtime, metrics *Metrics) *ForeignArray {
	fa := &ForeignArray{handle: handle, rt: rt, metrics: metrics}
	metrics.foreignValueCreated()
	runtime.SetFinalizer(fa, (*ForeignArray).Free)
	return fa
}

// Handle returns the foreign handle, or 0 once the array is freed.
func (fa *ForeignArray) Handle() uint64 {
	if fa == nil {
		return 0
	}
	return fa.handle
}

// Free releases the foreign-side value. Later calls are no-ops.
func (fa *ForeignArray) Free() {
	if fa == nil || fa.handle == 0 || fa.rt == nil {
		return
	}
	fa.rt.FreeValue(fa.handle)
	fa.handle = 0
	fa.metrics.foreignValueFreed()
	runtime.SetFinalizer(fa, nil)
}
