//go:build cgo
// +build cgo

package columnar

import (
	"fmt"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/cdata"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/memory/mallocator"
	"github.com/isesword/arrow-cdata-bridge/bridge"
)

// ZeroCopySupported reports whether buffers can cross the boundary in this build.
func ZeroCopySupported() bool {
	return true
}

// defaultAllocator hands out C memory so exported buffers never point into
// the Go heap.
func defaultAllocator() memory.Allocator {
	return mallocator.NewMallocator()
}

func cArray(arr *bridge.ArrowArray) *cdata.CArrowArray {
	return (*cdata.CArrowArray)(unsafe.Pointer(arr))
}

func cSchema(schema *bridge.ArrowSchema) *cdata.CArrowSchema {
	return (*cdata.CArrowSchema)(unsafe.Pointer(schema))
}

// exportArray populates p from arr. The descriptor retains arr until its
// release callback fires.
func exportArray(arr arrow.Array, p *DescriptorPair) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.releaseDescriptors()
			err = fmt.Errorf("%w: %v", ErrConversion, r)
		}
	}()
	cdata.ExportArrowArray(arr, cArray(p.array), cSchema(p.schema))
	return nil
}

// importArray moves the array descriptor of p into a native array. The schema
// descriptor is released whether or not the import succeeds.
func importArray(p *DescriptorPair) (arrow.Array, error) {
	_, arr, err := cdata.ImportCArray(cArray(p.array), cSchema(p.schema))
	if err != nil {
		return nil, err
	}
	return arr, nil
}
