//go:build cgo
// +build cgo

package loopback

import (
	"fmt"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow/cdata"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/memory/mallocator"
	"github.com/isesword/arrow-cdata-bridge/bridge"
)

func zeroCopySupported() bool { return true }

func defaultAllocator() memory.Allocator {
	return mallocator.NewMallocator()
}

// ExportValue populates the empty descriptors from the value behind handle.
// The value stays alive until the descriptors are released.
func (r *Runtime) ExportValue(handle uint64, array *bridge.ArrowArray, schema *bridge.ArrowSchema) (err error) {
	if array == nil || schema == nil {
		return &bridge.Error{Code: bridge.ErrInvalidArgument, Message: "nil descriptor"}
	}
	arr, err := r.retain(handle)
	if err != nil {
		return err
	}
	defer arr.Release()

	defer func() {
		if rec := recover(); rec != nil {
			bridge.ReleaseArrowArray(array)
			bridge.ReleaseArrowSchema(schema)
			err = &bridge.Error{Code: bridge.ErrArrowExport, Message: fmt.Sprint(rec)}
		}
	}()
	cdata.ExportArrowArray(arr,
		(*cdata.CArrowArray)(unsafe.Pointer(array)),
		(*cdata.CArrowSchema)(unsafe.Pointer(schema)))
	return nil
}

// ImportValue moves the descriptors into a new value and returns its handle.
func (r *Runtime) ImportValue(array *bridge.ArrowArray, schema *bridge.ArrowSchema) (uint64, error) {
	if array.Released() || schema.Released() {
		return 0, &bridge.Error{Code: bridge.ErrInvalidArgument, Message: "released descriptor"}
	}
	_, arr, err := cdata.ImportCArray(
		(*cdata.CArrowArray)(unsafe.Pointer(array)),
		(*cdata.CArrowSchema)(unsafe.Pointer(schema)))
	if err != nil {
		// 导入失败时 array 仍归调用方，由调用方释放
		return 0, &bridge.Error{Code: bridge.ErrArrowImport, Message: err.Error()}
	}
	return r.Put(arr), nil
}
