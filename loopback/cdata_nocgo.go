//go:build !cgo
// +build !cgo

package loopback

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/isesword/arrow-cdata-bridge/bridge"
)

func zeroCopySupported() bool { return false }

func defaultAllocator() memory.Allocator {
	return memory.DefaultAllocator
}

// ExportValue requires cgo.
func (r *Runtime) ExportValue(_ uint64, _ *bridge.ArrowArray, _ *bridge.ArrowSchema) error {
	return &bridge.Error{Code: bridge.ErrUnsupported, Message: "ExportValue requires cgo (set CGO_ENABLED=1)"}
}

// ImportValue requires cgo.
func (r *Runtime) ImportValue(_ *bridge.ArrowArray, _ *bridge.ArrowSchema) (uint64, error) {
	return 0, &bridge.Error{Code: bridge.ErrUnsupported, Message: "ImportValue requires cgo (set CGO_ENABLED=1)"}
}
