//go:build !cgo
// +build !cgo

package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ZeroCopySupported reports whether buffers can cross the boundary in this build.
func ZeroCopySupported() bool {
	return false
}

func defaultAllocator() memory.Allocator {
	return memory.DefaultAllocator
}

func exportArray(_ arrow.Array, _ *DescriptorPair) error {
	return ErrCgoRequired
}

func importArray(_ *DescriptorPair) (arrow.Array, error) {
	return nil, ErrCgoRequired
}
