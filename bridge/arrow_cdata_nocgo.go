//go:build !cgo
// +build !cgo

package bridge

import "unsafe"

const cgoEnabled = false

// Schema flags, see ARROW_FLAG_*.
const (
	FlagDictionaryOrdered int64 = 1
	FlagNullable          int64 = 2
	FlagMapKeysSorted     int64 = 4
)

// ArrowSchema represents Arrow schema in C (cgo disabled placeholder).
type ArrowSchema struct{}

// ArrowArray represents Arrow array data in C (cgo disabled placeholder).
type ArrowArray struct{}

// NewArrowSchema returns a placeholder when cgo is disabled.
func NewArrowSchema() *ArrowSchema { return &ArrowSchema{} }

// NewArrowArray returns a placeholder when cgo is disabled.
func NewArrowArray() *ArrowArray { return &ArrowArray{} }

// FreeArrowSchema is a no-op when cgo is disabled.
func FreeArrowSchema(_ *ArrowSchema) {}

// FreeArrowArray is a no-op when cgo is disabled.
func FreeArrowArray(_ *ArrowArray) {}

// ReleaseArrowSchema is a no-op when cgo is disabled.
func ReleaseArrowSchema(_ *ArrowSchema) {}

// ReleaseArrowArray is a no-op when cgo is disabled.
func ReleaseArrowArray(_ *ArrowArray) {}

// MoveArrowSchema is a no-op when cgo is disabled.
func MoveArrowSchema(_, _ *ArrowSchema) {}

// MoveArrowArray is a no-op when cgo is disabled.
func MoveArrowArray(_, _ *ArrowArray) {}

func (s *ArrowSchema) Released() bool             { return true }
func (s *ArrowSchema) Format() string             { return "" }
func (s *ArrowSchema) Name() string               { return "" }
func (s *ArrowSchema) Flags() int64               { return 0 }
func (s *ArrowSchema) NumChildren() int64         { return 0 }
func (s *ArrowSchema) Child(_ int) *ArrowSchema   { return nil }
func (s *ArrowSchema) Dictionary() *ArrowSchema   { return nil }
func (a *ArrowArray) Released() bool              { return true }
func (a *ArrowArray) Length() int64               { return 0 }
func (a *ArrowArray) NullCount() int64            { return 0 }
func (a *ArrowArray) Offset() int64               { return 0 }
func (a *ArrowArray) NumBuffers() int64           { return 0 }
func (a *ArrowArray) NumChildren() int64          { return 0 }
func (a *ArrowArray) Buffer(_ int) unsafe.Pointer { return nil }
func (a *ArrowArray) Child(_ int) *ArrowArray     { return nil }
func (a *ArrowArray) Dictionary() *ArrowArray     { return nil }

// SetBuffer is a no-op when cgo is disabled.
func (a *ArrowArray) SetBuffer(_ int, _ unsafe.Pointer) bool { return false }
