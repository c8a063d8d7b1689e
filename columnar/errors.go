package columnar

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/isesword/arrow-cdata-bridge/bridge"
)

var (
	// ErrConversion: the native type cannot be described by an ArrowSchema.
	ErrConversion = errors.New("conversion error")
	// ErrImport: the descriptor pair is malformed, inconsistent or already consumed.
	ErrImport = errors.New("import error")
	// ErrBoundary: the foreign call itself failed.
	ErrBoundary = errors.New("boundary error")
	// ErrCompute: the operation failed (shape mismatch, overflow, ...).
	ErrCompute = errors.New("compute error")

	ErrCgoRequired = errors.New("zero-copy exchange requires cgo")
)

// TypeMismatchError is returned by Downcast when the logical type of an array
// is not the requested one.
type TypeMismatchError struct {
	Expected arrow.DataType
	Found    arrow.DataType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, found %s", typeName(e.Expected), typeName(e.Found))
}

func typeName(dt arrow.DataType) string {
	if dt == nil {
		return "unknown"
	}
	return dt.String()
}

// errorCode maps an internal error onto the code that crosses the boundary.
func errorCode(err error) bridge.ErrorCode {
	var mismatch *TypeMismatchError
	switch {
	case errors.As(err, &mismatch):
		return bridge.ErrTypeMismatch
	case errors.Is(err, ErrConversion):
		return bridge.ErrConversion
	case errors.Is(err, ErrImport):
		return bridge.ErrArrowImport
	case errors.Is(err, ErrBoundary):
		return bridge.ErrBoundary
	case errors.Is(err, ErrCompute):
		return bridge.ErrExecution
	case errors.Is(err, ErrCgoRequired):
		return bridge.ErrUnsupported
	default:
		return bridge.ErrUnknown
	}
}

// errorKind is the metrics label of an internal error.
func errorKind(err error) string {
	switch errorCode(err) {
	case bridge.ErrTypeMismatch:
		return "type_mismatch"
	case bridge.ErrConversion:
		return "conversion"
	case bridge.ErrArrowImport:
		return "import"
	case bridge.ErrBoundary:
		return "boundary"
	case bridge.ErrExecution:
		return "compute"
	case bridge.ErrUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// toBoundaryError funnels any internal error into the single error category
// visible to the foreign side. The kind is kept in the code and stays
// reachable through errors.Is / errors.As.
func toBoundaryError(err error) error {
	if err == nil {
		return nil
	}
	if be, ok := err.(*bridge.Error); ok {
		return be
	}
	return bridge.NewError(errorCode(err), err)
}
