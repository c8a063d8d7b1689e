package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Downcast checks the logical type of arr against T and returns the typed
// view. On mismatch it returns a *TypeMismatchError naming both types.
//
// Only the array types with a fixed logical type are accepted as T;
// parameterized ones (timestamps, lists, ...) always report a mismatch.
func Downcast[T arrow.Array](arr arrow.Array) (T, error) {
	var zero T
	expected := expectedType[T]()
	if arr == nil {
		return zero, &TypeMismatchError{Expected: expected}
	}
	if expected == nil || !arrow.TypeEqual(expected, arr.DataType()) {
		return zero, &TypeMismatchError{Expected: expected, Found: arr.DataType()}
	}
	typed, ok := arr.(T)
	if !ok {
		return zero, &TypeMismatchError{Expected: expected, Found: arr.DataType()}
	}
	return typed, nil
}

func expectedType[T arrow.Array]() arrow.DataType {
	var zero T
	switch any(zero).(type) {
	case *array.Int8:
		return arrow.PrimitiveTypes.Int8
	case *array.Int16:
		return arrow.PrimitiveTypes.Int16
	case *array.Int32:
		return arrow.PrimitiveTypes.Int32
	case *array.Int64:
		return arrow.PrimitiveTypes.Int64
	case *array.Uint8:
		return arrow.PrimitiveTypes.Uint8
	case *array.Uint16:
		return arrow.PrimitiveTypes.Uint16
	case *array.Uint32:
		return arrow.PrimitiveTypes.Uint32
	case *array.Uint64:
		return arrow.PrimitiveTypes.Uint64
	case *array.Float32:
		return arrow.PrimitiveTypes.Float32
	case *array.Float64:
		return arrow.PrimitiveTypes.Float64
	case *array.Boolean:
		return arrow.FixedWidthTypes.Boolean
	case *array.String:
		return arrow.BinaryTypes.String
	case *array.LargeString:
		return arrow.BinaryTypes.LargeString
	case *array.Binary:
		return arrow.BinaryTypes.Binary
	case *array.Null:
		return arrow.Null
	default:
		return nil
	}
}
