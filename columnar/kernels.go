package columnar

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/compute"
)

// BinaryOp is an element-wise operation over two arrays of the same type and
// length. Nulls propagate: a null on either side yields a null.
type BinaryOp struct {
	Name string
	fn   func(ctx context.Context, lhs, rhs compute.Datum) (compute.Datum, error)
}

// NewBinaryOp wraps an arbitrary compute function as a BinaryOp.
func NewBinaryOp(name string, fn func(ctx context.Context, lhs, rhs compute.Datum) (compute.Datum, error)) BinaryOp {
	return BinaryOp{Name: name, fn: fn}
}

func arithmetic(name string, checked bool,
	kernel func(context.Context, compute.ArithmeticOptions, compute.Datum, compute.Datum) (compute.Datum, error),
) BinaryOp {
	opts := compute.ArithmeticOptions{NoCheckOverflow: !checked}
	return NewBinaryOp(name, func(ctx context.Context, lhs, rhs compute.Datum) (compute.Datum, error) {
		return kernel(ctx, opts, lhs, rhs)
	})
}

// 溢出时报错的算术运算
var (
	Add      = arithmetic("add", true, compute.Add)
	Subtract = arithmetic("subtract", true, compute.Subtract)
	Multiply = arithmetic("multiply", true, compute.Multiply)
)

// 溢出时回绕的算术运算
var (
	AddUnchecked      = arithmetic("add_unchecked", false, compute.Add)
	SubtractUnchecked = arithmetic("subtract_unchecked", false, compute.Subtract)
	MultiplyUnchecked = arithmetic("multiply_unchecked", false, compute.Multiply)
)

// Do runs the operation on two arrays and returns a new array of the same
// length. Inputs are not released.
func (op BinaryOp) Do(ctx context.Context, lhs, rhs arrow.Array) (arrow.Array, error) {
	if op.fn == nil {
		return nil, fmt.Errorf("%w: operation %q has no kernel", ErrCompute, op.Name)
	}
	if lhs == nil || rhs == nil {
		return nil, fmt.Errorf("%w: %s: missing operand", ErrCompute, op.Name)
	}
	if lhs.Len() != rhs.Len() {
		return nil, fmt.Errorf("%w: %s: length mismatch (%d vs %d)", ErrCompute, op.Name, lhs.Len(), rhs.Len())
	}
	if !arrow.TypeEqual(lhs.DataType(), rhs.DataType()) {
		return nil, fmt.Errorf("%w: %s: operand types differ (%s vs %s)", ErrCompute, op.Name, lhs.DataType(), rhs.DataType())
	}

	left, right := compute.NewDatum(lhs), compute.NewDatum(rhs)
	defer left.Release()
	defer right.Release()

	out, err := op.fn(ctx, left, right)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompute, op.Name, err)
	}
	defer out.Release()

	result, ok := out.(*compute.ArrayDatum)
	if !ok {
		return nil, fmt.Errorf("%w: %s produced %s, not an array", ErrCompute, op.Name, out.Kind())
	}
	return result.MakeArray(), nil
}

// ApplyBinaryOp runs op over two arrays of type T and downcasts the result
// back to T. The caller owns the returned array.
func ApplyBinaryOp[T arrow.Array](ctx context.Context, op BinaryOp, lhs, rhs T) (T, error) {
	var zero T
	out, err := op.Do(ctx, lhs, rhs)
	if err != nil {
		return zero, err
	}
	typed, err := Downcast[T](out)
	if err != nil {
		out.Release()
		return zero, fmt.Errorf("%w: %s changed the result type: %v", ErrCompute, op.Name, err)
	}
	return typed, nil
}

var binaryOps = map[string][2]BinaryOp{
	"add":      {Add, AddUnchecked},
	"subtract": {Subtract, SubtractUnchecked},
	"multiply": {Multiply, MultiplyUnchecked},
}

// LookupBinaryOp returns the built-in operation called name, overflow-checked
// or wrapping.
func LookupBinaryOp(name string, checked bool) (BinaryOp, error) {
	ops, ok := binaryOps[name]
	if !ok {
		return BinaryOp{}, fmt.Errorf("unknown operation %q", name)
	}
	if checked {
		return ops[0], nil
	}
	return ops[1], nil
}
