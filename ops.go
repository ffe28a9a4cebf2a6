package memir

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/memir/internal/optypes"
	"github.com/gomlx/memir/shapeinference"
	"github.com/gomlx/memir/types"
	"github.com/gomlx/memir/types/shapes"
	"github.com/pkg/errors"
)

// addOp adds a new operation to the function.
func (fn *Function) addOp(opType optypes.OpType, outputShape shapes.Shape, inputs ...*Value) *Statement {
	output := fn.newValue(outputShape)
	stmt := &Statement{
		Builder:  fn.Builder,
		Function: fn,
		OpType:   opType,
		Inputs:   inputs,
		Outputs:  []*Value{output},
	}
	output.def = stmt
	fn.Statements = append(fn.Statements, stmt)
	return stmt
}

// addNoOutputOp adds a new operation without results to the function.
func (fn *Function) addNoOutputOp(opType optypes.OpType, inputs ...*Value) *Statement {
	stmt := &Statement{
		Builder:  fn.Builder,
		Function: fn,
		OpType:   opType,
		Inputs:   inputs,
	}
	fn.Statements = append(fn.Statements, stmt)
	return stmt
}

// checkInputs verifies the function still accepts operations and that the
// inputs are owned by it.
func (fn *Function) checkInputs(op optypes.OpType, inputs ...*Value) error {
	if fn.Returned {
		return errors.Errorf("cannot add operation %s after returning, in function %q", op, fn.Name)
	}
	for _, input := range inputs {
		if input == nil {
			return errors.Errorf("cannot add operation %s to function %q with a nil operand", op, fn.Name)
		}
		if input.fn != fn {
			return errors.Errorf("cannot add operation %s to function %q, because the operands are not part of the function",
				op, fn.Name)
		}
	}
	return nil
}

// Extent is a size, stride or offset entry for operations mixing static and
// runtime-computed components: it holds either a compile-time int or an index
// Value computed at run time.
type Extent struct {
	static int
	value  *Value
}

// StaticExtent returns an Extent with a compile-time value.
func StaticExtent(v int) Extent {
	return Extent{static: v}
}

// RuntimeExtent returns an Extent carried by a runtime-computed index value.
func RuntimeExtent(v *Value) Extent {
	return Extent{static: shapes.DynamicSize, value: v}
}

// IsStatic reports whether the extent is known at compile time.
func (e Extent) IsStatic() bool { return e.value == nil }

// Static returns the compile-time value, or shapes.DynamicSize for a runtime
// extent.
func (e Extent) Static() int { return e.static }

// Value returns the runtime index value, or nil for a static extent.
func (e Extent) Value() *Value { return e.value }

// Tensor-level (hlo dialect) operations.

// Reshape the operand to the given statically known target shape.
// The operand may be unranked; the element count compatibility is only
// checked when both sides are fully static.
func (fn *Function) Reshape(operand *Value, target shapes.Shape) (*Value, error) {
	op := optypes.Reshape
	if err := fn.checkInputs(op, operand); err != nil {
		return nil, err
	}
	if err := shapeinference.Reshape(operand.shape, target); err != nil {
		return nil, err
	}
	return fn.addOp(op, target, operand).Outputs[0], nil
}

// DynamicReshape reshapes the operand to the shape read at run time from
// outputShape, a rank-1 integer tensor. The result type may be ranked (with
// dynamic dimensions) or unranked.
func (fn *Function) DynamicReshape(operand, outputShape *Value, result shapes.Shape) (*Value, error) {
	op := optypes.DynamicReshape
	if err := fn.checkInputs(op, operand, outputShape); err != nil {
		return nil, err
	}
	if err := shapeinference.DynamicReshape(operand.shape, outputShape.shape, result); err != nil {
		return nil, err
	}
	return fn.addOp(op, result, operand, outputShape).Outputs[0], nil
}

// DynamicBroadcastInDim broadcasts the operand to the shape read at run time
// from outputDimensions (a rank-1 integer tensor).
//
// broadcastDimensions has one entry per operand axis: the result axis it maps
// to. Result axes not present in broadcastDimensions are new axes introduced
// by the broadcast.
func (fn *Function) DynamicBroadcastInDim(operand, outputDimensions *Value, result shapes.Shape, broadcastDimensions []int) (*Value, error) {
	op := optypes.DynamicBroadcastInDim
	if err := fn.checkInputs(op, operand, outputDimensions); err != nil {
		return nil, err
	}
	if err := shapeinference.DynamicBroadcastInDim(operand.shape, outputDimensions.shape, result, broadcastDimensions); err != nil {
		return nil, err
	}
	stmt := fn.addOp(op, result, operand, outputDimensions)
	stmt.Attributes = map[string]any{"broadcast_dimensions": I64Array(broadcastDimensions)}
	return stmt.Outputs[0], nil
}

// Scalar (arith dialect) operations.

// ConstantIndex creates an arith.constant of index type.
func (fn *Function) ConstantIndex(value int) (*Value, error) {
	op := optypes.ArithConstant
	if err := fn.checkInputs(op); err != nil {
		return nil, err
	}
	stmt := fn.addOp(op, shapes.Index())
	stmt.Attributes = map[string]any{"value": IndexLiteral(value)}
	return stmt.Outputs[0], nil
}

// MulI multiplies two scalar integer (or index) values.
func (fn *Function) MulI(lhs, rhs *Value) (*Value, error) {
	op := optypes.ArithMulI
	if err := fn.checkInputs(op, lhs, rhs); err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.MulI(lhs.shape, rhs.shape)
	if err != nil {
		return nil, err
	}
	return fn.addOp(op, outputShape, lhs, rhs).Outputs[0], nil
}

// CmpI compares two scalar integer (or index) values under the given
// predicate, producing a scalar i1.
func (fn *Function) CmpI(predicate types.CmpPredicate, lhs, rhs *Value) (*Value, error) {
	op := optypes.ArithCmpI
	if err := fn.checkInputs(op, lhs, rhs); err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.CmpI(lhs.shape, rhs.shape)
	if err != nil {
		return nil, err
	}
	stmt := fn.addOp(op, outputShape, lhs, rhs)
	stmt.Attributes = map[string]any{"predicate": predicate}
	return stmt.Outputs[0], nil
}

// Select picks onTrue or onFalse depending on the scalar i1 condition.
func (fn *Function) Select(condition, onTrue, onFalse *Value) (*Value, error) {
	op := optypes.ArithSelect
	if err := fn.checkInputs(op, condition, onTrue, onFalse); err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.Select(condition.shape, onTrue.shape, onFalse.shape)
	if err != nil {
		return nil, err
	}
	return fn.addOp(op, outputShape, condition, onTrue, onFalse).Outputs[0], nil
}

// IndexCast casts a scalar integer to index, or an index to i64.
func (fn *Function) IndexCast(operand *Value) (*Value, error) {
	op := optypes.ArithIndexCast
	if err := fn.checkInputs(op, operand); err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.IndexCast(operand.shape)
	if err != nil {
		return nil, err
	}
	return fn.addOp(op, outputShape, operand).Outputs[0], nil
}

// Buffer-level (memref dialect) operations.

// Dim reads the run-time size of the given axis of a ranked buffer, as an
// index value.
func (fn *Function) Dim(source *Value, axis int) (*Value, error) {
	op := optypes.MemRefDim
	if err := fn.checkInputs(op, source); err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.Dim(source.shape, axis)
	if err != nil {
		return nil, err
	}
	axisValue, err := fn.ConstantIndex(axis)
	if err != nil {
		return nil, err
	}
	return fn.addOp(op, outputShape, source, axisValue).Outputs[0], nil
}

// ReinterpretCast reinterprets the source buffer's memory under a new layout:
// the given offset, sizes and strides. Sizes and strides are Extents: static
// ints or runtime-computed index values. The result buffer shares the
// source's memory; only the shape/layout metadata changes.
//
// The result type keeps static sizes where the Extent is static, and marks
// every runtime component as dynamic.
func (fn *Function) ReinterpretCast(source *Value, offset int, sizes, strides []Extent) (*Value, error) {
	op := optypes.MemRefReinterpretCast
	if err := fn.checkInputs(op, source); err != nil {
		return nil, err
	}

	staticSizes := make([]int, len(sizes))
	staticStrides := make([]int, len(strides))
	inputs := make([]*Value, 0, 1+len(sizes)+len(strides))
	inputs = append(inputs, source)
	for i, size := range sizes {
		staticSizes[i] = size.Static()
		if !size.IsStatic() {
			if err := fn.checkInputs(op, size.Value()); err != nil {
				return nil, err
			}
			if !size.Value().shape.IsIndex() {
				return nil, errors.Errorf("ReinterpretCast runtime sizes must be index values, got %s", size.Value().shape)
			}
			inputs = append(inputs, size.Value())
		}
	}
	for i, stride := range strides {
		staticStrides[i] = stride.Static()
		if !stride.IsStatic() {
			if err := fn.checkInputs(op, stride.Value()); err != nil {
				return nil, err
			}
			if !stride.Value().shape.IsIndex() {
				return nil, errors.Errorf("ReinterpretCast runtime strides must be index values, got %s", stride.Value().shape)
			}
			inputs = append(inputs, stride.Value())
		}
	}

	outputShape, err := shapeinference.ReinterpretCast(source.shape, offset, staticSizes, staticStrides)
	if err != nil {
		return nil, err
	}
	stmt := fn.addOp(op, outputShape, inputs...)
	stmt.Attributes = map[string]any{
		"static_offsets": I64Array{offset},
		"static_sizes":   I64Array(staticSizes),
		"static_strides": I64Array(staticStrides),
	}
	return stmt.Outputs[0], nil
}

// MemRefCast casts a buffer to a compatible buffer type: a type
// reinterpretation sharing the same memory, not a copy. It can erase or
// refine the rank and dimensions, never the element type.
func (fn *Function) MemRefCast(source *Value, target shapes.Shape) (*Value, error) {
	op := optypes.MemRefCast
	if err := fn.checkInputs(op, source); err != nil {
		return nil, err
	}
	if err := shapeinference.Cast(source.shape, target); err != nil {
		return nil, err
	}
	return fn.addOp(op, target, source).Outputs[0], nil
}

// MemRefReshape reinterprets the source buffer with the shape read at run
// time from shape, a rank-1 integer buffer. The result type may be ranked or
// unranked; either way the result shares the source's memory.
func (fn *Function) MemRefReshape(source, shape *Value, result shapes.Shape) (*Value, error) {
	op := optypes.MemRefReshape
	if err := fn.checkInputs(op, source, shape); err != nil {
		return nil, err
	}
	if err := shapeinference.MemRefReshape(source.shape, shape.shape, result); err != nil {
		return nil, err
	}
	return fn.addOp(op, result, source, shape).Outputs[0], nil
}

// Alloc allocates a new buffer of the given dimensions with the identity
// (row-major) layout. One runtime index value must be given per DynamicSize
// dimension, in order.
func (fn *Function) Alloc(dtype dtypes.DType, dimensions []int, dynamicSizes ...*Value) (*Value, error) {
	op := optypes.MemRefAlloc
	if err := fn.checkInputs(op, dynamicSizes...); err != nil {
		return nil, err
	}
	for _, size := range dynamicSizes {
		if !size.shape.IsIndex() {
			return nil, errors.Errorf("Alloc dynamic sizes must be index values, got %s", size.shape)
		}
	}
	outputShape, err := shapeinference.Alloc(dtype, dimensions, len(dynamicSizes))
	if err != nil {
		return nil, err
	}
	return fn.addOp(op, outputShape, dynamicSizes...).Outputs[0], nil
}

// Copy copies the source buffer's elements into the target buffer,
// element-wise, honoring both layouts. It has no results.
func (fn *Function) Copy(source, target *Value) error {
	op := optypes.MemRefCopy
	if err := fn.checkInputs(op, source, target); err != nil {
		return err
	}
	if err := shapeinference.Copy(source.shape, target.shape); err != nil {
		return err
	}
	fn.addNoOutputOp(op, source, target)
	return nil
}

// Extract reads the scalar element at the given indices of a ranked tensor.
func (fn *Function) Extract(source *Value, indices ...*Value) (*Value, error) {
	op := optypes.TensorExtract
	if err := fn.checkInputs(op, append([]*Value{source}, indices...)...); err != nil {
		return nil, err
	}
	for _, index := range indices {
		if !index.shape.IsIndex() {
			return nil, errors.Errorf("Extract indices must be index values, got %s", index.shape)
		}
	}
	outputShape, err := shapeinference.Extract(source.shape, len(indices))
	if err != nil {
		return nil, err
	}
	inputs := append([]*Value{source}, indices...)
	return fn.addOp(op, outputShape, inputs...).Outputs[0], nil
}

// ToBuffer casts a tensor value to its backing buffer. It is inserted by the
// bufferization driver at the boundary between tensor-level and buffer-level
// code.
func (fn *Function) ToBuffer(tensor *Value) (*Value, error) {
	op := optypes.ToBuffer
	if err := fn.checkInputs(op, tensor); err != nil {
		return nil, err
	}
	outputShape, err := shapeinference.ToBuffer(tensor.shape)
	if err != nil {
		return nil, err
	}
	return fn.addOp(op, outputShape, tensor).Outputs[0], nil
}
