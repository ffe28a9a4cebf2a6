// Package shapeinference validates the inputs of the IR operations and
// calculates the shapes of their results.
//
// The tensor-level (hlo) operations only get validated -- their result shapes
// are carried by the source program -- while the buffer-level (memref, arith,
// tensor) operations get their result shapes computed here.
package shapeinference

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/memir/internal/utils"
	"github.com/gomlx/memir/types/shapes"
	"github.com/pkg/errors"
)

// IndexLike shapes are accepted as scalar integers in the arith operations:
// either the index type or a scalar integer.
func IndexLike(s shapes.Shape) bool {
	if s.IsIndex() {
		return true
	}
	return s.Kind == shapes.KindScalar && s.DType.IsInt()
}

// Reshape validates a (ranked or unranked) operand reshaped to the statically
// ranked target shape. The element count is checked when both sides are fully
// static.
func Reshape(operand, target shapes.Shape) error {
	if !operand.IsTensor() || !target.IsTensor() {
		return errors.Errorf("Reshape requires tensor operand and target, got operand=%s and target=%s", operand, target)
	}
	if target.IsUnranked() {
		return errors.Errorf("Reshape target must be ranked, got %s", target)
	}
	if operand.DType != target.DType {
		return errors.Errorf("Reshape requires the operand and the target to have the same data type, got operand=%s and target=%s",
			operand, target)
	}
	if !operand.IsUnranked() && operand.Size() != shapes.DynamicSize && target.Size() != shapes.DynamicSize &&
		operand.Size() != target.Size() {
		return errors.Errorf("Reshape requires the total size of the new shape to match the original shape, got operand=%s and target=%s",
			operand, target)
	}
	return nil
}

// DynamicReshape validates an operand reshaped to the shape read at run time
// from outputShape (a rank-1 integer tensor). The result may be ranked (with
// dynamic dimensions) or unranked.
func DynamicReshape(operand, outputShape, result shapes.Shape) error {
	if !operand.IsTensor() || !result.IsTensor() {
		return errors.Errorf("DynamicReshape requires tensor operand and result, got operand=%s and result=%s", operand, result)
	}
	if operand.DType != result.DType {
		return errors.Errorf("DynamicReshape requires the operand and the result to have the same data type, got operand=%s and result=%s",
			operand, result)
	}
	if err := shapeVector(outputShape); err != nil {
		return errors.WithMessage(err, "DynamicReshape output_shape operand")
	}
	if !result.IsUnranked() && outputShape.Dim(0) != shapes.DynamicSize && outputShape.Dim(0) != result.Rank() {
		return errors.Errorf("DynamicReshape output_shape has %d entries for a rank-%d result (%s)",
			outputShape.Dim(0), result.Rank(), result)
	}
	return nil
}

// DynamicBroadcastInDim validates the broadcast of operand to the shape read
// at run time from outputDimensions, under the static broadcastDimensions
// axes mapping: broadcastDimensions[i] is the result axis that operand axis i
// maps to.
func DynamicBroadcastInDim(operand, outputDimensions, result shapes.Shape, broadcastDimensions []int) error {
	if !operand.IsTensor() || operand.IsUnranked() {
		return errors.Errorf("DynamicBroadcastInDim requires a ranked tensor operand, got %s", operand)
	}
	if !result.IsTensor() {
		return errors.Errorf("DynamicBroadcastInDim requires a tensor result, got %s", result)
	}
	if operand.DType != result.DType {
		return errors.Errorf("DynamicBroadcastInDim requires the operand and the result to have the same data type, got operand=%s and result=%s",
			operand, result)
	}
	if err := shapeVector(outputDimensions); err != nil {
		return errors.WithMessage(err, "DynamicBroadcastInDim output_dimensions operand")
	}
	if len(broadcastDimensions) != operand.Rank() {
		return errors.Errorf("DynamicBroadcastInDim requires one broadcast dimension per operand axis, got %d for operand %s",
			len(broadcastDimensions), operand)
	}
	if result.IsUnranked() {
		// The broadcast dimensions cannot be checked against the result rank.
		return nil
	}
	if operand.Rank() > result.Rank() {
		return errors.Errorf("DynamicBroadcastInDim operand rank (%d) must be <= result rank (%d)",
			operand.Rank(), result.Rank())
	}
	seen := utils.MakeSet[int](len(broadcastDimensions))
	for operandAxis, resultAxis := range broadcastDimensions {
		if resultAxis < 0 || resultAxis >= result.Rank() {
			return errors.Errorf("DynamicBroadcastInDim broadcast dimension %d (for operand axis %d) out-of-range for result %s",
				resultAxis, operandAxis, result)
		}
		if seen.Has(resultAxis) {
			return errors.Errorf("DynamicBroadcastInDim broadcast dimensions must be unique, got %v", broadcastDimensions)
		}
		seen.Insert(resultAxis)
	}
	return nil
}

// shapeVector validates a rank-1 integer tensor used to carry a shape at run
// time.
func shapeVector(s shapes.Shape) error {
	if !s.IsTensor() || s.IsUnranked() || s.Rank() != 1 {
		return errors.Errorf("must be a rank-1 tensor, got %s", s)
	}
	if !s.DType.IsInt() {
		return errors.Errorf("must hold integers, got %s", s)
	}
	return nil
}

// MulI infers the result of an arith.muli between two scalar integers (or
// indices). Both sides must have the same type.
func MulI(lhs, rhs shapes.Shape) (shapes.Shape, error) {
	if !IndexLike(lhs) || !IndexLike(rhs) || !lhs.Equal(rhs) {
		return shapes.Shape{}, errors.Errorf("MulI requires two scalar integers of the same type, got lhs=%s and rhs=%s", lhs, rhs)
	}
	return lhs, nil
}

// CmpI infers the result of an arith.cmpi between two scalar integers (or
// indices): the scalar predicate type i1.
func CmpI(lhs, rhs shapes.Shape) (shapes.Shape, error) {
	if !IndexLike(lhs) || !IndexLike(rhs) || !lhs.Equal(rhs) {
		return shapes.Shape{}, errors.Errorf("CmpI requires two scalar integers of the same type, got lhs=%s and rhs=%s", lhs, rhs)
	}
	return shapes.Scalar(dtypes.Bool), nil
}

// Select infers the result of an arith.select: the common shape of the two
// branches, picked by a scalar i1 condition.
func Select(condition, onTrue, onFalse shapes.Shape) (shapes.Shape, error) {
	if condition.Kind != shapes.KindScalar || condition.DType != dtypes.Bool {
		return shapes.Shape{}, errors.Errorf("Select requires a scalar i1 condition, got %s", condition)
	}
	if !onTrue.Equal(onFalse) {
		return shapes.Shape{}, errors.Errorf("Select requires both branches to have the same type, got %s and %s", onTrue, onFalse)
	}
	return onTrue, nil
}

// IndexCast infers the result of an arith.index_cast: a scalar integer casts
// to index, and index casts to a scalar integer (i64).
func IndexCast(operand shapes.Shape) (shapes.Shape, error) {
	if operand.IsIndex() {
		return shapes.Scalar(dtypes.S64), nil
	}
	if !IndexLike(operand) {
		return shapes.Shape{}, errors.Errorf("IndexCast requires a scalar integer or index, got %s", operand)
	}
	return shapes.Index(), nil
}

// Dim infers the result of a memref.dim: the run-time size of the given axis
// of a ranked buffer, as an index.
func Dim(source shapes.Shape, axis int) (shapes.Shape, error) {
	if !source.IsBuffer() || source.IsUnranked() {
		return shapes.Shape{}, errors.Errorf("Dim requires a ranked buffer, got %s", source)
	}
	if axis < 0 || axis >= source.Rank() {
		return shapes.Shape{}, errors.Errorf("Dim axis %d out-of-range for %s", axis, source)
	}
	return shapes.Index(), nil
}

// Extract infers the result of a tensor.extract: the scalar element at the
// given indices of a ranked tensor.
func Extract(source shapes.Shape, numIndices int) (shapes.Shape, error) {
	if !source.IsTensor() || source.IsUnranked() {
		return shapes.Shape{}, errors.Errorf("Extract requires a ranked tensor, got %s", source)
	}
	if numIndices != source.Rank() {
		return shapes.Shape{}, errors.Errorf("Extract requires one index per axis, got %d indices for %s", numIndices, source)
	}
	return shapes.Scalar(source.DType), nil
}

// ReinterpretCast infers the result of a memref.reinterpret_cast: a buffer
// sharing the source's memory, reinterpreted with the given sizes, strides
// and offset. Each size/stride (and the offset) is either a static value or
// shapes.DynamicSize, in which case the concrete value comes from a run-time
// operand of the operation.
func ReinterpretCast(source shapes.Shape, offset int, sizes, strides []int) (shapes.Shape, error) {
	if !source.IsBuffer() {
		return shapes.Shape{}, errors.Errorf("ReinterpretCast requires a buffer source, got %s", source)
	}
	if len(sizes) != len(strides) {
		return shapes.Shape{}, errors.Errorf("ReinterpretCast requires one stride per size, got %d sizes and %d strides",
			len(sizes), len(strides))
	}
	result := shapes.MakeBuffer(source.DType, sizes...)
	return result.WithLayout(offset, strides), nil
}

// Cast validates a memref.cast from source to target: same element type, and
// one side refining (or erasing) the rank or dimensions of the other.
func Cast(source, target shapes.Shape) error {
	if !source.IsBuffer() || !target.IsBuffer() {
		return errors.Errorf("Cast requires buffer source and target, got source=%s and target=%s", source, target)
	}
	if source.DType != target.DType {
		return errors.Errorf("Cast cannot change the element type, got source=%s and target=%s", source, target)
	}
	if source.IsUnranked() || target.IsUnranked() {
		return nil
	}
	if source.Rank() != target.Rank() {
		return errors.Errorf("Cast between ranked buffers cannot change the rank, got source=%s and target=%s", source, target)
	}
	for axis := range source.Dimensions {
		srcDim, tgtDim := source.Dim(axis), target.Dim(axis)
		if srcDim != shapes.DynamicSize && tgtDim != shapes.DynamicSize && srcDim != tgtDim {
			return errors.Errorf("Cast with incompatible static dimensions, got source=%s and target=%s", source, target)
		}
	}
	return nil
}

// MemRefReshape validates a memref.reshape of source to the shape read at run
// time from shapeBuffer (a rank-1 integer buffer). The result may be ranked
// or unranked.
func MemRefReshape(source, shapeBuffer, result shapes.Shape) error {
	if !source.IsBuffer() || !result.IsBuffer() {
		return errors.Errorf("MemRefReshape requires buffer source and result, got source=%s and result=%s", source, result)
	}
	if source.DType != result.DType {
		return errors.Errorf("MemRefReshape cannot change the element type, got source=%s and result=%s", source, result)
	}
	if !shapeBuffer.IsBuffer() || shapeBuffer.IsUnranked() || shapeBuffer.Rank() != 1 || !shapeBuffer.DType.IsInt() {
		return errors.Errorf("MemRefReshape shape operand must be a rank-1 integer buffer, got %s", shapeBuffer)
	}
	if !result.IsUnranked() && shapeBuffer.Dim(0) != shapes.DynamicSize && shapeBuffer.Dim(0) != result.Rank() {
		return errors.Errorf("MemRefReshape shape operand has %d entries for a rank-%d result (%s)",
			shapeBuffer.Dim(0), result.Rank(), result)
	}
	return nil
}

// Alloc infers the result of a memref.alloc: a freshly allocated buffer of
// the given dimensions with the identity (row-major) layout. numDynamicSizes
// is the number of run-time size operands, one per DynamicSize dimension.
func Alloc(dtype dtypes.DType, dimensions []int, numDynamicSizes int) (shapes.Shape, error) {
	wantDynamic := 0
	for _, dim := range dimensions {
		if dim == shapes.DynamicSize {
			wantDynamic++
		}
	}
	if numDynamicSizes != wantDynamic {
		return shapes.Shape{}, errors.Errorf("Alloc requires one size operand per dynamic dimension, got %d for dimensions %v",
			numDynamicSizes, dimensions)
	}
	return shapes.MakeBuffer(dtype, dimensions...), nil
}

// Copy validates a memref.copy from source to target: ranked buffers of the
// same element type and rank, with compatible dimensions.
func Copy(source, target shapes.Shape) error {
	if !source.IsBuffer() || !target.IsBuffer() || source.IsUnranked() || target.IsUnranked() {
		return errors.Errorf("Copy requires ranked buffer source and target, got source=%s and target=%s", source, target)
	}
	if source.DType != target.DType {
		return errors.Errorf("Copy cannot change the element type, got source=%s and target=%s", source, target)
	}
	if source.Rank() != target.Rank() {
		return errors.Errorf("Copy requires source and target of the same rank, got source=%s and target=%s", source, target)
	}
	for axis := range source.Dimensions {
		srcDim, tgtDim := source.Dim(axis), target.Dim(axis)
		if srcDim != shapes.DynamicSize && tgtDim != shapes.DynamicSize && srcDim != tgtDim {
			return errors.Errorf("Copy with incompatible static dimensions, got source=%s and target=%s", source, target)
		}
	}
	return nil
}

// ToBuffer infers the buffer form of a tensor value: same element type and
// dimensions, identity layout. Unranked tensors become unranked buffers.
func ToBuffer(tensor shapes.Shape) (shapes.Shape, error) {
	if !tensor.IsTensor() {
		return shapes.Shape{}, errors.Errorf("ToBuffer requires a tensor, got %s", tensor)
	}
	if tensor.IsUnranked() {
		return shapes.MakeUnrankedBuffer(tensor.DType), nil
	}
	return shapes.MakeBuffer(tensor.DType, slices.Clone(tensor.Dimensions)...), nil
}
