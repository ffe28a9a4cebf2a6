package bufferize

import (
	"github.com/gomlx/memir"
	"github.com/gomlx/memir/types"
	"github.com/pkg/errors"
)

// broadcastRule converts hlo.dynamic_broadcast_in_dim into a
// memref.reinterpret_cast view with stride 0 along broadcast dimensions,
// optionally followed by an alloc+copy when the injected materialization
// policy demands densely packed memory.
type broadcastRule struct {
	mustMaterialize MaterializationPolicy
}

// DynamicBroadcastInDimRule returns the conversion rule for
// hlo.dynamic_broadcast_in_dim. mustMaterialize may be nil, meaning results
// are always left as strided views.
func DynamicBroadcastInDimRule(mustMaterialize MaterializationPolicy) Rule {
	return broadcastRule{mustMaterialize: mustMaterialize}
}

func (broadcastRule) BufferizesToMemoryRead() bool  { return true }
func (broadcastRule) BufferizesToMemoryWrite() bool { return false }

// BufferRelation is none: the result only aliases the operand when the
// policy did not force a copy, so downstream passes must not assume either.
func (broadcastRule) BufferRelation() BufferRelation {
	return RelationNone
}

func (r broadcastRule) Convert(op *memir.Statement, drv Driver) error {
	resultType := op.Outputs[0].Shape()
	if resultType.IsUnranked() {
		return errors.WithMessagef(ErrNotApplicable, "hlo.dynamic_broadcast_in_dim with unranked result %s", resultType)
	}

	operandBuffer, err := drv.GetBuffer(op.Inputs[0])
	if err != nil {
		return err
	}
	outputDimensions, err := drv.Resolve(op.Inputs[1])
	if err != nil {
		return err
	}

	result, err := synthesizeBroadcastView(drv.Func(), op, operandBuffer, outputDimensions)
	if err != nil {
		return err
	}

	if r.mustMaterialize != nil && r.mustMaterialize(op) {
		result, err = materializeCopy(drv.Func(), result, outputDimensions)
		if err != nil {
			return err
		}
	}

	drv.ReplaceResultsWithBuffers(op, []*memir.Value{result})
	return nil
}

// synthesizeBroadcastView emits the scalar operations computing a layout that
// reinterprets operand as if it had op's result shape, and returns the
// memref.reinterpret_cast view with that layout. The view has offset 0 and
// one stride per result dimension:
//
//   - a result dimension with no operand counterpart gets stride 0, emulating
//     the padding of the operand shape with size-1 axes and their expansion;
//   - a mapped dimension gets a run-time select between the operand's own
//     row-major stride (sizes match, pass-through) and 0 (operand size is
//     smaller, expansion). The decision is kept as a run-time conditional
//     even when the sizes are statically known.
//
// No data is copied; the view shares the operand's memory.
func synthesizeBroadcastView(fn *memir.Function, op *memir.Statement, operand, outputDimensions *memir.Value) (*memir.Value, error) {
	operandType := operand.Shape()
	operandRank := operandType.Rank()
	resultType := op.Outputs[0].Shape()
	resultRank := resultType.Rank()

	zero, err := fn.ConstantIndex(0)
	if err != nil {
		return nil, err
	}
	one, err := fn.ConstantIndex(1)
	if err != nil {
		return nil, err
	}

	// Compute a reversed scan product: the operand's row-major stride for
	// each axis, working from minor to major dimensions. Additionally, save
	// the operand size values to compare against the target sizes below.
	operandStrides := make([]*memir.Value, operandRank)
	operandSizes := make([]*memir.Value, operandRank)
	strideSoFar := one
	for i := operandRank - 1; i >= 0; i-- {
		var operandDimSize *memir.Value
		if operandType.IsDynamicDim(i) {
			operandDimSize, err = fn.Dim(operand, i)
		} else {
			operandDimSize, err = fn.ConstantIndex(operandType.Dim(i))
		}
		if err != nil {
			return nil, err
		}
		operandSizes[i] = operandDimSize

		operandStrides[i] = strideSoFar
		if i > 0 {
			strideSoFar, err = fn.MulI(strideSoFar, operandDimSize)
			if err != nil {
				return nil, err
			}
		}
	}

	broadcastDimensions, _ := op.Attributes["broadcast_dimensions"].(memir.I64Array)
	outputToInputDim := make(map[int]int, len(broadcastDimensions))
	for operandAxis, resultAxis := range broadcastDimensions {
		outputToInputDim[resultAxis] = operandAxis
	}

	sizes := make([]memir.Extent, 0, resultRank)
	strides := make([]memir.Extent, 0, resultRank)
	for i := 0; i < resultRank; i++ {
		iValue, err := fn.ConstantIndex(i)
		if err != nil {
			return nil, err
		}
		resultDimSize, err := fn.Extract(outputDimensions, iValue)
		if err != nil {
			return nil, err
		}
		if !resultDimSize.Shape().IsIndex() {
			resultDimSize, err = fn.IndexCast(resultDimSize)
			if err != nil {
				return nil, err
			}
		}
		if resultType.IsDynamicDim(i) {
			sizes = append(sizes, memir.RuntimeExtent(resultDimSize))
		} else {
			sizes = append(sizes, memir.StaticExtent(resultType.Dim(i)))
		}

		// If the rank of the result is greater than the rank of the operand,
		// i.e. there is no entry for this result dimension in the inverse
		// broadcast_dimensions map, the stride is 0 to emulate padding of the
		// operand shape with 1s and the corresponding expansion.
		operandAxis, ok := outputToInputDim[i]
		if !ok {
			strides = append(strides, memir.RuntimeExtent(zero))
			continue
		}

		// There can be two cases:
		// 1) Operand dim == result dim => expansion is not needed
		//    => stride is the operand's own row-major stride.
		// 2) Operand dim < result dim => expansion is needed => stride := 0.
		isExpansion, err := fn.CmpI(types.CmpSLT, operandSizes[operandAxis], resultDimSize)
		if err != nil {
			return nil, err
		}
		stride, err := fn.Select(isExpansion, zero, operandStrides[operandAxis])
		if err != nil {
			return nil, err
		}
		strides = append(strides, memir.RuntimeExtent(stride))
	}

	// Type-erased buffer type with static rank and dynamic strides.
	return fn.ReinterpretCast(operand, 0, sizes, strides)
}

// materializeCopy allocates a new, densely laid out (identity layout, row
// major) buffer of the view's shape, reading dynamic sizes from
// outputDimensions, and copies the view's contents into it element-wise. The
// returned buffer owns fresh memory; the view is only a transient read path.
func materializeCopy(fn *memir.Function, view, outputDimensions *memir.Value) (*memir.Value, error) {
	viewType := view.Shape()
	var dynamicSizes []*memir.Value
	for i := 0; i < viewType.Rank(); i++ {
		if !viewType.IsDynamicDim(i) {
			continue
		}
		index, err := fn.ConstantIndex(i)
		if err != nil {
			return nil, err
		}
		size, err := fn.Extract(outputDimensions, index)
		if err != nil {
			return nil, err
		}
		if !size.Shape().IsIndex() {
			size, err = fn.IndexCast(size)
			if err != nil {
				return nil, err
			}
		}
		dynamicSizes = append(dynamicSizes, size)
	}
	alloc, err := fn.Alloc(viewType.DType, viewType.Dimensions, dynamicSizes...)
	if err != nil {
		return nil, err
	}
	if err := fn.Copy(view, alloc); err != nil {
		return nil, err
	}
	return alloc, nil
}
