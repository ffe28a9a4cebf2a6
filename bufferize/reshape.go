package bufferize

import (
	"slices"

	"github.com/gomlx/memir"
	"github.com/gomlx/memir/types/shapes"
	"github.com/pkg/errors"
)

// reshapeRule converts hlo.reshape of an unranked operand into a memref.cast
// to the statically known result type: a type reinterpretation of the same
// memory, not a copy. Ranked operands are left to a different lowering path.
type reshapeRule struct{}

// ReshapeRule returns the conversion rule for hlo.reshape.
func ReshapeRule() Rule { return reshapeRule{} }

func (reshapeRule) BufferizesToMemoryRead() bool  { return false }
func (reshapeRule) BufferizesToMemoryWrite() bool { return false }
func (reshapeRule) BufferRelation() BufferRelation {
	return RelationEquivalent
}

func (reshapeRule) Convert(op *memir.Statement, drv Driver) error {
	operand := op.Inputs[0]
	if !operand.Shape().IsUnranked() {
		return errors.WithMessagef(ErrNotApplicable, "hlo.reshape of ranked operand %s", operand.Shape())
	}

	// The buffer still has the old (pre-reshape) type.
	operandBuffer, err := drv.GetBuffer(operand)
	if err != nil {
		return err
	}

	resultType := op.Outputs[0].Shape()
	destType := shapes.MakeBuffer(resultType.DType, slices.Clone(resultType.Dimensions)...)
	cast, err := drv.Func().MemRefCast(operandBuffer, destType)
	if err != nil {
		return err
	}
	drv.ReplaceResultsWithBuffers(op, []*memir.Value{cast})
	return nil
}

// dynamicReshapeRule converts hlo.dynamic_reshape into a memref.reshape: the
// operand's memory reinterpreted under the shape read from the shape-vector
// operand at run time. Never a copy.
type dynamicReshapeRule struct{}

// DynamicReshapeRule returns the conversion rule for hlo.dynamic_reshape.
func DynamicReshapeRule() Rule { return dynamicReshapeRule{} }

func (dynamicReshapeRule) BufferizesToMemoryRead() bool  { return false }
func (dynamicReshapeRule) BufferizesToMemoryWrite() bool { return false }
func (dynamicReshapeRule) BufferRelation() BufferRelation {
	return RelationEquivalent
}

func (dynamicReshapeRule) Convert(op *memir.Statement, drv Driver) error {
	// The buffer still has the old (pre-reshape) type.
	operandBuffer, err := drv.GetBuffer(op.Inputs[0])
	if err != nil {
		return err
	}
	outputShapeBuffer, err := drv.GetBuffer(op.Inputs[1])
	if err != nil {
		return err
	}

	opResultType := op.Outputs[0].Shape()
	var resultType shapes.Shape
	if opResultType.IsUnranked() {
		resultType = shapes.MakeUnrankedBuffer(opResultType.DType)
	} else {
		resultType = shapes.MakeBuffer(opResultType.DType, slices.Clone(opResultType.Dimensions)...)
	}
	reshaped, err := drv.Func().MemRefReshape(operandBuffer, outputShapeBuffer, resultType)
	if err != nil {
		return err
	}
	drv.ReplaceResultsWithBuffers(op, []*memir.Value{reshaped})
	return nil
}
