// Package interp is a reference interpreter for bufferized functions: it
// executes the buffer-level statements of a memir.Function on concrete host
// buffers.
//
// It implements just enough of the arith, memref and tensor dialects to run
// the output of the bufferize package; tensor-level hlo operations are
// rejected. Buffers are views over flat Go slices (see Buffer), so aliasing
// behavior -- which operations share memory and which copy -- can be observed
// directly in tests.
package interp

import (
	"reflect"

	"github.com/gomlx/memir"
	"github.com/gomlx/memir/internal/optypes"
	"github.com/gomlx/memir/types"
	"github.com/gomlx/memir/types/shapes"
	"github.com/pkg/errors"
)

// Run executes the function's statements in order with the given inputs, and
// returns the values of its return statement.
//
// Each input must be a *Buffer or a flat slice -- flat slices are wrapped with
// the dimensions of the corresponding function input, which must then be
// fully static. Results are *Buffer for tensor or buffer values, and Go
// scalars for scalar values.
func Run(fn *memir.Function, inputs ...any) ([]any, error) {
	if !fn.Returned {
		return nil, errors.Errorf("function %q has no return statement", fn.Name)
	}
	if len(inputs) != len(fn.Inputs) {
		return nil, errors.Errorf("function %q takes %d inputs, got %d", fn.Name, len(fn.Inputs), len(inputs))
	}
	env := make(map[*memir.Value]any, len(fn.Statements)+len(inputs))
	for i, input := range inputs {
		buf, err := inputBuffer(input, fn.Inputs[i].Shape())
		if err != nil {
			return nil, errors.WithMessagef(err, "input #%d of function %q", i, fn.Name)
		}
		env[fn.Inputs[i]] = buf
	}
	for _, stmt := range fn.Statements {
		if stmt.OpType == optypes.FuncReturn {
			results := make([]any, len(stmt.Inputs))
			for i, input := range stmt.Inputs {
				results[i] = env[input]
			}
			return results, nil
		}
		if err := execute(stmt, env); err != nil {
			return nil, errors.WithMessagef(err, "executing %s in function %q", stmt.OpType, fn.Name)
		}
	}
	return nil, errors.Errorf("function %q ended without reaching its return statement", fn.Name)
}

func inputBuffer(input any, shape shapes.Shape) (*Buffer, error) {
	if buf, ok := input.(*Buffer); ok {
		return buf, nil
	}
	if shape.IsUnranked() || shape.HasDynamicDims() {
		return nil, errors.Errorf("flat slice input requires a fully static input type, got %s -- pass a *Buffer instead", shape)
	}
	return BufferFromFlat(input, shape.Dimensions...)
}

func execute(stmt *memir.Statement, env map[*memir.Value]any) error {
	switch stmt.OpType {
	case optypes.Constant:
		literal, ok := stmt.Attributes["value"].(*memir.TensorLiteral)
		if !ok {
			return errors.Errorf("constant without a tensor literal value attribute")
		}
		buf, err := BufferFromFlat(literal.Flat(), literal.Shape().Dimensions...)
		if err != nil {
			return err
		}
		env[stmt.Outputs[0]] = buf
		return nil

	case optypes.ArithConstant:
		literal, ok := stmt.Attributes["value"].(memir.IndexLiteral)
		if !ok {
			return errors.Errorf("arith.constant without an index value attribute")
		}
		env[stmt.Outputs[0]] = int(literal)
		return nil

	case optypes.ArithMulI:
		lhs, err := scalarInt(stmt, env, 0)
		if err != nil {
			return err
		}
		rhs, err := scalarInt(stmt, env, 1)
		if err != nil {
			return err
		}
		env[stmt.Outputs[0]] = lhs * rhs
		return nil

	case optypes.ArithCmpI:
		predicate, ok := stmt.Attributes["predicate"].(types.CmpPredicate)
		if !ok {
			return errors.Errorf("arith.cmpi without a predicate attribute")
		}
		lhs, err := scalarInt(stmt, env, 0)
		if err != nil {
			return err
		}
		rhs, err := scalarInt(stmt, env, 1)
		if err != nil {
			return err
		}
		result, err := compare(predicate, lhs, rhs)
		if err != nil {
			return err
		}
		env[stmt.Outputs[0]] = result
		return nil

	case optypes.ArithSelect:
		condition, ok := env[stmt.Inputs[0]].(bool)
		if !ok {
			return errors.Errorf("arith.select condition is not a boolean scalar")
		}
		if condition {
			env[stmt.Outputs[0]] = env[stmt.Inputs[1]]
		} else {
			env[stmt.Outputs[0]] = env[stmt.Inputs[2]]
		}
		return nil

	case optypes.ArithIndexCast:
		value, err := scalarInt(stmt, env, 0)
		if err != nil {
			return err
		}
		env[stmt.Outputs[0]] = value
		return nil

	case optypes.MemRefDim:
		source, err := buffer(stmt, env, 0)
		if err != nil {
			return err
		}
		axis, err := scalarInt(stmt, env, 1)
		if err != nil {
			return err
		}
		if axis < 0 || axis >= source.Rank() {
			return errors.Errorf("memref.dim axis %d out-of-range for rank %d", axis, source.Rank())
		}
		env[stmt.Outputs[0]] = source.sizes[axis]
		return nil

	case optypes.MemRefReinterpretCast:
		return executeReinterpretCast(stmt, env)

	case optypes.MemRefCast:
		source, err := buffer(stmt, env, 0)
		if err != nil {
			return err
		}
		env[stmt.Outputs[0]] = source
		return nil

	case optypes.MemRefReshape:
		return executeReshape(stmt, env)

	case optypes.MemRefAlloc:
		return executeAlloc(stmt, env)

	case optypes.MemRefCopy:
		source, err := buffer(stmt, env, 0)
		if err != nil {
			return err
		}
		target, err := buffer(stmt, env, 1)
		if err != nil {
			return err
		}
		return target.copyFrom(source)

	case optypes.TensorExtract:
		source, err := buffer(stmt, env, 0)
		if err != nil {
			return err
		}
		indices := make([]int, len(stmt.Inputs)-1)
		for i := range indices {
			index, err := scalarInt(stmt, env, i+1)
			if err != nil {
				return err
			}
			indices[i] = index
		}
		env[stmt.Outputs[0]] = source.At(indices...)
		return nil

	case optypes.ToBuffer:
		source, err := buffer(stmt, env, 0)
		if err != nil {
			return err
		}
		env[stmt.Outputs[0]] = source
		return nil

	default:
		if !stmt.OpType.IsBufferLevel() {
			return errors.Errorf("cannot execute tensor-level operation %s -- bufferize the function first", stmt.OpType)
		}
		return errors.Errorf("unsupported operation %s", stmt.OpType)
	}
}

// executeReinterpretCast builds a view over the source buffer's storage with
// the layout given by the static_* attributes, reading runtime components
// from the statement's extra operands (sizes first, then strides, in
// dimension order).
func executeReinterpretCast(stmt *memir.Statement, env map[*memir.Value]any) error {
	source, err := buffer(stmt, env, 0)
	if err != nil {
		return err
	}
	staticOffsets, ok1 := stmt.Attributes["static_offsets"].(memir.I64Array)
	staticSizes, ok2 := stmt.Attributes["static_sizes"].(memir.I64Array)
	staticStrides, ok3 := stmt.Attributes["static_strides"].(memir.I64Array)
	if !ok1 || !ok2 || !ok3 {
		return errors.Errorf("memref.reinterpret_cast missing static layout attributes")
	}
	if len(staticSizes) != len(staticStrides) || len(staticOffsets) != 1 {
		return errors.Errorf("memref.reinterpret_cast with inconsistent layout attributes")
	}

	next := 1 // next runtime operand
	runtime := func() (int, error) {
		if next >= len(stmt.Inputs) {
			return 0, errors.Errorf("memref.reinterpret_cast missing runtime layout operands")
		}
		value, err := scalarInt(stmt, env, next)
		next++
		return value, err
	}

	offset := staticOffsets[0]
	if offset == shapes.DynamicSize {
		if offset, err = runtime(); err != nil {
			return err
		}
	}
	sizes := make([]int, len(staticSizes))
	for i, size := range staticSizes {
		if size == shapes.DynamicSize {
			if size, err = runtime(); err != nil {
				return err
			}
		}
		sizes[i] = size
	}
	strides := make([]int, len(staticStrides))
	for i, stride := range staticStrides {
		if stride == shapes.DynamicSize {
			if stride, err = runtime(); err != nil {
				return err
			}
		}
		strides[i] = stride
	}
	env[stmt.Outputs[0]] = source.view(offset, sizes, strides)
	return nil
}

// executeReshape reads the target dimensions from the shape operand and
// builds an identity-layout view over the source's storage. The source must
// itself have the identity layout.
func executeReshape(stmt *memir.Statement, env map[*memir.Value]any) error {
	source, err := buffer(stmt, env, 0)
	if err != nil {
		return err
	}
	shapeOperand, err := buffer(stmt, env, 1)
	if err != nil {
		return err
	}
	if shapeOperand.Rank() != 1 {
		return errors.Errorf("memref.reshape shape operand must be rank-1, got rank %d", shapeOperand.Rank())
	}
	if source.offset != 0 || !reflect.DeepEqual(source.strides, rowMajorStrides(source.sizes)) {
		return errors.Errorf("memref.reshape source must have the identity layout, got offset %d strides %v",
			source.offset, source.strides)
	}
	dimensions := make([]int, shapeOperand.sizes[0])
	size := 1
	for i := range dimensions {
		dim, err := anyToInt(shapeOperand.At(i))
		if err != nil {
			return err
		}
		dimensions[i] = dim
		size *= dim
	}
	if sourceSize := reflect.ValueOf(source.flat).Len(); size != sourceSize {
		return errors.Errorf("memref.reshape to %v (%d elements) from a buffer of %d elements", dimensions, size, sourceSize)
	}
	env[stmt.Outputs[0]] = source.view(0, dimensions, rowMajorStrides(dimensions))
	return nil
}

func executeAlloc(stmt *memir.Statement, env map[*memir.Value]any) error {
	resultShape := stmt.Outputs[0].Shape()
	dimensions := make([]int, resultShape.Rank())
	next := 0 // next dynamic size operand
	for i, dim := range resultShape.Dimensions {
		if dim == shapes.DynamicSize {
			if next >= len(stmt.Inputs) {
				return errors.Errorf("memref.alloc missing dynamic size operands for %s", resultShape)
			}
			value, err := scalarInt(stmt, env, next)
			if err != nil {
				return err
			}
			dim = value
			next++
		}
		dimensions[i] = dim
	}
	env[stmt.Outputs[0]] = NewBuffer(resultShape.DType, dimensions...)
	return nil
}

func compare(predicate types.CmpPredicate, lhs, rhs int) (bool, error) {
	switch predicate {
	case types.CmpEQ:
		return lhs == rhs, nil
	case types.CmpNE:
		return lhs != rhs, nil
	case types.CmpSLT:
		return lhs < rhs, nil
	case types.CmpSLE:
		return lhs <= rhs, nil
	case types.CmpSGT:
		return lhs > rhs, nil
	case types.CmpSGE:
		return lhs >= rhs, nil
	case types.CmpULT:
		return uint64(lhs) < uint64(rhs), nil
	case types.CmpULE:
		return uint64(lhs) <= uint64(rhs), nil
	case types.CmpUGT:
		return uint64(lhs) > uint64(rhs), nil
	case types.CmpUGE:
		return uint64(lhs) >= uint64(rhs), nil
	}
	return false, errors.Errorf("unsupported comparison predicate %s", predicate)
}

func buffer(stmt *memir.Statement, env map[*memir.Value]any, input int) (*Buffer, error) {
	value, found := env[stmt.Inputs[input]]
	if !found {
		return nil, errors.Errorf("operand #%d (%s) was never defined", input, stmt.Inputs[input])
	}
	buf, ok := value.(*Buffer)
	if !ok {
		return nil, errors.Errorf("operand #%d (%s) is not a buffer, got %T", input, stmt.Inputs[input], value)
	}
	return buf, nil
}

func scalarInt(stmt *memir.Statement, env map[*memir.Value]any, input int) (int, error) {
	value, found := env[stmt.Inputs[input]]
	if !found {
		return 0, errors.Errorf("operand #%d (%s) was never defined", input, stmt.Inputs[input])
	}
	result, err := anyToInt(value)
	if err != nil {
		return 0, errors.WithMessagef(err, "operand #%d (%s)", input, stmt.Inputs[input])
	}
	return result, nil
}

func anyToInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	}
	return 0, errors.Errorf("expected an integer scalar, got %T", value)
}
