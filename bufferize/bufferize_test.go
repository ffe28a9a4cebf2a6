package bufferize

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/memir"
	"github.com/gomlx/memir/interp"
	"github.com/gomlx/memir/types/shapes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func must[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}

// broadcastModule builds a module with a single hlo.dynamic_broadcast_in_dim:
// main(operand, outputDims) -> broadcast.
func broadcastModule(t *testing.T, operand, result shapes.Shape, broadcastDimensions []int) *memir.Builder {
	b := memir.New(t.Name())
	fn := b.Main()
	operandValue := fn.NamedInput("operand", operand)
	outputDims := fn.NamedInput("output_dims", shapes.Make(dtypes.Int32, result.Rank()))
	broadcast := must(fn.DynamicBroadcastInDim(operandValue, outputDims, result, broadcastDimensions))
	require.NoError(t, fn.Return(broadcast))
	return b
}

func bufferizedText(t *testing.T, b *memir.Builder) string {
	text := must(b.Build())
	fmt.Printf("%s bufferized:\n%s", t.Name(), text)
	return string(text)
}

func TestBroadcast_StridedView(t *testing.T) {
	// Broadcasting (1, 4) to (3, 4) along axes {0, 1}: axis 0 expands
	// (runtime stride 0), axis 1 passes through (runtime stride 1).
	src := broadcastModule(t,
		shapes.Make(dtypes.Float32, 1, 4),
		shapes.Make(dtypes.Float32, 3, 4),
		[]int{0, 1})
	out := must(Bufferize(src, Options{}))
	text := bufferizedText(t, out)

	assert.NotContains(t, text, "hlo.dynamic_broadcast_in_dim")
	assert.Contains(t, text, "bufferization.to_buffer")
	assert.Contains(t, text, "memref.reinterpret_cast")
	assert.Contains(t, text, "memref<3x4xf32, strided<[?, ?], offset: 0>>")
	// Both axes are mapped, so both get the runtime compare+select, even
	// though axis 1 is statically a pass-through.
	assert.Equal(t, 2, strings.Count(text, "arith.cmpi"))
	assert.Equal(t, 2, strings.Count(text, "arith.select"))
	assert.NotContains(t, text, "memref.alloc")
	assert.NotContains(t, text, "memref.copy")

	operand := must(interp.BufferFromFlat([]float32{10, 11, 12, 13}, 1, 4))
	results := must(interp.Run(out.Functions()[0], operand, []int32{3, 4}))
	view := results[0].(*interp.Buffer)
	assert.True(t, view.SharesStorageWith(operand), "the strided view must alias the operand")
	assert.Equal(t, []int{3, 4}, view.Sizes())
	assert.Equal(t, []int{0, 1}, view.Strides())
	assert.Equal(t, 0, view.Offset())
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			assert.Equal(t, float32(10+col), view.At(row, col))
		}
	}
}

func TestBroadcast_RankExpansion(t *testing.T) {
	// Broadcasting (4) to (?, 4) with the operand axis mapped to result
	// axis 1: result axis 0 has no operand counterpart and gets stride 0
	// without any compare.
	src := broadcastModule(t,
		shapes.Make(dtypes.Float32, 4),
		shapes.Make(dtypes.Float32, shapes.DynamicSize, 4),
		[]int{1})
	out := must(Bufferize(src, Options{}))
	text := bufferizedText(t, out)

	assert.Contains(t, text, "memref.reinterpret_cast")
	assert.Contains(t, text, "memref<?x4xf32, strided<[?, ?], offset: 0>>")
	// Only the mapped axis gets the runtime conditional.
	assert.Equal(t, 1, strings.Count(text, "arith.cmpi"))
	assert.Equal(t, 1, strings.Count(text, "arith.select"))

	operand := must(interp.BufferFromFlat([]float32{1, 2, 3, 4}, 4))
	results := must(interp.Run(out.Functions()[0], operand, []int32{3, 4}))
	view := results[0].(*interp.Buffer)
	assert.True(t, view.SharesStorageWith(operand))
	assert.Equal(t, []int{3, 4}, view.Sizes())
	assert.Equal(t, []int{0, 1}, view.Strides())
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			assert.Equal(t, float32(1+col), view.At(row, col))
		}
	}
}

func TestBroadcast_Materialized(t *testing.T) {
	// With a materialization policy in force the strided view is copied
	// into a fresh, densely packed allocation.
	src := broadcastModule(t,
		shapes.Make(dtypes.Float32, 4),
		shapes.Make(dtypes.Float32, shapes.DynamicSize, 4),
		[]int{1})
	alwaysMaterialize := func(op *memir.Statement) bool { return true }
	out := must(Bufferize(src, Options{MustMaterialize: alwaysMaterialize}))
	text := bufferizedText(t, out)

	assert.Contains(t, text, "memref.reinterpret_cast")
	assert.Contains(t, text, "memref.alloc")
	assert.Contains(t, text, "memref.copy")

	operand := must(interp.BufferFromFlat([]float32{1, 2, 3, 4}, 4))
	results := must(interp.Run(out.Functions()[0], operand, []int32{3, 4}))
	dense := results[0].(*interp.Buffer)
	assert.False(t, dense.SharesStorageWith(operand), "a materialized result must own fresh memory")
	assert.Equal(t, []int{3, 4}, dense.Sizes())
	assert.Equal(t, []int{4, 1}, dense.Strides())
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			assert.Equal(t, float32(1+col), dense.At(row, col))
		}
	}
}

func TestBroadcast_UnrankedResultKeptInTensorForm(t *testing.T) {
	b := memir.New(t.Name())
	fn := b.Main()
	operand := fn.NamedInput("operand", shapes.Make(dtypes.Float32, 4))
	outputDims := fn.NamedInput("output_dims", shapes.Make(dtypes.Int32, shapes.DynamicSize))
	broadcast := must(fn.DynamicBroadcastInDim(operand, outputDims, shapes.MakeUnranked(dtypes.Float32), []int{0}))
	require.NoError(t, fn.Return(broadcast))

	out := must(Bufferize(b, Options{}))
	text := bufferizedText(t, out)
	assert.Contains(t, text, "hlo.dynamic_broadcast_in_dim")
	assert.NotContains(t, text, "memref.reinterpret_cast")
	assert.NotContains(t, text, "bufferization.to_buffer")
}

func TestReshape_UnrankedOperand(t *testing.T) {
	b := memir.New(t.Name())
	fn := b.Main()
	operand := fn.NamedInput("operand", shapes.MakeUnranked(dtypes.Float32))
	reshaped := must(fn.Reshape(operand, shapes.Make(dtypes.Float32, 3, 4)))
	require.NoError(t, fn.Return(reshaped))

	out := must(Bufferize(b, Options{}))
	text := bufferizedText(t, out)
	assert.NotContains(t, text, "hlo.reshape")
	assert.Contains(t, text, "bufferization.to_buffer")
	assert.Contains(t, text, `"memref.cast"`)
	assert.Contains(t, text, "memref<3x4xf32>")

	// The runtime value behind the unranked tensor already has the target
	// shape; the cast only refines the type, sharing memory.
	operandBuffer := must(interp.BufferFromFlat([]float32{
		0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11,
	}, 3, 4))
	results := must(interp.Run(out.Functions()[0], operandBuffer))
	cast := results[0].(*interp.Buffer)
	assert.True(t, cast.SharesStorageWith(operandBuffer))
	assert.Equal(t, []int{3, 4}, cast.Sizes())
	assert.Equal(t, []int{4, 1}, cast.Strides())
	assert.Equal(t, float32(7), cast.At(1, 3))
}

func TestReshape_RankedOperandKeptInTensorForm(t *testing.T) {
	b := memir.New(t.Name())
	fn := b.Main()
	operand := fn.NamedInput("operand", shapes.Make(dtypes.Float32, 3, 4))
	reshaped := must(fn.Reshape(operand, shapes.Make(dtypes.Float32, 12)))
	require.NoError(t, fn.Return(reshaped))

	out := must(Bufferize(b, Options{}))
	text := bufferizedText(t, out)
	assert.Contains(t, text, "hlo.reshape")
	assert.NotContains(t, text, "memref.cast")
	assert.NotContains(t, text, "bufferization.to_buffer")
}

func TestDynamicReshape(t *testing.T) {
	b := memir.New(t.Name())
	fn := b.Main()
	operand := fn.NamedInput("operand", shapes.Make(dtypes.Float32, 12))
	outputShape := fn.NamedInput("output_shape", shapes.Make(dtypes.Int32, 2))
	reshaped := must(fn.DynamicReshape(operand, outputShape,
		shapes.Make(dtypes.Float32, shapes.DynamicSize, shapes.DynamicSize)))
	require.NoError(t, fn.Return(reshaped))

	out := must(Bufferize(b, Options{}))
	text := bufferizedText(t, out)
	assert.NotContains(t, text, "hlo.dynamic_reshape")
	assert.Contains(t, text, `"memref.reshape"`)
	assert.Contains(t, text, "memref<?x?xf32>")

	operandBuffer := must(interp.BufferFromFlat([]float32{
		0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11,
	}, 12))
	results := must(interp.Run(out.Functions()[0], operandBuffer, []int32{3, 4}))
	reshapedBuffer := results[0].(*interp.Buffer)
	assert.True(t, reshapedBuffer.SharesStorageWith(operandBuffer), "a reshape must never copy")
	assert.Equal(t, []int{3, 4}, reshapedBuffer.Sizes())
	assert.Equal(t, float32(7), reshapedBuffer.At(1, 3))
}

func TestDynamicReshape_UnrankedResult(t *testing.T) {
	b := memir.New(t.Name())
	fn := b.Main()
	operand := fn.NamedInput("operand", shapes.Make(dtypes.Float32, 12))
	outputShape := fn.NamedInput("output_shape", shapes.Make(dtypes.Int32, shapes.DynamicSize))
	reshaped := must(fn.DynamicReshape(operand, outputShape, shapes.MakeUnranked(dtypes.Float32)))
	require.NoError(t, fn.Return(reshaped))

	out := must(Bufferize(b, Options{}))
	text := bufferizedText(t, out)
	assert.Contains(t, text, `"memref.reshape"`)
	assert.Contains(t, text, "memref<*xf32>")
}

func TestLayoutSynthesisIdempotence(t *testing.T) {
	// The synthesized layout is a pure function of the operation and its
	// operands: synthesizing twice yields views with identical sizes,
	// strides and offset.
	srcBuilder := memir.New(t.Name())
	src := srcBuilder.Main()
	srcOperand := src.NamedInput("operand", shapes.Make(dtypes.Float32, 1, 4))
	srcDims := src.NamedInput("output_dims", shapes.Make(dtypes.Int32, 2))
	broadcast := must(src.DynamicBroadcastInDim(srcOperand, srcDims,
		shapes.Make(dtypes.Float32, 3, 4), []int{0, 1}))

	dstBuilder := memir.New(t.Name())
	dst := dstBuilder.Main()
	operand := dst.NamedInput("operand", shapes.MakeBuffer(dtypes.Float32, 1, 4))
	outputDims := dst.NamedInput("output_dims", shapes.Make(dtypes.Int32, 2))
	first := must(synthesizeBroadcastView(dst, broadcast.Def(), operand, outputDims))
	second := must(synthesizeBroadcastView(dst, broadcast.Def(), operand, outputDims))
	require.NoError(t, dst.Return(first, second))
	assert.True(t, first.Shape().Equal(second.Shape()))

	buffer := must(interp.BufferFromFlat([]float32{1, 2, 3, 4}, 1, 4))
	results := must(interp.Run(dst, buffer, []int32{3, 4}))
	firstView, secondView := results[0].(*interp.Buffer), results[1].(*interp.Buffer)
	assert.Equal(t, firstView.Sizes(), secondView.Sizes())
	assert.Equal(t, firstView.Strides(), secondView.Strides())
	assert.Equal(t, firstView.Offset(), secondView.Offset())
}

func TestDriver_RollbackLeavesNoPartialMutation(t *testing.T) {
	srcBuilder := memir.New(t.Name())
	src := srcBuilder.Main()
	operand := src.NamedInput("operand", shapes.Make(dtypes.Float32, 3, 4))

	dstBuilder := memir.New(t.Name())
	dst := dstBuilder.NewFunction(src.Name)
	drv := &driver{
		dst:       dst,
		valueMap:  make(map[*memir.Value]*memir.Value),
		bufferMap: make(map[*memir.Value]*memir.Value),
	}
	drv.valueMap[operand] = dst.NamedInput(operand.Name(), operand.Shape())

	drv.begin()
	buffer := must(drv.GetBuffer(operand))
	require.True(t, buffer.Shape().IsBuffer())
	require.Len(t, dst.Statements, 1) // the to_buffer cast

	drv.rollback()
	assert.Empty(t, dst.Statements, "rollback must drop statements emitted by the failed rule")
	assert.Empty(t, drv.bufferMap, "rollback must drop cached to_buffer casts")

	// A later conversion starts from a clean slate and re-emits the cast.
	drv.begin()
	buffer = must(drv.GetBuffer(operand))
	drv.commit()
	assert.Len(t, dst.Statements, 1)
	assert.Same(t, buffer, must(drv.GetBuffer(operand)), "committed casts stay cached")
}

func TestDriver_UnresolvedOperand(t *testing.T) {
	srcBuilder := memir.New(t.Name())
	src := srcBuilder.Main()
	operand := src.NamedInput("operand", shapes.Make(dtypes.Float32, 3, 4))

	dstBuilder := memir.New(t.Name())
	drv := &driver{
		dst:       dstBuilder.NewFunction(src.Name),
		valueMap:  make(map[*memir.Value]*memir.Value),
		bufferMap: make(map[*memir.Value]*memir.Value),
	}

	_, err := drv.Resolve(operand)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOperandUnresolved))
	_, err = drv.GetBuffer(operand)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOperandUnresolved))
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(Options{})
	b := memir.New(t.Name())
	fn := b.Main()
	operand := fn.NamedInput("operand", shapes.MakeUnranked(dtypes.Float32))
	reshaped := must(fn.Reshape(operand, shapes.Make(dtypes.Float32, 12)))
	require.NoError(t, fn.Return(reshaped))

	rule, ok := registry.RuleFor(reshaped.Def())
	require.True(t, ok)
	assert.False(t, rule.BufferizesToMemoryRead())
	assert.False(t, rule.BufferizesToMemoryWrite())
	assert.Equal(t, RelationEquivalent, rule.BufferRelation())

	// The broadcast rule reads the operand's memory and declares no aliasing
	// guarantee, since the policy may force a copy.
	broadcast := DynamicBroadcastInDimRule(nil)
	assert.True(t, broadcast.BufferizesToMemoryRead())
	assert.False(t, broadcast.BufferizesToMemoryWrite())
	assert.Equal(t, RelationNone, broadcast.BufferRelation())

	returnStmt := fn.Statements[len(fn.Statements)-1]
	_, ok = registry.RuleFor(returnStmt)
	assert.False(t, ok)
}
