package memir

import (
	"fmt"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/memir/types"
	"github.com/gomlx/memir/types/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func must[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}

func TestBuilder_Programs(t *testing.T) {
	t.Run("tensor ops", func(t *testing.T) {
		b := New("test_module")
		fn := b.Main()
		operand := fn.Input(shapes.Make(dtypes.Float32, 3, 4))
		outputDims := fn.Input(shapes.Make(dtypes.Int32, 3))
		reshaped := must(fn.Reshape(operand, shapes.Make(dtypes.Float32, 12)))
		broadcast := must(fn.DynamicBroadcastInDim(operand, outputDims,
			shapes.Make(dtypes.Float32, shapes.DynamicSize, 3, 4), []int{1, 2}))
		require.NoError(t, fn.Return(reshaped, broadcast))
		module := must(b.Build())
		fmt.Printf("%s module:\n%s", t.Name(), module)
		assert.Contains(t, string(module),
			`  func.func @main(%arg0: tensor<3x4xf32>, %arg1: tensor<3xi32>) -> (tensor<12xf32>, tensor<?x3x4xf32>) {
    %0 = "hlo.reshape"(%arg0) : (tensor<3x4xf32>) -> tensor<12xf32>
    %1 = "hlo.dynamic_broadcast_in_dim"(%arg0, %arg1){broadcast_dimensions = array<i64: 1, 2>} : (tensor<3x4xf32>, tensor<3xi32>) -> tensor<?x3x4xf32>
    "func.return"(%0, %1) : (tensor<12xf32>, tensor<?x3x4xf32>) -> ()
  }`)
	})

	t.Run("scalar ops", func(t *testing.T) {
		b := New("test_module")
		fn := b.Main()
		c3 := must(fn.ConstantIndex(3))
		c4 := must(fn.ConstantIndex(4))
		product := must(fn.MulI(c3, c4))
		isLess := must(fn.CmpI(types.CmpSLT, c3, c4))
		selected := must(fn.Select(isLess, c3, product))
		require.NoError(t, fn.Return(selected))
		module := must(b.Build())
		fmt.Printf("%s module:\n%s", t.Name(), module)
		assert.Contains(t, string(module),
			`    %0 = "arith.constant"(){value = 3 : index} : () -> index
    %1 = "arith.constant"(){value = 4 : index} : () -> index
    %2 = "arith.muli"(%0, %1) : (index, index) -> index
    %3 = "arith.cmpi"(%0, %1){predicate = #arith<cmpi_predicate slt>} : (index, index) -> i1
    %4 = "arith.select"(%3, %0, %2) : (i1, index, index) -> index`)
	})

	t.Run("buffer ops", func(t *testing.T) {
		b := New("test_module")
		fn := b.Main()
		source := fn.Input(shapes.MakeBuffer(dtypes.Float32, shapes.DynamicSize, 4))
		size0 := must(fn.Dim(source, 0))
		view := must(fn.ReinterpretCast(source, 0,
			[]Extent{RuntimeExtent(size0), StaticExtent(4)},
			[]Extent{StaticExtent(4), StaticExtent(1)}))
		require.NoError(t, fn.Return(view))
		module := must(b.Build())
		fmt.Printf("%s module:\n%s", t.Name(), module)
		assert.Contains(t, string(module),
			`    %1 = "memref.dim"(%arg0, %0) : (memref<?x4xf32>, index) -> index
    %2 = "memref.reinterpret_cast"(%arg0, %1){static_offsets = array<i64: 0>, static_sizes = array<i64: -1, 4>, static_strides = array<i64: 4, 1>} : (memref<?x4xf32>, index) -> memref<?x4xf32, strided<[4, 1], offset: 0>>`)
	})

	t.Run("constants", func(t *testing.T) {
		b := New("test_module")
		fn := b.Main()
		scalar := must(fn.ConstantFromScalar(float32(1.5)))
		vector := must(fn.ConstantFromFlatAndDimensions([]int32{3, 4}, 2))
		extracted := must(fn.Extract(vector, must(fn.ConstantIndex(0))))
		_ = extracted
		require.NoError(t, fn.Return(scalar))
		module := must(b.Build())
		fmt.Printf("%s module:\n%s", t.Name(), module)
		assert.Contains(t, string(module),
			`"hlo.constant"(){value = dense<1.5> : tensor<f32>} : () -> tensor<f32>`)
		assert.Contains(t, string(module),
			`"hlo.constant"(){value = dense<[3, 4]> : tensor<2xi32>} : () -> tensor<2xi32>`)
		assert.Contains(t, string(module),
			`"tensor.extract"(%1, %2) : (tensor<2xi32>, index) -> i32`)
	})
}

func TestBuilder_Errors(t *testing.T) {
	t.Run("no main", func(t *testing.T) {
		b := New("test_module")
		fn := b.NewFunction("not_main")
		c := must(fn.ConstantIndex(0))
		require.NoError(t, fn.Return(c))
		_, err := b.Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must have a main function")
	})

	t.Run("op after return", func(t *testing.T) {
		b := New("test_module")
		fn := b.Main()
		c := must(fn.ConstantIndex(0))
		require.NoError(t, fn.Return(c))
		_, err := fn.ConstantIndex(1)
		require.Error(t, err)
	})

	t.Run("operand from another function", func(t *testing.T) {
		b := New("test_module")
		fn1 := b.Main()
		fn2 := b.NewFunction("other")
		c := must(fn1.ConstantIndex(0))
		_, err := fn2.MulI(c, c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not part of the function")
	})

	t.Run("shape mismatches", func(t *testing.T) {
		b := New("test_module")
		fn := b.Main()
		operand := fn.Input(shapes.Make(dtypes.Float32, 3, 4))
		_, err := fn.Reshape(operand, shapes.Make(dtypes.Float32, 5))
		require.Error(t, err)
		_, err = fn.Reshape(operand, shapes.Make(dtypes.Float64, 12))
		require.Error(t, err)

		c := must(fn.ConstantIndex(0))
		_, err = fn.Dim(c, 0)
		require.Error(t, err)

		buffer := fn.Input(shapes.MakeBuffer(dtypes.Float32, 3, 4))
		_, err = fn.Dim(buffer, 2)
		require.Error(t, err)
	})
}
