package interp

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/memir"
	"github.com/gomlx/memir/types"
	"github.com/gomlx/memir/types/shapes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer(t *testing.T) {
	zeroed := NewBuffer(dtypes.Float32, 2, 3)
	assert.Equal(t, dtypes.Float32, zeroed.DType())
	assert.Equal(t, []int{2, 3}, zeroed.Sizes())
	assert.Equal(t, []int{3, 1}, zeroed.Strides())
	assert.Equal(t, float32(0), zeroed.At(1, 2))

	buffer := must.M1(BufferFromFlat([]int32{0, 1, 2, 3, 4, 5}, 2, 3))
	assert.Equal(t, dtypes.Int32, buffer.DType())
	assert.Equal(t, int32(5), buffer.At(1, 2))
	assert.True(t, buffer.SharesStorageWith(buffer))
	assert.False(t, buffer.SharesStorageWith(zeroed))

	_, err := BufferFromFlat(3.0, 1)
	require.Error(t, err)
	_, err = BufferFromFlat([]float32{1, 2, 3}, 2, 2)
	require.Error(t, err)

	assert.Panics(t, func() { buffer.At(0) }, "wrong number of indices")
	assert.Panics(t, func() { buffer.At(0, 3) }, "index out-of-range")
}

func TestRun_ScalarOps(t *testing.T) {
	b := memir.New("scalars")
	fn := b.Main()
	c3 := must.M1(fn.ConstantIndex(3))
	c4 := must.M1(fn.ConstantIndex(4))
	product := must.M1(fn.MulI(c3, c4))
	isLess := must.M1(fn.CmpI(types.CmpSLT, c3, c4))
	selected := must.M1(fn.Select(isLess, c3, product))
	require.NoError(t, fn.Return(selected, product))

	results := must.M1(Run(fn))
	require.Len(t, results, 2)
	assert.Equal(t, 3, results[0])
	assert.Equal(t, 12, results[1])
}

func TestRun_ConstantsAndExtract(t *testing.T) {
	b := memir.New("constants")
	fn := b.Main()
	vector := must.M1(fn.ConstantFromFlatAndDimensions([]int32{7, 9}, 2))
	index := must.M1(fn.ConstantIndex(1))
	element := must.M1(fn.Extract(vector, index))
	cast := must.M1(fn.IndexCast(element))
	require.NoError(t, fn.Return(cast))

	results := must.M1(Run(fn))
	assert.Equal(t, 9, results[0])
}

func TestRun_Dim(t *testing.T) {
	b := memir.New("dim")
	fn := b.Main()
	source := fn.Input(shapes.MakeBuffer(dtypes.Float32, shapes.DynamicSize, 4))
	size0 := must.M1(fn.Dim(source, 0))
	require.NoError(t, fn.Return(size0))

	buffer := must.M1(BufferFromFlat(make([]float32, 12), 3, 4))
	results := must.M1(Run(fn, buffer))
	assert.Equal(t, 3, results[0])
}

func TestRun_ReinterpretCast(t *testing.T) {
	// A transposed view of a (2, 3) buffer: sizes (3, 2), strides (1, 3).
	b := memir.New("reinterpret")
	fn := b.Main()
	source := fn.Input(shapes.MakeBuffer(dtypes.Float32, 2, 3))
	view := must.M1(fn.ReinterpretCast(source, 0,
		[]memir.Extent{memir.StaticExtent(3), memir.StaticExtent(2)},
		[]memir.Extent{memir.StaticExtent(1), memir.StaticExtent(3)}))
	require.NoError(t, fn.Return(view))

	buffer := must.M1(BufferFromFlat([]float32{0, 1, 2, 3, 4, 5}, 2, 3))
	results := must.M1(Run(fn, buffer))
	transposed := results[0].(*Buffer)
	assert.True(t, transposed.SharesStorageWith(buffer))
	assert.Equal(t, []int{3, 2}, transposed.Sizes())
	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			assert.Equal(t, buffer.At(row, col), transposed.At(col, row))
		}
	}
}

func TestRun_AllocAndCopy(t *testing.T) {
	b := memir.New("alloc_copy")
	fn := b.Main()
	source := fn.Input(shapes.MakeBuffer(dtypes.Float64, shapes.DynamicSize, 3))
	size0 := must.M1(fn.Dim(source, 0))
	alloc := must.M1(fn.Alloc(dtypes.Float64, []int{shapes.DynamicSize, 3}, size0))
	require.NoError(t, fn.Copy(source, alloc))
	require.NoError(t, fn.Return(alloc))

	buffer := must.M1(BufferFromFlat([]float64{0, 1, 2, 3, 4, 5}, 2, 3))
	results := must.M1(Run(fn, buffer))
	clone := results[0].(*Buffer)
	assert.False(t, clone.SharesStorageWith(buffer), "an alloc owns fresh memory")
	assert.Equal(t, []int{2, 3}, clone.Sizes())
	assert.Equal(t, []int{3, 1}, clone.Strides())
	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			assert.Equal(t, buffer.At(row, col), clone.At(row, col))
		}
	}
}

func TestRun_Errors(t *testing.T) {
	t.Run("no return", func(t *testing.T) {
		b := memir.New("no_return")
		fn := b.Main()
		_ = must.M1(fn.ConstantIndex(0))
		_, err := Run(fn)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no return statement")
	})

	t.Run("wrong input count", func(t *testing.T) {
		b := memir.New("inputs")
		fn := b.Main()
		source := fn.Input(shapes.MakeBuffer(dtypes.Float32, 2))
		require.NoError(t, fn.Return(source))
		_, err := Run(fn)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "takes 1 inputs")
	})

	t.Run("tensor-level op", func(t *testing.T) {
		b := memir.New("tensor_op")
		fn := b.Main()
		operand := fn.Input(shapes.Make(dtypes.Float32, 3, 4))
		reshaped := must.M1(fn.Reshape(operand, shapes.Make(dtypes.Float32, 12)))
		require.NoError(t, fn.Return(reshaped))
		_, err := Run(fn, []float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot execute tensor-level operation")
	})

	t.Run("flat slice for a dynamic input", func(t *testing.T) {
		b := memir.New("dynamic_input")
		fn := b.Main()
		source := fn.Input(shapes.MakeBuffer(dtypes.Float32, shapes.DynamicSize))
		require.NoError(t, fn.Return(source))
		_, err := Run(fn, []float32{1, 2})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pass a *Buffer instead")
	})
}
